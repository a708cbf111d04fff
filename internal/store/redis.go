package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisStore implements Store on Redis with native key expiry, for
// deployments that share tokens across instances.
type RedisStore struct {
	client *redis.Client
	opts   Options
}

// NewRedis connects to Redis using a URL (redis://host:port/db).
func NewRedis(url string, opts Options) (*RedisStore, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "redis: parse url")
	}
	return &RedisStore{
		client: redis.NewClient(redisOpts),
		opts:   opts.withDefaults(),
	}, nil
}

func (s *RedisStore) put(ctx context.Context, token string, payload any, ttl time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "redis: marshal payload")
	}
	if err := s.client.Set(ctx, token, data, ttl).Err(); err != nil {
		return eris.Wrap(err, "redis: set token")
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, token string, out any) error {
	data, err := s.client.Get(ctx, token).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrap(err, "redis: get token")
	}
	return eris.Wrap(json.Unmarshal(data, out), "redis: unmarshal payload")
}

func (s *RedisStore) PutExtraction(ctx context.Context, e *Extraction) (string, error) {
	token := newToken(extractPrefix)
	if err := s.put(ctx, token, e, s.opts.ExtractTTL); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisStore) GetExtraction(ctx context.Context, token string) (*Extraction, error) {
	var e Extraction
	if err := s.get(ctx, token, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *RedisStore) PutResult(ctx context.Context, r *ReconcileResult) (string, error) {
	jobID := newToken(resultPrefix)
	if err := s.put(ctx, jobID, r, s.opts.ResultTTL); err != nil {
		return "", err
	}
	return jobID, nil
}

func (s *RedisStore) GetResult(ctx context.Context, jobID string) (*ReconcileResult, error) {
	var r ReconcileResult
	if err := s.get(ctx, jobID, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
