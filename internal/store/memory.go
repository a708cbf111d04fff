package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps entries in-process. Expiry is checked on access and stale
// entries are dropped, so the map stays bounded by the write rate within one
// TTL period.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	opts    Options
}

type memoryEntry struct {
	payload   any
	expiresAt time.Time
}

// NewMemory creates an in-process store.
func NewMemory(opts Options) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		opts:    opts.withDefaults(),
	}
}

func (s *MemoryStore) put(token string, payload any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[token] = memoryEntry{payload: payload, expiresAt: now.Add(ttl)}
}

func (s *MemoryStore) get(token, prefix string) (any, bool) {
	if !strings.HasPrefix(token, prefix) {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(s.entries, token)
		return nil, false
	}
	return e.payload, true
}

func (s *MemoryStore) PutExtraction(_ context.Context, e *Extraction) (string, error) {
	token := newToken(extractPrefix)
	s.put(token, e, s.opts.ExtractTTL)
	return token, nil
}

func (s *MemoryStore) GetExtraction(_ context.Context, token string) (*Extraction, error) {
	payload, ok := s.get(token, extractPrefix)
	if !ok {
		return nil, ErrNotFound
	}
	return payload.(*Extraction), nil
}

func (s *MemoryStore) PutResult(_ context.Context, r *ReconcileResult) (string, error) {
	jobID := newToken(resultPrefix)
	s.put(jobID, r, s.opts.ResultTTL)
	return jobID, nil
}

func (s *MemoryStore) GetResult(_ context.Context, jobID string) (*ReconcileResult, error) {
	payload, ok := s.get(jobID, resultPrefix)
	if !ok {
		return nil, ErrNotFound
	}
	return payload.(*ReconcileResult), nil
}

func (s *MemoryStore) Close() error { return nil }
