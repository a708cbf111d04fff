// Package store keeps extraction and reconciliation outputs behind opaque,
// time-limited tokens. Entries are written once and read any number of times
// until expiry; there is no update path.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/spotaudit/spotaudit/internal/model"
)

// ErrNotFound is returned for unknown or expired tokens.
var ErrNotFound = eris.New("store: token not found or expired")

// Token prefixes keep the two payload kinds from crossing over.
const (
	extractPrefix = "extract:"
	resultPrefix  = "result:"
)

// ExtractMeta records the caller inputs of an extraction run.
type ExtractMeta struct {
	Sheet      string `json:"sheet"`
	Channel    string `json:"channel"`
	Advertiser string `json:"advertiser"`
}

// Extraction is a stored extraction output.
type Extraction struct {
	Spots     []model.ScheduledSpot `json:"spots"`
	Meta      ExtractMeta           `json:"meta"`
	CreatedAt time.Time             `json:"created_at"`
}

// Summary holds reconciliation headline counts.
type Summary struct {
	TotalScheduleSpots int `json:"totalScheduleSpots"`
	TotalUnmatched     int `json:"totalUnmatched"`
	TotalMatchedInLog  int `json:"totalMatchedInLog"`
}

// ReconcileResult is a stored reconciliation output.
type ReconcileResult struct {
	Unmatched []model.UnmatchedRecord `json:"unmatched"`
	Log       *model.Table            `json:"log"`
	Summary   Summary                 `json:"summary"`
	CreatedAt time.Time               `json:"created_at"`
}

// Store is the token-addressed TTL store behind the HTTP boundary.
type Store interface {
	PutExtraction(ctx context.Context, e *Extraction) (token string, err error)
	GetExtraction(ctx context.Context, token string) (*Extraction, error)
	PutResult(ctx context.Context, r *ReconcileResult) (jobID string, err error)
	GetResult(ctx context.Context, jobID string) (*ReconcileResult, error)
	Close() error
}

// Options sets entry lifetimes. Zero values fall back to the defaults.
type Options struct {
	ExtractTTL time.Duration
	ResultTTL  time.Duration
}

func (o Options) withDefaults() Options {
	if o.ExtractTTL == 0 {
		o.ExtractTTL = time.Hour
	}
	if o.ResultTTL == 0 {
		o.ResultTTL = 2 * time.Hour
	}
	return o
}

// Open creates a store for the configured driver. The dsn is a file path for
// sqlite and a URL for redis; the memory driver ignores it.
func Open(ctx context.Context, driver, dsn string, opts Options) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemory(opts), nil
	case "sqlite":
		st, err := NewSQLite(dsn, opts)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	case "redis":
		return NewRedis(dsn, opts)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

func newToken(prefix string) string {
	return prefix + uuid.NewString()
}
