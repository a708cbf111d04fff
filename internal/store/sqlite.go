package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite, for deployments that
// want tokens to survive a restart within their TTL.
type SQLiteStore struct {
	db   *sql.DB
	opts Options
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, opts Options) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, opts: opts.withDefaults()}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tokens (
	token      TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tokens_expires_at ON tokens(expires_at);
`

// Migrate creates the token table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) put(ctx context.Context, token, kind string, payload any, ttl time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal payload")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tokens (token, kind, payload, expires_at) VALUES (?, ?, ?, ?)`,
		token, kind, string(data), time.Now().UTC().Add(ttl),
	)
	return eris.Wrap(err, "sqlite: insert token")
}

func (s *SQLiteStore) get(ctx context.Context, token, kind string, out any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM tokens WHERE token = ? AND kind = ? AND expires_at > ?`,
		token, kind, time.Now().UTC(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrap(err, "sqlite: select token")
	}
	return eris.Wrap(json.Unmarshal([]byte(data), out), "sqlite: unmarshal payload")
}

func (s *SQLiteStore) PutExtraction(ctx context.Context, e *Extraction) (string, error) {
	token := newToken(extractPrefix)
	if err := s.put(ctx, token, "extract", e, s.opts.ExtractTTL); err != nil {
		return "", err
	}
	return token, nil
}

func (s *SQLiteStore) GetExtraction(ctx context.Context, token string) (*Extraction, error) {
	var e Extraction
	if err := s.get(ctx, token, "extract", &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStore) PutResult(ctx context.Context, r *ReconcileResult) (string, error) {
	jobID := newToken(resultPrefix)
	if err := s.put(ctx, jobID, "result", r, s.opts.ResultTTL); err != nil {
		return "", err
	}
	return jobID, nil
}

func (s *SQLiteStore) GetResult(ctx context.Context, jobID string) (*ReconcileResult, error) {
	var r ReconcileResult
	if err := s.get(ctx, jobID, "result", &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteExpired removes expired tokens, returning the count deleted.
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}
