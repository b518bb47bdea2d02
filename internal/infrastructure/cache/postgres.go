package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
)

// PostgresCache persists answer envelopes across restarts. Lookup errors are
// reported as misses; a broken cache must never fail a query.
type PostgresCache struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresCache(db *sql.DB, logger *slog.Logger) *PostgresCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCache{db: db, logger: logger}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (c *PostgresCache) EnsureSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/indexer startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082401)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS answer_cache (
	cache_key TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	envelope JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_answer_cache_created_at ON answer_cache(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (c *PostgresCache) Get(ctx context.Context, query string) (*domain.AnswerEnvelope, bool) {
	key := NormalizeKey(query)
	if key == "" {
		return nil, false
	}

	row := c.db.QueryRowContext(ctx, `
SELECT envelope FROM answer_cache WHERE cache_key = $1
`, key)

	var raw []byte
	err := row.Scan(&raw)
	switch {
	case err == nil:
		return decodeEnvelope(raw, c.logger)
	case errors.Is(err, sql.ErrNoRows):
		return c.fuzzyGet(ctx, key)
	default:
		c.logger.Warn("answer cache lookup failed", "error", err)
		return nil, false
	}
}

// fuzzyGet scans stored keys for a near-duplicate question. The corpus is a
// bounded FAQ set, so a full scan stays small.
func (c *PostgresCache) fuzzyGet(ctx context.Context, key string) (*domain.AnswerEnvelope, bool) {
	rows, err := c.db.QueryContext(ctx, `
SELECT cache_key, envelope FROM answer_cache
`)
	if err != nil {
		c.logger.Warn("answer cache scan failed", "error", err)
		return nil, false
	}
	defer rows.Close()

	// Row order is unspecified, so scan everything and keep the
	// best-overlapping key for a deterministic replay.
	bestKey, bestScore := "", -1.0
	var bestRaw []byte
	for rows.Next() {
		var storedKey string
		var raw []byte
		if err := rows.Scan(&storedKey, &raw); err != nil {
			c.logger.Warn("answer cache scan row failed", "error", err)
			return nil, false
		}
		if !equivalentKeys(key, storedKey) {
			continue
		}
		score := wordOverlap(key, storedKey)
		if score > bestScore || (score == bestScore && storedKey < bestKey) {
			bestKey, bestScore, bestRaw = storedKey, score, raw
		}
	}
	if err := rows.Err(); err != nil {
		c.logger.Warn("answer cache scan failed", "error", err)
		return nil, false
	}
	if bestKey != "" {
		return decodeEnvelope(bestRaw, c.logger)
	}
	return nil, false
}

func (c *PostgresCache) Put(ctx context.Context, query string, envelope *domain.AnswerEnvelope) error {
	key := NormalizeKey(query)
	if key == "" || envelope == nil {
		return nil
	}

	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	// First answer wins, matching the in-memory cache.
	_, err = c.db.ExecContext(ctx, `
INSERT INTO answer_cache (cache_key, question, envelope, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (cache_key) DO NOTHING
`, key, query, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return nil
}

func decodeEnvelope(raw []byte, logger *slog.Logger) (*domain.AnswerEnvelope, bool) {
	var envelope domain.AnswerEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		logger.Warn("answer cache entry unreadable", "error", err)
		return nil, false
	}
	return &envelope, true
}
