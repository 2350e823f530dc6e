// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates and validates a pgxpool connection pool from a DSN.
// It retries up to 5 times to accommodate containers starting up.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	// Sensible pool defaults for a small service.
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			pingErr := pool.Ping(ctx)
			if pingErr == nil {
				return pool, nil
			}
			pool.Close()
			err = pingErr
		}
		log.Printf("db connect attempt %d/5 failed: %v - retrying in 2s", attempt, err)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

// schema is applied at startup, one statement per entry because pgx's
// extended protocol rejects multi-statement strings. Events are owned by
// the wider system; the engine only ever reads them, but bootstraps the
// table so the repo runs standalone. Join requests and audit entries are
// append-only: there is no DELETE anywhere in this codebase.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
	id             TEXT PRIMARY KEY,
	host_id        TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'published',
	capacity_total INTEGER,
	max_party_size INTEGER NOT NULL DEFAULT 10,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS join_requests (
	id              TEXT PRIMARY KEY,
	event_id        TEXT NOT NULL REFERENCES events(id),
	user_id         TEXT NOT NULL,
	party_size      INTEGER NOT NULL CHECK (party_size >= 1),
	note            TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	hold_expires_at TIMESTAMPTZ NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_join_requests_event
	ON join_requests (event_id, created_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_join_requests_user
	ON join_requests (event_id, user_id)`,
	`CREATE TABLE IF NOT EXISTS participants (
	id         TEXT PRIMARY KEY,
	event_id   TEXT NOT NULL REFERENCES events(id),
	user_id    TEXT NOT NULL,
	party_size INTEGER NOT NULL CHECK (party_size >= 1),
	status     TEXT NOT NULL DEFAULT 'accepted',
	joined_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (event_id, user_id)
)`,
	`CREATE TABLE IF NOT EXISTS request_audit (
	id          TEXT PRIMARY KEY,
	request_id  TEXT NOT NULL,
	event_id    TEXT NOT NULL,
	actor_id    TEXT NOT NULL,
	from_status TEXT NOT NULL DEFAULT '',
	to_status   TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_request_audit_request
	ON request_audit (request_id, created_at)`,
}

// Migrate applies the schema. Statements are idempotent, so running it on
// every boot is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
