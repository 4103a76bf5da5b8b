package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// NewDB opens a Postgres connection pool and verifies it is reachable
func NewDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// schema creates the tables used for report history
var schema = []string{
	`CREATE TABLE IF NOT EXISTS reports (
		id UUID PRIMARY KEY,
		agency TEXT NOT NULL,
		current_start DATE NOT NULL,
		current_end DATE NOT NULL,
		previous_start DATE NOT NULL,
		previous_end DATE NOT NULL,
		current_final INTEGER NOT NULL DEFAULT 0,
		current_proposed INTEGER NOT NULL DEFAULT 0,
		current_other INTEGER NOT NULL DEFAULT 0,
		previous_final INTEGER NOT NULL DEFAULT 0,
		previous_proposed INTEGER NOT NULL DEFAULT 0,
		previous_other INTEGER NOT NULL DEFAULT 0,
		net_change INTEGER NOT NULL,
		new_count INTEGER NOT NULL,
		skipped_records INTEGER NOT NULL DEFAULT 0,
		checksum TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS reports_agency_windows_idx
		ON reports (agency, current_start, current_end)`,
	`CREATE TABLE IF NOT EXISTS report_documents (
		report_id UUID NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		document_id TEXT NOT NULL,
		period TEXT NOT NULL,
		publication_date DATE NOT NULL,
		doc_type TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		is_new BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (report_id, period, document_id)
	)`,
	`CREATE TABLE IF NOT EXISTS metrics (
		id SERIAL PRIMARY KEY,
		metric_name TEXT NOT NULL,
		metric_value TEXT NOT NULL,
		calculated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema; every statement is idempotent
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
