package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS api_keys (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		valid_until TIMESTAMPTZ NOT NULL,
		daily_limit INTEGER NOT NULL DEFAULT 100,
		reset_at TIMESTAMPTZ NOT NULL,
		daily_requests INTEGER NOT NULL DEFAULT 0,
		total_requests INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		created_by TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS usage_logs (
		id BIGSERIAL PRIMARY KEY,
		api_key TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		query TEXT NOT NULL DEFAULT '',
		client_ip TEXT NOT NULL DEFAULT '',
		status_code INTEGER NOT NULL DEFAULT 0,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_logs_timestamp ON usage_logs (timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_logs_api_key ON usage_logs (api_key)`,
	`CREATE TABLE IF NOT EXISTS media_records (
		video_id TEXT NOT NULL,
		stream_kind TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		channel TEXT NOT NULL DEFAULT '',
		view_count BIGINT NOT NULL DEFAULT 0,
		thumbnail_url TEXT NOT NULL DEFAULT '',
		source_url TEXT NOT NULL DEFAULT '',
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (video_id, stream_kind)
	)`,
	`CREATE TABLE IF NOT EXISTS durable_files (
		video_id TEXT NOT NULL,
		stream_kind TEXT NOT NULL,
		blob_id TEXT NOT NULL,
		size_bytes BIGINT NOT NULL DEFAULT 0,
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (video_id, stream_kind)
	)`,
}

// Migrate creates the schema if it does not exist yet
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
