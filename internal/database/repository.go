package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tubegate/tubegate/pkg/models"
)

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// API keys

const apiKeyColumns = `key, name, is_admin, created_at, valid_until, daily_limit,
	       reset_at, daily_requests, total_requests, status, created_by`

func scanAPIKey(row pgx.Row) (*models.APIKey, error) {
	var key models.APIKey
	err := row.Scan(
		&key.Key, &key.Name, &key.IsAdmin, &key.CreatedAt, &key.ValidUntil,
		&key.DailyLimit, &key.ResetAt, &key.DailyRequests, &key.TotalRequests,
		&key.Status, &key.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// GetKey retrieves an API key by exact match. Returns nil without error
// on a miss so callers can tell absence from storage failure.
func (r *Repository) GetKey(ctx context.Context, key string) (*models.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE key = $1
	`

	record, err := scanAPIKey(r.db.Pool.QueryRow(ctx, query, key))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}

	return record, nil
}

// InsertKey creates a new API key record
func (r *Repository) InsertKey(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (key, name, is_admin, created_at, valid_until, daily_limit,
		                      reset_at, daily_requests, total_requests, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		key.Key, key.Name, key.IsAdmin, key.CreatedAt, key.ValidUntil, key.DailyLimit,
		key.ResetAt, key.DailyRequests, key.TotalRequests, key.Status, key.CreatedBy,
	)

	if err != nil {
		return fmt.Errorf("failed to insert api key: %w", err)
	}

	return nil
}

// UpsertKey inserts a key or leaves an existing row untouched. Used for
// bootstrap seeding so restarts never clobber live counters.
func (r *Repository) UpsertKey(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (key, name, is_admin, created_at, valid_until, daily_limit,
		                      reset_at, daily_requests, total_requests, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (key) DO NOTHING
	`

	_, err := r.db.Pool.Exec(ctx, query,
		key.Key, key.Name, key.IsAdmin, key.CreatedAt, key.ValidUntil, key.DailyLimit,
		key.ResetAt, key.DailyRequests, key.TotalRequests, key.Status, key.CreatedBy,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert api key: %w", err)
	}

	return nil
}

// DeleteKey removes an API key. Reports whether a row was deleted.
func (r *Repository) DeleteKey(ctx context.Context, key string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM api_keys WHERE key = $1`, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete api key: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListKeys retrieves all API keys, newest first
func (r *Repository) ListKeys(ctx context.Context) ([]*models.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, nil
}

// MarkExpired persists the terminal expired status for a key
func (r *Repository) MarkExpired(ctx context.Context, key string) error {
	query := `UPDATE api_keys SET status = $2 WHERE key = $1`

	_, err := r.db.Pool.Exec(ctx, query, key, models.KeyStatusExpired)
	if err != nil {
		return fmt.Errorf("failed to mark key expired: %w", err)
	}

	return nil
}

// ResetWindow zeroes the daily counter and advances reset_at. The guard
// keeps reset_at monotonic when concurrent requests race the rollover.
func (r *Repository) ResetWindow(ctx context.Context, key string, resetAt time.Time) error {
	query := `
		UPDATE api_keys
		SET daily_requests = 0, reset_at = $2
		WHERE key = $1 AND reset_at < $2
	`

	_, err := r.db.Pool.Exec(ctx, query, key, resetAt)
	if err != nil {
		return fmt.Errorf("failed to reset quota window: %w", err)
	}

	return nil
}

// IncrementUsage bumps both usage counters atomically
func (r *Repository) IncrementUsage(ctx context.Context, key string) error {
	query := `
		UPDATE api_keys
		SET daily_requests = daily_requests + 1, total_requests = total_requests + 1
		WHERE key = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}

	return nil
}

// CountKeysByStatus returns key counts grouped by status
func (r *Repository) CountKeysByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM api_keys GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count keys: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan key count: %w", err)
		}
		counts[status] = count
	}

	return counts, nil
}
