package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tubegate/tubegate/pkg/models"
)

// Usage logs

// InsertUsageLog appends one audit record
func (r *Repository) InsertUsageLog(ctx context.Context, entry *models.UsageLogEntry) error {
	query := `
		INSERT INTO usage_logs (api_key, endpoint, query, client_ip, status_code, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		entry.APIKey, entry.Endpoint, entry.Query, entry.ClientIP, entry.StatusCode, entry.Timestamp,
	).Scan(&entry.ID)

	if err != nil {
		return fmt.Errorf("failed to insert usage log: %w", err)
	}

	return nil
}

// RecentUsageLogs retrieves the newest log entries
func (r *Repository) RecentUsageLogs(ctx context.Context, limit int) ([]*models.UsageLogEntry, error) {
	query := `
		SELECT id, api_key, endpoint, query, client_ip, status_code, timestamp
		FROM usage_logs
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.UsageLogEntry
	for rows.Next() {
		var entry models.UsageLogEntry
		err := rows.Scan(
			&entry.ID, &entry.APIKey, &entry.Endpoint, &entry.Query,
			&entry.ClientIP, &entry.StatusCode, &entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage log: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}

// CountUsageSince counts log entries at or after the given time
func (r *Repository) CountUsageSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64

	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM usage_logs WHERE timestamp >= $1`, since,
	).Scan(&count)

	if err != nil {
		return 0, fmt.Errorf("failed to count usage logs: %w", err)
	}

	return count, nil
}

// UsageByEndpointSince groups request counts per endpoint
func (r *Repository) UsageByEndpointSince(ctx context.Context, since time.Time) ([]models.EndpointCount, error) {
	query := `
		SELECT endpoint, COUNT(*) AS count
		FROM usage_logs
		WHERE timestamp >= $1
		GROUP BY endpoint
		ORDER BY count DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to group usage by endpoint: %w", err)
	}
	defer rows.Close()

	var counts []models.EndpointCount
	for rows.Next() {
		var ec models.EndpointCount
		if err := rows.Scan(&ec.Endpoint, &ec.Count); err != nil {
			return nil, fmt.Errorf("failed to scan endpoint count: %w", err)
		}
		counts = append(counts, ec)
	}

	return counts, nil
}

// TopKeysSince returns the busiest keys since the given time
func (r *Repository) TopKeysSince(ctx context.Context, since time.Time, limit int) ([]models.KeyCount, error) {
	query := `
		SELECT api_key, COUNT(*) AS count
		FROM usage_logs
		WHERE timestamp >= $1
		GROUP BY api_key
		ORDER BY count DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank keys: %w", err)
	}
	defer rows.Close()

	var counts []models.KeyCount
	for rows.Next() {
		var kc models.KeyCount
		if err := rows.Scan(&kc.APIKey, &kc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan key count: %w", err)
		}
		counts = append(counts, kc)
	}

	return counts, nil
}

// DeleteUsageLogsBefore drops entries older than the cutoff and reports
// how many were removed
func (r *Repository) DeleteUsageLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM usage_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete usage logs: %w", err)
	}

	return tag.RowsAffected(), nil
}
