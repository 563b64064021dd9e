package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tubegate/tubegate/pkg/models"
)

// Media records

// UpsertMedia writes the authoritative metadata row for a (video, kind)
// pair. Last write wins on upstream refresh.
func (r *Repository) UpsertMedia(ctx context.Context, rec *models.MediaRecord) error {
	query := `
		INSERT INTO media_records (video_id, stream_kind, title, duration_seconds,
		                           channel, view_count, thumbnail_url, source_url, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (video_id, stream_kind) DO UPDATE
		SET title = EXCLUDED.title,
		    duration_seconds = EXCLUDED.duration_seconds,
		    channel = EXCLUDED.channel,
		    view_count = EXCLUDED.view_count,
		    thumbnail_url = EXCLUDED.thumbnail_url,
		    source_url = EXCLUDED.source_url,
		    fetched_at = EXCLUDED.fetched_at
	`

	_, err := r.db.Pool.Exec(ctx, query,
		rec.VideoID, rec.StreamKind, rec.Title, rec.DurationSeconds,
		rec.Channel, rec.ViewCount, rec.ThumbnailURL, rec.SourceURL, rec.FetchedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert media record: %w", err)
	}

	return nil
}

// GetMedia retrieves the metadata row for a (video, kind) pair. Returns
// nil without error on a miss.
func (r *Repository) GetMedia(ctx context.Context, videoID, streamKind string) (*models.MediaRecord, error) {
	var rec models.MediaRecord

	query := `
		SELECT video_id, stream_kind, title, duration_seconds, channel,
		       view_count, thumbnail_url, source_url, fetched_at
		FROM media_records
		WHERE video_id = $1 AND stream_kind = $2
	`

	err := r.db.Pool.QueryRow(ctx, query, videoID, streamKind).Scan(
		&rec.VideoID, &rec.StreamKind, &rec.Title, &rec.DurationSeconds,
		&rec.Channel, &rec.ViewCount, &rec.ThumbnailURL, &rec.SourceURL, &rec.FetchedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media record: %w", err)
	}

	return &rec, nil
}

// Durable file refs

// PutFileRef records a blob reference after a successful upload
func (r *Repository) PutFileRef(ctx context.Context, ref *models.DurableFileRef) error {
	query := `
		INSERT INTO durable_files (video_id, stream_kind, blob_id, size_bytes, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (video_id, stream_kind) DO UPDATE
		SET blob_id = EXCLUDED.blob_id,
		    size_bytes = EXCLUDED.size_bytes,
		    uploaded_at = EXCLUDED.uploaded_at
	`

	_, err := r.db.Pool.Exec(ctx, query,
		ref.VideoID, ref.StreamKind, ref.BlobID, ref.SizeBytes, ref.UploadedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to put file ref: %w", err)
	}

	return nil
}

// GetFileRef retrieves the blob reference for a (video, kind) pair.
// Returns nil without error on a miss.
func (r *Repository) GetFileRef(ctx context.Context, videoID, streamKind string) (*models.DurableFileRef, error) {
	var ref models.DurableFileRef

	query := `
		SELECT video_id, stream_kind, blob_id, size_bytes, uploaded_at
		FROM durable_files
		WHERE video_id = $1 AND stream_kind = $2
	`

	err := r.db.Pool.QueryRow(ctx, query, videoID, streamKind).Scan(
		&ref.VideoID, &ref.StreamKind, &ref.BlobID, &ref.SizeBytes, &ref.UploadedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file ref: %w", err)
	}

	return &ref, nil
}

// DeleteFileRef removes a blob reference
func (r *Repository) DeleteFileRef(ctx context.Context, videoID, streamKind string) error {
	query := `DELETE FROM durable_files WHERE video_id = $1 AND stream_kind = $2`

	_, err := r.db.Pool.Exec(ctx, query, videoID, streamKind)
	if err != nil {
		return fmt.Errorf("failed to delete file ref: %w", err)
	}

	return nil
}

// ListFileRefs retrieves all blob references, oldest first
func (r *Repository) ListFileRefs(ctx context.Context) ([]*models.DurableFileRef, error) {
	query := `
		SELECT video_id, stream_kind, blob_id, size_bytes, uploaded_at
		FROM durable_files
		ORDER BY uploaded_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list file refs: %w", err)
	}
	defer rows.Close()

	var refs []*models.DurableFileRef
	for rows.Next() {
		var ref models.DurableFileRef
		err := rows.Scan(&ref.VideoID, &ref.StreamKind, &ref.BlobID, &ref.SizeBytes, &ref.UploadedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file ref: %w", err)
		}
		refs = append(refs, &ref)
	}

	return refs, nil
}
