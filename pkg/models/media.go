package models

import (
	"time"
)

// StreamKind constants
const (
	StreamKindAudio = "audio"
	StreamKindVideo = "video"
)

// Source constants identify which tier served a resolution
const (
	SourceDurable  = "durable"
	SourceMetadata = "metadata"
	SourceUpstream = "upstream"
)

// MediaRecord holds upstream-provided metadata for one (video, kind) pair
type MediaRecord struct {
	VideoID         string    `json:"video_id" db:"video_id"`
	StreamKind      string    `json:"stream_kind" db:"stream_kind"`
	Title           string    `json:"title" db:"title"`
	DurationSeconds int       `json:"duration_seconds" db:"duration_seconds"`
	Channel         string    `json:"channel" db:"channel"`
	ViewCount       int64     `json:"view_count" db:"view_count"`
	ThumbnailURL    string    `json:"thumbnail_url" db:"thumbnail_url"`
	SourceURL       string    `json:"source_url" db:"source_url"`
	FetchedAt       time.Time `json:"fetched_at" db:"fetched_at"`
}

// DurableFileRef points at a blob previously uploaded to the durable cache
type DurableFileRef struct {
	VideoID    string    `json:"video_id" db:"video_id"`
	StreamKind string    `json:"stream_kind" db:"stream_kind"`
	BlobID     string    `json:"blob_id" db:"blob_id"`
	SizeBytes  int64     `json:"size_bytes" db:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// MediaResult is the response payload for a successful resolution
type MediaResult struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Duration   int    `json:"duration"`
	Link       string `json:"link"`
	Channel    string `json:"channel"`
	Views      int64  `json:"views"`
	Thumbnail  string `json:"thumbnail"`
	StreamURL  string `json:"stream_url"`
	StreamType string `json:"stream_type"`
	Cached     bool   `json:"cached"`
	Source     string `json:"source"`
}

// StreamTypeLabel maps a stream kind to its client-facing label
func StreamTypeLabel(kind string) string {
	if kind == StreamKindVideo {
		return "Video"
	}
	return "Audio"
}

// NewMediaResult builds a result from a record and the URL chosen to serve it
func NewMediaResult(rec *MediaRecord, streamURL string, cached bool, source string) *MediaResult {
	return &MediaResult{
		ID:         rec.VideoID,
		Title:      rec.Title,
		Duration:   rec.DurationSeconds,
		Link:       "https://www.youtube.com/watch?v=" + rec.VideoID,
		Channel:    rec.Channel,
		Views:      rec.ViewCount,
		Thumbnail:  rec.ThumbnailURL,
		StreamURL:  streamURL,
		StreamType: StreamTypeLabel(rec.StreamKind),
		Cached:     cached,
		Source:     source,
	}
}

// UploadTask is the queue message scheduling one background blob upload
type UploadTask struct {
	VideoID     string    `json:"video_id"`
	StreamKind  string    `json:"stream_kind"`
	SourceURL   string    `json:"source_url"`
	Title       string    `json:"title"`
	RequestedAt time.Time `json:"requested_at"`
}
