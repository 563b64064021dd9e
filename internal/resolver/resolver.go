// Package resolver drives the tiered media resolution pipeline:
// durable file cache, then metadata cache, then upstream extraction.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/metrics"
	"github.com/tubegate/tubegate/internal/tracing"
	"github.com/tubegate/tubegate/internal/youtube"
	"github.com/tubegate/tubegate/pkg/models"
)

// ErrInvalidReference indicates the reference is neither a recognized
// YouTube URL, a video ID, nor a known search term.
var ErrInvalidReference = errors.New("invalid video reference")

// FileCache is the durable tier. Lookup returns (nil, "", nil) on a miss.
type FileCache interface {
	Lookup(ctx context.Context, videoID, streamKind string) (*models.DurableFileRef, string, error)
}

// MetadataCache is the TTL-bound metadata tier. A present entry implies
// its SourceURL has not expired.
type MetadataCache interface {
	GetMedia(ctx context.Context, videoID, streamKind string) (*models.MediaRecord, error)
	SetMedia(ctx context.Context, rec *models.MediaRecord, ttl time.Duration) error
}

// MediaStore is the authoritative record of everything ever resolved.
type MediaStore interface {
	GetMedia(ctx context.Context, videoID, streamKind string) (*models.MediaRecord, error)
	UpsertMedia(ctx context.Context, rec *models.MediaRecord) error
}

// Extractor fetches a transient stream URL from upstream.
type Extractor interface {
	Fetch(ctx context.Context, videoID, streamKind string) (*models.MediaRecord, error)
}

// Populator schedules background population of the durable tier.
// Schedule must never block.
type Populator interface {
	Schedule(task models.UploadTask)
}

// Resolver resolves video references to playable stream URLs.
type Resolver struct {
	files     FileCache // nil when the durable tier is disabled
	meta      MetadataCache
	store     MediaStore
	extractor Extractor
	populator Populator
	ttl       time.Duration
	log       *logging.Logger
}

// New creates a resolver. files may be nil when object storage is
// disabled; every other collaborator is required.
func New(files FileCache, meta MetadataCache, store MediaStore, extractor Extractor, populator Populator, ttl time.Duration, log *logging.Logger) *Resolver {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Resolver{
		files:     files,
		meta:      meta,
		store:     store,
		extractor: extractor,
		populator: populator,
		ttl:       ttl,
		log:       log,
	}
}

// Resolve runs the reference through the tier chain and returns the
// first playable result. Tier storage failures degrade to the next
// tier; only parse failures and upstream failures surface to the
// caller.
func (r *Resolver) Resolve(ctx context.Context, reference, streamKind string) (*models.MediaResult, error) {
	span, ctx := tracing.StartSpan(ctx, "resolver.resolve")
	defer tracing.FinishSpan(span)

	start := time.Now()

	videoID, search, err := r.parse(reference)
	if err != nil {
		tracing.LogError(span, err)
		return nil, err
	}
	tracing.SetMediaTags(span, videoID, streamKind)
	log := r.log.WithVideoID(videoID)

	if r.files != nil {
		ref, url, err := r.files.Lookup(ctx, videoID, streamKind)
		switch {
		case err != nil:
			metrics.RecordError("resolver", "durable_lookup")
			log.ErrorWithErr("Durable lookup failed, falling through", err)
		case ref != nil:
			metrics.RecordCacheAccess("durable", true)
			log.LogCacheAccess("durable", videoID, streamKind, true)
			rec := r.describe(ctx, videoID, streamKind, search)
			metrics.RecordResolution(models.SourceDurable, streamKind, time.Since(start).Seconds())
			return models.NewMediaResult(rec, url, true, models.SourceDurable), nil
		default:
			metrics.RecordCacheAccess("durable", false)
			log.LogCacheAccess("durable", videoID, streamKind, false)
		}
	}

	rec, err := r.meta.GetMedia(ctx, videoID, streamKind)
	if err != nil {
		metrics.RecordError("resolver", "metadata_lookup")
		log.ErrorWithErr("Metadata cache lookup failed, falling through", err)
		rec = nil
	}
	if rec != nil && rec.SourceURL != "" {
		metrics.RecordCacheAccess("metadata", true)
		log.LogCacheAccess("metadata", videoID, streamKind, true)
		r.schedulePopulation(rec)
		metrics.RecordResolution(models.SourceMetadata, streamKind, time.Since(start).Seconds())
		return models.NewMediaResult(rec, rec.SourceURL, true, models.SourceMetadata), nil
	}
	metrics.RecordCacheAccess("metadata", false)
	log.LogCacheAccess("metadata", videoID, streamKind, false)

	fetchSpan, ctx := tracing.StartSpan(ctx, "resolver.upstream_fetch")
	rec, err = r.extractor.Fetch(ctx, videoID, streamKind)
	tracing.LogError(fetchSpan, err)
	tracing.FinishSpan(fetchSpan)
	if err != nil {
		return nil, err
	}
	enrichFromSearch(rec, search)

	if err := r.meta.SetMedia(ctx, rec, r.ttl); err != nil {
		metrics.RecordError("resolver", "metadata_write")
		log.ErrorWithErr("Failed to cache media metadata", err)
	}
	if err := r.store.UpsertMedia(ctx, rec); err != nil {
		metrics.RecordError("resolver", "media_upsert")
		log.ErrorWithErr("Failed to persist media record", err)
	}

	r.schedulePopulation(rec)

	metrics.RecordResolution(models.SourceUpstream, streamKind, time.Since(start).Seconds())
	return models.NewMediaResult(rec, rec.SourceURL, false, models.SourceUpstream), nil
}

// parse canonicalizes the reference to a video ID, consulting the
// static search table when the reference is not URL- or ID-shaped.
func (r *Resolver) parse(reference string) (string, *youtube.SearchEntry, error) {
	if videoID, ok := youtube.ParseVideoID(reference); ok {
		return videoID, nil, nil
	}
	if entry, ok := youtube.LookupSearch(reference); ok {
		return entry.VideoID, &entry, nil
	}
	return "", nil, ErrInvalidReference
}

// describe assembles self-describing metadata for a durable hit. The
// blob plays without it, so every source is best-effort.
func (r *Resolver) describe(ctx context.Context, videoID, streamKind string, search *youtube.SearchEntry) *models.MediaRecord {
	if rec, err := r.meta.GetMedia(ctx, videoID, streamKind); err == nil && rec != nil {
		return rec
	}
	if rec, err := r.store.GetMedia(ctx, videoID, streamKind); err == nil && rec != nil {
		return rec
	}

	rec := &models.MediaRecord{
		VideoID:    videoID,
		StreamKind: streamKind,
		FetchedAt:  time.Now(),
	}
	enrichFromSearch(rec, search)
	return rec
}

func (r *Resolver) schedulePopulation(rec *models.MediaRecord) {
	if r.populator == nil || rec.SourceURL == "" {
		return
	}
	r.populator.Schedule(models.UploadTask{
		VideoID:     rec.VideoID,
		StreamKind:  rec.StreamKind,
		SourceURL:   rec.SourceURL,
		Title:       rec.Title,
		RequestedAt: time.Now(),
	})
}

// enrichFromSearch backfills cosmetic fields the upstream response
// left empty from the search table entry that produced the video ID.
func enrichFromSearch(rec *models.MediaRecord, search *youtube.SearchEntry) {
	if search == nil {
		return
	}
	if rec.Title == "" {
		rec.Title = search.Title
	}
	if rec.Channel == "" {
		rec.Channel = search.Channel
	}
	if rec.DurationSeconds == 0 {
		rec.DurationSeconds = search.DurationSeconds
	}
	if rec.ViewCount == 0 {
		rec.ViewCount = search.Views
	}
	if rec.ThumbnailURL == "" {
		rec.ThumbnailURL = search.ThumbnailURL
	}
}
