// Package filecache manages the durable media tier: blobs in object
// storage plus the reference rows that make them findable.
package filecache

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/metrics"
	"github.com/tubegate/tubegate/internal/storage"
	"github.com/tubegate/tubegate/pkg/models"
)

// BlobStore is the object storage surface the file cache needs.
type BlobStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (int64, error)
	Delete(ctx context.Context, objectName string) error
	Stat(ctx context.Context, objectName string) (int64, bool, error)
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// RefStore persists durable file references. GetFileRef returns
// (nil, nil) on a miss.
type RefStore interface {
	GetFileRef(ctx context.Context, videoID, streamKind string) (*models.DurableFileRef, error)
	PutFileRef(ctx context.Context, ref *models.DurableFileRef) error
	DeleteFileRef(ctx context.Context, videoID, streamKind string) error
	ListFileRefs(ctx context.Context) ([]*models.DurableFileRef, error)
}

// Service composes blob storage and reference rows into the durable
// file cache.
type Service struct {
	blobs     BlobStore
	refs      RefStore
	urlExpiry time.Duration
	log       *logging.Logger
}

// NewService creates a durable file cache service.
func NewService(blobs BlobStore, refs RefStore, urlExpiry time.Duration, log *logging.Logger) *Service {
	if urlExpiry <= 0 {
		urlExpiry = time.Hour
	}
	return &Service{
		blobs:     blobs,
		refs:      refs,
		urlExpiry: urlExpiry,
		log:       log,
	}
}

// Lookup finds a durable copy and returns its reference plus a
// presigned playback URL. A reference whose blob has vanished is
// removed and reported as a miss, so the caller falls through to the
// next tier.
func (s *Service) Lookup(ctx context.Context, videoID, streamKind string) (*models.DurableFileRef, string, error) {
	ref, err := s.refs.GetFileRef(ctx, videoID, streamKind)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up file ref: %w", err)
	}
	if ref == nil {
		return nil, "", nil
	}

	_, exists, err := s.blobs.Stat(ctx, ref.BlobID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to verify blob %s: %w", ref.BlobID, err)
	}
	if !exists {
		metrics.RecordError("filecache", "stale_ref")
		s.log.WithVideoID(videoID).Warnf("Durable ref points at missing blob %s, dropping ref", ref.BlobID)
		if err := s.refs.DeleteFileRef(ctx, videoID, streamKind); err != nil {
			s.log.ErrorWithErr("Failed to delete stale file ref", err)
		}
		return nil, "", nil
	}

	url, err := s.blobs.PresignedURL(ctx, ref.BlobID, s.urlExpiry)
	if err != nil {
		return nil, "", fmt.Errorf("failed to presign blob %s: %w", ref.BlobID, err)
	}

	return ref, url, nil
}

// Store uploads a media blob and records its reference. The blob name
// is derived from the video identity so re-uploads overwrite in place.
func (s *Service) Store(ctx context.Context, videoID, streamKind string, reader io.Reader, size int64, contentType string) (*models.DurableFileRef, error) {
	if contentType == "" {
		contentType = storage.DefaultContentType(streamKind)
	}
	blobID := videoID + "_" + streamKind + storage.ExtensionForContentType(contentType)

	start := time.Now()
	stored, err := s.blobs.Upload(ctx, blobID, reader, size, contentType)
	if err != nil {
		metrics.RecordStorageOperation("upload", "error", time.Since(start).Seconds(), 0)
		return nil, fmt.Errorf("failed to upload blob %s: %w", blobID, err)
	}
	metrics.RecordStorageOperation("upload", "success", time.Since(start).Seconds(), stored)
	s.log.LogStorageOperation("upload", "", blobID, stored, time.Since(start), nil)

	ref := &models.DurableFileRef{
		VideoID:    videoID,
		StreamKind: streamKind,
		BlobID:     blobID,
		SizeBytes:  stored,
		UploadedAt: time.Now(),
	}
	if err := s.refs.PutFileRef(ctx, ref); err != nil {
		// Without a ref row the blob is unreachable, so take it back out.
		if delErr := s.blobs.Delete(ctx, blobID); delErr != nil {
			s.log.ErrorWithErr("Failed to remove orphaned blob "+blobID, delErr)
		}
		return nil, fmt.Errorf("failed to record file ref: %w", err)
	}

	return ref, nil
}

// Exists reports whether a durable reference is recorded. It trusts
// the ref row; Lookup does the blob verification.
func (s *Service) Exists(ctx context.Context, videoID, streamKind string) (bool, error) {
	ref, err := s.refs.GetFileRef(ctx, videoID, streamKind)
	if err != nil {
		return false, err
	}
	return ref != nil, nil
}

// Remove deletes a durable copy, blob and reference both. Returns
// false when nothing was recorded.
func (s *Service) Remove(ctx context.Context, videoID, streamKind string) (bool, error) {
	ref, err := s.refs.GetFileRef(ctx, videoID, streamKind)
	if err != nil {
		return false, fmt.Errorf("failed to look up file ref: %w", err)
	}
	if ref == nil {
		return false, nil
	}

	if err := s.blobs.Delete(ctx, ref.BlobID); err != nil {
		s.log.ErrorWithErr("Failed to delete blob "+ref.BlobID, err)
	}
	if err := s.refs.DeleteFileRef(ctx, videoID, streamKind); err != nil {
		return false, fmt.Errorf("failed to delete file ref: %w", err)
	}

	return true, nil
}

// PruneStale removes references whose blobs are gone. Returns the
// number of references pruned.
func (s *Service) PruneStale(ctx context.Context) (int, error) {
	refs, err := s.refs.ListFileRefs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list file refs: %w", err)
	}

	pruned := 0
	for _, ref := range refs {
		_, exists, err := s.blobs.Stat(ctx, ref.BlobID)
		if err != nil {
			s.log.ErrorWithErr("Failed to stat blob "+ref.BlobID+" during prune", err)
			continue
		}
		if exists {
			continue
		}
		if err := s.refs.DeleteFileRef(ctx, ref.VideoID, ref.StreamKind); err != nil {
			s.log.ErrorWithErr("Failed to prune stale ref for "+ref.VideoID, err)
			continue
		}
		metrics.RecordError("filecache", "stale_ref")
		pruned++
	}

	return pruned, nil
}
