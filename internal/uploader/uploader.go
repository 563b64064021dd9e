// Package uploader populates the durable file cache in the background.
// Scheduling is fire-and-forget: a failed upload is logged and dropped,
// and the next resolution of the same video schedules a fresh attempt.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tubegate/tubegate/internal/config"
	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/metrics"
	"github.com/tubegate/tubegate/internal/storage"
	"github.com/tubegate/tubegate/pkg/models"
)

// Upload modes
const (
	ModeInline = "inline"
	ModeQueue  = "queue"
	ModeOff    = "off"
)

const publishTimeout = 5 * time.Second

// FileStore is the durable cache surface the uploader writes to.
type FileStore interface {
	Store(ctx context.Context, videoID, streamKind string, reader io.Reader, size int64, contentType string) (*models.DurableFileRef, error)
	Exists(ctx context.Context, videoID, streamKind string) (bool, error)
}

// Publisher hands tasks to the queue for out-of-process workers.
type Publisher interface {
	PublishUploadTask(ctx context.Context, task models.UploadTask) error
}

// Service downloads transient stream URLs and stores them durably.
type Service struct {
	files     FileStore
	publisher Publisher
	client    *http.Client
	mode      string
	timeout   time.Duration
	sem       chan struct{}
	log       *logging.Logger
}

// NewService creates an uploader. The mode degrades to "off" when the
// collaborators it needs are absent.
func NewService(cfg config.UploaderConfig, files FileStore, publisher Publisher, log *logging.Logger) *Service {
	mode := cfg.Mode
	if mode != ModeInline && mode != ModeQueue && mode != ModeOff {
		mode = ModeInline
	}
	if mode == ModeInline && files == nil {
		mode = ModeOff
	}
	if mode == ModeQueue && publisher == nil {
		mode = ModeOff
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	timeout := cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &Service{
		files:     files,
		publisher: publisher,
		client:    &http.Client{Timeout: timeout},
		mode:      mode,
		timeout:   timeout,
		sem:       make(chan struct{}, workers),
		log:       log,
	}
}

// Mode reports the effective upload mode.
func (s *Service) Mode() string {
	return s.mode
}

// Schedule queues one background upload. It never blocks and never
// reports failure to the caller; the serving path has already answered
// with the transient URL by the time this work runs.
func (s *Service) Schedule(task models.UploadTask) {
	switch s.mode {
	case ModeQueue:
		go s.publish(task)
	case ModeInline:
		go s.run(task)
	}
}

func (s *Service) publish(task models.UploadTask) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.publisher.PublishUploadTask(ctx, task); err != nil {
		metrics.RecordUploadTask("publish_error")
		s.log.LogUploadTask(task.VideoID, task.StreamKind, "publish_failed", err)
		return
	}
	metrics.RecordUploadTask("queued")
	s.log.LogUploadTask(task.VideoID, task.StreamKind, "queued", nil)
}

func (s *Service) run(task models.UploadTask) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	// Detached from the originating request; bounded by its own timeout.
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_ = s.Process(ctx, task)
}

// Process performs one upload: download the transient source URL and
// stream it into the durable cache. Also called synchronously by the
// queue worker, which acks or drops based on the returned error.
func (s *Service) Process(ctx context.Context, task models.UploadTask) error {
	if s.files == nil {
		return errors.New("durable store not configured")
	}

	exists, err := s.files.Exists(ctx, task.VideoID, task.StreamKind)
	if err != nil {
		s.log.LogUploadTask(task.VideoID, task.StreamKind, "exists_check_failed", err)
	} else if exists {
		metrics.RecordUploadTask("skipped")
		s.log.LogUploadTask(task.VideoID, task.StreamKind, "skipped", nil)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.SourceURL, nil)
	if err != nil {
		metrics.RecordUploadTask("download_error")
		s.log.LogUploadTask(task.VideoID, task.StreamKind, "download_failed", err)
		return fmt.Errorf("failed to build download request: %w", err)
	}

	metrics.UploadStarted()
	var uploaded int64
	defer func() { metrics.UploadFinished(uploaded) }()

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.RecordUploadTask("download_error")
		s.log.LogUploadTask(task.VideoID, task.StreamKind, "download_failed", err)
		return fmt.Errorf("failed to download source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("source responded with status %d", resp.StatusCode)
		metrics.RecordUploadTask("download_error")
		s.log.LogUploadTask(task.VideoID, task.StreamKind, "download_failed", err)
		return err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = storage.DefaultContentType(task.StreamKind)
	}

	ref, err := s.files.Store(ctx, task.VideoID, task.StreamKind, resp.Body, resp.ContentLength, contentType)
	if err != nil {
		metrics.RecordUploadTask("store_error")
		s.log.LogUploadTask(task.VideoID, task.StreamKind, "store_failed", err)
		return fmt.Errorf("failed to store blob: %w", err)
	}

	uploaded = ref.SizeBytes
	metrics.RecordUploadTask("success")
	s.log.LogUploadTask(task.VideoID, task.StreamKind, "stored", nil)
	return nil
}
