package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tubegate/tubegate/internal/extractor"
	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/resolver"
	"github.com/tubegate/tubegate/pkg/models"
)

// MediaResolver runs the tiered resolution pipeline
type MediaResolver interface {
	Resolve(ctx context.Context, reference, streamKind string) (*models.MediaResult, error)
}

// KeyStore is the key lifecycle surface the admin endpoints use
type KeyStore interface {
	PutKey(ctx context.Context, key *models.APIKey) error
	DeleteKey(ctx context.Context, key string) (bool, error)
	ListKeys(ctx context.Context) ([]*models.APIKey, error)
}

// StatsService aggregates usage figures for the admin surface
type StatsService interface {
	Stats(ctx context.Context) (*models.UsageStats, error)
	RecentLogs(ctx context.Context, limit int) ([]*models.UsageLogEntry, error)
}

// MaintenanceRunner exposes the background sweeps for on-demand runs
type MaintenanceRunner interface {
	RunSweep(ctx context.Context) (expired, reset int, err error)
	RunCleanup(ctx context.Context) (logsDeleted int64, refsPruned int, err error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// CachePinger reports whether Redis is reachable
type CachePinger interface {
	Ping(ctx context.Context) error
}

// QueueInfo reports broker connectivity and backlog
type QueueInfo interface {
	IsOpen() bool
	GetQueueDepth() (int, error)
}

type API struct {
	resolver  MediaResolver
	keys      KeyStore
	stats     StatsService
	maint     MaintenanceRunner
	db        HealthChecker
	cache     CachePinger
	queue     QueueInfo
	storageOn bool
	quota     quotaDefaults
	log       *logging.Logger
}

// quotaDefaults are applied when a key mint request omits fields
type quotaDefaults struct {
	DailyLimit int
	ExpiryDays int
}

// resolveYouTube handles GET /youtube?query=&video=. The query accepts
// a URL, a bare video ID, or a known search term; video=true switches
// the stream kind from audio to video.
func (api *API) resolveYouTube(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter is required"})
		return
	}

	kind := models.StreamKindAudio
	if c.Query("video") == "true" {
		kind = models.StreamKindVideo
	}

	api.resolve(c, query, kind)
}

// resolveMP3 handles GET /ytmp3?url=
func (api *API) resolveMP3(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter is required"})
		return
	}

	api.resolve(c, url, models.StreamKindAudio)
}

// resolveMP4 handles GET /ytmp4?url=
func (api *API) resolveMP4(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter is required"})
		return
	}

	api.resolve(c, url, models.StreamKindVideo)
}

func (api *API) resolve(c *gin.Context, reference, streamKind string) {
	result, err := api.resolver.Resolve(c.Request.Context(), reference, streamKind)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrInvalidReference):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid YouTube URL or video ID"})
		case errors.Is(err, extractor.ErrNotFound), errors.Is(err, extractor.ErrUpstreamUnavailable):
			c.JSON(http.StatusNotFound, gin.H{"error": "Video not found or unavailable"})
		default:
			api.log.ErrorWithErr("Resolution failed", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// streamPassthrough handles GET /stream/:video_id. The route is
// reserved; proxying bytes through this service is not supported.
func (api *API) streamPassthrough(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": "Stream endpoint not implemented"})
}

// healthCheck reports component reachability. The endpoint itself
// always answers 200; losing a dependency degrades resolution but not
// liveness.
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := gin.H{
		"database": api.db != nil && api.db.Health(ctx) == nil,
		"cache":    api.cache != nil && api.cache.Ping(ctx) == nil,
		"storage":  api.storageOn,
		"queue":    api.queue != nil && api.queue.IsOpen(),
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"version":    version,
		"components": components,
	})
}
