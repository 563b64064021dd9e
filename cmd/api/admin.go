package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tubegate/tubegate/internal/auth"
	"github.com/tubegate/tubegate/internal/middleware"
	"github.com/tubegate/tubegate/pkg/models"
)

const (
	minExpiryDays = 1
	maxExpiryDays = 3650
)

// listKeys handles GET /admin/keys. Responses carry the full key
// strings; this surface is admin-only and keys are not recoverable
// elsewhere once minted.
func (api *API) listKeys(c *gin.Context) {
	keys, err := api.keys.ListKeys(c.Request.Context())
	if err != nil {
		api.log.ErrorWithErr("Failed to list keys", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"keys":  keys,
		"count": len(keys),
	})
}

// createKey handles POST /admin/keys
func (api *API) createKey(c *gin.Context) {
	var req struct {
		Name       string `json:"name"`
		DailyLimit int    `json:"daily_limit"`
		ExpiryDays int    `json:"expiry_days"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.DailyLimit <= 0 {
		req.DailyLimit = api.quota.DailyLimit
	}
	if req.ExpiryDays == 0 {
		req.ExpiryDays = api.quota.ExpiryDays
	}
	if req.ExpiryDays < minExpiryDays || req.ExpiryDays > maxExpiryDays {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expiry_days must be between 1 and 3650"})
		return
	}

	token, err := auth.GenerateKey()
	if err != nil {
		api.log.ErrorWithErr("Failed to generate key", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	createdBy := "admin"
	if admin, ok := middleware.KeyRecord(c); ok && admin.Name != "" {
		createdBy = admin.Name
	}

	now := time.Now()
	record := &models.APIKey{
		Key:        token,
		Name:       req.Name,
		CreatedAt:  now,
		ValidUntil: now.AddDate(0, 0, req.ExpiryDays),
		DailyLimit: req.DailyLimit,
		ResetAt:    auth.NextMidnight(now),
		Status:     models.KeyStatusActive,
		CreatedBy:  createdBy,
	}

	if err := api.keys.PutKey(c.Request.Context(), record); err != nil {
		api.log.ErrorWithErr("Failed to store key", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	api.log.LogKeyEvent(record.Key, "created", map[string]interface{}{
		"name":        record.Name,
		"daily_limit": record.DailyLimit,
		"valid_until": record.ValidUntil,
	})

	c.JSON(http.StatusCreated, record)
}

// deleteKey handles DELETE /admin/keys/:key
func (api *API) deleteKey(c *gin.Context) {
	key := c.Param("key")

	deleted, err := api.keys.DeleteKey(c.Request.Context(), key)
	if err != nil {
		api.log.ErrorWithErr("Failed to delete key", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}

	api.log.LogKeyEvent(key, "deleted", nil)

	c.JSON(http.StatusOK, gin.H{"message": "Key deleted"})
}

// adminStats handles GET /admin/stats
func (api *API) adminStats(c *gin.Context) {
	stats, err := api.stats.Stats(c.Request.Context())
	if err != nil {
		api.log.ErrorWithErr("Failed to assemble stats", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := struct {
		*models.UsageStats
		QueueDepth *int `json:"queue_depth,omitempty"`
	}{UsageStats: stats}

	if api.queue != nil {
		if depth, err := api.queue.GetQueueDepth(); err == nil {
			response.QueueDepth = &depth
		}
	}

	c.JSON(http.StatusOK, response)
}

// adminLogs handles GET /admin/logs?limit=
func (api *API) adminLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	logs, err := api.stats.RecentLogs(c.Request.Context(), limit)
	if err != nil {
		api.log.ErrorWithErr("Failed to list usage logs", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// runMaintenance handles POST /admin/maintenance, an on-demand key sweep
func (api *API) runMaintenance(c *gin.Context) {
	expired, reset, err := api.maint.RunSweep(c.Request.Context())
	if err != nil {
		api.log.ErrorWithErr("Maintenance sweep failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"expired": expired,
		"reset":   reset,
	})
}

// runCleanup handles POST /admin/cleanup: usage log retention plus
// stale durable ref pruning
func (api *API) runCleanup(c *gin.Context) {
	logsDeleted, refsPruned, err := api.maint.RunCleanup(c.Request.Context())
	if err != nil {
		api.log.ErrorWithErr("Cleanup failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs_deleted": logsDeleted,
		"refs_pruned":  refsPruned,
	})
}
