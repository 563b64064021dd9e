package main

import (
	"github.com/gin-gonic/gin"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/middleware"
)

func setupRouter(api *API, validator middleware.KeyValidator, limiter *middleware.RateLimiter, usage middleware.UsageWriter, log *logging.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Metrics())
	router.Use(middleware.RateLimit(limiter))

	router.GET("/health", api.healthCheck)

	// Resolution endpoints. The legacy routes take the key in `key`;
	// /youtube takes it in `api_key`. Usage rows are appended after the
	// handler so they carry the final status.
	router.GET("/youtube",
		middleware.APIKeyAuth(validator, "api_key"),
		middleware.UsageRecorder(usage, log),
		api.resolveYouTube,
	)
	router.GET("/ytmp3",
		middleware.APIKeyAuth(validator, "key"),
		middleware.UsageRecorder(usage, log),
		api.resolveMP3,
	)
	router.GET("/ytmp4",
		middleware.APIKeyAuth(validator, "key"),
		middleware.UsageRecorder(usage, log),
		api.resolveMP4,
	)

	router.GET("/stream/:video_id", api.streamPassthrough)

	// Admin namespace. Admin validation is unmetered and leaves no
	// usage rows.
	admin := router.Group("/admin")
	admin.Use(middleware.AdminAuth(validator))
	{
		admin.GET("/keys", api.listKeys)
		admin.POST("/keys", api.createKey)
		admin.DELETE("/keys/:key", api.deleteKey)
		admin.GET("/stats", api.adminStats)
		admin.GET("/logs", api.adminLogs)
		admin.POST("/maintenance", api.runMaintenance)
		admin.POST("/cleanup", api.runCleanup)
	}

	return router
}
