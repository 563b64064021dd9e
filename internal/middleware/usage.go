package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/pkg/models"
)

// UsageWriter appends usage audit rows
type UsageWriter interface {
	InsertUsageLog(ctx context.Context, entry *models.UsageLogEntry) error
}

// UsageRecorder appends one usage row per authenticated request, after
// the handler has produced its final status. Requests that never passed
// key validation leave no row, and a write failure never changes the
// response.
func UsageRecorder(writer UsageWriter, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		record, ok := KeyRecord(c)
		if !ok {
			return
		}

		query := c.Query("query")
		if query == "" {
			query = c.Query("url")
		}

		entry := &models.UsageLogEntry{
			APIKey:     record.Key,
			Endpoint:   c.FullPath(),
			Query:      query,
			ClientIP:   c.ClientIP(),
			StatusCode: c.Writer.Status(),
			Timestamp:  time.Now().UTC(),
		}
		if err := writer.InsertUsageLog(c.Request.Context(), entry); err != nil {
			log.ErrorWithErr("Failed to record usage", err)
		}
	}
}
