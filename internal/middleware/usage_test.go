package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/pkg/models"
)

type captureWriter struct {
	mu      sync.Mutex
	entries []*models.UsageLogEntry
	err     error
}

func (w *captureWriter) InsertUsageLog(ctx context.Context, entry *models.UsageLogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.entries = append(w.entries, entry)
	return nil
}

func usageTestRouter(t *testing.T, writer *captureWriter, status int) *gin.Engine {
	t.Helper()

	log, err := logging.NewDefaultLogger()
	assert.NoError(t, err)

	router := gin.New()
	router.GET("/youtube",
		func(c *gin.Context) {
			c.Set(AuthContextKey, &models.APIKey{Key: "usage-key"})
		},
		UsageRecorder(writer, log),
		func(c *gin.Context) {
			c.Status(status)
		},
	)
	return router
}

func TestUsageRecorder(t *testing.T) {
	gin.SetMode(gin.TestMode)

	writer := &captureWriter{}
	router := usageTestRouter(t, writer, http.StatusOK)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/youtube?query=295&api_key=usage-key", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, writer.entries, 1)

	entry := writer.entries[0]
	assert.Equal(t, "usage-key", entry.APIKey)
	assert.Equal(t, "/youtube", entry.Endpoint)
	assert.Equal(t, "295", entry.Query)
	assert.Equal(t, http.StatusOK, entry.StatusCode)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestUsageRecorderCapturesFinalStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	writer := &captureWriter{}
	router := usageTestRouter(t, writer, http.StatusNotFound)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/youtube?query=missing", nil)
	router.ServeHTTP(w, req)

	assert.Len(t, writer.entries, 1)
	assert.Equal(t, http.StatusNotFound, writer.entries[0].StatusCode)
}

func TestUsageRecorderSkipsUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)

	writer := &captureWriter{}
	log, err := logging.NewDefaultLogger()
	assert.NoError(t, err)

	router := gin.New()
	router.GET("/youtube", UsageRecorder(writer, log), func(c *gin.Context) {
		c.Status(http.StatusUnauthorized)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/youtube?query=295", nil)
	router.ServeHTTP(w, req)

	assert.Empty(t, writer.entries)
}

func TestUsageRecorderWriteFailureDoesNotChangeResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	writer := &captureWriter{err: errors.New("insert failed")}
	router := usageTestRouter(t, writer, http.StatusOK)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/youtube?query=295", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUsageRecorderFallsBackToURLParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	writer := &captureWriter{}
	router := usageTestRouter(t, writer, http.StatusOK)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/youtube?url=https%3A%2F%2Fyoutu.be%2FdQw4w9WgXcQ", nil)
	router.ServeHTTP(w, req)

	assert.Len(t, writer.entries, 1)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", writer.entries[0].Query)
}
