package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tubegate/tubegate/internal/auth"
	"github.com/tubegate/tubegate/pkg/models"
)

// AuthContextKey is the gin context key holding the validated key record
const AuthContextKey = "api_key_record"

// KeyValidator checks API keys on behalf of the auth middleware
type KeyValidator interface {
	Validate(ctx context.Context, candidate string) (*models.APIKey, error)
	ValidateAdmin(ctx context.Context, candidate string) (*models.APIKey, error)
}

// APIKeyAuth validates the caller's API key before the handler runs.
// The key arrives in the named query parameter or the X-API-Key header;
// the query parameter wins when both are present.
func APIKeyAuth(validator KeyValidator, paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		candidate := c.Query(paramName)
		if candidate == "" {
			candidate = c.GetHeader("X-API-Key")
		}

		record, err := validator.Validate(c.Request.Context(), candidate)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrMissingKey):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			case errors.Is(err, auth.ErrQuotaExceeded):
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "Daily limit exceeded"})
			default:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired API key"})
			}
			c.Abort()
			return
		}

		c.Set(AuthContextKey, record)
		c.Next()
	}
}

// AdminAuth validates the caller's admin key. The key arrives in the
// admin_key query parameter or the X-Admin-Key header. Admin checks do
// not consume quota.
func AdminAuth(validator KeyValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		candidate := c.Query("admin_key")
		if candidate == "" {
			candidate = c.GetHeader("X-Admin-Key")
		}

		record, err := validator.ValidateAdmin(c.Request.Context(), candidate)
		if err != nil {
			if errors.Is(err, auth.ErrMissingKey) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Admin key required"})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin key"})
			}
			c.Abort()
			return
		}

		c.Set(AuthContextKey, record)
		c.Next()
	}
}

// KeyRecord retrieves the validated key record set by APIKeyAuth or AdminAuth
func KeyRecord(c *gin.Context) (*models.APIKey, bool) {
	value, exists := c.Get(AuthContextKey)
	if !exists {
		return nil, false
	}
	record, ok := value.(*models.APIKey)
	if !ok || record == nil {
		return nil, false
	}
	return record, true
}
