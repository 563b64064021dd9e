package models

import (
	"time"
)

// APIKey represents an issued API key and its quota/expiry state
type APIKey struct {
	Key           string    `json:"key" db:"key"`
	Name          string    `json:"name" db:"name"`
	IsAdmin       bool      `json:"is_admin" db:"is_admin"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	ValidUntil    time.Time `json:"valid_until" db:"valid_until"`
	DailyLimit    int       `json:"daily_limit" db:"daily_limit"`
	ResetAt       time.Time `json:"reset_at" db:"reset_at"`
	DailyRequests int       `json:"daily_requests" db:"daily_requests"`
	TotalRequests int       `json:"total_requests" db:"total_requests"`
	Status        string    `json:"status" db:"status"`
	CreatedBy     string    `json:"created_by,omitempty" db:"created_by"`
}

// KeyStatus constants
const (
	KeyStatusActive    = "active"
	KeyStatusExpired   = "expired"
	KeyStatusSuspended = "suspended"
)

// Expired reports whether the key's hard expiry horizon has passed
func (k *APIKey) Expired(now time.Time) bool {
	return now.After(k.ValidUntil)
}

// WindowElapsed reports whether the current quota window has ended
func (k *APIKey) WindowElapsed(now time.Time) bool {
	return now.After(k.ResetAt)
}

// Remaining returns the number of requests left in the current window
func (k *APIKey) Remaining() int {
	left := k.DailyLimit - k.DailyRequests
	if left < 0 {
		return 0
	}
	return left
}
