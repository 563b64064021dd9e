package models

import (
	"time"
)

// UsageLogEntry is one append-only audit record per authorized call
type UsageLogEntry struct {
	ID         int64     `json:"id" db:"id"`
	APIKey     string    `json:"api_key" db:"api_key"`
	Endpoint   string    `json:"endpoint" db:"endpoint"`
	Query      string    `json:"query" db:"query"`
	ClientIP   string    `json:"client_ip" db:"client_ip"`
	StatusCode int       `json:"status_code" db:"status_code"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
}

// EndpointCount pairs an endpoint with its request count
type EndpointCount struct {
	Endpoint string `json:"endpoint" db:"endpoint"`
	Count    int64  `json:"count" db:"count"`
}

// KeyCount pairs an API key with its request count
type KeyCount struct {
	APIKey string `json:"api_key" db:"api_key"`
	Count  int64  `json:"count" db:"count"`
}

// UsageStats aggregates key and traffic totals for the admin surface
type UsageStats struct {
	TotalKeys     int             `json:"total_keys"`
	ActiveKeys    int             `json:"active_keys"`
	ExpiredKeys   int             `json:"expired_keys"`
	RequestsToday int64           `json:"requests_today"`
	ByEndpoint    []EndpointCount `json:"by_endpoint"`
	TopKeys       []KeyCount      `json:"top_keys"`
}
