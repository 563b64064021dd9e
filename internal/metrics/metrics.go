package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubegate_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Resolution Metrics
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_resolutions_total",
			Help: "Total number of media resolutions by serving tier",
		},
		[]string{"source", "stream_kind"},
	)

	ResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubegate_resolution_duration_seconds",
			Help:    "Media resolution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_cache_hits_total",
			Help: "Total number of cache hits per tier",
		},
		[]string{"tier"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_cache_misses_total",
			Help: "Total number of cache misses per tier",
		},
		[]string{"tier"},
	)

	// Upstream Metrics
	UpstreamFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_upstream_fetches_total",
			Help: "Total number of upstream extraction calls",
		},
		[]string{"status"},
	)

	UpstreamFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tubegate_upstream_fetch_duration_seconds",
			Help:    "Upstream extraction latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// Upload Metrics
	UploadTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_upload_tasks_total",
			Help: "Total number of background upload tasks by outcome",
		},
		[]string{"status"},
	)

	UploadsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tubegate_uploads_in_progress",
			Help: "Number of background uploads currently running",
		},
	)

	UploadedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tubegate_uploaded_bytes_total",
			Help: "Total bytes pushed into the durable file cache",
		},
	)

	// Key Metrics
	KeyValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_key_validations_total",
			Help: "Total number of key validations by outcome",
		},
		[]string{"outcome"},
	)

	KeyStoreFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_key_store_fallbacks_total",
			Help: "Total number of key store operations served by the fallback",
		},
		[]string{"operation"},
	)

	KeysByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tubegate_keys_by_status",
			Help: "Number of issued keys per status",
		},
		[]string{"status"},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubegate_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_storage_bytes_transferred_total",
			Help: "Total bytes transferred to/from storage",
		},
		[]string{"operation"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordResolution records a served resolution and which tier served it
func RecordResolution(source, streamKind string, duration float64) {
	ResolutionsTotal.WithLabelValues(source, streamKind).Inc()
	ResolutionDuration.WithLabelValues(source).Observe(duration)
}

// RecordCacheAccess records a cache hit or miss for a tier
func RecordCacheAccess(tier string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(tier).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(tier).Inc()
	}
}

// RecordUpstreamFetch records an upstream extraction attempt
func RecordUpstreamFetch(status string, duration float64) {
	UpstreamFetchesTotal.WithLabelValues(status).Inc()
	UpstreamFetchDuration.Observe(duration)
}

// RecordUploadTask records a background upload task outcome
func RecordUploadTask(status string) {
	UploadTasksTotal.WithLabelValues(status).Inc()
}

// UploadStarted marks a background upload as running
func UploadStarted() {
	UploadsInProgress.Inc()
}

// UploadFinished marks a background upload as done and counts the bytes
func UploadFinished(bytes int64) {
	UploadsInProgress.Dec()
	if bytes > 0 {
		UploadedBytesTotal.Add(float64(bytes))
	}
}

// RecordKeyValidation records a key validation outcome
func RecordKeyValidation(outcome string) {
	KeyValidationsTotal.WithLabelValues(outcome).Inc()
}

// RecordKeyStoreFallback records a key store operation absorbed by the fallback
func RecordKeyStoreFallback(operation string) {
	KeyStoreFallbacksTotal.WithLabelValues(operation).Inc()
}

// SetKeyCounts publishes the key population per status
func SetKeyCounts(counts map[string]int) {
	for status, count := range counts {
		KeysByStatus.WithLabelValues(status).Set(float64(count))
	}
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string, duration float64, bytesTransferred int64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
	StorageBytesTransferred.WithLabelValues(operation).Add(float64(bytesTransferred))
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
