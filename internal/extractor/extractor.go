// Package extractor fetches transient stream URLs from the upstream
// extraction service.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tubegate/tubegate/internal/config"
	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/metrics"
	"github.com/tubegate/tubegate/internal/youtube"
	"github.com/tubegate/tubegate/pkg/models"
)

var (
	// ErrUpstreamUnavailable indicates the upstream service failed,
	// timed out, or returned a response we could not use.
	ErrUpstreamUnavailable = errors.New("upstream extractor unavailable")

	// ErrNotFound indicates the upstream service reported the video as
	// missing or unavailable.
	ErrNotFound = errors.New("video not found upstream")
)

const defaultTimeout = 15 * time.Second

// Client calls the upstream extraction API.
type Client struct {
	http *resty.Client
	log  *logging.Logger
}

// NewClient creates an upstream extraction client from config.
func NewClient(cfg config.UpstreamConfig, log *logging.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Api-Key "+cfg.APIKey)
	}

	return &Client{http: client, log: log}
}

// Fetch resolves a transient stream URL and metadata for a video.
// There is no retry: a failed fetch surfaces immediately so the caller
// can answer within its own deadline.
func (c *Client) Fetch(ctx context.Context, videoID, streamKind string) (*models.MediaRecord, error) {
	start := time.Now()

	var body envelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"url":    youtube.WatchURL(videoID),
			"format": streamKind,
		}).
		SetResult(&body).
		Get("/fetch")

	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordUpstreamFetch("error", elapsed.Seconds())
		c.log.LogUpstreamFetch(videoID, streamKind, elapsed, err)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		metrics.RecordUpstreamFetch("not_found", elapsed.Seconds())
		c.log.LogUpstreamFetch(videoID, streamKind, elapsed, ErrNotFound)
		return nil, ErrNotFound
	case resp.StatusCode() != http.StatusOK:
		metrics.RecordUpstreamFetch("error", elapsed.Seconds())
		err := fmt.Errorf("%w: unexpected status %d", ErrUpstreamUnavailable, resp.StatusCode())
		c.log.LogUpstreamFetch(videoID, streamKind, elapsed, err)
		return nil, err
	}

	record, err := body.record(videoID, streamKind)
	if err != nil {
		metrics.RecordUpstreamFetch("malformed", elapsed.Seconds())
		c.log.LogUpstreamFetch(videoID, streamKind, elapsed, err)
		return nil, err
	}

	metrics.RecordUpstreamFetch("success", elapsed.Seconds())
	c.log.LogUpstreamFetch(videoID, streamKind, elapsed, nil)
	return record, nil
}

// payload holds the fields both upstream response shapes carry. Field
// names vary across upstream versions, so several aliases map to the
// same record column.
type payload struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Duration  flexInt64 `json:"duration"`
	Channel   string    `json:"channel"`
	Author    string    `json:"author"`
	Uploader  string    `json:"uploader"`
	Views     flexInt64 `json:"views"`
	ViewCount flexInt64 `json:"view_count"`
	Thumbnail string    `json:"thumbnail"`
	Thumb     string    `json:"thumb"`
	URL       string    `json:"url"`
	StreamURL string    `json:"stream_url"`
	DLink     string    `json:"dlink"`
	Link      string    `json:"link"`
}

// envelope accepts both observed upstream shapes: the nested
// {"status": true, "result": {...}} form and the flat
// {"status": "success", ...fields} form.
type envelope struct {
	Status  json.RawMessage `json:"status"`
	Result  *payload        `json:"result"`
	payload
}

func (e *envelope) succeeded() bool {
	if len(e.Status) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(e.Status, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(e.Status, &s); err == nil {
		switch strings.ToLower(s) {
		case "success", "ok", "true":
			return true
		}
	}
	return false
}

func (e *envelope) record(videoID, streamKind string) (*models.MediaRecord, error) {
	if !e.succeeded() {
		return nil, fmt.Errorf("%w: upstream reported failure", ErrUpstreamUnavailable)
	}

	fields := &e.payload
	if e.Result != nil {
		fields = e.Result
	}

	sourceURL := firstNonEmpty(fields.URL, fields.StreamURL, fields.DLink, fields.Link)
	if sourceURL == "" {
		return nil, fmt.Errorf("%w: response carried no stream URL", ErrUpstreamUnavailable)
	}

	views := int64(fields.Views)
	if views == 0 {
		views = int64(fields.ViewCount)
	}

	return &models.MediaRecord{
		VideoID:         videoID,
		StreamKind:      streamKind,
		Title:           fields.Title,
		DurationSeconds: int(fields.Duration),
		Channel:         firstNonEmpty(fields.Channel, fields.Author, fields.Uploader),
		ViewCount:       views,
		ThumbnailURL:    firstNonEmpty(fields.Thumbnail, fields.Thumb),
		SourceURL:       sourceURL,
		FetchedAt:       time.Now(),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// flexInt64 tolerates numeric, quoted-numeric, and mm:ss encodings.
// Unparseable values decode to zero; metadata is cosmetic and must not
// sink a response that carries a usable stream URL.
type flexInt64 int64

func (n *flexInt64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = flexInt64(v)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = flexInt64(f)
		return nil
	}
	if strings.Contains(s, ":") {
		var total int64
		for _, part := range strings.Split(s, ":") {
			v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				total = 0
				break
			}
			total = total*60 + v
		}
		*n = flexInt64(total)
		return nil
	}
	*n = 0
	return nil
}
