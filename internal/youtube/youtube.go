// Package youtube parses YouTube video references into canonical video IDs.
package youtube

import (
	"regexp"
	"strings"
)

// videoIDPattern matches a canonical 11-character YouTube video ID.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// refPatterns cover the URL shapes we accept, with or without a scheme.
var refPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`watch\?(?:[^#\s]*&)?v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/embed/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/shorts/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/live/([A-Za-z0-9_-]{11})`),
}

// ParseVideoID extracts the canonical video ID from a URL or bare ID.
// It returns false when the reference has none of the known shapes.
func ParseVideoID(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}

	if videoIDPattern.MatchString(ref) {
		return ref, true
	}

	for _, pattern := range refPatterns {
		if m := pattern.FindStringSubmatch(ref); m != nil {
			return m[1], true
		}
	}

	return "", false
}

// WatchURL builds the canonical watch page URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
