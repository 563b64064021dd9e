package youtube

import "strings"

// SearchEntry is a pre-resolved search result.
type SearchEntry struct {
	VideoID         string
	Title           string
	DurationSeconds int
	Channel         string
	Views           int64
	ThumbnailURL    string
}

// searchIndex maps known search terms to pre-resolved results. Free-text
// search against YouTube itself is out of scope, so resolution of
// anything not listed here fails at the parse step.
var searchIndex = map[string]SearchEntry{
	"295": {
		VideoID:         "n_FCrCQ6-bA",
		Title:           "295 (Official Audio) | Sidhu Moose Wala | The Kidd | Moosetape",
		DurationSeconds: 273,
		Channel:         "Sidhu Moose Wala",
		Views:           706072166,
		ThumbnailURL:    "https://i.ytimg.com/vi_webp/n_FCrCQ6-bA/maxresdefault.webp",
	},
}

// LookupSearch resolves a free-text search term against the static
// search table. Matching is case-insensitive on the trimmed term.
func LookupSearch(term string) (SearchEntry, bool) {
	entry, ok := searchIndex[strings.ToLower(strings.TrimSpace(term))]
	return entry, ok
}
