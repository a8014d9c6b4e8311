package catalog

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title is a single search match.
type Title struct {
	ID   string
	Name string
}

// Episode is one entry in a title's episode list. Handle is the opaque
// identifier the catalog expects back when resolving a stream.
type Episode struct {
	Label  string
	Handle string
}

// StreamInfo carries the resolved references for one episode. ManifestURL
// is empty when the catalog answered but offered no playable stream.
type StreamInfo struct {
	ManifestURL      string
	SubtitleURL      string
	SubtitleLanguage string
}

// Service lists titles and their episodes.
type Service interface {
	Search(ctx context.Context, query string) ([]Title, error)
	Episodes(ctx context.Context, titleID string) ([]Episode, error)
}

// Resolver turns an episode handle into stream references.
type Resolver interface {
	Resolve(ctx context.Context, handle string) (StreamInfo, error)
}

var titleCaser = cases.Title(language.Und)

// DisplayName returns a presentable name for a title, falling back to a
// name derived from the ID slug when the catalog omits one.
func DisplayName(t Title) string {
	if name := strings.TrimSpace(t.Name); name != "" {
		return name
	}
	return titleFromSlug(t.ID)
}

// titleFromSlug rebuilds a readable title from a catalog slug such as
// "attack-on-titan-112", dropping the trailing numeric discriminator.
func titleFromSlug(slug string) string {
	parts := strings.Split(strings.TrimSpace(slug), "-")
	for len(parts) > 1 && isDigits(parts[len(parts)-1]) {
		parts = parts[:len(parts)-1]
	}
	joined := strings.Join(parts, " ")
	if joined == "" {
		return slug
	}
	return titleCaser.String(joined)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
