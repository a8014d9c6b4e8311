// Package fileutil holds small filesystem helpers shared by the pipeline:
// collision-free artifact naming, quiet cleanup, and size probing.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ArtifactName builds a collision-free file name for one pipeline run.
// Concurrent pipelines share the scratch directories, so the name carries the
// conversation id, a sanitized episode label, and a uniqueness token.
func ArtifactName(conversationID int64, label, ext string) string {
	token := uuid.NewString()[:8]
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%d-%s-%s.%s", conversationID, SanitizeLabel(label), token, ext)
}

// SanitizeLabel reduces a user-facing episode label to filesystem-safe runes.
func SanitizeLabel(label string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, strings.TrimSpace(label))
	if mapped == "" {
		return "episode"
	}
	return mapped
}

// VideoName is the recipient-visible file name for a delivered episode.
func VideoName(label string) string {
	return fmt.Sprintf("Episode %s.mp4", SanitizeLabel(label))
}

// SubtitleName mirrors the delivered subtitle naming: "Episode <label>.vtt"
// style with the label made filesystem safe.
func SubtitleName(label string) string {
	return fmt.Sprintf("Episode %s.vtt", SanitizeLabel(label))
}

// RemoveQuiet deletes path, tolerating files that are already gone.
func RemoveQuiet(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	_ = os.Remove(path)
}

// FileSize returns the byte size of path.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// EnsureParent creates the parent directory of path.
func EnsureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
