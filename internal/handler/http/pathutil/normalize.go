package pathutil

import (
	"regexp"
	"strings"
)

// pathPatterns maps dynamic admin routes to label templates. Compiled
// once at init; evaluated in order.
var pathPatterns = []struct {
	pattern  *regexp.Regexp
	template string
}{
	{regexp.MustCompile(`^/dlq/\d+$`), "/dlq/:id"},
	{regexp.MustCompile(`^/articles/\d+$`), "/articles/:id"},
}

// NormalizePath collapses ID-bearing paths to a template so the
// per-path metric labels stay bounded. Query strings and trailing
// slashes are stripped first; unknown paths pass through unchanged,
// which is safe because every other admin route is static.
//
//	NormalizePath("/dlq/42")          // "/dlq/:id"
//	NormalizePath("/dlq/42?x=1")      // "/dlq/:id"
//	NormalizePath("/backfill/status") // "/backfill/status"
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	for _, p := range pathPatterns {
		if p.pattern.MatchString(path) {
			return p.template
		}
	}
	return path
}
