// Package urlcanon normalizes URLs into a canonical string form used
// as the deduplication identity for articles. Canonicalization is a
// pure function: no I/O, deterministic, idempotent.
package urlcanon

import (
	"net/url"
	"sort"
	"strings"
)

// removedQueryPrefixes lists query-parameter key prefixes that carry
// tracking state rather than identity. Matching is case-insensitive.
var removedQueryPrefixes = []string{
	"utm_",
	"ref",
	"fbclid",
	"gclid",
	"yclid",
}

// Canonicalize returns the canonical form of rawURL.
//
// Rules, applied in order:
//   - force the scheme to https; lowercase scheme and host
//   - strip default ports 80 and 443
//   - drop the fragment
//   - remove query parameters whose key starts with a tracking prefix
//   - sort remaining parameters by (key, value)
//   - collapse repeated path slashes
//   - strip the trailing slash except for the root path
//
// Invalid input is returned unchanged: a URL that cannot be parsed
// still needs a stable identity, and the raw string is the best one
// available.
func Canonicalize(rawURL string) string {
	if rawURL == "" {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "" || u.Scheme == "http" {
		u.Scheme = "https"
	}

	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}

	u.Fragment = ""
	u.RawQuery = canonicalQuery(u.Query())
	u.Path = canonicalPath(u.Path)
	u.RawPath = ""

	return u.String()
}

type queryPair struct{ key, value string }

func canonicalQuery(values url.Values) string {
	var pairs []queryPair
	for key, vs := range values {
		if isTrackingKey(key) {
			continue
		}
		for _, v := range vs {
			pairs = append(pairs, queryPair{key: key, value: v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

func isTrackingKey(key string) bool {
	lower := strings.ToLower(key)
	for _, prefix := range removedQueryPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func canonicalPath(path string) string {
	// An absent path and the root path are the same resource; both
	// canonicalize to "/" so the dedup key cannot split on them.
	if path == "" {
		return "/"
	}
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
