package fetcher

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the settings shared by the archive and body fetchers.
//
// Security settings: DenyPrivateIPs blocks SSRF targets, MaxBodySize
// caps response reads, MaxRedirects bounds redirect chains. Timeout is
// the per-request budget, Parallelism the width of the body-fetch pool.
type Config struct {
	// ArchiveBaseURL is the date-filtered search endpoint of the source.
	// The day and page number are appended as query parameters.
	ArchiveBaseURL string

	// SiteBaseURL resolves relative article links found on listing pages.
	SiteBaseURL string

	// Timeout is the maximum duration for one HTTP request.
	// Default: 20s
	Timeout time.Duration

	// Parallelism bounds concurrent body fetches naturally issued by
	// the collection worker.
	// Default: 5
	Parallelism int

	// MaxBodySize is the maximum response body size in bytes, enforced
	// while reading rather than from the Content-Length header.
	// Default: 10MB
	MaxBodySize int64

	// MaxRedirects caps the redirect chain. Each redirect target is
	// re-validated against the private IP rules.
	// Default: 5
	MaxRedirects int

	// DenyPrivateIPs refuses URLs resolving to private addresses.
	// Default: true
	DenyPrivateIPs bool

	// UserAgent identifies the crawler to the source.
	UserAgent string
}

// DefaultConfig returns production defaults. The archive endpoint must
// still be set by the caller or the environment.
func DefaultConfig() Config {
	return Config{
		Timeout:        20 * time.Second,
		Parallelism:    5,
		MaxBodySize:    10 * 1024 * 1024,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
		UserAgent:      "archivefeed-bot/1.0",
	}
}

// Validate rejects settings that would make the fetchers unsafe or
// unusable.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.Parallelism < 1 || c.Parallelism > 50 {
		return fmt.Errorf("parallelism must be between 1 and 50, got %d", c.Parallelism)
	}
	minBody := int64(1024)
	maxBody := int64(100 * 1024 * 1024)
	if c.MaxBodySize < minBody || c.MaxBodySize > maxBody {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBody, maxBody, c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	return nil
}

// LoadConfigFromEnv reads fetch settings from the environment, falling
// back to defaults for unset variables.
//
// Environment variables:
//   - ARCHIVE_BASE_URL: date-filtered search endpoint (required)
//   - SITE_BASE_URL: base for resolving relative article links
//   - FETCH_TIMEOUT: duration string, e.g. "20s"
//   - FETCH_PARALLELISM: integer
//   - FETCH_MAX_BODY_SIZE: integer bytes
//   - FETCH_MAX_REDIRECTS: integer
//   - FETCH_DENY_PRIVATE_IPS: "true" or "false"
//   - FETCH_USER_AGENT: string
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.ArchiveBaseURL = os.Getenv("ARCHIVE_BASE_URL")
	cfg.SiteBaseURL = os.Getenv("SITE_BASE_URL")

	if val := os.Getenv("FETCH_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_TIMEOUT: %v (expected format: '20s', '1m')", err)
		}
		cfg.Timeout = parsed
	}

	if val := os.Getenv("FETCH_PARALLELISM"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_PARALLELISM: %v", err)
		}
		cfg.Parallelism = parsed
	}

	if val := os.Getenv("FETCH_MAX_BODY_SIZE"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_MAX_BODY_SIZE: %v", err)
		}
		cfg.MaxBodySize = parsed
	}

	if val := os.Getenv("FETCH_MAX_REDIRECTS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_MAX_REDIRECTS: %v", err)
		}
		cfg.MaxRedirects = parsed
	}

	if val := os.Getenv("FETCH_DENY_PRIVATE_IPS"); val != "" {
		cfg.DenyPrivateIPs = val == "true"
	}

	if val := os.Getenv("FETCH_USER_AGENT"); val != "" {
		cfg.UserAgent = val
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
