package backfill

import "errors"

// Sentinel errors shared by the fetch collaborators. Transient network
// failures are retried at the fetch layer; parse and validation failures
// are logged and skipped, never retried.
var (
	// ErrInvalidURL indicates the URL format is invalid or uses an
	// unsupported scheme. Only http and https are fetchable.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP indicates the URL resolves to a private, loopback,
	// or link-local address. Rejected to prevent SSRF.
	ErrPrivateIP = errors.New("private IP access denied")

	// ErrTooManyRedirects indicates the redirect chain exceeded the
	// configured maximum.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrExtractFailed indicates readable text could not be extracted
	// from the fetched page. Callers skip the item.
	ErrExtractFailed = errors.New("content extraction failed")

	// ErrPageParse indicates an archive listing page did not have the
	// expected structure. The page is skipped, never retried.
	ErrPageParse = errors.New("archive page parse failed")
)
