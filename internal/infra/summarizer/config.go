package summarizer

import "fmt"

// ProviderConfig is the common shape of provider configuration. Both
// the Claude and OpenAI implementations satisfy it so validation stays
// consistent across providers.
type ProviderConfig interface {
	// GetCharacterLimit returns the maximum number of characters
	// allowed in a summary.
	GetCharacterLimit() int

	// Validate checks all configuration fields.
	Validate() error
}

const (
	// minCharLimit is the minimum allowed character limit for summaries.
	minCharLimit = 100

	// maxCharLimit is the maximum allowed character limit for summaries.
	maxCharLimit = 5000
)

// ValidateCharacterLimit checks that limit is within the supported
// range (100-5000).
func ValidateCharacterLimit(limit int) error {
	if limit < minCharLimit {
		return fmt.Errorf("character limit %d is below minimum %d", limit, minCharLimit)
	}
	if limit > maxCharLimit {
		return fmt.Errorf("character limit %d exceeds maximum %d", limit, maxCharLimit)
	}
	return nil
}
