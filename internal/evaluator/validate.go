package evaluator

import "strings"

const (
	// MaxTitleLen and MaxMemoLen bound user-entered text before persistence.
	MaxTitleLen = 100
	MaxMemoLen  = 1000
)

// Validate checks title and memo against the item rules and returns every
// violated rule, not just the first. An empty slice means the input is valid.
func Validate(title, memo string) []string {
	var reasons []string
	if strings.TrimSpace(title) == "" {
		reasons = append(reasons, "title must not be empty")
	}
	if len([]rune(title)) > MaxTitleLen {
		reasons = append(reasons, "title must be at most 100 characters")
	}
	if len([]rune(memo)) > MaxMemoLen {
		reasons = append(reasons, "memo must be at most 1000 characters")
	}
	return reasons
}
