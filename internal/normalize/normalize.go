package normalize

import (
	"strings"

	"uring-crawler/internal/config"
)

// Cleaner applies the configured cleaning rules to titles and dates.
type Cleaner struct {
	rules config.CleaningConfig
}

// NewCleaner binds the cleaning rules from config.
func NewCleaner(rules config.CleaningConfig) *Cleaner {
	return &Cleaner{rules: rules}
}

// Title cleans a title. Titles only get removal patterns.
func (c *Cleaner) Title(s string) string {
	return Clean(s, c.rules.TitleRemovePatterns, nil)
}

func (c *Cleaner) Date(s string) string {
	return Clean(s, c.rules.DateRemovePatterns, c.rules.DateReplacements)
}

// Clean collapses whitespace, then removes every pattern and applies every
// replacement in order. Matching is exact substring, never regex.
func Clean(text string, removals []string, replacements []config.Replacement) string {
	result := CollapseSpaces(text)
	for _, pattern := range removals {
		if pattern == "" {
			continue
		}
		result = strings.ReplaceAll(result, pattern, "")
	}
	for _, r := range replacements {
		if r.From == "" {
			continue
		}
		result = strings.ReplaceAll(result, r.From, r.To)
	}
	return strings.TrimSpace(result)
}

// CollapseSpaces turns every run of whitespace, NBSP included, into one
// ASCII space and trims the ends.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
