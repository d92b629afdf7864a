package scraper

import "fmt"

// SelectorError reports a board selector that failed to compile.
type SelectorError struct {
	Selector string
	Message  string
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("invalid selector '%s': %s", e.Selector, e.Message)
}
