// Package output groups crawl results and writes them out: one JSON file
// per board, plus optional console rendering.
package output

import (
	"sort"

	"uring-crawler/internal/scraper"
)

// Grouped maps campus → department name → board name → notices.
type Grouped map[string]map[string]map[string][]scraper.Notice

// Group regroups notices, keeping their relative order within each board.
func Group(notices []scraper.Notice) Grouped {
	grouped := make(Grouped)
	for _, n := range notices {
		departments, ok := grouped[n.Campus]
		if !ok {
			departments = make(map[string]map[string][]scraper.Notice)
			grouped[n.Campus] = departments
		}
		boards, ok := departments[n.DepartmentName]
		if !ok {
			boards = make(map[string][]scraper.Notice)
			departments[n.DepartmentName] = boards
		}
		boards[n.BoardName] = append(boards[n.BoardName], n)
	}
	return grouped
}

// Count returns the total number of notices.
func (g Grouped) Count() int {
	total := 0
	for _, departments := range g {
		for _, boards := range departments {
			for _, notices := range boards {
				total += len(notices)
			}
		}
	}
	return total
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
