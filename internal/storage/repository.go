package storage

import (
	"context"
	"time"

	"uring-crawler/internal/checksum"
	"uring-crawler/internal/scraper"
)

// NoticeRecord is a notice as stored in the database for one run.
type NoticeRecord struct {
	RunID       string
	Notice      scraper.Notice
	Fingerprint string // SHA-256 of the notice identity
	FetchedAt   time.Time
}

// Repository is the optional SQL sink for crawl results.
type Repository interface {
	// SaveNotices stores every notice of a run and returns how many rows were written.
	SaveNotices(ctx context.Context, runID string, notices []scraper.Notice) (int, error)

	// CountByRun returns the number of stored notices for a run.
	CountByRun(ctx context.Context, runID string) (int, error)

	Close() error
}

// NewRecords stamps notices with the run id, fetch time and fingerprint.
func NewRecords(runID string, notices []scraper.Notice, fetchedAt time.Time, gen *checksum.Generator) []NoticeRecord {
	records := make([]NoticeRecord, len(notices))
	for i, n := range notices {
		records[i] = NoticeRecord{
			RunID:       runID,
			Notice:      n,
			Fingerprint: gen.NoticeHash(n),
			FetchedAt:   fetchedAt.UTC(),
		}
	}
	return records
}

// Batches splits n items into consecutive [start, end) ranges of at most size.
func Batches(n, size int) [][2]int {
	if size < 1 {
		size = 1
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
