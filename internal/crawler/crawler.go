// Package crawler fans board fetches out under a concurrency cap and merges
// the extracted notices.
package crawler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"uring-crawler/internal/config"
	"uring-crawler/internal/fetcher"
	"uring-crawler/internal/observability"
	"uring-crawler/internal/scraper"
	"uring-crawler/internal/sitemap"
)

// BoardFailure records why a board contributed no notices.
type BoardFailure struct {
	Task scraper.Task
	Err  error
}

// BoardStat is the outcome of one board.
type BoardStat struct {
	Task    scraper.Task
	Notices int
	Err     error
}

type Result struct {
	// Notices holds every board's notices. Each board's notices are
	// contiguous and in document order; board order is unspecified.
	Notices  []scraper.Notice
	Failures []BoardFailure
	Boards   []BoardStat
	Elapsed  time.Duration
}

type Crawler struct {
	fetcher       fetcher.Fetcher
	extractor     *scraper.Extractor
	logger        *observability.Logger
	metrics       *observability.Metrics
	maxConcurrent int
	delay         time.Duration
}

func New(
	cfg *config.Config,
	f fetcher.Fetcher,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Crawler {
	return &Crawler{
		fetcher:       f,
		extractor:     scraper.NewExtractor(cfg.Cleaning),
		logger:        logger,
		metrics:       metrics,
		maxConcurrent: cfg.GetMaxConcurrent(),
		delay:         cfg.GetRequestDelay(),
	}
}

// Tasks flattens the site map into one task per board: campus by campus,
// college departments before direct ones, boards in configured order.
func Tasks(campuses []sitemap.Campus) []scraper.Task {
	var tasks []scraper.Task
	for i := range campuses {
		campus := &campuses[i]
		for _, ref := range campus.AllDepartments() {
			for _, board := range ref.Department.Boards {
				tasks = append(tasks, scraper.Task{
					Campus:         campus.Name,
					College:        ref.College,
					DepartmentID:   ref.Department.ID,
					DepartmentName: ref.Department.Name,
					Board:          board,
				})
			}
		}
	}
	return tasks
}

type taskResult struct {
	index   int
	notices []scraper.Notice
	err     error
}

// Crawl runs every board of the site map and never fails as a whole: a
// board that cannot be fetched or extracted is logged, reported in
// Result.Failures and skipped.
//
// At most maxConcurrent boards hold a slot at once. After finishing, a
// board keeps its slot for the configured delay, so the delay throttles
// each slot rather than the crawl as a whole.
func (c *Crawler) Crawl(ctx context.Context, campuses []sitemap.Campus) *Result {
	start := time.Now()
	tasks := Tasks(campuses)

	c.logger.Info("Crawl started",
		"boards", len(tasks),
		"max_concurrent", c.maxConcurrent,
		"request_delay", c.delay,
	)

	results := make(chan taskResult)
	res := &Result{Boards: make([]BoardStat, len(tasks))}

	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for r := range results {
			task := tasks[r.index]
			res.Boards[r.index] = BoardStat{Task: task, Notices: len(r.notices), Err: r.err}
			if r.err != nil {
				res.Failures = append(res.Failures, BoardFailure{Task: task, Err: r.err})
				continue
			}
			res.Notices = append(res.Notices, r.notices...)
		}
	}()

	sem := semaphore.NewWeighted(int64(c.maxConcurrent))
	var wg sync.WaitGroup
	for i := range tasks {
		// Background: admission is never cancelled, every task runs.
		if err := sem.Acquire(context.Background(), 1); err != nil {
			c.logger.Error("Failed to acquire crawl slot", "error", err)
			continue
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)

			notices, err := c.crawlBoard(ctx, tasks[i])
			results <- taskResult{index: i, notices: notices, err: err}

			c.pause(ctx)
		}(i)
	}

	wg.Wait()
	close(results)
	<-collected

	res.Elapsed = time.Since(start)
	c.metrics.RunFinished(res.Elapsed, len(res.Notices))
	c.logger.Info("Crawl finished",
		"boards", len(tasks),
		"failed", len(res.Failures),
		"notices", len(res.Notices),
		"elapsed", res.Elapsed,
	)

	return res
}

// CrawlAll is Crawl without the per-board report.
func (c *Crawler) CrawlAll(ctx context.Context, campuses []sitemap.Campus) []scraper.Notice {
	return c.Crawl(ctx, campuses).Notices
}

func (c *Crawler) crawlBoard(ctx context.Context, task scraper.Task) ([]scraper.Notice, error) {
	log := c.logger.With(
		"campus", task.Campus,
		"department", task.DepartmentName,
		"board", task.Board.Name,
	)

	page, err := c.fetcher.Fetch(ctx, task.Board.URL)
	if err != nil {
		log.Error("Error fetching board", "url", task.Board.URL, "error", err)
		c.metrics.BoardFailed()
		return nil, err
	}

	notices, err := c.extractor.Extract(page, task)
	if err != nil {
		log.Error("Error extracting board", "url", task.Board.URL, "error", err)
		c.metrics.BoardFailed()
		return nil, err
	}

	log.Debug("Board crawled", "notices", len(notices))
	c.metrics.BoardSucceeded(len(notices))
	return notices, nil
}

// pause sleeps for the per-slot delay. A cancelled context cuts it short.
func (c *Crawler) pause(ctx context.Context) {
	if c.delay <= 0 {
		return
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
