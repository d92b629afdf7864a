package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uring-crawler/internal/config"
	"uring-crawler/internal/fetcher"
	"uring-crawler/internal/observability"
	"uring-crawler/internal/scraper"
	"uring-crawler/internal/sitemap"
)

// mapFetcher serves pages from memory and records peak concurrency.
type mapFetcher struct {
	pages map[string]string
	hold  time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	calls    []string
}

func (f *mapFetcher) Fetch(ctx context.Context, url string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if f.hold > 0 {
		time.Sleep(f.hold)
	}

	page, ok := f.pages[url]
	if !ok {
		return "", &fetcher.FetchError{URL: url, StatusCode: 404}
	}
	return page, nil
}

func listPage(titles ...string) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for i, title := range titles {
		fmt.Fprintf(&b, `<li><a href="view?id=%d">%s</a><span>2024-01-%02d</span></li>`, i+1, title, i+1)
	}
	b.WriteString("</ul>")
	return b.String()
}

func board(id, url string) sitemap.Board {
	return sitemap.Board{
		ID:            id,
		Name:          "Board " + id,
		URL:           url,
		RowSelector:   "ul > li",
		TitleSelector: "a",
		DateSelector:  "span",
		AttrName:      "href",
	}
}

func testCampuses() []sitemap.Campus {
	return []sitemap.Campus{
		{
			Name: "Sinchon",
			Colleges: []sitemap.College{{
				Name: "Engineering",
				Departments: []sitemap.Department{{
					ID: "cs", Name: "Computer Science",
					Boards: []sitemap.Board{board("cs-notice", "https://cs.example.ac.kr/notice/"), board("cs-jobs", "https://cs.example.ac.kr/jobs/")},
				}},
			}},
			Departments: []sitemap.Department{{
				ID: "library", Name: "Library",
				Boards: []sitemap.Board{board("lib-news", "https://lib.example.ac.kr/news/")},
			}},
		},
		{
			Name: "Mirae",
			Departments: []sitemap.Department{{
				ID: "dorm", Name: "Dormitory",
				Boards: []sitemap.Board{board("dorm", "https://dorm.example.ac.kr/")},
			}},
		},
	}
}

func testPages() map[string]string {
	return map[string]string{
		"https://cs.example.ac.kr/notice/": listPage("Midterm", "Seminar", "Holiday"),
		"https://cs.example.ac.kr/jobs/":   listPage("Internship"),
		"https://lib.example.ac.kr/news/":  listPage("Opening hours", ""),
		"https://dorm.example.ac.kr/":      listPage("Move-in", "Inspection"),
	}
}

func newCrawler(f fetcher.Fetcher, mutate func(*config.Config)) *Crawler {
	cfg := config.Default()
	cfg.Crawler.RequestDelayMS = 0
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg, f, observability.NewNop(), observability.NewMetrics())
}

func TestTasksOrder(t *testing.T) {
	tasks := Tasks(testCampuses())
	require.Len(t, tasks, 4)

	got := make([]string, 0, len(tasks))
	for _, task := range tasks {
		got = append(got, task.Campus+"|"+task.College+"|"+task.DepartmentID+"|"+task.Board.ID)
	}
	assert.Equal(t, []string{
		"Sinchon|Engineering|cs|cs-notice",
		"Sinchon|Engineering|cs|cs-jobs",
		"Sinchon||library|lib-news",
		"Mirae||dorm|dorm",
	}, got)
}

func TestCrawlAllCollectsEveryBoard(t *testing.T) {
	f := &mapFetcher{pages: testPages()}
	c := newCrawler(f, nil)

	notices := c.CrawlAll(context.Background(), testCampuses())

	// 3 + 1 + 1 (empty title dropped) + 2
	assert.Len(t, notices, 7)
	assert.Len(t, f.calls, 4)

	byBoard := map[string][]scraper.Notice{}
	for _, n := range notices {
		byBoard[n.BoardID] = append(byBoard[n.BoardID], n)
	}

	cs := byBoard["cs-notice"]
	require.Len(t, cs, 3)
	assert.Equal(t, []string{"Midterm", "Seminar", "Holiday"}, []string{cs[0].Title, cs[1].Title, cs[2].Title})
	assert.Equal(t, "Engineering", cs[0].College)
	assert.Equal(t, "Computer Science", cs[0].DepartmentName)
	assert.Equal(t, "https://cs.example.ac.kr/notice/view?id=1", cs[0].Link)

	lib := byBoard["lib-news"]
	require.Len(t, lib, 1)
	assert.Empty(t, lib[0].College)
	assert.Equal(t, "Sinchon", lib[0].Campus)
}

func TestCrawlKeepsBoardNoticesContiguous(t *testing.T) {
	c := newCrawler(&mapFetcher{pages: testPages(), hold: 5 * time.Millisecond}, nil)

	notices := c.CrawlAll(context.Background(), testCampuses())

	seen := map[string]bool{}
	prev := ""
	for _, n := range notices {
		if n.BoardID != prev {
			require.False(t, seen[n.BoardID], "board %s interleaved", n.BoardID)
			seen[n.BoardID] = true
			prev = n.BoardID
		}
	}
}

func TestCrawlIsolatesInvalidSelector(t *testing.T) {
	campuses := testCampuses()
	campuses[0].Colleges[0].Departments[0].Boards[0].RowSelector = "ul > li["

	c := newCrawler(&mapFetcher{pages: testPages()}, nil)
	res := c.Crawl(context.Background(), campuses)

	assert.Len(t, res.Notices, 4)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "cs-notice", res.Failures[0].Task.Board.ID)

	var selErr *scraper.SelectorError
	assert.True(t, errors.As(res.Failures[0].Err, &selErr))
}

func TestCrawlIsolatesFetchAndURLErrors(t *testing.T) {
	campuses := testCampuses()
	campuses[1].Departments[0].Boards[0].URL = "https://dorm.example.ac.kr/missing"
	campuses[0].Departments[0].Boards[0].URL = "lib.example.ac.kr/news/"

	pages := testPages()
	pages["lib.example.ac.kr/news/"] = listPage("Unreachable")

	c := newCrawler(&mapFetcher{pages: pages}, nil)
	res := c.Crawl(context.Background(), campuses)

	assert.Len(t, res.Notices, 4)
	require.Len(t, res.Failures, 2)

	failed := map[string]error{}
	for _, f := range res.Failures {
		failed[f.Task.Board.ID] = f.Err
	}

	var fetchErr *fetcher.FetchError
	assert.True(t, errors.As(failed["dorm"], &fetchErr))
	require.Contains(t, failed, "lib-news")

	require.Len(t, res.Boards, 4)
	assert.Equal(t, 3, res.Boards[0].Notices)
	assert.Error(t, res.Boards[2].Err)
}

func TestCrawlNoBoards(t *testing.T) {
	c := newCrawler(&mapFetcher{}, nil)

	res := c.Crawl(context.Background(), nil)
	assert.Empty(t, res.Notices)
	assert.Empty(t, res.Failures)
}

func manyBoards(n int) ([]sitemap.Campus, map[string]string) {
	pages := map[string]string{}
	dept := sitemap.Department{ID: "d", Name: "Dept"}
	for i := 0; i < n; i++ {
		url := fmt.Sprintf("https://example.ac.kr/board/%d/", i)
		pages[url] = listPage("a", "b")
		dept.Boards = append(dept.Boards, board(fmt.Sprintf("b%d", i), url))
	}
	return []sitemap.Campus{{Name: "C", Departments: []sitemap.Department{dept}}}, pages
}

func TestCrawlRespectsConcurrencyCap(t *testing.T) {
	for _, limit := range []int{0, 1, 3, 8} {
		t.Run(fmt.Sprintf("max_concurrent=%d", limit), func(t *testing.T) {
			campuses, pages := manyBoards(12)
			f := &mapFetcher{pages: pages, hold: 10 * time.Millisecond}
			c := newCrawler(f, func(cfg *config.Config) { cfg.Crawler.MaxConcurrent = limit })

			notices := c.CrawlAll(context.Background(), campuses)
			assert.Len(t, notices, 24)

			want := limit
			if want == 0 {
				want = 1
			}
			assert.LessOrEqual(t, int(f.peak.Load()), want)
			assert.GreaterOrEqual(t, int(f.peak.Load()), 1)
		})
	}
}

func TestCrawlDelayHoldsSlot(t *testing.T) {
	campuses, pages := manyBoards(3)
	c := newCrawler(&mapFetcher{pages: pages}, func(cfg *config.Config) {
		cfg.Crawler.MaxConcurrent = 1
		cfg.Crawler.RequestDelayMS = 40
	})

	start := time.Now()
	notices := c.CrawlAll(context.Background(), campuses)

	assert.Len(t, notices, 6)
	assert.GreaterOrEqual(t, time.Since(start), 120*time.Millisecond)
}

func TestCrawlCancelledContextStillReturns(t *testing.T) {
	campuses, pages := manyBoards(4)
	c := newCrawler(&mapFetcher{pages: pages}, func(cfg *config.Config) {
		cfg.Crawler.RequestDelayMS = 10_000
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan *Result, 1)
	go func() { done <- c.Crawl(ctx, campuses) }()

	select {
	case res := <-done:
		assert.Len(t, res.Notices, 8)
	case <-time.After(5 * time.Second):
		t.Fatal("crawl did not return")
	}
}
