package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uring-crawler/internal/config"
	"uring-crawler/internal/crawler"
	"uring-crawler/internal/fetcher"
	"uring-crawler/internal/observability"
	"uring-crawler/internal/output"
	"uring-crawler/internal/scraper"
	"uring-crawler/internal/sitemap"
	"uring-crawler/internal/storage"
)

const noticePage = `<table>
<tr><td class="t"><a href="/view?id=1">Scholarship</a></td><td class="d">2024.03.01</td></tr>
<tr><td class="t"><a href="/view?id=2">Midterm schedule</a></td><td class="d">2024.03.02</td></tr>
</table>`

type stubFetcher struct {
	pages map[string]string
	calls atomic.Int32
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.calls.Add(1)
	page, ok := f.pages[url]
	if !ok {
		return "", &fetcher.FetchError{URL: url, StatusCode: 500}
	}
	return page, nil
}

type memRepo struct {
	mu    sync.Mutex
	saved map[string]int
	err   error
}

func (r *memRepo) SaveNotices(ctx context.Context, runID string, notices []scraper.Notice) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saved == nil {
		r.saved = make(map[string]int)
	}
	r.saved[runID] += len(notices)
	return len(notices), nil
}

func (r *memRepo) CountByRun(ctx context.Context, runID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved[runID], nil
}

func (r *memRepo) Close() error { return nil }

func testCampuses() []sitemap.Campus {
	b := func(id, url string) sitemap.Board {
		return sitemap.Board{
			ID: id, Name: "Board " + id, URL: url,
			RowSelector: "tr", TitleSelector: "td.t", DateSelector: "td.d", LinkSelector: "a", AttrName: "href",
		}
	}
	return []sitemap.Campus{{
		Name: "Sinchon",
		Departments: []sitemap.Department{{
			ID: "cs", Name: "Computer Science",
			Boards: []sitemap.Board{
				b("notice", "https://cs.example.ac.kr/notice"),
				b("broken", "https://cs.example.ac.kr/broken"),
			},
		}},
	}}
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Crawler.RequestDelayMS = 0
	cfg.Paths.Output = filepath.Join(t.TempDir(), "output")
	return cfg
}

func newTestOrchestrator(cfg *config.Config, f fetcher.Fetcher, repo *memRepo, out *bytes.Buffer) *Orchestrator {
	logger := observability.NewNop()
	metrics := observability.NewMetrics()
	c := crawler.New(cfg, f, logger, metrics)

	var r storage.Repository
	if repo != nil {
		r = repo
	}
	return NewOrchestrator(cfg, logger, metrics, c, output.NewConsole(out, cfg), r, testCampuses())
}

func TestRunOnce(t *testing.T) {
	cfg := testConfig(t)
	cfg.Observability.MetricsPath = filepath.Join(t.TempDir(), "uring.prom")
	f := &stubFetcher{pages: map[string]string{"https://cs.example.ac.kr/notice": noticePage}}
	repo := &memRepo{}
	var out bytes.Buffer

	stats, err := newTestOrchestrator(cfg, f, repo, &out).RunOnce(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, stats.RunID)
	require.Len(t, stats.Result.Notices, 2)
	assert.Equal(t, "https://cs.example.ac.kr/view?id=1", stats.Result.Notices[0].Link)
	require.Len(t, stats.Result.Failures, 1)
	assert.Equal(t, "broken", stats.Result.Failures[0].Task.Board.ID)

	require.Equal(t, []string{
		filepath.Join(cfg.Paths.Output, "Sinchon", "Computer Science", "Board-notice.json"),
	}, stats.Files)
	assert.FileExists(t, stats.Files[0])

	assert.Equal(t, 2, stats.Stored)
	count, err := repo.CountByRun(context.Background(), stats.RunID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	metrics, err := os.ReadFile(cfg.Observability.MetricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "uring_notices_extracted_total 2")

	assert.Contains(t, out.String(), "Saved notices to")
}

func TestRunOnceJSONDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.JSONEnabled = false
	f := &stubFetcher{pages: map[string]string{"https://cs.example.ac.kr/notice": noticePage}}

	stats, err := newTestOrchestrator(cfg, f, nil, &bytes.Buffer{}).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Empty(t, stats.Files)
	assert.NoDirExists(t, cfg.Paths.Output)
	assert.Zero(t, stats.Stored)
}

func TestRunOnceStorageError(t *testing.T) {
	cfg := testConfig(t)
	f := &stubFetcher{pages: map[string]string{"https://cs.example.ac.kr/notice": noticePage}}
	repo := &memRepo{err: errors.New("connection reset")}

	_, err := newTestOrchestrator(cfg, f, repo, &bytes.Buffer{}).RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, repo.err)
}

func TestRunOnceOutputError(t *testing.T) {
	cfg := testConfig(t)
	// a regular file where the output directory should be
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	cfg.Paths.Output = blocker
	f := &stubFetcher{pages: map[string]string{"https://cs.example.ac.kr/notice": noticePage}}

	_, err := newTestOrchestrator(cfg, f, nil, &bytes.Buffer{}).RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write output")
}

func TestRunOneshot(t *testing.T) {
	cfg := testConfig(t)
	f := &stubFetcher{pages: map[string]string{}}

	err := newTestOrchestrator(cfg, f, nil, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestRunInterval(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Mode = config.ModeInterval
	cfg.Scheduler.IntervalS = 1
	f := &stubFetcher{pages: map[string]string{"https://cs.example.ac.kr/notice": noticePage}}

	o := newTestOrchestrator(cfg, f, nil, &bytes.Buffer{})
	o.interval = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	require.Eventually(t, func() bool { return f.calls.Load() >= 6 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("interval scheduler did not stop")
	}
}

func TestRunCronInvalidExpression(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Mode = config.ModeCron
	cfg.Scheduler.CronExpr = "every tuesday"

	err := newTestOrchestrator(cfg, &stubFetcher{}, nil, &bytes.Buffer{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestRunCronStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Mode = config.ModeCron
	cfg.Scheduler.CronExpr = "0 3 * * *"
	f := &stubFetcher{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := newTestOrchestrator(cfg, f, nil, &bytes.Buffer{}).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, f.calls.Load())
}

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("30 6 * * 1-5")
	require.NoError(t, err)

	from := time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local) // Saturday
	assert.Equal(t, time.Date(2025, 3, 3, 6, 30, 0, 0, time.Local), s.Next(from))

	_, err = ParseSchedule("@daily")
	assert.NoError(t, err)

	_, err = ParseSchedule("* * *")
	assert.Error(t, err)
}

func TestGracefulShutdownStop(t *testing.T) {
	ctx, stop := GracefulShutdown(context.Background(), observability.NewNop())
	assert.NoError(t, ctx.Err())

	stop()
	stop()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
