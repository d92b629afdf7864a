package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"uring-crawler/internal/config"
	"uring-crawler/internal/crawler"
	"uring-crawler/internal/observability"
	"uring-crawler/internal/output"
	"uring-crawler/internal/sitemap"
	"uring-crawler/internal/storage"
)

type Orchestrator struct {
	cfg      *config.Config
	logger   *observability.Logger
	metrics  *observability.Metrics
	crawler  *crawler.Crawler
	files    *output.FileWriter
	console  *output.Console
	repo     storage.Repository // nil when the SQL sink is disabled
	campuses []sitemap.Campus
	interval time.Duration
}

func NewOrchestrator(
	cfg *config.Config,
	logger *observability.Logger,
	metrics *observability.Metrics,
	c *crawler.Crawler,
	console *output.Console,
	repo storage.Repository,
	campuses []sitemap.Campus,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		crawler:  c,
		files:    output.NewFileWriter(cfg, logger),
		console:  console,
		repo:     repo,
		campuses: campuses,
		interval: cfg.GetSchedulerInterval(),
	}
}

// RunStats describes one completed run.
type RunStats struct {
	RunID  string
	Result *crawler.Result
	Files  []string
	Stored int
}

// RunOnce crawls every board once and hands the notices to every enabled sink.
// Board failures are reported in the stats; sink failures end the run with an error.
func (o *Orchestrator) RunOnce(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{RunID: uuid.NewString()}
	log := o.logger.With("run_id", stats.RunID)

	o.console.Starting(o.campuses)
	log.Info("Run started",
		"departments", sitemap.CountDepartments(o.campuses),
		"boards", sitemap.CountBoards(o.campuses),
	)

	res := o.crawler.Crawl(ctx, o.campuses)
	stats.Result = res

	o.console.Notices(res.Notices)

	if o.cfg.Output.JSONEnabled {
		files, err := o.files.Write(output.Group(res.Notices))
		stats.Files = files
		if err != nil {
			log.Error("Failed to write output", "error", err)
			return stats, fmt.Errorf("failed to write output: %w", err)
		}
		o.console.Saved(o.cfg.Paths.Output)
	}

	o.console.Summary(res)

	if o.repo != nil {
		stored, err := o.repo.SaveNotices(ctx, stats.RunID, res.Notices)
		stats.Stored = stored
		if err != nil {
			log.Error("Failed to store notices", "stored", stored, "error", err)
			return stats, fmt.Errorf("failed to store notices: %w", err)
		}
	}

	if path := o.cfg.Observability.MetricsPath; path != "" {
		if err := o.metrics.WriteTextfile(path); err != nil {
			log.Warn("Failed to write metrics", "path", path, "error", err)
		}
	}

	log.Info("Run completed",
		"notices", len(res.Notices),
		"failed_boards", len(res.Failures),
		"files", len(stats.Files),
		"stored", stats.Stored,
		"elapsed", res.Elapsed,
	)
	return stats, nil
}

// Run executes runs according to scheduler.mode until ctx is cancelled.
// In oneshot mode the error of the single run is returned; in the
// repeating modes a failed run is logged and the next one still happens.
func (o *Orchestrator) Run(ctx context.Context) error {
	switch o.cfg.Scheduler.Mode {
	case config.ModeInterval:
		return o.runInterval(ctx)
	case config.ModeCron:
		return o.runCron(ctx)
	default:
		_, err := o.RunOnce(ctx)
		return err
	}
}

func (o *Orchestrator) runInterval(ctx context.Context) error {
	o.logger.Info("Interval mode", "interval", o.interval)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		o.runLogged(ctx)

		select {
		case <-ctx.Done():
			o.logger.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) runCron(ctx context.Context) error {
	schedule, err := ParseSchedule(o.cfg.Scheduler.CronExpr)
	if err != nil {
		return err
	}

	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	c.Schedule(schedule, cron.FuncJob(func() { o.runLogged(ctx) }))

	o.logger.Info("Cron mode", "expr", o.cfg.Scheduler.CronExpr, "next", schedule.Next(time.Now()))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	o.logger.Info("Scheduler stopped")
	return nil
}

func (o *Orchestrator) runLogged(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := o.RunOnce(ctx); err != nil {
		o.logger.Error("Run failed", "error", err)
	}
}

// ParseSchedule parses a standard five-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}
