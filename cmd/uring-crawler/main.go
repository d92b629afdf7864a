package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"uring-crawler/internal/app"
	"uring-crawler/internal/config"
	"uring-crawler/internal/crawler"
	"uring-crawler/internal/fetcher"
	"uring-crawler/internal/observability"
	"uring-crawler/internal/output"
	"uring-crawler/internal/storage"
	"uring-crawler/internal/storage/mssql"
)

var version = "dev"

type options struct {
	configPath string
	siteMap    string
	outputDir  string
	quiet      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "uring-crawler",
		Short: "Crawl university notice boards into JSON files",
		Long: `uring-crawler fetches every notice board listed in the site map,
extracts title, date and link of each notice and writes one JSON file
per board under the output directory.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawler(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "data/config.yaml", "path to the YAML config file")
	root.PersistentFlags().StringVar(&opts.siteMap, "site-map", "", "site map file (overrides paths.site_map)")
	root.Flags().StringVarP(&opts.outputDir, "output", "o", "", "output directory (overrides paths.output)")
	root.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "disable console and progress output")

	root.AddCommand(newBoardsCmd(opts), newVersionCmd())
	return root
}

func newBoardsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "boards",
		Short: "List every board in the site map",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			campuses, err := config.LoadSiteMap(cfg.Paths.SiteMap)
			if err != nil {
				return err
			}
			output.Boards(cmd.OutOrStdout(), campuses)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "uring-crawler %s\n", version)
		},
	}
}

// loadConfig reads the config file, applies flag overrides and validates the result.
func loadConfig(opts *options) (*config.Config, bool, error) {
	cfg, defaulted, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.siteMap != "" {
		cfg.Paths.SiteMap = opts.siteMap
	}
	if opts.outputDir != "" {
		cfg.Paths.Output = opts.outputDir
	}
	if opts.quiet {
		cfg.Output.ConsoleEnabled = false
		cfg.Logging.ShowProgress = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("config validation error: %w", err)
	}
	return cfg, defaulted, nil
}

func runCrawler(parent context.Context, opts *options, stdout io.Writer) error {
	cfg, defaulted, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Logging)
	defer func() { _ = logger.Sync() }()

	if defaulted {
		logger.Warn("Config file not found, using defaults", "path", opts.configPath)
	}

	campuses, err := config.LoadSiteMap(cfg.Paths.SiteMap)
	if err != nil {
		logger.Error("Failed to load site map", "path", cfg.Paths.SiteMap, "error", err)
		return err
	}

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}
	if closer, ok := f.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Warn("Failed to close fetcher", "error", err)
			}
		}()
	}

	var repo storage.Repository
	if cfg.Storage.Enabled {
		r, err := mssql.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), cfg.Storage.BatchSize, logger)
		if err != nil {
			return fmt.Errorf("failed to connect storage: %w", err)
		}
		defer func() {
			if err := r.Close(); err != nil {
				logger.Warn("Failed to close storage", "error", err)
			}
		}()
		repo = r
	}

	metrics := observability.NewMetrics()
	orchestrator := app.NewOrchestrator(
		cfg,
		logger,
		metrics,
		crawler.New(cfg, f, logger, metrics),
		output.NewConsole(stdout, cfg),
		repo,
		campuses,
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := app.GracefulShutdown(parent, logger)
	defer stop()

	return orchestrator.Run(ctx)
}
