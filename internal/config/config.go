package config

import (
	"fmt"
	"time"
)

type Config struct {
	Crawler       CrawlerConfig       `yaml:"crawler"`
	Paths         PathsConfig         `yaml:"paths"`
	Cleaning      CleaningConfig      `yaml:"cleaning"`
	Output        OutputConfig        `yaml:"output"`
	Logging       LoggingConfig       `yaml:"logging"`
	Rod           RodConfig           `yaml:"rod"`
	Storage       StorageConfig       `yaml:"storage"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type CrawlerConfig struct {
	UserAgent      string `yaml:"user_agent"`
	TimeoutSecs    int    `yaml:"timeout_secs"`
	RequestDelayMS int    `yaml:"request_delay_ms"`
	// MaxConcurrent of 0 is treated as 1.
	MaxConcurrent int `yaml:"max_concurrent"`
}

type PathsConfig struct {
	SiteMap string `yaml:"site_map"`
	Output  string `yaml:"output"`
}

// CleaningConfig holds the rules applied to every extracted title and date.
// Removals run before replacements, each in configured order.
type CleaningConfig struct {
	TitleRemovePatterns []string      `yaml:"title_remove_patterns"`
	DateRemovePatterns  []string      `yaml:"date_remove_patterns"`
	DateReplacements    []Replacement `yaml:"date_replacements"`
}

type Replacement struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type OutputConfig struct {
	ConsoleEnabled bool   `yaml:"console_enabled"`
	JSONEnabled    bool   `yaml:"json_enabled"`
	JSONPretty     bool   `yaml:"json_pretty"`
	NoticeFormat   string `yaml:"notice_format"`
}

type LoggingConfig struct {
	Level        string `yaml:"level"`
	ShowProgress bool   `yaml:"show_progress"`
	LogPath      string `yaml:"log_path"`
	MaxSizeMB    int    `yaml:"max_size_mb"`
	MaxBackups   int    `yaml:"max_backups"`
}

type RodConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ChromePath       string `yaml:"chrome_path"`
	PageTimeoutS     int    `yaml:"page_timeout_s"`
	WaitLoadTimeoutS int    `yaml:"wait_load_timeout_s"`
	LazyLoadDelayS   int    `yaml:"lazy_load_delay_s"`
}

type StorageConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
	BatchSize        int    `yaml:"batch_size"`
}

type SchedulerConfig struct {
	Mode      string `yaml:"mode"`
	IntervalS int    `yaml:"interval_s"`
	CronExpr  string `yaml:"cron_expr"`
}

type ObservabilityConfig struct {
	MetricsPath string `yaml:"metrics_path"`
}

const (
	ModeOneshot  = "oneshot"
	ModeInterval = "interval"
	ModeCron     = "cron"
)

// Default returns a Config where every field carries its default value.
func Default() *Config {
	return &Config{
		Crawler: CrawlerConfig{
			UserAgent:      "Mozilla/5.0 (compatible; uRing Crawler/0.1)",
			TimeoutSecs:    30,
			RequestDelayMS: 100,
			MaxConcurrent:  5,
		},
		Paths: PathsConfig{
			SiteMap: "data/siteMap.json",
			Output:  "data/output",
		},
		Output: OutputConfig{
			JSONEnabled:  true,
			JSONPretty:   true,
			NoticeFormat: "[{dept_name}:{board_name}] {title}\n   {date}\n   {link}",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ShowProgress: true,
			MaxSizeMB:    10,
			MaxBackups:   3,
		},
		Rod: RodConfig{
			PageTimeoutS:     30,
			WaitLoadTimeoutS: 15,
		},
		Storage: StorageConfig{
			Driver:           "mssql",
			CommandTimeoutMS: 5000,
			BatchSize:        100,
		},
		Scheduler: SchedulerConfig{
			Mode: ModeOneshot,
		},
	}
}

// Validation
func (c *Config) Validate() error {
	if c.Crawler.UserAgent == "" {
		return fmt.Errorf("crawler.user_agent is required")
	}
	if c.Crawler.TimeoutSecs <= 0 {
		return fmt.Errorf("crawler.timeout_secs must be > 0")
	}
	if c.Crawler.RequestDelayMS < 0 {
		return fmt.Errorf("crawler.request_delay_ms must be >= 0")
	}
	if c.Crawler.MaxConcurrent < 0 {
		return fmt.Errorf("crawler.max_concurrent must be >= 0")
	}
	if c.Paths.SiteMap == "" {
		return fmt.Errorf("paths.site_map is required")
	}
	if c.Output.JSONEnabled && c.Paths.Output == "" {
		return fmt.Errorf("paths.output is required when output.json_enabled is true")
	}
	for i, r := range c.Cleaning.DateReplacements {
		if r.From == "" {
			return fmt.Errorf("cleaning.date_replacements[%d].from must not be empty", i)
		}
	}
	if c.Rod.Enabled {
		if c.Rod.PageTimeoutS <= 0 {
			return fmt.Errorf("rod.page_timeout_s must be > 0")
		}
		if c.Rod.WaitLoadTimeoutS <= 0 {
			return fmt.Errorf("rod.wait_load_timeout_s must be > 0")
		}
		if c.Rod.LazyLoadDelayS < 0 {
			return fmt.Errorf("rod.lazy_load_delay_s must be >= 0")
		}
	}
	if c.Storage.Enabled {
		if c.Storage.Driver != "mssql" {
			return fmt.Errorf("storage.driver must be 'mssql'")
		}
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required when storage.enabled is true")
		}
		if c.Storage.CommandTimeoutMS <= 0 {
			return fmt.Errorf("storage.command_timeout_ms must be > 0")
		}
		if c.Storage.BatchSize <= 0 {
			return fmt.Errorf("storage.batch_size must be > 0")
		}
	}
	switch c.Scheduler.Mode {
	case ModeOneshot:
	case ModeInterval:
		if c.Scheduler.IntervalS <= 0 {
			return fmt.Errorf("scheduler.interval_s must be > 0 when mode is 'interval'")
		}
	case ModeCron:
		if c.Scheduler.CronExpr == "" {
			return fmt.Errorf("scheduler.cron_expr must be set when mode is 'cron'")
		}
	default:
		return fmt.Errorf("scheduler.mode must be 'oneshot', 'interval' or 'cron'")
	}
	return nil
}

// Getters
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSecs) * time.Second
}

func (c *Config) GetRequestDelay() time.Duration {
	return time.Duration(c.Crawler.RequestDelayMS) * time.Millisecond
}

// GetMaxConcurrent never returns less than one.
func (c *Config) GetMaxConcurrent() int {
	if c.Crawler.MaxConcurrent <= 0 {
		return 1
	}
	return c.Crawler.MaxConcurrent
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Storage.CommandTimeoutMS) * time.Millisecond
}

func (c *Config) GetSchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalS) * time.Second
}

func (c *Config) GetRodPageTimeout() time.Duration {
	return time.Duration(c.Rod.PageTimeoutS) * time.Second
}

func (c *Config) GetRodWaitLoadTimeout() time.Duration {
	return time.Duration(c.Rod.WaitLoadTimeoutS) * time.Second
}

func (c *Config) GetRodLazyLoadDelay() time.Duration {
	return time.Duration(c.Rod.LazyLoadDelayS) * time.Second
}
