package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"uring-crawler/internal/config"
	"uring-crawler/internal/observability"
)

// BrowserFetcher renders pages in headless Chromium, for boards whose rows
// are built by JavaScript. One browser is shared; each fetch opens a tab.
type BrowserFetcher struct {
	cfg       *config.Config
	logger    *observability.Logger
	userAgent string

	mu      sync.Mutex
	browser *rod.Browser
}

func NewBrowserFetcher(cfg *config.Config, logger *observability.Logger) (*BrowserFetcher, error) {
	return &BrowserFetcher{
		cfg:       cfg,
		logger:    logger,
		userAgent: cfg.Crawler.UserAgent,
	}, nil
}

// connect launches the browser on first use.
func (f *BrowserFetcher) connect() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	l := launcher.New().Headless(true)
	if f.cfg.Rod.ChromePath != "" {
		l = l.Bin(f.cfg.Rod.ChromePath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	f.logger.Info("Browser started", "control_url", controlURL)
	f.browser = browser
	return browser, nil
}

func (f *BrowserFetcher) Fetch(ctx context.Context, urlStr string) (string, error) {
	browser, err := f.connect()
	if err != nil {
		return "", &FetchError{URL: urlStr, Err: err}
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", &FetchError{URL: urlStr, Err: fmt.Errorf("failed to open tab: %w", err)}
	}
	defer func() {
		if err := page.Close(); err != nil {
			f.logger.Warn("Failed to close tab", "url", urlStr, "error", err)
		}
	}()

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.userAgent}); err != nil {
		return "", &FetchError{URL: urlStr, Err: err}
	}

	tab := page.Timeout(f.cfg.GetRodPageTimeout())
	if err := tab.Navigate(urlStr); err != nil {
		return "", &FetchError{URL: urlStr, Err: fmt.Errorf("navigate: %w", err)}
	}

	if err := tab.Timeout(f.cfg.GetRodWaitLoadTimeout()).WaitLoad(); err != nil {
		return "", &FetchError{URL: urlStr, Err: fmt.Errorf("wait load: %w", err)}
	}

	if delay := f.cfg.GetRodLazyLoadDelay(); delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", &FetchError{URL: urlStr, Err: ctx.Err()}
		}
	}

	html, err := tab.HTML()
	if err != nil {
		return "", &FetchError{URL: urlStr, Err: fmt.Errorf("read html: %w", err)}
	}
	return html, nil
}

// Close shuts the browser down if it was started.
func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.browser = nil
	return err
}
