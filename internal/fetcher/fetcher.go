package fetcher

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"uring-crawler/internal/config"
	"uring-crawler/internal/observability"
)

// Fetcher returns the HTML of one page. Implementations own their transport
// details; the crawler only needs one text response per call.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetchError is returned for transport failures and HTTP error statuses.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// New returns the browser fetcher when rod is enabled, the HTTP fetcher otherwise.
func New(cfg *config.Config, logger *observability.Logger) (Fetcher, error) {
	if cfg.Rod.Enabled {
		return NewBrowserFetcher(cfg, logger)
	}
	return NewHTTPFetcher(cfg, logger), nil
}

type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	logger    *observability.Logger
}

func NewHTTPFetcher(cfg *config.Config, logger *observability.Logger) *HTTPFetcher {
	client := &http.Client{
		Timeout: cfg.GetTimeout(),
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &HTTPFetcher{
		client:    client,
		userAgent: cfg.Crawler.UserAgent,
		logger:    logger,
	}
}

// Fetch issues a single GET. There are no retries.
func (f *HTTPFetcher) Fetch(ctx context.Context, urlStr string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", &FetchError{URL: urlStr, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: urlStr, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.Warn("Failed to close response body", "url", urlStr, "error", err)
		}
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", &FetchError{URL: urlStr, StatusCode: resp.StatusCode}
	}

	reader := resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", &FetchError{URL: urlStr, Err: err}
		}
		defer func() { _ = gzipReader.Close() }()
		reader = gzipReader
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", &FetchError{URL: urlStr, Err: err}
	}

	contentType := resp.Header.Get("Content-Type")
	page, err := decodeBody(body, contentType)
	if err != nil {
		return "", &FetchError{URL: urlStr, Err: err}
	}

	f.logger.Debug("Fetched page",
		"url", urlStr,
		"status", resp.StatusCode,
		"content_type", contentType,
		"bytes", len(body),
	)

	return page, nil
}

// decodeBody converts the body to UTF-8. The Content-Type charset wins;
// without one, valid UTF-8 is kept and anything else goes through the
// <meta> prescan of the HTML charset detector.
func decodeBody(body []byte, contentType string) (string, error) {
	if charsetParam(contentType) == "" && utf8.Valid(body) {
		return string(body), nil
	}

	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" {
		return string(body), nil
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(decoded), nil
}

func charsetParam(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
