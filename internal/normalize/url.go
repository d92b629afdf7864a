package normalize

import (
	"fmt"
	"net/url"
	"strings"
)

// URLError reports a board URL or href that cannot be used as a URL.
type URLError struct {
	URL string
	Err error
}

func (e *URLError) Error() string {
	return fmt.Sprintf("invalid url %q: %v", e.URL, e.Err)
}

func (e *URLError) Unwrap() error { return e.Err }

// ParseBase parses a board URL. It must be absolute, with scheme and host.
func ParseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &URLError{URL: raw, Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &URLError{URL: raw, Err: fmt.Errorf("missing scheme or host")}
	}
	return u, nil
}

// ResolveURL resolves href against base:
//   - http(s) hrefs are returned as is
//   - "//host/path" hrefs take the base's scheme
//   - "/path" hrefs are joined to the base's scheme and authority
//   - "?query" hrefs replace the base's query, "#frag" hrefs its fragment
//   - anything else is joined to the base's directory (up to the last "/")
//
// No dot-segment or query normalization is done.
func ResolveURL(base, href string) (string, error) {
	u, err := ParseBase(base)
	if err != nil {
		return "", err
	}
	return Resolve(u, href), nil
}

// Resolve is ResolveURL for an already parsed base.
func Resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return href
	}

	if strings.HasPrefix(href, "//") {
		return base.Scheme + ":" + href
	}

	if strings.HasPrefix(href, "#") {
		page := *base
		page.Fragment = ""
		page.RawFragment = ""
		return page.String() + href
	}

	origin := (&url.URL{Scheme: base.Scheme, User: base.User, Host: base.Host}).String()
	if strings.HasPrefix(href, "/") {
		return origin + href
	}

	path := base.EscapedPath()
	if strings.HasPrefix(href, "?") {
		return origin + path + href
	}

	dir := "/"
	if i := strings.LastIndex(path, "/"); i >= 0 {
		dir = path[:i+1]
	}
	return origin + dir + href
}
