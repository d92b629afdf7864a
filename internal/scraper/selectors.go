package scraper

import (
	"sync"

	"github.com/andybalholm/cascadia"
)

// selectorCache keeps compiled selectors so boards crawled repeatedly in one
// process are only compiled once. Failures are not cached.
type selectorCache struct {
	mu       sync.RWMutex
	compiled map[string]cascadia.Selector
}

func newSelectorCache() *selectorCache {
	return &selectorCache{compiled: make(map[string]cascadia.Selector)}
}

func (c *selectorCache) compile(selector string) (cascadia.Selector, error) {
	c.mu.RLock()
	sel, ok := c.compiled[selector]
	c.mu.RUnlock()
	if ok {
		return sel, nil
	}

	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, &SelectorError{Selector: selector, Message: err.Error()}
	}

	c.mu.Lock()
	c.compiled[selector] = sel
	c.mu.Unlock()
	return sel, nil
}

func (c *selectorCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.compiled)
}
