package aggregate

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tremorlab/quake-hazard-service/internal/domain"
)

// windowCache is a process-wide TTL cache of aggregation results keyed by
// quantized fetch window. Expired entries are treated as absent and lazily
// overwritten by the next refresh; entries are never mutated in place.
type windowCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	created time.Time
	payload Result
}

func newWindowCache(ttl time.Duration) *windowCache {
	return &windowCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *windowCache) get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	if domain.Now().Sub(entry.created) >= c.ttl {
		return Result{}, false
	}
	return entry.payload, true
}

func (c *windowCache) put(key string, payload Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{created: domain.Now(), payload: payload}
}

// cacheKey quantizes a window so that near-identical queries share one entry:
// both ends truncated to seconds, minimum magnitude to one decimal.
func cacheKey(w domain.FetchWindow) string {
	return strings.Join([]string{
		w.Start.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05"),
		w.End.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05"),
		fmt.Sprintf("%.1f", w.MinMagnitude),
		strconv.Itoa(w.Limit),
	}, "|")
}
