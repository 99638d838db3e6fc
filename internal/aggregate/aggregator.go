// Package aggregate merges the upstream seismic feeds into one canonical
// event stream: concurrent settle-all fan-out, cross-provider dedup,
// time-descending ordering, and a TTL-cached window result.
package aggregate

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/tremorlab/quake-hazard-service/internal/adapter/feeds"
	"github.com/tremorlab/quake-hazard-service/internal/domain"
	"github.com/tremorlab/quake-hazard-service/internal/observability"
)

const (
	defaultLookbackDays   = 30
	defaultMinMagnitude   = 2.0
	defaultLimitPerSource = 500

	publishTimeout = 30 * time.Second
)

// Query is an event-window request as issued by a caller.
type Query struct {
	// City optionally filters results by locality match. Filtering happens
	// after cache retrieval, so one cached window serves any city.
	City string
	// LookbackDays bounds the window; values <= 0 use the default of 30.
	LookbackDays int
	// MinMagnitude is the magnitude floor; nil uses the default of 2.
	// Zero is a valid explicit floor.
	MinMagnitude *float64
	// LimitPerSource caps each provider's result; values <= 0 use 500.
	LimitPerSource int
}

// Result is one aggregation outcome: the merged canonical events plus the
// per-provider diagnostics for the cycle that produced them.
type Result struct {
	Events     []domain.Event      `json:"events"`
	SourceMeta []domain.SourceMeta `json:"sourceMeta"`
}

// EventPublisher receives the merged canonical events of each fresh
// aggregation cycle.
type EventPublisher interface {
	PublishEvents(ctx context.Context, events []domain.Event) error
}

// Service owns the fan-out across providers and the window cache.
type Service struct {
	adapters  []feeds.Adapter
	cache     *windowCache
	publisher EventPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService creates an aggregation service over the given adapters.
// publisher may be nil to disable canonical stream publishing.
func NewService(adapters []feeds.Adapter, ttl time.Duration, publisher EventPublisher, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		adapters:  adapters,
		cache:     newWindowCache(ttl),
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CityEvents answers an event-window query. The call never fails: provider
// errors are absorbed into SourceMeta, and a cycle where every provider is
// down yields an empty event list with all meta entries marked failed.
func (s *Service) CityEvents(ctx context.Context, q Query) Result {
	window := s.windowFor(q)

	aggregated := s.windowEvents(ctx, window)

	needle := domain.FoldText(q.City)
	if needle == "" {
		return aggregated
	}

	filtered := make([]domain.Event, 0, len(aggregated.Events))
	for _, event := range aggregated.Events {
		if domain.MatchesLocality(event, needle) {
			filtered = append(filtered, event)
		}
	}
	return Result{Events: filtered, SourceMeta: aggregated.SourceMeta}
}

func (s *Service) windowFor(q Query) domain.FetchWindow {
	lookback := q.LookbackDays
	if lookback <= 0 {
		lookback = defaultLookbackDays
	}
	minMag := defaultMinMagnitude
	if q.MinMagnitude != nil && *q.MinMagnitude >= 0 {
		minMag = *q.MinMagnitude
	}
	limit := q.LimitPerSource
	if limit <= 0 {
		limit = defaultLimitPerSource
	}

	now := domain.Now()
	return domain.FetchWindow{
		Start:        now.Add(-time.Duration(lookback) * 24 * time.Hour),
		End:          now,
		MinMagnitude: minMag,
		Limit:        limit,
	}
}

// windowEvents returns the cached result for the window, refreshing it with
// a settle-all fan-out when absent or expired.
func (s *Service) windowEvents(ctx context.Context, window domain.FetchWindow) Result {
	key := cacheKey(window)
	if cached, ok := s.cache.get(key); ok {
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return cached
	}
	s.metrics.CacheLookups.WithLabelValues("miss").Inc()

	type outcome struct {
		events []domain.Event
		err    error
	}

	outcomes := make([]outcome, len(s.adapters))
	var wg sync.WaitGroup
	for i, adapter := range s.adapters {
		wg.Add(1)
		go func(i int, adapter feeds.Adapter) {
			defer wg.Done()
			start := time.Now()
			events, err := adapter.Fetch(ctx, window)
			s.metrics.ProviderFetchDuration.WithLabelValues(adapter.Key()).Observe(time.Since(start).Seconds())
			outcomes[i] = outcome{events: events, err: err}
		}(i, adapter)
	}
	// Settle-all: wait for every provider, no short-circuit on first failure.
	wg.Wait()

	meta := make([]domain.SourceMeta, len(s.adapters))
	var collected []domain.Event
	for i, adapter := range s.adapters {
		meta[i] = domain.SourceMeta{Key: adapter.Key(), Label: adapter.Label()}
		if err := outcomes[i].err; err != nil {
			meta[i].Error = err.Error()
			s.metrics.ProviderFetches.WithLabelValues(adapter.Key(), "error").Inc()
			s.logger.Warn("provider fetch failed",
				"provider", adapter.Key(),
				"error", err,
			)
			continue
		}
		meta[i].OK = true
		meta[i].Count = len(outcomes[i].events)
		collected = append(collected, outcomes[i].events...)
		s.metrics.ProviderFetches.WithLabelValues(adapter.Key(), "success").Inc()
		s.metrics.ProviderEvents.WithLabelValues(adapter.Key()).Add(float64(len(outcomes[i].events)))
	}

	events := sortEventsDesc(dedupeEvents(collected))
	s.metrics.AggregatedEvents.Observe(float64(len(events)))

	result := Result{Events: events, SourceMeta: meta}
	s.cache.put(key, result)

	if s.publisher != nil && len(events) > 0 {
		go s.publish(events)
	}

	return result
}

// publish pushes a fresh cycle's canonical events to the sink. A caller that
// triggered the refresh should not wait on the sink, so this runs detached
// with its own deadline.
func (s *Service) publish(events []domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.publisher.PublishEvents(ctx, events); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Warn("canonical event publish failed", "error", err, "events", len(events))
		return
	}
	s.metrics.EventsPublished.Add(float64(len(events)))
}

// dedupeEvents collapses duplicate readings by case-insensitive (source, id).
// First occurrence wins. Applying it to an already-deduplicated list is a
// no-op.
func dedupeEvents(events []domain.Event) []domain.Event {
	seen := make(map[string]struct{}, len(events))
	deduped := make([]domain.Event, 0, len(events))
	for _, event := range events {
		key := event.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, event)
	}
	return deduped
}

// sortEventsDesc orders events newest first. Events without a parseable time
// sort as the Unix epoch, i.e. to the oldest end.
func sortEventsDesc(events []domain.Event) []domain.Event {
	sorted := make([]domain.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return eventInstant(sorted[i]).After(eventInstant(sorted[j]))
	})
	return sorted
}

func eventInstant(e domain.Event) time.Time {
	if e.Time == nil {
		return time.Unix(0, 0)
	}
	return *e.Time
}
