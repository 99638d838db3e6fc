package aggregate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tremorlab/quake-hazard-service/internal/adapter/feeds"
	"github.com/tremorlab/quake-hazard-service/internal/domain"
	"github.com/tremorlab/quake-hazard-service/internal/observability"
)

// stubAdapter is a scripted provider for aggregation tests.
type stubAdapter struct {
	key    string
	label  string
	events []domain.Event
	err    error

	mu    sync.Mutex
	calls int
}

func (a *stubAdapter) Key() string   { return a.key }
func (a *stubAdapter) Label() string { return a.label }

func (a *stubAdapter) Fetch(_ context.Context, _ domain.FetchWindow) ([]domain.Event, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	return a.events, nil
}

func (a *stubAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// captureAdapter records the window it was fetched with.
type captureAdapter struct {
	onFetch func(domain.FetchWindow)
}

func (a *captureAdapter) Key() string   { return "capture" }
func (a *captureAdapter) Label() string { return "Capture" }

func (a *captureAdapter) Fetch(_ context.Context, w domain.FetchWindow) ([]domain.Event, error) {
	a.onFetch(w)
	return nil, nil
}

func adapterList(stubs []*stubAdapter) []feeds.Adapter {
	adapters := make([]feeds.Adapter, len(stubs))
	for i, s := range stubs {
		adapters[i] = s
	}
	return adapters
}

func ts(t *testing.T, ttl time.Duration, adapters ...*stubAdapter) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(adapterList(adapters), ttl, nil, logger, observability.NewMetricsForTesting())
	return svc
}

func eventAt(source domain.Source, id string, at *time.Time) domain.Event {
	return domain.Event{ID: id, Source: source, Time: at}
}

func utc(y int, m time.Month, d, hh int) *time.Time {
	t := time.Date(y, m, d, hh, 0, 0, 0, time.UTC)
	return &t
}

func TestCityEvents_SettleAll(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	defer domain.SetClock(nil)

	p1 := &stubAdapter{key: "usgs", label: "USGS", events: []domain.Event{
		eventAt(domain.SourceUSGS, "a", utc(2025, 1, 10, 0)),
	}}
	p2 := &stubAdapter{key: "emsc", label: "EMSC", events: []domain.Event{
		// Same physical reading under a case-differing ID.
		eventAt(domain.SourceUSGS, "A", utc(2025, 1, 10, 0)),
		eventAt(domain.SourceEMSC, "b", utc(2025, 1, 11, 0)),
	}}
	p3 := &stubAdapter{key: "iris", label: "IRIS", err: errors.New("connection refused")}

	svc := ts(t, 10*time.Minute, p1, p2, p3)
	result := svc.CityEvents(context.Background(), Query{})

	// Cross-provider dedup keeps 2 events, newest first.
	require.Len(t, result.Events, 2)
	assert.Equal(t, "b", result.Events[0].ID)
	assert.Equal(t, "a", result.Events[1].ID)

	require.Len(t, result.SourceMeta, 3)
	assert.True(t, result.SourceMeta[0].OK)
	assert.Equal(t, 1, result.SourceMeta[0].Count)
	assert.True(t, result.SourceMeta[1].OK)
	assert.Equal(t, 2, result.SourceMeta[1].Count)
	assert.False(t, result.SourceMeta[2].OK)
	assert.Contains(t, result.SourceMeta[2].Error, "connection refused")
}

func TestCityEvents_AllProvidersDown(t *testing.T) {
	p1 := &stubAdapter{key: "usgs", label: "USGS", err: errors.New("timeout")}
	p2 := &stubAdapter{key: "emsc", label: "EMSC", err: errors.New("HTTP 502")}

	svc := ts(t, 10*time.Minute, p1, p2)
	result := svc.CityEvents(context.Background(), Query{})

	// Valid, non-exceptional result: empty events, all meta failed.
	assert.Empty(t, result.Events)
	require.Len(t, result.SourceMeta, 2)
	assert.False(t, result.SourceMeta[0].OK)
	assert.False(t, result.SourceMeta[1].OK)
}

func TestCityEvents_CacheTTL(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	defer domain.SetClock(nil)

	p := &stubAdapter{key: "usgs", label: "USGS", events: []domain.Event{
		eventAt(domain.SourceUSGS, "a", utc(2025, 1, 10, 0)),
	}}
	svc := ts(t, 10*time.Minute, p)

	first := svc.CityEvents(context.Background(), Query{})
	second := svc.CityEvents(context.Background(), Query{})

	assert.Equal(t, 1, p.callCount(), "second query within TTL must hit the cache")
	assert.Equal(t, first, second)

	// Advancing past the TTL moves the window too, so the next query both
	// misses the old key and computes a new one: a fresh fetch either way.
	fake.Advance(11 * time.Minute)
	svc.CityEvents(context.Background(), Query{})
	assert.Equal(t, 2, p.callCount())
}

func TestCityEvents_LocalityFilterAfterCache(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	defer domain.SetClock(nil)

	izmir := eventAt(domain.SourceAFAD, "1", utc(2025, 1, 12, 0))
	izmir.City = "İzmir"
	ankara := eventAt(domain.SourceAFAD, "2", utc(2025, 1, 13, 0))
	ankara.City = "Ankara"

	p := &stubAdapter{key: "afad", label: "AFAD", events: []domain.Event{izmir, ankara}}
	svc := ts(t, 10*time.Minute, p)

	all := svc.CityEvents(context.Background(), Query{})
	require.Len(t, all.Events, 2)

	filtered := svc.CityEvents(context.Background(), Query{City: "IZMIR"})
	require.Len(t, filtered.Events, 1)
	assert.Equal(t, "1", filtered.Events[0].ID)

	// Distinct city filters share the one cached window.
	assert.Equal(t, 1, p.callCount())
}

func TestDedupeEvents(t *testing.T) {
	a := eventAt(domain.SourceUSGS, "a", utc(2025, 1, 10, 0))
	dup := eventAt(domain.SourceUSGS, "A", utc(2025, 1, 10, 0))
	b := eventAt(domain.SourceEMSC, "a", utc(2025, 1, 11, 0))

	deduped := dedupeEvents([]domain.Event{a, dup, b})
	require.Len(t, deduped, 2)
	// First occurrence wins; same id under another source survives.
	assert.Equal(t, domain.SourceUSGS, deduped[0].Source)
	assert.Equal(t, "a", deduped[0].ID)
	assert.Equal(t, domain.SourceEMSC, deduped[1].Source)

	// Idempotence: re-running on deduplicated input is a no-op.
	assert.Equal(t, deduped, dedupeEvents(deduped))
}

func TestSortEventsDesc_NilTimesOldest(t *testing.T) {
	newest := eventAt(domain.SourceUSGS, "new", utc(2025, 1, 12, 0))
	older := eventAt(domain.SourceUSGS, "old", utc(2025, 1, 10, 0))
	unknown := eventAt(domain.SourceUSGS, "unknown", nil)

	sorted := sortEventsDesc([]domain.Event{unknown, older, newest})
	require.Len(t, sorted, 3)
	assert.Equal(t, "new", sorted[0].ID)
	assert.Equal(t, "old", sorted[1].ID)
	assert.Equal(t, "unknown", sorted[2].ID)

	for i := 0; i < len(sorted)-1; i++ {
		assert.False(t, eventInstant(sorted[i]).Before(eventInstant(sorted[i+1])))
	}
}

func TestCityEvents_ExplicitZeroMinMagnitude(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	defer domain.SetClock(nil)

	var seen domain.FetchWindow
	p := &captureAdapter{onFetch: func(w domain.FetchWindow) { seen = w }}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(adapterList([]*stubAdapter{}), 10*time.Minute, nil, logger, observability.NewMetricsForTesting())
	svc.adapters = append(svc.adapters, p)

	zero := 0.0
	svc.CityEvents(context.Background(), Query{MinMagnitude: &zero, LookbackDays: 7, LimitPerSource: 100})

	assert.Equal(t, 0.0, seen.MinMagnitude)
	assert.Equal(t, 100, seen.Limit)
	assert.Equal(t, 7*24*time.Hour, seen.End.Sub(seen.Start))
}
