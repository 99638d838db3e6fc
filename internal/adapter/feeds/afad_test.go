package feeds

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tremorlab/quake-hazard-service/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWindow() domain.FetchWindow {
	return domain.FetchWindow{
		Start:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		MinMagnitude: 2,
		Limit:        500,
	}
}

func TestAFADClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2025-01-01", q.Get("start"))
		assert.Equal(t, "2025-01-31", q.Get("end"))
		assert.Equal(t, "2", q.Get("minmag"))
		assert.Equal(t, "desc", q.Get("orderby"))
		assert.Equal(t, "500", q.Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"eventID":"638462","date":"2025-01-12T04:12:00","magnitude":"4.3","depth":"7.2",
			 "latitude":"38.12","longitude":"27.45","location":"Ege Denizi - [12.4 km] Seferihisar (İzmir)",
			 "district":"Seferihisar","province":"İzmir","country":"Türkiye","type":"ML"},
			{"eventID":"638463","date":"","magnitude":"","depth":null,
			 "latitude":"not-a-number","longitude":null,"province":"Ankara"}
		]`))
	}))
	defer srv.Close()

	c := NewAFADClient(5*time.Second, testLogger())
	c.baseURL = srv.URL

	events, err := c.Fetch(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "638462", first.ID)
	assert.Equal(t, domain.SourceAFAD, first.Source)
	// AFAD timestamps are implicit UTC+3: local 04:12 is 01:12 UTC.
	require.NotNil(t, first.Time)
	assert.Equal(t, time.Date(2025, 1, 12, 1, 12, 0, 0, time.UTC), *first.Time)
	require.NotNil(t, first.Magnitude)
	assert.Equal(t, 4.3, *first.Magnitude)
	require.NotNil(t, first.DepthKm)
	assert.Equal(t, 7.2, *first.DepthKm)
	assert.Equal(t, "İzmir", first.Province)
	assert.Equal(t, "İzmir", first.City)
	assert.Equal(t, "Seferihisar", first.District)
	assert.Equal(t, "Ege Denizi - [12.4 km] Seferihisar (İzmir)", first.Location)
	assert.Equal(t, "Türkiye", first.Region)

	second := events[1]
	assert.Nil(t, second.Time)
	assert.Nil(t, second.Magnitude)
	assert.Nil(t, second.DepthKm)
	assert.Nil(t, second.Latitude)
	assert.Nil(t, second.Longitude)
	// Location falls back through neighborhood/district to province.
	assert.Equal(t, "Ankara", second.Location)
}

func TestAFADClient_Fetch_NumericEventID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"eventID":638462,"date":"2025-01-12 04:12:00","magnitude":4.3}]`))
	}))
	defer srv.Close()

	c := NewAFADClient(5*time.Second, testLogger())
	c.baseURL = srv.URL

	events, err := c.Fetch(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "638462", events[0].ID)
	require.NotNil(t, events[0].Magnitude)
	assert.Equal(t, 4.3, *events[0].Magnitude)
}

func TestAFADClient_Fetch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream maintenance window"))
	}))
	defer srv.Close()

	c := NewAFADClient(5*time.Second, testLogger())
	c.baseURL = srv.URL

	_, err := c.Fetch(context.Background(), testWindow())
	require.Error(t, err)

	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "AFAD", perr.Provider)
	assert.Equal(t, http.StatusBadGateway, perr.StatusCode)
	assert.Contains(t, perr.Message, "maintenance")
}

func TestAFADClient_Fetch_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewAFADClient(5*time.Second, testLogger())
	c.baseURL = srv.URL

	_, err := c.Fetch(context.Background(), testWindow())
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "decode response")
}

func TestAFADClient_Fetch_EmptyResultIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewAFADClient(5*time.Second, testLogger())
	c.baseURL = srv.URL

	events, err := c.Fetch(context.Background(), testWindow())
	require.NoError(t, err)
	assert.Empty(t, events)
}
