package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tremorlab/quake-hazard-service/internal/domain"
)

func TestUSGSClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "geojson", q.Get("format"))
		assert.Equal(t, "2025-01-01T00:00:00Z", q.Get("starttime"))
		assert.Equal(t, "34.5", q.Get("minlatitude"))
		assert.Equal(t, "45.5", q.Get("maxlongitude"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"features":[
			{"id":"us7000aaaa",
			 "properties":{"mag":4.7,"place":"12 km SW of Seferihisar, Turkey","time":1736474400000,
			               "url":"https://earthquake.usgs.gov/earthquakes/eventpage/us7000aaaa"},
			 "geometry":{"coordinates":[27.45,38.12,10.5]}},
			{"id":"us7000bbbb",
			 "properties":{"mag":null,"place":"","time":null},
			 "geometry":{"coordinates":[]}}
		]}`))
	}))
	defer srv.Close()

	c := NewUSGSClient(5*time.Second, testLogger())
	c.baseURL = srv.URL

	events, err := c.Fetch(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "us7000aaaa", first.ID)
	assert.Equal(t, domain.SourceUSGS, first.Source)
	require.NotNil(t, first.Time)
	assert.Equal(t, time.Date(2025, 1, 10, 2, 0, 0, 0, time.UTC), *first.Time)
	require.NotNil(t, first.Longitude)
	assert.Equal(t, 27.45, *first.Longitude)
	require.NotNil(t, first.Latitude)
	assert.Equal(t, 38.12, *first.Latitude)
	require.NotNil(t, first.DepthKm)
	assert.Equal(t, 10.5, *first.DepthKm)
	assert.Equal(t, "12 km SW of Seferihisar, Turkey", first.Location)
	assert.Equal(t, first.Location, first.Region)
	assert.NotEmpty(t, first.ExternalURL)

	second := events[1]
	assert.Nil(t, second.Time)
	assert.Nil(t, second.Magnitude)
	assert.Nil(t, second.Latitude)
	assert.Nil(t, second.Longitude)
	assert.Nil(t, second.DepthKm)
}

func TestUSGSClient_Fetch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewUSGSClient(5*time.Second, testLogger())
	c.baseURL = srv.URL

	_, err := c.Fetch(context.Background(), testWindow())
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusServiceUnavailable, perr.StatusCode)
	// Empty body falls back to the status code in the message.
	assert.Equal(t, "USGS: HTTP 503", perr.Error())
}
