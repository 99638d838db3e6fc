package feeds

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tremorlab/quake-hazard-service/internal/domain"
)

// USGSClient fetches events from the USGS FDSN event service as GeoJSON,
// bounded to the monitored region.
type USGSClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewUSGSClient creates a USGS client with a bounded request timeout.
func NewUSGSClient(timeout time.Duration, logger *slog.Logger) *USGSClient {
	return &USGSClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://earthquake.usgs.gov/fdsnws/event/1/query",
		logger:     logger,
	}
}

func (c *USGSClient) Key() string   { return "usgs" }
func (c *USGSClient) Label() string { return "USGS" }

type usgsResponse struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string `json:"id"`
	Properties struct {
		Mag   *float64 `json:"mag"`
		Place string   `json:"place"`
		Time  *int64   `json:"time"` // epoch millis
		URL   string   `json:"url"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat, depthKm]
	} `json:"geometry"`
}

// Fetch queries the USGS FDSN endpoint for the window.
func (c *USGSClient) Fetch(ctx context.Context, w domain.FetchWindow) ([]domain.Event, error) {
	params := url.Values{
		"format":       {"geojson"},
		"starttime":    {w.Start.UTC().Format(time.RFC3339)},
		"endtime":      {w.End.UTC().Format(time.RFC3339)},
		"minmagnitude": {formatFloat(w.MinMagnitude)},
		"minlatitude":  {formatFloat(regionMinLat)},
		"maxlatitude":  {formatFloat(regionMaxLat)},
		"minlongitude": {formatFloat(regionMinLon)},
		"maxlongitude": {formatFloat(regionMaxLon)},
		"orderby":      {"time"},
		"limit":        {strconv.Itoa(w.Limit)},
	}

	var payload usgsResponse
	if err := getJSON(ctx, c.httpClient, c.Label(), c.baseURL+"?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(payload.Features))
	for _, f := range payload.Features {
		var eventTime *time.Time
		if f.Properties.Time != nil {
			eventTime = domain.NormalizeTime(*f.Properties.Time, 0)
		}

		var lon, lat, depth *float64
		if len(f.Geometry.Coordinates) >= 2 {
			lon = &f.Geometry.Coordinates[0]
			lat = &f.Geometry.Coordinates[1]
		}
		if len(f.Geometry.Coordinates) >= 3 {
			depth = &f.Geometry.Coordinates[2]
		}

		events = append(events, domain.Event{
			ID:          f.ID,
			Source:      domain.SourceUSGS,
			Time:        eventTime,
			Magnitude:   f.Properties.Mag,
			DepthKm:     depth,
			Latitude:    lat,
			Longitude:   lon,
			Location:    f.Properties.Place,
			Region:      f.Properties.Place,
			ExternalURL: f.Properties.URL,
		})
	}
	return events, nil
}
