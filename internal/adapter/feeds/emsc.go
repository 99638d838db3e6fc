package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tremorlab/quake-hazard-service/internal/domain"
)

// regionTranslations maps EMSC flynn-region names to their Turkish
// equivalents. Regions without an entry are title-cased instead.
var regionTranslations = map[string]string{
	"CENTRAL TURKEY":            "Orta Türkiye",
	"EASTERN TURKEY":            "Doğu Türkiye",
	"WESTERN TURKEY":            "Batı Türkiye",
	"SOUTHERN TURKEY":           "Güney Türkiye",
	"NORTHERN TURKEY":           "Kuzey Türkiye",
	"EASTERN MEDITERRANEAN SEA": "Doğu Akdeniz",
	"MEDITERRANEAN SEA":         "Akdeniz",
	"AEGEAN SEA":                "Ege Denizi",
	"MARMARA SEA":               "Marmara Denizi",
	"BLACK SEA":                 "Karadeniz",
	"CYPRUS REGION":             "Kıbrıs Bölgesi",
	"CYPRUS":                    "Kıbrıs",
	"GREECE":                    "Yunanistan",
	"GEORGIA":                   "Gürcistan",
	"IRAN":                      "İran",
	"IRAQ":                      "Irak",
	"SYRIA":                     "Suriye",
}

// EMSCClient fetches events from the EMSC seismic portal as GeoJSON,
// bounded to the monitored region.
type EMSCClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewEMSCClient creates an EMSC client with a bounded request timeout.
func NewEMSCClient(timeout time.Duration, logger *slog.Logger) *EMSCClient {
	return &EMSCClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://www.seismicportal.eu/fdsnws/event/1/query",
		logger:     logger,
	}
}

func (c *EMSCClient) Key() string   { return "emsc" }
func (c *EMSCClient) Label() string { return "EMSC" }

type emscResponse struct {
	Features []emscFeature `json:"features"`
}

type emscFeature struct {
	ID         string `json:"id"`
	Properties struct {
		UnID        string   `json:"unid"`
		Time        string   `json:"time"`
		Mag         *float64 `json:"mag"`
		Depth       *float64 `json:"depth"`
		FlynnRegion string   `json:"flynn_region"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat, depthKm]
	} `json:"geometry"`
}

// Fetch queries the EMSC FDSN endpoint for the window.
func (c *EMSCClient) Fetch(ctx context.Context, w domain.FetchWindow) ([]domain.Event, error) {
	params := url.Values{
		"format":    {"json"},
		"starttime": {w.Start.UTC().Format(time.RFC3339)},
		"endtime":   {w.End.UTC().Format(time.RFC3339)},
		"minmag":    {formatFloat(w.MinMagnitude)},
		"minlat":    {formatFloat(regionMinLat)},
		"maxlat":    {formatFloat(regionMaxLat)},
		"minlon":    {formatFloat(regionMinLon)},
		"maxlon":    {formatFloat(regionMaxLon)},
		"limit":     {strconv.Itoa(w.Limit)},
		"orderby":   {"time"},
	}

	var payload emscResponse
	if err := getJSON(ctx, c.httpClient, c.Label(), c.baseURL+"?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(payload.Features))
	for _, f := range payload.Features {
		id := firstNonEmpty(f.ID, f.Properties.UnID)

		// Depth is published both in properties and as the third geometry
		// coordinate; properties wins when present.
		depth := f.Properties.Depth
		if depth == nil && len(f.Geometry.Coordinates) >= 3 {
			depth = &f.Geometry.Coordinates[2]
		}

		var lon, lat *float64
		if len(f.Geometry.Coordinates) >= 2 {
			lon = &f.Geometry.Coordinates[0]
			lat = &f.Geometry.Coordinates[1]
		}

		events = append(events, domain.Event{
			ID:          id,
			Source:      domain.SourceEMSC,
			Time:        domain.NormalizeTime(f.Properties.Time, 0),
			Magnitude:   f.Properties.Mag,
			DepthKm:     depth,
			Latitude:    lat,
			Longitude:   lon,
			Location:    localizedLocation(f.Properties.FlynnRegion),
			Region:      f.Properties.FlynnRegion,
			ExternalURL: fmt.Sprintf("https://www.emsc-csem.org/Earthquake/world/%s", id),
		})
	}
	return events, nil
}

// localizedLocation renders a flynn region as "<translated> (<original>)"
// when a table translation exists, or its title-cased form otherwise.
func localizedLocation(region string) string {
	if region == "" {
		return ""
	}
	if translated, ok := regionTranslations[strings.ToUpper(region)]; ok {
		if translated != region {
			return fmt.Sprintf("%s (%s)", translated, region)
		}
		return translated
	}
	return titleCase(region)
}

// titleCase lowercases the value and capitalizes the first letter of each
// space-separated word.
func titleCase(s string) string {
	parts := strings.Split(strings.ToLower(s), " ")
	for i, part := range parts {
		if part == "" {
			continue
		}
		r := []rune(part)
		parts[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(parts, " ")
}
