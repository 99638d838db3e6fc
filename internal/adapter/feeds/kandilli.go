package feeds

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tremorlab/quake-hazard-service/internal/domain"
)

// kandilliOffsetHours is the implicit local zone of Kandilli timestamps.
const kandilliOffsetHours = 3

// closestCityRe extracts the city name out of the feed's "key = value;"
// formatted closestCity blob.
var closestCityRe = regexp.MustCompile(`(?i)name\s*=\s*([^;]+?)(;|$)`)

// KandilliClient fetches the Kandilli Observatory live feed (via the
// orhanaydogdu mirror). The feed is a rolling live window; the requested
// FetchWindow cannot be pushed upstream and is not applied client-side,
// matching the upstream contract.
type KandilliClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewKandilliClient creates a Kandilli client with a bounded request timeout.
func NewKandilliClient(timeout time.Duration, logger *slog.Logger) *KandilliClient {
	return &KandilliClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://api.orhanaydogdu.com.tr/deprem/kandilli/live",
		logger:     logger,
	}
}

func (c *KandilliClient) Key() string   { return "kandilli" }
func (c *KandilliClient) Label() string { return "Kandilli" }

type kandilliResponse struct {
	Result []kandilliEvent `json:"result"`
}

type kandilliEvent struct {
	EarthquakeID any    `json:"earthquake_id"`
	Title        string `json:"title"`
	DateTime     string `json:"date_time"`
	Mag          any    `json:"mag"`
	Depth        any    `json:"depth"`
	GeoJSON      struct {
		// Coordinates arrive as a single space-delimited "lon lat" string,
		// not a nested array.
		Coordinates any `json:"coordinates"`
	} `json:"geojson"`
	LocationProperties struct {
		ClosestCity any `json:"closestCity"`
		EpiCenter   struct {
			Name string `json:"name"`
		} `json:"epiCenter"`
	} `json:"location_properties"`
}

// Fetch returns the current live window of Kandilli readings.
func (c *KandilliClient) Fetch(ctx context.Context, _ domain.FetchWindow) ([]domain.Event, error) {
	var payload kandilliResponse
	if err := getJSON(ctx, c.httpClient, c.Label(), c.baseURL, &payload); err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(payload.Result))
	for _, item := range payload.Result {
		lon, lat := parseDelimitedCoordinates(item.GeoJSON.Coordinates)
		closestCity := parseClosestCity(item.LocationProperties.ClosestCity)

		events = append(events, domain.Event{
			ID:        idString(item.EarthquakeID),
			Source:    domain.SourceKandilli,
			Time:      domain.NormalizeTime(item.DateTime, kandilliOffsetHours),
			Magnitude: floatOrNil(item.Mag),
			DepthKm:   floatOrNil(item.Depth),
			Latitude:  lat,
			Longitude: lon,
			Location:  item.Title,
			Province:  closestCity,
			City:      closestCity,
			Region:    item.LocationProperties.EpiCenter.Name,
		})
	}
	return events, nil
}

// parseDelimitedCoordinates splits an embedded "lon lat" string into optional
// floats. Anything malformed yields nil coordinates, never a fetch failure.
func parseDelimitedCoordinates(raw any) (lon, lat *float64) {
	s, ok := raw.(string)
	if !ok {
		return nil, nil
	}
	parts := strings.Fields(s)
	if len(parts) > 0 {
		lon = floatOrNil(parts[0])
	}
	if len(parts) > 1 {
		lat = floatOrNil(parts[1])
	}
	return lon, lat
}

// parseClosestCity pulls the city name out of the feed's serialized
// "... name = Istanbul; ..." property blob.
func parseClosestCity(raw any) string {
	s, ok := raw.(string)
	if !ok {
		return ""
	}
	m := closestCityRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
