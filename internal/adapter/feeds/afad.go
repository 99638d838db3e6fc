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

// afadOffsetHours is the implicit local zone of AFAD timestamps, which carry
// no zone designator.
const afadOffsetHours = 3

// AFADClient fetches events from the AFAD (Turkish Disaster and Emergency
// Management Authority) event filter API. The payload is a flat JSON array
// with numerics encoded as strings.
type AFADClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewAFADClient creates an AFAD client with a bounded request timeout.
func NewAFADClient(timeout time.Duration, logger *slog.Logger) *AFADClient {
	return &AFADClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://deprem.afad.gov.tr/apiv2/event/filter",
		logger:     logger,
	}
}

func (c *AFADClient) Key() string   { return "afad" }
func (c *AFADClient) Label() string { return "AFAD" }

type afadEvent struct {
	EventID      any    `json:"eventID"`
	Date         string `json:"date"`
	Magnitude    any    `json:"magnitude"`
	Depth        any    `json:"depth"`
	Latitude     any    `json:"latitude"`
	Longitude    any    `json:"longitude"`
	Location     any    `json:"location"`
	Neighborhood any    `json:"neighborhood"`
	District     any    `json:"district"`
	Province     any    `json:"province"`
	Country      any    `json:"country"`
	Type         string `json:"type"`
}

// Fetch queries the AFAD filter endpoint for the window. AFAD takes bare
// dates, so the window is sent at day granularity.
func (c *AFADClient) Fetch(ctx context.Context, w domain.FetchWindow) ([]domain.Event, error) {
	params := url.Values{
		"start":   {w.Start.UTC().Format("2006-01-02")},
		"end":     {w.End.UTC().Format("2006-01-02")},
		"minmag":  {formatFloat(w.MinMagnitude)},
		"orderby": {"desc"},
		"limit":   {strconv.Itoa(w.Limit)},
	}

	var items []afadEvent
	if err := getJSON(ctx, c.httpClient, c.Label(), c.baseURL+"?"+params.Encode(), &items); err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(items))
	for _, item := range items {
		province := stringOrEmpty(item.Province)
		district := stringOrEmpty(item.District)
		events = append(events, domain.Event{
			ID:        idString(item.EventID),
			Source:    domain.SourceAFAD,
			Time:      domain.NormalizeTime(item.Date, afadOffsetHours),
			Magnitude: floatOrNil(item.Magnitude),
			DepthKm:   floatOrNil(item.Depth),
			Latitude:  floatOrNil(item.Latitude),
			Longitude: floatOrNil(item.Longitude),
			Location: firstNonEmpty(
				stringOrEmpty(item.Location),
				stringOrEmpty(item.Neighborhood),
				district,
				province,
			),
			Province: province,
			City:     province,
			District: district,
			Region:   stringOrEmpty(item.Country),
		})
	}
	return events, nil
}
