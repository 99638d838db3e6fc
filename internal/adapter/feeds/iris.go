package feeds

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tremorlab/quake-hazard-service/internal/domain"
)

// irisFieldCount is the number of pipe-delimited columns in an IRIS text row:
// eventID|time|lat|lon|depth|author|catalog|contributor|contributorID|
// magType|mag|magAuthor|location.
const irisFieldCount = 13

// irisDefaultLimit caps the parsed rows when the window carries no limit.
const irisDefaultLimit = 120

// IRISClient fetches events from the IRIS FDSN event service in its
// pipe-delimited text format.
type IRISClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewIRISClient creates an IRIS client with a bounded request timeout.
func NewIRISClient(timeout time.Duration, logger *slog.Logger) *IRISClient {
	return &IRISClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://service.iris.edu/fdsnws/event/1/query",
		logger:     logger,
	}
}

func (c *IRISClient) Key() string   { return "iris" }
func (c *IRISClient) Label() string { return "IRIS" }

// Fetch queries the IRIS FDSN endpoint for the window and parses the text
// response. Comment lines start with '#'; short or malformed rows are
// dropped without failing the batch.
func (c *IRISClient) Fetch(ctx context.Context, w domain.FetchWindow) ([]domain.Event, error) {
	params := url.Values{
		"format":       {"text"},
		"starttime":    {w.Start.UTC().Format(time.RFC3339)},
		"endtime":      {w.End.UTC().Format(time.RFC3339)},
		"minmag":       {formatFloat(w.MinMagnitude)},
		"minlatitude":  {formatFloat(regionMinLat)},
		"maxlatitude":  {formatFloat(regionMaxLat)},
		"minlongitude": {formatFloat(regionMinLon)},
		"maxlongitude": {formatFloat(regionMaxLon)},
		"nodata":       {"404"},
	}

	body, err := getBody(ctx, c.httpClient, c.Label(), c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	limit := w.Limit
	if limit <= 0 {
		limit = irisDefaultLimit
	}
	return parseIRISText(string(body), limit), nil
}

func parseIRISText(text string, limit int) []domain.Event {
	var events []domain.Event
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(events) >= limit {
			break
		}

		parts := strings.Split(line, "|")
		if len(parts) < irisFieldCount {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		location := parts[12]
		events = append(events, domain.Event{
			ID:        parts[0],
			Source:    domain.SourceIRIS,
			Time:      domain.NormalizeTime(parts[1], 0),
			Magnitude: floatOrNil(parts[10]),
			DepthKm:   floatOrNil(parts[4]),
			Latitude:  floatOrNil(parts[2]),
			Longitude: floatOrNil(parts[3]),
			Location:  location,
			Region:    location,
		})
	}
	return events
}
