// Package feeds contains one client per upstream seismic data provider.
// Each client owns its provider's query format and payload parsing; the
// aggregator only sees the Adapter contract, so adding a provider never
// touches the aggregation code.
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tremorlab/quake-hazard-service/internal/domain"
)

// Adapter is the contract every provider client implements.
type Adapter interface {
	// Key is the stable lowercase identifier used in SourceMeta.
	Key() string
	// Label is the human-readable provider name.
	Label() string
	// Fetch returns normalized events within the window. Zero events with a
	// nil error means the window genuinely had no matching activity. Any
	// non-recoverable condition is reported as a *domain.ProviderError; the
	// client never retries internally.
	Fetch(ctx context.Context, w domain.FetchWindow) ([]domain.Event, error)
}

// Bounding box the regional providers are queried against.
const (
	regionMinLat = 34.5
	regionMaxLat = 43.5
	regionMinLon = 25.0
	regionMaxLon = 45.5
)

const maxErrorBodyBytes = 4096

// getBody performs the HTTP call shared by all clients. On a non-2xx status
// the response body is read best-effort and becomes the error message, so
// upstream diagnostics survive into SourceMeta.
func getBody(ctx context.Context, client *http.Client, provider, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &domain.ProviderError{Provider: provider, Message: fmt.Sprintf("create request: %v", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Provider: provider, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &domain.ProviderError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProviderError{Provider: provider, Message: fmt.Sprintf("read response: %v", err)}
	}
	return body, nil
}

// getJSON fetches and decodes a JSON payload into v.
func getJSON(ctx context.Context, client *http.Client, provider, fullURL string, v any) error {
	body, err := getBody(ctx, client, provider, fullURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &domain.ProviderError{Provider: provider, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

// floatOrNil converts a loosely typed JSON value (number, numeric string, or
// absent) to an optional float. Feeds disagree on whether numerics are quoted.
func floatOrNil(v any) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		return &n
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
		return nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
		return nil
	default:
		return nil
	}
}

// stringOrEmpty extracts a string from a loosely typed JSON value.
func stringOrEmpty(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// idString renders a provider event ID that may arrive as a string or a
// number.
func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
