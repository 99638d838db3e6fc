package domain

import (
	"fmt"
	"strings"
	"time"
)

// Source identifies the upstream seismic network a reading came from.
type Source string

const (
	SourceAFAD     Source = "AFAD"
	SourceKandilli Source = "Kandilli"
	SourceUSGS     Source = "USGS"
	SourceEMSC     Source = "EMSC"
	SourceIRIS     Source = "IRIS"
)

// Event is a normalized seismic observation. Fields the upstream feeds treat
// as best-effort (coordinates, magnitude, time) are pointers: nil means the
// provider did not supply a parseable value, which is distinct from zero.
type Event struct {
	ID          string     `json:"id"`
	Source      Source     `json:"source"`
	Time        *time.Time `json:"time"`
	Magnitude   *float64   `json:"magnitude"`
	DepthKm     *float64   `json:"depthKm"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	Location    string     `json:"location,omitempty"`
	Province    string     `json:"province,omitempty"`
	City        string     `json:"city,omitempty"`
	District    string     `json:"district,omitempty"`
	Region      string     `json:"region,omitempty"`
	ExternalURL string     `json:"externalUrl,omitempty"`
}

// DedupKey is the identity under which duplicate readings across fetches are
// collapsed. Provider IDs are not case-stable across mirrors, so the key is
// lowercased.
func (e Event) DedupKey() string {
	return strings.ToLower(string(e.Source) + "-" + e.ID)
}

// SourceMeta records the per-provider outcome of one aggregation cycle.
type SourceMeta struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	OK    bool   `json:"ok"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// FetchWindow bounds a provider query.
type FetchWindow struct {
	Start        time.Time
	End          time.Time
	MinMagnitude float64
	Limit        int
}

// ProviderError reports a non-recoverable failure from one upstream provider:
// a network error, a non-2xx response, or an unparseable payload. The
// aggregator recovers it locally; it never aborts an aggregation cycle.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Provider, e.StatusCode)
}
