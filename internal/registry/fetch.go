package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ObjectiveFetcher supplies the current mission objective list from a remote
// source. Implementations must be safe for concurrent use.
//
// Fetch failures are never fatal — the [Registry] degrades to its bundled
// objective list.
type ObjectiveFetcher interface {
	// FetchObjectives returns the canonical objective names for the current
	// mission pack.
	FetchObjectives(ctx context.Context) ([]string, error)
}

const defaultFetchTimeout = 5 * time.Second

// HTTPObjectiveFetcher fetches objective lists from a JSON endpoint of the
// form {"objectives": ["...", ...]}.
type HTTPObjectiveFetcher struct {
	url    string
	client *http.Client
}

// NewHTTPObjectiveFetcher returns a fetcher for the given endpoint URL.
// When client is nil, a client with a 5 second timeout is used.
func NewHTTPObjectiveFetcher(url string, client *http.Client) *HTTPObjectiveFetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &HTTPObjectiveFetcher{url: url, client: client}
}

// FetchObjectives implements [ObjectiveFetcher].
func (f *HTTPObjectiveFetcher) FetchObjectives(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("registry: build objectives request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: fetch objectives: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry: fetch objectives: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Objectives []string `json:"objectives"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("registry: decode objectives: %w", err)
	}
	return payload.Objectives, nil
}
