// Package validate talks to an external canonical-name validation service.
// The service double-checks candidate mappings against the official card
// database and reports the category and confidence of each term. It is a
// best-effort dependency: callers fall back to their unvalidated mappings on
// any failure.
package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adrpadua/battlereport-hud/pkg/types"
)

const defaultTimeout = 10 * time.Second

// Request is one validation batch.
type Request struct {
	// Terms are the candidate canonical names to check.
	Terms []string `json:"terms"`

	// Factions is the declared faction context, narrowing the lookup.
	Factions []string `json:"factions,omitempty"`

	// Categories restricts the lookup to the given categories. Empty means
	// all.
	Categories []types.Category `json:"categories,omitempty"`

	// MinConfidence asks the service to omit results below this confidence.
	MinConfidence float64 `json:"minConfidence,omitempty"`
}

// ValidatedTerm is the service's verdict on one term.
type ValidatedTerm struct {
	// Term is the candidate as submitted.
	Term string `json:"term"`

	// Canonical is the official name the service resolved the term to.
	// Empty when the service found no match.
	Canonical string `json:"canonical"`

	// Category is the validated entity category.
	Category types.Category `json:"category"`

	// Confidence is the service's confidence in the resolution, 0..1.
	Confidence float64 `json:"confidence"`
}

// ClientOption is a functional option for configuring a [Client].
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.hc = hc }
}

// WithTimeout sets the per-request timeout. Default: 10s.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// Client calls the validation service over HTTP JSON. Safe for concurrent
// use.
type Client struct {
	baseURL string
	hc      *http.Client
	timeout time.Duration
}

// New returns a [Client] for the service at baseURL.
func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	if c.hc == nil {
		c.hc = &http.Client{Timeout: c.timeout}
	}
	return c
}

// ValidateTerms submits one batch and returns the service's verdicts.
// Terms the service does not know are absent from the result.
func (c *Client) ValidateTerms(ctx context.Context, req Request) ([]ValidatedTerm, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode validation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/validate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build validation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("validation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("validation service returned %d", resp.StatusCode)
	}

	var decoded struct {
		Results []ValidatedTerm `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode validation response: %w", err)
	}
	return decoded.Results, nil
}
