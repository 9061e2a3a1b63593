// Package hsm is a thin retrying client for the Hardware State
// Manager. Wire contract per spec.md §6: POST
// /hsm/v2/State/Components/Query with {ComponentIDs, enabled?}; response
// {Components:[{ID, Enabled, State}]}.
package hsm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hpc-bos/bos/internal/engine/httpx"
)

// Client talks to HSM.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client using verified TLS.
func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: httpx.NewClient(false)}
}

type queryRequest struct {
	ComponentIDs []string `json:"ComponentIDs,omitempty"`
	Enabled      []string `json:"enabled,omitempty"`
}

type queryComponent struct {
	ID      string `json:"ID"`
	Enabled bool   `json:"Enabled"`
	State   string `json:"State"`
}

type queryResponse struct {
	Components []queryComponent `json:"Components"`
}

// readyState is the HSM component state treated as "ready to
// boot." HSM's State vocabulary includes transitional states (Off,
// Standby, Halt, ...); only Ready means the node answered its last
// health check.
const readyState = "Ready"

// State queries HSM for the given ids and returns each one's
// enabled/ready pair, satisfying filters.HSMStateFetcher. A nil ids
// slice queries every known component.
func (c *Client) State(ctx context.Context, readTimeout time.Duration, ids []string) (map[string]State, error) {
	body, err := json.Marshal(queryRequest{ComponentIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("hsm: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/hsm/v2/State/Components/Query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("hsm: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }

	resp, err := httpx.Do(ctx, c.HTTP, readTimeout, req)
	if err != nil {
		return nil, fmt.Errorf("hsm: query: %w", err)
	}
	defer resp.Body.Close()

	var parsed queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("hsm: decoding query response: %w", err)
	}

	out := make(map[string]State, len(parsed.Components))
	for _, comp := range parsed.Components {
		out[comp.ID] = State{Enabled: comp.Enabled, Ready: comp.State == readyState}
	}
	return out, nil
}

// State mirrors filters.HSMComponentState; kept as a distinct type here
// so this package does not import filters, which would invert the
// dependency direction (clients are lower-level than the filter
// library that consumes them).
type State struct {
	Enabled bool
	Ready   bool
}

// AllNodeXnames returns every xname HSM currently knows about,
// regardless of enabled state — used by Discovery to compute the
// HSM−BOS set difference (spec.md §4.6).
func (c *Client) AllNodeXnames(ctx context.Context, readTimeout time.Duration) ([]string, error) {
	states, err := c.State(ctx, readTimeout, nil)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(states))
	for id := range states {
		out = append(out, id)
	}
	return out, nil
}
