// Package cfs is a thin retrying client for the Configuration
// Framework Service. Wire contract per spec.md §6: GET /v2/components,
// PATCH /v2/components with [{id, enabled, desiredConfig, tags}, ...],
// chunked at 1000 per request.
package cfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hpc-bos/bos/internal/engine/httpx"
)

// ChunkSize is the maximum number of components per PATCH request,
// per spec.md §4.5/§6.
const ChunkSize = 1000

// Client talks to CFS.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client using verified TLS.
func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: httpx.NewClient(false)}
}

// Patch is one element of a PATCH /v2/components request.
type Patch struct {
	ID            string   `json:"id"`
	Enabled       bool     `json:"enabled"`
	DesiredConfig string   `json:"desiredConfig"`
	Tags          []string `json:"tags,omitempty"`
}

// PatchComponents applies the given patches in chunks of ChunkSize.
// Each chunk is an independent request; a failed chunk does not abort
// the remaining chunks. The failures are joined into one returned
// error that counts the failed chunks; it does not say which ids were
// in them.
func (c *Client) PatchComponents(ctx context.Context, readTimeout time.Duration, patches []Patch) error {
	var errs []string
	for start := 0; start < len(patches); start += ChunkSize {
		end := start + ChunkSize
		if end > len(patches) {
			end = len(patches)
		}
		if err := c.patchChunk(ctx, readTimeout, patches[start:end]); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("cfs: %d chunk(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

func (c *Client) patchChunk(ctx context.Context, readTimeout time.Duration, chunk []Patch) error {
	body, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.BaseURL+"/v2/components", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }

	resp, err := httpx.Do(ctx, c.HTTP, readTimeout, req)
	if err != nil {
		return fmt.Errorf("patch components: %w", err)
	}
	defer resp.Body.Close()
	return nil
}

type getComponent struct {
	ID            string `json:"id"`
	DesiredConfig string `json:"desiredConfig"`
}

type getComponentsResponse struct {
	Components []getComponent `json:"components"`
}

// CurrentConfiguration returns CFS's recorded desiredConfig per id,
// satisfying filters.CFSConfigFetcher. Despite the field name
// "desiredConfig", this is CFS's view of what it is currently
// configuring the node towards — BOS compares this against its own
// desired_state.configuration to decide if CFS needs a new PATCH.
func (c *Client) CurrentConfiguration(ctx context.Context, readTimeout time.Duration, ids []string) (map[string]string, error) {
	q := "?ids=" + strings.Join(ids, ",")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v2/components"+q, nil)
	if err != nil {
		return nil, fmt.Errorf("cfs: building request: %w", err)
	}

	resp, err := httpx.Do(ctx, c.HTTP, readTimeout, req)
	if err != nil {
		return nil, fmt.Errorf("cfs: get components: %w", err)
	}
	defer resp.Body.Close()

	var parsed getComponentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("cfs: decoding response: %w", err)
	}

	out := make(map[string]string, len(parsed.Components))
	for _, comp := range parsed.Components {
		out[comp.ID] = comp.DesiredConfig
	}
	return out, nil
}
