// Package pcs is a thin retrying client for the Power Control Service.
// Wire contract per spec.md §6: POST /transitions with
// {operation, location, taskDeadlineMinutes?}; GET /power-status with
// optional xname/powerStateFilter/managementStateFilter query params.
package pcs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/httpx"
)

// Operation is the closed set of PCS transition operations.
type Operation string

const (
	On           Operation = "On"
	Off          Operation = "Off"
	SoftOff      Operation = "Soft-Off"
	SoftRestart  Operation = "Soft-Restart"
	HardRestart  Operation = "Hard-Restart"
	Init         Operation = "Init"
	ForceOff     Operation = "Force-Off"
)

// Client talks to PCS.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client using verified TLS.
func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: httpx.NewClient(false)}
}

type location struct {
	Xname string `json:"xname"`
}

type transitionRequest struct {
	Operation           Operation  `json:"operation"`
	Location            []location `json:"location"`
	TaskDeadlineMinutes *int       `json:"taskDeadlineMinutes,omitempty"`
}

// TransitionResult is PCS's response to a transition request.
type TransitionResult struct {
	TransitionID string `json:"transitionID"`
	Operation    string `json:"operation"`
}

// Transition submits a single power transition for the given ids. Per
// spec.md §4.3, the engine does not track the returned transition id
// synchronously; the next tick re-evaluates power state instead.
func (c *Client) Transition(ctx context.Context, readTimeout time.Duration, op Operation, ids []string) (TransitionResult, error) {
	locs := make([]location, len(ids))
	for i, id := range ids {
		locs[i] = location{Xname: id}
	}
	body, err := json.Marshal(transitionRequest{Operation: op, Location: locs})
	if err != nil {
		return TransitionResult{}, fmt.Errorf("pcs: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transitions", bytes.NewReader(body))
	if err != nil {
		return TransitionResult{}, fmt.Errorf("pcs: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }

	resp, err := httpx.Do(ctx, c.HTTP, readTimeout, req)
	if err != nil {
		return TransitionResult{}, fmt.Errorf("pcs: transition: %w", err)
	}
	defer resp.Body.Close()

	var result TransitionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return TransitionResult{}, fmt.Errorf("pcs: decoding transition response: %w", err)
	}
	return result, nil
}

type powerStatusEntry struct {
	Xname      string `json:"xname"`
	PowerState string `json:"powerState"`
}

type powerStatusResponse struct {
	Status []powerStatusEntry `json:"status"`
}

// PowerState returns the current power state for each id, satisfying
// filters.PowerStateFetcher.
func (c *Client) PowerState(ctx context.Context, readTimeout time.Duration, ids []string) (map[string]component.PowerState, error) {
	q := url.Values{}
	for _, id := range ids {
		q.Add("xname", id)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/power-status?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pcs: building request: %w", err)
	}

	resp, err := httpx.Do(ctx, c.HTTP, readTimeout, req)
	if err != nil {
		return nil, fmt.Errorf("pcs: power status: %w", err)
	}
	defer resp.Body.Close()

	var parsed powerStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("pcs: decoding power status: %w", err)
	}

	out := make(map[string]component.PowerState, len(parsed.Status))
	for _, e := range parsed.Status {
		switch e.PowerState {
		case "on":
			out[e.Xname] = component.PowerOn
		case "off":
			out[e.Xname] = component.PowerOff
		default:
			out[e.Xname] = component.PowerUndefined
		}
	}
	return out, nil
}
