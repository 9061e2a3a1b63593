// Package bosclient is a small Go client for the boot orchestration
// service's one external HTTP surface, the actual-state report
// endpoint implemented by internal/reportapi. It exists so operators
// writing ad hoc tooling (or a reporter agent implemented in Go rather
// than the node's own init scripts) don't hand-roll the request.
package bosclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hpc-bos/bos/internal/engine/httpx"
)

// ErrUnknownToken is returned when the server rejects a report because
// it doesn't recognize the bss_token, mirroring
// internal/reportapi's 409 response.
var ErrUnknownToken = errors.New("bosclient: bss token not recognized by server")

// Client talks to a bos-reportapi instance.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client using verified TLS, matching HSM/PCS/CFS's
// default (the reportapi endpoint is not the BSS staging path that
// spec.md §6 carves out an exception for).
func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: httpx.NewClient(false)}
}

type actualStateRequest struct {
	BSSToken string `json:"bss_token"`
}

// ReportActualState reports the bss_token a node booted with. readTimeout
// bounds each individual attempt; the overall retry policy matches
// every other client in this repo.
func (c *Client) ReportActualState(ctx context.Context, readTimeout time.Duration, componentID, bssToken string) error {
	body, err := json.Marshal(actualStateRequest{BSSToken: bssToken})
	if err != nil {
		return fmt.Errorf("bosclient: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/components/"+componentID+"/actualstate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("bosclient: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpx.Do(ctx, c.HTTP, readTimeout, req)
	if err != nil {
		return fmt.Errorf("bosclient: report actual state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return ErrUnknownToken
	}
	return nil
}
