// Package bss is a thin retrying client for the Boot Script Service.
// Wire contract per spec.md §6: PUT /boot/v1/bootparameters with
// {hosts, params, kernel, initrd}; the response carries a
// bss-referral-token header.
package bss

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

// Client talks to BSS.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client whose HTTP transport disables TLS verification
// per spec.md §6.
func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: httpx.NewClient(true)}
}

type setBootParamsRequest struct {
	Hosts  []string `json:"hosts"`
	Params string   `json:"params"`
	Kernel string   `json:"kernel"`
	Initrd string   `json:"initrd"`
}

// ErrEmptyHostSet is returned (and should be treated as a programming
// error — spec.md §7 calls this "fatal assertion") when a caller asks
// BSS to stage artifacts for zero hosts.
var ErrEmptyHostSet = fmt.Errorf("bss: refusing to stage boot parameters for an empty host set")

// SetBootParameters stages a (kernel, initrd, params) tuple for the
// given hosts and returns the bss-referral-token BSS assigns.
func (c *Client) SetBootParameters(ctx context.Context, readTimeout time.Duration, hosts []string, kernel, initrd, params string) (token string, err error) {
	if len(hosts) == 0 {
		return "", ErrEmptyHostSet
	}

	body, err := json.Marshal(setBootParamsRequest{Hosts: hosts, Params: params, Kernel: kernel, Initrd: initrd})
	if err != nil {
		return "", fmt.Errorf("bss: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.BaseURL+"/boot/v1/bootparameters", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("bss: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	resp, err := httpx.Do(ctx, c.HTTP, readTimeout, req)
	if err != nil {
		return "", fmt.Errorf("bss: set boot parameters: %w", err)
	}
	defer resp.Body.Close()

	token = resp.Header.Get("bss-referral-token")
	if token == "" {
		return "", fmt.Errorf("bss: response missing bss-referral-token header")
	}
	return token, nil
}
