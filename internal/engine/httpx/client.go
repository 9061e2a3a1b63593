// Package httpx builds the retrying HTTP clients shared by the
// HSM/BSS/PCS/CFS thin clients (spec.md §5/§6): a 3s connect timeout, a
// per-call read timeout applied via context (not the client-wide
// Timeout field, so a slow body doesn't abort an otherwise fine
// connect), and exponential-backoff retry on 500/502/503/504 and
// connection-refused.
package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
)

// ConnectTimeout is the fixed dial timeout from spec.md §5.
const ConnectTimeout = 3 * time.Second

// NewClient returns an *http.Client dialing with ConnectTimeout. The
// per-call read timeout is applied by callers via context.WithTimeout,
// not here, so it can vary per option snapshot without rebuilding the
// client.
func NewClient(insecureSkipVerify bool) *http.Client {
	dialer := &net.Dialer{Timeout: ConnectTimeout}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	if insecureSkipVerify {
		transport.TLSClientConfig = tlsConfigInsecure()
	}
	return &http.Client{Transport: transport}
}

// Do executes req with the read timeout applied via context and retries
// up to 10 attempts with exponential backoff (base factor 0.5) on
// 500/502/503/504 responses or connection-refused, per spec.md §5/§7. The caller's
// req.Body, if any, must be re-creatable across retries (GetBody set),
// which every client in this repo arranges by buffering small JSON
// bodies up front.
func Do(ctx context.Context, client *http.Client, readTimeout time.Duration, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, readTimeout)
			defer cancel()

			r := req.Clone(callCtx)
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return retry.Unrecoverable(err)
				}
				r.Body = body
			}

			res, doErr := client.Do(r)
			if doErr != nil {
				if isConnectionRefused(doErr) {
					return doErr
				}
				return retry.Unrecoverable(doErr)
			}
			if isRetryableStatus(res.StatusCode) {
				res.Body.Close()
				return &httpStatusError{status: res.StatusCode}
			}
			resp = res
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(10),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type httpStatusError struct{ status int }

func (e *httpStatusError) Error() string {
	return http.StatusText(e.status)
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
