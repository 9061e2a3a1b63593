package reportapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/store/memstore"
	"github.com/hpc-bos/bos/internal/engine/tokens"
)

func newTestServer(t *testing.T) (*Server, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	tbl := tokens.NewMemTable()
	return &Server{
		Store:     st,
		Tokens:    tbl,
		Log:       logr.Discard(),
		Now:       func() time.Time { return time.Unix(1700, 0) },
		StartTime: time.Unix(1000, 0),
	}, st
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	NewMux(s).ServeHTTP(rec, req)
	return rec
}

func TestActualStateReportSuccess(t *testing.T) {
	s, st := newTestServer(t)
	_ = st.Put(context.Background(), []component.Component{{ID: "x1", Enabled: true}})
	_ = s.Tokens.Put(context.Background(), "tok-1", tokens.Record{Kernel: "k1", Initrd: "i1", KernelParameters: "p1"})

	rec := doRequest(t, s, http.MethodPost, "/components/x1/actualstate", map[string]string{"bss_token": "tok-1"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204; body=%s", rec.Code, rec.Body.String())
	}

	got, ok, err := st.Get(context.Background(), "x1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.ActualState.BootArtifacts.Kernel != "k1" || got.ActualState.BootArtifacts.BSSToken != "tok-1" {
		t.Errorf("actual state = %+v, want kernel=k1 bss_token=tok-1", got.ActualState)
	}
}

func TestActualStateReportUnknownTokenIs409(t *testing.T) {
	s, st := newTestServer(t)
	_ = st.Put(context.Background(), []component.Component{{ID: "x1", Enabled: true}})

	rec := doRequest(t, s, http.MethodPost, "/components/x1/actualstate", map[string]string{"bss_token": "does-not-exist"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestActualStateReportMalformedBodyIs400(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/components/x1/actualstate", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	NewMux(s).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestActualStateReportMissingTokenIs400(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/components/x1/actualstate", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthzShape(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		UptimeSeconds string `json:"uptime_seconds"`
		Goroutines    int    `json:"goroutines"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding healthz response: %v", err)
	}
	if body.Goroutines <= 0 {
		t.Errorf("goroutines = %d, want > 0", body.Goroutines)
	}
	if body.UptimeSeconds == "" {
		t.Error("uptime_seconds should be populated")
	}
}
