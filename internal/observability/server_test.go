package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestServer_Healthz(t *testing.T) {
	s := NewServer(":0", nil)

	rr := get(t, s, "/healthz")
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("expected body 'ok', got %q", rr.Body.String())
	}
}

func TestServer_ReadyzReflectsCheck(t *testing.T) {
	var readyErr error
	s := NewServer(":0", func() error { return readyErr })

	rr := get(t, s, "/readyz")
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 while ready, got %d", rr.Code)
	}

	readyErr = errors.New("session failed: stream reset by peer")
	rr = get(t, s, "/readyz")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while not ready, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "stream reset by peer") {
		t.Errorf("expected the failure reason in the body, got %q", rr.Body.String())
	}

	readyErr = nil
	rr = get(t, s, "/readyz")
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 after recovery, got %d", rr.Code)
	}
}

func TestServer_ReadyzWithoutCheck(t *testing.T) {
	s := NewServer(":0", nil)

	rr := get(t, s, "/readyz")
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 with no readiness check, got %d", rr.Code)
	}
}

func TestServer_MetricsServed(t *testing.T) {
	s := NewServer(":0", nil)

	rr := get(t, s, "/metrics")
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}
