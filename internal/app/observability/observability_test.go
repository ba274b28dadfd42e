package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizedPath(t *testing.T) {
	got := normalizedPath("/api/v1/test-configs/123/variants")
	want := "/api/v1/test-configs/{id}/variants"
	if got != want {
		t.Fatalf("normalizedPath mismatch got=%s want=%s", got, want)
	}
}

func TestResourceID(t *testing.T) {
	if id := resourceID("/api/v1/variants/456", "variants"); id != 456 {
		t.Fatalf("expected 456, got %d", id)
	}
	if id := resourceID("/api/v1/test-configs/7/variants", "variants"); id != 0 {
		t.Fatalf("expected 0 for trailing segment, got %d", id)
	}
	if id := resourceID("/api/v1/test-configs/7/variants", "test-configs"); id != 7 {
		t.Fatalf("expected 7, got %d", id)
	}
}

func TestMetricsHandlerCountsRequests(t *testing.T) {
	c := NewCollector(nil)
	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/variants/9", nil))
	}

	rr := httptest.NewRecorder()
	c.MetricsHandler(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	want := `testgen_http_requests_total{method="GET",path="/api/v1/variants/{id}",status="404"} 2`
	if !strings.Contains(body, want) {
		t.Fatalf("metrics missing %q:\n%s", want, body)
	}
	if strings.Contains(body, "testgen_db_open_connections") {
		t.Fatalf("db gauges must be omitted without a database")
	}
}
