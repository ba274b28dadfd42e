package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiterAllow(t *testing.T) {
	l := NewIPRateLimiter(2, 0)
	if !l.Allow("k") || !l.Allow("k") {
		t.Fatalf("first two requests should pass")
	}
	if l.Allow("k") {
		t.Fatalf("third request should be blocked")
	}
	if !l.Allow("other") {
		t.Fatalf("other key should have its own window")
	}
}

func TestIPRateLimiterWindowResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("k") {
		t.Fatalf("first request should pass")
	}
	if l.Allow("k") {
		t.Fatalf("second request in window should be blocked")
	}
	now = now.Add(61 * time.Second)
	if !l.Allow("k") {
		t.Fatalf("request in next window should pass")
	}
}

func TestRateLimitMiddlewareRejects(t *testing.T) {
	mw := RateLimitMiddleware(NewIPRateLimiter(1, time.Minute))
	next := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i, want := range []int{http.StatusCreated, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/student-results", nil)
		req.RemoteAddr = "10.0.0.1"
		w := httptest.NewRecorder()
		next.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, w.Code)
		}
	}
}
