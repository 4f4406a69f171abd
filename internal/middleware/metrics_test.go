package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type recordedRequest struct {
	method string
	route  string
	status int
}

type mockCollector struct {
	requests []recordedRequest
}

func (m *mockCollector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	m.requests = append(m.requests, recordedRequest{method: method, route: route, status: statusCode})
}
func (m *mockCollector) RecordFeedbackMutation(op string) {}
func (m *mockCollector) RecordValidationFailure()         {}

func TestMetricsMiddleware_RecordsRoutePattern(t *testing.T) {
	mc := &mockCollector{}

	r := chi.NewRouter()
	r.Use(NewMetricsMiddleware(mc))
	r.Get("/api/feedback/{id}/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/feedback/42/", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if len(mc.requests) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(mc.requests))
	}
	got := mc.requests[0]
	if got.route != "/api/feedback/{id}/" {
		t.Errorf("route = %q, want %q", got.route, "/api/feedback/{id}/")
	}
	if got.method != http.MethodGet {
		t.Errorf("method = %q, want GET", got.method)
	}
	if got.status != http.StatusNotFound {
		t.Errorf("status = %d, want %d", got.status, http.StatusNotFound)
	}
}

func TestMetricsMiddleware_UnmatchedRoute(t *testing.T) {
	mc := &mockCollector{}

	r := chi.NewRouter()
	r.Use(NewMetricsMiddleware(mc))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/no/such/path", nil))

	if len(mc.requests) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(mc.requests))
	}
	if mc.requests[0].route != unmatchedRoute {
		t.Errorf("route = %q, want %q", mc.requests[0].route, unmatchedRoute)
	}
	if mc.requests[0].status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", mc.requests[0].status)
	}
}
