package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape: expected 200, got %d", rec.Code)
	}
	return rec.Body.String()
}

func TestInstrumentCountsRequests(t *testing.T) {
	m := NewMetrics("fastcore", nil)
	handler := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/widgets", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
	}

	body := scrape(t, m)
	if !strings.Contains(body, "fastcore_http_requests_total") {
		t.Fatal("request counter missing from scrape")
	}
	if !strings.Contains(body, `method="POST"`) || !strings.Contains(body, `status="201"`) {
		t.Fatalf("expected labeled series in scrape:\n%s", body)
	}
	if !strings.Contains(body, "fastcore_http_request_duration_seconds") {
		t.Fatal("duration histogram missing from scrape")
	}
}

func TestInstrumentUsesRouteTemplate(t *testing.T) {
	m := NewMetrics("fastcore", nil)
	router := mux.NewRouter()
	router.Use(m.Instrument)
	router.Handle("/widgets/{id}", okHandler()).Methods(http.MethodGet)

	for _, path := range []string{"/widgets/1", "/widgets/2"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, rec.Code)
		}
	}

	body := scrape(t, m)
	if !strings.Contains(body, `path="/widgets/{id}"`) {
		t.Fatalf("expected route template as path label:\n%s", body)
	}
	if strings.Contains(body, `path="/widgets/1"`) {
		t.Fatal("concrete request URLs must not become label values")
	}
}

func TestInstrumentExcludesPaths(t *testing.T) {
	m := NewMetrics("fastcore", []string{"/metrics", "/health"})
	handler := m.Instrument(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := scrape(t, m)
	if strings.Contains(body, `path="/health"`) {
		t.Fatal("excluded path must not be instrumented")
	}
}

func TestNamespaceSanitized(t *testing.T) {
	m := NewMetrics("My App", nil)
	handler := m.Instrument(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := scrape(t, m)
	if !strings.Contains(body, "my_app_http_requests_total") {
		t.Fatal("namespace should be lowercased with separators replaced")
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
