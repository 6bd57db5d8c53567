package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterMetrics_ServesSuppliedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	metricsHandler := RegisterMetrics(reg)

	// Una request instrumentada tiene que aparecer en el registry recibido,
	// no solo en el default.
	wrapped := WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	metricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics endpoint status: %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "http_requests_total") {
		t.Fatalf("supplied registry must expose the http metrics, got:\n%s", body)
	}
}

func TestRegisterMetrics_Reentrant(t *testing.T) {
	// Dos routers en el mismo proceso no deben panicear por doble registro.
	RegisterMetrics(nil)
	RegisterMetrics(nil)
}
