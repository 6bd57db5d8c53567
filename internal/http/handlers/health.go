package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/shopjohn/internal/http/httpx"
)

// Pinger chequea la disponibilidad de una dependencia (Postgres, Redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler expone liveness y readiness.
type HealthHandler struct {
	// Deps son las dependencias a chequear en /readyz, por nombre.
	Deps map[string]Pinger
}

func (h *HealthHandler) Register(r chi.Router) {
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
}

func (h *HealthHandler) healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.Deps))
	for name, dep := range h.Deps {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}
	httpx.WriteJSON(w, status, map[string]any{"checks": checks})
}
