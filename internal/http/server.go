// Package http arma el router del servicio y el ciclo de vida del server.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/shopjohn/internal/http/handlers"
	"github.com/dropDatabas3/shopjohn/internal/http/middlewares"
	jwtx "github.com/dropDatabas3/shopjohn/internal/jwt"
	"github.com/dropDatabas3/shopjohn/internal/observability/logger"
	"github.com/dropDatabas3/shopjohn/internal/verification"
)

// RouterConfig agrupa las dependencias del router.
type RouterConfig struct {
	WF          *verification.Workflow
	Verifier    *jwtx.Verifier
	SelfService bool
	Health      map[string]handlers.Pinger
	Registry    prometheus.Registerer
}

// NewRouter arma el router completo: flujos públicos de email, baja de
// cuenta autenticada, health y métricas.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	emailFlows := &handlers.EmailFlowsHandler{WF: cfg.WF, SelfService: cfg.SelfService}
	emailFlows.Register(r)

	account := &handlers.AccountHandler{WF: cfg.WF}
	r.Group(func(g chi.Router) {
		g.Use(middlewares.RequireAuth(cfg.Verifier))
		account.Register(g)
	})

	health := &handlers.HealthHandler{Deps: cfg.Health}
	health.Register(r)

	r.Handle("/metrics", RegisterMetrics(cfg.Registry))

	return middlewares.Chain(r,
		middlewares.WithRequestID(),
		middlewares.WithLogging(),
		WithMetrics,
	)
}

// Start levanta el server y lo apaga con gracia cuando el contexto muere.
func Start(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.L().Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
