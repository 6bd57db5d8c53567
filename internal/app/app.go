// Package app conecta config, stores, broker y workflow en un contenedor
// listo para que los subcomandos (serve, worker, cleanup) lo usen.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/shopjohn/internal/config"
	"github.com/dropDatabas3/shopjohn/internal/domain/repository"
	"github.com/dropDatabas3/shopjohn/internal/email"
	httpserver "github.com/dropDatabas3/shopjohn/internal/http"
	"github.com/dropDatabas3/shopjohn/internal/http/handlers"
	jwtx "github.com/dropDatabas3/shopjohn/internal/jwt"
	"github.com/dropDatabas3/shopjohn/internal/notify"
	"github.com/dropDatabas3/shopjohn/internal/observability/logger"
	"github.com/dropDatabas3/shopjohn/internal/rate"
	"github.com/dropDatabas3/shopjohn/internal/store/memory"
	"github.com/dropDatabas3/shopjohn/internal/store/pg"
	"github.com/dropDatabas3/shopjohn/internal/verification"
)

// App es el contenedor de dependencias del servicio.
type App struct {
	Cfg *config.Config

	WF       *verification.Workflow
	Queue    notify.Queue
	Sender   email.Sender
	Verifier *jwtx.Verifier

	pool  *pgxpool.Pool
	redis *rdb.Client
}

// New arma el contenedor a partir de la config: elige backends de storage y
// broker según los drivers configurados y deja el workflow listo.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Cfg: cfg}

	verifyTTL, err := cfg.VerifyTTL()
	if err != nil {
		return nil, fmt.Errorf("config verify_ttl: %w", err)
	}
	resetTTL, err := cfg.ResetTTL()
	if err != nil {
		return nil, fmt.Errorf("config reset_ttl: %w", err)
	}
	window, err := cfg.ThrottleWindow()
	if err != nil {
		return nil, fmt.Errorf("config throttle window: %w", err)
	}

	var (
		tokenStore repository.TokenStore
		accounts   repository.AccountDirectory
	)
	switch cfg.Storage.Driver {
	case "postgres":
		lifetime, err := time.ParseDuration(cfg.Storage.Postgres.ConnMaxLifetime)
		if err != nil {
			return nil, fmt.Errorf("config conn_max_lifetime: %w", err)
		}
		pool, err := pg.Open(ctx, pg.Config{
			DSN:             cfg.Storage.DSN,
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			ConnMaxLifetime: lifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pg.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.pool = pool
		tokenStore = pg.NewTokenStore(pool)
		accounts = pg.NewAccountDirectory(pool)
	case "memory":
		tokenStore = memory.NewTokenStore()
		accounts = memory.NewAccountDirectory()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	needRedis := cfg.Notify.QueueDriver == "redis" || cfg.Redis.Addr != ""
	if needRedis {
		a.redis = rdb.NewClient(&rdb.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
	}

	var limiter rate.Limiter
	if a.redis != nil {
		limiter = rate.NewRedisLimiter(a.redis, cfg.Redis.Prefix, cfg.Throttle.Limit, window)
	} else {
		limiter = rate.NewMemoryLimiter(cfg.Throttle.Limit, window)
	}

	switch cfg.Notify.QueueDriver {
	case "redis":
		if a.redis == nil {
			return nil, fmt.Errorf("queue_driver redis requires redis.addr")
		}
		a.Queue = notify.NewRedisQueue(a.redis, cfg.Redis.Prefix+cfg.Notify.QueueName)
	case "memory":
		a.Queue = notify.NewMemoryQueue(0)
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Notify.QueueDriver)
	}

	sender := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.FromEmail, cfg.SMTP.Username, cfg.SMTP.Password)
	sender.TLSMode = cfg.SMTP.TLSMode
	a.Sender = sender

	a.Verifier = jwtx.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)

	a.WF = &verification.Workflow{
		Issuer: &verification.Issuer{
			Store:     tokenStore,
			VerifyTTL: verifyTTL,
			ResetTTL:  resetTTL,
		},
		Store:      tokenStore,
		Accounts:   accounts,
		Dispatcher: notify.NewDispatcher(a.Queue),
		Limiter:    limiter,
		BaseURL:    cfg.Server.PublicBaseURL,
	}

	return a, nil
}

// Serve registra métricas y levanta el server HTTP hasta que el contexto
// muera.
func (a *App) Serve(ctx context.Context) error {
	notify.RegisterMetrics(nil)

	health := map[string]handlers.Pinger{}
	if a.pool != nil {
		health["postgres"] = pgPinger{a.pool}
	}
	if a.redis != nil {
		health["redis"] = redisPinger{a.redis}
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		WF:          a.WF,
		Verifier:    a.Verifier,
		SelfService: a.Cfg.Register.SelfService,
		Health:      health,
	})

	logger.L().Info("http server listening",
		logger.String("addr", a.Cfg.Server.Addr),
		logger.String("base_url", a.Cfg.Server.PublicBaseURL))
	return httpserver.Start(ctx, a.Cfg.Server.Addr, router)
}

// RunWorker consume la cola de notificaciones hasta que el contexto muera.
func (a *App) RunWorker(ctx context.Context) error {
	notify.RegisterMetrics(nil)

	retryDelay, err := a.Cfg.RetryDelay()
	if err != nil {
		return fmt.Errorf("config retry_delay: %w", err)
	}

	w := &notify.Worker{
		Queue:       a.Queue,
		Sender:      a.Sender,
		Templates:   email.NewTemplates(),
		Concurrency: a.Cfg.Notify.Workers,
		MaxRetries:  a.Cfg.Notify.MaxRetries,
		RetryDelay:  retryDelay,
	}
	logger.L().Info("notification worker started",
		logger.Int("concurrency", a.Cfg.Notify.Workers),
		logger.Int("max_retries", a.Cfg.Notify.MaxRetries))
	return w.Run(ctx)
}

// Cleanup purga tokens expirados o consumidos y retorna cuántos borró.
func (a *App) Cleanup(ctx context.Context) (int, error) {
	return a.WF.CleanupExpired(ctx)
}

// Close libera conexiones.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

type pgPinger struct{ pool *pgxpool.Pool }

func (p pgPinger) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

type redisPinger struct{ client *rdb.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }
