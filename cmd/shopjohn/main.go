package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/shopjohn/internal/app"
	"github.com/dropDatabas3/shopjohn/internal/config"
	"github.com/dropDatabas3/shopjohn/internal/observability/logger"
)

func main() {
	var (
		configPath string
		envFile    string
	)

	root := &cobra.Command{
		Use:   "shopjohn",
		Short: "Verificación de email y notificaciones del catálogo",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				if err := godotenv.Load(envFile); err == nil {
					fmt.Fprintf(os.Stderr, "dotenv: cargado %s\n", envFile)
				}
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "ruta a config.yaml (fallback: $CONFIG_PATH)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "ruta a .env (si existe, se carga)")

	root.AddCommand(
		serveCmd(&configPath),
		workerCmd(&configPath),
		cleanupCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el server HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, cleanup, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()
			return a.Serve(ctx)
		},
	}
}

func workerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume la cola de notificaciones y envía los mails",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, cleanup, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()
			return a.RunWorker(ctx)
		},
	}
}

func cleanupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Borra tokens expirados o ya consumidos",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, cleanup, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := a.Cleanup(ctx)
			if err != nil {
				return err
			}
			logger.L().Info("cleanup done", logger.Count(n))
			fmt.Printf("deleted %d tokens\n", n)
			return nil
		},
	}
}

// bootstrap carga config, inicializa el logger y arma el contenedor.
// El contexto retornado se cancela con SIGINT/SIGTERM.
func bootstrap(configPath string) (*app.App, context.Context, func(), error) {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" && fileExists("config.yaml") {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config: %w", err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, ServiceName: "shopjohn"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	a, err := app.New(ctx, cfg)
	if err != nil {
		stop()
		return nil, nil, nil, err
	}

	cleanup := func() {
		a.Close()
		_ = logger.Sync()
		stop()
	}
	return a, ctx, cleanup, nil
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
