package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/gym-storefront/internal/checkout"
	"github.com/frahmantamala/gym-storefront/internal/transport/rest"
)

var openAPIPath string

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle checkout requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	app, err := newApp(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	lg := app.Logger

	router := chi.NewRouter()
	setupRoutes(app, router)

	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	lg.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: app.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       app.Config.Server.ReadTimeout,
		WriteTimeout:      app.Config.Server.WriteTimeout,
		IdleTimeout:       app.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			lg.Error("Server shutdown error", "error", err)
		}
		app.Close()
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			lg.Error("Server failed to start", "error", err)
			app.Close()
			os.Exit(1)
		}
	}

	lg.Info("Server stopped")
}

func setupRoutes(app *App, router *chi.Mux) {
	extra := map[string]rest.Pinger{}
	if app.Redis != nil {
		extra["redis"] = func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() }
	}

	opts := rest.RouteOptions{
		Health:         rest.NewHealthHandler(app.SQL.DB, extra),
		Checkout:       checkout.NewHandler(app.Orchestrator, app.Sessions, app.Logger),
		AllowedOrigins: app.Config.Server.AllowedOrigins,
		OpenAPIPath:    openAPIPath,
		Logger:         app.Logger,
	}
	if app.Config.Observability.Metrics.Enabled {
		opts.MetricsPath = app.Config.Observability.Metrics.Path
		opts.MetricsGatherer = app.Registry
	}

	rest.RegisterAllRoutes(router, opts)
}

func init() {
	httpServerCmd.Flags().StringVar(&openAPIPath, "openapi", "./api/openapi.yml", "OpenAPI document served at /openapi.yml")
}
