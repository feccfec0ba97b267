package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frahmantamala/gym-storefront/internal/checkout"
	"github.com/frahmantamala/gym-storefront/internal/transport/middleware"
	"github.com/frahmantamala/gym-storefront/internal/transport/swagger"
)

type RouteOptions struct {
	Health          *HealthHandler
	Checkout        *checkout.Handler
	AllowedOrigins  string
	MetricsPath     string
	MetricsGatherer prometheus.Gatherer
	OpenAPIPath     string
	Logger          *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, opts RouteOptions) {
	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RecoveryMiddleware(opts.Logger))

	if opts.MetricsGatherer != nil && opts.MetricsPath != "" {
		router.Handle(opts.MetricsPath, promhttp.HandlerFor(opts.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	// OpenAPI document and UI live outside the API prefix
	if opts.OpenAPIPath != "" {
		router.Get(swagger.DocumentURL, func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, opts.OpenAPIPath)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.LoggingMiddleware(opts.Logger))

		if opts.Health != nil {
			r.Get("/health", opts.Health.healthCheckHandler)
			r.Get("/ping", opts.Health.pingHandler)
		}

		if opts.Checkout != nil {
			r.Route("/checkout", func(cr chi.Router) {
				cr.Post("/subscriptions", opts.Checkout.CreateSubscription)
				cr.Get("/sessions/{token}", opts.Checkout.GetSession)
			})
		}
	})
}
