package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cashflow-crm/internal/api/handler"
	mw "cashflow-crm/internal/api/middleware"
	"cashflow-crm/internal/config"
	"cashflow-crm/internal/domain/client"
	"cashflow-crm/internal/domain/loan"
	"cashflow-crm/internal/domain/stats"
)

func SetupRouter(
	clientService client.ClientService,
	statsService *stats.Service,
	engine *loan.Engine,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupAuthRoutes(router, cfg, logger)
	setupClientRoutes(router, cfg, clientService, logger)
	setupStatsRoutes(router, cfg, statsService, engine, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupAuthRoutes(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(*cfg, logger)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})
}

func setupClientRoutes(router *chi.Mux, cfg *config.Config, svc client.ClientService, logger *slog.Logger) {
	h := handler.NewClientHandler(svc, logger)
	paymentHandler := handler.NewPaymentHandler(svc, logger)

	router.Route("/clients", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.CreateClient)
		r.Get("/", h.ListClients)
		r.Get("/payments-due", h.ListPaymentsDue)
		r.Route("/{clientID}", func(r chi.Router) {
			r.Get("/", h.GetClient)
			r.Delete("/", h.ArchiveClient)
			r.Post("/approve", h.ApproveClient)
			r.Post("/decline", h.DeclineClient)
			r.Get("/balance", h.GetBalance)
			r.Put("/due-date", h.ExtendDueDate)
			r.Post("/payments", paymentHandler.RecordPayment)
			r.Get("/payments", paymentHandler.ListPayments)
		})
	})
}

func setupStatsRoutes(router *chi.Mux, cfg *config.Config, statsService *stats.Service, engine *loan.Engine, logger *slog.Logger) {
	statsHandler := handler.NewStatsHandler(statsService, logger)
	notificationHandler := handler.NewNotificationHandler(engine, logger)

	router.Route("/stats", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Get("/", statsHandler.GetPortfolioSummary)
	})
	router.Route("/notifications", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Get("/", notificationHandler.ListNotifications)
		r.Delete("/", notificationHandler.ClearNotifications)
	})
}
