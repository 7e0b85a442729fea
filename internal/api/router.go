// Package api assembles the control-plane HTTP surface: notification
// submission, session history, device listing, and operational endpoints.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/homecast/cast-notifier/internal/api/handler"
	apimw "github.com/homecast/cast-notifier/internal/api/middleware"
	"github.com/homecast/cast-notifier/internal/cast"
	"github.com/homecast/cast-notifier/internal/queue"
	"github.com/homecast/cast-notifier/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the control-plane
// surface area; the media server has its own listener.
func NewRouter(
	svc *service.NotificationService,
	registry *cast.Registry,
	q *queue.Queue,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	nh := handler.NewNotificationHandler(svc, logger)
	dh := handler.NewDeviceHandler(registry)
	qh := handler.NewQueueHandler(q)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/notifications", nh.Create)
		r.Get("/notifications", nh.List)
		r.Get("/notifications/{id}", nh.GetByID)

		r.Get("/devices", dh.List)
		r.Get("/queue", qh.GetQueue)
	})

	return r
}
