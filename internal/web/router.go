package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"fall-monitor/internal/platform/logger"
	"fall-monitor/internal/platform/metrics"
)

// NewRouter wires the routes. videoFeed serves /video_feed and may be nil.
// met may be nil to skip request metrics and /metrics.
func NewRouter(h *Handler, videoFeed http.Handler, met *metrics.Metrics) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	// The dashboard may be hosted elsewhere and poll the API cross-origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(logger.RequestLogger(h.log, "/api/status", "/metrics"))
	if met != nil {
		r.Use(metrics.RequestMiddleware(met))
		r.Get("/metrics", met.Handler(nil).ServeHTTP)
	}

	r.Get("/", h.Index)
	if videoFeed != nil {
		r.Get("/video_feed", videoFeed.ServeHTTP)
	}
	r.Get("/ws", h.WebSocket)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Get("/report", h.Report)
		r.Get("/test_alert", h.TestAlert)
	})
	return r
}
