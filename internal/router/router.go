package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"neurema-cms/internal/config"
	"neurema-cms/internal/handlers"
	"neurema-cms/internal/logger"
	"neurema-cms/internal/middleware"
	"neurema-cms/internal/services"
	"neurema-cms/internal/websocket"
)

type Deps struct {
	Config   *config.Config
	Log      *logger.Logger
	JWTAuth  *middleware.JWTAuth
	Health   *handlers.HealthHandler
	BulkSync *handlers.BulkSyncHandler
	Contents *services.Contents
	Hub      *websocket.Hub
	// BulkLimiter throttles the bulk-sync routes per client IP.
	BulkLimiter *middleware.RateLimiter
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.AllowedHosts(d.Config.AllowedHosts, "/health"))
	r.Use(middleware.CORS(d.Config.FrontendURL))

	bulkLimiter := d.BulkLimiter
	if bulkLimiter == nil {
		bulkLimiter = middleware.NewRateLimiter(d.Config.BulkSyncRateLimit, time.Minute)
	}

	r.Get("/health", d.Health.Check)

	r.Route("/api", func(r chi.Router) {
		// Token checked inside the hub, browsers cannot set headers on upgrade
		r.Get("/ws", d.Hub.HandleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(d.JWTAuth.Middleware)

			// ──── Bulk Sync ────
			r.With(bulkLimiter.Middleware).Post("/study-sessions/bulk-sync", d.BulkSync.StudySessions)
			r.With(bulkLimiter.Middleware).Post("/user-topics/bulk-sync", d.BulkSync.UserTopics)

			// ──── Content Types ────
			c := d.Contents
			r.Route("/conceptuals", handlers.NewContentHandler(c.Conceptuals, map[string]string{
				"topic": "topic_id",
			}, d.Log).Routes)
			r.Route("/edges", handlers.NewContentHandler(c.Edges, map[string]string{
				"conceptual": "conceptual_id",
			}, d.Log).Routes)
			r.Route("/exams", handlers.NewContentHandler(c.Exams, nil, d.Log).Routes)
			r.Route("/study-sessions", handlers.NewContentHandler(c.StudySessions, map[string]string{
				"userTopic": "user_topic_id",
			}, d.Log).Routes)
			r.Route("/user-topics", handlers.NewContentHandler(c.UserTopics, map[string]string{
				"topic":   "topic_id",
				"profile": "profile_id",
			}, d.Log).Routes)
		})
	})

	return r
}
