package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/library-dashboard/internal/config"
	"github.com/terra-clan/library-dashboard/internal/health"
	"github.com/terra-clan/library-dashboard/internal/library"
)

// Server represents the dashboard HTTP API server
type Server struct {
	config  config.ServerConfig
	router  *chi.Mux
	manager *library.Manager
	health  *health.Registry
	hub     *Hub
}

// NewServer creates a new API server. The hub must already be installed as
// the controller's renderer for websocket viewers to receive renders.
func NewServer(
	cfg config.ServerConfig,
	manager *library.Manager,
	registry *health.Registry,
	hub *Hub,
) *Server {
	s := &Server{
		config:  cfg,
		manager: manager,
		health:  registry,
		hub:     hub,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Downloads-Today"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// Websocket connections are long-lived and stay outside the timeout
	r.Get("/ws/view", s.handleViewWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/view", func(r chi.Router) {
			r.Get("/", s.handleGetView)
			r.Post("/search", s.handleSetSearch)
			r.Post("/category", s.handleSetCategory)
			r.Post("/sort", s.handleSetSort)
			r.Post("/next", s.handleNextPage)
			r.Post("/prev", s.handlePrevPage)
		})

		r.Get("/dashboard/stats", s.handleStats)
		r.Get("/analytics", s.handleAnalytics)
		r.Get("/downloads", s.handleDownloads)
		r.Delete("/downloads", s.handleResetDownloads)

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.handleListTags)
			r.Post("/", s.handleCreateTag)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.handleUpload)
			r.Post("/reload", s.handleReload)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDocument)
				r.Delete("/", s.handleDeleteDocument)
				r.Post("/download", s.handleDownload)
				r.Get("/comments", s.handleListComments)
				r.Post("/comments", s.handleAddComment)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
