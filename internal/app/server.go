package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/steadyapp/steady/internal/api/handlers"
	appMiddleware "github.com/steadyapp/steady/internal/api/middlewares"
	"github.com/steadyapp/steady/internal/config"
	"github.com/steadyapp/steady/internal/core"
	"github.com/steadyapp/steady/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, checkins *services.CheckinService) *Server {
	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	checkinHandler := handlers.NewCheckinHandler(checkins)
	interventionHandler := handlers.NewInterventionHandler(db)

	r := NewRouter(cfg, authHandler, checkinHandler, interventionHandler)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// NewRouter assembles the chi router. Split from NewServer so tests can mount
// the exact route tree against httptest.
func NewRouter(cfg *config.Config, auth *handlers.AuthHandler, checkins *handlers.CheckinHandler, interventions *handlers.InterventionHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", auth.Signup)
		api.Post("/login", auth.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWT(cfg.JWTSecret))
			protected.Post("/checkins", checkins.Create)
			protected.Get("/checkins", checkins.List)

			protected.Get("/interventions/latest", interventions.Latest)
			protected.Get("/interventions/pending-feedback", interventions.PendingFeedback)
			protected.Post("/interventions/{id}/viewed", interventions.MarkViewed)
			protected.Post("/interventions/{id}/feedback", interventions.Feedback)
		})
	})

	return r
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
