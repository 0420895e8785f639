// Package api provides the HTTP API server and handlers for the workroom application.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/workroomapp/workroom-server/internal/http/response"
	"github.com/workroomapp/workroom-server/internal/realtime"
	"github.com/workroomapp/workroom-server/internal/service"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	authService         *service.AuthService
	taskService         *service.TaskService
	workroomService     *service.WorkroomService
	gamificationService *service.GamificationService
	leaderboardService  *service.LeaderboardService
	wsHandler           *realtime.Handler
	authLimiter         *RateLimiter
	router              *chi.Mux
	logger              *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	authService *service.AuthService,
	taskService *service.TaskService,
	workroomService *service.WorkroomService,
	gamificationService *service.GamificationService,
	leaderboardService *service.LeaderboardService,
	wsHandler *realtime.Handler,
	logger *slog.Logger,
) *Server {
	s := &Server{
		authService:         authService,
		taskService:         taskService,
		workroomService:     workroomService,
		gamificationService: gamificationService,
		leaderboardService:  leaderboardService,
		wsHandler:           wsHandler,
		authLimiter:         NewRateLimiter(20, time.Minute, 10),
		router:              chi.NewRouter(),
		logger:              logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (public, rate limited by client IP).
		r.Route("/auth", func(r chi.Router) {
			r.Use(RateLimitMiddleware(s.authLimiter, s.logger))
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)

			// Logout needs the access token to revoke it.
			r.With(s.requireAuth).Post("/logout", s.handleLogout)
		})

		// Current user and gamification read surface.
		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me", s.handleGetCurrentUser)
			r.Get("/me/levels", s.handleGetLevels)
			r.Get("/me/streak", s.handleGetStreak)
			r.Get("/me/badges", s.handleGetBadges)
		})

		// Tasks.
		r.Route("/tasks", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateTask)
			r.Get("/", s.handleListTasks)
			r.Get("/{id}", s.handleGetTask)
			r.Patch("/{id}", s.handleUpdateTask)
			r.Delete("/{id}", s.handleDeleteTask)
			r.Post("/{id}/collaborators", s.handleAddCollaborator)
		})

		// Workrooms.
		r.Route("/workrooms", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateWorkroom)
			r.Get("/", s.handleListWorkrooms)
			r.Get("/{id}", s.handleGetWorkroom)
			r.Patch("/{id}", s.handleUpdateWorkroom)
			r.Delete("/{id}", s.handleDeleteWorkroom)
			r.Post("/{id}/members", s.handleAddMember)
			r.Get("/{id}/members", s.handleListMembers)
			r.Get("/{id}/leaderboard", s.handleGetLeaderboard)
		})

		// Live session websocket. The upgrade handshake carries the token
		// as a query parameter, so admission happens inside the handler
		// rather than in requireAuth.
		r.Get("/workrooms/{id}/ws", s.handleWorkroomWS)
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}

// handleWorkroomWS upgrades the connection and hands it to the realtime handler.
func (s *Server) handleWorkroomWS(w http.ResponseWriter, r *http.Request) {
	workroomID := chi.URLParam(r, "id")
	if workroomID == "" {
		response.BadRequest(w, "Workroom ID is required", s.logger)
		return
	}

	s.wsHandler.ServeWorkroom(w, r, workroomID)
}
