// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "start the server")
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/coursemate/internal/auth"
	"github.com/sakif/coursemate/internal/config"
	"github.com/sakif/coursemate/internal/handler"
	"github.com/sakif/coursemate/internal/middleware"
	sqliteRepo "github.com/sakif/coursemate/internal/repository/sqlite"
	"github.com/sakif/coursemate/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection (db). When the server shuts down,
// we must close this connection to flush any pending writes and release the
// file lock. This is handled in Start() during graceful shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
// This is where the entire dependency chain is assembled:
//  1. Create the database connection (sqlite.New)
//  2. Create the auth building blocks (token service, provider adapters)
//  3. Create the service layer with the repository interfaces
//  4. Create the handlers with the services
//  5. Wire handlers to routes
//
// Each layer only receives what it needs:
// - Services get repository interfaces (not the concrete sqlite.DB)
// - Handlers get services (not repositories or the DB)
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                              → API status (health checks hit this)
// GET    /api/auth/google/login         → authorization URL for the frontend
// GET    /api/auth/google/callback      → direct OAuth flow completion
// POST   /api/auth/google/callback      → delegated (Supabase) flow completion
// POST   /api/auth/sync-user            → identity sync (bearer or raw claims)
// POST   /auth/logout                   → clear session cookie
// GET    /api/me                        → current user            [auth]
// GET    /api/communities(?type=)       → list communities
// GET    /api/communities/{id}          → get community
// POST   /api/communities               → create community        [auth]
// PUT    /api/communities/{id}          → update community        [auth]
// DELETE /api/communities/{id}          → delete community        [auth]
// POST   /api/join-requests             → file a join request     [optional auth]
// GET    /api/join-requests(?status=)   → list join requests      [auth]
// GET    /api/join-requests/{id}        → get join request        [auth]
// PUT    /api/join-requests/{id}        → update request status   [auth]
// DELETE /api/join-requests/{id}        → delete join request     [auth]
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. Logger — logs each request with timing info
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Auth building blocks ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	bearer, err := auth.NewBearerParser(s.config.SupabaseJWTSecret, s.config.TrustUnverifiedClaims)
	if err != nil {
		return fmt.Errorf("creating bearer parser: %w", err)
	}
	google := auth.NewGoogleProvider(
		s.config.GoogleClientID,
		s.config.GoogleClientSecret,
		s.config.GoogleCallbackURL,
	)
	supabase := auth.NewSupabaseClient(
		s.config.SupabaseURL,
		s.config.SupabaseKey,
		s.config.SupabaseSecret,
	)

	// === Services ===
	syncService := service.NewSyncService(s.db.Users(), s.logger)
	communityService := service.NewCommunityService(s.db.Communities(), s.logger)
	joinRequestService := service.NewJoinRequestService(s.db.JoinRequests(), s.db.Users(), s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(
		google, supabase, bearer, tokens, syncService,
		s.logger, s.config.FrontendURL, s.config.UseSupabaseAuth,
	)
	communityHandler := handler.NewCommunityHandler(communityService, s.logger)
	joinRequestHandler := handler.NewJoinRequestHandler(joinRequestService, s.logger)
	statusHandler := handler.NewStatusHandler()

	s.router.Get("/", statusHandler.HandleRoot)
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	s.router.Route("/api", func(r chi.Router) {
		// Login flows — open by definition
		r.Get("/auth/google/login", authHandler.HandleGoogleLogin)
		r.Get("/auth/google/callback", authHandler.HandleGoogleCallback)
		r.Post("/auth/google/callback", authHandler.HandleSupabaseCallback)
		r.Post("/auth/sync-user", authHandler.HandleSyncUser)

		// Communities: reads are public, writes need a session
		r.Get("/communities", communityHandler.HandleList)
		r.Get("/communities/{id}", communityHandler.HandleGet)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/communities", communityHandler.HandleCreate)
			r.Put("/communities/{id}", communityHandler.HandleUpdate)
			r.Delete("/communities/{id}", communityHandler.HandleDelete)
		})

		// Join requests: anyone may file one; everything else needs a session
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))
			r.Post("/join-requests", joinRequestHandler.HandleCreate)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/join-requests", joinRequestHandler.HandleList)
			r.Get("/join-requests/{id}", joinRequestHandler.HandleGet)
			r.Put("/join-requests/{id}", joinRequestHandler.HandleUpdateStatus)
			r.Delete("/join-requests/{id}", joinRequestHandler.HandleDelete)

			r.Get("/me", authHandler.HandleMe)
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
//
// If we skip step 3, the database file might be left in an inconsistent state.
// The `defer s.db.Close()` ensures this happens even if something panics.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine (so it doesn't block)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
