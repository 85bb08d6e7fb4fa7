// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware and
// routes, and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// cmd/server opens the database pool once and hands it over:
//
//	sqlstore.Store → UserStore / RecipeStore (repositories)
//	               → AuthService / UserService / RecipeService
//	               → AuthHandler / UserHandler / RecipeHandler
//
// This is the "composition root" pattern: all dependencies are wired in
// one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/recipebox/internal/auth"
	"github.com/sakif/recipebox/internal/config"
	"github.com/sakif/recipebox/internal/handler"
	"github.com/sakif/recipebox/internal/middleware"
	"github.com/sakif/recipebox/internal/repository/sqlstore"
	"github.com/sakif/recipebox/internal/service"
	"github.com/sakif/recipebox/internal/spoonacular"
)

// Server timeouts.
const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database pool it was given. Start closes it once
// the HTTP server has stopped, so in-flight requests finish first.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  *sqlstore.Store
}

// New creates a Server on top of an open store.
//
// Each layer only receives what it needs:
// - Services get repository interfaces (not the concrete store)
// - Handlers get services (not the repository or DB)
func New(cfg config.Config, store *sqlstore.Store, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("server: token service: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}
	s.setupRoutes(tokens)
	return s, nil
}

// Handler returns the fully wired router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// POST   /auth/register          → create account
// POST   /auth/login             → log in
// POST   /auth/logout            → acknowledge logout
// GET    /auth/me                → current user            [auth]
// GET    /users/{id}             → own profile             [auth]
// PUT    /users/{id}             → update own profile      [auth]
// PUT    /users/{id}/password    → change own password     [auth]
// DELETE /users/{id}             → delete own account      [auth]
// GET    /recipes/all            → own favorites           [auth]
// POST   /recipes                → save favorite           [auth]
// GET    /recipes/random         → catalogue: random
// GET    /recipes/search         → catalogue: by ingredients
// GET    /recipes/{id}           → favorite or catalogue   [optional auth]
// PUT    /recipes/{id}           → edit favorite           [auth]
// DELETE /recipes/{id}           → remove favorite         [auth]
// GET    /health                 → liveness + DB ping
// GET    /*                      → static frontend
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Recoverer: catches panics and returns 500 instead of crashing
//
// Logger sits outside Recoverer so a recovered panic is still logged as a 500.
func (s *Server) setupRoutes(tokens *auth.TokenService) {
	dev := s.config.IsDevelopment()

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.NotFound(handler.HandleNotFound)
	s.router.MethodNotAllowed(handler.HandleMethodNotAllowed)

	// === Services ===
	passwords := auth.NewPasswordService(s.config.BcryptCost)
	catalogue := spoonacular.New(s.config.SpoonacularBaseURL, s.config.SpoonacularAPIKey, s.logger)
	if !catalogue.Configured() {
		s.logger.Warn("SPOONACULAR_API_KEY not set, catalogue routes will answer 500")
	}

	authService := service.NewAuthService(s.store.Users(), tokens, passwords, s.logger)
	userService := service.NewUserService(s.store.Users(), passwords, s.logger)
	recipeService := service.NewRecipeService(s.store.Recipes(), catalogue, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, s.logger, dev)
	userHandler := handler.NewUserHandler(userService, s.logger, dev)
	recipeHandler := handler.NewRecipeHandler(recipeService, s.logger, dev)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	requireAuth := auth.RequireAuth(tokens)
	optionalAuth := auth.OptionalAuth(tokens)

	// === API Routes ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.With(requireAuth).Get("/me", authHandler.HandleMe)
	})

	s.router.Route("/users", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/{id}", userHandler.HandleGet)
		r.Put("/{id}", userHandler.HandleUpdate)
		r.Put("/{id}/password", userHandler.HandleChangePassword)
		r.Delete("/{id}", userHandler.HandleDelete)
	})

	s.router.Route("/recipes", func(r chi.Router) {
		// Public catalogue routes. Static segments win over {id}.
		r.Get("/random", recipeHandler.HandleRandom)
		r.Get("/search", recipeHandler.HandleSearch)
		r.With(optionalAuth).Get("/{id}", recipeHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/all", recipeHandler.HandleList)
			r.Post("/", recipeHandler.HandleCreate)
			r.Put("/{id}", recipeHandler.HandleUpdate)
			r.Delete("/{id}", recipeHandler.HandleDelete)
		})
	})

	s.router.Get("/health", healthHandler.HandleHealth)

	// === Static Files ===
	if s.config.StaticDir != "" {
		s.router.Handle("/*", staticFiles(s.config.StaticDir))
	}
}

// staticFiles serves the frontend from dir. Paths that don't name an
// existing file, and any method other than GET or HEAD, fall through to the
// JSON 404, so API typos never come back as an HTML page.
func staticFiles(dir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			handler.HandleNotFound(w, r)
			return
		}

		name := path.Clean("/" + r.URL.Path)
		full := filepath.Join(dir, filepath.FromSlash(name))

		info, err := os.Stat(full)
		if err == nil && info.IsDir() {
			_, err = os.Stat(filepath.Join(full, "index.html"))
		}
		if err != nil || strings.HasPrefix(path.Base(name), ".") {
			handler.HandleNotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	}
}

// Start runs the HTTP server until ctx is cancelled or SIGINT/SIGTERM
// arrives, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database pool
//
// The `defer s.store.Close()` makes step 3 happen on every exit path.
func (s *Server) Start(ctx context.Context) error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("driver", s.config.DBDriver),
			slog.String("env", s.config.AppEnv),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
