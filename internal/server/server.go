// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it testable (we can create
// a test server without running main) and keeps main.go minimal.
//
// DEPENDENCY INJECTION FLOW:
// main.go creates:
//
//	config.Load() → *config.Config → server.New()
//
// server.New() creates:
//
//	Backend (memory | gist | sqlite) → docstore.Store
//	docstore.Store → AuthService, Guard → Project/Task/Repo/Analytics services
//	services → handlers → routes
//
// This is the "composition root" pattern: all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/devpulse/internal/auth"
	"github.com/sakif/devpulse/internal/config"
	"github.com/sakif/devpulse/internal/github"
	"github.com/sakif/devpulse/internal/handler"
	"github.com/sakif/devpulse/internal/middleware"
	"github.com/sakif/devpulse/internal/repository/docstore"
	"github.com/sakif/devpulse/internal/repository/gist"
	sqliteRepo "github.com/sakif/devpulse/internal/repository/sqlite"
	"github.com/sakif/devpulse/internal/scorer"
	"github.com/sakif/devpulse/internal/service"
)

var _ service.RepoClient = (*github.Client)(nil)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the Record Store. When the server shuts down we close it,
// which for SQLite flushes the WAL and releases the file lock.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  *docstore.Store
}

// Options swaps out external dependencies. The zero value is production.
type Options struct {
	// Backend replaces the backend chosen by cfg.StoreBackend.
	Backend docstore.Backend
	// Scorer replaces the scorer chosen by cfg.LLMAPIKey.
	Scorer scorer.Scorer
	// RepoClient replaces the per-user GitHub client factory.
	RepoClient service.RepoClientFactory
	// OAuth replaces the GitHub OAuth provider.
	OAuth handler.OAuthProvider
}

// New builds the whole dependency graph from cfg.
//
// Each layer only receives what it needs:
// - Services get repository interfaces (not the concrete docstore.Store)
// - Handlers get services (not the store)
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Server, error) {
	// === 1. RECORD STORE ===
	backend := opts.Backend
	if backend == nil {
		var err error
		backend, err = openBackend(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}
	store := docstore.New(backend, logger.With(slog.String("component", "docstore")))

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(opts); err != nil {
		store.Close() // Clean up the store if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// openBackend connects the configured document backend.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (docstore.Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendGist:
		b, err := gist.New(ctx, cfg.GistToken, logger.With(slog.String("component", "gist")))
		if err != nil {
			return nil, fmt.Errorf("opening gist store: %w", err)
		}
		logger.Info("using gist store", slog.String("gistID", b.GistID()))
		return b, nil
	case config.BackendSQLite:
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		logger.Info("using sqlite store", slog.String("path", cfg.DBPath))
		return db, nil
	case config.BackendMemory, "":
		logger.Warn("using in-memory store, data is lost on restart")
		return docstore.NewMemoryBackend(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /api/health                                  → store reachability
// GET    /metrics                                     → Prometheus scrape
// GET    /auth/github/login, /auth/github/callback    → OAuth flow
// POST   /api/auth/logout, GET /api/auth/me           → session
// /api/projects, /api/tasks                           → CRUD (owner only)
// /api/analytics/...                                  → commit analysis
// /api/github/...                                     → GitHub proxy
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Metrics: counts requests per route pattern
// 5. Recoverer: catches panics and returns 500 instead of crashing
// 6. CORS: lets the frontend origin send cookies
func (s *Server) setupRoutes(opts Options) error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	cipher, err := auth.NewTokenCipher(cfg.TokenEncryptionKey)
	if err != nil {
		return fmt.Errorf("creating token cipher: %w", err)
	}

	oauth := opts.OAuth
	if oauth == nil {
		oauth = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	sc := opts.Scorer
	if sc == nil {
		if cfg.LLMAPIKey != "" {
			sc = scorer.NewLLM(scorer.Config{
				APIKey:  cfg.LLMAPIKey,
				BaseURL: cfg.LLMBaseURL,
				Model:   cfg.LLMModel,
			}, s.logger.With(slog.String("component", "scorer")))
		} else {
			sc = scorer.NewOffline()
		}
	}

	newClient := opts.RepoClient
	if newClient == nil {
		newClient = func(token string) service.RepoClient { return github.NewClient(token) }
	}

	// === SERVICES ===
	// s.store implements every repository interface; each service gets only
	// the slice it needs.
	authService := service.NewAuthService(s.store, tokens, cipher, s.logger)
	guard := service.NewGuard(s.store)
	projectService := service.NewProjectService(s.store, guard, s.logger)
	taskService := service.NewTaskService(s.store, s.store, guard, s.logger)
	repoService := service.NewRepoService(authService, newClient)
	analyticsService := service.NewAnalyticsService(s.store, guard, authService, newClient, sc, s.logger)

	// === HANDLERS ===
	authHandler := handler.NewAuthHandler(oauth, authService, cfg.FrontendURL, cfg.CookieSecure, s.logger)
	projectHandler := handler.NewProjectHandler(projectService)
	taskHandler := handler.NewTaskHandler(taskService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, s.logger)
	githubHandler := handler.NewGitHubHandler(repoService)
	healthHandler := handler.NewHealthHandler(s.store, cfg.StoreBackend, s.logger)

	// === Global Middleware ===
	// These run on EVERY request, in order
	s.router.Use(chimiddleware.RequestID) // Request ID in the context, for log correlation
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true, // the session travels in a cookie
		MaxAge:           300,
	}))

	// === Public Routes ===
	s.router.Get("/api/health", healthHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/auth/github", func(r chi.Router) {
		r.Get("/login", authHandler.HandleGitHubLogin)
		r.Get("/callback", authHandler.HandleGitHubCallback)
	})

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		// Logout only clears a cookie, so it works without a valid session.
		r.Post("/auth/logout", authHandler.HandleLogout)

		// Everything below requires a valid session.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/auth/me", authHandler.HandleMe)

			r.Route("/projects", func(r chi.Router) {
				r.Post("/", projectHandler.HandleCreate)
				r.Get("/", projectHandler.HandleList)
				r.Get("/{id}", projectHandler.HandleGet)
				r.Put("/{id}", projectHandler.HandleUpdate)
				r.Delete("/{id}", projectHandler.HandleDelete)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", taskHandler.HandleCreate)
				r.Get("/project/{projectID}", taskHandler.HandleListByProject)
				r.Put("/{id}", taskHandler.HandleUpdate)
				r.Delete("/{id}", taskHandler.HandleDelete)
			})

			r.Route("/analytics", func(r chi.Router) {
				r.Post("/analyze", analyticsHandler.HandleAnalyze)
				r.Get("/project/{projectID}", analyticsHandler.HandleListByProject)
				r.Get("/project/{projectID}/contributor/{contributor}", analyticsHandler.HandleContributor)
				r.Get("/project/{projectID}/insights", analyticsHandler.HandleInsights)
			})

			r.Route("/github", func(r chi.Router) {
				r.Post("/parse-url", githubHandler.HandleParseURL)
				r.Route("/repo/{owner}/{repo}", func(r chi.Router) {
					r.Get("/", githubHandler.HandleRepository)
					r.Get("/contributors", githubHandler.HandleContributors)
					r.Get("/commits", githubHandler.HandleCommits)
					r.Get("/commits/{sha}", githubHandler.HandleCommit)
					r.Get("/access", githubHandler.HandleAccess)
				})
			})
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the Record Store (flushes the SQLite WAL, releases the file lock)
//
// The `defer s.store.Close()` ensures step 3 happens even if something panics.
func (s *Server) Start() error {
	// Ensure the store is closed when the server stops.
	// This runs AFTER everything else in this function finishes.
	defer s.store.Close()

	// Create the HTTP server with sensible timeouts.
	// WriteTimeout is generous because /api/analytics/analyze makes one
	// GitHub call and one LLM call per commit inside a single request.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
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
			slog.String("store", s.config.StoreBackend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		// Server failed to start
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		// Received shutdown signal
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
