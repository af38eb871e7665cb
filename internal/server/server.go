// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer. It decides:
//   - which URL patterns map to which handler functions
//   - what middleware runs on which routes
//   - how the server starts and stops
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go loads config.Config → server.New(cfg, logger)
//	server.New opens sqlite.DB once and hands it to every service:
//	  sqlite.DB → AuthService, ProjectService, BoardService, TaskService, TagService
//	  services  → handlers
//
// The database is never opened lazily somewhere deep in a request. It is
// created here, passed down, and closed when Start returns.
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

	"github.com/Gur1a/CheckList/internal/auth"
	"github.com/Gur1a/CheckList/internal/config"
	"github.com/Gur1a/CheckList/internal/handler"
	"github.com/Gur1a/CheckList/internal/metrics"
	"github.com/Gur1a/CheckList/internal/middleware"
	"github.com/Gur1a/CheckList/internal/obfuscate"
	sqliteRepo "github.com/Gur1a/CheckList/internal/repository/sqlite"
	"github.com/Gur1a/CheckList/internal/service"
)

const (
	shutdownGrace   = 30 * time.Second
	dbStatsInterval = 15 * time.Second
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it after the
// HTTP server has drained; Close does the same for a server that was
// never started (tests).
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	tokens *auth.TokenService
	codec  *obfuscate.Codec
}

// New opens the database and builds the router.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo so it is not confused with
// the modernc.org/sqlite driver.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var codecOpts []obfuscate.Option
	if cfg.LenientTokens {
		codecOpts = append(codecOpts, obfuscate.WithLenientDigits())
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		tokens: tokens,
		codec:  obfuscate.New(codecOpts...),
	}
	s.setupRoutes()

	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Only needed when Start is never called.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID   tags each request (the logger prints it)
//  2. RealIP      trusts X-Forwarded-For from the proxy
//  3. Logger      one line per request
//  4. metrics     request counters and latency
//  5. Recoverer   turns a panic into a 500
//  6. cors        lets the SPA call us with cookies
//
// Recoverer sits inside Logger and metrics so a panicking request is still
// logged and counted, with status 500.
//
// Inside /api, ProjectID decodes ?encryptedProjectId=... for every route.
// It never rejects a request; handlers that need the id answer 400
// themselves.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === Services ===
	// s.db implements every repository interface; each service only sees
	// the ones it asked for.
	authService := service.NewAuthService(s.db, s.tokens, auth.NewPasswordService(), s.logger)
	projectService := service.NewProjectService(s.db, s.logger)
	boardService := service.NewBoardService(s.db, s.db, s.logger)
	taskService := service.NewTaskService(s.db, s.db, s.db, s.logger)
	tagService := service.NewTagService(s.db, s.db, s.db, s.logger)

	// === Handlers ===
	var github *auth.GitHubProvider
	if s.config.GitHub.Enabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHub.ClientID,
			s.config.GitHub.ClientSecret,
			s.config.GitHub.CallbackURL,
		)
	}
	authHandler := handler.NewAuthHandler(authService, s.tokens, github, s.logger)
	projectHandler := handler.NewProjectHandler(projectService, s.codec, s.logger)
	boardHandler := handler.NewBoardHandler(boardService, s.logger)
	taskHandler := handler.NewTaskHandler(taskService, s.logger)
	tagHandler := handler.NewTagHandler(tagService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	// === Operational routes ===
	s.router.Get("/health", healthHandler.HandleHealth)
	s.router.Handle("/metrics", metrics.Handler())

	// === GitHub login (browser redirects, so not under /api) ===
	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	} else {
		s.logger.Info("github login disabled: GITHUB_CLIENT_ID or GITHUB_CLIENT_SECRET not set")
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.ProjectID(s.codec, s.logger, s.config.ProjectIDParam))

		// Public.
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)

		// Everything else needs a valid JWT.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.tokens))

			r.Get("/auth/verify", authHandler.HandleVerify)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectHandler.HandleList)
				r.Post("/", projectHandler.HandleCreate)
				r.Get("/{id}", projectHandler.HandleGet)
				r.Put("/{id}", projectHandler.HandleUpdate)
				r.Delete("/{id}", projectHandler.HandleDelete)
				r.Put("/{id}/archive", projectHandler.HandleArchive)
				r.Put("/{id}/unarchive", projectHandler.HandleUnarchive)
				r.Get("/{id}/members", projectHandler.HandleListMembers)
				r.Post("/{id}/members", projectHandler.HandleAddMember)
				r.Delete("/{id}/members/{userId}", projectHandler.HandleRemoveMember)
			})

			r.Route("/boards", func(r chi.Router) {
				r.Get("/", boardHandler.HandleList)
				r.Post("/", boardHandler.HandleCreate)
				r.Post("/reorder", boardHandler.HandleReorder)
				r.Get("/{id}", boardHandler.HandleGet)
				r.Put("/{id}", boardHandler.HandleUpdate)
				r.Delete("/{id}", boardHandler.HandleDelete)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.HandleList)
				r.Post("/", taskHandler.HandleCreate)
				r.Put("/bulk/status", taskHandler.HandleBulkStatus)
				r.Get("/{id}", taskHandler.HandleGet)
				r.Put("/{id}", taskHandler.HandleUpdate)
				r.Delete("/{id}", taskHandler.HandleDelete)
				r.Put("/{id}/move", taskHandler.HandleMove)
			})

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", tagHandler.HandleList)
				r.Post("/", tagHandler.HandleCreate)
				r.Get("/tasks/{taskId}", tagHandler.HandleListForTask)
				r.Get("/{id}", tagHandler.HandleGet)
				r.Put("/{id}", tagHandler.HandleUpdate)
				r.Delete("/{id}", tagHandler.HandleDelete)
				r.Get("/{id}/tasks", tagHandler.HandleListTasks)
				r.Post("/{id}/tasks/{taskId}", tagHandler.HandleAttach)
				r.Delete("/{id}/tasks/{taskId}", tagHandler.HandleDetach)
			})
		})
	})
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM or a
// listen error.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait up to 30s for in-flight requests
//  3. Stop the stats collector and close the database
func (s *Server) Start() error {
	defer s.db.Close()

	collector := metrics.NewDBStatsCollector(s.db.SQL(), s.logger)
	collector.Start(dbStatsInterval)
	defer collector.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("lenientTokens", s.codec.Lenient()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
