// Package server is the composition root: it opens the store, builds the
// services and handlers, and mounts them on a chi router.
//
// ROUTES:
//
//	GET  /health                     → liveness
//	GET  /metrics                    → Prometheus exposition
//	POST /api/auth/register          → create account
//	POST /api/auth/login             → start session
//	POST /api/auth/logout            → clear session cookie
//	GET  /api/auth/me                → current user            [auth]
//	GET  /api/auth/github/login      → GitHub consent redirect [if configured]
//	GET  /api/auth/github/callback   → GitHub sign-in          [if configured]
//	GET  /api/ideas?q=&tag=          → feed
//	GET  /api/ideas/{id}             → idea with comments
//	POST /api/ideas                  → create idea             [auth]
//	POST /api/ideas/{id}/upvote      → upvote                  [auth]
//
// MIDDLEWARE ORDER:
// RequestID and RealIP run first so the logger and rate limiter see the
// request id and client address. Recoverer sits inside the logger so a
// recovered panic is still logged as a 500.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/halfbake/internal/auth"
	"github.com/sakif/halfbake/internal/config"
	"github.com/sakif/halfbake/internal/handler"
	"github.com/sakif/halfbake/internal/metrics"
	"github.com/sakif/halfbake/internal/middleware"
	"github.com/sakif/halfbake/internal/repository/sqlstore"
	"github.com/sakif/halfbake/internal/service"
	"github.com/sakif/halfbake/internal/validation"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and every long-lived resource behind it.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	store   *sqlstore.Store
	metrics *metrics.Metrics
	limiter *middleware.RateLimiter
}

// New opens the database, applies the schema, and wires all routes.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := sqlstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		store:   store,
		metrics: metrics.New(),
		limiter: middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
	}

	if err := s.metrics.RegisterDB(store.DB(), string(store.Dialect())); err != nil {
		store.Close()
		return nil, err
	}

	if err := s.setupRoutes(); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenLifetime())
	if err != nil {
		return err
	}
	validate := validation.New()

	authService, err := service.NewAuthService(
		s.store,
		tokens,
		auth.NewPasswordService(),
		validate,
		s.metrics,
		s.logger,
	)
	if err != nil {
		return err
	}
	ideaService := service.NewIdeaService(s.store, validate, s.metrics, s.logger)

	var github handler.GitHubAuthenticator
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	authHandler := handler.NewAuthHandler(authService, github, handler.SessionConfig{
		Lifetime:     tokens.Lifetime(),
		Secure:       s.config.CookieSecure,
		ClientOrigin: s.config.ClientOrigin,
	}, s.logger)
	ideaHandler := handler.NewIdeaHandler(ideaService, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)
	requireAuth := auth.RequireAuth(tokens)

	r := s.router

	// NotFound and MethodNotAllowed must be set before any Route call so
	// the subrouters inherit them.
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteMessage(w, http.StatusNotFound, handler.MsgNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteMessage(w, http.StatusMethodNotAllowed, handler.MsgMethodNotAllowed)
	})

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Metrics(s.metrics.HTTPRequestDuration))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.config.ClientOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.HandleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Use(s.limiter.Middleware)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)

			if github != nil {
				r.Get("/github/login", authHandler.HandleGitHubLogin)
				r.Get("/github/callback", authHandler.HandleGitHubCallback)
			}
		})

		r.Route("/ideas", func(r chi.Router) {
			r.Get("/", ideaHandler.HandleList)
			r.Get("/{id}", ideaHandler.HandleGet)
			r.With(requireAuth).Post("/", ideaHandler.HandleCreate)
			r.With(requireAuth).Post("/{id}/upvote", ideaHandler.HandleUpvote)
		})
	})

	return nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until ctx is cancelled, then drains in-flight requests for
// up to 30 seconds and closes the database.
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.limiter.Run(sweepCtx)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("database", string(s.store.Dialect())),
			slog.Bool("github", s.config.GitHubEnabled()),
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
