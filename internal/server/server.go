// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every dependency is created and wired here,
// in New, rather than scattered across the codebase.
//
//	config → sqlite.DB, ImageStore → services → handlers → chi routes
//
// Keeping this out of main.go lets handler tests build the exact production
// router over an in-memory database (see Handler).
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

	"github.com/sakif/foodgram/internal/auth"
	"github.com/sakif/foodgram/internal/config"
	"github.com/sakif/foodgram/internal/handler"
	"github.com/sakif/foodgram/internal/middleware"
	"github.com/sakif/foodgram/internal/model"
	sqliteRepo "github.com/sakif/foodgram/internal/repository/sqlite"
	"github.com/sakif/foodgram/internal/service"
	"github.com/sakif/foodgram/internal/storage"
	"github.com/sakif/foodgram/internal/storage/local"
	"github.com/sakif/foodgram/internal/storage/s3store"
)

// Server represents the HTTP server and all its dependencies. It owns the
// database connection and closes it on shutdown.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	images  storage.ImageStore
	media   http.Handler // nil unless images are stored locally
	metrics *middleware.Metrics

	github    *auth.GitHubProvider
	passwords *auth.PasswordService
}

// Option customises a Server. Tests use options to swap in fast bcrypt or a
// fake GitHub endpoint.
type Option func(*Server)

func WithPasswordService(p *auth.PasswordService) Option {
	return func(s *Server) { s.passwords = p }
}

func WithGitHubProvider(p *auth.GitHubProvider) Option {
	return func(s *Server) { s.github = p }
}

// New opens the database and the image store and builds the router.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		db:        db,
		metrics:   middleware.NewMetrics(),
		passwords: auth.NewPasswordService(),
	}
	if cfg.GitHub.Enabled() {
		s.github = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.openImageStore(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening image store: %w", err)
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) openImageStore(ctx context.Context) error {
	st := s.config.Storage

	switch st.Driver {
	case config.StorageS3:
		store, err := s3store.New(ctx, s3store.Config{
			Endpoint:        st.S3Endpoint,
			Region:          st.S3Region,
			Bucket:          st.S3Bucket,
			AccessKeyID:     st.S3AccessKeyID,
			SecretAccessKey: st.S3SecretAccessKey,
			UseSSL:          st.S3UseSSL,
			PublicURL:       st.S3PublicURL,
		}, s.logger)
		if err != nil {
			return err
		}
		s.images = store

	default:
		mediaURL := st.MediaURL
		if mediaURL == "" {
			mediaURL = s.config.BaseURL + "/media"
		}
		store, err := local.New(st.MediaRoot, mediaURL)
		if err != nil {
			return err
		}
		s.images = store
		s.media = store.Handler()
	}
	return nil
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID, RealIP: tag the request, fix the client address
//  2. Logger, Metrics: observe everything below, including panics turned into 500s
//  3. Recoverer: turns panics into 500
//  4. CORS, StripSlashes: "/api/tags/" and "/api/tags" route the same
//
// Inside /api, writes are rate limited per client IP and every route either
// requires a token (RequireAuth) or accepts an optional one (OptionalAuth).
func (s *Server) setupRoutes() error {
	cfg := s.config

	httpMW := middleware.NewHTTP(middleware.HTTPConfig{
		CORSAllowedOrigins: cfg.CORSOrigins,
		RateLimitRequests:  cfg.RateLimitRequests,
		RateLimitWindow:    cfg.RateLimitWindow,
		RateLimitDisabled:  cfg.RateLimitDisabled,
	})

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(s.metrics.Middleware)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(httpMW.CORS())
	s.router.Use(chimiddleware.StripSlashes)

	// === Services ===
	issuer, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	validator := service.NewValidator()

	authService := service.NewAuthService(s.db, s.db, issuer, s.passwords, validator, s.logger)
	userService := service.NewUserService(s.db, s.db, s.db, s.passwords, s.images, validator, s.logger)
	recipeService := service.NewRecipeService(s.db, s.db, s.db, s.db, s.images, validator, s.logger)
	tagService := service.NewTagService(s.db, validator, s.logger)
	ingredientService := service.NewIngredientService(s.db, validator, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, s.github, s.logger)
	userHandler := handler.NewUserHandler(userService, s.images, cfg.BaseURL, cfg.PageSize, s.logger)
	recipeHandler := handler.NewRecipeHandler(recipeService, s.images, cfg.BaseURL, cfg.PageSize, s.logger)
	tagHandler := handler.NewTagHandler(tagService, s.logger)
	ingredientHandler := handler.NewIngredientHandler(ingredientService, s.logger)

	// === Operational routes ===
	s.router.Get("/healthz", handler.HandleHealth(s.db, s.logger))
	s.router.Handle("/metrics", s.metrics.Handler())
	if s.media != nil {
		s.router.Handle("/media/*", http.StripPrefix("/media", s.media))
	}
	s.router.With(auth.OptionalAuth(authService)).Get("/s/{code}", recipeHandler.HandleShortLink)

	// === API routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.WritesOnly(httpMW.RateLimit()))

		// Public: anonymous callers allowed, a valid token personalises the result.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(authService))

			r.Get("/tags", tagHandler.HandleList)
			r.Get("/tags/{id}", tagHandler.HandleGet)
			r.Get("/ingredients", ingredientHandler.HandleList)
			r.Get("/ingredients/{id}", ingredientHandler.HandleGet)

			r.Get("/recipes", recipeHandler.HandleList)
			r.Get("/recipes/{id}", recipeHandler.HandleGet)
			r.Get("/recipes/{id}/get-link", recipeHandler.HandleGetLink)

			r.Get("/users", userHandler.HandleList)
			r.Post("/users", userHandler.HandleRegister)
			r.Get("/users/{id}", userHandler.HandleGet)

			r.Post("/auth/token/login", authHandler.HandleLogin)
			if s.github != nil {
				r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
				r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
			}
		})

		// Authenticated.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(authService))

			r.Post("/recipes", recipeHandler.HandleCreate)
			r.Patch("/recipes/{id}", recipeHandler.HandleUpdate)
			r.Delete("/recipes/{id}", recipeHandler.HandleDelete)
			r.Post("/recipes/{id}/favorite", recipeHandler.HandleAddTo(model.Favorites))
			r.Delete("/recipes/{id}/favorite", recipeHandler.HandleRemoveFrom(model.Favorites))
			r.Post("/recipes/{id}/shopping_cart", recipeHandler.HandleAddTo(model.ShoppingCart))
			r.Delete("/recipes/{id}/shopping_cart", recipeHandler.HandleRemoveFrom(model.ShoppingCart))
			r.Get("/recipes/download_shopping_cart", recipeHandler.HandleDownloadShoppingCart)

			r.Get("/users/me", userHandler.HandleMe)
			r.Post("/users/set_password", userHandler.HandleSetPassword)
			r.Put("/users/me/avatar", userHandler.HandleSetAvatar)
			r.Delete("/users/me/avatar", userHandler.HandleDeleteAvatar)
			r.Get("/users/subscriptions", userHandler.HandleSubscriptions)
			r.Post("/users/{id}/subscribe", userHandler.HandleSubscribe)
			r.Delete("/users/{id}/subscribe", userHandler.HandleUnsubscribe)

			r.Post("/auth/token/logout", authHandler.HandleLogout)
		})
	})

	return nil
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database connection.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves HTTP until SIGINT or SIGTERM, then drains in-flight requests
// for up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("base_url", s.config.BaseURL),
			slog.String("database", s.config.DBPath),
			slog.String("storage", s.config.Storage.Driver),
			slog.Bool("github_login", s.github != nil),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
