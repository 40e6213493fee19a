package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/feastro/apiserver/config"
	"github.com/feastro/apiserver/internal/auth"
	"github.com/feastro/apiserver/internal/db"
	"github.com/feastro/apiserver/internal/handlers"
	"github.com/feastro/apiserver/internal/mq"
	"github.com/feastro/apiserver/internal/observability"
	"github.com/feastro/apiserver/internal/services"
	"github.com/feastro/apiserver/internal/storage"
	"github.com/feastro/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
)

const (
	apiPrefix       = "/api/v1"
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	db         *sql.DB
	broker     *mq.MQ
	logger     *slog.Logger
}

// Routes groups the handlers mounted under the API prefix.
type Routes struct {
	Auth    *handlers.AuthHandler
	Users   *handlers.UserHandler
	Recipes *handlers.RecipeHandler
	Videos  *handlers.VideoHandler
	Authn   *handlers.Authenticator
}

// New wires the repositories, services and handlers for cfg.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	metrics := observability.NewMetrics()

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	codec, err := auth.NewCodec(cfg.Auth.SecretKey, cfg.Auth.Algorithm)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	policy, err := auth.NewSessionPolicy(codec, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL())
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	followerRepo := store.NewFollowerRepository(dbConn)
	recipeRepo := store.NewRecipeRepository(dbConn)
	videoRepo := store.NewVideoRepository(dbConn)
	engagementRepo := store.NewEngagementRepository(dbConn)

	var objects services.ObjectStore
	switch st, err := storage.New(ctx, cfg.Storage); {
	case err == nil:
		objects = st
	case errors.Is(err, storage.ErrNoBackend):
		logger.WarnContext(ctx, "no storage backend configured, video uploads disabled")
	default:
		_ = dbConn.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	var events services.EventPublisher = services.NopPublisher{}
	broker, err := mq.New(ctx, cfg.MQ)
	switch {
	case err == nil:
		events = services.NewEngagementPublisher(broker, cfg.MQ.EngagementChannel, metrics)
	case errors.Is(err, mq.ErrNoBackend):
		logger.InfoContext(ctx, "no message broker configured, engagement events are dropped")
	default:
		_ = dbConn.Close()
		return nil, fmt.Errorf("init mq: %w", err)
	}

	authService := auth.NewService(userRepo, auth.NewHasher(cfg.Auth.BcryptCost), policy,
		auth.WithLogger(logger),
		auth.WithRecorder(metrics),
	)
	userService := services.NewUserService(userRepo, followerRepo, recipeRepo)
	recipeService := services.NewRecipeService(recipeRepo, engagementRepo, videoRepo, events, logger)
	videoService := services.NewVideoService(videoRepo, objects, logger)

	routes := Routes{
		Auth:    handlers.NewAuthHandler(authService, userService, logger),
		Users:   handlers.NewUserHandler(userService, authService, recipeService, logger),
		Recipes: handlers.NewRecipeHandler(recipeService, logger),
		Videos:  handlers.NewVideoHandler(videoService, logger),
		Authn:   handlers.NewAuthenticator(auth.NewGuard(codec, userRepo, logger), logger),
	}
	router := NewRouter(cfg, metrics, routes)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router: router,
		db:     dbConn,
		broker: broker,
		logger: logger,
	}, nil
}

// NewRouter builds the middleware chain and mounts routes.
func NewRouter(cfg config.Config, metrics *observability.Metrics, routes Routes) chi.Router {
	securityHeaders := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      cfg.IsDev(),
	})

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(requestTimeout),
		securityHeaders.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Origins(),
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		metrics.Middleware,
	)

	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", metrics.Handler())

	router.Route(apiPrefix, func(r chi.Router) {
		if cfg.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
		}
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, routes.Auth, routes.Authn)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, routes.Users, routes.Authn)
		})
		r.Route("/recipes", func(r chi.Router) {
			handlers.RecipeRouter(r, routes.Recipes, routes.Authn)
		})
		r.Route("/search", func(r chi.Router) {
			handlers.SearchRouter(r, routes.Recipes)
		})
		r.Route("/videos", func(r chi.Router) {
			handlers.VideoRouter(r, routes.Videos, routes.Authn)
		})
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and database.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if s.broker != nil {
		if cerr := s.broker.Close(); cerr != nil {
			s.logger.Warn("close message broker", "error", cerr)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
