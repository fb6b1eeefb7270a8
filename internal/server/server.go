package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"hannu-storefront/internal/admin"
	"hannu-storefront/internal/backend"
	"hannu-storefront/internal/cart"
	"hannu-storefront/internal/catalog"
	"hannu-storefront/internal/config"
	"hannu-storefront/internal/database"
	"hannu-storefront/internal/imageresolve"
	custommiddleware "hannu-storefront/internal/middleware"
	"hannu-storefront/internal/service"
	"hannu-storefront/internal/session"
	"hannu-storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

const (
	// image resolution may walk three attempts of IMAGE_LOAD_TIMEOUT each
	requestTimeout = 60 * time.Second

	cartMaxAge      = 7 * 24 * time.Hour
	cartPrunePeriod = time.Hour
)

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	admin   *admin.Service
	catalog *catalog.Catalog
	carts   *cart.Registry
	store   io.Closer
	limiter *redis.Client
	stop    context.CancelFunc
}

// NewServer wires the storefront: session store, product API client, shared
// catalog, admin workflow and the HTTP routes.
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if cfg.JWT.Secret == "" {
		return nil, ErrMissingJWTSecret
	}

	store, storeCloser, err := session.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	logger.Info("Session store ready", zap.String("store", cfg.Session.Store))
	sess := session.New(store)

	api := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout, logger)
	cat := catalog.New()
	adminService := admin.NewService(api, sess, cat, admin.NewLogNotifier(logger), admin.Options{
		Credentials:      admin.Credentials{Username: cfg.Admin.Username, Password: cfg.Admin.Password},
		BrandPlaceholder: cfg.Images.BrandPlaceholder,
		FetchLimit:       cfg.Backend.FetchLimit,
		ReconcileDelay:   cfg.Backend.ReconcileDelay,
	}, logger)

	images := imageresolve.NewService(
		imageresolve.NewHTTPProber(&http.Client{}, cfg.Images.LoadTimeout),
		logger,
		imageresolve.WithPlaceholderBase(cfg.Images.PlaceholderBase),
	)
	managerService := service.NewManagerService(cfg.Manager, cfg.JWT, sess)
	carts := cart.NewRegistry()

	s := &Server{
		config:  cfg,
		logger:  logger,
		admin:   adminService,
		catalog: cat,
		carts:   carts,
		store:   storeCloser,
		limiter: newLimiterClient(ctx, cfg, logger),
	}

	if !cfg.IsDevelopment() && len(cfg.CORS.AllowedOrigins) == 0 {
		logger.Warn("CORS_ORIGINS is empty, cross-origin browsers will be refused")
	}

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack(requestTimeout)...)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	router.Get("/health", s.health)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	loginLimiter := custommiddleware.RateLimitMiddleware(s.limiter, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.LoginRequests,
		Window:            cfg.RateLimit.LoginWindow,
		KeyPrefix:         cfg.Session.KeyPrefix + ":ratelimit:manager_login",
	}, logger)

	transport.NewCatalogHandler(cat, images, logger).RegisterRoutes(router)
	transport.NewCartHandler(carts, cat, !cfg.IsDevelopment(), logger).RegisterRoutes(router)
	transport.NewManagerHandler(managerService, logger).RegisterRoutes(router, loginLimiter, authMiddleware)
	transport.NewAdminHandler(adminService, logger).RegisterRoutes(router,
		authMiddleware,
		custommiddleware.RequireManager(logger),
	)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + 15*time.Second,
	}

	janitorCtx, stop := context.WithCancel(context.Background())
	s.stop = stop
	go s.pruneCarts(janitorCtx)

	return s, nil
}

// newLimiterClient returns nil when login rate limiting is off or redis is
// unreachable; the limiter then lets every request through.
func newLimiterClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RateLimit.LoginRequests <= 0 || cfg.Redis.Host == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, manager login is not rate limited", zap.Error(err))
		client.Close()
		return nil
	}
	return client
}

// WarmCatalog loads the catalog from the product API
func (s *Server) WarmCatalog(ctx context.Context) error {
	if err := s.admin.Refresh(ctx); err != nil {
		return err
	}
	s.logger.Info("Catalog loaded", zap.Int("products", s.catalog.Len()))
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":   "ok",
		"products": s.catalog.Len(),
		"carts":    s.carts.Len(),
		"session":  s.config.Session.Store,
	}
	if db, ok := s.store.(*sql.DB); ok {
		body["database"] = database.Health(r.Context(), db)
	}
	custommiddleware.RespondWithJSON(w, http.StatusOK, body)
}

func (s *Server) pruneCarts(ctx context.Context) {
	ticker := time.NewTicker(cartPrunePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.carts.Prune(cartMaxAge); n > 0 {
				s.logger.Info("Pruned idle carts", zap.Int("count", n))
			}
		}
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.stop != nil {
		s.stop()
	}

	if s.limiter != nil {
		if err := s.limiter.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("Failed to close session store", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
