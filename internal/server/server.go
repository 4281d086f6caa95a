package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront-api/internal/config"
	"storefront-api/internal/database"
	"storefront-api/internal/events"
	custommiddleware "storefront-api/internal/middleware"
	"storefront-api/internal/repository"
	"storefront-api/internal/service"
	"storefront-api/internal/token"
	"storefront-api/internal/transport"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	db      database.Service
	closers []io.Closer
}

// Dependencies are the process-wide resources main hands to the server.
// Closers are released after the database when the server closes.
type Dependencies struct {
	Tokens    *token.Manager
	Limiter   custommiddleware.RateLimitStore
	Publisher events.Publisher
	Closers   []io.Closer
}

// routerDeps is everything the routing table needs; tests supply fakes
type routerDeps struct {
	config    *config.Config
	logger    *zap.Logger
	db        database.Service
	users     repository.UserRepository
	products  repository.ProductRepository
	carts     repository.CartRepository
	tokens    *token.Manager
	limiter   custommiddleware.RateLimitStore
	publisher events.Publisher
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, deps Dependencies) *Server {
	router := newRouter(routerDeps{
		config:    cfg,
		logger:    logger,
		db:        db,
		users:     repository.NewUserRepository(db.DB()),
		products:  repository.NewProductRepository(db.DB()),
		carts:     repository.NewCartRepository(db.DB()),
		tokens:    deps.Tokens,
		limiter:   deps.Limiter,
		publisher: deps.Publisher,
	})

	closers := append([]io.Closer{deps.Publisher}, deps.Closers...)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:  cfg,
		logger:  logger,
		db:      db,
		closers: closers,
	}

	return server
}

func newRouter(deps routerDeps) chi.Router {
	logger := deps.logger
	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(deps.config.Server.AllowedOrigins, deps.config.IsDevelopment()))

	router.Get("/health", healthHandler(deps.db))

	// Initialize services
	userService := service.NewUserService(deps.users, deps.tokens, deps.publisher, logger)
	productService := service.NewProductService(deps.products, deps.publisher, logger)
	cartService := service.NewCartService(deps.carts, deps.publisher, logger)

	// Initialize handlers
	userHandler := transport.NewUserHandler(userService, logger)
	productHandler := transport.NewProductHandler(productService, logger)
	cartHandler := transport.NewCartHandler(cartService, logger)

	authMiddleware := custommiddleware.AuthMiddleware(deps.tokens, logger)
	adminMiddleware := custommiddleware.RequireAdmin(logger)

	limits := deps.config.RateLimit
	authLimiter := custommiddleware.RateLimitMiddleware(deps.limiter, custommiddleware.RateLimitConfig{
		RequestsPerWindow: limits.AuthMax,
		Window:            limits.Window,
		KeyPrefix:         "ratelimit:auth",
	}, logger)
	defaultLimiter := custommiddleware.RateLimitMiddleware(deps.limiter, custommiddleware.RateLimitConfig{
		RequestsPerWindow: limits.MaxRequests,
		Window:            limits.Window,
		KeyPrefix:         "ratelimit:api",
	}, logger)

	// Credential endpoints get the stricter budget
	router.Group(func(r chi.Router) {
		r.Use(authLimiter)
		userHandler.RegisterPublicRoutes(r)
	})

	router.Group(func(r chi.Router) {
		r.Use(defaultLimiter)
		userHandler.RegisterProtectedRoutes(r, authMiddleware)
		productHandler.RegisterRoutes(r, authMiddleware, adminMiddleware)
		cartHandler.RegisterRoutes(r, authMiddleware)
	})

	return router
}

func healthHandler(db database.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := db.Health(r.Context())

		if stats["status"] != "up" {
			custommiddleware.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":   "unavailable",
				"database": stats,
			})
			return
		}

		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"database": stats,
		})
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	for _, closer := range s.closers {
		if closer == nil {
			continue
		}
		if err := closer.Close(); err != nil {
			s.logger.Error("Failed to close resource", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
