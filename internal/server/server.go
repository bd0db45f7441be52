package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wadieregaieg/waadiefr/internal/config"
	"github.com/wadieregaieg/waadiefr/internal/database"
	"github.com/wadieregaieg/waadiefr/internal/middleware"
	"github.com/wadieregaieg/waadiefr/internal/notifier"
	"github.com/wadieregaieg/waadiefr/internal/repository"
	"github.com/wadieregaieg/waadiefr/internal/service"
	"github.com/wadieregaieg/waadiefr/internal/transport"
)

type Server struct {
	*http.Server
	config      *config.Config
	logger      *zap.Logger
	dbService   database.Service
	redisClient *redis.Client
}

// NewServer wires repositories, services and handlers onto a chi
// router and returns the configured HTTP server.
func NewServer(cfg *config.Config, logger *zap.Logger, dbService database.Service, redisClient *redis.Client) *Server {
	db := dbService.DB()

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Compress(5))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Recover(logger))
	router.Use(middleware.CORS(nil, cfg.Server.Env == "development"))

	router.Get("/health", healthHandler(dbService))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	cartRepo := repository.NewCartRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	apkRepo := repository.NewAPKRepository(db)

	otpStore := repository.NewOTPStore(
		redisClient,
		cfg.OTP.Length,
		time.Duration(cfg.OTP.ExpiryMinutes)*time.Minute,
	)

	var sms notifier.SMSSender
	if cfg.SMS.GatewayURL != "" {
		sms = notifier.NewGatewaySender(cfg.SMS, logger)
	} else {
		sms = notifier.NewLogSender(logger)
	}

	// Services
	userService := service.NewUserService(userRepo, refreshTokenRepo, otpStore, sms, cfg.JWT)
	catalogService := service.NewCatalogService(db, productRepo, categoryRepo, logger)
	cartService := service.NewCartService(cartRepo, productRepo)
	orderService := service.NewOrderService(db, logger)
	analyticsService := service.NewAnalyticsService(analyticsRepo)
	apkService := service.NewAPKService(db, apkRepo, cfg.APK.StorageDir, logger)

	// Handlers
	userHandler := transport.NewUserHandler(userService, logger)
	catalogHandler := transport.NewCatalogHandler(catalogService, logger)
	cartHandler := transport.NewCartHandler(cartService, logger)
	orderHandler := transport.NewOrderHandler(orderService, logger)
	analyticsHandler := transport.NewAnalyticsHandler(analyticsService, logger)
	apkHandler := transport.NewAPKHandler(apkService, logger)

	auth := middleware.Authenticate(cfg.JWT.Secret, logger)
	admin := middleware.RequireAdmin(logger)

	// OTP endpoints are limited per phone number so one client cannot
	// drain the SMS budget.
	otpLimiter := middleware.RateLimit(redisClient, middleware.RateLimitConfig{
		RequestsPerWindow: cfg.OTP.RequestLimit,
		Window:            time.Duration(cfg.OTP.WindowMinutes) * time.Minute,
		KeyPrefix:         "ratelimit:otp",
		KeyFunc:           phoneKey,
	}, logger)

	userHandler.RegisterRoutes(router, auth, otpLimiter)
	catalogHandler.RegisterRoutes(router, auth, admin)
	cartHandler.RegisterRoutes(router, auth)
	orderHandler.RegisterRoutes(router, auth, admin)
	analyticsHandler.RegisterRoutes(router, auth, admin)
	apkHandler.RegisterRoutes(router, auth, admin)

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:      cfg,
		logger:      logger,
		dbService:   dbService,
		redisClient: redisClient,
	}
}

// phoneKey rate-limits OTP requests by the phone number in the body,
// falling back to the remote address when it cannot be read.
func phoneKey(r *http.Request) string {
	var body struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := decodeAndRestoreBody(r, &body); err != nil || body.PhoneNumber == "" {
		return r.RemoteAddr
	}
	return body.PhoneNumber
}

func healthHandler(dbService database.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := dbService.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		middleware.RespondWithJSON(w, status, health)
	}
}

// decodeAndRestoreBody peeks at the JSON body and puts it back so the
// downstream handler can decode it again.
func decodeAndRestoreBody(r *http.Request, v interface{}) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	return json.Unmarshal(raw, v)
}

// Close releases server resources.
func (s *Server) Close() error {
	s.logger.Info("closing server resources")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("failed to close redis client", zap.Error(err))
		}
	}
	if s.dbService != nil {
		if err := s.dbService.Close(); err != nil {
			s.logger.Error("failed to close database", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
