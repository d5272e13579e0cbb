package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/eguard/eguard-backend/internal/config"
	"github.com/eguard/eguard-backend/internal/database"
	"github.com/eguard/eguard-backend/internal/handlers"
	"github.com/eguard/eguard-backend/internal/middleware"
	"github.com/eguard/eguard-backend/internal/routes"
	"github.com/eguard/eguard-backend/internal/services"
	"github.com/eguard/eguard-backend/internal/store"
	"github.com/eguard/eguard-backend/pkg/slogx"
	"github.com/eguard/eguard-backend/pkg/xposed"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	logger := slogx.New(slogx.Config{
		Service: "eguard-backend",
		Env:     cfg.Environment,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	if envErr != nil {
		logger.Info("no .env file found")
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set; protected routes will answer 500 until it is configured")
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongo, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongo.Disconnect(); err != nil {
			logger.Warn("mongo disconnect", slog.Any("error", err))
		}
	}()

	if err := store.EnsureIndexes(ctx, mongo.DB); err != nil {
		return err
	}
	logger.Info("MongoDB indexes ensured", "database", mongo.DB.Name())

	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI)
	if err != nil {
		return err
	}
	if rdb == nil {
		logger.Info("REDIS_URI not set; lookup cache and shared rate limit disabled")
	} else {
		defer func() {
			if err := database.DisconnectRedis(rdb); err != nil {
				logger.Warn("redis disconnect", slog.Any("error", err))
			}
		}()
	}

	users := store.NewUserStore(mongo.DB)
	checks := store.NewCheckStore(mongo.DB)
	tokens := services.NewTokenService(cfg.JWTSecret)
	provider := xposed.NewClient(cfg.BreachAPIURL, cfg.PasswordAPIURL, cfg.BreachLookupTimeout)

	h := handlers.New(
		services.NewAuthService(users, tokens),
		services.NewCheckService(checks, services.NewBreachGateway(provider), services.NewCacheService(rdb), cfg.BreachCacheTTL),
		services.NewDashboardService(users, checks),
		services.NewPasswordService(provider),
		handlers.Options{Production: cfg.IsProduction(), TrustProxy: cfg.TrustProxy},
	)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(slogx.HTTPMiddleware(logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → LoginRateLimit
	// Non-production: Redis-based rate limit only, when Redis is configured
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost, cfg.TrustProxy, ctx.Done()) {
			r.Use(mw)
		}
		logger.Info("production security enabled", "allowed_host", cfg.AllowedHost)
	} else if rdb != nil {
		limiter := middleware.NewRedisRateLimiter(rdb, middleware.RedisRateLimitMax, middleware.RedisRateLimitWindow)
		r.Use(limiter.Middleware(cfg.TrustProxy))
	}

	deps := map[string]handlers.Pinger{
		"mongo": func(ctx context.Context) error { return mongo.Client.Ping(ctx, nil) },
	}
	if rdb != nil {
		deps["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	r.Get("/health", handlers.Health(deps))

	routes.SetupRoutes(r, h, tokens)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("E-Guard backend listening", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
