package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/github-metrics-service/internal/httpapi"
	"github.com/Sternrassler/github-metrics-service/pkg/cache"
	"github.com/Sternrassler/github-metrics-service/pkg/github"
	"github.com/Sternrassler/github-metrics-service/pkg/logging"
	"github.com/Sternrassler/github-metrics-service/pkg/service"
)

func main() {
	logger := logging.Setup(logging.FromEnv())

	port := getEnv("PORT", "3000")
	userAgent := getEnv("USER_AGENT", "github-metrics-service/1.0")

	// Cache backend: Redis when configured, in-memory otherwise.
	var store cache.Store
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", redisURL).Msg("Failed to connect to Redis")
		}
		store = cache.NewRedis(redisClient)
		logger.Info().Str("addr", redisURL).Msg("Using Redis cache backend")
	} else {
		store = cache.NewMemory()
		logger.Info().Msg("Using in-memory cache backend")
	}

	cfg := github.DefaultConfig(userAgent)
	cfg.Token = os.Getenv("GITHUB_TOKEN")
	ghClient, err := github.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create GitHub client")
	}
	if cfg.Token == "" {
		logger.Warn().Msg("GITHUB_TOKEN not set, using unauthenticated rate limits")
	}

	metricsUC := service.NewInstrumentedMetrics(service.NewMetrics(ghClient, store))
	profilesUC := service.NewInstrumentedProfiles(service.NewProfiles(ghClient, store))
	api := httpapi.NewServer(metricsUC, profilesUC)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: api.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("user_agent", userAgent).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown failed")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
