package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/orderhub/backend-oms/internal/config"
	"github.com/orderhub/backend-oms/internal/lock"
	"github.com/orderhub/backend-oms/internal/obs"
	"github.com/orderhub/backend-oms/internal/repo"
	"github.com/orderhub/backend-oms/internal/resilience"
	erpsync "github.com/orderhub/backend-oms/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	if !cfg.ERPSyncEnabled {
		logger.Info().Msg("erp sync disabled, nothing to do")
		return
	}

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "oms")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisConn, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	eventRepo := repo.EventRepo{DB: pool}

	breaker := resilience.NewBreaker(
		envInt("ERP_CIRCUIT_MIN_REQUESTS", 10),
		envFloat("ERP_CIRCUIT_FAILURE_RATIO", 0.5),
		envDuration("ERP_CIRCUIT_OPEN_FOR", 30*time.Second),
	).WithTarget("erp-sync").WithLogger(logger)

	dispatcher := erpsync.Dispatcher{
		Events: eventRepo,
		HTTP: resilience.HTTPClient{
			Client:      erpsync.NewHTTPClient(cfg.ERPSyncTimeout),
			Breaker:     breaker,
			BaseBackoff: envDuration("ERP_RETRY_BASE", 500*time.Millisecond),
			MaxAttempts: envInt("ERP_RETRY_MAX_ATTEMPTS", 3),
			Jitter:      envFloat("ERP_RETRY_JITTER_PERCENT", 0.2),
			Timeout:     cfg.ERPSyncTimeout,
		},
		Endpoint: cfg.ERPSyncURL,
		Log:      logger,
	}

	asynqClient := asynq.NewClient(redisConn)
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task queue client")
		}
	}()
	notifier := erpsync.Notifier{
		Client:   asynqClient,
		MaxRetry: cfg.ERPSyncMaxRetry,
		Timeout:  cfg.ERPSyncTimeout,
		Log:      logger,
	}

	// one instance sweeps at a time
	locker := lock.Locker{R: redisClient}
	sweepInterval := envDuration("ERP_SWEEP_INTERVAL", time.Minute)
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := locker.WithLease(ctx, "oms:lock:erp_sweep", sweepInterval, func(ctx context.Context) error {
					return dispatcher.Sweep(ctx, notifier, 50)
				})
				if err != nil && !errors.Is(err, lock.ErrHeld) {
					logger.Error().Err(err).Msg("sweep undelivered events")
				}
			}
		}
	}()

	srv := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{"erp": 1},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(erpsync.TypeERPDelivery, dispatcher.HandleDelivery)

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
	} else {
		logger.Info().Msg("worker shutdown complete")
	}
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "oms-worker"
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
