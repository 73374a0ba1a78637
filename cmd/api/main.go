package main

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/orderhub/backend-oms/internal/analytics"
	"github.com/orderhub/backend-oms/internal/auth"
	"github.com/orderhub/backend-oms/internal/catalog"
	"github.com/orderhub/backend-oms/internal/common"
	"github.com/orderhub/backend-oms/internal/config"
	"github.com/orderhub/backend-oms/internal/customer"
	"github.com/orderhub/backend-oms/internal/events"
	"github.com/orderhub/backend-oms/internal/health"
	"github.com/orderhub/backend-oms/internal/obs"
	"github.com/orderhub/backend-oms/internal/order"
	"github.com/orderhub/backend-oms/internal/ratelimit"
	"github.com/orderhub/backend-oms/internal/repo"
	"github.com/orderhub/backend-oms/internal/security"
	erpsync "github.com/orderhub/backend-oms/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "oms")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "oms-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	runMigrations(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "oms-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	productRepo := repo.ProductRepo{DB: pool}
	customerRepo := repo.CustomerRepo{DB: pool}
	orderRepo := repo.OrderRepo{DB: pool}
	eventRepo := repo.EventRepo{DB: pool}

	var notifiers []events.Notifier
	var asynqClient *asynq.Client
	if cfg.ERPSyncEnabled {
		redisConn, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url for task queue")
		}
		asynqClient = asynq.NewClient(redisConn)
		defer func() {
			if err := asynqClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close task queue client")
			}
		}()
		notifiers = append(notifiers, erpsync.Notifier{
			Client:   asynqClient,
			MaxRetry: cfg.ERPSyncMaxRetry,
			Timeout:  cfg.ERPSyncTimeout,
			Log:      logger,
		})
	}
	bus := &events.Bus{Store: eventRepo, Notifiers: notifiers}

	validate := validator.New()

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Products:   productRepo,
		Cache:      catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		DefaultPer: cfg.CatalogDefaultPerPage,
		MaxPer:     cfg.CatalogMaxPerPage,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalogService)

	customerService, err := customer.NewService(customerRepo)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise customer service")
	}
	customerHandler := customer.NewHandler(customerService, validate)

	orderService, err := order.NewService(order.ServiceConfig{
		Orders:    orderRepo,
		Products:  productRepo,
		Customers: customerService,
		Bus:       bus,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise order service")
	}
	orderHandler := order.NewHandler(orderService, validate)

	analyticsSvc := &analytics.Service{
		Q:            orderRepo,
		R:            redisClient,
		TTL:          cfg.AnalyticsCacheTTL,
		DefaultRange: cfg.AnalyticsRange,
	}
	analyticsHandler := &analytics.Handler{Svc: analyticsSvc}

	authMiddleware := auth.Middleware{Verifier: auth.Verifier{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	adminLimiter, err := ratelimit.NewRedisLimiter(redisClient, "rl:admin", int64(cfg.AdminRateLimitPerMinute), time.Minute)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	adminRateLimit := ratelimit.Handler{
		Limiter: adminLimiter,
		Key:     func(r *http.Request) string { return common.ClientIP(r) },
		OnError: func(err error) { logger.Error().Err(err).Msg("rate limit check failed") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		EnableHSTS:            envBool("SECURE_ENABLE_HSTS", false),
		HSTSMaxAge:            envInt("SECURE_HSTS_MAX_AGE", 0),
		HSTSIncludeSubdomains: envBool("SECURE_HSTS_INCLUDE_SUBDOMAINS", false),
	}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("SECURE_MAX_BODY_BYTES", 1<<20))}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	pprofEnabled := envBool("OBS_ENABLE_PPROF", true)
	if pprofEnabled {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.Products)
		v.Get("/brands", catalogHandler.Brands)

		v.Group(func(authR chi.Router) {
			authR.Use(authMiddleware.RequireAuth)

			authR.Get("/customers", customerHandler.List)
			authR.Get("/customers/{customerId}", customerHandler.Get)

			authR.Get("/orders", orderHandler.List)
			authR.Get("/orders/{orderId}", orderHandler.Get)

			authR.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/orders", orderHandler.Create)
				g.Put("/orders/{orderId}", orderHandler.Replace)
				g.Put("/orders/clear/{orderId}", orderHandler.Clear)
				g.Post("/orders/{orderId}/lines", orderHandler.AddLine)
				g.Put("/orders/{orderId}/lines/{productId}", orderHandler.SetQuantity)
				g.Delete("/orders/{orderId}/lines/{productId}", orderHandler.RemoveLine)
				g.Put("/orders/{orderId}/status", orderHandler.UpdateStatus)
				g.Post("/orders/{orderId}/returns", orderHandler.CreateReturn)
			})
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAuth)
			admin.Use(authMiddleware.RequireRole("admin"))
			admin.Use(adminRateLimit.Middleware)

			admin.Route("/customer/special_margins/{customerId}", func(sm chi.Router) {
				sm.Get("/", customerHandler.SpecialMargins)
				sm.Post("/", customerHandler.CreateSpecialMargin)
				sm.Delete("/{productId}", customerHandler.DeleteSpecialMargin)
			})

			admin.Get("/analytics/overview", analyticsHandler.Overview)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-stopCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown http server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server shutdown complete")
}

func runMigrations(cfg *config.Config, logger zerolog.Logger) {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open migration database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("close migration database")
		}
	}()
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		logger.Fatal().Err(err).Msg("prepare migration driver")
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationsPath, "pgx", driver)
	if err != nil {
		logger.Fatal().Err(err).Msg("open migrations")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Msg("apply migrations")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
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

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
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

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
