package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/vetbook/libs/auth"
	"github.com/md-rashed-zaman/vetbook/libs/cache"
	"github.com/md-rashed-zaman/vetbook/libs/config"
	"github.com/md-rashed-zaman/vetbook/libs/httpx"
	"github.com/md-rashed-zaman/vetbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/vetbook/libs/otel"
	"github.com/md-rashed-zaman/vetbook/libs/runtime"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/ledger"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/payment"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/slots"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9093")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	store, err := openBackend(ctx, logger)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		panic(err)
	}
	defer store.close()
	checks := store.checks

	var (
		profileCache cache.Cache = cache.NewNoop()
		rateLimit    httpx.Middleware
	)
	perMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		panic(err)
	}
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil {
			panic(err)
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
		profileCache = cache.NewRedis(rdb, "vetbook:directory")
		rateLimit = httpx.NewRedisRateLimiter(rdb, perMinute, time.Minute, "").Middleware(logger, true)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	} else {
		rateLimit = httpx.NewRateLimiter(perMinute, time.Minute).Middleware()
	}

	cacheTTL, err := config.Duration("DIRECTORY_CACHE_TTL", 5*time.Minute)
	if err != nil {
		panic(err)
	}
	profiles := directory.NewCachedProfiles(store.profiles, profileCache, cacheTTL, logger)

	slotService := slots.NewService(store.slots, profiles, logger)
	ledgerService := ledger.NewService(store.appointments, store.pets, profiles, logger)
	gate := newPaymentGate(store.payments, logger)
	orchestrator := booking.NewOrchestrator(slotService, ledgerService, gate, logger)
	sink := notify.NewSink(store.notifications, logger)

	outboxHandlers := []outbox.Handler{sink}
	if brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", "")); len(brokers) > 0 {
		writer := kafkax.NewWriter(brokers)
		defer func() { _ = writer.Close() }()
		outboxHandlers = append(outboxHandlers, outbox.NewKafkaPublisher(writer))
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))})
	}
	pollEvery, err := config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		panic(err)
	}
	batchSize, err := config.Int("OUTBOX_BATCH_SIZE", 50)
	if err != nil {
		panic(err)
	}
	dispatcher := outbox.NewDispatcher(store.outbox, logger, outbox.DispatcherConfig{
		PollEvery: pollEvery,
		BatchSize: batchSize,
	}, outboxHandlers...)
	go dispatcher.Run(ctx)

	verifier, err := newVerifier()
	if err != nil {
		panic(err)
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.New(slotService, orchestrator, ledgerService, sink, logger).Register(mux)

	bodyLimit, err := config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20)
	if err != nil {
		panic(err)
	}
	requestTimeout, err := config.Duration("REQUEST_TIMEOUT_SECONDS", 30*time.Second)
	if err != nil {
		panic(err)
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS"),
			MaxAge:         10 * time.Minute,
		}),
		handlers.Authenticate(verifier, logger),
		rateLimit,
		httpx.WithBodyLimit(int64(bodyLimit)),
		httpx.WithTimeout(requestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv := grpcserver.New(logger, 10*time.Second, checks...)
	if _, err := grpcSrv.Start(ctx, ":"+grpcPort); err != nil {
		logger.Error("grpc server start failed", "err", err)
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "storage", config.String("STORAGE_BACKEND", "postgres"))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func newPaymentGate(store payment.Store, logger *slog.Logger) *payment.Gate {
	delay, err := config.Duration("PAYMENT_DELAY", 2*time.Second)
	if err != nil {
		panic(err)
	}
	rate, err := config.Float("PAYMENT_SUCCESS_RATE", 0.9)
	if err != nil {
		panic(err)
	}
	timeout, err := config.Duration("PAYMENT_TIMEOUT", 10*time.Second)
	if err != nil {
		panic(err)
	}
	return payment.NewGate(payment.NewSimulatedProcessor(delay, rate), store, timeout, logger)
}

// newVerifier accepts HS256 tokens when JWT_SECRET is set and RS256 tokens
// when JWKS_URL is set.
func newVerifier() (*auth.Verifier, error) {
	var keys auth.KeySource
	if url := config.String("JWKS_URL", ""); url != "" {
		ttl, err := config.Duration("JWKS_CACHE_SECONDS", 5*time.Minute)
		if err != nil {
			return nil, err
		}
		keys = auth.NewJWKSClient(url, ttl)
	}
	var opts []auth.VerifierOption
	if issuer := config.String("JWT_ISSUER", ""); issuer != "" {
		opts = append(opts, auth.WithIssuer(issuer))
	}
	return auth.NewVerifier(config.String("JWT_SECRET", ""), keys, opts...), nil
}
