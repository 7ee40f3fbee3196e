package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shutterdesk/shutterdesk/libs/config"
	"github.com/shutterdesk/shutterdesk/libs/consumer"
	"github.com/shutterdesk/shutterdesk/libs/db"
	"github.com/shutterdesk/shutterdesk/libs/httpx"
	"github.com/shutterdesk/shutterdesk/libs/inbox"
	"github.com/shutterdesk/shutterdesk/libs/kafkax"
	otelx "github.com/shutterdesk/shutterdesk/libs/otel"
	"github.com/shutterdesk/shutterdesk/libs/outbox"
	"github.com/shutterdesk/shutterdesk/libs/runtime"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/directions"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/handlers"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/jobs"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/schedule"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func parseReminderOffsets(raw string, logger *slog.Logger) []time.Duration {
	var offsets []time.Duration
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mins, err := strconv.Atoi(part)
		if err != nil || mins <= 0 {
			logger.Warn("invalid reminder offset", "value", part)
			continue
		}
		offsets = append(offsets, time.Duration(mins)*time.Minute)
	}
	if len(offsets) == 0 {
		offsets = []time.Duration{24 * time.Hour}
	}
	return offsets
}

func calendarWindow(logger *slog.Logger) schedule.Window {
	w := schedule.DefaultWindow()
	w.StartHour = config.Int("CALENDAR_START_HOUR", w.StartHour)
	w.EndHour = config.Int("CALENDAR_END_HOUR", w.EndHour)
	w.StepMinutes = config.Int("CALENDAR_STEP_MINUTES", w.StepMinutes)
	if w.StartHour < 0 || w.EndHour > 23 || w.EndHour < w.StartHour || w.StepMinutes <= 0 {
		logger.Warn("invalid calendar window from env; using defaults")
		return schedule.DefaultWindow()
	}
	return w
}

func main() {
	service := config.String("SERVICE_NAME", "studio-service")
	port, err := config.Port("PORT", "8081")
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

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.PoolOptions{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	orderRepo := storage.NewOrderRepository(pool)
	clientRepo := storage.NewClientRepository(pool)
	teamRepo := storage.NewTeamRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	jobsRepo := jobs.NewRepository()

	reminders := parseReminderOffsets(config.String("REMINDER_OFFSETS_MINUTES", "1440,120"), logger)
	window := calendarWindow(logger)

	directionsProvider, err := directions.NewProvider(config.String("ROUTING_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("directions provider init failed; driving times must be set manually", "err", err)
		directionsProvider = nil
	}

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	reminderWorker := jobs.NewWorker(pool, jobsRepo, outboxRepo, logger, jobs.WorkerConfig{
		Interval:  5 * time.Second,
		BatchSize: 50,
	})
	go reminderWorker.Run(ctx)

	// Gallery uploads land in media-service; the asset link flows back
	// here through Kafka so orders know their deliverables.
	inboxRepo := inbox.NewRepository(pool)
	assetTopic := config.String("KAFKA_ASSET_TOPIC", "media.asset.uploaded.v1")
	if assetTopic != "" {
		assetConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "studio-service"),
			Topic:   assetTopic,
		}, func(ctx context.Context, msg kafka.Message) error {
			var payload struct {
				OrderID     string `json:"order_id"`
				AssetID     string `json:"asset_id"`
				ObjectKey   string `json:"object_key"`
				ContentHash string `json:"content_hash"`
			}
			if err := json.Unmarshal(msg.Value, &payload); err != nil {
				logger.Error("invalid asset event payload", "err", err, "topic", msg.Topic)
				return nil
			}
			if payload.OrderID == "" || payload.AssetID == "" {
				logger.Error("asset event missing order_id or asset_id", "topic", msg.Topic)
				return nil
			}

			tx, err := pool.Begin(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = tx.Rollback(ctx) }()

			if err := orderRepo.AttachAsset(ctx, tx, payload.OrderID, payload.AssetID, payload.ObjectKey, payload.ContentHash); err != nil {
				return err
			}
			return tx.Commit(ctx)
		})
		go assetConsumer.Run(ctx)
	}

	orderHandler := handlers.NewOrderHandler(orderRepo, outboxRepo, jobsRepo, logger, directionsProvider, reminders)
	calendarHandler := handlers.NewCalendarHandler(orderRepo, logger, window)
	rescheduleHandler := handlers.NewRescheduleHandler(orderRepo, outboxRepo, jobsRepo, logger, window, reminders)
	clientHandler := handlers.NewClientHandler(clientRepo, logger)
	teamHandler := handlers.NewTeamHandler(teamRepo, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer func() { _ = rdb.Close() }()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	}

	mux := runtime.NewBaseMux(readyChecks...)
	mux.HandleFunc("/api/v1/calendar", calendarHandler.View)
	mux.HandleFunc("/api/v1/orders", orderHandler.List)
	mux.HandleFunc("/api/v1/orders/get", orderHandler.Get)
	mux.HandleFunc("/api/v1/orders/create", orderHandler.Create)
	mux.HandleFunc("/api/v1/orders/complete", orderHandler.Complete)
	mux.HandleFunc("/api/v1/orders/cancel", orderHandler.Cancel)
	mux.HandleFunc("/api/v1/orders/reschedule", rescheduleHandler.Reschedule)
	mux.HandleFunc("/api/v1/clients", clientHandler.List)
	mux.HandleFunc("/api/v1/clients/create", clientHandler.Create)
	mux.HandleFunc("/api/v1/clients/update", clientHandler.Update)
	mux.HandleFunc("/api/v1/team", teamHandler.List)
	mux.HandleFunc("/api/v1/team/create", teamHandler.Create)
	mux.HandleFunc("/api/v1/team/active", teamHandler.SetActive)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithRecovery(logger),
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   strings.Split(config.String("CORS_ALLOWED_ORIGINS", ""), ","),
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", httpx.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		}),
	}
	if rdb != nil {
		limit := config.Int("RATE_LIMIT_PER_MINUTE", 300)
		if limit <= 0 {
			limit = 300
		}
		limiter := httpx.NewRedisRateLimiter(rdb, limit, time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	}

	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "studio")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
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
