package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/shutterdesk/shutterdesk/libs/config"
	"github.com/shutterdesk/shutterdesk/libs/db"
	"github.com/shutterdesk/shutterdesk/libs/httpx"
	"github.com/shutterdesk/shutterdesk/libs/kafkax"
	otelx "github.com/shutterdesk/shutterdesk/libs/otel"
	"github.com/shutterdesk/shutterdesk/libs/outbox"
	"github.com/shutterdesk/shutterdesk/libs/runtime"
	"github.com/shutterdesk/shutterdesk/services/media-service/internal/handlers"
	"github.com/shutterdesk/shutterdesk/services/media-service/internal/objectstore"
	"github.com/shutterdesk/shutterdesk/services/media-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "media-service")
	port, err := config.Port("PORT", "8083")
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

	endpoint, err := config.RequiredString("MINIO_ENDPOINT")
	if err != nil {
		panic(err)
	}
	store, err := objectstore.New(ctx, objectstore.Config{
		Endpoint:  endpoint,
		AccessKey: config.String("MINIO_ACCESS_KEY", ""),
		SecretKey: config.String("MINIO_SECRET_KEY", ""),
		Bucket:    config.String("MINIO_BUCKET", "shutterdesk-media"),
		UseSSL:    config.Bool("MINIO_USE_SSL", false),
	})
	if err != nil {
		logger.Error("object store setup failed", "err", err)
		panic(err)
	}

	outboxRepo := outbox.NewRepository(pool)
	brokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	assetRepo := storage.NewAssetRepository(pool)
	assetHandler := handlers.NewAssetHandler(assetRepo, store, outboxRepo, logger)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
		runtime.ReadyCheck{Name: "objectstore", Check: store.ReadyCheck()},
	)
	mux.HandleFunc("/api/v1/assets/upload", assetHandler.Upload)
	mux.HandleFunc("/api/v1/assets", assetHandler.List)
	mux.HandleFunc("/api/v1/assets/download", assetHandler.Download)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecovery(logger),
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(80<<20),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(config.String("CORS_ALLOWED_ORIGINS", ""), ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
	)
	handler = otelhttp.NewHandler(handler, "media")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
