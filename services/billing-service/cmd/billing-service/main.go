package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

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
	"github.com/shutterdesk/shutterdesk/services/billing-service/internal/handlers"
	"github.com/shutterdesk/shutterdesk/services/billing-service/internal/reconcile"
	"github.com/shutterdesk/shutterdesk/services/billing-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "billing-service")
	port, err := config.Port("PORT", "8082")
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

	repo := storage.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	handler := handlers.New(repo, outboxRepo, logger, handlers.Config{
		StripeWebhookSecret:           config.String("STRIPE_WEBHOOK_SECRET", ""),
		StripeWebhookToleranceSeconds: config.Int("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300),
		StripeSecretKey:               config.String("STRIPE_SECRET_KEY", ""),
		StripeCustomerID:              config.String("STRIPE_CUSTOMER_ID", ""),
	})
	invSvc := handler.InvoiceService()

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	// Completed shoots arrive over Kafka and turn into draft invoices.
	inboxRepo := inbox.NewRepository(pool)
	orderConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "billing-service"),
		Topic:   config.String("KAFKA_ORDER_TOPIC", "studio.order.completed.v1"),
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			OrderID    string `json:"order_id"`
			ClientName string `json:"client_name"`
			PriceCents int64  `json:"price_cents"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid order event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if payload.OrderID == "" {
			logger.Error("order event missing order_id", "topic", msg.Topic)
			return nil
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := invSvc.ApplyOrderCompleted(ctx, tx, payload.OrderID, payload.ClientName, payload.PriceCents, config.String("BILLING_CURRENCY", "usd")); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	go orderConsumer.Run(ctx)

	reconciler := reconcile.New(pool, repo, invSvc, logger, reconcile.Config{
		StripeSecretKey: config.String("STRIPE_SECRET_KEY", ""),
		BatchSize:       config.Int("STRIPE_RECONCILE_BATCH", 50),
	})
	go reconciler.Run(ctx, time.Duration(config.Int("STRIPE_RECONCILE_INTERVAL_SECONDS", 300))*time.Second)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/invoices", handler.ListInvoices)
	mux.HandleFunc("/api/v1/invoices/get", handler.GetInvoice)
	mux.HandleFunc("/api/v1/invoices/issue", handler.IssueInvoice)
	mux.HandleFunc("/api/v1/invoices/mark-paid", handler.MarkPaid)
	mux.HandleFunc("/webhooks/stripe", handler.StripeWebhook)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecovery(logger),
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "billing")
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
