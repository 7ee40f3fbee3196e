package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
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
	"github.com/shutterdesk/shutterdesk/services/notification-service/internal/email"
	"github.com/shutterdesk/shutterdesk/services/notification-service/internal/message"
	"github.com/shutterdesk/shutterdesk/services/notification-service/internal/sms"
	"github.com/shutterdesk/shutterdesk/services/notification-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type delivery struct {
	orderID   string
	eventType string
	rendered  message.Rendered
}

type deliverer struct {
	pool        *db.Pool
	repo        *storage.Repository
	outboxRepo  *outbox.Repository
	logger      *slog.Logger
	email       email.Sender
	sms         sms.Sender
	studioEmail string
	studioPhone string
}

// deliver fans one rendered notice out to the studio's configured
// channels and records every attempt in the ledger.
func (d *deliverer) deliver(ctx context.Context, dl delivery) error {
	if d.studioEmail != "" {
		status, errMsg := "sent", ""
		if err := d.email.Send(d.studioEmail, dl.rendered.Subject, dl.rendered.Body); err != nil {
			status, errMsg = "failed", err.Error()
			d.logger.Error("email send failed", "err", err, "order_id", dl.orderID)
		}
		if err := d.record(ctx, dl, "email", d.studioEmail, status, errMsg, "smtp"); err != nil {
			return err
		}
	}
	if d.studioPhone != "" {
		status, errMsg := "sent", ""
		if err := d.sms.Send(ctx, d.studioPhone, dl.rendered.Body); err != nil {
			status, errMsg = "failed", err.Error()
			d.logger.Error("sms send failed", "err", err, "order_id", dl.orderID)
		}
		if err := d.record(ctx, dl, "sms", d.studioPhone, status, errMsg, d.sms.ProviderID()); err != nil {
			return err
		}
	}
	return nil
}

func (d *deliverer) record(ctx context.Context, dl delivery, channel, recipient, status, errMsg, providerID string) error {
	if err := d.repo.Insert(ctx, storage.Notification{
		OrderID:   dl.orderID,
		EventType: dl.eventType,
		Channel:   channel,
		Recipient: recipient,
		Subject:   dl.rendered.Subject,
		Body:      dl.rendered.Body,
		Status:    status,
		Error:     errMsg,
	}); err != nil {
		d.logger.Error("failed to persist notification", "err", err)
		return err
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	eventType := "notification.sent.v1"
	fields := map[string]any{
		"order_id":    dl.orderID,
		"channel":     channel,
		"provider_id": providerID,
		"sent_at":     time.Now().UTC().Format(time.RFC3339),
	}
	if status == "failed" {
		eventType = "notification.failed.v1"
		fields = map[string]any{
			"order_id":     dl.orderID,
			"channel":      channel,
			"error_reason": errMsg,
			"failed_at":    time.Now().UTC().Format(time.RFC3339),
		}
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	if err := d.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "notification",
		AggregateID:   dl.orderID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8084")
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

	inboxRepo := inbox.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	emailSender := email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@shutterdesk.local"),
	)

	var smsSender sms.Sender
	switch strings.ToLower(config.String("SMS_PROVIDER", "noop")) {
	case "webhook":
		smsSender = sms.NewWebhookSender(config.String("SMS_WEBHOOK_URL", ""), config.String("SMS_WEBHOOK_TOKEN", ""))
	default:
		smsSender = sms.NewNoopSender()
	}

	studio := config.String("STUDIO_NAME", "")
	d := &deliverer{
		pool:        pool,
		repo:        storage.NewRepository(pool),
		outboxRepo:  outboxRepo,
		logger:      logger,
		email:       emailSender,
		sms:         smsSender,
		studioEmail: config.String("STUDIO_NOTIFY_EMAIL", ""),
		studioPhone: config.String("STUDIO_NOTIFY_PHONE", ""),
	}

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	startConsumer := func(topic string, handler consumer.Handler) {
		if strings.TrimSpace(topic) == "" {
			return
		}
		c := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handler)
		go c.Run(ctx)
	}

	startConsumer(config.String("KAFKA_RESCHEDULED_TOPIC", "studio.appointment.rescheduled.v1"), func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			OrderID string `json:"order_id"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid rescheduled payload", "err", err)
			return nil
		}
		if payload.OrderID == "" || payload.Message == "" {
			logger.Error("rescheduled event missing fields")
			return nil
		}
		return d.deliver(ctx, delivery{
			orderID:   payload.OrderID,
			eventType: msg.Topic,
			rendered:  message.Rescheduled(studio, payload.Message),
		})
	})

	startConsumer(config.String("KAFKA_REMINDER_TOPIC", "studio.reminder.due.v1"), func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			OrderID    string `json:"order_id"`
			ClientName string `json:"client_name"`
			ShootDate  string `json:"shoot_date"`
			StartTime  string `json:"start_time"`
			Address    string `json:"address"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid reminder payload", "err", err)
			return nil
		}
		if payload.OrderID == "" || payload.ShootDate == "" {
			logger.Error("reminder event missing fields")
			return nil
		}
		return d.deliver(ctx, delivery{
			orderID:   payload.OrderID,
			eventType: msg.Topic,
			rendered:  message.ReminderDue(studio, payload.ClientName, payload.ShootDate, payload.StartTime, payload.Address),
		})
	})

	startConsumer(config.String("KAFKA_INVOICE_PAID_TOPIC", "billing.invoice.paid.v1"), func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			OrderID     string `json:"order_id"`
			ClientName  string `json:"client_name"`
			AmountCents int64  `json:"amount_cents"`
			Currency    string `json:"currency"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid invoice payload", "err", err)
			return nil
		}
		if payload.OrderID == "" {
			logger.Error("invoice event missing order_id")
			return nil
		}
		return d.deliver(ctx, delivery{
			orderID:   payload.OrderID,
			eventType: msg.Topic,
			rendered:  message.InvoicePaid(studio, payload.ClientName, payload.AmountCents, payload.Currency),
		})
	})

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
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
