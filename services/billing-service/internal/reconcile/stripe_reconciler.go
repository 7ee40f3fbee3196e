package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shutterdesk/shutterdesk/libs/db"
	"github.com/shutterdesk/shutterdesk/services/billing-service/internal/invoices"
	"github.com/shutterdesk/shutterdesk/services/billing-service/internal/storage"
	"github.com/stripe/stripe-go/v79"
	stripeinvoice "github.com/stripe/stripe-go/v79/invoice"
)

// StripeReconciler heals invoices whose webhook delivery was missed: it
// polls open invoices and pulls their provider-side status.
type StripeReconciler struct {
	pool        *db.Pool
	repo        *storage.Repository
	invSvc      *invoices.Service
	logger      *slog.Logger
	stripeKey   string
	batchSize   int
	advisoryKey int64
}

type Config struct {
	StripeSecretKey string
	BatchSize       int
	AdvisoryLockKey int64
}

func New(pool *db.Pool, repo *storage.Repository, invSvc *invoices.Service, logger *slog.Logger, cfg Config) *StripeReconciler {
	bs := cfg.BatchSize
	if bs <= 0 {
		bs = 50
	}
	lockKey := cfg.AdvisoryLockKey
	if lockKey == 0 {
		lockKey = 7351002
	}
	return &StripeReconciler{
		pool:        pool,
		repo:        repo,
		invSvc:      invSvc,
		logger:      logger,
		stripeKey:   strings.TrimSpace(cfg.StripeSecretKey),
		batchSize:   bs,
		advisoryKey: lockKey,
	}
}

func (r *StripeReconciler) Run(ctx context.Context, interval time.Duration) {
	if r.stripeKey == "" {
		r.logger.Warn("stripe reconcile disabled: STRIPE_SECRET_KEY missing")
		return
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	// Advisory lock as best-effort leader election; only one instance
	// polls Stripe.
	for {
		if ctx.Err() != nil {
			return
		}
		var locked bool
		if err := r.pool.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, r.advisoryKey).Scan(&locked); err != nil {
			r.logger.Error("stripe reconcile: failed to acquire advisory lock", "err", err)
			time.Sleep(5 * time.Second)
			continue
		}
		if !locked {
			time.Sleep(30 * time.Second)
			continue
		}
		r.logger.Info("stripe reconcile: advisory lock acquired", "lock_key", r.advisoryKey)
		defer func() {
			_, _ = r.pool.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, r.advisoryKey)
		}()
		break
	}

	stripe.Key = r.stripeKey
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately so a restart after downtime heals fast.
	r.reconcileOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcileOnce(ctx)
		}
	}
}

func (r *StripeReconciler) reconcileOnce(ctx context.Context) {
	open, err := r.repo.ListOpenStripeInvoices(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("stripe reconcile: failed to list invoices", "err", err)
		return
	}

	for _, inv := range open {
		if ctx.Err() != nil {
			return
		}
		remote, err := stripeinvoice.Get(inv.StripeInvoiceID, nil)
		if err != nil {
			r.logger.Error("stripe reconcile: fetch failed", "err", err, "stripe_invoice_id", inv.StripeInvoiceID)
			continue
		}

		switch remote.Status {
		case stripe.InvoiceStatusPaid:
			paidAt := time.Now().UTC()
			if remote.StatusTransitions != nil && remote.StatusTransitions.PaidAt > 0 {
				paidAt = time.Unix(remote.StatusTransitions.PaidAt, 0).UTC()
			}
			r.apply(ctx, inv, func(cctx context.Context, tx pgx.Tx, locked storage.Invoice) error {
				return r.invSvc.ApplyPaid(cctx, tx, locked, paidAt)
			})
		case stripe.InvoiceStatusVoid, stripe.InvoiceStatusUncollectible:
			voidedAt := time.Now().UTC()
			if remote.StatusTransitions != nil && remote.StatusTransitions.VoidedAt > 0 {
				voidedAt = time.Unix(remote.StatusTransitions.VoidedAt, 0).UTC()
			}
			r.apply(ctx, inv, func(cctx context.Context, tx pgx.Tx, locked storage.Invoice) error {
				return r.invSvc.ApplyVoided(cctx, tx, locked, voidedAt)
			})
		}
	}
}

func (r *StripeReconciler) apply(ctx context.Context, inv storage.Invoice, fn func(context.Context, pgx.Tx, storage.Invoice) error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error("stripe reconcile: begin failed", "err", err)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	locked, err := r.repo.GetInvoiceForUpdate(ctx, tx, inv.ID)
	if err != nil {
		r.logger.Error("stripe reconcile: lock failed", "err", err, "invoice_id", inv.ID)
		return
	}
	if err := fn(ctx, tx, locked); err != nil {
		r.logger.Error("stripe reconcile: apply failed", "err", err, "invoice_id", inv.ID)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("stripe reconcile: commit failed", "err", err, "invoice_id", inv.ID)
	}
}
