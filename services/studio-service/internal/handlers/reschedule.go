package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shutterdesk/shutterdesk/libs/outbox"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/jobs"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/model"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/schedule"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/storage"
)

// RescheduleHandler runs a drag-reschedule to completion in one request:
// the SPA has already shown the confirmation dialog, so the API walks
// the controller through drag, drop and confirm, with commit bound to
// the order row and notification to the outbox. A tx spans both, so the
// move and its events land together or not at all.
type RescheduleHandler struct {
	repo       *storage.OrderRepository
	outboxRepo *outbox.Repository
	jobsRepo   *jobs.Repository
	logger     *slog.Logger
	window     schedule.Window
	reminders  []time.Duration
}

func NewRescheduleHandler(repo *storage.OrderRepository, outboxRepo *outbox.Repository, jobsRepo *jobs.Repository, logger *slog.Logger, window schedule.Window, reminders []time.Duration) *RescheduleHandler {
	return &RescheduleHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		jobsRepo:   jobsRepo,
		logger:     logger,
		window:     window,
		reminders:  reminders,
	}
}

type rescheduleRequest struct {
	OrderID string `json:"order_id"`
	NewDate string `json:"new_date"` // YYYY-MM-DD
	NewHour int    `json:"new_hour"` // 0-23, must be inside the display window
}

type rescheduleResponse struct {
	OrderID   string `json:"order_id"`
	ShootDate string `json:"shoot_date"`
	StartTime string `json:"start_time"`
	Message   string `json:"message"`
}

func (h *RescheduleHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" {
		http.Error(w, "order_id required", http.StatusBadRequest)
		return
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.NewDate), time.UTC)
	if err != nil {
		http.Error(w, "invalid new_date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order, err := h.repo.GetForUpdate(ctx, tx, req.OrderID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load order", http.StatusInternalServerError)
		return
	}
	if order.Status != model.OrderStatusScheduled {
		http.Error(w, "only scheduled orders can be rescheduled", http.StatusConflict)
		return
	}

	var message string
	ctrl := schedule.NewController(h.window,
		func(cctx context.Context, orderID string, newDate time.Time, newStart schedule.Clock) error {
			return h.commitMove(cctx, tx, order, orderID, newDate, newStart)
		},
		func(cctx context.Context, orderID, msg string) error {
			payload, err := json.Marshal(map[string]any{
				"order_id": orderID,
				"message":  msg,
			})
			if err != nil {
				return err
			}
			return h.outboxRepo.Insert(cctx, tx, outbox.Event{
				AggregateType: "order",
				AggregateID:   orderID,
				EventType:     "studio.appointment.rescheduled.v1",
				Payload:       payload,
			})
		})

	if !ctrl.StartDrag(projectOrder(order)) {
		http.Error(w, "reschedule already in progress", http.StatusConflict)
		return
	}
	if !ctrl.Drop(day, req.NewHour) {
		http.Error(w, "drop target outside the calendar window", http.StatusUnprocessableEntity)
		return
	}
	message = ctrl.PendingMessage()

	if err := ctrl.Confirm(ctx); err != nil {
		h.logger.Error("reschedule failed", "err", err, "order_id", req.OrderID)
		http.Error(w, "failed to reschedule order", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	start := schedule.Clock{Hour: req.NewHour}
	writeJSON(w, http.StatusOK, rescheduleResponse{
		OrderID:   req.OrderID,
		ShootDate: day.Format("2006-01-02"),
		StartTime: start.Display(),
		Message:   message,
	})
}

// commitMove rewrites the order row and swaps its pending reminders for
// ones matching the new start.
func (h *RescheduleHandler) commitMove(ctx context.Context, tx pgx.Tx, order model.Order, orderID string, newDate time.Time, newStart schedule.Clock) error {
	if err := h.repo.Reschedule(ctx, tx, orderID, newDate, newStart.Display(), newStart.Minutes()); err != nil {
		return err
	}
	if err := h.jobsRepo.CancelForOrder(ctx, tx, orderID); err != nil {
		return err
	}

	shootStart := newDate.Add(time.Duration(newStart.Minutes()) * time.Minute)
	now := time.Now().UTC()
	for _, offset := range h.reminders {
		remindAt := shootStart.Add(-offset)
		if remindAt.Before(now) {
			continue
		}
		if err := h.jobsRepo.Insert(ctx, tx, jobs.ReminderJob{
			IdempotencyKey: jobs.Key(orderID, newDate, newStart.Minutes(), offset),
			OrderID:        orderID,
			ClientName:     order.ClientName,
			Photographer:   order.Photographer,
			Address:        order.Address,
			ShootDate:      newDate,
			StartDisplay:   newStart.Display(),
			RemindAt:       remindAt,
		}); err != nil {
			return err
		}
	}
	return nil
}
