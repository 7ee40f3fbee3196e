package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shutterdesk/shutterdesk/libs/outbox"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/directions"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/jobs"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/model"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/roster"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/schedule"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/storage"
)

type OrderHandler struct {
	repo       *storage.OrderRepository
	outboxRepo *outbox.Repository
	jobsRepo   *jobs.Repository
	logger     *slog.Logger
	directions directions.Provider
	reminders  []time.Duration
}

func NewOrderHandler(repo *storage.OrderRepository, outboxRepo *outbox.Repository, jobsRepo *jobs.Repository, logger *slog.Logger, directionsProvider directions.Provider, reminders []time.Duration) *OrderHandler {
	return &OrderHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		jobsRepo:   jobsRepo,
		logger:     logger,
		directions: directionsProvider,
		reminders:  reminders,
	}
}

type createOrderRequest struct {
	ClientID       string `json:"client_id"`
	ClientName     string `json:"client_name"`
	Address        string `json:"address"`
	ShootDate      string `json:"shoot_date"` // YYYY-MM-DD
	StartTime      string `json:"start_time"` // display string, e.g. "10:00 AM"
	DurationMin    int    `json:"duration_minutes"`
	Photographer   string `json:"photographer"`
	DrivingTimeMin int    `json:"driving_time_minutes"`
	PriceCents     int64  `json:"price_cents"`
	FromAddress    string `json:"from_address"`
}

type createOrderResponse struct {
	OrderID string `json:"order_id"`
}

type orderItem struct {
	OrderID        string `json:"order_id"`
	ClientID       string `json:"client_id,omitempty"`
	ClientName     string `json:"client_name"`
	Address        string `json:"address"`
	ShootDate      string `json:"shoot_date"`
	StartTime      string `json:"start_time"`
	StartValid     bool   `json:"start_valid"`
	DurationMin    int    `json:"duration_minutes"`
	Photographer   string `json:"photographer"`
	PhotographerID string `json:"photographer_id"`
	DrivingTimeMin int    `json:"driving_time_minutes"`
	PriceCents     int64  `json:"price_cents"`
	Status         string `json:"status"`
	CompletedAt    string `json:"completed_at,omitempty"`
	CancelledAt    string `json:"cancelled_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.ClientName = strings.TrimSpace(req.ClientName)
	req.Address = strings.TrimSpace(req.Address)
	req.Photographer = strings.TrimSpace(req.Photographer)
	if req.ClientName == "" || req.ShootDate == "" {
		http.Error(w, "client_name and shoot_date required", http.StatusBadRequest)
		return
	}

	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.ShootDate), time.UTC)
	if err != nil {
		http.Error(w, "invalid shoot_date", http.StatusBadRequest)
		return
	}

	// Normalize the start time once here; every later read uses the
	// parsed minutes and never re-parses the display string.
	startRaw := strings.TrimSpace(req.StartTime)
	startMinutes := -1
	if startRaw != "" {
		clock, err := schedule.ParseClock(startRaw)
		if err != nil {
			http.Error(w, "invalid start_time (want e.g. \"10:00 AM\")", http.StatusBadRequest)
			return
		}
		startRaw = clock.Display()
		startMinutes = clock.Minutes()
	}

	order := &model.Order{
		ClientID:       strings.TrimSpace(req.ClientID),
		ClientName:     req.ClientName,
		Address:        req.Address,
		ShootDate:      day,
		StartRaw:       startRaw,
		StartMinutes:   startMinutes,
		DurationMin:    req.DurationMin,
		Photographer:   req.Photographer,
		DrivingTimeMin: req.DrivingTimeMin,
		PriceCents:     req.PriceCents,
		Status:         model.OrderStatusScheduled,
	}
	if order.Photographer != "" {
		order.PhotographerID = roster.StableID(order.Photographer)
	}

	ctx := r.Context()
	if order.DrivingTimeMin == 0 && h.directions != nil && req.FromAddress != "" && order.Address != "" {
		route, err := h.directions.EstimateRoute(ctx, strings.TrimSpace(req.FromAddress), order.Address)
		if err != nil {
			h.logger.Warn("route estimate failed", "err", err)
		} else {
			order.DrivingTimeMin = route.DrivingMinutes
		}
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.repo.Create(ctx, tx, order)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "order conflicts with an existing shoot", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create order", http.StatusInternalServerError)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"order_id":     id,
		"client_name":  order.ClientName,
		"photographer": order.Photographer,
		"shoot_date":   order.ShootDate.Format("2006-01-02"),
		"start_time":   order.StartRaw,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "order",
		AggregateID:   id,
		EventType:     "studio.order.created.v1",
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if startMinutes >= 0 {
		shootStart := day.Add(time.Duration(startMinutes) * time.Minute)
		now := time.Now().UTC()
		for _, offset := range h.reminders {
			remindAt := shootStart.Add(-offset)
			if remindAt.Before(now) {
				continue
			}
			if err := h.jobsRepo.Insert(ctx, tx, jobs.ReminderJob{
				IdempotencyKey: jobs.Key(id, day, startMinutes, offset),
				OrderID:        id,
				ClientName:     order.ClientName,
				Photographer:   order.Photographer,
				Address:        order.Address,
				ShootDate:      day,
				StartDisplay:   order.StartRaw,
				RemindAt:       remindAt,
			}); err != nil {
				h.logger.Error("failed to enqueue reminder", "err", err, "order_id", id)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{OrderID: id})
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	orders, err := h.repo.List(r.Context(), limit)
	if err != nil {
		http.Error(w, "failed to list orders", http.StatusInternalServerError)
		return
	}

	items := make([]orderItem, 0, len(orders))
	for _, o := range orders {
		items = append(items, orderToItem(o))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("order_id"))
	if id == "" {
		http.Error(w, "order_id required", http.StatusBadRequest)
		return
	}

	order, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load order", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, orderToItem(order))
}

type completeOrderRequest struct {
	OrderID string `json:"order_id"`
}

func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req completeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" {
		http.Error(w, "order_id required", http.StatusBadRequest)
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
	if order.Status == model.OrderStatusCompleted {
		writeJSON(w, http.StatusOK, orderToItem(order))
		return
	}
	if order.Status != model.OrderStatusScheduled {
		http.Error(w, "order cannot be completed", http.StatusConflict)
		return
	}

	completedAt, err := h.repo.Complete(ctx, tx, order.ID)
	if err != nil {
		http.Error(w, "failed to complete order", http.StatusInternalServerError)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"order_id":     order.ID,
		"client_id":    order.ClientID,
		"client_name":  order.ClientName,
		"photographer": order.Photographer,
		"shoot_date":   order.ShootDate.Format("2006-01-02"),
		"price_cents":  order.PriceCents,
		"completed_at": completedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     "studio.order.completed.v1",
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	order.Status = model.OrderStatusCompleted
	order.CompletedAt = &completedAt
	writeJSON(w, http.StatusOK, orderToItem(order))
}

type cancelOrderRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.OrderID == "" {
		http.Error(w, "order_id required", http.StatusBadRequest)
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
	if order.Status == model.OrderStatusCancelled && order.CancelledAt != nil {
		writeJSON(w, http.StatusOK, orderToItem(order))
		return
	}
	if order.Status != model.OrderStatusScheduled {
		http.Error(w, "order cannot be cancelled", http.StatusConflict)
		return
	}

	cancelledAt, err := h.repo.Cancel(ctx, tx, order.ID, req.Reason)
	if err != nil {
		http.Error(w, "failed to cancel order", http.StatusInternalServerError)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"order_id":     order.ID,
		"client_name":  order.ClientName,
		"photographer": order.Photographer,
		"shoot_date":   order.ShootDate.Format("2006-01-02"),
		"cancelled_at": cancelledAt.UTC().Format(time.RFC3339),
		"reason":       req.Reason,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     "studio.order.cancelled.v1",
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	order.Status = model.OrderStatusCancelled
	order.CancelledAt = &cancelledAt
	order.CancelReason = req.Reason
	writeJSON(w, http.StatusOK, orderToItem(order))
}

func orderToItem(o model.Order) orderItem {
	item := orderItem{
		OrderID:        o.ID,
		ClientID:       o.ClientID,
		ClientName:     o.ClientName,
		Address:        o.Address,
		ShootDate:      o.ShootDate.Format("2006-01-02"),
		StartTime:      o.StartRaw,
		StartValid:     o.StartMinutes >= 0,
		DurationMin:    o.DurationMin,
		Photographer:   o.Photographer,
		PhotographerID: o.PhotographerID,
		DrivingTimeMin: o.DrivingTimeMin,
		PriceCents:     o.PriceCents,
		Status:         o.Status,
		CreatedAt:      o.CreatedAt.UTC().Format(time.RFC3339),
	}
	if o.CompletedAt != nil {
		item.CompletedAt = o.CompletedAt.UTC().Format(time.RFC3339)
	}
	if o.CancelledAt != nil {
		item.CancelledAt = o.CancelledAt.UTC().Format(time.RFC3339)
	}
	return item
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
