package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shutterdesk/shutterdesk/libs/outbox"
	"github.com/shutterdesk/shutterdesk/services/media-service/internal/content"
	"github.com/shutterdesk/shutterdesk/services/media-service/internal/objectstore"
	"github.com/shutterdesk/shutterdesk/services/media-service/internal/storage"
)

// Uploads are buffered in memory for hashing before the object write;
// this cap bounds that buffer.
const maxUploadBytes = 64 << 20

type AssetHandler struct {
	repo       *storage.AssetRepository
	store      *objectstore.Store
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func NewAssetHandler(repo *storage.AssetRepository, store *objectstore.Store, outboxRepo *outbox.Repository, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{repo: repo, store: store, outboxRepo: outboxRepo, logger: logger}
}

type assetItem struct {
	AssetID     string `json:"asset_id"`
	OrderID     string `json:"order_id"`
	ObjectKey   string `json:"object_key"`
	ContentHash string `json:"content_hash"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
	CreatedAt   string `json:"created_at"`
}

// Upload accepts one multipart file per request, keyed by order.
// Content addressing happens before the object write: the digest names
// the object, so retried uploads of the same file converge on one key.
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	orderID := strings.TrimSpace(r.FormValue("order_id"))
	if orderID == "" {
		http.Error(w, "order_id required", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}
	if len(data) > maxUploadBytes {
		http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(data) == 0 {
		http.Error(w, "empty upload", http.StatusBadRequest)
		return
	}

	digest := content.HashBytes(data)
	key := content.ObjectKey(orderID, digest, header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	ctx := r.Context()

	// A repeat upload of identical bytes is answered from the ledger.
	if existing, err := h.repo.GetByHash(ctx, orderID, digest); err == nil {
		writeJSON(w, http.StatusOK, assetToItem(existing))
		return
	} else if !storage.IsNotFound(err) {
		http.Error(w, "failed to check for duplicate", http.StatusInternalServerError)
		return
	}

	if err := h.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		h.logger.Error("object write failed", "err", err, "key", key)
		http.Error(w, "object store unavailable", http.StatusServiceUnavailable)
		return
	}

	asset := &storage.Asset{
		OrderID:     orderID,
		ObjectKey:   key,
		ContentHash: digest,
		Filename:    header.Filename,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.repo.Create(ctx, tx, asset)
	if err != nil {
		if storage.IsDuplicate(err) {
			// Lost a race with a concurrent identical upload; the
			// object write was idempotent, so just report the winner.
			if existing, lookupErr := h.repo.GetByHash(ctx, orderID, digest); lookupErr == nil {
				writeJSON(w, http.StatusOK, assetToItem(existing))
				return
			}
		}
		http.Error(w, "failed to record asset", http.StatusInternalServerError)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"asset_id":     id,
		"order_id":     orderID,
		"object_key":   key,
		"content_hash": digest,
		"size_bytes":   len(data),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "asset",
		AggregateID:   id,
		EventType:     "media.asset.uploaded.v1",
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	asset.ID = id
	asset.CreatedAt = time.Now().UTC()
	writeJSON(w, http.StatusCreated, assetToItem(*asset))
}

func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	orderID := strings.TrimSpace(r.URL.Query().Get("order_id"))
	if orderID == "" {
		http.Error(w, "order_id required", http.StatusBadRequest)
		return
	}

	assets, err := h.repo.ListByOrder(r.Context(), orderID)
	if err != nil {
		http.Error(w, "failed to list assets", http.StatusInternalServerError)
		return
	}

	items := make([]assetItem, 0, len(assets))
	for _, a := range assets {
		items = append(items, assetToItem(a))
	}
	writeJSON(w, http.StatusOK, items)
}

// Download answers with a presigned URL rather than proxying bytes.
func (h *AssetHandler) Download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	orderID := strings.TrimSpace(r.URL.Query().Get("order_id"))
	contentHash := strings.TrimSpace(r.URL.Query().Get("content_hash"))
	if orderID == "" || contentHash == "" {
		http.Error(w, "order_id and content_hash required", http.StatusBadRequest)
		return
	}

	asset, err := h.repo.GetByHash(r.Context(), orderID, contentHash)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "asset not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load asset", http.StatusInternalServerError)
		return
	}

	url, err := h.store.PresignGet(r.Context(), asset.ObjectKey, 15*time.Minute)
	if err != nil {
		h.logger.Error("presign failed", "err", err, "key", asset.ObjectKey)
		http.Error(w, "object store unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func assetToItem(a storage.Asset) assetItem {
	return assetItem{
		AssetID:     a.ID,
		OrderID:     a.OrderID,
		ObjectKey:   a.ObjectKey,
		ContentHash: a.ContentHash,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
	}
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
