package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/model"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/roster"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/storage"
)

type TeamHandler struct {
	repo   *storage.TeamRepository
	logger *slog.Logger
}

func NewTeamHandler(repo *storage.TeamRepository, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{repo: repo, logger: logger}
}

type teamMemberRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

type teamMemberItem struct {
	MemberID  string `json:"member_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
	Color     string `json:"color"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req teamMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}

	id, err := h.repo.Create(r.Context(), &model.TeamMember{
		Name:   req.Name,
		Email:  strings.TrimSpace(req.Email),
		Phone:  strings.TrimSpace(req.Phone),
		Role:   strings.TrimSpace(req.Role),
		Color:  roster.ColorFor(req.Name),
		Active: true,
	})
	if err != nil {
		http.Error(w, "failed to create team member", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"member_id": id})
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	activeOnly := strings.TrimSpace(r.URL.Query().Get("active")) == "true"
	members, err := h.repo.List(r.Context(), activeOnly)
	if err != nil {
		http.Error(w, "failed to list team members", http.StatusInternalServerError)
		return
	}

	items := make([]teamMemberItem, 0, len(members))
	for _, m := range members {
		color := m.Color
		if color == "" {
			color = roster.ColorFor(m.Name)
		}
		items = append(items, teamMemberItem{
			MemberID:  m.ID,
			Name:      m.Name,
			Email:     m.Email,
			Phone:     m.Phone,
			Role:      m.Role,
			Color:     color,
			Active:    m.Active,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type setActiveRequest struct {
	MemberID string `json:"member_id"`
	Active   bool   `json:"active"`
}

func (h *TeamHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.MemberID = strings.TrimSpace(req.MemberID)
	if req.MemberID == "" {
		http.Error(w, "member_id required", http.StatusBadRequest)
		return
	}

	if err := h.repo.SetActive(r.Context(), req.MemberID, req.Active); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "team member not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update team member", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"member_id": req.MemberID, "active": req.Active})
}
