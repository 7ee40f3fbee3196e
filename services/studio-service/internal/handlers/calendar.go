package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/model"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/roster"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/schedule"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/storage"
)

type CalendarHandler struct {
	repo   *storage.OrderRepository
	logger *slog.Logger
	window schedule.Window
}

func NewCalendarHandler(repo *storage.OrderRepository, logger *slog.Logger, window schedule.Window) *CalendarHandler {
	return &CalendarHandler{repo: repo, logger: logger, window: window}
}

type calendarSlot struct {
	Label   string `json:"label"`
	Minutes int    `json:"minutes"`
}

type calendarEntry struct {
	OrderID        string  `json:"order_id"`
	ClientName     string  `json:"client_name"`
	Address        string  `json:"address,omitempty"`
	StartTime      string  `json:"start_time"`
	DurationMin    int     `json:"duration_minutes,omitempty"`
	Photographer   string  `json:"photographer,omitempty"`
	PhotographerID string  `json:"photographer_id,omitempty"`
	Color          string  `json:"color,omitempty"`
	Top            float64 `json:"top"`
	Height         float64 `json:"height"`
	Column         int     `json:"column"`
}

type calendarCell struct {
	DayIndex  int             `json:"day_index"`
	SlotIndex int             `json:"slot_index"`
	Entries   []calendarEntry `json:"entries"`
}

type monthCell struct {
	Date           string `json:"date"`
	InMonth        bool   `json:"in_month"`
	Count          int    `json:"count"`
	DrivingMinutes int    `json:"driving_minutes"`
}

type photographerItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type calendarResponse struct {
	Mode          string             `json:"mode"`
	SelectedDate  string             `json:"selected_date"`
	Days          []string           `json:"days"`
	Slots         []calendarSlot     `json:"slots,omitempty"`
	Cells         []calendarCell     `json:"cells,omitempty"`
	MonthCells    []monthCell        `json:"month_cells,omitempty"`
	Photographers []photographerItem `json:"photographers"`
}

// View serves the week/day/month calendar. The grid is recomputed from
// the order snapshot on every request; nothing about layout is stored.
func (h *CalendarHandler) View(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mode := schedule.Mode(strings.TrimSpace(r.URL.Query().Get("mode")))
	switch mode {
	case schedule.ModeWeek, schedule.ModeDay, schedule.ModeMonth:
	case "":
		mode = schedule.ModeWeek
	default:
		http.Error(w, "mode must be month, week, or day", http.StatusBadRequest)
		return
	}

	selected := time.Now().UTC()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			http.Error(w, "invalid date (want YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		selected = parsed
	}

	view := schedule.NewView(mode, selected)
	view.Window = h.window
	if raw := strings.TrimSpace(r.URL.Query().Get("photographers")); raw != "" {
		view.PhotographerIDs = make(map[string]struct{})
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				view.PhotographerIDs[id] = struct{}{}
			}
		}
	}

	days := view.DayRange()
	from := days[0]
	to := days[len(days)-1].AddDate(0, 0, 1)
	orders, err := h.repo.ListByDateRange(r.Context(), from, to)
	if err != nil {
		http.Error(w, "failed to load orders", http.StatusInternalServerError)
		return
	}

	appts := make([]schedule.Appointment, 0, len(orders))
	names := make([]string, 0, len(orders))
	for _, o := range orders {
		a := projectOrder(o)
		if !a.StartValid && mode != schedule.ModeMonth {
			h.logger.Warn("order start time is unparseable, dropped from time grid",
				"order_id", o.ID, "start_raw", o.StartRaw)
		}
		appts = append(appts, a)
		if o.Photographer != "" {
			names = append(names, o.Photographer)
		}
	}

	resp := calendarResponse{
		Mode:          string(mode),
		SelectedDate:  selected.Format("2006-01-02"),
		Days:          formatDays(days),
		Photographers: make([]photographerItem, 0),
	}
	for _, p := range roster.Derive(names) {
		resp.Photographers = append(resp.Photographers, photographerItem{ID: p.ID, Name: p.Name, Color: p.Color})
	}

	if mode == schedule.ModeMonth {
		resp.MonthCells = h.monthCells(view, days, appts)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	slots := view.Window.Slots()
	resp.Slots = make([]calendarSlot, 0, len(slots))
	for _, s := range slots {
		resp.Slots = append(resp.Slots, calendarSlot{Label: s.Display(), Minutes: s.Minutes()})
	}

	resp.Cells = gridCells(view, appts)
	writeJSON(w, http.StatusOK, resp)
}

// gridCells bins the snapshot into week/day buckets and positions each
// block. Column is the appointment's day within the displayed range, the
// same for every entry of a bucket; stacking inside a cell is the entry
// order.
func gridCells(view schedule.View, appts []schedule.Appointment) []calendarCell {
	buckets := view.Bind(appts)
	cells := make([]calendarCell, 0, len(buckets))
	for key, entries := range buckets {
		cell := calendarCell{DayIndex: key.DayIndex, SlotIndex: key.SlotIndex}
		for _, a := range entries {
			pos := schedule.PositionFor(a, view.Window, key.DayIndex)
			cell.Entries = append(cell.Entries, calendarEntry{
				OrderID:        a.ID,
				ClientName:     a.Client,
				Address:        a.Address,
				StartTime:      a.StartRaw,
				DurationMin:    a.DurationMin,
				Photographer:   a.Photographer,
				PhotographerID: a.PhotographerID,
				Color:          roster.ColorFor(a.Photographer),
				Top:            pos.Top,
				Height:         pos.Height,
				Column:         pos.Column,
			})
		}
		cells = append(cells, cell)
	}
	return cells
}

func (h *CalendarHandler) monthCells(view schedule.View, days []time.Time, appts []schedule.Appointment) []monthCell {
	filtered := view.Filter(appts)
	byDay := schedule.BindDays(filtered, days)

	month := view.SelectedDate.Month()
	cells := make([]monthCell, len(days))
	for i, day := range days {
		badge := schedule.Decorate(day, byDay[i])
		cells[i] = monthCell{
			Date:           day.Format("2006-01-02"),
			InMonth:        day.Month() == month,
			Count:          badge.Count,
			DrivingMinutes: badge.DrivingMinutes,
		}
	}
	return cells
}

func projectOrder(o model.Order) schedule.Appointment {
	a := schedule.Appointment{
		ID:             o.ID,
		Date:           o.ShootDate,
		StartRaw:       o.StartRaw,
		DurationMin:    o.DurationMin,
		Client:         o.ClientName,
		Address:        o.Address,
		Photographer:   o.Photographer,
		PhotographerID: o.PhotographerID,
		DrivingTimeMin: o.DrivingTimeMin,
	}
	if o.StartMinutes >= 0 {
		a.Start = schedule.Clock{Hour: o.StartMinutes / 60, Minute: o.StartMinutes % 60}
		a.StartValid = true
	}
	return a
}

func formatDays(days []time.Time) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Format("2006-01-02")
	}
	return out
}
