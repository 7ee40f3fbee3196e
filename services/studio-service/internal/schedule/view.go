package schedule

import "time"

// Mode selects which calendar layout is active.
type Mode string

const (
	ModeMonth Mode = "month"
	ModeWeek  Mode = "week"
	ModeDay   Mode = "day"
)

// WeekStartDay matches the SPA's calendar convention.
const WeekStartDay = time.Sunday

// View holds the calendar selection state: the active mode, the anchor
// date, and which photographers are shown (empty set means all).
type View struct {
	Mode            Mode
	SelectedDate    time.Time
	PhotographerIDs map[string]struct{}
	Window          Window
}

func NewView(mode Mode, selected time.Time) View {
	return View{
		Mode:         mode,
		SelectedDate: selected,
		Window:       DefaultWindow(),
	}
}

// DayRange is the list of days the active mode displays: the 7 days of
// the week containing the selection, the single selected day, or the
// full 6x7 month grid (leading and trailing out-of-month days included,
// as the SPA renders them).
func (v View) DayRange() []time.Time {
	anchor := midnight(v.SelectedDate)
	switch v.Mode {
	case ModeDay:
		return []time.Time{anchor}
	case ModeWeek:
		return consecutiveDays(weekStart(anchor), 7)
	case ModeMonth:
		first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
		return consecutiveDays(weekStart(first), 42)
	}
	return nil
}

// Filter narrows the snapshot to the selected photographers. With no
// selection every appointment passes. Appointments whose photographer id
// is unknown are kept; losing them silently would hide real work.
func (v View) Filter(appts []Appointment) []Appointment {
	if len(v.PhotographerIDs) == 0 {
		return appts
	}
	out := make([]Appointment, 0, len(appts))
	for _, a := range appts {
		if a.PhotographerID == "" {
			out = append(out, a)
			continue
		}
		if _, ok := v.PhotographerIDs[a.PhotographerID]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Bind runs the active mode's binding over the filtered snapshot.
// For month mode the slot mapping is empty and callers should use
// BindDays/Decorate output instead.
func (v View) Bind(appts []Appointment) map[BucketKey][]Appointment {
	if v.Mode == ModeMonth {
		return map[BucketKey][]Appointment{}
	}
	return Bind(v.Filter(appts), v.DayRange(), v.Window.Slots(), v.Window.StepMinutes)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func weekStart(t time.Time) time.Time {
	offset := int(t.Weekday()) - int(WeekStartDay)
	if offset < 0 {
		offset += 7
	}
	return t.AddDate(0, 0, -offset)
}

func consecutiveDays(start time.Time, n int) []time.Time {
	days := make([]time.Time, n)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}
