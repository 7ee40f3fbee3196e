package schedule

import (
	"testing"
	"time"
)

func TestDayRangeWeekStartsSunday(t *testing.T) {
	// 2024-06-05 is a Wednesday.
	v := NewView(ModeWeek, time.Date(2024, time.June, 5, 13, 30, 0, 0, time.UTC))
	days := v.DayRange()
	if len(days) != 7 {
		t.Fatalf("week range has %d days, want 7", len(days))
	}
	if days[0].Weekday() != time.Sunday {
		t.Fatalf("week starts on %v, want Sunday", days[0].Weekday())
	}
	if !days[0].Equal(time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("week start = %v, want 2024-06-02", days[0])
	}
	if !days[6].Equal(time.Date(2024, time.June, 8, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("week end = %v, want 2024-06-08", days[6])
	}
}

func TestDayRangeDay(t *testing.T) {
	v := NewView(ModeDay, time.Date(2024, time.June, 5, 18, 0, 0, 0, time.UTC))
	days := v.DayRange()
	if len(days) != 1 {
		t.Fatalf("day range has %d days, want 1", len(days))
	}
	if !days[0].Equal(time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day = %v, want midnight 2024-06-05", days[0])
	}
}

func TestDayRangeMonthGrid(t *testing.T) {
	// June 2024 starts on a Saturday, so the grid leads with May 26.
	v := NewView(ModeMonth, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC))
	days := v.DayRange()
	if len(days) != 42 {
		t.Fatalf("month grid has %d cells, want 42", len(days))
	}
	if !days[0].Equal(time.Date(2024, time.May, 26, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("grid starts at %v, want 2024-05-26", days[0])
	}
	if days[0].Weekday() != time.Sunday {
		t.Fatalf("grid starts on %v, want Sunday", days[0].Weekday())
	}
	if !days[41].Equal(time.Date(2024, time.July, 6, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("grid ends at %v, want 2024-07-06", days[41])
	}
}

func TestFilterByPhotographer(t *testing.T) {
	appts := []Appointment{
		{ID: "a", PhotographerID: "ph-1"},
		{ID: "b", PhotographerID: "ph-2"},
		{ID: "c"}, // no photographer recorded
	}

	v := NewView(ModeWeek, time.Now())
	if got := v.Filter(appts); len(got) != 3 {
		t.Fatalf("empty selection should pass everything, got %d", len(got))
	}

	v.PhotographerIDs = map[string]struct{}{"ph-1": {}}
	got := v.Filter(appts)
	if len(got) != 2 {
		t.Fatalf("expected the ph-1 shoot plus the unattributed one, got %d", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("filter kept %s and %s, want a and c", got[0].ID, got[1].ID)
	}
}

func TestViewBindMonthIsEmpty(t *testing.T) {
	day := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	v := NewView(ModeMonth, day)
	appts := []Appointment{
		{ID: "a", Date: day, StartValid: true, Start: Clock{Hour: 10}},
	}
	if got := v.Bind(appts); len(got) != 0 {
		t.Fatalf("month mode should not produce slot buckets, got %v", got)
	}
}

func TestViewBindAppliesFilter(t *testing.T) {
	day := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	v := NewView(ModeDay, day)
	v.PhotographerIDs = map[string]struct{}{"ph-1": {}}
	appts := []Appointment{
		{ID: "a", Date: day, StartValid: true, Start: Clock{Hour: 10}, PhotographerID: "ph-1"},
		{ID: "b", Date: day, StartValid: true, Start: Clock{Hour: 10}, PhotographerID: "ph-2"},
	}

	buckets := v.Bind(appts)
	total := 0
	for _, b := range buckets {
		total += len(b)
	}
	if total != 1 {
		t.Fatalf("expected 1 bound appointment after filtering, got %d", total)
	}
}
