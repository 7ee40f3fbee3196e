package schedule

import (
	"testing"
	"time"
)

func TestDecorateCountsAndDriving(t *testing.T) {
	day := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	appts := []Appointment{
		{ID: "a", Date: day, StartValid: true, Start: Clock{Hour: 10}, DrivingTimeMin: 25},
		{ID: "b", Date: day, StartValid: true, Start: Clock{Hour: 14}, DrivingTimeMin: 40},
		{ID: "c", Date: day.AddDate(0, 0, 1), StartValid: true, Start: Clock{Hour: 9}},
	}

	badge := Decorate(day, appts)
	if badge.Count != 2 {
		t.Fatalf("Count = %d, want 2", badge.Count)
	}
	if badge.DrivingMinutes != 65 {
		t.Fatalf("DrivingMinutes = %d, want 65", badge.DrivingMinutes)
	}
}

func TestDecorateKeepsUnparseableStarts(t *testing.T) {
	day := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	appts := []Appointment{
		{ID: "a", Date: day, StartRaw: "half past ten"},
		{ID: "b", Date: day, StartValid: true, Start: Clock{Hour: 6}},
	}

	badge := Decorate(day, appts)
	if badge.Count != 2 {
		t.Fatalf("Count = %d, want 2; a bad time string must not hide a shoot from the month view", badge.Count)
	}
}

// Summing badges over a month's day range must account for every
// appointment dated inside the range, week-window or not.
func TestDecorateConservesMonthTotal(t *testing.T) {
	anchor := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	days := NewView(ModeMonth, anchor).DayRange()

	appts := []Appointment{
		{ID: "a", Date: time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), StartValid: true, Start: Clock{Hour: 6}},
		{ID: "b", Date: time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), StartValid: true, Start: Clock{Hour: 10}},
		{ID: "c", Date: time.Date(2024, time.June, 28, 0, 0, 0, 0, time.UTC), StartRaw: "garbage"},
	}

	total := 0
	for _, d := range days {
		total += Decorate(d, appts).Count
	}
	if total != len(appts) {
		t.Fatalf("month badges sum to %d, want %d", total, len(appts))
	}
}

// A 6 AM shoot is outside the default 8-20 week window, so the week grid
// drops it, but the month badge for its day still counts it.
func TestEarlyShootDroppedFromWeekButCountedInMonth(t *testing.T) {
	day := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	appts := []Appointment{
		{ID: "early", Date: day, StartValid: true, Start: Clock{Hour: 6}},
	}

	w := DefaultWindow()
	weekDays := NewView(ModeWeek, day).DayRange()
	buckets := Bind(appts, weekDays, w.Slots(), w.StepMinutes)
	if len(buckets) != 0 {
		t.Fatalf("6:00 AM shoot should not appear in an 8-20 week grid, got %v", buckets)
	}

	if badge := Decorate(day, appts); badge.Count != 1 {
		t.Fatalf("month badge Count = %d, want 1", badge.Count)
	}
}
