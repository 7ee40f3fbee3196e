package handlers

import (
	"testing"
	"time"

	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/schedule"
)

func TestGridCellsColumnIsDayIndex(t *testing.T) {
	// Week of Sunday 2024-06-02; Wednesday the 5th is day index 3.
	view := schedule.NewView(schedule.ModeWeek, time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC))
	view.Window = schedule.DefaultWindow()

	wednesday := time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC)
	appts := []schedule.Appointment{
		{ID: "ord-1", Client: "Alice", Date: wednesday, Start: schedule.Clock{Hour: 10}, StartValid: true},
		{ID: "ord-2", Client: "Bob", Date: wednesday, Start: schedule.Clock{Hour: 10, Minute: 15}, StartValid: true},
	}

	cells := gridCells(view, appts)
	if len(cells) != 1 {
		t.Fatalf("got %d cells, want 1 shared bucket", len(cells))
	}
	cell := cells[0]
	if cell.DayIndex != 3 {
		t.Fatalf("bucket day index = %d, want 3 (Wednesday)", cell.DayIndex)
	}
	if len(cell.Entries) != 2 {
		t.Fatalf("got %d entries in the bucket, want 2", len(cell.Entries))
	}
	for _, e := range cell.Entries {
		if e.Column != 3 {
			t.Fatalf("%s placed in column %d, want day column 3", e.OrderID, e.Column)
		}
	}
	if cell.Entries[0].OrderID != "ord-1" || cell.Entries[1].OrderID != "ord-2" {
		t.Fatalf("bucket order = [%s, %s], want [ord-1, ord-2]", cell.Entries[0].OrderID, cell.Entries[1].OrderID)
	}
}
