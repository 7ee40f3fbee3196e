package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
)

func dragFixture(t *testing.T) (Appointment, time.Time) {
	t.Helper()
	a := Appointment{
		ID:           "ord-1",
		Client:       "Alice",
		Photographer: "Grace",
		Date:         time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC),
		Start:        mustClock(t, "10:00 AM"),
		StartValid:   true,
	}
	target := time.Date(2024, time.June, 4, 0, 0, 0, 0, time.UTC)
	return a, target
}

func TestRescheduleHappyPath(t *testing.T) {
	a, target := dragFixture(t)

	var committed struct {
		orderID string
		day     time.Time
		start   Clock
	}
	var notices []string

	c := NewController(DefaultWindow(),
		func(_ context.Context, orderID string, day time.Time, start Clock) error {
			committed.orderID, committed.day, committed.start = orderID, day, start
			return nil
		},
		func(_ context.Context, _ string, message string) error {
			notices = append(notices, message)
			return nil
		})

	if !c.StartDrag(a) {
		t.Fatal("StartDrag from Idle should succeed")
	}
	if c.State() != Dragging {
		t.Fatalf("state = %v, want dragging", c.State())
	}
	if !c.Drop(target, 14) {
		t.Fatal("Drop on a valid cell should succeed")
	}
	if c.State() != DropPending {
		t.Fatalf("state = %v, want drop-pending", c.State())
	}

	want := "Alice's appointment moved to June 4 at 2:00 PM"
	if got := c.PendingMessage(); got != want {
		t.Fatalf("PendingMessage = %q, want %q", got, want)
	}

	if err := c.Confirm(context.Background()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if c.State() != Idle {
		t.Fatalf("state after confirm = %v, want idle", c.State())
	}
	if committed.orderID != "ord-1" || !committed.day.Equal(target) || committed.start != (Clock{Hour: 14}) {
		t.Fatalf("commit got (%s, %v, %v)", committed.orderID, committed.day, committed.start)
	}
	if len(notices) != 1 || notices[0] != want {
		t.Fatalf("expected exactly one notification %q, got %v", want, notices)
	}
}

func TestRescheduleFallsBackToPhotographerName(t *testing.T) {
	a, target := dragFixture(t)
	a.Client = ""

	c := NewController(DefaultWindow(), nil, nil)
	c.StartDrag(a)
	c.Drop(target, 14)

	want := "Grace's appointment moved to June 4 at 2:00 PM"
	if got := c.PendingMessage(); got != want {
		t.Fatalf("PendingMessage = %q, want %q", got, want)
	}
}

func TestSecondDragIgnoredWhileBusy(t *testing.T) {
	a, target := dragFixture(t)
	other := a
	other.ID = "ord-2"
	other.Client = "Bob"

	c := NewController(DefaultWindow(), nil, nil)
	c.StartDrag(a)
	if c.StartDrag(other) {
		t.Fatal("a second drag while dragging must be ignored")
	}

	c.Drop(target, 14)
	if c.StartDrag(other) {
		t.Fatal("a drag while a drop is pending must be ignored")
	}
	if got := c.PendingMessage(); got != "Alice's appointment moved to June 4 at 2:00 PM" {
		t.Fatalf("pending move lost to an ignored drag: %q", got)
	}
}

func TestDropOnInvalidTargetKeepsDragging(t *testing.T) {
	a, target := dragFixture(t)

	c := NewController(DefaultWindow(), nil, nil)
	c.StartDrag(a)

	if c.Drop(time.Time{}, 14) {
		t.Fatal("drop on a zero day should be rejected")
	}
	if c.Drop(target, 6) {
		t.Fatal("drop before the window start should be rejected")
	}
	if c.Drop(target, 23) {
		t.Fatal("drop past the window end should be rejected")
	}
	if c.State() != Dragging {
		t.Fatalf("state = %v, want dragging after rejected drops", c.State())
	}
}

func TestCancelHasNoSideEffects(t *testing.T) {
	a, target := dragFixture(t)

	commits, notices := 0, 0
	c := NewController(DefaultWindow(),
		func(context.Context, string, time.Time, Clock) error { commits++; return nil },
		func(context.Context, string, string) error { notices++; return nil })

	c.StartDrag(a)
	c.Drop(target, 14)
	c.Cancel()

	if c.State() != Idle {
		t.Fatalf("state = %v, want idle after cancel", c.State())
	}
	if commits != 0 || notices != 0 {
		t.Fatalf("cancel committed %d times and notified %d times, want 0/0", commits, notices)
	}
	if !c.StartDrag(a) {
		t.Fatal("controller should accept a new drag after cancel")
	}
}

func TestConfirmFailureSkipsNotification(t *testing.T) {
	a, target := dragFixture(t)

	notices := 0
	boom := errors.New("storage unavailable")
	c := NewController(DefaultWindow(),
		func(context.Context, string, time.Time, Clock) error { return boom },
		func(context.Context, string, string) error { notices++; return nil })

	c.StartDrag(a)
	c.Drop(target, 14)

	if err := c.Confirm(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Confirm error = %v, want %v", err, boom)
	}
	if notices != 0 {
		t.Fatalf("notified %d times after a failed commit, want 0", notices)
	}
	if c.State() != Idle {
		t.Fatalf("state = %v, want idle after failed confirm", c.State())
	}
}

func TestConfirmWithoutPendingDrop(t *testing.T) {
	c := NewController(DefaultWindow(), nil, nil)
	if err := c.Confirm(context.Background()); err == nil {
		t.Fatal("Confirm with nothing pending should error")
	}
}

func TestPositionFor(t *testing.T) {
	w := DefaultWindow()
	a := Appointment{Start: Clock{Hour: 10, Minute: 30}, StartValid: true, DurationMin: 90}
	p := PositionFor(a, w, 2)
	if p.Top != 2.5 {
		t.Fatalf("Top = %v, want 2.5 rows past 8:00", p.Top)
	}
	if p.Height != 1.5 {
		t.Fatalf("Height = %v, want 1.5 rows for 90 minutes", p.Height)
	}
	if p.Column != 2 {
		t.Fatalf("Column = %v, want 2", p.Column)
	}

	short := Appointment{Start: Clock{Hour: 8}, StartValid: true}
	if got := PositionFor(short, w, 0); got.Height != DefaultBlockRows {
		t.Fatalf("unknown duration Height = %v, want %v", got.Height, DefaultBlockRows)
	}
}
