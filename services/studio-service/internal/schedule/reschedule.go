package schedule

import (
	"context"
	"fmt"
	"time"
)

// State of the drag-reschedule controller.
type State int

const (
	Idle State = iota
	Dragging
	DropPending
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case DropPending:
		return "drop-pending"
	default:
		return "idle"
	}
}

// CommitFunc persists a reschedule. It must either fully apply the move
// or return an error leaving the order untouched.
type CommitFunc func(ctx context.Context, orderID string, newDate time.Time, newStart Clock) error

// NotifyFunc delivers the human-readable reschedule notice.
type NotifyFunc func(ctx context.Context, orderID, message string) error

// Controller is the drag-reschedule state machine:
//
//	Idle -> Dragging -> DropPending -> Idle
//
// One move at a time: a second drag while busy is ignored, and a drop on
// an invalid cell does not advance the state. Confirm persists through
// commit and notifies exactly once, only after the commit succeeded.
type Controller struct {
	state   State
	dragged Appointment
	target  dropTarget
	window  Window
	commit  CommitFunc
	notify  NotifyFunc
}

type dropTarget struct {
	day  time.Time
	hour int
}

func NewController(window Window, commit CommitFunc, notify NotifyFunc) *Controller {
	return &Controller{window: window, commit: commit, notify: notify}
}

func (c *Controller) State() State {
	return c.state
}

// StartDrag begins moving an appointment. Returns false (and changes
// nothing) when another drag or pending drop is already in flight.
func (c *Controller) StartDrag(a Appointment) bool {
	if c.state != Idle {
		return false
	}
	c.dragged = a
	c.state = Dragging
	return true
}

// Drop proposes a new (day, hour) for the dragged appointment. An invalid
// target (zero day, or an hour outside the displayable window) is not a
// transition: the controller stays in Dragging.
func (c *Controller) Drop(day time.Time, hour int) bool {
	if c.state != Dragging {
		return false
	}
	if day.IsZero() || !c.window.Contains(Clock{Hour: hour}) {
		return false
	}
	c.target = dropTarget{day: midnight(day), hour: hour}
	c.state = DropPending
	return true
}

// ProposedStart is the new start clock implied by the drop target.
func (c *Controller) ProposedStart() Clock {
	return Clock{Hour: c.target.hour}
}

// PendingMessage is the notice shown for confirmation, e.g.
// "Alice's appointment moved to June 4 at 2:00 PM".
func (c *Controller) PendingMessage() string {
	if c.state != DropPending {
		return ""
	}
	name := c.dragged.Client
	if name == "" {
		name = c.dragged.Photographer
	}
	return fmt.Sprintf("%s's appointment moved to %s %d at %s",
		name, c.target.day.Month(), c.target.day.Day(), c.ProposedStart().Display())
}

// Confirm persists the pending move and emits the notification. On commit
// failure the controller returns to Idle without notifying; the snapshot
// is unchanged and the caller surfaces the error.
func (c *Controller) Confirm(ctx context.Context) error {
	if c.state != DropPending {
		return fmt.Errorf("no pending reschedule to confirm")
	}
	message := c.PendingMessage()
	orderID := c.dragged.ID
	day, start := c.target.day, c.ProposedStart()
	c.reset()

	if c.commit != nil {
		if err := c.commit(ctx, orderID, day, start); err != nil {
			return err
		}
	}
	if c.notify != nil {
		return c.notify(ctx, orderID, message)
	}
	return nil
}

// Cancel discards the pending proposal with no side effect.
func (c *Controller) Cancel() {
	c.reset()
}

func (c *Controller) reset() {
	c.state = Idle
	c.dragged = Appointment{}
	c.target = dropTarget{}
}
