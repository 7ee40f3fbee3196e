package schedule

// Display-window defaults for the studio calendar. These are presentation
// preferences, not protocol; mains may override them from config.
const (
	DefaultDayStartHour = 8
	DefaultDayEndHour   = 20
	DefaultStepMinutes  = 30
)

// Window is the displayable hour range of a week or day grid.
type Window struct {
	StartHour   int // first displayed hour
	EndHour     int // last displayed hour, inclusive
	StepMinutes int
}

func DefaultWindow() Window {
	return Window{
		StartHour:   DefaultDayStartHour,
		EndHour:     DefaultDayEndHour,
		StepMinutes: DefaultStepMinutes,
	}
}

// Slots generates the ordered slot boundaries for a view: every step from
// startHour:00 through endHourInclusive:00. Pure function of its inputs.
func Slots(startHour, endHourInclusive, stepMinutes int) []Clock {
	if stepMinutes <= 0 || startHour < 0 || startHour > 23 || endHourInclusive < startHour {
		return nil
	}
	if endHourInclusive > 23 {
		endHourInclusive = 23
	}

	var slots []Clock
	for m := startHour * 60; m <= endHourInclusive*60; m += stepMinutes {
		slots = append(slots, Clock{Hour: m / 60, Minute: m % 60})
	}
	return slots
}

func (w Window) Slots() []Clock {
	return Slots(w.StartHour, w.EndHour, w.StepMinutes)
}

// Contains reports whether a clock falls inside the displayable range,
// i.e. within some slot's half-open bucket. Appointments outside it are
// dropped from week/day grids but still count toward month badges.
func (w Window) Contains(c Clock) bool {
	m := c.Minutes()
	return m >= w.StartHour*60 && m < w.EndHour*60+w.StepMinutes
}
