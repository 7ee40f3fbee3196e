package schedule

// Position is the visual placement of an appointment block in the
// free-form week grid: offset from the top of the scrollable area,
// block height, and which day column it sits in. Units are rows
// (multiply by the renderer's row height in pixels).
type Position struct {
	Top    float64
	Height float64
	Column int
}

// DefaultBlockRows is the height of an appointment whose duration is
// unknown: one grid row.
const DefaultBlockRows = 1.0

// PositionFor places an appointment inside a window. Top is hours (and
// minute fraction) past the window start; height is proportional to the
// duration, one row per hour, with the one-row fallback when the end
// time cannot be resolved.
func PositionFor(a Appointment, w Window, column int) Position {
	startMin := a.Start.Minutes() - w.StartHour*60
	top := float64(startMin) / 60.0

	height := DefaultBlockRows
	if a.DurationMin > 0 {
		height = float64(a.DurationMin) / 60.0
	}

	return Position{Top: top, Height: height, Column: column}
}
