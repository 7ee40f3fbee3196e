package schedule

import "time"

// Appointment is the projection of a shoot order the calendar reads.
// It is immutable from the calendar's perspective: the binder, decorator
// and view only filter, group and position an already-fetched snapshot.
type Appointment struct {
	ID             string
	Date           time.Time // calendar day; clock part ignored
	Start          Clock     // normalized once at ingestion
	StartRaw       string    // original display string, kept for rendering
	StartValid     bool      // false when StartRaw would not parse
	DurationMin    int       // 0 = unknown, rendered one row tall
	Client         string
	Address        string
	Photographer   string // display name
	PhotographerID string // stable id derived at the data boundary
	DrivingTimeMin int    // minutes of travel before the shoot, 0 if unknown
}

// SameDay compares calendar days only (year/month/day, not timestamps).
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
