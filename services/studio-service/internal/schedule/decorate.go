package schedule

import "time"

// DayBadge is the month-view overlay for one day cell: how many shoots
// land on the day and the total travel time they carry.
type DayBadge struct {
	Count          int
	DrivingMinutes int
}

// Decorate aggregates the badge for one calendar day. Pure; recomputed
// per render. An unparseable start or missing driving time never drops
// an appointment from the count (driving simply contributes 0), so
// summing Count over all displayed days always equals the number of
// appointments scheduled on them.
func Decorate(day time.Time, appts []Appointment) DayBadge {
	var badge DayBadge
	for _, a := range appts {
		if !SameDay(a.Date, day) {
			continue
		}
		badge.Count++
		if a.DrivingTimeMin > 0 {
			badge.DrivingMinutes += a.DrivingTimeMin
		}
	}
	return badge
}
