package schedule

import (
	"sort"
	"time"
)

// BucketKey addresses one cell of a week/day grid.
type BucketKey struct {
	DayIndex  int
	SlotIndex int
}

// Bind maps each appointment to the (day, slot) bucket it starts in: same
// calendar day and parsed start within [slot, nextSlot). Appointments with
// an invalid start, or starting outside every slot's bucket, are left out.
// Nothing is dropped on collision: a bucket holds every match, ordered by
// ascending start then insertion order.
//
// Bind is pure; calling it twice over the same snapshot yields the same
// mapping.
func Bind(appts []Appointment, days []time.Time, slots []Clock, stepMinutes int) map[BucketKey][]Appointment {
	buckets := make(map[BucketKey][]Appointment)
	if len(days) == 0 || len(slots) == 0 || stepMinutes <= 0 {
		return buckets
	}

	for di, day := range days {
		for _, a := range appts {
			if !a.StartValid || !SameDay(a.Date, day) {
				continue
			}
			si, ok := slotIndexFor(a.Start, slots, stepMinutes)
			if !ok {
				continue
			}
			key := BucketKey{DayIndex: di, SlotIndex: si}
			buckets[key] = append(buckets[key], a)
		}
	}

	for key := range buckets {
		stableSortByStart(buckets[key])
	}
	return buckets
}

// BindDays is the month-view binding: day equality only, no time binning,
// so even appointments with an unparseable start stay visible in day cells.
func BindDays(appts []Appointment, days []time.Time) map[int][]Appointment {
	byDay := make(map[int][]Appointment)
	for di, day := range days {
		for _, a := range appts {
			if SameDay(a.Date, day) {
				byDay[di] = append(byDay[di], a)
			}
		}
	}
	for di := range byDay {
		stableSortByStart(byDay[di])
	}
	return byDay
}

func slotIndexFor(start Clock, slots []Clock, stepMinutes int) (int, bool) {
	m := start.Minutes()
	for i, slot := range slots {
		lo := slot.Minutes()
		if m >= lo && m < lo+stepMinutes {
			return i, true
		}
	}
	return 0, false
}

// Invalid starts sort last; ties keep insertion order.
func stableSortByStart(appts []Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		a, b := appts[i], appts[j]
		if a.StartValid != b.StartValid {
			return a.StartValid
		}
		return a.Start.Minutes() < b.Start.Minutes()
	})
}
