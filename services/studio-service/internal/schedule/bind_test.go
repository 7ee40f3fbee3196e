package schedule

import (
	"reflect"
	"testing"
	"time"
)

func mustClock(t *testing.T, s string) Clock {
	t.Helper()
	c, err := ParseClock(s)
	if err != nil {
		t.Fatalf("ParseClock(%q): %v", s, err)
	}
	return c
}

func appt(t *testing.T, id, client string, date time.Time, start string) Appointment {
	t.Helper()
	c, err := ParseClock(start)
	a := Appointment{ID: id, Client: client, Date: date, StartRaw: start}
	if err == nil {
		a.Start = c
		a.StartValid = true
	}
	return a
}

func TestBindSharedBucketOrdering(t *testing.T) {
	day := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	appts := []Appointment{
		appt(t, "b", "Bob", day, "10:15 AM"),
		appt(t, "a", "Alice", day, "10:00 AM"),
	}
	days := []time.Time{day}
	slots := Slots(8, 20, 30)

	buckets := Bind(appts, days, slots, 30)

	si, ok := slotIndexFor(mustClock(t, "10:00 AM"), slots, 30)
	if !ok {
		t.Fatal("10:00 AM should land in a slot")
	}
	got := buckets[BucketKey{DayIndex: 0, SlotIndex: si}]
	if len(got) != 2 {
		t.Fatalf("expected both appointments in the 10:00 bucket, got %d", len(got))
	}
	if got[0].Client != "Alice" || got[1].Client != "Bob" {
		t.Fatalf("expected [Alice, Bob], got [%s, %s]", got[0].Client, got[1].Client)
	}
}

func TestBindIsIdempotent(t *testing.T) {
	day := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	appts := []Appointment{
		appt(t, "a", "Alice", day, "10:00 AM"),
		appt(t, "b", "Bob", day, "10:15 AM"),
		appt(t, "c", "Cara", day.AddDate(0, 0, 1), "2:00 PM"),
	}
	days := []time.Time{day, day.AddDate(0, 0, 1)}
	slots := Slots(8, 20, 30)

	first := Bind(appts, days, slots, 30)
	second := Bind(appts, days, slots, 30)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("binding the same snapshot twice produced different grids")
	}
}

func TestBindSkipsInvalidAndOutOfWindow(t *testing.T) {
	day := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	appts := []Appointment{
		appt(t, "early", "Dawn", day, "6:00 AM"),
		appt(t, "bad", "Eve", day, "half past ten"),
		appt(t, "ok", "Finn", day, "9:00 AM"),
	}
	days := []time.Time{day}
	slots := Slots(8, 20, 30)

	buckets := Bind(appts, days, slots, 30)
	total := 0
	for _, b := range buckets {
		total += len(b)
	}
	if total != 1 {
		t.Fatalf("expected exactly one bound appointment, got %d", total)
	}
}

func TestBindDaysKeepsInvalidStarts(t *testing.T) {
	day := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	appts := []Appointment{
		appt(t, "early", "Dawn", day, "6:00 AM"),
		appt(t, "bad", "Eve", day, "half past ten"),
		appt(t, "other", "Finn", day.AddDate(0, 0, 1), "9:00 AM"),
	}
	days := []time.Time{day, day.AddDate(0, 0, 1)}

	byDay := BindDays(appts, days)
	if len(byDay[0]) != 2 {
		t.Fatalf("day 0 should hold 2 appointments (including the unparseable start), got %d", len(byDay[0]))
	}
	if len(byDay[1]) != 1 {
		t.Fatalf("day 1 should hold 1 appointment, got %d", len(byDay[1]))
	}
	// Valid start sorts before the invalid one.
	if byDay[0][0].Client != "Dawn" || byDay[0][1].Client != "Eve" {
		t.Fatalf("expected [Dawn, Eve], got [%s, %s]", byDay[0][0].Client, byDay[0][1].Client)
	}
}

func TestBindDifferentDaysStayApart(t *testing.T) {
	mon := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	tue := mon.AddDate(0, 0, 1)
	appts := []Appointment{
		appt(t, "a", "Alice", mon, "10:00 AM"),
		appt(t, "b", "Bob", tue, "10:00 AM"),
	}
	days := []time.Time{mon, tue}
	slots := Slots(8, 20, 30)

	buckets := Bind(appts, days, slots, 30)
	si, _ := slotIndexFor(mustClock(t, "10:00 AM"), slots, 30)
	if got := buckets[BucketKey{DayIndex: 0, SlotIndex: si}]; len(got) != 1 || got[0].Client != "Alice" {
		t.Fatalf("Monday bucket wrong: %v", got)
	}
	if got := buckets[BucketKey{DayIndex: 1, SlotIndex: si}]; len(got) != 1 || got[0].Client != "Bob" {
		t.Fatalf("Tuesday bucket wrong: %v", got)
	}
}
