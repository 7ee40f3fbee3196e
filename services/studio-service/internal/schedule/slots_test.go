package schedule

import "testing"

func TestSlotsHourly(t *testing.T) {
	slots := Slots(8, 20, 60)
	if len(slots) != 13 {
		t.Fatalf("expected 13 hourly slots from 8 to 20, got %d", len(slots))
	}
	if slots[0] != (Clock{Hour: 8}) {
		t.Fatalf("first slot = %v, want 8:00", slots[0])
	}
	if slots[len(slots)-1] != (Clock{Hour: 20}) {
		t.Fatalf("last slot = %v, want 20:00", slots[len(slots)-1])
	}
}

func TestSlotsHalfHour(t *testing.T) {
	slots := Slots(8, 20, 30)
	if len(slots) != 25 {
		t.Fatalf("expected 25 half-hour slots, got %d", len(slots))
	}
	if slots[1] != (Clock{Hour: 8, Minute: 30}) {
		t.Fatalf("second slot = %v, want 8:30", slots[1])
	}
}

func TestSlotsDeterministic(t *testing.T) {
	a := Slots(7, 19, 30)
	b := Slots(7, 19, 30)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("slot %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestSlotsInvalidInputs(t *testing.T) {
	if s := Slots(8, 20, 0); s != nil {
		t.Fatalf("zero step should yield nil, got %v", s)
	}
	if s := Slots(20, 8, 30); s != nil {
		t.Fatalf("inverted range should yield nil, got %v", s)
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{StartHour: 8, EndHour: 20, StepMinutes: 30}
	if w.Contains(Clock{Hour: 6}) {
		t.Fatal("6:00 AM should be outside an 8-20 window")
	}
	if !w.Contains(Clock{Hour: 8}) {
		t.Fatal("8:00 AM should be inside")
	}
	if !w.Contains(Clock{Hour: 20, Minute: 15}) {
		t.Fatal("20:15 falls in the last slot's bucket")
	}
	if w.Contains(Clock{Hour: 20, Minute: 45}) {
		t.Fatal("20:45 is past the last bucket")
	}
}
