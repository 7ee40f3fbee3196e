package schedule

import "testing"

func TestParseClock(t *testing.T) {
	cases := []struct {
		in     string
		hour   int
		minute int
	}{
		{"10:00 AM", 10, 0},
		{"10:15 am", 10, 15},
		{"8am", 8, 0},
		{"8:30 AM", 8, 30},
		{"12:00 AM", 0, 0},
		{"12:00 PM", 12, 0},
		{"12:45 pm", 12, 45},
		{"1 PM", 13, 0},
		{"11:59pm", 23, 59},
		{"  9:05 Am ", 9, 5},
	}
	for _, tc := range cases {
		c, err := ParseClock(tc.in)
		if err != nil {
			t.Fatalf("ParseClock(%q) failed: %v", tc.in, err)
		}
		if c.Hour != tc.hour || c.Minute != tc.minute {
			t.Fatalf("ParseClock(%q) = %d:%02d, want %d:%02d", tc.in, c.Hour, c.Minute, tc.hour, tc.minute)
		}
	}
}

func TestParseClockRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "AM", "13:00 PM", "0:30 AM", "10:60 AM", "14:00", "ten am", "10:0x PM"} {
		if _, err := ParseClock(in); err == nil {
			t.Fatalf("ParseClock(%q) should fail", in)
		}
	}
}

func TestClockDisplay(t *testing.T) {
	cases := []struct {
		clock Clock
		want  string
	}{
		{Clock{0, 0}, "12:00 AM"},
		{Clock{8, 0}, "8:00 AM"},
		{Clock{8, 30}, "8:30 AM"},
		{Clock{12, 0}, "12:00 PM"},
		{Clock{14, 0}, "2:00 PM"},
		{Clock{23, 59}, "11:59 PM"},
	}
	for _, tc := range cases {
		if got := tc.clock.Display(); got != tc.want {
			t.Fatalf("Display(%v) = %q, want %q", tc.clock, got, tc.want)
		}
	}
}

// Every generated slot must survive a format/parse round trip.
func TestSlotRoundTrip(t *testing.T) {
	for _, slot := range Slots(0, 23, 15) {
		parsed, err := ParseClock(slot.Display())
		if err != nil {
			t.Fatalf("round trip parse of %q failed: %v", slot.Display(), err)
		}
		if parsed != slot {
			t.Fatalf("round trip %v -> %q -> %v", slot, slot.Display(), parsed)
		}
	}
}
