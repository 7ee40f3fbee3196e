package message

import "testing"

func TestRescheduledKeepsCalendarMessage(t *testing.T) {
	got := Rescheduled("Lumen Studio", "Alice's appointment moved to June 4 at 2:00 PM")
	want := "[Lumen Studio] Alice's appointment moved to June 4 at 2:00 PM"
	if got.Body != want {
		t.Fatalf("Body = %q, want %q", got.Body, want)
	}
}

func TestRescheduledWithoutStudioName(t *testing.T) {
	got := Rescheduled("", "Alice's appointment moved to June 4 at 2:00 PM")
	if got.Body != "Alice's appointment moved to June 4 at 2:00 PM" {
		t.Fatalf("unexpected body: %q", got.Body)
	}
}

func TestReminderDue(t *testing.T) {
	got := ReminderDue("Lumen Studio", "Alice", "2024-06-04", "2:00 PM", "12 Pine St")
	want := "[Lumen Studio] Reminder: Alice's shoot is on 2024-06-04 at 2:00 PM (12 Pine St)."
	if got.Body != want {
		t.Fatalf("Body = %q, want %q", got.Body, want)
	}

	bare := ReminderDue("", "Alice", "2024-06-04", "", "")
	if bare.Body != "Reminder: Alice's shoot is on 2024-06-04." {
		t.Fatalf("unexpected bare body: %q", bare.Body)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		cents    int64
		currency string
		want     string
	}{
		{45000, "usd", "$450.00 USD"},
		{5, "USD", "$0.05 USD"},
		{120050, "eur", "1200.50 EUR"},
		{-2500, "usd", "-$25.00 USD"},
		{999, "", "$9.99 USD"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.cents, tc.currency); got != tc.want {
			t.Fatalf("FormatAmount(%d, %q) = %q, want %q", tc.cents, tc.currency, got, tc.want)
		}
	}
}
