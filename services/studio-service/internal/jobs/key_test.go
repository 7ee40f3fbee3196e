package jobs

import (
	"testing"
	"time"
)

func TestKeyVariesWithStartTime(t *testing.T) {
	date := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)

	morning := Key("ord-1", date, 10*60, 2*time.Hour)
	afternoon := Key("ord-1", date, 14*60, 2*time.Hour)
	if morning == afternoon {
		t.Fatalf("same key %q for two start times on one date; the second reschedule would drop its reminder", morning)
	}
	if again := Key("ord-1", date, 10*60, 2*time.Hour); again != morning {
		t.Fatalf("key not stable: %q then %q", morning, again)
	}
}

func TestKeySeparatesDatesOffsetsAndOrders(t *testing.T) {
	date := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	base := Key("ord-1", date, 10*60, 2*time.Hour)

	if Key("ord-1", date.AddDate(0, 0, 1), 10*60, 2*time.Hour) == base {
		t.Fatal("key must change with the shoot date")
	}
	if Key("ord-1", date, 10*60, 24*time.Hour) == base {
		t.Fatal("key must change with the reminder offset")
	}
	if Key("ord-2", date, 10*60, 2*time.Hour) == base {
		t.Fatal("key must change with the order")
	}
}
