package apportion

import (
	"errors"
	"testing"
)

func TestQuotas(t *testing.T) {
	table := MustTable(
		Region{"C", 3000},
		Region{"A", 1000},
		Region{"B", 2000},
	)
	a, err := Apportion(table, 7)
	if err != nil {
		t.Fatalf("Apportion failed: %v", err)
	}

	rows, err := Quotas(table, a)
	if err != nil {
		t.Fatalf("Quotas failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	// Sorted by name regardless of table order.
	for i, name := range []string{"A", "B", "C"} {
		if rows[i].Region != name {
			t.Errorf("Row %d: expected %s, got %s", i, name, rows[i].Region)
		}
	}

	for _, r := range rows {
		if float64(r.QuotaFloor) > r.Quota || float64(r.QuotaCeil) < r.Quota {
			t.Errorf("%s: quota %.3f outside [%d, %d]", r.Region, r.Quota, r.QuotaFloor, r.QuotaCeil)
		}
		if r.PeoplePerSeat != r.Population/int64(r.Seats) {
			t.Errorf("%s: people per seat %d, want %d", r.Region, r.PeoplePerSeat, r.Population/int64(r.Seats))
		}
		t.Logf("%s: seats=%d quota=%.3f", r.Region, r.Seats, r.Quota)
	}
}

func TestQuota(t *testing.T) {
	if got := Quota(1000, 6000, 6); got != 1 {
		t.Errorf("Quota(1000, 6000, 6) = %v, want 1", got)
	}
	if got := Quota(5, 0, 10); got != 0 {
		t.Errorf("Quota with zero total = %v, want 0", got)
	}
}

func TestQuotas_KeyMismatch(t *testing.T) {
	if _, err := Quotas(smallTable(), Allocation{"A": 1, "B": 2}); !errors.Is(err, ErrKeyMismatch) {
		t.Errorf("Expected ErrKeyMismatch, got %v", err)
	}
	if _, err := Quotas(smallTable(), Allocation{"A": 1, "B": 2, "Z": 3}); !errors.Is(err, ErrKeyMismatch) {
		t.Errorf("Expected ErrKeyMismatch, got %v", err)
	}
}
