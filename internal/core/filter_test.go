package core

import "testing"

func TestFilterMatches(t *testing.T) {
	tx := Transaction{
		Type:     Income,
		Category: "hosting",
		Amount:   Money{Cents: 500},
		Date:     NewDate(2025, 1, 15),
	}

	cases := []struct {
		name string
		f    Filter
		want bool
	}{
		{"empty filter matches all", Filter{}, true},
		{"from inclusive", Filter{From: NewDate(2025, 1, 15)}, true},
		{"to inclusive", Filter{To: NewDate(2025, 1, 15)}, true},
		{"inside range", Filter{From: NewDate(2025, 1, 1), To: NewDate(2025, 1, 31)}, true},
		{"before range", Filter{From: NewDate(2025, 2, 1)}, false},
		{"after range", Filter{To: NewDate(2025, 1, 14)}, false},
		{"type match", Filter{Type: Income}, true},
		{"type mismatch", Filter{Type: Expense}, false},
		{"category match", Filter{Category: "hosting"}, true},
		{"category mismatch", Filter{Category: "salary"}, false},
		{"all dimensions", Filter{From: NewDate(2025, 1, 1), To: NewDate(2025, 1, 31), Type: Income, Category: "hosting"}, true},
	}
	for _, tc := range cases {
		if got := tc.f.Matches(tx); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestFilterIsZero(t *testing.T) {
	if !(Filter{}).IsZero() {
		t.Fatalf("zero filter should report IsZero")
	}
	if (Filter{Type: Expense}).IsZero() {
		t.Fatalf("constrained filter should not report IsZero")
	}
}
