package dice

import (
	"testing"
)

func TestRoll_Predicates(t *testing.T) {
	tests := []struct {
		name   string
		roll   Roll
		total  int
		triple bool
		small  bool
		big    bool
		odd    bool
		even   bool
	}{
		{"low mixed", Roll{1, 2, 3}, 6, false, true, false, false, true},
		{"high mixed", Roll{4, 5, 6}, 15, false, false, true, true, false},
		{"boundary small", Roll{2, 3, 5}, 10, false, true, false, false, true},
		{"boundary big", Roll{2, 4, 5}, 11, false, false, true, true, false},
		{"triple loses size and parity", Roll{3, 3, 3}, 9, true, false, false, false, false},
		{"triple six", Roll{6, 6, 6}, 18, true, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.roll.Total(); got != tt.total {
				t.Errorf("Total() = %d, want %d", got, tt.total)
			}
			if got := tt.roll.IsTriple(); got != tt.triple {
				t.Errorf("IsTriple() = %v, want %v", got, tt.triple)
			}
			if got := tt.roll.IsSmall(); got != tt.small {
				t.Errorf("IsSmall() = %v, want %v", got, tt.small)
			}
			if got := tt.roll.IsBig(); got != tt.big {
				t.Errorf("IsBig() = %v, want %v", got, tt.big)
			}
			if got := tt.roll.IsOdd(); got != tt.odd {
				t.Errorf("IsOdd() = %v, want %v", got, tt.odd)
			}
			if got := tt.roll.IsEven(); got != tt.even {
				t.Errorf("IsEven() = %v, want %v", got, tt.even)
			}
		})
	}
}

func TestRoll_CountAndPair(t *testing.T) {
	r := Roll{2, 2, 5}

	if got := r.Count(2); got != 2 {
		t.Errorf("Count(2) = %d, want 2", got)
	}
	if got := r.Count(5); got != 1 {
		t.Errorf("Count(5) = %d, want 1", got)
	}
	if got := r.Count(3); got != 0 {
		t.Errorf("Count(3) = %d, want 0", got)
	}
	if !r.HasPair(2) {
		t.Error("HasPair(2) should be true")
	}
	if r.HasPair(5) {
		t.Error("HasPair(5) should be false")
	}
	if !r.Contains(5) {
		t.Error("Contains(5) should be true")
	}
}

func TestNewRoll_Validation(t *testing.T) {
	if _, err := NewRoll(1, 6, 3); err != nil {
		t.Errorf("valid roll rejected: %v", err)
	}
	if _, err := NewRoll(0, 2, 3); err == nil {
		t.Error("face 0 should be rejected")
	}
	if _, err := NewRoll(1, 2, 7); err == nil {
		t.Error("face 7 should be rejected")
	}
}

func TestFromSlice(t *testing.T) {
	r, err := FromSlice([]int{2, 2, 5})
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	if r != (Roll{2, 2, 5}) {
		t.Errorf("unexpected roll %v", r)
	}

	if _, err := FromSlice([]int{1, 2}); err == nil {
		t.Error("2-element slice should be rejected")
	}
	if _, err := FromSlice(nil); err == nil {
		t.Error("nil slice should be rejected")
	}
}
