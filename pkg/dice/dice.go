// Package dice provides the value type for a three-die Sic Bo roll.
// It is a pure package with no dependencies so both the odds table and
// the reconciler can share it without import cycles.
package dice

import "fmt"

const (
	// FaceMin and FaceMax bound a single die value.
	FaceMin = 1
	FaceMax = 6

	// SmallMax is the highest total counted as "small" (4..10).
	// BigMin is the lowest total counted as "big" (11..17).
	SmallMax = 10
	BigMin   = 11
)

// Roll is one revealed result: exactly three dice.
type Roll [3]int

// NewRoll validates the three face values and returns a Roll.
func NewRoll(a, b, c int) (Roll, error) {
	r := Roll{a, b, c}
	for _, f := range r {
		if f < FaceMin || f > FaceMax {
			return Roll{}, fmt.Errorf("die face %d out of range [%d,%d]", f, FaceMin, FaceMax)
		}
	}
	return r, nil
}

// FromSlice converts a decoded payload slice into a Roll.
func FromSlice(vals []int) (Roll, error) {
	if len(vals) != 3 {
		return Roll{}, fmt.Errorf("expected 3 dice, got %d", len(vals))
	}
	return NewRoll(vals[0], vals[1], vals[2])
}

// Total returns the sum of the three faces.
func (r Roll) Total() int {
	return r[0] + r[1] + r[2]
}

// IsTriple reports whether all three dice show the same face.
func (r Roll) IsTriple() bool {
	return r[0] == r[1] && r[1] == r[2]
}

// Count returns how many dice show the given face.
func (r Roll) Count(face int) int {
	n := 0
	for _, f := range r {
		if f == face {
			n++
		}
	}
	return n
}

// HasPair reports whether at least two dice show the given face.
func (r Roll) HasPair(face int) bool {
	return r.Count(face) >= 2
}

// Contains reports whether any die shows the given face.
func (r Roll) Contains(face int) bool {
	return r.Count(face) > 0
}

// IsSmall reports a small total (4..10). Triples never count as small.
func (r Roll) IsSmall() bool {
	return !r.IsTriple() && r.Total() <= SmallMax
}

// IsBig reports a big total (11..17). Triples never count as big.
func (r Roll) IsBig() bool {
	return !r.IsTriple() && r.Total() >= BigMin
}

// IsOdd reports an odd total. Triples never count as odd.
func (r Roll) IsOdd() bool {
	return !r.IsTriple() && r.Total()%2 == 1
}

// IsEven reports an even total. Triples never count as even.
func (r Roll) IsEven() bool {
	return !r.IsTriple() && r.Total()%2 == 0
}

func (r Roll) String() string {
	return fmt.Sprintf("[%d %d %d]", r[0], r[1], r[2])
}
