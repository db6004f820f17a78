package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Market is an immutable identifier for a bettable proposition,
// drawn from the fixed catalogue built at package init.
type Market string

// Family groups markets that share payout rules.
type Family int

const (
	FamilySizeParity Family = iota // small / big / odd / even
	FamilyTotal                    // total-4 .. total-17
	FamilySingle                   // single-1 .. single-6
	FamilyPair                     // pair-1 .. pair-6
	FamilyTriple                   // triple-1 .. triple-6
	FamilyAnyTriple                // any-triple
	FamilyCombo                    // combo-a-b for unordered pairs
)

const (
	MarketSmall Market = "small"
	MarketBig   Market = "big"
	MarketOdd   Market = "odd"
	MarketEven  Market = "even"

	MarketAnyTriple Market = "any-triple"
)

// TotalMarket returns the market for an exact total (4..17).
func TotalMarket(total int) Market {
	return Market(fmt.Sprintf("total-%d", total))
}

// SingleMarket returns the single-die market for a face.
func SingleMarket(face int) Market {
	return Market(fmt.Sprintf("single-%d", face))
}

// PairMarket returns the specific-pair market for a face.
func PairMarket(face int) Market {
	return Market(fmt.Sprintf("pair-%d", face))
}

// TripleMarket returns the specific-triple market for a face.
func TripleMarket(face int) Market {
	return Market(fmt.Sprintf("triple-%d", face))
}

// ComboMarket returns the two-number combination market for an unordered
// pair of distinct faces. The lower face always comes first.
func ComboMarket(a, b int) Market {
	if a > b {
		a, b = b, a
	}
	return Market(fmt.Sprintf("combo-%d-%d", a, b))
}

// BetLimits bound the total stake a single market accepts.
type BetLimits struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Valid reports min <= max with both positive.
func (l BetLimits) Valid() bool {
	return l.Min.IsPositive() && l.Max.IsPositive() && l.Min.LessThanOrEqual(l.Max)
}

// marketInfo is one catalogue entry.
type marketInfo struct {
	family Family
	// face or total the market refers to; unused for size/parity/any-triple.
	n int
	// second face for combo markets.
	m int
}

var catalogue = buildCatalogue()

func buildCatalogue() map[Market]marketInfo {
	c := make(map[Market]marketInfo, 52)

	for _, m := range []Market{MarketSmall, MarketBig, MarketOdd, MarketEven} {
		c[m] = marketInfo{family: FamilySizeParity}
	}
	for total := 4; total <= 17; total++ {
		c[TotalMarket(total)] = marketInfo{family: FamilyTotal, n: total}
	}
	for face := 1; face <= 6; face++ {
		c[SingleMarket(face)] = marketInfo{family: FamilySingle, n: face}
		c[PairMarket(face)] = marketInfo{family: FamilyPair, n: face}
		c[TripleMarket(face)] = marketInfo{family: FamilyTriple, n: face}
	}
	c[MarketAnyTriple] = marketInfo{family: FamilyAnyTriple}
	for a := 1; a <= 5; a++ {
		for b := a + 1; b <= 6; b++ {
			c[ComboMarket(a, b)] = marketInfo{family: FamilyCombo, n: a, m: b}
		}
	}

	return c
}

// KnownMarket reports whether id is in the catalogue.
func KnownMarket(id Market) bool {
	_, ok := catalogue[id]
	return ok
}

// MarketFamily returns the payout family of a catalogue market.
func MarketFamily(id Market) (Family, bool) {
	info, ok := catalogue[id]
	return info.family, ok
}

// AllMarkets returns the full catalogue as a slice (order unspecified).
func AllMarkets() []Market {
	out := make([]Market, 0, len(catalogue))
	for m := range catalogue {
		out = append(out, m)
	}
	return out
}

// MarketCount returns the catalogue size.
func MarketCount() int {
	return len(catalogue)
}
