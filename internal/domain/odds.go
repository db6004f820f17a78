package domain

import (
	"sicbo_go/pkg/dice"

	"github.com/shopspring/decimal"
)

// Payout multipliers. A winning stake returns stake * multiplier, so the
// multiplier already includes the returned stake (a 1:1 market pays x2).
var (
	multSizeParity = decimal.NewFromInt(2)
	multCombo      = decimal.NewFromInt(2)
	multPair       = decimal.NewFromInt(11)
	multAnyTriple  = decimal.NewFromInt(31)
	multTriple     = decimal.NewFromInt(181)
)

// multTotals maps an exact total (4..17) to its multiplier, inversely
// related to combinatorial frequency: modal totals 10/11 pay the least,
// extreme totals 4/17 the most.
var multTotals = map[int]int64{
	4: 63, 17: 63,
	5: 32, 16: 32,
	6: 19, 15: 19,
	7: 13, 14: 13,
	8: 9, 13: 9,
	9: 8, 12: 8,
	10: 7, 11: 7,
}

// Payout evaluates a market against a revealed roll.
// It returns the multiplier and whether the market won. Losing markets
// return a zero multiplier. Unknown markets always lose.
//
// The single-die family is dynamic: its multiplier is the number of dice
// showing the face plus one, so it can only be computed from the roll.
func Payout(m Market, roll dice.Roll) (decimal.Decimal, bool) {
	info, ok := catalogue[m]
	if !ok {
		return decimal.Zero, false
	}

	switch info.family {
	case FamilySizeParity:
		won := false
		switch m {
		case MarketSmall:
			won = roll.IsSmall()
		case MarketBig:
			won = roll.IsBig()
		case MarketOdd:
			won = roll.IsOdd()
		case MarketEven:
			won = roll.IsEven()
		}
		if won {
			return multSizeParity, true
		}

	case FamilyTotal:
		if roll.Total() == info.n {
			return decimal.NewFromInt(multTotals[info.n]), true
		}

	case FamilySingle:
		if n := roll.Count(info.n); n > 0 {
			return decimal.NewFromInt(int64(n) + 1), true
		}

	case FamilyPair:
		if roll.HasPair(info.n) {
			return multPair, true
		}

	case FamilyTriple:
		if roll.IsTriple() && roll[0] == info.n {
			return multTriple, true
		}

	case FamilyAnyTriple:
		if roll.IsTriple() {
			return multAnyTriple, true
		}

	case FamilyCombo:
		if roll.Contains(info.n) && roll.Contains(info.m) {
			return multCombo, true
		}
	}

	return decimal.Zero, false
}

// WinAmount returns the payout for a stake on a market given a roll.
// Zero for losing markets.
func WinAmount(m Market, stake decimal.Decimal, roll dice.Roll) decimal.Decimal {
	mult, won := Payout(m, roll)
	if !won {
		return decimal.Zero
	}
	return stake.Mul(mult)
}
