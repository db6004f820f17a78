package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCatalogue_Size(t *testing.T) {
	// 4 size/parity + 14 totals + 6 singles + 6 pairs + 6 triples
	// + any-triple + 15 combos.
	if got := MarketCount(); got != 52 {
		t.Errorf("catalogue size = %d, want 52", got)
	}
}

func TestCatalogue_Lookups(t *testing.T) {
	tests := []struct {
		market Market
		family Family
	}{
		{MarketSmall, FamilySizeParity},
		{MarketEven, FamilySizeParity},
		{TotalMarket(4), FamilyTotal},
		{TotalMarket(17), FamilyTotal},
		{SingleMarket(3), FamilySingle},
		{PairMarket(6), FamilyPair},
		{TripleMarket(1), FamilyTriple},
		{MarketAnyTriple, FamilyAnyTriple},
		{ComboMarket(2, 5), FamilyCombo},
	}

	for _, tt := range tests {
		fam, ok := MarketFamily(tt.market)
		if !ok {
			t.Errorf("market %q missing from catalogue", tt.market)
			continue
		}
		if fam != tt.family {
			t.Errorf("market %q family = %d, want %d", tt.market, fam, tt.family)
		}
	}

	if KnownMarket("total-3") {
		t.Error("total-3 is not a valid market")
	}
	if KnownMarket("combo-5-5") {
		t.Error("combo of identical faces is not a valid market")
	}
}

func TestComboMarket_Normalizes(t *testing.T) {
	if ComboMarket(5, 2) != ComboMarket(2, 5) {
		t.Error("combo markets must normalize face order")
	}
}

func TestBetLimits_Valid(t *testing.T) {
	ok := BetLimits{Min: decimal.NewFromInt(10), Max: decimal.NewFromInt(1000)}
	if !ok.Valid() {
		t.Error("expected valid limits")
	}

	bad := []BetLimits{
		{Min: decimal.NewFromInt(100), Max: decimal.NewFromInt(10)},
		{Min: decimal.Zero, Max: decimal.NewFromInt(10)},
		{Min: decimal.NewFromInt(-1), Max: decimal.NewFromInt(10)},
	}
	for i, l := range bad {
		if l.Valid() {
			t.Errorf("case %d: expected invalid limits", i)
		}
	}
}
