package engine

import (
	"testing"
	"time"

	"sicbo_go/internal/domain"
	"sicbo_go/internal/event"
	"sicbo_go/pkg/dice"

	"github.com/shopspring/decimal"
)

type settleCall struct {
	gameNumber string
	amount     decimal.Decimal
}

type fakeLedger struct {
	confirmed map[domain.Market]decimal.Decimal
	settles   []settleCall
	finalized []string
	cleared   int
}

func (f *fakeLedger) ConfirmedStakes() map[domain.Market]decimal.Decimal { return f.confirmed }
func (f *fakeLedger) Settle(gameNumber string, winAmount decimal.Decimal) {
	f.settles = append(f.settles, settleCall{gameNumber, winAmount})
}
func (f *fakeLedger) FinalizeRound(gameNumber string) { f.finalized = append(f.finalized, gameNumber) }
func (f *fakeLedger) ClearSettledStakes()             { f.cleared++ }

type triggerCall struct {
	name    string
	payload any
}

type fakePresenter struct {
	calls []triggerCall
}

func (f *fakePresenter) Trigger(name string, payload any) {
	f.calls = append(f.calls, triggerCall{name, payload})
}

type scheduled struct {
	delay time.Duration
	ev    event.Event
}

type testRig struct {
	ledger    *fakeLedger
	presenter *fakePresenter
	scheduled []scheduled
	rec       *ResultReconciler
}

func newRig(t *testing.T, maxPush int, stakes map[domain.Market]decimal.Decimal) *testRig {
	t.Helper()
	rig := &testRig{
		ledger:    &fakeLedger{confirmed: stakes},
		presenter: &fakePresenter{},
	}
	rig.rec = NewResultReconciler(rig.ledger, rig.presenter,
		func(d time.Duration, ev event.Event) {
			rig.scheduled = append(rig.scheduled, scheduled{d, ev})
		},
		15*time.Second, 3*time.Second, maxPush)
	return rig
}

func stakesOf(m domain.Market, amount int64) map[domain.Market]decimal.Decimal {
	return map[domain.Market]decimal.Decimal{m: decimal.NewFromInt(amount)}
}

func mustRoll(t *testing.T, a, b, c int) dice.Roll {
	t.Helper()
	r, err := dice.NewRoll(a, b, c)
	if err != nil {
		t.Fatalf("bad roll: %v", err)
	}
	return r
}

func TestReconciler_FirstResultSettlesFromDice(t *testing.T) {
	rig := newRig(t, 5, stakesOf(domain.PairMarket(2), 100))
	rig.rec.Reset("G1")

	rig.rec.OnGameResult(event.GameResult{
		GameNumber: "G1", Dice: mustRoll(t, 2, 2, 5), HasDice: true, Seq: 1,
	})

	if len(rig.ledger.settles) != 1 {
		t.Fatalf("settles = %d, want 1", len(rig.ledger.settles))
	}
	if got := rig.ledger.settles[0]; got.gameNumber != "G1" || !got.amount.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("settle = %s/%s, want G1/1100", got.gameNumber, got.amount)
	}

	if len(rig.presenter.calls) != 1 || rig.presenter.calls[0].name != TriggerDiceRevealed {
		t.Errorf("presenter calls = %+v, want one dice_revealed", rig.presenter.calls)
	}
}

func TestReconciler_DuplicatePushNoDoubleCredit(t *testing.T) {
	rig := newRig(t, 2, stakesOf(domain.MarketSmall, 50))
	rig.rec.Reset("G1")

	push := event.GameResult{GameNumber: "G1", Dice: mustRoll(t, 1, 2, 3), HasDice: true, Seq: 7}
	rig.rec.OnGameResult(push)
	rig.rec.OnGameResult(push)

	// One settlement only, but both pushes count toward completion.
	if len(rig.ledger.settles) != 1 {
		t.Fatalf("settles = %d, want 1", len(rig.ledger.settles))
	}
	if !rig.ledger.settles[0].amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("settle amount = %s, want 100", rig.ledger.settles[0].amount)
	}
	if !rig.rec.Complete() {
		t.Error("two pushes at maxPushCount=2 must complete the round")
	}
	if len(rig.ledger.finalized) != 1 || rig.ledger.finalized[0] != "G1" {
		t.Errorf("finalized = %v, want [G1]", rig.ledger.finalized)
	}
}

func TestReconciler_ReRevealNeverResettles(t *testing.T) {
	rig := newRig(t, 5, stakesOf(domain.MarketBig, 10))
	rig.rec.Reset("G1")

	rig.rec.OnGameResult(event.GameResult{GameNumber: "G1", Dice: mustRoll(t, 6, 6, 5), HasDice: true, Seq: 1})
	// Same dice, new sequence: not a duplicate push, but dice are
	// already captured so nothing settles again.
	rig.rec.OnGameResult(event.GameResult{GameNumber: "G1", Dice: mustRoll(t, 6, 6, 5), HasDice: true, Seq: 2})

	if len(rig.ledger.settles) != 1 {
		t.Errorf("settles = %d, want 1", len(rig.ledger.settles))
	}
	if roll, ok := rig.rec.Dice(); !ok || roll != mustRoll(t, 6, 6, 5) {
		t.Errorf("dice = %v ok=%v", roll, ok)
	}
}

func TestReconciler_WinPushesSettlePerPush(t *testing.T) {
	rig := newRig(t, 5, nil)
	rig.rec.Reset("G1")

	rig.rec.OnWinData(event.WinData{GameNumber: "G1", WinAmount: decimal.NewFromInt(300), Seq: 1})
	rig.rec.OnWinData(event.WinData{GameNumber: "G1", WinAmount: decimal.NewFromInt(200), Seq: 2})
	rig.rec.OnWinData(event.WinData{GameNumber: "G1", WinAmount: decimal.NewFromInt(200), Seq: 2}) // duplicate

	if len(rig.ledger.settles) != 2 {
		t.Fatalf("settles = %d, want 2", len(rig.ledger.settles))
	}
	total := rig.ledger.settles[0].amount.Add(rig.ledger.settles[1].amount)
	if !total.Equal(decimal.NewFromInt(500)) {
		t.Errorf("total settled = %s, want 500", total)
	}
}

func TestReconciler_ResultAndWinSequencesIndependent(t *testing.T) {
	// Result and win pushes carry independent sequence counters, and
	// both default to zero when the payload omits seq. A win push must
	// settle even when its seq collides with an earlier result push's.
	rig := newRig(t, 5, stakesOf(domain.MarketSmall, 50))
	rig.rec.Reset("G1")

	rig.rec.OnGameResult(event.GameResult{GameNumber: "G1", Dice: mustRoll(t, 1, 2, 3), HasDice: true, Seq: 0})
	rig.rec.OnWinData(event.WinData{GameNumber: "G1", WinAmount: decimal.NewFromInt(30), Seq: 0})

	if len(rig.ledger.settles) != 2 {
		t.Fatalf("settles = %d, want 2 (win push must not dedup against the result push)", len(rig.ledger.settles))
	}
	total := rig.ledger.settles[0].amount.Add(rig.ledger.settles[1].amount)
	if !total.Equal(decimal.NewFromInt(130)) {
		t.Errorf("total settled = %s, want 130", total)
	}

	// Within each type the sequence still dedups.
	rig.rec.OnWinData(event.WinData{GameNumber: "G1", WinAmount: decimal.NewFromInt(30), Seq: 0})
	if len(rig.ledger.settles) != 2 {
		t.Errorf("duplicate win seq settled again, settles = %d", len(rig.ledger.settles))
	}
}

func TestReconciler_StalePushDiscarded(t *testing.T) {
	rig := newRig(t, 1, stakesOf(domain.MarketSmall, 50))
	rig.rec.Reset("G2")

	rig.rec.OnGameResult(event.GameResult{GameNumber: "G1", Dice: mustRoll(t, 1, 2, 3), HasDice: true, Seq: 1})

	if len(rig.ledger.settles) != 0 {
		t.Errorf("stale push must not settle, got %d", len(rig.ledger.settles))
	}
	if rig.rec.Complete() {
		t.Error("stale push must not count toward completion")
	}
}

func TestReconciler_DicelessPushCountedNotSettled(t *testing.T) {
	rig := newRig(t, 1, stakesOf(domain.MarketSmall, 50))
	rig.rec.Reset("G1")

	rig.rec.OnGameResult(event.GameResult{GameNumber: "G1", Seq: 1})

	if len(rig.ledger.settles) != 0 {
		t.Errorf("diceless push must not settle, got %d", len(rig.ledger.settles))
	}
	if !rig.rec.Complete() {
		t.Error("diceless push still counts toward completion")
	}
}

func TestReconciler_TimeoutForcesCompletion(t *testing.T) {
	rig := newRig(t, 5, nil)
	rig.rec.Reset("G1")

	if len(rig.scheduled) != 1 || rig.scheduled[0].delay != 15*time.Second {
		t.Fatalf("reset must arm the 15s timer, scheduled = %+v", rig.scheduled)
	}
	timeout, ok := rig.scheduled[0].ev.(event.ReconcileTimeout)
	if !ok {
		t.Fatalf("scheduled event = %T, want ReconcileTimeout", rig.scheduled[0].ev)
	}

	rig.rec.OnWinData(event.WinData{GameNumber: "G1", WinAmount: decimal.NewFromInt(40), Seq: 1})
	rig.rec.OnTimeout(timeout)

	if !rig.rec.Complete() {
		t.Error("timeout must force completion")
	}
	if len(rig.ledger.finalized) != 1 {
		t.Errorf("finalized = %v, want one round", rig.ledger.finalized)
	}
}

func TestReconciler_SupersededTimerNeverActs(t *testing.T) {
	rig := newRig(t, 5, nil)
	rig.rec.Reset("G1")
	oldTimeout := rig.scheduled[0].ev.(event.ReconcileTimeout)

	rig.rec.Reset("G2")
	rig.rec.OnTimeout(oldTimeout)

	if rig.rec.Complete() {
		t.Error("a timer armed for a superseded round must be inert")
	}
	if len(rig.ledger.finalized) != 0 {
		t.Errorf("finalized = %v, want none", rig.ledger.finalized)
	}
}

func TestReconciler_DisplayGraceClearsStakes(t *testing.T) {
	rig := newRig(t, 1, stakesOf(domain.MarketOdd, 25))
	rig.rec.Reset("G1")

	rig.rec.OnGameResult(event.GameResult{GameNumber: "G1", Dice: mustRoll(t, 1, 3, 5), HasDice: true, Seq: 1})
	if !rig.rec.Complete() {
		t.Fatal("round should be complete")
	}

	last := rig.scheduled[len(rig.scheduled)-1]
	grace, ok := last.ev.(event.DisplayGrace)
	if !ok || last.delay != 3*time.Second {
		t.Fatalf("completion must arm the 3s grace timer, got %+v", last)
	}

	rig.rec.OnDisplayGrace(grace)
	if rig.ledger.cleared != 1 {
		t.Errorf("cleared = %d, want 1", rig.ledger.cleared)
	}

	// A grace timer from a previous round must not clear the new one.
	rig.rec.Reset("G2")
	rig.rec.OnDisplayGrace(grace)
	if rig.ledger.cleared != 1 {
		t.Errorf("stale grace timer acted, cleared = %d", rig.ledger.cleared)
	}
}

func TestReconciler_WinTriggerOnCompletion(t *testing.T) {
	rig := newRig(t, 1, stakesOf(domain.TripleMarket(4), 10))
	rig.rec.Reset("G1")

	rig.rec.OnGameResult(event.GameResult{GameNumber: "G1", Dice: mustRoll(t, 4, 4, 4), HasDice: true, Seq: 1})

	var win *WinPresentation
	for _, c := range rig.presenter.calls {
		if c.name == TriggerWin {
			p := c.payload.(WinPresentation)
			win = &p
		}
	}
	if win == nil {
		t.Fatal("no win trigger fired")
	}
	if !win.WinAmount.Equal(decimal.NewFromInt(1810)) {
		t.Errorf("win amount = %s, want 1810", win.WinAmount)
	}
	if win.Tier != "mega_win" {
		t.Errorf("tier = %q, want mega_win (181x)", win.Tier)
	}
}

func TestWinTier(t *testing.T) {
	cases := []struct {
		win, wagered int64
		want         string
	}{
		{200, 100, "win"},
		{1100, 100, "big_win"},
		{18100, 100, "mega_win"},
		{50, 0, "win"},
	}
	for _, tc := range cases {
		got := winTier(decimal.NewFromInt(tc.win), decimal.NewFromInt(tc.wagered))
		if got != tc.want {
			t.Errorf("winTier(%d, %d) = %q, want %q", tc.win, tc.wagered, got, tc.want)
		}
	}
}
