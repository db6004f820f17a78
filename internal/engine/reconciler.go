package engine

import (
	"log/slog"
	"time"

	"sicbo_go/internal/domain"
	"sicbo_go/internal/event"
	"sicbo_go/pkg/dice"

	"github.com/shopspring/decimal"
)

// Presenter is the animation/audio collaborator. Triggers are
// fire-and-forget: the reconciler never waits on it and never depends on
// it for correctness.
type Presenter interface {
	Trigger(name string, payload any)
}

// Presentation trigger names.
const (
	TriggerDiceRevealed = "dice_revealed"
	TriggerWin          = "win"
)

// WinPresentation is the payload for the win trigger.
type WinPresentation struct {
	GameNumber string
	WinAmount  decimal.Decimal
	Tier       string
}

// settlementLedger is the slice of the ledger the reconciler drives.
type settlementLedger interface {
	ConfirmedStakes() map[domain.Market]decimal.Decimal
	Settle(gameNumber string, winAmount decimal.Decimal)
	FinalizeRound(gameNumber string)
	ClearSettledStakes()
}

// scheduleFunc posts an event into the session inbox after a delay.
type scheduleFunc func(d time.Duration, ev event.Event)

// ResultReconciler applies result and payout pushes for the active round
// to the ledger. Dice are captured once per round; settlement happens per
// push, deduplicated by the server's push sequence number rather than the
// game number alone, because "dice revealed" and "payout computed" may
// arrive as separate, possibly duplicated, messages.
//
// Completion is whichever comes first: maxPushCount pushes, or the
// reconcile timeout. Timers carry the round epoch so a timer armed for a
// superseded round can never act.
type ResultReconciler struct {
	ledger    settlementLedger
	presenter Presenter
	schedule  scheduleFunc

	timeout      time.Duration
	grace        time.Duration
	maxPushCount int

	gameNumber  string
	epoch       uint64
	roll        dice.Roll
	hasDice     bool
	pushCount   int
	accumulated decimal.Decimal
	wagered     decimal.Decimal
	complete    bool

	// Sequence numbers are deduplicated per push type: result and win
	// pushes use independent counters on the wire, and both default to
	// zero when the payload omits seq.
	seenResults map[int64]struct{}
	seenWins    map[int64]struct{}
}

// NewResultReconciler builds an idle reconciler. A round must be opened
// with Reset before pushes have any effect.
func NewResultReconciler(ledger settlementLedger, presenter Presenter, schedule scheduleFunc,
	timeout, grace time.Duration, maxPushCount int) *ResultReconciler {
	return &ResultReconciler{
		ledger:       ledger,
		presenter:    presenter,
		schedule:     schedule,
		timeout:      timeout,
		grace:        grace,
		maxPushCount: maxPushCount,
		accumulated:  decimal.Zero,
		wagered:      decimal.Zero,
		seenResults:  make(map[int64]struct{}),
		seenWins:     make(map[int64]struct{}),
	}
}

// Reset discards any prior round state and opens reconciliation for a new
// round, arming the force-completion timer. Advancing the epoch
// invalidates every timer armed for the previous round.
func (r *ResultReconciler) Reset(gameNumber string) {
	r.epoch++
	r.gameNumber = gameNumber
	r.roll = dice.Roll{}
	r.hasDice = false
	r.pushCount = 0
	r.accumulated = decimal.Zero
	r.wagered = decimal.Zero
	r.complete = false
	r.seenResults = make(map[int64]struct{})
	r.seenWins = make(map[int64]struct{})

	r.schedule(r.timeout, event.ReconcileTimeout{GameNumber: gameNumber, Epoch: r.epoch})
}

// GameNumber returns the round currently being reconciled.
func (r *ResultReconciler) GameNumber() string { return r.gameNumber }

// Complete reports whether the current round has finished reconciling.
func (r *ResultReconciler) Complete() bool { return r.complete }

// Dice returns the captured roll, if any.
func (r *ResultReconciler) Dice() (dice.Roll, bool) { return r.roll, r.hasDice }

// OnGameResult handles a dice-reveal push. The first push carrying dice
// captures them and settles every confirmed market against the odds
// table in one aggregate settle call. Duplicate pushes (same sequence)
// and re-reveals never settle again, but every push counts toward the
// completion threshold.
func (r *ResultReconciler) OnGameResult(ev event.GameResult) {
	if !r.accept(ev.GameNumber) {
		return
	}
	r.pushCount++

	if seen(r.seenResults, ev.Seq) {
		slog.Info("Duplicate result push ignored for settlement",
			slog.String("gameNumber", ev.GameNumber), slog.Int64("seq", ev.Seq))
		r.checkComplete()
		return
	}

	switch {
	case !ev.HasDice:
		slog.Warn("Result push without dice, counted but not settled",
			slog.String("gameNumber", ev.GameNumber), slog.Int64("seq", ev.Seq))

	case !r.hasDice:
		r.roll = ev.Dice
		r.hasDice = true
		r.settleFromDice()
		r.trigger(TriggerDiceRevealed, r.roll)

	default:
		// Dice are immutable once captured. A later push re-carrying
		// them adds nothing; settling again would double-credit.
		slog.Info("Dice already captured, re-reveal ignored",
			slog.String("gameNumber", ev.GameNumber), slog.Int64("seq", ev.Seq))
	}

	r.checkComplete()
}

// OnWinData handles an incremental payout push. Each unseen push settles
// its declared amount; the same sequence never settles twice.
func (r *ResultReconciler) OnWinData(ev event.WinData) {
	if !r.accept(ev.GameNumber) {
		return
	}
	r.pushCount++

	if seen(r.seenWins, ev.Seq) {
		slog.Info("Duplicate win push ignored for settlement",
			slog.String("gameNumber", ev.GameNumber), slog.Int64("seq", ev.Seq))
	} else {
		r.ledger.Settle(r.gameNumber, ev.WinAmount)
		r.accumulated = r.accumulated.Add(ev.WinAmount)
	}

	r.checkComplete()
}

// OnTimeout force-completes a round still waiting for pushes so the
// ledger never hangs in a pending state. A timeout from a superseded
// round (stale epoch) is a no-op.
func (r *ResultReconciler) OnTimeout(ev event.ReconcileTimeout) {
	if ev.Epoch != r.epoch || r.complete {
		return
	}
	slog.Warn("Reconciliation timed out, forcing completion",
		slog.String("gameNumber", r.gameNumber),
		slog.Int("pushes", r.pushCount),
		slog.String("accumulatedWin", r.accumulated.String()))
	r.finish()
}

// OnDisplayGrace clears the settled stakes from display state after the
// post-result grace period. The transaction log is untouched.
func (r *ResultReconciler) OnDisplayGrace(ev event.DisplayGrace) {
	if ev.Epoch != r.epoch {
		return
	}
	r.ledger.ClearSettledStakes()
}

func (r *ResultReconciler) accept(gameNumber string) bool {
	if r.gameNumber == "" || gameNumber != r.gameNumber {
		slog.Info("Discarding push for stale round",
			slog.String("gameNumber", gameNumber), slog.String("current", r.gameNumber))
		return false
	}
	if r.complete {
		slog.Debug("Push after completion ignored", slog.String("gameNumber", gameNumber))
		return false
	}
	return true
}

func seen(set map[int64]struct{}, seq int64) bool {
	if _, ok := set[seq]; ok {
		return true
	}
	set[seq] = struct{}{}
	return false
}

// settleFromDice evaluates every confirmed market against the captured
// roll and settles the aggregate in one call.
func (r *ResultReconciler) settleFromDice() {
	stakes := r.ledger.ConfirmedStakes()
	total := decimal.Zero
	for m, stake := range stakes {
		total = total.Add(domain.WinAmount(m, stake, r.roll))
		r.wagered = r.wagered.Add(stake)
	}
	r.ledger.Settle(r.gameNumber, total)
	r.accumulated = r.accumulated.Add(total)
}

func (r *ResultReconciler) checkComplete() {
	if !r.complete && r.pushCount >= r.maxPushCount {
		r.finish()
	}
}

func (r *ResultReconciler) finish() {
	r.complete = true
	r.ledger.FinalizeRound(r.gameNumber)

	if r.accumulated.IsPositive() {
		r.trigger(TriggerWin, WinPresentation{
			GameNumber: r.gameNumber,
			WinAmount:  r.accumulated,
			Tier:       winTier(r.accumulated, r.wagered),
		})
	}

	r.schedule(r.grace, event.DisplayGrace{GameNumber: r.gameNumber, Epoch: r.epoch})
}

func (r *ResultReconciler) trigger(name string, payload any) {
	if r.presenter != nil {
		r.presenter.Trigger(name, payload)
	}
}

// winTier buckets a payout for presentation by its multiple of the
// wagered total.
func winTier(win, wagered decimal.Decimal) string {
	if !wagered.IsPositive() {
		return "win"
	}
	ratio := win.Div(wagered)
	switch {
	case ratio.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return "mega_win"
	case ratio.GreaterThanOrEqual(decimal.NewFromInt(10)):
		return "big_win"
	default:
		return "win"
	}
}
