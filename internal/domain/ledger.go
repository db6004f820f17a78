package domain

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Gate exposes the session state the ledger must check before accepting
// stakes. The session engine implements it.
type Gate interface {
	Phase() Phase
	Connected() bool
}

// Journal receives every appended transaction for persistence.
// Append failures are logged, never propagated: persistence must not
// block the betting path.
type Journal interface {
	Append(tx Transaction) error
}

// defaultLogCap bounds the in-memory transaction log. Oldest entries are
// dropped beyond it; ordering of the remainder is preserved.
const defaultLogCap = 200

// Ledger holds balance, per-market stakes, and the transaction log.
// Balance is mutated only through Place/Confirm/Settle; a single mutex
// covers balance and both stake maps as one unit.
type Ledger struct {
	mu      sync.Mutex
	gate    Gate
	journal Journal

	balance       decimal.Decimal
	current       map[Market]decimal.Decimal
	lastConfirmed map[Market]decimal.Decimal

	limits        map[Market]BetLimits
	defaultLimits BetLimits

	log    []Transaction
	logCap int

	stats SessionStats

	// per-round settlement accumulation, finalized by FinalizeRound
	settlingRound string
	roundWin      decimal.Decimal
	roundWagered  decimal.Decimal
}

// NewLedger creates an empty ledger gated by the given session state.
func NewLedger(gate Gate, defaultLimits BetLimits) *Ledger {
	return &Ledger{
		gate:          gate,
		balance:       decimal.Zero,
		current:       make(map[Market]decimal.Decimal),
		lastConfirmed: make(map[Market]decimal.Decimal),
		limits:        make(map[Market]BetLimits),
		defaultLimits: defaultLimits,
		logCap:        defaultLogCap,
		stats:         NewSessionStats(),
		roundWin:      decimal.Zero,
		roundWagered:  decimal.Zero,
	}
}

// SetJournal attaches a persistence sink for appended transactions.
func (l *Ledger) SetJournal(j Journal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.journal = j
}

// SetBalance replaces the balance with a server-declared absolute value
// (table_joined snapshot or balance_update push).
func (l *Ledger) SetBalance(amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance = amount
}

// SetLimits overrides the limits for one market.
func (l *Ledger) SetLimits(m Market, limits BetLimits) error {
	if !limits.Valid() {
		return fmt.Errorf("%w: limits min=%s max=%s", ErrValidation, limits.Min, limits.Max)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limits[m] = limits
	return nil
}

func (l *Ledger) limitsFor(m Market) BetLimits {
	if lim, ok := l.limits[m]; ok {
		return lim
	}
	return l.defaultLimits
}

// PlaceBet reserves an additional stake against a market. Returns the
// new per-market total. Balance is not debited until ConfirmBets.
func (l *Ledger) PlaceBet(m Market, amount decimal.Decimal) (decimal.Decimal, error) {
	if !KnownMarket(m) {
		return decimal.Zero, fmt.Errorf("%w: unknown market %q", ErrValidation, m)
	}
	if !l.gate.Connected() || !l.gate.Phase().AcceptsBets() {
		return decimal.Zero, fmt.Errorf("%w: bets closed (phase=%s connected=%v)",
			ErrPhase, l.gate.Phase(), l.gate.Connected())
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount %s must be positive", ErrValidation, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	newTotal := l.current[m].Add(amount)
	lim := l.limitsFor(m)
	if newTotal.LessThan(lim.Min) {
		return decimal.Zero, fmt.Errorf("%w: stake %s below market minimum %s", ErrValidation, newTotal, lim.Min)
	}
	if newTotal.GreaterThan(lim.Max) {
		return decimal.Zero, fmt.Errorf("%w: stake %s above market maximum %s", ErrValidation, newTotal, lim.Max)
	}
	if amount.GreaterThan(l.availableLocked()) {
		return decimal.Zero, fmt.Errorf("%w: amount %s exceeds available %s",
			ErrInsufficientBalance, amount, l.availableLocked())
	}

	l.current[m] = newTotal
	l.appendTx(Transaction{Kind: TxPlace, Market: m, Amount: amount, Timestamp: time.Now()})
	return newTotal, nil
}

// CancelBet removes up to amount from a market's unconfirmed stake.
// A non-positive amount cancels the whole stake. A partial cancel that
// would leave the stake below the market minimum is rejected; cancel
// the whole stake instead. Balance is untouched because unconfirmed
// stakes are never debited.
func (l *Ledger) CancelBet(m Market, amount decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	staked, ok := l.current[m]
	if !ok || staked.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: no stake on %q", ErrNotFound, m)
	}

	removed := staked
	if amount.IsPositive() && amount.LessThan(staked) {
		removed = amount
	}

	remaining := staked.Sub(removed)
	if remaining.IsPositive() && remaining.LessThan(l.limitsFor(m).Min) {
		return decimal.Zero, fmt.Errorf("%w: cancel would leave stake %s below market minimum %s",
			ErrValidation, remaining, l.limitsFor(m).Min)
	}
	if remaining.IsZero() {
		delete(l.current, m)
	} else {
		l.current[m] = remaining
	}

	l.appendTx(Transaction{Kind: TxCancel, Market: m, Amount: removed, Timestamp: time.Now()})
	return remaining, nil
}

// ConfirmBets debits the balance by the current stake total and locks the
// stakes in as the round's confirmed bets. Current stakes are cleared, so
// a second call in the same round fails with ErrEmptyStakes rather than
// double-debiting.
func (l *Ledger) ConfirmBets() (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.current) == 0 {
		return decimal.Zero, fmt.Errorf("%w: nothing to confirm", ErrEmptyStakes)
	}

	total := l.sumLocked(l.current)
	if total.GreaterThan(l.balance) {
		// Should be unreachable given PlaceBet's reservation check.
		return decimal.Zero, fmt.Errorf("%w: stake total %s exceeds balance %s",
			ErrInsufficientBalance, total, l.balance)
	}

	l.balance = l.balance.Sub(total)
	l.lastConfirmed = l.current
	l.current = make(map[Market]decimal.Decimal)
	l.appendTx(Transaction{Kind: TxConfirm, Amount: total, Timestamp: time.Now()})
	return total, nil
}

// Rebet stages last round's confirmed stakes back into current stakes.
// It does not debit; the stakes go through ConfirmBets like any others.
// Gated the same way as PlaceBet so stakes cannot be staged while
// disconnected or outside the betting phase.
func (l *Ledger) Rebet() (decimal.Decimal, error) {
	if !l.gate.Connected() || !l.gate.Phase().AcceptsBets() {
		return decimal.Zero, fmt.Errorf("%w: bets closed (phase=%s connected=%v)",
			ErrPhase, l.gate.Phase(), l.gate.Connected())
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.lastConfirmed) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no previous bets to repeat", ErrEmptyStakes)
	}

	total := l.sumLocked(l.lastConfirmed)
	if total.GreaterThan(l.availableLocked()) {
		return decimal.Zero, fmt.Errorf("%w: rebet total %s exceeds available %s",
			ErrInsufficientBalance, total, l.availableLocked())
	}
	for m, stake := range l.lastConfirmed {
		if newTotal := l.current[m].Add(stake); newTotal.GreaterThan(l.limitsFor(m).Max) {
			return decimal.Zero, fmt.Errorf("%w: rebet would push %q to %s above maximum %s",
				ErrValidation, m, newTotal, l.limitsFor(m).Max)
		}
	}

	for m, stake := range l.lastConfirmed {
		l.current[m] = l.current[m].Add(stake)
		l.appendTx(Transaction{Kind: TxPlace, Market: m, Amount: stake, Timestamp: time.Now()})
	}
	return total, nil
}

// Settle credits a server-declared win amount for a round. Called only by
// the reconciler, once per deduplicated push; per-round loss/stats are
// recorded by FinalizeRound.
func (l *Ledger) Settle(gameNumber string, winAmount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.settlingRound != gameNumber {
		l.settlingRound = gameNumber
		l.roundWin = decimal.Zero
		l.roundWagered = l.sumLocked(l.lastConfirmed)
	}

	if winAmount.IsPositive() {
		l.balance = l.balance.Add(winAmount)
		l.roundWin = l.roundWin.Add(winAmount)
		l.appendTx(Transaction{Kind: TxWin, GameNumber: gameNumber, Amount: winAmount, Timestamp: time.Now()})
	}
}

// FinalizeRound closes out settlement for a round: records the loss
// transaction when nothing was won and folds the outcome into stats.
// Safe to call for a round that never saw a Settle.
func (l *Ledger) FinalizeRound(gameNumber string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wagered := l.roundWagered
	if l.settlingRound != gameNumber {
		wagered = l.sumLocked(l.lastConfirmed)
		l.roundWin = decimal.Zero
	}
	if wagered.IsZero() {
		// Nothing was at risk this round; no outcome to record.
		l.resetRoundLocked()
		return
	}

	if !l.roundWin.IsPositive() {
		l.appendTx(Transaction{Kind: TxLoss, GameNumber: gameNumber, Amount: wagered, Timestamp: time.Now()})
	}
	l.stats.record(wagered, l.roundWin)
	l.resetRoundLocked()
}

// ClearSettledStakes drops last round's confirmed stakes from display
// state after the post-settlement grace period. The log is untouched.
func (l *Ledger) ClearSettledStakes() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastConfirmed = make(map[Market]decimal.Decimal)
}

func (l *Ledger) resetRoundLocked() {
	l.settlingRound = ""
	l.roundWin = decimal.Zero
	l.roundWagered = decimal.Zero
}

// Balance returns the current balance.
func (l *Ledger) Balance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Available returns balance minus unconfirmed stake reservations.
func (l *Ledger) Available() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.availableLocked()
}

// CurrentStakes returns a copy of the unconfirmed stakes.
func (l *Ledger) CurrentStakes() map[Market]decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyStakes(l.current)
}

// ConfirmedStakes returns a copy of last round's confirmed stakes.
func (l *Ledger) ConfirmedStakes() map[Market]decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyStakes(l.lastConfirmed)
}

// Transactions returns a copy of the in-memory log, oldest first.
func (l *Ledger) Transactions() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Transaction, len(l.log))
	copy(out, l.log)
	return out
}

// Stats returns a snapshot of the session statistics.
func (l *Ledger) Stats() SessionStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// VerifyInvariant panics if the ledger state is inconsistent. Test hook.
func (l *Ledger) VerifyInvariant() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balance.IsNegative() {
		panic(fmt.Sprintf("ledger invariant violated: negative balance %s", l.balance))
	}
	if l.sumLocked(l.current).GreaterThan(l.balance) {
		panic(fmt.Sprintf("ledger invariant violated: stakes %s exceed balance %s",
			l.sumLocked(l.current), l.balance))
	}
}

func (l *Ledger) availableLocked() decimal.Decimal {
	return l.balance.Sub(l.sumLocked(l.current))
}

func (l *Ledger) sumLocked(stakes map[Market]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, s := range stakes {
		total = total.Add(s)
	}
	return total
}

func (l *Ledger) appendTx(tx Transaction) {
	l.log = append(l.log, tx)
	if len(l.log) > l.logCap {
		l.log = l.log[len(l.log)-l.logCap:]
	}
	if l.journal != nil {
		if err := l.journal.Append(tx); err != nil {
			slog.Warn("Transaction journal append failed",
				slog.String("kind", string(tx.Kind)), slog.Any("error", err))
		}
	}
}

func copyStakes(src map[Market]decimal.Decimal) map[Market]decimal.Decimal {
	out := make(map[Market]decimal.Decimal, len(src))
	for m, s := range src {
		out[m] = s
	}
	return out
}
