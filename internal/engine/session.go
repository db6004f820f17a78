package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sicbo_go/internal/domain"
	"sicbo_go/internal/event"
	"sicbo_go/internal/infra"

	"github.com/shopspring/decimal"
)

// Conn is the transport surface the session drives.
type Conn interface {
	Connect(ctx context.Context) error
	Disconnect()
	Send(data []byte)
}

// BetSubmitter carries confirmed stakes to the server over HTTP.
type BetSubmitter interface {
	SubmitBets(ctx context.Context, bets []infra.BetSubmission) (decimal.Decimal, error)
}

// inboxSize bounds the session inbox. The loop drains far faster than the
// server pushes, so hitting the bound means the loop is wedged; frames
// are then dropped with a warning rather than blocking the read pump.
const inboxSize = 256

// Session is the single thread of control for one table connection.
// Every inbound frame, timer expiry, and connection transition becomes an
// event on one inbox channel, and Run processes them one at a time to
// completion. That total ordering is what the phase machine and the
// reconciler rely on; the ledger keeps its own mutex only because bet
// operations arrive from caller goroutines outside the loop.
type Session struct {
	cfg        *infra.Config
	conn       Conn
	api        BetSubmitter
	ledger     *domain.Ledger
	machine    *PhaseStateMachine
	reconciler *ResultReconciler
	dispatcher *event.Dispatcher
	logger     *slog.Logger

	inbox chan event.Event

	mu        sync.RWMutex
	connected bool
	round     domain.Round
}

// NewSession wires the session from its collaborators. presenter and api
// may be nil; the session then runs without presentation triggers or
// HTTP bet submission.
func NewSession(cfg *infra.Config, conn Conn, api BetSubmitter, presenter Presenter,
	dispatcher *event.Dispatcher, logger *slog.Logger) *Session {
	s := &Session{
		cfg:        cfg,
		conn:       conn,
		api:        api,
		dispatcher: dispatcher,
		logger:     logger,
		inbox:      make(chan event.Event, inboxSize),
		machine:    NewPhaseStateMachine(),
		round:      domain.Round{Phase: domain.PhaseWaiting},
	}
	s.ledger = domain.NewLedger(s, defaultLimits(cfg))
	s.reconciler = NewResultReconciler(s.ledger, presenter, s.schedule,
		cfg.ReconcileTimeout(), cfg.DisplayGrace(), cfg.Reconcile.MaxPushCount)
	return s
}

func defaultLimits(cfg *infra.Config) domain.BetLimits {
	min, err := decimal.NewFromString(cfg.Betting.DefaultMinBet)
	if err != nil {
		min = decimal.NewFromInt(10)
	}
	max, err := decimal.NewFromString(cfg.Betting.DefaultMaxBet)
	if err != nil {
		max = decimal.NewFromInt(50000)
	}
	return domain.BetLimits{Min: min, Max: max}
}

// Ledger exposes the betting ledger for callers and persistence wiring.
func (s *Session) Ledger() *domain.Ledger { return s.ledger }

// Phase implements domain.Gate.
func (s *Session) Phase() domain.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.round.Phase
}

// Connected implements domain.Gate.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Round returns the current round snapshot.
func (s *Session) Round() domain.Round {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.round
}

// Connect opens the transport. The first dial is synchronous; later
// drops reconnect in the background.
func (s *Session) Connect(ctx context.Context) error {
	return s.conn.Connect(ctx)
}

// Disconnect tears the session down for good.
func (s *Session) Disconnect() {
	s.conn.Disconnect()
}

// OnFrame decodes one raw inbound frame and posts it to the inbox.
// Malformed frames are logged and dropped; they never reach the loop.
// Wire this as the connection manager's OnMessage callback.
func (s *Session) OnFrame(raw []byte) {
	ev, err := event.Decode(raw)
	if err != nil {
		s.logger.Warn("Dropping malformed frame", slog.Any("error", err))
		return
	}
	s.post(ev)
}

// OnConnState posts a connection transition into the inbox. Wire this as
// the connection manager's OnStateChange callback.
func (s *Session) OnConnState(state infra.ConnState, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.post(event.ConnectionState{State: string(state), LastError: msg})
}

// Run processes inbox events one at a time until ctx is cancelled. Each
// event is fully handled, side effects included, before the next one is
// taken, so state transitions are totally ordered by arrival.
func (s *Session) Run(ctx context.Context) {
	s.logger.Info("Session loop started", slog.String("table", s.cfg.Server.TableID))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session loop stopped")
			return
		case ev := <-s.inbox:
			s.handle(ev)
		}
	}
}

// PlaceBet reserves a stake against a market.
func (s *Session) PlaceBet(m domain.Market, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.ledger.PlaceBet(m, amount)
}

// CancelBet removes up to amount from a market's unconfirmed stake; a
// non-positive amount cancels the whole stake.
func (s *Session) CancelBet(m domain.Market, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.ledger.CancelBet(m, amount)
}

// Rebet stages last round's confirmed stakes again.
func (s *Session) Rebet() (decimal.Decimal, error) {
	return s.ledger.Rebet()
}

// ConfirmBets submits the staged stakes to the server, then locks them in
// and debits the ledger. The server-declared balance is authoritative
// after a successful submission. Without an API client the confirm is
// local only (the rolling transition uses that path).
func (s *Session) ConfirmBets(ctx context.Context) (decimal.Decimal, error) {
	stakes := s.ledger.CurrentStakes()
	if len(stakes) == 0 {
		return decimal.Zero, fmt.Errorf("%w: nothing to confirm", domain.ErrEmptyStakes)
	}

	if s.api != nil {
		bets := make([]infra.BetSubmission, 0, len(stakes))
		for m, amount := range stakes {
			bets = append(bets, infra.BetSubmission{Market: m, Amount: amount})
		}
		newBalance, err := s.api.SubmitBets(ctx, bets)
		if err != nil {
			return decimal.Zero, err
		}
		total, err := s.ledger.ConfirmBets()
		if err != nil {
			return decimal.Zero, err
		}
		s.ledger.SetBalance(newBalance)
		return total, nil
	}

	return s.ledger.ConfirmBets()
}

// schedule arms a single-shot timer that posts its event into the inbox.
// Cancellation is by epoch guard on the event, not by stopping the
// timer: a stale event is simply ignored when it arrives.
func (s *Session) schedule(d time.Duration, ev event.Event) {
	time.AfterFunc(d, func() { s.post(ev) })
}

func (s *Session) post(ev event.Event) {
	select {
	case s.inbox <- ev:
	default:
		s.logger.Warn("Inbox full, dropping event", slog.String("type", string(ev.GetType())))
	}
}

func (s *Session) handle(ev event.Event) {
	switch e := ev.(type) {
	case event.TableJoined:
		s.handleTableJoined(e)
	case event.NewGameStarted:
		s.handleNewGame(e)
	case event.GameStatusChange:
		tr, ok := s.machine.Status(e.GameNumber, e.Status, e.Countdown)
		s.applyTransition(tr, ok)
	case event.CountdownTick:
		tr, ok := s.machine.Tick(e.GameNumber, e.Status, e.Countdown)
		s.applyTransition(tr, ok)
	case event.GameResult:
		s.reconciler.OnGameResult(e)
	case event.WinData:
		s.reconciler.OnWinData(e)
	case event.BalanceUpdate:
		s.ledger.SetBalance(e.Balance)
	case event.HeartbeatResponse:
		// Acknowledged inside the connection manager; nothing to do.
	case event.ServerError:
		s.logger.Error("Server error push",
			slog.String("code", e.Code), slog.String("message", e.Message))
	case event.ReconcileTimeout:
		s.reconciler.OnTimeout(e)
	case event.DisplayGrace:
		s.reconciler.OnDisplayGrace(e)
	case event.ConnectionState:
		s.handleConnState(e)
	default:
		s.logger.Warn("Unhandled event", slog.String("type", string(ev.GetType())))
	}

	// Internal events never fan out to protocol subscribers.
	switch ev.GetType() {
	case event.TypeReconcileTimeout, event.TypeDisplayGrace:
	default:
		s.dispatcher.Publish(ev)
	}
}

func (s *Session) handleTableJoined(e event.TableJoined) {
	tr := s.machine.Restore(e.GameNumber, domain.Phase(e.Phase), e.Countdown)
	s.setRound(s.machine.Round())

	s.ledger.SetBalance(e.Balance)
	limits := domain.BetLimits{Min: e.MinBet, Max: e.MaxBet}
	if limits.Valid() {
		for _, m := range domain.AllMarkets() {
			_ = s.ledger.SetLimits(m, limits)
		}
	}

	s.reconciler.Reset(e.GameNumber)
	s.logger.Info("Table joined",
		slog.String("gameNumber", e.GameNumber),
		slog.String("phase", string(tr.To)),
		slog.String("balance", e.Balance.String()))
}

func (s *Session) handleNewGame(e event.NewGameStarted) {
	tr := s.machine.NewGame(e.GameNumber, e.Countdown)
	s.setRound(s.machine.Round())

	if tr.NewRound {
		// Fully reset reconciliation before any push for the new round
		// can be handled; the old round's timers die with its epoch.
		s.reconciler.Reset(e.GameNumber)
	}
	s.logger.Info("New game started",
		slog.String("gameNumber", e.GameNumber), slog.Int("countdown", e.Countdown))
}

func (s *Session) applyTransition(tr Transition, applied bool) {
	s.setRound(s.machine.Round())
	if !applied {
		return
	}

	s.logger.Info("Phase transition",
		slog.String("gameNumber", tr.GameNumber),
		slog.String("from", string(tr.From)), slog.String("to", string(tr.To)))

	if tr.To == domain.PhaseRolling && tr.From != domain.PhaseRolling {
		s.lockInStakes()
	}
}

// lockInStakes auto-confirms pending stakes when the table closes
// betting. Local-only: the server already has the stakes from the bet
// submission path, so no HTTP call is made here.
func (s *Session) lockInStakes() {
	total, err := s.ledger.ConfirmBets()
	switch {
	case err == nil:
		s.logger.Info("Stakes locked in", slog.String("total", total.String()))
	case !isEmptyStakes(err):
		s.logger.Warn("Lock-in failed", slog.Any("error", err))
	}
}

func (s *Session) handleConnState(e event.ConnectionState) {
	s.mu.Lock()
	s.connected = e.State == string(infra.StateConnected)
	s.mu.Unlock()

	attrs := []any{slog.String("state", e.State)}
	if e.LastError != "" {
		attrs = append(attrs, slog.String("lastError", e.LastError))
	}
	s.logger.Info("Connection state changed", attrs...)
}

func (s *Session) setRound(r domain.Round) {
	s.mu.Lock()
	s.round = r
	s.mu.Unlock()
}

func isEmptyStakes(err error) bool {
	return errors.Is(err, domain.ErrEmptyStakes)
}
