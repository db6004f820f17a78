package event

import (
	"sicbo_go/pkg/dice"

	"github.com/shopspring/decimal"
)

// Type names an inbound protocol event or an internal session event.
type Type string

const (
	// Server-originated events.
	TypeTableJoined       Type = "table_joined"
	TypeNewGameStarted    Type = "new_game_started"
	TypeGameStatusChange  Type = "game_status_change"
	TypeCountdownTick     Type = "countdown_tick"
	TypeGameResult        Type = "game_result"
	TypeWinData           Type = "win_data"
	TypeBalanceUpdate     Type = "balance_update"
	TypeHeartbeatResponse Type = "heartbeat_response"
	TypeServerError       Type = "error"

	// Internal events, posted into the session inbox by timers and the
	// connection layer so every state change flows through one loop.
	TypeReconcileTimeout Type = "reconcile_timeout"
	TypeDisplayGrace     Type = "display_grace_elapsed"
	TypeConnectionState  Type = "connection_state"
)

// Event is the interface for everything flowing through the session loop.
type Event interface {
	GetType() Type
}

// TableJoined is the initial snapshot after the join handshake.
type TableJoined struct {
	GameNumber string
	Phase      string
	Countdown  int
	Balance    decimal.Decimal
	MinBet     decimal.Decimal
	MaxBet     decimal.Decimal
}

func (TableJoined) GetType() Type { return TypeTableJoined }

// NewGameStarted opens the betting window for a fresh round.
type NewGameStarted struct {
	GameNumber string
	Countdown  int
}

func (NewGameStarted) GetType() Type { return TypeNewGameStarted }

// GameStatusChange carries a server-declared phase for the current round.
type GameStatusChange struct {
	GameNumber string
	Status     string
	Countdown  int
}

func (GameStatusChange) GetType() Type { return TypeGameStatusChange }

// CountdownTick updates the remaining betting seconds; it may also carry
// a status, which is authoritative when present.
type CountdownTick struct {
	GameNumber string
	Status     string
	Countdown  int
}

func (CountdownTick) GetType() Type { return TypeCountdownTick }

// GameResult reveals the dice for a round. Seq is the server's push
// counter for the round; the reconciler dedups on it.
type GameResult struct {
	GameNumber string
	Dice       dice.Roll
	HasDice    bool
	Seq        int64
}

func (GameResult) GetType() Type { return TypeGameResult }

// WinData carries an incremental payout push for a round.
type WinData struct {
	GameNumber string
	WinAmount  decimal.Decimal
	Seq        int64
}

func (WinData) GetType() Type { return TypeWinData }

// BalanceUpdate carries a server-declared absolute balance.
type BalanceUpdate struct {
	GameNumber string
	Balance    decimal.Decimal
}

func (BalanceUpdate) GetType() Type { return TypeBalanceUpdate }

// HeartbeatResponse echoes the client timestamp of a heartbeat request.
type HeartbeatResponse struct {
	ClientTs int64
}

func (HeartbeatResponse) GetType() Type { return TypeHeartbeatResponse }

// ServerError is an application-level error pushed by the server.
type ServerError struct {
	Code    string
	Message string
}

func (ServerError) GetType() Type { return TypeServerError }

// ReconcileTimeout forces completion of a round still waiting for pushes.
// Epoch guards against a timer that was scheduled for a superseded round.
type ReconcileTimeout struct {
	GameNumber string
	Epoch      uint64
}

func (ReconcileTimeout) GetType() Type { return TypeReconcileTimeout }

// DisplayGrace clears settled stakes after the post-result grace period.
type DisplayGrace struct {
	GameNumber string
	Epoch      uint64
}

func (DisplayGrace) GetType() Type { return TypeDisplayGrace }

// ConnectionState reports a connection-manager state transition.
type ConnectionState struct {
	State     string
	LastError string
}

func (ConnectionState) GetType() Type { return TypeConnectionState }
