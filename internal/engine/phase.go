package engine

import (
	"log/slog"

	"sicbo_go/internal/domain"
)

// Transition is one applied phase change. The session loop performs its
// side effects (confirming stakes on rolling, resetting reconciliation
// when a new round opens).
type Transition struct {
	From       domain.Phase
	To         domain.Phase
	GameNumber string
	NewRound   bool
}

// PhaseStateMachine tracks the authoritative round phase. Transitions are
// driven exclusively by server events; a countdown reaching zero during
// betting implies rolling until the server declares a status itself.
type PhaseStateMachine struct {
	round domain.Round
}

// NewPhaseStateMachine starts in the waiting phase with no round.
func NewPhaseStateMachine() *PhaseStateMachine {
	return &PhaseStateMachine{round: domain.Round{Phase: domain.PhaseWaiting}}
}

// Round returns the current round snapshot.
func (sm *PhaseStateMachine) Round() domain.Round { return sm.round }

// Restore seeds the machine from the table_joined snapshot. An invalid
// phase in the snapshot falls back to waiting.
func (sm *PhaseStateMachine) Restore(gameNumber string, phase domain.Phase, countdown int) Transition {
	if !phase.Valid() {
		slog.Warn("Unknown phase in join snapshot, treating as waiting",
			slog.String("phase", string(phase)))
		phase = domain.PhaseWaiting
	}
	from := sm.round.Phase
	sm.round = domain.Round{GameNumber: gameNumber, Phase: phase, Countdown: countdown}
	return Transition{From: from, To: phase, GameNumber: gameNumber, NewRound: true}
}

// NewGame opens the betting window for a fresh round.
func (sm *PhaseStateMachine) NewGame(gameNumber string, countdown int) Transition {
	from := sm.round.Phase
	newRound := gameNumber != sm.round.GameNumber
	sm.round = domain.Round{GameNumber: gameNumber, Phase: domain.PhaseBetting, Countdown: countdown}
	return Transition{From: from, To: domain.PhaseBetting, GameNumber: gameNumber, NewRound: newRound}
}

// Status applies a server-declared status for a round. Stale game numbers
// and unknown statuses are ignored; the second return reports whether a
// transition was applied.
func (sm *PhaseStateMachine) Status(gameNumber, status string, countdown int) (Transition, bool) {
	if gameNumber != "" && gameNumber != sm.round.GameNumber {
		slog.Debug("Discarding status for stale round",
			slog.String("gameNumber", gameNumber), slog.String("current", sm.round.GameNumber))
		return Transition{}, false
	}

	phase := domain.Phase(status)
	if !phase.Valid() {
		slog.Warn("Unknown game status", slog.String("status", status))
		return Transition{}, false
	}

	from := sm.round.Phase
	sm.round.Phase = phase
	if countdown >= 0 {
		sm.round.Countdown = countdown
	}
	return Transition{From: from, To: phase, GameNumber: sm.round.GameNumber}, from != phase
}

// Tick applies a countdown update. A tick carrying a status is treated as
// authoritative like Status; a bare tick that exhausts the betting
// countdown implies rolling.
func (sm *PhaseStateMachine) Tick(gameNumber, status string, countdown int) (Transition, bool) {
	if gameNumber != "" && gameNumber != sm.round.GameNumber {
		return Transition{}, false
	}

	if status != "" {
		return sm.Status(gameNumber, status, countdown)
	}

	sm.round.Countdown = countdown
	if countdown <= 0 && sm.round.Phase == domain.PhaseBetting {
		from := sm.round.Phase
		sm.round.Phase = domain.PhaseRolling
		return Transition{From: from, To: domain.PhaseRolling, GameNumber: sm.round.GameNumber}, true
	}
	return Transition{}, false
}
