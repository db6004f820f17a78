package domain

import "github.com/shopspring/decimal"

// SessionStats aggregates settlement outcomes for the current session.
type SessionStats struct {
	RoundsSettled int
	Wins          int
	Losses        int

	// Streak is positive for consecutive wins, negative for consecutive
	// losses, zero before the first settlement.
	Streak int

	TotalWagered decimal.Decimal
	TotalWon     decimal.Decimal
	BiggestWin   decimal.Decimal
	BiggestLoss  decimal.Decimal
}

// NewSessionStats returns zeroed stats with initialized decimals.
func NewSessionStats() SessionStats {
	return SessionStats{
		TotalWagered: decimal.Zero,
		TotalWon:     decimal.Zero,
		BiggestWin:   decimal.Zero,
		BiggestLoss:  decimal.Zero,
	}
}

// WinRate returns wins / settled rounds, or 0 before any settlement.
func (s *SessionStats) WinRate() float64 {
	if s.RoundsSettled == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.RoundsSettled)
}

// record applies one settled round: the total wagered and the total won.
func (s *SessionStats) record(wagered, won decimal.Decimal) {
	s.RoundsSettled++
	s.TotalWagered = s.TotalWagered.Add(wagered)
	s.TotalWon = s.TotalWon.Add(won)

	net := won.Sub(wagered)
	if won.IsPositive() {
		s.Wins++
		if s.Streak < 0 {
			s.Streak = 0
		}
		s.Streak++
		if net.GreaterThan(s.BiggestWin) {
			s.BiggestWin = net
		}
	} else {
		s.Losses++
		if s.Streak > 0 {
			s.Streak = 0
		}
		s.Streak--
		if net.Neg().GreaterThan(s.BiggestLoss) {
			s.BiggestLoss = net.Neg()
		}
	}
}
