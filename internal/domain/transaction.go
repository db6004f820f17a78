package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxKind classifies ledger transactions.
type TxKind string

const (
	TxPlace   TxKind = "place"
	TxCancel  TxKind = "cancel"
	TxConfirm TxKind = "confirm"
	TxWin     TxKind = "win"
	TxLoss    TxKind = "loss"
)

// Transaction is one immutable entry in the ledger log.
type Transaction struct {
	Kind       TxKind          `json:"kind"`
	Market     Market          `json:"market,omitempty"`
	GameNumber string          `json:"game_number,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Timestamp  time.Time       `json:"timestamp"`
}
