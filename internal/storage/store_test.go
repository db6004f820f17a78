package storage

import (
	"testing"
	"time"

	"sicbo_go/internal/domain"

	"github.com/shopspring/decimal"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AppendAndReadBack(t *testing.T) {
	s := openTestStore(t)

	txs := []domain.Transaction{
		{Kind: domain.TxPlace, Market: domain.MarketSmall, Amount: decimal.NewFromInt(100), Timestamp: time.Now()},
		{Kind: domain.TxConfirm, Amount: decimal.NewFromInt(100), Timestamp: time.Now()},
		{Kind: domain.TxWin, GameNumber: "G1", Amount: decimal.RequireFromString("200.50"), Timestamp: time.Now()},
	}
	for _, tx := range txs {
		if err := s.Append(tx); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := s.Transactions(10)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Kind != domain.TxPlace || got[2].Kind != domain.TxWin {
		t.Errorf("order wrong: %v, %v", got[0].Kind, got[2].Kind)
	}
	if got[0].Market != domain.MarketSmall {
		t.Errorf("market = %q", got[0].Market)
	}
	if !got[2].Amount.Equal(decimal.RequireFromString("200.50")) {
		t.Errorf("amount = %s, want 200.50 exactly", got[2].Amount)
	}
	if got[2].GameNumber != "G1" {
		t.Errorf("gameNumber = %q", got[2].GameNumber)
	}
}

func TestStore_TransactionsLimit(t *testing.T) {
	s := openTestStore(t)

	for i := 1; i <= 5; i++ {
		err := s.Append(domain.Transaction{
			Kind: domain.TxPlace, Market: domain.MarketBig,
			Amount: decimal.NewFromInt(int64(i)), Timestamp: time.Now(),
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := s.Transactions(2)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// The newest two, chronological.
	if !got[0].Amount.Equal(decimal.NewFromInt(4)) || !got[1].Amount.Equal(decimal.NewFromInt(5)) {
		t.Errorf("amounts = %s, %s, want 4, 5", got[0].Amount, got[1].Amount)
	}
}

func TestStore_CountByKind(t *testing.T) {
	s := openTestStore(t)

	kinds := []domain.TxKind{domain.TxPlace, domain.TxPlace, domain.TxWin}
	for _, k := range kinds {
		if err := s.Append(domain.Transaction{Kind: k, Amount: decimal.NewFromInt(1), Timestamp: time.Now()}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	counts, err := s.CountByKind()
	if err != nil {
		t.Fatalf("CountByKind failed: %v", err)
	}
	if counts[domain.TxPlace] != 2 || counts[domain.TxWin] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestStore_Metadata(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.GetMeta("balance"); err != nil || ok {
		t.Fatalf("empty meta: ok=%v err=%v", ok, err)
	}

	if err := s.SnapshotBalance(decimal.RequireFromString("1234.56")); err != nil {
		t.Fatalf("SnapshotBalance failed: %v", err)
	}
	if err := s.SnapshotBalance(decimal.RequireFromString("99.01")); err != nil {
		t.Fatalf("second SnapshotBalance failed: %v", err)
	}

	v, ok, err := s.GetMeta("balance")
	if err != nil || !ok {
		t.Fatalf("GetMeta: ok=%v err=%v", ok, err)
	}
	if v != "99.01" {
		t.Errorf("balance = %q, want the latest snapshot", v)
	}
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Append(domain.Transaction{Kind: domain.TxLoss, GameNumber: "G9",
		Amount: decimal.NewFromInt(75), Timestamp: time.Now()}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	s.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	got, err := s2.Transactions(10)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(got) != 1 || got[0].GameNumber != "G9" {
		t.Errorf("persisted journal lost: %+v", got)
	}
}
