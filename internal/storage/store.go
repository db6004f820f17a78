package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sicbo_go/internal/domain"

	_ "github.com/glebarez/go-sqlite"
	"github.com/shopspring/decimal"
)

// Store persists the ledger's transaction journal and small session
// metadata in SQLite, for post-session audit. WAL mode keeps appends
// cheap while the session loop is running.
type Store struct {
	db   *sql.DB
	path string
}

var _ domain.Journal = (*Store)(nil)

// Open creates (or reopens) the store under dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dataDir, "sicbo.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The journal is written by a single process.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("Transaction store ready", slog.String("path", path))
	return s, nil
}

func (s *Store) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA synchronous=NORMAL`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			kind        TEXT NOT NULL,
			market      TEXT NOT NULL DEFAULT '',
			game_number TEXT NOT NULL DEFAULT '',
			amount      TEXT NOT NULL,
			created_at  TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_game ON transactions(game_number)`,
		`CREATE TABLE IF NOT EXISTS metadata (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Append implements domain.Journal. Amounts are stored as text so no
// precision is lost round-tripping decimals.
func (s *Store) Append(tx domain.Transaction) error {
	_, err := s.db.Exec(
		`INSERT INTO transactions (kind, market, game_number, amount, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(tx.Kind), string(tx.Market), tx.GameNumber, tx.Amount.String(), tx.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

// Transactions returns the most recent entries, oldest first, up to limit.
func (s *Store) Transactions(limit int) ([]domain.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT kind, market, game_number, amount, created_at FROM transactions
		 ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			kind, market, gameNumber, amount string
			createdAt                        time.Time
		)
		if err := rows.Scan(&kind, &market, &gameNumber, &amount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
		}
		out = append(out, domain.Transaction{
			Kind:       domain.TxKind(kind),
			Market:     domain.Market(market),
			GameNumber: gameNumber,
			Amount:     dec,
			Timestamp:  createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Flip DESC page back to chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

// CountByKind returns how many journal entries exist per transaction kind.
func (s *Store) CountByKind() (map[domain.TxKind]int, error) {
	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM transactions GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.TxKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[domain.TxKind(kind)] = n
	}
	return out, rows.Err()
}

// SetMeta upserts one metadata value.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// GetMeta reads one metadata value; the bool reports presence.
func (s *Store) GetMeta(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get metadata %q: %w", key, err)
	}
	return value, true, nil
}

// SnapshotBalance records the latest known balance for audit.
func (s *Store) SnapshotBalance(balance decimal.Decimal) error {
	return s.SetMeta("balance", balance.String())
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
