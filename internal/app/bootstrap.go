package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"sicbo_go/internal/engine"
	"sicbo_go/internal/event"
	"sicbo_go/internal/infra"
	"sicbo_go/internal/storage"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Store     *storage.Store
	SessionID string
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{SessionID: uuid.NewString()}
}

// Initialize performs core system initialization (env, config, logger, DB)
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping Sic Bo client...")

	// 1. Load .env before config so overrides see it
	if err := godotenv.Load(); err == nil {
		slog.Info("🔑 .env loaded")
	}

	// 2. Load Config
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 3. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	infra.PrintBanner(cfg)

	// 4. Inspect the auth token so a dead token fails here, not mid-join
	if cfg.Server.AuthToken != "" {
		claims, err := infra.InspectToken(cfg.Server.AuthToken)
		if err != nil {
			return fmt.Errorf("auth token check failed: %w", err)
		}
		slog.Info("✅ Auth token valid",
			slog.String("user", claims.UserID), slog.String("table", claims.TableID))
	}

	// 5. Open the transaction store (single-writer WAL DB)
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("✅ Transaction store initialized (WAL-mode)", slog.String("dir", cfg.Storage.DataDir))

	return nil
}

// BuildSession wires the session loop with its transport, API client,
// dispatcher, and journal. The returned session is not yet connected.
func (b *Bootstrap) BuildSession(presenter engine.Presenter) *engine.Session {
	cfg := b.Config
	dispatcher := event.NewDispatcher()
	api := infra.NewAPIClient(cfg)

	// The session and the connection manager reference each other through
	// callbacks; the closure indirection breaks the construction cycle.
	var session *engine.Session

	conn := infra.NewConnManager(infra.ConnOptions{
		URL:                  cfg.Server.WSURL,
		HandshakeTimeout:     cfg.HandshakeTimeout(),
		HeartbeatInterval:    cfg.HeartbeatInterval(),
		HeartbeatTimeout:     cfg.HeartbeatTimeout(),
		MaxReconnectAttempts: cfg.Connection.MaxReconnectAttempts,
		ReconnectBaseDelay:   cfg.ReconnectBaseDelay(),
		JoinMessage:          b.joinMessage,
		OnMessage:            func(raw []byte) { session.OnFrame(raw) },
		OnStateChange:        func(s infra.ConnState, err error) { session.OnConnState(s, err) },
	})

	session = engine.NewSession(cfg, conn, api, presenter, dispatcher, slog.Default())
	session.Ledger().SetJournal(b.Store)
	return session
}

// joinMessage builds the join request sent on every (re)connect.
func (b *Bootstrap) joinMessage() ([]byte, error) {
	return json.Marshal(map[string]any{
		"action": "join",
		"data": map[string]any{
			"table_id":   b.Config.Server.TableID,
			"auth_token": b.Config.Server.AuthToken,
			"session_id": b.SessionID,
		},
	})
}

// Close releases bootstrap-owned resources.
func (b *Bootstrap) Close() {
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Warn("Store close failed", slog.Any("error", err))
		}
	}
}
