package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sicbo_go/internal/app"
)

// logPresenter stands in for the animation/audio layer: presentation
// triggers are logged instead of rendered.
type logPresenter struct{}

func (logPresenter) Trigger(name string, payload any) {
	slog.Info("🎉 Presentation trigger", slog.String("name", name), slog.Any("payload", payload))
}

func main() {
	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Session loop (the single thread of control)
	session := bootstrap.BuildSession(logPresenter{})
	go session.Run(ctx)
	slog.Info("✅ Session loop started")

	// 4. Connect to the table
	if err := session.Connect(ctx); err != nil {
		slog.Error("❌ Initial connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("✅ Connected", slog.String("table", bootstrap.Config.Server.TableID))

	<-ctx.Done()

	// 5. Teardown: snapshot the balance, then drop the connection
	session.Disconnect()
	if err := bootstrap.Store.SnapshotBalance(session.Ledger().Balance()); err != nil {
		slog.Warn("Balance snapshot failed", slog.Any("error", err))
	}
	stats := session.Ledger().Stats()
	slog.Info("👋 Shutdown complete",
		slog.String("balance", session.Ledger().Balance().String()),
		slog.Int("roundsSettled", stats.RoundsSettled),
		slog.Float64("winRate", stats.WinRate()))
}
