package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
server:
  ws_url: wss://table.example.com/ws
  table_id: t1
`

func TestLoadConfig_DefaultsApplied(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.HeartbeatInterval() != 30*time.Second {
		t.Errorf("heartbeat interval = %s, want 30s", cfg.HeartbeatInterval())
	}
	if cfg.HeartbeatTimeout() != 10*time.Second {
		t.Errorf("heartbeat timeout = %s, want 10s", cfg.HeartbeatTimeout())
	}
	if cfg.Connection.MaxReconnectAttempts != 5 {
		t.Errorf("max reconnect attempts = %d, want 5", cfg.Connection.MaxReconnectAttempts)
	}
	if cfg.ReconnectBaseDelay() != time.Second {
		t.Errorf("base delay = %s, want 1s", cfg.ReconnectBaseDelay())
	}
	if cfg.ReconcileTimeout() != 15*time.Second {
		t.Errorf("reconcile timeout = %s, want 15s", cfg.ReconcileTimeout())
	}
	if cfg.Reconcile.MaxPushCount != 5 {
		t.Errorf("max push count = %d, want 5", cfg.Reconcile.MaxPushCount)
	}
	if cfg.DisplayGrace() != 3*time.Second {
		t.Errorf("display grace = %s, want 3s", cfg.DisplayGrace())
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SICBO_WS_URL", "wss://override.example.com/ws")
	t.Setenv("SICBO_TABLE_ID", "t-env")
	t.Setenv("SICBO_AUTH_TOKEN", "tok-env")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.WSURL != "wss://override.example.com/ws" {
		t.Errorf("ws url = %q", cfg.Server.WSURL)
	}
	if cfg.Server.TableID != "t-env" || cfg.Server.AuthToken != "tok-env" {
		t.Errorf("table=%q token=%q", cfg.Server.TableID, cfg.Server.AuthToken)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad ws url", "server:\n  ws_url: http://not-ws\n  table_id: t1\n"},
		{"missing table", "server:\n  ws_url: wss://x/ws\n"},
		{"heartbeat timeout above interval", minimalConfig + `
connection:
  heartbeat_interval_sec: 5
  heartbeat_timeout_sec: 10
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
