package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sicbo_go/internal/domain"

	"github.com/gorilla/websocket"
)

// ConnState is the connection lifecycle state.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
	StateError        ConnState = "error"
)

// ConnOptions configures a ConnManager. JoinMessage is built fresh on
// every successful (re)connect; OnMessage receives every raw inbound
// frame; OnStateChange observes lifecycle transitions.
type ConnOptions struct {
	URL                  string
	HandshakeTimeout     time.Duration
	HeartbeatInterval    time.Duration
	HeartbeatTimeout     time.Duration
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration

	JoinMessage   func() ([]byte, error)
	OnMessage     func([]byte)
	OnStateChange func(ConnState, error)
}

// ConnManager owns the websocket transport: handshake, join, heartbeat,
// and reconnection with exponential backoff. All writes are serialized;
// reads run on a single pump goroutine.
type ConnManager struct {
	opts ConnOptions

	mu       sync.Mutex
	conn     *websocket.Conn
	state    ConnState
	attempts int
	lastErr  error
	closing  bool
	running  bool
	cancel   context.CancelFunc
	stopHB   chan struct{}

	writeMu sync.Mutex
	wg      sync.WaitGroup

	// outstanding heartbeat, guarded separately so the response path
	// never contends with the connection mutex
	hbMu      sync.Mutex
	hbPending int64
	hbGen     uint64
	hbTimer   *time.Timer
}

// NewConnManager creates a manager in the disconnected state.
func NewConnManager(opts ConnOptions) *ConnManager {
	return &ConnManager{opts: opts, state: StateDisconnected}
}

// Connect opens the transport, sends the join message, and starts
// heartbeating. A failure to open within the handshake timeout returns a
// wrapped domain.ErrConnection. Calls while connecting, connected, or
// reconnecting are coalesced into no-ops.
func (m *ConnManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return fmt.Errorf("%w: session closed", domain.ErrConnection)
	}
	switch m.state {
	case StateConnecting, StateConnected, StateReconnecting:
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	m.setState(StateConnecting, nil)

	conn, err := m.dial(ctx)
	if err != nil {
		m.setState(StateDisconnected, err)
		return fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}

	if err := m.finishConnect(ctx, conn); err != nil {
		m.setState(StateDisconnected, err)
		return fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.runLoop(runCtx)
	return nil
}

// Disconnect is idempotent: it cancels all timers, closes the transport
// with a normal close code, and suppresses any reconnection the close
// would otherwise trigger. The manager is terminal afterwards.
func (m *ConnManager) Disconnect() {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return
	}
	m.closing = true
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.closeConn(true)
	m.disarmHeartbeat()
	m.wg.Wait()
	m.setState(StateDisconnected, nil)
	slog.Info("Disconnected from table")
}

// Send writes a raw frame. It fails silently when not connected: the
// drop is logged, never returned, so callers must check state before
// relying on delivery.
func (m *ConnManager) Send(data []byte) {
	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	if state != StateConnected || conn == nil {
		slog.Warn("Send dropped: not connected", slog.String("state", string(state)))
		return
	}
	if err := m.write(conn, data); err != nil {
		slog.Warn("Send failed", slog.Any("error", err))
	}
}

// State returns the current connection state.
func (m *ConnManager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the transport is currently usable.
func (m *ConnManager) Connected() bool {
	return m.State() == StateConnected
}

// LastError returns the most recent transport error, if any.
func (m *ConnManager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Attempts returns the current reconnect attempt counter.
func (m *ConnManager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func (m *ConnManager) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: m.opts.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, m.opts.URL, nil)
	return conn, err
}

// finishConnect installs the connection, sends the join message, and
// starts the heartbeat loop.
func (m *ConnManager) finishConnect(ctx context.Context, conn *websocket.Conn) error {
	stopHB := make(chan struct{})
	m.mu.Lock()
	m.conn = conn
	m.attempts = 0
	m.stopHB = stopHB
	m.mu.Unlock()

	if m.opts.JoinMessage != nil {
		join, err := m.opts.JoinMessage()
		if err != nil {
			m.closeConn(false)
			return fmt.Errorf("building join message: %w", err)
		}
		if err := m.write(conn, join); err != nil {
			m.closeConn(false)
			return fmt.Errorf("sending join message: %w", err)
		}
	}

	if m.opts.HeartbeatInterval > 0 {
		m.wg.Add(1)
		go m.heartbeatLoop(ctx, conn, stopHB)
	}

	m.setState(StateConnected, nil)
	slog.Info("Connected to table", slog.String("url", m.opts.URL))
	return nil
}

// runLoop pumps reads and drives reconnection on unexpected closes.
func (m *ConnManager) runLoop(ctx context.Context) {
	defer m.wg.Done()

	for {
		clean := m.readPump(ctx)
		m.stopHeartbeat()
		m.disarmHeartbeat()

		if ctx.Err() != nil || m.isClosing() || clean {
			if !m.isClosing() {
				m.setState(StateDisconnected, nil)
			}
			return
		}

		if !m.reconnect(ctx) {
			return
		}
	}
}

// readPump reads until the connection dies. Returns true for a
// server-initiated normal closure, which must not trigger reconnection.
func (m *ConnManager) readPump(ctx context.Context) bool {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return false
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			m.closeConn(false)
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				slog.Info("Server closed the connection normally")
				return true
			}
			if ctx.Err() == nil && !m.isClosing() {
				slog.Warn("Read error, connection lost", slog.Any("error", err))
				m.noteError(err)
			}
			return false
		}

		m.maybeAckHeartbeat(msg)
		if m.opts.OnMessage != nil {
			m.opts.OnMessage(msg)
		}
	}
}

// reconnect retries with exponential backoff: delay(n) = base * 2^(n-1)
// for n = 1..max. Returns false once attempts are exhausted (terminal
// error state) or the context is cancelled.
func (m *ConnManager) reconnect(ctx context.Context) bool {
	for attempt := 1; attempt <= m.opts.MaxReconnectAttempts; attempt++ {
		m.mu.Lock()
		m.attempts = attempt
		m.mu.Unlock()
		m.setState(StateReconnecting, nil)

		delay := ReconnectDelay(attempt, m.opts.ReconnectBaseDelay)
		slog.Info("Scheduling reconnect",
			slog.Int("attempt", attempt), slog.Duration("delay", delay))

		select {
		case <-ctx.Done():
			m.setState(StateDisconnected, nil)
			return false
		case <-time.After(delay):
		}

		conn, err := m.dial(ctx)
		if err != nil {
			m.noteError(err)
			slog.Warn("Reconnect attempt failed",
				slog.Int("attempt", attempt), slog.Any("error", err))
			continue
		}

		if err := m.finishConnect(ctx, conn); err != nil {
			m.noteError(err)
			slog.Warn("Rejoin after reconnect failed", slog.Any("error", err))
			continue
		}

		slog.Info("Reconnected", slog.Int("after_attempts", attempt))
		return true
	}

	m.mu.Lock()
	lastErr := m.lastErr
	m.mu.Unlock()
	m.setState(StateError, lastErr)
	slog.Error("Reconnect attempts exhausted, giving up",
		slog.Int("max_attempts", m.opts.MaxReconnectAttempts))
	return false
}

// heartbeatLoop sends a heartbeat request every interval and arms a
// response deadline; a missed response forcibly closes the connection,
// which the run loop treats as an unexpected close.
func (m *ConnManager) heartbeatLoop(ctx context.Context, conn *websocket.Conn, stop chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			ts := time.Now().UnixMilli()
			frame, _ := json.Marshal(map[string]any{
				"action": "heartbeat",
				"data":   map[string]any{"client_ts": ts},
			})
			if err := m.write(conn, frame); err != nil {
				slog.Warn("Heartbeat send failed", slog.Any("error", err))
				m.closeConn(false)
				return
			}
			m.armHeartbeat(ts)
		}
	}
}

// armHeartbeat records the outstanding heartbeat and schedules the
// response deadline. The generation counter guarantees a disarmed timer
// can never act once disarm returns.
func (m *ConnManager) armHeartbeat(ts int64) {
	m.hbMu.Lock()
	defer m.hbMu.Unlock()

	m.hbPending = ts
	m.hbGen++
	gen := m.hbGen

	if m.hbTimer != nil {
		m.hbTimer.Stop()
	}
	m.hbTimer = time.AfterFunc(m.opts.HeartbeatTimeout, func() {
		m.hbMu.Lock()
		expired := m.hbGen == gen && m.hbPending != 0
		m.hbMu.Unlock()
		if expired {
			slog.Warn("Heartbeat response missed, forcing close")
			m.closeConn(false)
		}
	})
}

func (m *ConnManager) disarmHeartbeat() {
	m.hbMu.Lock()
	defer m.hbMu.Unlock()
	m.hbPending = 0
	m.hbGen++
	if m.hbTimer != nil {
		m.hbTimer.Stop()
		m.hbTimer = nil
	}
}

// maybeAckHeartbeat clears the response deadline when the frame echoes
// the outstanding heartbeat timestamp.
func (m *ConnManager) maybeAckHeartbeat(raw []byte) {
	var f struct {
		Event string `json:"event"`
		Data  struct {
			ClientTs int64 `json:"client_ts"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &f); err != nil || f.Event != "heartbeat_response" {
		return
	}

	m.hbMu.Lock()
	defer m.hbMu.Unlock()
	if f.Data.ClientTs == m.hbPending {
		m.hbPending = 0
		m.hbGen++
		if m.hbTimer != nil {
			m.hbTimer.Stop()
			m.hbTimer = nil
		}
	}
}

func (m *ConnManager) stopHeartbeat() {
	m.mu.Lock()
	stop := m.stopHB
	m.stopHB = nil
	m.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

func (m *ConnManager) write(conn *websocket.Conn, data []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// closeConn tears down the socket. sendClose asks the peer for a normal
// closure first (explicit disconnect only).
func (m *ConnManager) closeConn(sendClose bool) {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn == nil {
		return
	}
	if sendClose {
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		m.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		m.writeMu.Unlock()
	}
	_ = conn.Close()
}

func (m *ConnManager) isClosing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closing
}

func (m *ConnManager) noteError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *ConnManager) setState(s ConnState, err error) {
	m.mu.Lock()
	if m.state == s && err == nil {
		m.mu.Unlock()
		return
	}
	m.state = s
	if err != nil {
		m.lastErr = err
	}
	cb := m.opts.OnStateChange
	m.mu.Unlock()

	if cb != nil {
		cb(s, err)
	}
}
