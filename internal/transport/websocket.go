package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danmuck/assurance/internal/event"
	logs "github.com/danmuck/assurance/internal/logging"
)

type WebSocketConfig struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	PongTimeout      time.Duration
	CloseGrace       time.Duration
	ReadLimit        int64
}

func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
		PongTimeout:      60 * time.Second,
		CloseGrace:       time.Second,
		ReadLimit:        1 << 20,
	}
}

// WithDefaults fills zero fields from DefaultWebSocketConfig.
func (c WebSocketConfig) WithDefaults() WebSocketConfig {
	def := DefaultWebSocketConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = def.PongTimeout
	}
	if c.CloseGrace <= 0 {
		c.CloseGrace = def.CloseGrace
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = def.ReadLimit
	}
	return c
}

// WebSocket is the gorilla/websocket Transport.
type WebSocket struct {
	cfg      WebSocketConfig
	listener Listener
	dialer   *websocket.Dialer

	mu       sync.Mutex
	writeMu  sync.Mutex // serialises all conn writes (events, ping, close)
	conn     *websocket.Conn
	state    State
	url      string
	cancel   context.CancelFunc
	localEnd bool
	// gen identifies the current Connect; goroutines of older connects
	// must not touch shared state.
	gen uint64
}

func NewWebSocket(cfg WebSocketConfig, l Listener) *WebSocket {
	cfg = cfg.WithDefaults()
	return &WebSocket{
		cfg:      cfg,
		listener: l,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// WebSocketFactory adapts NewWebSocket to Factory.
func WebSocketFactory(cfg WebSocketConfig) Factory {
	return func(l Listener) Transport {
		return NewWebSocket(cfg, l)
	}
}

func (w *WebSocket) Connect(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	w.mu.Lock()
	if w.state == StateConnecting || w.state == StateOpen {
		w.mu.Unlock()
		return ErrAlreadyConnected
	}
	if w.cancel != nil {
		w.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.gen++
	gen := w.gen
	w.state = StateConnecting
	w.url = rawURL
	w.conn = nil
	w.cancel = cancel
	w.localEnd = false
	w.mu.Unlock()

	w.listener.OnStateChange(w, StateConnecting)
	go w.run(ctx, gen, rawURL)
	return nil
}

func (w *WebSocket) Disconnect() {
	w.mu.Lock()
	conn := w.conn
	cancel := w.cancel
	prev := w.state
	if prev == StateIdle || prev == StateClosed || prev == StateClosing {
		w.mu.Unlock()
		return
	}
	w.localEnd = true
	w.state = StateClosing
	w.mu.Unlock()

	w.listener.OnStateChange(w, StateClosing)
	if conn == nil {
		// Still dialing; cancelling the dial reports the close.
		if cancel != nil {
			cancel()
		}
		return
	}

	w.writeMu.Lock()
	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(CloseNormal, ""),
		time.Now().Add(w.cfg.WriteTimeout),
	)
	w.writeMu.Unlock()
	if err != nil {
		logs.Debugf("transport.WebSocket.Disconnect close frame err=%v", err)
	}
	// The peer normally echoes the close; force it if it does not.
	time.AfterFunc(w.cfg.CloseGrace, func() { _ = conn.Close() })
}

func (w *WebSocket) Send(e event.Event) error {
	w.mu.Lock()
	conn := w.conn
	state := w.state
	w.mu.Unlock()
	if conn == nil || state != StateOpen {
		return ErrNotConnected
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteTimeout))
	return conn.WriteJSON(e)
}

func (w *WebSocket) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *WebSocket) URL() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.url
}

func (w *WebSocket) run(ctx context.Context, gen uint64, rawURL string) {
	conn, _, err := w.dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		w.mu.Lock()
		if w.gen != gen {
			w.mu.Unlock()
			logs.Debugf("transport.WebSocket.run stale dial err=%v", err)
			return
		}
		local := w.localEnd
		w.state = StateClosed
		w.mu.Unlock()
		w.listener.OnStateChange(w, StateClosed)
		if local {
			w.listener.OnClose(w, CloseNormal, "client disconnect", false)
			return
		}
		w.listener.OnError(w, err)
		w.listener.OnClose(w, CloseAbnormal, err.Error(), false)
		return
	}

	w.mu.Lock()
	if w.gen != gen {
		w.mu.Unlock()
		_ = conn.Close()
		return
	}
	if w.localEnd {
		w.state = StateClosed
		w.mu.Unlock()
		_ = conn.Close()
		w.listener.OnStateChange(w, StateClosed)
		w.listener.OnClose(w, CloseNormal, "client disconnect", false)
		return
	}
	w.conn = conn
	w.state = StateOpen
	w.mu.Unlock()

	w.listener.OnStateChange(w, StateOpen)
	w.listener.OnOpen(w)

	go w.pingLoop(ctx, conn)
	w.readLoop(gen, conn)
}

func (w *WebSocket) readLoop(gen uint64, conn *websocket.Conn) {
	conn.SetReadLimit(w.cfg.ReadLimit)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(w.cfg.PongTimeout))
	})
	_ = conn.SetReadDeadline(time.Now().Add(w.cfg.PongTimeout))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			w.finish(gen, conn, err)
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(w.cfg.PongTimeout))

		e, err := event.Decode(data)
		if err != nil {
			w.listener.OnError(w, err)
			continue
		}
		w.listener.OnMessage(w, e)
	}
}

// finish reports the end of conn. A connection replaced by a newer Connect
// closes silently.
func (w *WebSocket) finish(gen uint64, conn *websocket.Conn, readErr error) {
	w.mu.Lock()
	if w.gen != gen {
		w.mu.Unlock()
		_ = conn.Close()
		logs.Debugf("transport.WebSocket.finish stale connection err=%v", readErr)
		return
	}
	local := w.localEnd
	w.conn = nil
	if w.cancel != nil {
		w.cancel()
	}
	w.state = StateClosed
	w.mu.Unlock()
	_ = conn.Close()

	code, reason, clean := closeDetails(readErr)
	if local && !clean {
		code, reason = CloseNormal, "client disconnect"
	}
	w.listener.OnStateChange(w, StateClosed)
	w.listener.OnClose(w, code, reason, clean)
}

// pingLoop sends periodic pings until the context is cancelled or the
// connection changes.
func (w *WebSocket) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(w.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			current := w.conn
			w.mu.Unlock()
			if current != conn {
				return
			}
			w.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(w.cfg.WriteTimeout))
			w.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func closeDetails(err error) (int, string, bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, ce.Code != websocket.CloseAbnormalClosure
	}
	return CloseAbnormal, err.Error(), false
}
