package session

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/danmuck/assurance/internal/clientlog"
	"github.com/danmuck/assurance/internal/event"
	logs "github.com/danmuck/assurance/internal/logging"
	"github.com/danmuck/assurance/internal/observability"
	"github.com/danmuck/assurance/internal/plugins"
	"github.com/danmuck/assurance/internal/transport"
	"github.com/danmuck/assurance/internal/workqueue"
)

var (
	ErrMissingExecutor  = errors.New("session: executor is required")
	ErrMissingTransport = errors.New("session: transport factory is required")
	ErrMissingState     = errors.New("session: state manager is required")
)

var allStates = []string{
	transport.StateIdle.String(),
	transport.StateConnecting.String(),
	transport.StateOpen.String(),
	transport.StateClosing.String(),
	transport.StateClosed.String(),
}

type Options struct {
	Config       Config
	Details      Details
	Executor     *workqueue.Queue
	Transport    transport.Factory
	Presentation Presentation
	State        StateManager
	Plugins      []plugins.Plugin
	// InitialEvents are queued for delivery before anything else.
	InitialEvents []event.Event
	// OnTerminated runs on the executor once the session has cleared itself.
	OnTerminated func(*Session)
}

// Session drives one transport through connect, reconnect and teardown.
type Session struct {
	cfg          Config
	exec         *workqueue.Queue
	transport    transport.Transport
	presentation Presentation
	state        StateManager
	hub          *plugins.Hub
	chunker      *event.Chunker
	onTerminated func(*Session)

	outbound     *event.Queue
	inbound      *event.Queue
	outboundWork atomic.Int64
	inboundWork  atomic.Int64
	terminated   atomic.Bool

	// Executor-only fields.
	details          Details
	connState        transport.State
	canForward       bool
	reconnecting     bool
	reconnectAttempt int
	reconnectGen     uint64
	reconnectTimer   *time.Timer
	authGen          uint64
}

// Status is a point-in-time view of a session.
type Status struct {
	SessionID    string `json:"sessionId"`
	Environment  string `json:"environment"`
	State        string `json:"state"`
	Endpoint     string `json:"endpoint,omitempty"`
	Forwarding   bool   `json:"forwarding"`
	Reconnecting bool   `json:"reconnecting"`
	Outbound     int    `json:"outbound"`
	Inbound      int    `json:"inbound"`
}

// New builds a session, registers plugins and queues InitialEvents. It must
// run on opts.Executor.
func New(opts Options) (*Session, error) {
	if opts.Executor == nil {
		return nil, ErrMissingExecutor
	}
	if opts.Transport == nil {
		return nil, ErrMissingTransport
	}
	if opts.State == nil {
		return nil, ErrMissingState
	}
	cfg := opts.Config.WithDefaults()
	presentation := opts.Presentation
	if presentation == nil {
		presentation = NopPresentation{}
	}
	s := &Session{
		cfg:          cfg,
		exec:         opts.Executor,
		presentation: presentation,
		state:        opts.State,
		hub:          plugins.NewHub(),
		chunker:      event.NewChunker(cfg.ChunkSize),
		onTerminated: opts.OnTerminated,
		outbound:     event.NewQueue(cfg.OutboundCapacity),
		inbound:      event.NewQueue(cfg.InboundCapacity),
		details:      opts.Details,
		connState:    transport.StateIdle,
	}
	s.transport = opts.Transport(listener{s: s})
	for _, p := range opts.Plugins {
		s.hub.Register(p, s)
	}
	for _, e := range opts.InitialEvents {
		s.SendEvent(e)
	}
	logs.Infof("session.New session=%s env=%s plugins=%d initial=%d",
		s.details.SessionID, s.details.Environment, len(opts.Plugins), len(opts.InitialEvents))
	return s, nil
}

func (s *Session) Details() Details {
	return s.details
}

func (s *Session) State() transport.State {
	return s.connState
}

func (s *Session) Terminated() bool {
	return s.terminated.Load()
}

// ReconnectPending reports whether a delayed reconnect is armed.
func (s *Session) ReconnectPending() bool {
	return s.reconnectTimer != nil
}

func (s *Session) Hub() *plugins.Hub {
	return s.hub
}

func (s *Session) Snapshot() Status {
	return Status{
		SessionID:    s.details.SessionID,
		Environment:  string(s.details.Environment),
		State:        s.connState.String(),
		Endpoint:     s.details.Endpoint,
		Forwarding:   s.canForward,
		Reconnecting: s.reconnecting,
		Outbound:     s.outbound.Size(),
		Inbound:      s.inbound.Size(),
	}
}

// Authenticate stores the PIN and org used to build the socket URL.
func (s *Session) Authenticate(pin, orgID string) {
	s.details.Authenticate(pin, orgID)
}

// StartSession connects, reusing a previous endpoint when there is one and
// falling back to the authorization UI otherwise.
func (s *Session) StartSession() {
	if s.terminated.Load() {
		logs.Debugf("session.Session.StartSession ignored: terminated")
		return
	}
	if s.connState == transport.StateConnecting || s.connState == transport.StateOpen {
		logs.Debugf("session.Session.StartSession ignored state=%s", s.connState)
		return
	}
	if s.details.Endpoint != "" {
		logs.Infof("session.Session.StartSession reconnect endpoint=%s", s.details.Endpoint)
		s.presentation.ShowStatus()
		s.connect(s.details.Endpoint)
		return
	}
	if s.details.Authenticated() {
		endpoint, err := s.details.SocketURL(s.cfg.Host, s.state.ClientID())
		if err != nil {
			logs.Warnf("session.Session.StartSession socket url err=%v", err)
			s.handleConnectionError(ErrInvalidURL, 0)
			return
		}
		s.presentation.ConnectionInitialized()
		s.connect(endpoint)
		return
	}
	s.beginAuthorization()
}

func (s *Session) beginAuthorization() {
	s.authGen++
	gen := s.authGen
	logs.Infof("session.Session.beginAuthorization session=%s gen=%d", s.details.SessionID, gen)
	s.presentation.ShowAuthorization(func(endpoint string, err error) {
		_ = s.exec.Async(func() { s.onAuthorized(gen, endpoint, err) })
	})
}

func (s *Session) onAuthorized(gen uint64, endpoint string, err error) {
	if s.terminated.Load() || gen != s.authGen {
		logs.Debugf("session.Session.onAuthorized stale gen=%d current=%d", gen, s.authGen)
		return
	}
	if err != nil {
		cerr := ErrGeneric
		var ce ConnectionError
		if errors.As(err, &ce) {
			cerr = ce
		}
		logs.Warnf("session.Session.onAuthorized err=%v", err)
		s.handleConnectionError(cerr, 0)
		return
	}
	if endpoint == "" {
		logs.Warnf("session.Session.onAuthorized empty endpoint")
		s.handleConnectionError(ErrInvalidURL, 0)
		return
	}
	s.presentation.ConnectionInitialized()
	s.connect(endpoint)
}

func (s *Session) connect(endpoint string) {
	s.setState(transport.StateConnecting)
	if err := s.transport.Connect(endpoint); err != nil {
		if errors.Is(err, transport.ErrAlreadyConnected) {
			logs.Debugf("session.Session.connect already in progress")
			return
		}
		logs.Warnf("session.Session.connect endpoint=%s err=%v", endpoint, err)
		s.setState(transport.StateIdle)
		s.handleConnectionError(ErrInvalidURL, 0)
	}
}

// SendEvent queues e for delivery, splitting it when the payload is too
// large for one frame. Safe from any goroutine; overflow is dropped.
func (s *Session) SendEvent(e event.Event) {
	if s.terminated.Load() {
		observability.RecordDropped(observability.DirectionOutbound, observability.DropNoSession, 1)
		return
	}
	events := []event.Event{e}
	if s.chunker.NeedsChunking(e) {
		events = s.chunker.Chunk(e)
		observability.RecordChunks(len(events))
		logs.Debugf("session.Session.SendEvent chunked event=%s fragments=%d", e.ID, len(events))
		if free := s.outbound.Capacity() - s.outbound.Size(); len(events) > free {
			logs.Warnf("session.Session.SendEvent event=%s fragments=%d free=%d: delivery will be incomplete",
				e.ID, len(events), free)
			s.AddClientLog(fmt.Sprintf("Event %s is too large to queue (%d fragments, %d free); it will arrive incomplete.",
				e.ID, len(events), free), clientlog.High)
		}
	}
	for _, ev := range events {
		if !s.outbound.Enqueue(ev) {
			observability.RecordDropped(observability.DirectionOutbound, observability.DropQueueFull, 1)
			logs.Tracef("session.Session.SendEvent dropped event=%s queue full", ev.ID)
			continue
		}
		observability.RecordQueued(observability.DirectionOutbound)
	}
	s.signal(&s.outboundWork, s.drainOutbound)
}

// AddClientLog surfaces a line to the status UI. Safe from any goroutine.
func (s *Session) AddClientLog(text string, visibility clientlog.Visibility) {
	logs.Debugf("session.Session.AddClientLog visibility=%s text=%q", visibility, text)
	msg := clientlog.Message{Visibility: visibility, Text: text}
	_ = s.exec.Async(func() {
		if s.terminated.Load() {
			return
		}
		s.presentation.AddClientLog(msg)
	})
}

// ClearQueuedEvents drops everything waiting in either direction.
func (s *Session) ClearQueuedEvents() {
	observability.RecordDropped(observability.DirectionOutbound, observability.DropCleared, s.outbound.Size())
	observability.RecordDropped(observability.DirectionInbound, observability.DropCleared, s.inbound.Size())
	s.outbound.Clear()
	s.inbound.Clear()
}

// Disconnect closes the transport and clears the session for good.
func (s *Session) Disconnect() {
	if s.terminated.Load() {
		return
	}
	logs.Infof("session.Session.Disconnect session=%s state=%s", s.details.SessionID, s.connState)
	s.setState(transport.StateClosing)
	s.transport.Disconnect()
	s.clearSessionData()
}

func (s *Session) TerminateSession() {
	s.Disconnect()
}

// ShowConnectionError surfaces cerr on whichever UI is showing without
// changing session state.
func (s *Session) ShowConnectionError(cerr ConnectionError) {
	if s.presentation.AuthorizationDisplayed() {
		s.presentation.ConnectionFailed(cerr)
		return
	}
	s.presentation.ShowError(cerr)
}

func (s *Session) signal(work *atomic.Int64, drain func()) {
	if work.Add(1) > 1 {
		return
	}
	_ = s.exec.Async(func() {
		work.Store(0)
		drain()
	})
}

func (s *Session) drainOutbound() {
	if s.terminated.Load() || s.connState != transport.StateOpen || !s.canForward {
		return
	}
	for {
		e, ok := s.outbound.Dequeue()
		if !ok {
			return
		}
		if err := s.transport.Send(e); err != nil {
			observability.RecordDropped(observability.DirectionOutbound, observability.DropSendFailed, 1)
			logs.Warnf("session.Session.drainOutbound send event=%s err=%v", e.ID, err)
			return
		}
		observability.RecordSent()
	}
}

func (s *Session) drainInbound() {
	for {
		if s.terminated.Load() {
			return
		}
		e, ok := s.inbound.Dequeue()
		if !ok {
			return
		}
		s.dispatch(e)
	}
}

func (s *Session) dispatch(e event.Event) {
	command, ok := e.CommandType()
	if !ok {
		logs.Debugf("session.Session.dispatch ignored non-command %s", e)
		return
	}
	if command == event.CommandStartForwarding {
		s.startForwarding()
		return
	}
	s.hub.NotifyEvent(e)
}

func (s *Session) startForwarding() {
	if s.connState != transport.StateOpen {
		logs.Debugf("session.Session.startForwarding ignored state=%s", s.connState)
		return
	}
	if !s.canForward {
		s.canForward = true
		s.hub.NotifyConnected()
		logs.Infof("session.Session.startForwarding session=%s queued=%d", s.details.SessionID, s.outbound.Size())
	}
	s.drainOutbound()
}

func (s *Session) setState(next transport.State) {
	if s.connState == next {
		return
	}
	logs.Debugf("session.Session.setState %s -> %s", s.connState, next)
	s.connState = next
	observability.SetSessionState(next.String(), allStates)
}

func (s *Session) handleConnectionError(cerr ConnectionError, closeCode int) {
	s.ShowConnectionError(cerr)
	if closeCode != 0 {
		s.hub.NotifyDisconnected(closeCode)
	}
	if !cerr.Retryable {
		s.clearSessionData()
	}
}

func (s *Session) clearSessionData() {
	if s.terminated.Swap(true) {
		return
	}
	s.cancelReconnect()
	s.authGen++
	s.canForward = false
	s.reconnecting = false
	s.reconnectAttempt = 0
	s.details.Endpoint = ""
	s.ClearQueuedEvents()
	s.setState(transport.StateIdle)
	s.presentation.RemoveStatus()
	s.hub.NotifyTerminated()
	s.state.ClearState()
	logs.Infof("session.Session.clearSessionData session=%s terminated", s.details.SessionID)
	if s.onTerminated != nil {
		s.onTerminated(s)
	}
}

func (s *Session) cancelReconnect() {
	s.reconnectGen++
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
}

func (s *Session) scheduleReconnect(delay time.Duration) {
	s.cancelReconnect()
	gen := s.reconnectGen
	observability.RecordReconnect(delay <= 0)
	logs.Infof("session.Session.scheduleReconnect attempt=%d delay=%s", s.reconnectAttempt, delay)
	if delay <= 0 {
		_ = s.exec.Async(func() { s.reconnect(gen) })
		return
	}
	s.reconnectTimer = time.AfterFunc(delay, func() {
		_ = s.exec.Async(func() { s.reconnect(gen) })
	})
}

func (s *Session) reconnect(gen uint64) {
	if gen != s.reconnectGen || s.terminated.Load() {
		logs.Debugf("session.Session.reconnect stale gen=%d current=%d", gen, s.reconnectGen)
		return
	}
	s.reconnectTimer = nil
	s.StartSession()
}
