// Package agent is the host-facing side of the companion: it decides
// whether a session starts, feeds host events in and keeps the persisted
// session state the orchestrator depends on.
//
// Ownership boundary:
// - deep link intake and the startup shutdown timer
// - host event conversion and shared-state enrichment
// - the session.StateManager backed by a store.Store
package agent

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/assurance/internal/clientlog"
	"github.com/danmuck/assurance/internal/identity"
	logs "github.com/danmuck/assurance/internal/logging"
	"github.com/danmuck/assurance/internal/orchestrator"
	"github.com/danmuck/assurance/internal/plugins"
	"github.com/danmuck/assurance/internal/session"
	"github.com/danmuck/assurance/internal/store"
	"github.com/danmuck/assurance/internal/transport"
)

// Store keys.
const (
	KeySessionID    = "sessionid"
	KeyEnvironment  = "environment"
	KeyConnectedURL = "connectedurl"
)

const DefaultShutdownTimeout = 5 * time.Second

var (
	ErrMissingStore     = errors.New("agent: store is required")
	ErrMissingTransport = errors.New("agent: transport factory is required")
	ErrNotProcessing    = errors.New("agent: event processing is shut down")
)

type Config struct {
	Session         session.Config
	OrgID           string
	ShutdownTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Session:         session.DefaultConfig(),
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func (c Config) WithDefaults() Config {
	c.Session = c.Session.WithDefaults()
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	return c
}

// SharedStateReader reads another component's published state.
type SharedStateReader interface {
	SharedState(owner string, xdm bool) (map[string]any, bool)
}

// StatePublisher publishes this agent's own shared state to the host.
type StatePublisher interface {
	PublishState(state map[string]any)
	ClearState()
}

// Binder is implemented by presentations that send user actions back.
type Binder interface {
	Bind(d session.Delegate)
}

type Options struct {
	Config       Config
	Store        store.Store
	Transport    transport.Factory
	Presentation session.Presentation
	SharedStates SharedStateReader
	Publisher    StatePublisher
	// Host collaborators for the built-in plugins; any may be nil.
	ConfigUpdater plugins.ConfigUpdater
	Screen        plugins.ScreenCapturer
	Dispatcher    plugins.EventDispatcher
}

type Agent struct {
	cfg          Config
	store        store.Store
	clientID     string
	orch         *orchestrator.Orchestrator
	sharedStates SharedStateReader
	publisher    StatePublisher
	overrides    *configOverrides
	logSink      *plugins.LogForwarder

	shouldProcess atomic.Bool

	mu            sync.Mutex
	shutdownTimer *time.Timer
	shutdownGen   uint64
	started       time.Time
}

// Status is the agent-level view exposed by the admin API.
type Status struct {
	ClientID        string              `json:"clientId"`
	Processing      bool                `json:"processing"`
	ShutdownPending bool                `json:"shutdownPending"`
	Uptime          string              `json:"uptime"`
	ConfigOverrides map[string]any      `json:"configOverrides,omitempty"`
	Orchestrator    orchestrator.Status `json:"orchestrator"`
}

func New(opts Options) (*Agent, error) {
	if opts.Store == nil {
		return nil, ErrMissingStore
	}
	if opts.Transport == nil {
		return nil, ErrMissingTransport
	}
	clientID, err := identity.NewProvider(opts.Store).GetOrCreate()
	if err != nil {
		return nil, err
	}
	a := &Agent{
		cfg:          opts.Config.WithDefaults(),
		store:        opts.Store,
		clientID:     clientID,
		sharedStates: opts.SharedStates,
		publisher:    opts.Publisher,
		overrides:    &configOverrides{next: opts.ConfigUpdater, values: map[string]any{}},
		logSink:      plugins.NewLogForwarder(),
		started:      time.Now(),
	}
	a.shouldProcess.Store(true)

	deps := plugins.Dependencies{
		Config:     a.overrides,
		Screen:     opts.Screen,
		Dispatcher: &echoDispatcher{agent: a, next: opts.Dispatcher},
		LogSink:    a.logSink,
	}
	orch, err := orchestrator.New(orchestrator.Options{
		Session:      a.cfg.Session,
		Transport:    opts.Transport,
		Presentation: opts.Presentation,
		State:        a,
		Plugins:      func() []plugins.Plugin { return plugins.Builtins(deps) },
	})
	if err != nil {
		return nil, err
	}
	a.orch = orch
	if b, ok := opts.Presentation.(Binder); ok {
		b.Bind(orch)
	}
	return a, nil
}

func (a *Agent) Orchestrator() *orchestrator.Orchestrator {
	return a.orch
}

// LogWriter returns the writer host logs should be teed into for remote
// log forwarding.
func (a *Agent) LogWriter() io.Writer {
	return a.logSink
}

// sessionLogPrefixes are the message prefixes logged on the delivery path.
// Forwarding them would re-enter the session for every line it logs.
var sessionLogPrefixes = []string{"session.", "plugins.", "transport.", "orchestrator."}

// TeeLogs forwards the process logger's info-and-above records to the log
// forwarding plugin. The returned func removes the tee.
func (a *Agent) TeeLogs() (stop func()) {
	logs.Tee(a.logSink, zerolog.InfoLevel, sessionLogPrefixes...)
	return func() { logs.Tee(nil, zerolog.InfoLevel) }
}

// Start resumes a previously connected session or arms the shutdown timer
// that gives up on waiting for a deep link.
func (a *Agent) Start() {
	if endpoint, ok := a.store.Get(KeyConnectedURL); ok && endpoint != "" {
		details, err := a.restoreDetails(endpoint)
		if err == nil {
			logs.Infof("agent.Start resuming session=%s", details.SessionID)
			a.orch.CreateSession(details)
			return
		}
		logs.Warnf("agent.Start discarding persisted session err=%v", err)
		a.ClearState()
	}
	a.startShutdownTimer()
}

// Close stops timers and tears down the orchestrator.
func (a *Agent) Close() {
	a.stopShutdownTimer()
	a.orch.Close()
}

// HandleDeepLink starts a session from a launch URL. Invalid links change
// nothing.
func (a *Agent) HandleDeepLink(raw string) error {
	details, err := session.ParseDeepLink(raw)
	if err != nil {
		logs.Warnf("agent.HandleDeepLink rejected url=%q err=%v", raw, err)
		return err
	}
	a.stopShutdownTimer()
	a.shouldProcess.Store(true)
	a.persist(KeyEnvironment, string(details.Environment))
	a.persist(KeySessionID, details.SessionID)
	logs.Infof("agent.HandleDeepLink session=%s env=%s", details.SessionID, details.Environment)
	a.orch.CreateSession(details)
	return nil
}

// HandleEvent feeds one host event in. It blocks briefly on the session
// executor and must not be called from it.
func (a *Agent) HandleEvent(h HostEvent) error {
	if h.isStartSessionRequest() {
		if raw, ok := h.Data[StartSessionURLKey].(string); ok {
			if err := a.HandleDeepLink(raw); err != nil {
				return err
			}
		} else {
			logs.Debugf("agent.HandleEvent start session request without %s", StartSessionURLKey)
		}
	}
	if !a.shouldProcess.Load() || !a.orch.CanProcessSDKEvents() {
		return ErrNotProcessing
	}
	if h.isSharedStateChange() {
		a.handleSharedState(h)
		return nil
	}
	a.orch.QueueEvent(h.ToEvent())
	return nil
}

func (a *Agent) handleSharedState(h HostEvent) {
	owner := h.sharedStateOwner()
	if owner == "" {
		logs.Debugf("agent.handleSharedState missing owner name=%q", h.Name)
		return
	}
	if a.sharedStates == nil {
		return
	}
	xdm := h.isXDMSharedState()
	state, ok := a.sharedStates.SharedState(owner, xdm)
	if !ok {
		return
	}
	key := sharedStateDataKey
	if xdm {
		key = xdmSharedStateDataKey
	}
	e := h.ToEvent().WithPayloadValue(payloadMetadata, map[string]any{key: state})
	a.orch.QueueEvent(e)
}

// AddClientLog writes to the active session's client log.
func (a *Agent) AddClientLog(text string, visibility clientlog.Visibility) {
	a.orch.AddClientLog(text, visibility)
}

func (a *Agent) Status() Status {
	a.mu.Lock()
	pending := a.shutdownTimer != nil
	a.mu.Unlock()
	return Status{
		ClientID:        a.clientID,
		Processing:      a.shouldProcess.Load(),
		ShutdownPending: pending,
		Uptime:          time.Since(a.started).Round(time.Second).String(),
		ConfigOverrides: a.overrides.snapshot(),
		Orchestrator:    a.orch.Snapshot(),
	}
}

func (a *Agent) restoreDetails(endpoint string) (session.Details, error) {
	sessionID, _ := a.store.Get(KeySessionID)
	env, _ := a.store.Get(KeyEnvironment)
	details, err := session.NewDetails(sessionID, session.ParseEnvironment(env))
	if err != nil {
		return session.Details{}, err
	}
	details.Endpoint = endpoint
	return details, nil
}

func (a *Agent) startShutdownTimer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.shutdownTimer != nil {
		a.shutdownTimer.Stop()
	}
	a.shutdownGen++
	gen := a.shutdownGen
	logs.Infof("agent.startShutdownTimer timeout=%s", a.cfg.ShutdownTimeout)
	a.shutdownTimer = time.AfterFunc(a.cfg.ShutdownTimeout, func() { a.shutdown(gen) })
}

func (a *Agent) stopShutdownTimer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdownGen++
	if a.shutdownTimer != nil {
		a.shutdownTimer.Stop()
		a.shutdownTimer = nil
	}
}

func (a *Agent) shutdown(gen uint64) {
	a.mu.Lock()
	if gen != a.shutdownGen || a.shutdownTimer == nil {
		a.mu.Unlock()
		return
	}
	a.shutdownTimer = nil
	a.mu.Unlock()

	logs.Infof("agent.shutdown no deep link received, dropping queued events")
	a.orch.ClearQueuedEvents()
	a.orch.TerminateSession()
	a.shouldProcess.Store(false)
}

func (a *Agent) persist(key, value string) {
	if err := a.store.Set(key, value); err != nil {
		logs.Warnf("agent.persist key=%s err=%v", key, err)
	}
}

func (a *Agent) forget(key string) {
	if err := a.store.Delete(key); err != nil {
		logs.Warnf("agent.forget key=%s err=%v", key, err)
	}
}
