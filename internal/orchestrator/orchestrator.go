// Package orchestrator owns the zero-or-one live session and the intake
// buffer that holds host events until a connect or shutdown decision.
//
// Ownership boundary:
// - session creation and teardown
// - the pre-session intake buffer
// - presentation delegate entry points (pin connect, cancel, disconnect)
//
// All state is mutated on one workqueue.Queue shared with the session, so
// no locks are taken here.
package orchestrator

import (
	"errors"

	"github.com/danmuck/assurance/internal/clientlog"
	"github.com/danmuck/assurance/internal/event"
	logs "github.com/danmuck/assurance/internal/logging"
	"github.com/danmuck/assurance/internal/observability"
	"github.com/danmuck/assurance/internal/plugins"
	"github.com/danmuck/assurance/internal/session"
	"github.com/danmuck/assurance/internal/transport"
	"github.com/danmuck/assurance/internal/workqueue"
)

var (
	ErrMissingTransport = errors.New("orchestrator: transport factory is required")
	ErrMissingState     = errors.New("orchestrator: state manager is required")
)

type Options struct {
	Session session.Config
	// Executor is created and owned by the orchestrator when nil.
	Executor     *workqueue.Queue
	Transport    transport.Factory
	Presentation session.Presentation
	State        session.StateManager
	// Plugins builds the plugin set for each new session.
	Plugins func() []plugins.Plugin
}

type Orchestrator struct {
	opts     Options
	exec     *workqueue.Queue
	ownsExec bool

	// Executor-only fields.
	session           *session.Session
	intake            []event.Event
	intakeOpen        bool
	hasEverTerminated bool
}

// Status summarizes the orchestrator for the admin surface.
type Status struct {
	Active            bool            `json:"active"`
	CanProcessEvents  bool            `json:"canProcessEvents"`
	HasEverTerminated bool            `json:"hasEverTerminated"`
	Intake            int             `json:"intake"`
	Session           *session.Status `json:"session,omitempty"`
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Transport == nil {
		return nil, ErrMissingTransport
	}
	if opts.State == nil {
		return nil, ErrMissingState
	}
	if opts.Presentation == nil {
		opts.Presentation = session.NopPresentation{}
	}
	o := &Orchestrator{
		opts:       opts,
		exec:       opts.Executor,
		intakeOpen: true,
	}
	if o.exec == nil {
		o.exec = workqueue.New("assurance.session")
		o.ownsExec = true
	}
	return o, nil
}

// Executor exposes the serialization context for collaborators that must
// share it.
func (o *Orchestrator) Executor() *workqueue.Queue {
	return o.exec
}

// Close tears down any session and stops an owned executor.
func (o *Orchestrator) Close() {
	_ = o.exec.Sync(func() {
		if o.session != nil {
			o.session.Disconnect()
			o.session = nil
		}
	})
	if o.ownsExec {
		o.exec.Close()
	}
}

// CreateSession starts a session for details unless one is already alive.
// The intake buffer is handed to the new session and then dropped for good.
func (o *Orchestrator) CreateSession(details session.Details) {
	o.submit("CreateSession", func() {
		if o.session != nil {
			logs.Warnf("orchestrator.CreateSession ignored: session %s already active", o.session.Details().SessionID)
			return
		}
		o.opts.State.ShareState(details.SessionID)
		var pluginSet []plugins.Plugin
		if o.opts.Plugins != nil {
			pluginSet = o.opts.Plugins()
		}
		s, err := session.New(session.Options{
			Config:        o.opts.Session,
			Details:       details,
			Executor:      o.exec,
			Transport:     o.opts.Transport,
			Presentation:  o.opts.Presentation,
			State:         o.opts.State,
			Plugins:       pluginSet,
			InitialEvents: o.intake,
			OnTerminated:  o.onSessionTerminated,
		})
		if err != nil {
			logs.Errorf("orchestrator.CreateSession err=%v", err)
			return
		}
		logs.Infof("orchestrator.CreateSession session=%s env=%s intake=%d",
			details.SessionID, details.Environment, len(o.intake))
		o.session = s
		o.intake = nil
		o.intakeOpen = false
		s.StartSession()
	})
}

// QueueEvent forwards e to the live session, buffers it before the first
// session, and drops it otherwise.
func (o *Orchestrator) QueueEvent(e event.Event) {
	o.submit("QueueEvent", func() {
		if o.session != nil {
			o.session.SendEvent(e)
			return
		}
		if o.intakeOpen {
			o.intake = append(o.intake, e)
			observability.RecordQueued(observability.DirectionIntake)
			return
		}
		observability.RecordDropped(observability.DirectionIntake, observability.DropNoSession, 1)
		logs.Tracef("orchestrator.QueueEvent dropped event=%s", e.ID)
	})
}

// CanProcessSDKEvents reports whether host events still have somewhere to go.
func (o *Orchestrator) CanProcessSDKEvents() bool {
	var ok bool
	if err := o.exec.Sync(func() { ok = o.session != nil || o.intakeOpen }); err != nil {
		return false
	}
	return ok
}

// TerminateSession tears down the session and closes the intake buffer
// permanently.
func (o *Orchestrator) TerminateSession() {
	o.submit("TerminateSession", o.terminate)
}

func (o *Orchestrator) terminate() {
	o.hasEverTerminated = true
	if n := len(o.intake); n > 0 {
		observability.RecordDropped(observability.DirectionIntake, observability.DropCleared, n)
	}
	o.intake = nil
	o.intakeOpen = false
	o.opts.State.ClearState()
	if s := o.session; s != nil {
		o.session = nil
		s.Disconnect()
	}
	logs.Infof("orchestrator.terminate done")
}

// PinScreenConnectClicked authenticates the pending session with pin and
// the configured org, then connects.
func (o *Orchestrator) PinScreenConnectClicked(pin string) {
	o.submit("PinScreenConnectClicked", func() {
		s := o.session
		if s == nil {
			logs.Errorf("orchestrator.PinScreenConnectClicked without active session")
			o.terminate()
			return
		}
		if pin == "" {
			s.ShowConnectionError(session.ErrNoPincode)
			o.terminate()
			return
		}
		orgID, ok := o.opts.State.OrgID()
		if !ok || orgID == "" {
			s.ShowConnectionError(session.ErrNoOrgID)
			o.terminate()
			return
		}
		logs.Debugf("orchestrator.PinScreenConnectClicked session=%s", s.Details().SessionID)
		s.Authenticate(pin, orgID)
		s.StartSession()
	})
}

func (o *Orchestrator) PinScreenCancelClicked() {
	logs.Debugf("orchestrator.PinScreenCancelClicked")
	o.TerminateSession()
}

func (o *Orchestrator) DisconnectClicked() {
	logs.Debugf("orchestrator.DisconnectClicked")
	o.TerminateSession()
}

// AddClientLog surfaces text on the live session's status UI.
func (o *Orchestrator) AddClientLog(text string, visibility clientlog.Visibility) {
	o.submit("AddClientLog", func() {
		if o.session == nil {
			logs.Debugf("orchestrator.AddClientLog no session text=%q", text)
			return
		}
		o.session.AddClientLog(text, visibility)
	})
}

// ClearQueuedEvents drops the intake buffer and any session queues.
func (o *Orchestrator) ClearQueuedEvents() {
	o.submit("ClearQueuedEvents", func() {
		if n := len(o.intake); n > 0 {
			observability.RecordDropped(observability.DirectionIntake, observability.DropCleared, n)
		}
		o.intake = nil
		if o.session != nil {
			o.session.ClearQueuedEvents()
		}
	})
}

func (o *Orchestrator) Snapshot() Status {
	var st Status
	_ = o.exec.Sync(func() {
		st = Status{
			Active:            o.session != nil,
			CanProcessEvents:  o.session != nil || o.intakeOpen,
			HasEverTerminated: o.hasEverTerminated,
			Intake:            len(o.intake),
		}
		if o.session != nil {
			ss := o.session.Snapshot()
			st.Session = &ss
		}
	})
	return st
}

func (o *Orchestrator) onSessionTerminated(s *session.Session) {
	if o.session == s {
		logs.Infof("orchestrator.onSessionTerminated session=%s", s.Details().SessionID)
		o.session = nil
	}
}

func (o *Orchestrator) submit(op string, fn func()) {
	if err := o.exec.Async(fn); err != nil {
		logs.Warnf("orchestrator.%s err=%v", op, err)
	}
}
