// Package fakes holds transport, presentation and host-state doubles shared
// by package tests above the session layer.
package fakes

import (
	"sync"

	"github.com/danmuck/assurance/internal/clientlog"
	"github.com/danmuck/assurance/internal/event"
	"github.com/danmuck/assurance/internal/session"
	"github.com/danmuck/assurance/internal/transport"
)

// Transport records connects and sends; the test drives its listener.
type Transport struct {
	mu       sync.Mutex
	listener transport.Listener
	built    int
	state    transport.State
	url      string
	connects []string
	sent     []event.Event
}

// Factory returns a transport.Factory that always hands out t.
func (t *Transport) Factory() transport.Factory {
	return func(l transport.Listener) transport.Transport {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.listener = l
		t.built++
		return t
	}
}

func (t *Transport) Connect(url string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if url == "" {
		return transport.ErrInvalidURL
	}
	t.connects = append(t.connects, url)
	t.url = url
	t.state = transport.StateConnecting
	return nil
}

func (t *Transport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = transport.StateClosed
}

func (t *Transport) Send(e event.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != transport.StateOpen {
		return transport.ErrNotConnected
	}
	t.sent = append(t.sent, e)
	return nil
}

func (t *Transport) State() transport.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

func (t *Transport) Open() {
	t.mu.Lock()
	t.state = transport.StateOpen
	l := t.listener
	t.mu.Unlock()
	l.OnOpen(t)
}

func (t *Transport) Close(code int) {
	t.mu.Lock()
	t.state = transport.StateClosed
	l := t.listener
	t.mu.Unlock()
	l.OnClose(t, code, "", code == transport.CloseNormal)
}

func (t *Transport) Deliver(e event.Event) {
	t.mu.Lock()
	l := t.listener
	t.mu.Unlock()
	l.OnMessage(t, e)
}

// Built counts how many sessions asked for a transport.
func (t *Transport) Built() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.built
}

func (t *Transport) Connects() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.connects...)
}

func (t *Transport) Sent() []event.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]event.Event(nil), t.sent...)
}

// Presentation records every call by name.
type Presentation struct {
	mu            sync.Mutex
	calls         []string
	authDisplayed bool
	callbacks     []session.AuthCallback
	logs          []clientlog.Message
}

func (p *Presentation) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *Presentation) ShowAuthorization(done session.AuthCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authDisplayed = true
	p.callbacks = append(p.callbacks, done)
	p.calls = append(p.calls, "showAuthorization")
}

func (p *Presentation) AuthorizationDisplayed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authDisplayed
}

func (p *Presentation) ConnectionInitialized() { p.record("initialized") }
func (p *Presentation) ConnectionSucceeded()   { p.record("succeeded") }
func (p *Presentation) ConnectionFinished()    { p.record("finished") }
func (p *Presentation) ShowStatus()            { p.record("showStatus") }
func (p *Presentation) StatusInactive()        { p.record("statusInactive") }
func (p *Presentation) RemoveStatus()          { p.record("removeStatus") }

func (p *Presentation) ConnectionFailed(err session.ConnectionError) {
	p.record("failed:" + err.Name)
}

func (p *Presentation) ShowError(err session.ConnectionError) {
	p.record("error:" + err.Name)
}

func (p *Presentation) AddClientLog(msg clientlog.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs = append(p.logs, msg)
}

func (p *Presentation) Has(call string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (p *Presentation) Callbacks() []session.AuthCallback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]session.AuthCallback(nil), p.callbacks...)
}

func (p *Presentation) Logs() []clientlog.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]clientlog.Message(nil), p.logs...)
}

// State is an in-memory session.StateManager.
type State struct {
	mu           sync.Mutex
	Client       string
	Org          string
	shared       []string
	cleared      int
	connectedURL string
}

func (s *State) ClientID() string {
	if s.Client == "" {
		return "client-test"
	}
	return s.Client
}

func (s *State) OrgID() (string, bool) {
	return s.Org, s.Org != ""
}

func (s *State) ShareState(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shared = append(s.shared, sessionID)
}

func (s *State) ClearState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
}

func (s *State) SetConnectedURL(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectedURL = endpoint
}

func (s *State) Shared() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.shared...)
}

func (s *State) Cleared() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}

func (s *State) ConnectedURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedURL
}
