package agent

import (
	"sync"

	logs "github.com/danmuck/assurance/internal/logging"
	"github.com/danmuck/assurance/internal/plugins"
	"github.com/danmuck/assurance/internal/session"
)

// Shared state keys published for the active session.
const (
	StateSessionID     = "sessionid"
	StateClientID      = "clientid"
	StateIntegrationID = "integrationid"
)

var _ session.StateManager = (*Agent)(nil)

func (a *Agent) ClientID() string {
	return a.clientID
}

func (a *Agent) OrgID() (string, bool) {
	return a.cfg.OrgID, a.cfg.OrgID != ""
}

// ShareState records the session id and publishes it with the client id.
func (a *Agent) ShareState(sessionID string) {
	a.persist(KeySessionID, sessionID)
	if a.publisher == nil {
		return
	}
	a.publisher.PublishState(map[string]any{
		StateSessionID:     sessionID,
		StateClientID:      a.clientID,
		StateIntegrationID: sessionID + "|" + a.clientID,
	})
}

// ClearState forgets the persisted session and withdraws published state.
func (a *Agent) ClearState() {
	a.forget(KeySessionID)
	a.forget(KeyEnvironment)
	a.forget(KeyConnectedURL)
	if a.publisher != nil {
		a.publisher.ClearState()
	}
	logs.Debugf("agent.ClearState done")
}

func (a *Agent) SetConnectedURL(endpoint string) {
	a.persist(KeyConnectedURL, endpoint)
}

// configOverrides tracks keys set remotely and passes them to the host.
type configOverrides struct {
	mu     sync.Mutex
	next   plugins.ConfigUpdater
	values map[string]any
}

func (c *configOverrides) UpdateConfiguration(values map[string]any) {
	c.mu.Lock()
	for k, v := range values {
		if v == nil {
			delete(c.values, k)
			continue
		}
		c.values[k] = v
	}
	c.mu.Unlock()
	if c.next != nil {
		c.next.UpdateConfiguration(values)
	}
}

func (c *configOverrides) snapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.values) == 0 {
		return nil
	}
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// echoDispatcher hands synthetic events to the host and mirrors them into
// the session so the inspector sees what was injected. It runs on the
// session executor, so it only uses non-blocking orchestrator calls.
type echoDispatcher struct {
	agent *Agent
	next  plugins.EventDispatcher
}

func (d *echoDispatcher) Dispatch(name, eventType, source string, data map[string]any) {
	if d.next != nil {
		d.next.Dispatch(name, eventType, source, data)
	}
	h := HostEvent{Name: name, Type: eventType, Source: source, Data: data}
	d.agent.orch.QueueEvent(h.ToEvent().WithMetadata("fake", true))
}
