package plugins

import (
	"sync"

	"github.com/danmuck/assurance/internal/event"
	logs "github.com/danmuck/assurance/internal/logging"
	"github.com/danmuck/assurance/internal/observability"
)

// Hub fans session notifications out to plugins in registration order.
type Hub struct {
	mu      sync.RWMutex
	plugins []Plugin
}

func NewHub() *Hub {
	return &Hub{}
}

// Register appends p and hands it the host if it wants one.
func (h *Hub) Register(p Plugin, host Host) {
	if p == nil {
		return
	}
	h.mu.Lock()
	h.plugins = append(h.plugins, p)
	h.mu.Unlock()
	if r, ok := p.(Registrar); ok {
		r.OnRegistered(host)
	}
	logs.Debugf("plugins.Hub.Register vendor=%s command=%s", p.Vendor(), p.CommandType())
}

// All returns a snapshot of registered plugins.
func (h *Hub) All() []Plugin {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Plugin, len(h.plugins))
	copy(out, h.plugins)
	return out
}

// NotifyEvent routes an inbound command to every plugin matching its vendor
// and command type, and returns how many received it.
func (h *Hub) NotifyEvent(e event.Event) int {
	command, ok := e.CommandType()
	if !ok {
		logs.Debugf("plugins.Hub.NotifyEvent ignored non-command %s", e)
		return 0
	}
	delivered := 0
	for _, p := range h.All() {
		if p.Vendor() != e.Vendor {
			continue
		}
		if p.CommandType() != command && p.CommandType() != event.CommandWildcard {
			continue
		}
		handler, ok := p.(EventHandler)
		if !ok {
			continue
		}
		handler.OnEventReceived(e)
		delivered++
	}
	if delivered == 0 {
		logs.Debugf("plugins.Hub.NotifyEvent no plugin for vendor=%s command=%s", e.Vendor, command)
	}
	observability.RecordPluginNotification("event", delivered)
	return delivered
}

func (h *Hub) NotifyConnected() {
	n := 0
	for _, p := range h.All() {
		if o, ok := p.(ConnectObserver); ok {
			o.OnSessionConnected()
			n++
		}
	}
	observability.RecordPluginNotification("connected", n)
}

func (h *Hub) NotifyDisconnected(closeCode int) {
	n := 0
	for _, p := range h.All() {
		if o, ok := p.(DisconnectObserver); ok {
			o.OnSessionDisconnected(closeCode)
			n++
		}
	}
	observability.RecordPluginNotification("disconnected", n)
}

func (h *Hub) NotifyTerminated() {
	n := 0
	for _, p := range h.All() {
		if o, ok := p.(TerminateObserver); ok {
			o.OnSessionTerminated()
			n++
		}
	}
	observability.RecordPluginNotification("terminated", n)
}
