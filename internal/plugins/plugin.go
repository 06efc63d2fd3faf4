// Package plugins owns session-lifecycle observers.
//
// A plugin is addressed by vendor and command type; every other capability
// is an optional interface. The hub delivers on the session's serialization
// context, so plugins must not block.
package plugins

import (
	"github.com/danmuck/assurance/internal/clientlog"
	"github.com/danmuck/assurance/internal/event"
)

type Plugin interface {
	Vendor() string
	CommandType() string
}

// Host is the session surface a plugin may call back into. SendEvent is
// safe from any goroutine.
type Host interface {
	SendEvent(e event.Event)
	AddClientLog(text string, visibility clientlog.Visibility)
}

type Registrar interface {
	OnRegistered(h Host)
}

type EventHandler interface {
	OnEventReceived(e event.Event)
}

type ConnectObserver interface {
	OnSessionConnected()
}

type DisconnectObserver interface {
	OnSessionDisconnected(closeCode int)
}

type TerminateObserver interface {
	OnSessionTerminated()
}
