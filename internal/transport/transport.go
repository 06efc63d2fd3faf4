// Package transport defines the socket contract the session drives and
// ships the websocket implementation of it.
//
// Listener callbacks arrive on transport goroutines; receivers must hop onto
// their own execution context before touching state.
package transport

import (
	"errors"

	"github.com/danmuck/assurance/internal/event"
)

var (
	ErrNotConnected     = errors.New("transport: not connected")
	ErrAlreadyConnected = errors.New("transport: connect already in progress")
	ErrInvalidURL       = errors.New("transport: invalid url")
)

// Close codes with defined semantics on the inspection service.
const (
	CloseNormal          = 1000
	CloseAbnormal        = 1006
	CloseClientError     = 4400
	CloseOrgMismatch     = 4900
	CloseConnectionLimit = 4901
	CloseEventLimit      = 4902
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport is one reusable socket. Connect is asynchronous: the outcome is
// reported through the Listener.
type Transport interface {
	Connect(url string) error
	Disconnect()
	Send(e event.Event) error
	State() State
	URL() string
}

type Listener interface {
	OnOpen(t Transport)
	OnClose(t Transport, code int, reason string, wasClean bool)
	OnMessage(t Transport, e event.Event)
	OnError(t Transport, err error)
	OnStateChange(t Transport, state State)
}

// Factory builds a transport bound to its listener.
type Factory func(l Listener) Transport
