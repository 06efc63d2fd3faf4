package session

import (
	"github.com/danmuck/assurance/internal/clientlog"
	"github.com/danmuck/assurance/internal/event"
	logs "github.com/danmuck/assurance/internal/logging"
	"github.com/danmuck/assurance/internal/observability"
	"github.com/danmuck/assurance/internal/transport"
)

// listener moves transport callbacks onto the session executor.
type listener struct {
	s *Session
}

func (l listener) OnOpen(transport.Transport) {
	_ = l.s.exec.Async(l.s.handleOpen)
}

func (l listener) OnClose(_ transport.Transport, code int, reason string, wasClean bool) {
	logs.Debugf("session.listener.OnClose code=%d reason=%q clean=%t", code, reason, wasClean)
	_ = l.s.exec.Async(func() { l.s.handleClose(code, reason) })
}

// OnMessage runs on the transport goroutine; only the queue and the work
// counter are touched here.
func (l listener) OnMessage(_ transport.Transport, e event.Event) {
	s := l.s
	if s.terminated.Load() {
		return
	}
	logs.Tracef("session.listener.OnMessage %s", e)
	if !s.inbound.Enqueue(e) {
		observability.RecordDropped(observability.DirectionInbound, observability.DropQueueFull, 1)
		return
	}
	observability.RecordQueued(observability.DirectionInbound)
	s.signal(&s.inboundWork, s.drainInbound)
}

func (l listener) OnError(_ transport.Transport, err error) {
	logs.Debugf("session.listener.OnError err=%v", err)
}

func (l listener) OnStateChange(_ transport.Transport, state transport.State) {
	logs.Tracef("session.listener.OnStateChange transport=%s", state)
}

func (s *Session) handleOpen() {
	if s.terminated.Load() || s.connState != transport.StateConnecting {
		logs.Debugf("session.Session.handleOpen ignored state=%s", s.connState)
		return
	}
	s.setState(transport.StateOpen)
	if err := s.transport.Send(ClientInfoEvent(s.cfg.ClientVersion)); err != nil {
		logs.Warnf("session.Session.handleOpen client info err=%v", err)
	}
	s.details.Endpoint = s.transport.URL()
	s.state.SetConnectedURL(s.details.Endpoint)
	s.reconnecting = false
	s.reconnectAttempt = 0
	s.cancelReconnect()

	s.presentation.ConnectionSucceeded()
	s.presentation.ShowStatus()
	s.presentation.AddClientLog(clientlog.Message{
		Visibility: clientlog.Low,
		Text:       "Assurance connection established.",
	})
	logs.Infof("session.Session.handleOpen session=%s endpoint=%s", s.details.SessionID, s.details.Endpoint)
	if !s.cfg.AwaitStartForwarding {
		s.startForwarding()
	}
}

func (s *Session) handleClose(code int, reasonText string) {
	if s.terminated.Load() {
		logs.Debugf("session.Session.handleClose ignored code=%d: terminated", code)
		return
	}
	reason := ClassifyClose(code, reasonText)
	observability.RecordClose(reason.Kind.String(), code)
	s.canForward = false
	s.setState(transport.StateClosed)
	logs.Infof("session.Session.handleClose session=%s code=%d kind=%s reason=%q",
		s.details.SessionID, code, reason.Kind, reasonText)

	switch {
	case reason.Kind == CloseNormal:
		s.presentation.ConnectionFinished()
		s.presentation.RemoveStatus()
		s.hub.NotifyDisconnected(code)
		s.setState(transport.StateIdle)
	case reason.Terminal():
		s.handleConnectionError(reason.ConnectionError(), code)
	default:
		s.handleAbnormalClose(reason)
	}
}

func (s *Session) handleAbnormalClose(reason CloseReason) {
	if s.presentation.AuthorizationDisplayed() {
		s.presentation.ConnectionFailed(ErrGeneric)
	}
	if s.details.Endpoint == "" {
		logs.Debugf("session.Session.handleAbnormalClose no reconnect: never connected")
		return
	}
	if !s.reconnecting {
		s.reconnecting = true
		s.presentation.StatusInactive()
		s.presentation.AddClientLog(clientlog.Message{
			Visibility: clientlog.High,
			Text:       "Assurance disconnected, attempting to reconnect.",
		})
		s.hub.NotifyDisconnected(reason.Code)
	}
	s.reconnectAttempt++
	s.scheduleReconnect(ReconnectDelay(s.cfg.Reconnect, s.reconnectAttempt))
}
