package plugins

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/danmuck/assurance/internal/clientlog"
	"github.com/danmuck/assurance/internal/event"
)

const logForwardingEnable = "enable"

// MaxLogLine bounds a held partial line; longer runs without a newline are
// forwarded in pieces of this size.
const MaxLogLine = 4096

// LogForwarder turns host log lines into log events while the service has
// enabled forwarding. It is an io.Writer; partial lines are held until
// their newline arrives.
type LogForwarder struct {
	enabled atomic.Bool

	mu      sync.Mutex
	host    Host
	pending []byte
}

func NewLogForwarder() *LogForwarder {
	return &LogForwarder{}
}

func (p *LogForwarder) Vendor() string      { return event.VendorMobile }
func (p *LogForwarder) CommandType() string { return event.CommandLogForwarding }

func (p *LogForwarder) OnRegistered(h Host) {
	p.mu.Lock()
	p.host = h
	p.mu.Unlock()
}

func (p *LogForwarder) OnEventReceived(e event.Event) {
	enable, ok := e.CommandDetail()[logForwardingEnable].(bool)
	if !ok {
		return
	}
	p.enabled.Store(enable)

	p.mu.Lock()
	host := p.host
	if !enable {
		p.pending = nil
	}
	p.mu.Unlock()
	if host == nil {
		return
	}
	if enable {
		host.AddClientLog("Log forwarding enabled", clientlog.Normal)
	} else {
		host.AddClientLog("Log forwarding disabled", clientlog.Normal)
	}
}

func (p *LogForwarder) OnSessionDisconnected(int) {
	p.enabled.Store(false)
}

func (p *LogForwarder) OnSessionTerminated() {
	p.enabled.Store(false)
	p.mu.Lock()
	p.pending = nil
	p.host = nil
	p.mu.Unlock()
}

func (p *LogForwarder) Enabled() bool {
	return p.enabled.Load()
}

func (p *LogForwarder) Write(b []byte) (int, error) {
	if !p.enabled.Load() {
		return len(b), nil
	}
	p.mu.Lock()
	host := p.host
	p.pending = append(p.pending, b...)
	var lines [][]byte
	for {
		i := bytes.IndexByte(p.pending, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(p.pending[:i], "\r")
		if len(line) > 0 {
			lines = append(lines, append([]byte(nil), line...))
		}
		p.pending = p.pending[i+1:]
	}
	for len(p.pending) >= MaxLogLine {
		lines = append(lines, append([]byte(nil), p.pending[:MaxLogLine]...))
		p.pending = p.pending[MaxLogLine:]
	}
	p.mu.Unlock()

	if host == nil {
		return len(b), nil
	}
	for _, line := range lines {
		host.SendEvent(event.NewMobile(event.TypeLog, map[string]any{"logline": string(line)}))
	}
	return len(b), nil
}
