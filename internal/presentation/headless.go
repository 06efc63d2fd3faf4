// Package presentation ships a headless session UI for daemon runs: it
// keeps the status and client-log state that an overlay would render and
// can submit a configured PIN on its own.
package presentation

import (
	"sync"

	"github.com/danmuck/assurance/internal/clientlog"
	logs "github.com/danmuck/assurance/internal/logging"
	"github.com/danmuck/assurance/internal/session"
)

const DefaultLogCapacity = 200

type Config struct {
	// PIN is submitted as soon as authorization is requested when set.
	PIN         string
	LogCapacity int
}

// View is a snapshot of what an overlay would be showing.
type View struct {
	AuthorizationDisplayed bool                     `json:"authorizationDisplayed"`
	StatusVisible          bool                     `json:"statusVisible"`
	StatusActive           bool                     `json:"statusActive"`
	Connected              bool                     `json:"connected"`
	LastError              *session.ConnectionError `json:"lastError,omitempty"`
}

type Headless struct {
	mu       sync.Mutex
	cfg      Config
	delegate session.Delegate

	authDisplayed bool
	statusVisible bool
	statusActive  bool
	connected     bool
	lastError     *session.ConnectionError
	logs          []clientlog.Message
}

var _ session.Presentation = (*Headless)(nil)

func NewHeadless(cfg Config) *Headless {
	if cfg.LogCapacity <= 0 {
		cfg.LogCapacity = DefaultLogCapacity
	}
	return &Headless{cfg: cfg}
}

// Bind sets the delegate user actions are sent to.
func (h *Headless) Bind(d session.Delegate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delegate = d
}

func (h *Headless) ShowAuthorization(session.AuthCallback) {
	h.mu.Lock()
	h.authDisplayed = true
	h.lastError = nil
	pin := h.cfg.PIN
	d := h.delegate
	h.mu.Unlock()

	logs.Infof("presentation.Headless.ShowAuthorization auto_pin=%t", pin != "")
	if pin != "" && d != nil {
		d.PinScreenConnectClicked(pin)
	}
}

func (h *Headless) AuthorizationDisplayed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.authDisplayed
}

func (h *Headless) ConnectionInitialized() {
	logs.Debugf("presentation.Headless.ConnectionInitialized")
}

func (h *Headless) ConnectionSucceeded() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.authDisplayed = false
	h.connected = true
	h.lastError = nil
}

func (h *Headless) ConnectionFinished() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.authDisplayed = false
	h.connected = false
}

func (h *Headless) ConnectionFailed(err session.ConnectionError) {
	logs.Warnf("presentation.Headless.ConnectionFailed name=%q retryable=%t", err.Name, err.Retryable)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastError = &err
	h.connected = false
	if !err.Retryable {
		h.authDisplayed = false
	}
}

func (h *Headless) ShowStatus() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusVisible = true
	h.statusActive = true
}

func (h *Headless) StatusInactive() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusActive = false
	h.connected = false
}

func (h *Headless) RemoveStatus() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusVisible = false
	h.statusActive = false
	h.connected = false
}

func (h *Headless) AddClientLog(msg clientlog.Message) {
	switch msg.Visibility {
	case clientlog.High:
		logs.Warnf("clientlog %s", msg.Text)
	case clientlog.Low:
		logs.Debugf("clientlog %s", msg.Text)
	default:
		logs.Infof("clientlog %s", msg.Text)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.logs) == h.cfg.LogCapacity {
		copy(h.logs, h.logs[1:])
		h.logs = h.logs[:len(h.logs)-1]
	}
	h.logs = append(h.logs, msg)
}

func (h *Headless) ShowError(err session.ConnectionError) {
	logs.Errorf("presentation.Headless.ShowError name=%q description=%q", err.Name, err.Description)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastError = &err
}

// ClientLogs returns buffered lines at or above floor, oldest first.
func (h *Headless) ClientLogs(floor clientlog.Visibility) []clientlog.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]clientlog.Message, 0, len(h.logs))
	for _, m := range h.logs {
		if m.Visibility >= floor {
			out = append(out, m)
		}
	}
	return out
}

func (h *Headless) View() View {
	h.mu.Lock()
	defer h.mu.Unlock()
	v := View{
		AuthorizationDisplayed: h.authDisplayed,
		StatusVisible:          h.statusVisible,
		StatusActive:           h.statusActive,
		Connected:              h.connected,
	}
	if h.lastError != nil {
		e := *h.lastError
		v.LastError = &e
	}
	return v
}

// SubmitPIN forwards a manually entered PIN.
func (h *Headless) SubmitPIN(pin string) bool {
	d := h.boundDelegate()
	if d == nil {
		return false
	}
	d.PinScreenConnectClicked(pin)
	return true
}

func (h *Headless) Cancel() bool {
	d := h.boundDelegate()
	if d == nil {
		return false
	}
	d.PinScreenCancelClicked()
	return true
}

func (h *Headless) Disconnect() bool {
	d := h.boundDelegate()
	if d == nil {
		return false
	}
	d.DisconnectClicked()
	return true
}

func (h *Headless) boundDelegate() session.Delegate {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.delegate
}
