package session

import "github.com/danmuck/assurance/internal/clientlog"

// AuthCallback receives the endpoint chosen by the authorization UI, or the
// error that ended it.
type AuthCallback func(endpoint string, err error)

// Presentation is the UI surface a session drives. Calls arrive on the
// serialization context and must not block.
type Presentation interface {
	ShowAuthorization(done AuthCallback)
	AuthorizationDisplayed() bool
	ConnectionInitialized()
	ConnectionSucceeded()
	ConnectionFinished()
	ConnectionFailed(err ConnectionError)

	ShowStatus()
	StatusInactive()
	RemoveStatus()
	AddClientLog(msg clientlog.Message)

	ShowError(err ConnectionError)
}

// StateManager is the host-side state a session reads and publishes.
type StateManager interface {
	ClientID() string
	OrgID() (string, bool)
	ShareState(sessionID string)
	ClearState()
	SetConnectedURL(endpoint string)
}

// NopPresentation ignores everything.
type NopPresentation struct{}

func (NopPresentation) ShowAuthorization(AuthCallback)   {}
func (NopPresentation) AuthorizationDisplayed() bool     { return false }
func (NopPresentation) ConnectionInitialized()           {}
func (NopPresentation) ConnectionSucceeded()             {}
func (NopPresentation) ConnectionFinished()              {}
func (NopPresentation) ConnectionFailed(ConnectionError) {}
func (NopPresentation) ShowStatus()                      {}
func (NopPresentation) StatusInactive()                  {}
func (NopPresentation) RemoveStatus()                    {}
func (NopPresentation) AddClientLog(clientlog.Message)   {}
func (NopPresentation) ShowError(ConnectionError)        {}

// Delegate is what a UI calls back into when the user acts.
type Delegate interface {
	PinScreenConnectClicked(pin string)
	PinScreenCancelClicked()
	DisconnectClicked()
}
