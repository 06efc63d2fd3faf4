package event

// Control commands sent by the inspection service.
const (
	CommandStartForwarding = "startForwarding"
	CommandScreenshot      = "screenshot"
	CommandLogForwarding   = "logForwarding"
	CommandFakeEvent       = "fakeEvent"
	CommandConfigUpdate    = "configUpdate"

	// CommandWildcard matches every control command of a vendor.
	CommandWildcard = "wildcard"
)

const (
	PayloadKeyType   = "type"
	PayloadKeyDetail = "detail"
)

// NewControl builds a control command event, the shape the service sends.
func NewControl(command string, detail map[string]any) Event {
	payload := map[string]any{PayloadKeyType: command}
	if detail != nil {
		payload[PayloadKeyDetail] = detail
	}
	return NewMobile(TypeControl, payload)
}

// IsControl reports whether e is a control command.
func (e Event) IsControl() bool {
	return e.Type == TypeControl
}

// CommandType returns the command name of a control event.
func (e Event) CommandType() (string, bool) {
	if !e.IsControl() {
		return "", false
	}
	v, ok := e.Payload[PayloadKeyType].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// CommandDetail returns the command's detail object, or nil.
func (e Event) CommandDetail() map[string]any {
	if !e.IsControl() {
		return nil
	}
	detail, _ := e.Payload[PayloadKeyDetail].(map[string]any)
	return detail
}
