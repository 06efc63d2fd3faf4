package session

// ConnectionError is a user-facing connection failure. Retryable errors keep
// the session alive; the rest end it.
type ConnectionError struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Retryable   bool   `json:"retryable"`
}

func (e ConnectionError) Error() string {
	return e.Name + ": " + e.Description
}

var (
	ErrGeneric = ConnectionError{
		Name:        "Connection Error",
		Description: "The connection may be failing because of a network issue or an incorrect PIN. Check connectivity and the PIN, then try again.",
		Retryable:   true,
	}
	ErrNoOrgID = ConnectionError{
		Name:        "Invalid Configuration",
		Description: "No organization id is configured. Configure the organization and connect again.",
	}
	ErrNoPincode = ConnectionError{
		Name:        "Missing PIN",
		Description: "A PIN is required to connect.",
	}
	ErrOrgIDMismatch = ConnectionError{
		Name:        "Unauthorized Access",
		Description: "The session belongs to a different organization than the one configured on this client.",
	}
	ErrConnectionLimit = ConnectionError{
		Name:        "Connection Limit Reached",
		Description: "The session has reached its limit of connected clients.",
	}
	ErrEventLimit = ConnectionError{
		Name:        "Event Limit Reached",
		Description: "This client exceeded the number of events it may send per minute.",
	}
	ErrClientError = ConnectionError{
		Name:        "Client Disconnected",
		Description: "The service closed the connection because the client broke the socket protocol.",
	}
	ErrUserCancelled = ConnectionError{
		Name:        "Connection Cancelled",
		Description: "The connection attempt was cancelled.",
	}
	ErrInvalidURL = ConnectionError{
		Name:        "Invalid Connection URL",
		Description: "The socket URL could not be built or was rejected by the transport.",
	}
)
