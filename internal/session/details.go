package session

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidDeepLink  = errors.New("session: invalid deep link")
	ErrInvalidSessionID = errors.New("session: invalid session id")
	ErrNotAuthenticated = errors.New("session: details not authenticated")
)

// Deep link query keys.
const (
	DeepLinkSessionIDKey   = "adb_validation_sessionid"
	DeepLinkEnvironmentKey = "env"
)

type Environment string

const (
	EnvProd  Environment = "prod"
	EnvStage Environment = "stage"
	EnvQA    Environment = "qa"
	EnvDev   Environment = "dev"
)

// ParseEnvironment maps a raw value to a known environment. Unknown and empty
// values fall back to production.
func ParseEnvironment(raw string) Environment {
	switch Environment(strings.ToLower(strings.TrimSpace(raw))) {
	case EnvStage:
		return EnvStage
	case EnvQA:
		return EnvQA
	case EnvDev:
		return EnvDev
	default:
		return EnvProd
	}
}

// URLFormat is the host suffix used in the socket URL.
func (e Environment) URLFormat() string {
	if e == EnvProd || e == "" {
		return ""
	}
	return "-" + string(e)
}

// Details identifies one session and carries its authentication.
type Details struct {
	SessionID   string
	PIN         string
	OrgID       string
	Environment Environment
	Token       string
	// Endpoint is the socket URL of the last successful connection.
	Endpoint string
}

// NewDetails validates sessionID as a UUID.
func NewDetails(sessionID string, env Environment) (Details, error) {
	sessionID = strings.TrimSpace(sessionID)
	if _, err := uuid.Parse(sessionID); err != nil {
		return Details{}, fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}
	if env == "" {
		env = EnvProd
	}
	return Details{SessionID: sessionID, Environment: env}, nil
}

// ParseDeepLink builds Details from a launch URL carrying the session id
// and an optional environment.
func ParseDeepLink(raw string) (Details, error) {
	if strings.TrimSpace(raw) == "" {
		return Details{}, fmt.Errorf("%w: empty url", ErrInvalidDeepLink)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Details{}, fmt.Errorf("%w: %v", ErrInvalidDeepLink, err)
	}
	q := u.Query()
	sessionID := q.Get(DeepLinkSessionIDKey)
	if sessionID == "" {
		return Details{}, fmt.Errorf("%w: missing %s", ErrInvalidDeepLink, DeepLinkSessionIDKey)
	}
	return NewDetails(sessionID, ParseEnvironment(q.Get(DeepLinkEnvironmentKey)))
}

// Authenticate records the PIN and org; the PIN doubles as the socket token.
func (d *Details) Authenticate(pin, orgID string) {
	d.PIN = pin
	d.OrgID = orgID
	d.Token = pin
}

func (d Details) Authenticated() bool {
	return d.Token != "" && d.OrgID != ""
}

// SocketURL renders the connection URL. Parameter order is fixed.
func (d Details) SocketURL(host, clientID string) (string, error) {
	if !d.Authenticated() {
		return "", ErrNotAuthenticated
	}
	if host == "" {
		host = DefaultHost
	}
	return fmt.Sprintf("wss://connect%s.%s/client/v1?sessionId=%s&token=%s&orgId=%s&clientId=%s",
		d.Environment.URLFormat(),
		host,
		url.QueryEscape(d.SessionID),
		url.QueryEscape(d.Token),
		url.QueryEscape(d.OrgID),
		url.QueryEscape(clientID),
	), nil
}
