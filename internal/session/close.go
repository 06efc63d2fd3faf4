package session

import "github.com/danmuck/assurance/internal/transport"

type CloseKind int

const (
	CloseNormal CloseKind = iota
	CloseOrgMismatch
	CloseConnectionLimit
	CloseEventLimit
	CloseClientProtocol
	CloseAbnormal
)

func (k CloseKind) String() string {
	switch k {
	case CloseNormal:
		return "normal"
	case CloseOrgMismatch:
		return "org_mismatch"
	case CloseConnectionLimit:
		return "connection_limit"
	case CloseEventLimit:
		return "event_limit"
	case CloseClientProtocol:
		return "client_error"
	case CloseAbnormal:
		return "abnormal"
	default:
		return "unknown"
	}
}

// CloseReason is a classified transport closure.
type CloseReason struct {
	Kind   CloseKind
	Code   int
	Reason string
}

func ClassifyClose(code int, reason string) CloseReason {
	kind := CloseAbnormal
	switch code {
	case transport.CloseNormal:
		kind = CloseNormal
	case transport.CloseOrgMismatch:
		kind = CloseOrgMismatch
	case transport.CloseConnectionLimit:
		kind = CloseConnectionLimit
	case transport.CloseEventLimit:
		kind = CloseEventLimit
	case transport.CloseClientError:
		kind = CloseClientProtocol
	}
	return CloseReason{Kind: kind, Code: code, Reason: reason}
}

func (r CloseReason) Retryable() bool {
	return r.Kind == CloseAbnormal
}

// Terminal reports closures that end the session.
func (r CloseReason) Terminal() bool {
	return r.Kind != CloseNormal && r.Kind != CloseAbnormal
}

func (r CloseReason) ConnectionError() ConnectionError {
	switch r.Kind {
	case CloseOrgMismatch:
		return ErrOrgIDMismatch
	case CloseConnectionLimit:
		return ErrConnectionLimit
	case CloseEventLimit:
		return ErrEventLimit
	case CloseClientProtocol:
		return ErrClientError
	default:
		return ErrGeneric
	}
}
