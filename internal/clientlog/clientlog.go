// Package clientlog holds the operator-facing diagnostic side channel.
package clientlog

import "strings"

type Visibility int

const (
	Low Visibility = iota
	Normal
	High
)

func (v Visibility) String() string {
	switch v {
	case Low:
		return "low"
	case High:
		return "high"
	default:
		return "normal"
	}
}

// ParseVisibility maps a name onto a Visibility; unknown names are Normal.
func ParseVisibility(raw string) Visibility {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return Low
	case "high", "critical":
		return High
	default:
		return Normal
	}
}

// Message is one line shown to whoever is watching the session.
type Message struct {
	Visibility Visibility `json:"visibility"`
	Text       string     `json:"text"`
}

func (v Visibility) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Visibility) UnmarshalText(b []byte) error {
	*v = ParseVisibility(string(b))
	return nil
}
