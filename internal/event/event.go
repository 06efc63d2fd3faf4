package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingVendor = errors.New("event: vendor required")
	ErrMissingType   = errors.New("event: type required")
)

// Vendor and type identifiers understood by the inspection service.
const (
	VendorMobile = "com.adobe.griffon.mobile"

	TypeGeneric = "generic"
	TypeClient  = "client"
	TypeControl = "control"
	TypeLog     = "log"
	TypeBlob    = "blob"
)

// Event is one structured record on the session wire. Payload and Metadata
// are treated as immutable once the event is built; use WithMetadata to
// derive an augmented copy.
type Event struct {
	ID        string
	Vendor    string
	Type      string
	Payload   map[string]any
	Metadata  map[string]any
	Timestamp time.Time
}

type wireEvent struct {
	EventID   string         `json:"eventID"`
	Vendor    string         `json:"vendor"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// New builds an event with a fresh id and the current time.
func New(vendor, typ string, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Vendor:    vendor,
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewMobile builds an event under the mobile SDK vendor.
func NewMobile(typ string, payload map[string]any) Event {
	return New(VendorMobile, typ, payload)
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Vendor) == "" {
		return ErrMissingVendor
	}
	if strings.TrimSpace(e.Type) == "" {
		return ErrMissingType
	}
	return nil
}

// WithMetadata returns a copy of e with key set in its metadata.
func (e Event) WithMetadata(key string, value any) Event {
	out := e
	out.Metadata = make(map[string]any, len(e.Metadata)+1)
	maps.Copy(out.Metadata, e.Metadata)
	out.Metadata[key] = value
	return out
}

// WithPayloadValue returns a copy of e with key set in its payload.
func (e Event) WithPayloadValue(key string, value any) Event {
	out := e
	out.Payload = make(map[string]any, len(e.Payload)+1)
	maps.Copy(out.Payload, e.Payload)
	out.Payload[key] = value
	return out
}

// PayloadBytes returns the JSON encoding of the payload, or nil when the
// event carries none.
func (e Event) PayloadBytes() ([]byte, error) {
	if e.Payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("event: encode payload id=%s: %w", e.ID, err)
	}
	return data, nil
}

// PayloadSize is the serialized payload length in bytes; unencodable
// payloads report zero.
func (e Event) PayloadSize() int {
	data, err := e.PayloadBytes()
	if err != nil {
		return 0
	}
	return len(data)
}

func (e Event) MarshalJSON() ([]byte, error) {
	var ts int64
	if !e.Timestamp.IsZero() {
		ts = e.Timestamp.UnixMilli()
	}
	return json.Marshal(wireEvent{
		EventID:   e.ID,
		Vendor:    e.Vendor,
		Type:      e.Type,
		Payload:   e.Payload,
		Metadata:  e.Metadata,
		Timestamp: ts,
	})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event{
		ID:       w.EventID,
		Vendor:   w.Vendor,
		Type:     w.Type,
		Payload:  w.Payload,
		Metadata: w.Metadata,
	}
	if w.Timestamp > 0 {
		e.Timestamp = time.UnixMilli(w.Timestamp)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Decode parses one wire frame into an event.
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("event: decode frame: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

func (e Event) String() string {
	return fmt.Sprintf("event{id=%s vendor=%s type=%s}", e.ID, e.Vendor, e.Type)
}
