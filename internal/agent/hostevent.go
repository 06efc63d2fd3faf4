package agent

import (
	"strings"

	"github.com/danmuck/assurance/internal/event"
)

// Host event keys and names the agent understands.
const (
	HostTypeAssurance     = "com.adobe.eventtype.assurance"
	HostSourceRequest     = "com.adobe.eventsource.requestcontent"
	HostSourceSharedState = "com.adobe.eventsource.sharedstate"
	HostTypeHub           = "com.adobe.eventtype.hub"

	StartSessionURLKey  = "startSessionURL"
	SharedStateOwnerKey = "stateowner"
	XDMSharedStateName  = "Shared state content (XDM)"

	payloadName     = "ACPExtensionEventName"
	payloadType     = "ACPExtensionEventType"
	payloadSource   = "ACPExtensionEventSource"
	payloadData     = "ACPExtensionEventData"
	payloadUniqueID = "ACPExtensionEventUniqueIdentifier"
	payloadMetadata = "metadata"

	sharedStateDataKey    = "state.data"
	xdmSharedStateDataKey = "xdm.state.data"
)

// HostEvent is an event seen on the host application's event hub.
type HostEvent struct {
	ID     string         `json:"id,omitempty"`
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Source string         `json:"source"`
	Data   map[string]any `json:"data,omitempty"`
}

func (h HostEvent) isStartSessionRequest() bool {
	return strings.EqualFold(h.Type, HostTypeAssurance) && strings.EqualFold(h.Source, HostSourceRequest)
}

func (h HostEvent) isSharedStateChange() bool {
	return strings.EqualFold(h.Type, HostTypeHub) && strings.EqualFold(h.Source, HostSourceSharedState)
}

func (h HostEvent) sharedStateOwner() string {
	owner, _ := h.Data[SharedStateOwnerKey].(string)
	return owner
}

func (h HostEvent) isXDMSharedState() bool {
	return strings.EqualFold(h.Name, XDMSharedStateName)
}

// ToEvent wraps a host event as a generic session event.
func (h HostEvent) ToEvent() event.Event {
	payload := map[string]any{
		payloadName:   h.Name,
		payloadType:   strings.ToLower(h.Type),
		payloadSource: strings.ToLower(h.Source),
	}
	if h.ID != "" {
		payload[payloadUniqueID] = h.ID
	}
	if len(h.Data) > 0 {
		payload[payloadData] = h.Data
	}
	return event.NewMobile(event.TypeGeneric, payload)
}
