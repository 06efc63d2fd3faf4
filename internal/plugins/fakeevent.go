package plugins

import (
	"fmt"
	"strings"

	"github.com/danmuck/assurance/internal/clientlog"
	"github.com/danmuck/assurance/internal/event"
	logs "github.com/danmuck/assurance/internal/logging"
)

const (
	fakeEventName   = "eventName"
	fakeEventType   = "eventType"
	fakeEventSource = "eventSource"
	fakeEventData   = "eventData"
)

// FakeEvent dispatches a synthetic event into the host on request.
type FakeEvent struct {
	dispatcher EventDispatcher
	host       Host
}

func NewFakeEvent(dispatcher EventDispatcher) *FakeEvent {
	return &FakeEvent{dispatcher: dispatcher}
}

func (p *FakeEvent) Vendor() string      { return event.VendorMobile }
func (p *FakeEvent) CommandType() string { return event.CommandFakeEvent }

func (p *FakeEvent) OnRegistered(h Host) { p.host = h }

func (p *FakeEvent) OnEventReceived(e event.Event) {
	detail := e.CommandDetail()
	name := detailString(detail, fakeEventName)
	typ := detailString(detail, fakeEventType)
	source := detailString(detail, fakeEventSource)
	if name == "" || typ == "" || source == "" {
		logs.Debugf("plugins.FakeEvent ignored incomplete detail id=%s", e.ID)
		return
	}
	if p.dispatcher == nil {
		return
	}
	data, _ := detail[fakeEventData].(map[string]any)
	p.dispatcher.Dispatch(name, typ, source, data)
	if p.host != nil {
		p.host.AddClientLog(fmt.Sprintf("Dispatched fake event %q", name), clientlog.Normal)
	}
}

func detailString(detail map[string]any, key string) string {
	v, _ := detail[key].(string)
	return strings.TrimSpace(v)
}
