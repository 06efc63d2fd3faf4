package plugins

import (
	"encoding/base64"

	"github.com/danmuck/assurance/internal/clientlog"
	"github.com/danmuck/assurance/internal/event"
	logs "github.com/danmuck/assurance/internal/logging"
)

// Screenshot answers screenshot commands with a blob event. Large images
// are split by the session chunker like any other oversized event.
type Screenshot struct {
	capturer ScreenCapturer
	host     Host
}

func NewScreenshot(capturer ScreenCapturer) *Screenshot {
	return &Screenshot{capturer: capturer}
}

func (p *Screenshot) Vendor() string      { return event.VendorMobile }
func (p *Screenshot) CommandType() string { return event.CommandScreenshot }

func (p *Screenshot) OnRegistered(h Host) { p.host = h }

func (p *Screenshot) OnEventReceived(event.Event) {
	if p.host == nil {
		return
	}
	if p.capturer == nil {
		p.host.AddClientLog("Screenshot capture is not supported by this host", clientlog.High)
		return
	}
	data, mimeType, err := p.capturer.Capture()
	if err != nil {
		logs.Warnf("plugins.Screenshot capture failed err=%v", err)
		p.host.AddClientLog("Screenshot capture failed", clientlog.High)
		return
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	p.host.SendEvent(event.NewMobile(event.TypeBlob, map[string]any{
		"mimeType": mimeType,
		"data":     base64.StdEncoding.EncodeToString(data),
	}))
	p.host.AddClientLog("Screenshot captured", clientlog.Normal)
}
