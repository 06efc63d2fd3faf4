package plugins

import (
	"fmt"
	"sort"

	"github.com/danmuck/assurance/internal/clientlog"
	"github.com/danmuck/assurance/internal/event"
)

// ConfigModify applies remote configuration overrides and reverts them when
// the session terminates.
type ConfigModify struct {
	updater  ConfigUpdater
	host     Host
	modified map[string]struct{}
}

func NewConfigModify(updater ConfigUpdater) *ConfigModify {
	return &ConfigModify{updater: updater, modified: make(map[string]struct{})}
}

func (p *ConfigModify) Vendor() string      { return event.VendorMobile }
func (p *ConfigModify) CommandType() string { return event.CommandConfigUpdate }

func (p *ConfigModify) OnRegistered(h Host) { p.host = h }

func (p *ConfigModify) OnEventReceived(e event.Event) {
	detail := e.CommandDetail()
	if len(detail) == 0 {
		p.log("Invalid configuration update: empty detail", clientlog.Normal)
		return
	}
	if p.updater == nil {
		p.log("Configuration update is not supported by this host", clientlog.High)
		return
	}

	p.updater.UpdateConfiguration(detail)
	p.log("Configuration modified", clientlog.High)
	for _, key := range sortedKeys(detail) {
		p.modified[key] = struct{}{}
		p.log(fmt.Sprintf("\t%s: %v", key, detail[key]), clientlog.High)
	}
}

func (p *ConfigModify) OnSessionTerminated() {
	if len(p.modified) == 0 || p.updater == nil {
		return
	}
	revert := make(map[string]any, len(p.modified))
	for key := range p.modified {
		revert[key] = nil
	}
	p.updater.UpdateConfiguration(revert)
	p.modified = make(map[string]struct{})
}

// ModifiedKeys lists the keys currently overridden.
func (p *ConfigModify) ModifiedKeys() []string {
	out := make([]string, 0, len(p.modified))
	for key := range p.modified {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func (p *ConfigModify) log(text string, v clientlog.Visibility) {
	if p.host != nil {
		p.host.AddClientLog(text, v)
	}
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for key := range m {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
