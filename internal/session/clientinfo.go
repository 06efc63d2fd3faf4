package session

import (
	"os"
	"runtime"

	"github.com/danmuck/assurance/internal/event"
)

// ClientInfoEvent identifies this client; it must be the first frame after
// every open.
func ClientInfoEvent(version string) event.Event {
	host, _ := os.Hostname()
	return event.NewMobile(event.TypeClient, map[string]any{
		"type":    "connect",
		"version": version,
		"deviceInfo": map[string]any{
			"osName":    runtime.GOOS,
			"arch":      runtime.GOARCH,
			"hostname":  host,
			"goVersion": runtime.Version(),
			"cpuCount":  runtime.NumCPU(),
		},
		"appSettings": map[string]any{},
	})
}
