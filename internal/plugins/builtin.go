package plugins

// ConfigUpdater applies configuration overrides in the host application.
// A nil value removes the override for that key.
type ConfigUpdater interface {
	UpdateConfiguration(values map[string]any)
}

// ScreenCapturer returns an encoded image of the host's current screen.
type ScreenCapturer interface {
	Capture() (data []byte, mimeType string, err error)
}

// EventDispatcher injects a synthetic event into the host's event hub.
type EventDispatcher interface {
	Dispatch(name, eventType, source string, data map[string]any)
}

// Dependencies are the host collaborators the built-in plugins act through.
// A nil collaborator leaves its plugin registered but inert.
type Dependencies struct {
	Config     ConfigUpdater
	Screen     ScreenCapturer
	Dispatcher EventDispatcher
	LogSink    *LogForwarder
}

// Builtins returns the internal plugins registered on every session.
// The log forwarder is shared across sessions so the host can keep one
// writer wired to its logger.
func Builtins(deps Dependencies) []Plugin {
	logForwarder := deps.LogSink
	if logForwarder == nil {
		logForwarder = NewLogForwarder()
	}
	return []Plugin{
		NewFakeEvent(deps.Dispatcher),
		NewConfigModify(deps.Config),
		NewScreenshot(deps.Screen),
		logForwarder,
	}
}
