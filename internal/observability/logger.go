package observability

import (
	"github.com/rs/zerolog"

	logs "github.com/danmuck/assurance/internal/logging"
)

// ComponentLogger derives a structured logger tagged with component.
func ComponentLogger(component string) zerolog.Logger {
	return logs.Logger().With().Str("component", component).Logger()
}
