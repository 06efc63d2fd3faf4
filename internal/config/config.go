// Package config owns the assurancectl daemon file: its schema, defaults,
// validation and the mapping onto the runtime configs.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/assurance/internal/agent"
	logs "github.com/danmuck/assurance/internal/logging"
	"github.com/danmuck/assurance/internal/presentation"
	"github.com/danmuck/assurance/internal/server"
	"github.com/danmuck/assurance/internal/session"
	"github.com/danmuck/assurance/internal/transport"
)

const DefaultName = "assurance"

var ErrInvalid = errors.New("config: invalid")

// Config is the resolved daemon configuration.
type Config struct {
	Name      string
	OrgID     string
	PIN       string
	StatePath string
	LogLevel  string

	Admin     server.Config
	Agent     agent.Config
	Transport transport.WebSocketConfig
	// LogCapacity bounds the headless client-log ring.
	LogCapacity int
}

func Default() Config {
	return Config{
		Name:        DefaultName,
		LogLevel:    "info",
		Admin:       server.Config{}.WithDefaults(),
		Agent:       agent.DefaultConfig(),
		Transport:   transport.DefaultWebSocketConfig(),
		LogCapacity: presentation.DefaultLogCapacity,
	}
}

// AgentConfig returns the agent config with the top-level org folded in.
func (c Config) AgentConfig() agent.Config {
	cfg := c.Agent
	cfg.OrgID = c.OrgID
	return cfg.WithDefaults()
}

func (c Config) PresentationConfig() presentation.Config {
	return presentation.Config{PIN: c.PIN, LogCapacity: c.LogCapacity}
}

func Validate(c Config) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalid)
	}
	if strings.TrimSpace(c.Admin.Addr) == "" {
		return fmt.Errorf("%w: missing admin.addr", ErrInvalid)
	}
	if _, ok := logs.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}
	if c.PIN != "" && strings.TrimSpace(c.OrgID) == "" {
		return fmt.Errorf("%w: pin requires org_id", ErrInvalid)
	}
	s := c.Agent.Session
	if s.InboundCapacity <= 0 || s.OutboundCapacity <= 0 {
		return fmt.Errorf("%w: queue capacities must be positive", ErrInvalid)
	}
	if s.ChunkSize <= 0 {
		return fmt.Errorf("%w: session.chunk_size must be positive", ErrInvalid)
	}
	if err := validateReconnect(s.Reconnect); err != nil {
		return err
	}
	if c.Agent.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: session.shutdown_timeout must be positive", ErrInvalid)
	}
	return nil
}

func validateReconnect(r session.ReconnectConfig) error {
	if r.FirstDelay < 0 || r.Delay < 0 || r.MaxDelay < 0 {
		return fmt.Errorf("%w: reconnect delays must not be negative", ErrInvalid)
	}
	if r.Multiplier < 1 {
		return fmt.Errorf("%w: session.reconnect.multiplier must be >= 1", ErrInvalid)
	}
	if r.MaxDelay > 0 && r.MaxDelay < r.Delay {
		return fmt.Errorf("%w: session.reconnect.max_delay below delay", ErrInvalid)
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
