package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	logs "github.com/danmuck/assurance/internal/logging"
)

type fileConfig struct {
	Name      string         `toml:"name"`
	OrgID     string         `toml:"org_id"`
	PIN       string         `toml:"pin"`
	StatePath string         `toml:"state_path"`
	LogLevel  string         `toml:"log_level"`
	Admin     adminSection   `toml:"admin"`
	Session   sessionSection `toml:"session"`
	Transport wsSection      `toml:"transport"`
	Console   consoleSection `toml:"console"`
}

type adminSection struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"`
}

type sessionSection struct {
	Host                 string           `toml:"host"`
	InboundCapacity      int              `toml:"inbound_capacity"`
	OutboundCapacity     int              `toml:"outbound_capacity"`
	ChunkSize            int              `toml:"chunk_size"`
	AwaitStartForwarding bool             `toml:"await_start_forwarding"`
	ClientVersion        string           `toml:"client_version"`
	ShutdownTimeout      string           `toml:"shutdown_timeout"`
	Reconnect            reconnectSection `toml:"reconnect"`
}

type reconnectSection struct {
	FirstDelay string  `toml:"first_delay"`
	Delay      string  `toml:"delay"`
	Multiplier float64 `toml:"multiplier"`
	MaxDelay   string  `toml:"max_delay"`
}

type wsSection struct {
	HandshakeTimeout string `toml:"handshake_timeout"`
	PingInterval     string `toml:"ping_interval"`
	ReadLimit        int64  `toml:"read_limit"`
}

type consoleSection struct {
	LogCapacity int `toml:"log_capacity"`
}

// Load overlays the keys defined in path onto Default and validates the
// result. Keys the schema does not know are logged and ignored.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	for _, key := range meta.Undecoded() {
		logs.Warnf("config.Load unknown key=%s path=%s", key.String(), path)
	}

	if err := overlay(&cfg, raw, meta); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overlay(cfg *Config, raw fileConfig, meta toml.MetaData) error {
	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			cfg.Name = name
		}
	}
	if meta.IsDefined("org_id") {
		cfg.OrgID = strings.TrimSpace(raw.OrgID)
	}
	if meta.IsDefined("pin") {
		cfg.PIN = strings.TrimSpace(raw.PIN)
	}
	if meta.IsDefined("state_path") {
		cfg.StatePath = strings.TrimSpace(raw.StatePath)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("admin", "addr") {
		cfg.Admin.Addr = strings.TrimSpace(raw.Admin.Addr)
	}
	if meta.IsDefined("admin", "cors_origins") {
		cfg.Admin.CORSOrigins = normalizeList(raw.Admin.CORSOrigins)
	}

	s := &cfg.Agent.Session
	rs := raw.Session
	if meta.IsDefined("session", "host") {
		s.Host = strings.TrimSpace(rs.Host)
	}
	if meta.IsDefined("session", "inbound_capacity") {
		s.InboundCapacity = rs.InboundCapacity
	}
	if meta.IsDefined("session", "outbound_capacity") {
		s.OutboundCapacity = rs.OutboundCapacity
	}
	if meta.IsDefined("session", "chunk_size") {
		s.ChunkSize = rs.ChunkSize
	}
	if meta.IsDefined("session", "await_start_forwarding") {
		s.AwaitStartForwarding = rs.AwaitStartForwarding
	}
	if meta.IsDefined("session", "client_version") {
		s.ClientVersion = strings.TrimSpace(rs.ClientVersion)
	}
	if meta.IsDefined("session", "shutdown_timeout") {
		d, err := parseDuration("session.shutdown_timeout", rs.ShutdownTimeout)
		if err != nil {
			return err
		}
		cfg.Agent.ShutdownTimeout = d
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"first_delay", rs.Reconnect.FirstDelay, &s.Reconnect.FirstDelay},
		{"delay", rs.Reconnect.Delay, &s.Reconnect.Delay},
		{"max_delay", rs.Reconnect.MaxDelay, &s.Reconnect.MaxDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined("session", "reconnect", d.key) {
			continue
		}
		v, err := parseDuration("session.reconnect."+d.key, d.raw)
		if err != nil {
			return err
		}
		*d.dst = v
	}
	if meta.IsDefined("session", "reconnect", "multiplier") {
		s.Reconnect.Multiplier = rs.Reconnect.Multiplier
	}

	if meta.IsDefined("transport", "handshake_timeout") {
		d, err := parseDuration("transport.handshake_timeout", raw.Transport.HandshakeTimeout)
		if err != nil {
			return err
		}
		cfg.Transport.HandshakeTimeout = d
	}
	if meta.IsDefined("transport", "ping_interval") {
		d, err := parseDuration("transport.ping_interval", raw.Transport.PingInterval)
		if err != nil {
			return err
		}
		cfg.Transport.PingInterval = d
	}
	if meta.IsDefined("transport", "read_limit") {
		cfg.Transport.ReadLimit = raw.Transport.ReadLimit
	}

	if meta.IsDefined("console", "log_capacity") {
		cfg.LogCapacity = raw.Console.LogCapacity
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
