package session

import (
	"time"

	"github.com/danmuck/assurance/internal/event"
)

const DefaultHost = "griffon.adobe.com"

// ReconnectConfig defines the delay before each reconnect attempt after an
// abnormal closure.
type ReconnectConfig struct {
	FirstDelay time.Duration
	Delay      time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// Config defines session transport and queue defaults.
type Config struct {
	Host                 string
	InboundCapacity      int
	OutboundCapacity     int
	ChunkSize            int
	Reconnect            ReconnectConfig
	AwaitStartForwarding bool
	ClientVersion        string
}

func DefaultConfig() Config {
	return Config{
		Host:             DefaultHost,
		InboundCapacity:  event.DefaultQueueCapacity,
		OutboundCapacity: event.DefaultQueueCapacity,
		ChunkSize:        event.DefaultChunkSize,
		Reconnect: ReconnectConfig{
			FirstDelay: 0,
			Delay:      5 * time.Second,
			Multiplier: 1.0,
		},
		ClientVersion: "1.0.0",
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.Host == "" {
		c.Host = def.Host
	}
	if c.InboundCapacity <= 0 {
		c.InboundCapacity = def.InboundCapacity
	}
	if c.OutboundCapacity <= 0 {
		c.OutboundCapacity = def.OutboundCapacity
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.Reconnect.Delay <= 0 {
		c.Reconnect.Delay = def.Reconnect.Delay
	}
	if c.Reconnect.FirstDelay < 0 {
		c.Reconnect.FirstDelay = 0
	}
	if c.Reconnect.Multiplier < 1.0 {
		c.Reconnect.Multiplier = 1.0
	}
	if c.ClientVersion == "" {
		c.ClientVersion = def.ClientVersion
	}
	return c
}
