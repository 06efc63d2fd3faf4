package session

import (
	"math"
	"time"
)

// ReconnectDelay returns the wait before reconnect attempt N (1-based).
// The first attempt after a healthy connection drops uses FirstDelay;
// later attempts start at Delay and grow by Multiplier up to MaxDelay.
func ReconnectDelay(cfg ReconnectConfig, attempt int) time.Duration {
	if attempt <= 1 {
		return max(cfg.FirstDelay, 0)
	}
	if cfg.Delay <= 0 {
		return 0
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.Delay) * math.Pow(cfg.Multiplier, float64(attempt-2))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
