package transfer

import "time"

// Config holds the retry and write tuning of a transfer
type Config struct {
	// ChunkSize is the unit written and synced before progress advances
	ChunkSize int

	// MaxAttempts bounds the number of probe+write attempts
	MaxAttempts int

	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter scales each delay by a random factor in [1-Jitter, 1+Jitter]
	Jitter float64
}

// DefaultConfig returns the default tuning
func DefaultConfig() Config {
	return Config{
		ChunkSize:   1024 * 1024,
		MaxAttempts: 8,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      0.2,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = c.BaseDelay
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	if c.Jitter > 1 {
		c.Jitter = 1
	}
	return c
}
