package relay

import "time"

// Config tunes one relay hub.
type Config struct {
	// WriteTimeout bounds every frame write; a stuck client is dropped
	// instead of stalling the room.
	WriteTimeout time.Duration

	// ClientSilence is how long a client may go without sending anything
	// before the sweep closes it.
	ClientSilence time.Duration

	// SweepInterval is the cadence of the silence sweep.
	SweepInterval time.Duration
}

// DefaultConfig returns the stock relay tuning.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:  10 * time.Second,
		ClientSilence: 30 * time.Second,
		SweepInterval: 5 * time.Second,
	}
}

// Normalized returns a config with defaults applied to unset fields.
func (cfg Config) Normalized() Config {
	defaults := DefaultConfig()
	normalized := cfg
	if normalized.WriteTimeout <= 0 {
		normalized.WriteTimeout = defaults.WriteTimeout
	}
	if normalized.ClientSilence <= 0 {
		normalized.ClientSilence = defaults.ClientSilence
	}
	if normalized.SweepInterval <= 0 {
		normalized.SweepInterval = defaults.SweepInterval
	}
	return normalized
}
