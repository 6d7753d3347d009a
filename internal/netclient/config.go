package netclient

import (
	"time"

	"chase-arena/netcode/internal/proto"
	"chase-arena/netcode/internal/replication"
)

// Config tunes one session manager.
type Config struct {
	ServerURL string
	Role      proto.Role

	// ReconnectDelay is a fixed pause between attempts, not a backoff.
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int

	// HandshakeTimeout bounds the auth+join exchange; a stalled relay fails
	// the pending Connect instead of hanging it forever.
	HandshakeTimeout time.Duration

	// SendInterval is the outbound pose cadence floor.
	SendInterval time.Duration

	// PingInterval drives latency sampling and the stale-remote sweep while
	// joined. Zero disables both.
	PingInterval time.Duration

	// RemoteSilence is how long a remote may stay quiet before it is
	// dropped from the registry.
	RemoteSilence time.Duration

	// DedupWindow bounds the shot id filter.
	DedupWindow time.Duration
}

// DefaultConfig returns the stock client tuning.
func DefaultConfig() Config {
	return Config{
		Role:                 proto.RoleEvader,
		ReconnectDelay:       2 * time.Second,
		MaxReconnectAttempts: 5,
		HandshakeTimeout:     10 * time.Second,
		SendInterval:         replication.DefaultSendInterval,
		PingInterval:         2 * time.Second,
		RemoteSilence:        10 * time.Second,
		DedupWindow:          replication.DefaultDedupWindow,
	}
}

// Normalized returns a config with defaults applied to unset fields.
func (cfg Config) Normalized() Config {
	defaults := DefaultConfig()
	normalized := cfg
	if normalized.Role == "" {
		normalized.Role = defaults.Role
	}
	if normalized.ReconnectDelay <= 0 {
		normalized.ReconnectDelay = defaults.ReconnectDelay
	}
	if normalized.MaxReconnectAttempts <= 0 {
		normalized.MaxReconnectAttempts = defaults.MaxReconnectAttempts
	}
	if normalized.HandshakeTimeout <= 0 {
		normalized.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if normalized.SendInterval <= 0 {
		normalized.SendInterval = defaults.SendInterval
	}
	if normalized.RemoteSilence <= 0 {
		normalized.RemoteSilence = defaults.RemoteSilence
	}
	if normalized.DedupWindow <= 0 {
		normalized.DedupWindow = defaults.DedupWindow
	}
	return normalized
}
