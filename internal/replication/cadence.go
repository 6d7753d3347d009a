package replication

import "time"

// DefaultSendInterval caps outbound pose traffic at 20 Hz regardless of the
// host's render or tick rate.
const DefaultSendInterval = 50 * time.Millisecond

// SendGate drops pose sends that arrive faster than the configured interval.
// Blocked sends are discarded, not queued; the next allowed send carries the
// latest pose anyway.
type SendGate struct {
	interval time.Duration
	now      func() time.Time
	lastSend time.Time
}

// NewSendGate builds a gate with the given floor. A nil clock uses time.Now.
func NewSendGate(interval time.Duration, now func() time.Time) *SendGate {
	if interval <= 0 {
		interval = DefaultSendInterval
	}
	if now == nil {
		now = time.Now
	}
	return &SendGate{interval: interval, now: now}
}

// Allow reports whether a send may go out now, consuming the slot if so.
func (g *SendGate) Allow() bool {
	now := g.now()
	if !g.lastSend.IsZero() && now.Sub(g.lastSend) < g.interval {
		return false
	}
	g.lastSend = now
	return true
}
