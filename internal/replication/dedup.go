package replication

import "time"

// DefaultDedupWindow bounds how long a shot id is remembered. Reconnection
// replay never spans more than a few seconds, so thirty keeps the set small
// without risking a double-applied shot.
const DefaultDedupWindow = 30 * time.Second

// ShotFilter deduplicates projectile events by shot id over a sliding time
// window. Expired entries are swept opportunistically on insert.
type ShotFilter struct {
	window time.Duration
	now    func() time.Time
	seen   map[string]time.Time
}

// NewShotFilter builds a filter. A nil clock uses time.Now.
func NewShotFilter(window time.Duration, now func() time.Time) *ShotFilter {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if now == nil {
		now = time.Now
	}
	return &ShotFilter{window: window, now: now, seen: make(map[string]time.Time)}
}

// Observe records a shot id and reports whether it is the first sighting.
func (f *ShotFilter) Observe(shotID string) bool {
	if shotID == "" {
		return false
	}
	now := f.now()
	f.sweep(now)
	if _, dup := f.seen[shotID]; dup {
		return false
	}
	f.seen[shotID] = now
	return true
}

func (f *ShotFilter) sweep(now time.Time) {
	cutoff := now.Add(-f.window)
	for id, at := range f.seen {
		if at.Before(cutoff) {
			delete(f.seen, id)
		}
	}
}

// Len reports how many shot ids are currently remembered.
func (f *ShotFilter) Len() int {
	return len(f.seen)
}
