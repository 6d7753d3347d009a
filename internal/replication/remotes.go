package replication

import (
	"sync/atomic"
	"time"

	"chase-arena/netcode/internal/proto"
)

// SequenceCounter issues the monotonic per-sender ordering tags carried by
// outbound pose updates. Wall-clock milliseconds are deliberately not used as
// tags: clock adjustments would break the greatest-tag-wins rule. The frame
// still carries a wall-clock timestamp for staleness display.
type SequenceCounter struct {
	n atomic.Uint64
}

// Next returns the next tag, starting at 1.
func (c *SequenceCounter) Next() uint64 {
	return c.n.Add(1)
}

// RemoteState is the last accepted pose for one remote player plus its
// receipt time for staleness sweeps.
type RemoteState struct {
	State      proto.PlayerState
	LastUpdate time.Time
}

// RemoteRegistry keeps the freshest known pose per remote player id, keyed
// by the greatest-sequence-wins rule. It carries no lock of its own; the
// owning session serializes access.
type RemoteRegistry struct {
	now     func() time.Time
	remotes map[string]*RemoteState
}

// NewRemoteRegistry builds an empty registry. A nil clock uses time.Now.
func NewRemoteRegistry(now func() time.Time) *RemoteRegistry {
	if now == nil {
		now = time.Now
	}
	return &RemoteRegistry{now: now, remotes: make(map[string]*RemoteState)}
}

// Apply records an inbound pose. It reports false when the update is stale,
// i.e. its sequence tag does not exceed the held one for the same player.
func (r *RemoteRegistry) Apply(state proto.PlayerState) (held uint64, accepted bool) {
	if state.ID == "" {
		return 0, false
	}
	existing, ok := r.remotes[state.ID]
	if ok && state.Sequence <= existing.State.Sequence {
		return existing.State.Sequence, false
	}
	if !ok {
		existing = &RemoteState{}
		r.remotes[state.ID] = existing
	}
	existing.State = state
	existing.LastUpdate = r.now()
	return state.Sequence, true
}

// Get returns the held state for a player id.
func (r *RemoteRegistry) Get(playerID string) (RemoteState, bool) {
	remote, ok := r.remotes[playerID]
	if !ok {
		return RemoteState{}, false
	}
	return *remote, true
}

// Remove drops a remote when its leave event arrives.
func (r *RemoteRegistry) Remove(playerID string) {
	delete(r.remotes, playerID)
}

// Len reports how many remote players are tracked.
func (r *RemoteRegistry) Len() int {
	return len(r.remotes)
}

// IDs lists the tracked remote player ids.
func (r *RemoteRegistry) IDs() []string {
	ids := make([]string, 0, len(r.remotes))
	for id := range r.remotes {
		ids = append(ids, id)
	}
	return ids
}

// SweepStale drops remotes silent for longer than maxSilence and returns
// their ids.
func (r *RemoteRegistry) SweepStale(maxSilence time.Duration) []string {
	if maxSilence <= 0 {
		return nil
	}
	cutoff := r.now().Add(-maxSilence)
	var dropped []string
	for id, remote := range r.remotes {
		if remote.LastUpdate.Before(cutoff) {
			delete(r.remotes, id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}
