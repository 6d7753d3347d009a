package replication

import (
	"testing"
	"time"

	"chase-arena/netcode/internal/proto"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSpawnAllocatorLadder(t *testing.T) {
	allocator := NewSpawnAllocator(SpawnConfig{BaseX: -100, MinX: -500, StepSize: 50})

	want := []float64{-150, -200, -250, -300, -350, -400, -450}
	for i, expected := range want {
		spawn := allocator.Next()
		if spawn.X != expected {
			t.Fatalf("call %d: expected x=%v, got %v", i+1, expected, spawn.X)
		}
	}

	allocator.Reset()
	if allocator.CurrentX() != -100 {
		t.Fatalf("expected reset to restore base -100, got %v", allocator.CurrentX())
	}
}

func TestSpawnAllocatorClampsAtMin(t *testing.T) {
	allocator := NewSpawnAllocator(SpawnConfig{BaseX: -100, MinX: -500, StepSize: 50})
	for i := 0; i < 20; i++ {
		allocator.Next()
	}
	if allocator.CurrentX() != -500 {
		t.Fatalf("expected ladder to clamp at -500, got %v", allocator.CurrentX())
	}
}

func TestSendGateCapsBurst(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	gate := NewSendGate(50*time.Millisecond, clock.Now)

	sent := 0
	for i := 0; i < 100; i++ {
		if gate.Allow() {
			sent++
		}
		clock.advance(100 * time.Microsecond) // 100 sends inside 10ms
	}
	if sent != 1 {
		t.Fatalf("expected 1 send inside a 10ms burst, got %d", sent)
	}

	clock.advance(50 * time.Millisecond)
	if !gate.Allow() {
		t.Fatalf("expected send after interval elapsed")
	}
}

func TestShotFilterDeduplicates(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	filter := NewShotFilter(30*time.Second, clock.Now)

	if !filter.Observe("shot-1") {
		t.Fatalf("first sighting should pass")
	}
	if filter.Observe("shot-1") {
		t.Fatalf("duplicate shot id must be dropped")
	}
	if filter.Observe("") {
		t.Fatalf("empty shot id must be dropped")
	}
}

func TestShotFilterWindowExpires(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	filter := NewShotFilter(30*time.Second, clock.Now)

	filter.Observe("shot-1")
	clock.advance(31 * time.Second)
	filter.Observe("shot-2")

	if filter.Len() != 1 {
		t.Fatalf("expected expired shot swept, len=%d", filter.Len())
	}
	if !filter.Observe("shot-1") {
		t.Fatalf("expired shot id should pass again")
	}
}

func TestRemoteRegistryKeepsGreatestSequence(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	registry := NewRemoteRegistry(clock.Now)

	if _, accepted := registry.Apply(proto.PlayerState{ID: "p-1", Sequence: 5, Position: proto.Vec3{X: 5}}); !accepted {
		t.Fatalf("first update should be accepted")
	}
	if held, accepted := registry.Apply(proto.PlayerState{ID: "p-1", Sequence: 3, Position: proto.Vec3{X: 3}}); accepted {
		t.Fatalf("stale sequence must be rejected (held %d)", held)
	}

	remote, ok := registry.Get("p-1")
	if !ok {
		t.Fatalf("remote missing")
	}
	if remote.State.Position.X != 5 {
		t.Fatalf("stale update overwrote held state: %+v", remote.State)
	}

	if _, accepted := registry.Apply(proto.PlayerState{ID: "p-1", Sequence: 6, Position: proto.Vec3{X: 6}}); !accepted {
		t.Fatalf("newer sequence should be accepted")
	}
}

func TestRemoteRegistrySweepStale(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	registry := NewRemoteRegistry(clock.Now)

	registry.Apply(proto.PlayerState{ID: "p-1", Sequence: 1})
	clock.advance(4 * time.Second)
	registry.Apply(proto.PlayerState{ID: "p-2", Sequence: 1})

	dropped := registry.SweepStale(3 * time.Second)
	if len(dropped) != 1 || dropped[0] != "p-1" {
		t.Fatalf("expected only p-1 swept, got %v", dropped)
	}
	if registry.Len() != 1 {
		t.Fatalf("expected one remote left, got %d", registry.Len())
	}
}

func TestSequenceCounterMonotonic(t *testing.T) {
	var counter SequenceCounter
	prev := uint64(0)
	for i := 0; i < 100; i++ {
		next := counter.Next()
		if next <= prev {
			t.Fatalf("counter not monotonic: %d after %d", next, prev)
		}
		prev = next
	}
}
