package netclient

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"chase-arena/netcode/internal/events"
	"chase-arena/netcode/internal/proto"
	"chase-arena/netcode/logging"
	"chase-arena/netcode/logging/lifecycle"
	loggingSinks "chase-arena/netcode/logging/sinks"
)

type stubConn struct {
	mu        sync.Mutex
	inbound   chan []byte
	sent      [][]byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newStubConn() *stubConn {
	return &stubConn{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (c *stubConn) ReadFrame() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.closed:
		return nil, errors.New("stub conn closed")
	}
}

func (c *stubConn) WriteFrame(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("stub conn closed")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, append([]byte(nil), data...))
	return nil
}

func (c *stubConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *stubConn) push(t *testing.T, frame proto.Frame) {
	t.Helper()
	data, err := proto.EncodeFrame(frame)
	if err != nil {
		t.Fatalf("failed to encode stub frame: %v", err)
	}
	c.inbound <- data
}

func (c *stubConn) sentFrames(t *testing.T) []proto.Frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := make([]proto.Frame, 0, len(c.sent))
	for _, data := range c.sent {
		frame, err := proto.DecodeFrame(data)
		if err != nil {
			t.Fatalf("stub recorded malformed frame: %v", err)
		}
		frames = append(frames, frame)
	}
	return frames
}

func (c *stubConn) countSent(t *testing.T, frameType string) int {
	count := 0
	for _, frame := range c.sentFrames(t) {
		if frame.FrameType() == frameType {
			count++
		}
	}
	return count
}

type stubDialer struct {
	mu    sync.Mutex
	conns []*stubConn
	fail  bool
	dials int
}

func (d *stubDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.fail {
		return nil, errors.New("stub dial refused")
	}
	conn := newStubConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *stubDialer) failNext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = true
}

func (d *stubDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *stubDialer) waitConn(t *testing.T, index int) *stubConn {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		if len(d.conns) > index {
			conn := d.conns[index]
			d.mu.Unlock()
			return conn
		}
		d.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("stub dialer never produced connection %d", index)
	return nil
}

type recorder struct {
	mu       sync.Mutex
	payloads []events.Payload
}

func (r *recorder) record(p events.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
}

func (r *recorder) count(kind events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.payloads {
		if p.EventKind() == kind {
			n++
		}
	}
	return n
}

func (r *recorder) first(kind events.Kind) (events.Payload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payloads {
		if p.EventKind() == kind {
			return p, true
		}
	}
	return nil, false
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testConfig() Config {
	return Config{
		ServerURL:            "ws://stub/arena",
		Role:                 proto.RoleEvader,
		ReconnectDelay:       5 * time.Millisecond,
		MaxReconnectAttempts: 5,
		HandshakeTimeout:     time.Second,
		SendInterval:         50 * time.Millisecond,
		PingInterval:         -1, // keep the pinger out of unit tests
		RemoteSilence:        10 * time.Second,
	}
}

func newTestManager(cfg Config) (*Manager, *stubDialer, *events.Dispatcher, *recorder) {
	dialer := &stubDialer{}
	dispatcher := events.NewDispatcher(log.New(io.Discard, "", 0))
	rec := &recorder{}
	for _, kind := range []events.Kind{
		events.KindConnected, events.KindDisconnected, events.KindPlayerUpdate,
		events.KindGameEvent, events.KindChat, events.KindError,
		events.KindPlayerJoined, events.KindPlayerLeft, events.KindLatencyUpdate,
	} {
		dispatcher.On(kind, rec.record)
	}
	m := New(cfg, dialer, dispatcher, nil, log.New(io.Discard, "", 0))
	return m, dialer, dispatcher, rec
}

// serveHandshake answers the auth and join frames the manager sends on the
// given stub connection.
func serveHandshake(t *testing.T, conn *stubConn, playerID string) {
	t.Helper()
	waitUntil(t, "auth frame", func() bool { return conn.countSent(t, proto.TypeAuth) == 1 })
	conn.push(t, proto.AuthSuccessFrame{Player: proto.PlayerInfo{ID: playerID, Name: "ada"}})
	waitUntil(t, "join frame", func() bool { return conn.countSent(t, proto.TypeJoinSession) == 1 })
	conn.push(t, proto.JoinSuccessFrame{SessionKey: "room-1"})
}

func connectJoined(t *testing.T, cfg Config) (*Manager, *stubDialer, *recorder, *stubConn) {
	t.Helper()
	m, dialer, _, rec := newTestManager(cfg)

	done := make(chan error, 1)
	go func() {
		done <- m.Connect(context.Background(), "ada", "room-1")
	}()

	conn := dialer.waitConn(t, 0)
	serveHandshake(t, conn, "p-1")

	if err := <-done; err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	return m, dialer, rec, conn
}

func TestConnectResolvesOnJoinSuccess(t *testing.T) {
	m, _, rec, conn := connectJoined(t, testConfig())
	defer m.Close()

	if got := m.State(); got != StateJoined {
		t.Fatalf("expected joined state, got %v", got)
	}
	if got := m.PlayerID(); got != "p-1" {
		t.Fatalf("expected assigned player id p-1, got %q", got)
	}
	if got := rec.count(events.KindConnected); got != 1 {
		t.Fatalf("expected exactly one connected event, got %d", got)
	}
	payload, _ := rec.first(events.KindConnected)
	connected := payload.(events.Connected)
	if connected.PlayerID != "p-1" || connected.SessionKey != "room-1" {
		t.Fatalf("unexpected connected payload %+v", connected)
	}

	// The handshake itself: auth first, join_session second, and nothing
	// else reached the wire.
	frames := conn.sentFrames(t)
	if len(frames) != 2 {
		t.Fatalf("expected 2 handshake frames, got %d", len(frames))
	}
	if frames[0].FrameType() != proto.TypeAuth || frames[1].FrameType() != proto.TypeJoinSession {
		t.Fatalf("handshake order wrong: %s then %s", frames[0].FrameType(), frames[1].FrameType())
	}
}

func TestGameplaySendsRejectedBeforeJoin(t *testing.T) {
	m, dialer, _, _ := newTestManager(testConfig())
	defer m.Close()

	if err := m.SendPlayerUpdate(proto.PlayerState{}); !errors.Is(err, ErrNotJoined) {
		t.Fatalf("expected ErrNotJoined, got %v", err)
	}
	if _, err := m.SendShot(proto.Vec3{}, proto.Vec3{Z: 1}); !errors.Is(err, ErrNotJoined) {
		t.Fatalf("expected ErrNotJoined, got %v", err)
	}
	if err := m.SendChat("hello"); !errors.Is(err, ErrNotJoined) {
		t.Fatalf("expected ErrNotJoined, got %v", err)
	}

	// Mid-handshake sends must not reach the wire either.
	go m.Connect(context.Background(), "ada", "room-1")
	conn := dialer.waitConn(t, 0)
	waitUntil(t, "auth frame", func() bool { return conn.countSent(t, proto.TypeAuth) == 1 })

	if err := m.SendChat("too early"); !errors.Is(err, ErrNotJoined) {
		t.Fatalf("expected ErrNotJoined mid-handshake, got %v", err)
	}
	if got := conn.countSent(t, proto.TypeChat); got != 0 {
		t.Fatalf("gameplay frame reached the wire before join: %d", got)
	}
}

func TestPlayerUpdateRateCap(t *testing.T) {
	m, _, _, conn := connectJoined(t, testConfig())
	defer m.Close()

	var clockMu sync.Mutex
	now := time.Unix(100, 0)
	m.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}

	for i := 0; i < 100; i++ {
		if err := m.SendPlayerUpdate(proto.PlayerState{}); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
		clockMu.Lock()
		now = now.Add(100 * time.Microsecond) // 100 sends inside 10ms
		clockMu.Unlock()
	}

	if got := conn.countSent(t, proto.TypePlayerUpdate); got != 1 {
		t.Fatalf("expected 1 update on the wire for a 10ms burst, got %d", got)
	}

	clockMu.Lock()
	now = now.Add(time.Second)
	clockMu.Unlock()
	if err := m.SendPlayerUpdate(proto.PlayerState{}); err != nil {
		t.Fatalf("send after interval failed: %v", err)
	}
	if got := conn.countSent(t, proto.TypePlayerUpdate); got != 2 {
		t.Fatalf("expected second update after interval, got %d", got)
	}
}

func TestOutboundSequencesAreMonotonic(t *testing.T) {
	m, _, _, conn := connectJoined(t, testConfig())
	defer m.Close()

	var clockMu sync.Mutex
	now := time.Unix(100, 0)
	m.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}

	for i := 0; i < 3; i++ {
		if err := m.SendPlayerUpdate(proto.PlayerState{}); err != nil {
			t.Fatalf("send failed: %v", err)
		}
		clockMu.Lock()
		now = now.Add(time.Second)
		clockMu.Unlock()
	}

	prev := uint64(0)
	for _, frame := range conn.sentFrames(t) {
		update, ok := frame.(proto.PlayerUpdateFrame)
		if !ok {
			continue
		}
		if update.State.Sequence <= prev {
			t.Fatalf("sequence not monotonic: %d after %d", update.State.Sequence, prev)
		}
		prev = update.State.Sequence
	}
	if prev == 0 {
		t.Fatalf("no player updates reached the wire")
	}
}

func TestInboundShotDeduplication(t *testing.T) {
	m, _, rec, conn := connectJoined(t, testConfig())
	defer m.Close()

	shot := proto.ShootEvent{ShotID: "shot-1", PlayerID: "p-9", Role: proto.RolePursuer}
	frame, err := proto.NewGameEventFrame(shot)
	if err != nil {
		t.Fatalf("wrap failed: %v", err)
	}
	conn.push(t, frame)
	conn.push(t, frame)
	// A distinct shot must still pass after the duplicate was dropped.
	other, _ := proto.NewGameEventFrame(proto.ShootEvent{ShotID: "shot-2", PlayerID: "p-9"})
	conn.push(t, other)

	waitUntil(t, "two game events", func() bool { return rec.count(events.KindGameEvent) == 2 })
	if got := rec.count(events.KindGameEvent); got != 2 {
		t.Fatalf("expected replayed shot applied once, got %d emissions", got)
	}
}

func TestStaleRemoteUpdateDoesNotOverwrite(t *testing.T) {
	m, _, rec, conn := connectJoined(t, testConfig())
	defer m.Close()

	conn.push(t, proto.PlayerUpdateFrame{State: proto.PlayerState{ID: "p-9", Sequence: 5, Position: proto.Vec3{X: 5}}})
	waitUntil(t, "first update", func() bool { return rec.count(events.KindPlayerUpdate) == 1 })

	conn.push(t, proto.PlayerUpdateFrame{State: proto.PlayerState{ID: "p-9", Sequence: 3, Position: proto.Vec3{X: 3}}})
	conn.push(t, proto.ChatFrame{Message: "fence"})
	waitUntil(t, "fence chat", func() bool { return rec.count(events.KindChat) == 1 })

	if got := rec.count(events.KindPlayerUpdate); got != 1 {
		t.Fatalf("stale update leaked through, emissions=%d", got)
	}
	remotes := m.RemoteStates()
	if len(remotes) != 1 || remotes[0].Position.X != 5 {
		t.Fatalf("registry holds wrong state: %+v", remotes)
	}
}

func TestReconnectStopsAfterCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxReconnectAttempts = 5
	m, dialer, rec, conn := connectJoined(t, cfg)
	defer m.Close()

	dialer.failNext()
	conn.Close()

	waitUntil(t, "terminal reconnect error", func() bool {
		payload, ok := rec.first(events.KindError)
		return ok && payload.(events.Error).Terminal
	})

	payload, _ := rec.first(events.KindError)
	if got := payload.(events.Error).Message; got != "Failed to reconnect" {
		t.Fatalf("unexpected terminal message %q", got)
	}
	if got := dialer.dialCount(); got != 6 { // initial connect + 5 attempts
		t.Fatalf("expected 6 dials total, got %d", got)
	}

	// No sixth attempt may be scheduled.
	time.Sleep(10 * cfg.ReconnectDelay)
	if got := dialer.dialCount(); got != 6 {
		t.Fatalf("a reconnect attempt ran past the cap: %d dials", got)
	}
}

func TestReconnectReusesIdentity(t *testing.T) {
	cfg := testConfig()
	m, dialer, rec, conn := connectJoined(t, cfg)
	defer m.Close()

	conn.Close()
	waitUntil(t, "disconnected event", func() bool { return rec.count(events.KindDisconnected) == 1 })

	next := dialer.waitConn(t, 1)
	waitUntil(t, "reconnect auth", func() bool { return next.countSent(t, proto.TypeAuth) == 1 })
	frames := next.sentFrames(t)
	auth := frames[0].(proto.AuthFrame)
	if auth.PlayerName != "ada" {
		t.Fatalf("reconnect lost player name: %+v", auth)
	}

	next.push(t, proto.AuthSuccessFrame{Player: proto.PlayerInfo{ID: "p-1", Name: "ada"}})
	waitUntil(t, "reconnect join", func() bool { return next.countSent(t, proto.TypeJoinSession) == 1 })
	join := next.sentFrames(t)[1].(proto.JoinSessionFrame)
	if join.SessionKey != "room-1" {
		t.Fatalf("reconnect lost session key: %+v", join)
	}

	next.push(t, proto.JoinSuccessFrame{SessionKey: "room-1"})
	waitUntil(t, "rejoined", func() bool { return m.State() == StateJoined })
	if got := rec.count(events.KindConnected); got != 2 {
		t.Fatalf("expected a second connected event, got %d", got)
	}
}

func TestHandshakeTimeoutFailsConnect(t *testing.T) {
	cfg := testConfig()
	cfg.HandshakeTimeout = 20 * time.Millisecond
	cfg.MaxReconnectAttempts = 1
	m, dialer, _, _ := newTestManager(cfg)
	defer m.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- m.Connect(context.Background(), "ada", "room-1") }()
	dialer.waitConn(t, 0) // relay never answers

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrHandshakeTimeout) {
			t.Fatalf("expected ErrHandshakeTimeout, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("connect never returned")
	}
}

func TestCloseCancelsPendingReconnect(t *testing.T) {
	cfg := testConfig()
	cfg.ReconnectDelay = time.Hour
	m, dialer, rec, conn := connectJoined(t, cfg)

	conn.Close()
	waitUntil(t, "disconnected event", func() bool { return rec.count(events.KindDisconnected) == 1 })

	if err := m.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if got := dialer.dialCount(); got != 1 {
		t.Fatalf("reconnect ran after close: %d dials", got)
	}
	if err := m.Connect(context.Background(), "ada", "room-1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}

func TestPlayerLeftDropsRemote(t *testing.T) {
	m, _, rec, conn := connectJoined(t, testConfig())
	defer m.Close()

	conn.push(t, proto.PlayerUpdateFrame{State: proto.PlayerState{ID: "p-9", Sequence: 1}})
	waitUntil(t, "remote tracked", func() bool { return len(m.RemoteStates()) == 1 })

	conn.push(t, proto.PlayerLeftFrame{ID: "p-9"})
	waitUntil(t, "player_left event", func() bool { return rec.count(events.KindPlayerLeft) == 1 })
	if got := len(m.RemoteStates()); got != 0 {
		t.Fatalf("remote survived its leave event: %d tracked", got)
	}
}

func TestRelayErrorFrameSurfaces(t *testing.T) {
	m, _, rec, conn := connectJoined(t, testConfig())
	defer m.Close()

	conn.push(t, proto.ErrorFrame{Message: "session full"})
	waitUntil(t, "error event", func() bool { return rec.count(events.KindError) == 1 })

	payload, _ := rec.first(events.KindError)
	e := payload.(events.Error)
	if e.Message != "session full" || e.Terminal {
		t.Fatalf("unexpected error payload %+v", e)
	}
}

func TestMalformedFrameIsDropped(t *testing.T) {
	m, _, rec, conn := connectJoined(t, testConfig())
	defer m.Close()

	conn.inbound <- []byte("not json at all")
	conn.push(t, proto.ChatFrame{Message: "still alive"})

	waitUntil(t, "chat after garbage", func() bool { return rec.count(events.KindChat) == 1 })
	if got := m.State(); got != StateJoined {
		t.Fatalf("malformed frame broke the session: %v", got)
	}
}

func TestLifecycleEventsReachStructuredSinks(t *testing.T) {
	sink := loggingSinks.NewMemorySink()
	router, err := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{{Name: "memory", Sink: sink}})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}
	defer router.Close(context.Background())

	dialer := &stubDialer{}
	dispatcher := events.NewDispatcher(log.New(io.Discard, "", 0))
	m := New(testConfig(), dialer, dispatcher, router, log.New(io.Discard, "", 0))

	done := make(chan error, 1)
	go func() { done <- m.Connect(context.Background(), "ada", "room-1") }()
	conn := dialer.waitConn(t, 0)
	serveHandshake(t, conn, "p-1")
	if err := <-done; err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	m.Close()

	waitUntil(t, "structured lifecycle events", func() bool {
		seen := make(map[logging.EventType]bool)
		for _, ev := range sink.Events() {
			seen[ev.Type] = true
		}
		return seen[lifecycle.EventSessionConnected] && seen[lifecycle.EventSessionDisconnected]
	})

	for _, ev := range sink.Events() {
		if ev.Type != lifecycle.EventSessionConnected {
			continue
		}
		if ev.Actor.ID != "p-1" || ev.SessionKey != "room-1" {
			t.Fatalf("connected event carries wrong identity: %+v", ev)
		}
	}
}
