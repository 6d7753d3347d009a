package events

import (
	"log"
	"sync"
)

// Dispatcher is the in-process fan-out between the connection layer and the
// rest of the client. Listeners for a kind run synchronously on the emitting
// goroutine, in registration order. A panicking listener is logged and
// isolated; the remaining listeners for that emission still run.
type Dispatcher struct {
	mu        sync.Mutex
	logger    *log.Logger
	nextID    uint64
	listeners map[Kind][]listenerEntry
}

type listenerEntry struct {
	id uint64
	fn func(Payload)
}

// Subscription identifies one registered listener. Closing it removes the
// listener; closing twice is harmless.
type Subscription struct {
	dispatcher *Dispatcher
	kind       Kind
	id         uint64
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		logger:    logger,
		listeners: make(map[Kind][]listenerEntry),
	}
}

// On appends a listener for the given kind and returns its subscription.
func (d *Dispatcher) On(kind Kind, fn func(Payload)) *Subscription {
	if d == nil || fn == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.listeners[kind] = append(d.listeners[kind], listenerEntry{id: id, fn: fn})
	return &Subscription{dispatcher: d, kind: kind, id: id}
}

// Close removes the subscribed listener.
func (s *Subscription) Close() {
	if s == nil || s.dispatcher == nil {
		return
	}
	d := s.dispatcher
	d.mu.Lock()
	defer d.mu.Unlock()
	entries := d.listeners[s.kind]
	for i, entry := range entries {
		if entry.id == s.id {
			d.listeners[s.kind] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	s.dispatcher = nil
}

// Emit invokes every listener registered for the payload's kind.
func (d *Dispatcher) Emit(payload Payload) {
	if d == nil || payload == nil {
		return
	}
	kind := payload.EventKind()

	d.mu.Lock()
	entries := d.listeners[kind]
	snapshot := make([]listenerEntry, len(entries))
	copy(snapshot, entries)
	d.mu.Unlock()

	for _, entry := range snapshot {
		d.invoke(kind, entry.fn, payload)
	}
}

func (d *Dispatcher) invoke(kind Kind, fn func(Payload), payload Payload) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("listener for %s panicked: %v", kind, r)
		}
	}()
	fn(payload)
}

// ListenerCount reports how many listeners are registered for a kind.
func (d *Dispatcher) ListenerCount(kind Kind) int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners[kind])
}
