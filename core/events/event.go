package events

import (
	"sync"

	"yieldsplit/core/types"
)

// Event represents a structured state change emitted by a ledger engine.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Raw adapts an already rendered payload to the Event interface.
type Raw struct {
	Payload *types.Event
}

func (r Raw) EventType() string {
	if r.Payload == nil {
		return ""
	}
	return r.Payload.Type
}

func (r Raw) Event() *types.Event { return r.Payload }

// Multi fans every event out to each non-nil emitter in order.
type Multi []Emitter

func (m Multi) Emit(evt Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}

// Recorder keeps every emitted payload in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []*types.Event
}

func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, payload.Clone())
	r.mu.Unlock()
}

// Events returns a copy of the recorded payloads.
func (r *Recorder) Events() []*types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.Event, len(r.events))
	for i, evt := range r.events {
		out[i] = evt.Clone()
	}
	return out
}

// OfType filters recorded payloads by event type.
func (r *Recorder) OfType(eventType string) []*types.Event {
	var out []*types.Event
	for _, evt := range r.Events() {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

// Buffer collects events for the operation in flight. Flush hands them to the
// downstream emitter once the operation has committed; Reset drops them.
type Buffer struct {
	pending []*types.Event
}

func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	if payload := evt.Event(); payload != nil {
		b.pending = append(b.pending, payload.Clone())
	}
}

// Len reports the number of buffered events.
func (b *Buffer) Len() int { return len(b.pending) }

// Reset discards buffered events.
func (b *Buffer) Reset() { b.pending = nil }

// Flush stamps every buffered event with the commit height and forwards it.
func (b *Buffer) Flush(height uint64, downstream Emitter) {
	pending := b.pending
	b.pending = nil
	if downstream == nil {
		return
	}
	for _, payload := range pending {
		payload.Height = height
		downstream.Emit(Raw{Payload: payload})
	}
}
