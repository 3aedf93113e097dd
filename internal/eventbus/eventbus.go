// Package eventbus fans observer-visible events (new CPU, new register,
// value changed, error) out to subscriber callbacks, in the order the
// core generates them.
//
// Grounded on the teacher's channel-fed breakpoint listener
// (debug_monitor.go: breakpointChan + StartBreakpointListener, now
// removed from the tree — see DESIGN.md), generalized from one fixed
// channel to a per-kind subscriber list since this engine has more than
// one event kind to fan out.
package eventbus

import (
	"sync"

	"github.com/demcon/embeddeddebugger/internal/cpu"
	"github.com/demcon/embeddeddebugger/internal/register"
)

// Kind identifies what happened.
type Kind int

const (
	NewCPU Kind = iota
	NewRegister
	ValueChanged
	ErrorEvent
)

// ErrorKind classifies an ErrorEvent, matching spec.md's error kinds.
type ErrorKind int

const (
	ErrMalformedFrame ErrorKind = iota
	ErrUnknownCPU
	ErrUnknownRegister
	ErrNoChannelSlot
	ErrWriteStatus
	ErrLoadFailed
	ErrTransport
)

// Event is one observable occurrence. Only the fields relevant to Kind
// are populated.
type Event struct {
	Kind     Kind
	CPU      *cpu.CPU
	Register *register.Register
	ErrKind  ErrorKind
	Err      error
}

// Handler receives published events. It must not block: Publish calls
// every handler synchronously, in subscription order, so that events
// from one inbound frame are observed in the order they were generated.
type Handler func(Event)

// Bus fans events out to subscribers, grouped by kind.
type Bus struct {
	mu       sync.Mutex
	handlers map[Kind][]Handler
}

func New() *Bus {
	return &Bus{handlers: make(map[Kind][]Handler)}
}

// Subscribe registers h for events of kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// SubscribeAll registers h for every event kind.
func (b *Bus) SubscribeAll(h Handler) {
	for _, k := range []Kind{NewCPU, NewRegister, ValueChanged, ErrorEvent} {
		b.Subscribe(k, h)
	}
}

// Publish delivers ev to every handler subscribed to ev.Kind.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	handlers := append([]Handler(nil), b.handlers[ev.Kind]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}
