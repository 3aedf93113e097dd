// Package register models a single debugger register and the per-medium
// catalog of known registers, keyed the way the wire protocol addresses
// them: (cpu_id, offset, direction).
package register

import (
	"sync"

	"github.com/demcon/embeddeddebugger/internal/protocol"
)

// Register is one entry from a CPU's register catalog, plus whatever
// live value/timestamp the medium has observed for it so far.
//
// A Register does not hold a handle back to its owning CPU; callers
// resolve (cpu_id, offset, direction) through the registry/catalog
// instead, so register and cpu never need to import each other.
type Register struct {
	mu sync.Mutex

	ID           uint32
	CPUID        uint8
	Name         string
	Direction    protocol.Direction
	VariableType protocol.VariableType
	Source       protocol.Source
	DerefDepth   uint8
	Offset       uint32
	ChannelMode  protocol.ChannelMode

	value     protocol.Value
	timestamp uint32
	hasValue  bool
}

// Key identifies a register the way the wire protocol does.
type Key struct {
	CPUID     uint8
	Offset    uint32
	Direction protocol.Direction
}

func (r *Register) Key() Key {
	return Key{CPUID: r.CPUID, Offset: r.Offset, Direction: r.Direction}
}

// SetValue records a freshly queried or written value without touching
// the timestamp (QueryRegister replies carry no timestamp of their own).
func (r *Register) SetValue(v protocol.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = v
	r.hasValue = true
}

// SetValueAndTimestamp records a channel-streamed value along with the
// channel time it arrived at.
func (r *Register) SetValueAndTimestamp(v protocol.Value, ts uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = v
	r.timestamp = ts
	r.hasValue = true
}

// Value returns the last observed value and whether one has ever arrived.
func (r *Register) Value() (protocol.Value, uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value, r.timestamp, r.hasValue
}
