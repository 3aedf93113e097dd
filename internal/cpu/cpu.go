// Package cpu models a discovered target CPU: its identity, its per-type
// byte-size table (discovered via GetInfo), its message counters, and its
// fixed-size debug-channel slot list.
//
// Grounded on the original implementation's Cpu class (see
// original_source/EmbeddedDebugger/Medium/CPU/Cpu.h) and, for the
// registry shape, on the teacher's MachineMonitor CPU bookkeeping
// (debug_monitor.go, now removed from the tree — see DESIGN.md).
package cpu

import (
	"sync"

	"github.com/demcon/embeddeddebugger/internal/protocol"
	"github.com/demcon/embeddeddebugger/internal/register"
)

// CPU is one target discovered on the bus.
type CPU struct {
	mu sync.Mutex

	ID                 uint8
	Name               string
	SerialNumber       string
	ProtocolVersion    string
	ApplicationVersion string
	Decimation         uint8

	messageCounter        uint64
	invalidMessageCounter uint64

	typeSizes map[protocol.VariableType]uint32
	channels  []*register.Register
}

// NewCPU builds a CPU as it exists the instant its GetVersion reply is
// parsed: identity known, nothing else populated yet.
func NewCPU(id uint8, name, serial, protocolVersion, applicationVersion string) *CPU {
	return &CPU{
		ID:                 id,
		Name:               name,
		SerialNumber:       serial,
		ProtocolVersion:    protocolVersion,
		ApplicationVersion: applicationVersion,
		typeSizes:          make(map[protocol.VariableType]uint32),
	}
}

// RecordValidMessage counts one well-formed inbound frame from this CPU.
func (c *CPU) RecordValidMessage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messageCounter++
}

// RecordInvalidMessage counts one malformed inbound frame. It bumps the
// total counter too: invalid_message_counter is always <= message_counter.
func (c *CPU) RecordInvalidMessage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messageCounter++
	c.invalidMessageCounter++
}

func (c *CPU) Counters() (total, invalid uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messageCounter, c.invalidMessageCounter
}

// SetTypeSize records the byte width GetInfo reported for vt on this CPU.
func (c *CPU) SetTypeSize(vt protocol.VariableType, size uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typeSizes[vt] = size
}

// TypeSize returns the byte width this CPU reported for vt, if known.
func (c *CPU) TypeSize(vt protocol.VariableType) (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	size, ok := c.typeSizes[vt]
	return size, ok
}

// Channels returns a snapshot of the debug-channel slot list, in slot
// order; index i is slot i.
func (c *CPU) Channels() []*register.Register {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*register.Register, len(c.channels))
	copy(out, c.channels)
	return out
}

// NextChannelSlot returns the slot a new channel would occupy, and false
// if every slot is already in use.
func (c *CPU) NextChannelSlot() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.channels) >= protocol.MaxChannels {
		return 0, false
	}
	return len(c.channels), true
}

// AddChannel appends reg to the channel list, returning its slot index.
// Callers must check NextChannelSlot first; AddChannel does not itself
// enforce the MaxChannels bound so callers can't get a partially-applied
// state on a rejected add.
func (c *CPU) AddChannel(reg *register.Register) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels = append(c.channels, reg)
	return len(c.channels) - 1
}

// ChannelSlotOf returns reg's current slot, if it is configured.
func (c *CPU) ChannelSlotOf(reg *register.Register) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.channels {
		if r == reg {
			return i, true
		}
	}
	return 0, false
}

// RemoveChannel drops reg from the channel list, collapsing the
// remaining slots so indices stay contiguous from 0.
func (c *CPU) RemoveChannel(reg *register.Register) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.channels {
		if r == reg {
			c.channels = append(c.channels[:i], c.channels[i+1:]...)
			return i, true
		}
	}
	return 0, false
}
