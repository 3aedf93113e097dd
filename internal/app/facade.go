// Package app exposes the thin application-facing request API described
// in spec.md §4.4: every call builds a command intent through the active
// presentation codec and hands it to the medium to frame and send. Calls
// return as soon as the request is sent; replies surface later as
// eventbus events.
package app

import (
	"errors"

	"github.com/demcon/embeddeddebugger/internal/cpu"
	"github.com/demcon/embeddeddebugger/internal/medium"
	"github.com/demcon/embeddeddebugger/internal/protocol"
	"github.com/demcon/embeddeddebugger/internal/register"
)

// ErrNotConnected is returned by every Facade request method when the
// medium has no active presentation codec.
var ErrNotConnected = errors.New("app: medium is not connected")

// Facade is the application-facing entry point callers such as cmd/edmon
// use instead of touching the medium/presentation layers directly.
type Facade struct {
	m *medium.Medium
}

func New(m *medium.Medium) *Facade {
	return &Facade{m: m}
}

// Registry returns the discovered-CPU registry, or nil when disconnected.
func (f *Facade) Registry() *cpu.Registry {
	return f.m.Registry()
}

// Catalog returns the active register catalog, or nil when disconnected.
func (f *Facade) Catalog() *register.Catalog {
	return f.m.Catalog()
}

// Scan broadcasts a GetVersion request to discover CPUs on the bus.
func (f *Facade) Scan() error {
	codec := f.m.Codec()
	if codec == nil {
		return ErrNotConnected
	}
	out := codec.EncodeScan()
	return f.m.Send(out.CPUID, out.Payload)
}

// Query requests reg's current value from its CPU.
func (f *Facade) Query(reg *register.Register) error {
	codec := f.m.Codec()
	if codec == nil {
		return ErrNotConnected
	}
	out, err := codec.EncodeQuery(reg)
	if err != nil {
		return err
	}
	return f.m.Send(out.CPUID, out.Payload)
}

// Write pushes reg's current in-memory value to its CPU.
func (f *Facade) Write(reg *register.Register) error {
	codec := f.m.Codec()
	if codec == nil {
		return ErrNotConnected
	}
	out, err := codec.EncodeWrite(reg)
	if err != nil {
		return err
	}
	return f.m.Send(out.CPUID, out.Payload)
}

// ResetTime zeroes cpuID's channel-time base.
func (f *Facade) ResetTime(cpuID uint8) error {
	codec := f.m.Codec()
	if codec == nil {
		return ErrNotConnected
	}
	out := codec.EncodeResetTime(cpuID)
	return f.m.Send(out.CPUID, out.Payload)
}

// ConfigureChannel assigns or frees reg's debug-channel slot.
func (f *Facade) ConfigureChannel(reg *register.Register, mode protocol.ChannelMode) error {
	codec := f.m.Codec()
	if codec == nil {
		return ErrNotConnected
	}
	out, err := codec.EncodeConfigureChannel(reg, mode)
	if err != nil {
		return err
	}
	if len(out.Payload) == 0 {
		return nil
	}
	return f.m.Send(out.CPUID, out.Payload)
}

// GetDecimation requests cpuID's current channel decimation factor.
func (f *Facade) GetDecimation(cpuID uint8) error {
	codec := f.m.Codec()
	if codec == nil {
		return ErrNotConnected
	}
	out := codec.EncodeGetDecimation(cpuID)
	return f.m.Send(out.CPUID, out.Payload)
}

// SetDecimation sets cpuID's channel decimation factor.
func (f *Facade) SetDecimation(cpuID uint8, d uint8) error {
	codec := f.m.Codec()
	if codec == nil {
		return ErrNotConnected
	}
	out := codec.EncodeSetDecimation(cpuID, d)
	return f.m.Send(out.CPUID, out.Payload)
}
