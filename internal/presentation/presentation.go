// Package presentation turns inbound frame payloads into catalog/registry
// mutations and observer events, and turns outbound command intents into
// payload byte vectors for the transport framer to wrap.
//
// Grounded on original_source/Connectors/DebugProtocolV0/PresentationLayerV0.cpp
// (receivedDebugProtocolCommand dispatch and the per-command
// received*/query*/write* methods) and, for the byte helpers, on
// original_source/Connectors/BaseInterface/Common.h.
package presentation

import (
	"errors"
	"fmt"

	"github.com/demcon/embeddeddebugger/internal/codec"
	"github.com/demcon/embeddeddebugger/internal/cpu"
	"github.com/demcon/embeddeddebugger/internal/eventbus"
	"github.com/demcon/embeddeddebugger/internal/protocol"
	"github.com/demcon/embeddeddebugger/internal/register"
)

// ErrNoChannelSlot is returned when a CPU's 16 debug-channel slots are
// all already in use.
var ErrNoChannelSlot = errors.New("presentation: no free debug channel slot")

// Write-ack status errors, published as eventbus.ErrWriteStatus events
// rather than returned to the caller: a WriteRegister failure arrives
// asynchronously, long after the call that requested the write returned.
var (
	ErrWriteInvalidAddress   = errors.New("presentation: write rejected, invalid address")
	ErrWriteNullPointerDeref = errors.New("presentation: write rejected, null pointer dereference")
	ErrWriteStatusUnknown    = errors.New("presentation: write rejected, unknown status code")
)

// Outbound is one command payload addressed to a specific CPU, ready for
// the transport framer to wrap in STX/ETX/CRC.
type Outbound struct {
	CPUID   uint8
	Payload []byte
}

// Codec holds the registry/catalog/bus a connected medium wires it to. It
// performs no I/O itself.
type Codec struct {
	registry *cpu.Registry
	catalog  *register.Catalog
	bus      *eventbus.Bus
	loader   register.Loader
}

func New(registry *cpu.Registry, catalog *register.Catalog, bus *eventbus.Bus, loader register.Loader) *Codec {
	return &Codec{registry: registry, catalog: catalog, bus: bus, loader: loader}
}

// EncodeScan builds the broadcast GetVersion every medium sends once on
// connect.
func (c *Codec) EncodeScan() Outbound {
	return Outbound{CPUID: protocol.Broadcast, Payload: []byte{byte(protocol.CmdGetVersion)}}
}

// EncodeGetInfo requests cpuID's per-type byte sizes.
func (c *Codec) EncodeGetInfo(cpuID uint8) Outbound {
	return Outbound{CPUID: cpuID, Payload: []byte{byte(protocol.CmdGetInfo)}}
}

// EncodeResetTime asks cpuID to zero its channel-time base.
func (c *Codec) EncodeResetTime(cpuID uint8) Outbound {
	return Outbound{CPUID: cpuID, Payload: []byte{byte(protocol.CmdResetTime)}}
}

// EncodeGetDecimation requests cpuID's current channel decimation factor.
func (c *Codec) EncodeGetDecimation(cpuID uint8) Outbound {
	return Outbound{CPUID: cpuID, Payload: []byte{byte(protocol.CmdDecimation)}}
}

// EncodeSetDecimation sets cpuID's channel decimation factor to d.
func (c *Codec) EncodeSetDecimation(cpuID uint8, d uint8) Outbound {
	return Outbound{CPUID: cpuID, Payload: []byte{byte(protocol.CmdDecimation), d}}
}

func (c *Codec) encodeClearChannelSlot(cpuID uint8, slot int) Outbound {
	return Outbound{CPUID: cpuID, Payload: []byte{byte(protocol.CmdConfigChannel), byte(slot), byte(protocol.ChannelOff)}}
}

// EncodeQuery builds a QueryRegister request for reg. reg's CPU must
// already have reported its GetInfo type-size table.
func (c *Codec) EncodeQuery(reg *register.Register) (Outbound, error) {
	cpuObj, ok := c.registry.Get(reg.CPUID)
	if !ok {
		return Outbound{}, fmt.Errorf("presentation: unknown cpu %d", reg.CPUID)
	}
	size, ok := cpuObj.TypeSize(reg.VariableType)
	if !ok {
		return Outbound{}, fmt.Errorf("presentation: cpu %d has not reported a size for %s", reg.CPUID, reg.VariableType)
	}
	ctrl := protocol.EncodeControlByte(reg.Direction, reg.Source, reg.DerefDepth)
	payload := []byte{byte(protocol.CmdQueryRegister)}
	payload = append(payload, codec.EncodeUint32(reg.Offset)...)
	payload = append(payload, ctrl, byte(size))
	return Outbound{CPUID: reg.CPUID, Payload: payload}, nil
}

// EncodeWrite builds a WriteRegister request carrying reg's current
// in-memory value.
func (c *Codec) EncodeWrite(reg *register.Register) (Outbound, error) {
	cpuObj, ok := c.registry.Get(reg.CPUID)
	if !ok {
		return Outbound{}, fmt.Errorf("presentation: unknown cpu %d", reg.CPUID)
	}
	size, ok := cpuObj.TypeSize(reg.VariableType)
	if !ok {
		return Outbound{}, fmt.Errorf("presentation: cpu %d has not reported a size for %s", reg.CPUID, reg.VariableType)
	}
	value, _, _ := reg.Value()
	valueBytes := value.Encode()
	if uint32(len(valueBytes)) != size {
		return Outbound{}, fmt.Errorf("presentation: value width %d does not match cpu-reported size %d", len(valueBytes), size)
	}
	ctrl := protocol.EncodeControlByte(reg.Direction, reg.Source, reg.DerefDepth)
	payload := []byte{byte(protocol.CmdWriteRegister)}
	payload = append(payload, codec.EncodeUint32(reg.Offset)...)
	payload = append(payload, ctrl, byte(size))
	payload = append(payload, valueBytes...)
	return Outbound{CPUID: reg.CPUID, Payload: payload}, nil
}

// EncodeConfigureChannel assigns or frees reg's debug-channel slot on its
// CPU. Turning a register on when every slot is already used returns
// ErrNoChannelSlot and makes no state change. Turning a register off
// frees its slot for reuse.
func (c *Codec) EncodeConfigureChannel(reg *register.Register, mode protocol.ChannelMode) (Outbound, error) {
	cpuObj, ok := c.registry.Get(reg.CPUID)
	if !ok {
		return Outbound{}, fmt.Errorf("presentation: unknown cpu %d", reg.CPUID)
	}

	if slot, found := cpuObj.ChannelSlotOf(reg); found {
		if mode == protocol.ChannelOff {
			cpuObj.RemoveChannel(reg)
		}
		reg.ChannelMode = mode
		return Outbound{CPUID: reg.CPUID, Payload: []byte{byte(protocol.CmdConfigChannel), byte(slot), byte(mode)}}, nil
	}

	if mode == protocol.ChannelOff {
		// Already off and never configured: nothing to tell the CPU.
		return Outbound{}, nil
	}

	slot, ok := cpuObj.NextChannelSlot()
	if !ok {
		return Outbound{}, ErrNoChannelSlot
	}
	size, ok := cpuObj.TypeSize(reg.VariableType)
	if !ok {
		return Outbound{}, fmt.Errorf("presentation: cpu %d has not reported a size for %s", reg.CPUID, reg.VariableType)
	}
	cpuObj.AddChannel(reg)
	reg.ChannelMode = mode
	ctrl := protocol.EncodeControlByte(reg.Direction, reg.Source, reg.DerefDepth)
	payload := []byte{byte(protocol.CmdConfigChannel), byte(slot), byte(mode)}
	payload = append(payload, codec.EncodeUint32(reg.Offset)...)
	payload = append(payload, ctrl, byte(size))
	return Outbound{CPUID: reg.CPUID, Payload: payload}, nil
}
