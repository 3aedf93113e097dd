package presentation

import (
	"bytes"
	"fmt"

	"github.com/demcon/embeddeddebugger/internal/codec"
	"github.com/demcon/embeddeddebugger/internal/cpu"
	"github.com/demcon/embeddeddebugger/internal/eventbus"
	"github.com/demcon/embeddeddebugger/internal/protocol"
)

// HandleInbound decodes one inbound frame's payload, mutates the
// registry/catalog, publishes observer events, and returns any follow-up
// commands the decode itself provokes (the channel-clear + GetInfo
// sequence that follows a new CPU's GetVersion reply).
func (c *Codec) HandleInbound(cpuID uint8, payload []byte) []Outbound {
	if len(payload) == 0 {
		return nil
	}
	command := protocol.ProtocolCommand(payload[0])
	body := payload[1:]
	existing, known := c.registry.Get(cpuID)

	switch command {
	case protocol.CmdGetVersion:
		return c.handleGetVersion(cpuID, body, known)
	case protocol.CmdGetInfo:
		c.handleGetInfo(body, existing, known)
	case protocol.CmdWriteRegister:
		c.handleWriteRegister(body, existing, known)
	case protocol.CmdQueryRegister:
		c.handleQueryRegister(cpuID, body, existing, known)
	case protocol.CmdReadChannelData:
		c.handleReadChannelData(body, existing, known)
	case protocol.CmdDecimation:
		c.handleDecimation(body, existing, known)
	default:
		if known {
			existing.RecordInvalidMessage()
		}
	}
	return nil
}

func (c *Codec) handleGetVersion(cpuID uint8, body []byte, known bool) []Outbound {
	if known {
		// Late or duplicate reply for an already-discovered CPU: a
		// validly formed message, just not a new discovery.
		if existing, ok := c.registry.Get(cpuID); ok {
			existing.RecordValidMessage()
		}
		return nil
	}
	if len(body) < 9 {
		// No CPU object exists yet to charge the invalid frame to.
		return nil
	}
	protoVer := fmt.Sprintf("%d.%d.%d.%d", body[0], body[1], body[2], body[3])
	appVer := fmt.Sprintf("%d.%d.%d.%d", body[4], body[5], body[6], body[7])
	n := int(body[8])
	if len(body) < 9+n+1 {
		return nil
	}
	name := string(body[9 : 9+n])
	m := int(body[9+n])
	if len(body) < 10+n+m {
		return nil
	}
	serial := string(body[10+n : 10+n+m])

	newCPU := cpu.NewCPU(cpuID, name, serial, protoVer, appVer)
	newCPU.RecordValidMessage()
	if !c.registry.Add(newCPU) {
		return nil
	}
	c.bus.Publish(eventbus.Event{Kind: eventbus.NewCPU, CPU: newCPU})

	if c.loader != nil {
		regs, err := c.loader.Load(name, appVer)
		if err != nil {
			c.bus.Publish(eventbus.Event{Kind: eventbus.ErrorEvent, ErrKind: eventbus.ErrLoadFailed, Err: err})
		} else {
			for _, r := range regs {
				r.CPUID = cpuID
				if c.catalog.Add(r) {
					c.bus.Publish(eventbus.Event{Kind: eventbus.NewRegister, Register: r})
				}
			}
		}
	}

	out := make([]Outbound, 0, protocol.MaxChannels+1)
	for i := 0; i < protocol.MaxChannels; i++ {
		out = append(out, c.encodeClearChannelSlot(cpuID, i))
	}
	out = append(out, c.EncodeGetInfo(cpuID))
	return out
}

func (c *Codec) handleGetInfo(body []byte, existing *cpu.CPU, known bool) {
	if !known {
		return
	}
	if len(body) == 0 {
		existing.RecordInvalidMessage()
		return
	}
	malformed := false
	for _, rec := range bytes.Split(body, []byte{protocol.RS}) {
		if len(rec) == 0 {
			continue
		}
		vt := protocol.VariableType(rec[0])
		var size uint32
		if vt == protocol.TimeStamp {
			if len(rec) < 5 {
				malformed = true
				continue
			}
			size = codec.DecodeUint32(rec[1:5])
		} else {
			if len(rec) < 2 {
				malformed = true
				continue
			}
			size = uint32(rec[1])
		}
		existing.SetTypeSize(vt, size)
	}
	if malformed {
		existing.RecordInvalidMessage()
		return
	}
	existing.RecordValidMessage()
}

func (c *Codec) handleWriteRegister(body []byte, existing *cpu.CPU, known bool) {
	if !known {
		return
	}
	if len(body) != 1 {
		existing.RecordInvalidMessage()
		return
	}
	existing.RecordValidMessage()
	switch protocol.WriteStatus(body[0]) {
	case protocol.WriteOK:
	case protocol.WriteInvalidAddress:
		c.bus.Publish(eventbus.Event{Kind: eventbus.ErrorEvent, ErrKind: eventbus.ErrWriteStatus, Err: ErrWriteInvalidAddress})
	case protocol.WriteNullPointerDeref:
		c.bus.Publish(eventbus.Event{Kind: eventbus.ErrorEvent, ErrKind: eventbus.ErrWriteStatus, Err: ErrWriteNullPointerDeref})
	default:
		c.bus.Publish(eventbus.Event{Kind: eventbus.ErrorEvent, ErrKind: eventbus.ErrWriteStatus, Err: ErrWriteStatusUnknown})
	}
}

func (c *Codec) handleQueryRegister(cpuID uint8, body []byte, existing *cpu.CPU, known bool) {
	if !known {
		return
	}
	if len(body) < 6 {
		existing.RecordInvalidMessage()
		return
	}
	offset := codec.DecodeUint32(body[0:4])
	ctrl := body[4]
	size := int(body[5])
	dir, _, _ := protocol.DecodeControlByte(ctrl)

	reg, ok := c.catalog.Get(cpuID, offset, dir)
	if !ok {
		existing.RecordValidMessage()
		c.bus.Publish(eventbus.Event{Kind: eventbus.ErrorEvent, ErrKind: eventbus.ErrUnknownRegister})
		return
	}
	if len(body) < 6+size {
		existing.RecordInvalidMessage()
		return
	}
	val, err := protocol.DecodeValue(reg.VariableType, body[6:6+size])
	if err != nil {
		existing.RecordInvalidMessage()
		return
	}
	existing.RecordValidMessage()
	reg.SetValue(val)
	c.bus.Publish(eventbus.Event{Kind: eventbus.ValueChanged, Register: reg})
}

func (c *Codec) handleDecimation(body []byte, existing *cpu.CPU, known bool) {
	if !known {
		return
	}
	existing.RecordValidMessage()
	if len(body) >= 1 {
		existing.Decimation = body[0]
	}
}

func (c *Codec) handleReadChannelData(body []byte, existing *cpu.CPU, known bool) {
	if !known {
		return
	}
	if len(body) < 5 {
		existing.RecordInvalidMessage()
		return
	}
	// 3-byte little-endian channel time, zero-extended; no attempt is
	// made to recover bits lost to this narrowing (see design notes).
	timeValue := uint32(body[0]) | uint32(body[1])<<8 | uint32(body[2])<<16
	mask := codec.DecodeUint16(body[3:5])
	rest := body[5:]

	existing.RecordValidMessage()

	channels := existing.Channels()
	for i := len(channels) - 1; i >= 0; i-- {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		reg := channels[i]
		if reg == nil {
			continue
		}
		size, ok := existing.TypeSize(reg.VariableType)
		if !ok {
			continue
		}
		if uint32(len(rest)) < size {
			existing.RecordInvalidMessage()
			return
		}
		valueBytes := rest[uint32(len(rest))-size:]
		rest = rest[:uint32(len(rest))-size]
		val, err := protocol.DecodeValue(reg.VariableType, valueBytes)
		if err != nil {
			continue
		}
		reg.SetValueAndTimestamp(val, timeValue)
		c.bus.Publish(eventbus.Event{Kind: eventbus.ValueChanged, Register: reg})
	}
}
