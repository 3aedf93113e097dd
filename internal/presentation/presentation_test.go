package presentation

import (
	"testing"

	"github.com/demcon/embeddeddebugger/internal/codec"
	"github.com/demcon/embeddeddebugger/internal/cpu"
	"github.com/demcon/embeddeddebugger/internal/eventbus"
	"github.com/demcon/embeddeddebugger/internal/protocol"
	"github.com/demcon/embeddeddebugger/internal/register"
)

type stubLoader struct {
	regs []*register.Register
	err  error
}

func (s *stubLoader) Load(cpuName, applicationVersion string) ([]*register.Register, error) {
	return s.regs, s.err
}

func buildGetVersionBody(name, serial string) []byte {
	body := []byte{1, 0, 0, 0, 2, 0, 0, 0}
	body = append(body, byte(len(name)))
	body = append(body, []byte(name)...)
	body = append(body, byte(len(serial)))
	body = append(body, []byte(serial)...)
	return body
}

func TestHandleInbound_GetVersion_TriggersChannelClearAndGetInfo(t *testing.T) {
	registry := cpu.NewRegistry()
	catalog := register.NewCatalog()
	bus := eventbus.New()
	loader := &stubLoader{regs: []*register.Register{
		{Name: "reg1", Offset: 10, Direction: protocol.DirRead, VariableType: protocol.Int},
	}}
	c := New(registry, catalog, bus, loader)

	var newCPUEvents, newRegEvents int
	bus.Subscribe(eventbus.NewCPU, func(ev eventbus.Event) { newCPUEvents++ })
	bus.Subscribe(eventbus.NewRegister, func(ev eventbus.Event) { newRegEvents++ })

	payload := append([]byte{byte(protocol.CmdGetVersion)}, buildGetVersionBody("mycpu", "SN1")...)
	out := c.HandleInbound(5, payload)

	if len(out) != protocol.MaxChannels+1 {
		t.Fatalf("expected %d follow-up commands, got %d", protocol.MaxChannels+1, len(out))
	}
	for i := 0; i < protocol.MaxChannels; i++ {
		if out[i].CPUID != 5 {
			t.Fatalf("follow-up %d: expected cpu 5, got %d", i, out[i].CPUID)
		}
		if protocol.ProtocolCommand(out[i].Payload[0]) != protocol.CmdConfigChannel || out[i].Payload[1] != byte(i) || out[i].Payload[2] != byte(protocol.ChannelOff) {
			t.Fatalf("follow-up %d: expected ConfigChannel clear for slot %d, got %v", i, i, out[i].Payload)
		}
	}
	last := out[protocol.MaxChannels]
	if protocol.ProtocolCommand(last.Payload[0]) != protocol.CmdGetInfo {
		t.Fatalf("expected final follow-up to be GetInfo, got %v", last.Payload)
	}

	discovered, ok := registry.Get(5)
	if !ok || discovered.Name != "mycpu" || discovered.SerialNumber != "SN1" {
		t.Fatalf("expected cpu 5 registered as mycpu/SN1, got %+v ok=%v", discovered, ok)
	}
	if newCPUEvents != 1 {
		t.Fatalf("expected 1 NewCPU event, got %d", newCPUEvents)
	}
	if newRegEvents != 1 {
		t.Fatalf("expected 1 NewRegister event, got %d", newRegEvents)
	}
	if len(catalog.All()) != 1 || catalog.All()[0].CPUID != 5 {
		t.Fatalf("expected loaded register stamped with cpu id 5, got %+v", catalog.All())
	}
}

func TestHandleInbound_GetInfo_RecordsTypeSizes(t *testing.T) {
	registry := cpu.NewRegistry()
	target := cpu.NewCPU(1, "t", "", "", "")
	registry.Add(target)
	c := New(registry, register.NewCatalog(), eventbus.New(), nil)

	body := []byte{byte(protocol.Int), 4}
	body = append(body, protocol.RS)
	body = append(body, byte(protocol.Bool), 1)
	body = append(body, protocol.RS)
	body = append(body, byte(protocol.TimeStamp))
	body = append(body, codec.EncodeUint32(3)...)

	payload := append([]byte{byte(protocol.CmdGetInfo)}, body...)
	c.HandleInbound(1, payload)

	if size, ok := target.TypeSize(protocol.Int); !ok || size != 4 {
		t.Fatalf("expected Int size 4, got %d ok=%v", size, ok)
	}
	if size, ok := target.TypeSize(protocol.Bool); !ok || size != 1 {
		t.Fatalf("expected Bool size 1, got %d ok=%v", size, ok)
	}
	if size, ok := target.TypeSize(protocol.TimeStamp); !ok || size != 3 {
		t.Fatalf("expected TimeStamp size 3, got %d ok=%v", size, ok)
	}
}

func TestHandleInbound_QueryRegister_UpdatesValueAndPublishes(t *testing.T) {
	registry := cpu.NewRegistry()
	target := cpu.NewCPU(1, "t", "", "", "")
	registry.Add(target)
	catalog := register.NewCatalog()
	reg := &register.Register{CPUID: 1, Offset: 0x20, Direction: protocol.DirRead, VariableType: protocol.Int, Name: "r"}
	catalog.Add(reg)
	bus := eventbus.New()
	var changed int
	bus.Subscribe(eventbus.ValueChanged, func(ev eventbus.Event) { changed++ })
	c := New(registry, catalog, bus, nil)

	ctrl := protocol.EncodeControlByte(protocol.DirRead, protocol.HandWrittenOffset, 0)
	body := codec.EncodeUint32(0x20)
	body = append(body, ctrl, 4)
	body = append(body, codec.EncodeInt32(777)...)

	c.HandleInbound(1, append([]byte{byte(protocol.CmdQueryRegister)}, body...))

	v, _, has := reg.Value()
	if !has || v.I32 != 777 {
		t.Fatalf("expected value 777, got %+v has=%v", v, has)
	}
	if changed != 1 {
		t.Fatalf("expected 1 ValueChanged event, got %d", changed)
	}
}

func TestHandleInbound_ReadChannelData_HighestChannelFirst(t *testing.T) {
	registry := cpu.NewRegistry()
	target := cpu.NewCPU(1, "t", "", "", "")
	registry.Add(target)
	target.SetTypeSize(protocol.Int, 4)
	target.SetTypeSize(protocol.Short, 2)

	regA := &register.Register{CPUID: 1, Name: "a", VariableType: protocol.Int}
	regB := &register.Register{CPUID: 1, Name: "b", VariableType: protocol.Short}
	target.AddChannel(regA)
	target.AddChannel(regB)

	bus := eventbus.New()
	var changed []string
	bus.Subscribe(eventbus.ValueChanged, func(ev eventbus.Event) { changed = append(changed, ev.Register.Name) })
	c := New(registry, register.NewCatalog(), bus, nil)

	body := []byte{0x01, 0x00, 0x00} // 3-byte time = 1
	body = append(body, codec.EncodeUint16(0b11)...)
	body = append(body, codec.EncodeInt32(0x11223344)...) // regA
	body = append(body, codec.EncodeInt16(0x5566)...)     // regB

	c.HandleInbound(1, append([]byte{byte(protocol.CmdReadChannelData)}, body...))

	va, ts, has := regA.Value()
	if !has || va.I32 != 0x11223344 || ts != 1 {
		t.Fatalf("regA: unexpected value %+v ts=%d has=%v", va, ts, has)
	}
	vb, _, has := regB.Value()
	if !has || vb.I16 != 0x5566 {
		t.Fatalf("regB: unexpected value %+v has=%v", vb, has)
	}
	if len(changed) != 2 || changed[0] != "b" || changed[1] != "a" {
		t.Fatalf("expected highest-channel-first delivery order [b,a], got %v", changed)
	}
}

func TestEncodeConfigureChannel_NoFreeSlotLeavesStateUnchanged(t *testing.T) {
	registry := cpu.NewRegistry()
	target := cpu.NewCPU(1, "t", "", "", "")
	registry.Add(target)
	target.SetTypeSize(protocol.Int, 4)
	c := New(registry, register.NewCatalog(), eventbus.New(), nil)

	for i := 0; i < protocol.MaxChannels; i++ {
		reg := &register.Register{CPUID: 1, VariableType: protocol.Int, Name: "filler"}
		if _, err := c.EncodeConfigureChannel(reg, protocol.ChannelOnChange); err != nil {
			t.Fatalf("filling slot %d: unexpected error %v", i, err)
		}
	}

	overflow := &register.Register{CPUID: 1, VariableType: protocol.Int, Name: "overflow"}
	if _, err := c.EncodeConfigureChannel(overflow, protocol.ChannelOnChange); err != ErrNoChannelSlot {
		t.Fatalf("expected ErrNoChannelSlot, got %v", err)
	}
	if _, found := target.ChannelSlotOf(overflow); found {
		t.Fatalf("expected the rejected register to not occupy a slot")
	}
	if len(target.Channels()) != protocol.MaxChannels {
		t.Fatalf("expected channel count to stay at %d, got %d", protocol.MaxChannels, len(target.Channels()))
	}
}
