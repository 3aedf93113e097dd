// Package protocol holds the shared DebugProtocol V0 wire vocabulary: the
// byte tags for commands, variable types, register sources and directions,
// and the typed, polymorphic register Value used throughout the stack.
package protocol

import (
	"fmt"

	"github.com/demcon/embeddeddebugger/internal/codec"
)

// Reserved framing bytes (V0).
const (
	STX byte = 0x02
	ETX byte = 0x03
	ESC byte = 0x1B
	// RS separates GetInfo type-size records.
	RS byte = 0x1E
)

// Broadcast is the cpu_id that addresses every CPU on the bus at once.
// A command sent to it never receives an acknowledged reply.
const Broadcast uint8 = 0xFF

// MaxChannels is the number of debug-channel slots a CPU exposes.
const MaxChannels = 16

// ProtocolCommand is the first byte of every debug-protocol payload.
type ProtocolCommand uint8

const (
	CmdGetVersion ProtocolCommand = iota
	CmdGetInfo
	CmdWriteRegister
	CmdQueryRegister
	CmdConfigChannel
	CmdDecimation
	CmdReadChannelData
	CmdResetTime
)

// Direction is a register's read/write capability, and the control byte's
// direction bit.
type Direction uint8

const (
	DirUnknown Direction = iota
	DirRead
	DirWrite
)

func DirectionFromString(s string) Direction {
	switch s {
	case "Read":
		return DirRead
	case "Write":
		return DirWrite
	default:
		return DirUnknown
	}
}

// Source describes how a register's address is resolved on the target.
// Values are the control byte's high nibble.
type Source uint8

const (
	HandWrittenOffset  Source = 0x00
	HandWrittenIndex   Source = 0x10
	SimulinkCApiOffset Source = 0x40
	SimulinkCApiIndex  Source = 0x50
	AbsoluteAddress    Source = 0x70
	SourceUnknown      Source = 0xF0
)

// SourceFromString parses the register-catalog "Source" field.
//
// SimulinkCApiIndex maps to 0x50, not to HandWrittenIndex: the original
// implementation's string table did that, which is a bug (see spec
// REDESIGN FLAGS); it is not replicated here.
func SourceFromString(s string) Source {
	switch s {
	case "HandWrittenOffset":
		return HandWrittenOffset
	case "HandWrittenIndex":
		return HandWrittenIndex
	case "SimulinkCApiOffset":
		return SimulinkCApiOffset
	case "SimulinkCApiIndex":
		return SimulinkCApiIndex
	case "AbsoluteAddress":
		return AbsoluteAddress
	default:
		return SourceUnknown
	}
}

// VariableType tags a register's wire-level scalar type. Byte sizes for
// these tags are not fixed: they are discovered per CPU via GetInfo.
type VariableType uint8

const (
	MemoryAlignment VariableType = 0x0
	Pointer         VariableType = 0x1
	Bool            VariableType = 0x2
	Char            VariableType = 0x3
	Short           VariableType = 0x4
	Int             VariableType = 0x5
	Long            VariableType = 0x6
	Float           VariableType = 0x7
	Double          VariableType = 0x8
	LongDouble      VariableType = 0x9
	TimeStamp       VariableType = 0xA
	VarTypeUnknown  VariableType = 0xFF
)

func (vt VariableType) String() string {
	switch vt {
	case MemoryAlignment:
		return "MemoryAlignment"
	case Pointer:
		return "Pointer"
	case Bool:
		return "Bool"
	case Char:
		return "Char"
	case Short:
		return "Short"
	case Int:
		return "Int"
	case Long:
		return "Long"
	case Float:
		return "Float"
	case Double:
		return "Double"
	case LongDouble:
		return "LongDouble"
	case TimeStamp:
		return "TimeStamp"
	default:
		return "Unknown"
	}
}

// VariableTypeFromString parses the register-catalog "Type" field. The
// catalog distinguishes signed/unsigned C types that the wire tag does not;
// both map onto the same VariableType.
//
// "long double" maps to Double, not LongDouble: the original
// implementation's variableTypeFromString does the same (Register.cpp),
// and LongDouble/0x9 is only ever reached via GetInfo's wire tag, never
// via catalog-string parsing. Mapping it to the distinct LongDouble tag
// here would make such a register's TypeSize lookup permanently fail,
// since no firmware ever reports a LongDouble GetInfo record.
func VariableTypeFromString(s string) VariableType {
	switch s {
	case "pointer":
		return Pointer
	case "bool":
		return Bool
	case "int8_t", "uint8_t":
		return Char
	case "int16_t", "uint16_t":
		return Short
	case "int32_t", "uint32_t":
		return Int
	case "int64_t", "uint64_t":
		return Long
	case "float":
		return Float
	case "double", "long double":
		return Double
	default:
		return VarTypeUnknown
	}
}

// ChannelMode controls whether and how a register streams on its debug
// channel.
type ChannelMode uint8

const (
	ChannelOff      ChannelMode = 0
	ChannelOnChange ChannelMode = 1
	ChannelLowSpeed ChannelMode = 2
	ChannelOnce     ChannelMode = 3
)

// WriteStatus is the single status byte a WriteRegister ack carries.
type WriteStatus uint8

const (
	WriteOK                WriteStatus = 0x00
	WriteInvalidAddress    WriteStatus = 0x01
	WriteNullPointerDeref  WriteStatus = 0x02
	WriteStatusUnknownCode WriteStatus = 0xFF
)

// EncodeControlByte packs direction, source and deref-depth into one byte:
// bit 7 direction, bits 6-4 source, bits 3-0 deref depth.
func EncodeControlByte(dir Direction, src Source, derefDepth uint8) byte {
	write := dir == DirWrite
	return codec.PackControlByte(write, byte(src), derefDepth)
}

// DecodeControlByte is the inverse of EncodeControlByte. The decoded
// source is returned as the raw high-nibble value; compare against the
// Source constants.
func DecodeControlByte(ctrl byte) (dir Direction, src Source, derefDepth uint8) {
	write, srcNibble, depth := codec.UnpackControlByte(ctrl)
	if write {
		dir = DirWrite
	} else {
		dir = DirRead
	}
	return dir, Source(srcNibble), depth
}

// ValueKind tags the tagged-union Value. LongDouble narrows to F64,
// matching the source implementation's behavior (documented narrowing).
type ValueKind uint8

const (
	KindBool ValueKind = iota
	KindU8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
)

// Value is a decoded register value: a small closed tagged union instead
// of an interface{}, so encode/decode stays exhaustive and allocation-free.
type Value struct {
	Kind ValueKind
	Bool bool
	U8   uint8
	I16  int16
	I32  int32
	I64  int64
	F32  float32
	F64  float64

	// Width overrides KindI64's natural 8-byte wire width. Zero means
	// "use the 8-byte default"; Pointer-typed values set this to the
	// byte width the owning CPU's GetInfo actually reported (4 or 8),
	// since Pointer has no dedicated Kind of its own and narrows into
	// KindI64.
	Width uint8
}

// kindFor maps a VariableType onto the Value kind used to hold it.
// MemoryAlignment, TimeStamp and unknown tags never appear as a register's
// own value type; they describe the type-size table itself.
func kindFor(vt VariableType) (ValueKind, bool) {
	switch vt {
	case Bool:
		return KindBool, true
	case Char:
		return KindU8, true
	case Short:
		return KindI16, true
	case Int:
		return KindI32, true
	case Long:
		return KindI64, true
	case Float:
		return KindF32, true
	case Double, LongDouble:
		return KindF64, true
	case Pointer:
		// No dedicated pointer kind in the Value union (see design notes);
		// narrow into KindI64 and carry the discovered byte width in
		// Value.Width so Encode can re-emit it at the right size.
		return KindI64, true
	default:
		return 0, false
	}
}

// DecodeValue decodes data (exactly the wire-reported size for this
// register) into a typed Value per vt.
func DecodeValue(vt VariableType, data []byte) (Value, error) {
	kind, ok := kindFor(vt)
	if !ok {
		return Value{}, fmt.Errorf("protocol: variable type %s has no decodable value kind", vt)
	}
	if vt == Pointer {
		switch len(data) {
		case 4:
			return Value{Kind: KindI64, I64: int64(codec.DecodeUint32(data)), Width: 4}, nil
		case 8:
			return Value{Kind: KindI64, I64: codec.DecodeInt64(data), Width: 8}, nil
		default:
			return Value{}, fmt.Errorf("protocol: unsupported pointer width %d", len(data))
		}
	}
	switch kind {
	case KindBool:
		if len(data) < 1 {
			return Value{}, fmt.Errorf("protocol: short bool value")
		}
		return Value{Kind: KindBool, Bool: codec.DecodeBool(data)}, nil
	case KindU8:
		if len(data) < 1 {
			return Value{}, fmt.Errorf("protocol: short u8 value")
		}
		return Value{Kind: KindU8, U8: codec.DecodeUint8(data)}, nil
	case KindI16:
		if len(data) < 2 {
			return Value{}, fmt.Errorf("protocol: short i16 value")
		}
		return Value{Kind: KindI16, I16: codec.DecodeInt16(data)}, nil
	case KindI32:
		if len(data) < 4 {
			return Value{}, fmt.Errorf("protocol: short i32 value")
		}
		return Value{Kind: KindI32, I32: codec.DecodeInt32(data)}, nil
	case KindI64:
		if len(data) < 8 {
			return Value{}, fmt.Errorf("protocol: short i64 value")
		}
		return Value{Kind: KindI64, I64: codec.DecodeInt64(data)}, nil
	case KindF32:
		if len(data) < 4 {
			return Value{}, fmt.Errorf("protocol: short f32 value")
		}
		return Value{Kind: KindF32, F32: codec.DecodeFloat32(data)}, nil
	case KindF64:
		if len(data) < 8 {
			return Value{}, fmt.Errorf("protocol: short f64 value")
		}
		return Value{Kind: KindF64, F64: codec.DecodeFloat64(data)}, nil
	}
	return Value{}, fmt.Errorf("protocol: unhandled kind %d", kind)
}

// Encode serializes v back to its wire width. KindI64 honors Width (set
// by DecodeValue for Pointer values) so a 4-byte pointer round-trips as
// 4 bytes instead of always re-emitting 8.
func (v Value) Encode() []byte {
	switch v.Kind {
	case KindBool:
		return codec.EncodeBool(v.Bool)
	case KindU8:
		return codec.EncodeUint8(v.U8)
	case KindI16:
		return codec.EncodeInt16(v.I16)
	case KindI32:
		return codec.EncodeInt32(v.I32)
	case KindI64:
		if v.Width == 4 {
			return codec.EncodeUint32(uint32(v.I64))
		}
		return codec.EncodeInt64(v.I64)
	case KindF32:
		return codec.EncodeFloat32(v.F32)
	case KindF64:
		return codec.EncodeFloat64(v.F64)
	default:
		return nil
	}
}
