// Package codec implements the little-endian scalar byte codecs and
// control-byte bit packing shared by the presentation layer. It knows
// nothing about commands or registers, only fixed-width wire shapes.
package codec

import (
	"encoding/binary"
	"math"
)

func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func DecodeBool(b []byte) bool { return b[0] != 0 }

func EncodeUint8(v uint8) []byte { return []byte{v} }

func DecodeUint8(b []byte) uint8 { return b[0] }

func EncodeInt16(v int16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))
	return b
}

func DecodeInt16(b []byte) int16 { return int16(binary.LittleEndian.Uint16(b)) }

func EncodeUint16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func DecodeUint16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

func EncodeInt32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func DecodeInt32(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) }

func EncodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func DecodeUint32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

func EncodeInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func DecodeInt64(b []byte) int64 { return int64(binary.LittleEndian.Uint64(b)) }

func EncodeFloat32(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func DecodeFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func EncodeFloat64(v float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return b
}

func DecodeFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// PackControlByte packs a control byte: bit 7 is the write flag, bits 6-4
// are the already nibble-aligned source value, bits 3-0 are the deref
// depth (only the low 4 bits are kept).
func PackControlByte(write bool, sourceNibble byte, derefDepth uint8) byte {
	var ctrl byte
	if write {
		ctrl |= 0x80
	}
	ctrl |= sourceNibble & 0x70
	ctrl |= derefDepth & 0x0F
	return ctrl
}

// UnpackControlByte is the inverse of PackControlByte.
func UnpackControlByte(ctrl byte) (write bool, sourceNibble byte, derefDepth uint8) {
	write = ctrl&0x80 != 0
	sourceNibble = ctrl & 0x70
	derefDepth = ctrl & 0x0F
	return
}
