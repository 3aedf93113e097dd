package codec

import "testing"

func TestScalarRoundTrip(t *testing.T) {
	if got := DecodeBool(EncodeBool(true)); got != true {
		t.Fatalf("bool round trip: got %v", got)
	}
	if got := DecodeUint8(EncodeUint8(200)); got != 200 {
		t.Fatalf("uint8 round trip: got %v", got)
	}
	if got := DecodeInt16(EncodeInt16(-1234)); got != -1234 {
		t.Fatalf("int16 round trip: got %v", got)
	}
	if got := DecodeUint16(EncodeUint16(60000)); got != 60000 {
		t.Fatalf("uint16 round trip: got %v", got)
	}
	if got := DecodeInt32(EncodeInt32(-123456789)); got != -123456789 {
		t.Fatalf("int32 round trip: got %v", got)
	}
	if got := DecodeUint32(EncodeUint32(4000000000)); got != 4000000000 {
		t.Fatalf("uint32 round trip: got %v", got)
	}
	if got := DecodeInt64(EncodeInt64(-123456789012345)); got != -123456789012345 {
		t.Fatalf("int64 round trip: got %v", got)
	}
	if got := DecodeFloat32(EncodeFloat32(3.5)); got != 3.5 {
		t.Fatalf("float32 round trip: got %v", got)
	}
	if got := DecodeFloat64(EncodeFloat64(-2.25)); got != -2.25 {
		t.Fatalf("float64 round trip: got %v", got)
	}
}

func TestControlByteRoundTrip(t *testing.T) {
	cases := []struct {
		write  bool
		source byte
		depth  uint8
	}{
		{false, 0x00, 0},
		{true, 0x10, 3},
		{false, 0x40, 15},
		{true, 0x50, 7},
		{false, 0x70, 1},
	}
	for _, c := range cases {
		ctrl := PackControlByte(c.write, c.source, c.depth)
		gotWrite, gotSource, gotDepth := UnpackControlByte(ctrl)
		if gotWrite != c.write || gotSource != c.source || gotDepth != c.depth {
			t.Fatalf("control byte round trip mismatch: want %+v, got write=%v source=0x%x depth=%d",
				c, gotWrite, gotSource, gotDepth)
		}
	}
}

func TestLittleEndianByteOrder(t *testing.T) {
	b := EncodeUint32(0x04030201)
	want := []byte{0x01, 0x02, 0x03, 0x04}
	for i := range want {
		if b[i] != want[i] {
			t.Fatalf("byte order mismatch at %d: got %x want %x", i, b[i], want[i])
		}
	}
}
