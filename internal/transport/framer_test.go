package transport

import (
	"testing"

	"github.com/sigurn/crc8"
)

func newTestFramer() *Framer {
	return NewFramer(crc8.MakeTable(crc8.CRC8_MAXIM))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := newTestFramer()
	payload := []byte{0x01, 0x02, 0x03}
	wire := f.EncodeCommand(7, payload)

	g := newTestFramer()
	frames := g.Feed(wire)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].CPUID != 7 {
		t.Fatalf("cpu id mismatch: got %d", frames[0].CPUID)
	}
	if string(frames[0].Payload) != string(payload) {
		t.Fatalf("payload mismatch: got %v want %v", frames[0].Payload, payload)
	}
}

func TestEscapedBytesRoundTrip(t *testing.T) {
	f := newTestFramer()
	payload := []byte{0x02, 0x03, 0x1B, 0x00, 0xFF}
	wire := f.EncodeCommand(0xAB, payload)

	g := newTestFramer()
	frames := g.Feed(wire)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if string(frames[0].Payload) != string(payload) {
		t.Fatalf("payload mismatch after escaping: got %v want %v", frames[0].Payload, payload)
	}
}

// TestMsgIDNeverEmitsZero covers the end-to-end scenario: after 255
// sends the counter wraps to 1, never 0, even across a broadcast send.
func TestMsgIDNeverEmitsZero(t *testing.T) {
	f := newTestFramer()
	var lastMsgID uint8
	for i := 0; i < 255; i++ {
		wire := f.EncodeCommand(1, []byte{0x00})
		g := newTestFramer()
		frames := g.Feed(wire)
		if len(frames) != 1 {
			t.Fatalf("iteration %d: expected 1 frame", i)
		}
		lastMsgID = frames[0].MsgID
		if lastMsgID == 0 {
			t.Fatalf("iteration %d: msg_id emitted as 0", i)
		}
	}
	if lastMsgID != 255 {
		t.Fatalf("expected msg_id 255 after 255 sends, got %d", lastMsgID)
	}

	wire := f.EncodeCommand(0xFF, []byte{0x00}) // broadcast
	g := newTestFramer()
	frames := g.Feed(wire)
	if frames[0].MsgID != 1 {
		t.Fatalf("expected wrap to 1 on broadcast send, got %d", frames[0].MsgID)
	}
}

func TestMalformedCRCIsDropped(t *testing.T) {
	f := newTestFramer()
	wire := f.EncodeCommand(3, []byte{0xAA})
	wire[len(wire)-2] ^= 0xFF // corrupt the CRC byte (before ETX)

	var reported []uint8
	g := newTestFramer()
	g.SetMalformedHandler(func(cpuID uint8, recoverable bool) {
		if recoverable {
			reported = append(reported, cpuID)
		}
	})
	frames := g.Feed(wire)
	if len(frames) != 0 {
		t.Fatalf("expected no valid frames from a corrupted CRC, got %d", len(frames))
	}
	if len(reported) != 1 || reported[0] != 3 {
		t.Fatalf("expected malformed report for recoverable cpu 3, got %v", reported)
	}
}

func TestPartialFeedAcrossCalls(t *testing.T) {
	f := newTestFramer()
	wire := f.EncodeCommand(9, []byte{0x10, 0x20, 0x30})

	g := newTestFramer()
	mid := len(wire) / 2
	if frames := g.Feed(wire[:mid]); len(frames) != 0 {
		t.Fatalf("expected no frames from a partial feed, got %d", len(frames))
	}
	frames := g.Feed(wire[mid:])
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame after the rest arrives, got %d", len(frames))
	}
	if frames[0].CPUID != 9 {
		t.Fatalf("cpu id mismatch: got %d", frames[0].CPUID)
	}
}

func TestRunawayFrameIsDroppedAndRecovers(t *testing.T) {
	g := newTestFramer()
	var globalHits int
	g.SetMalformedHandler(func(cpuID uint8, recoverable bool) {
		if !recoverable {
			globalHits++
		}
	})

	noise := make([]byte, maxFrameBody+10)
	noise[0] = 0x02 // STX, then never an ETX
	g.Feed(noise)
	if globalHits == 0 {
		t.Fatalf("expected a global malformed report for the runaway frame")
	}

	// The framer must recover and parse a well-formed frame afterward.
	f := newTestFramer()
	wire := f.EncodeCommand(5, []byte{0x01})
	frames := g.Feed(wire)
	if len(frames) != 1 || frames[0].CPUID != 5 {
		t.Fatalf("expected framer to recover after a runaway frame, got %v", frames)
	}
}
