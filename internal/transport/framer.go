// Package transport implements the DebugProtocol V0 byte-stream framing:
// STX/ETX delimiting, byte-stuffing and CRC8 validation. It has no idea
// what a register or a command is; it moves opaque payloads in and out of
// frames.
//
// The inbound side is grounded on the diverDriver IPC server's byte-state
// machine (other_examples/5ff74ffe_muXxer-diverDriver__server.go.go):
// search for a start marker, accumulate until a terminator, validate a
// checksum, hand the body upstream.
package transport

import (
	"github.com/sigurn/crc8"

	"github.com/demcon/embeddeddebugger/internal/protocol"
)

// maxFrameBody bounds how many escaped bytes we'll buffer between an STX
// and its ETX before giving up on the frame as a runaway.
const maxFrameBody = 4096

// Frame is one fully decoded, CRC-valid inbound frame.
type Frame struct {
	MsgID   uint8
	CPUID   uint8
	Payload []byte
}

// MalformedHandler is invoked whenever Feed drops bytes instead of
// producing a Frame. recoverableCPUID is true when cpuID was readable
// from frame structure even though the frame was otherwise invalid.
type MalformedHandler func(cpuID uint8, recoverableCPUID bool)

// Framer assembles outbound frames and parses inbound bytes into Frames.
// One Framer instance belongs to one connected medium; Reset clears all
// framing state.
type Framer struct {
	table *crc8.Table

	msgID uint8

	inFrame     bool
	escapeNext  bool
	body        []byte
	onMalformed MalformedHandler

	globalInvalid uint64
}

// NewFramer builds a Framer around table. The CRC table is a constructor
// parameter (not hard-coded) so a target that disagrees on polynomial can
// be accommodated without touching the framer itself.
func NewFramer(table *crc8.Table) *Framer {
	return &Framer{table: table}
}

// SetMalformedHandler installs the callback used to report dropped
// frames. Pass nil to silence reporting.
func (f *Framer) SetMalformedHandler(h MalformedHandler) { f.onMalformed = h }

// Reset clears all in-progress framing state and restarts the outbound
// msg_id counter. The medium does not call it: Disconnect discards the
// framer and the next Connect builds a fresh one.
func (f *Framer) Reset() {
	f.msgID = 0
	f.inFrame = false
	f.escapeNext = false
	f.body = nil
}

// GlobalInvalidCount returns the number of malformed frames for which no
// cpu_id could be recovered.
func (f *Framer) GlobalInvalidCount() uint64 { return f.globalInvalid }

func (f *Framer) nextMsgID() uint8 {
	f.msgID++
	if f.msgID == 0 {
		f.msgID = 1
	}
	return f.msgID
}

func needsEscape(b byte) bool {
	return b == protocol.STX || b == protocol.ETX || b == protocol.ESC
}

func escape(body []byte) []byte {
	out := make([]byte, 0, len(body)+4)
	for _, b := range body {
		if needsEscape(b) {
			out = append(out, protocol.ESC, b^0x20)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// EncodeCommand assembles an outbound frame addressed to cpuID carrying
// payload, assigning the next msg_id. The msg_id counter never emits 0,
// even for broadcast sends to protocol.Broadcast.
func (f *Framer) EncodeCommand(cpuID uint8, payload []byte) []byte {
	msgID := f.nextMsgID()
	body := make([]byte, 0, 2+len(payload)+1)
	body = append(body, msgID, cpuID)
	body = append(body, payload...)
	crc := crc8.Checksum(body, f.table)
	body = append(body, crc)

	out := make([]byte, 0, len(body)*2+2)
	out = append(out, protocol.STX)
	out = append(out, escape(body)...)
	out = append(out, protocol.ETX)
	return out
}

// Feed processes newly-arrived bytes, returning every frame fully decoded
// as a result. Partial frames are buffered across calls.
func (f *Framer) Feed(data []byte) []Frame {
	var frames []Frame
	for _, b := range data {
		if !f.inFrame {
			if b == protocol.STX {
				f.inFrame = true
				f.escapeNext = false
				f.body = f.body[:0]
			}
			continue
		}

		switch {
		case f.escapeNext:
			f.body = append(f.body, b^0x20)
			f.escapeNext = false
		case b == protocol.ESC:
			f.escapeNext = true
		case b == protocol.ETX:
			if frame, ok := f.complete(); ok {
				frames = append(frames, frame)
			}
			f.inFrame = false
			f.body = nil
		case b == protocol.STX:
			// Orphan STX: abandon the partial frame and start a new one.
			f.reportMalformed(0, false)
			f.body = f.body[:0]
			f.escapeNext = false
		default:
			f.body = append(f.body, b)
			if len(f.body) > maxFrameBody {
				f.reportMalformed(0, false)
				f.inFrame = false
				f.body = nil
			}
		}
	}
	return frames
}

// complete validates and splits a fully de-escaped frame body
// (msg_id, cpu_id, payload..., crc).
func (f *Framer) complete() (Frame, bool) {
	if len(f.body) < 3 {
		f.reportMalformed(0, false)
		return Frame{}, false
	}
	msgID := f.body[0]
	cpuID := f.body[1]
	withoutCRC := f.body[:len(f.body)-1]
	crcByte := f.body[len(f.body)-1]
	if crc8.Checksum(withoutCRC, f.table) != crcByte {
		f.reportMalformed(cpuID, true)
		return Frame{}, false
	}
	payload := append([]byte(nil), f.body[2:len(f.body)-1]...)
	return Frame{MsgID: msgID, CPUID: cpuID, Payload: payload}, true
}

func (f *Framer) reportMalformed(cpuID uint8, recoverable bool) {
	if !recoverable {
		f.globalInvalid++
	}
	if f.onMalformed != nil {
		f.onMalformed(cpuID, recoverable)
	}
}
