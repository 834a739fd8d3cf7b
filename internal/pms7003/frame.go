// Package pms7003 reads and decodes telemetry frames from a Plantower
// PMS7003 particulate-matter sensor attached to a serial port.
//
// The sensor transmits fixed 32-byte frames: a two-byte header (0x42
// 0x4D), a big-endian frame length, thirteen big-endian measurement
// fields, a reserved field, and a trailing 16-bit checksum equal to the
// low 16 bits of the sum of the preceding 30 bytes. The serial stream
// carries no other framing, so the decoder must find frame boundaries
// itself: a candidate whose header does not match slides the window by
// a single byte, which regains lock after arbitrary byte loss or
// insertion on the wire.
package pms7003

import "encoding/binary"

// FrameSize is the fixed size of a PMS7003 frame: 2 header bytes plus a
// 30-byte body ending in the checksum.
const FrameSize = 32

// Header sentinel bytes ('B', 'M').
const (
	HeaderHigh = 0x42
	HeaderLow  = 0x4D
)

// Reading is one decoded, checksum-validated frame. Concentrations are
// in µg/m³; particle counts are per 0.1 L of air. CF1 fields use the
// factory calibration, Atm fields the atmospheric-environment one.
type Reading struct {
	HeaderHigh  uint8
	HeaderLow   uint8
	FrameLength uint16

	PM1CF1  uint16
	PM25CF1 uint16
	PM10CF1 uint16
	PM1Atm  uint16
	PM25Atm uint16
	PM10Atm uint16

	Count03um  uint16 // particles > 0.3 µm
	Count05um  uint16 // particles > 0.5 µm
	Count10um  uint16 // particles > 1.0 µm
	Count25um  uint16 // particles > 2.5 µm
	Count50um  uint16 // particles > 5.0 µm
	Count100um uint16 // particles > 10 µm

	Reserved uint16
	Checksum uint16
}

// DecodeResult reports the outcome of a single Decode attempt.
type DecodeResult int

const (
	// NeedMore means the buffer holds less than a full frame; nothing
	// was consumed and the caller must read more bytes before retrying.
	NeedMore DecodeResult = iota

	// Resync means the front of the buffer is not a frame start; one
	// byte was consumed and the caller should retry at the next offset.
	Resync

	// BadChecksum means a frame with a valid header failed checksum
	// verification; all 32 bytes were consumed.
	BadChecksum

	// FrameOK means a valid frame was decoded; all 32 bytes were
	// consumed.
	FrameOK
)

func (r DecodeResult) String() string {
	switch r {
	case NeedMore:
		return "need-more"
	case Resync:
		return "resync"
	case BadChecksum:
		return "bad-checksum"
	case FrameOK:
		return "frame-ok"
	default:
		return "unknown"
	}
}

// checksum16 returns the low 16 bits of the byte-wise sum of b.
func checksum16(b []byte) uint16 {
	var sum uint32
	for _, c := range b {
		sum += uint32(c)
	}
	return uint16(sum)
}

// Decode attempts to extract the next frame from the front of buf. It
// never mutates buf; the returned count is how many leading bytes the
// caller must drop before the next attempt. A Reading is returned only
// with FrameOK.
func Decode(buf []byte) (Reading, int, DecodeResult) {
	if len(buf) < FrameSize {
		return Reading{}, 0, NeedMore
	}

	if buf[0] != HeaderHigh || buf[1] != HeaderLow {
		// Not a frame start; slide one byte so an embedded header a
		// few bytes in is not skipped over.
		return Reading{}, 1, Resync
	}

	sent := binary.BigEndian.Uint16(buf[FrameSize-2 : FrameSize])
	if checksum16(buf[:FrameSize-2]) != sent {
		// Valid header but corrupt body: discard the whole candidate.
		return Reading{}, FrameSize, BadChecksum
	}

	r := Reading{
		HeaderHigh:  buf[0],
		HeaderLow:   buf[1],
		FrameLength: binary.BigEndian.Uint16(buf[2:4]),
		PM1CF1:      binary.BigEndian.Uint16(buf[4:6]),
		PM25CF1:     binary.BigEndian.Uint16(buf[6:8]),
		PM10CF1:     binary.BigEndian.Uint16(buf[8:10]),
		PM1Atm:      binary.BigEndian.Uint16(buf[10:12]),
		PM25Atm:     binary.BigEndian.Uint16(buf[12:14]),
		PM10Atm:     binary.BigEndian.Uint16(buf[14:16]),
		Count03um:   binary.BigEndian.Uint16(buf[16:18]),
		Count05um:   binary.BigEndian.Uint16(buf[18:20]),
		Count10um:   binary.BigEndian.Uint16(buf[20:22]),
		Count25um:   binary.BigEndian.Uint16(buf[22:24]),
		Count50um:   binary.BigEndian.Uint16(buf[24:26]),
		Count100um:  binary.BigEndian.Uint16(buf[26:28]),
		Reserved:    binary.BigEndian.Uint16(buf[28:30]),
		Checksum:    sent,
	}
	return r, FrameSize, FrameOK
}
