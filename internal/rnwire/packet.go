// Package rnwire implements the wire-level packet cursor shared by every
// other RigelNet component: a length-prefixed, big-endian byte buffer with
// append/extract primitives and short-read detection.
package rnwire

import (
	"encoding/binary"
	"errors"
)

// ErrShortRead is returned by Extract* calls once the cursor has run past
// the end of the buffer. Once set it is sticky: further extracts keep
// failing until the packet is Reset.
var ErrShortRead = errors.New("rnwire: short read past end of packet")

// Packet is a growable byte buffer with an independent read cursor. Writes
// always append at the tail; reads always advance from the current cursor
// position. It is not safe for concurrent use.
type Packet struct {
	buf    []byte
	cursor int
	err    error
}

// New returns an empty packet ready for appending.
func New() *Packet {
	return &Packet{}
}

// FromBytes wraps an existing buffer for reading. The slice is taken by
// reference, not copied.
func FromBytes(b []byte) *Packet {
	return &Packet{buf: b}
}

// Reset empties the packet and clears any read error, without releasing the
// backing array.
func (p *Packet) Reset() {
	p.buf = p.buf[:0]
	p.cursor = 0
	p.err = nil
}

// Data returns the full underlying buffer (regardless of read cursor).
func (p *Packet) Data() []byte { return p.buf }

// Size returns the total number of bytes appended to the packet.
func (p *Packet) Size() int { return len(p.buf) }

// RemainingSize returns how many unread bytes are left from the cursor.
func (p *Packet) RemainingSize() int {
	if p.cursor >= len(p.buf) {
		return 0
	}
	return len(p.buf) - p.cursor
}

// EndOfPacket reports whether every byte has been consumed.
func (p *Packet) EndOfPacket() bool { return p.RemainingSize() == 0 }

// Err returns the sticky read error, if any extract ran past the end.
func (p *Packet) Err() error { return p.err }

// RetagInPlace overwrites the first 4 bytes of the buffer with a new packet
// type, without touching the rest of the payload or the read cursor. It is
// the Go analogue of the original engine's in-place retagging optimization:
// a DATA_MORE packet can be turned into a DATA_TAIL packet (or vice versa)
// without a full reallocation and recopy, since the type tag is always the
// first 4 bytes of every RigelNet packet.
func (p *Packet) RetagInPlace(tag uint32) {
	if len(p.buf) < 4 {
		return
	}
	binary.BigEndian.PutUint32(p.buf[0:4], tag)
}

// --- append side -----------------------------------------------------------

func (p *Packet) AppendBytes(b []byte) {
	p.buf = append(p.buf, b...)
}

func (p *Packet) AppendUint8(v uint8) {
	p.buf = append(p.buf, v)
}

func (p *Packet) AppendUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	p.buf = append(p.buf, tmp[:]...)
}

func (p *Packet) AppendInt32(v int32) {
	p.AppendUint32(uint32(v))
}

func (p *Packet) AppendUint16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	p.buf = append(p.buf, tmp[:]...)
}

// AppendString writes a uint16 length prefix followed by the raw bytes.
func (p *Packet) AppendString(s string) {
	p.AppendUint16(uint16(len(s)))
	p.buf = append(p.buf, s...)
}

// --- extract side ------------------------------------------------------

func (p *Packet) failShort() {
	p.err = ErrShortRead
}

// ExtractBytes consumes and returns the next n bytes. On short read it
// returns nil and leaves the cursor unchanged.
func (p *Packet) ExtractBytes(n int) []byte {
	if p.err != nil {
		return nil
	}
	if n < 0 || p.cursor+n > len(p.buf) {
		p.failShort()
		return nil
	}
	out := p.buf[p.cursor : p.cursor+n]
	p.cursor += n
	return out
}

func (p *Packet) ExtractUint8() uint8 {
	b := p.ExtractBytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (p *Packet) ExtractUint32() uint32 {
	b := p.ExtractBytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (p *Packet) ExtractInt32() int32 {
	return int32(p.ExtractUint32())
}

func (p *Packet) ExtractUint16() uint16 {
	b := p.ExtractBytes(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (p *Packet) ExtractString() string {
	n := p.ExtractUint16()
	if p.err != nil {
		return ""
	}
	b := p.ExtractBytes(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

// PeekUint32 reads the first 4 bytes of the buffer without moving the
// cursor and without being affected by Err — used to inspect a packet's
// leading type tag before deciding how to route it.
func (p *Packet) PeekUint32() (uint32, bool) {
	if len(p.buf) < 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(p.buf[0:4]), true
}
