package rnwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketAppendExtractRoundTrip(t *testing.T) {
	p := New()
	p.AppendUint32(uint32(TypeData))
	p.AppendUint32(42)
	p.AppendString("hello")
	p.AppendUint8(7)
	p.AppendBytes([]byte{0x01, 0x02, 0x03})

	r := FromBytes(p.Data())
	assert.Equal(t, uint32(TypeData), r.ExtractUint32())
	assert.Equal(t, uint32(42), r.ExtractUint32())
	assert.Equal(t, "hello", r.ExtractString())
	assert.Equal(t, uint8(7), r.ExtractUint8())
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, r.ExtractBytes(3))
	assert.True(t, r.EndOfPacket())
	assert.NoError(t, r.Err())
}

func TestPacketShortReadIsSticky(t *testing.T) {
	p := FromBytes([]byte{0x00, 0x01})
	got := p.ExtractUint32()
	assert.Equal(t, uint32(0), got)
	require.Error(t, p.Err())
	assert.ErrorIs(t, p.Err(), ErrShortRead)

	// Further extracts keep failing rather than reading stale state.
	assert.Nil(t, p.ExtractBytes(1))
	assert.ErrorIs(t, p.Err(), ErrShortRead)
}

func TestPacketRetagInPlace(t *testing.T) {
	p := New()
	p.AppendUint32(uint32(TypeDataMore))
	p.AppendUint32(1)
	p.AppendBytes([]byte("payload"))

	p.RetagInPlace(uint32(TypeDataTail))

	r := FromBytes(p.Data())
	assert.Equal(t, uint32(TypeDataTail), r.ExtractUint32())
	assert.Equal(t, uint32(1), r.ExtractUint32())
	assert.Equal(t, []byte("payload"), r.ExtractBytes(len("payload")))
}

func TestPacketRetagInPlaceTooShortIsNoop(t *testing.T) {
	p := New()
	p.AppendUint8(1)
	p.AppendUint8(2)
	p.RetagInPlace(uint32(TypeAcks))
	assert.Equal(t, []byte{1, 2}, p.Data())
}

func TestPacketPeekUint32DoesNotMoveCursor(t *testing.T) {
	p := New()
	p.AppendUint32(uint32(TypeHello))
	p.AppendString("s")

	v, ok := p.PeekUint32()
	require.True(t, ok)
	assert.Equal(t, uint32(TypeHello), v)

	// Cursor must be untouched: a normal extract still sees the same bytes.
	assert.Equal(t, uint32(TypeHello), p.ExtractUint32())
}

func TestPacketZeroLengthStringRoundTrips(t *testing.T) {
	p := New()
	p.AppendString("")
	r := FromBytes(p.Data())
	assert.Equal(t, "", r.ExtractString())
	assert.True(t, r.EndOfPacket())
}

func TestPacketResetClearsBufferCursorAndError(t *testing.T) {
	p := FromBytes([]byte{0x00})
	p.ExtractUint32()
	require.Error(t, p.Err())

	p.Reset()
	assert.NoError(t, p.Err())
	assert.Equal(t, 0, p.Size())
	assert.True(t, p.EndOfPacket())
}
