package rnconnector

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rigelnet/internal/rnsocket"
	"rigelnet/internal/rnwire"
)

// fakeSocket is a Sender that records every outgoing datagram instead of
// touching a real net.UDPConn and always reports StatusOK. Loss is simulated
// by the tests themselves, by draining datagrams without delivering them.
type fakeSocket struct {
	sent    [][]byte
	dropNth int // not consulted by Send
	calls   int
}

func (f *fakeSocket) Send(b []byte, _ *net.UDPAddr) rnsocket.Status {
	f.calls++
	cp := append([]byte(nil), b...)
	f.sent = append(f.sent, cp)
	return rnsocket.StatusOK
}

func (f *fakeSocket) drain() [][]byte {
	out := f.sent
	f.sent = nil
	return out
}

// recordingEvents captures every EventSink call for assertions.
type recordingEvents struct {
	connected             int
	disconnected          []DisconnectReason
	connectAttemptFailed  []FailReason
	badPassphraseReceived []string
}

func (r *recordingEvents) Connected() { r.connected++ }
func (r *recordingEvents) Disconnected(reason DisconnectReason, _ string) {
	r.disconnected = append(r.disconnected, reason)
}
func (r *recordingEvents) ConnectAttemptFailed(reason FailReason) {
	r.connectAttemptFailed = append(r.connectAttemptFailed, reason)
}
func (r *recordingEvents) BadPassphrase(received string) {
	r.badPassphraseReceived = append(r.badPassphraseReceived, received)
}

// recordingDispatcher records the raw user bytes of every dispatched
// packet, one entry per non-empty packet that reached TagReadyForUnpacking
// (a reassembled fragment group counts once). Several small appends that
// share one DATA packet on the sending side arrive as a single entry.
type recordingDispatcher struct {
	messages [][]byte
	failWith error
}

func (d *recordingDispatcher) Dispatch(mc *MessageContext) error {
	if d.failWith != nil {
		return d.failWith
	}
	// A real handler-id dispatch loop is a no-op on an already-empty
	// packet (nothing to read); mirror that so the handshake's initial
	// zero-byte DATA packets don't show up as phantom messages here.
	if mc.Packet.EndOfPacket() {
		return nil
	}
	d.messages = append(d.messages, mc.Packet.ExtractBytes(mc.Packet.RemainingSize()))
	return nil
}

type peer struct {
	conn       *Connector
	sock       *fakeSocket
	events     *recordingEvents
	dispatcher *recordingDispatcher
}

func newPeer(maxPacketSize int, passphrase string, timeout time.Duration) *peer {
	sock := &fakeSocket{}
	events := &recordingEvents{}
	c := New(Config{
		Socket:              sock,
		TimeoutLimit:        timeout,
		Passphrase:          passphrase,
		RetransmitPredicate: DefaultRetransmitPredicate,
		Events:              events,
		MaxPacketSize:       maxPacketSize,
	})
	return &peer{conn: c, sock: sock, events: events, dispatcher: &recordingDispatcher{}}
}

var addrClient = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}
var addrServer = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50000}

// deliver feeds every datagram in pkts through dst's normal receive path.
func deliver(dst *peer, pkts [][]byte) {
	for _, b := range pkts {
		dst.conn.ReceivedPacket(rnwire.FromBytes(append([]byte(nil), b...)))
	}
}

// deliverToServer is deliver's analogue for a server connector that might
// still be Disconnected and need TryAccept instead of ReceivedPacket.
func deliverToServer(server *peer, pkts [][]byte) {
	for _, b := range pkts {
		if server.conn.Status() == StatusDisconnected {
			server.conn.SetClientIndex(0)
			server.conn.TryAccept(addrClient, rnwire.FromBytes(append([]byte(nil), b...)))
			continue
		}
		server.conn.ReceivedPacket(rnwire.FromBytes(append([]byte(nil), b...)))
	}
}

// tick runs one full Receive+Send pass for both sides: client packets are
// generated first and delivered to the server, then vice versa, matching
// the wall-clock order a real pair of Nodes would observe within one tick
// boundary (handshake packets are symmetric regardless of order).
func tick(client, server *peer) {
	client.conn.PrepToReceive()
	server.conn.PrepToReceive()

	client.conn.Send()
	deliverToServer(server, client.sock.drain())

	server.conn.Send()
	deliver(client, server.sock.drain())

	for _, p := range []*peer{client, server} {
		if p.conn.Status() == StatusConnected {
			p.conn.ReceivingFinished()
			p.conn.SendAcks()
		}
		if p.conn.Status() != StatusDisconnected {
			p.conn.HandleDataMessages(0, p.dispatcher)
		}
		if p.conn.Status() != StatusDisconnected {
			p.conn.CheckForTimeout()
		}
	}
}

func connectPair(t *testing.T, maxPacketSize int, passphrase string) (client, server *peer) {
	t.Helper()
	client = newPeer(maxPacketSize, passphrase, 0)
	server = newPeer(maxPacketSize, passphrase, 0)

	client.conn.Connect(addrServer)

	for i := 0; i < 5 && (client.conn.Status() != StatusConnected || server.conn.Status() != StatusConnected); i++ {
		tick(client, server)
	}

	require.Equal(t, StatusConnected, client.conn.Status())
	require.Equal(t, StatusConnected, server.conn.Status())
	return client, server
}

func TestHandshakeReachesConnectedWithinThreeTicks(t *testing.T) {
	client := newPeer(1024, "right", 0)
	server := newPeer(1024, "right", 0)
	client.conn.Connect(addrServer)

	ticks := 0
	for ; ticks < 3; ticks++ {
		tick(client, server)
		if client.conn.Status() == StatusConnected && server.conn.Status() == StatusConnected {
			break
		}
	}

	assert.Equal(t, StatusConnected, client.conn.Status())
	assert.Equal(t, StatusConnected, server.conn.Status())
	assert.Equal(t, 1, client.events.connected)
	assert.Equal(t, 1, server.events.connected)
	assert.LessOrEqual(t, ticks, 2, "expected Connected within three ticks (0-indexed)")
}

func TestHandshakeSkipsFirstDataTickAfterConnected(t *testing.T) {
	client := newPeer(1024, "right", 0)
	server := newPeer(1024, "right", 0)

	client.conn.Connect(addrServer)
	// Append before the handshake completes: this payload rides on the very
	// first DATA packet, the same one whose arrival flips the server from
	// Accepting to Connected and arms the one-shot skip.
	client.conn.AppendToNextOutgoingPacket([]byte{0xAA})

	tick(client, server) // HELLO/CONNECT exchange; client reaches Connected
	require.Equal(t, StatusConnected, client.conn.Status())
	require.Equal(t, StatusAccepting, server.conn.Status())

	tick(client, server) // client's DATA(0xAA) arrives, server starts its session
	require.Equal(t, StatusConnected, server.conn.Status())
	assert.Empty(t, server.dispatcher.messages, "the tick that completes the handshake must not also dispatch data")

	tick(client, server) // one tick later, the buffered message is released
	require.Len(t, server.dispatcher.messages, 1)
	assert.Equal(t, []byte{0xAA}, server.dispatcher.messages[0])
}

func TestBadPassphraseEmitsEventAndResets(t *testing.T) {
	// TryAccept rejects a mismatched HELLO silently at the server, so a
	// client never observes BadPassphrase through a full handshake in this
	// implementation; exercise processConnectPacket's branch directly by
	// injecting a CONNECT whose embedded passphrase doesn't match the
	// client's own configured one.
	client := newPeer(1024, "right", 0)
	client.conn.Connect(addrServer)
	require.Equal(t, StatusConnecting, client.conn.Status())

	p := rnwire.New()
	p.AppendUint32(uint32(rnwire.TypeConnect))
	p.AppendString("totally-different")
	p.AppendUint32(0)
	client.conn.ReceivedPacket(rnwire.FromBytes(p.Data()))

	require.Len(t, client.events.badPassphraseReceived, 1)
	assert.Equal(t, "totally-different", client.events.badPassphraseReceived[0])
	assert.Equal(t, StatusDisconnected, client.conn.Status())
}

func TestSmallMessagesShareOneTailPacket(t *testing.T) {
	// appendToNextOutgoingPacket has no per-call framing of its own (that's
	// the application-level handler-id layer's job); several small appends
	// below maxPacketSize land in the same DATA tail and arrive concatenated.
	client, server := connectPair(t, 1024, "right")

	client.conn.AppendToNextOutgoingPacket([]byte{1, 2, 3, 4})
	client.conn.AppendToNextOutgoingPacket([]byte{5, 6})
	client.conn.AppendToNextOutgoingPacket([]byte{7})

	for i := 0; i < 6; i++ {
		tick(client, server)
	}

	require.Len(t, server.dispatcher.messages, 1)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7}, server.dispatcher.messages[0])
}

func TestFragmentationAcrossMultipleTails(t *testing.T) {
	client, server := connectPair(t, 100, "right")

	payload := make([]byte, 350)
	for i := range payload {
		payload[i] = byte(i)
	}
	client.conn.AppendToNextOutgoingPacket(payload)

	for i := 0; i < 6; i++ {
		tick(client, server)
	}

	require.Len(t, server.dispatcher.messages, 1)
	assert.Equal(t, payload, server.dispatcher.messages[0])
}

func TestFragmentationExactBoundaryEmitsOneDataTail(t *testing.T) {
	client, server := connectPair(t, 100, "right")

	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}
	client.conn.AppendToNextOutgoingPacket(payload)

	dataTails := 0
	for _, tp := range client.conn.sendBuffer {
		if typ, ok := tp.Packet.PeekUint32(); ok && rnwire.PacketType(typ) == rnwire.TypeDataTail {
			dataTails++
		}
	}
	assert.Equal(t, 1, dataTails)

	for i := 0; i < 4; i++ {
		tick(client, server)
	}

	require.Len(t, server.dispatcher.messages, 1)
	assert.Equal(t, payload, server.dispatcher.messages[0])
}

func TestAppendZeroBytesIsALogicError(t *testing.T) {
	client, _ := connectPair(t, 1024, "right")
	before := client.conn.SendBufferSize()

	err := client.conn.AppendToNextOutgoingPacket(nil)
	require.ErrorIs(t, err, ErrEmptyAppend)
	assert.Equal(t, before, client.conn.SendBufferSize())

	err = client.conn.AppendToNextOutgoingPacket([]byte{})
	require.ErrorIs(t, err, ErrEmptyAppend)
	assert.Equal(t, before, client.conn.SendBufferSize())
}

func TestOrdinalZeroNeverAppearsOnWire(t *testing.T) {
	client, server := connectPair(t, 1024, "right")
	client.conn.AppendToNextOutgoingPacket([]byte{0x01})

	client.conn.PrepToReceive()
	client.conn.Send()
	clientPkts := client.sock.drain()
	deliverToServer(server, clientPkts)

	server.conn.PrepToReceive()
	server.conn.Send()
	serverPkts := server.sock.drain()
	deliver(client, serverPkts)

	all := append(append([][]byte{}, clientPkts...), serverPkts...)
	require.NotEmpty(t, all)
	for _, pkt := range all {
		r := rnwire.FromBytes(pkt)
		typ := rnwire.PacketType(r.ExtractUint32())
		if typ == rnwire.TypeData || typ == rnwire.TypeDataMore || typ == rnwire.TypeDataTail {
			ordinal := r.ExtractUint32()
			assert.NotZero(t, ordinal)
		}
	}
}

func TestDuplicateDataPacketIsDroppedNotRedispatched(t *testing.T) {
	client, server := connectPair(t, 1024, "right")
	client.conn.AppendToNextOutgoingPacket([]byte{9, 9})

	server.conn.PrepToReceive()
	client.conn.PrepToReceive()
	client.conn.Send()
	pkts := client.sock.drain()
	require.NotEmpty(t, pkts)

	// Deliver the same datagram twice before the server gets a chance to ack.
	deliver(server, pkts)
	deliver(server, pkts)

	server.conn.HandleDataMessages(0, server.dispatcher)
	assert.Len(t, server.dispatcher.messages, 1)
}

func TestAckAdvancesSendBufferHead(t *testing.T) {
	client, server := connectPair(t, 1024, "right")
	client.conn.AppendToNextOutgoingPacket([]byte{1})
	client.conn.AppendToNextOutgoingPacket([]byte{2})

	sizeBefore := client.conn.SendBufferSize()
	assert.Greater(t, sizeBefore, 0)

	for i := 0; i < 5; i++ {
		tick(client, server)
	}

	// Every acked ordinal should have been shifted out of the head, leaving
	// only the fresh trailing DATA packet the protocol always keeps primed.
	assert.LessOrEqual(t, client.conn.SendBufferSize(), 1)
}

func TestRetransmitOnLossThenEventualDelivery(t *testing.T) {
	client, server := connectPair(t, 1024, "right")
	client.conn.AppendToNextOutgoingPacket([]byte{42})

	// First tick: client sends, but we simulate the datagram getting lost
	// by not delivering it to the server at all.
	client.conn.PrepToReceive()
	client.conn.Send()
	lost := client.sock.drain()
	require.NotEmpty(t, lost)

	// Force the retransmit predicate to fire immediately instead of waiting
	// on a real latency estimate, since DefaultRetransmitPredicate compares
	// against 2x an initial-zero mean latency (always true on the very next
	// pass anyway, but we pin it for test determinism).
	client.conn.retransmitPredicate = func(int, time.Duration, time.Duration) bool { return true }

	for i := 0; i < 6; i++ {
		tick(client, server)
	}

	require.Len(t, server.dispatcher.messages, 1)
	assert.Equal(t, []byte{42}, server.dispatcher.messages[0])
}

func TestTimeoutFiresWhenLimitConfigured(t *testing.T) {
	client := newPeer(1024, "right", 10*time.Millisecond)
	client.conn.Connect(addrServer)

	time.Sleep(20 * time.Millisecond)
	client.conn.CheckForTimeout()

	assert.Equal(t, StatusDisconnected, client.conn.Status())
	require.Len(t, client.events.connectAttemptFailed, 1)
	assert.Equal(t, FailReasonTimedOut, client.events.connectAttemptFailed[0])
}

func TestTimeoutNeverFiresWhenLimitIsZero(t *testing.T) {
	client, server := connectPair(t, 1024, "right")
	_ = server
	client.conn.timeoutLimit = 0
	client.conn.timeoutStopwatch = time.Now().Add(-time.Hour)
	client.conn.CheckForTimeout()
	assert.Equal(t, StatusConnected, client.conn.Status())
}

func TestResetClearsBuffersAndHeadIndices(t *testing.T) {
	client, server := connectPair(t, 1024, "right")
	client.conn.AppendToNextOutgoingPacket([]byte{1, 2, 3})
	client.conn.Disconnect(false)

	assert.Equal(t, StatusDisconnected, client.conn.Status())
	assert.Equal(t, 0, client.conn.SendBufferSize())
	assert.Equal(t, 0, client.conn.RecvBufferSize())
	assert.Equal(t, uint32(1), client.conn.sendBufferHeadIndex)
	assert.Equal(t, uint32(1), client.conn.recvBufferHeadIndex)
	_ = server
}

func TestDisconnectPacketEmitsGracefulDisconnected(t *testing.T) {
	client, server := connectPair(t, 1024, "right")

	p := rnwire.New()
	p.AppendUint32(uint32(rnwire.TypeDisconnect))
	server.conn.ReceivedPacket(rnwire.FromBytes(p.Data()))

	require.Len(t, server.events.disconnected, 1)
	assert.Equal(t, DisconnectReasonGraceful, server.events.disconnected[0])
	assert.Equal(t, StatusDisconnected, server.conn.Status())
}

func TestUnknownPacketTypeIsFatalWhileConnected(t *testing.T) {
	client, server := connectPair(t, 1024, "right")
	_ = client

	p := rnwire.New()
	p.AppendUint32(0xFFFFFFFF)
	server.conn.ReceivedPacket(rnwire.FromBytes(p.Data()))

	assert.Equal(t, StatusDisconnected, server.conn.Status())
	require.Len(t, server.events.disconnected, 1)
	assert.Equal(t, DisconnectReasonProtocolViolation, server.events.disconnected[0])
}

func TestIllegalHandlerMessageResetsConnector(t *testing.T) {
	client, server := connectPair(t, 1024, "right")
	server.dispatcher.failWith = &illegalMessageStub{}

	client.conn.AppendToNextOutgoingPacket([]byte{1})
	for i := 0; i < 3; i++ {
		tick(client, server)
	}

	assert.Equal(t, StatusDisconnected, server.conn.Status())
	require.NotEmpty(t, server.events.disconnected)
}

type illegalMessageStub struct{}

func (*illegalMessageStub) Error() string { return "illegal message" }

func TestLocalConnectionSuppressesAcks(t *testing.T) {
	server := newPeer(1024, "right", 0)
	serverAcceptor := &fakeLocalAcceptor{server: server}

	client := newPeer(1024, "right", 0)
	err := client.conn.ConnectLocal(serverAcceptor)
	require.NoError(t, err)

	assert.Equal(t, StatusConnected, client.conn.Status())
	assert.True(t, client.conn.IsConnectedLocally())

	// TryAcceptLocal armed the server's one-shot skip just like the
	// over-the-wire handshake does; burn it off before asserting dispatch.
	server.conn.HandleDataMessages(0, server.dispatcher)
	assert.Empty(t, server.dispatcher.messages)

	client.conn.AppendToNextOutgoingPacket([]byte{1, 2, 3})
	client.conn.PrepToReceive()
	client.conn.Send() // transfers to bridge directly, no socket traffic
	assert.Empty(t, client.sock.sent)

	server.conn.PrepToReceive()
	server.conn.HandleDataMessages(0, server.dispatcher)
	require.Len(t, server.dispatcher.messages, 1)
	assert.Equal(t, []byte{1, 2, 3}, server.dispatcher.messages[0])

	// Local connections never emit standalone ACKS packets.
	server.conn.SendAcks()
	assert.Empty(t, server.sock.sent)
}

func localPair(t *testing.T) (client, server *peer) {
	t.Helper()
	server = newPeer(1024, "right", 0)
	serverAcceptor := &fakeLocalAcceptor{server: server}

	client = newPeer(1024, "right", 0)
	require.NoError(t, client.conn.ConnectLocal(serverAcceptor))

	// Burn off the one-shot skip armed by TryAcceptLocal on the server side.
	server.conn.HandleDataMessages(0, server.dispatcher)
	return client, server
}

func TestLocalPeerGracefulBridgeEndDisconnectsTheOtherSide(t *testing.T) {
	client, server := localPair(t)

	client.conn.Disconnect(false)
	assert.Equal(t, StatusDisconnected, client.conn.Status())

	server.conn.PrepToReceive()
	server.conn.HandleDataMessages(0, server.dispatcher)

	assert.Equal(t, StatusDisconnected, server.conn.Status())
	require.Len(t, server.events.disconnected, 1)
	assert.Equal(t, DisconnectReasonGraceful, server.events.disconnected[0])
}

func TestLocalPeerDispatchErrorMarksBridgeEndedErrorForOtherSide(t *testing.T) {
	client, server := localPair(t)
	server.dispatcher.failWith = &illegalMessageStub{}

	client.conn.AppendToNextOutgoingPacket([]byte{1})
	client.conn.PrepToReceive()
	client.conn.Send()

	server.conn.PrepToReceive()
	server.conn.HandleDataMessages(0, server.dispatcher)

	assert.Equal(t, StatusDisconnected, server.conn.Status())
	require.Len(t, server.events.disconnected, 1)
	assert.Equal(t, DisconnectReasonProtocolViolation, server.events.disconnected[0])

	// The server's protocol-violation reset must have marked the shared
	// bridge ENDED_ERROR so the client learns its peer died abnormally,
	// not just that it hung up gracefully.
	client.conn.PrepToReceive()
	client.conn.HandleDataMessages(0, client.dispatcher)

	assert.Equal(t, StatusDisconnected, client.conn.Status())
	require.Len(t, client.events.disconnected, 1)
	assert.Equal(t, DisconnectReasonError, client.events.disconnected[0])
}

type fakeLocalAcceptor struct {
	server *peer
}

func (a *fakeLocalAcceptor) AcceptLocalConnection(clientPeerConn *Connector, passphrase string) (int, bool) {
	if !a.server.conn.TryAcceptLocal(clientPeerConn, passphrase) {
		return -1, false
	}
	return 0, true
}

func TestAckBeyondSendBufferIsIgnoredNotEscalated(t *testing.T) {
	client, _ := connectPair(t, 1024, "right")
	before := client.conn.Status()
	client.conn.receivedAck(9999, true)
	assert.Equal(t, before, client.conn.Status(), "an out-of-range ack must be silently ignored, not fatal")
}
