package rnconnector

import (
	"errors"
	"net"
	"time"

	"rigelnet/internal/rnloopback"
	"rigelnet/internal/rnsocket"
	"rigelnet/internal/rnwire"
)

// ErrLocalConnectionRefused is returned by ConnectLocal when the target
// server has no free connector slot.
var ErrLocalConnectionRefused = errors.New("rnconnector: local connection refused")

// ErrEmptyAppend is returned by AppendToNextOutgoingPacket for a zero-length
// payload: appending nothing is a caller logic error, not a valid no-op.
var ErrEmptyAppend = errors.New("rnconnector: cannot append an empty message")

const uploadCounterMax = 128

// Config bundles the fixed parameters a Connector needs at construction
// time; all of it is shared across every connector of one Node.
type Config struct {
	Socket              Sender
	TimeoutLimit        time.Duration
	Passphrase          string
	RetransmitPredicate RetransmitPredicate
	Events              EventSink
	MaxPacketSize       int
	Telemetry           Telemetry
}

// Connector is one peer's reliable-transport state. A Node owns one
// Connector per client slot (a server has N, a client has exactly one).
type Connector struct {
	socket              Sender
	timeoutLimit        time.Duration
	passphrase          string
	retransmitPredicate RetransmitPredicate
	events              EventSink
	maxPacketSize       int
	telemetry           Telemetry

	status Status
	remote RemoteInfo

	clientIndex    int
	hasClientIndex bool

	sendBuffer          []TaggedPacket
	recvBuffer          []TaggedPacket
	sendBufferHeadIndex uint32
	recvBufferHeadIndex uint32
	ackOrdinals         []uint32

	skipNextDataPacketProcessing bool

	bridge     *rnloopback.Bridge
	bridgeSide rnloopback.Side

	timeoutStopwatch time.Time

	newMeanLatencyAccum   time.Duration
	newLatencySampleSize  int
	newOptimisticLatency  time.Duration
	newPessimisticLatency time.Duration
}

// New returns a fresh, Disconnected connector.
func New(cfg Config) *Connector {
	return &Connector{
		socket:              cfg.Socket,
		timeoutLimit:        cfg.TimeoutLimit,
		passphrase:          cfg.Passphrase,
		retransmitPredicate: cfg.RetransmitPredicate,
		events:              cfg.Events,
		maxPacketSize:       cfg.MaxPacketSize,
		telemetry:           cfg.Telemetry,
		status:              StatusDisconnected,
	}
}

func (c *Connector) tel() Telemetry {
	if c.telemetry == nil {
		return noopTelemetry{}
	}
	return c.telemetry
}

type noopTelemetry struct{}

func (noopTelemetry) AckOutOfRange()            {}
func (noopTelemetry) BytesSent(int)             {}
func (noopTelemetry) BytesReceived(int)         {}
func (noopTelemetry) PacketRetransmitted()       {}
func (noopTelemetry) RoundTripSample(time.Duration) {}

// --- state inspection -------------------------------------------------

func (c *Connector) Status() Status           { return c.status }
func (c *Connector) RemoteInfo() RemoteInfo   { return c.remote }
func (c *Connector) IsConnectedLocally() bool { return c.bridge != nil }
func (c *Connector) SendBufferSize() int      { return len(c.sendBuffer) }
func (c *Connector) RecvBufferSize() int      { return len(c.recvBuffer) }

func (c *Connector) ClientIndex() (int, bool) { return c.clientIndex, c.hasClientIndex }
func (c *Connector) SetClientIndex(idx int)   { c.clientIndex = idx; c.hasClientIndex = true }

// --- handshake ----------------------------------------------------------

// TryAccept processes a first datagram from an unknown sender on a
// Disconnected connector: if it is a well-formed HELLO with the right
// passphrase, the connector moves to Accepting and starts sending CONNECT
// packets back. Returns false if the packet isn't an acceptable HELLO.
func (c *Connector) TryAccept(addr *net.UDPAddr, packet *rnwire.Packet) bool {
	msgType := packet.ExtractUint32()
	receivedPassphrase := packet.ExtractString()
	if packet.Err() != nil {
		return false
	}

	if rnwire.PacketType(msgType) != rnwire.TypeHello || receivedPassphrase != c.passphrase {
		return false
	}

	c.remote = RemoteInfo{Addr: addr}
	c.status = StatusAccepting
	c.timeoutStopwatch = time.Now()
	c.resetBuffers()
	c.prepareNextOutgoingDataPacket(rnwire.TypeData)
	return true
}

// TryAcceptLocal is the loopback analogue of TryAccept, called on a
// server-side connector with the client's own connector as localPeer.
func (c *Connector) TryAcceptLocal(localPeer *Connector, passphrase string) bool {
	if passphrase != c.passphrase {
		return false
	}

	bridge := rnloopback.New()
	c.bridge = bridge
	c.bridgeSide = rnloopback.SideA
	localPeer.bridge = bridge
	localPeer.bridgeSide = rnloopback.SideB

	c.remote = RemoteInfo{Addr: loopbackAddr()}
	c.status = StatusConnected
	c.resetBuffers()
	c.prepareNextOutgoingDataPacket(rnwire.TypeData)

	c.events.Connected()
	c.startSession()

	return true
}

// Connect begins an outbound handshake as a client: moves to Connecting and
// starts sending HELLO packets to addr.
func (c *Connector) Connect(addr *net.UDPAddr) {
	c.remote = RemoteInfo{Addr: addr}
	c.status = StatusConnecting
	c.timeoutStopwatch = time.Now()
	c.resetBuffers()
	c.prepareNextOutgoingDataPacket(rnwire.TypeData)
}

// ConnectLocal connects to a Server in the same process via the loopback
// bridge rather than a real socket.
func (c *Connector) ConnectLocal(server LocalAcceptor) error {
	idx, ok := server.AcceptLocalConnection(c, c.passphrase)
	if !ok {
		return ErrLocalConnectionRefused
	}

	c.remote = RemoteInfo{Addr: loopbackAddr()}
	c.status = StatusConnected
	c.resetBuffers()
	c.prepareNextOutgoingDataPacket(rnwire.TypeData)

	c.clientIndex = idx
	c.hasClientIndex = true
	c.events.Connected()
	return nil
}

// Disconnect tears the connector down immediately. If notifyRemote is true
// and the connector was Connected over a real socket, a DISCONNECT packet
// is sent best-effort first.
func (c *Connector) Disconnect(notifyRemote bool) {
	if notifyRemote && c.status == StatusConnected && !c.IsConnectedLocally() {
		p := rnwire.New()
		p.AppendUint32(uint32(rnwire.TypeDisconnect))
		c.socket.Send(p.Data(), c.remote.Addr)
	}
	c.resetAll()
}

// CheckForTimeout resets the connector and raises the matching event once
// the timeout stopwatch has run for the configured limit. The stopwatch
// starts on Connect/TryAccept and restarts when a session starts, on every
// strong ack and on every loopback data arrival; other incoming packets do
// not restart it. A limit of zero or less, or a local connection, never
// times out.
func (c *Connector) CheckForTimeout() {
	if !c.isConnectionTimedOut() {
		return
	}

	wasHandshaking := c.status == StatusAccepting || c.status == StatusConnecting
	c.resetAll()

	if wasHandshaking {
		c.events.ConnectAttemptFailed(FailReasonTimedOut)
	} else {
		c.events.Disconnected(DisconnectReasonTimedOut, "Connection timed out")
	}
}

func (c *Connector) isConnectionTimedOut() bool {
	if c.timeoutLimit <= 0 {
		return false
	}
	if c.IsConnectedLocally() {
		return false
	}
	return time.Since(c.timeoutStopwatch) >= c.timeoutLimit
}

// --- sending --------------------------------------------------------------

// Send performs one outgoing pass: during handshake it (re)sends the
// HELLO/CONNECT packet, once Connected it flushes the send buffer (over the
// socket, or directly to the loopback bridge).
func (c *Connector) Send() {
	switch c.status {
	case StatusAccepting:
		p := rnwire.New()
		p.AppendUint32(uint32(rnwire.TypeConnect))
		p.AppendString(c.passphrase)
		p.AppendUint32(uint32(c.clientIndex))
		c.socket.Send(p.Data(), c.remote.Addr)
		c.tel().BytesSent(p.Size())

	case StatusConnecting:
		p := rnwire.New()
		p.AppendUint32(uint32(rnwire.TypeHello))
		p.AppendString(c.passphrase)
		c.socket.Send(p.Data(), c.remote.Addr)
		c.tel().BytesSent(p.Size())

	case StatusConnected:
		if c.IsConnectedLocally() {
			c.transferAllDataToLocalPeer()
		} else {
			c.uploadAllData()
		}
	}
}

func (c *Connector) uploadAllData() {
	uploadCounter := 0
	for i := range c.sendBuffer {
		tp := &c.sendBuffer[i]
		if tp.Tag == rnwire.TagAcknowledgedWeakly || tp.Tag == rnwire.TagAcknowledgedStrongly {
			continue
		}

		socketCannotSendMore := false
		if tp.Tag == rnwire.TagReadyForSending ||
			c.retransmitPredicate(tp.CyclesSinceLastTransmit, tp.elapsedSinceSent(), c.remote.MeanLatency) {

			if tp.Tag != rnwire.TagReadyForSending {
				c.tel().PacketRetransmitted()
			}

			switch c.socket.Send(tp.Packet.Data(), c.remote.Addr) {
			case rnsocket.StatusOK:
				c.tel().BytesSent(tp.Packet.Size())
			case rnsocket.StatusNotReady:
				c.tel().BytesSent(tp.Packet.Size())
				socketCannotSendMore = true
			case rnsocket.StatusDisconnected:
				c.events.Disconnected(DisconnectReasonGraceful, "Remote terminated the connection")
				c.resetAll()
				return
			}

			tp.SentAt = time.Now()
			tp.CyclesSinceLastTransmit = 0
			uploadCounter++

			if socketCannotSendMore || uploadCounter == uploadCounterMax {
				break
			}
		}

		tp.CyclesSinceLastTransmit++
		tp.Tag = rnwire.TagNotAcknowledged
	}

	c.prepareNextOutgoingDataPacket(rnwire.TypeData)
}

func (c *Connector) transferAllDataToLocalPeer() {
	c.sendBufferHeadIndex += uint32(len(c.sendBuffer))
	for _, tp := range c.sendBuffer {
		c.bridge.PutData(c.bridgeSide, tp.Packet.Data())
		c.tel().BytesSent(tp.Packet.Size())
	}
	c.sendBuffer = c.sendBuffer[:0]
	c.prepareNextOutgoingDataPacket(rnwire.TypeData)
}

// AppendToNextOutgoingPacket appends application bytes to the tail of the
// send buffer, fragmenting across DATA_MORE/DATA_TAIL packets whenever a
// single payload is at least the configured maximum packet size. Appending a
// zero-length payload is a logic error, not a silent no-op.
func (c *Connector) AppendToNextOutgoingPacket(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyAppend
	}

	if len(data) < c.maxPacketSize {
		tail := &c.sendBuffer[len(c.sendBuffer)-1]
		if tail.Packet.Size()+len(data) > c.maxPacketSize {
			c.prepareNextOutgoingDataPacket(rnwire.TypeData)
			tail = &c.sendBuffer[len(c.sendBuffer)-1]
		}
		tail.Packet.AppendBytes(data)
		return nil
	}

	// Finalize (or retag) the current tail packet before fragmenting.
	{
		tail := &c.sendBuffer[len(c.sendBuffer)-1]
		if tail.Packet.Size() >= c.maxPacketSize/2 {
			c.prepareNextOutgoingDataPacket(rnwire.TypeDataMore)
		} else {
			tail.Packet.RetagInPlace(uint32(rnwire.TypeDataMore))
		}
	}

	bytesPacked := 0
	for {
		tail := &c.sendBuffer[len(c.sendBuffer)-1]
		remainingCapacity := c.maxPacketSize - tail.Packet.Size()
		bytesToPackNow := remainingCapacity
		if rem := len(data) - bytesPacked; rem < bytesToPackNow {
			bytesToPackNow = rem
		}

		tail.Packet.AppendBytes(data[bytesPacked : bytesPacked+bytesToPackNow])
		bytesPacked += bytesToPackNow

		if bytesPacked < len(data) {
			c.prepareNextOutgoingDataPacket(rnwire.TypeDataMore)
		} else {
			break
		}
	}

	c.sendBuffer[len(c.sendBuffer)-1].Packet.RetagInPlace(uint32(rnwire.TypeDataTail))

	// Never chain a second fragmented message onto an open DATA_TAIL.
	c.prepareNextOutgoingDataPacket(rnwire.TypeData)
	return nil
}

func (c *Connector) prepareNextOutgoingDataPacket(packetType rnwire.PacketType) {
	ordinal := uint32(len(c.sendBuffer)) + c.sendBufferHeadIndex

	p := rnwire.New()
	p.AppendUint32(uint32(packetType))
	p.AppendUint32(ordinal)
	for _, ack := range c.ackOrdinals {
		p.AppendUint32(ack)
	}
	p.AppendUint32(0)
	c.ackOrdinals = c.ackOrdinals[:0]

	c.sendBuffer = append(c.sendBuffer, TaggedPacket{Packet: p, Tag: rnwire.TagReadyForSending})
}

// --- receiving --------------------------------------------------------------

// PrepToReceive resets the per-pass latency accumulator; call once per
// receive tick before feeding in any packets.
func (c *Connector) PrepToReceive() {
	c.newMeanLatencyAccum = 0
	c.newLatencySampleSize = 0
}

// ReceivedPacket routes one datagram already known to belong to this
// connector through the packet-type dispatch table.
func (c *Connector) ReceivedPacket(packet *rnwire.Packet) {
	c.tel().BytesReceived(packet.Size())
	packetType := rnwire.PacketType(packet.ExtractUint32())

	var fatal bool
	switch packetType {
	case rnwire.TypeHello:
		fatal = c.processHelloPacket()
	case rnwire.TypeConnect:
		fatal = c.processConnectPacket(packet)
	case rnwire.TypeDisconnect:
		c.processDisconnectPacket()
	case rnwire.TypeData:
		fatal = c.processDataPacket(packet, rnwire.TypeData)
	case rnwire.TypeDataMore:
		fatal = c.processDataPacket(packet, rnwire.TypeDataMore)
	case rnwire.TypeDataTail:
		fatal = c.processDataPacket(packet, rnwire.TypeDataTail)
	case rnwire.TypeAcks:
		fatal = c.processAcksPacket(packet)
	default:
		fatal = true
	}

	if fatal {
		wasConnected := c.status == StatusConnected
		c.resetAll()
		if wasConnected {
			c.events.Disconnected(DisconnectReasonProtocolViolation, "Received an unexpected packet type")
		} else {
			c.events.ConnectAttemptFailed(FailReasonError)
		}
	}
}

// ReceivingFinished closes out the latency sampling window opened by
// PrepToReceive.
func (c *Connector) ReceivingFinished() {
	if c.newLatencySampleSize > 0 {
		c.remote.MeanLatency = c.newMeanLatencyAccum / time.Duration(c.newLatencySampleSize)
		c.remote.OptimisticLatency = c.newOptimisticLatency
		c.remote.PessimisticLatency = c.newPessimisticLatency
	}
}

// SendAcks flushes any accumulated ack ordinals as a standalone ACKS packet.
func (c *Connector) SendAcks() {
	if len(c.ackOrdinals) == 0 {
		return
	}

	p := rnwire.New()
	p.AppendUint32(uint32(rnwire.TypeAcks))
	for _, ord := range c.ackOrdinals {
		p.AppendUint32(ord)
	}
	c.ackOrdinals = c.ackOrdinals[:0]

	c.socket.Send(p.Data(), c.remote.Addr)
	c.tel().BytesSent(p.Size())
}

// HandleDataMessages reassembles and dispatches every fully-received
// application packet at the head of the receive buffer, in order.
func (c *Connector) HandleDataMessages(senderIndex int, dispatcher Dispatcher) {
	if c.skipNextDataPacketProcessing {
		c.skipNextDataPacketProcessing = false
		return
	}

	if c.IsConnectedLocally() {
		for {
			data, ok := c.bridge.GetData(c.bridgeSide)
			if !ok {
				break
			}
			c.timeoutStopwatch = time.Now()
			c.ReceivedPacket(rnwire.FromBytes(data))
		}
	}

recvLoop:
	for len(c.recvBuffer) > 0 {
		c.tryToAssembleFragmentedPacketAtHead()

		switch c.recvBuffer[0].Tag {
		case rnwire.TagReadyForUnpacking:
			ctx := &MessageContext{SenderIndex: senderIndex, Packet: c.recvBuffer[0].Packet}
			if err := dispatcher.Dispatch(ctx); err != nil {
				c.events.Disconnected(DisconnectReasonProtocolViolation, err.Error())
				if c.IsConnectedLocally() {
					c.bridge.SetStatus(rnloopback.StatusEndedError)
				}
				c.resetAll()
				return
			}
			c.popRecvHead()

		case rnwire.TagUnpacked:
			c.popRecvHead()

		default:
			// WaitingForData: more fragments outstanding, stop for this
			// tick. Break rather than return, since the peer-status check
			// below must still run.
			break recvLoop
		}
	}

	// Step 5: a locally-connected connector has no socket-level timeout to
	// notice the peer vanishing, so it must poll the peer's bridge status
	// directly once per pass.
	if c.IsConnectedLocally() {
		switch c.bridge.Status() {
		case rnloopback.StatusEndedGraceful:
			c.events.Disconnected(DisconnectReasonGraceful, "Remote terminated the connection")
			c.resetAll()
		case rnloopback.StatusEndedError:
			c.events.Disconnected(DisconnectReasonError, "Remote connection ended in error")
			c.resetAll()
		}
	}
}

func (c *Connector) popRecvHead() {
	c.recvBuffer = c.recvBuffer[1:]
	c.recvBufferHeadIndex++
}

func (c *Connector) tryToAssembleFragmentedPacketAtHead() {
	if len(c.recvBuffer) == 0 || c.recvBuffer[0].Tag != rnwire.TagWaitingForMore {
		return
	}

	allFragmentsPresent := false
	tailIdx := -1
	for i, tp := range c.recvBuffer {
		switch tp.Tag {
		case rnwire.TagWaitingForData:
			return
		case rnwire.TagWaitingForMore:
			// keep scanning
		case rnwire.TagWaitingForMoreTail:
			allFragmentsPresent = true
			tailIdx = i
		default:
			return
		}
		if allFragmentsPresent {
			break
		}
	}
	if !allFragmentsPresent {
		return
	}

	for i := 1; i <= tailIdx; i++ {
		curr := &c.recvBuffer[i]
		remaining := curr.Packet.RemainingSize()
		c.recvBuffer[0].Packet.AppendBytes(curr.Packet.ExtractBytes(remaining))
		curr.Packet = rnwire.New()
		curr.Tag = rnwire.TagUnpacked
	}
	c.recvBuffer[0].Tag = rnwire.TagReadyForUnpacking
}

func (c *Connector) saveDataPacket(packet *rnwire.Packet, packetType rnwire.PacketType) {
	packetOrdinal := packet.ExtractUint32()

	if packetOrdinal < c.recvBufferHeadIndex {
		c.prepareAck(packetOrdinal)
		return
	}

	indexInBuffer := int(packetOrdinal - c.recvBufferHeadIndex)
	if indexInBuffer >= len(c.recvBuffer) {
		grown := make([]TaggedPacket, indexInBuffer+1)
		copy(grown, c.recvBuffer)
		for i := len(c.recvBuffer); i < len(grown); i++ {
			grown[i] = TaggedPacket{Packet: rnwire.New(), Tag: rnwire.TagWaitingForData}
		}
		c.recvBuffer = grown
	} else if c.recvBuffer[indexInBuffer].Tag != rnwire.TagWaitingForData {
		c.prepareAck(packetOrdinal)
		return
	}

	for {
		ackOrdinal := packet.ExtractUint32()
		if ackOrdinal == 0 {
			break
		}
		c.receivedAck(ackOrdinal, true)
	}

	c.recvBuffer[indexInBuffer].Packet = packet

	switch packetType {
	case rnwire.TypeData:
		c.recvBuffer[indexInBuffer].Tag = rnwire.TagReadyForUnpacking
	case rnwire.TypeDataMore:
		c.recvBuffer[indexInBuffer].Tag = rnwire.TagWaitingForMore
	case rnwire.TypeDataTail:
		c.recvBuffer[indexInBuffer].Tag = rnwire.TagWaitingForMoreTail
	}

	c.prepareAck(packetOrdinal)
}

func (c *Connector) prepareAck(ordinal uint32) {
	if c.IsConnectedLocally() {
		return
	}
	c.ackOrdinals = append(c.ackOrdinals, ordinal)
}

func (c *Connector) receivedAck(ordinal uint32, strong bool) {
	if ordinal < c.sendBufferHeadIndex {
		return
	}

	ind := int(ordinal - c.sendBufferHeadIndex)
	if ind >= len(c.sendBuffer) {
		c.tel().AckOutOfRange()
		return
	}

	if !strong {
		c.sendBuffer[ind].Tag = rnwire.TagAcknowledgedWeakly
		c.sendBuffer[ind].Packet = rnwire.New()
		return
	}

	timeToAck := c.sendBuffer[ind].elapsedSinceSent()
	c.newMeanLatencyAccum += timeToAck
	if c.newLatencySampleSize == 0 {
		c.newOptimisticLatency = timeToAck
		c.newPessimisticLatency = timeToAck
	} else {
		if timeToAck < c.newOptimisticLatency {
			c.newOptimisticLatency = timeToAck
		}
		if timeToAck > c.newPessimisticLatency {
			c.newPessimisticLatency = timeToAck
		}
	}
	c.newLatencySampleSize++
	c.timeoutStopwatch = time.Now()
	c.tel().RoundTripSample(timeToAck)

	c.sendBuffer[ind].Tag = rnwire.TagAcknowledgedStrongly
	c.sendBuffer[ind].Packet = rnwire.New()

	if ind == 0 {
		for len(c.sendBuffer) > 0 && c.sendBuffer[0].Tag == rnwire.TagAcknowledgedStrongly {
			c.sendBuffer = c.sendBuffer[1:]
			c.sendBufferHeadIndex++
		}
	}
}

func (c *Connector) startSession() {
	c.status = StatusConnected
	c.timeoutStopwatch = time.Now()
	// Give the application a chance to poll the Connected event before any
	// data packets are dispatched to it.
	c.skipNextDataPacketProcessing = true
}

// --- packet-type handlers ------------------------------------------------

func (c *Connector) processHelloPacket() (fatal bool) {
	switch c.status {
	case StatusConnecting:
		return true
	case StatusAccepting:
		return false
	case StatusConnected:
		return false // stray HELLO on an established connection; ignored
	default:
		return false
	}
}

func (c *Connector) processConnectPacket(packet *rnwire.Packet) (fatal bool) {
	switch c.status {
	case StatusConnecting:
		receivedPassphrase := packet.ExtractString()
		receivedClientIndex := int(packet.ExtractUint32())
		if receivedPassphrase == c.passphrase {
			c.clientIndex = receivedClientIndex
			c.hasClientIndex = true
			c.events.Connected()
			c.startSession()
		} else {
			c.events.BadPassphrase(receivedPassphrase)
			c.resetAll()
		}
		return false
	case StatusAccepting:
		return true
	default:
		return false
	}
}

func (c *Connector) processDisconnectPacket() {
	switch c.status {
	case StatusConnecting, StatusAccepting, StatusConnected:
		c.events.Disconnected(DisconnectReasonGraceful, "Remote terminated the connection")
		c.resetAll()
	}
}

func (c *Connector) processDataPacket(packet *rnwire.Packet, packetType rnwire.PacketType) (fatal bool) {
	switch c.status {
	case StatusConnecting:
		return true
	case StatusAccepting:
		c.events.Connected()
		c.startSession()
		fallthrough
	case StatusConnected:
		c.saveDataPacket(packet, packetType)
		return false
	default:
		return false
	}
}

func (c *Connector) processAcksPacket(packet *rnwire.Packet) (fatal bool) {
	switch c.status {
	case StatusConnecting, StatusAccepting:
		return true
	case StatusConnected:
		for !packet.EndOfPacket() {
			c.receivedAck(packet.ExtractUint32(), false)
		}
		return false
	default:
		return false
	}
}

// --- reset ------------------------------------------------------------

func (c *Connector) resetBuffers() {
	c.sendBuffer = nil
	c.recvBuffer = nil
	c.ackOrdinals = nil
	c.sendBufferHeadIndex = 1
	c.recvBufferHeadIndex = 1
}

func (c *Connector) resetAll() {
	c.resetBuffers()
	c.remote = RemoteInfo{}
	c.status = StatusDisconnected
	c.hasClientIndex = false
	c.clientIndex = 0

	if c.bridge != nil {
		c.bridge.SetStatus(rnloopback.StatusEndedGraceful)
		c.bridge = nil
	}
}

func loopbackAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}
