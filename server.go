package rigelnet

import (
	"fmt"
	"net"
	"time"

	"github.com/rs/xid"

	"rigelnet/internal/rnconnector"
	"rigelnet/internal/rnsocket"
	"rigelnet/internal/rnwire"
)

// Server owns a fixed-size (growable-only) pool of connector slots, one
// socket, and a FIFO event queue shared by every slot.
type Server struct {
	socket              *rnsocket.Adapter
	clients             []*rnconnector.Connector
	sessionIDs          []xid.ID
	passphrase          string
	timeoutLimit        time.Duration
	retransmitPredicate rnconnector.RetransmitPredicate
	maxPacketSize       int
	running             bool
	events              *eventQueue
	registry            *HandlerRegistry
	dispatcher          *nodeDispatcher
	senderIndex         int
	userData            interface{}
	telemetry           rnconnector.Telemetry
}

// ServerOptions configures CreateServer.
type ServerOptions struct {
	Passphrase          string
	Size                int
	MaxPacketSize       int
	TimeoutLimit        time.Duration
	RetransmitPredicate rnconnector.RetransmitPredicate
	Registry            *HandlerRegistry
	Telemetry           rnconnector.Telemetry
}

// CreateServer builds a Server with Size pre-allocated, Disconnected
// connector slots. It does not bind a socket; call Start for that.
func CreateServer(opts ServerOptions) (*Server, error) {
	if opts.Size <= 0 {
		return nil, &ConfigError{Field: "Size", Message: "must be greater than zero", Value: opts.Size}
	}
	if opts.MaxPacketSize <= 0 {
		return nil, &ConfigError{Field: "MaxPacketSize", Message: "must be greater than zero", Value: opts.MaxPacketSize}
	}
	if opts.RetransmitPredicate == nil {
		opts.RetransmitPredicate = rnconnector.DefaultRetransmitPredicate
	}
	if opts.Registry == nil {
		opts.Registry = NewHandlerRegistry()
	}

	s := &Server{
		passphrase:          opts.Passphrase,
		timeoutLimit:        opts.TimeoutLimit,
		retransmitPredicate: opts.RetransmitPredicate,
		maxPacketSize:       opts.MaxPacketSize,
		events:              newEventQueue(),
		registry:            opts.Registry,
		senderIndex:         -1,
		telemetry:           opts.Telemetry,
	}
	s.dispatcher = &nodeDispatcher{registry: s.registry, node: s}

	for i := 0; i < opts.Size; i++ {
		s.addConnectorLocked(i)
	}

	return s, nil
}

func (s *Server) addConnectorLocked(index int) {
	s.clients = append(s.clients, rnconnector.New(rnconnector.Config{
		Socket:              socketSenderFunc(s.send),
		TimeoutLimit:        s.timeoutLimit,
		Passphrase:          s.passphrase,
		RetransmitPredicate: s.retransmitPredicate,
		Events:              eventFactory{queue: s.events, clientIndex: index, telemetry: s.telemetry},
		MaxPacketSize:       s.maxPacketSize,
		Telemetry:           s.telemetry,
	}))
	s.sessionIDs = append(s.sessionIDs, xid.ID{})
}

// socketSenderFunc lets a plain function value satisfy rnconnector.Sender.
type socketSenderFunc func(b []byte, remote *net.UDPAddr) rnsocket.Status

func (f socketSenderFunc) Send(b []byte, remote *net.UDPAddr) rnsocket.Status {
	return f(b, remote)
}

func (s *Server) send(b []byte, remote *net.UDPAddr) rnsocket.Status {
	if s.socket == nil {
		return rnsocket.StatusDisconnected
	}
	return s.socket.Send(b, remote)
}

// Start binds the server's socket to localPort. The server must not already
// be running.
func (s *Server) Start(localPort uint16) error {
	if s.running {
		return fmt.Errorf("rigelnet: server already running")
	}
	sock, err := rnsocket.Bind(localPort)
	if err != nil {
		return err
	}
	s.socket = sock
	s.running = true
	return nil
}

// Stop disconnects every connected client (without notifying them, matching
// the original engine's behavior pending a configurable policy) and closes
// the socket. Safe to call more than once.
func (s *Server) Stop() {
	for _, c := range s.clients {
		if c.Status() != rnconnector.StatusDisconnected {
			c.Disconnect(false)
		}
	}
	if s.socket != nil {
		s.socket.Close()
	}
	s.running = false
}

// Resize grows the connector pool to newSize. Shrinking is rejected, as in
// the original engine, which never implemented it.
func (s *Server) Resize(newSize int) error {
	if newSize <= len(s.clients) {
		return ErrNotImplemented
	}
	for i := len(s.clients); i < newSize; i++ {
		s.addConnectorLocked(i)
	}
	return nil
}

func (s *Server) SetTimeoutLimit(d time.Duration)                      { s.timeoutLimit = d }
func (s *Server) SetRetransmitPredicate(p rnconnector.RetransmitPredicate) { s.retransmitPredicate = p }

// Update runs one tick's worth of receive or send work across every slot.
func (s *Server) Update(mode UpdateMode) {
	if !s.running {
		return
	}
	switch mode {
	case UpdateReceive:
		s.updateReceive()
	case UpdateSend:
		s.updateSend()
	}
}

func (s *Server) updateReceive() {
	for _, c := range s.clients {
		c.PrepToReceive()
	}

	buf := make([]byte, s.maxPacketSize+64)
	for {
		n, remote, status := s.socket.Recv(buf)
		if status == rnsocket.StatusNotReady {
			break
		}
		if status == rnsocket.StatusDisconnected {
			break
		}

		idx := s.findConnector(remote)
		if idx >= 0 {
			s.senderIndex = idx
			s.clients[idx].ReceivedPacket(rnwire.FromBytes(append([]byte(nil), buf[:n]...)))
		} else {
			s.handlePacketFromUnknownSender(remote, rnwire.FromBytes(append([]byte(nil), buf[:n]...)))
		}
	}

	for i, c := range s.clients {
		if c.Status() == rnconnector.StatusConnected {
			c.ReceivingFinished()
			c.SendAcks()
		}
		if c.Status() != rnconnector.StatusDisconnected {
			s.senderIndex = i
			c.HandleDataMessages(i, s.dispatcher)
		}
		if c.Status() != rnconnector.StatusDisconnected {
			c.CheckForTimeout()
		}
	}
	s.senderIndex = -1
}

func (s *Server) updateSend() {
	for _, c := range s.clients {
		if c.Status() == rnconnector.StatusDisconnected {
			continue
		}
		c.Send()
	}
}

func (s *Server) findConnector(remote *net.UDPAddr) int {
	for i, c := range s.clients {
		info := c.RemoteInfo()
		if info.Addr == nil {
			continue
		}
		if info.Addr.Port == remote.Port && info.Addr.IP.Equal(remote.IP) {
			return i
		}
	}
	return -1
}

func (s *Server) handlePacketFromUnknownSender(remote *net.UDPAddr, packet *rnwire.Packet) {
	for i, c := range s.clients {
		if c.Status() == rnconnector.StatusDisconnected {
			c.SetClientIndex(i)
			if c.TryAccept(remote, packet) {
				s.sessionIDs[i] = xid.New()
			}
			return
		}
	}
	// No free slot: silently dropped, matching the original engine's
	// TODO-marked behavior for this case.
}

// SessionID returns the opaque, log-correlation-only identifier stamped on
// a connector slot when it last completed a handshake. It carries no wire
// meaning; a zero xid.ID means the slot has never been used.
func (s *Server) SessionID(clientIndex int) xid.ID {
	return s.sessionIDs[clientIndex]
}

// PollEvent dequeues the next pending event in FIFO order.
func (s *Server) PollEvent() (Event, bool) {
	return s.events.pop()
}

// GetClientConnector exposes read-only state inspection for one slot.
func (s *Server) GetClientConnector(index int) *rnconnector.Connector {
	return s.clients[index]
}

// SwapClients and KickClient are kept as explicit, named not-implemented
// operations rather than omitted, matching the original engine's own
// asserting stubs for these two.
func (s *Server) SwapClients(i, j int) error   { return ErrNotImplemented }
func (s *Server) KickClient(index int) error   { return ErrNotImplemented }

func (s *Server) IsRunning() bool              { return s.running }
func (s *Server) Size() int                    { return len(s.clients) }
func (s *Server) Passphrase() string           { return s.passphrase }
func (s *Server) TimeoutLimit() time.Duration  { return s.timeoutLimit }
func (s *Server) LocalPort() uint16 {
	if s.socket == nil {
		return 0
	}
	return s.socket.LocalPort()
}
func (s *Server) SenderIndexValue() int        { return s.senderIndex }
func (s *Server) IsServer() bool               { return true }
func (s *Server) Protocol() Protocol           { return ProtocolUDP }
func (s *Server) NetworkingStack() NetworkingStack { return NetworkingStackDefault }

// AcceptLocalConnection lets a same-process Client's connector attach to
// this server over the loopback bridge. It implements
// rnconnector.LocalAcceptor.
func (s *Server) AcceptLocalConnection(peer *rnconnector.Connector, passphrase string) (int, bool) {
	if !s.running {
		return -1, false
	}
	for i, c := range s.clients {
		if c.Status() == rnconnector.StatusDisconnected {
			if c.TryAcceptLocal(peer, passphrase) {
				s.sessionIDs[i] = xid.New()
				return i, true
			}
		}
	}
	return -1, false
}

// Compose appends data to the outgoing buffer for one client (or, via
// ComposeForAll, every connected client). Appending a zero-length payload
// is a logic error, propagated from rnconnector rather than swallowed.
func (s *Server) Compose(receiver int, data []byte) error {
	if receiver == ComposeForAll {
		if len(data) == 0 {
			return rnconnector.ErrEmptyAppend
		}
		s.ComposeToAll(data)
		return nil
	}
	if s.clients[receiver].Status() != rnconnector.StatusConnected {
		return fmt.Errorf("rigelnet: client %d is not connected; cannot compose messages", receiver)
	}
	return s.clients[receiver].AppendToNextOutgoingPacket(data)
}

// --- NodeAccessor -----------------------------------------------------

func (s *Server) SenderIndex() int       { return s.senderIndex }
func (s *Server) UserData() interface{}  { return s.userData }
func (s *Server) SetUserData(v interface{}) { s.userData = v }

func (s *Server) ComposeToClient(clientIndex int, data []byte) error {
	return s.Compose(clientIndex, data)
}

func (s *Server) ComposeToAll(data []byte) {
	if len(data) == 0 {
		return
	}
	for _, c := range s.clients {
		if c.Status() == rnconnector.StatusConnected {
			c.AppendToNextOutgoingPacket(data)
		}
	}
}
