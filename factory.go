package rigelnet

import (
	"fmt"
	"net"
	"time"

	"rigelnet/internal/rnconnector"
)

// ServerInterface is the full surface application code drives a server
// through, implemented by both *Server and *DummyServer.
type ServerInterface interface {
	Start(localPort uint16) error
	Stop()
	Resize(newSize int) error
	SetTimeoutLimit(d time.Duration)
	SetRetransmitPredicate(p rnconnector.RetransmitPredicate)
	Update(mode UpdateMode)
	PollEvent() (Event, bool)
	SwapClients(i, j int) error
	KickClient(index int) error
	IsRunning() bool
	Size() int
	Passphrase() string
	TimeoutLimit() time.Duration
	LocalPort() uint16
	IsServer() bool
	Protocol() Protocol
	NetworkingStack() NetworkingStack
	Compose(receiver int, data []byte) error
}

// ClientInterface is the full surface application code drives a client
// through, implemented by both *Client and *DummyClient.
type ClientInterface interface {
	Connect(localPort uint16, serverAddr *net.UDPAddr) error
	Disconnect(notifyRemote bool)
	SetTimeoutLimit(d time.Duration)
	SetRetransmitPredicate(p rnconnector.RetransmitPredicate)
	Update(mode UpdateMode)
	PollEvent() (Event, bool)
	IsRunning() bool
	Passphrase() string
	TimeoutLimit() time.Duration
	LocalPort() uint16
	IsServer() bool
	Protocol() Protocol
	NetworkingStack() NetworkingStack
	Compose(receiver int, data []byte) error
}

var (
	_ ServerInterface = (*Server)(nil)
	_ ServerInterface = (*DummyServer)(nil)
	_ ClientInterface = (*Client)(nil)
	_ ClientInterface = (*DummyClient)(nil)
)

// NewServer builds a server for the given protocol. Only ProtocolUDP is
// implemented; ProtocolTCP exists as a named, clearly-erroring choice
// rather than being silently absent, matching the original engine's
// factory, which only ever grew the UDP branch.
func NewServer(protocol Protocol, opts ServerOptions) (ServerInterface, error) {
	switch protocol {
	case ProtocolUDP:
		return CreateServer(opts)
	case ProtocolTCP:
		return nil, fmt.Errorf("rigelnet: TCP server not implemented")
	default:
		return nil, fmt.Errorf("rigelnet: unknown protocol %v", protocol)
	}
}

// NewClient builds a client for the given protocol. See NewServer.
func NewClient(protocol Protocol, opts ClientOptions) (ClientInterface, error) {
	switch protocol {
	case ProtocolUDP:
		return CreateClient(opts)
	case ProtocolTCP:
		return nil, fmt.Errorf("rigelnet: TCP client not implemented")
	default:
		return nil, fmt.Errorf("rigelnet: unknown protocol %v", protocol)
	}
}
