package rigelnet

import (
	"net"
	"time"

	"rigelnet/internal/rnconnector"
)

// DummyServer implements ServerInterface with every method a documented
// no-op: nothing ever connects, nothing is ever sent, no event is ever
// raised. Useful as a null object wherever a server is expected but
// networking is disabled for a build or a test.
type DummyServer struct{}

// NewDummyServer returns a server that never does anything.
func NewDummyServer() *DummyServer { return &DummyServer{} }

func (*DummyServer) Start(uint16) error                              { return nil }
func (*DummyServer) Stop()                                           {}
func (*DummyServer) Resize(int) error                                { return nil }
func (*DummyServer) SetTimeoutLimit(time.Duration)                   {}
func (*DummyServer) SetRetransmitPredicate(rnconnector.RetransmitPredicate) {}
func (*DummyServer) Update(UpdateMode)                               {}
func (*DummyServer) PollEvent() (Event, bool)                        { return Event{}, false }
func (*DummyServer) SwapClients(int, int) error                      { return ErrNotImplemented }
func (*DummyServer) KickClient(int) error                            { return ErrNotImplemented }
func (*DummyServer) IsRunning() bool                                 { return false }
func (*DummyServer) Size() int                                       { return 0 }
func (*DummyServer) Passphrase() string                              { return "" }
func (*DummyServer) TimeoutLimit() time.Duration                     { return 0 }
func (*DummyServer) LocalPort() uint16                               { return 0 }
func (*DummyServer) IsServer() bool                                  { return true }
func (*DummyServer) Protocol() Protocol                              { return ProtocolUDP }
func (*DummyServer) NetworkingStack() NetworkingStack                { return NetworkingStackDefault }
func (*DummyServer) Compose(int, []byte) error                       { return nil }

// DummyClient is the client-side counterpart to DummyServer. The original
// engine this module descends from left its dummy client as an
// unimplemented TODO (RN_ClientFactory::createDummyClient returned
// nullptr); this implementation completes it rather than carrying the gap
// forward.
type DummyClient struct{}

// NewDummyClient returns a client that never does anything.
func NewDummyClient() *DummyClient { return &DummyClient{} }

func (*DummyClient) Connect(uint16, *net.UDPAddr) error              { return nil }
func (*DummyClient) Disconnect(bool)                                 {}
func (*DummyClient) SetTimeoutLimit(time.Duration)                   {}
func (*DummyClient) SetRetransmitPredicate(rnconnector.RetransmitPredicate) {}
func (*DummyClient) Update(UpdateMode)                               {}
func (*DummyClient) PollEvent() (Event, bool)                        { return Event{}, false }
func (*DummyClient) IsRunning() bool                                 { return false }
func (*DummyClient) Passphrase() string                              { return "" }
func (*DummyClient) TimeoutLimit() time.Duration                     { return 0 }
func (*DummyClient) LocalPort() uint16                               { return 0 }
func (*DummyClient) IsServer() bool                                  { return false }
func (*DummyClient) Protocol() Protocol                              { return ProtocolUDP }
func (*DummyClient) NetworkingStack() NetworkingStack                { return NetworkingStackDefault }
func (*DummyClient) Compose(int, []byte) error                       { return nil }
