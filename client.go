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

// Client owns exactly one Connector, talking to exactly one Server.
type Client struct {
	socket              *rnsocket.Adapter
	connector           *rnconnector.Connector
	sessionID           xid.ID
	passphrase          string
	timeoutLimit        time.Duration
	retransmitPredicate rnconnector.RetransmitPredicate
	maxPacketSize       int
	running             bool
	events              *eventQueue
	registry            *HandlerRegistry
	dispatcher          *nodeDispatcher
	userData            interface{}
	telemetry           rnconnector.Telemetry
	localServer         *Server // set only when connected via ConnectLocal
}

// ClientOptions configures CreateClient.
type ClientOptions struct {
	Passphrase          string
	MaxPacketSize       int
	TimeoutLimit        time.Duration
	RetransmitPredicate rnconnector.RetransmitPredicate
	Registry            *HandlerRegistry
	Telemetry           rnconnector.Telemetry
}

// CreateClient builds a Client with its single connector Disconnected. It
// does not bind a socket or connect; call Connect or ConnectLocal for that.
func CreateClient(opts ClientOptions) (*Client, error) {
	if opts.MaxPacketSize <= 0 {
		return nil, &ConfigError{Field: "MaxPacketSize", Message: "must be greater than zero", Value: opts.MaxPacketSize}
	}
	if opts.RetransmitPredicate == nil {
		opts.RetransmitPredicate = rnconnector.DefaultRetransmitPredicate
	}
	if opts.Registry == nil {
		opts.Registry = NewHandlerRegistry()
	}

	c := &Client{
		passphrase:          opts.Passphrase,
		timeoutLimit:        opts.TimeoutLimit,
		retransmitPredicate: opts.RetransmitPredicate,
		maxPacketSize:       opts.MaxPacketSize,
		events:              newEventQueue(),
		registry:            opts.Registry,
		telemetry:           opts.Telemetry,
	}
	c.dispatcher = &nodeDispatcher{registry: c.registry, node: c}
	c.connector = rnconnector.New(rnconnector.Config{
		Socket:              socketSenderFunc(c.send),
		TimeoutLimit:        c.timeoutLimit,
		Passphrase:          c.passphrase,
		RetransmitPredicate: c.retransmitPredicate,
		Events:              eventFactory{queue: c.events, clientIndex: -1, telemetry: c.telemetry},
		MaxPacketSize:       c.maxPacketSize,
		Telemetry:           c.telemetry,
	})
	return c, nil
}

func (c *Client) send(b []byte, remote *net.UDPAddr) rnsocket.Status {
	if c.socket == nil {
		return rnsocket.StatusDisconnected
	}
	return c.socket.Send(b, remote)
}

// Connect binds a local socket (if one isn't already bound) and starts a
// handshake against the given server address.
func (c *Client) Connect(localPort uint16, serverAddr *net.UDPAddr) error {
	if c.socket == nil {
		sock, err := rnsocket.Bind(localPort)
		if err != nil {
			return err
		}
		c.socket = sock
	}
	c.running = true
	c.connector.Connect(serverAddr)
	return nil
}

// ConnectLocal connects to a Server in the same process over the loopback
// bridge, without binding any socket.
func (c *Client) ConnectLocal(server *Server) error {
	if err := c.connector.ConnectLocal(server); err != nil {
		return err
	}
	c.localServer = server
	c.running = true
	return nil
}

// Disconnect tears down the single connector, optionally notifying the
// remote first.
func (c *Client) Disconnect(notifyRemote bool) {
	if c.connector.Status() != rnconnector.StatusDisconnected {
		c.connector.Disconnect(notifyRemote)
	}
	if c.socket != nil {
		c.socket.Close()
		c.socket = nil
	}
	c.running = false
	c.localServer = nil
}

func (c *Client) SetTimeoutLimit(d time.Duration)                      { c.timeoutLimit = d }
func (c *Client) SetRetransmitPredicate(p rnconnector.RetransmitPredicate) { c.retransmitPredicate = p }

// Update runs one tick's worth of receive or send work for the connector.
func (c *Client) Update(mode UpdateMode) {
	if !c.running {
		return
	}
	switch mode {
	case UpdateReceive:
		c.updateReceive()
	case UpdateSend:
		c.connector.Send()
	}
}

func (c *Client) updateReceive() {
	c.connector.PrepToReceive()

	if !c.connector.IsConnectedLocally() && c.socket != nil {
		buf := make([]byte, c.maxPacketSize+64)
		for {
			n, remote, status := c.socket.Recv(buf)
			if status != rnsocket.StatusOK {
				break
			}
			info := c.connector.RemoteInfo()
			if info.Addr != nil && (info.Addr.Port != remote.Port || !info.Addr.IP.Equal(remote.IP)) {
				continue // not from the configured remote; drop
			}
			c.connector.ReceivedPacket(rnwire.FromBytes(append([]byte(nil), buf[:n]...)))
		}
	}

	if c.connector.Status() == rnconnector.StatusConnected {
		c.connector.ReceivingFinished()
		c.connector.SendAcks()
	}
	if c.connector.Status() != rnconnector.StatusDisconnected {
		c.connector.HandleDataMessages(-1, c.dispatcher)
	}
	if c.connector.Status() != rnconnector.StatusDisconnected {
		c.connector.CheckForTimeout()
	}
}

// PollEvent dequeues the next pending event in FIFO order.
func (c *Client) PollEvent() (Event, bool) {
	return c.events.pop()
}

// GetServerConnector exposes read-only state inspection for the single
// connector.
func (c *Client) GetServerConnector() *rnconnector.Connector { return c.connector }

func (c *Client) IsRunning() bool             { return c.running }
func (c *Client) Passphrase() string          { return c.passphrase }
func (c *Client) TimeoutLimit() time.Duration { return c.timeoutLimit }
func (c *Client) LocalPort() uint16 {
	if c.socket == nil {
		return 0
	}
	return c.socket.LocalPort()
}
func (c *Client) IsServer() bool                       { return false }
func (c *Client) Protocol() Protocol                   { return ProtocolUDP }
func (c *Client) NetworkingStack() NetworkingStack     { return NetworkingStackDefault }

// ClientIndex returns the slot index the server assigned this client, or
// false if the connector isn't Connected. Matches the original engine's
// assertion that this only makes sense once connected.
func (c *Client) ClientIndex() (int, bool) {
	if c.connector.Status() != rnconnector.StatusConnected {
		return 0, false
	}
	return c.connector.ClientIndex()
}

// Compose appends data to the single outgoing buffer toward the server. A
// ComposeForAll receiver is a silent no-op when not Connected, matching the
// original engine's asymmetric behavior between its single-receiver and
// broadcast-style compose overloads. Appending a zero-length payload is a
// logic error, propagated from rnconnector rather than swallowed.
func (c *Client) Compose(receiver int, data []byte) error {
	if receiver == ComposeForAll {
		if len(data) == 0 {
			return rnconnector.ErrEmptyAppend
		}
		if c.connector.Status() == rnconnector.StatusConnected {
			return c.connector.AppendToNextOutgoingPacket(data)
		}
		return nil
	}
	if c.connector.Status() != rnconnector.StatusConnected {
		return fmt.Errorf("rigelnet: client is not connected; cannot compose messages")
	}
	return c.connector.AppendToNextOutgoingPacket(data)
}

// --- NodeAccessor -----------------------------------------------------

func (c *Client) SenderIndex() int          { return -1 }
func (c *Client) UserData() interface{}     { return c.userData }
func (c *Client) SetUserData(v interface{}) { c.userData = v }

func (c *Client) ComposeToClient(clientIndex int, data []byte) error {
	return c.Compose(clientIndex, data)
}

func (c *Client) ComposeToAll(data []byte) {
	_ = c.Compose(ComposeForAll, data)
}
