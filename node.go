package rigelnet

// Protocol identifies the transport a Node was built for. UDP is the only
// one implemented; TCP is named so callers attempting to select it get a
// clear error rather than a missing symbol, matching the original engine's
// factory, which only ever grew a UDP implementation.
type Protocol int

const (
	ProtocolUDP Protocol = iota
	ProtocolTCP
)

// NetworkingStack selects the underlying socket implementation a Node's
// sockets are built on. NetworkingStackDefault is the only concrete backend this
// repository implements; the type is kept as a real selection point (rather
// than collapsed away) because the engine this module descends from
// supported swapping in an alternative stack at this exact seam.
type NetworkingStack int

const (
	NetworkingStackDefault NetworkingStack = iota
)

// UpdateMode selects which half of a tick Update performs.
type UpdateMode int

const (
	UpdateReceive UpdateMode = iota
	UpdateSend
)

// ComposeForAll is passed to Server.Compose to address every connected
// client in one call, mirroring the original engine's FOR_ALL sentinel.
const ComposeForAll = -1
