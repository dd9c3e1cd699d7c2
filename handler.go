package rigelnet

import (
	"sync"

	"rigelnet/internal/rnconnector"
	"rigelnet/internal/rnwire"
)

// NodeAccessor is the capability surface a registered HandlerFunc gets
// through Context.Node: enough to find out who sent the current message and
// to compose a reply, without exposing the whole Server/Client type.
type NodeAccessor interface {
	IsServer() bool
	SenderIndex() int
	UserData() interface{}
	SetUserData(data interface{})
	ComposeToClient(clientIndex int, data []byte) error
	ComposeToAll(data []byte)
}

// HandlerFunc is invoked once per handler id found in an incoming data
// message. It reads any further arguments it expects directly off
// ctx.Packet.
type HandlerFunc func(ctx *Context) error

// Context is passed to a HandlerFunc for exactly one handler invocation.
type Context struct {
	Node        NodeAccessor
	SenderIndex int
	Packet      *rnwire.Packet
}

// HandlerRegistry maps handler ids to callbacks. It is the external
// collaborator the Connector's data-dispatch loop consumes: RigelNet's core
// never decides what a message means, only that a registered id exists.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[uint32]HandlerFunc
}

// NewHandlerRegistry returns an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[uint32]HandlerFunc)}
}

// Register binds id to fn, replacing any previous handler for that id.
func (r *HandlerRegistry) Register(id uint32, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = fn
}

func (r *HandlerRegistry) lookup(id uint32) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[id]
	return fn, ok
}

// nodeDispatcher adapts a HandlerRegistry plus a concrete Node into the
// rnconnector.Dispatcher interface a Connector's data-dispatch loop needs.
type nodeDispatcher struct {
	registry *HandlerRegistry
	node     NodeAccessor
}

func (d *nodeDispatcher) Dispatch(mc *rnconnector.MessageContext) error {
	for !mc.Packet.EndOfPacket() {
		id := mc.Packet.ExtractUint32()
		if mc.Packet.Err() != nil {
			return mc.Packet.Err()
		}

		fn, ok := d.registry.lookup(id)
		if !ok {
			return &ProtocolError{Message: "requested handler does not exist", Fatal: true}
		}

		ctx := &Context{Node: d.node, SenderIndex: mc.SenderIndex, Packet: mc.Packet}
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}
