// Package rnloopback implements the in-process bridge that lets a Client
// and Server in the same process exchange packets without touching a real
// socket, mirroring the original engine's LocalConnectionSharedState.
package rnloopback

import "sync"

// Status is the tri-state, monotonically-advancing lifecycle of one
// loopback link. Once it leaves Active it never returns.
type Status int

const (
	StatusActive Status = iota
	StatusEndedGraceful
	StatusEndedError
)

// Bridge is a mutex-protected pair of FIFO byte-slice queues connecting two
// in-process connectors. Side A writes to the A->B queue and reads from the
// B->A queue; side B does the mirror image. Both connectors hold the same
// *Bridge pointer, so either side dropping its pointer on reset leaves the
// structure valid for the other. The reference count changes only through
// explicit AddRef/Release calls, which the connectors do not make.
type Bridge struct {
	mu     sync.Mutex
	aToB   [][]byte
	bToA   [][]byte
	status Status
	refs   int
}

// New returns a fresh, active bridge with two references (one per side).
func New() *Bridge {
	return &Bridge{refs: 2}
}

// AddRef increments the reference count. Used when a side hands its handle
// to something that outlives the original owner (rare in practice, kept for
// symmetry with the ref-counted handle described for this component).
func (b *Bridge) AddRef() {
	b.mu.Lock()
	b.refs++
	b.mu.Unlock()
}

// Release decrements the reference count and reports whether this was the
// last reference.
func (b *Bridge) Release() (last bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refs--
	return b.refs <= 0
}

// Status returns the current lifecycle status.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// SetStatus advances the lifecycle status: the status is monotonic and
// always holds the maximum of its current value and s, so an escalation
// from EndedGraceful to EndedError still takes effect.
func (b *Bridge) SetStatus(s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s > b.status {
		b.status = s
	}
}

// Side selects which of the two queues a bridge operation targets.
type Side int

const (
	SideA Side = iota
	SideB
)

// PutData enqueues a packet from the given side, to be read by the other
// side. A copy is taken so the caller's buffer can be reused immediately.
func (b *Bridge) PutData(from Side, data []byte) {
	cp := append([]byte(nil), data...)
	b.mu.Lock()
	defer b.mu.Unlock()
	if from == SideA {
		b.aToB = append(b.aToB, cp)
	} else {
		b.bToA = append(b.bToA, cp)
	}
}

// GetData dequeues the next packet addressed to the given side. Returns
// (nil, false) if nothing is queued.
func (b *Bridge) GetData(to Side) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var queue *[][]byte
	if to == SideA {
		queue = &b.bToA
	} else {
		queue = &b.aToB
	}
	if len(*queue) == 0 {
		return nil, false
	}
	next := (*queue)[0]
	*queue = (*queue)[1:]
	return next, true
}
