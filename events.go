package rigelnet

import (
	"container/list"

	"rigelnet/internal/rnconnector"
)

// EventKind discriminates the Event sum type.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventConnectAttemptFailed
	EventBadPassphrase
)

// Event is a single application-facing occurrence, polled in FIFO order via
// Server.PollEvent / Client.PollEvent.
type Event struct {
	Kind EventKind

	// ClientIndex is the server-side slot index on every event kind; -1
	// on a Client, where the event always concerns the single connector to
	// the server.
	ClientIndex int

	DisconnectReason          rnconnector.DisconnectReason
	DisconnectMessage         string
	ConnectAttemptFailReason  rnconnector.FailReason
	BadPassphraseReceived     string
}

// eventQueue is a small FIFO wrapper around container/list, matching the
// original engine's std::deque<RN_Event> event queue.
type eventQueue struct {
	l *list.List
}

func newEventQueue() *eventQueue {
	return &eventQueue{l: list.New()}
}

func (q *eventQueue) push(ev Event) {
	q.l.PushBack(ev)
}

func (q *eventQueue) pop() (Event, bool) {
	front := q.l.Front()
	if front == nil {
		return Event{}, false
	}
	q.l.Remove(front)
	return front.Value.(Event), true
}

// connectionGauge is implemented optionally by a Node's Telemetry value
// (e.g. *rnmetrics.Collectors) to track the active-connections gauge. It is
// not part of rnconnector.Telemetry because the transition it counts is a
// Node-level concept (one event per handshake/teardown), not something the
// Connector itself raises as a counter.
type connectionGauge interface {
	ConnectionOpened()
	ConnectionClosed()
}

// eventFactory adapts one connector slot's EventSink calls into Event
// values pushed onto a shared Node-level queue, tagging each with the
// connector's index (-1 for a Client's single connector).
type eventFactory struct {
	queue       *eventQueue
	clientIndex int
	telemetry   rnconnector.Telemetry
}

func (f eventFactory) Connected() {
	f.queue.push(Event{Kind: EventConnected, ClientIndex: f.clientIndex})
	if g, ok := f.telemetry.(connectionGauge); ok {
		g.ConnectionOpened()
	}
}

func (f eventFactory) Disconnected(reason rnconnector.DisconnectReason, message string) {
	f.queue.push(Event{
		Kind:              EventDisconnected,
		ClientIndex:       f.clientIndex,
		DisconnectReason:  reason,
		DisconnectMessage: message,
	})
	if g, ok := f.telemetry.(connectionGauge); ok {
		g.ConnectionClosed()
	}
}

func (f eventFactory) ConnectAttemptFailed(reason rnconnector.FailReason) {
	f.queue.push(Event{
		Kind:                     EventConnectAttemptFailed,
		ClientIndex:              f.clientIndex,
		ConnectAttemptFailReason: reason,
	})
}

func (f eventFactory) BadPassphrase(received string) {
	f.queue.push(Event{
		Kind:                  EventBadPassphrase,
		ClientIndex:           f.clientIndex,
		BadPassphraseReceived: received,
	})
}
