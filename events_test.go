package rigelnet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rigelnet/internal/rnconnector"
)

func TestEventQueueIsFIFO(t *testing.T) {
	q := newEventQueue()
	q.push(Event{Kind: EventConnected, ClientIndex: 0})
	q.push(Event{Kind: EventConnected, ClientIndex: 1})
	q.push(Event{Kind: EventDisconnected, ClientIndex: 0})

	ev, ok := q.pop()
	assert.True(t, ok)
	assert.Equal(t, EventConnected, ev.Kind)
	assert.Equal(t, 0, ev.ClientIndex)

	ev, ok = q.pop()
	assert.True(t, ok)
	assert.Equal(t, 1, ev.ClientIndex)

	ev, ok = q.pop()
	assert.True(t, ok)
	assert.Equal(t, EventDisconnected, ev.Kind)

	_, ok = q.pop()
	assert.False(t, ok)
}

func TestEventFactoryTagsClientIndex(t *testing.T) {
	q := newEventQueue()
	f := eventFactory{queue: q, clientIndex: 7}

	f.Connected()
	f.Disconnected(rnconnector.DisconnectReasonGraceful, "bye")
	f.ConnectAttemptFailed(rnconnector.FailReasonTimedOut)
	f.BadPassphrase("wrong-pass")

	wantKinds := []EventKind{EventConnected, EventDisconnected, EventConnectAttemptFailed, EventBadPassphrase}
	for _, wantKind := range wantKinds {
		ev, ok := q.pop()
		assert.True(t, ok)
		assert.Equal(t, 7, ev.ClientIndex)
		assert.Equal(t, wantKind, ev.Kind)
	}
}

func TestEventFactoryCarriesDisconnectAndFailureDetails(t *testing.T) {
	q := newEventQueue()
	f := eventFactory{queue: q, clientIndex: -1}

	f.Disconnected(rnconnector.DisconnectReasonTimedOut, "no traffic")
	ev, ok := q.pop()
	assert.True(t, ok)
	assert.Equal(t, rnconnector.DisconnectReasonTimedOut, ev.DisconnectReason)
	assert.Equal(t, "no traffic", ev.DisconnectMessage)

	f.ConnectAttemptFailed(rnconnector.FailReasonError)
	ev, ok = q.pop()
	assert.True(t, ok)
	assert.Equal(t, rnconnector.FailReasonError, ev.ConnectAttemptFailReason)

	f.BadPassphrase("nope")
	ev, ok = q.pop()
	assert.True(t, ok)
	assert.Equal(t, "nope", ev.BadPassphraseReceived)
}
