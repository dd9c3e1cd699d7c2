// Package rigelnet implements a reliable-datagram networking core: exactly
// one Server and any number of numbered Clients exchanging ordered,
// acknowledged, optionally fragmented application messages over UDP (or, in
// the same process, over an in-memory loopback bridge). There is no TCP
// fallback.
//
// A typical application constructs a HandlerRegistry, registers one
// HandlerFunc per message id, builds a Server or Client with it wired in,
// and drives Update(UpdateReceive) / Update(UpdateSend) once per tick,
// polling PollEvent in between for Connected/Disconnected/BadPassphrase/
// ConnectAttemptFailed notifications.
package rigelnet
