package callback

// MessageHandler receives one datagram. The slice is only valid for the
// duration of the call.
type MessageHandler func(data []byte)

// StatusHandler receives a human readable reason for an error or a close.
type StatusHandler func(reason string)

// HostSocket is an event-driven datagram primitive owned by a host runtime.
// It has no synchronous read path: inbound datagrams are pushed to the
// registered MessageHandler from the host's own dispatch context.
//
// Registering a nil handler unregisters the previous one.
type HostSocket interface {
	Bind() error

	// Send submits a datagram for asynchronous delivery. Implementations
	// must not retain data after returning.
	Send(address string, port int, data []byte) error

	OnMessage(h MessageHandler)
	OnError(h StatusHandler)
	OnClose(h StatusHandler)

	Close() error
}
