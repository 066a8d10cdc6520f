// Package transport defines the non-blocking datagram Socket shared by every
// backend, along with its error taxonomy and the asynchronous event surface.
//
// A Socket is a raw, best-effort message pipe. It never guarantees delivery,
// ordering or deduplication, and neither SendNonBlocking nor ReceiveNonBlocking
// ever waits on the network: each call returns after a local readiness check.
package transport

import "net"

// Socket is the capability set every datagram backend implements.
type Socket interface {
	// LocalAddr returns the bound local endpoint. Backends that cannot
	// expose one return an error matching ErrUnsupported.
	LocalAddr() (net.Addr, error)

	Blocking() bool
	SetBlocking(blocking bool) error

	// Buffer size hints. Backends without tunable buffers report 0 and
	// ignore the setters.
	ReceiveBufferSize() int
	SetReceiveBufferSize(n int) error
	SendBufferSize() int
	SetSendBufferSize(n int) error

	// Connect binds the socket to a single remote peer. Pre-bound backends
	// return ErrUnsupported.
	Connect(remote net.Addr) error

	// Close releases the native resources. It is idempotent.
	Close() error

	// SendNonBlocking tries to hand one datagram to the channel. It reports
	// false with a nil error when the channel was not ready and the datagram
	// was dropped; that is an ordinary outcome, not a failure. data is not
	// retained after the call returns.
	SendNonBlocking(data []byte) (bool, error)

	// ReceiveNonBlocking copies the next available datagram into buf and
	// returns buf[:n]. It reports false with a nil error when nothing is
	// available.
	ReceiveNonBlocking(buf []byte) ([]byte, bool, error)
}

// MaxDatagramSize is the largest UDP payload over IPv4.
const MaxDatagramSize = 65507
