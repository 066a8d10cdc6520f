package transport

import "github.com/sirupsen/logrus"

// DefaultBufferSize is the kernel buffer size requested for both directions.
// Large buffers keep short bursts from being dropped between ticks.
const DefaultBufferSize = 7 * 1024 * 1024

// OversizePolicy decides what a backend does with a datagram that does not
// fit in the caller's receive buffer.
type OversizePolicy uint8

const (
	// OversizeReject drops the datagram and returns ErrDatagramTooLarge.
	OversizeReject OversizePolicy = iota
	// OversizeTruncate delivers the prefix that fits.
	OversizeTruncate
)

type Config struct {
	Blocking          bool
	ReceiveBufferSize int
	SendBufferSize    int

	// Oversize only applies to backends that receive whole messages from a
	// host queue; native sockets always reject.
	Oversize OversizePolicy

	OnEvent EventHandler
	Logger  *logrus.Logger
}

func DefaultConfig() Config {
	return Config{
		Blocking:          false,
		ReceiveBufferSize: DefaultBufferSize,
		SendBufferSize:    DefaultBufferSize,
		Oversize:          OversizeReject,
	}
}
