package client

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/rudransh-shrivastava/dgramsock/internal/transport"
)

const DefaultTickInterval = 10 * time.Millisecond

type Config struct {
	// TickInterval paces Run.
	TickInterval time.Duration
	// BufferSize is the receive buffer handed to the socket each tick.
	BufferSize int
	Clock      clock.Clock

	OnConnected    func()
	OnData         func(msg []byte)
	OnDisconnected func()
	OnError        func(kind transport.ErrorKind, reason string)

	Logger *logrus.Logger
}

func DefaultConfig() Config {
	return Config{
		TickInterval: DefaultTickInterval,
		BufferSize:   transport.MaxDatagramSize,
		Clock:        clock.New(),
	}
}
