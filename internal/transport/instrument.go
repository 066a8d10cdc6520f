package transport

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts datagram outcomes per backend.
type Metrics struct {
	Sent     *prometheus.CounterVec
	Dropped  *prometheus.CounterVec
	Received *prometheus.CounterVec
	Errors   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dgramsock",
			Name:      "datagrams_sent_total",
			Help:      "Datagrams accepted for transmission.",
		}, []string{"backend"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dgramsock",
			Name:      "datagrams_dropped_total",
			Help:      "Datagrams dropped because the channel was not ready.",
		}, []string{"backend"}),
		Received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dgramsock",
			Name:      "datagrams_received_total",
			Help:      "Datagrams delivered to the caller.",
		}, []string{"backend"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dgramsock",
			Name:      "errors_total",
			Help:      "Fatal socket errors by kind.",
		}, []string{"backend", "kind"}),
	}

	var err error
	for _, c := range []**prometheus.CounterVec{&m.Sent, &m.Dropped, &m.Received, &m.Errors} {
		if *c, err = register(reg, *c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Instrument wraps s so every send and receive outcome is counted under the
// given backend label. The wrapper adds no blocking.
func Instrument(s Socket, backend string, m *Metrics) Socket {
	return &instrumented{Socket: s, backend: backend, m: m}
}

type instrumented struct {
	Socket
	backend string
	m       *Metrics
}

func (i *instrumented) SendNonBlocking(data []byte) (bool, error) {
	ok, err := i.Socket.SendNonBlocking(data)
	switch {
	case err != nil:
		i.m.Errors.WithLabelValues(i.backend, KindOf(err).String()).Inc()
	case ok:
		i.m.Sent.WithLabelValues(i.backend).Inc()
	default:
		i.m.Dropped.WithLabelValues(i.backend).Inc()
	}
	return ok, err
}

func (i *instrumented) ReceiveNonBlocking(buf []byte) ([]byte, bool, error) {
	data, ok, err := i.Socket.ReceiveNonBlocking(buf)
	if err != nil {
		i.m.Errors.WithLabelValues(i.backend, KindOf(err).String()).Inc()
	} else if ok {
		i.m.Received.WithLabelValues(i.backend).Inc()
	}
	return data, ok, err
}

// register reuses an already registered vector so several sockets can share
// one registry.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}
