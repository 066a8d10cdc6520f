package transport

import "sync"

// EventKind identifies an out-of-band notification that cannot be returned
// from SendNonBlocking or ReceiveNonBlocking.
type EventKind uint8

const (
	EventError EventKind = iota + 1
	EventClosed
	EventConnectFailed
	EventTimeout
)

func (k EventKind) String() string {
	switch k {
	case EventError:
		return "ERROR"
	case EventClosed:
		return "CLOSED"
	case EventConnectFailed:
		return "CONNECT_FAILED"
	case EventTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

type Event struct {
	Kind   EventKind
	Reason string
}

// EventHandler receives events on whatever goroutine raised them and must
// return promptly.
type EventHandler func(Event)

// Notifier delivers events to a single subscriber. The zero value drops
// everything. A Socket never retries or recovers after emitting an event.
type Notifier struct {
	mu      sync.RWMutex
	handler EventHandler
}

func NewNotifier(h EventHandler) *Notifier {
	return &Notifier{handler: h}
}

func (n *Notifier) Subscribe(h EventHandler) {
	n.mu.Lock()
	n.handler = h
	n.mu.Unlock()
}

func (n *Notifier) Emit(kind EventKind, reason string) {
	n.mu.RLock()
	h := n.handler
	n.mu.RUnlock()

	if h != nil {
		h(Event{Kind: kind, Reason: reason})
	}
}
