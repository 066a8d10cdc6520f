package transport

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by a Socket. A would-block
// condition is never an ErrorKind: it is reported as a false result.
type ErrorKind uint8

const (
	KindTransportFault ErrorKind = iota + 1
	KindDatagramTooLarge
	KindUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransportFault:
		return "TRANSPORT_FAULT"
	case KindDatagramTooLarge:
		return "DATAGRAM_TOO_LARGE"
	case KindUnsupported:
		return "UNSUPPORTED_OPERATION"
	default:
		return "UNKNOWN"
	}
}

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrTransportFault   = &Error{Kind: KindTransportFault}
	ErrDatagramTooLarge = &Error{Kind: KindDatagramTooLarge}
	ErrUnsupported      = &Error{Kind: KindUnsupported}
)

// Error is returned by Socket implementations for every fatal condition.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return "transport: " + e.Kind.String()
	case e.Err == nil:
		return fmt.Sprintf("transport: %s: %s", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("transport: %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("transport: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func Fault(op string, err error) error {
	return &Error{Kind: KindTransportFault, Op: op, Err: err}
}

// TooLarge reports a datagram that did not fit in a buffer of the given
// capacity. A negative size means the backend could not learn the real size.
func TooLarge(op string, size, capacity int) error {
	err := fmt.Errorf("datagram exceeds buffer of %d bytes", capacity)
	if size >= 0 {
		err = fmt.Errorf("datagram of %d bytes exceeds buffer of %d bytes", size, capacity)
	}
	return &Error{Kind: KindDatagramTooLarge, Op: op, Err: err}
}

func Unsupported(op string, reason string) error {
	var err error
	if reason != "" {
		err = errors.New(reason)
	}
	return &Error{Kind: KindUnsupported, Op: op, Err: err}
}

// KindOf returns the kind of err, or 0 when err is not a transport error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
