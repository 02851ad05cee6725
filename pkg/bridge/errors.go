package bridge

import (
	"errors"
	"fmt"
)

// TransportError reports a network-level failure: connection refused or
// reset, timeout, caller-initiated abort. The wrapped error preserves the
// underlying cause for errors.Is/As matching (e.g. context.Canceled).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bridge transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a response that arrived over healthy transport but
// does not match the bridge's wire contract: an unexpected HTTP status or an
// unparseable body.
type ProtocolError struct {
	Status int
	Body   string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bridge protocol error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("bridge protocol error (status %d): %s", e.Status, e.Body)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsProtocol reports whether err is (or wraps) a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
