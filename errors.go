package lupusec

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport is returned when the panel could not be reached or
	// answered with a non-200 status.
	ErrTransport = errors.New("transport error")

	// ErrProtocol is returned when the panel answered, but not in the
	// expected shape.
	ErrProtocol = errors.New("protocol error")
)

// ProtocolError carries the operation and the part of the payload that
// could not be understood.
type ProtocolError struct {
	Op       string
	Fragment string
	Err      error
}

func (e *ProtocolError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, ErrProtocol, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v near %q", e.Op, ErrProtocol, e.Err, e.Fragment)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

func protocolError(op string, body []byte, err error) error {
	return &ProtocolError{
		Op:       op,
		Fragment: fragment(body, 0),
		Err:      err,
	}
}

func transportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}
