package model

import (
	"errors"
	"fmt"

	"threadbot/codec"
)

var (
	ErrNotFound        = errors.New("room or thread not found")
	ErrIncomplete      = errors.New("thread incomplete: page budget exhausted")
	ErrTransport       = errors.New("transport error")
	ErrDecode          = codec.ErrDecode
	ErrTriggerNotFound = errors.New("trigger event not in thread")
)

// TransportError wraps an opaque failure of the underlying chat protocol.
type TransportError struct {
	Op  string
	Err error
}

func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTransport, e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}
