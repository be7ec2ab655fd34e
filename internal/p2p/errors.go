package p2p

import (
	"errors"
	"fmt"
)

var (
	ErrPeerDisconnected = errors.New("peer disconnected")
	ErrTimeout          = errors.New("timeout")
	ErrConnectionFailed = errors.New("connection failed")
	ErrUnexpectedSignal = errors.New("unexpected signal type")
	ErrChannelNotOpen   = errors.New("channel not open")
)

// ProbeError records which step of a connectivity probe failed.
type ProbeError struct {
	Op      string
	Err     error
	Details string
}

func (e *ProbeError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *ProbeError {
	return &ProbeError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *ProbeError {
	return &ProbeError{Op: op, Err: err, Details: details}
}
