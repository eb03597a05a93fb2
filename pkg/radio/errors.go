package radio

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidChannel indicates the channel is out of range.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrPayloadTooLarge indicates the payload exceeds MaxPayload.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrUnknownPeer indicates the destination was not registered with AddPeer.
	ErrUnknownPeer = errors.New("unknown peer")
	// ErrClosed indicates the radio has been closed.
	ErrClosed = errors.New("radio closed")
	// ErrBusy indicates the peripheral could not accept the frame.
	ErrBusy = errors.New("radio busy")
	// ErrMalformedFrame indicates a frame can't be decoded.
	ErrMalformedFrame = errors.New("malformed frame")
)

// ErrorKind classifies a failed transmission.
type ErrorKind int

// Error kinds
const (
	KindHardware ErrorKind = iota
	KindBusy
	KindPeer
	KindPayload
	KindCanceled
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case KindHardware:
		return "hardware"
	case KindBusy:
		return "busy"
	case KindPeer:
		return "peer"
	case KindPayload:
		return "payload"
	case KindCanceled:
		return "canceled"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// SendError is returned by Send when the outcome is Failed.
type SendError struct {
	Kind ErrorKind
	Err  error
}

// Error implements error.
func (e *SendError) Error() string {
	return fmt.Sprintf("send failed (%s): %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *SendError) Unwrap() error {
	return e.Err
}

// NewSendError classifies err into a SendError.
func NewSendError(err error) *SendError {
	var se *SendError
	if errors.As(err, &se) {
		return se
	}
	kind := KindHardware
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = KindCanceled
	case errors.Is(err, ErrBusy):
		kind = KindBusy
	case errors.Is(err, ErrUnknownPeer):
		kind = KindPeer
	case errors.Is(err, ErrPayloadTooLarge):
		kind = KindPayload
	}
	return &SendError{Kind: kind, Err: err}
}

// FailedWith is a helper for Sender implementations.
func FailedWith(err error) (Outcome, error) {
	return Failed, NewSendError(err)
}
