package hyperate

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for client state.
var (
	ErrNotConnected     = errors.New("client is not connected")
	ErrAlreadyConnected = errors.New("client is already connected")
	ErrClientClosed     = errors.New("client is closed")
)

// ConnectionError represents a failure to open or use the socket connection.
type ConnectionError struct {
	URL    string
	Reason string
	Cause  error // underlying dial error, if any
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error [%s]: %s", e.URL, e.Reason)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// ErrorKind classifies why an inbound message was dropped.
type ErrorKind int

const (
	ErrEmptyMessage      ErrorKind = iota // frame carried no data
	ErrMalformedEnvelope                  // top-level JSON could not be decoded
	ErrMissingField                       // a required payload field is absent
	ErrTopicMismatch                      // topic lacks the prefix its event implies
	ErrInvalidField                       // a payload field holds an unusable value
)

var errorKindNames = [...]string{
	ErrEmptyMessage:      "ErrEmptyMessage",
	ErrMalformedEnvelope: "ErrMalformedEnvelope",
	ErrMissingField:      "ErrMissingField",
	ErrTopicMismatch:     "ErrTopicMismatch",
	ErrInvalidField:      "ErrInvalidField",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// DecodeError describes an inbound message the classifier refused.
// The client drops these without raising a notification.
type DecodeError struct {
	Kind  ErrorKind
	Event string
	Topic string
	Cause error
	Raw   []byte
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v (event=%s topic=%s)", e.Kind, e.Cause, e.Event, e.Topic)
	}
	return fmt.Sprintf("%s (event=%s topic=%s)", e.Kind, e.Event, e.Topic)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}
