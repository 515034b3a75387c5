package gen

import (
	"errors"
	"fmt"
)

// ErrDone is returned by Stream.Next when a generation finished cleanly.
var ErrDone = errors.New("gen: done")

// Kind classifies a generation failure.
type Kind int

const (
	// KindTransient covers network and backend-side failures that a caller
	// could retry. This package does not retry.
	KindTransient Kind = iota

	// KindContentRejected means the backend refused the prompt or the output
	// on policy/safety grounds.
	KindContentRejected

	// KindEmptyResponse means the backend answered without usable text.
	KindEmptyResponse

	// KindMalformed means the response shape was not what the driver expected.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindContentRejected:
		return "content_rejected"
	case KindEmptyResponse:
		return "empty_response"
	case KindMalformed:
		return "malformed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified generation failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("gen: %s", e.Kind)
	}
	return fmt.Sprintf("gen: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Rejected builds a ContentRejected error with the backend's refusal text.
func Rejected(reason string) *Error {
	return &Error{Kind: KindContentRejected, Err: errors.New(reason)}
}

// Empty builds an EmptyResponse error.
func Empty() *Error {
	return &Error{Kind: KindEmptyResponse}
}

// Transient wraps a network or backend failure.
func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Err: err}
}

// Malformed marks an unexpected response shape.
func Malformed(format string, args ...any) *Error {
	return &Error{Kind: KindMalformed, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from err. Unclassified errors count as
// transient, which is the safe default for the placeholder policy: everything
// but a clean completion degrades to the per-sage placeholder anyway.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindTransient
}
