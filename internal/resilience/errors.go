// Package resilience provides bounded retries and failure classification for
// calls to remote services.
package resilience

import "errors"

// Kind names where in a request/decode/save sequence a failure originated.
type Kind string

// Failure kinds.
const (
	KindNetwork  Kind = "network"
	KindProtocol Kind = "protocol"
	KindDecode   Kind = "decode"
	KindStorage  Kind = "storage"
	KindUnknown  Kind = "unknown"
)

// Error tags a failure with its Kind and, for protocol failures, the HTTP
// status code.
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// NewStatusError wraps err as a protocol failure carrying statusCode.
func NewStatusError(err error, statusCode int) *Error {
	return &Error{Kind: KindProtocol, StatusCode: statusCode, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindUnknown when nothing in the chain is tagged.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsTransient reports whether err is likely to clear up on its own: a
// network Error, or a protocol Error with a transient status. Decode and
// storage failures are not transient.
func IsTransient(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindNetwork:
		return true
	case KindProtocol:
		return IsTransientHTTPStatus(e.StatusCode)
	}
	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
