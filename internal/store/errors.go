package store

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a store failure. Adapters are responsible for
// mapping provider-specific errors into exactly one kind.
type ErrorKind int

const (
	// KindOther covers failures with no more specific classification.
	KindOther ErrorKind = iota

	// KindNotFound means the addressed object does not exist.
	KindNotFound

	// KindAccessDenied means the store rejected the operation for
	// permission or policy reasons, including tag validation.
	KindAccessDenied

	// KindTransient means the operation may succeed if retried
	// (throttling, timeouts, server-side 5xx).
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindTransient:
		return "transient"
	default:
		return "other"
	}
}

// Error is a classified store failure, annotated with the operation and
// key it occurred on so logs can pinpoint the failing call.
type Error struct {
	Kind ErrorKind
	Op   string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store %s %q: %s: %v", e.Op, e.Key, e.Kind, e.Err)
	}
	return fmt.Sprintf("store %s %q: %s", e.Op, e.Key, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from err. Errors that did not come
// from a store adapter report KindOther.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindOther
}
