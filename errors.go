package mman

import (
	"fmt"

	cerrors "github.com/cockroachdb/errors"
	"github.com/pkg/errors"
)

// Kind classifies why a public operation failed.
type Kind int

const (
	// KindInvalidParameter means a caller-supplied value violates a
	// precondition: alignment, zero size, a disallowed flag, an address
	// outside the manager, or a range that doesn't fall inside a single
	// region.
	KindInvalidParameter Kind = iota + 1
	// KindOutOfMemory means no gap was large enough and a frontier could
	// not advance.
	KindOutOfMemory
	// KindFailure means a secondary allocation — a descriptor for a
	// middle-split — could not be satisfied.
	KindFailure
	// KindUnexpected means a post-condition sanity check failed. Callers
	// should treat this as a bug in the manager, not in their own usage.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindInvalidParameter:
		return "InvalidParameter"
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindFailure:
		return "Failure"
	case KindUnexpected:
		return "Unexpected"
	default:
		return "Unknown"
	}
}

// Sentinel causes, one per Kind, so callers can errors.Is against a kind
// without depending on Error's exact message.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrOutOfMemory       = errors.New("out of memory")
	ErrFailure           = errors.New("failure")
	ErrUnexpected        = errors.New("unexpected")
)

func sentinelFor(kind Kind) error {
	switch kind {
	case KindInvalidParameter:
		return ErrInvalidParameter
	case KindOutOfMemory:
		return ErrOutOfMemory
	case KindFailure:
		return ErrFailure
	case KindUnexpected:
		return ErrUnexpected
	default:
		return nil
	}
}

// Error is the error type every failing public operation returns. It
// carries the failure Kind alongside a diagnostic message, and wraps the
// matching sentinel so errors.Is(err, mman.ErrOutOfMemory) works.
type Error struct {
	Kind Kind
	Msg  string
	err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("mman: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(kind Kind, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{
		Kind: kind,
		Msg:  msg,
		err:  cerrors.WithStack(sentinelFor(kind)),
	}
}
