package yamc

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrKind is one of the four outcomes a library operation can report, per
// the error handling design: success is the absence of an error, and the
// three failure kinds below are distinguished with errors.Is so callers can
// branch on them without string matching.
type ErrKind int

const (
	// ErrKindInvalidData marks a caller-supplied packet descriptor that
	// violates a structural rule: a missing required string, a will
	// without a topic, a password without a username, an empty subscribe
	// list, an empty publish topic.
	ErrKindInvalidData ErrKind = iota + 1
	// ErrKindInvalidState marks a transport write failure.
	ErrKindInvalidState
	// ErrKindCannotParse marks a malformed inbound packet body.
	ErrKindCannotParse
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindInvalidData:
		return "invalid-data"
	case ErrKindInvalidState:
		return "invalid-state"
	case ErrKindCannotParse:
		return "cannot-parse"
	default:
		return "unknown-error-kind"
	}
}

// Error is the concrete error type returned by encoder validation and
// decoder failures. Wrap/cause chains use github.com/pkg/errors so a
// caller can still errors.Is/As through to a lower-level cause (e.g. the
// io.Writer error that tripped ErrKindInvalidState).
type Error struct {
	Kind  ErrKind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is(err, ErrInvalidData) match any *Error of that Kind,
// regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.cause == nil && t.Kind == e.Kind
}

// Sentinel values for use with errors.Is(err, yamc.ErrInvalidData) etc.
// These carry no cause; Error.Is treats any *Error of matching Kind as equal.
var (
	ErrInvalidData  = &Error{Kind: ErrKindInvalidData}
	ErrInvalidState = &Error{Kind: ErrKindInvalidState}
	ErrCannotParse  = &Error{Kind: ErrKindCannotParse}
)

func errInvalidData(cause error) error {
	return &Error{Kind: ErrKindInvalidData, cause: cause}
}

func errInvalidDataf(format string, args ...any) error {
	return errInvalidData(fmt.Errorf(format, args...))
}

func errCannotParse(cause error) error {
	return &Error{Kind: ErrKindCannotParse, cause: cause}
}

func errCannotParsef(format string, args ...any) error {
	return errCannotParse(fmt.Errorf(format, args...))
}

func errInvalidState(cause error) error {
	return &Error{Kind: ErrKindInvalidState, cause: errors.Wrap(cause, "transport write failed")}
}
