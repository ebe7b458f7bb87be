package scheduling

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies scheduling failures. Handlers map kinds to HTTP status codes.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindSlotConflict      ErrorKind = "slot_conflict"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindPolicyDenied      ErrorKind = "policy_denied"
	KindForbidden         ErrorKind = "forbidden"
	KindValidation        ErrorKind = "validation"
)

// Error is a classified failure with optional structured arguments and a wrapped cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Args    map[string]interface{}
	wrapped error
}

// Sentinels for errors.Is. Any *Error with the same kind matches.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrSlotConflict      = &Error{Kind: KindSlotConflict}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrPolicyDenied      = &Error{Kind: KindPolicyDenied}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrValidation        = &Error{Kind: KindValidation}
)

// NewError builds a classified error. The message is formatted with fmt.Sprintf.
func NewError(kind ErrorKind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

// Arg attaches a structured argument.
func (e *Error) Arg(key string, value interface{}) *Error {
	if e.Args == nil {
		e.Args = make(map[string]interface{})
	}
	e.Args[key] = value
	return e
}

// Wrap records the underlying cause.
func (e *Error) Wrap(err error) *Error {
	if err != nil {
		e.wrapped = err
	}
	return e
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Args) > 0 {
		keys := make([]string, 0, len(e.Args))
		for k := range e.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Args[k])
		}
		b.WriteString(")")
	}
	if e.wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.wrapped.Error())
	}
	return b.String()
}

// Is matches on kind so callers can test against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
