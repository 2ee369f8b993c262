// Package errkind defines the error taxonomy shared by the engine and its callers.
package errkind

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Match them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrBackpressure = errors.New("backpressure")
)

// Error carries the failing operation, its kind and the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind tags err with kind. A nil err yields nil.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Errorf builds an error of the given kind with a formatted message.
func Errorf(op string, kind error, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err as internal unless it already carries a known kind.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != ErrInternal {
		return err
	}
	return &Error{Op: op, Kind: ErrInternal, Err: err}
}

// KindOf reports the kind of err, defaulting to ErrInternal.
func KindOf(err error) error {
	for _, k := range []error{ErrNotFound, ErrInvalidInput, ErrBackpressure} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}
