package repair

import (
	"errors"
	"fmt"
)

// Kind classifies a repair failure
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindRead
	KindRecovery
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindRead:
		return "read error"
	case KindRecovery:
		return "recovery failure"
	case KindValidation:
		return "validation failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified repair failure. Path is empty for failures that are
// not tied to a file.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels below, so errors.Is(err, ErrRecovery)
// works for any recovery failure
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Path != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrRead          = &Error{Kind: KindRead}
	ErrRecovery      = &Error{Kind: KindRecovery}
	ErrValidation    = &Error{Kind: KindValidation}
)

// KindOf returns the kind of a classified error, or 0
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func configError(format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Err: fmt.Errorf(format, args...)}
}

func recoveryError(format string, args ...any) error {
	return &Error{Kind: KindRecovery, Err: fmt.Errorf(format, args...)}
}

func withPath(err error, path string) error {
	var e *Error
	if errors.As(err, &e) && e.Path == "" {
		return &Error{Kind: e.Kind, Path: path, Err: e.Err}
	}
	return err
}
