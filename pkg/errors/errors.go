package poll_errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidOption = errors.New("invalid option")
	ErrPollClosed    = errors.New("poll closed")
)

// Kind returns the sentinel that err wraps, or nil when err is not one of ours.
func Kind(err error) error {
	for _, kind := range []error{
		ErrInvalidInput,
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidOption,
		ErrPollClosed,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Error carries a caller-facing message while still matching its sentinel
// through errors.Is.
type Error struct {
	kind error
	msg  string
}

func Newf(kind error, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.kind
}
