package response

import (
	"errors"
	"strings"
)

type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

// Slug is the machine readable form of the message, e.g. "session not found" -> "SESSION_NOT_FOUND".
func (e *Error) Slug() string {
	return strings.ToUpper(strings.Join(strings.Fields(e.Err.Error()), "_"))
}

func NewError(code int, err string) error {
	return &Error{code, errors.New(err)}
}
