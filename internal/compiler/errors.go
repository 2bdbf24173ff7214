package compiler

import (
	"errors"

	"github.com/funvibe/monkey/internal/token"
)

var (
	ErrUndefined       = errors.New("undefined variable")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrUnsupportedNode = errors.New("unsupported node")
	ErrLimit           = errors.New("compiler limit exceeded")
)

// Error is a compile error positioned at the token that caused it.
type Error struct {
	Token   token.Token
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func newError(sentinel error, tok token.Token, message string) *Error {
	return &Error{Token: tok, Message: message, Err: sentinel}
}
