package vm

import (
	"errors"
	"fmt"
)

// Kind classifies runtime errors.
type Kind int

const (
	KindType Kind = iota + 1
	KindArity
	KindArithmetic
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "type error"
	case KindArity:
		return "arity error"
	case KindArithmetic:
		return "arithmetic error"
	case KindResource:
		return "resource error"
	}
	return "runtime error"
}

var (
	ErrType       = errors.New("type error")
	ErrArity      = errors.New("arity error")
	ErrArithmetic = errors.New("arithmetic error")
	ErrResource   = errors.New("resource exhausted")

	ErrStackOverflow = errors.New("stack overflow")
	ErrFrameOverflow = errors.New("frame overflow")
)

// Malformed bytecode. The compiler never produces these; hand-assembled
// input can.
var (
	errTruncatedBytecode    = errors.New("truncated bytecode")
	errStackUnderflow       = errors.New("stack underflow")
	errInvalidConstantIndex = errors.New("invalid constant index")
	errInvalidSlot          = errors.New("invalid variable slot")
	errUnknownOpcode        = errors.New("unknown opcode")
)

// RuntimeError aborts a run. errors.Is matches the sentinel for its Kind
// as well as any wrapped cause.
type RuntimeError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *RuntimeError) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func (e *RuntimeError) Unwrap() error { return e.Err }

func (e *RuntimeError) Is(target error) bool {
	switch e.Kind {
	case KindType:
		return target == ErrType
	case KindArity:
		return target == ErrArity
	case KindArithmetic:
		return target == ErrArithmetic
	case KindResource:
		return target == ErrResource
	}
	return false
}

func typeError(format string, args ...interface{}) error {
	return &RuntimeError{Kind: KindType, Message: fmt.Sprintf(format, args...)}
}

func arityError(format string, args ...interface{}) error {
	return &RuntimeError{Kind: KindArity, Message: fmt.Sprintf(format, args...)}
}

func arithmeticError(format string, args ...interface{}) error {
	return &RuntimeError{Kind: KindArithmetic, Message: fmt.Sprintf(format, args...)}
}

func resourceError(cause error, limit int) error {
	return &RuntimeError{
		Kind:    KindResource,
		Message: fmt.Sprintf("%s (limit %d)", cause, limit),
		Err:     cause,
	}
}
