// Package diagnostics defines the coded, positioned errors reported by every
// stage of the pipeline.
package diagnostics

import (
	"fmt"

	"github.com/funvibe/monkey/internal/token"
)

type ErrorCode string

const (
	// Lexer
	ErrL001 ErrorCode = "L001" // illegal character
	ErrL002 ErrorCode = "L002" // unterminated string
	ErrL003 ErrorCode = "L003" // integer literal out of range

	// Parser
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // no prefix parse function
	ErrP003 ErrorCode = "P003" // expression too deep

	// Compiler
	ErrC001 ErrorCode = "C001" // undefined identifier
	ErrC002 ErrorCode = "C002" // unknown operator
	ErrC003 ErrorCode = "C003" // unsupported node
	ErrC004 ErrorCode = "C004" // compiler limit exceeded

	// Runtime
	ErrR001 ErrorCode = "R001" // runtime error
)

// DiagnosticError is an error tied to a source position.
type DiagnosticError struct {
	Code  ErrorCode
	Token token.Token
	File  string
	Msg   string
	Err   error // underlying error, if any
}

func (e *DiagnosticError) Error() string {
	loc := ""
	if e.Token.Line > 0 {
		loc = fmt.Sprintf("%d:%d: ", e.Token.Line, e.Token.Column)
		if e.File != "" {
			loc = e.File + ":" + loc
		}
	} else if e.File != "" {
		loc = e.File + ": "
	}
	return fmt.Sprintf("%serror [%s]: %s", loc, e.Code, e.Msg)
}

func (e *DiagnosticError) Unwrap() error { return e.Err }

// NewError builds a diagnostic; args are applied to msg with fmt.Sprintf.
func NewError(code ErrorCode, tok token.Token, msg string, args ...interface{}) *DiagnosticError {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &DiagnosticError{Code: code, Token: tok, Msg: msg}
}

// Wrap attaches err to a diagnostic so callers can still use errors.Is / errors.As.
func Wrap(code ErrorCode, tok token.Token, err error) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Msg: err.Error(), Err: err}
}
