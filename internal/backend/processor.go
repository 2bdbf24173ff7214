package backend

import (
	"errors"

	"github.com/funvibe/monkey/internal/ast"
	"github.com/funvibe/monkey/internal/compiler"
	"github.com/funvibe/monkey/internal/diagnostics"
	"github.com/funvibe/monkey/internal/pipeline"
	"github.com/funvibe/monkey/internal/token"
)

// ExecutionProcessor is the pipeline stage that runs the parsed program in
// a Session. The result is stored on ctx.Result.
type ExecutionProcessor struct {
	Session *Session
}

// NewExecutionProcessor creates a pipeline step running in session.
func NewExecutionProcessor(session *Session) *ExecutionProcessor {
	return &ExecutionProcessor{Session: session}
}

func (p *ExecutionProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	// If previous steps failed, don't run execution
	if ctx.AstRoot == nil || ctx.Failed() {
		return ctx
	}

	program, ok := ctx.AstRoot.(*ast.Program)
	if !ok {
		ctx.Errors = append(ctx.Errors, diagnostics.NewError(
			diagnostics.ErrC003, token.Token{}, "AST root is not a Program: %T", ctx.AstRoot))
		return ctx
	}

	result, err := p.Session.Run(program)
	if err != nil {
		diag := ToDiagnostic(err)
		if diag.File == "" {
			diag.File = ctx.FilePath
		}
		ctx.Errors = append(ctx.Errors, diag)
		return ctx
	}

	ctx.Result = result
	return ctx
}

// ToDiagnostic assigns a code to a compile or runtime error. The original
// error stays reachable through Unwrap.
func ToDiagnostic(err error) *diagnostics.DiagnosticError {
	var cerr *compiler.Error
	if errors.As(err, &cerr) {
		code := diagnostics.ErrC003
		switch {
		case errors.Is(err, compiler.ErrUndefined):
			code = diagnostics.ErrC001
		case errors.Is(err, compiler.ErrUnknownOperator):
			code = diagnostics.ErrC002
		case errors.Is(err, compiler.ErrLimit):
			code = diagnostics.ErrC004
		}
		return diagnostics.Wrap(code, cerr.Token, err)
	}

	// Runtime errors carry no source position
	return diagnostics.Wrap(diagnostics.ErrR001, token.Token{}, err)
}
