package pipeline

import (
	"github.com/funvibe/monkey/internal/diagnostics"
	"github.com/funvibe/monkey/internal/token"
)

// TokenStream is what the lexer hands to the parser.
type TokenStream interface {
	NextToken() token.Token
}

// PipelineContext carries state between stages.
type PipelineContext struct {
	SourceCode  string
	FilePath    string
	TokenStream TokenStream
	AstRoot     interface{}
	Result      interface{}
	Errors      []*diagnostics.DiagnosticError
}

func NewPipelineContext(sourceCode string) *PipelineContext {
	return &PipelineContext{
		SourceCode: sourceCode,
		Errors:     []*diagnostics.DiagnosticError{},
	}
}

// Failed reports whether any stage recorded an error.
func (ctx *PipelineContext) Failed() bool {
	return len(ctx.Errors) > 0
}
