package parser

import (
	"github.com/funvibe/monkey/internal/ast"
	"github.com/funvibe/monkey/internal/diagnostics"
	"github.com/funvibe/monkey/internal/lexer"
	"github.com/funvibe/monkey/internal/pipeline"
	"github.com/funvibe/monkey/internal/token"
)

type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.TokenStream == nil {
		// This case should ideally not be hit if lexer runs first, but as a safeguard:
		err := diagnostics.NewError(diagnostics.ErrP001, token.Token{}, "parser: token stream is nil")
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}

	parser := New(ctx.TokenStream, ctx)
	program := parser.ParseProgram()
	program.File = ctx.FilePath

	// A program with errors is never handed on.
	if len(ctx.Errors) == 0 {
		ctx.AstRoot = program
	}

	// Ensure all errors have file path set
	for _, err := range ctx.Errors {
		if err.File == "" {
			err.File = ctx.FilePath
		}
	}

	return ctx
}

// ParseString runs lexing and parsing on input and returns the program or the
// first diagnostic.
func ParseString(input string) (*ast.Program, error) {
	ctx := pipeline.NewPipelineContext(input)
	ctx = pipeline.New(&lexer.LexerProcessor{}, &ParserProcessor{}).Run(ctx)
	if len(ctx.Errors) > 0 {
		return nil, ctx.Errors[0]
	}
	return ctx.AstRoot.(*ast.Program), nil
}
