package lexer

import (
	"github.com/funvibe/monkey/internal/pipeline"
	"github.com/funvibe/monkey/internal/token"
)

// TokenStream buffers lexer output so the parser can look ahead.
type TokenStream struct {
	lexer  *Lexer
	buffer []token.Token
}

func NewTokenStream(l *Lexer) *TokenStream {
	return &TokenStream{lexer: l}
}

func (s *TokenStream) NextToken() token.Token {
	if len(s.buffer) > 0 {
		tok := s.buffer[0]
		s.buffer = s.buffer[1:]
		return tok
	}
	return s.lexer.NextToken()
}

// Peek returns up to n upcoming tokens without consuming them.
func (s *TokenStream) Peek(n int) []token.Token {
	for len(s.buffer) < n {
		tok := s.lexer.NextToken()
		s.buffer = append(s.buffer, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	if n > len(s.buffer) {
		n = len(s.buffer)
	}
	return s.buffer[:n]
}

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	ctx.TokenStream = NewTokenStream(New(ctx.SourceCode))
	return ctx
}
