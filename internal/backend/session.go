// Package backend compiles and runs parsed programs against a persistent
// session, and plugs that into the pipeline as its final stage.
package backend

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/funvibe/monkey/internal/ast"
	"github.com/funvibe/monkey/internal/compiler"
	"github.com/funvibe/monkey/internal/config"
	"github.com/funvibe/monkey/internal/lexer"
	"github.com/funvibe/monkey/internal/object"
	"github.com/funvibe/monkey/internal/parser"
	"github.com/funvibe/monkey/internal/pipeline"
	"github.com/funvibe/monkey/internal/vm"
)

var log = commonlog.GetLogger("monkey.session")

// Session keeps globals, constants and symbols alive between inputs, the
// way a REPL needs. A Session is not safe for concurrent use.
type Session struct {
	id       string
	settings *config.Settings
	out      io.Writer

	symbolTable *compiler.SymbolTable
	constants   []object.Object
	globals     []object.Object
}

// NewSession creates an empty session. A nil settings uses the defaults.
func NewSession(settings *config.Settings) *Session {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	return &Session{
		id:          uuid.NewString(),
		settings:    settings,
		out:         os.Stdout,
		symbolTable: compiler.NewSymbolTableWithBuiltins(),
		constants:   []object.Object{},
		globals:     vm.NewGlobalsStore(),
	}
}

// ID identifies the session in logs and history.
func (s *Session) ID() string { return s.id }

// SetOutput sets where puts writes.
func (s *Session) SetOutput(w io.Writer) { s.out = w }

// SetGlobal binds name to value for every later input. A name that is
// already global gets a fresh slot, as with let.
func (s *Session) SetGlobal(name string, value object.Object) error {
	if s.symbolTable.NumDefinitions() >= len(s.globals) {
		return fmt.Errorf("too many globals (max %d)", len(s.globals))
	}
	sym := s.symbolTable.Define(name)
	s.globals[sym.Index] = value
	return nil
}

// Global returns the current value of a global binding. Globals declared
// but never assigned read as null.
func (s *Session) Global(name string) (object.Object, bool) {
	sym, ok := s.symbolTable.Resolve(name)
	if !ok || sym.Scope != compiler.GlobalScope {
		return nil, false
	}
	if v := s.globals[sym.Index]; v != nil {
		return v, true
	}
	return object.NULL, true
}

// Eval lexes, parses, compiles and runs src. Lex and parse failures are
// returned as the first *diagnostics.DiagnosticError.
func (s *Session) Eval(src string) (object.Object, error) {
	ctx := pipeline.NewPipelineContext(src)
	ctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
	if ctx.Failed() {
		return nil, ctx.Errors[0]
	}
	return s.Run(ctx.AstRoot.(*ast.Program))
}

// Run compiles program into the session and executes it. On a compile
// error the session is unchanged. On a runtime error, globals assigned
// before the failure keep their values.
func (s *Session) Run(program *ast.Program) (object.Object, error) {
	bc, err := s.compile(program)
	if err != nil {
		return nil, err
	}

	machine := vm.NewWithGlobalsStore(bc, s.globals)
	machine.SetOutput(s.out)
	machine.SetLimits(s.settings.StackSize, s.settings.MaxFrames)

	start := time.Now()
	err = machine.Run()
	elapsed := time.Since(start)
	if err != nil {
		log.Debug("run failed", "session", s.id, "error", err.Error(), "duration", elapsed.String())
		return nil, err
	}

	result := machine.LastPoppedStackElem()
	log.Debug("run finished", "session", s.id, "result", string(result.Type()), "duration", elapsed.String())
	return result, nil
}

// Disassemble compiles program into the session and returns the listing
// of the main instructions followed by every compiled function in the
// constant pool.
func (s *Session) Disassemble(program *ast.Program) (string, error) {
	bc, err := s.compile(program)
	if err != nil {
		return "", err
	}
	return Disassemble(bc), nil
}

func (s *Session) compile(program *ast.Program) (*compiler.Bytecode, error) {
	comp := compiler.NewWithState(s.symbolTable, s.constants)
	if err := comp.Compile(program); err != nil {
		log.Debug("compile failed", "session", s.id, "error", err.Error())
		return nil, err
	}

	bc := comp.Bytecode()
	s.constants = bc.Constants

	log.Debug("compiled",
		"session", s.id,
		"constants", len(bc.Constants),
		"bytes", len(bc.Instructions),
		"globals", s.symbolTable.NumDefinitions())
	if s.settings.Trace {
		log.Info("bytecode\n"+Disassemble(bc), "session", s.id)
	}
	return bc, nil
}

// Disassemble renders bytecode as text.
func Disassemble(bc *compiler.Bytecode) string {
	var out strings.Builder
	out.WriteString("== main ==\n")
	out.WriteString(bc.Instructions.String())

	for i, c := range bc.Constants {
		fn, ok := c.(*object.CompiledFunction)
		if !ok {
			continue
		}
		fmt.Fprintf(&out, "== constant %d: %s (params=%d, locals=%d) ==\n",
			i, functionName(fn), fn.NumParameters, fn.NumLocals)
		out.WriteString(fn.Instructions.String())
	}
	return out.String()
}

func functionName(fn *object.CompiledFunction) string {
	if fn.Name == "" {
		return "fn"
	}
	return fn.Name
}
