// Package compiler turns a parsed program into bytecode for the VM.
package compiler

import (
	"fmt"

	"github.com/funvibe/monkey/internal/ast"
	"github.com/funvibe/monkey/internal/bytecode"
	"github.com/funvibe/monkey/internal/config"
	"github.com/funvibe/monkey/internal/object"
	"github.com/funvibe/monkey/internal/token"
)

type EmittedInstruction struct {
	Opcode   bytecode.Opcode
	Position int
}

// CompilationScope is the instruction buffer of one function being compiled.
type CompilationScope struct {
	instructions        bytecode.Instructions
	lastInstruction     EmittedInstruction
	previousInstruction EmittedInstruction
}

// Compiler compiles AST to bytecode
type Compiler struct {
	constants []object.Object

	symbolTable *SymbolTable

	scopes     []CompilationScope
	scopeIndex int
}

// Bytecode is everything the VM needs to run a compiled program.
type Bytecode struct {
	Instructions bytecode.Instructions
	Constants    []object.Object
}

// NewSymbolTableWithBuiltins returns a global table with every builtin
// defined at its fixed index.
func NewSymbolTableWithBuiltins() *SymbolTable {
	symbolTable := NewSymbolTable()
	for i, b := range object.Builtins {
		symbolTable.DefineBuiltin(i, b.Name)
	}
	return symbolTable
}

func New() *Compiler {
	return NewWithState(NewSymbolTableWithBuiltins(), []object.Object{})
}

// NewWithState continues compiling against an existing global symbol table
// and constant pool, as a REPL session does between inputs.
func NewWithState(s *SymbolTable, constants []object.Object) *Compiler {
	return &Compiler{
		constants:   constants,
		symbolTable: s,
		scopes:      []CompilationScope{{instructions: bytecode.Instructions{}}},
	}
}

// Compile compiles program into the main scope. On error the symbol table
// and constant pool are left exactly as they were before the call.
func (c *Compiler) Compile(program *ast.Program) error {
	symbolTable := c.symbolTable
	state := symbolTable.snapshot()
	numConstants := len(c.constants)
	scope := c.scopes[0]

	for _, s := range program.Statements {
		if err := c.compileStatement(s); err != nil {
			c.symbolTable = symbolTable
			c.symbolTable.restore(state)
			c.constants = c.constants[:numConstants]
			c.scopes = c.scopes[:1]
			c.scopeIndex = 0
			c.scopes[0] = scope
			c.scopes[0].instructions = scope.instructions[:len(scope.instructions):len(scope.instructions)]
			return err
		}
	}
	return nil
}

func (c *Compiler) Bytecode() *Bytecode {
	return &Bytecode{
		Instructions: c.currentInstructions(),
		Constants:    c.constants,
	}
}

// SymbolTable returns the table of the scope being compiled.
func (c *Compiler) SymbolTable() *SymbolTable { return c.symbolTable }

func (c *Compiler) currentInstructions() bytecode.Instructions {
	return c.scopes[c.scopeIndex].instructions
}

func (c *Compiler) addConstant(obj object.Object, tok token.Token) (int, error) {
	if len(c.constants) >= config.MaxConstants {
		return 0, newError(ErrLimit, tok, fmt.Sprintf("too many constants (max %d)", config.MaxConstants))
	}
	c.constants = append(c.constants, obj)
	return len(c.constants) - 1, nil
}

// emit appends an instruction and returns its position
func (c *Compiler) emit(op bytecode.Opcode, operands ...int) int {
	ins := bytecode.Make(op, operands...)
	pos := c.addInstruction(ins)

	c.setLastInstruction(op, pos)

	return pos
}

func (c *Compiler) addInstruction(ins []byte) int {
	posNewInstruction := len(c.currentInstructions())
	c.scopes[c.scopeIndex].instructions = append(c.currentInstructions(), ins...)
	return posNewInstruction
}

func (c *Compiler) setLastInstruction(op bytecode.Opcode, pos int) {
	previous := c.scopes[c.scopeIndex].lastInstruction
	last := EmittedInstruction{Opcode: op, Position: pos}

	c.scopes[c.scopeIndex].previousInstruction = previous
	c.scopes[c.scopeIndex].lastInstruction = last
}

func (c *Compiler) lastInstructionIs(op bytecode.Opcode) bool {
	if len(c.currentInstructions()) == 0 {
		return false
	}
	return c.scopes[c.scopeIndex].lastInstruction.Opcode == op
}

func (c *Compiler) removeLastPop() {
	last := c.scopes[c.scopeIndex].lastInstruction
	previous := c.scopes[c.scopeIndex].previousInstruction

	old := c.currentInstructions()
	c.scopes[c.scopeIndex].instructions = old[:last.Position]
	c.scopes[c.scopeIndex].lastInstruction = previous
}

func (c *Compiler) replaceLastPopWithReturn() {
	lastPos := c.scopes[c.scopeIndex].lastInstruction.Position
	c.replaceInstruction(lastPos, bytecode.Make(bytecode.OP_RETURN_VALUE))
	c.scopes[c.scopeIndex].lastInstruction.Opcode = bytecode.OP_RETURN_VALUE
}

func (c *Compiler) replaceInstruction(pos int, newInstruction []byte) {
	ins := c.currentInstructions()
	copy(ins[pos:], newInstruction)
}

// changeOperand backpatches the operand of the instruction at opPos.
func (c *Compiler) changeOperand(opPos int, operand int) {
	c.currentInstructions().OverwriteOperand(opPos, operand)
}

func (c *Compiler) enterScope() {
	c.scopes = append(c.scopes, CompilationScope{instructions: bytecode.Instructions{}})
	c.scopeIndex++
	c.symbolTable = NewEnclosedSymbolTable(c.symbolTable)
}

func (c *Compiler) leaveScope() bytecode.Instructions {
	instructions := c.currentInstructions()

	c.scopes = c.scopes[:len(c.scopes)-1]
	c.scopeIndex--
	c.symbolTable = c.symbolTable.Outer

	return instructions
}

// loadSymbol emits the load instruction matching where s lives. Free slots
// past the one byte operand are a compiler limit, not a programming error.
func (c *Compiler) loadSymbol(s Symbol, tok token.Token) error {
	switch s.Scope {
	case GlobalScope:
		c.emit(bytecode.OP_GET_GLOBAL, s.Index)
	case LocalScope:
		c.emit(bytecode.OP_GET_LOCAL, s.Index)
	case BuiltinScope:
		c.emit(bytecode.OP_GET_BUILTIN, s.Index)
	case FreeScope:
		if s.Index >= config.MaxFree {
			return newError(ErrLimit, tok, fmt.Sprintf("too many captured variables (max %d)", config.MaxFree-1))
		}
		c.emit(bytecode.OP_GET_FREE, s.Index)
	case FunctionScope:
		c.emit(bytecode.OP_CURRENT_CLOSURE)
	}
	return nil
}

// defineSlot defines name and checks the slot fits the store instruction.
func (c *Compiler) defineSlot(name string, tok token.Token) (Symbol, error) {
	symbol := c.symbolTable.Define(name)
	limit := config.MaxLocals
	if symbol.Scope == GlobalScope {
		limit = config.GlobalsSize
	}
	if symbol.Index >= limit {
		return symbol, newError(ErrLimit, tok, fmt.Sprintf("too many %s bindings (max %d)", symbol.Scope, limit))
	}
	return symbol, nil
}
