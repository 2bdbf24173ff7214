package compiler

import (
	"fmt"

	"github.com/funvibe/monkey/internal/ast"
	"github.com/funvibe/monkey/internal/bytecode"
)

func (c *Compiler) compileStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		if err := c.compileExpression(s.Expression); err != nil {
			return err
		}
		c.emit(bytecode.OP_POP)

	case *ast.LetStatement:
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		symbol, err := c.defineSlot(s.Name.Value, s.Name.Token)
		if err != nil {
			return err
		}
		if symbol.Scope == GlobalScope {
			c.emit(bytecode.OP_SET_GLOBAL, symbol.Index)
		} else {
			c.emit(bytecode.OP_SET_LOCAL, symbol.Index)
		}

	case *ast.ReturnStatement:
		if s.ReturnValue == nil {
			c.emit(bytecode.OP_NIL)
		} else if err := c.compileExpression(s.ReturnValue); err != nil {
			return err
		}
		c.emit(bytecode.OP_RETURN_VALUE)

	case *ast.BlockStatement:
		return c.compileBlock(s)

	default:
		return newError(ErrUnsupportedNode, stmt.GetToken(), fmt.Sprintf("cannot compile statement %T", stmt))
	}
	return nil
}

func (c *Compiler) compileBlock(block *ast.BlockStatement) error {
	for _, s := range block.Statements {
		if err := c.compileStatement(s); err != nil {
			return err
		}
	}
	return nil
}

// compileBranch compiles an if/else block so that it leaves exactly one
// value on the stack: its trailing expression, or null.
func (c *Compiler) compileBranch(block *ast.BlockStatement) error {
	before := len(c.currentInstructions())
	if err := c.compileBlock(block); err != nil {
		return err
	}

	if len(c.currentInstructions()) > before && c.lastInstructionIs(bytecode.OP_POP) {
		c.removeLastPop()
		return nil
	}
	c.emit(bytecode.OP_NIL)
	return nil
}
