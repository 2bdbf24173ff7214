package compiler

import (
	"fmt"

	"github.com/funvibe/monkey/internal/ast"
	"github.com/funvibe/monkey/internal/bytecode"
	"github.com/funvibe/monkey/internal/config"
	"github.com/funvibe/monkey/internal/object"
	"github.com/funvibe/monkey/internal/token"
)

// placeholder operand for jumps patched once their target is known
const placeholder = 9999

// maxJumpTarget is the largest offset a two byte jump operand can hold.
const maxJumpTarget = 1<<16 - 1

func (c *Compiler) compileExpression(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return c.emitConstant(&object.Integer{Value: e.Value}, e.Token)

	case *ast.StringLiteral:
		return c.emitConstant(&object.String{Value: e.Value}, e.Token)

	case *ast.Boolean:
		if e.Value {
			c.emit(bytecode.OP_TRUE)
		} else {
			c.emit(bytecode.OP_FALSE)
		}

	case *ast.PrefixExpression:
		return c.compilePrefix(e)

	case *ast.InfixExpression:
		return c.compileInfix(e)

	case *ast.IfExpression:
		return c.compileIf(e)

	case *ast.Identifier:
		symbol, ok := c.symbolTable.Resolve(e.Value)
		if !ok {
			return newError(ErrUndefined, e.Token, fmt.Sprintf("undefined variable %s", e.Value))
		}
		return c.loadSymbol(symbol, e.Token)

	case *ast.ArrayLiteral:
		for _, el := range e.Elements {
			if err := c.compileExpression(el); err != nil {
				return err
			}
		}
		if err := checkOperand(len(e.Elements), 1<<16, e.Token, "array elements"); err != nil {
			return err
		}
		c.emit(bytecode.OP_MAKE_ARRAY, len(e.Elements))

	case *ast.HashLiteral:
		for _, pair := range e.Pairs {
			if err := c.compileExpression(pair.Key); err != nil {
				return err
			}
			if err := c.compileExpression(pair.Value); err != nil {
				return err
			}
		}
		if err := checkOperand(len(e.Pairs)*2, 1<<16, e.Token, "hash elements"); err != nil {
			return err
		}
		c.emit(bytecode.OP_MAKE_HASH, len(e.Pairs)*2)

	case *ast.IndexExpression:
		if err := c.compileExpression(e.Left); err != nil {
			return err
		}
		if err := c.compileExpression(e.Index); err != nil {
			return err
		}
		c.emit(bytecode.OP_INDEX)

	case *ast.FunctionLiteral:
		return c.compileFunction(e)

	case *ast.CallExpression:
		if err := c.compileExpression(e.Function); err != nil {
			return err
		}
		for _, a := range e.Arguments {
			if err := c.compileExpression(a); err != nil {
				return err
			}
		}
		if err := checkOperand(len(e.Arguments), config.MaxArgs+1, e.Token, "call arguments"); err != nil {
			return err
		}
		c.emit(bytecode.OP_CALL, len(e.Arguments))

	default:
		if expr == nil {
			return newError(ErrUnsupportedNode, token.Token{}, "cannot compile missing expression")
		}
		return newError(ErrUnsupportedNode, expr.GetToken(), fmt.Sprintf("cannot compile expression %T", expr))
	}
	return nil
}

func (c *Compiler) emitConstant(obj object.Object, tok token.Token) error {
	idx, err := c.addConstant(obj, tok)
	if err != nil {
		return err
	}
	c.emit(bytecode.OP_CONST, idx)
	return nil
}

func (c *Compiler) compilePrefix(e *ast.PrefixExpression) error {
	if err := c.compileExpression(e.Right); err != nil {
		return err
	}

	switch e.Operator {
	case "!":
		c.emit(bytecode.OP_NOT)
	case "-":
		c.emit(bytecode.OP_NEG)
	default:
		return newError(ErrUnknownOperator, e.Token, fmt.Sprintf("unknown operator %s", e.Operator))
	}
	return nil
}

var infixOps = map[string]bytecode.Opcode{
	"+":  bytecode.OP_ADD,
	"-":  bytecode.OP_SUB,
	"*":  bytecode.OP_MUL,
	"/":  bytecode.OP_DIV,
	">":  bytecode.OP_GT,
	"==": bytecode.OP_EQ,
	"!=": bytecode.OP_NE,
}

func (c *Compiler) compileInfix(e *ast.InfixExpression) error {
	// a < b is b > a
	if e.Operator == "<" {
		if err := c.compileExpression(e.Right); err != nil {
			return err
		}
		if err := c.compileExpression(e.Left); err != nil {
			return err
		}
		c.emit(bytecode.OP_GT)
		return nil
	}

	op, ok := infixOps[e.Operator]
	if !ok {
		return newError(ErrUnknownOperator, e.Token, fmt.Sprintf("unknown operator %s", e.Operator))
	}

	if err := c.compileExpression(e.Left); err != nil {
		return err
	}
	if err := c.compileExpression(e.Right); err != nil {
		return err
	}
	c.emit(op)
	return nil
}

func (c *Compiler) compileIf(e *ast.IfExpression) error {
	if err := c.compileExpression(e.Condition); err != nil {
		return err
	}

	jumpIfFalsePos := c.emit(bytecode.OP_JUMP_IF_FALSE, placeholder)

	if err := c.compileBranch(e.Consequence); err != nil {
		return err
	}

	jumpPos := c.emit(bytecode.OP_JUMP, placeholder)

	afterConsequencePos := len(c.currentInstructions())
	if err := checkOperand(afterConsequencePos, maxJumpTarget+1, e.Token, "instruction bytes"); err != nil {
		return err
	}
	c.changeOperand(jumpIfFalsePos, afterConsequencePos)

	if e.Alternative == nil {
		c.emit(bytecode.OP_NIL)
	} else if err := c.compileBranch(e.Alternative); err != nil {
		return err
	}

	afterAlternativePos := len(c.currentInstructions())
	if err := checkOperand(afterAlternativePos, maxJumpTarget+1, e.Token, "instruction bytes"); err != nil {
		return err
	}
	c.changeOperand(jumpPos, afterAlternativePos)

	return nil
}

func (c *Compiler) compileFunction(e *ast.FunctionLiteral) error {
	c.enterScope()

	if e.Name != "" {
		c.symbolTable.DefineFunctionName(e.Name)
	}

	for _, p := range e.Parameters {
		if _, err := c.defineSlot(p.Value, p.Token); err != nil {
			c.leaveScope()
			return err
		}
	}

	if err := c.compileBlock(e.Body); err != nil {
		c.leaveScope()
		return err
	}

	if c.lastInstructionIs(bytecode.OP_POP) {
		c.replaceLastPopWithReturn()
	}
	if !c.lastInstructionIs(bytecode.OP_RETURN_VALUE) {
		c.emit(bytecode.OP_RETURN)
	}

	freeSymbols := c.symbolTable.FreeSymbols
	numLocals := c.symbolTable.NumDefinitions()
	instructions := c.leaveScope()

	if err := checkOperand(len(freeSymbols), config.MaxFree, e.Token, "captured variables"); err != nil {
		return err
	}
	for _, s := range freeSymbols {
		if err := c.loadSymbol(s, e.Token); err != nil {
			return err
		}
	}

	compiledFn := &object.CompiledFunction{
		Instructions:  instructions,
		NumLocals:     numLocals,
		NumParameters: len(e.Parameters),
		Name:          e.Name,
	}

	fnIndex, err := c.addConstant(compiledFn, e.Token)
	if err != nil {
		return err
	}
	c.emit(bytecode.OP_CLOSURE, fnIndex, len(freeSymbols))

	return nil
}

func checkOperand(n, limit int, tok token.Token, what string) error {
	if n >= limit {
		return newError(ErrLimit, tok, fmt.Sprintf("too many %s: %d (max %d)", what, n, limit-1))
	}
	return nil
}
