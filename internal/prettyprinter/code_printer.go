// Package prettyprinter formats programs back into canonical source code.
package prettyprinter

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/funvibe/monkey/internal/ast"
)

// Operator precedence (higher = binds tighter)
const (
	precLowest = iota
	precEquals
	precCompare
	precSum
	precProduct
	precPrefix
	precPostfix // calls and indexing
)

var operatorPrecedence = map[string]int{
	"==": precEquals,
	"!=": precEquals,
	"<":  precCompare,
	">":  precCompare,
	"+":  precSum,
	"-":  precSum,
	"*":  precProduct,
	"/":  precProduct,
}

func getPrecedence(op string) int {
	if p, ok := operatorPrecedence[op]; ok {
		return p
	}
	return precPostfix
}

// CodePrinter renders an AST as source. Output parses back to an
// equivalent program.
type CodePrinter struct {
	buf    bytes.Buffer
	indent int
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{}
}

// Format is a shortcut for printing a whole program.
func Format(program *ast.Program) string {
	p := NewCodePrinter()
	p.PrintProgram(program)
	return p.String()
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
}

func (p *CodePrinter) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("    ")
	}
}

// PrintProgram prints each top-level statement on its own line. A blank
// line separates function definitions from their neighbours.
func (p *CodePrinter) PrintProgram(n *ast.Program) {
	for i, stmt := range n.Statements {
		if i > 0 && (definesFunction(stmt) || definesFunction(n.Statements[i-1])) {
			p.write("\n")
		}
		p.printStatement(stmt, true)
		p.write("\n")
	}
}

func definesFunction(stmt ast.Statement) bool {
	let, ok := stmt.(*ast.LetStatement)
	if !ok {
		return false
	}
	_, ok = let.Value.(*ast.FunctionLiteral)
	return ok
}

func (p *CodePrinter) printStatement(stmt ast.Statement, terminate bool) {
	switch s := stmt.(type) {
	case *ast.LetStatement:
		p.write("let " + s.Name.Value + " = ")
		p.printExpr(s.Value, precLowest, false)
		p.write(";")
	case *ast.ReturnStatement:
		p.write("return")
		if s.ReturnValue != nil {
			p.write(" ")
			p.printExpr(s.ReturnValue, precLowest, false)
		}
		p.write(";")
	case *ast.ExpressionStatement:
		p.printExpr(s.Expression, precLowest, false)
		if terminate {
			p.write(";")
		}
	case *ast.BlockStatement:
		p.printBlock(s)
	default:
		p.write("<???>")
	}
}

// printBlock writes a braced block. Expression statements inside a block
// are not terminated so the block's value reads naturally.
func (p *CodePrinter) printBlock(n *ast.BlockStatement) {
	if n == nil || len(n.Statements) == 0 {
		p.write("{}")
		return
	}
	p.write("{\n")
	p.indent++
	for _, stmt := range n.Statements {
		p.writeIndent()
		p.printStatement(stmt, false)
		p.write("\n")
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

// printExpr prints an expression, adding parentheses only if needed
func (p *CodePrinter) printExpr(expr ast.Expression, parentPrec int, isRight bool) {
	switch e := expr.(type) {
	case nil:
		p.write("<???>")
	case *ast.Identifier:
		p.write(e.Value)
	case *ast.IntegerLiteral:
		p.write(strconv.FormatInt(e.Value, 10))
	case *ast.StringLiteral:
		p.write(quote(e.Value))
	case *ast.Boolean:
		p.write(strconv.FormatBool(e.Value))
	case *ast.PrefixExpression:
		needParens := parentPrec > precPrefix
		if needParens {
			p.write("(")
		}
		p.write(e.Operator)
		p.printExpr(e.Right, precPrefix, true)
		if needParens {
			p.write(")")
		}
	case *ast.InfixExpression:
		prec := getPrecedence(e.Operator)
		// All infix operators are left-associative
		needParens := prec < parentPrec || (prec == parentPrec && isRight)
		if needParens {
			p.write("(")
		}
		p.printExpr(e.Left, prec, false)
		p.write(" " + e.Operator + " ")
		p.printExpr(e.Right, prec, true)
		if needParens {
			p.write(")")
		}
	case *ast.IfExpression:
		p.write("if (")
		p.printExpr(e.Condition, precLowest, false)
		p.write(") ")
		p.printBlock(e.Consequence)
		if e.Alternative != nil {
			p.write(" else ")
			p.printBlock(e.Alternative)
		}
	case *ast.FunctionLiteral:
		params := make([]string, len(e.Parameters))
		for i, param := range e.Parameters {
			params[i] = param.Value
		}
		p.write("fn(" + strings.Join(params, ", ") + ") ")
		p.printBlock(e.Body)
	case *ast.CallExpression:
		p.printExpr(e.Function, precPostfix, false)
		p.write("(")
		p.printList(e.Arguments)
		p.write(")")
	case *ast.ArrayLiteral:
		p.write("[")
		p.printList(e.Elements)
		p.write("]")
	case *ast.HashLiteral:
		p.write("{")
		for i, pair := range e.Pairs {
			if i > 0 {
				p.write(", ")
			}
			p.printExpr(pair.Key, precLowest, false)
			p.write(": ")
			p.printExpr(pair.Value, precLowest, false)
		}
		p.write("}")
	case *ast.IndexExpression:
		p.printExpr(e.Left, precPostfix, false)
		p.write("[")
		p.printExpr(e.Index, precLowest, false)
		p.write("]")
	default:
		p.write("<???>")
	}
}

func (p *CodePrinter) printList(exprs []ast.Expression) {
	for i, e := range exprs {
		if i > 0 {
			p.write(", ")
		}
		p.printExpr(e, precLowest, false)
	}
}

// quote produces a string literal using only the escapes the lexer reads.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
