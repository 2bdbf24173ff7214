// Package object defines the values the VM operates on.
package object

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/monkey/internal/bytecode"
)

type ObjectType string

const (
	INTEGER_OBJ           = "INTEGER"
	BOOLEAN_OBJ           = "BOOLEAN"
	STRING_OBJ            = "STRING"
	NULL_OBJ              = "NULL"
	ARRAY_OBJ             = "ARRAY"
	HASH_OBJ              = "HASH"
	COMPILED_FUNCTION_OBJ = "COMPILED_FUNCTION"
	CLOSURE_OBJ           = "CLOSURE"
	BUILTIN_OBJ           = "BUILTIN"
)

// Object is implemented only by the types in this package. The unexported
// method keeps the set closed so every switch over it can be exhaustive.
type Object interface {
	Type() ObjectType
	Inspect() string
	object()
}

var (
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
	NULL  = &Null{}
)

// NativeBool returns the shared Boolean singleton for b.
func NativeBool(b bool) *Boolean {
	if b {
		return TRUE
	}
	return FALSE
}

// IsTruthy reports whether obj counts as true in a condition. Only null and
// false are falsy.
func IsTruthy(obj Object) bool {
	switch obj := obj.(type) {
	case *Boolean:
		return obj.Value
	case *Null:
		return false
	default:
		return true
	}
}

type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }
func (i *Integer) object()          {}

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }
func (b *Boolean) object()          {}

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }
func (s *String) object()          {}

type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "null" }
func (n *Null) object()          {}

type Array struct {
	Elements []Object
}

func (a *Array) Type() ObjectType { return ARRAY_OBJ }
func (a *Array) object()          {}
func (a *Array) Inspect() string {
	elements := make([]string, 0, len(a.Elements))
	for _, e := range a.Elements {
		elements = append(elements, e.Inspect())
	}
	return "[" + strings.Join(elements, ", ") + "]"
}

// CompiledFunction is the constant-pool form of a function literal.
type CompiledFunction struct {
	Instructions  bytecode.Instructions
	NumLocals     int
	NumParameters int
	Name          string
}

func (cf *CompiledFunction) Type() ObjectType { return COMPILED_FUNCTION_OBJ }
func (cf *CompiledFunction) object()          {}
func (cf *CompiledFunction) Inspect() string {
	if cf.Name != "" {
		return fmt.Sprintf("CompiledFunction<%s>[%p]", cf.Name, cf)
	}
	return fmt.Sprintf("CompiledFunction[%p]", cf)
}

// Closure pairs a compiled function with the values it captured, in the
// order the compiler recorded its free symbols.
type Closure struct {
	Fn   *CompiledFunction
	Free []Object
}

func (c *Closure) Type() ObjectType { return CLOSURE_OBJ }
func (c *Closure) object()          {}
func (c *Closure) Inspect() string {
	if c.Fn.Name != "" {
		return fmt.Sprintf("Closure<%s>[%p]", c.Fn.Name, c)
	}
	return fmt.Sprintf("Closure[%p]", c)
}
