package object

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/funvibe/monkey/internal/config"
)

var (
	// ErrWrongArgCount is wrapped by builtins called with the wrong number of arguments.
	ErrWrongArgCount = errors.New("wrong number of arguments")
	// ErrArgType is wrapped by builtins given an argument of an unsupported type.
	ErrArgType = errors.New("unsupported argument type")
)

// BuiltinFunction receives the VM's output writer for builtins that print.
type BuiltinFunction func(out io.Writer, args ...Object) (Object, error)

type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Type() ObjectType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string  { return "builtin function " + b.Name }
func (b *Builtin) object()          {}

// Builtins is indexed by OP_GET_BUILTIN operands; the order is part of the
// bytecode format and must not change.
var Builtins = []*Builtin{
	{Name: config.LenFuncName, Fn: builtinLen},
	{Name: config.PutsFuncName, Fn: builtinPuts},
	{Name: config.FirstFuncName, Fn: builtinFirst},
	{Name: config.LastFuncName, Fn: builtinLast},
	{Name: config.RestFuncName, Fn: builtinRest},
	{Name: config.PushFuncName, Fn: builtinPush},
}

// GetBuiltinByName returns the builtin called name, or nil.
func GetBuiltinByName(name string) *Builtin {
	for _, b := range Builtins {
		if b.Name == name {
			return b
		}
	}
	return nil
}

func wrongArgCount(got, want int) error {
	return fmt.Errorf("%w. got=%d, want=%d", ErrWrongArgCount, got, want)
}

func argTypeError(name string, arg Object) error {
	return fmt.Errorf("%w: argument to `%s` must be ARRAY, got %s", ErrArgType, name, arg.Type())
}

func builtinLen(_ io.Writer, args ...Object) (Object, error) {
	if len(args) != 1 {
		return nil, wrongArgCount(len(args), 1)
	}

	switch arg := args[0].(type) {
	case *String:
		return &Integer{Value: int64(utf8.RuneCountInString(arg.Value))}, nil
	case *Array:
		return &Integer{Value: int64(len(arg.Elements))}, nil
	case *Hash:
		return &Integer{Value: int64(arg.Len())}, nil
	default:
		return nil, fmt.Errorf("%w: argument to `len` not supported, got %s", ErrArgType, args[0].Type())
	}
}

func builtinPuts(out io.Writer, args ...Object) (Object, error) {
	for _, arg := range args {
		if _, err := fmt.Fprintln(out, arg.Inspect()); err != nil {
			return nil, err
		}
	}
	return NULL, nil
}

func builtinFirst(_ io.Writer, args ...Object) (Object, error) {
	arr, err := singleArray("first", args)
	if err != nil {
		return nil, err
	}
	if len(arr.Elements) > 0 {
		return arr.Elements[0], nil
	}
	return NULL, nil
}

func builtinLast(_ io.Writer, args ...Object) (Object, error) {
	arr, err := singleArray("last", args)
	if err != nil {
		return nil, err
	}
	if n := len(arr.Elements); n > 0 {
		return arr.Elements[n-1], nil
	}
	return NULL, nil
}

func builtinRest(_ io.Writer, args ...Object) (Object, error) {
	arr, err := singleArray("rest", args)
	if err != nil {
		return nil, err
	}
	n := len(arr.Elements)
	if n == 0 {
		return NULL, nil
	}
	newElements := make([]Object, n-1)
	copy(newElements, arr.Elements[1:n])
	return &Array{Elements: newElements}, nil
}

func builtinPush(_ io.Writer, args ...Object) (Object, error) {
	if len(args) != 2 {
		return nil, wrongArgCount(len(args), 2)
	}
	arr, ok := args[0].(*Array)
	if !ok {
		return nil, argTypeError("push", args[0])
	}

	n := len(arr.Elements)
	newElements := make([]Object, n+1)
	copy(newElements, arr.Elements)
	newElements[n] = args[1]
	return &Array{Elements: newElements}, nil
}

func singleArray(name string, args []Object) (*Array, error) {
	if len(args) != 1 {
		return nil, wrongArgCount(len(args), 1)
	}
	arr, ok := args[0].(*Array)
	if !ok {
		return nil, argTypeError(name, args[0])
	}
	return arr, nil
}
