// Package monkey embeds the Monkey compiler and VM in Go programs.
//
//	vm := monkey.New()
//	vm.Bind("double", func(x int) int { return x * 2 })
//	res, err := vm.Eval(`double(21)`) // int64(42)
package monkey

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/funvibe/monkey/internal/backend"
	"github.com/funvibe/monkey/internal/config"
	"github.com/funvibe/monkey/internal/object"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ErrHostPanic wraps a panic raised by a bound Go function.
var ErrHostPanic = errors.New("host function panicked")

// VM is a persistent Monkey session. Each Eval sees the globals defined by
// earlier calls. A VM is not safe for concurrent use.
type VM struct {
	session    *backend.Session
	marshaller *Marshaller
}

// New creates a VM with default limits. puts output is discarded until
// SetOutput is called.
func New() *VM {
	return NewWithSettings(config.DefaultSettings())
}

// NewWithSettings creates a VM using the stack and frame limits in settings.
func NewWithSettings(settings *config.Settings) *VM {
	session := backend.NewSession(settings)
	session.SetOutput(io.Discard)
	return &VM{session: session, marshaller: NewMarshaller()}
}

// ID identifies the underlying session.
func (v *VM) ID() string { return v.session.ID() }

// SetOutput sets where puts writes.
func (v *VM) SetOutput(w io.Writer) { v.session.SetOutput(w) }

// Eval runs src and converts the result to a Go value.
func (v *VM) Eval(src string) (interface{}, error) {
	result, err := v.session.Eval(src)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromValue(result)
}

// Set makes a Go value available to scripts as a global.
func (v *VM) Set(name string, val interface{}) error {
	obj, err := v.marshaller.ToValue(val)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return v.session.SetGlobal(name, obj)
}

// Get returns the current value of a global.
func (v *VM) Get(name string) (interface{}, error) {
	obj, ok := v.session.Global(name)
	if !ok {
		return nil, fmt.Errorf("variable '%s' not found", name)
	}
	return v.marshaller.FromValue(obj)
}

// Bind registers a Go function under name. Arguments are converted to the
// function's parameter types; a trailing error result is returned to the
// script as a runtime error. Non-function values are bound as with Set.
func (v *VM) Bind(name string, fn interface{}) error {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return v.Set(name, fn)
	}
	if rv.IsNil() {
		return fmt.Errorf("bind %s: nil function", name)
	}

	builtin := &object.Builtin{
		Name: name,
		Fn: func(_ io.Writer, args ...object.Object) (object.Object, error) {
			return v.callHost(rv, args)
		},
	}
	return v.session.SetGlobal(name, builtin)
}

func (v *VM) callHost(fn reflect.Value, args []object.Object) (result object.Object, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("%w: %v", ErrHostPanic, r)
		}
	}()

	fnType := fn.Type()
	numIn := fnType.NumIn()
	isVariadic := fnType.IsVariadic()

	// Check arg count
	if isVariadic {
		if len(args) < numIn-1 {
			return nil, fmt.Errorf("%w. got=%d, want at least %d", object.ErrWrongArgCount, len(args), numIn-1)
		}
	} else if len(args) != numIn {
		return nil, fmt.Errorf("%w. got=%d, want=%d", object.ErrWrongArgCount, len(args), numIn)
	}

	goArgs := make([]reflect.Value, len(args))
	for i, arg := range args {
		var targetType reflect.Type
		if isVariadic && i >= numIn-1 {
			targetType = fnType.In(numIn - 1).Elem()
		} else {
			targetType = fnType.In(i)
		}

		val, err := v.marshaller.FromValueAs(arg, targetType)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d: %s", object.ErrArgType, i, err)
		}
		goArgs[i] = val
	}

	results := fn.Call(goArgs)

	if n := len(results); n > 0 && fnType.Out(n-1) == errorType {
		if errVal := results[n-1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
		results = results[:n-1]
	}

	switch len(results) {
	case 0:
		return object.NULL, nil
	case 1:
		return v.marshaller.ToValue(results[0].Interface())
	}
	// Multiple returns -> Array
	elements := make([]object.Object, len(results))
	for i, res := range results {
		val, err := v.marshaller.ToValue(res.Interface())
		if err != nil {
			return nil, err
		}
		elements[i] = val
	}
	return &object.Array{Elements: elements}, nil
}
