package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/monkey/internal/bytecode"
	"github.com/funvibe/monkey/internal/compiler"
	"github.com/funvibe/monkey/internal/object"
)

// runVMExpectError compiles and runs the input, expecting a runtime error.
func runVMExpectError(t *testing.T, input string) error {
	t.Helper()
	vm := New(compile(t, input))
	vm.SetOutput(&bytes.Buffer{})

	err := vm.Run()
	if err == nil {
		t.Fatalf("expected runtime error, but code ran successfully")
	}
	return err
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sentinel error
		kind     Kind
		want     string
	}{
		{"int_plus_bool", "5 + true", ErrType, KindType, "unsupported types for binary operation: INTEGER + BOOLEAN"},
		{"string_minus", `"a" - "b"`, ErrType, KindType, "STRING - STRING"},
		{"string_plus_int", `"a" + 1`, ErrType, KindType, "STRING + INTEGER"},
		{"bool_ordering", "true > false", ErrType, KindType, "unsupported types for comparison"},
		{"bool_less", "true < false", ErrType, KindType, "unsupported types for comparison"},
		{"negate_bool", "-true", ErrType, KindType, "unsupported type for negation: BOOLEAN"},
		{"call_integer", "1()", ErrType, KindType, "calling non-function and non-built-in: INTEGER"},
		{"index_integer", "1[0]", ErrType, KindType, "index operator not supported: INTEGER"},
		{"array_hash_key", "{[1]: 2}", ErrType, KindType, "unusable as hash key: ARRAY"},
		{"fn_hash_key", "{fn() {}: 2}", ErrType, KindType, "unusable as hash key: CLOSURE"},
		{"div_zero", "1 / 0", ErrArithmetic, KindArithmetic, "division by zero"},
		{"too_few_args", "fn(a) { a }()", ErrArity, KindArity, "wrong number of arguments: want=1, got=0"},
		{"too_many_args", "fn() { 1 }(1)", ErrArity, KindArity, "wrong number of arguments: want=0, got=1"},
		{"len_int", "len(1)", ErrType, KindType, "argument to `len` not supported, got INTEGER"},
		{"len_arity", `len("one", "two")`, ErrArity, KindArity, "wrong number of arguments. got=2, want=1"},
		{"first_int", "first(1)", ErrType, KindType, "argument to `first` must be ARRAY, got INTEGER"},
		{"push_arity", "push([])", ErrArity, KindArity, "got=1, want=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runVMExpectError(t, tt.input)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected errors.Is(%v), got %v", tt.sentinel, err)
			}
			var rerr *RuntimeError
			if !errors.As(err, &rerr) {
				t.Fatalf("expected *RuntimeError, got %T", err)
			}
			if rerr.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, rerr.Kind)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestBuiltinErrorsWrapObjectSentinels(t *testing.T) {
	err := runVMExpectError(t, "len(1)")
	if !errors.Is(err, object.ErrArgType) {
		t.Errorf("expected object.ErrArgType in chain, got %v", err)
	}
}

func TestFrameOverflow(t *testing.T) {
	err := runVMExpectError(t, "let f = fn() { f() }; f()")
	if !errors.Is(err, ErrResource) || !errors.Is(err, ErrFrameOverflow) {
		t.Errorf("expected frame overflow, got %v", err)
	}
}

func TestStackOverflow(t *testing.T) {
	vm := New(compile(t, "let f = fn(a, b, c, d) { let e = 1; f(a, b, c, d) }; f(1, 2, 3, 4)"))
	err := vm.Run()
	if !errors.Is(err, ErrResource) || !errors.Is(err, ErrStackOverflow) {
		t.Errorf("expected stack overflow, got %v", err)
	}
}

func TestSetLimits(t *testing.T) {
	input := "let f = fn(x) { if (x == 0) { 0 } else { f(x - 1) } }; f(20)"

	vm := New(compile(t, input))
	vm.SetLimits(0, 10)
	if err := vm.Run(); !errors.Is(err, ErrFrameOverflow) {
		t.Errorf("expected frame overflow with 10 frames, got %v", err)
	}

	vm = New(compile(t, input))
	vm.SetLimits(16, 0)
	if err := vm.Run(); !errors.Is(err, ErrStackOverflow) {
		t.Errorf("expected stack overflow with 16 slots, got %v", err)
	}

	vm = New(compile(t, input))
	vm.SetLimits(128, 64)
	if err := vm.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testIntegerObject(t, vm.LastPoppedStackElem(), 0)
}

// session mimics a REPL: one symbol table, constant pool and globals store
// shared by every input.
type session struct {
	symbolTable *compiler.SymbolTable
	constants   []object.Object
	globals     []object.Object
}

func newSession() *session {
	return &session{
		symbolTable: compiler.NewSymbolTableWithBuiltins(),
		constants:   []object.Object{},
		globals:     NewGlobalsStore(),
	}
}

func (s *session) run(t *testing.T, input string) (object.Object, error) {
	t.Helper()
	comp := compiler.NewWithState(s.symbolTable, s.constants)
	if err := comp.Compile(parse(t, input)); err != nil {
		return nil, err
	}
	bc := comp.Bytecode()
	s.constants = bc.Constants

	vm := NewWithGlobalsStore(bc, s.globals)
	vm.SetOutput(&bytes.Buffer{})
	if err := vm.Run(); err != nil {
		return nil, err
	}
	return vm.LastPoppedStackElem(), nil
}

func TestGlobalsPersistAcrossRuns(t *testing.T) {
	s := newSession()

	steps := []struct {
		input string
		want  int64
	}{
		{"let x = 5; x;", 5},
		{"x", 5},
		{"let x = 10;", 10},
		{"x;", 10},
		{"let add = fn(a) { a + x }; add(1)", 11},
		{"add(2)", 12},
	}
	for _, step := range steps {
		got, err := s.run(t, step.input)
		if err != nil {
			t.Fatalf("%q: %v", step.input, err)
		}
		testIntegerObject(t, got, step.want)
	}
}

func TestArityErrorDoesNotCorruptLaterRuns(t *testing.T) {
	s := newSession()

	if _, err := s.run(t, "let one = 1; let id = fn(a) { a };"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.run(t, "id(1, 2)"); !errors.Is(err, ErrArity) {
		t.Fatalf("expected arity error, got %v", err)
	}

	got, err := s.run(t, "id(one) + 1")
	if err != nil {
		t.Fatalf("unexpected error after arity failure: %v", err)
	}
	testIntegerObject(t, got, 2)
}

func TestGlobalsAssignedBeforeErrorRemain(t *testing.T) {
	s := newSession()

	if _, err := s.run(t, "let a = 1; let b = a / 0; let c = 3;"); !errors.Is(err, ErrArithmetic) {
		t.Fatalf("expected arithmetic error, got %v", err)
	}

	got, err := s.run(t, "a")
	if err != nil {
		t.Fatal(err)
	}
	testIntegerObject(t, got, 1)

	// b and c were compiled but never assigned.
	for _, name := range []string{"b", "c"} {
		got, err := s.run(t, name)
		if err != nil {
			t.Fatal(err)
		}
		if got != object.NULL {
			t.Errorf("%s: expected null, got %s", name, got.Inspect())
		}
	}
}

func TestMalformedBytecode(t *testing.T) {
	tests := []struct {
		name string
		bc   *compiler.Bytecode
	}{
		{
			"truncated_operand",
			&compiler.Bytecode{Instructions: bytecode.Instructions{byte(bytecode.OP_CONST), 0}},
		},
		{
			"stack_underflow",
			&compiler.Bytecode{Instructions: bytecode.Make(bytecode.OP_ADD)},
		},
		{
			"bad_constant",
			&compiler.Bytecode{Instructions: bytecode.Make(bytecode.OP_CONST, 3)},
		},
		{
			"unknown_opcode",
			&compiler.Bytecode{Instructions: bytecode.Instructions{250}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.bc).Run()
			if err == nil || !strings.Contains(err.Error(), "malformed bytecode") {
				t.Errorf("expected malformed bytecode error, got %v", err)
			}
		})
	}
}

func TestAssembledProgramRuns(t *testing.T) {
	ins, err := bytecode.Assemble(`
0000 CONST 0
0003 CONST 1
0006 GT
0007 JUMP_IF_FALSE 14
0010 CONST 0
0013 POP
0014 CONST 1
0017 POP
`)
	if err != nil {
		t.Fatal(err)
	}
	vm := New(&compiler.Bytecode{
		Instructions: ins,
		Constants:    []object.Object{&object.Integer{Value: 1}, &object.Integer{Value: 2}},
	})
	if err := vm.Run(); err != nil {
		t.Fatal(err)
	}
	testIntegerObject(t, vm.LastPoppedStackElem(), 2)
}
