package vm

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/funvibe/monkey/internal/ast"
	"github.com/funvibe/monkey/internal/bytecode"
	"github.com/funvibe/monkey/internal/compiler"
	"github.com/funvibe/monkey/internal/object"
	"github.com/funvibe/monkey/internal/parser"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	program, err := parser.ParseString(input)
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	return program
}

func compile(t *testing.T, input string) *compiler.Bytecode {
	t.Helper()
	comp := compiler.New()
	if err := comp.Compile(parse(t, input)); err != nil {
		t.Fatalf("compilation error: %s", err)
	}
	return comp.Bytecode()
}

func runVM(t *testing.T, input string) object.Object {
	t.Helper()
	vm := New(compile(t, input))
	if err := vm.Run(); err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	return vm.LastPoppedStackElem()
}

type vmTestCase struct {
	input    string
	expected interface{}
}

func runVMTests(t *testing.T, tests []vmTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			testExpectedObject(t, tt.expected, runVM(t, tt.input))
		})
	}
}

func testExpectedObject(t *testing.T, expected interface{}, actual object.Object) {
	t.Helper()

	switch expected := expected.(type) {
	case int:
		testIntegerObject(t, actual, int64(expected))
	case int64:
		testIntegerObject(t, actual, expected)
	case bool:
		testBooleanObject(t, actual, expected)
	case string:
		testStringObject(t, actual, expected)
	case []int:
		array, ok := actual.(*object.Array)
		if !ok {
			t.Fatalf("object not Array: %T (%+v)", actual, actual)
		}
		if len(array.Elements) != len(expected) {
			t.Fatalf("wrong num of elements. want=%d, got=%d", len(expected), len(array.Elements))
		}
		for i, el := range expected {
			testIntegerObject(t, array.Elements[i], int64(el))
		}
	case map[object.HashKey]int64:
		hash, ok := actual.(*object.Hash)
		if !ok {
			t.Fatalf("object is not Hash. got=%T (%+v)", actual, actual)
		}
		if hash.Len() != len(expected) {
			t.Fatalf("hash has wrong number of pairs. want=%d, got=%d", len(expected), hash.Len())
		}
		for k, v := range expected {
			pair, ok := hash.Pairs[k]
			if !ok {
				t.Fatalf("no pair for given key in pairs")
			}
			testIntegerObject(t, pair.Value, v)
		}
	case *object.Null:
		if actual != object.NULL {
			t.Errorf("object is not Null: %T (%+v)", actual, actual)
		}
	default:
		t.Fatalf("unsupported expectation %T", expected)
	}
}

func testIntegerObject(t *testing.T, obj object.Object, expected int64) {
	t.Helper()
	result, ok := obj.(*object.Integer)
	if !ok {
		t.Fatalf("object is not Integer. got=%T (%+v)", obj, obj)
	}
	if result.Value != expected {
		t.Errorf("object has wrong value. got=%d, want=%d", result.Value, expected)
	}
}

func testBooleanObject(t *testing.T, obj object.Object, expected bool) {
	t.Helper()
	result, ok := obj.(*object.Boolean)
	if !ok {
		t.Fatalf("object is not Boolean. got=%T (%+v)", obj, obj)
	}
	if result.Value != expected {
		t.Errorf("object has wrong value. got=%t, want=%t", result.Value, expected)
	}
}

func testStringObject(t *testing.T, obj object.Object, expected string) {
	t.Helper()
	result, ok := obj.(*object.String)
	if !ok {
		t.Fatalf("object is not String. got=%T (%+v)", obj, obj)
	}
	if result.Value != expected {
		t.Errorf("object has wrong value. got=%q, want=%q", result.Value, expected)
	}
}

var Null = object.NULL

func TestIntegerArithmetic(t *testing.T) {
	tests := []vmTestCase{
		{"1", 1},
		{"2", 2},
		{"1 + 2", 3},
		{"1 - 2", -1},
		{"1 * 2", 2},
		{"4 / 2", 2},
		{"50 / 2 * 2 + 10 - 5", 55},
		{"5 * (2 + 10)", 60},
		{"-5", -5},
		{"-50 + 100 + -50", 0},
		{"(5 + 10 * 2 + 15 / 3) * 2 + -10", 50},
		{"7 / 2", 3},
		{"-7 / 2", -3},
		{"7 / -2", -3},
		{"9223372036854775807 + 1", int64(math.MinInt64)},
		{"-9223372036854775807 - 2", int64(math.MaxInt64)},
		{"(-9223372036854775807 - 1) / -1", int64(math.MinInt64)},
		{"-(-9223372036854775807 - 1)", int64(math.MinInt64)},
		{"4611686018427387904 * 2", int64(math.MinInt64)},
	}

	runVMTests(t, tests)
}

func intLiteral(n int64) string {
	if n == math.MinInt64 {
		return "(-9223372036854775807 - 1)"
	}
	return fmt.Sprintf("(%d)", n)
}

func TestIntegerArithmeticMatchesGo(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	samples := []int64{0, 1, -1, 2, -2, 7, -7, math.MaxInt64, math.MinInt64}
	for i := 0; i < 40; i++ {
		samples = append(samples, r.Int63()-r.Int63())
	}

	for i := 0; i+1 < len(samples); i++ {
		a, b := samples[i], samples[len(samples)-1-i]
		cases := []struct {
			op   string
			want int64
		}{
			{"+", a + b},
			{"-", a - b},
			{"*", a * b},
		}
		if b != 0 {
			cases = append(cases, struct {
				op   string
				want int64
			}{"/", a / b})
		}
		for _, c := range cases {
			input := intLiteral(a) + " " + c.op + " " + intLiteral(b)
			testIntegerObject(t, runVM(t, input), c.want)
		}
	}
}

func TestBooleanExpressions(t *testing.T) {
	tests := []vmTestCase{
		{"true", true},
		{"false", false},
		{"1 < 2", true},
		{"1 > 2", false},
		{"1 < 1", false},
		{"1 > 1", false},
		{"1 == 1", true},
		{"1 != 1", false},
		{"1 == 2", false},
		{"1 != 2", true},
		{"true == true", true},
		{"false == false", true},
		{"true == false", false},
		{"true != false", true},
		{"(1 < 2) == true", true},
		{"(1 > 2) == true", false},
		{`"a" == "a"`, true},
		{`"a" != "b"`, true},
		{"1 == true", false},
		{"!true", false},
		{"!false", true},
		{"!5", false},
		{"!!true", true},
		{"!!5", true},
		{"!(if (false) { 5; })", true},
	}

	runVMTests(t, tests)
}

func TestLessThanEqualsGreaterThanSwapped(t *testing.T) {
	testBooleanObject(t, runVM(t, "1 < 2"), true)
	testBooleanObject(t, runVM(t, "2 > 1"), true)
}

func TestConditionals(t *testing.T) {
	tests := []vmTestCase{
		{"if (true) { 10 }", 10},
		{"if (true) { 10 } else { 20 }", 10},
		{"if (false) { 10 } else { 20 } ", 20},
		{"if (1) { 10 }", 10},
		{"if (1 < 2) { 10 }", 10},
		{"if (1 < 2) { 10 } else { 20 }", 10},
		{"if (1 > 2) { 10 } else { 20 }", 20},
		{"if (1 > 2) { 10 }", Null},
		{"if (false) { 10 }", Null},
		{"if ((if (false) { 10 })) { 10 } else { 20 }", 20},
		{"if (true) { }", Null},
		{"if (true) { let a = 5; }", Null},
	}

	runVMTests(t, tests)
}

func TestGlobalLetStatements(t *testing.T) {
	tests := []vmTestCase{
		{"let one = 1; one", 1},
		{"let one = 1; let two = 2; one + two", 3},
		{"let one = 1; let two = one + one; one + two", 3},
		{"let x = 1; let x = x + 1; x", 2},
	}

	runVMTests(t, tests)
}

func TestStringExpressions(t *testing.T) {
	tests := []vmTestCase{
		{`"monkey"`, "monkey"},
		{`"mon" + "key"`, "monkey"},
		{`"mon" + "key" + "banana"`, "monkeybanana"},
	}

	runVMTests(t, tests)
}

func TestArrayLiterals(t *testing.T) {
	tests := []vmTestCase{
		{"[]", []int{}},
		{"[1, 2, 3]", []int{1, 2, 3}},
		{"[1 + 2, 3 * 4, 5 + 6]", []int{3, 12, 11}},
	}

	runVMTests(t, tests)
}

func TestHashLiterals(t *testing.T) {
	tests := []vmTestCase{
		{"{}", map[object.HashKey]int64{}},
		{
			"{1: 2, 2: 3}",
			map[object.HashKey]int64{
				(&object.Integer{Value: 1}).HashKey(): 2,
				(&object.Integer{Value: 2}).HashKey(): 3,
			},
		},
		{
			"{1 + 1: 2 * 2, 3 + 3: 4 * 4}",
			map[object.HashKey]int64{
				(&object.Integer{Value: 2}).HashKey(): 4,
				(&object.Integer{Value: 6}).HashKey(): 16,
			},
		},
		{
			`{"a": 1, true: 2, "a": 3}`,
			map[object.HashKey]int64{
				(&object.String{Value: "a"}).HashKey(): 3,
				object.TRUE.HashKey():                  2,
			},
		},
	}

	runVMTests(t, tests)
}

func TestIndexExpressions(t *testing.T) {
	tests := []vmTestCase{
		{"[1, 2, 3][1]", 2},
		{"[1, 2, 3][0 + 2]", 3},
		{"[[1, 1, 1]][0][0]", 1},
		{"[1, 2, 3][0]", 1},
		{"[][0]", Null},
		{"[1, 2, 3][5]", Null},
		{"[1][-1]", Null},
		{`[1, 2]["a"]`, Null},
		{"{1: 1, 2: 2}[1]", 1},
		{"{1: 1, 2: 2}[2]", 2},
		{"{1: 1}[0]", Null},
		{"{}[0]", Null},
		{`{"a": 1}["b"]`, Null},
		{`{"a": 1}["a"]`, 1},
		{"{1: 1}[[1]]", Null},
		{"{true: 5}[1 < 2]", 5},
	}

	runVMTests(t, tests)
}

func TestCallingFunctionsWithoutArguments(t *testing.T) {
	tests := []vmTestCase{
		{"let fivePlusTen = fn() { 5 + 10; }; fivePlusTen();", 15},
		{"let one = fn() { 1; }; let two = fn() { 2; }; one() + two()", 3},
		{"let a = fn() { 1 }; let b = fn() { a() + 1 }; let c = fn() { b() + 1 }; c();", 3},
		{"let earlyExit = fn() { return 99; 100; }; earlyExit();", 99},
		{"let earlyExit = fn() { return 99; return 100; }; earlyExit();", 99},
		{"let noReturn = fn() { }; noReturn();", Null},
		{"let bare = fn() { return; 1 }; bare();", Null},
		{"let noReturn = fn() { }; let noReturnTwo = fn() { noReturn(); }; noReturn(); noReturnTwo();", Null},
		{"let returnsOne = fn() { 1; }; let returnsOneReturner = fn() { returnsOne; }; returnsOneReturner()();", 1},
	}

	runVMTests(t, tests)
}

func TestCallingFunctionsWithBindings(t *testing.T) {
	tests := []vmTestCase{
		{"let one = fn() { let one = 1; one }; one();", 1},
		{"let oneAndTwo = fn() { let one = 1; let two = 2; one + two; }; oneAndTwo();", 3},
		{`
		let oneAndTwo = fn() { let one = 1; let two = 2; one + two; };
		let threeAndFour = fn() { let three = 3; let four = 4; three + four; };
		oneAndTwo() + threeAndFour();`, 10},
		{`
		let firstFoobar = fn() { let foobar = 50; foobar; };
		let secondFoobar = fn() { let foobar = 100; foobar; };
		firstFoobar() + secondFoobar();`, 150},
		{`
		let globalSeed = 50;
		let minusOne = fn() { let num = 1; globalSeed - num; }
		let minusTwo = fn() { let num = 2; globalSeed - num; }
		minusOne() + minusTwo();`, 97},
	}

	runVMTests(t, tests)
}

func TestUninitializedLocalReadsNull(t *testing.T) {
	fn := &object.CompiledFunction{
		Instructions: bytecode.Concat(
			bytecode.Make(bytecode.OP_GET_LOCAL, 0),
			bytecode.Make(bytecode.OP_RETURN_VALUE),
		),
		NumLocals: 2,
	}
	bc := &compiler.Bytecode{
		// Leave a stale value in the slot the callee's first local will use.
		Instructions: bytecode.Concat(
			bytecode.Make(bytecode.OP_CONST, 1),
			bytecode.Make(bytecode.OP_CONST, 1),
			bytecode.Make(bytecode.OP_POP),
			bytecode.Make(bytecode.OP_POP),
			bytecode.Make(bytecode.OP_CLOSURE, 0, 0),
			bytecode.Make(bytecode.OP_CALL, 0),
			bytecode.Make(bytecode.OP_POP),
		),
		Constants: []object.Object{fn, &object.Integer{Value: 7}},
	}

	vm := New(bc)
	if err := vm.Run(); err != nil {
		t.Fatal(err)
	}
	if got := vm.LastPoppedStackElem(); got != object.NULL {
		t.Errorf("expected null, got %s", got.Inspect())
	}
}

func TestCallingFunctionsWithArgumentsAndBindings(t *testing.T) {
	tests := []vmTestCase{
		{"let identity = fn(a) { a; }; identity(4);", 4},
		{"let sum = fn(a, b) { a + b; }; sum(1, 2);", 3},
		{"let sum = fn(a, b) { let c = a + b; c; }; sum(1, 2);", 3},
		{"let sum = fn(a, b) { let c = a + b; c; }; sum(1, 2) + sum(3, 4);", 10},
		{"let sum = fn(a, b) { let c = a + b; c; }; let outer = fn() { sum(1, 2) + sum(3, 4); }; outer();", 10},
		{`
		let globalNum = 10;
		let sum = fn(a, b) { let c = a + b; c + globalNum; };
		let outer = fn() { sum(1, 2) + sum(3, 4) + globalNum; };
		outer() + globalNum;`, 50},
	}

	runVMTests(t, tests)
}

func TestBuiltinFunctions(t *testing.T) {
	tests := []vmTestCase{
		{`len("")`, 0},
		{`len("four")`, 4},
		{`len("hello")`, 5},
		{`len("hello world")`, 11},
		{"len([1, 2, 3])", 3},
		{"len([])", 0},
		{`len({"a": 1})`, 1},
		{`puts("hello", "world!")`, Null},
		{"first([1, 2, 3])", 1},
		{"first([])", Null},
		{"last([1, 2, 3])", 3},
		{"last([])", Null},
		{"rest([1, 2, 3])", []int{2, 3}},
		{"rest([])", Null},
		{"push([], 1)", []int{1}},
		{"let a = [1]; push(a, 2); a", []int{1}},
		{"let f = fn() { len }; f()([1, 2])", 2},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			vm := New(compile(t, tt.input))
			vm.SetOutput(&bytes.Buffer{})
			if err := vm.Run(); err != nil {
				t.Fatalf("runtime error: %s", err)
			}
			testExpectedObject(t, tt.expected, vm.LastPoppedStackElem())
		})
	}
}

func TestPutsWritesToOutput(t *testing.T) {
	var out bytes.Buffer
	vm := New(compile(t, `puts("a", 1, [true]); puts({"k": "v"});`))
	vm.SetOutput(&out)
	if err := vm.Run(); err != nil {
		t.Fatal(err)
	}
	want := "a\n1\n[true]\n{\"k\": v}\n"
	if out.String() != want {
		t.Errorf("unexpected output.\nwant=%q\ngot =%q", want, out.String())
	}
}

func TestClosures(t *testing.T) {
	tests := []vmTestCase{
		{"fn(a) { fn(b) { a + b } }(1)(2)", 3},
		{"let newClosure = fn(a) { fn() { a; }; }; let closure = newClosure(99); closure();", 99},
		{"let newAdder = fn(a, b) { fn(c) { a + b + c }; }; let adder = newAdder(1, 2); adder(8);", 11},
		{"let newAdder = fn(a, b) { let c = a + b; fn(d) { c + d }; }; let adder = newAdder(1, 2); adder(8);", 11},
		{`
		let newAdderOuter = fn(a, b) {
			let c = a + b;
			fn(d) {
				let e = d + c;
				fn(f) { e + f; };
			};
		};
		let newAdderInner = newAdderOuter(1, 2)
		let adder = newAdderInner(3);
		adder(8);`, 14},
		{`
		let a = 1;
		let newAdderOuter = fn(b) {
			fn(c) {
				fn(d) { a + b + c + d };
			};
		};
		let newAdderInner = newAdderOuter(2)
		let adder = newAdderInner(3);
		adder(8);`, 14},
		{`
		let newClosure = fn(a, b) {
			let one = fn() { a; };
			let two = fn() { b; };
			fn() { one() + two(); };
		};
		let closure = newClosure(9, 90);
		closure();`, 99},
	}

	runVMTests(t, tests)
}

func TestRecursiveFunctions(t *testing.T) {
	tests := []vmTestCase{
		{"let countDown = fn(x) { if (x == 0) { 0 } else { countDown(x - 1) } }; countDown(3);", 0},
		{`
		let countDown = fn(x) {
			if (x == 0) {
				return 0;
			} else {
				countDown(x - 1);
			}
		};
		let wrapper = fn() {
			countDown(1);
		};
		wrapper();`, 0},
		{`
		let wrapper = fn() {
			let countDown = fn(x) {
				if (x == 0) {
					return 0;
				} else {
					countDown(x - 1);
				}
			};
			countDown(1);
		};
		wrapper();`, 0},
		{`
		let wrapper = fn() {
			let countDown = fn(x) {
				let inner = fn() { countDown };
				if (x == 0) { 0 } else { inner()(x - 1) }
			};
			countDown(5);
		};
		wrapper();`, 0},
	}

	runVMTests(t, tests)
}

func TestRecursiveFibonacci(t *testing.T) {
	tests := []vmTestCase{
		{`
		let fibonacci = fn(x) {
			if (x == 0) {
				return 0;
			} else {
				if (x == 1) {
					return 1;
				} else {
					fibonacci(x - 1) + fibonacci(x - 2);
				}
			}
		};
		fibonacci(15);`, 610},
	}

	runVMTests(t, tests)
}

func TestTopLevelReturnEndsRun(t *testing.T) {
	tests := []vmTestCase{
		{"return 5; 10", 5},
		{"1; return; 2", Null},
	}

	runVMTests(t, tests)
}

func TestEmptyProgramYieldsNull(t *testing.T) {
	if got := runVM(t, ""); got != object.NULL {
		t.Errorf("expected null, got %s", got.Inspect())
	}
}
