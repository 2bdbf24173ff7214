package vm

import (
	"github.com/funvibe/monkey/internal/bytecode"
	"github.com/funvibe/monkey/internal/object"
)

var binaryOpSymbols = map[bytecode.Opcode]string{
	bytecode.OP_ADD: "+",
	bytecode.OP_SUB: "-",
	bytecode.OP_MUL: "*",
	bytecode.OP_DIV: "/",
	bytecode.OP_EQ:  "==",
	bytecode.OP_NE:  "!=",
	bytecode.OP_GT:  ">",
}

func (vm *VM) executeBinaryOperation(op bytecode.Opcode) error {
	if vm.sp < 2 {
		panic(errStackUnderflow)
	}
	right := vm.pop()
	left := vm.pop()

	switch left := left.(type) {
	case *object.Integer:
		if right, ok := right.(*object.Integer); ok {
			return vm.executeBinaryIntegerOperation(op, left.Value, right.Value)
		}
	case *object.String:
		if right, ok := right.(*object.String); ok && op == bytecode.OP_ADD {
			return vm.push(&object.String{Value: left.Value + right.Value})
		}
	}

	return typeError("unsupported types for binary operation: %s %s %s",
		left.Type(), binaryOpSymbols[op], right.Type())
}

// Integer arithmetic wraps on overflow. Division truncates toward zero and
// MinInt64 / -1 wraps to MinInt64.
func (vm *VM) executeBinaryIntegerOperation(op bytecode.Opcode, left, right int64) error {
	var result int64

	switch op {
	case bytecode.OP_ADD:
		result = left + right
	case bytecode.OP_SUB:
		result = left - right
	case bytecode.OP_MUL:
		result = left * right
	case bytecode.OP_DIV:
		if right == 0 {
			return arithmeticError("division by zero: %d / 0", left)
		}
		result = left / right
	}

	return vm.push(&object.Integer{Value: result})
}

func (vm *VM) executeComparison(op bytecode.Opcode) error {
	if vm.sp < 2 {
		panic(errStackUnderflow)
	}
	right := vm.pop()
	left := vm.pop()

	if l, ok := left.(*object.Integer); ok {
		if r, ok := right.(*object.Integer); ok {
			return vm.executeIntegerComparison(op, l.Value, r.Value)
		}
	}

	switch op {
	case bytecode.OP_EQ:
		return vm.push(object.NativeBool(objectsEqual(left, right)))
	case bytecode.OP_NE:
		return vm.push(object.NativeBool(!objectsEqual(left, right)))
	}
	return typeError("unsupported types for comparison: %s %s %s",
		left.Type(), binaryOpSymbols[op], right.Type())
}

func (vm *VM) executeIntegerComparison(op bytecode.Opcode, left, right int64) error {
	switch op {
	case bytecode.OP_EQ:
		return vm.push(object.NativeBool(left == right))
	case bytecode.OP_NE:
		return vm.push(object.NativeBool(left != right))
	default:
		return vm.push(object.NativeBool(left > right))
	}
}

// objectsEqual compares scalars by value and everything else by identity.
// Values of different kinds are never equal.
func objectsEqual(left, right object.Object) bool {
	switch l := left.(type) {
	case *object.Boolean:
		r, ok := right.(*object.Boolean)
		return ok && l.Value == r.Value
	case *object.String:
		r, ok := right.(*object.String)
		return ok && l.Value == r.Value
	case *object.Null:
		_, ok := right.(*object.Null)
		return ok
	case *object.Integer:
		r, ok := right.(*object.Integer)
		return ok && l.Value == r.Value
	case *object.Array, *object.Hash, *object.CompiledFunction, *object.Closure, *object.Builtin:
		return left == right
	}
	return false
}

func (vm *VM) executeMinusOperator() error {
	operand := vm.pop()

	integer, ok := operand.(*object.Integer)
	if !ok {
		return typeError("unsupported type for negation: %s", operand.Type())
	}
	return vm.push(&object.Integer{Value: -integer.Value})
}

func (vm *VM) buildArray(startIndex, endIndex int) object.Object {
	if startIndex < 0 {
		panic(errStackUnderflow)
	}
	elements := make([]object.Object, endIndex-startIndex)
	copy(elements, vm.stack[startIndex:endIndex])
	return &object.Array{Elements: elements}
}

func (vm *VM) buildHash(startIndex, endIndex int) (object.Object, error) {
	if startIndex < 0 || (endIndex-startIndex)%2 != 0 {
		panic(errStackUnderflow)
	}
	hash := object.NewHash((endIndex - startIndex) / 2)

	for i := startIndex; i < endIndex; i += 2 {
		key := vm.stack[i]
		value := vm.stack[i+1]

		hashKey, ok := key.(object.Hashable)
		if !ok {
			return nil, typeError("unusable as hash key: %s", key.Type())
		}
		hash.Set(hashKey, value)
	}

	return hash, nil
}

// Out-of-range, non-integer and unhashable indexes yield null rather than
// an error; only the container type is checked.
func (vm *VM) executeIndexExpression(left, index object.Object) error {
	switch left := left.(type) {
	case *object.Array:
		i, ok := index.(*object.Integer)
		if !ok || i.Value < 0 || i.Value >= int64(len(left.Elements)) {
			return vm.push(object.NULL)
		}
		return vm.push(left.Elements[i.Value])

	case *object.Hash:
		key, ok := index.(object.Hashable)
		if !ok {
			return vm.push(object.NULL)
		}
		value, ok := left.Get(key)
		if !ok {
			return vm.push(object.NULL)
		}
		return vm.push(value)

	default:
		return typeError("index operator not supported: %s", left.Type())
	}
}
