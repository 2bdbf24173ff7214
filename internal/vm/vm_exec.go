package vm

import (
	"fmt"

	"github.com/funvibe/monkey/internal/bytecode"
	"github.com/funvibe/monkey/internal/object"
)

// executeOp executes a single opcode whose byte has already been consumed.
func (vm *VM) executeOp(op bytecode.Opcode) error {
	switch op {
	case bytecode.OP_CONST:
		idx := vm.readUint16()
		if idx >= len(vm.constants) {
			panic(errInvalidConstantIndex)
		}
		return vm.push(vm.constants[idx])

	case bytecode.OP_POP:
		vm.pop()

	case bytecode.OP_ADD, bytecode.OP_SUB, bytecode.OP_MUL, bytecode.OP_DIV:
		return vm.executeBinaryOperation(op)

	case bytecode.OP_TRUE:
		return vm.push(object.TRUE)
	case bytecode.OP_FALSE:
		return vm.push(object.FALSE)
	case bytecode.OP_NIL:
		return vm.push(object.NULL)

	case bytecode.OP_EQ, bytecode.OP_NE, bytecode.OP_GT:
		return vm.executeComparison(op)

	case bytecode.OP_NOT:
		operand := vm.pop()
		return vm.push(object.NativeBool(!object.IsTruthy(operand)))

	case bytecode.OP_NEG:
		return vm.executeMinusOperator()

	case bytecode.OP_JUMP:
		pos := vm.readUint16()
		vm.currentFrame().ip = pos

	case bytecode.OP_JUMP_IF_FALSE:
		pos := vm.readUint16()
		condition := vm.pop()
		if !object.IsTruthy(condition) {
			vm.currentFrame().ip = pos
		}

	case bytecode.OP_SET_GLOBAL:
		idx := vm.readUint16()
		if idx >= len(vm.globals) {
			panic(errInvalidSlot)
		}
		vm.globals[idx] = vm.pop()

	case bytecode.OP_GET_GLOBAL:
		idx := vm.readUint16()
		if idx >= len(vm.globals) {
			panic(errInvalidSlot)
		}
		value := vm.globals[idx]
		if value == nil {
			value = object.NULL
		}
		return vm.push(value)

	case bytecode.OP_SET_LOCAL:
		slot := vm.localSlot(vm.readUint8())
		vm.stack[slot] = vm.pop()

	case bytecode.OP_GET_LOCAL:
		slot := vm.localSlot(vm.readUint8())
		return vm.push(vm.stack[slot])

	case bytecode.OP_GET_BUILTIN:
		idx := vm.readUint8()
		if idx >= len(object.Builtins) {
			panic(errInvalidSlot)
		}
		return vm.push(object.Builtins[idx])

	case bytecode.OP_GET_FREE:
		idx := vm.readUint8()
		free := vm.currentFrame().cl.Free
		if idx >= len(free) {
			panic(errInvalidSlot)
		}
		return vm.push(free[idx])

	case bytecode.OP_CURRENT_CLOSURE:
		return vm.push(vm.currentFrame().cl)

	case bytecode.OP_MAKE_ARRAY:
		numElements := vm.readUint16()
		array := vm.buildArray(vm.sp-numElements, vm.sp)
		vm.sp = vm.sp - numElements
		return vm.push(array)

	case bytecode.OP_MAKE_HASH:
		numElements := vm.readUint16()
		hash, err := vm.buildHash(vm.sp-numElements, vm.sp)
		if err != nil {
			return err
		}
		vm.sp = vm.sp - numElements
		return vm.push(hash)

	case bytecode.OP_INDEX:
		index := vm.pop()
		left := vm.pop()
		return vm.executeIndexExpression(left, index)

	case bytecode.OP_CALL:
		numArgs := vm.readUint8()
		return vm.executeCall(numArgs)

	case bytecode.OP_RETURN_VALUE:
		returnValue := vm.pop()
		return vm.returnFromFrame(returnValue)

	case bytecode.OP_RETURN:
		return vm.returnFromFrame(object.NULL)

	case bytecode.OP_CLOSURE:
		constIndex := vm.readUint16()
		numFree := vm.readUint8()
		return vm.pushClosure(constIndex, numFree)

	default:
		return fmt.Errorf("vm: malformed bytecode: %w %d", errUnknownOpcode, op)
	}
	return nil
}

// localSlot maps a local index of the current frame to a stack index.
func (vm *VM) localSlot(idx int) int {
	frame := vm.currentFrame()
	slot := frame.basePointer + idx
	if idx >= frame.cl.Fn.NumLocals || slot >= len(vm.stack) {
		panic(errInvalidSlot)
	}
	return slot
}
