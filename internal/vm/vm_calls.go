package vm

import (
	"errors"
	"fmt"

	"github.com/funvibe/monkey/internal/object"
)

// executeCall dispatches a call; the callee sits beneath its numArgs arguments.
func (vm *VM) executeCall(numArgs int) error {
	if vm.sp-1-numArgs < 0 {
		panic(errStackUnderflow)
	}
	callee := vm.stack[vm.sp-1-numArgs]

	switch callee := callee.(type) {
	case *object.Closure:
		return vm.callClosure(callee, numArgs)
	case *object.Builtin:
		return vm.callBuiltin(callee, numArgs)
	default:
		return typeError("calling non-function and non-built-in: %s", callee.Type())
	}
}

func (vm *VM) callClosure(cl *object.Closure, numArgs int) error {
	fn := cl.Fn
	if numArgs != fn.NumParameters {
		return arityError("wrong number of arguments: want=%d, got=%d", fn.NumParameters, numArgs)
	}

	frame := NewFrame(cl, vm.sp-numArgs)
	newSP := frame.basePointer + fn.NumLocals
	if newSP > len(vm.stack) {
		return resourceError(ErrStackOverflow, len(vm.stack))
	}
	if err := vm.pushFrame(frame); err != nil {
		return err
	}

	// Locals not yet assigned read as null.
	for i := vm.sp; i < newSP; i++ {
		vm.stack[i] = object.NULL
	}
	vm.sp = newSP

	return nil
}

func (vm *VM) callBuiltin(builtin *object.Builtin, numArgs int) error {
	args := make([]object.Object, numArgs)
	copy(args, vm.stack[vm.sp-numArgs:vm.sp])

	result, err := builtin.Fn(vm.out, args...)
	if err != nil {
		switch {
		case errors.Is(err, object.ErrWrongArgCount):
			return &RuntimeError{Kind: KindArity, Message: fmt.Sprintf("%s: %s", builtin.Name, err), Err: err}
		case errors.Is(err, object.ErrArgType):
			return &RuntimeError{Kind: KindType, Message: fmt.Sprintf("%s: %s", builtin.Name, err), Err: err}
		default:
			return fmt.Errorf("builtin %s: %w", builtin.Name, err)
		}
	}

	vm.sp = vm.sp - numArgs - 1
	if result == nil {
		result = object.NULL
	}
	return vm.push(result)
}

// returnFromFrame pops the current frame and pushes value in place of the
// callee. Returning from the main frame ends the run with value as result.
func (vm *VM) returnFromFrame(value object.Object) error {
	if vm.framesIndex == 1 {
		main := vm.currentFrame()
		main.ip = len(main.Instructions())
		if vm.sp < len(vm.stack) {
			vm.stack[vm.sp] = value
		}
		return nil
	}

	frame := vm.popFrame()
	vm.sp = frame.basePointer - 1

	return vm.push(value)
}

func (vm *VM) pushClosure(constIndex, numFree int) error {
	if constIndex >= len(vm.constants) {
		panic(errInvalidConstantIndex)
	}
	function, ok := vm.constants[constIndex].(*object.CompiledFunction)
	if !ok {
		return typeError("not a function: %s", vm.constants[constIndex].Type())
	}
	if vm.sp-numFree < 0 {
		panic(errStackUnderflow)
	}

	free := make([]object.Object, numFree)
	copy(free, vm.stack[vm.sp-numFree:vm.sp])
	vm.sp = vm.sp - numFree

	closure := &object.Closure{Fn: function, Free: free}
	return vm.push(closure)
}
