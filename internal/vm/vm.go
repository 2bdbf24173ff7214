// Package vm executes compiled bytecode on a stack machine.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/funvibe/monkey/internal/bytecode"
	"github.com/funvibe/monkey/internal/compiler"
	"github.com/funvibe/monkey/internal/config"
	"github.com/funvibe/monkey/internal/object"
)

// VM is the virtual machine that executes bytecode. A VM runs one program
// once; sessions keep state between runs through the globals store.
type VM struct {
	constants []object.Object

	stack []object.Object
	sp    int // Always points to the next free slot. Top of stack is stack[sp-1]

	globals []object.Object

	frames      []*Frame
	framesIndex int

	// Output writer for puts (defaults to os.Stdout)
	out io.Writer
}

// NewGlobalsStore allocates a globals store that can be shared by
// successive VMs of one session.
func NewGlobalsStore() []object.Object {
	return make([]object.Object, config.GlobalsSize)
}

func New(bc *compiler.Bytecode) *VM {
	return NewWithGlobalsStore(bc, NewGlobalsStore())
}

func NewWithGlobalsStore(bc *compiler.Bytecode, globals []object.Object) *VM {
	mainFn := &object.CompiledFunction{Instructions: bc.Instructions, Name: "<main>"}
	mainClosure := &object.Closure{Fn: mainFn}
	mainFrame := NewFrame(mainClosure, 0)

	frames := make([]*Frame, config.MaxFrames)
	frames[0] = mainFrame

	return &VM{
		constants:   bc.Constants,
		stack:       make([]object.Object, config.StackSize),
		sp:          0,
		globals:     globals,
		frames:      frames,
		framesIndex: 1,
		out:         os.Stdout,
	}
}

// SetOutput sets the writer builtins print to
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetLimits resizes the value stack and frame stack. It must be called
// before Run.
func (vm *VM) SetLimits(stackSize, maxFrames int) {
	if stackSize > 0 {
		vm.stack = make([]object.Object, stackSize)
	}
	if maxFrames > 0 {
		frames := make([]*Frame, maxFrames)
		frames[0] = vm.frames[0]
		vm.frames = frames
	}
}

// LastPoppedStackElem is the result of a finished run: the value directly
// beneath the final stack pointer, or null.
func (vm *VM) LastPoppedStackElem() object.Object {
	if vm.sp >= len(vm.stack) || vm.stack[vm.sp] == nil {
		return object.NULL
	}
	return vm.stack[vm.sp]
}

// StackTop returns the value on top of the stack, or nil when empty.
func (vm *VM) StackTop() object.Object {
	if vm.sp == 0 {
		return nil
	}
	return vm.stack[vm.sp-1]
}

func (vm *VM) currentFrame() *Frame {
	return vm.frames[vm.framesIndex-1]
}

func (vm *VM) pushFrame(f *Frame) error {
	if vm.framesIndex >= len(vm.frames) {
		return resourceError(ErrFrameOverflow, len(vm.frames))
	}
	vm.frames[vm.framesIndex] = f
	vm.framesIndex++
	return nil
}

func (vm *VM) popFrame() *Frame {
	vm.framesIndex--
	return vm.frames[vm.framesIndex]
}

// Run executes until the main frame runs out of instructions or an error
// aborts the run. Globals assigned before the error keep their values.
func (vm *VM) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && isMalformed(e) {
				err = fmt.Errorf("vm: malformed bytecode: %w", e)
				return
			}
			panic(r)
		}
	}()

	for vm.currentFrame().ip < len(vm.currentFrame().Instructions()) {
		frame := vm.currentFrame()
		op := bytecode.Opcode(frame.Instructions()[frame.ip])
		frame.ip++

		if err := vm.executeOp(op); err != nil {
			return err
		}
	}

	return nil
}

func isMalformed(err error) bool {
	switch err {
	case errTruncatedBytecode, errStackUnderflow, errInvalidConstantIndex, errInvalidSlot:
		return true
	}
	return false
}

// Stack operations

func (vm *VM) push(o object.Object) error {
	if vm.sp >= len(vm.stack) {
		return resourceError(ErrStackOverflow, len(vm.stack))
	}
	vm.stack[vm.sp] = o
	vm.sp++
	return nil
}

// pop leaves the value in its slot so LastPoppedStackElem can see it.
func (vm *VM) pop() object.Object {
	if vm.sp <= 0 {
		panic(errStackUnderflow)
	}
	o := vm.stack[vm.sp-1]
	vm.sp--
	return o
}

// Operand readers. They advance the current frame's ip.

func (vm *VM) readUint16() int {
	frame := vm.currentFrame()
	ins := frame.Instructions()
	if frame.ip+2 > len(ins) {
		panic(errTruncatedBytecode)
	}
	v := bytecode.ReadUint16(ins[frame.ip:])
	frame.ip += 2
	return int(v)
}

func (vm *VM) readUint8() int {
	frame := vm.currentFrame()
	ins := frame.Instructions()
	if frame.ip+1 > len(ins) {
		panic(errTruncatedBytecode)
	}
	v := bytecode.ReadUint8(ins[frame.ip:])
	frame.ip++
	return int(v)
}
