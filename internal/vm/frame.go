package vm

import (
	"github.com/funvibe/monkey/internal/bytecode"
	"github.com/funvibe/monkey/internal/object"
)

// Frame represents a single ongoing function call
type Frame struct {
	cl          *object.Closure // The closure being executed
	ip          int             // Next byte to execute
	basePointer int             // Where this frame's locals start in the stack
}

func NewFrame(cl *object.Closure, basePointer int) *Frame {
	return &Frame{cl: cl, basePointer: basePointer}
}

func (f *Frame) Instructions() bytecode.Instructions {
	return f.cl.Fn.Instructions
}
