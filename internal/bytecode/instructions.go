package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Instructions is an encoded instruction stream.
type Instructions []byte

// Make encodes one instruction. It panics if an operand does not fit its
// declared width or the operand count is wrong: both are compiler bugs.
func Make(op Opcode, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		panic(fmt.Sprintf("bytecode: make: unknown opcode %d", op))
	}
	if len(operands) != len(def.OperandWidths) {
		panic(fmt.Sprintf("bytecode: make: %s wants %d operands, got %d",
			def.Name, len(def.OperandWidths), len(operands)))
	}

	instruction := make([]byte, def.Width())
	instruction[0] = byte(op)

	offset := 1
	for i, o := range operands {
		width := def.OperandWidths[i]
		if o < 0 || o >= 1<<(8*width) {
			panic(fmt.Sprintf("bytecode: make: operand %d of %s out of range for %d byte(s)", o, def.Name, width))
		}
		switch width {
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(o))
		case 1:
			instruction[offset] = byte(o)
		}
		offset += width
	}

	return instruction
}

// ReadOperands decodes the operands that follow an opcode. It returns the
// operands and the number of bytes read.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		switch width {
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		case 1:
			operands[i] = int(ReadUint8(ins[offset:]))
		}
		offset += width
	}

	return operands, offset
}

func ReadUint16(ins Instructions) uint16 {
	return binary.BigEndian.Uint16(ins)
}

func ReadUint8(ins Instructions) uint8 { return ins[0] }

// OverwriteOperand re-encodes the instruction at pos in place. Used to
// backpatch jump targets once they are known.
func (ins Instructions) OverwriteOperand(pos int, operands ...int) {
	op := Opcode(ins[pos])
	newInstruction := Make(op, operands...)
	copy(ins[pos:], newInstruction)
}
