// Package bytecode defines the instruction encoding shared by the compiler and the VM.
package bytecode

import "fmt"

// Opcode represents a single VM instruction
type Opcode byte

const (
	// Stack manipulation
	OP_CONST Opcode = iota // Push constant from pool
	OP_POP                 // Discard top of stack

	// Arithmetic
	OP_ADD // +
	OP_SUB // -
	OP_MUL // *
	OP_DIV // /

	// Singletons
	OP_TRUE
	OP_FALSE
	OP_NIL

	// Comparison. There is no OP_LT: a < b is compiled as b > a.
	OP_EQ // ==
	OP_NE // !=
	OP_GT // >

	// Unary
	OP_NEG // -x
	OP_NOT // !x

	// Control flow, absolute targets
	OP_JUMP_IF_FALSE
	OP_JUMP

	// Variables
	OP_GET_GLOBAL
	OP_SET_GLOBAL
	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_GET_BUILTIN
	OP_GET_FREE
	OP_CURRENT_CLOSURE // Push the closure currently executing

	// Data structures
	OP_MAKE_ARRAY // Operand: element count
	OP_MAKE_HASH  // Operand: stack element count (2 per pair)
	OP_INDEX

	// Functions
	OP_CALL         // Operand: argument count
	OP_RETURN_VALUE // Return top of stack
	OP_RETURN       // Return null
	OP_CLOSURE      // Operands: constant index, free count
)

// Definition describes an opcode's mnemonic and operand layout.
type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	OP_CONST: {"CONST", []int{2}},
	OP_POP:   {"POP", []int{}},

	OP_ADD: {"ADD", []int{}},
	OP_SUB: {"SUB", []int{}},
	OP_MUL: {"MUL", []int{}},
	OP_DIV: {"DIV", []int{}},

	OP_TRUE:  {"TRUE", []int{}},
	OP_FALSE: {"FALSE", []int{}},
	OP_NIL:   {"NIL", []int{}},

	OP_EQ: {"EQ", []int{}},
	OP_NE: {"NE", []int{}},
	OP_GT: {"GT", []int{}},

	OP_NEG: {"NEG", []int{}},
	OP_NOT: {"NOT", []int{}},

	OP_JUMP_IF_FALSE: {"JUMP_IF_FALSE", []int{2}},
	OP_JUMP:          {"JUMP", []int{2}},

	OP_GET_GLOBAL:      {"GET_GLOBAL", []int{2}},
	OP_SET_GLOBAL:      {"SET_GLOBAL", []int{2}},
	OP_GET_LOCAL:       {"GET_LOCAL", []int{1}},
	OP_SET_LOCAL:       {"SET_LOCAL", []int{1}},
	OP_GET_BUILTIN:     {"GET_BUILTIN", []int{1}},
	OP_GET_FREE:        {"GET_FREE", []int{1}},
	OP_CURRENT_CLOSURE: {"CURRENT_CLOSURE", []int{}},

	OP_MAKE_ARRAY: {"MAKE_ARRAY", []int{2}},
	OP_MAKE_HASH:  {"MAKE_HASH", []int{2}},
	OP_INDEX:      {"INDEX", []int{}},

	OP_CALL:         {"CALL", []int{1}},
	OP_RETURN_VALUE: {"RETURN_VALUE", []int{}},
	OP_RETURN:       {"RETURN", []int{}},
	OP_CLOSURE:      {"CLOSURE", []int{2, 1}},
}

var byName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(definitions))
	for op, def := range definitions {
		m[def.Name] = op
	}
	return m
}()

// Lookup returns the definition of op.
func Lookup(op Opcode) (*Definition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// LookupName maps a mnemonic such as "JUMP_IF_FALSE" back to its opcode.
func LookupName(name string) (Opcode, bool) {
	op, ok := byName[name]
	return op, ok
}

func (op Opcode) String() string {
	if def, ok := definitions[op]; ok {
		return "OP_" + def.Name
	}
	return fmt.Sprintf("OP_UNKNOWN(%d)", byte(op))
}

// Width is the encoded size of an instruction with this opcode.
func (def *Definition) Width() int {
	w := 1
	for _, ow := range def.OperandWidths {
		w += ow
	}
	return w
}
