package bytecode

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// String renders one instruction per line as "%04d MNEMONIC op1 op2".
func (ins Instructions) String() string {
	var sb strings.Builder

	offset := 0
	for offset < len(ins) {
		def, err := Lookup(Opcode(ins[offset]))
		if err != nil {
			sb.WriteString(fmt.Sprintf("%04d ERROR: %s\n", offset, err))
			offset++
			continue
		}
		if offset+def.Width() > len(ins) {
			sb.WriteString(fmt.Sprintf("%04d ERROR: truncated %s\n", offset, def.Name))
			break
		}

		operands, read := ReadOperands(def, ins[offset+1:])
		sb.WriteString(fmt.Sprintf("%04d %s\n", offset, formatInstruction(def, operands)))
		offset += 1 + read
	}

	return sb.String()
}

func formatInstruction(def *Definition, operands []int) string {
	switch len(def.OperandWidths) {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s %d %d", def.Name, operands[0], operands[1])
	}
	return fmt.Sprintf("ERROR: unhandled operand count for %s", def.Name)
}

// Assemble parses disassembly text back into an instruction stream. Blank
// lines are ignored; offsets must match the position of the instruction.
func Assemble(text string) (Instructions, error) {
	var out Instructions

	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected offset and mnemonic", lineNo)
		}

		offset, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad offset %q", lineNo, fields[0])
		}
		if offset != len(out) {
			return nil, fmt.Errorf("line %d: offset %d does not match position %d", lineNo, offset, len(out))
		}

		op, ok := LookupName(fields[1])
		if !ok {
			return nil, fmt.Errorf("line %d: unknown mnemonic %q", lineNo, fields[1])
		}
		def := definitions[op]
		if len(fields)-2 != len(def.OperandWidths) {
			return nil, fmt.Errorf("line %d: %s takes %d operand(s), got %d",
				lineNo, def.Name, len(def.OperandWidths), len(fields)-2)
		}

		operands := make([]int, 0, len(def.OperandWidths))
		for i, f := range fields[2:] {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad operand %q", lineNo, f)
			}
			if v < 0 || v >= 1<<(8*def.OperandWidths[i]) {
				return nil, fmt.Errorf("line %d: operand %d out of range", lineNo, v)
			}
			operands = append(operands, v)
		}

		out = append(out, Make(op, operands...)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// Concat joins instruction slices. Handy for building expected streams.
func Concat(parts ...[]byte) Instructions {
	var out Instructions
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
