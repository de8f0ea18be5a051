package vm

// Opcode represents a VM instruction opcode.
type Opcode uint8

const (
	OpHalt Opcode = 0x00 // stop execution
	OpLoad Opcode = 0x01 // R[dst] = typed immediate
	OpAdd  Opcode = 0x02 // R[dst] = R[src1] + R[src2]
	OpSub  Opcode = 0x03 // R[dst] = R[src1] - R[src2]
	OpMul  Opcode = 0x04 // R[dst] = R[src1] * R[src2]
	OpDiv  Opcode = 0x05 // R[dst] = R[src1] / R[src2]

	// OpIllegal stands for every byte not listed above. It is never emitted
	// by the assembler except through the ILLEGAL pseudo-instruction.
	OpIllegal Opcode = 0xFF
)

// OpcodeFromByte maps an opcode byte to its Opcode.
func OpcodeFromByte(b byte) Opcode {
	if b <= byte(OpDiv) {
		return Opcode(b)
	}
	return OpIllegal
}

// IsArith reports whether o is one of the three-register arithmetic opcodes.
func (o Opcode) IsArith() bool {
	return o >= OpAdd && o <= OpDiv
}

// String returns the string representation of an opcode.
func (o Opcode) String() string {
	switch o {
	case OpHalt:
		return "HALT"
	case OpLoad:
		return "LOAD"
	case OpAdd:
		return "ADD"
	case OpSub:
		return "SUB"
	case OpMul:
		return "MUL"
	case OpDiv:
		return "DIV"
	default:
		return "ILLEGAL"
	}
}

// OpcodeFromString returns the opcode for the given mnemonic.
func OpcodeFromString(s string) (Opcode, bool) {
	switch s {
	case "HALT":
		return OpHalt, true
	case "LOAD":
		return OpLoad, true
	case "ADD":
		return OpAdd, true
	case "SUB":
		return OpSub, true
	case "MUL":
		return OpMul, true
	case "DIV":
		return OpDiv, true
	case "ILLEGAL":
		return OpIllegal, true
	default:
		return 0, false
	}
}
