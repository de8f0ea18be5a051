package vm

import (
	"fmt"
	"strings"
)

// Register is a zero-based index into the register file. The wire format
// spends a full byte on it, so values 32-255 decode fine and only fault when
// executed.
type Register uint8

// Valid reports whether r addresses a slot of the register file.
func (r Register) Valid() bool {
	return int(r) < NumRegisters
}

// String returns the assembler spelling, e.g. "R2".
func (r Register) String() string {
	return fmt.Sprintf("R%d", uint8(r))
}

// Instruction is one decoded instruction. It only lives for a single
// decode-execute step; the engine never keeps a list of them.
//
// Encoding (variable length, no alignment):
//
//	HALT                      00
//	LOAD  dst, value          01 dst tag payload...
//	ADD   src1, src2, dst     02 src1 src2 dst
//	SUB   src1, src2, dst     03 src1 src2 dst
//	MUL   src1, src2, dst     04 src1 src2 dst
//	DIV   src1, src2, dst     05 src1 src2 dst
//	ILLEGAL                   any other byte
//
// The LOAD payload width depends on the tag; see DecodeValue.
type Instruction struct {
	Op Opcode

	// Raw is the opcode byte as read; it differs from Op only for ILLEGAL.
	Raw byte

	// Regs holds the register operands in encoding order. LOAD uses Regs[0]
	// as its destination; arithmetic uses Regs[2].
	Regs [3]Register

	// Value is the LOAD immediate.
	Value Value

	// Offset is the position of the opcode byte, Size the number of bytes
	// consumed including it.
	Offset int
	Size   int
}

// Dst returns the register written by the instruction.
func (i Instruction) Dst() Register {
	if i.Op == OpLoad {
		return i.Regs[0]
	}
	return i.Regs[2]
}

// Src1 returns the first arithmetic operand.
func (i Instruction) Src1() Register { return i.Regs[0] }

// Src2 returns the second arithmetic operand.
func (i Instruction) Src2() Register { return i.Regs[1] }

// String returns a human-readable representation of the instruction that the
// assembler accepts.
func (i Instruction) String() string {
	var b strings.Builder
	switch {
	case i.Op == OpHalt:
		b.WriteString("HALT")
	case i.Op == OpLoad:
		fmt.Fprintf(&b, "%-8s%s, %s", i.Op, i.Regs[0], i.Value)
	case i.Op.IsArith():
		fmt.Fprintf(&b, "%-8s%s, %s, %s", i.Op, i.Regs[0], i.Regs[1], i.Regs[2])
	default:
		fmt.Fprintf(&b, "%-8s0x%02X", OpIllegal, i.Raw)
	}
	return b.String()
}
