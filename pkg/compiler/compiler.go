package compiler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/coder3112/trplvm/pkg/vm"
)

// ErrUnknownOpcode is returned for a mnemonic the assembler does not know.
var ErrUnknownOpcode = errors.New("unknown opcode")

// Compile assembles TRPL assembly source code to program bytes.
func Compile(source string) ([]byte, error) {
	parser := NewParser(source)
	asmProgram, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	compiler := &Compiler{
		code: []byte{},
	}

	return compiler.compile(asmProgram)
}

// Compiler compiles parsed assembly to program bytes.
type Compiler struct {
	code []byte
}

func (c *Compiler) compile(program *AsmProgram) ([]byte, error) {
	for _, inst := range program.Instructions {
		if err := c.compileInstruction(inst); err != nil {
			return nil, fmt.Errorf("line %d: %w", inst.Line, err)
		}
	}

	return c.code, nil
}

func (c *Compiler) compileInstruction(inst AsmInstruction) error {
	if inst.Opcode == ".byte" {
		return c.compileBytes(inst)
	}

	opcode, ok := vm.OpcodeFromString(strings.ToUpper(inst.Opcode))
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOpcode, inst.Opcode)
	}

	switch opcode {
	case vm.OpHalt:
		if err := expectOperands(inst, 0); err != nil {
			return err
		}
		c.code = vm.Encode(c.code, vm.Instruction{Op: vm.OpHalt})
		return nil

	case vm.OpLoad:
		return c.compileLoad(inst)

	case vm.OpAdd, vm.OpSub, vm.OpMul, vm.OpDiv:
		return c.compileArith(opcode, inst)

	default:
		return c.compileIllegal(inst)
	}
}

// ===== Compile helpers =====

func expectOperands(inst AsmInstruction, n int) error {
	if len(inst.Operands) != n {
		return fmt.Errorf("%s: expected %d operands, got %d", strings.ToUpper(inst.Opcode), n, len(inst.Operands))
	}
	return nil
}

func register(op Operand) (vm.Register, error) {
	if op.Type != OperandReg {
		return 0, fmt.Errorf("expected register, got %s", op.Type)
	}
	r := vm.Register(op.RegNum)
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %s", vm.ErrInvalidRegister, r)
	}
	return r, nil
}

// LOAD R[dst], kind literal
func (c *Compiler) compileLoad(inst AsmInstruction) error {
	if err := expectOperands(inst, 2); err != nil {
		return err
	}

	dst, err := register(inst.Operands[0])
	if err != nil {
		return err
	}
	imm := inst.Operands[1]
	if imm.Type != OperandImm {
		return fmt.Errorf("LOAD: expected typed immediate such as i32 -8, got %s", imm.Type)
	}
	value, err := vm.ParseValue(imm.Kind, imm.Text)
	if err != nil {
		return err
	}

	c.code = vm.Encode(c.code, vm.Instruction{Op: vm.OpLoad, Regs: [3]vm.Register{dst}, Value: value})
	return nil
}

// ADD R[src1], R[src2], R[dst]
func (c *Compiler) compileArith(opcode vm.Opcode, inst AsmInstruction) error {
	if err := expectOperands(inst, 3); err != nil {
		return err
	}

	var regs [3]vm.Register
	for i, op := range inst.Operands {
		r, err := register(op)
		if err != nil {
			return err
		}
		regs[i] = r
	}

	c.code = vm.Encode(c.code, vm.Instruction{Op: opcode, Regs: regs})
	return nil
}

// ILLEGAL 0xNN
func (c *Compiler) compileIllegal(inst AsmInstruction) error {
	if len(inst.Operands) == 0 {
		c.code = vm.Encode(c.code, vm.Instruction{Op: vm.OpIllegal, Raw: byte(vm.OpIllegal)})
		return nil
	}
	if err := expectOperands(inst, 1); err != nil {
		return err
	}
	b, err := byteOperand(inst.Operands[0])
	if err != nil {
		return err
	}
	if vm.OpcodeFromByte(b) != vm.OpIllegal {
		return fmt.Errorf("ILLEGAL: byte 0x%02X is the %s opcode", b, vm.OpcodeFromByte(b))
	}

	c.code = vm.Encode(c.code, vm.Instruction{Op: vm.OpIllegal, Raw: b})
	return nil
}

// .byte n, n, ...
func (c *Compiler) compileBytes(inst AsmInstruction) error {
	if len(inst.Operands) == 0 {
		return fmt.Errorf(".byte: expected at least one value")
	}
	for _, op := range inst.Operands {
		b, err := byteOperand(op)
		if err != nil {
			return err
		}
		c.code = append(c.code, b)
	}
	return nil
}

func byteOperand(op Operand) (byte, error) {
	if op.Type != OperandInt {
		return 0, fmt.Errorf("expected byte value, got %s", op.Type)
	}
	n, err := strconv.ParseUint(op.Text, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: byte %q", vm.ErrInvalidLiteral, op.Text)
	}
	return byte(n), nil
}
