package vm

import "errors"

// execute applies one decoded instruction to the register file.
func (vm *VM) execute(inst Instruction) (bool, error) {
	switch inst.Op {
	case OpHalt:
		vm.log.Noticef("HALT encountered at %d", inst.Offset)
		vm.stop(&Fault{Kind: FaultHalted, Op: OpHalt, Pos: inst.Offset})
		return true, nil

	case OpLoad:
		dst := inst.Regs[0]
		if !dst.Valid() {
			return vm.fail(vm.badRegister(inst, dst))
		}
		vm.registers[dst] = inst.Value
		return false, nil

	case OpAdd, OpSub, OpMul, OpDiv:
		for _, r := range inst.Regs {
			if !r.Valid() {
				return vm.fail(vm.badRegister(inst, r))
			}
		}
		src1, src2, dst := inst.Regs[0], inst.Regs[1], inst.Regs[2]
		result, err := Apply(inst.Op, vm.registers[src1], vm.registers[src2])
		if err != nil {
			var f *Fault
			if errors.As(err, &f) {
				f.Pos = inst.Offset
				// MUL and DIV stop quietly on a kind mismatch and leave dst alone.
				if f.Kind == FaultTypeMismatch && !f.Fatal() {
					vm.stop(f)
					return true, nil
				}
			}
			return vm.fail(err)
		}
		vm.registers[dst] = result
		return false, nil

	default:
		vm.log.Noticef("ILLEGAL opcode 0x%02X encountered at %d", inst.Raw, inst.Offset)
		vm.stop(&Fault{Kind: FaultIllegalOpcode, Op: OpIllegal, Pos: inst.Offset})
		return true, nil
	}
}

func (vm *VM) badRegister(inst Instruction, r Register) *Fault {
	return &Fault{Kind: FaultIndexOutOfRange, Op: inst.Op, Pos: inst.Offset, Register: r}
}
