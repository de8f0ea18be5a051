package optimizer

import (
	"github.com/coder3112/trplvm/pkg/vm"
)

// constantFolding evaluates arithmetic on registers whose values are known
// from earlier loads. For example:
//
//	LOAD  R0, i32 5
//	LOAD  R1, i32 10
//	ADD   R0, R1, R2
//
// Becomes:
//
//	LOAD  R0, i32 5
//	LOAD  R1, i32 10
//	LOAD  R2, i32 15
//
// Arithmetic that would fault (overflow, division by zero, kind mismatch) is
// left in place so it still faults at run time.
func (o *Optimizer) constantFolding(insts []vm.Instruction) []vm.Instruction {
	// Registers seeded by presets are unknown until a LOAD writes them.
	known := make(map[vm.Register]vm.Value)

	newCode := make([]vm.Instruction, 0, len(insts))
	for _, inst := range insts {
		switch {
		case inst.Op == vm.OpLoad:
			if dst := inst.Dst(); dst.Valid() {
				known[dst] = inst.Value
			}
			newCode = append(newCode, inst)

		case inst.Op.IsArith():
			dst := inst.Dst()
			val1, ok1 := known[inst.Src1()]
			val2, ok2 := known[inst.Src2()]

			if ok1 && ok2 && dst.Valid() {
				if result, err := vm.Apply(inst.Op, val1, val2); err == nil {
					newInst := vm.Instruction{Op: vm.OpLoad, Raw: byte(vm.OpLoad), Value: result}
					newInst.Regs[0] = dst
					newCode = append(newCode, newInst)
					known[dst] = result
					continue
				}
			}
			// Invalidate the destination register
			delete(known, dst)
			newCode = append(newCode, inst)

		default:
			newCode = append(newCode, inst)
		}
	}

	return newCode
}
