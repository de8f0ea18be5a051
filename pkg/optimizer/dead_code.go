package optimizer

import (
	"github.com/coder3112/trplvm/pkg/vm"
)

// WithDeadCodeElimination enables dead code elimination.
func WithDeadCodeElimination() Option {
	return func(o *Optimizer) {
		o.enableDeadCode = true
	}
}

// deadCodeElimination drops everything after the first HALT or ILLEGAL and
// every LOAD whose value is overwritten by a later LOAD before anything can
// read it or stop the run.
func (o *Optimizer) deadCodeElimination(insts []vm.Instruction) []vm.Instruction {
	if len(insts) == 0 {
		return insts
	}

	// Code past the first stop is unreachable.
	end := len(insts)
	for i, inst := range insts {
		if inst.Op == vm.OpHalt || inst.Op == vm.OpIllegal {
			end = i + 1
			break
		}
	}
	insts = insts[:end]

	needed := make([]bool, len(insts))
	for i := range insts {
		needed[i] = !overwritten(insts, i)
	}

	newCode := make([]vm.Instruction, 0, len(insts))
	for i, inst := range insts {
		if needed[i] {
			newCode = append(newCode, inst)
		}
	}
	return newCode
}

// overwritten reports whether insts[i] is a LOAD whose destination is loaded
// again with only non-faulting loads in between.
func overwritten(insts []vm.Instruction, i int) bool {
	if insts[i].Op != vm.OpLoad || !insts[i].Dst().Valid() {
		return false
	}
	dst := insts[i].Dst()
	for _, next := range insts[i+1:] {
		if next.Op != vm.OpLoad || !next.Dst().Valid() {
			// Arithmetic may read dst or stop the run with dst observable.
			return false
		}
		if next.Dst() == dst {
			return true
		}
	}
	return false
}
