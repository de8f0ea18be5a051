// Package optimizer rewrites TRPL programs into shorter equivalents.
//
// Every register is part of the result of a run, so a rewrite must leave the
// final register file, the stop reason and every fault unchanged. Only
// instruction offsets move.
package optimizer

import (
	"github.com/coder3112/trplvm/pkg/vm"
)

// Optimizer applies optimizations to a program.
type Optimizer struct {
	enableConstantFolding bool
	enableDeadCode        bool
}

// Option is a functional option for the Optimizer.
type Option func(*Optimizer)

// WithConstantFolding enables constant folding optimization.
func WithConstantFolding() Option {
	return func(o *Optimizer) {
		o.enableConstantFolding = true
	}
}

// WithAllOptimizations enables all optimizations.
func WithAllOptimizations() Option {
	return func(o *Optimizer) {
		o.enableConstantFolding = true
		o.enableDeadCode = true
	}
}

// New creates a new Optimizer with the given options.
func New(opts ...Option) *Optimizer {
	opt := &Optimizer{}
	for _, o := range opts {
		o(opt)
	}
	return opt
}

// Optimize applies enabled optimizations to the program bytes. A program
// that does not decode cleanly up to its last byte is returned unchanged.
func (o *Optimizer) Optimize(code []byte) []byte {
	insts, ok := decodeAll(code)
	if !ok {
		return code
	}

	return encodeAll(o.OptimizeInstructions(insts))
}

// OptimizeInstructions applies enabled optimizations to a decoded program.
func (o *Optimizer) OptimizeInstructions(insts []vm.Instruction) []vm.Instruction {
	result := insts

	if o.enableConstantFolding {
		result = o.constantFolding(result)
	}

	if o.enableDeadCode {
		result = o.deadCodeElimination(result)
	}

	return result
}

// decodeAll decodes the instructions the engine would reach walking code
// from offset 0. The last byte is never decoded, as in the engine.
func decodeAll(code []byte) ([]vm.Instruction, bool) {
	var insts []vm.Instruction
	for pc := 0; pc < len(code)-1; {
		inst, err := vm.Decode(code, pc)
		if err != nil {
			return nil, false
		}
		insts = append(insts, inst)
		pc = inst.Offset + inst.Size
	}
	return insts, true
}

// encodeAll re-encodes insts. A one-byte instruction at the very end is
// followed by a zero pad byte so the engine still decodes it.
func encodeAll(insts []vm.Instruction) []byte {
	var code []byte
	for _, inst := range insts {
		code = vm.Encode(code, inst)
	}
	if n := len(insts); n > 0 && (insts[n-1].Op == vm.OpHalt || insts[n-1].Op == vm.OpIllegal) {
		code = append(code, 0)
	}
	return code
}
