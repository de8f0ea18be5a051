// Package vm implements the TRPL virtual machine.
//
// The VM is a register-based bytecode interpreter with 32 typed registers
// (R0-R31). Each register holds exactly one numeric Value: none, u8, i8, u16,
// i16, u32, i32, u64, i64, f32 or f64. Programs are raw byte streams decoded
// one variable-length instruction at a time; see Instruction for the layout.
//
// Basic usage:
//
//	v := vm.New()
//	v.SetProgram(code)
//	err := v.Run()
//	r2, _ := v.Register(2)
//
// Stepping:
//
//	for {
//	    stop, err := v.Step()
//	    if err != nil || stop {
//	        break
//	    }
//	}
//
// With resource limits:
//
//	v := vm.New()
//	v.SetMaxSteps(10000)
//	v.SetContext(ctx)
//	v.SetProgram(code)
//	err := v.Run()
package vm

import (
	"context"
	"errors"
	"time"

	"github.com/tliron/commonlog"

	"github.com/coder3112/trplvm/pkg/anyobject"
)

// State is the lifecycle position of an engine.
type State uint8

const (
	StateReady State = iota
	StateRunning
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ExecutionStats contains metrics about VM execution for observability.
type ExecutionStats struct {
	StepsExecuted   int64          // Total instructions executed
	ExecutionTimeNs int64          // Wall time spent inside Run
	OpCounts        map[string]int // Count of each opcode executed
}

// VM represents the virtual machine. A VM is not safe for concurrent use and
// shares no state with other instances.
type VM struct {
	registers RegisterFile
	program   []byte
	pc        int
	state     State
	fault     *Fault
	store     *anyobject.Store

	log   commonlog.Logger
	trace func(Instruction)

	// Resource limits
	maxSteps  int64
	stepCount int64

	// Context for cancellation
	ctx context.Context

	stats        ExecutionStats
	statsEnabled bool
}

// New creates a new VM with every register set to U8(0) and no program.
func New() *VM {
	vm := &VM{
		store: anyobject.NewStore(),
		log:   commonlog.GetLogger("trplvm.vm"),
	}
	vm.registers.Reset()
	return vm
}

// SetProgram installs a copy of program and rewinds the program counter.
// Registers keep their values.
func (vm *VM) SetProgram(program []byte) {
	vm.program = append([]byte(nil), program...)
	vm.pc = 0
	vm.stepCount = 0
	vm.state = StateReady
	vm.fault = nil
}

// Program returns the installed program. Callers must not modify it.
func (vm *VM) Program() []byte {
	return vm.program
}

// Reset rewinds the program counter and clears every register to U8(0).
func (vm *VM) Reset() {
	vm.registers.Reset()
	vm.pc = 0
	vm.stepCount = 0
	vm.state = StateReady
	vm.fault = nil
}

// PC returns the program counter.
func (vm *VM) PC() int {
	return vm.pc
}

// State returns the lifecycle state.
func (vm *VM) State() State {
	return vm.state
}

// LastFault returns the fault that stopped the engine, or nil if it has not
// stopped yet. A step limit or a done context is recorded as a fault too.
func (vm *VM) LastFault() *Fault {
	return vm.fault
}

// Registers returns the register file for direct inspection or seeding.
func (vm *VM) Registers() *RegisterFile {
	return &vm.registers
}

// Register returns the value of register r.
func (vm *VM) Register(r Register) (Value, error) {
	return vm.registers.Get(r)
}

// SetRegister stores v into register r.
func (vm *VM) SetRegister(r Register, v Value) error {
	return vm.registers.Set(r, v)
}

// Store returns the host key/value store attached to this engine.
func (vm *VM) Store() *anyobject.Store {
	return vm.store
}

// SetLogger replaces the logger that receives HALT and ILLEGAL notices.
func (vm *VM) SetLogger(log commonlog.Logger) {
	vm.log = log
}

// SetTrace installs a callback invoked with every decoded instruction before
// it executes. Pass nil to disable tracing.
func (vm *VM) SetTrace(fn func(Instruction)) {
	vm.trace = fn
}

// SetMaxSteps sets the maximum number of execution steps. Zero means no limit.
func (vm *VM) SetMaxSteps(n int64) {
	vm.maxSteps = n
}

// SetContext sets the context Run polls between steps.
func (vm *VM) SetContext(ctx context.Context) {
	vm.ctx = ctx
}

// EnableStats enables execution statistics collection.
func (vm *VM) EnableStats() {
	vm.statsEnabled = true
	vm.stats = ExecutionStats{
		OpCounts: make(map[string]int),
	}
}

// Stats returns the execution statistics, or nil if stats were not enabled
// via EnableStats().
func (vm *VM) Stats() *ExecutionStats {
	if !vm.statsEnabled {
		return nil
	}
	return &vm.stats
}

// Step fetches, decodes and executes one instruction. It reports whether
// execution must stop. A non-nil error is always a fatal fault (or the step
// limit) and implies stop.
func (vm *VM) Step() (bool, error) {
	if vm.state == StateStopped {
		return true, nil
	}
	vm.state = StateRunning

	// The last byte of the buffer is never decoded as an instruction.
	if vm.pc >= len(vm.program)-1 {
		vm.stop(&Fault{Kind: FaultEndOfProgram, Pos: vm.pc})
		return true, nil
	}

	vm.stepCount++
	if vm.maxSteps > 0 && vm.stepCount > vm.maxSteps {
		vm.stop(&Fault{Kind: FaultStepLimit, Pos: vm.pc})
		return true, ErrStepLimitExceeded
	}

	inst, err := Decode(vm.program, vm.pc)
	if err != nil {
		return vm.fail(err)
	}
	vm.pc = inst.Offset + inst.Size

	if vm.trace != nil {
		vm.trace(inst)
	}
	if vm.statsEnabled {
		vm.stats.StepsExecuted++
		vm.stats.OpCounts[inst.Op.String()]++
	}

	return vm.execute(inst)
}

// RunOnce executes a single step. It exists for hosts that single-step
// between inspections.
func (vm *VM) RunOnce() (bool, error) {
	return vm.Step()
}

// Run steps until the engine stops. It returns nil when execution ended by
// reaching the end of the program, HALT, ILLEGAL or a silent MUL/DIV
// mismatch; LastFault tells these apart.
func (vm *VM) Run() error {
	var startTime time.Time
	if vm.statsEnabled {
		startTime = time.Now()
		defer func() {
			vm.stats.ExecutionTimeNs += time.Since(startTime).Nanoseconds()
		}()
	}

	for {
		if vm.ctx != nil {
			select {
			case <-vm.ctx.Done():
				err := vm.ctx.Err()
				vm.stop(&Fault{Kind: FaultCanceled, Pos: vm.pc, Cause: err})
				return err
			default:
			}
		}

		stop, err := vm.Step()
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

func (vm *VM) stop(f *Fault) {
	vm.fault = f
	vm.state = StateStopped
}

// fail stops the engine on a fatal fault and returns it as the step error.
func (vm *VM) fail(err error) (bool, error) {
	var f *Fault
	if errors.As(err, &f) {
		vm.stop(f)
	} else {
		vm.state = StateStopped
	}
	return true, err
}
