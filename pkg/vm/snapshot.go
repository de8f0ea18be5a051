package vm

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ErrInvalidSnapshot is returned when a snapshot cannot be restored.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// cborEncMode uses canonical encoding so equal engine states produce equal
// bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// SnapshotRegister is one register slot in wire form.
type SnapshotRegister struct {
	Kind Kind   `cbor:"k"`
	Bits uint64 `cbor:"b"`
}

// Snapshot is a copy of everything an engine needs to resume: program,
// program counter, lifecycle state and registers.
type Snapshot struct {
	Program   []byte             `cbor:"program"`
	PC        int                `cbor:"pc"`
	State     State              `cbor:"state"`
	Registers []SnapshotRegister `cbor:"registers"`
}

// Snapshot captures the engine state.
func (vm *VM) Snapshot() *Snapshot {
	s := &Snapshot{
		Program:   append([]byte(nil), vm.program...),
		PC:        vm.pc,
		State:     vm.state,
		Registers: make([]SnapshotRegister, NumRegisters),
	}
	for i, v := range vm.registers {
		s.Registers[i] = SnapshotRegister{Kind: v.kind, Bits: v.bits}
	}
	return s
}

// Restore replaces the engine state with s. The last fault is cleared; a
// restored stopped engine stays stopped.
func (vm *VM) Restore(s *Snapshot) error {
	if len(s.Registers) != NumRegisters {
		return fmt.Errorf("%w: %d registers", ErrInvalidSnapshot, len(s.Registers))
	}
	if s.PC < 0 || s.PC > len(s.Program) {
		return fmt.Errorf("%w: pc %d outside program of %d bytes", ErrInvalidSnapshot, s.PC, len(s.Program))
	}
	if s.State > StateStopped {
		return fmt.Errorf("%w: state %d", ErrInvalidSnapshot, s.State)
	}
	var regs RegisterFile
	for i, r := range s.Registers {
		if !r.Kind.Valid() {
			return fmt.Errorf("%w: register %d has %s", ErrInvalidSnapshot, i, r.Kind)
		}
		regs[i] = Value{kind: r.Kind, bits: r.Bits}
	}

	vm.registers = regs
	vm.program = append([]byte(nil), s.Program...)
	vm.pc = s.PC
	vm.state = s.State
	vm.fault = nil
	vm.stepCount = 0
	return nil
}

// MarshalSnapshot serializes a Snapshot to CBOR bytes.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("vm: unmarshal snapshot: %w", err)
	}
	return &s, nil
}
