package vm

import "fmt"

// NumRegisters is the size of the register file: R0-R31.
const NumRegisters = 32

// RegisterFile holds the typed register slots of one engine.
type RegisterFile [NumRegisters]Value

// NewRegisterFile creates a new register file with every slot set to U8(0).
func NewRegisterFile() *RegisterFile {
	rf := &RegisterFile{}
	rf.Reset()
	return rf
}

// Reset sets every register back to U8(0).
func (rf *RegisterFile) Reset() {
	for i := range rf {
		rf[i] = U8(0)
	}
}

// Get returns the value of register r.
func (rf *RegisterFile) Get(r Register) (Value, error) {
	if !r.Valid() {
		return Value{}, fmt.Errorf("%w: %s", ErrInvalidRegister, r)
	}
	return rf[r], nil
}

// Set stores v into register r.
func (rf *RegisterFile) Set(r Register, v Value) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRegister, r)
	}
	if !v.kind.Valid() {
		return fmt.Errorf("%w: %s", ErrTypeMismatch, v.kind)
	}
	rf[r] = v
	return nil
}
