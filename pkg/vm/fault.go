package vm

import (
	"errors"
	"fmt"
)

// Error definitions
var (
	ErrEndOfProgram      = errors.New("end of program")
	ErrHalted            = errors.New("halted")
	ErrIllegalOpcode     = errors.New("illegal opcode")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrOverflow          = errors.New("integer overflow")
	ErrInvalidRegister   = errors.New("invalid register")
	ErrOutOfBounds       = errors.New("read past end of program")
	ErrStepLimitExceeded = errors.New("step limit exceeded")
	ErrInvalidLiteral    = errors.New("invalid literal")
)

// FaultKind classifies why execution stopped.
type FaultKind uint8

const (
	FaultEndOfProgram FaultKind = iota + 1
	FaultHalted
	FaultIllegalOpcode
	FaultTypeMismatch
	FaultDivideByZero
	FaultOverflow
	FaultIndexOutOfRange
	FaultOutOfBounds
	FaultStepLimit
	FaultCanceled
)

// String returns the string representation of the fault kind.
func (k FaultKind) String() string {
	switch k {
	case FaultEndOfProgram:
		return "end-of-program"
	case FaultHalted:
		return "halted"
	case FaultIllegalOpcode:
		return "illegal-opcode"
	case FaultTypeMismatch:
		return "type-mismatch"
	case FaultDivideByZero:
		return "divide-by-zero"
	case FaultOverflow:
		return "overflow"
	case FaultIndexOutOfRange:
		return "index-out-of-range"
	case FaultOutOfBounds:
		return "out-of-bounds"
	case FaultStepLimit:
		return "step-limit"
	case FaultCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Fault describes a condition that ended execution. Every stop goes through
// one, including the benign ones, so hosts can ask LastFault why a run ended.
// Only fatal faults are returned as errors from Step and Run.
type Fault struct {
	Kind FaultKind
	Op   Opcode

	// Pos is the offset of the instruction that faulted.
	Pos int

	// Left and Right are the operand kinds of a type mismatch.
	Left, Right Kind

	// Register is the offending index of an out-of-range fault.
	Register Register

	// Cause is the context error of a canceled run.
	Cause error
}

// Fatal reports whether the fault is surfaced as an error. End of program,
// HALT, ILLEGAL and the MUL/DIV type mismatch only stop the engine.
func (f *Fault) Fatal() bool {
	switch f.Kind {
	case FaultEndOfProgram, FaultHalted, FaultIllegalOpcode:
		return false
	case FaultTypeMismatch:
		return f.Op != OpMul && f.Op != OpDiv
	default:
		return true
	}
}

func (f *Fault) Error() string {
	switch f.Kind {
	case FaultIllegalOpcode:
		return fmt.Sprintf("%v at %d", ErrIllegalOpcode, f.Pos)
	case FaultTypeMismatch:
		return fmt.Sprintf("%v: %s %s, %s at %d", ErrTypeMismatch, f.Op, f.Left, f.Right, f.Pos)
	case FaultIndexOutOfRange:
		return fmt.Sprintf("%v: %s (%s at %d)", ErrInvalidRegister, f.Register, f.Op, f.Pos)
	case FaultDivideByZero, FaultOverflow:
		return fmt.Sprintf("%v: %s %s at %d", f.Unwrap(), f.Op, f.Left, f.Pos)
	default:
		return fmt.Sprintf("%v at %d", f.Unwrap(), f.Pos)
	}
}

// Unwrap returns the sentinel error for the fault kind.
func (f *Fault) Unwrap() error {
	switch f.Kind {
	case FaultEndOfProgram:
		return ErrEndOfProgram
	case FaultHalted:
		return ErrHalted
	case FaultIllegalOpcode:
		return ErrIllegalOpcode
	case FaultTypeMismatch:
		return ErrTypeMismatch
	case FaultDivideByZero:
		return ErrDivisionByZero
	case FaultOverflow:
		return ErrOverflow
	case FaultIndexOutOfRange:
		return ErrInvalidRegister
	case FaultOutOfBounds:
		return ErrOutOfBounds
	case FaultStepLimit:
		return ErrStepLimitExceeded
	case FaultCanceled:
		return f.Cause
	default:
		return nil
	}
}
