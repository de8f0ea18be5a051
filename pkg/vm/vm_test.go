package vm

import (
	"context"
	"errors"
	"math"
	"testing"
)

// loadsI32 loads I32(-8) into R0 and I32(8) into R1.
var loadsI32 = []byte{1, 0, 5, 248, 255, 255, 255, 1, 1, 5, 8, 0, 0, 0}

func runProgram(t *testing.T, program []byte) *VM {
	t.Helper()
	v := New()
	v.SetProgram(program)
	if err := v.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return v
}

func mustRegister(t *testing.T, v *VM, r Register) Value {
	t.Helper()
	val, err := v.Register(r)
	if err != nil {
		t.Fatalf("Register(%d) failed: %v", r, err)
	}
	return val
}

func TestVM_New(t *testing.T) {
	v := New()

	if got := mustRegister(t, v, 0); !got.Equal(U8(0)) {
		t.Errorf("expected R0 = u8 0, got %v", got)
	}
	for i, r := range v.Registers() {
		if !r.Equal(U8(0)) {
			t.Errorf("expected R%d = u8 0, got %v", i, r)
		}
	}
	if v.PC() != 0 {
		t.Errorf("expected pc 0, got %d", v.PC())
	}
	if v.State() != StateReady {
		t.Errorf("expected state ready, got %v", v.State())
	}
}

func TestVM_Halt(t *testing.T) {
	v := runProgram(t, []byte{0, 0, 0, 0})

	if v.PC() != 1 {
		t.Errorf("expected pc 1, got %d", v.PC())
	}
	if f := v.LastFault(); f == nil || f.Kind != FaultHalted {
		t.Errorf("expected halted fault, got %v", f)
	}
}

func TestVM_HaltStopsOnFirstStep(t *testing.T) {
	for _, padding := range [][]byte{{0}, {1, 2, 3}, {255, 255, 255, 255, 255}} {
		v := New()
		v.SetProgram(append([]byte{0}, padding...))

		stop, err := v.Step()
		if err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		if !stop {
			t.Errorf("padding %v: expected stop on first step", padding)
		}
		if v.PC() != 1 {
			t.Errorf("padding %v: expected pc 1, got %d", padding, v.PC())
		}
	}
}

func TestVM_Illegal(t *testing.T) {
	for _, op := range []byte{6, 7, 42, 128, 255} {
		v := runProgram(t, []byte{op, 0, 0, 0})

		if v.PC() != 1 {
			t.Errorf("opcode %d: expected pc 1, got %d", op, v.PC())
		}
		f := v.LastFault()
		if f == nil || f.Kind != FaultIllegalOpcode {
			t.Fatalf("opcode %d: expected illegal opcode fault, got %v", op, f)
		}
		if f.Pos != 0 {
			t.Errorf("opcode %d: expected fault position 0, got %d", op, f.Pos)
		}
		for i, r := range v.Registers() {
			if !r.Equal(U8(0)) {
				t.Errorf("opcode %d: R%d mutated to %v", op, i, r)
			}
		}
	}
}

func TestVM_Load(t *testing.T) {
	v := runProgram(t, loadsI32)

	if got := mustRegister(t, v, 0); !got.Equal(I32(-8)) {
		t.Errorf("expected R0 = i32 -8, got %v", got)
	}
	if got := mustRegister(t, v, 1); !got.Equal(I32(8)) {
		t.Errorf("expected R1 = i32 8, got %v", got)
	}
}

func TestVM_Add(t *testing.T) {
	v := runProgram(t, append(append([]byte{}, loadsI32...), 2, 0, 1, 2))

	if got := mustRegister(t, v, 2); !got.Equal(I32(0)) {
		t.Errorf("expected R2 = i32 0, got %v", got)
	}
}

func TestVM_Sub(t *testing.T) {
	v := runProgram(t, append(append([]byte{}, loadsI32...), 3, 0, 1, 2))

	if got := mustRegister(t, v, 2); !got.Equal(I32(-16)) {
		t.Errorf("expected R2 = i32 -16, got %v", got)
	}
}

func TestVM_Mul(t *testing.T) {
	v := runProgram(t, []byte{1, 0, 8, 0, 0, 188, 65, 1, 1, 8, 236, 81, 9, 66, 4, 0, 1, 2})

	got, ok := mustRegister(t, v, 2).AsF32()
	if !ok {
		t.Fatalf("expected R2 to hold f32, got %v", mustRegister(t, v, 2))
	}
	if math.Abs(float64(got)-806.75507) > 1e-3 {
		t.Errorf("expected R2 = f32 806.75507, got %v", got)
	}
}

func TestVM_Div(t *testing.T) {
	v := runProgram(t, append(append([]byte{}, loadsI32...), 5, 0, 1, 2))

	if got := mustRegister(t, v, 2); !got.Equal(I32(-1)) {
		t.Errorf("expected R2 = i32 -1, got %v", got)
	}
}

func TestVM_MulMismatchHaltsSilently(t *testing.T) {
	program := NewBuilder().
		Load(0, U8(3)).
		Load(1, I32(4)).
		Load(2, I64(99)).
		Mul(0, 1, 2).
		Load(3, U8(1)).
		Bytes()

	v := New()
	v.SetProgram(program)
	if err := v.Run(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := mustRegister(t, v, 2); !got.Equal(I64(99)) {
		t.Errorf("expected R2 untouched, got %v", got)
	}
	if got := mustRegister(t, v, 3); !got.Equal(U8(0)) {
		t.Errorf("expected execution to stop before R3 load, got %v", got)
	}
	f := v.LastFault()
	if f == nil || f.Kind != FaultTypeMismatch || f.Op != OpMul {
		t.Fatalf("expected MUL type mismatch fault, got %v", f)
	}
	if f.Left != KindU8 || f.Right != KindI32 {
		t.Errorf("expected u8/i32 mismatch, got %v/%v", f.Left, f.Right)
	}
	if v.State() != StateStopped {
		t.Errorf("expected stopped, got %v", v.State())
	}
}

func TestVM_DivNoneHaltsSilently(t *testing.T) {
	program := NewBuilder().
		Load(0, None()).
		Load(1, None()).
		Div(0, 1, 2).
		Halt().
		Bytes()

	v := New()
	v.SetProgram(program)
	stop := false
	var err error
	for i := 0; i < 3 && !stop; i++ {
		stop, err = v.Step()
		if err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}
	if !stop {
		t.Fatal("expected DIV of none values to stop")
	}
	if got := mustRegister(t, v, 2); !got.Equal(U8(0)) {
		t.Errorf("expected R2 untouched, got %v", got)
	}
}

func TestVM_AddMismatchIsFatal(t *testing.T) {
	program := NewBuilder().
		Load(0, U8(3)).
		Load(1, I32(4)).
		Add(0, 1, 2).
		Halt().
		Bytes()

	v := New()
	v.SetProgram(program)
	err := v.Run()
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	var f *Fault
	if !errors.As(err, &f) || f.Op != OpAdd {
		t.Errorf("expected ADD fault, got %v", err)
	}
	if v.State() != StateStopped {
		t.Errorf("expected stopped, got %v", v.State())
	}
}

func TestVM_FatalFaults(t *testing.T) {
	tests := []struct {
		name    string
		program []byte
		want    error
	}{
		{
			name:    "u8 overflow",
			program: NewBuilder().Load(0, U8(255)).Load(1, U8(2)).Mul(0, 1, 2).Halt().Bytes(),
			want:    ErrOverflow,
		},
		{
			name:    "i32 divide by zero",
			program: NewBuilder().Load(0, I32(1)).Load(1, I32(0)).Div(0, 1, 2).Halt().Bytes(),
			want:    ErrDivisionByZero,
		},
		{
			name:    "i64 min div -1",
			program: NewBuilder().Load(0, I64(math.MinInt64)).Load(1, I64(-1)).Div(0, 1, 2).Halt().Bytes(),
			want:    ErrOverflow,
		},
		{
			name:    "sub mismatch",
			program: NewBuilder().Load(0, F32(1)).Load(1, F64(1)).Sub(0, 1, 2).Halt().Bytes(),
			want:    ErrTypeMismatch,
		},
		{
			name:    "load register out of range",
			program: NewBuilder().Load(40, U8(1)).Halt().Bytes(),
			want:    ErrInvalidRegister,
		},
		{
			name:    "mul register out of range",
			program: NewBuilder().Mul(0, 1, 32).Halt().Bytes(),
			want:    ErrInvalidRegister,
		},
		{
			name:    "truncated load",
			program: []byte{1, 0, 5, 248, 255},
			want:    ErrOutOfBounds,
		},
		{
			name:    "truncated add",
			program: []byte{2, 0, 1},
			want:    ErrOutOfBounds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.SetProgram(tt.program)
			err := v.Run()
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var f *Fault
			if !errors.As(err, &f) || !f.Fatal() {
				t.Errorf("expected a fatal fault, got %v", err)
			}
			if v.LastFault() != f {
				t.Errorf("expected LastFault to match returned fault")
			}

			// Stopped engines report stop without decoding.
			stop, err := v.Step()
			if !stop || err != nil {
				t.Errorf("expected (true, nil) after stop, got (%v, %v)", stop, err)
			}
		})
	}
}

func TestVM_FloatDivideByZero(t *testing.T) {
	v := runProgram(t, NewBuilder().Load(0, F32(1)).Load(1, F32(0)).Div(0, 1, 2).Halt().Bytes())

	got, _ := mustRegister(t, v, 2).AsF32()
	if !math.IsInf(float64(got), 1) {
		t.Errorf("expected +Inf, got %v", got)
	}
}

func TestVM_EndOfProgram(t *testing.T) {
	// A trailing one-byte instruction sits at len-1 and is never decoded.
	program := NewBuilder().Load(0, U8(7)).Raw(0xEE).Bytes()
	v := runProgram(t, program)

	f := v.LastFault()
	if f == nil || f.Kind != FaultEndOfProgram {
		t.Fatalf("expected end of program, got %v", f)
	}
	if v.PC() != len(program)-1 {
		t.Errorf("expected pc %d, got %d", len(program)-1, v.PC())
	}

	empty := runProgram(t, nil)
	if f := empty.LastFault(); f == nil || f.Kind != FaultEndOfProgram {
		t.Errorf("expected end of program for empty program, got %v", f)
	}
}

func TestVM_StepAdvancesPastOperands(t *testing.T) {
	program := NewBuilder().
		Load(0, I8(-1)).
		Load(1, U16(0x0102)).
		Load(2, I16(-2)).
		Add(0, 0, 3).
		Halt().
		Bytes()

	v := New()
	v.SetProgram(program)

	wantPCs := []int{4, 9, 14, 18}
	for i, want := range wantPCs {
		stop, err := v.Step()
		if err != nil || stop {
			t.Fatalf("step %d: unexpected (%v, %v)", i, stop, err)
		}
		if v.PC() != want {
			t.Errorf("step %d: expected pc %d, got %d", i, want, v.PC())
		}
	}
	if got := mustRegister(t, v, 3); !got.Equal(I8(-2)) {
		t.Errorf("expected R3 = i8 -2, got %v", got)
	}
}

func TestVM_SetProgramRewinds(t *testing.T) {
	v := runProgram(t, append(append([]byte{}, loadsI32...), 2, 0, 1, 2))
	if v.State() != StateStopped {
		t.Fatalf("expected stopped, got %v", v.State())
	}

	v.SetProgram([]byte{3, 0, 1, 3, 0})
	if v.State() != StateReady || v.PC() != 0 || v.LastFault() != nil {
		t.Fatalf("expected fresh engine, got state %v pc %d fault %v", v.State(), v.PC(), v.LastFault())
	}
	if err := v.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := mustRegister(t, v, 3); !got.Equal(I32(-16)) {
		t.Errorf("expected registers to survive SetProgram, got %v", got)
	}

	v.Reset()
	if got := mustRegister(t, v, 3); !got.Equal(U8(0)) {
		t.Errorf("expected Reset to clear registers, got %v", got)
	}
}

func TestVM_SetProgramCopies(t *testing.T) {
	program := []byte{1, 0, 0, 9, 0}
	v := New()
	v.SetProgram(program)
	program[3] = 1

	if err := v.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := mustRegister(t, v, 0); !got.Equal(U8(9)) {
		t.Errorf("expected engine to own its program copy, got %v", got)
	}
}

func TestVM_MaxSteps(t *testing.T) {
	b := NewBuilder()
	for i := 0; i < 10; i++ {
		b.Load(Register(i), U8(uint8(i)))
	}
	v := New()
	v.SetMaxSteps(3)
	v.SetProgram(b.Halt().Bytes())

	if err := v.Run(); !errors.Is(err, ErrStepLimitExceeded) {
		t.Fatalf("expected ErrStepLimitExceeded, got %v", err)
	}
	if got := mustRegister(t, v, 2); !got.Equal(U8(2)) {
		t.Errorf("expected first three loads to run, got %v", got)
	}
	f := v.LastFault()
	if f == nil || f.Kind != FaultStepLimit {
		t.Fatalf("expected step limit fault, got %v", f)
	}
	if !errors.Is(f, ErrStepLimitExceeded) || !f.Fatal() {
		t.Errorf("expected fatal fault wrapping ErrStepLimitExceeded, got %v", f)
	}
	if f.Pos != 12 {
		t.Errorf("expected fault at the fourth load (12), got %d", f.Pos)
	}
}

func TestVM_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := New()
	v.SetContext(ctx)
	v.SetProgram(loadsI32)

	if err := v.Run(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := mustRegister(t, v, 0); !got.Equal(U8(0)) {
		t.Errorf("expected no step to run, got %v", got)
	}
	f := v.LastFault()
	if f == nil || f.Kind != FaultCanceled {
		t.Fatalf("expected canceled fault, got %v", f)
	}
	if !errors.Is(f, context.Canceled) {
		t.Errorf("expected fault to wrap context.Canceled, got %v", f)
	}
	if v.State() != StateStopped {
		t.Errorf("expected stopped, got %v", v.State())
	}
}

func TestVM_Stats(t *testing.T) {
	v := New()
	if v.Stats() != nil {
		t.Error("expected nil stats before EnableStats")
	}
	v.EnableStats()
	v.SetProgram(append(append([]byte{}, loadsI32...), 2, 0, 1, 2, 0, 0))
	if err := v.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats := v.Stats()
	if stats.StepsExecuted != 4 {
		t.Errorf("expected 4 steps, got %d", stats.StepsExecuted)
	}
	if stats.OpCounts["LOAD"] != 2 || stats.OpCounts["ADD"] != 1 || stats.OpCounts["HALT"] != 1 {
		t.Errorf("unexpected op counts: %v", stats.OpCounts)
	}
}

func TestVM_Trace(t *testing.T) {
	var seen []Opcode
	v := New()
	v.SetTrace(func(inst Instruction) {
		seen = append(seen, inst.Op)
	})
	v.SetProgram(append(append([]byte{}, loadsI32...), 4, 0, 1, 2, 0, 0))
	if err := v.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []Opcode{OpLoad, OpLoad, OpMul, OpHalt}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("trace[%d]: expected %v, got %v", i, want[i], seen[i])
		}
	}
}

func TestVM_InstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.SetProgram(loadsI32)
	b.SetProgram([]byte{1, 0, 0, 42, 0})

	if err := a.Run(); err != nil {
		t.Fatal(err)
	}
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}
	if got := mustRegister(t, a, 0); !got.Equal(I32(-8)) {
		t.Errorf("engine a: expected i32 -8, got %v", got)
	}
	if got := mustRegister(t, b, 0); !got.Equal(U8(42)) {
		t.Errorf("engine b: expected u8 42, got %v", got)
	}
}
