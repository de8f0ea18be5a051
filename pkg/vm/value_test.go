package vm

import (
	"errors"
	"math"
	"testing"
)

func TestValue_String(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{None(), "none"},
		{U8(7), "u8 7"},
		{I32(-8), "i32 -8"},
		{U64(math.MaxUint64), "u64 18446744073709551615"},
		{F32(23.5), "f32 23.5"},
		{F64(-0.25), "f64 -0.25"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestValue_Equal(t *testing.T) {
	if U8(1).Equal(I8(1)) {
		t.Error("values of different kinds must not be equal")
	}
	if !None().Equal(None()) {
		t.Error("none must equal none")
	}
	nan := F64(math.NaN())
	if nan.Equal(nan) {
		t.Error("NaN must not equal itself")
	}
	if !F32(0).Equal(F32(float32(math.Copysign(0, -1)))) {
		t.Error("+0 and -0 compare equal")
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		kind Kind
		text string
		want Value
	}{
		{KindU8, "255", U8(255)},
		{KindU8, "0xFF", U8(255)},
		{KindI8, "-128", I8(-128)},
		{KindU16, "0x0102", U16(0x0102)},
		{KindI32, "-8", I32(-8)},
		{KindI64, "-9223372036854775808", I64(math.MinInt64)},
		{KindF32, "34.29", F32(34.29)},
		{KindF64, "1e3", F64(1000)},
		{KindNone, "", None()},
	}
	for _, tt := range tests {
		got, err := ParseValue(tt.kind, tt.text)
		if err != nil {
			t.Errorf("%s %q: ParseValue failed: %v", tt.kind, tt.text, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("%s %q: expected %v, got %v", tt.kind, tt.text, tt.want, got)
		}
	}
}

func TestParseValue_Rejects(t *testing.T) {
	tests := []struct {
		kind Kind
		text string
	}{
		{KindU8, "256"},
		{KindU8, "-1"},
		{KindI8, "128"},
		{KindI32, "abc"},
		{KindF32, "one"},
	}
	for _, tt := range tests {
		if _, err := ParseValue(tt.kind, tt.text); !errors.Is(err, ErrInvalidLiteral) {
			t.Errorf("%s %q: expected ErrInvalidLiteral, got %v", tt.kind, tt.text, err)
		}
	}
}

func TestKind_Tags(t *testing.T) {
	for k := KindU8; k <= KindF64; k++ {
		if got := KindFromTag(k.Tag()); got != k {
			t.Errorf("%v: tag %d maps back to %v", k, k.Tag(), got)
		}
		name, ok := KindFromName(k.String())
		if !ok || name != k {
			t.Errorf("%v: name round trip gave %v", k, name)
		}
	}
	for _, tag := range []byte{10, 11, 0x80, 0xFF} {
		if KindFromTag(tag) != KindNone {
			t.Errorf("tag %d: expected none", tag)
		}
	}
}

func TestArith_SameKind(t *testing.T) {
	tests := []struct {
		name string
		op   Opcode
		a, b Value
		want Value
	}{
		{"u8 add", OpAdd, U8(200), U8(55), U8(255)},
		{"i8 sub", OpSub, I8(-100), I8(28), I8(-128)},
		{"u16 mul", OpMul, U16(256), U16(255), U16(65280)},
		{"i16 div truncates", OpDiv, I16(-7), I16(2), I16(-3)},
		{"u32 sub", OpSub, U32(10), U32(10), U32(0)},
		{"i32 add", OpAdd, I32(-8), I32(8), I32(0)},
		{"u64 div", OpDiv, U64(math.MaxUint64), U64(3), U64(6148914691236517205)},
		{"i64 mul", OpMul, I64(-3), I64(-4), I64(12)},
		{"f32 add", OpAdd, F32(0.5), F32(0.25), F32(0.75)},
		{"f64 div", OpDiv, F64(1), F64(4), F64(0.25)},
	}
	for _, tt := range tests {
		got, err := Apply(tt.op, tt.a, tt.b)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestArith_Overflow(t *testing.T) {
	tests := []struct {
		name string
		op   Opcode
		a, b Value
	}{
		{"u8 add", OpAdd, U8(255), U8(1)},
		{"u8 sub", OpSub, U8(0), U8(1)},
		{"i8 add", OpAdd, I8(127), I8(1)},
		{"i8 mul", OpMul, I8(-128), I8(-1)},
		{"i16 sub", OpSub, I16(math.MinInt16), I16(1)},
		{"u32 mul", OpMul, U32(1 << 16), U32(1 << 16)},
		{"i32 div", OpDiv, I32(math.MinInt32), I32(-1)},
		{"u64 add", OpAdd, U64(math.MaxUint64), U64(1)},
		{"i64 mul", OpMul, I64(math.MaxInt64), I64(2)},
	}
	for _, tt := range tests {
		_, err := Apply(tt.op, tt.a, tt.b)
		if !errors.Is(err, ErrOverflow) {
			t.Errorf("%s: expected ErrOverflow, got %v", tt.name, err)
		}
	}
}

func TestArith_DivideByZero(t *testing.T) {
	for _, v := range []Value{U8(0), I8(0), U16(0), I16(0), U32(0), I32(0), U64(0), I64(0)} {
		one, _ := ParseValue(v.Kind(), "1")
		if _, err := Div(one, v); !errors.Is(err, ErrDivisionByZero) {
			t.Errorf("%v: expected ErrDivisionByZero, got %v", v.Kind(), err)
		}
	}

	got, err := Div(F64(-1), F64(0))
	if err != nil {
		t.Fatalf("float division by zero must not fail: %v", err)
	}
	if f, _ := got.AsF64(); !math.IsInf(f, -1) {
		t.Errorf("expected -Inf, got %v", got)
	}
	got, _ = Div(F32(0), F32(0))
	if f, _ := got.AsF32(); !math.IsNaN(float64(f)) {
		t.Errorf("expected NaN, got %v", got)
	}
}

func TestArith_Mismatch(t *testing.T) {
	pairs := [][2]Value{
		{U8(1), I8(1)},
		{I32(1), I64(1)},
		{F32(1), F64(1)},
		{None(), None()},
		{None(), U8(1)},
	}
	for _, op := range []Opcode{OpAdd, OpSub, OpMul, OpDiv} {
		for _, p := range pairs {
			_, err := Apply(op, p[0], p[1])
			var f *Fault
			if !errors.As(err, &f) || f.Kind != FaultTypeMismatch {
				t.Errorf("%v %v, %v: expected type mismatch, got %v", op, p[0], p[1], err)
				continue
			}
			wantFatal := op == OpAdd || op == OpSub
			if f.Fatal() != wantFatal {
				t.Errorf("%v: expected fatal=%v", op, wantFatal)
			}
		}
	}
}
