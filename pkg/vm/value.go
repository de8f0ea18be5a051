package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the discriminant of a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindU8
	KindI8
	KindU16
	KindI16
	KindU32
	KindI32
	KindU64
	KindI64
	KindF32
	KindF64
)

var kindNames = [...]string{
	KindNone: "none",
	KindU8:   "u8",
	KindI8:   "i8",
	KindU16:  "u16",
	KindI16:  "i16",
	KindU32:  "u32",
	KindI32:  "i32",
	KindU64:  "u64",
	KindI64:  "i64",
	KindF32:  "f32",
	KindF64:  "f64",
}

// String returns the assembler name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// KindFromName returns the kind for an assembler name such as "i32".
func KindFromName(name string) (Kind, bool) {
	name = strings.ToLower(name)
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return KindNone, false
}

// Valid reports whether k is one of the eleven known kinds.
func (k Kind) Valid() bool {
	return k <= KindF64
}

// Width returns the payload width in bytes on the wire.
func (k Kind) Width() int {
	switch k {
	case KindU8, KindI8:
		return 1
	case KindU16, KindI16:
		return 2
	case KindU32, KindI32, KindF32:
		return 4
	case KindU64, KindI64, KindF64:
		return 8
	default:
		return 0
	}
}

// Tag returns the type tag byte used by LOAD. None has no tag of its own;
// any byte above 9 decodes to None, and 0xFF is what the encoder emits.
func (k Kind) Tag() byte {
	if k == KindNone || !k.Valid() {
		return TagNone
	}
	return byte(k - 1)
}

// TagNone is the tag byte the encoder writes for a None value.
const TagNone byte = 0xFF

// KindFromTag maps a LOAD type tag to its kind. Unknown tags are None.
func KindFromTag(tag byte) Kind {
	if tag > 9 {
		return KindNone
	}
	return Kind(tag + 1)
}

// IsInteger reports whether k is one of the eight integer kinds.
func (k Kind) IsInteger() bool {
	return k >= KindU8 && k <= KindI64
}

// IsFloat reports whether k is F32 or F64.
func (k Kind) IsFloat() bool {
	return k == KindF32 || k == KindF64
}

// Value is a register value: exactly one of the closed set of numeric kinds.
//
// The payload is kept as raw bits. Signed kinds are sign-extended to 64 bits,
// F32 holds its IEEE-754 single bits in the low 32 bits.
type Value struct {
	kind Kind
	bits uint64
}

// Constructors, one per kind.
func None() Value { return Value{} }
func U8(x uint8) Value { return Value{KindU8, uint64(x)} }
func I8(x int8) Value { return Value{KindI8, uint64(int64(x))} }
func U16(x uint16) Value { return Value{KindU16, uint64(x)} }
func I16(x int16) Value { return Value{KindI16, uint64(int64(x))} }
func U32(x uint32) Value { return Value{KindU32, uint64(x)} }
func I32(x int32) Value { return Value{KindI32, uint64(int64(x))} }
func U64(x uint64) Value { return Value{KindU64, x} }
func I64(x int64) Value { return Value{KindI64, uint64(x)} }
func F32(x float32) Value { return Value{KindF32, uint64(math.Float32bits(x))} }
func F64(x float64) Value { return Value{KindF64, math.Float64bits(x)} }

// Kind returns the discriminant.
func (v Value) Kind() Kind { return v.kind }

// IsNone reports whether v is the None value.
func (v Value) IsNone() bool { return v.kind == KindNone }

// Typed accessors. The bool is false when v holds a different kind.
func (v Value) AsU8() (uint8, bool) { return uint8(v.bits), v.kind == KindU8 }
func (v Value) AsI8() (int8, bool) { return int8(v.bits), v.kind == KindI8 }
func (v Value) AsU16() (uint16, bool) { return uint16(v.bits), v.kind == KindU16 }
func (v Value) AsI16() (int16, bool) { return int16(v.bits), v.kind == KindI16 }
func (v Value) AsU32() (uint32, bool) { return uint32(v.bits), v.kind == KindU32 }
func (v Value) AsI32() (int32, bool) { return int32(v.bits), v.kind == KindI32 }
func (v Value) AsU64() (uint64, bool) { return v.bits, v.kind == KindU64 }
func (v Value) AsI64() (int64, bool) { return int64(v.bits), v.kind == KindI64 }
func (v Value) AsF32() (float32, bool) { return math.Float32frombits(uint32(v.bits)), v.kind == KindF32 }
func (v Value) AsF64() (float64, bool) { return math.Float64frombits(v.bits), v.kind == KindF64 }

// Interface returns the payload as the matching Go numeric type, or nil for None.
func (v Value) Interface() any {
	switch v.kind {
	case KindU8:
		return uint8(v.bits)
	case KindI8:
		return int8(v.bits)
	case KindU16:
		return uint16(v.bits)
	case KindI16:
		return int16(v.bits)
	case KindU32:
		return uint32(v.bits)
	case KindI32:
		return int32(v.bits)
	case KindU64:
		return v.bits
	case KindI64:
		return int64(v.bits)
	case KindF32:
		return math.Float32frombits(uint32(v.bits))
	case KindF64:
		return math.Float64frombits(v.bits)
	default:
		return nil
	}
}

// Equal reports whether a and b have the same kind and payload. Floats
// compare by value, so NaN is never equal to itself.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindF32:
		a, _ := v.AsF32()
		b, _ := o.AsF32()
		return a == b
	case KindF64:
		a, _ := v.AsF64()
		b, _ := o.AsF64()
		return a == b
	default:
		return v.bits == o.bits
	}
}

// Text returns the payload formatted without the kind prefix.
func (v Value) Text() string {
	switch v.kind {
	case KindNone:
		return ""
	case KindU8, KindU16, KindU32, KindU64:
		return strconv.FormatUint(v.bits, 10)
	case KindI8, KindI16, KindI32, KindI64:
		return strconv.FormatInt(int64(v.bits), 10)
	case KindF32:
		f, _ := v.AsF32()
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	case KindF64:
		f, _ := v.AsF64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	default:
		return fmt.Sprintf("0x%X", v.bits)
	}
}

// String formats v the way the assembler reads it back, e.g. "i32 -8".
func (v Value) String() string {
	if v.kind == KindNone {
		return "none"
	}
	return v.kind.String() + " " + v.Text()
}

// ParseValue parses text as a payload of the given kind. Integers out of range
// for the kind are rejected rather than truncated.
func ParseValue(kind Kind, text string) (Value, error) {
	text = strings.TrimSpace(text)
	switch kind {
	case KindNone:
		return None(), nil
	case KindU8, KindU16, KindU32, KindU64:
		n, err := strconv.ParseUint(text, 0, kind.Width()*8)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s %q", ErrInvalidLiteral, kind, text)
		}
		return Value{kind, n}, nil
	case KindI8, KindI16, KindI32, KindI64:
		n, err := strconv.ParseInt(text, 0, kind.Width()*8)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s %q", ErrInvalidLiteral, kind, text)
		}
		return Value{kind, uint64(n)}, nil
	case KindF32:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s %q", ErrInvalidLiteral, kind, text)
		}
		return F32(float32(f)), nil
	case KindF64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s %q", ErrInvalidLiteral, kind, text)
		}
		return F64(f), nil
	default:
		return Value{}, fmt.Errorf("%w: %s", ErrInvalidLiteral, kind)
	}
}
