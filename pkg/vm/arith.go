package vm

type signed interface {
	~int8 | ~int16 | ~int32 | ~int64
}

type unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Checked integer helpers. The bool is false on overflow.

func addS[T signed](a, b T) (T, bool) {
	s := a + b
	return s, (b >= 0) == (s >= a)
}

func subS[T signed](a, b T) (T, bool) {
	d := a - b
	return d, (b >= 0) == (d <= a)
}

func mulS[T signed](a, b T) (T, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if b == -1 {
		// only MinInt * -1 maps back onto itself
		return p, p != a
	}
	return p, p/b == a
}

func addU[T unsigned](a, b T) (T, bool) {
	s := a + b
	return s, s >= a
}

func subU[T unsigned](a, b T) (T, bool) {
	return a - b, a >= b
}

func mulU[T unsigned](a, b T) (T, bool) {
	if a == 0 {
		return 0, true
	}
	p := a * b
	return p, p/a == b
}

// Division helpers return (quotient, divideByZero, overflow).

func divS[T signed](a, b T) (T, bool, bool) {
	if b == 0 {
		return 0, true, false
	}
	q := a / b
	return q, false, b == -1 && a != 0 && q == a
}

func divU[T unsigned](a, b T) (T, bool, bool) {
	if b == 0 {
		return 0, true, false
	}
	return a / b, false, false
}

func checked[T any](op Opcode, a Value, r T, ok bool, mk func(T) Value) (Value, error) {
	if !ok {
		return Value{}, &Fault{Kind: FaultOverflow, Op: op, Left: a.kind, Right: a.kind}
	}
	return mk(r), nil
}

func quotient[T any](op Opcode, a Value, r T, zero, overflow bool, mk func(T) Value) (Value, error) {
	if zero {
		return Value{}, &Fault{Kind: FaultDivideByZero, Op: op, Left: a.kind, Right: a.kind}
	}
	return checked(op, a, r, !overflow, mk)
}

func mismatch(op Opcode, a, b Value) (Value, error) {
	return Value{}, &Fault{Kind: FaultTypeMismatch, Op: op, Left: a.kind, Right: b.kind}
}

// Add returns a+b. Both operands must be the same non-None kind; the result
// has that kind. Integer overflow is an error, never a wrap.
func Add(a, b Value) (Value, error) {
	if a.kind != b.kind {
		return mismatch(OpAdd, a, b)
	}
	switch a.kind {
	case KindU8:
		r, ok := addU(uint8(a.bits), uint8(b.bits))
		return checked(OpAdd, a, r, ok, U8)
	case KindI8:
		r, ok := addS(int8(a.bits), int8(b.bits))
		return checked(OpAdd, a, r, ok, I8)
	case KindU16:
		r, ok := addU(uint16(a.bits), uint16(b.bits))
		return checked(OpAdd, a, r, ok, U16)
	case KindI16:
		r, ok := addS(int16(a.bits), int16(b.bits))
		return checked(OpAdd, a, r, ok, I16)
	case KindU32:
		r, ok := addU(uint32(a.bits), uint32(b.bits))
		return checked(OpAdd, a, r, ok, U32)
	case KindI32:
		r, ok := addS(int32(a.bits), int32(b.bits))
		return checked(OpAdd, a, r, ok, I32)
	case KindU64:
		r, ok := addU(a.bits, b.bits)
		return checked(OpAdd, a, r, ok, U64)
	case KindI64:
		r, ok := addS(int64(a.bits), int64(b.bits))
		return checked(OpAdd, a, r, ok, I64)
	case KindF32:
		x, _ := a.AsF32()
		y, _ := b.AsF32()
		return F32(x + y), nil
	case KindF64:
		x, _ := a.AsF64()
		y, _ := b.AsF64()
		return F64(x + y), nil
	default:
		return mismatch(OpAdd, a, b)
	}
}

// Sub returns a-b under the same rules as Add.
func Sub(a, b Value) (Value, error) {
	if a.kind != b.kind {
		return mismatch(OpSub, a, b)
	}
	switch a.kind {
	case KindU8:
		r, ok := subU(uint8(a.bits), uint8(b.bits))
		return checked(OpSub, a, r, ok, U8)
	case KindI8:
		r, ok := subS(int8(a.bits), int8(b.bits))
		return checked(OpSub, a, r, ok, I8)
	case KindU16:
		r, ok := subU(uint16(a.bits), uint16(b.bits))
		return checked(OpSub, a, r, ok, U16)
	case KindI16:
		r, ok := subS(int16(a.bits), int16(b.bits))
		return checked(OpSub, a, r, ok, I16)
	case KindU32:
		r, ok := subU(uint32(a.bits), uint32(b.bits))
		return checked(OpSub, a, r, ok, U32)
	case KindI32:
		r, ok := subS(int32(a.bits), int32(b.bits))
		return checked(OpSub, a, r, ok, I32)
	case KindU64:
		r, ok := subU(a.bits, b.bits)
		return checked(OpSub, a, r, ok, U64)
	case KindI64:
		r, ok := subS(int64(a.bits), int64(b.bits))
		return checked(OpSub, a, r, ok, I64)
	case KindF32:
		x, _ := a.AsF32()
		y, _ := b.AsF32()
		return F32(x - y), nil
	case KindF64:
		x, _ := a.AsF64()
		y, _ := b.AsF64()
		return F64(x - y), nil
	default:
		return mismatch(OpSub, a, b)
	}
}

// Mul returns a*b under the same rules as Add.
func Mul(a, b Value) (Value, error) {
	if a.kind != b.kind {
		return mismatch(OpMul, a, b)
	}
	switch a.kind {
	case KindU8:
		r, ok := mulU(uint8(a.bits), uint8(b.bits))
		return checked(OpMul, a, r, ok, U8)
	case KindI8:
		r, ok := mulS(int8(a.bits), int8(b.bits))
		return checked(OpMul, a, r, ok, I8)
	case KindU16:
		r, ok := mulU(uint16(a.bits), uint16(b.bits))
		return checked(OpMul, a, r, ok, U16)
	case KindI16:
		r, ok := mulS(int16(a.bits), int16(b.bits))
		return checked(OpMul, a, r, ok, I16)
	case KindU32:
		r, ok := mulU(uint32(a.bits), uint32(b.bits))
		return checked(OpMul, a, r, ok, U32)
	case KindI32:
		r, ok := mulS(int32(a.bits), int32(b.bits))
		return checked(OpMul, a, r, ok, I32)
	case KindU64:
		r, ok := mulU(a.bits, b.bits)
		return checked(OpMul, a, r, ok, U64)
	case KindI64:
		r, ok := mulS(int64(a.bits), int64(b.bits))
		return checked(OpMul, a, r, ok, I64)
	case KindF32:
		x, _ := a.AsF32()
		y, _ := b.AsF32()
		return F32(x * y), nil
	case KindF64:
		x, _ := a.AsF64()
		y, _ := b.AsF64()
		return F64(x * y), nil
	default:
		return mismatch(OpMul, a, b)
	}
}

// Div returns a/b. Integer division truncates toward zero; dividing by zero
// is an error for integers and follows IEEE-754 for floats.
func Div(a, b Value) (Value, error) {
	if a.kind != b.kind {
		return mismatch(OpDiv, a, b)
	}
	switch a.kind {
	case KindU8:
		r, z, o := divU(uint8(a.bits), uint8(b.bits))
		return quotient(OpDiv, a, r, z, o, U8)
	case KindI8:
		r, z, o := divS(int8(a.bits), int8(b.bits))
		return quotient(OpDiv, a, r, z, o, I8)
	case KindU16:
		r, z, o := divU(uint16(a.bits), uint16(b.bits))
		return quotient(OpDiv, a, r, z, o, U16)
	case KindI16:
		r, z, o := divS(int16(a.bits), int16(b.bits))
		return quotient(OpDiv, a, r, z, o, I16)
	case KindU32:
		r, z, o := divU(uint32(a.bits), uint32(b.bits))
		return quotient(OpDiv, a, r, z, o, U32)
	case KindI32:
		r, z, o := divS(int32(a.bits), int32(b.bits))
		return quotient(OpDiv, a, r, z, o, I32)
	case KindU64:
		r, z, o := divU(a.bits, b.bits)
		return quotient(OpDiv, a, r, z, o, U64)
	case KindI64:
		r, z, o := divS(int64(a.bits), int64(b.bits))
		return quotient(OpDiv, a, r, z, o, I64)
	case KindF32:
		x, _ := a.AsF32()
		y, _ := b.AsF32()
		return F32(x / y), nil
	case KindF64:
		x, _ := a.AsF64()
		y, _ := b.AsF64()
		return F64(x / y), nil
	default:
		return mismatch(OpDiv, a, b)
	}
}

// Apply dispatches one of the four arithmetic opcodes.
func Apply(op Opcode, a, b Value) (Value, error) {
	switch op {
	case OpAdd:
		return Add(a, b)
	case OpSub:
		return Sub(a, b)
	case OpMul:
		return Mul(a, b)
	case OpDiv:
		return Div(a, b)
	default:
		return Value{}, &Fault{Kind: FaultIllegalOpcode, Op: op}
	}
}
