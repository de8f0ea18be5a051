package vm

import (
	"encoding/binary"
	"math"
)

// Decode reads one instruction starting at offset. It never reads past the
// end of program; a short instruction yields a FaultOutOfBounds.
func Decode(program []byte, offset int) (Instruction, error) {
	if offset < 0 || offset >= len(program) {
		return Instruction{}, &Fault{Kind: FaultOutOfBounds, Pos: offset}
	}

	raw := program[offset]
	inst := Instruction{
		Op:     OpcodeFromByte(raw),
		Raw:    raw,
		Offset: offset,
		Size:   1,
	}

	switch inst.Op {
	case OpHalt, OpIllegal:
		return inst, nil

	case OpLoad:
		if offset+3 > len(program) {
			return inst, &Fault{Kind: FaultOutOfBounds, Op: inst.Op, Pos: offset}
		}
		inst.Regs[0] = Register(program[offset+1])
		v, n, err := DecodeValue(program, offset+2)
		if err != nil {
			f := err.(*Fault)
			f.Op, f.Pos = inst.Op, offset
			return inst, f
		}
		inst.Value = v
		inst.Size = 2 + n

	case OpAdd, OpSub, OpMul, OpDiv:
		if offset+4 > len(program) {
			return inst, &Fault{Kind: FaultOutOfBounds, Op: inst.Op, Pos: offset}
		}
		inst.Regs[0] = Register(program[offset+1])
		inst.Regs[1] = Register(program[offset+2])
		inst.Regs[2] = Register(program[offset+3])
		inst.Size = 4
	}

	return inst, nil
}

// DecodeValue reads a type tag at offset and the payload that follows it,
// returning the value and the number of bytes consumed (tag included).
//
// The byte order is not uniform: 16-bit integers are big-endian while the
// 32- and 64-bit kinds are little-endian. Existing bytecode depends on it.
func DecodeValue(program []byte, offset int) (Value, int, error) {
	if offset >= len(program) {
		return Value{}, 0, &Fault{Kind: FaultOutOfBounds, Pos: offset}
	}
	kind := KindFromTag(program[offset])
	width := kind.Width()
	start := offset + 1
	if start+width > len(program) {
		return Value{}, 0, &Fault{Kind: FaultOutOfBounds, Pos: offset}
	}
	p := program[start : start+width]

	var v Value
	switch kind {
	case KindU8:
		v = U8(p[0])
	case KindI8:
		v = I8(int8(p[0]))
	case KindU16:
		v = U16(binary.BigEndian.Uint16(p))
	case KindI16:
		v = I16(int16(binary.BigEndian.Uint16(p)))
	case KindU32:
		v = U32(binary.LittleEndian.Uint32(p))
	case KindI32:
		v = I32(int32(binary.LittleEndian.Uint32(p)))
	case KindU64:
		v = U64(binary.LittleEndian.Uint64(p))
	case KindI64:
		v = I64(int64(binary.LittleEndian.Uint64(p)))
	case KindF32:
		v = F32(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	case KindF64:
		v = F64(math.Float64frombits(binary.LittleEndian.Uint64(p)))
	default:
		v = None()
	}
	return v, 1 + width, nil
}

// AppendValue appends the tag and payload encoding of v to dst, using the
// same mixed byte order DecodeValue expects.
func AppendValue(dst []byte, v Value) []byte {
	dst = append(dst, v.kind.Tag())
	switch v.kind {
	case KindU8, KindI8:
		dst = append(dst, byte(v.bits))
	case KindU16, KindI16:
		dst = binary.BigEndian.AppendUint16(dst, uint16(v.bits))
	case KindU32, KindI32, KindF32:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(v.bits))
	case KindU64, KindI64, KindF64:
		dst = binary.LittleEndian.AppendUint64(dst, v.bits)
	}
	return dst
}

// Encode appends the byte encoding of inst to dst. Offset and Size are
// ignored.
func Encode(dst []byte, inst Instruction) []byte {
	switch {
	case inst.Op == OpHalt:
		return append(dst, byte(OpHalt))
	case inst.Op == OpLoad:
		dst = append(dst, byte(OpLoad), byte(inst.Regs[0]))
		return AppendValue(dst, inst.Value)
	case inst.Op.IsArith():
		return append(dst, byte(inst.Op), byte(inst.Regs[0]), byte(inst.Regs[1]), byte(inst.Regs[2]))
	default:
		raw := inst.Raw
		if raw <= byte(OpDiv) {
			raw = byte(OpIllegal)
		}
		return append(dst, raw)
	}
}
