package vm

// Builder assembles a program byte by byte. It does no validation: register
// indices and raw bytes are written as given, which makes it handy for
// producing faulting programs in tests.
type Builder struct {
	code []byte
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Halt appends HALT.
func (b *Builder) Halt() *Builder {
	b.code = append(b.code, byte(OpHalt))
	return b
}

// Load appends LOAD dst, v.
func (b *Builder) Load(dst Register, v Value) *Builder {
	b.code = Encode(b.code, Instruction{Op: OpLoad, Regs: [3]Register{dst}, Value: v})
	return b
}

// Add appends ADD src1, src2, dst.
func (b *Builder) Add(src1, src2, dst Register) *Builder {
	return b.arith(OpAdd, src1, src2, dst)
}

// Sub appends SUB src1, src2, dst.
func (b *Builder) Sub(src1, src2, dst Register) *Builder {
	return b.arith(OpSub, src1, src2, dst)
}

// Mul appends MUL src1, src2, dst.
func (b *Builder) Mul(src1, src2, dst Register) *Builder {
	return b.arith(OpMul, src1, src2, dst)
}

// Div appends DIV src1, src2, dst.
func (b *Builder) Div(src1, src2, dst Register) *Builder {
	return b.arith(OpDiv, src1, src2, dst)
}

// Raw appends bytes verbatim.
func (b *Builder) Raw(p ...byte) *Builder {
	b.code = append(b.code, p...)
	return b
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int {
	return len(b.code)
}

// Bytes returns the assembled program.
func (b *Builder) Bytes() []byte {
	return b.code
}

func (b *Builder) arith(op Opcode, src1, src2, dst Register) *Builder {
	b.code = Encode(b.code, Instruction{Op: op, Regs: [3]Register{src1, src2, dst}})
	return b
}
