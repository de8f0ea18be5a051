package vm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Bytecode file format:
// - Magic: "TRPL" (4 bytes)
// - Version: uint16
// - CodeLength: uint32
// - Code: raw program bytes
//
// The engine never sees this header. It only exists so tools can tell a
// file written by the assembler from arbitrary bytes; ReadProgram accepts
// headerless programs as well.

const (
	BytecodeMagic   = "TRPL"
	BytecodeVersion = 1
)

var (
	ErrInvalidMagic   = errors.New("invalid bytecode magic")
	ErrInvalidVersion = errors.New("unsupported bytecode version")
)

// SerializeProgram wraps program bytes in the bytecode file format.
func SerializeProgram(code []byte) ([]byte, error) {
	buf := new(bytes.Buffer)

	// Write magic
	buf.WriteString(BytecodeMagic)

	// Write version
	if err := binary.Write(buf, binary.LittleEndian, uint16(BytecodeVersion)); err != nil {
		return nil, fmt.Errorf("writing version: %w", err)
	}

	// Write code
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(code))); err != nil {
		return nil, fmt.Errorf("writing code length: %w", err)
	}
	buf.Write(code)

	return buf.Bytes(), nil
}

// DeserializeProgram unwraps a bytecode file and returns the program bytes.
func DeserializeProgram(data []byte) ([]byte, error) {
	buf := bytes.NewReader(data)

	// Read and verify magic
	magic := make([]byte, 4)
	if _, err := io.ReadFull(buf, magic); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if string(magic) != BytecodeMagic {
		return nil, ErrInvalidMagic
	}

	// Read and verify version
	var version uint16
	if err := binary.Read(buf, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != BytecodeVersion {
		return nil, ErrInvalidVersion
	}

	// Read code
	var codeLen uint32
	if err := binary.Read(buf, binary.LittleEndian, &codeLen); err != nil {
		return nil, fmt.Errorf("reading code length: %w", err)
	}
	if int64(codeLen) > int64(buf.Len()) {
		return nil, fmt.Errorf("reading code: %w", io.ErrUnexpectedEOF)
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(buf, code); err != nil {
		return nil, fmt.Errorf("reading code: %w", err)
	}

	return code, nil
}

// ReadProgram returns the program bytes of data, unwrapping the bytecode file
// header when present. Data without the magic is taken as a raw program.
func ReadProgram(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, []byte(BytecodeMagic)) {
		return DeserializeProgram(data)
	}
	return append([]byte(nil), data...), nil
}

// Disassemble converts program bytes back to assembly source code. Every
// byte is decoded, including a trailing one-byte instruction the engine
// would skip; a truncated tail is reported in a comment.
func Disassemble(code []byte) string {
	var buf bytes.Buffer

	buf.WriteString("; Disassembled from TRPL bytecode\n")
	buf.WriteString(fmt.Sprintf("; %d bytes\n\n", len(code)))

	for pc := 0; pc < len(code); {
		inst, err := Decode(code, pc)
		if err != nil {
			buf.WriteString(fmt.Sprintf("; %04d: truncated %s (% X)\n", pc, OpcodeFromByte(code[pc]), code[pc:]))
			break
		}
		buf.WriteString(fmt.Sprintf("%-28s ; %04d\n", inst, pc))
		pc += inst.Size
	}

	return buf.String()
}
