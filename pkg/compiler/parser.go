package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coder3112/trplvm/pkg/vm"
)

// OperandType represents the type of an operand.
type OperandType uint8

const (
	OperandReg OperandType = iota
	OperandImm
	OperandInt
)

// String returns the string representation of an operand type.
func (t OperandType) String() string {
	switch t {
	case OperandReg:
		return "register"
	case OperandImm:
		return "typed immediate"
	case OperandInt:
		return "integer"
	default:
		return "unknown"
	}
}

// Operand represents an instruction operand.
type Operand struct {
	Type   OperandType
	RegNum uint8   // For registers
	Kind   vm.Kind // For typed immediates
	Text   string  // Literal text of an immediate or integer
}

// AsmInstruction represents a parsed assembly instruction. Directives keep
// their leading dot in Opcode.
type AsmInstruction struct {
	Opcode   string
	Operands []Operand
	Line     int
}

// AsmProgram represents a parsed assembly program.
type AsmProgram struct {
	Instructions []AsmInstruction
}

// Parser parses TRPL assembly source code.
type Parser struct {
	tokens  []Token
	pos     int
	program *AsmProgram
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	lexer := NewLexer(input)
	tokens := lexer.Tokenize()
	return &Parser{
		tokens: tokens,
		pos:    0,
		program: &AsmProgram{
			Instructions: []AsmInstruction{},
		},
	}
}

// Parse parses the entire input and returns the program.
func (p *Parser) Parse() (*AsmProgram, error) {
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]

		switch tok.Type {
		case TokenEOF:
			return p.program, nil

		case TokenNewline:
			p.pos++

		case TokenIdent, TokenDirective:
			inst, err := p.parseInstruction()
			if err != nil {
				return nil, err
			}
			p.program.Instructions = append(p.program.Instructions, inst)

		default:
			return nil, fmt.Errorf("line %d: expected instruction, got %s %q", tok.Line, tok.Type, tok.Value)
		}
	}

	return p.program, nil
}

func (p *Parser) parseInstruction() (AsmInstruction, error) {
	tok := p.tokens[p.pos]
	inst := AsmInstruction{
		Opcode:   tok.Value,
		Line:     tok.Line,
		Operands: []Operand{},
	}
	if tok.Type == TokenDirective {
		inst.Opcode = "." + tok.Value
	}
	p.pos++ // Consume opcode

	// Parse operands until newline or EOF
	expectOperand := true
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]

		if tok.Type == TokenNewline || tok.Type == TokenEOF {
			break
		}

		if tok.Type == TokenComma {
			if expectOperand {
				return inst, fmt.Errorf("line %d: unexpected comma", tok.Line)
			}
			expectOperand = true
			p.pos++
			continue
		}
		if !expectOperand {
			return inst, fmt.Errorf("line %d: missing comma before %q", tok.Line, tok.Value)
		}

		operand, err := p.parseOperand()
		if err != nil {
			return inst, err
		}
		inst.Operands = append(inst.Operands, operand)
		expectOperand = false
	}
	if expectOperand && len(inst.Operands) > 0 {
		return inst, fmt.Errorf("line %d: trailing comma", inst.Line)
	}

	return inst, nil
}

func (p *Parser) parseOperand() (Operand, error) {
	tok := p.tokens[p.pos]

	switch tok.Type {
	case TokenReg:
		regNum, err := p.parseRegisterNumber(tok.Value, 1)
		if err != nil {
			return Operand{}, fmt.Errorf("line %d: %w", tok.Line, err)
		}
		p.pos++
		return Operand{Type: OperandReg, RegNum: regNum}, nil

	case TokenInt:
		p.pos++
		return Operand{Type: OperandInt, Text: tok.Value}, nil

	case TokenIdent:
		kind, ok := vm.KindFromName(tok.Value)
		if !ok {
			return Operand{}, fmt.Errorf("line %d: unknown type %q", tok.Line, tok.Value)
		}
		p.pos++
		if kind == vm.KindNone {
			return Operand{Type: OperandImm, Kind: kind}, nil
		}
		return p.parseImmediate(kind, tok)

	default:
		return Operand{}, fmt.Errorf("line %d: unexpected token: %s", tok.Line, tok.Value)
	}
}

// parseImmediate reads the literal following a kind name.
func (p *Parser) parseImmediate(kind vm.Kind, kindTok Token) (Operand, error) {
	if p.pos >= len(p.tokens) {
		return Operand{}, fmt.Errorf("line %d: missing %s literal", kindTok.Line, kind)
	}
	tok := p.tokens[p.pos]
	switch tok.Type {
	case TokenInt:
	case TokenFloat:
		if !kind.IsFloat() {
			return Operand{}, fmt.Errorf("line %d: %s literal %q is not an integer", tok.Line, kind, tok.Value)
		}
	case TokenIdent:
		// inf and nan
		if !kind.IsFloat() {
			return Operand{}, fmt.Errorf("line %d: missing %s literal", tok.Line, kind)
		}
	default:
		return Operand{}, fmt.Errorf("line %d: missing %s literal", kindTok.Line, kind)
	}
	p.pos++
	return Operand{Type: OperandImm, Kind: kind, Text: tok.Value}, nil
}

func (p *Parser) parseRegisterNumber(value string, offset int) (uint8, error) {
	if len(value) <= offset {
		return 0, fmt.Errorf("invalid register: %s", value)
	}
	numStr := value[offset:]
	num, err := strconv.ParseUint(numStr, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid register number: %s", strings.ToUpper(value))
	}
	return uint8(num), nil
}
