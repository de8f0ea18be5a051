package compiler

import (
	"strings"
	"unicode"
)

// TokenType represents the type of a token.
type TokenType uint8

const (
	TokenEOF TokenType = iota
	TokenNewline
	TokenIdent     // Mnemonics and kind names
	TokenInt       // Integer literals, decimal or 0x hex
	TokenFloat     // Float literals
	TokenComma     // ,
	TokenDirective // .byte
	TokenReg       // R0-R31
	TokenInvalid
)

// String returns the string representation of a token type.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenNewline:
		return "NEWLINE"
	case TokenIdent:
		return "IDENT"
	case TokenInt:
		return "INT"
	case TokenFloat:
		return "FLOAT"
	case TokenComma:
		return "COMMA"
	case TokenDirective:
		return "DIRECTIVE"
	case TokenReg:
		return "REG"
	case TokenInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
	Line  int
}

// Lexer tokenizes TRPL assembly source code.
type Lexer struct {
	input  string
	pos    int
	line   int
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		pos:    0,
		line:   1,
		tokens: []Token{},
	}
}

// Tokenize tokenizes the entire input and returns the tokens.
func (l *Lexer) Tokenize() []Token {
	for l.pos < len(l.input) {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			break
		}

		ch := l.input[l.pos]

		switch {
		case ch == '\n':
			l.tokens = append(l.tokens, Token{Type: TokenNewline, Value: "\n", Line: l.line})
			l.line++
			l.pos++

		case ch == ';' || ch == '#':
			// Comment - skip to end of line
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}

		case ch == ',':
			l.tokens = append(l.tokens, Token{Type: TokenComma, Value: ",", Line: l.line})
			l.pos++

		case ch == '.':
			l.pos++
			start := l.pos
			l.scanWord()
			l.tokens = append(l.tokens, Token{Type: TokenDirective, Value: strings.ToLower(l.input[start:l.pos]), Line: l.line})

		case ch == '-' || ch == '+' || unicode.IsDigit(rune(ch)):
			l.scanNumber()

		case unicode.IsLetter(rune(ch)) || ch == '_':
			l.scanIdentOrRegister()

		default:
			l.tokens = append(l.tokens, Token{Type: TokenInvalid, Value: string(ch), Line: l.line})
			l.pos++
		}
	}

	l.tokens = append(l.tokens, Token{Type: TokenEOF, Value: "", Line: l.line})
	return l.tokens
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == ' ' || ch == '\t' || ch == '\r' {
			l.pos++
		} else {
			break
		}
	}
}

func (l *Lexer) scanWord() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if unicode.IsLetter(rune(ch)) || unicode.IsDigit(rune(ch)) || ch == '_' {
			l.pos++
		} else {
			break
		}
	}
}

func (l *Lexer) scanNumber() {
	start := l.pos
	isFloat := false

	// Handle sign
	if l.input[l.pos] == '-' || l.input[l.pos] == '+' {
		l.pos++
	}

	// Hex literal
	if l.pos+1 < len(l.input) && l.input[l.pos] == '0' && (l.input[l.pos+1] == 'x' || l.input[l.pos+1] == 'X') {
		l.pos += 2
		for l.pos < len(l.input) && isHexDigit(l.input[l.pos]) {
			l.pos++
		}
		l.tokens = append(l.tokens, Token{Type: TokenInt, Value: l.input[start:l.pos], Line: l.line})
		return
	}

	// Words after a sign, e.g. -inf
	if l.pos < len(l.input) && unicode.IsLetter(rune(l.input[l.pos])) {
		l.scanWord()
		l.tokens = append(l.tokens, Token{Type: TokenFloat, Value: l.input[start:l.pos], Line: l.line})
		return
	}

	// Scan digits
	l.scanDigits()

	// Check for decimal point
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		isFloat = true
		l.pos++
		l.scanDigits()
	}

	// Exponent
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		isFloat = true
		l.pos++
		if l.pos < len(l.input) && (l.input[l.pos] == '-' || l.input[l.pos] == '+') {
			l.pos++
		}
		l.scanDigits()
	}

	value := l.input[start:l.pos]

	if isFloat {
		l.tokens = append(l.tokens, Token{Type: TokenFloat, Value: value, Line: l.line})
	} else {
		l.tokens = append(l.tokens, Token{Type: TokenInt, Value: value, Line: l.line})
	}
}

func (l *Lexer) scanDigits() {
	for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
		l.pos++
	}
}

func (l *Lexer) scanIdentOrRegister() {
	start := l.pos
	l.scanWord()

	value := l.input[start:l.pos]

	// Check if it's a register
	tokenType := l.classifyIdentOrRegister(value)
	l.tokens = append(l.tokens, Token{Type: tokenType, Value: value, Line: l.line})
}

func (l *Lexer) classifyIdentOrRegister(value string) TokenType {
	if len(value) < 2 || (value[0] != 'R' && value[0] != 'r') {
		return TokenIdent
	}
	for _, ch := range value[1:] {
		if !unicode.IsDigit(ch) {
			return TokenIdent
		}
	}
	return TokenReg
}

func isHexDigit(ch byte) bool {
	return unicode.IsDigit(rune(ch)) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
