// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package scanner implements a token scanner for Erlang-style source
// text. Its interface follows the standard library's text/scanner:
// Scan returns either a token class (a negative rune) or the literal
// rune for single-character tokens, TokenText returns the token's
// text, and Pos its starting position.
package scanner

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token classes returned by Scan. Single-character tokens are
// returned as themselves.
const (
	EOF rune = -(iota + 1)
	// Atom is an unquoted lowercase identifier, a keyword, or a
	// quoted atom; TokenText returns the unquoted text.
	Atom
	// Var is a variable: an identifier beginning with an uppercase
	// letter or underscore.
	Var
	// Int is an integer literal, possibly with a radix prefix.
	Int
	// Float is a floating point literal.
	Float
	// Char is a character literal such as $a; IntVal returns its
	// code point.
	Char
	// String is a string literal; TokenText returns the decoded
	// contents.
	String
	Arrow      // ->
	DArrow     // =>
	ColonEq    // :=
	ColonColon // ::
	DotDot     // ..
	Ellipsis   // ...
	LtLt       // <<
	GtGt       // >>
	Le         // =<
	Ge         // >=
	EqEq       // ==
	NotEq      // /=
	ExactEq    // =:=
	ExactNotEq // =/=
	PlusPlus   // ++
	MinusMinus // --
	BarBar     // ||
	LArrow     // <-
	BinGen     // <=
)

var tokenNames = map[rune]string{
	EOF:        "end of input",
	Atom:       "atom",
	Var:        "variable",
	Int:        "integer",
	Float:      "float",
	Char:       "character",
	String:     "string",
	Arrow:      `"->"`,
	DArrow:     `"=>"`,
	ColonEq:    `":="`,
	ColonColon: `"::"`,
	DotDot:     `".."`,
	Ellipsis:   `"..."`,
	LtLt:       `"<<"`,
	GtGt:       `">>"`,
	Le:         `"=<"`,
	Ge:         `">="`,
	EqEq:       `"=="`,
	NotEq:      `"/="`,
	ExactEq:    `"=:="`,
	ExactNotEq: `"=/="`,
	PlusPlus:   `"++"`,
	MinusMinus: `"--"`,
	BarBar:     `"||"`,
	LArrow:     `"<-"`,
	BinGen:     `"<="`,
}

// TokenString returns a printable name for a token or rune.
func TokenString(tok rune) string {
	if s, ok := tokenNames[tok]; ok {
		return s
	}
	return fmt.Sprintf("%q", string(tok))
}

// Position is a source position. Positions are valid if Line > 0.
type Position struct {
	Filename string
	Line     int
	Column   int
}

// IsValid tells whether the position is valid.
func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	s := p.Filename
	if !p.IsValid() {
		if s == "" {
			s = "<input>"
		}
		return s
	}
	if s != "" {
		s += ":"
	}
	return s + fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Scanner tokenizes a source buffer. Init must be called before Scan.
type Scanner struct {
	// Error, when non-nil, receives scan errors.
	Error func(pos Position, msg string)
	// ErrorCount counts errors encountered while scanning.
	ErrorCount int

	src  []byte
	off  int
	line int
	col  int

	tok     rune
	tokPos  Position
	tokText string
	ival    int64
	fval    float64
}

// Init readies the scanner to scan src, reporting positions against
// the given filename.
func (s *Scanner) Init(filename string, src []byte) {
	s.src = src
	s.off = 0
	s.line = 1
	s.col = 1
	s.tokPos = Position{Filename: filename}
	s.ErrorCount = 0
}

// Pos returns the position at which the current token starts.
func (s *Scanner) Pos() Position { return s.tokPos }

// TokenText returns the text of the current token. Quoted atoms and
// strings are returned with quotes stripped and escapes decoded.
func (s *Scanner) TokenText() string { return s.tokText }

// IntVal returns the value of the current Int or Char token.
func (s *Scanner) IntVal() int64 { return s.ival }

// FloatVal returns the value of the current Float token.
func (s *Scanner) FloatVal() float64 { return s.fval }

func (s *Scanner) error(pos Position, format string, args ...interface{}) {
	s.ErrorCount++
	if s.Error != nil {
		s.Error(pos, fmt.Sprintf(format, args...))
	}
}

func (s *Scanner) peek() rune {
	if s.off >= len(s.src) {
		return EOF
	}
	r, _ := utf8.DecodeRune(s.src[s.off:])
	return r
}

func (s *Scanner) peekAt(n int) rune {
	off := s.off
	var r rune
	for i := 0; i <= n; i++ {
		if off >= len(s.src) {
			return EOF
		}
		var w int
		r, w = utf8.DecodeRune(s.src[off:])
		off += w
	}
	return r
}

func (s *Scanner) next() rune {
	if s.off >= len(s.src) {
		return EOF
	}
	r, w := utf8.DecodeRune(s.src[s.off:])
	s.off += w
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

func (s *Scanner) skip() {
	for {
		switch s.peek() {
		case ' ', '\t', '\r', '\n':
			s.next()
		case '%':
			for s.peek() != '\n' && s.peek() != EOF {
				s.next()
			}
		default:
			return
		}
	}
}

// Scan advances to the next token and returns its class.
func (s *Scanner) Scan() rune {
	s.skip()
	s.tokPos = Position{Filename: s.tokPos.Filename, Line: s.line, Column: s.col}
	start := s.off
	r := s.next()
	switch {
	case r == EOF:
		s.tok = EOF
		s.tokText = ""
		return EOF
	case r == '\'':
		s.tok = Atom
		s.tokText = s.scanQuoted('\'')
		return Atom
	case r == '"':
		s.tok = String
		s.tokText = s.scanQuoted('"')
		return String
	case r == '$':
		s.tok = Char
		s.ival = int64(s.scanChar())
		s.tokText = string(s.src[start:s.off])
		return Char
	case isDigit(r):
		return s.scanNumber(start)
	case isLower(r):
		for isNameRune(s.peek()) {
			s.next()
		}
		s.tok = Atom
		s.tokText = string(s.src[start:s.off])
		return Atom
	case isUpper(r) || r == '_':
		for isNameRune(s.peek()) {
			s.next()
		}
		s.tok = Var
		s.tokText = string(s.src[start:s.off])
		return Var
	}
	s.tokText = string(s.src[start:s.off])
	switch r {
	case '-':
		switch s.peek() {
		case '>':
			s.next()
			return s.operator(Arrow, start)
		case '-':
			s.next()
			return s.operator(MinusMinus, start)
		}
	case '+':
		if s.peek() == '+' {
			s.next()
			return s.operator(PlusPlus, start)
		}
	case '=':
		switch s.peek() {
		case '>':
			s.next()
			return s.operator(DArrow, start)
		case '<':
			s.next()
			return s.operator(Le, start)
		case '=':
			s.next()
			return s.operator(EqEq, start)
		case ':':
			if s.peekAt(1) == '=' {
				s.next()
				s.next()
				return s.operator(ExactEq, start)
			}
		case '/':
			if s.peekAt(1) == '=' {
				s.next()
				s.next()
				return s.operator(ExactNotEq, start)
			}
		}
	case '<':
		switch s.peek() {
		case '<':
			s.next()
			return s.operator(LtLt, start)
		case '-':
			s.next()
			return s.operator(LArrow, start)
		case '=':
			s.next()
			return s.operator(BinGen, start)
		}
	case '>':
		switch s.peek() {
		case '>':
			s.next()
			return s.operator(GtGt, start)
		case '=':
			s.next()
			return s.operator(Ge, start)
		}
	case '/':
		if s.peek() == '=' {
			s.next()
			return s.operator(NotEq, start)
		}
	case ':':
		switch s.peek() {
		case ':':
			s.next()
			return s.operator(ColonColon, start)
		case '=':
			s.next()
			return s.operator(ColonEq, start)
		}
	case '|':
		if s.peek() == '|' {
			s.next()
			return s.operator(BarBar, start)
		}
	case '.':
		if s.peek() == '.' {
			s.next()
			if s.peek() == '.' {
				s.next()
				return s.operator(Ellipsis, start)
			}
			return s.operator(DotDot, start)
		}
	}
	s.tok = r
	return r
}

func (s *Scanner) operator(tok rune, start int) rune {
	s.tok = tok
	s.tokText = string(s.src[start:s.off])
	return tok
}

func (s *Scanner) scanNumber(start int) rune {
	s.scanDigits(10)
	switch s.peek() {
	case '#':
		text := strings.ReplaceAll(string(s.src[start:s.off]), "_", "")
		base, err := strconv.ParseInt(text, 10, 64)
		if err != nil || base < 2 || base > 36 {
			s.error(s.tokPos, "illegal radix %s", text)
			base = 10
		}
		s.next()
		dstart := s.off
		s.scanDigits(int(base))
		dtext := strings.ReplaceAll(string(s.src[dstart:s.off]), "_", "")
		v, err := strconv.ParseInt(dtext, int(base), 64)
		if err != nil {
			s.error(s.tokPos, "illegal integer %s", string(s.src[start:s.off]))
		}
		s.ival = v
		s.tok = Int
		s.tokText = string(s.src[start:s.off])
		return Int
	case '.':
		if !isDigit(s.peekAt(1)) {
			break
		}
		s.next()
		s.scanDigits(10)
		if r := s.peek(); r == 'e' || r == 'E' {
			s.next()
			if r := s.peek(); r == '+' || r == '-' {
				s.next()
			}
			s.scanDigits(10)
		}
		text := strings.ReplaceAll(string(s.src[start:s.off]), "_", "")
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			s.error(s.tokPos, "illegal float %s", text)
		}
		s.fval = v
		s.tok = Float
		s.tokText = string(s.src[start:s.off])
		return Float
	}
	text := strings.ReplaceAll(string(s.src[start:s.off]), "_", "")
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		s.error(s.tokPos, "illegal integer %s", text)
	}
	s.ival = v
	s.tok = Int
	s.tokText = string(s.src[start:s.off])
	return Int
}

func (s *Scanner) scanDigits(base int) {
	for {
		r := s.peek()
		if r == '_' && digitVal(s.peekAt(1)) < base {
			s.next()
			continue
		}
		if digitVal(r) >= base {
			return
		}
		s.next()
	}
}

func (s *Scanner) scanQuoted(quote rune) string {
	var b strings.Builder
	for {
		r := s.next()
		switch r {
		case EOF, '\n':
			s.error(s.tokPos, "unterminated %s", map[rune]string{'\'': "atom", '"': "string"}[quote])
			return b.String()
		case quote:
			return b.String()
		case '\\':
			b.WriteRune(s.scanEscape())
		default:
			b.WriteRune(r)
		}
	}
}

func (s *Scanner) scanChar() rune {
	r := s.next()
	switch r {
	case EOF:
		s.error(s.tokPos, "unterminated character literal")
		return 0
	case '\\':
		return s.scanEscape()
	}
	return r
}

func (s *Scanner) scanEscape() rune {
	r := s.next()
	switch r {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	case 'v':
		return '\v'
	case 's':
		return ' '
	case 'e':
		return 0x1b
	case 'd':
		return 0x7f
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := r - '0'
		for i := 0; i < 2 && digitVal(s.peek()) < 8; i++ {
			n = n*8 + rune(digitVal(s.next()))
		}
		return n
	case 'x':
		var n rune
		if s.peek() == '{' {
			s.next()
			for digitVal(s.peek()) < 16 {
				n = n*16 + rune(digitVal(s.next()))
			}
			if s.peek() == '}' {
				s.next()
			} else {
				s.error(s.tokPos, "unterminated \\x{ escape")
			}
			return n
		}
		for i := 0; i < 2 && digitVal(s.peek()) < 16; i++ {
			n = n*16 + rune(digitVal(s.next()))
		}
		return n
	case EOF:
		s.error(s.tokPos, "unterminated escape")
		return 0
	}
	return r
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }

func isLower(r rune) bool { return 'a' <= r && r <= 'z' }

func isUpper(r rune) bool { return 'A' <= r && r <= 'Z' }

func isNameRune(r rune) bool {
	return isLower(r) || isUpper(r) || isDigit(r) || r == '_' || r == '@' ||
		r != EOF && r >= utf8.RuneSelf && unicode.IsLetter(r)
}

func digitVal(r rune) int {
	switch {
	case '0' <= r && r <= '9':
		return int(r - '0')
	case 'a' <= r && r <= 'z':
		return int(r-'a') + 10
	case 'A' <= r && r <= 'Z':
		return int(r-'A') + 10
	}
	return 99
}
