// Copyright 2025 The SymIR Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lexer scans SymIR source text into tokens.
package lexer

import (
	"strings"

	"github.com/symir-lang/symir/build/source"
	"github.com/symir-lang/symir/build/token"
)

// Lexer scans one source buffer.
type Lexer struct {
	src  string
	i    int
	line int
	col  int
}

// New returns a lexer over the given source text.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// LexAll scans the whole buffer. The returned slice always ends with an
// End token unless an error is returned.
func (lx *Lexer) LexAll() ([]token.Token, error) {
	var out []token.Token
	for {
		t, err := lx.next()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if t.Kind == token.End {
			return out, nil
		}
	}
}

func (lx *Lexer) peek(k int) byte {
	if lx.i+k >= len(lx.src) {
		return 0
	}
	return lx.src[lx.i+k]
}

func (lx *Lexer) get() byte {
	c := lx.peek(0)
	if c == 0 {
		return c
	}
	lx.i++
	if c == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return c
}

func (lx *Lexer) pos() source.Pos {
	return source.Pos{Offset: lx.i, Line: lx.line, Col: lx.col}
}

func (lx *Lexer) skipSpaceAndComments() {
	for {
		for isSpace(lx.peek(0)) {
			lx.get()
		}
		if lx.peek(0) == '/' && lx.peek(1) == '/' {
			for lx.peek(0) != 0 && lx.peek(0) != '\n' {
				lx.get()
			}
			continue
		}
		if lx.peek(0) == '/' && lx.peek(1) == '*' {
			lx.get()
			lx.get()
			for lx.peek(0) != 0 {
				if lx.peek(0) == '*' && lx.peek(1) == '/' {
					lx.get()
					lx.get()
					break
				}
				lx.get()
			}
			continue
		}
		return
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (lx *Lexer) make(k token.Kind, lex string, b source.Pos) token.Token {
	return token.Token{Kind: k, Lexeme: lex, Span: source.NewSpan(b, lx.pos())}
}

func (lx *Lexer) next() (token.Token, error) {
	lx.skipSpaceAndComments()
	b := lx.pos()
	c := lx.peek(0)
	if c == 0 {
		return lx.make(token.End, "", b), nil
	}

	if c == '"' {
		return lx.stringLit(b)
	}

	// Sigiled identifiers: @name, %name, @?name, %?name.
	if (c == '@' || c == '%') && (isIdentStart(lx.peek(1)) || lx.peek(1) == '?') {
		lx.get()
		isSym := false
		if lx.peek(0) == '?' {
			isSym = true
			lx.get()
		}
		if !isIdentStart(lx.peek(0)) {
			return token.Token{}, token.Errorf(source.NewSpan(b, lx.pos()), "expected identifier after sigil")
		}
		name := lx.ident()
		kind := token.LocalID
		if isSym {
			kind = token.SymID
		} else if c == '@' {
			kind = token.GlobalID
		}
		sigil := string(c)
		if isSym {
			sigil += "?"
		}
		return lx.make(kind, sigil+name, b), nil
	}

	if c == '^' {
		if isIdentStart(lx.peek(1)) {
			lx.get()
			return lx.make(token.BlockLabel, "^"+lx.ident(), b), nil
		}
		lx.get()
		return lx.make(token.Caret, "^", b), nil
	}

	// A '-' immediately followed by a digit starts a negative literal;
	// expressions join atoms with explicit '+'/'-' tokens otherwise.
	if isDigit(c) || (c == '-' && isDigit(lx.peek(1))) {
		return lx.number(b)
	}

	if t, ok := lx.operator(b); ok {
		return t, nil
	}

	if isIdentStart(c) {
		name := lx.ident()
		if kw, ok := token.Keywords[name]; ok {
			return lx.make(kw, name, b), nil
		}
		if kind, ok := typeName(name); ok {
			return lx.make(kind, name, b), nil
		}
		return lx.make(token.Ident, name, b), nil
	}

	return token.Token{}, token.Errorf(source.NewSpan(b, lx.pos()), "unexpected character: %q", string(c))
}

func (lx *Lexer) ident() string {
	var sb strings.Builder
	for isIdentCont(lx.peek(0)) {
		sb.WriteByte(lx.get())
	}
	return sb.String()
}

func (lx *Lexer) stringLit(b source.Pos) (token.Token, error) {
	lx.get() // opening quote
	var val strings.Builder
	for {
		ch := lx.get()
		if ch == 0 || ch == '\n' {
			return token.Token{}, token.Errorf(source.NewSpan(b, lx.pos()), "unterminated string literal")
		}
		if ch == '"' {
			return lx.make(token.StringLit, val.String(), b), nil
		}
		if ch != '\\' {
			val.WriteByte(ch)
			continue
		}
		switch esc := lx.get(); esc {
		case 'n':
			val.WriteByte('\n')
		case 't':
			val.WriteByte('\t')
		case 'r':
			val.WriteByte('\r')
		default:
			val.WriteByte(esc)
		}
	}
}

func (lx *Lexer) number(b source.Pos) (token.Token, error) {
	var num strings.Builder
	if lx.peek(0) == '-' {
		num.WriteByte(lx.get())
	}
	if lx.peek(0) == '0' && (lx.peek(1) == 'x' || lx.peek(1) == 'X') {
		num.WriteByte(lx.get())
		num.WriteByte(lx.get())
		for isHexDigit(lx.peek(0)) {
			num.WriteByte(lx.get())
		}
		return lx.make(token.IntLit, num.String(), b), nil
	}
	if lx.peek(0) == '0' && (lx.peek(1) == 'o' || lx.peek(1) == 'O' || lx.peek(1) == 'b' || lx.peek(1) == 'B') {
		num.WriteByte(lx.get())
		num.WriteByte(lx.get())
		for isDigit(lx.peek(0)) {
			num.WriteByte(lx.get())
		}
		return lx.make(token.IntLit, num.String(), b), nil
	}
	for isDigit(lx.peek(0)) {
		num.WriteByte(lx.get())
	}
	isFloat := false
	// Only a '.' followed by a digit starts a fraction, so that
	// field accesses after an index ("%a[0].f") keep their dot.
	if lx.peek(0) == '.' && isDigit(lx.peek(1)) {
		isFloat = true
		num.WriteByte(lx.get())
		for isDigit(lx.peek(0)) {
			num.WriteByte(lx.get())
		}
	}
	if lx.peek(0) == 'e' || lx.peek(0) == 'E' {
		k := 1
		if lx.peek(1) == '+' || lx.peek(1) == '-' {
			k = 2
		}
		if isDigit(lx.peek(k)) {
			isFloat = true
			for k > 0 {
				num.WriteByte(lx.get())
				k--
			}
			for isDigit(lx.peek(0)) {
				num.WriteByte(lx.get())
			}
		}
	}
	if isFloat {
		return lx.make(token.FloatLit, num.String(), b), nil
	}
	return lx.make(token.IntLit, num.String(), b), nil
}

func (lx *Lexer) operator(b source.Pos) (token.Token, bool) {
	rest := lx.src[lx.i:]
	three := func(k token.Kind, s string) (token.Token, bool) {
		for range s {
			lx.get()
		}
		return lx.make(k, s, b), true
	}
	switch {
	case strings.HasPrefix(rest, ">>>"):
		return three(token.LShr, ">>>")
	case strings.HasPrefix(rest, "<<"):
		return three(token.Shl, "<<")
	case strings.HasPrefix(rest, ">>"):
		return three(token.Shr, ">>")
	case strings.HasPrefix(rest, "=="):
		return three(token.EqEq, "==")
	case strings.HasPrefix(rest, "!="):
		return three(token.NotEq, "!=")
	case strings.HasPrefix(rest, "<="):
		return three(token.Le, "<=")
	case strings.HasPrefix(rest, ">="):
		return three(token.Ge, ">=")
	}

	singles := map[byte]token.Kind{
		'{': token.LBrace, '}': token.RBrace,
		'(': token.LParen, ')': token.RParen,
		'[': token.LBracket, ']': token.RBracket,
		':': token.Colon, ';': token.Semicolon,
		',': token.Comma, '.': token.Dot,
		'+': token.Plus, '-': token.Minus,
		'*': token.Star, '/': token.Slash, '%': token.Percent,
		'&': token.Amp, '|': token.Pipe, '~': token.Tilde,
		'=': token.Equal, '<': token.Lt, '>': token.Gt,
	}
	if k, ok := singles[lx.peek(0)]; ok {
		c := lx.get()
		return lx.make(k, string(c), b), true
	}
	return token.Token{}, false
}

// typeName recognises iN, f32 and f64 spellings.
func typeName(name string) (token.Kind, bool) {
	if name == "f32" || name == "f64" {
		return token.FloatType, true
	}
	if len(name) >= 2 && name[0] == 'i' {
		for k := 1; k < len(name); k++ {
			if !isDigit(name[k]) {
				return 0, false
			}
		}
		return token.IntType, true
	}
	return 0, false
}
