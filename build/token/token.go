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

// Package token defines the lexical tokens of SymIR.
package token

import "github.com/symir-lang/symir/build/source"

// Kind of a token.
type Kind int

// Token kinds.
const (
	End Kind = iota

	// Identifiers with sigils.
	GlobalID   // @foo
	LocalID    // %x
	SymID      // %?k or @?k
	BlockLabel // ^entry

	Ident     // bare identifier (field names, symbol kinds)
	IntLit    // 42, -3, 0x2a, 0o52, 0b101010
	FloatLit  // 1.5, 2e10
	StringLit // "message"

	IntType   // i32, i64, iN
	FloatType // f32, f64

	// Punctuation and operators.
	LBrace
	RBrace
	LParen
	RParen
	LBracket
	RBracket
	Colon
	Semicolon
	Comma
	Dot
	Plus
	Minus
	Star
	Slash
	Percent
	Amp
	Pipe
	Caret
	Tilde
	Equal
	EqEq
	NotEq
	Lt
	Le
	Gt
	Ge
	Shl  // <<
	Shr  // >>
	LShr // >>>

	// Keywords.
	KwStruct
	KwFun
	KwSym
	KwLet
	KwMut
	KwAssume
	KwRequire
	KwBr
	KwRet
	KwUnreachable
	KwIn
	KwSelect
	KwUndef
	KwAs
)

var kindStrings = map[Kind]string{
	End:           "end of input",
	GlobalID:      "global identifier",
	LocalID:       "local identifier",
	SymID:         "symbol identifier",
	BlockLabel:    "block label",
	Ident:         "identifier",
	IntLit:        "integer literal",
	FloatLit:      "float literal",
	StringLit:     "string literal",
	IntType:       "integer type",
	FloatType:     "float type",
	LBrace:        "'{'",
	RBrace:        "'}'",
	LParen:        "'('",
	RParen:        "')'",
	LBracket:      "'['",
	RBracket:      "']'",
	Colon:         "':'",
	Semicolon:     "';'",
	Comma:         "','",
	Dot:           "'.'",
	Plus:          "'+'",
	Minus:         "'-'",
	Star:          "'*'",
	Slash:         "'/'",
	Percent:       "'%'",
	Amp:           "'&'",
	Pipe:          "'|'",
	Caret:         "'^'",
	Tilde:         "'~'",
	Equal:         "'='",
	EqEq:          "'=='",
	NotEq:         "'!='",
	Lt:            "'<'",
	Le:            "'<='",
	Gt:            "'>'",
	Ge:            "'>='",
	Shl:           "'<<'",
	Shr:           "'>>'",
	LShr:          "'>>>'",
	KwStruct:      "'struct'",
	KwFun:         "'fun'",
	KwSym:         "'sym'",
	KwLet:         "'let'",
	KwMut:         "'mut'",
	KwAssume:      "'assume'",
	KwRequire:     "'require'",
	KwBr:          "'br'",
	KwRet:         "'ret'",
	KwUnreachable: "'unreachable'",
	KwIn:          "'in'",
	KwSelect:      "'select'",
	KwUndef:       "'undef'",
	KwAs:          "'as'",
}

// String returns a description of the kind suitable for error messages.
func (k Kind) String() string {
	if s, ok := kindStrings[k]; ok {
		return s
	}
	return "unknown token"
}

// Keywords maps bare identifier spellings to keyword kinds.
var Keywords = map[string]Kind{
	"struct":      KwStruct,
	"fun":         KwFun,
	"sym":         KwSym,
	"let":         KwLet,
	"mut":         KwMut,
	"assume":      KwAssume,
	"require":     KwRequire,
	"br":          KwBr,
	"ret":         KwRet,
	"unreachable": KwUnreachable,
	"in":          KwIn,
	"select":      KwSelect,
	"undef":       KwUndef,
	"as":          KwAs,
}

// Token is one lexical element with its source span.
type Token struct {
	Kind   Kind
	Lexeme string
	Span   source.Span
}
