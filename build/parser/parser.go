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

// Package parser builds the SymIR syntax tree from tokens.
//
// The grammar is LL(1) except for the distinction between an lvalue
// read, a coefficient, and a cast source, which is resolved by parsing
// the full lvalue first and inspecting the following token.
//
// Node identifiers are assigned from a monotonic counter while parsing,
// so that later passes can attach side tables to nodes without keeping
// pointers into the tree.
package parser

import (
	"github.com/symir-lang/symir/build/ir"
	"github.com/symir-lang/symir/build/lexer"
	"github.com/symir-lang/symir/build/source"
	"github.com/symir-lang/symir/build/token"
)

// Parser consumes a token stream.
type Parser struct {
	toks   []token.Token
	idx    int
	nextID ir.NodeID
}

// New returns a parser over a token stream ending with an End token.
func New(toks []token.Token) *Parser {
	return &Parser{toks: toks}
}

// Parse lexes and parses a whole source buffer.
func Parse(src string) (*ir.Program, error) {
	toks, err := lexer.New(src).LexAll()
	if err != nil {
		return nil, err
	}
	return New(toks).Program()
}

// Program parses a complete compilation unit.
func (p *Parser) Program() (*ir.Program, error) {
	prog := &ir.Program{}
	begin := p.peek(0).Span.Begin
	for !p.is(token.End) {
		switch {
		case p.is(token.KwStruct):
			sd, err := p.structDecl()
			if err != nil {
				return nil, err
			}
			prog.Structs = append(prog.Structs, sd)
		case p.is(token.KwFun):
			fd, err := p.funDecl()
			if err != nil {
				return nil, err
			}
			prog.Funs = append(prog.Funs, fd)
		default:
			return nil, p.errorHere("expected struct or function declaration")
		}
	}
	prog.Src = source.NewSpan(begin, p.prevEnd())
	return prog, nil
}

func (p *Parser) id() ir.NodeID {
	p.nextID++
	return p.nextID
}

func (p *Parser) peek(k int) token.Token {
	if p.idx+k >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.idx+k]
}

func (p *Parser) is(k token.Kind) bool { return p.peek(0).Kind == k }

func (p *Parser) consume(k token.Kind) (token.Token, error) {
	if p.is(k) {
		t := p.toks[p.idx]
		p.idx++
		return t, nil
	}
	return token.Token{}, token.Errorf(p.peek(0).Span, "expected %s, got %q", k, p.peek(0).Lexeme)
}

func (p *Parser) tryConsume(k token.Kind) bool {
	if p.is(k) {
		p.idx++
		return true
	}
	return false
}

func (p *Parser) errorHere(msg string) error {
	return token.Errorf(p.peek(0).Span, "%s", msg)
}

func (p *Parser) prevEnd() source.Pos {
	if p.idx == 0 {
		return p.toks[0].Span.Begin
	}
	return p.toks[p.idx-1].Span.End
}

func (p *Parser) spanFrom(b source.Pos) source.Span {
	return source.NewSpan(b, p.prevEnd())
}

// ----------------------------------------------------------------------------
// Identifiers and types.

func (p *Parser) globalID() (ir.GlobalID, error) {
	t, err := p.consume(token.GlobalID)
	if err != nil {
		return ir.GlobalID{}, err
	}
	return ir.GlobalID{Name: t.Lexeme, Src: t.Span}, nil
}

func (p *Parser) localID() (ir.LocalID, error) {
	t, err := p.consume(token.LocalID)
	if err != nil {
		return ir.LocalID{}, err
	}
	return ir.LocalID{Name: t.Lexeme, Src: t.Span}, nil
}

func (p *Parser) symID() (ir.SymID, error) {
	t, err := p.consume(token.SymID)
	if err != nil {
		return ir.SymID{}, err
	}
	return ir.SymID{Name: t.Lexeme, Src: t.Span}, nil
}

func (p *Parser) blockLabel() (ir.Label, error) {
	t, err := p.consume(token.BlockLabel)
	if err != nil {
		return ir.Label{}, err
	}
	return ir.Label{Name: t.Lexeme, Src: t.Span}, nil
}

func (p *Parser) parseType() (ir.Type, error) {
	b := p.peek(0).Span.Begin
	switch {
	case p.is(token.IntType):
		t, _ := p.consume(token.IntType)
		bits, err := lexer.ParseInt(t.Lexeme[1:])
		if err != nil || bits < 1 || bits > 64 {
			return nil, token.Errorf(t.Span, "integer type width must be between 1 and 64: %s", t.Lexeme)
		}
		it := &ir.IntType{Src: p.spanFrom(b)}
		switch bits {
		case 32:
			it.Kind = ir.I32
		case 64:
			it.Kind = ir.I64
		default:
			it.Kind = ir.ICustom
			it.Bits = uint32(bits)
		}
		return it, nil
	case p.is(token.FloatType):
		t, _ := p.consume(token.FloatType)
		kind := ir.F32
		if t.Lexeme == "f64" {
			kind = ir.F64
		}
		return &ir.FloatType{Kind: kind, Src: p.spanFrom(b)}, nil
	case p.is(token.GlobalID):
		name, err := p.globalID()
		if err != nil {
			return nil, err
		}
		return &ir.StructType{Name: name, Src: p.spanFrom(b)}, nil
	case p.tryConsume(token.LBracket):
		t, err := p.consume(token.IntLit)
		if err != nil {
			return nil, err
		}
		size, err := lexer.ParseInt(t.Lexeme)
		if err != nil || size < 0 {
			return nil, token.Errorf(t.Span, "invalid array size %q", t.Lexeme)
		}
		if _, err := p.consume(token.RBracket); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &ir.ArrayType{Size: uint64(size), Elem: elem, Src: p.spanFrom(b)}, nil
	}
	return nil, p.errorHere("expected a type (iN, f32, f64, array type, or struct type @Name)")
}

// ----------------------------------------------------------------------------
// Declarations.

func (p *Parser) structDecl() (ir.StructDecl, error) {
	b := p.peek(0).Span.Begin
	p.consume(token.KwStruct)
	name, err := p.globalID()
	if err != nil {
		return ir.StructDecl{}, err
	}
	if _, err := p.consume(token.LBrace); err != nil {
		return ir.StructDecl{}, err
	}
	var fields []ir.FieldDecl
	for !p.is(token.RBrace) {
		fname, err := p.consume(token.Ident)
		if err != nil {
			return ir.StructDecl{}, err
		}
		if _, err := p.consume(token.Colon); err != nil {
			return ir.StructDecl{}, err
		}
		ty, err := p.parseType()
		if err != nil {
			return ir.StructDecl{}, err
		}
		if _, err := p.consume(token.Semicolon); err != nil {
			return ir.StructDecl{}, err
		}
		fields = append(fields, ir.FieldDecl{
			Name: fname.Lexeme,
			Type: ty,
			Src:  source.NewSpan(fname.Span.Begin, p.prevEnd()),
		})
	}
	p.consume(token.RBrace)
	return ir.StructDecl{Name: name, Fields: fields, Src: p.spanFrom(b)}, nil
}

func (p *Parser) funDecl() (ir.FunDecl, error) {
	b := p.peek(0).Span.Begin
	p.consume(token.KwFun)
	name, err := p.globalID()
	if err != nil {
		return ir.FunDecl{}, err
	}
	if _, err := p.consume(token.LParen); err != nil {
		return ir.FunDecl{}, err
	}
	params, err := p.paramList()
	if err != nil {
		return ir.FunDecl{}, err
	}
	if _, err := p.consume(token.RParen); err != nil {
		return ir.FunDecl{}, err
	}
	if _, err := p.consume(token.Colon); err != nil {
		return ir.FunDecl{}, err
	}
	ret, err := p.parseType()
	if err != nil {
		return ir.FunDecl{}, err
	}
	if _, err := p.consume(token.LBrace); err != nil {
		return ir.FunDecl{}, err
	}

	var syms []ir.SymDecl
	for p.is(token.KwSym) {
		sd, err := p.symDecl()
		if err != nil {
			return ir.FunDecl{}, err
		}
		syms = append(syms, sd)
	}
	var lets []ir.LetDecl
	for p.is(token.KwLet) {
		ld, err := p.letDecl()
		if err != nil {
			return ir.FunDecl{}, err
		}
		lets = append(lets, ld)
	}
	var blocks []ir.Block
	for !p.is(token.RBrace) {
		blk, err := p.block()
		if err != nil {
			return ir.FunDecl{}, err
		}
		blocks = append(blocks, blk)
	}
	p.consume(token.RBrace)
	return ir.FunDecl{
		Name:    name,
		Params:  params,
		RetType: ret,
		Syms:    syms,
		Lets:    lets,
		Blocks:  blocks,
		Src:     p.spanFrom(b),
	}, nil
}

func (p *Parser) paramList() ([]ir.ParamDecl, error) {
	var params []ir.ParamDecl
	if p.is(token.RParen) {
		return params, nil
	}
	for {
		b := p.peek(0).Span.Begin
		id, err := p.localID()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.Colon); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, ir.ParamDecl{Name: id, Type: ty, Src: p.spanFrom(b)})
		if !p.tryConsume(token.Comma) {
			return params, nil
		}
	}
}

func (p *Parser) symKind() (ir.SymKind, error) {
	t, err := p.consume(token.Ident)
	if err != nil {
		return 0, err
	}
	switch t.Lexeme {
	case "value":
		return ir.SymValue, nil
	case "coef":
		return ir.SymCoef, nil
	case "index":
		return ir.SymIndex, nil
	}
	return 0, token.Errorf(t.Span, "unknown symbol kind: %s", t.Lexeme)
}

func (p *Parser) optionalDomain() (ir.Domain, error) {
	if !p.is(token.KwIn) {
		return nil, nil
	}
	b := p.peek(0).Span.Begin
	p.consume(token.KwIn)
	if p.tryConsume(token.LBracket) {
		loT, err := p.consume(token.IntLit)
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.Comma); err != nil {
			return nil, err
		}
		hiT, err := p.consume(token.IntLit)
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RBracket); err != nil {
			return nil, err
		}
		lo, err := lexer.ParseInt(loT.Lexeme)
		if err != nil {
			return nil, token.Errorf(loT.Span, "%s", err)
		}
		hi, err := lexer.ParseInt(hiT.Lexeme)
		if err != nil {
			return nil, token.Errorf(hiT.Span, "%s", err)
		}
		return &ir.DomainInterval{Lo: lo, Hi: hi, Src: p.spanFrom(b)}, nil
	}
	if p.tryConsume(token.LBrace) {
		ds := &ir.DomainSet{}
		if !p.is(token.RBrace) {
			for {
				v, err := p.consume(token.IntLit)
				if err != nil {
					return nil, err
				}
				val, err := lexer.ParseInt(v.Lexeme)
				if err != nil {
					return nil, token.Errorf(v.Span, "%s", err)
				}
				ds.Values = append(ds.Values, val)
				if !p.tryConsume(token.Comma) {
					break
				}
			}
		}
		if _, err := p.consume(token.RBrace); err != nil {
			return nil, err
		}
		ds.Src = p.spanFrom(b)
		return ds, nil
	}
	return nil, p.errorHere("expected domain interval [lo,hi] or set {a,b,...} after 'in'")
}

func (p *Parser) symDecl() (ir.SymDecl, error) {
	b := p.peek(0).Span.Begin
	p.consume(token.KwSym)
	sid, err := p.symID()
	if err != nil {
		return ir.SymDecl{}, err
	}
	if _, err := p.consume(token.Colon); err != nil {
		return ir.SymDecl{}, err
	}
	kind, err := p.symKind()
	if err != nil {
		return ir.SymDecl{}, err
	}
	ty, err := p.parseType()
	if err != nil {
		return ir.SymDecl{}, err
	}
	dom, err := p.optionalDomain()
	if err != nil {
		return ir.SymDecl{}, err
	}
	if _, err := p.consume(token.Semicolon); err != nil {
		return ir.SymDecl{}, err
	}
	return ir.SymDecl{Name: sid, Kind: kind, Type: ty, Domain: dom, Src: p.spanFrom(b)}, nil
}

func (p *Parser) letDecl() (ir.LetDecl, error) {
	b := p.peek(0).Span.Begin
	p.consume(token.KwLet)
	isMut := p.tryConsume(token.KwMut)
	id, err := p.localID()
	if err != nil {
		return ir.LetDecl{}, err
	}
	if _, err := p.consume(token.Colon); err != nil {
		return ir.LetDecl{}, err
	}
	ty, err := p.parseType()
	if err != nil {
		return ir.LetDecl{}, err
	}
	var init ir.InitVal
	if p.tryConsume(token.Equal) {
		init, err = p.initVal()
		if err != nil {
			return ir.LetDecl{}, err
		}
	}
	if _, err := p.consume(token.Semicolon); err != nil {
		return ir.LetDecl{}, err
	}
	return ir.LetDecl{Mutable: isMut, Name: id, Type: ty, Init: init, Src: p.spanFrom(b)}, nil
}

func (p *Parser) initVal() (ir.InitVal, error) {
	b := p.peek(0).Span.Begin
	if p.tryConsume(token.LBrace) {
		if p.is(token.RBrace) {
			return nil, p.errorHere("empty brace initializers '{}' are disallowed")
		}
		var elems []ir.InitVal
		for {
			e, err := p.initVal()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if !p.tryConsume(token.Comma) {
				break
			}
		}
		if _, err := p.consume(token.RBrace); err != nil {
			return nil, err
		}
		return &ir.AggregateInit{Elems: elems, Src: p.spanFrom(b)}, nil
	}
	switch {
	case p.is(token.KwUndef):
		p.consume(token.KwUndef)
		return &ir.UndefInit{Src: p.spanFrom(b)}, nil
	case p.is(token.IntLit):
		return p.intLit()
	case p.is(token.FloatLit):
		return p.floatLit()
	case p.is(token.SymID):
		return p.symID()
	case p.is(token.LocalID):
		return p.localID()
	}
	return nil, p.errorHere("expected initializer: literal, %?sym, %local, 'undef', or '{...}'")
}

func (p *Parser) intLit() (*ir.IntLit, error) {
	t, err := p.consume(token.IntLit)
	if err != nil {
		return nil, err
	}
	v, err := lexer.ParseInt(t.Lexeme)
	if err != nil {
		return nil, token.Errorf(t.Span, "%s", err)
	}
	return &ir.IntLit{ID: p.id(), Value: v, Src: t.Span}, nil
}

func (p *Parser) floatLit() (*ir.FloatLit, error) {
	t, err := p.consume(token.FloatLit)
	if err != nil {
		return nil, err
	}
	v, err := lexer.ParseFloat(t.Lexeme)
	if err != nil {
		return nil, token.Errorf(t.Span, "%s", err)
	}
	return &ir.FloatLit{ID: p.id(), Value: v, Src: t.Span}, nil
}

// ----------------------------------------------------------------------------
// Blocks, instructions, terminators.

func (p *Parser) block() (ir.Block, error) {
	b := p.peek(0).Span.Begin
	lab, err := p.blockLabel()
	if err != nil {
		return ir.Block{}, err
	}
	if _, err := p.consume(token.Colon); err != nil {
		return ir.Block{}, err
	}
	var instrs []ir.Instr
	for p.isStartOfInstr() {
		ins, err := p.instr()
		if err != nil {
			return ir.Block{}, err
		}
		instrs = append(instrs, ins)
	}
	term, err := p.terminator()
	if err != nil {
		return ir.Block{}, err
	}
	return ir.Block{Label: lab, Instrs: instrs, Term: term, Src: p.spanFrom(b)}, nil
}

func (p *Parser) isStartOfInstr() bool {
	return p.is(token.LocalID) || p.is(token.KwAssume) || p.is(token.KwRequire)
}

func (p *Parser) instr() (ir.Instr, error) {
	b := p.peek(0).Span.Begin
	switch {
	case p.tryConsume(token.KwAssume):
		c, err := p.cond()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.Semicolon); err != nil {
			return nil, err
		}
		return &ir.AssumeInstr{Cond: c, Src: p.spanFrom(b)}, nil
	case p.tryConsume(token.KwRequire):
		c, err := p.cond()
		if err != nil {
			return nil, err
		}
		instr := &ir.RequireInstr{Cond: c}
		if p.tryConsume(token.Comma) {
			s, err := p.consume(token.StringLit)
			if err != nil {
				return nil, err
			}
			instr.Message, instr.HasMsg = s.Lexeme, true
		}
		if _, err := p.consume(token.Semicolon); err != nil {
			return nil, err
		}
		instr.Src = p.spanFrom(b)
		return instr, nil
	}
	lhs, err := p.lvalue()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.Equal); err != nil {
		return nil, err
	}
	rhs, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.Semicolon); err != nil {
		return nil, err
	}
	return &ir.AssignInstr{LHS: lhs, RHS: rhs, Src: p.spanFrom(b)}, nil
}

func (p *Parser) terminator() (ir.Terminator, error) {
	b := p.peek(0).Span.Begin
	switch {
	case p.tryConsume(token.KwBr):
		if p.is(token.BlockLabel) {
			dest, err := p.blockLabel()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.Semicolon); err != nil {
				return nil, err
			}
			return &ir.BrTerm{Dest: dest, Src: p.spanFrom(b)}, nil
		}
		c, err := p.cond()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.Comma); err != nil {
			return nil, err
		}
		then, err := p.blockLabel()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.Comma); err != nil {
			return nil, err
		}
		els, err := p.blockLabel()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.Semicolon); err != nil {
			return nil, err
		}
		return &ir.BrTerm{Cond: c, Then: then, Else: els, Src: p.spanFrom(b)}, nil
	case p.tryConsume(token.KwRet):
		var val *ir.Expr
		if !p.is(token.Semicolon) {
			var err error
			val, err = p.expr()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.consume(token.Semicolon); err != nil {
			return nil, err
		}
		return &ir.RetTerm{Value: val, Src: p.spanFrom(b)}, nil
	case p.tryConsume(token.KwUnreachable):
		if _, err := p.consume(token.Semicolon); err != nil {
			return nil, err
		}
		return &ir.UnreachableTerm{Src: p.spanFrom(b)}, nil
	}
	return nil, p.errorHere("expected terminator: br/ret/unreachable")
}

// ----------------------------------------------------------------------------
// LValues, coefficients, expressions.

func (p *Parser) lvalue() (*ir.LValue, error) {
	b := p.peek(0).Span.Begin
	base, err := p.localID()
	if err != nil {
		return nil, err
	}
	var accs []ir.Access
	for {
		if p.tryConsume(token.LBracket) {
			ib := p.prevEnd()
			idx, err := p.index()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.RBracket); err != nil {
				return nil, err
			}
			accs = append(accs, &ir.AccessIndex{Index: idx, Src: source.NewSpan(ib, p.prevEnd())})
			continue
		}
		if p.tryConsume(token.Dot) {
			fld, err := p.consume(token.Ident)
			if err != nil {
				return nil, err
			}
			accs = append(accs, &ir.AccessField{Field: fld.Lexeme, Src: fld.Span})
			continue
		}
		break
	}
	return &ir.LValue{ID: p.id(), Base: base, Accesses: accs, Src: p.spanFrom(b)}, nil
}

func (p *Parser) index() (ir.Index, error) {
	switch {
	case p.is(token.IntLit):
		return p.intLit()
	case p.is(token.LocalID):
		return p.localID()
	case p.is(token.SymID):
		return p.symID()
	}
	return nil, p.errorHere("expected index: literal, %local, or %?sym")
}

func (p *Parser) coef() (ir.Coef, error) {
	switch {
	case p.is(token.IntLit):
		return p.intLit()
	case p.is(token.FloatLit):
		return p.floatLit()
	case p.is(token.LocalID):
		return p.localID()
	case p.is(token.SymID):
		return p.symID()
	}
	return nil, p.errorHere("expected coefficient: literal, %local, or %?sym")
}

func (p *Parser) cond() (*ir.Cond, error) {
	b := p.peek(0).Span.Begin
	lhs, err := p.expr()
	if err != nil {
		return nil, err
	}
	op, err := p.relOp()
	if err != nil {
		return nil, err
	}
	rhs, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &ir.Cond{ID: p.id(), LHS: lhs, Op: op, RHS: rhs, Src: p.spanFrom(b)}, nil
}

func (p *Parser) relOp() (ir.RelOp, error) {
	switch {
	case p.tryConsume(token.EqEq):
		return ir.Eq, nil
	case p.tryConsume(token.NotEq):
		return ir.Ne, nil
	case p.tryConsume(token.Le):
		return ir.Le, nil
	case p.tryConsume(token.Ge):
		return ir.Ge, nil
	case p.tryConsume(token.Lt):
		return ir.Lt, nil
	case p.tryConsume(token.Gt):
		return ir.Gt, nil
	}
	return 0, p.errorHere("expected relational operator (==, !=, <, <=, >, >=)")
}

func (p *Parser) expr() (*ir.Expr, error) {
	b := p.peek(0).Span.Begin
	first, err := p.atom()
	if err != nil {
		return nil, err
	}
	e := &ir.Expr{ID: p.id(), First: first}
	for p.is(token.Plus) || p.is(token.Minus) {
		tb := p.peek(0).Span.Begin
		op := ir.Plus
		if p.is(token.Minus) {
			op = ir.Minus
		}
		p.idx++
		a, err := p.atom()
		if err != nil {
			return nil, err
		}
		e.Rest = append(e.Rest, ir.ExprTail{Op: op, Atom: a, Src: source.NewSpan(tb, p.prevEnd())})
	}
	e.Src = p.spanFrom(b)
	return e, nil
}

func (p *Parser) isAtomOp() bool {
	switch p.peek(0).Kind {
	case token.Star, token.Slash, token.Percent, token.Amp, token.Pipe,
		token.Caret, token.Shl, token.Shr, token.LShr:
		return true
	}
	return false
}

func (p *Parser) atomOp() (ir.AtomOp, error) {
	ops := map[token.Kind]ir.AtomOp{
		token.Star:    ir.Mul,
		token.Slash:   ir.Div,
		token.Percent: ir.Mod,
		token.Amp:     ir.And,
		token.Pipe:    ir.Or,
		token.Caret:   ir.Xor,
		token.Shl:     ir.Shl,
		token.Shr:     ir.Shr,
		token.LShr:    ir.LShr,
	}
	if op, ok := ops[p.peek(0).Kind]; ok {
		p.idx++
		return op, nil
	}
	return 0, p.errorHere("expected atom operator (*, /, %, &, |, ^, <<, >>, >>>)")
}

func (p *Parser) atom() (ir.Atom, error) {
	b := p.peek(0).Span.Begin

	if p.tryConsume(token.KwSelect) {
		c, err := p.cond()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.Comma); err != nil {
			return nil, err
		}
		vt, err := p.selectVal()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.Comma); err != nil {
			return nil, err
		}
		vf, err := p.selectVal()
		if err != nil {
			return nil, err
		}
		return &ir.SelectAtom{ID: p.id(), Cond: c, VTrue: vt, VFalse: vf, Src: p.spanFrom(b)}, nil
	}

	if p.tryConsume(token.Tilde) {
		rv, err := p.lvalue()
		if err != nil {
			return nil, err
		}
		return &ir.UnaryAtom{ID: p.id(), RVal: rv, Src: p.spanFrom(b)}, nil
	}

	// A local may be the coefficient of a binary op, the source of a
	// cast, or a plain lvalue read. Parse the full lvalue and decide by
	// the following token.
	if p.is(token.LocalID) {
		lv, err := p.lvalue()
		if err != nil {
			return nil, err
		}
		switch {
		case p.isAtomOp():
			if len(lv.Accesses) > 0 {
				return nil, token.Errorf(lv.Src, "an accessed lvalue cannot be used as a coefficient for binary operators")
			}
			op, err := p.atomOp()
			if err != nil {
				return nil, err
			}
			rv, err := p.lvalue()
			if err != nil {
				return nil, err
			}
			return &ir.OpAtom{ID: p.id(), Op: op, Coef: lv.Base, RVal: rv, Src: p.spanFrom(b)}, nil
		case p.tryConsume(token.KwAs):
			dst, err := p.parseType()
			if err != nil {
				return nil, err
			}
			return &ir.CastAtom{ID: p.id(), CastSrc: lv, DstType: dst, Src: p.spanFrom(b)}, nil
		}
		return &ir.RValueAtom{ID: p.id(), RVal: lv, Src: p.spanFrom(b)}, nil
	}

	if p.is(token.IntLit) || p.is(token.FloatLit) || p.is(token.SymID) {
		c, err := p.coef()
		if err != nil {
			return nil, err
		}
		switch {
		case p.isAtomOp():
			op, err := p.atomOp()
			if err != nil {
				return nil, err
			}
			rv, err := p.lvalue()
			if err != nil {
				return nil, err
			}
			return &ir.OpAtom{ID: p.id(), Op: op, Coef: c, RVal: rv, Src: p.spanFrom(b)}, nil
		case p.tryConsume(token.KwAs):
			dst, err := p.parseType()
			if err != nil {
				return nil, err
			}
			src, ok := c.(ir.CastSrc)
			if !ok {
				return nil, token.Errorf(p.spanFrom(b), "invalid cast source")
			}
			return &ir.CastAtom{ID: p.id(), CastSrc: src, DstType: dst, Src: p.spanFrom(b)}, nil
		}
		return &ir.CoefAtom{ID: p.id(), Coef: c, Src: p.spanFrom(b)}, nil
	}

	return nil, p.errorHere("expected atom (select, cast, bitwise not, coefficient, or lvalue)")
}

func (p *Parser) selectVal() (ir.SelectVal, error) {
	switch {
	case p.is(token.LocalID):
		return p.lvalue()
	case p.is(token.IntLit):
		return p.intLit()
	case p.is(token.FloatLit):
		return p.floatLit()
	case p.is(token.SymID):
		return p.symID()
	}
	return nil, p.errorHere("expected select arm value: lvalue or coefficient")
}
