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

// Package typecheck verifies declarations, assignments, operations,
// conditions, returns, and initializers with bitwidth precision.
//
// The checker threads an expected scalar type through expression typing
// so that integer literals pick up the width of their context and are
// range-checked against it. Inferred types are recorded in a side table
// keyed by node id.
package typecheck

import (
	"github.com/symir-lang/symir/analysis/cfg"
	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/ir"
	"github.com/symir-lang/symir/build/source"
)

// TyKind discriminates inferred scalar types.
type TyKind int

// Inferred type kinds.
const (
	Invalid TyKind = iota
	BV
	FP
)

// Ty is the inferred scalar type of an expression or atom. An Invalid
// Ty means an error has already been reported; further checks against
// it are suppressed.
type Ty struct {
	Kind TyKind
	Bits uint32
}

// IsBV returns true for integer bitvector types.
func (t Ty) IsBV() bool { return t.Kind == BV }

// IsFP returns true for float types.
func (t Ty) IsFP() bool { return t.Kind == FP }

// IsValid returns true if the type carries information.
func (t Ty) IsValid() bool { return t.Kind != Invalid }

// Annotations is the side table of inferred types, keyed by node id.
type Annotations map[ir.NodeID]Ty

type varInfo struct {
	typ     ir.Type
	mutable bool
	isParam bool
	span    source.Span
}

type symInfo struct {
	typ  ir.Type
	kind ir.SymKind
	span source.Span
}

// Checker holds per-program state.
type Checker struct {
	structs map[string]*ir.StructDecl
	diags   *diag.Bag
	ann     Annotations

	vars map[string]varInfo
	syms map[string]symInfo
}

// Run checks every function of the program and returns the inferred
// type annotations. The boolean result is false if any error was
// reported.
func Run(prog *ir.Program, diags *diag.Bag) (Annotations, bool) {
	c := &Checker{
		structs: map[string]*ir.StructDecl{},
		diags:   diags,
		ann:     Annotations{},
	}
	for i := range prog.Structs {
		s := &prog.Structs[i]
		if _, dup := c.structs[s.Name.Name]; dup {
			diags.Errorf(s.Src, "duplicate struct declaration: %s", s.Name.Name)
			continue
		}
		c.structs[s.Name.Name] = s
	}
	for i := range prog.Funs {
		c.checkFunction(&prog.Funs[i])
	}
	return c.ann, !diags.HasErrors()
}

func (c *Checker) checkFunction(f *ir.FunDecl) {
	c.vars = map[string]varInfo{}
	c.syms = map[string]symInfo{}

	for i := range f.Params {
		p := &f.Params[i]
		c.vars[p.Name.Name] = varInfo{typ: p.Type, isParam: true, span: p.Src}
	}
	for i := range f.Syms {
		s := &f.Syms[i]
		c.syms[s.Name.Name] = symInfo{typ: s.Type, kind: s.Kind, span: s.Src}
	}
	for i := range f.Lets {
		l := &f.Lets[i]
		c.vars[l.Name.Name] = varInfo{typ: l.Type, mutable: l.Mutable, span: l.Src}
		if l.Init != nil {
			c.checkInit(l.Init, l.Type)
		}
	}

	// Rebuild the CFG so that block graph errors show up alongside the
	// type errors of the same function.
	cfg.Build(f, c.diags)

	retTy := c.tyOf(f.RetType)
	if !retTy.IsValid() {
		c.diags.Errorf(f.RetType.Span(), "aggregates cannot be returned: %s", f.RetType)
	}

	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		for _, ins := range b.Instrs {
			c.checkInstr(ins)
		}
		switch term := b.Term.(type) {
		case *ir.BrTerm:
			if term.Cond != nil {
				c.checkCond(term.Cond)
			}
		case *ir.RetTerm:
			if term.Value == nil {
				c.diags.Errorf(term.Src, "Missing return value")
				break
			}
			if !retTy.IsValid() {
				break
			}
			got := c.typeOfExpr(term.Value, retTy)
			c.requireSame(retTy, got, term.Value.Src, "return value")
		}
	}
}

func (c *Checker) checkInstr(ins ir.Instr) {
	switch i := ins.(type) {
	case *ir.AssignInstr:
		if v, ok := c.vars[i.LHS.Base.Name]; ok && !v.mutable {
			c.diags.Errorf(i.LHS.Src, "Assignment to immutable local: %s", i.LHS.Base.Name)
		}
		lt := c.typeOfLValue(i.LHS)
		if lt == nil {
			return
		}
		expected := c.tyOf(lt)
		if !expected.IsValid() {
			c.diags.Errorf(i.LHS.Src, "cannot assign to aggregate lvalue %s of type %s", i.LHS.Base.Name, lt)
			return
		}
		got := c.typeOfExpr(i.RHS, expected)
		c.requireSame(expected, got, i.RHS.Src, "assignment")
	case *ir.AssumeInstr:
		c.checkCond(i.Cond)
	case *ir.RequireInstr:
		c.checkCond(i.Cond)
	}
}

// requireSame checks that an inferred type matches the expected scalar
// kind and width.
func (c *Checker) requireSame(expected, got Ty, sp source.Span, what string) {
	if !expected.IsValid() || !got.IsValid() {
		return
	}
	if expected.Kind != got.Kind {
		c.diags.Errorf(sp, "scalar kind mismatch in %s", what)
		return
	}
	if expected.Bits != got.Bits {
		c.diags.Errorf(sp, "Bitwidth mismatch in %s: expected %d bits, got %d", what, expected.Bits, got.Bits)
	}
}

// tyOf maps a declared type to its scalar descriptor; aggregates map to
// Invalid.
func (c *Checker) tyOf(t ir.Type) Ty {
	switch tt := t.(type) {
	case *ir.IntType:
		return Ty{Kind: BV, Bits: tt.Width()}
	case *ir.FloatType:
		return Ty{Kind: FP, Bits: tt.Width()}
	}
	return Ty{}
}

func (c *Checker) checkCond(cond *ir.Cond) {
	t1 := c.typeOfExpr(cond.LHS, Ty{})
	t2 := c.typeOfExpr(cond.RHS, t1)
	if !t1.IsValid() || !t2.IsValid() {
		return
	}
	if t1.Kind != t2.Kind {
		c.diags.Errorf(cond.Src, "Condition operands must have the same scalar kind")
		return
	}
	if t1.Bits != t2.Bits {
		c.diags.Errorf(cond.Src, "Bitwidth mismatch in condition")
	}
}

// typeOfExpr types a linear expression. The expected type seeds literal
// inference; once the first atom is typed, its type becomes the
// expectation for the rest of the chain.
func (c *Checker) typeOfExpr(e *ir.Expr, expected Ty) Ty {
	t := c.typeOfAtom(e.First, expected)
	for ti := range e.Rest {
		tail := &e.Rest[ti]
		tailExpected := expected
		if t.IsValid() {
			tailExpected = t
		}
		tt := c.typeOfAtom(tail.Atom, tailExpected)
		if t.IsValid() && tt.IsValid() {
			if t.Kind != tt.Kind {
				c.diags.Errorf(tail.Src, "scalar kind mismatch in expression")
			} else if t.Bits != tt.Bits {
				c.diags.Errorf(tail.Src, "Bitwidth mismatch")
			}
		}
	}
	c.ann[e.ID] = t
	return t
}

func (c *Checker) typeOfAtom(a ir.Atom, expected Ty) Ty {
	t := c.typeOfAtomUncached(a, expected)
	switch at := a.(type) {
	case *ir.OpAtom:
		c.ann[at.ID] = t
	case *ir.UnaryAtom:
		c.ann[at.ID] = t
	case *ir.SelectAtom:
		c.ann[at.ID] = t
	case *ir.CoefAtom:
		c.ann[at.ID] = t
	case *ir.RValueAtom:
		c.ann[at.ID] = t
	case *ir.CastAtom:
		c.ann[at.ID] = t
	}
	return t
}

func (c *Checker) typeOfAtomUncached(a ir.Atom, expected Ty) Ty {
	switch at := a.(type) {
	case *ir.OpAtom:
		return c.typeOfOpAtom(at, expected)

	case *ir.UnaryAtom:
		rt := c.typeOfLValue(at.RVal)
		if rt == nil {
			return Ty{}
		}
		if !ir.IsInt(rt) {
			c.diags.Errorf(at.Src, "bitwise complement requires an integer operand, got %s", rt)
			return Ty{}
		}
		return c.tyOf(rt)

	case *ir.SelectAtom:
		c.checkCond(at.Cond)
		t1 := c.typeOfSelectVal(at.VTrue, expected)
		t2 := c.typeOfSelectVal(at.VFalse, expected)
		if t1.IsValid() && t2.IsValid() {
			if t1.Kind != t2.Kind {
				c.diags.Errorf(at.Src, "select arms must have the same scalar kind")
			} else if t1.Bits != t2.Bits {
				c.diags.Errorf(at.Src, "Select width mismatch")
			}
		}
		if t1.IsValid() {
			return t1
		}
		return t2

	case *ir.CoefAtom:
		return c.typeOfCoef(at.Coef, expected)

	case *ir.RValueAtom:
		rt := c.typeOfLValue(at.RVal)
		if rt == nil {
			return Ty{}
		}
		t := c.tyOf(rt)
		if !t.IsValid() {
			c.diags.Errorf(at.Src, "aggregate value of type %s used in scalar expression", rt)
		}
		return t

	case *ir.CastAtom:
		// The source is evaluated only for error reporting; the cast's
		// result type is the destination type.
		switch src := at.CastSrc.(type) {
		case *ir.LValue:
			c.typeOfLValue(src)
		case ir.SymID:
			if _, ok := c.syms[src.Name]; !ok {
				c.diags.Errorf(src.Src, "Undeclared symbol: %s", src.Name)
			}
		}
		dst := c.tyOf(at.DstType)
		if !dst.IsValid() {
			c.diags.Errorf(at.DstType.Span(), "cast target must be a scalar type, got %s", at.DstType)
		}
		return dst
	}
	return Ty{}
}

func (c *Checker) typeOfOpAtom(at *ir.OpAtom, expected Ty) Ty {
	rt := c.typeOfLValue(at.RVal)
	if rt == nil {
		return Ty{}
	}
	rTy := c.tyOf(rt)
	if !rTy.IsValid() {
		c.diags.Errorf(at.RVal.Src, "aggregate value of type %s used as operand", rt)
		return Ty{}
	}

	// The rvalue operand is authoritative for the operation's type.
	if rTy.IsFP() {
		switch at.Op {
		case ir.Mul, ir.Div, ir.Mod:
		default:
			c.diags.Errorf(at.Src, "operator %s is not defined on floats", at.Op)
			return Ty{}
		}
		cTy := c.typeOfCoef(at.Coef, rTy)
		if cTy.IsValid() && (!cTy.IsFP() || cTy.Bits != rTy.Bits) {
			c.diags.Errorf(at.Src, "Bitwidth mismatch in operation")
		}
		return rTy
	}

	cTy := c.typeOfCoef(at.Coef, rTy)
	if cTy.IsValid() && (!cTy.IsBV() || cTy.Bits != rTy.Bits) {
		c.diags.Errorf(at.Src, "Bitwidth mismatch in operation")
	}
	return rTy
}

// typeOfCoef infers the type of a coefficient. Integer literals take
// the expected width and are range-checked against it; an integer
// literal in a float context is promoted to the expected float type.
func (c *Checker) typeOfCoef(coef ir.Coef, expected Ty) Ty {
	switch cf := coef.(type) {
	case *ir.IntLit:
		if expected.IsFP() {
			return expected
		}
		bits := uint32(32)
		if expected.IsBV() {
			bits = expected.Bits
		}
		if !ir.LiteralInRange(cf.Value, bits) {
			c.diags.Errorf(cf.Src, "Literal %d out of range for i%d", cf.Value, bits)
		}
		return Ty{Kind: BV, Bits: bits}
	case *ir.FloatLit:
		if expected.IsFP() {
			return expected
		}
		if expected.IsBV() {
			c.diags.Errorf(cf.Src, "float literal in integer context")
			return Ty{}
		}
		return Ty{Kind: FP, Bits: 32}
	case ir.LocalID:
		v, ok := c.vars[cf.Name]
		if !ok {
			c.diags.Errorf(cf.Src, "Undeclared local: %s", cf.Name)
			return Ty{}
		}
		t := c.tyOf(v.typ)
		if !t.IsValid() {
			c.diags.Errorf(cf.Src, "aggregate %s used as coefficient", cf.Name)
		}
		return t
	case ir.SymID:
		s, ok := c.syms[cf.Name]
		if !ok {
			c.diags.Errorf(cf.Src, "Undeclared symbol: %s", cf.Name)
			return Ty{}
		}
		return c.tyOf(s.typ)
	}
	return Ty{}
}

func (c *Checker) typeOfSelectVal(sv ir.SelectVal, expected Ty) Ty {
	switch v := sv.(type) {
	case *ir.LValue:
		rt := c.typeOfLValue(v)
		if rt == nil {
			return Ty{}
		}
		t := c.tyOf(rt)
		if !t.IsValid() {
			c.diags.Errorf(v.Src, "aggregate value of type %s in select arm", rt)
		}
		return t
	case *ir.IntLit:
		return c.typeOfCoef(v, expected)
	case *ir.FloatLit:
		return c.typeOfCoef(v, expected)
	case ir.LocalID:
		return c.typeOfCoef(v, expected)
	case ir.SymID:
		return c.typeOfCoef(v, expected)
	}
	return Ty{}
}

// typeOfLValue traverses the accesses of an lvalue and returns the type
// at the end of the traversal, or nil after reporting an error.
func (c *Checker) typeOfLValue(lv *ir.LValue) ir.Type {
	v, ok := c.vars[lv.Base.Name]
	if !ok {
		c.diags.Errorf(lv.Base.Src, "Undeclared local: %s", lv.Base.Name)
		return nil
	}
	cur := v.typ
	for _, acc := range lv.Accesses {
		switch a := acc.(type) {
		case *ir.AccessIndex:
			at := ir.AsArray(cur)
			if at == nil {
				c.diags.Errorf(a.Src, "Indexing non-array")
				return nil
			}
			c.checkIndex(a.Index)
			cur = at.Elem
		case *ir.AccessField:
			st := ir.AsStruct(cur)
			if st == nil {
				c.diags.Errorf(a.Src, "Field access on non-struct")
				return nil
			}
			sd, ok := c.structs[st.Name.Name]
			if !ok {
				c.diags.Errorf(a.Src, "Unknown struct type: %s", st.Name.Name)
				return nil
			}
			fi := sd.FieldIndex(a.Field)
			if fi < 0 {
				c.diags.Errorf(a.Src, "Unknown field '%s' in struct %s", a.Field, st.Name.Name)
				return nil
			}
			cur = sd.Fields[fi].Type
		}
	}
	return cur
}

func (c *Checker) checkIndex(idx ir.Index) {
	switch id := idx.(type) {
	case *ir.IntLit:
	case ir.LocalID:
		v, ok := c.vars[id.Name]
		if !ok {
			c.diags.Errorf(id.Src, "Undeclared local index: %s", id.Name)
			return
		}
		if !ir.IsInt(v.typ) {
			c.diags.Errorf(id.Src, "Non-integer index")
		}
	case ir.SymID:
		s, ok := c.syms[id.Name]
		if !ok {
			c.diags.Errorf(id.Src, "Undeclared symbol index: %s", id.Name)
			return
		}
		if !ir.IsInt(s.typ) {
			c.diags.Errorf(id.Src, "Non-integer symbol index")
		}
	}
}

// checkInit verifies an initializer against the declared type of its
// target. Scalar initializers broadcast to every leaf of an aggregate
// target, so every leaf must be compatible with the scalar.
func (c *Checker) checkInit(iv ir.InitVal, target ir.Type) {
	switch init := iv.(type) {
	case *ir.UndefInit:
		return

	case *ir.AggregateInit:
		if at := ir.AsArray(target); at != nil {
			if uint64(len(init.Elems)) != at.Size {
				c.diags.Errorf(init.Src, "Array initializer length mismatch: expected %d, got %d",
					at.Size, len(init.Elems))
				return
			}
			for _, e := range init.Elems {
				c.checkInit(e, at.Elem)
			}
			return
		}
		if st := ir.AsStruct(target); st != nil {
			sd, ok := c.structs[st.Name.Name]
			if !ok {
				c.diags.Errorf(init.Src, "Unknown struct type: %s", st.Name.Name)
				return
			}
			if len(init.Elems) != len(sd.Fields) {
				c.diags.Errorf(init.Src, "Struct initializer field count mismatch: expected %d, got %d",
					len(sd.Fields), len(init.Elems))
				return
			}
			for i, e := range init.Elems {
				c.checkInit(e, sd.Fields[i].Type)
			}
			return
		}
		c.diags.Errorf(init.Src, "Aggregate initializer for non-aggregate type")

	case *ir.IntLit:
		for _, leaf := range c.leavesOf(target, init.Src) {
			it, ok := leaf.(*ir.IntType)
			if !ok {
				c.diags.Errorf(init.Src, "integer initializer for non-integer target %s", leaf)
				return
			}
			if !ir.LiteralInRange(init.Value, it.Width()) {
				c.diags.Errorf(init.Src, "Literal %d out of range for i%d", init.Value, it.Width())
				return
			}
		}

	case *ir.FloatLit:
		for _, leaf := range c.leavesOf(target, init.Src) {
			if !ir.IsFloat(leaf) {
				c.diags.Errorf(init.Src, "float initializer for non-float target %s", leaf)
				return
			}
		}

	case ir.SymID:
		s, ok := c.syms[init.Name]
		if !ok {
			c.diags.Errorf(init.Src, "Undeclared symbol in initializer: %s", init.Name)
			return
		}
		c.checkScalarBroadcast(s.typ, target, init.Src)

	case ir.LocalID:
		v, ok := c.vars[init.Name]
		if !ok {
			c.diags.Errorf(init.Src, "Undeclared local in initializer: %s", init.Name)
			return
		}
		c.checkScalarBroadcast(v.typ, target, init.Src)
	}
}

func (c *Checker) checkScalarBroadcast(scalar, target ir.Type, sp source.Span) {
	for _, leaf := range c.leavesOf(target, sp) {
		if !ir.TypesEqual(leaf, scalar) {
			c.diags.Errorf(sp, "Type mismatch in initializer")
			return
		}
	}
}

// leavesOf flattens an aggregate type into its scalar leaf types.
func (c *Checker) leavesOf(t ir.Type, sp source.Span) []ir.Type {
	var leaves []ir.Type
	var collect func(t ir.Type)
	collect = func(t ir.Type) {
		if at := ir.AsArray(t); at != nil {
			collect(at.Elem)
			return
		}
		if st := ir.AsStruct(t); st != nil {
			sd, ok := c.structs[st.Name.Name]
			if !ok {
				c.diags.Errorf(sp, "Unknown struct type: %s", st.Name.Name)
				return
			}
			for i := range sd.Fields {
				collect(sd.Fields[i].Type)
			}
			return
		}
		leaves = append(leaves, t)
	}
	collect(t)
	return leaves
}
