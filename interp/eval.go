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

package interp

import (
	"math"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/build/ir"
)

// expected is the scalar context threaded through expression
// evaluation, so literals pick up the width the type checker assigned
// them.
type expected struct {
	valid bool
	fp    bool
	bits  uint32
}

func expectedOf(t ir.Type) expected {
	switch tt := t.(type) {
	case *ir.IntType:
		return expected{valid: true, bits: tt.Width()}
	case *ir.FloatType:
		return expected{valid: true, fp: true, bits: tt.Width()}
	}
	return expected{}
}

func expectedOfValue(v Value) expected {
	switch v.Kind {
	case Int:
		return expected{valid: true, bits: v.Bits}
	case Float:
		bits := uint32(64)
		if v.Width32 {
			bits = 32
		}
		return expected{valid: true, fp: true, bits: bits}
	}
	return expected{}
}

// typeAtLValue resolves the declared type at the end of an access
// chain.
func (it *Interpreter) typeAtLValue(lv *ir.LValue, f *frame) (ir.Type, error) {
	cur, ok := f.types[lv.Base.Name]
	if !ok {
		return nil, errors.Errorf("unbound local: %s", lv.Base.Name)
	}
	for _, acc := range lv.Accesses {
		switch a := acc.(type) {
		case *ir.AccessIndex:
			at := ir.AsArray(cur)
			if at == nil {
				return nil, errors.New("indexing non-array")
			}
			cur = at.Elem
		case *ir.AccessField:
			st := ir.AsStruct(cur)
			if st == nil {
				return nil, errors.New("field access on non-struct")
			}
			sd, ok := it.structs[st.Name.Name]
			if !ok {
				return nil, errors.Errorf("unknown struct type: %s", st.Name.Name)
			}
			fi := sd.FieldIndex(a.Field)
			if fi < 0 {
				return nil, errors.Errorf("unknown field: %s", a.Field)
			}
			cur = sd.Fields[fi].Type
		}
	}
	return cur, nil
}

// evalExpr folds the linear form strictly left to right, checking
// signed overflow on every integer addition and subtraction.
func (it *Interpreter) evalExpr(e *ir.Expr, exp expected, f *frame) (Value, error) {
	acc, err := it.evalAtom(e.First, exp, f)
	if err != nil {
		return Value{}, err
	}
	for ti := range e.Rest {
		tail := &e.Rest[ti]
		rhs, err := it.evalAtom(tail.Atom, expectedOfValue(acc), f)
		if err != nil {
			return Value{}, err
		}
		if acc.Kind == Float {
			if tail.Op == ir.Plus {
				acc = FloatValue(acc.F+rhs.F, acc.Width32)
			} else {
				acc = FloatValue(acc.F-rhs.F, acc.Width32)
			}
			continue
		}
		var raw int64
		if tail.Op == ir.Plus {
			raw = acc.I + rhs.I
		} else {
			raw = acc.I - rhs.I
		}
		if canonical(raw, acc.Bits) != raw || addOverflows64(acc.I, rhs.I, tail.Op, acc.Bits) {
			return Value{}, ubErrorf(tail.Src, "signed overflow in %s", tail.Op)
		}
		acc = IntValue(raw, acc.Bits)
	}
	return acc, nil
}

// addOverflows64 detects wraparound at the full 64-bit width, which the
// canonical-form check cannot see.
func addOverflows64(a, b int64, op ir.AddOp, bits uint32) bool {
	if bits < 64 {
		return false
	}
	if op == ir.Plus {
		s := a + b
		return (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0)
	}
	s := a - b
	return (a >= 0 && b < 0 && s < 0) || (a < 0 && b > 0 && s >= 0)
}

func (it *Interpreter) evalAtom(a ir.Atom, exp expected, f *frame) (Value, error) {
	switch at := a.(type) {
	case *ir.CoefAtom:
		return it.evalCoef(at.Coef, exp, f)

	case *ir.RValueAtom:
		return it.readLValue(at.RVal, f)

	case *ir.UnaryAtom:
		v, err := it.readLValue(at.RVal, f)
		if err != nil {
			return Value{}, err
		}
		if v.Kind != Int {
			return Value{}, errors.New("bitwise complement of a non-integer")
		}
		return IntValue(^v.I, v.Bits), nil

	case *ir.OpAtom:
		return it.evalOpAtom(at, f)

	case *ir.SelectAtom:
		cond, err := it.evalCond(at.Cond, f)
		if err != nil {
			return Value{}, err
		}
		arm := at.VTrue
		if !cond {
			arm = at.VFalse
		}
		return it.evalSelectVal(arm, exp, f)

	case *ir.CastAtom:
		return it.evalCast(at, f)
	}
	return Value{}, errors.New("unhandled atom")
}

func (it *Interpreter) evalOpAtom(at *ir.OpAtom, f *frame) (Value, error) {
	rv, err := it.readLValue(at.RVal, f)
	if err != nil {
		return Value{}, err
	}
	coef, err := it.evalCoef(at.Coef, expectedOfValue(rv), f)
	if err != nil {
		return Value{}, err
	}

	if rv.Kind == Float {
		switch at.Op {
		case ir.Mul:
			return FloatValue(coef.F*rv.F, rv.Width32), nil
		case ir.Div:
			return FloatValue(coef.F/rv.F, rv.Width32), nil
		case ir.Mod:
			return FloatValue(math.Remainder(coef.F, rv.F), rv.Width32), nil
		}
		return Value{}, errors.Errorf("operator %s is not defined on floats", at.Op)
	}

	c, r, bits := coef.I, rv.I, rv.Bits
	switch at.Op {
	case ir.Mul:
		prod := c * r
		if mulOverflows(c, r, bits) {
			return Value{}, ubErrorf(at.Src, "signed overflow in *")
		}
		return IntValue(prod, bits), nil

	case ir.Div, ir.Mod:
		if r == 0 {
			return Value{}, ubErrorf(at.Src, "division by zero")
		}
		if c == minSigned(bits) && r == -1 {
			return Value{}, ubErrorf(at.Src, "signed overflow in %s", at.Op)
		}
		if at.Op == ir.Div {
			return IntValue(c/r, bits), nil
		}
		return IntValue(c%r, bits), nil

	case ir.And:
		return IntValue(c&r, bits), nil
	case ir.Or:
		return IntValue(c|r, bits), nil
	case ir.Xor:
		return IntValue(c^r, bits), nil

	case ir.Shl, ir.Shr, ir.LShr:
		if uint64(r) >= uint64(bits) {
			return Value{}, ubErrorf(at.Src, "shift amount %d out of range for i%d", r, bits)
		}
		switch at.Op {
		case ir.Shl:
			return IntValue(c<<uint(r), bits), nil
		case ir.Shr:
			return IntValue(c>>uint(r), bits), nil
		default:
			// Logical shift over the value's declared width.
			u := uint64(c)
			if bits < 64 {
				u &= (uint64(1) << bits) - 1
			}
			return IntValue(int64(u>>uint(r)), bits), nil
		}
	}
	return Value{}, errors.Errorf("unhandled operator %s", at.Op)
}

func minSigned(bits uint32) int64 {
	if bits >= 64 {
		return math.MinInt64
	}
	return -(int64(1) << (bits - 1))
}

// mulOverflows reports signed overflow of c*r at the given width.
func mulOverflows(c, r int64, bits uint32) bool {
	if c == 0 || r == 0 {
		return false
	}
	if bits >= 64 {
		if c == -1 && r == math.MinInt64 || r == -1 && c == math.MinInt64 {
			return true
		}
		p := c * r
		return p/r != c
	}
	p := c * r
	return p/r != c || canonical(p, bits) != p
}

func (it *Interpreter) evalCoef(coef ir.Coef, exp expected, f *frame) (Value, error) {
	switch cf := coef.(type) {
	case *ir.IntLit:
		if exp.valid && exp.fp {
			return FloatValue(float64(cf.Value), exp.bits == 32), nil
		}
		bits := uint32(32)
		if exp.valid {
			bits = exp.bits
		}
		return IntValue(cf.Value, bits), nil

	case *ir.FloatLit:
		width32 := !exp.valid || !exp.fp || exp.bits == 32
		return FloatValue(cf.Value, width32), nil

	case ir.LocalID:
		v, ok := f.locals[cf.Name]
		if !ok {
			return Value{}, errors.Errorf("unbound local: %s", cf.Name)
		}
		if v.Kind == Undef {
			return Value{}, ubErrorf(cf.Src, "read of undef: %s", cf.Name)
		}
		return v, nil

	case ir.SymID:
		v, ok := f.locals[cf.Name]
		if !ok {
			return Value{}, errors.Errorf("unbound symbol: %s", cf.Name)
		}
		return v, nil
	}
	return Value{}, errors.New("unhandled coefficient")
}

func (it *Interpreter) evalSelectVal(sv ir.SelectVal, exp expected, f *frame) (Value, error) {
	switch v := sv.(type) {
	case *ir.LValue:
		return it.readLValue(v, f)
	case *ir.IntLit:
		return it.evalCoef(v, exp, f)
	case *ir.FloatLit:
		return it.evalCoef(v, exp, f)
	case ir.LocalID:
		return it.evalCoef(v, exp, f)
	case ir.SymID:
		return it.evalCoef(v, exp, f)
	}
	return Value{}, errors.New("unhandled select arm")
}

// evalCast converts a scalar with round-to-nearest-even, mirroring the
// solver's RNE encodings.
func (it *Interpreter) evalCast(at *ir.CastAtom, f *frame) (Value, error) {
	var src Value
	var err error
	switch s := at.CastSrc.(type) {
	case *ir.IntLit:
		src, err = it.evalCoef(s, expected{}, f)
	case *ir.FloatLit:
		src, err = it.evalCoef(s, expected{}, f)
	case ir.SymID:
		src, err = it.evalCoef(s, expected{}, f)
	case *ir.LValue:
		src, err = it.readLValue(s, f)
	default:
		return Value{}, errors.New("unhandled cast source")
	}
	if err != nil {
		return Value{}, err
	}

	switch dst := at.DstType.(type) {
	case *ir.IntType:
		if src.Kind == Float {
			return IntValue(int64(math.RoundToEven(src.F)), dst.Width()), nil
		}
		return IntValue(src.I, dst.Width()), nil
	case *ir.FloatType:
		if src.Kind == Float {
			return FloatValue(src.F, dst.Kind == ir.F32), nil
		}
		return FloatValue(float64(src.I), dst.Kind == ir.F32), nil
	}
	return Value{}, errors.Errorf("cast target must be a scalar type, got %s", at.DstType)
}

// evalCond compares two scalars. Integer comparisons are signed; float
// comparisons are the ordered IEEE predicates, with "!=" the negation
// of the ordered equality, so a NaN operand makes it true.
func (it *Interpreter) evalCond(cond *ir.Cond, f *frame) (bool, error) {
	lhs, err := it.evalExpr(cond.LHS, expected{}, f)
	if err != nil {
		return false, err
	}
	rhs, err := it.evalExpr(cond.RHS, expectedOfValue(lhs), f)
	if err != nil {
		return false, err
	}

	if lhs.Kind == Float {
		a, b := lhs.F, rhs.F
		switch cond.Op {
		case ir.Eq:
			return a == b, nil
		case ir.Ne:
			return !(a == b), nil
		case ir.Lt:
			return a < b, nil
		case ir.Le:
			return a <= b, nil
		case ir.Gt:
			return a > b, nil
		case ir.Ge:
			return a >= b, nil
		}
		return false, errors.New("unhandled comparison")
	}

	a, b := lhs.I, rhs.I
	switch cond.Op {
	case ir.Eq:
		return a == b, nil
	case ir.Ne:
		return a != b, nil
	case ir.Lt:
		return a < b, nil
	case ir.Le:
		return a <= b, nil
	case ir.Gt:
		return a > b, nil
	case ir.Ge:
		return a >= b, nil
	}
	return false, errors.New("unhandled comparison")
}

// indexValue evaluates an array index.
func (it *Interpreter) indexValue(idx ir.Index, f *frame) (int64, error) {
	switch id := idx.(type) {
	case *ir.IntLit:
		return id.Value, nil
	case ir.LocalID:
		v, ok := f.locals[id.Name]
		if !ok {
			return 0, errors.Errorf("unbound local index: %s", id.Name)
		}
		if v.Kind == Undef {
			return 0, ubErrorf(id.Src, "read of undef: %s", id.Name)
		}
		return v.I, nil
	case ir.SymID:
		v, ok := f.locals[id.Name]
		if !ok {
			return 0, errors.Errorf("unbound symbol index: %s", id.Name)
		}
		return v.I, nil
	}
	return 0, errors.New("unhandled index")
}

// readLValue walks the accesses of an lvalue and returns the value at
// the end. Out-of-bounds indices and undef leaves are UB.
func (it *Interpreter) readLValue(lv *ir.LValue, f *frame) (Value, error) {
	cur, ok := f.locals[lv.Base.Name]
	if !ok {
		return Value{}, errors.Errorf("unbound local: %s", lv.Base.Name)
	}
	for _, acc := range lv.Accesses {
		switch a := acc.(type) {
		case *ir.AccessIndex:
			if cur.Kind != Array {
				return Value{}, errors.New("indexing non-array")
			}
			i, err := it.indexValue(a.Index, f)
			if err != nil {
				return Value{}, err
			}
			if i < 0 || i >= int64(len(cur.Elems)) {
				return Value{}, ubErrorf(a.Src, "index %d out of bounds [0, %d)", i, len(cur.Elems))
			}
			cur = cur.Elems[i]
		case *ir.AccessField:
			if cur.Kind != Struct {
				return Value{}, errors.New("field access on non-struct")
			}
			fv, ok := cur.Fields.Load(a.Field)
			if !ok {
				return Value{}, errors.Errorf("unknown field: %s", a.Field)
			}
			cur = fv
		}
	}
	if cur.Kind == Undef {
		return Value{}, ubErrorf(lv.Src, "read of undef: %s", lv.Base.Name)
	}
	return cur, nil
}

// setLValue writes a value at the end of an access chain, copying the
// aggregates along the way.
func (it *Interpreter) setLValue(lv *ir.LValue, val Value, f *frame) error {
	root, ok := f.locals[lv.Base.Name]
	if !ok {
		return errors.Errorf("unbound local: %s", lv.Base.Name)
	}
	updated, err := it.updateAt(root, lv.Accesses, val, f)
	if err != nil {
		return err
	}
	f.locals[lv.Base.Name] = updated
	return nil
}

func (it *Interpreter) updateAt(cur Value, accesses []ir.Access, val Value, f *frame) (Value, error) {
	if len(accesses) == 0 {
		return val, nil
	}
	switch a := accesses[0].(type) {
	case *ir.AccessIndex:
		if cur.Kind != Array {
			return Value{}, errors.New("indexing non-array in assignment")
		}
		i, err := it.indexValue(a.Index, f)
		if err != nil {
			return Value{}, err
		}
		if i < 0 || i >= int64(len(cur.Elems)) {
			return Value{}, ubErrorf(a.Src, "index %d out of bounds [0, %d)", i, len(cur.Elems))
		}
		updated, err := it.updateAt(cur.Elems[i], accesses[1:], val, f)
		if err != nil {
			return Value{}, err
		}
		res := Value{Kind: Array, Elems: append([]Value{}, cur.Elems...)}
		res.Elems[i] = updated
		return res, nil

	case *ir.AccessField:
		if cur.Kind != Struct {
			return Value{}, errors.New("field access on non-struct in assignment")
		}
		old, ok := cur.Fields.Load(a.Field)
		if !ok {
			return Value{}, errors.Errorf("unknown field: %s", a.Field)
		}
		updated, err := it.updateAt(old, accesses[1:], val, f)
		if err != nil {
			return Value{}, err
		}
		res := Value{Kind: Struct, Fields: cur.Fields.Clone()}
		res.Fields.Store(a.Field, updated)
		return res, nil
	}
	return Value{}, errors.New("unhandled access")
}
