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

package wasmgen

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/build/ir"
)

// expr folds the linear form into nested s-expressions, preserving the
// left-to-right evaluation order.
func (g *funGen) expr(e *ir.Expr, hint ir.Type) (string, error) {
	acc, accType, err := g.atom(e.First, hint)
	if err != nil {
		return "", err
	}
	for ti := range e.Rest {
		tail := &e.Rest[ti]
		rhs, _, err := g.atom(tail.Atom, accType)
		if err != nil {
			return "", err
		}
		vt, err := valType(accType)
		if err != nil {
			return "", err
		}
		op := "add"
		if tail.Op == ir.Minus {
			op = "sub"
		}
		acc = fmt.Sprintf("(%s.%s %s %s)", vt, op, acc, rhs)
		acc = g.canon(acc, accType)
	}
	return acc, nil
}

func (g *funGen) atom(a ir.Atom, hint ir.Type) (string, ir.Type, error) {
	switch at := a.(type) {
	case *ir.CoefAtom:
		return g.coef(at.Coef, hint)

	case *ir.RValueAtom:
		return g.read(at.RVal)

	case *ir.UnaryAtom:
		s, t, err := g.read(at.RVal)
		if err != nil {
			return "", nil, err
		}
		vt, err := valType(t)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(%s.xor %s (%s.const -1))", vt, s, vt), t, nil

	case *ir.OpAtom:
		return g.opAtom(at)

	case *ir.SelectAtom:
		c, err := g.cond(at.Cond)
		if err != nil {
			return "", nil, err
		}
		vt, tt, err := g.selectVal(at.VTrue, hint)
		if err != nil {
			return "", nil, err
		}
		vf, _, err := g.selectVal(at.VFalse, tt)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(select %s %s %s)", vt, vf, c), tt, nil

	case *ir.CastAtom:
		return g.cast(at)
	}
	return "", nil, errors.New("unhandled atom")
}

func (g *funGen) read(lv *ir.LValue) (string, ir.Type, error) {
	if len(lv.Accesses) > 0 {
		return "", nil, errors.New("aggregate lvalues are not supported by the wasm backend")
	}
	t, ok := g.types[lv.Base.Name]
	if !ok {
		return "", nil, errors.Errorf("unbound local: %s", lv.Base.Name)
	}
	return fmt.Sprintf("(local.get %s)", mangle(lv.Base.Name)), t, nil
}

func (g *funGen) opAtom(at *ir.OpAtom) (string, ir.Type, error) {
	rv, rt, err := g.read(at.RVal)
	if err != nil {
		return "", nil, err
	}
	coef, _, err := g.coef(at.Coef, rt)
	if err != nil {
		return "", nil, err
	}
	vt, err := valType(rt)
	if err != nil {
		return "", nil, err
	}

	if ir.IsFloat(rt) {
		var op string
		switch at.Op {
		case ir.Mul:
			op = "mul"
		case ir.Div:
			op = "div"
		default:
			return "", nil, errors.Errorf("operator %s is not supported on floats by the wasm backend", at.Op)
		}
		return fmt.Sprintf("(%s.%s %s %s)", vt, op, coef, rv), rt, nil
	}

	var op string
	switch at.Op {
	case ir.Mul:
		op = "mul"
	case ir.Div:
		op = "div_s"
	case ir.Mod:
		op = "rem_s"
	case ir.And:
		op = "and"
	case ir.Or:
		op = "or"
	case ir.Xor:
		op = "xor"
	case ir.Shl:
		op = "shl"
	case ir.Shr:
		op = "shr_s"
	case ir.LShr:
		op = "shr_u"
	}
	expr := fmt.Sprintf("(%s.%s %s %s)", vt, op, coef, rv)
	if at.Op == ir.LShr {
		// Mask to the declared width first so the logical shift sees
		// the unsigned bit pattern, not the sign extension.
		it := rt.(*ir.IntType)
		if it.Kind == ir.ICustom && it.Width() != 32 && it.Width() != 64 {
			mask := (uint64(1) << it.Width()) - 1
			expr = fmt.Sprintf("(%s.shr_u (%s.and %s (%s.const %d)) %s)", vt, vt, coef, vt, mask, rv)
		}
	}
	return g.canon(expr, rt), rt, nil
}

func (g *funGen) coef(c ir.Coef, hint ir.Type) (string, ir.Type, error) {
	switch cf := c.(type) {
	case *ir.IntLit:
		t := hint
		if t == nil {
			t = &ir.IntType{Kind: ir.I32}
		}
		vt, err := valType(t)
		if err != nil {
			return "", nil, err
		}
		if ir.IsFloat(t) {
			return fmt.Sprintf("(%s.const %s)", vt, floatString(float64(cf.Value))), t, nil
		}
		return fmt.Sprintf("(%s.const %d)", vt, cf.Value), t, nil
	case *ir.FloatLit:
		t := hint
		if !ir.IsFloat(t) {
			t = &ir.FloatType{Kind: ir.F32}
		}
		vt, _ := valType(t)
		return fmt.Sprintf("(%s.const %s)", vt, floatString(cf.Value)), t, nil
	case ir.LocalID:
		t, ok := g.types[cf.Name]
		if !ok {
			return "", nil, errors.Errorf("unbound local: %s", cf.Name)
		}
		return fmt.Sprintf("(local.get %s)", mangle(cf.Name)), t, nil
	case ir.SymID:
		t, ok := g.types[cf.Name]
		if !ok {
			return "", nil, errors.Errorf("unbound symbol: %s", cf.Name)
		}
		return fmt.Sprintf("(local.get %s)", mangle(cf.Name)), t, nil
	}
	return "", nil, errors.New("unhandled coefficient")
}

func (g *funGen) selectVal(sv ir.SelectVal, hint ir.Type) (string, ir.Type, error) {
	switch v := sv.(type) {
	case *ir.LValue:
		return g.read(v)
	case *ir.IntLit:
		return g.coef(v, hint)
	case *ir.FloatLit:
		return g.coef(v, hint)
	case ir.LocalID:
		return g.coef(v, hint)
	case ir.SymID:
		return g.coef(v, hint)
	}
	return "", nil, errors.New("unhandled select arm")
}

// cast converts between the scalar value types. Float-to-int rounds to
// nearest-even before truncating, matching the solver's RNE encoding.
func (g *funGen) cast(at *ir.CastAtom) (string, ir.Type, error) {
	var src string
	var srcType ir.Type
	var err error
	switch cs := at.CastSrc.(type) {
	case *ir.IntLit:
		src, srcType, err = g.coef(cs, nil)
	case *ir.FloatLit:
		src, srcType, err = g.coef(cs, nil)
	case ir.SymID:
		src, srcType, err = g.coef(cs, nil)
	case *ir.LValue:
		src, srcType, err = g.read(cs)
	default:
		return "", nil, errors.New("unhandled cast source")
	}
	if err != nil {
		return "", nil, err
	}
	svt, err := valType(srcType)
	if err != nil {
		return "", nil, err
	}
	dvt, err := valType(at.DstType)
	if err != nil {
		return "", nil, err
	}

	var out string
	switch {
	case svt == dvt:
		out = src
	case svt == "i32" && dvt == "i64":
		out = fmt.Sprintf("(i64.extend_i32_s %s)", src)
	case svt == "i64" && dvt == "i32":
		out = fmt.Sprintf("(i32.wrap_i64 %s)", src)
	case (svt == "i32" || svt == "i64") && (dvt == "f32" || dvt == "f64"):
		out = fmt.Sprintf("(%s.convert_%s_s %s)", dvt, svt, src)
	case (svt == "f32" || svt == "f64") && (dvt == "i32" || dvt == "i64"):
		out = fmt.Sprintf("(%s.trunc_sat_%s_s (%s.nearest %s))", dvt, svt, svt, src)
	case svt == "f32" && dvt == "f64":
		out = fmt.Sprintf("(f64.promote_f32 %s)", src)
	case svt == "f64" && dvt == "f32":
		out = fmt.Sprintf("(f32.demote_f64 %s)", src)
	default:
		return "", nil, errors.Errorf("unsupported cast %s -> %s", svt, dvt)
	}
	return g.canon(out, at.DstType), at.DstType, nil
}

// cond compares two scalars, yielding an i32 Boolean. Wasm's float ne
// is the negation of the ordered equality, so NaN handling matches the
// solver's encoding.
func (g *funGen) cond(c *ir.Cond) (string, error) {
	lhs, err := g.expr(c.LHS, nil)
	if err != nil {
		return "", err
	}
	var lhsType ir.Type
	_, lhsType, err = g.atom(c.LHS.First, nil)
	if err != nil {
		return "", err
	}
	rhs, err := g.expr(c.RHS, lhsType)
	if err != nil {
		return "", err
	}
	vt, err := valType(lhsType)
	if err != nil {
		return "", err
	}

	var op string
	if ir.IsFloat(lhsType) {
		switch c.Op {
		case ir.Eq:
			op = "eq"
		case ir.Ne:
			op = "ne"
		case ir.Lt:
			op = "lt"
		case ir.Le:
			op = "le"
		case ir.Gt:
			op = "gt"
		case ir.Ge:
			op = "ge"
		}
	} else {
		switch c.Op {
		case ir.Eq:
			op = "eq"
		case ir.Ne:
			op = "ne"
		case ir.Lt:
			op = "lt_s"
		case ir.Le:
			op = "le_s"
		case ir.Gt:
			op = "gt_s"
		case ir.Ge:
			op = "ge_s"
		}
	}
	return fmt.Sprintf("(%s.%s %s %s)", vt, op, lhs, rhs), nil
}
