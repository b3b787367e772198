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

package symexec

import (
	"github.com/pkg/errors"
	"github.com/symir-lang/symir/build/ir"
	"github.com/symir-lang/symir/smt"
)

// evalExpr folds a linear expression strictly left to right. Every
// bit-vector addition and subtraction pushes its signed overflow
// predicate as a side condition, in evaluation order.
func (r *run) evalExpr(e *ir.Expr, expected smt.Sort) (smt.Term, error) {
	acc, err := r.evalAtom(e.First, expected)
	if err != nil {
		return nil, err
	}
	for ti := range e.Rest {
		tail := &e.Rest[ti]
		accSort := r.solver.SortOf(acc)
		rhs, err := r.evalAtom(tail.Atom, accSort)
		if err != nil {
			return nil, err
		}
		if r.solver.IsFP(accSort) {
			k := smt.FPAdd
			if tail.Op == ir.Minus {
				k = smt.FPSub
			}
			acc = smt.Make2(r.solver, k, acc, rhs)
			continue
		}
		ovf, k := smt.BVSAddOverflow, smt.BVAdd
		if tail.Op == ir.Minus {
			ovf, k = smt.BVSSubOverflow, smt.BVSub
		}
		r.pushNoUB(smt.Make2(r.solver, ovf, acc, rhs))
		acc = smt.Make2(r.solver, k, acc, rhs)
	}
	return acc, nil
}

// pushNoUB records that an overflow predicate must be false on any
// feasible path.
func (r *run) pushNoUB(overflows smt.Term) {
	r.pathConstraints = append(r.pathConstraints, smt.Make1(r.solver, smt.Not, overflows))
}

func (r *run) evalAtom(a ir.Atom, expected smt.Sort) (smt.Term, error) {
	switch at := a.(type) {
	case *ir.CoefAtom:
		return r.evalCoef(at.Coef, expected)

	case *ir.RValueAtom:
		sv, err := r.evalLValue(at.RVal)
		if err != nil {
			return nil, err
		}
		if sv.kind != scalarValue {
			return nil, errors.New("aggregate value in scalar expression")
		}
		return sv.term, nil

	case *ir.UnaryAtom:
		sv, err := r.evalLValue(at.RVal)
		if err != nil {
			return nil, err
		}
		if sv.kind != scalarValue {
			return nil, errors.New("aggregate value in scalar expression")
		}
		return smt.Make1(r.solver, smt.BVNot, sv.term), nil

	case *ir.OpAtom:
		return r.evalOpAtom(at)

	case *ir.SelectAtom:
		cond, err := r.evalCond(at.Cond)
		if err != nil {
			return nil, err
		}
		vt, err := r.evalSelectVal(at.VTrue, expected)
		if err != nil {
			return nil, err
		}
		vf, err := r.evalSelectVal(at.VFalse, r.solver.SortOf(vt))
		if err != nil {
			return nil, err
		}
		return r.solver.Make(smt.ITE, []smt.Term{cond, vt, vf}, nil), nil

	case *ir.CastAtom:
		return r.evalCast(at)
	}
	return nil, errors.New("unhandled atom")
}

// evalOpAtom lowers a binary atom. The rvalue operand is authoritative
// for the operation's sort; the undefined behaviour of each operator is
// pushed as a side condition before the result term is built.
func (r *run) evalOpAtom(at *ir.OpAtom) (smt.Term, error) {
	sv, err := r.evalLValue(at.RVal)
	if err != nil {
		return nil, err
	}
	if sv.kind != scalarValue {
		return nil, errors.New("aggregate value used as operand")
	}
	rv := sv.term
	sort := r.solver.SortOf(rv)
	coef, err := r.evalCoef(at.Coef, sort)
	if err != nil {
		return nil, err
	}

	if r.solver.IsFP(sort) {
		var k smt.Kind
		switch at.Op {
		case ir.Mul:
			k = smt.FPMul
		case ir.Div:
			k = smt.FPDiv
		case ir.Mod:
			k = smt.FPRem
		default:
			return nil, errors.Errorf("operator %s is not defined on floats", at.Op)
		}
		return smt.Make2(r.solver, k, coef, rv), nil
	}

	switch at.Op {
	case ir.Mul:
		r.pushNoUB(smt.Make2(r.solver, smt.BVSMulOverflow, coef, rv))
		return smt.Make2(r.solver, smt.BVMul, coef, rv), nil

	case ir.Div, ir.Mod:
		// Division by zero and INT_MIN / -1 are undefined.
		r.pathConstraints = append(r.pathConstraints,
			smt.Make1(r.solver, smt.Not, smt.Make2(r.solver, smt.Equal, rv, r.solver.BVZero(sort))))
		minCase := smt.Make2(r.solver, smt.And,
			smt.Make2(r.solver, smt.Equal, coef, r.solver.BVMinSigned(sort)),
			smt.Make2(r.solver, smt.Equal, rv, r.solver.BVValueInt64(sort, -1)))
		r.pathConstraints = append(r.pathConstraints, smt.Make1(r.solver, smt.Not, minCase))
		k := smt.BVSDiv
		if at.Op == ir.Mod {
			k = smt.BVSRem
		}
		return smt.Make2(r.solver, k, coef, rv), nil

	case ir.And:
		return smt.Make2(r.solver, smt.BVAnd, coef, rv), nil
	case ir.Or:
		return smt.Make2(r.solver, smt.BVOr, coef, rv), nil
	case ir.Xor:
		return smt.Make2(r.solver, smt.BVXor, coef, rv), nil

	case ir.Shl, ir.Shr, ir.LShr:
		// Shifting by the width or more is undefined.
		width := r.solver.BVValueInt64(sort, int64(r.solver.BVWidth(sort)))
		r.pathConstraints = append(r.pathConstraints,
			smt.Make2(r.solver, smt.BVUlt, rv, width))
		var k smt.Kind
		switch at.Op {
		case ir.Shl:
			k = smt.BVShl
		case ir.Shr:
			k = smt.BVAShr
		default:
			k = smt.BVShr
		}
		return smt.Make2(r.solver, k, coef, rv), nil
	}
	return nil, errors.Errorf("unhandled operator %s", at.Op)
}

// evalCoef lowers a coefficient. Literals pick up the expected sort;
// with no expectation, an integer literal is 32 bits wide and a float
// literal is an f32, matching the type checker's defaults.
func (r *run) evalCoef(coef ir.Coef, expected smt.Sort) (smt.Term, error) {
	switch cf := coef.(type) {
	case *ir.IntLit:
		if expected == nil {
			expected = r.solver.BVSort(32)
		}
		if r.solver.IsFP(expected) {
			return r.solver.FPValue(expected, float64(cf.Value), smt.RNE), nil
		}
		return r.solver.BVValueInt64(expected, cf.Value), nil

	case *ir.FloatLit:
		if expected == nil || !r.solver.IsFP(expected) {
			expected = r.solver.FPSort(8, 24)
		}
		return r.solver.FPValue(expected, cf.Value, smt.RNE), nil

	case ir.LocalID:
		sv, ok := r.store[cf.Name]
		if !ok {
			return nil, errors.Errorf("unbound local: %s", cf.Name)
		}
		if sv.kind != scalarValue {
			return nil, errors.Errorf("aggregate %s used as coefficient", cf.Name)
		}
		return sv.term, nil

	case ir.SymID:
		sv, ok := r.store[cf.Name]
		if !ok {
			return nil, errors.Errorf("unbound symbol: %s", cf.Name)
		}
		return sv.term, nil
	}
	return nil, errors.New("unhandled coefficient")
}

func (r *run) evalSelectVal(sv ir.SelectVal, expected smt.Sort) (smt.Term, error) {
	switch v := sv.(type) {
	case *ir.LValue:
		val, err := r.evalLValue(v)
		if err != nil {
			return nil, err
		}
		if val.kind != scalarValue {
			return nil, errors.New("aggregate value in select arm")
		}
		return val.term, nil
	case *ir.IntLit:
		return r.evalCoef(v, expected)
	case *ir.FloatLit:
		return r.evalCoef(v, expected)
	case ir.LocalID:
		return r.evalCoef(v, expected)
	case ir.SymID:
		return r.evalCoef(v, expected)
	}
	return nil, errors.New("unhandled select arm")
}

// evalCast lowers an "as" conversion. All conversions round to nearest,
// ties to even.
func (r *run) evalCast(at *ir.CastAtom) (smt.Term, error) {
	var src smt.Term
	var err error
	switch s := at.CastSrc.(type) {
	case *ir.IntLit:
		src, err = r.evalCoef(s, nil)
	case *ir.FloatLit:
		src, err = r.evalCoef(s, nil)
	case ir.SymID:
		src, err = r.evalCoef(s, nil)
	case *ir.LValue:
		var sv *symValue
		sv, err = r.evalLValue(s)
		if err == nil {
			if sv.kind != scalarValue {
				return nil, errors.New("aggregate value as cast source")
			}
			src = sv.term
		}
	default:
		return nil, errors.New("unhandled cast source")
	}
	if err != nil {
		return nil, err
	}

	srcSort := r.solver.SortOf(src)
	switch dst := at.DstType.(type) {
	case *ir.IntType:
		dstBits := dst.Width()
		if r.solver.IsFP(srcSort) {
			return r.solver.Make(smt.FPToSBV, []smt.Term{src}, []uint32{dstBits}), nil
		}
		srcBits := r.solver.BVWidth(srcSort)
		switch {
		case dstBits == srcBits:
			return src, nil
		case dstBits > srcBits:
			return r.solver.Make(smt.BVSignExtend, []smt.Term{src}, []uint32{dstBits - srcBits}), nil
		default:
			return r.solver.Make(smt.BVExtract, []smt.Term{src}, []uint32{dstBits - 1, 0}), nil
		}

	case *ir.FloatType:
		exp, sig := dst.Dims()
		if r.solver.IsFP(srcSort) {
			return r.solver.Make(smt.FPToFPFromFP, []smt.Term{src}, []uint32{exp, sig}), nil
		}
		return r.solver.Make(smt.FPToFPFromSBV, []smt.Term{src}, []uint32{exp, sig}), nil
	}
	return nil, errors.Errorf("cast target must be a scalar type, got %s", at.DstType)
}

// evalCond lowers a comparison. The left side's sort seeds the right
// side's literal inference. Integer comparisons are signed; float
// comparisons are ordered, with "!=" as the negation of the ordered
// equality.
func (r *run) evalCond(cond *ir.Cond) (smt.Term, error) {
	lhs, err := r.evalExpr(cond.LHS, nil)
	if err != nil {
		return nil, err
	}
	rhs, err := r.evalExpr(cond.RHS, r.solver.SortOf(lhs))
	if err != nil {
		return nil, err
	}

	if r.solver.IsFP(r.solver.SortOf(lhs)) {
		switch cond.Op {
		case ir.Eq:
			return smt.Make2(r.solver, smt.FPEqual, lhs, rhs), nil
		case ir.Ne:
			return smt.Make1(r.solver, smt.Not, smt.Make2(r.solver, smt.FPEqual, lhs, rhs)), nil
		case ir.Lt:
			return smt.Make2(r.solver, smt.FPLt, lhs, rhs), nil
		case ir.Le:
			return smt.Make2(r.solver, smt.FPLeq, lhs, rhs), nil
		case ir.Gt:
			return smt.Make2(r.solver, smt.FPGt, lhs, rhs), nil
		case ir.Ge:
			return smt.Make2(r.solver, smt.FPGeq, lhs, rhs), nil
		}
		return nil, errors.New("unhandled float comparison")
	}

	var k smt.Kind
	switch cond.Op {
	case ir.Eq:
		k = smt.Equal
	case ir.Ne:
		k = smt.Distinct
	case ir.Lt:
		k = smt.BVSlt
	case ir.Le:
		k = smt.BVSle
	case ir.Gt:
		k = smt.BVSgt
	case ir.Ge:
		k = smt.BVSge
	default:
		return nil, errors.New("unhandled comparison")
	}
	return smt.Make2(r.solver, k, lhs, rhs), nil
}
