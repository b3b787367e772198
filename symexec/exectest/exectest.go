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

// Package exectest provides an smt.Solver for tests that evaluates
// terms concretely instead of solving.
//
// A test supplies candidate assignments for the free constants;
// CheckSat picks the first candidate under which every asserted formula
// evaluates to true, and reports Unsat when none does. This checks the
// executor's whole encoding, constraints and model extraction included,
// without an external solver process.
package exectest

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/smt"
)

// Assignment maps a constant's declared name to an int64 or float64.
// Constants absent from the assignment evaluate to zero.
type Assignment map[string]any

// Solver evaluates terms under candidate assignments.
type Solver struct {
	candidates []Assignment
	asserts    []*term
	model      Assignment
	checked    bool

	// Asserted records every asserted formula, for tests inspecting
	// the emitted constraints.
	Asserted []smt.Term
}

var _ smt.Solver = (*Solver)(nil)

// New returns a solver that will try the given assignments in order.
func New(candidates ...Assignment) *Solver {
	return &Solver{candidates: candidates}
}

type (
	sort struct {
		bv       bool
		fp       bool
		width    uint32
		exp, sig uint32
	}

	term struct {
		kind    smt.Kind
		sort    *sort
		args    []*term
		indices []uint32

		isConst  bool
		name     string
		isValue  bool
		ival     int64
		fval     float64
		bval     bool
		isBool   bool
		hasValue bool
	}
)

func (*sort) sort() {}
func (*term) term() {}

// BVSort returns the bit-vector sort of the given width.
func (s *Solver) BVSort(width uint32) smt.Sort { return &sort{bv: true, width: width} }

// FPSort returns a float sort.
func (s *Solver) FPSort(exp, sig uint32) smt.Sort { return &sort{fp: true, exp: exp, sig: sig} }

// BoolSort returns the Boolean sort.
func (s *Solver) BoolSort() smt.Sort { return &sort{} }

// IsBV reports whether the sort is a bit-vector sort.
func (s *Solver) IsBV(so smt.Sort) bool { return so.(*sort).bv }

// IsFP reports whether the sort is a float sort.
func (s *Solver) IsFP(so smt.Sort) bool { return so.(*sort).fp }

// IsBool reports whether the sort is the Boolean sort.
func (s *Solver) IsBool(so smt.Sort) bool {
	st := so.(*sort)
	return !st.bv && !st.fp
}

// BVWidth returns the width of a bit-vector sort.
func (s *Solver) BVWidth(so smt.Sort) uint32 { return so.(*sort).width }

// FPDims returns the dimensions of a float sort.
func (s *Solver) FPDims(so smt.Sort) (uint32, uint32) {
	st := so.(*sort)
	return st.exp, st.sig
}

// True returns the true constant.
func (s *Solver) True() smt.Term { return &term{sort: &sort{}, isValue: true, bval: true, isBool: true} }

// False returns the false constant.
func (s *Solver) False() smt.Term { return &term{sort: &sort{}, isValue: true, isBool: true} }

// BVValue builds a bit-vector constant from a decimal string.
func (s *Solver) BVValue(so smt.Sort, dec string) smt.Term {
	var v int64
	fmt.Sscanf(dec, "%d", &v)
	return s.BVValueInt64(so, v)
}

// BVValueInt64 builds a bit-vector constant.
func (s *Solver) BVValueInt64(so smt.Sort, v int64) smt.Term {
	st := so.(*sort)
	return &term{sort: st, isValue: true, ival: canonical(v, st.width)}
}

// BVZero returns zero.
func (s *Solver) BVZero(so smt.Sort) smt.Term { return s.BVValueInt64(so, 0) }

// BVOne returns one.
func (s *Solver) BVOne(so smt.Sort) smt.Term { return s.BVValueInt64(so, 1) }

// BVMinSigned returns the smallest signed value.
func (s *Solver) BVMinSigned(so smt.Sort) smt.Term {
	return s.BVValueInt64(so, minSigned(so.(*sort).width))
}

// BVMaxSigned returns the largest signed value.
func (s *Solver) BVMaxSigned(so smt.Sort) smt.Term {
	return s.BVValueInt64(so, maxSigned(so.(*sort).width))
}

// FPValue builds a float constant.
func (s *Solver) FPValue(so smt.Sort, v float64, rm smt.RoundingMode) smt.Term {
	st := so.(*sort)
	return &term{sort: st, isValue: true, fval: narrow(v, st)}
}

// Const declares a free constant looked up in the assignment by name.
func (s *Solver) Const(so smt.Sort, name string) smt.Term {
	return &term{sort: so.(*sort), isConst: true, name: name}
}

// Make builds an operation term.
func (s *Solver) Make(k smt.Kind, args []smt.Term, indices []uint32) smt.Term {
	targs := make([]*term, len(args))
	for i, a := range args {
		targs[i] = a.(*term)
	}
	return &term{kind: k, sort: resultSort(k, targs, indices), args: targs, indices: indices}
}

// SortOf returns the sort of a term.
func (s *Solver) SortOf(t smt.Term) smt.Sort { return t.(*term).sort }

// Assert queues a formula.
func (s *Solver) Assert(t smt.Term) {
	s.asserts = append(s.asserts, t.(*term))
	s.Asserted = append(s.Asserted, t)
}

// CheckSat tries each candidate assignment against the asserted
// formulas.
func (s *Solver) CheckSat() (smt.Result, error) {
	for _, cand := range s.candidates {
		ok := true
		for _, a := range s.asserts {
			v, err := eval(a, cand)
			if err != nil {
				return smt.Unknown, err
			}
			if !v.bval {
				ok = false
				break
			}
		}
		if ok {
			s.model = cand
			s.checked = true
			return smt.Sat, nil
		}
	}
	s.checked = true
	return smt.Unsat, nil
}

// Satisfies evaluates every asserted formula under one assignment,
// without affecting the model. Tests use it to probe the encoding.
func (s *Solver) Satisfies(cand Assignment) (bool, error) {
	for _, a := range s.asserts {
		v, err := eval(a, cand)
		if err != nil {
			return false, err
		}
		if !v.bval {
			return false, nil
		}
	}
	return true, nil
}

// Value evaluates a term under the chosen model.
func (s *Solver) Value(t smt.Term) (smt.Term, error) {
	if s.model == nil {
		return nil, errors.New("no model")
	}
	v, err := eval(t.(*term), s.model)
	if err != nil {
		return nil, err
	}
	tt := t.(*term)
	return &term{sort: tt.sort, isValue: true, hasValue: true, ival: v.ival, fval: v.fval, bval: v.bval}, nil
}

// BVValueString renders a model constant; base 10 is the signed
// decimal.
func (s *Solver) BVValueString(t smt.Term, base int) (string, error) {
	tt := t.(*term)
	if base != 10 {
		return "", errors.Errorf("unsupported base: %d", base)
	}
	return fmt.Sprintf("%d", tt.ival), nil
}

// FPValueString renders a model constant as its IEEE bit string.
func (s *Solver) FPValueString(t smt.Term) (string, error) {
	tt := t.(*term)
	width := tt.sort.exp + tt.sort.sig
	if width == 32 {
		return fmt.Sprintf("%032b", math.Float32bits(float32(tt.fval))), nil
	}
	return fmt.Sprintf("%064b", math.Float64bits(tt.fval)), nil
}

// Close implements smt.Solver.
func (s *Solver) Close() error { return nil }

func canonical(v int64, bits uint32) int64 {
	if bits >= 64 {
		return v
	}
	shift := 64 - bits
	return v << shift >> shift
}

func minSigned(bits uint32) int64 {
	if bits >= 64 {
		return math.MinInt64
	}
	return -(int64(1) << (bits - 1))
}

func maxSigned(bits uint32) int64 {
	if bits >= 64 {
		return math.MaxInt64
	}
	return (int64(1) << (bits - 1)) - 1
}

func narrow(v float64, st *sort) float64 {
	if st.exp == 8 {
		return float64(float32(v))
	}
	return v
}

func resultSort(k smt.Kind, args []*term, indices []uint32) *sort {
	switch k {
	case smt.BVSlt, smt.BVSle, smt.BVSgt, smt.BVSge,
		smt.BVUlt, smt.BVUle, smt.BVUgt, smt.BVUge,
		smt.Equal, smt.Distinct, smt.And, smt.Or, smt.Not, smt.Implies,
		smt.FPEqual, smt.FPLt, smt.FPLeq, smt.FPGt, smt.FPGeq,
		smt.BVSAddOverflow, smt.BVSSubOverflow, smt.BVSMulOverflow:
		return &sort{}
	case smt.ITE:
		return args[1].sort
	case smt.FPToSBV, smt.FPToUBV:
		return &sort{bv: true, width: indices[0]}
	case smt.FPToFPFromFP, smt.FPToFPFromSBV, smt.FPToFPFromUBV:
		return &sort{fp: true, exp: indices[0], sig: indices[1]}
	case smt.BVSignExtend, smt.BVZeroExtend:
		return &sort{bv: true, width: args[0].sort.width + indices[0]}
	case smt.BVExtract:
		return &sort{bv: true, width: indices[0] - indices[1] + 1}
	case smt.BVConcat:
		return &sort{bv: true, width: args[0].sort.width + args[1].sort.width}
	}
	return args[0].sort
}
