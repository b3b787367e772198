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

package smtlib

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/symir-lang/symir/smt"
)

func sortString(st *sort) string {
	switch st.kind {
	case boolSort:
		return "Bool"
	case bvSort:
		return fmt.Sprintf("(_ BitVec %d)", st.width)
	}
	return fmt.Sprintf("(_ FloatingPoint %d %d)", st.exp, st.sig)
}

func rmString(rm smt.RoundingMode) string {
	switch rm {
	case smt.RNE:
		return "RNE"
	case smt.RNA:
		return "RNA"
	case smt.RTP:
		return "RTP"
	case smt.RTN:
		return "RTN"
	case smt.RTZ:
		return "RTZ"
	}
	return "RNE"
}

// realString renders a float as an SMT-LIB real literal, which must not
// use exponent notation.
func realString(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	if neg, ok := strings.CutPrefix(s, "-"); ok {
		return fmt.Sprintf("(- %s)", neg)
	}
	return s
}

// fpBits returns the IEEE-754 bit pattern of v in the (8,24) or (11,53)
// format. Other formats fall back to a to_fp conversion from a real.
func fpBits(st *sort, v float64) (bits uint64, width uint32, ok bool) {
	switch {
	case st.exp == 8 && st.sig == 24:
		return uint64(math.Float32bits(float32(v))), 32, true
	case st.exp == 11 && st.sig == 53:
		return math.Float64bits(v), 64, true
	}
	return 0, 0, false
}

// fpLiteral renders a bit pattern as an (fp sign exp sig) literal.
func fpLiteral(bits uint64, st *sort, width uint32) string {
	sigBits := st.sig - 1
	sign := (bits >> (width - 1)) & 1
	exp := (bits >> sigBits) & ((1 << st.exp) - 1)
	sig := bits & ((1 << sigBits) - 1)
	return fmt.Sprintf("(fp #b%d #b%0*b #b%0*b)", sign, st.exp, exp, sigBits, sig)
}

// ops maps simple kinds to their SMT-LIB operator. FP arithmetic kinds
// take a rounding mode first and are rendered from fpArith, which Make
// consults before ops; the indexed and the rewritten kinds are rendered
// separately.
var ops = map[smt.Kind]string{
	smt.BVAdd:  "bvadd",
	smt.BVSub:  "bvsub",
	smt.BVMul:  "bvmul",
	smt.BVSDiv: "bvsdiv",
	smt.BVUDiv: "bvudiv",
	smt.BVSRem: "bvsrem",
	smt.BVURem: "bvurem",
	smt.BVAnd:  "bvand",
	smt.BVOr:   "bvor",
	smt.BVXor:  "bvxor",
	smt.BVNot:  "bvnot",
	smt.BVShl:  "bvshl",
	smt.BVAShr: "bvashr",
	smt.BVShr:  "bvlshr",
	smt.BVNeg:  "bvneg",

	smt.BVSlt: "bvslt",
	smt.BVSle: "bvsle",
	smt.BVSgt: "bvsgt",
	smt.BVSge: "bvsge",
	smt.BVUlt: "bvult",
	smt.BVUle: "bvule",
	smt.BVUgt: "bvugt",
	smt.BVUge: "bvuge",

	smt.Equal:    "=",
	smt.Distinct: "distinct",

	smt.ITE:     "ite",
	smt.And:     "and",
	smt.Or:      "or",
	smt.Not:     "not",
	smt.Implies: "=>",

	smt.FPSqrt: "fp.sqrt",
	smt.FPRti:  "fp.roundToIntegral",
	smt.FPMin:  "fp.min",
	smt.FPMax:  "fp.max",

	smt.FPEqual: "fp.eq",
	smt.FPLt:    "fp.lt",
	smt.FPLeq:   "fp.leq",
	smt.FPGt:    "fp.gt",
	smt.FPGeq:   "fp.geq",

	smt.BVConcat: "concat",
}

// fpArith maps the FP arithmetic kinds that take a rounding mode.
var fpArith = map[smt.Kind]string{
	smt.FPAdd: "fp.add",
	smt.FPSub: "fp.sub",
	smt.FPMul: "fp.mul",
	smt.FPDiv:  "fp.div",
	smt.FPSqrt: "fp.sqrt",
	smt.FPRti:  "fp.roundToIntegral",
}

// boolResult marks the kinds whose result sort is Bool.
var boolResult = map[smt.Kind]bool{
	smt.BVSlt: true, smt.BVSle: true, smt.BVSgt: true, smt.BVSge: true,
	smt.BVUlt: true, smt.BVUle: true, smt.BVUgt: true, smt.BVUge: true,
	smt.Equal: true, smt.Distinct: true,
	smt.And: true, smt.Or: true, smt.Not: true, smt.Implies: true,
	smt.FPEqual: true, smt.FPLt: true, smt.FPLeq: true, smt.FPGt: true, smt.FPGeq: true,
	smt.BVSAddOverflow: true, smt.BVSSubOverflow: true, smt.BVSMulOverflow: true,
}

// Make builds an operation term, threading RNE through the FP
// arithmetic operators and rewriting the signed overflow predicates,
// which SMT-LIB2 does not provide, into their widening encodings.
func (s *Solver) Make(k smt.Kind, args []smt.Term, indices []uint32) smt.Term {
	switch k {
	case smt.BVSAddOverflow:
		return s.overflowByWidening("bvadd", 1, args)
	case smt.BVSSubOverflow:
		return s.overflowByWidening("bvsub", 1, args)
	case smt.BVSMulOverflow:
		a := args[0].(*term)
		return s.overflowByWidening("bvmul", a.sort.width, args)
	}

	texpr := make([]string, len(args))
	for i, a := range args {
		texpr[i] = a.(*term).sexpr
	}
	joined := strings.Join(texpr, " ")

	switch k {
	case smt.FPToSBV:
		return &term{
			sexpr: fmt.Sprintf("((_ fp.to_sbv %d) RNE %s)", indices[0], joined),
			sort:  &sort{kind: bvSort, width: indices[0]},
		}
	case smt.FPToUBV:
		return &term{
			sexpr: fmt.Sprintf("((_ fp.to_ubv %d) RNE %s)", indices[0], joined),
			sort:  &sort{kind: bvSort, width: indices[0]},
		}
	case smt.FPToFPFromFP, smt.FPToFPFromSBV:
		return &term{
			sexpr: fmt.Sprintf("((_ to_fp %d %d) RNE %s)", indices[0], indices[1], joined),
			sort:  &sort{kind: fpSort, exp: indices[0], sig: indices[1]},
		}
	case smt.FPToFPFromUBV:
		return &term{
			sexpr: fmt.Sprintf("((_ to_fp_unsigned %d %d) RNE %s)", indices[0], indices[1], joined),
			sort:  &sort{kind: fpSort, exp: indices[0], sig: indices[1]},
		}
	case smt.BVSignExtend, smt.BVZeroExtend:
		op := "sign_extend"
		if k == smt.BVZeroExtend {
			op = "zero_extend"
		}
		a := args[0].(*term)
		return &term{
			sexpr: fmt.Sprintf("((_ %s %d) %s)", op, indices[0], joined),
			sort:  &sort{kind: bvSort, width: a.sort.width + indices[0]},
		}
	case smt.BVExtract:
		return &term{
			sexpr: fmt.Sprintf("((_ extract %d %d) %s)", indices[0], indices[1], joined),
			sort:  &sort{kind: bvSort, width: indices[0] - indices[1] + 1},
		}
	case smt.BVConcat:
		a, b := args[0].(*term), args[1].(*term)
		return &term{
			sexpr: fmt.Sprintf("(concat %s)", joined),
			sort:  &sort{kind: bvSort, width: a.sort.width + b.sort.width},
		}
	case smt.FPRem:
		// fp.rem takes no rounding mode.
		return &term{
			sexpr: fmt.Sprintf("(fp.rem %s)", joined),
			sort:  args[0].(*term).sort,
		}
	}

	if op, ok := fpArith[k]; ok {
		return &term{
			sexpr: fmt.Sprintf("(%s RNE %s)", op, joined),
			sort:  args[0].(*term).sort,
		}
	}

	op, ok := ops[k]
	if !ok {
		// Unreachable on the kinds the executor emits.
		op = fmt.Sprintf("unknown-kind-%d", int(k))
	}
	rsort := args[0].(*term).sort
	if k == smt.ITE {
		rsort = args[1].(*term).sort
	}
	if boolResult[k] {
		rsort = &sort{kind: boolSort}
	}
	return &term{sexpr: fmt.Sprintf("(%s %s)", op, joined), sort: rsort}
}

// overflowByWidening encodes a signed overflow predicate: the operation
// overflows iff sign-extending its width-w result disagrees with
// performing it at width w+extra. One extra bit suffices for addition
// and subtraction; multiplication doubles the width.
func (s *Solver) overflowByWidening(op string, extra uint32, args []smt.Term) smt.Term {
	a, b := args[0].(*term), args[1].(*term)
	wide := func(t *term) string {
		return fmt.Sprintf("((_ sign_extend %d) %s)", extra, t.sexpr)
	}
	narrow := fmt.Sprintf("((_ sign_extend %d) (%s %s %s))", extra, op, a.sexpr, b.sexpr)
	exact := fmt.Sprintf("(%s %s %s)", op, wide(a), wide(b))
	return &term{
		sexpr: fmt.Sprintf("(distinct %s %s)", narrow, exact),
		sort:  &sort{kind: boolSort},
	}
}
