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

package exectest

import (
	"math"
	"math/big"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/smt"
)

// val is a concrete term value during evaluation.
type val struct {
	ival int64
	fval float64
	bval bool
}

func eval(t *term, asg Assignment) (val, error) {
	if t.isValue || t.hasValue {
		return val{ival: t.ival, fval: t.fval, bval: t.bval}, nil
	}
	if t.isConst {
		switch v := asg[t.name].(type) {
		case nil:
			return val{}, nil
		case int64:
			if t.sort.fp {
				return val{fval: narrow(float64(v), t.sort)}, nil
			}
			return val{ival: canonical(v, t.sort.width)}, nil
		case int:
			if t.sort.fp {
				return val{fval: narrow(float64(v), t.sort)}, nil
			}
			return val{ival: canonical(int64(v), t.sort.width)}, nil
		case float64:
			return val{fval: narrow(v, t.sort)}, nil
		case bool:
			return val{bval: v}, nil
		}
		return val{}, errors.Errorf("unsupported assignment value for %s", t.name)
	}

	args := make([]val, len(t.args))
	for i, a := range t.args {
		v, err := eval(a, asg)
		if err != nil {
			return val{}, err
		}
		args[i] = v
	}

	argSort := &sort{}
	if len(t.args) > 0 {
		argSort = t.args[0].sort
	}
	w := argSort.width

	bv := func(v int64) val { return val{ival: canonical(v, w)} }
	fp := func(v float64) val { return val{fval: narrow(v, argSort)} }
	b := func(v bool) val { return val{bval: v} }

	switch t.kind {
	case smt.BVAdd:
		return bv(args[0].ival + args[1].ival), nil
	case smt.BVSub:
		return bv(args[0].ival - args[1].ival), nil
	case smt.BVMul:
		return bv(args[0].ival * args[1].ival), nil
	case smt.BVSDiv:
		if args[1].ival == 0 {
			return bv(-1), nil
		}
		return bv(args[0].ival / args[1].ival), nil
	case smt.BVSRem:
		if args[1].ival == 0 {
			return bv(args[0].ival), nil
		}
		return bv(args[0].ival % args[1].ival), nil
	case smt.BVUDiv:
		if args[1].ival == 0 {
			return bv(-1), nil
		}
		return bv(int64(unsignedOf(args[0].ival, w) / unsignedOf(args[1].ival, w))), nil
	case smt.BVURem:
		if args[1].ival == 0 {
			return bv(args[0].ival), nil
		}
		return bv(int64(unsignedOf(args[0].ival, w) % unsignedOf(args[1].ival, w))), nil
	case smt.BVAnd:
		return bv(args[0].ival & args[1].ival), nil
	case smt.BVOr:
		return bv(args[0].ival | args[1].ival), nil
	case smt.BVXor:
		return bv(args[0].ival ^ args[1].ival), nil
	case smt.BVNot:
		return bv(^args[0].ival), nil
	case smt.BVNeg:
		return bv(-args[0].ival), nil
	case smt.BVShl:
		sh := unsignedOf(args[1].ival, w)
		if sh >= uint64(w) {
			return bv(0), nil
		}
		return bv(args[0].ival << sh), nil
	case smt.BVAShr:
		sh := unsignedOf(args[1].ival, w)
		if sh >= uint64(w) {
			sh = uint64(w) - 1
		}
		return bv(args[0].ival >> sh), nil
	case smt.BVShr:
		sh := unsignedOf(args[1].ival, w)
		if sh >= uint64(w) {
			return bv(0), nil
		}
		return bv(int64(unsignedOf(args[0].ival, w) >> sh)), nil

	case smt.BVSlt:
		return b(args[0].ival < args[1].ival), nil
	case smt.BVSle:
		return b(args[0].ival <= args[1].ival), nil
	case smt.BVSgt:
		return b(args[0].ival > args[1].ival), nil
	case smt.BVSge:
		return b(args[0].ival >= args[1].ival), nil
	case smt.BVUlt:
		return b(unsignedOf(args[0].ival, w) < unsignedOf(args[1].ival, w)), nil
	case smt.BVUle:
		return b(unsignedOf(args[0].ival, w) <= unsignedOf(args[1].ival, w)), nil
	case smt.BVUgt:
		return b(unsignedOf(args[0].ival, w) > unsignedOf(args[1].ival, w)), nil
	case smt.BVUge:
		return b(unsignedOf(args[0].ival, w) >= unsignedOf(args[1].ival, w)), nil

	case smt.Equal:
		if argSort.fp {
			return b(args[0].fval == args[1].fval), nil
		}
		if argSort.bv {
			return b(args[0].ival == args[1].ival), nil
		}
		return b(args[0].bval == args[1].bval), nil
	case smt.Distinct:
		if argSort.fp {
			return b(args[0].fval != args[1].fval), nil
		}
		if argSort.bv {
			return b(args[0].ival != args[1].ival), nil
		}
		return b(args[0].bval != args[1].bval), nil

	case smt.ITE:
		if args[0].bval {
			return args[1], nil
		}
		return args[2], nil
	case smt.And:
		return b(args[0].bval && args[1].bval), nil
	case smt.Or:
		return b(args[0].bval || args[1].bval), nil
	case smt.Not:
		return b(!args[0].bval), nil
	case smt.Implies:
		return b(!args[0].bval || args[1].bval), nil

	case smt.FPAdd:
		return fp(args[0].fval + args[1].fval), nil
	case smt.FPSub:
		return fp(args[0].fval - args[1].fval), nil
	case smt.FPMul:
		return fp(args[0].fval * args[1].fval), nil
	case smt.FPDiv:
		return fp(args[0].fval / args[1].fval), nil
	case smt.FPRem:
		return fp(math.Remainder(args[0].fval, args[1].fval)), nil
	case smt.FPSqrt:
		return fp(math.Sqrt(args[0].fval)), nil
	case smt.FPMin:
		return fp(math.Min(args[0].fval, args[1].fval)), nil
	case smt.FPMax:
		return fp(math.Max(args[0].fval, args[1].fval)), nil

	case smt.FPEqual:
		return b(args[0].fval == args[1].fval), nil
	case smt.FPLt:
		return b(args[0].fval < args[1].fval), nil
	case smt.FPLeq:
		return b(args[0].fval <= args[1].fval), nil
	case smt.FPGt:
		return b(args[0].fval > args[1].fval), nil
	case smt.FPGeq:
		return b(args[0].fval >= args[1].fval), nil

	case smt.FPToSBV:
		return val{ival: canonical(int64(math.RoundToEven(args[0].fval)), t.sort.width)}, nil
	case smt.FPToFPFromFP, smt.FPToFPFromSBV:
		src := args[0].fval
		if t.kind == smt.FPToFPFromSBV {
			src = float64(args[0].ival)
		}
		return val{fval: narrow(src, t.sort)}, nil

	case smt.BVSignExtend:
		return val{ival: args[0].ival}, nil
	case smt.BVZeroExtend:
		return val{ival: int64(unsignedOf(args[0].ival, w))}, nil
	case smt.BVExtract:
		hi, lo := t.indices[0], t.indices[1]
		u := unsignedOf(args[0].ival, w) >> lo
		return val{ival: canonical(int64(u), hi-lo+1)}, nil
	case smt.BVConcat:
		lowW := t.args[1].sort.width
		u := unsignedOf(args[0].ival, w)<<lowW | unsignedOf(args[1].ival, lowW)
		return val{ival: canonical(int64(u), t.sort.width)}, nil

	case smt.BVSAddOverflow:
		return b(addOverflows(args[0].ival, args[1].ival, w, false)), nil
	case smt.BVSSubOverflow:
		return b(addOverflows(args[0].ival, args[1].ival, w, true)), nil
	case smt.BVSMulOverflow:
		return b(mulOverflows(args[0].ival, args[1].ival, w)), nil
	}
	return val{}, errors.Errorf("unhandled kind %d", int(t.kind))
}

func unsignedOf(v int64, bits uint32) uint64 {
	u := uint64(v)
	if bits < 64 {
		u &= (uint64(1) << bits) - 1
	}
	return u
}

func addOverflows(a, c int64, bits uint32, sub bool) bool {
	x := big.NewInt(a)
	y := big.NewInt(c)
	var z big.Int
	if sub {
		z.Sub(x, y)
	} else {
		z.Add(x, y)
	}
	return z.Cmp(big.NewInt(minSigned(bits))) < 0 || z.Cmp(big.NewInt(maxSigned(bits))) > 0
}

func mulOverflows(a, c int64, bits uint32) bool {
	x := big.NewInt(a)
	y := big.NewInt(c)
	var z big.Int
	z.Mul(x, y)
	return z.Cmp(big.NewInt(minSigned(bits))) < 0 || z.Cmp(big.NewInt(maxSigned(bits))) > 0
}
