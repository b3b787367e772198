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
	"os/exec"
	"testing"
	"time"

	"github.com/symir-lang/symir/smt"
)

func sexprOf(t smt.Term) string { return t.(*term).sexpr }

func TestTermRendering(t *testing.T) {
	s := New(Config{})
	bv32 := s.BVSort(32)
	a := s.Const(bv32, "%?a")
	b := s.BVValueInt64(bv32, -1)

	tests := []struct {
		name string
		term smt.Term
		want string
	}{
		{name: "const is quoted and uniquified", term: a, want: "|%?a|"},
		{name: "negative value wraps", term: b, want: "(_ bv4294967295 32)"},
		{
			name: "add",
			term: smt.Make2(s, smt.BVAdd, a, b),
			want: "(bvadd |%?a| (_ bv4294967295 32))",
		},
		{
			name: "signed comparison",
			term: smt.Make2(s, smt.BVSlt, a, b),
			want: "(bvslt |%?a| (_ bv4294967295 32))",
		},
		{
			name: "ite",
			term: s.Make(smt.ITE, []smt.Term{s.True(), a, b}, nil),
			want: "(ite true |%?a| (_ bv4294967295 32))",
		},
		{
			name: "sign extend",
			term: s.Make(smt.BVSignExtend, []smt.Term{a}, []uint32{32}),
			want: "((_ sign_extend 32) |%?a|)",
		},
		{
			name: "extract",
			term: s.Make(smt.BVExtract, []smt.Term{a}, []uint32{7, 0}),
			want: "((_ extract 7 0) |%?a|)",
		},
		{
			name: "min signed",
			term: s.BVMinSigned(bv32),
			want: "(_ bv2147483648 32)",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := sexprOf(test.term); got != test.want {
				t.Errorf("got %s, want %s", got, test.want)
			}
		})
	}
}

func TestTermSorts(t *testing.T) {
	s := New(Config{})
	bv32 := s.BVSort(32)
	a := s.Const(bv32, "a")

	ext := s.Make(smt.BVSignExtend, []smt.Term{a}, []uint32{32})
	if w := s.BVWidth(s.SortOf(ext)); w != 64 {
		t.Errorf("sign-extended width = %d, want 64", w)
	}
	extr := s.Make(smt.BVExtract, []smt.Term{a}, []uint32{7, 0})
	if w := s.BVWidth(s.SortOf(extr)); w != 8 {
		t.Errorf("extracted width = %d, want 8", w)
	}
	cmp := smt.Make2(s, smt.BVSle, a, a)
	if !s.IsBool(s.SortOf(cmp)) {
		t.Error("comparison sort is not Bool")
	}
	conv := s.Make(smt.FPToFPFromSBV, []smt.Term{a}, []uint32{11, 53})
	if !s.IsFP(s.SortOf(conv)) {
		t.Error("conversion sort is not FP")
	}
}

func TestOverflowEncodings(t *testing.T) {
	s := New(Config{})
	bv8 := s.BVSort(8)
	a := s.Const(bv8, "a")
	b := s.Const(bv8, "b")

	add := s.Make(smt.BVSAddOverflow, []smt.Term{a, b}, nil)
	want := "(distinct ((_ sign_extend 1) (bvadd |a| |b|)) (bvadd ((_ sign_extend 1) |a|) ((_ sign_extend 1) |b|)))"
	if got := sexprOf(add); got != want {
		t.Errorf("add overflow:\ngot  %s\nwant %s", got, want)
	}
	if !s.IsBool(s.SortOf(add)) {
		t.Error("overflow predicate sort is not Bool")
	}

	mul := s.Make(smt.BVSMulOverflow, []smt.Term{a, b}, nil)
	wantMul := "(distinct ((_ sign_extend 8) (bvmul |a| |b|)) (bvmul ((_ sign_extend 8) |a|) ((_ sign_extend 8) |b|)))"
	if got := sexprOf(mul); got != wantMul {
		t.Errorf("mul overflow:\ngot  %s\nwant %s", got, wantMul)
	}
}

func TestFPRendering(t *testing.T) {
	s := New(Config{})
	f32 := s.FPSort(8, 24)
	f64 := s.FPSort(11, 53)

	one := s.FPValue(f32, 1.0, smt.RNE)
	if got := sexprOf(one); got != "(fp #b0 #b01111111 #b00000000000000000000000)" {
		t.Errorf("f32 1.0 = %s", got)
	}
	x := s.Const(f64, "x")
	sum := smt.Make2(s, smt.FPAdd, x, x)
	if got := sexprOf(sum); got != "(fp.add RNE |x| |x|)" {
		t.Errorf("fp.add = %s", got)
	}
	conv := s.Make(smt.FPToSBV, []smt.Term{x}, []uint32{32})
	if got := sexprOf(conv); got != "((_ fp.to_sbv 32) RNE |x|)" {
		t.Errorf("fp.to_sbv = %s", got)
	}
	rem := smt.Make2(s, smt.FPRem, x, x)
	if got := sexprOf(rem); got != "(fp.rem |x| |x|)" {
		t.Errorf("fp.rem = %s", got)
	}
}

func TestParseModelValue(t *testing.T) {
	bv32 := &sort{kind: bvSort, width: 32}
	f32 := &sort{kind: fpSort, exp: 8, sig: 24}

	tests := []struct {
		name string
		resp string
		sort *sort
		want uint64
	}{
		{name: "hex", resp: "((x #x0000000e))", sort: bv32, want: 14},
		{name: "binary", resp: "((x #b1110))", sort: bv32, want: 14},
		{name: "bv literal", resp: "((x (_ bv14 32)))", sort: bv32, want: 14},
		{name: "quoted symbol", resp: "((|%?k!0| #x0000000e))", sort: bv32, want: 14},
		{name: "multiline", resp: "((x\n  #x0000000e))", sort: bv32, want: 14},
		{
			name: "fp triple",
			resp: "((x (fp #b0 #b01111111 #b00000000000000000000000)))",
			sort: f32,
			want: 0x3f800000,
		},
		{name: "plus zero", resp: "((x (_ +zero 8 24)))", sort: f32, want: 0},
		{name: "minus zero", resp: "((x (_ -zero 8 24)))", sort: f32, want: 0x80000000},
		{name: "plus inf", resp: "((x (_ +oo 8 24)))", sort: f32, want: 0x7f800000},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := parseModelValue(test.resp, test.sort)
			if err != nil {
				t.Fatalf("parseModelValue: %v", err)
			}
			if got != test.want {
				t.Errorf("bits = %#x, want %#x", got, test.want)
			}
		})
	}

	if _, err := parseModelValue("garbage", bv32); err == nil {
		t.Error("malformed response: no error")
	}
}

func TestModelStrings(t *testing.T) {
	s := New(Config{})
	neg := &term{sort: &sort{kind: bvSort, width: 8}, bits: 0xff, isModel: true}
	dec, err := s.BVValueString(neg, 10)
	if err != nil || dec != "-1" {
		t.Errorf("BVValueString(0xff, 10) = %q, %v; want -1", dec, err)
	}
	hex, err := s.BVValueString(neg, 16)
	if err != nil || hex != "ff" {
		t.Errorf("BVValueString(0xff, 16) = %q, %v", hex, err)
	}
	fp := &term{sort: &sort{kind: fpSort, exp: 8, sig: 24}, bits: 0x3f800000, isModel: true}
	bin, err := s.FPValueString(fp)
	if err != nil || bin != "00111111100000000000000000000000" {
		t.Errorf("FPValueString = %q, %v", bin, err)
	}
}

// TestAgainstZ3 exercises the subprocess path when a solver binary is
// available on the host.
func TestAgainstZ3(t *testing.T) {
	if _, err := exec.LookPath("z3"); err != nil {
		t.Skip("z3 not installed")
	}
	s := New(Config{Timeout: 10 * time.Second})
	defer s.Close()

	bv32 := s.BVSort(32)
	k := s.Const(bv32, "%?k")
	three := s.BVValueInt64(bv32, 3)
	s.Assert(smt.Make2(s, smt.Equal,
		smt.Make2(s, smt.BVMul, k, three),
		s.BVValueInt64(bv32, 42)))

	res, err := s.CheckSat()
	if err != nil {
		t.Fatalf("CheckSat: %v", err)
	}
	if res != smt.Sat {
		t.Fatalf("result = %s, want SAT", res)
	}
	v, err := s.Value(k)
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	dec, err := s.BVValueString(v, 10)
	if err != nil {
		t.Fatalf("BVValueString: %v", err)
	}
	if dec != "14" {
		t.Errorf("%%?k = %s, want 14", dec)
	}
}
