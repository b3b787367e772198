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

package interp_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/symir-lang/symir/build/parser"
	"github.com/symir-lang/symir/interp"
)

func runProgram(t *testing.T, src, fun string, args []interp.Value, syms map[string]interp.Value) (*interp.Outcome, error) {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return interp.New(prog, interp.Config{}).Run(fun, args, syms)
}

func mustRun(t *testing.T, src, fun string, args []interp.Value, syms map[string]interp.Value) *interp.Outcome {
	t.Helper()
	out, err := runProgram(t, src, fun, args, syms)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out
}

func TestRunStraightLine(t *testing.T) {
	src := `
fun @g(): i32 {
  let mut %x: i32 = 5;
^entry:
  %x = %x + 3;
  ret 2 * %x;
}`
	out := mustRun(t, src, "@g", nil, nil)
	if !out.HasRet || out.Ret.I != 16 {
		t.Errorf("ret = %v, want 16", out.Ret)
	}
}

func TestRunBranching(t *testing.T) {
	src := `
fun @abs(%v: i32): i32 {
  let mut %r: i32 = 0;
^entry:
  br %v < 0, ^neg, ^pos;
^neg:
  %r = 0 - %v;
  br ^done;
^pos:
  %r = %v;
  br ^done;
^done:
  ret %r;
}`
	tests := []struct {
		arg      int64
		want     int64
		wantPath []string
	}{
		{arg: -4, want: 4, wantPath: []string{"^entry", "^neg", "^done"}},
		{arg: 9, want: 9, wantPath: []string{"^entry", "^pos", "^done"}},
	}
	for _, test := range tests {
		out := mustRun(t, src, "@abs", []interp.Value{interp.IntValue(test.arg, 32)}, nil)
		if out.Ret.I != test.want {
			t.Errorf("@abs(%d) = %d, want %d", test.arg, out.Ret.I, test.want)
		}
		if diff := cmp.Diff(test.wantPath, out.Path); diff != "" {
			t.Errorf("@abs(%d) path mismatch (-want +got):\n%s", test.arg, diff)
		}
	}
}

func TestRunLoop(t *testing.T) {
	src := `
fun @sum(%n: i32): i32 {
  let mut %i: i32 = 0;
  let mut %acc: i32 = 0;
^entry:
  br ^head;
^head:
  br %i < %n, ^body, ^done;
^body:
  %acc = %acc + %i;
  %i = %i + 1;
  br ^head;
^done:
  ret %acc;
}`
	out := mustRun(t, src, "@sum", []interp.Value{interp.IntValue(5, 32)}, nil)
	if out.Ret.I != 10 {
		t.Errorf("@sum(5) = %d, want 10", out.Ret.I)
	}
}

func TestRunSymbolsAndDomains(t *testing.T) {
	src := `
fun @g(): i32 {
  sym %?k: value i32 in [0, 10];
^entry:
  ret %?k + 1;
}`
	out := mustRun(t, src, "@g", nil, map[string]interp.Value{"%?k": interp.IntValue(9, 32)})
	if out.Ret.I != 10 {
		t.Errorf("ret = %d, want 10", out.Ret.I)
	}

	_, err := runProgram(t, src, "@g", nil, map[string]interp.Value{"%?k": interp.IntValue(42, 32)})
	if err == nil || !strings.Contains(err.Error(), "domain") {
		t.Errorf("out-of-domain binding: err = %v, want domain error", err)
	}
	if _, err := runProgram(t, src, "@g", nil, nil); err == nil {
		t.Error("unbound symbol: no error")
	}
	_, err = runProgram(t, src, "@g", nil, map[string]interp.Value{"%?nope": interp.IntValue(1, 32)})
	if err == nil || !strings.Contains(err.Error(), "unknown symbol") {
		t.Errorf("unknown binding: err = %v, want unknown symbol error", err)
	}
}

func TestRunAggregates(t *testing.T) {
	src := `
struct @Pair {
  a: i32;
  b: i32;
}
fun @g(%i: i32): i32 {
  let mut %arr: [3] i32 = {1, 2, 3};
  let mut %p: @Pair = 0;
^entry:
  %p.b = %arr[%i];
  %arr[0] = %p.b + 10;
  ret %arr[0];
}`
	out := mustRun(t, src, "@g", []interp.Value{interp.IntValue(2, 32)}, nil)
	if out.Ret.I != 13 {
		t.Errorf("ret = %d, want 13", out.Ret.I)
	}
}

func TestRunUndefinedBehaviour(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "division by zero",
			src: `fun @g(%d: i32): i32 { let mut %q: i32 = 0;
^entry: %q = 7 / %d; ret %q; }`,
			want: "division by zero",
		},
		{
			name: "int-min over minus one",
			src: `fun @g(%d: i32): i32 { let mut %q: i32 = 0;
  let %min: i32 = -2147483648;
^entry: %q = %min / %d; ret %q; }`,
			want: "signed overflow",
		},
		{
			name: "add overflow",
			src: `fun @g(%v: i32): i32 { let mut %x: i32 = 2147483647;
^entry: %x = %x + %v; ret %x; }`,
			want: "signed overflow",
		},
		{
			name: "mul overflow",
			src: `fun @g(%v: i32): i32 { let mut %x: i32 = 0;
^entry: %x = 3 * %v; ret %x; }`,
			want: "signed overflow",
		},
		{
			name: "overshift",
			src: `fun @g(%s: i32): i32 { let mut %x: i32 = 0;
^entry: %x = 1 << %s; ret %x; }`,
			want: "shift amount",
		},
		{
			name: "out of bounds",
			src: `fun @g(%i: i32): i32 { let mut %arr: [2] i32 = 0;
^entry: ret %arr[%i]; }`,
			want: "out of bounds",
		},
		{
			name: "undef read",
			src: `fun @g(%i: i32): i32 { let mut %x: i32 = undef;
^entry: ret %x; }`,
			want: "read of undef",
		},
		{
			name: "unreachable",
			src: `fun @g(%i: i32): i32 {
^entry: unreachable; }`,
			want: "unreachable",
		},
		{
			name: "assume violated",
			src: `fun @g(%i: i32): i32 {
^entry: assume %i > 0; ret %i; }`,
			want: "assumption violated",
		},
	}
	args := map[string]int64{
		"division by zero":       0,
		"int-min over minus one": -1,
		"add overflow":           1,
		"mul overflow":           1 << 30,
		"overshift":              35,
		"out of bounds":          2,
		"undef read":             0,
		"unreachable":            0,
		"assume violated":        -1,
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			arg := interp.IntValue(args[test.name], 32)
			_, err := runProgram(t, test.src, "@g", []interp.Value{arg}, nil)
			if err == nil {
				t.Fatal("no error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("err = %v, want substring %q", err, test.want)
			}
		})
	}
}

func TestRunRequire(t *testing.T) {
	src := `
fun @g(%v: i32): i32 {
^entry:
  require %v > 0, "v must be positive";
  ret %v;
}`
	out := mustRun(t, src, "@g", []interp.Value{interp.IntValue(3, 32)}, nil)
	if out.Ret.I != 3 {
		t.Errorf("ret = %d, want 3", out.Ret.I)
	}
	_, err := runProgram(t, src, "@g", []interp.Value{interp.IntValue(-3, 32)}, nil)
	var reqErr *interp.RequireError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want RequireError", err)
	}
	if reqErr.Message != "v must be positive" {
		t.Errorf("message = %q", reqErr.Message)
	}
}

func TestRunNarrowWidths(t *testing.T) {
	src := `
fun @g(%v: i8): i8 {
  let mut %x: i8 = 0;
^entry:
  %x = 127 & %v;
  ret %x;
}`
	out := mustRun(t, src, "@g", []interp.Value{interp.IntValue(-1, 8)}, nil)
	if out.Ret.I != 127 {
		t.Errorf("ret = %d, want 127", out.Ret.I)
	}
}

func TestRunFloat(t *testing.T) {
	src := `
fun @g(%v: f64): f64 {
  let mut %x: f64 = 1.5;
^entry:
  %x = 2.0 * %x + %v;
  ret %x;
}`
	out := mustRun(t, src, "@g", []interp.Value{interp.FloatValue(0.25, false)}, nil)
	if out.Ret.F != 3.25 {
		t.Errorf("ret = %g, want 3.25", out.Ret.F)
	}
}

func TestRunCasts(t *testing.T) {
	src := `
fun @g(%v: i32): i8 {
  let mut %x: i8 = 0;
^entry:
  %x = %v as i8;
  ret %x;
}`
	out := mustRun(t, src, "@g", []interp.Value{interp.IntValue(300, 32)}, nil)
	if out.Ret.I != 44 {
		t.Errorf("i32->i8 cast of 300: ret = %d, want 44", out.Ret.I)
	}

	src = `
fun @g(%v: f64): i32 {
  let mut %x: i32 = 0;
^entry:
  %x = %v as i32;
  ret %x;
}`
	// Round to nearest, ties to even.
	out = mustRun(t, src, "@g", []interp.Value{interp.FloatValue(2.5, false)}, nil)
	if out.Ret.I != 2 {
		t.Errorf("f64->i32 cast of 2.5: ret = %d, want 2", out.Ret.I)
	}
}

func TestRunSelect(t *testing.T) {
	src := `
fun @max(%a: i32, %b: i32): i32 {
  let mut %m: i32 = 0;
^entry:
  %m = select %a > %b, %a, %b;
  ret %m;
}`
	out := mustRun(t, src, "@max",
		[]interp.Value{interp.IntValue(3, 32), interp.IntValue(8, 32)}, nil)
	if out.Ret.I != 8 {
		t.Errorf("max(3, 8) = %d, want 8", out.Ret.I)
	}
}
