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

package sirfmt_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/symir-lang/symir/build/parser"
	"github.com/symir-lang/symir/fmt/sirfmt"
)

const sample = `
struct @Pair {
  a: i32;
  b: [2] f64;
}
fun @f(%x: i32, %p: @Pair): i32 {
  sym %?k: value i32 in [0, 10];
  sym %?m: coef i8 in {1, 2};
  let mut %acc: i32 = 0;
  let %init: [3] i32 = {1, 2, 3};
  let %u: i32 = undef;
^entry:
  %acc = 2 * %x + %?k;
  require %acc > 0, "positive";
  assume %acc < 100;
  br %acc == 5, ^done, ^more;
^more:
  %acc = select %x > 0, %x, 0;
  %acc = %x as i32 - ~%x;
  br ^done;
^done:
  ret %acc + %init[%x];
}
`

// TestRoundTrip checks print-parse-print is a fixpoint: the printed
// form parses back to a tree that prints identically.
func TestRoundTrip(t *testing.T) {
	prog, err := parser.Parse(sample)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	once := sirfmt.Print(prog)
	prog2, err := parser.Parse(once)
	if err != nil {
		t.Fatalf("reparse error: %v\nprinted:\n%s", err, once)
	}
	twice := sirfmt.Print(prog2)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("print not stable (-first +second):\n%s", diff)
	}
}

func TestPrintKeepsDeclarations(t *testing.T) {
	prog, err := parser.Parse(sample)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	out := sirfmt.Print(prog)
	for _, want := range []string{
		"struct @Pair {",
		"b: [2] f64;",
		"sym %?k: value i32 in [0, 10];",
		"sym %?m: coef i8 in {1, 2};",
		"let mut %acc: i32 = 0;",
		"let %init: [3] i32 = {1, 2, 3};",
		"let %u: i32 = undef;",
		`require %acc > 0, "positive";`,
		"br %acc == 5, ^done, ^more;",
		"select %x > 0, %x, 0",
		"%x as i32 - ~%x",
		"ret %acc + %init[%x];",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("printed form lacks %q:\n%s", want, out)
		}
	}
}

func TestModelSubstitution(t *testing.T) {
	prog, err := parser.Parse(sample)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	out := sirfmt.Config{SymValues: map[string]string{"%?k": "7"}}.Print(prog)
	if !strings.Contains(out, "let %?k: i32 = 7;") {
		t.Errorf("solved symbol not concretized:\n%s", out)
	}
	if strings.Contains(out, "sym %?k") {
		t.Errorf("solved symbol still declared as sym:\n%s", out)
	}
	// Unsolved symbols keep their declarations.
	if !strings.Contains(out, "sym %?m: coef i8 in {1, 2};") {
		t.Errorf("unsolved symbol lost:\n%s", out)
	}
}

func TestFloatString(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5, "1.5"},
		{2, "2.0"},
		{-0.25, "-0.25"},
		{1e20, "1e+20"},
	}
	for _, test := range tests {
		if got := sirfmt.FloatString(test.in); got != test.want {
			t.Errorf("FloatString(%v) = %q, want %q", test.in, got, test.want)
		}
	}
}
