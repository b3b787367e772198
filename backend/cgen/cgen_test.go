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

package cgen_test

import (
	"strings"
	"testing"

	"github.com/symir-lang/symir/backend/cgen"
	"github.com/symir-lang/symir/build/parser"
)

func emit(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	out, err := cgen.Emit(prog)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	return out
}

func TestEmitFunction(t *testing.T) {
	out := emit(t, `
fun @f(%a: i32): i32 {
  sym %?k: value i32;
  let mut %x: i32 = 0;
^entry:
  %x = 2 * %a + %?k;
  require %x > 0, "positive";
  br %x == 5, ^done, ^more;
^more:
  %x = %x + 1;
  br ^done;
^done:
  ret %x;
}`)
	for _, want := range []string{
		"#include <assert.h>",
		"#include <stdint.h>",
		"int32_t symir_f(int32_t symir_a, int32_t symir_k) {",
		"int32_t symir_x = 0;",
		"symir_entry:;",
		"symir_x = ((2 * symir_a) + symir_k);",
		`assert((symir_x > 0) && "positive");`,
		"if (symir_x == 5) goto symir_done; else goto symir_more;",
		"goto symir_done;",
		"return symir_x;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("emitted C lacks %q:\n%s", want, out)
		}
	}
}

func TestEmitStructsAndArrays(t *testing.T) {
	out := emit(t, `
struct @P {
  f: i32;
  g: [2] f64;
}
fun @f(%p: @P): i32 {
  let mut %arr: [3] i8 = {1, 2, 3};
  let mut %b: [2] i32 = 0;
^entry:
  %arr[1] = %p.f as i8;
  ret %p.f;
}`)
	for _, want := range []string{
		"typedef struct {",
		"int32_t f;",
		"double g[2];",
		"} symir_P;",
		"int8_t symir_arr[3] = {1, 2, 3};",
		"int32_t symir_b[2] = {0, 0};",
		"symir_arr[1] = (int8_t)(symir_p.f);",
		"return symir_p.f;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("emitted C lacks %q:\n%s", want, out)
		}
	}
}

func TestEmitCustomWidthCanonicalization(t *testing.T) {
	out := emit(t, `
fun @f(%a: i5): i5 {
  let mut %x: i5 = 0;
^entry:
  %x = %a + 1;
  ret %x;
}`)
	// i5 lives in int8_t and is re-canonicalized by a shift pair.
	if !strings.Contains(out, "int8_t symir_f(int8_t symir_a)") {
		t.Errorf("i5 storage type wrong:\n%s", out)
	}
	if !strings.Contains(out, "<< 3") || !strings.Contains(out, ">> 3") {
		t.Errorf("i5 not canonicalized by shifts:\n%s", out)
	}
}

func TestEmitAggregateReturnRejected(t *testing.T) {
	prog, err := parser.Parse(`fun @f(): [2] i32 { let %x: [2] i32 = 0; ^entry: ret %x; }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := cgen.Emit(prog); err == nil {
		t.Error("aggregate return type accepted")
	}
}
