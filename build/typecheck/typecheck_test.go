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

package typecheck_test

import (
	"strings"
	"testing"

	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/ir"
	"github.com/symir-lang/symir/build/parser"
	"github.com/symir-lang/symir/build/typecheck"
)

// check parses and typechecks, returning all error messages.
func check(t *testing.T, src string) []string {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	var diags diag.Bag
	typecheck.Run(prog, &diags)
	var msgs []string
	for _, d := range diags.All() {
		if d.Level == diag.Error {
			msgs = append(msgs, d.Message)
		}
	}
	return msgs
}

func wantError(t *testing.T, src, substring string) {
	t.Helper()
	msgs := check(t, src)
	for _, m := range msgs {
		if strings.Contains(m, substring) {
			return
		}
	}
	t.Errorf("no error containing %q, got %q", substring, msgs)
}

func wantClean(t *testing.T, src string) {
	t.Helper()
	if msgs := check(t, src); len(msgs) > 0 {
		t.Errorf("unexpected errors: %q", msgs)
	}
}

func TestLiteralWidthCheck(t *testing.T) {
	wantError(t, `fun @g(): i8 { let %x: i8 = 300; ^entry: ret %x; }`,
		"Literal 300 out of range for i8")
	wantClean(t, `fun @g(): i8 { let %x: i8 = 255; ^entry: ret %x; }`)
	wantClean(t, `fun @g(): i8 { let %x: i8 = -128; ^entry: ret %x; }`)
	wantError(t, `fun @g(): i8 { let %x: i8 = -129; ^entry: ret %x; }`,
		"out of range for i8")
}

func TestLiteralWidthInExpr(t *testing.T) {
	wantError(t, `fun @g(%x: i8): i8 { let mut %y: i8 = 0; ^entry: %y = %x + 300; ret %y; }`,
		"out of range for i8")
}

func TestAssignmentWidthMismatch(t *testing.T) {
	wantError(t, `fun @g(%a: i64): i32 { let mut %x: i32 = 0; ^entry: %x = %a; ret %x; }`,
		"Bitwidth mismatch")
	wantError(t, `fun @g(%a: f32): i32 { let mut %x: i32 = 0; ^entry: %x = %a; ret %x; }`,
		"kind mismatch")
}

func TestAssignmentToImmutable(t *testing.T) {
	wantError(t, `fun @g(%a: i32): i32 { ^entry: %a = 1; ret %a; }`,
		"Assignment to immutable local")
	wantError(t, `fun @g(): i32 { let %x: i32 = 0; ^entry: %x = 1; ret %x; }`,
		"Assignment to immutable local")
	wantClean(t, `fun @g(): i32 { let mut %x: i32 = 0; ^entry: %x = 1; ret %x; }`)
}

func TestConditionMismatch(t *testing.T) {
	wantError(t, `fun @g(%a: i32, %b: i64): i32 { ^entry: br %a == %b, ^t, ^f; ^t: ret 0; ^f: ret 1; }`,
		"Bitwidth mismatch in condition")
	wantError(t, `fun @g(%a: i32, %b: f32): i32 { ^entry: br %a == %b, ^t, ^f; ^t: ret 0; ^f: ret 1; }`,
		"same scalar kind")
}

func TestReturnChecks(t *testing.T) {
	wantError(t, `fun @g(): i32 { ^entry: ret; }`, "Missing return value")
	wantError(t, `fun @g(%a: i64): i32 { ^entry: ret %a; }`, "Bitwidth mismatch")
	wantError(t, `fun @g(): [4] i32 { let %x: [4] i32 = 0; ^entry: ret %x; }`,
		"aggregates cannot be returned")
}

func TestLValueTyping(t *testing.T) {
	wantError(t, `fun @g(%a: i32): i32 { ^entry: ret %a[0]; }`, "Indexing non-array")
	wantError(t, `fun @g(%a: [2] i32): i32 { ^entry: ret %a.x; }`, "Field access on non-struct")
	wantError(t, `
struct @P { x: i32; }
fun @g(%p: @P): i32 { ^entry: ret %p.y; }`, "Unknown field 'y' in struct @P")
	wantClean(t, `
struct @P { x: i32; }
fun @g(%p: @P): i32 { ^entry: ret %p.x; }`)
	wantError(t, `fun @g(%a: [2] i32, %f: f32): i32 { ^entry: ret %a[%f]; }`,
		"Non-integer index")
}

func TestFloatOperators(t *testing.T) {
	wantClean(t, `fun @g(%a: f32): f32 { let mut %x: f32 = 0.0; ^entry: %x = 2.0 * %a; ret %x; }`)
	wantError(t, `fun @g(%a: f32): f32 { let mut %x: f32 = 0.0; ^entry: %x = 2.0 & %a; ret %x; }`,
		"not defined on floats")
	wantError(t, `fun @g(%a: f32): f32 { let mut %x: f32 = 0.0; ^entry: %x = ~%a; ret %x; }`,
		"complement requires an integer")
}

func TestOperationWidths(t *testing.T) {
	wantError(t, `fun @g(%a: i32, %b: i64): i64 { let mut %x: i64 = 0; ^entry: %x = %a * %b; ret %x; }`,
		"Bitwidth mismatch in operation")
	wantClean(t, `fun @g(%a: i64, %b: i64): i64 { let mut %x: i64 = 0; ^entry: %x = %a * %b; ret %x; }`)
}

func TestSelectTyping(t *testing.T) {
	wantError(t, `fun @g(%c: i32, %a: i32, %b: i64): i32 { let mut %x: i32 = 0;
^entry: %x = select %c == 0, %a, %b; ret %x; }`, "Select width mismatch")
	wantClean(t, `fun @g(%c: i32, %a: i32, %b: i32): i32 { let mut %x: i32 = 0;
^entry: %x = select %c == 0, %a, %b; ret %x; }`)
}

func TestCastTyping(t *testing.T) {
	wantClean(t, `fun @g(%a: i64): i32 { let mut %x: i32 = 0; ^entry: %x = %a as i32; ret %x; }`)
	wantClean(t, `fun @g(%a: f64): i32 { let mut %x: i32 = 0; ^entry: %x = %a as i32; ret %x; }`)
	wantError(t, `fun @g(%a: i64): i32 { let mut %x: i32 = 0; ^entry: %x = %a as [2] i32; ret %x; }`,
		"cast target must be a scalar type")
	wantError(t, `fun @g(): i32 { let mut %x: i32 = 0; ^entry: %x = %?nope as i32; ret %x; }`,
		"Undeclared symbol")
}

func TestInitializerTyping(t *testing.T) {
	wantClean(t, `fun @g(): i32 { let %a: [2] i32 = {1, 2}; ^entry: ret %a[0]; }`)
	wantError(t, `fun @g(): i32 { let %a: [2] i32 = {1, 2, 3}; ^entry: ret %a[0]; }`,
		"Array initializer length mismatch")
	wantError(t, `fun @g(): i32 { let %a: i32 = {1, 2}; ^entry: ret %a; }`,
		"Aggregate initializer for non-aggregate type")
	wantError(t, `fun @g(): i32 { let %a: [2] f32 = 3; ^entry: ret 0; }`,
		"integer initializer for non-integer target")
	wantError(t, `fun @g(): i32 { let %a: [2] i32 = 2.5; ^entry: ret %a[0]; }`,
		"float initializer for non-float target")
	wantClean(t, `fun @g(): i32 { let %a: [2] i32 = undef; ^entry: ret 0; }`)
	// Scalar broadcast requires every leaf to match the scalar's type.
	wantClean(t, `fun @g(): i32 {
  sym %?k: value i32;
  let %a: [2] i32 = %?k;
^entry: ret %a[0]; }`)
	wantError(t, `fun @g(): i32 {
  sym %?k: value i64;
  let %a: [2] i32 = %?k;
^entry: ret %a[0]; }`, "Type mismatch in initializer")
	wantError(t, `fun @g(): i32 { let %a: i32 = %?nope; ^entry: ret %a; }`,
		"Undeclared symbol in initializer")
	// Struct broadcast covers nested leaves.
	wantClean(t, `
struct @P { x: i32; y: i32; }
fun @g(): i32 { let %p: @P = 7; ^entry: ret %p.x; }`)
	wantError(t, `
struct @P { x: i32; y: f32; }
fun @g(): i32 { let %p: @P = 7; ^entry: ret %p.x; }`,
		"integer initializer for non-integer target")
}

func TestUndeclaredNames(t *testing.T) {
	wantError(t, `fun @g(): i32 { ^entry: ret %nope; }`, "Undeclared local")
	wantError(t, `fun @g(%a: [2] i32): i32 { ^entry: ret %a[%nope]; }`, "Undeclared local index")
}

func TestAnnotationsRecorded(t *testing.T) {
	prog, err := parser.Parse(`fun @g(%a: i32): i32 { ^entry: ret %a + 1; }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	var diags diag.Bag
	ann, ok := typecheck.Run(prog, &diags)
	if !ok {
		t.Fatalf("typecheck failed: %v", diags.All())
	}
	ret := prog.Funs[0].Blocks[0].Term.(*ir.RetTerm)
	ty, found := ann[ret.Value.ID]
	if !found {
		t.Fatal("no annotation for the return expression")
	}
	if !ty.IsBV() || ty.Bits != 32 {
		t.Errorf("return expression type = %+v, want BV 32", ty)
	}
}
