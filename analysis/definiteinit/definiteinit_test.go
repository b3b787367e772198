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

package definiteinit_test

import (
	"strings"
	"testing"

	"github.com/symir-lang/symir/analysis/definiteinit"
	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/parser"
)

func run(t *testing.T, src string) []diag.Diagnostic {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	var diags diag.Bag
	definiteinit.Run(&prog.Funs[0], &diags)
	return diags.All()
}

func wantUninit(t *testing.T, src, name string) {
	t.Helper()
	for _, d := range run(t, src) {
		if strings.Contains(d.Message, "Read of possibly uninitialized local: "+name) {
			return
		}
	}
	t.Errorf("no uninitialized-read diagnostic for %s", name)
}

func wantClean(t *testing.T, src string) {
	t.Helper()
	if diags := run(t, src); len(diags) > 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
}

func TestInitOnOneArmOnly(t *testing.T) {
	wantUninit(t, `
fun @g(%c: i32): i32 {
  let mut %x: i32;
^entry:
  br %c == 0, ^t, ^f;
^t:
  %x = 1;
  br ^join;
^f:
  br ^join;
^join:
  ret %x;
}`, "%x")
}

func TestInitOnBothArms(t *testing.T) {
	wantClean(t, `
fun @g(%c: i32): i32 {
  let mut %x: i32;
^entry:
  br %c == 0, ^t, ^f;
^t:
  %x = 1;
  br ^join;
^f:
  %x = 2;
  br ^join;
^join:
  ret %x;
}`)
}

func TestUndefInitializerCountsAsUninitialized(t *testing.T) {
	wantUninit(t, `
fun @g(): i32 {
  let mut %x: i32 = undef;
^entry:
  ret %x;
}`, "%x")
}

func TestInitializerCountsAsInitialized(t *testing.T) {
	wantClean(t, `
fun @g(): i32 {
  let %x: i32 = 4;
^entry:
  ret %x;
}`)
}

func TestParamsAndSymsStartInitialized(t *testing.T) {
	wantClean(t, `
fun @g(%a: i32): i32 {
  sym %?k: value i32;
^entry:
  ret %a + %?k;
}`)
}

func TestReadBeforeAssignInSameBlock(t *testing.T) {
	wantUninit(t, `
fun @g(): i32 {
  let mut %x: i32;
^entry:
  %x = %x + 1;
  ret %x;
}`, "%x")
}

func TestAssignThenReadIsFine(t *testing.T) {
	wantClean(t, `
fun @g(): i32 {
  let mut %x: i32;
^entry:
  %x = 1;
  ret %x;
}`)
}

func TestIndexReadIsARead(t *testing.T) {
	wantUninit(t, `
fun @g(%arr: [4] i32): i32 {
  let mut %i: i32;
^entry:
  ret %arr[%i];
}`, "%i")
}

func TestLoopCarriedInitIsNotDefinite(t *testing.T) {
	// The back edge does not save the first iteration's read.
	wantUninit(t, `
fun @g(%n: i32): i32 {
  let mut %x: i32;
  let mut %i: i32 = 0;
^entry:
  br ^head;
^head:
  br %i < %n, ^body, ^done;
^body:
  %i = %i + %x;
  %x = 1;
  br ^head;
^done:
  ret 0;
}`, "%x")
}
