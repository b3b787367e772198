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

package unusedname_test

import (
	"strings"
	"testing"

	"github.com/symir-lang/symir/analysis/unusedname"
	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/parser"
)

func warnings(t *testing.T, src string) []string {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	var diags diag.Bag
	unusedname.Run(&prog.Funs[0], &diags)
	var msgs []string
	for _, d := range diags.All() {
		msgs = append(msgs, d.Message)
	}
	return msgs
}

func TestUnusedNames(t *testing.T) {
	msgs := warnings(t, `
fun @f(%used: i32, %unused: i32): i32 {
  sym %?dead: value i32;
  let %alive: i32 = 1;
  let %dead: i32 = 2;
^entry:
  ret %used + %alive;
}`)
	want := []string{"%unused", "%?dead", "%dead"}
	for _, name := range want {
		var found bool
		for _, m := range msgs {
			if strings.Contains(m, name) {
				found = true
			}
		}
		if !found {
			t.Errorf("no warning for %s in %q", name, msgs)
		}
	}
	for _, m := range msgs {
		if strings.Contains(m, "%used") || strings.Contains(m, "%alive") {
			t.Errorf("warning for a used name: %q", m)
		}
	}
}

func TestAssignmentCountsAsUse(t *testing.T) {
	msgs := warnings(t, `
fun @f(): i32 {
  let mut %x: i32 = 0;
^entry:
  %x = 1;
  ret 0;
}`)
	if len(msgs) != 0 {
		t.Errorf("unexpected warnings: %q", msgs)
	}
}

func TestInitializerReferenceCountsAsUse(t *testing.T) {
	msgs := warnings(t, `
fun @f(): i32 {
  sym %?k: value i32;
  let %x: i32 = %?k;
^entry:
  ret %x;
}`)
	if len(msgs) != 0 {
		t.Errorf("unexpected warnings: %q", msgs)
	}
}
