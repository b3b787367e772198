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

package astdump_test

import (
	"strings"
	"testing"

	"github.com/symir-lang/symir/build/parser"
	"github.com/symir-lang/symir/fmt/astdump"
)

func TestDump(t *testing.T) {
	prog, err := parser.Parse(`
struct @P {
  x: i32;
}
fun @f(%a: i32): i32 {
  sym %?k: value i32 in [0, 3];
  let mut %v: i32 = 0;
^entry:
  %v = %a + %?k;
  br %v > 0, ^pos, ^done;
^pos:
  br ^done;
^done:
  ret %v;
}`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	out := astdump.Dump(prog)
	for _, want := range []string{
		"StructDecl @P",
		"Field x: i32",
		"FunDecl @f: i32",
		"Param %a: i32",
		"Sym %?k: value i32 in [0, 3]",
		"Let mut %v: i32 = 0",
		"Block ^entry",
		"Assign %v",
		"Br %v > 0 ? ^pos : ^done",
		"Block ^done",
		"Ret",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump lacks %q:\n%s", want, out)
		}
	}
}
