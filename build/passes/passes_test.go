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

package passes_test

import (
	"strings"
	"testing"

	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/ir"
	"github.com/symir-lang/symir/build/parser"
	"github.com/symir-lang/symir/build/passes"
)

func parse(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return prog
}

func TestDefaultSequenceAccepts(t *testing.T) {
	prog := parse(t, `
fun @f(%a: i32): i32 {
  let mut %x: i32 = 0;
^entry:
  %x = %a + 1;
  ret %x;
}`)
	var diags diag.Bag
	if ok := passes.Default(&diags).Run(prog); !ok {
		t.Errorf("Run failed: %v", diags.All())
	}
}

func TestTypeErrorStopsLaterPasses(t *testing.T) {
	// The program has both a type error and an uninitialized read; only
	// the type error may surface, because the pipeline stops there.
	prog := parse(t, `
fun @f(%a: i64): i32 {
  let mut %x: i32;
  let mut %y: i32 = 0;
^entry:
  %y = %a;
  ret %x;
}`)
	var diags diag.Bag
	if ok := passes.Default(&diags).Run(prog); ok {
		t.Fatal("Run accepted an ill-typed program")
	}
	for _, d := range diags.All() {
		if strings.Contains(d.Message, "uninitialized") {
			t.Errorf("definite-init ran after a type error: %v", d)
		}
	}
}

type recordingPass struct {
	name string
	ok   bool
	log  *[]string
}

func (p recordingPass) Name() string { return p.name }

func (p recordingPass) Run(_ *ir.Program, _ *diag.Bag) bool {
	*p.log = append(*p.log, p.name)
	return p.ok
}

func TestStopsAtFirstFailingPass(t *testing.T) {
	prog := parse(t, `fun @f(): i32 { ^entry: ret 0; }`)
	var log []string
	var diags diag.Bag
	m := passes.NewManager(&diags)
	m.AddModulePass(recordingPass{name: "first", ok: true, log: &log})
	m.AddModulePass(recordingPass{name: "second", ok: false, log: &log})
	m.AddModulePass(recordingPass{name: "third", ok: true, log: &log})
	if m.Run(prog) {
		t.Error("Run succeeded with a failing pass")
	}
	if len(log) != 2 || log[0] != "first" || log[1] != "second" {
		t.Errorf("pass order = %v, want [first second]", log)
	}
}

type funcCounter struct {
	names *[]string
	ok    bool
}

func (p funcCounter) Name() string { return "func-counter" }

func (p funcCounter) RunFun(f *ir.FunDecl, _ *diag.Bag) bool {
	*p.names = append(*p.names, f.Name.Name)
	return p.ok
}

func TestFunctionPassLift(t *testing.T) {
	prog := parse(t, `
fun @a(): i32 { ^entry: ret 0; }
fun @b(): i32 { ^entry: ret 0; }`)
	var names []string
	var diags diag.Bag
	m := passes.NewManager(&diags)
	m.AddFunctionPass(funcCounter{names: &names, ok: true})
	if !m.Run(prog) {
		t.Error("Run failed")
	}
	if len(names) != 2 || names[0] != "@a" || names[1] != "@b" {
		t.Errorf("functions visited = %v, want [@a @b] in declaration order", names)
	}

	// A failure on any function fails the lifted pass, but every
	// function is still visited.
	names = nil
	m = passes.NewManager(&diags)
	m.AddFunctionPass(funcCounter{names: &names, ok: false})
	if m.Run(prog) {
		t.Error("Run succeeded with a failing function pass")
	}
	if len(names) != 2 {
		t.Errorf("functions visited = %v, want both despite failure", names)
	}
}
