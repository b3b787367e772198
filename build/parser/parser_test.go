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

package parser_test

import (
	"strings"
	"testing"

	"github.com/symir-lang/symir/build/ir"
	"github.com/symir-lang/symir/build/parser"
)

func parse(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return prog
}

func TestParseDeclarations(t *testing.T) {
	prog := parse(t, `
struct @Vec {
  x: f64;
  y: f64;
}
fun @f(%a: i32, %b: [3] i64): i32 {
  sym %?k: value i32 in [0, 10];
  sym %?s: index i8 in {1, 2, 4};
  let mut %x: i32 = 0;
  let %v: @Vec = undef;
^entry:
  ret %a;
}`)
	if len(prog.Structs) != 1 || len(prog.Funs) != 1 {
		t.Fatalf("got %d structs, %d funs", len(prog.Structs), len(prog.Funs))
	}
	s := &prog.Structs[0]
	if s.Name.Name != "@Vec" || len(s.Fields) != 2 || s.Fields[1].Name != "y" {
		t.Errorf("struct = %+v", s)
	}
	f := &prog.Funs[0]
	if f.Name.Name != "@f" || len(f.Params) != 2 || len(f.Syms) != 2 || len(f.Lets) != 2 {
		t.Fatalf("fun shape = %d params, %d syms, %d lets", len(f.Params), len(f.Syms), len(f.Lets))
	}
	at, ok := f.Params[1].Type.(*ir.ArrayType)
	if !ok || at.Size != 3 || !ir.IsInt(at.Elem) {
		t.Errorf("param type = %v", f.Params[1].Type)
	}
	if f.Syms[0].Kind != ir.SymValue || f.Syms[1].Kind != ir.SymIndex {
		t.Errorf("sym kinds = %v, %v", f.Syms[0].Kind, f.Syms[1].Kind)
	}
	if _, ok := f.Syms[0].Domain.(*ir.DomainInterval); !ok {
		t.Errorf("sym 0 domain = %T", f.Syms[0].Domain)
	}
	set, ok := f.Syms[1].Domain.(*ir.DomainSet)
	if !ok || len(set.Values) != 3 {
		t.Errorf("sym 1 domain = %+v", f.Syms[1].Domain)
	}
	if !f.Lets[0].Mutable || f.Lets[1].Mutable {
		t.Errorf("let mutability = %v, %v", f.Lets[0].Mutable, f.Lets[1].Mutable)
	}
	if _, ok := f.Lets[1].Init.(*ir.UndefInit); !ok {
		t.Errorf("let 1 init = %T", f.Lets[1].Init)
	}
}

func TestParseAtoms(t *testing.T) {
	prog := parse(t, `
fun @f(%a: i32, %arr: [4] i32): i32 {
  let mut %x: i32 = 0;
^entry:
  %x = 2 * %a + %arr[1] - ~%a;
  %x = select %a > 0, %a, 0;
  %x = %a as i32 + 1;
  ret %x;
}`)
	b := &prog.Funs[0].Blocks[0]
	first := b.Instrs[0].(*ir.AssignInstr)
	if _, ok := first.RHS.First.(*ir.OpAtom); !ok {
		t.Errorf("first atom = %T, want OpAtom", first.RHS.First)
	}
	if len(first.RHS.Rest) != 2 {
		t.Fatalf("tail length = %d, want 2", len(first.RHS.Rest))
	}
	if first.RHS.Rest[0].Op != ir.Plus || first.RHS.Rest[1].Op != ir.Minus {
		t.Errorf("tail ops = %v, %v", first.RHS.Rest[0].Op, first.RHS.Rest[1].Op)
	}
	if _, ok := first.RHS.Rest[0].Atom.(*ir.RValueAtom); !ok {
		t.Errorf("tail 0 = %T, want RValueAtom", first.RHS.Rest[0].Atom)
	}
	if _, ok := first.RHS.Rest[1].Atom.(*ir.UnaryAtom); !ok {
		t.Errorf("tail 1 = %T, want UnaryAtom", first.RHS.Rest[1].Atom)
	}
	if _, ok := b.Instrs[1].(*ir.AssignInstr).RHS.First.(*ir.SelectAtom); !ok {
		t.Errorf("second instr atom is not a select")
	}
	if _, ok := b.Instrs[2].(*ir.AssignInstr).RHS.First.(*ir.CastAtom); !ok {
		t.Errorf("third instr atom is not a cast")
	}
}

func TestParseLValues(t *testing.T) {
	prog := parse(t, `
struct @P { f: [2] i32; }
fun @f(%p: @P, %i: i32): i32 {
^entry:
  ret %p.f[%i];
}`)
	ret := prog.Funs[0].Blocks[0].Term.(*ir.RetTerm)
	lv := ret.Value.First.(*ir.RValueAtom).RVal
	if len(lv.Accesses) != 2 {
		t.Fatalf("accesses = %d, want 2", len(lv.Accesses))
	}
	if fa, ok := lv.Accesses[0].(*ir.AccessField); !ok || fa.Field != "f" {
		t.Errorf("access 0 = %+v", lv.Accesses[0])
	}
	ia, ok := lv.Accesses[1].(*ir.AccessIndex)
	if !ok {
		t.Fatalf("access 1 = %T", lv.Accesses[1])
	}
	if id, ok := ia.Index.(ir.LocalID); !ok || id.Name != "%i" {
		t.Errorf("index = %+v", ia.Index)
	}
}

func TestParseTerminators(t *testing.T) {
	prog := parse(t, `
fun @f(%c: i32): i32 {
^entry:
  br %c == 0, ^a, ^b;
^a:
  br ^b;
^b:
  ret 1 + 2;
^c:
  ret;
^d:
  unreachable;
}`)
	blocks := prog.Funs[0].Blocks
	cond := blocks[0].Term.(*ir.BrTerm)
	if !cond.IsConditional() || cond.Then.Name != "^a" || cond.Else.Name != "^b" {
		t.Errorf("cond branch = %+v", cond)
	}
	uncond := blocks[1].Term.(*ir.BrTerm)
	if uncond.IsConditional() || uncond.Dest.Name != "^b" {
		t.Errorf("uncond branch = %+v", uncond)
	}
	if ret := blocks[2].Term.(*ir.RetTerm); ret.Value == nil {
		t.Error("valued ret lost its expression")
	}
	if ret := blocks[3].Term.(*ir.RetTerm); ret.Value != nil {
		t.Error("bare ret grew an expression")
	}
	if _, ok := blocks[4].Term.(*ir.UnreachableTerm); !ok {
		t.Errorf("block 4 terminator = %T", blocks[4].Term)
	}
}

func TestParseRequireMessage(t *testing.T) {
	prog := parse(t, `
fun @f(%a: i32): i32 {
^entry:
  require %a > 0, "must be positive";
  assume %a < 100;
  ret %a;
}`)
	req := prog.Funs[0].Blocks[0].Instrs[0].(*ir.RequireInstr)
	if !req.HasMsg || req.Message != "must be positive" {
		t.Errorf("require = %+v", req)
	}
	if _, ok := prog.Funs[0].Blocks[0].Instrs[1].(*ir.AssumeInstr); !ok {
		t.Error("assume not parsed")
	}
}

func TestNodeIDsAreUnique(t *testing.T) {
	prog := parse(t, `
fun @f(%a: i32): i32 {
  let mut %x: i32 = 0;
^entry:
  %x = %a + 1 - 2;
  ret 3 * %x + select %a == 0, 1, 2;
}`)
	seen := map[ir.NodeID]bool{}
	record := func(id ir.NodeID) {
		if seen[id] {
			t.Errorf("node id %d assigned twice", id)
		}
		seen[id] = true
	}
	var walkExpr func(e *ir.Expr)
	walkAtom := func(a ir.Atom) {
		switch at := a.(type) {
		case *ir.OpAtom:
			record(at.ID)
		case *ir.UnaryAtom:
			record(at.ID)
		case *ir.SelectAtom:
			record(at.ID)
		case *ir.CoefAtom:
			record(at.ID)
		case *ir.RValueAtom:
			record(at.ID)
		case *ir.CastAtom:
			record(at.ID)
		}
	}
	walkExpr = func(e *ir.Expr) {
		record(e.ID)
		walkAtom(e.First)
		for _, tl := range e.Rest {
			walkAtom(tl.Atom)
		}
	}
	for _, b := range prog.Funs[0].Blocks {
		for _, ins := range b.Instrs {
			if as, ok := ins.(*ir.AssignInstr); ok {
				record(as.LHS.ID)
				walkExpr(as.RHS)
			}
		}
		if ret, ok := b.Term.(*ir.RetTerm); ok && ret.Value != nil {
			walkExpr(ret.Value)
		}
	}
	if len(seen) < 8 {
		t.Errorf("only %d ids recorded, expected more", len(seen))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "missing semicolon", src: `fun @f(): i32 { ^entry: ret 0 }`, want: "expected"},
		{name: "bad type width", src: `fun @f(): i65 { ^entry: ret 0; }`, want: "between 1 and 64"},
		{name: "empty aggregate", src: `fun @f(): i32 { let %x: [1] i32 = {}; ^entry: ret 0; }`, want: "disallowed"},
		{name: "accessed coef", src: `fun @f(%a: [2] i32, %b: i32): i32 { let mut %x: i32 = 0; ^entry: %x = %a[0] * %b; ret %x; }`, want: "coefficient"},
		{name: "top level junk", src: `let %x: i32 = 0;`, want: "expected struct or function"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := parser.Parse(test.src)
			if err == nil {
				t.Fatal("no error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error %q, want substring %q", err, test.want)
			}
		})
	}
}
