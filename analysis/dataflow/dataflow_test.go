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

package dataflow_test

import (
	"math/rand"
	"testing"

	"github.com/symir-lang/symir/analysis/cfg"
	"github.com/symir-lang/symir/analysis/dataflow"
	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/ir"
	"github.com/symir-lang/symir/build/parser"
)

// countdown is a min-based integer lattice whose transfer decrements
// toward zero: monotone over a finite height, so the solver must
// terminate with all reachable blocks at the fixpoint.
type countdown struct {
	start int
}

func (c *countdown) Bottom() int         { return c.start }
func (c *countdown) EntryState() int     { return c.start }
func (c *countdown) Meet(a, b int) int   { return min(a, b) }
func (c *countdown) Equal(a, b int) bool { return a == b }

func (c *countdown) Transfer(_ *ir.Block, in int) int {
	if in > 0 {
		return in - 1
	}
	return 0
}

func buildGraph(t *testing.T, src string) (*ir.FunDecl, *cfg.Graph) {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	var diags diag.Bag
	g := cfg.Build(&prog.Funs[0], &diags)
	if diags.HasErrors() {
		t.Fatalf("cfg errors: %v", diags.All())
	}
	return &prog.Funs[0], g
}

func TestSolveTerminatesOnLoop(t *testing.T) {
	f, g := buildGraph(t, `
fun @f(%c: i32): i32 {
^entry:
  br ^head;
^head:
  br %c == 0, ^body, ^done;
^body:
  br ^head;
^done:
  ret 0;
}`)
	res := dataflow.Solve[int](f, g, &countdown{start: 10})
	// The entry keeps its seeded state; the loop drains everything it
	// dominates to the fixpoint.
	if res.Out[0] != 9 {
		t.Errorf("out[entry] = %d, want 9", res.Out[0])
	}
	for _, idx := range []int{1, 2, 3} {
		if res.Out[idx] != 0 {
			t.Errorf("out[%d] = %d, want 0", idx, res.Out[idx])
		}
	}
}

func TestSolveFuzzedLattices(t *testing.T) {
	f, g := buildGraph(t, `
fun @f(%c: i32): i32 {
^entry:
  br %c == 0, ^a, ^b;
^a:
  br ^head;
^b:
  br ^head;
^head:
  br %c > 0, ^a, ^done;
^done:
  ret 0;
}`)
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 100; trial++ {
		start := rng.Intn(50) + 1
		res := dataflow.Solve[int](f, g, &countdown{start: start})
		for _, idx := range g.RPO() {
			if res.Out[idx] < 0 || res.Out[idx] > start {
				t.Fatalf("start %d: out[%d] = %d escapes the lattice", start, idx, res.Out[idx])
			}
		}
	}
}

// reachingBlocks tracks which blocks have executed on every path, to
// check that the meet joins predecessor states.
type reachingBlocks struct{ labels map[*ir.Block]string }

func (r *reachingBlocks) Bottom() map[string]bool     { return map[string]bool{} }
func (r *reachingBlocks) EntryState() map[string]bool { return map[string]bool{} }

func (r *reachingBlocks) Meet(a, b map[string]bool) map[string]bool {
	out := map[string]bool{}
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func (r *reachingBlocks) Equal(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func (r *reachingBlocks) Transfer(b *ir.Block, in map[string]bool) map[string]bool {
	out := map[string]bool{}
	for k := range in {
		out[k] = true
	}
	out[b.Label.Name] = true
	return out
}

func TestSolveMeetsAtJoin(t *testing.T) {
	f, g := buildGraph(t, `
fun @f(%c: i32): i32 {
^entry:
  br %c == 0, ^a, ^b;
^a:
  br ^join;
^b:
  br ^join;
^join:
  ret 0;
}`)
	res := dataflow.Solve[map[string]bool](f, g, &reachingBlocks{})
	join := res.In[3]
	// Only blocks on every path reach the join's in state.
	if !join["^entry"] {
		t.Errorf("join in = %v, missing ^entry", join)
	}
	if join["^a"] || join["^b"] {
		t.Errorf("join in = %v, must not contain a single arm", join)
	}
}
