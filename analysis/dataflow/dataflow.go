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

// Package dataflow is a generic forward dataflow framework over a
// function's control flow graph.
package dataflow

import (
	"github.com/symir-lang/symir/analysis/cfg"
	"github.com/symir-lang/symir/build/ir"
)

// Problem describes a forward dataflow problem over a meet semilattice.
//
// Meet must be commutative, associative and idempotent, and Bottom must
// be its neutral element. The solver converges for any monotone
// Transfer over a finite-height lattice; callers must supply such a
// lattice.
type Problem[State any] interface {
	// Bottom returns the lattice's neutral element, used to initialize
	// every block.
	Bottom() State

	// EntryState returns the state at the start of the entry block.
	EntryState() State

	// Meet combines the information flowing from two predecessors.
	Meet(lhs, rhs State) State

	// Transfer computes the out state of a block from its in state.
	Transfer(block *ir.Block, in State) State

	// Equal reports whether two states carry the same information.
	Equal(lhs, rhs State) bool
}

// Result holds the fixpoint states at block entry and exit.
type Result[State any] struct {
	In  []State
	Out []State
}

// Solve iterates the problem to a fixpoint.
//
// Blocks are visited in reverse postorder; the sweep repeats until a
// full sweep leaves every out state unchanged.
func Solve[State any](f *ir.FunDecl, g *cfg.Graph, problem Problem[State]) Result[State] {
	n := len(g.Blocks)
	res := Result[State]{
		In:  make([]State, n),
		Out: make([]State, n),
	}
	for i := 0; i < n; i++ {
		res.In[i] = problem.Bottom()
		res.Out[i] = problem.Bottom()
	}
	if n == 0 {
		return res
	}
	res.In[g.Entry] = problem.EntryState()

	rpo := g.RPO()
	for changed := true; changed; {
		changed = false
		for _, idx := range rpo {
			if idx != g.Entry && len(g.Pred[idx]) > 0 {
				meet := res.Out[g.Pred[idx][0]]
				for _, pred := range g.Pred[idx][1:] {
					meet = problem.Meet(meet, res.Out[pred])
				}
				res.In[idx] = meet
			}
			newOut := problem.Transfer(&f.Blocks[idx], res.In[idx])
			if !problem.Equal(res.Out[idx], newOut) {
				res.Out[idx] = newOut
				changed = true
			}
		}
	}
	return res
}
