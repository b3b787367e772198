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

// Package definiteinit reports reads of locals that are not initialized
// on every path from the entry.
package definiteinit

import (
	"github.com/symir-lang/symir/analysis/cfg"
	"github.com/symir-lang/symir/analysis/dataflow"
	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/ir"
	"github.com/symir-lang/symir/build/source"
)

// InitSet maps each param, let, and sym name of a function to whether
// it is definitely initialized.
type InitSet map[string]bool

// problem is the forward must-initialized dataflow problem.
//
// Bottom is all-true: it is the top of the must lattice and the neutral
// element of the pointwise AND meet, so unvisited predecessors do not
// spuriously clear bits.
type problem struct {
	f *ir.FunDecl
}

func (p *problem) names() InitSet {
	s := InitSet{}
	for i := range p.f.Params {
		s[p.f.Params[i].Name.Name] = true
	}
	for i := range p.f.Lets {
		s[p.f.Lets[i].Name.Name] = true
	}
	for i := range p.f.Syms {
		s[p.f.Syms[i].Name.Name] = true
	}
	return s
}

// Bottom returns the all-true state.
func (p *problem) Bottom() InitSet {
	return p.names()
}

// EntryState marks parameters and symbols initialized, and lets
// initialized only when they carry a non-undef initializer.
func (p *problem) EntryState() InitSet {
	s := InitSet{}
	for i := range p.f.Params {
		s[p.f.Params[i].Name.Name] = true
	}
	for i := range p.f.Syms {
		s[p.f.Syms[i].Name.Name] = true
	}
	for i := range p.f.Lets {
		l := &p.f.Lets[i]
		_, isUndef := l.Init.(*ir.UndefInit)
		s[l.Name.Name] = l.Init != nil && !isUndef
	}
	return s
}

// Meet is the pointwise AND: a name is initialized at a merge only if
// it was on every predecessor.
func (p *problem) Meet(lhs, rhs InitSet) InitSet {
	r := InitSet{}
	for k, v := range lhs {
		r[k] = v && rhs[k]
	}
	return r
}

// Equal compares two states pointwise.
func (p *problem) Equal(lhs, rhs InitSet) bool {
	if len(lhs) != len(rhs) {
		return false
	}
	for k, v := range lhs {
		if ov, ok := rhs[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Transfer walks the block's instructions: assignments set their target
// after their right-hand side has been read.
func (p *problem) Transfer(b *ir.Block, in InitSet) InitSet {
	state := InitSet{}
	for k, v := range in {
		state[k] = v
	}
	walkBlock(b, state, nil)
	return state
}

// walkBlock applies the block's effect on the state and, when diags is
// not nil, reports each read of a possibly uninitialized local.
func walkBlock(b *ir.Block, state InitSet, diags *diag.Bag) {
	check := func(name string, sp source.Span) {
		// Unknown names are reported by the type checker, not here.
		init, tracked := state[name]
		if !tracked || init {
			return
		}
		if diags != nil {
			diags.Errorf(sp, "Read of possibly uninitialized local: %s", name)
		}
	}
	reads := ir.Reads{
		LValue: func(lv *ir.LValue) {
			check(lv.Base.Name, lv.Base.Src)
		},
		Ident: func(n ir.Node) {
			if lid, ok := n.(ir.LocalID); ok {
				check(lid.Name, lid.Src)
			}
		},
	}
	for _, ins := range b.Instrs {
		ir.InstrReads(ins, reads, func(lhs *ir.LValue) {
			state[lhs.Base.Name] = true
		})
	}
	ir.TermReads(b.Term, reads)
}

// Run solves the dataflow problem and reports uninitialized reads.
func Run(f *ir.FunDecl, diags *diag.Bag) bool {
	g := cfg.Build(f, diags)
	if diags.HasErrors() {
		return false
	}
	p := &problem{f: f}
	res := dataflow.Solve[InitSet](f, g, p)

	// Report once against the fixpoint, block by block, so that the
	// iterative solving does not duplicate diagnostics.
	for _, idx := range g.RPO() {
		state := InitSet{}
		for k, v := range res.In[idx] {
			state[k] = v
		}
		walkBlock(&f.Blocks[idx], state, diags)
	}
	return !diags.HasErrors()
}
