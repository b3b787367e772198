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

// Package unusedname warns about parameters, symbols, and locals a
// function never mentions.
package unusedname

import (
	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/ir"
)

// Run reports one warning per unused name. Assigning a local counts as
// using it.
func Run(f *ir.FunDecl, diags *diag.Bag) bool {
	used := map[string]bool{}
	reads := ir.Reads{
		LValue: func(lv *ir.LValue) {
			used[lv.Base.Name] = true
		},
		Ident: func(n ir.Node) {
			switch id := n.(type) {
			case ir.LocalID:
				used[id.Name] = true
			case ir.SymID:
				used[id.Name] = true
			}
		},
	}
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		for _, ins := range b.Instrs {
			ir.InstrReads(ins, reads, func(lhs *ir.LValue) {
				used[lhs.Base.Name] = true
			})
		}
		ir.TermReads(b.Term, reads)
	}
	// Initializers referring to symbols or other locals count too.
	for i := range f.Lets {
		markInit(f.Lets[i].Init, used)
	}

	for i := range f.Params {
		if !used[f.Params[i].Name.Name] {
			diags.Warnf(f.Params[i].Src, "unused parameter: %s", f.Params[i].Name.Name)
		}
	}
	for i := range f.Syms {
		if !used[f.Syms[i].Name.Name] {
			diags.Warnf(f.Syms[i].Src, "unused symbol: %s", f.Syms[i].Name.Name)
		}
	}
	for i := range f.Lets {
		if !used[f.Lets[i].Name.Name] {
			diags.Warnf(f.Lets[i].Src, "unused local: %s", f.Lets[i].Name.Name)
		}
	}
	return true
}

func markInit(iv ir.InitVal, used map[string]bool) {
	switch v := iv.(type) {
	case ir.SymID:
		used[v.Name] = true
	case ir.LocalID:
		used[v.Name] = true
	case *ir.AggregateInit:
		for _, e := range v.Elems {
			markInit(e, used)
		}
	}
}
