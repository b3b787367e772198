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

// Package reachability warns about blocks no path from the entry
// reaches.
package reachability

import (
	"github.com/symir-lang/symir/analysis/cfg"
	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/ir"
)

// Run reports one warning per unreachable block.
func Run(f *ir.FunDecl, diags *diag.Bag) bool {
	g := cfg.Build(f, diags)
	if diags.HasErrors() {
		return false
	}
	visited := g.Reachable()
	if len(visited) == len(g.Blocks) {
		return true
	}
	for i := range g.Blocks {
		if !visited[i] {
			diags.Warnf(f.Blocks[i].Label.Src, "unreachable basic block: %s", g.Blocks[i])
		}
	}
	return true
}
