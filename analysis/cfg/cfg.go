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

// Package cfg builds the control flow graph of a SymIR function.
package cfg

import (
	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/ir"
)

// EntryLabel is the label that forces its block to be the entry.
const EntryLabel = "^entry"

// Graph is the control flow graph of one function.
//
// Blocks are identified by their index in declaration order. For every
// block i and every s in Succ[i], i appears in Pred[s]; edges are
// multiset-preserving, so a conditional branch whose arms coincide
// contributes two edges.
type Graph struct {
	// Blocks holds the label of each block, in declaration order.
	Blocks []string
	// IndexOf maps a label to its block index. Duplicate labels keep
	// the first index.
	IndexOf map[string]int
	// Succ and Pred are the forward and backward adjacency lists.
	Succ [][]int
	Pred [][]int
	// Entry is the index of the entry block: the block labeled ^entry
	// if present, the first block otherwise.
	Entry int
}

// Build constructs the graph of a function. Duplicate labels and
// unknown branch targets are reported to the bag; the offending edge or
// map entry is skipped but the graph stays usable.
func Build(f *ir.FunDecl, diags *diag.Bag) *Graph {
	g := &Graph{IndexOf: make(map[string]int)}
	if len(f.Blocks) == 0 {
		diags.Errorf(f.Src, "function %s has no blocks", f.Name.Name)
		return g
	}

	g.Blocks = make([]string, len(f.Blocks))
	for i := range f.Blocks {
		label := f.Blocks[i].Label.Name
		g.Blocks[i] = label
		if _, dup := g.IndexOf[label]; dup {
			diags.Errorf(f.Blocks[i].Src, "duplicate block label: %s", label)
			continue
		}
		g.IndexOf[label] = i
	}

	g.Succ = make([][]int, len(f.Blocks))
	g.Pred = make([][]int, len(f.Blocks))

	if e, ok := g.IndexOf[EntryLabel]; ok {
		g.Entry = e
	}

	addEdge := func(from int, to ir.Label) {
		dst, ok := g.IndexOf[to.Name]
		if !ok {
			diags.Errorf(to.Src, "unknown block label: %s", to.Name)
			return
		}
		g.Succ[from] = append(g.Succ[from], dst)
		g.Pred[dst] = append(g.Pred[dst], from)
	}

	for i := range f.Blocks {
		switch term := f.Blocks[i].Term.(type) {
		case *ir.BrTerm:
			if term.IsConditional() {
				addEdge(i, term.Then)
				addEdge(i, term.Else)
			} else {
				addEdge(i, term.Dest)
			}
		default:
			// ret/unreachable: no outgoing edges.
		}
	}
	return g
}

// RPO returns the reverse postorder of the blocks reachable from the
// entry. Unreachable blocks are absent from the result.
func (g *Graph) RPO() []int {
	if len(g.Blocks) == 0 {
		return nil
	}
	var order []int
	visited := make([]bool, len(g.Blocks))
	var dfs func(u int)
	dfs = func(u int) {
		visited[u] = true
		for _, v := range g.Succ[u] {
			if !visited[v] {
				dfs(v)
			}
		}
		order = append(order, u)
	}
	dfs(g.Entry)
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// Reachable returns the set of block indices reachable from the entry
// with a breadth-first walk.
func (g *Graph) Reachable() map[int]bool {
	if len(g.Blocks) == 0 {
		return nil
	}
	visited := map[int]bool{g.Entry: true}
	queue := []int{g.Entry}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.Succ[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return visited
}
