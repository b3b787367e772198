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

// Package astdump renders the structure of a SymIR tree for debugging.
package astdump

import (
	"fmt"
	"strings"

	"github.com/symir-lang/symir/build/ir"
	"github.com/symir-lang/symir/fmt/sirfmt"
)

// Dump renders a whole program, one node per line, children indented.
func Dump(prog *ir.Program) string {
	d := &dumper{}
	for i := range prog.Structs {
		d.structDecl(&prog.Structs[i])
	}
	for i := range prog.Funs {
		d.funDecl(&prog.Funs[i])
	}
	return d.sb.String()
}

type dumper struct {
	sb    strings.Builder
	depth int
}

func (d *dumper) line(format string, a ...any) {
	d.sb.WriteString(strings.Repeat("  ", d.depth))
	fmt.Fprintf(&d.sb, format, a...)
	d.sb.WriteByte('\n')
}

func (d *dumper) nested(f func()) {
	d.depth++
	f()
	d.depth--
}

func (d *dumper) structDecl(s *ir.StructDecl) {
	d.line("StructDecl %s", s.Name.Name)
	d.nested(func() {
		for i := range s.Fields {
			d.line("Field %s: %s", s.Fields[i].Name, s.Fields[i].Type)
		}
	})
}

func (d *dumper) funDecl(f *ir.FunDecl) {
	d.line("FunDecl %s: %s", f.Name.Name, f.RetType)
	d.nested(func() {
		for i := range f.Params {
			d.line("Param %s: %s", f.Params[i].Name.Name, f.Params[i].Type)
		}
		for i := range f.Syms {
			s := &f.Syms[i]
			d.line("Sym %s: %s %s%s", s.Name.Name, s.Kind, s.Type, domain(s.Domain))
		}
		for i := range f.Lets {
			l := &f.Lets[i]
			mut := ""
			if l.Mutable {
				mut = "mut "
			}
			if l.Init != nil {
				d.line("Let %s%s: %s = %s", mut, l.Name.Name, l.Type, sirfmt.InitString(l.Init))
			} else {
				d.line("Let %s%s: %s", mut, l.Name.Name, l.Type)
			}
		}
		for bi := range f.Blocks {
			d.block(&f.Blocks[bi])
		}
	})
}

func domain(dom ir.Domain) string {
	switch dm := dom.(type) {
	case *ir.DomainInterval:
		return fmt.Sprintf(" in [%d, %d]", dm.Lo, dm.Hi)
	case *ir.DomainSet:
		var vals []string
		for _, v := range dm.Values {
			vals = append(vals, fmt.Sprintf("%d", v))
		}
		return " in {" + strings.Join(vals, ", ") + "}"
	}
	return ""
}

func (d *dumper) block(b *ir.Block) {
	d.line("Block %s", b.Label.Name)
	d.nested(func() {
		for _, ins := range b.Instrs {
			d.instr(ins)
		}
		d.term(b.Term)
	})
}

func (d *dumper) instr(ins ir.Instr) {
	switch i := ins.(type) {
	case *ir.AssignInstr:
		d.line("Assign %s", sirfmt.LValueString(i.LHS))
		d.nested(func() { d.expr(i.RHS) })
	case *ir.AssumeInstr:
		d.line("Assume %s", sirfmt.CondString(i.Cond))
	case *ir.RequireInstr:
		if i.HasMsg {
			d.line("Require %s, %q", sirfmt.CondString(i.Cond), i.Message)
		} else {
			d.line("Require %s", sirfmt.CondString(i.Cond))
		}
	}
}

func (d *dumper) term(t ir.Terminator) {
	switch term := t.(type) {
	case *ir.BrTerm:
		if term.IsConditional() {
			d.line("Br %s ? %s : %s", sirfmt.CondString(term.Cond), term.Then.Name, term.Else.Name)
		} else {
			d.line("Br %s", term.Dest.Name)
		}
	case *ir.RetTerm:
		if term.Value == nil {
			d.line("Ret")
		} else {
			d.line("Ret")
			d.nested(func() { d.expr(term.Value) })
		}
	case *ir.UnreachableTerm:
		d.line("Unreachable")
	}
}

func (d *dumper) expr(e *ir.Expr) {
	d.line("Expr #%d %s", e.ID, sirfmt.ExprString(e))
}
