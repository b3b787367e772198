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

// Package sirfmt prints a SymIR tree back to source syntax.
//
// With symbol values from a solver model, sym declarations print as
// concretized lets instead, under the symbol's own %? name. The parser
// accepts only %-named lets, so that form does not parse back.
package sirfmt

import (
	"fmt"
	"strings"

	"github.com/symir-lang/symir/build/ir"
)

// Config tunes the printer.
type Config struct {
	// SymValues substitutes a rendered value for each named symbol's
	// declaration.
	SymValues map[string]string
}

// Print renders a whole program with the default configuration.
func Print(prog *ir.Program) string {
	return Config{}.Print(prog)
}

// Print renders a whole program.
func (c Config) Print(prog *ir.Program) string {
	var sb strings.Builder
	for i := range prog.Structs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		c.printStruct(&sb, &prog.Structs[i])
	}
	for i := range prog.Funs {
		if i > 0 || len(prog.Structs) > 0 {
			sb.WriteByte('\n')
		}
		c.printFun(&sb, &prog.Funs[i])
	}
	return sb.String()
}

func (c Config) printStruct(sb *strings.Builder, s *ir.StructDecl) {
	fmt.Fprintf(sb, "struct %s {\n", s.Name.Name)
	for i := range s.Fields {
		fmt.Fprintf(sb, "  %s: %s;\n", s.Fields[i].Name, s.Fields[i].Type)
	}
	sb.WriteString("}\n")
}

func (c Config) printFun(sb *strings.Builder, f *ir.FunDecl) {
	var params []string
	for i := range f.Params {
		params = append(params, fmt.Sprintf("%s: %s", f.Params[i].Name.Name, f.Params[i].Type))
	}
	fmt.Fprintf(sb, "fun %s(%s): %s {\n", f.Name.Name, strings.Join(params, ", "), f.RetType)

	for i := range f.Syms {
		s := &f.Syms[i]
		if v, ok := c.SymValues[s.Name.Name]; ok {
			fmt.Fprintf(sb, "  let %s: %s = %s;\n", s.Name.Name, s.Type, v)
			continue
		}
		fmt.Fprintf(sb, "  sym %s: %s %s%s;\n", s.Name.Name, s.Kind, s.Type, domainString(s.Domain))
	}
	for i := range f.Lets {
		l := &f.Lets[i]
		mut := ""
		if l.Mutable {
			mut = "mut "
		}
		fmt.Fprintf(sb, "  let %s%s: %s", mut, l.Name.Name, l.Type)
		if l.Init != nil {
			fmt.Fprintf(sb, " = %s", InitString(l.Init))
		}
		sb.WriteString(";\n")
	}

	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		fmt.Fprintf(sb, "%s:\n", b.Label.Name)
		for _, ins := range b.Instrs {
			fmt.Fprintf(sb, "  %s\n", instrString(ins))
		}
		fmt.Fprintf(sb, "  %s\n", termString(b.Term))
	}
	sb.WriteString("}\n")
}

func domainString(d ir.Domain) string {
	switch dom := d.(type) {
	case *ir.DomainInterval:
		return fmt.Sprintf(" in [%d, %d]", dom.Lo, dom.Hi)
	case *ir.DomainSet:
		var vals []string
		for _, v := range dom.Values {
			vals = append(vals, fmt.Sprintf("%d", v))
		}
		return fmt.Sprintf(" in {%s}", strings.Join(vals, ", "))
	}
	return ""
}

// InitString renders a let initializer.
func InitString(iv ir.InitVal) string {
	switch init := iv.(type) {
	case *ir.UndefInit:
		return "undef"
	case *ir.AggregateInit:
		var elems []string
		for _, e := range init.Elems {
			elems = append(elems, InitString(e))
		}
		return "{" + strings.Join(elems, ", ") + "}"
	case *ir.IntLit:
		return fmt.Sprintf("%d", init.Value)
	case *ir.FloatLit:
		return FloatString(init.Value)
	case ir.SymID:
		return init.Name
	case ir.LocalID:
		return init.Name
	}
	return "<?init>"
}

// FloatString renders a float so it lexes as a float literal again.
func FloatString(v float64) string {
	s := fmt.Sprintf("%g", v)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func instrString(ins ir.Instr) string {
	switch i := ins.(type) {
	case *ir.AssignInstr:
		return fmt.Sprintf("%s = %s;", LValueString(i.LHS), ExprString(i.RHS))
	case *ir.AssumeInstr:
		return fmt.Sprintf("assume %s;", CondString(i.Cond))
	case *ir.RequireInstr:
		if i.HasMsg {
			return fmt.Sprintf("require %s, %q;", CondString(i.Cond), i.Message)
		}
		return fmt.Sprintf("require %s;", CondString(i.Cond))
	}
	return "<?instr>"
}

func termString(t ir.Terminator) string {
	switch term := t.(type) {
	case *ir.BrTerm:
		if term.IsConditional() {
			return fmt.Sprintf("br %s, %s, %s;", CondString(term.Cond), term.Then.Name, term.Else.Name)
		}
		return fmt.Sprintf("br %s;", term.Dest.Name)
	case *ir.RetTerm:
		if term.Value == nil {
			return "ret;"
		}
		return fmt.Sprintf("ret %s;", ExprString(term.Value))
	case *ir.UnreachableTerm:
		return "unreachable;"
	}
	return "<?term>"
}

// LValueString renders an lvalue with its accesses.
func LValueString(lv *ir.LValue) string {
	var sb strings.Builder
	sb.WriteString(lv.Base.Name)
	for _, acc := range lv.Accesses {
		switch a := acc.(type) {
		case *ir.AccessIndex:
			fmt.Fprintf(&sb, "[%s]", indexString(a.Index))
		case *ir.AccessField:
			fmt.Fprintf(&sb, ".%s", a.Field)
		}
	}
	return sb.String()
}

func indexString(idx ir.Index) string {
	switch id := idx.(type) {
	case *ir.IntLit:
		return fmt.Sprintf("%d", id.Value)
	case ir.LocalID:
		return id.Name
	case ir.SymID:
		return id.Name
	}
	return "<?index>"
}

func coefString(c ir.Coef) string {
	switch cf := c.(type) {
	case *ir.IntLit:
		return fmt.Sprintf("%d", cf.Value)
	case *ir.FloatLit:
		return FloatString(cf.Value)
	case ir.LocalID:
		return cf.Name
	case ir.SymID:
		return cf.Name
	}
	return "<?coef>"
}

// ExprString renders a linear expression.
func ExprString(e *ir.Expr) string {
	var sb strings.Builder
	sb.WriteString(atomString(e.First))
	for i := range e.Rest {
		fmt.Fprintf(&sb, " %s %s", e.Rest[i].Op, atomString(e.Rest[i].Atom))
	}
	return sb.String()
}

// CondString renders a comparison.
func CondString(c *ir.Cond) string {
	return fmt.Sprintf("%s %s %s", ExprString(c.LHS), c.Op, ExprString(c.RHS))
}

func atomString(a ir.Atom) string {
	switch at := a.(type) {
	case *ir.CoefAtom:
		return coefString(at.Coef)
	case *ir.RValueAtom:
		return LValueString(at.RVal)
	case *ir.OpAtom:
		return fmt.Sprintf("%s %s %s", coefString(at.Coef), at.Op, LValueString(at.RVal))
	case *ir.UnaryAtom:
		return "~" + LValueString(at.RVal)
	case *ir.SelectAtom:
		return fmt.Sprintf("select %s, %s, %s",
			CondString(at.Cond), selectValString(at.VTrue), selectValString(at.VFalse))
	case *ir.CastAtom:
		return fmt.Sprintf("%s as %s", castSrcString(at.CastSrc), at.DstType)
	}
	return "<?atom>"
}

func selectValString(sv ir.SelectVal) string {
	switch v := sv.(type) {
	case *ir.LValue:
		return LValueString(v)
	case *ir.IntLit:
		return fmt.Sprintf("%d", v.Value)
	case *ir.FloatLit:
		return FloatString(v.Value)
	case ir.LocalID:
		return v.Name
	case ir.SymID:
		return v.Name
	}
	return "<?selectval>"
}

func castSrcString(cs ir.CastSrc) string {
	switch s := cs.(type) {
	case *ir.IntLit:
		return fmt.Sprintf("%d", s.Value)
	case *ir.FloatLit:
		return FloatString(s.Value)
	case ir.SymID:
		return s.Name
	case *ir.LValue:
		return LValueString(s)
	}
	return "<?castsrc>"
}
