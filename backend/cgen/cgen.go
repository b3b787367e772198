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

// Package cgen emits C99 from a well-typed SymIR program.
//
// Symbols become trailing function parameters, so the caller supplies
// the values a solver chose. Assume and require lower to assert, and
// custom-width integers are stored in the smallest standard type that
// fits, re-canonicalized by sign extension after every assignment.
package cgen

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/build/ir"
)

// Emit renders the whole program as one C translation unit.
func Emit(prog *ir.Program) (string, error) {
	g := &gen{prog: prog, structs: map[string]*ir.StructDecl{}}
	for i := range prog.Structs {
		g.structs[prog.Structs[i].Name.Name] = &prog.Structs[i]
	}

	g.line("#include <assert.h>")
	g.line("#include <math.h>")
	g.line("#include <stdint.h>")
	g.line("")
	for i := range prog.Structs {
		if err := g.structDecl(&prog.Structs[i]); err != nil {
			return "", err
		}
	}
	for i := range prog.Funs {
		if err := g.funDecl(&prog.Funs[i]); err != nil {
			return "", err
		}
	}
	return g.sb.String(), nil
}

type gen struct {
	prog    *ir.Program
	structs map[string]*ir.StructDecl
	sb      strings.Builder
	indent  int
}

func (g *gen) line(format string, a ...any) {
	g.sb.WriteString(strings.Repeat("  ", g.indent))
	fmt.Fprintf(&g.sb, format, a...)
	g.sb.WriteByte('\n')
}

// mangle turns a sigiled SymIR name into a C identifier.
func mangle(name string) string {
	name = strings.TrimPrefix(name, "@")
	name = strings.TrimPrefix(name, "%")
	name = strings.TrimPrefix(name, "?")
	name = strings.TrimPrefix(name, "^")
	return "symir_" + name
}

// storageType returns the C type that stores a scalar, or an error for
// aggregates.
func storageType(t ir.Type) (string, error) {
	switch tt := t.(type) {
	case *ir.IntType:
		w := tt.Width()
		switch {
		case w <= 8:
			return "int8_t", nil
		case w <= 16:
			return "int16_t", nil
		case w <= 32:
			return "int32_t", nil
		default:
			return "int64_t", nil
		}
	case *ir.FloatType:
		if tt.Kind == ir.F32 {
			return "float", nil
		}
		return "double", nil
	}
	return "", errors.Errorf("no scalar storage type for %s", t)
}

// declString renders a C declarator for a possibly aggregate type.
func (g *gen) declString(t ir.Type, name string) (string, error) {
	var dims string
	for {
		at := ir.AsArray(t)
		if at == nil {
			break
		}
		dims += fmt.Sprintf("[%d]", at.Size)
		t = at.Elem
	}
	if st := ir.AsStruct(t); st != nil {
		return fmt.Sprintf("%s %s%s", mangle(st.Name.Name), name, dims), nil
	}
	base, err := storageType(t)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s%s", base, name, dims), nil
}

func (g *gen) structDecl(s *ir.StructDecl) error {
	g.line("typedef struct {")
	g.indent++
	for i := range s.Fields {
		d, err := g.declString(s.Fields[i].Type, s.Fields[i].Name)
		if err != nil {
			return err
		}
		g.line("%s;", d)
	}
	g.indent--
	g.line("} %s;", mangle(s.Name.Name))
	g.line("")
	return nil
}

func (g *gen) funDecl(f *ir.FunDecl) error {
	fg := &funGen{gen: g, fun: f, types: map[string]ir.Type{}}
	return fg.emit()
}

// funGen carries per-function state.
type funGen struct {
	*gen
	fun   *ir.FunDecl
	types map[string]ir.Type
}

func (fg *funGen) emit() error {
	f := fg.fun
	ret, err := storageType(f.RetType)
	if err != nil {
		return errors.Wrapf(err, "return type of %s", f.Name.Name)
	}

	var params []string
	for i := range f.Params {
		p := &f.Params[i]
		fg.types[p.Name.Name] = p.Type
		d, err := fg.declString(p.Type, mangle(p.Name.Name))
		if err != nil {
			return err
		}
		params = append(params, d)
	}
	// The solver's choices arrive as trailing parameters.
	for i := range f.Syms {
		s := &f.Syms[i]
		fg.types[s.Name.Name] = s.Type
		d, err := fg.declString(s.Type, mangle(s.Name.Name))
		if err != nil {
			return err
		}
		params = append(params, d)
	}
	if len(params) == 0 {
		params = []string{"void"}
	}
	fg.line("%s %s(%s) {", ret, mangle(f.Name.Name), strings.Join(params, ", "))
	fg.indent++

	for i := range f.Lets {
		l := &f.Lets[i]
		fg.types[l.Name.Name] = l.Type
		if err := fg.letDecl(l); err != nil {
			return err
		}
	}

	entry := 0
	for bi := range f.Blocks {
		if f.Blocks[bi].Label.Name == "^entry" {
			entry = bi
		}
	}
	if entry != 0 {
		fg.line("goto %s;", mangle(f.Blocks[entry].Label.Name))
	}

	for bi := range f.Blocks {
		if err := fg.block(&f.Blocks[bi]); err != nil {
			return err
		}
	}

	fg.indent--
	fg.line("}")
	fg.line("")
	return nil
}

func (fg *funGen) letDecl(l *ir.LetDecl) error {
	d, err := fg.declString(l.Type, mangle(l.Name.Name))
	if err != nil {
		return err
	}
	if l.Init == nil {
		fg.line("%s;", d)
		return nil
	}
	init, err := fg.initString(l.Init, l.Type)
	if err != nil {
		return err
	}
	if init == "" {
		fg.line("%s;", d)
		return nil
	}
	fg.line("%s = %s;", d, init)
	return nil
}

// initString renders a C initializer, or "" for undef.
func (fg *funGen) initString(iv ir.InitVal, t ir.Type) (string, error) {
	switch init := iv.(type) {
	case *ir.UndefInit:
		return "", nil
	case *ir.AggregateInit:
		var elemType func(i int) (ir.Type, error)
		if at := ir.AsArray(t); at != nil {
			elemType = func(int) (ir.Type, error) { return at.Elem, nil }
		} else if st := ir.AsStruct(t); st != nil {
			sd, ok := fg.structs[st.Name.Name]
			if !ok {
				return "", errors.Errorf("unknown struct type: %s", st.Name.Name)
			}
			elemType = func(i int) (ir.Type, error) { return sd.Fields[i].Type, nil }
		} else {
			return "", errors.Errorf("aggregate initializer for %s", t)
		}
		var elems []string
		for i, e := range init.Elems {
			et, err := elemType(i)
			if err != nil {
				return "", err
			}
			s, err := fg.initString(e, et)
			if err != nil {
				return "", err
			}
			if s == "" {
				s = "0"
			}
			elems = append(elems, s)
		}
		return "{" + strings.Join(elems, ", ") + "}", nil
	case *ir.IntLit:
		return fg.broadcastString(t, fmt.Sprintf("%d", init.Value))
	case *ir.FloatLit:
		return fg.broadcastString(t, floatString(init.Value))
	case ir.SymID:
		return fg.broadcastString(t, mangle(init.Name))
	case ir.LocalID:
		return fg.broadcastString(t, mangle(init.Name))
	}
	return "", errors.New("unhandled initializer")
}

// broadcastString replicates a scalar over an aggregate shape.
func (fg *funGen) broadcastString(t ir.Type, scalar string) (string, error) {
	if at := ir.AsArray(t); at != nil {
		inner, err := fg.broadcastString(at.Elem, scalar)
		if err != nil {
			return "", err
		}
		elems := make([]string, at.Size)
		for i := range elems {
			elems[i] = inner
		}
		return "{" + strings.Join(elems, ", ") + "}", nil
	}
	if st := ir.AsStruct(t); st != nil {
		sd, ok := fg.structs[st.Name.Name]
		if !ok {
			return "", errors.Errorf("unknown struct type: %s", st.Name.Name)
		}
		var elems []string
		for i := range sd.Fields {
			inner, err := fg.broadcastString(sd.Fields[i].Type, scalar)
			if err != nil {
				return "", err
			}
			elems = append(elems, inner)
		}
		return "{" + strings.Join(elems, ", ") + "}", nil
	}
	return scalar, nil
}

func floatString(v float64) string {
	s := fmt.Sprintf("%g", v)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (fg *funGen) block(b *ir.Block) error {
	fg.line("%s:;", mangle(b.Label.Name))
	fg.indent++
	for _, ins := range b.Instrs {
		if err := fg.instr(ins); err != nil {
			return err
		}
	}
	if err := fg.term(b.Term); err != nil {
		return err
	}
	fg.indent--
	return nil
}

func (fg *funGen) instr(ins ir.Instr) error {
	switch i := ins.(type) {
	case *ir.AssignInstr:
		lhs, lt, err := fg.lvalue(i.LHS)
		if err != nil {
			return err
		}
		rhs, err := fg.expr(i.RHS, lt)
		if err != nil {
			return err
		}
		fg.line("%s = %s;", lhs, fg.canon(rhs, lt))
	case *ir.AssumeInstr:
		c, err := fg.cond(i.Cond)
		if err != nil {
			return err
		}
		fg.line("assert(%s);", c)
	case *ir.RequireInstr:
		c, err := fg.cond(i.Cond)
		if err != nil {
			return err
		}
		if i.HasMsg {
			fg.line("assert((%s) && %q);", c, i.Message)
		} else {
			fg.line("assert(%s);", c)
		}
	}
	return nil
}

func (fg *funGen) term(t ir.Terminator) error {
	switch term := t.(type) {
	case *ir.BrTerm:
		if !term.IsConditional() {
			fg.line("goto %s;", mangle(term.Dest.Name))
			return nil
		}
		c, err := fg.cond(term.Cond)
		if err != nil {
			return err
		}
		fg.line("if (%s) goto %s; else goto %s;", c, mangle(term.Then.Name), mangle(term.Else.Name))
	case *ir.RetTerm:
		if term.Value == nil {
			fg.line("return;")
			return nil
		}
		v, err := fg.expr(term.Value, fg.fun.RetType)
		if err != nil {
			return err
		}
		fg.line("return %s;", fg.canon(v, fg.fun.RetType))
	case *ir.UnreachableTerm:
		fg.line("assert(0 && \"unreachable\");")
	}
	return nil
}

// canon re-canonicalizes a custom-width integer by shifting through the
// storage type.
func (fg *funGen) canon(expr string, t ir.Type) string {
	it, ok := t.(*ir.IntType)
	if !ok || it.Kind != ir.ICustom {
		return expr
	}
	st, _ := storageType(t)
	var storeBits uint32
	switch st {
	case "int8_t":
		storeBits = 8
	case "int16_t":
		storeBits = 16
	case "int32_t":
		storeBits = 32
	default:
		storeBits = 64
	}
	if storeBits == it.Width() {
		return expr
	}
	shift := storeBits - it.Width()
	return fmt.Sprintf("(%s)((%s)((%s) << %d) >> %d)", st, st, expr, shift, shift)
}
