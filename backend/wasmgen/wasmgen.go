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

// Package wasmgen emits WebAssembly text from a well-typed SymIR
// program with scalar locals.
//
// Control flow uses a dispatch loop: a $pc local selects the next basic
// block through a br_table over nested blocks, so arbitrary graphs need
// no restructuring. Integers narrower than 33 bits live in i32, wider
// ones in i64, both re-canonicalized by a shift pair after every
// assignment. Symbols become trailing parameters, and assume/require
// lower to a conditional unreachable trap.
//
// Aggregate locals (arrays, structs) are not supported by this backend;
// use the C emitter for programs that need them.
package wasmgen

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/build/ir"
)

// Emit renders the whole program as one Wasm text module.
func Emit(prog *ir.Program) (string, error) {
	var sb strings.Builder
	sb.WriteString("(module\n")
	for i := range prog.Funs {
		g := &funGen{sb: &sb, fun: &prog.Funs[i], types: map[string]ir.Type{}}
		if err := g.emit(); err != nil {
			return "", errors.Wrapf(err, "emitting %s", prog.Funs[i].Name.Name)
		}
	}
	sb.WriteString(")\n")
	return sb.String(), nil
}

type funGen struct {
	sb     *strings.Builder
	fun    *ir.FunDecl
	types  map[string]ir.Type
	indent int
}

func (g *funGen) line(format string, a ...any) {
	g.sb.WriteString(strings.Repeat("  ", g.indent+1))
	fmt.Fprintf(g.sb, format, a...)
	g.sb.WriteByte('\n')
}

func mangle(name string) string {
	name = strings.TrimPrefix(name, "@")
	name = strings.TrimPrefix(name, "%")
	name = strings.TrimPrefix(name, "?")
	return "$" + name
}

// valType maps a scalar type to its Wasm value type.
func valType(t ir.Type) (string, error) {
	switch tt := t.(type) {
	case *ir.IntType:
		if tt.Width() <= 32 {
			return "i32", nil
		}
		return "i64", nil
	case *ir.FloatType:
		if tt.Kind == ir.F32 {
			return "f32", nil
		}
		return "f64", nil
	}
	return "", errors.Errorf("aggregate type %s is not supported by the wasm backend", t)
}

func (g *funGen) emit() error {
	f := g.fun
	ret, err := valType(f.RetType)
	if err != nil {
		return err
	}

	var params []string
	for i := range f.Params {
		p := &f.Params[i]
		g.types[p.Name.Name] = p.Type
		vt, err := valType(p.Type)
		if err != nil {
			return err
		}
		params = append(params, fmt.Sprintf("(param %s %s)", mangle(p.Name.Name), vt))
	}
	for i := range f.Syms {
		s := &f.Syms[i]
		g.types[s.Name.Name] = s.Type
		vt, err := valType(s.Type)
		if err != nil {
			return err
		}
		params = append(params, fmt.Sprintf("(param %s %s)", mangle(s.Name.Name), vt))
	}

	g.line("(func %s (export %q) %s (result %s)", mangle(f.Name.Name),
		strings.TrimPrefix(f.Name.Name, "@"), strings.Join(params, " "), ret)
	g.indent++

	g.line("(local $pc i32)")
	for i := range f.Lets {
		l := &f.Lets[i]
		g.types[l.Name.Name] = l.Type
		vt, err := valType(l.Type)
		if err != nil {
			return err
		}
		g.line("(local %s %s)", mangle(l.Name.Name), vt)
	}

	for i := range f.Lets {
		if err := g.letInit(&f.Lets[i]); err != nil {
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
		g.line("(local.set $pc (i32.const %d))", entry)
	}

	// Dispatch loop: $pc picks the block through a br_table.
	g.line("(loop $dispatch")
	g.indent++
	labels := make([]string, len(f.Blocks))
	for bi := range f.Blocks {
		labels[bi] = fmt.Sprintf("$blk%d", bi)
	}
	for bi := len(f.Blocks) - 1; bi >= 0; bi-- {
		g.line("(block %s", labels[bi])
		g.indent++
	}
	g.line("(br_table %s (local.get $pc))", strings.Join(labels, " "))
	for bi := range f.Blocks {
		g.indent--
		g.line(") ;; %s", f.Blocks[bi].Label.Name)
		if err := g.block(&f.Blocks[bi]); err != nil {
			return err
		}
	}
	g.indent--
	g.line(")")
	g.line("unreachable")
	g.indent--
	g.line(")")
	return nil
}

func (g *funGen) letInit(l *ir.LetDecl) error {
	if l.Init == nil {
		return nil
	}
	switch init := l.Init.(type) {
	case *ir.UndefInit:
		return nil
	case *ir.IntLit:
		vt, _ := valType(l.Type)
		g.line("(local.set %s (%s.const %d))", mangle(l.Name.Name), vt, init.Value)
	case *ir.FloatLit:
		vt, _ := valType(l.Type)
		g.line("(local.set %s (%s.const %s))", mangle(l.Name.Name), vt, floatString(init.Value))
	case ir.SymID:
		g.line("(local.set %s (local.get %s))", mangle(l.Name.Name), mangle(init.Name))
	case ir.LocalID:
		g.line("(local.set %s (local.get %s))", mangle(l.Name.Name), mangle(init.Name))
	default:
		return errors.New("aggregate initializers are not supported by the wasm backend")
	}
	return nil
}

func floatString(v float64) string {
	s := fmt.Sprintf("%g", v)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (g *funGen) block(b *ir.Block) error {
	for _, ins := range b.Instrs {
		if err := g.instr(ins); err != nil {
			return err
		}
	}
	return g.term(b.Term)
}

func (g *funGen) instr(ins ir.Instr) error {
	switch i := ins.(type) {
	case *ir.AssignInstr:
		if len(i.LHS.Accesses) > 0 {
			return errors.New("aggregate lvalues are not supported by the wasm backend")
		}
		t, ok := g.types[i.LHS.Base.Name]
		if !ok {
			return errors.Errorf("unbound local: %s", i.LHS.Base.Name)
		}
		rhs, err := g.expr(i.RHS, t)
		if err != nil {
			return err
		}
		g.line("(local.set %s %s)", mangle(i.LHS.Base.Name), g.canon(rhs, t))
	case *ir.AssumeInstr:
		c, err := g.cond(i.Cond)
		if err != nil {
			return err
		}
		g.line("(if (i32.eqz %s) (then unreachable))", c)
	case *ir.RequireInstr:
		c, err := g.cond(i.Cond)
		if err != nil {
			return err
		}
		g.line("(if (i32.eqz %s) (then unreachable))", c)
	}
	return nil
}

func (g *funGen) term(t ir.Terminator) error {
	switch term := t.(type) {
	case *ir.BrTerm:
		if !term.IsConditional() {
			g.line("(local.set $pc (i32.const %d))", g.blockIndex(term.Dest.Name))
			g.line("(br $dispatch)")
			return nil
		}
		c, err := g.cond(term.Cond)
		if err != nil {
			return err
		}
		g.line("(local.set $pc (select (i32.const %d) (i32.const %d) %s))",
			g.blockIndex(term.Then.Name), g.blockIndex(term.Else.Name), c)
		g.line("(br $dispatch)")
	case *ir.RetTerm:
		if term.Value == nil {
			g.line("(return)")
			return nil
		}
		v, err := g.expr(term.Value, g.fun.RetType)
		if err != nil {
			return err
		}
		g.line("(return %s)", g.canon(v, g.fun.RetType))
	case *ir.UnreachableTerm:
		g.line("unreachable")
	}
	return nil
}

func (g *funGen) blockIndex(label string) int {
	for bi := range g.fun.Blocks {
		if g.fun.Blocks[bi].Label.Name == label {
			return bi
		}
	}
	return 0
}

// canon re-canonicalizes a custom-width integer inside its i32/i64
// container with a shift pair.
func (g *funGen) canon(expr string, t ir.Type) string {
	it, ok := t.(*ir.IntType)
	if !ok || it.Kind != ir.ICustom {
		return expr
	}
	w := it.Width()
	if w == 32 || w == 64 {
		return expr
	}
	vt := "i32"
	container := uint32(32)
	if w > 32 {
		vt = "i64"
		container = 64
	}
	shift := container - w
	return fmt.Sprintf("(%s.shr_s (%s.shl %s (%s.const %d)) (%s.const %d))",
		vt, vt, expr, vt, shift, vt, shift)
}
