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

// Package interp runs well-typed SymIR programs with all symbols bound.
//
// The dynamic checks mirror the side conditions the symbolic executor
// encodes: division by zero, INT_MIN / -1, signed overflow on addition,
// subtraction and multiplication, shifting by the width or more,
// out-of-bounds indexing, and reads of undef all stop execution with a
// UBError. On a program and binding for which the solver reports a
// satisfiable path, running the interpreter takes exactly that path and
// violates no requirement.
package interp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/analysis/cfg"
	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/ir"
	"github.com/symir-lang/symir/build/source"
	"golang.org/x/exp/maps"
)

// UBError reports undefined behaviour encountered during execution.
type UBError struct {
	Message string
	Span    source.Span
}

// Error implements error.
func (e *UBError) Error() string {
	return fmt.Sprintf("undefined behaviour at %s: %s", e.Span, e.Message)
}

func ubErrorf(sp source.Span, format string, a ...any) error {
	return &UBError{Message: fmt.Sprintf(format, a...), Span: sp}
}

// RequireError reports a violated require instruction.
type RequireError struct {
	Message string
	Span    source.Span
}

// Error implements error.
func (e *RequireError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("requirement violated at %s", e.Span)
	}
	return fmt.Sprintf("requirement violated at %s: %s", e.Span, e.Message)
}

// Config tunes an interpreter instance.
type Config struct {
	// MaxBlocks bounds the number of blocks executed per call; zero
	// means the default of 1 << 20.
	MaxBlocks int
}

// Outcome of one function execution.
type Outcome struct {
	// Ret is the returned value; HasRet is false for a bare ret.
	Ret    Value
	HasRet bool
	// Path lists the labels of the blocks executed, in order.
	Path []string
}

// Interpreter executes functions of one program.
type Interpreter struct {
	prog    *ir.Program
	config  Config
	structs map[string]*ir.StructDecl
}

// frame is the mutable state of one function execution.
type frame struct {
	locals map[string]Value
	// types holds the declared type of every local, parameter, and
	// symbol; assignments derive their expected width from it.
	types map[string]ir.Type
}

// New returns an interpreter for the program.
func New(prog *ir.Program, config Config) *Interpreter {
	it := &Interpreter{prog: prog, config: config, structs: map[string]*ir.StructDecl{}}
	for i := range prog.Structs {
		it.structs[prog.Structs[i].Name.Name] = &prog.Structs[i]
	}
	return it
}

// Run executes a function with the given arguments (in parameter order)
// and symbol bindings. Every declared symbol must be bound.
func (it *Interpreter) Run(funName string, args []Value, syms map[string]Value) (*Outcome, error) {
	fun := it.prog.FindFun(funName)
	if fun == nil {
		return nil, errors.Errorf("function not found: %s", funName)
	}
	if len(args) != len(fun.Params) {
		return nil, errors.Errorf("%s takes %d arguments, got %d", funName, len(fun.Params), len(args))
	}

	declared := map[string]bool{}
	for i := range fun.Syms {
		declared[fun.Syms[i].Name.Name] = true
	}
	for name := range syms {
		if !declared[name] {
			known := maps.Keys(declared)
			sort.Strings(known)
			return nil, errors.Errorf("unknown symbol %s (declared: %s)", name, strings.Join(known, ", "))
		}
	}

	f := &frame{locals: map[string]Value{}, types: map[string]ir.Type{}}
	for i := range fun.Syms {
		s := &fun.Syms[i]
		f.types[s.Name.Name] = s.Type
		bound, ok := syms[s.Name.Name]
		if !ok {
			return nil, errors.Errorf("unbound symbol: %s", s.Name.Name)
		}
		v, err := it.convertScalar(bound, s.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "binding symbol %s", s.Name.Name)
		}
		if err := it.checkDomain(s, v); err != nil {
			return nil, err
		}
		f.locals[s.Name.Name] = v
	}
	for i := range fun.Params {
		p := &fun.Params[i]
		f.types[p.Name.Name] = p.Type
		v := args[i]
		if ir.IsScalar(p.Type) {
			var err error
			v, err = it.convertScalar(v, p.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "binding parameter %s", p.Name.Name)
			}
		}
		f.locals[p.Name.Name] = v
	}
	for i := range fun.Lets {
		l := &fun.Lets[i]
		f.types[l.Name.Name] = l.Type
		var v Value
		var err error
		if l.Init != nil {
			v, err = it.initOf(l.Init, l.Type, f)
		} else {
			v, err = it.undefOf(l.Type)
		}
		if err != nil {
			return nil, err
		}
		f.locals[l.Name.Name] = v
	}

	var diags diag.Bag
	g := cfg.Build(fun, &diags)
	if diags.HasErrors() {
		return nil, diags.ToError()
	}

	maxBlocks := it.config.MaxBlocks
	if maxBlocks == 0 {
		maxBlocks = 1 << 20
	}

	out := &Outcome{}
	bi := g.Entry
	for steps := 0; ; steps++ {
		if steps >= maxBlocks {
			return nil, errors.Errorf("execution exceeded %d blocks", maxBlocks)
		}
		block := &fun.Blocks[bi]
		out.Path = append(out.Path, block.Label.Name)

		for _, ins := range block.Instrs {
			if err := it.execInstr(ins, f); err != nil {
				return nil, err
			}
		}

		switch term := block.Term.(type) {
		case *ir.BrTerm:
			if !term.IsConditional() {
				bi = g.IndexOf[term.Dest.Name]
				continue
			}
			taken, err := it.evalCond(term.Cond, f)
			if err != nil {
				return nil, err
			}
			if taken {
				bi = g.IndexOf[term.Then.Name]
			} else {
				bi = g.IndexOf[term.Else.Name]
			}

		case *ir.RetTerm:
			if term.Value != nil {
				v, err := it.evalExpr(term.Value, expectedOf(fun.RetType), f)
				if err != nil {
					return nil, err
				}
				out.Ret, out.HasRet = v, true
			}
			return out, nil

		case *ir.UnreachableTerm:
			return nil, ubErrorf(term.Src, "reached unreachable")
		}
	}
}

func (it *Interpreter) checkDomain(s *ir.SymDecl, v Value) error {
	if s.Domain == nil {
		return nil
	}
	if v.Kind != Int {
		return errors.Errorf("domain on non-integer symbol %s", s.Name.Name)
	}
	switch d := s.Domain.(type) {
	case *ir.DomainInterval:
		if v.I < d.Lo || v.I > d.Hi {
			return errors.Errorf("symbol %s = %d outside domain [%d, %d]", s.Name.Name, v.I, d.Lo, d.Hi)
		}
	case *ir.DomainSet:
		for _, dv := range d.Values {
			if v.I == dv {
				return nil
			}
		}
		return errors.Errorf("symbol %s = %d outside its domain set", s.Name.Name, v.I)
	}
	return nil
}

func (it *Interpreter) execInstr(ins ir.Instr, f *frame) error {
	switch i := ins.(type) {
	case *ir.AssignInstr:
		target, err := it.typeAtLValue(i.LHS, f)
		if err != nil {
			return err
		}
		v, err := it.evalExpr(i.RHS, expectedOf(target), f)
		if err != nil {
			return err
		}
		return it.setLValue(i.LHS, v, f)

	case *ir.AssumeInstr:
		ok, err := it.evalCond(i.Cond, f)
		if err != nil {
			return err
		}
		if !ok {
			return ubErrorf(i.Src, "assumption violated")
		}

	case *ir.RequireInstr:
		ok, err := it.evalCond(i.Cond, f)
		if err != nil {
			return err
		}
		if !ok {
			return &RequireError{Message: i.Message, Span: i.Src}
		}
	}
	return nil
}
