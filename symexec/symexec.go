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

// Package symexec lowers one control-flow path of a SymIR function to
// SMT constraints and asks a solver for a satisfying assignment to the
// function's symbols.
//
// Undefined behaviour is not an error here: division by zero, signed
// overflow, out-of-bounds indexing, and overshifting are encoded as
// side constraints, so a path is feasible only if a witness avoids all
// of them. Floating point uses RNE rounding throughout, and "!=" on
// floats is the negation of the ordered equality.
package symexec

import (
	"time"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/base/ordered"
	"github.com/symir-lang/symir/build/ir"
	"github.com/symir-lang/symir/smt"
)

// Config tunes one executor instance.
type Config struct {
	// Timeout bounds the solver's CheckSat; zero means no limit. A
	// timeout surfaces as an Unknown result with an empty model.
	Timeout time.Duration
	// Seed makes randomized solver heuristics reproducible.
	Seed uint32
	// NewSolver builds the solver instance used by one Solve call.
	NewSolver func(Config) (smt.Solver, error)
}

// Value is one model entry: a signed integer or a float, keyed by the
// symbol's declared type.
type Value struct {
	Int     int64
	Float   float64
	IsFloat bool
}

// Result of solving one path.
type Result struct {
	Status smt.Result
	// Model maps each declared symbol to its value, in declaration
	// order. Empty unless Status is Sat.
	Model *ordered.Map[string, Value]
}

// Executor solves paths of one program. An executor may be reused for
// several Solve calls; each call owns a fresh solver instance.
type Executor struct {
	prog    *ir.Program
	config  Config
	structs map[string]*ir.StructDecl
}

// New returns an executor for the program.
func New(prog *ir.Program, config Config) *Executor {
	e := &Executor{prog: prog, config: config, structs: map[string]*ir.StructDecl{}}
	for i := range prog.Structs {
		e.structs[prog.Structs[i].Name.Name] = &prog.Structs[i]
	}
	return e
}

// run is the per-Solve state.
type run struct {
	ex     *Executor
	solver smt.Solver
	store  map[string]*symValue
	// pathConstraints holds branch conditions, assumptions, domain and
	// UB side conditions, in emission order.
	pathConstraints []smt.Term
	// requirements holds require conditions; they are asserted in
	// addition to the path constraints.
	requirements []smt.Term
}

// Solve walks the given block path of a function and extracts a model
// for its symbols. fixedSyms pins some symbols to concrete values
// before solving.
//
// A malformed path (unknown label, an edge not in the CFG, or a
// non-branch terminator followed by more blocks) is an error; no SMT
// query is issued for it.
func (e *Executor) Solve(funName string, path []string, fixedSyms map[string]int64) (*Result, error) {
	fun := e.prog.FindFun(funName)
	if fun == nil {
		return nil, errors.Errorf("function not found: %s", funName)
	}
	if len(path) == 0 {
		return nil, errors.New("empty path")
	}
	if e.config.NewSolver == nil {
		return nil, errors.New("no solver configured")
	}
	solver, err := e.config.NewSolver(e.config)
	if err != nil {
		return nil, errors.Wrap(err, "creating solver")
	}
	defer solver.Close()

	r := &run{ex: e, solver: solver, store: map[string]*symValue{}}
	if err := r.setup(fun, fixedSyms); err != nil {
		return nil, err
	}
	if err := r.walk(fun, path); err != nil {
		return nil, err
	}
	return r.finish(fun)
}

// setup declares symbols (with domains and pinned values), parameters,
// and let initializers, in that order.
func (r *run) setup(fun *ir.FunDecl, fixedSyms map[string]int64) error {
	for i := range fun.Syms {
		s := &fun.Syms[i]
		sv, err := r.fresh(s.Type, s.Name.Name)
		if err != nil {
			return err
		}
		r.store[s.Name.Name] = sv
		if err := r.applyDomain(s, sv); err != nil {
			return err
		}
		if v, ok := fixedSyms[s.Name.Name]; ok {
			sort, err := r.sortOf(s.Type)
			if err != nil {
				return err
			}
			var fixed smt.Term
			if r.solver.IsFP(sort) {
				fixed = r.solver.FPValue(sort, float64(v), smt.RNE)
			} else {
				fixed = r.solver.BVValueInt64(sort, v)
			}
			r.pathConstraints = append(r.pathConstraints,
				smt.Make2(r.solver, smt.Equal, sv.term, fixed))
		}
	}
	for i := range fun.Params {
		p := &fun.Params[i]
		sv, err := r.fresh(p.Type, p.Name.Name)
		if err != nil {
			return err
		}
		r.store[p.Name.Name] = sv
	}
	for i := range fun.Lets {
		l := &fun.Lets[i]
		var sv *symValue
		var err error
		if l.Init != nil {
			sv, err = r.evalInit(l.Init, l.Type)
		} else {
			sv, err = r.makeUndef(l.Type)
		}
		if err != nil {
			return err
		}
		r.store[l.Name.Name] = sv
	}
	return nil
}

func (r *run) applyDomain(s *ir.SymDecl, sv *symValue) error {
	if s.Domain == nil {
		return nil
	}
	sort, err := r.sortOf(s.Type)
	if err != nil {
		return err
	}
	switch d := s.Domain.(type) {
	case *ir.DomainInterval:
		lo := r.solver.BVValueInt64(sort, d.Lo)
		hi := r.solver.BVValueInt64(sort, d.Hi)
		r.pathConstraints = append(r.pathConstraints,
			smt.Make2(r.solver, smt.BVSle, lo, sv.term),
			smt.Make2(r.solver, smt.BVSle, sv.term, hi))
	case *ir.DomainSet:
		if len(d.Values) == 0 {
			return nil
		}
		var any smt.Term
		for _, v := range d.Values {
			eq := smt.Make2(r.solver, smt.Equal, sv.term, r.solver.BVValueInt64(sort, v))
			if any == nil {
				any = eq
			} else {
				any = smt.Make2(r.solver, smt.Or, any, eq)
			}
		}
		r.pathConstraints = append(r.pathConstraints, any)
	}
	return nil
}

// walk executes the blocks of the path in order and records the branch
// condition (or its negation) between consecutive blocks.
func (r *run) walk(fun *ir.FunDecl, path []string) error {
	indexOf := map[string]int{}
	for i := range fun.Blocks {
		label := fun.Blocks[i].Label.Name
		if _, dup := indexOf[label]; !dup {
			indexOf[label] = i
		}
	}

	for i, label := range path {
		bi, ok := indexOf[label]
		if !ok {
			return errors.Errorf("invalid block label in path: %s", label)
		}
		block := &fun.Blocks[bi]

		for _, ins := range block.Instrs {
			if err := r.execInstr(ins); err != nil {
				return err
			}
		}

		if i+1 >= len(path) {
			continue
		}
		next := path[i+1]
		switch term := block.Term.(type) {
		case *ir.BrTerm:
			if !term.IsConditional() {
				if term.Dest.Name != next {
					return errors.Errorf("path edge not in CFG: %s -> %s", label, next)
				}
				continue
			}
			cond, err := r.evalCond(term.Cond)
			if err != nil {
				return err
			}
			switch next {
			case term.Then.Name:
				r.pathConstraints = append(r.pathConstraints, cond)
			case term.Else.Name:
				r.pathConstraints = append(r.pathConstraints, smt.Make1(r.solver, smt.Not, cond))
			default:
				return errors.Errorf("path edge not in CFG: %s -> %s", label, next)
			}
		default:
			return errors.Errorf("block %s ends with non-branch terminator but path has more blocks", label)
		}
	}
	return nil
}

func (r *run) execInstr(ins ir.Instr) error {
	switch i := ins.(type) {
	case *ir.AssignInstr:
		lhs, err := r.evalLValue(i.LHS)
		if err != nil {
			return err
		}
		var expected smt.Sort
		if lhs.kind == scalarValue {
			expected = r.solver.SortOf(lhs.term)
		}
		rhs, err := r.evalExpr(i.RHS, expected)
		if err != nil {
			return err
		}
		val := &symValue{kind: scalarValue, term: rhs, defined: r.solver.True()}
		return r.setLValue(i.LHS, val)
	case *ir.AssumeInstr:
		cond, err := r.evalCond(i.Cond)
		if err != nil {
			return err
		}
		r.pathConstraints = append(r.pathConstraints, cond)
	case *ir.RequireInstr:
		cond, err := r.evalCond(i.Cond)
		if err != nil {
			return err
		}
		r.requirements = append(r.requirements, cond)
	}
	return nil
}

// finish asserts the collected constraints, checks satisfiability, and
// extracts the model.
func (r *run) finish(fun *ir.FunDecl) (*Result, error) {
	for _, c := range r.pathConstraints {
		r.solver.Assert(c)
	}
	for _, c := range r.requirements {
		r.solver.Assert(c)
	}
	status, err := r.solver.CheckSat()
	if err != nil {
		return nil, errors.Wrap(err, "check-sat")
	}
	res := &Result{Status: status, Model: ordered.NewMap[string, Value]()}
	if status != smt.Sat {
		return res, nil
	}
	for i := range fun.Syms {
		s := &fun.Syms[i]
		sv := r.store[s.Name.Name]
		v, err := r.modelValue(sv.term)
		if err != nil {
			return nil, errors.Wrapf(err, "reading model value of %s", s.Name.Name)
		}
		res.Model.Store(s.Name.Name, v)
	}
	return res, nil
}

func (r *run) modelValue(term smt.Term) (Value, error) {
	valTerm, err := r.solver.Value(term)
	if err != nil {
		return Value{}, err
	}
	if r.solver.IsFP(r.solver.SortOf(term)) {
		bin, err := r.solver.FPValueString(valTerm)
		if err != nil {
			return Value{}, err
		}
		f, err := decodeFloatBits(bin)
		if err != nil {
			return Value{}, err
		}
		return Value{Float: f, IsFloat: true}, nil
	}
	dec, err := r.solver.BVValueString(valTerm, 10)
	if err != nil {
		return Value{}, err
	}
	iv, err := parseSignedDecimal(dec)
	if err != nil {
		return Value{}, err
	}
	return Value{Int: iv}, nil
}
