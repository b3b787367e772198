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

// Package passes sequences the checks and analyses over a program.
//
// Function passes are lifted to module passes that iterate over
// functions in declaration order; the module sequence stops at the
// first pass that reports an error.
package passes

import (
	"github.com/symir-lang/symir/analysis/definiteinit"
	"github.com/symir-lang/symir/analysis/reachability"
	"github.com/symir-lang/symir/analysis/unusedname"
	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/ir"
	"github.com/symir-lang/symir/build/semcheck"
	"github.com/symir-lang/symir/build/typecheck"
)

type (
	// ModulePass checks or analyses a whole program. It returns false
	// to stop the pipeline.
	ModulePass interface {
		Name() string
		Run(prog *ir.Program, diags *diag.Bag) bool
	}

	// FunctionPass checks or analyses one function.
	FunctionPass interface {
		Name() string
		RunFun(f *ir.FunDecl, diags *diag.Bag) bool
	}

	// Manager runs registered passes in order.
	Manager struct {
		diags  *diag.Bag
		passes []ModulePass
	}
)

// NewManager returns a manager appending to the given bag.
func NewManager(diags *diag.Bag) *Manager {
	return &Manager{diags: diags}
}

// AddModulePass registers a module pass.
func (m *Manager) AddModulePass(p ModulePass) {
	m.passes = append(m.passes, p)
}

// AddFunctionPass registers a function pass, lifted to run over every
// function. The lifted pass fails iff the pass failed on any function.
func (m *Manager) AddFunctionPass(p FunctionPass) {
	m.passes = append(m.passes, &funcPassLift{pass: p})
}

// Run executes the passes in registration order and stops at the first
// failing pass. It returns false if any pass failed.
func (m *Manager) Run(prog *ir.Program) bool {
	for _, p := range m.passes {
		if !p.Run(prog, m.diags) {
			return false
		}
	}
	return true
}

type funcPassLift struct {
	pass FunctionPass
}

func (l *funcPassLift) Name() string { return l.pass.Name() }

func (l *funcPassLift) Run(prog *ir.Program, diags *diag.Bag) bool {
	ok := true
	for i := range prog.Funs {
		if !l.pass.RunFun(&prog.Funs[i], diags) {
			ok = false
		}
	}
	return ok
}

// ----------------------------------------------------------------------------
// Standard passes.

type semCheckPass struct{}

func (semCheckPass) Name() string { return "semcheck" }

func (semCheckPass) Run(prog *ir.Program, diags *diag.Bag) bool {
	return semcheck.Run(prog, diags)
}

// TypeCheckPass runs the type checker and keeps its annotations.
type TypeCheckPass struct {
	// Annotations holds the inferred types after the pass has run.
	Annotations typecheck.Annotations
}

// Name of the pass.
func (*TypeCheckPass) Name() string { return "typecheck" }

// Run implements ModulePass.
func (p *TypeCheckPass) Run(prog *ir.Program, diags *diag.Bag) bool {
	ann, ok := typecheck.Run(prog, diags)
	p.Annotations = ann
	return ok
}

type reachabilityPass struct{}

func (reachabilityPass) Name() string { return "reachability" }

func (reachabilityPass) RunFun(f *ir.FunDecl, diags *diag.Bag) bool {
	return reachability.Run(f, diags)
}

type definiteInitPass struct{}

func (definiteInitPass) Name() string { return "definite-init" }

func (definiteInitPass) RunFun(f *ir.FunDecl, diags *diag.Bag) bool {
	return definiteinit.Run(f, diags)
}

type unusedNamePass struct{}

func (unusedNamePass) Name() string { return "unused-name" }

func (unusedNamePass) RunFun(f *ir.FunDecl, diags *diag.Bag) bool {
	return unusedname.Run(f, diags)
}

// Default returns a manager with the standard sequence:
// semcheck, typecheck, reachability, definite-init, unused-name.
func Default(diags *diag.Bag) *Manager {
	m := NewManager(diags)
	m.AddModulePass(semCheckPass{})
	m.AddModulePass(&TypeCheckPass{})
	m.AddFunctionPass(reachabilityPass{})
	m.AddFunctionPass(definiteInitPass{})
	m.AddFunctionPass(unusedNamePass{})
	return m
}
