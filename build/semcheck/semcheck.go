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

// Package semcheck enforces the structural invariants of a program:
// unique names, sigil scoping, non-empty function bodies, and valid
// symbol domains. It runs before the type checker.
package semcheck

import (
	"strings"

	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/ir"
)

// Run checks the whole program. It returns false if any error was
// appended to the bag.
func Run(prog *ir.Program, diags *diag.Bag) bool {
	globals := map[string]bool{}
	for i := range prog.Structs {
		s := &prog.Structs[i]
		if globals[s.Name.Name] {
			diags.Errorf(s.Src, "duplicate global name (struct): %s", s.Name.Name)
		}
		globals[s.Name.Name] = true
		checkStruct(s, diags)
	}
	for i := range prog.Funs {
		f := &prog.Funs[i]
		if globals[f.Name.Name] {
			diags.Errorf(f.Src, "duplicate global name (function): %s", f.Name.Name)
		}
		globals[f.Name.Name] = true
		checkFunction(f, diags)
	}
	return !diags.HasErrors()
}

func checkStruct(s *ir.StructDecl, diags *diag.Bag) {
	fields := map[string]bool{}
	for i := range s.Fields {
		f := &s.Fields[i]
		if fields[f.Name] {
			diags.Errorf(f.Src, "duplicate field name: %s", f.Name)
		}
		fields[f.Name] = true
	}
}

func checkFunction(f *ir.FunDecl, diags *diag.Bag) {
	if len(f.Blocks) == 0 {
		diags.Errorf(f.Src, "function must have at least one basic block")
	}

	// Inside a function, symbols must be local (%?) not global (@?).
	for i := range f.Syms {
		s := &f.Syms[i]
		if strings.HasPrefix(s.Name.Name, "@?") {
			diags.Errorf(s.Name.Src,
				"global symbol '%s' declared in local scope. Use '%%?' for local symbols.",
				s.Name.Name)
		}
	}

	// Params, symbols, and lets share one namespace.
	locals := map[string]bool{}
	for i := range f.Params {
		p := &f.Params[i]
		if locals[p.Name.Name] {
			diags.Errorf(p.Src, "duplicate parameter name: %s", p.Name.Name)
		}
		locals[p.Name.Name] = true
	}
	for i := range f.Syms {
		s := &f.Syms[i]
		if locals[s.Name.Name] {
			diags.Errorf(s.Src, "duplicate name (symbol): %s", s.Name.Name)
		}
		locals[s.Name.Name] = true
	}
	for i := range f.Lets {
		l := &f.Lets[i]
		if locals[l.Name.Name] {
			diags.Errorf(l.Src, "duplicate name (local): %s", l.Name.Name)
		}
		locals[l.Name.Name] = true
	}

	labels := map[string]bool{}
	for i := range f.Blocks {
		b := &f.Blocks[i]
		if labels[b.Label.Name] {
			diags.Errorf(b.Label.Src, "duplicate block label: %s", b.Label.Name)
		}
		labels[b.Label.Name] = true
	}

	for i := range f.Syms {
		s := &f.Syms[i]
		interval, ok := s.Domain.(*ir.DomainInterval)
		if ok && interval.Lo > interval.Hi {
			diags.Errorf(interval.Src, "invalid symbol domain: lower bound > upper bound")
		}
	}
}
