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

package ir

// Reads visits every name read by an expression tree.
//
// LValue is invoked for each lvalue read (including select arms and cast
// sources that are lvalues); Ident is invoked for each bare identifier
// read: coefficients, select arms, cast sources, and array indices that
// are locals or symbols. The identifier passed to Ident is a LocalID or
// a SymID.
type Reads struct {
	LValue func(*LValue)
	Ident  func(Node)
}

// Expr walks an expression.
func (r Reads) Expr(e *Expr) {
	r.atom(e.First)
	for _, t := range e.Rest {
		r.atom(t.Atom)
	}
}

// Cond walks both sides of a condition.
func (r Reads) Cond(c *Cond) {
	r.Expr(c.LHS)
	r.Expr(c.RHS)
}

func (r Reads) atom(a Atom) {
	switch at := a.(type) {
	case *OpAtom:
		r.coef(at.Coef)
		r.lvalue(at.RVal)
	case *UnaryAtom:
		r.lvalue(at.RVal)
	case *SelectAtom:
		r.Cond(at.Cond)
		r.selectVal(at.VTrue)
		r.selectVal(at.VFalse)
	case *CoefAtom:
		r.coef(at.Coef)
	case *RValueAtom:
		r.lvalue(at.RVal)
	case *CastAtom:
		switch src := at.CastSrc.(type) {
		case SymID:
			r.ident(src)
		case *LValue:
			r.lvalue(src)
		}
	}
}

func (r Reads) coef(c Coef) {
	switch id := c.(type) {
	case LocalID:
		r.ident(id)
	case SymID:
		r.ident(id)
	}
}

func (r Reads) selectVal(sv SelectVal) {
	switch v := sv.(type) {
	case *LValue:
		r.lvalue(v)
	case LocalID:
		r.ident(v)
	case SymID:
		r.ident(v)
	}
}

func (r Reads) lvalue(lv *LValue) {
	if r.LValue != nil {
		r.LValue(lv)
	}
	for _, acc := range lv.Accesses {
		ai, ok := acc.(*AccessIndex)
		if !ok {
			continue
		}
		switch id := ai.Index.(type) {
		case LocalID:
			r.ident(id)
		case SymID:
			r.ident(id)
		}
	}
}

func (r Reads) ident(n Node) {
	if r.Ident != nil {
		r.Ident(n)
	}
}

// InstrReads walks the reads of one instruction. Assignment targets are
// not reads: the left-hand side's accesses are visited (indices are
// read) but the base itself is reported through Assigned instead.
func InstrReads(ins Instr, r Reads, assigned func(*LValue)) {
	switch i := ins.(type) {
	case *AssignInstr:
		r.Expr(i.RHS)
		for _, acc := range i.LHS.Accesses {
			if ai, ok := acc.(*AccessIndex); ok {
				switch id := ai.Index.(type) {
				case LocalID:
					r.ident(id)
				case SymID:
					r.ident(id)
				}
			}
		}
		if assigned != nil {
			assigned(i.LHS)
		}
	case *AssumeInstr:
		r.Cond(i.Cond)
	case *RequireInstr:
		r.Cond(i.Cond)
	}
}

// TermReads walks the reads of a terminator.
func TermReads(term Terminator, r Reads) {
	switch t := term.(type) {
	case *BrTerm:
		if t.Cond != nil {
			r.Cond(t.Cond)
		}
	case *RetTerm:
		if t.Value != nil {
			r.Expr(t.Value)
		}
	}
}
