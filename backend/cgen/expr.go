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

package cgen

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/build/ir"
)

// lvalue renders an lvalue and resolves its type.
func (fg *funGen) lvalue(lv *ir.LValue) (string, ir.Type, error) {
	cur, ok := fg.types[lv.Base.Name]
	if !ok {
		return "", nil, errors.Errorf("unbound local: %s", lv.Base.Name)
	}
	var sb strings.Builder
	sb.WriteString(mangle(lv.Base.Name))
	for _, acc := range lv.Accesses {
		switch a := acc.(type) {
		case *ir.AccessIndex:
			at := ir.AsArray(cur)
			if at == nil {
				return "", nil, errors.New("indexing non-array")
			}
			idx, err := fg.indexString(a.Index)
			if err != nil {
				return "", nil, err
			}
			fmt.Fprintf(&sb, "[%s]", idx)
			cur = at.Elem
		case *ir.AccessField:
			st := ir.AsStruct(cur)
			if st == nil {
				return "", nil, errors.New("field access on non-struct")
			}
			sd, ok := fg.structs[st.Name.Name]
			if !ok {
				return "", nil, errors.Errorf("unknown struct type: %s", st.Name.Name)
			}
			fi := sd.FieldIndex(a.Field)
			if fi < 0 {
				return "", nil, errors.Errorf("unknown field: %s", a.Field)
			}
			fmt.Fprintf(&sb, ".%s", a.Field)
			cur = sd.Fields[fi].Type
		}
	}
	return sb.String(), cur, nil
}

func (fg *funGen) indexString(idx ir.Index) (string, error) {
	switch id := idx.(type) {
	case *ir.IntLit:
		return fmt.Sprintf("%d", id.Value), nil
	case ir.LocalID:
		return mangle(id.Name), nil
	case ir.SymID:
		return mangle(id.Name), nil
	}
	return "", errors.New("unhandled index")
}

// expr folds the linear form with explicit parentheses; C's left
// associativity preserves the evaluation order.
func (fg *funGen) expr(e *ir.Expr, hint ir.Type) (string, error) {
	acc, accType, err := fg.atom(e.First, hint)
	if err != nil {
		return "", err
	}
	for ti := range e.Rest {
		tail := &e.Rest[ti]
		rhs, _, err := fg.atom(tail.Atom, accType)
		if err != nil {
			return "", err
		}
		acc = fmt.Sprintf("(%s %s %s)", acc, tail.Op, rhs)
	}
	return acc, nil
}

func (fg *funGen) atom(a ir.Atom, hint ir.Type) (string, ir.Type, error) {
	switch at := a.(type) {
	case *ir.CoefAtom:
		s, err := fg.coefString(at.Coef, hint)
		return s, fg.coefType(at.Coef, hint), err

	case *ir.RValueAtom:
		s, t, err := fg.lvalue(at.RVal)
		return s, t, err

	case *ir.UnaryAtom:
		s, t, err := fg.lvalue(at.RVal)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(~%s)", s), t, nil

	case *ir.OpAtom:
		rv, rt, err := fg.lvalue(at.RVal)
		if err != nil {
			return "", nil, err
		}
		coef, err := fg.coefString(at.Coef, rt)
		if err != nil {
			return "", nil, err
		}
		s, err := fg.opString(at.Op, coef, rv, rt)
		return s, rt, err

	case *ir.SelectAtom:
		c, err := fg.cond(at.Cond)
		if err != nil {
			return "", nil, err
		}
		vt, tt, err := fg.selectValString(at.VTrue, hint)
		if err != nil {
			return "", nil, err
		}
		vf, _, err := fg.selectValString(at.VFalse, tt)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("((%s) ? %s : %s)", c, vt, vf), tt, nil

	case *ir.CastAtom:
		var src string
		var err error
		switch cs := at.CastSrc.(type) {
		case *ir.IntLit:
			src = fmt.Sprintf("%d", cs.Value)
		case *ir.FloatLit:
			src = floatString(cs.Value)
		case ir.SymID:
			src = mangle(cs.Name)
		case *ir.LValue:
			src, _, err = fg.lvalue(cs)
		}
		if err != nil {
			return "", nil, err
		}
		st, err := storageType(at.DstType)
		if err != nil {
			return "", nil, err
		}
		return fg.canon(fmt.Sprintf("(%s)(%s)", st, src), at.DstType), at.DstType, nil
	}
	return "", nil, errors.New("unhandled atom")
}

// opString renders one binary atom. The logical shift goes through the
// unsigned counterpart of the storage type.
func (fg *funGen) opString(op ir.AtomOp, coef, rv string, rt ir.Type) (string, error) {
	if op == ir.LShr {
		it, ok := rt.(*ir.IntType)
		if !ok {
			return "", errors.New(">>> on a non-integer")
		}
		st, _ := storageType(rt)
		ust := "u" + st
		if it.Width() < 64 {
			mask := (uint64(1) << it.Width()) - 1
			return fmt.Sprintf("(%s)(((%s)%s & %#x) >> %s)", st, ust, coef, mask, rv), nil
		}
		return fmt.Sprintf("(%s)((%s)%s >> %s)", st, ust, coef, rv), nil
	}
	if op == ir.Mod && ir.IsFloat(rt) {
		// IEEE remainder; the interpreter and solver agree on it.
		return fmt.Sprintf("remainder(%s, %s)", coef, rv), nil
	}
	return fmt.Sprintf("(%s %s %s)", coef, op, rv), nil
}

func (fg *funGen) coefString(c ir.Coef, hint ir.Type) (string, error) {
	switch cf := c.(type) {
	case *ir.IntLit:
		if ir.IsFloat(hint) {
			return floatString(float64(cf.Value)), nil
		}
		return fmt.Sprintf("%d", cf.Value), nil
	case *ir.FloatLit:
		return floatString(cf.Value), nil
	case ir.LocalID:
		return mangle(cf.Name), nil
	case ir.SymID:
		return mangle(cf.Name), nil
	}
	return "", errors.New("unhandled coefficient")
}

func (fg *funGen) coefType(c ir.Coef, hint ir.Type) ir.Type {
	switch cf := c.(type) {
	case ir.LocalID:
		return fg.types[cf.Name]
	case ir.SymID:
		return fg.types[cf.Name]
	}
	return hint
}

func (fg *funGen) selectValString(sv ir.SelectVal, hint ir.Type) (string, ir.Type, error) {
	switch v := sv.(type) {
	case *ir.LValue:
		return fg.lvalue(v)
	case *ir.IntLit:
		s, err := fg.coefString(v, hint)
		return s, hint, err
	case *ir.FloatLit:
		return floatString(v.Value), hint, nil
	case ir.LocalID:
		return mangle(v.Name), fg.types[v.Name], nil
	case ir.SymID:
		return mangle(v.Name), fg.types[v.Name], nil
	}
	return "", nil, errors.New("unhandled select arm")
}

func (fg *funGen) cond(c *ir.Cond) (string, error) {
	lhs, err := fg.expr(c.LHS, nil)
	if err != nil {
		return "", err
	}
	rhs, err := fg.expr(c.RHS, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", lhs, c.Op, rhs), nil
}
