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

package symexec

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/base/ordered"
	"github.com/symir-lang/symir/build/ir"
	"github.com/symir-lang/symir/smt"
)

type valueKind int

const (
	scalarValue valueKind = iota
	arrayValue
	structValue
)

// symValue mirrors the shape of a source type: a scalar term, an
// explicit vector of elements, or named fields.
//
// The defined term tracks provenance from undef: false means the value
// must not be observed on a satisfying path. Reads do not assert
// definedness themselves; the interpreter treats undef reads as UB and
// the two agree through the solver/interpreter agreement property.
type symValue struct {
	kind    valueKind
	term    smt.Term
	defined smt.Term
	elems   []*symValue
	fields  *ordered.Map[string, *symValue]
}

// sortOf maps a scalar type to its solver sort: iN to a width-N
// bit-vector, f32 to (8,24), f64 to (11,53). Aggregates have no single
// sort in this encoding.
func (r *run) sortOf(t ir.Type) (smt.Sort, error) {
	switch tt := t.(type) {
	case *ir.IntType:
		return r.solver.BVSort(tt.Width()), nil
	case *ir.FloatType:
		exp, sig := tt.Dims()
		return r.solver.FPSort(exp, sig), nil
	}
	return nil, errors.Errorf("aggregate type %s has no single SMT sort", t)
}

// fresh declares a new constant of the given type, recursing into
// aggregates so every leaf gets its own term.
func (r *run) fresh(t ir.Type, name string) (*symValue, error) {
	if at := ir.AsArray(t); at != nil {
		sv := &symValue{kind: arrayValue}
		for i := uint64(0); i < at.Size; i++ {
			elem, err := r.fresh(at.Elem, fmt.Sprintf("%s[%d]", name, i))
			if err != nil {
				return nil, err
			}
			sv.elems = append(sv.elems, elem)
		}
		return sv, nil
	}
	if st := ir.AsStruct(t); st != nil {
		sd, ok := r.ex.structs[st.Name.Name]
		if !ok {
			return nil, errors.Errorf("unknown struct type: %s", st.Name.Name)
		}
		sv := &symValue{kind: structValue, fields: ordered.NewMap[string, *symValue]()}
		for i := range sd.Fields {
			f := &sd.Fields[i]
			fv, err := r.fresh(f.Type, name+"."+f.Name)
			if err != nil {
				return nil, err
			}
			sv.fields.Store(f.Name, fv)
		}
		return sv, nil
	}
	sort, err := r.sortOf(t)
	if err != nil {
		return nil, err
	}
	return &symValue{
		kind:    scalarValue,
		term:    r.solver.Const(sort, name),
		defined: r.solver.True(),
	}, nil
}

// makeUndef builds a value whose scalar leaves are fresh constants
// marked undefined.
func (r *run) makeUndef(t ir.Type) (*symValue, error) {
	if at := ir.AsArray(t); at != nil {
		sv := &symValue{kind: arrayValue}
		for i := uint64(0); i < at.Size; i++ {
			elem, err := r.makeUndef(at.Elem)
			if err != nil {
				return nil, err
			}
			sv.elems = append(sv.elems, elem)
		}
		return sv, nil
	}
	if st := ir.AsStruct(t); st != nil {
		sd, ok := r.ex.structs[st.Name.Name]
		if !ok {
			return nil, errors.Errorf("unknown struct type: %s", st.Name.Name)
		}
		sv := &symValue{kind: structValue, fields: ordered.NewMap[string, *symValue]()}
		for i := range sd.Fields {
			f := &sd.Fields[i]
			fv, err := r.makeUndef(f.Type)
			if err != nil {
				return nil, err
			}
			sv.fields.Store(f.Name, fv)
		}
		return sv, nil
	}
	sort, err := r.sortOf(t)
	if err != nil {
		return nil, err
	}
	return &symValue{
		kind:    scalarValue,
		term:    r.solver.Const(sort, "undef"),
		defined: r.solver.False(),
	}, nil
}

// broadcast replicates a scalar term over every leaf of a type.
func (r *run) broadcast(t ir.Type, val smt.Term) (*symValue, error) {
	if at := ir.AsArray(t); at != nil {
		sv := &symValue{kind: arrayValue}
		for i := uint64(0); i < at.Size; i++ {
			elem, err := r.broadcast(at.Elem, val)
			if err != nil {
				return nil, err
			}
			sv.elems = append(sv.elems, elem)
		}
		return sv, nil
	}
	if st := ir.AsStruct(t); st != nil {
		sd, ok := r.ex.structs[st.Name.Name]
		if !ok {
			return nil, errors.Errorf("unknown struct type: %s", st.Name.Name)
		}
		sv := &symValue{kind: structValue, fields: ordered.NewMap[string, *symValue]()}
		for i := range sd.Fields {
			f := &sd.Fields[i]
			fv, err := r.broadcast(f.Type, val)
			if err != nil {
				return nil, err
			}
			sv.fields.Store(f.Name, fv)
		}
		return sv, nil
	}
	return &symValue{kind: scalarValue, term: val, defined: r.solver.True()}, nil
}

// evalInit lowers a let initializer. Scalar initializers broadcast to
// every leaf of an aggregate target; undef leaves become fresh
// constants with defined=false.
func (r *run) evalInit(iv ir.InitVal, t ir.Type) (*symValue, error) {
	switch init := iv.(type) {
	case *ir.UndefInit:
		return r.makeUndef(t)

	case *ir.AggregateInit:
		if at := ir.AsArray(t); at != nil {
			sv := &symValue{kind: arrayValue}
			for _, e := range init.Elems {
				elem, err := r.evalInit(e, at.Elem)
				if err != nil {
					return nil, err
				}
				sv.elems = append(sv.elems, elem)
			}
			return sv, nil
		}
		if st := ir.AsStruct(t); st != nil {
			sd, ok := r.ex.structs[st.Name.Name]
			if !ok {
				return nil, errors.Errorf("unknown struct type: %s", st.Name.Name)
			}
			sv := &symValue{kind: structValue, fields: ordered.NewMap[string, *symValue]()}
			for i, e := range init.Elems {
				fv, err := r.evalInit(e, sd.Fields[i].Type)
				if err != nil {
					return nil, err
				}
				sv.fields.Store(sd.Fields[i].Name, fv)
			}
			return sv, nil
		}
		return nil, errors.Errorf("aggregate initializer for non-aggregate type %s", t)

	case *ir.IntLit:
		sort, err := r.leafSort(t)
		if err != nil {
			return nil, err
		}
		return r.broadcast(t, r.solver.BVValueInt64(sort, init.Value))

	case *ir.FloatLit:
		sort, err := r.leafSort(t)
		if err != nil {
			return nil, err
		}
		return r.broadcast(t, r.solver.FPValue(sort, init.Value, smt.RNE))

	case ir.SymID:
		src, ok := r.store[init.Name]
		if !ok {
			return nil, errors.Errorf("unbound symbol in initializer: %s", init.Name)
		}
		return r.broadcast(t, src.term)

	case ir.LocalID:
		src, ok := r.store[init.Name]
		if !ok {
			return nil, errors.Errorf("unbound local in initializer: %s", init.Name)
		}
		return r.broadcast(t, src.term)
	}
	return nil, errors.Errorf("unhandled initializer")
}

// leafSort returns the sort of the scalar leaves of a type. The type
// checker has already ensured all leaves agree with the initializer.
func (r *run) leafSort(t ir.Type) (smt.Sort, error) {
	for {
		if at := ir.AsArray(t); at != nil {
			t = at.Elem
			continue
		}
		if st := ir.AsStruct(t); st != nil {
			sd, ok := r.ex.structs[st.Name.Name]
			if !ok || len(sd.Fields) == 0 {
				return nil, errors.Errorf("unknown or empty struct type: %s", st.Name.Name)
			}
			t = sd.Fields[0].Type
			continue
		}
		return r.sortOf(t)
	}
}

// mergeAggregate folds the elements of an array read through a symbolic
// index into a single value: a nested ITE over idx = 0..n-1, with
// element 0 as the default arm. The merge recurses through aggregate
// element types.
func (r *run) mergeAggregate(elems []*symValue, idx smt.Term) (*symValue, error) {
	if len(elems) == 0 {
		return nil, errors.New("indexing empty array")
	}
	first := elems[0]
	switch first.kind {
	case scalarValue:
		res := first.term
		defined := first.defined
		idxSort := r.solver.SortOf(idx)
		for i := 1; i < len(elems); i++ {
			eq := smt.Make2(r.solver, smt.Equal, idx, r.solver.BVValueInt64(idxSort, int64(i)))
			res = r.solver.Make(smt.ITE, []smt.Term{eq, elems[i].term, res}, nil)
			defined = r.solver.Make(smt.ITE, []smt.Term{eq, elems[i].defined, defined}, nil)
		}
		return &symValue{kind: scalarValue, term: res, defined: defined}, nil
	case arrayValue:
		res := &symValue{kind: arrayValue}
		for j := range first.elems {
			var inner []*symValue
			for _, e := range elems {
				inner = append(inner, e.elems[j])
			}
			merged, err := r.mergeAggregate(inner, idx)
			if err != nil {
				return nil, err
			}
			res.elems = append(res.elems, merged)
		}
		return res, nil
	case structValue:
		res := &symValue{kind: structValue, fields: ordered.NewMap[string, *symValue]()}
		for fld := range first.fields.Keys() {
			var inner []*symValue
			for _, e := range elems {
				fv, ok := e.fields.Load(fld)
				if !ok {
					return nil, errors.Errorf("field not found while merging: %s", fld)
				}
				inner = append(inner, fv)
			}
			merged, err := r.mergeAggregate(inner, idx)
			if err != nil {
				return nil, err
			}
			res.fields.Store(fld, merged)
		}
		return res, nil
	}
	return nil, errors.New("unhandled value kind in merge")
}

// indexTerm lowers an array index to a term. Literal indices become
// 32-bit constants.
func (r *run) indexTerm(idx ir.Index) (smt.Term, error) {
	switch id := idx.(type) {
	case *ir.IntLit:
		return r.solver.BVValueInt64(r.solver.BVSort(32), id.Value), nil
	case ir.LocalID:
		sv, ok := r.store[id.Name]
		if !ok {
			return nil, errors.Errorf("unbound local index: %s", id.Name)
		}
		return sv.term, nil
	case ir.SymID:
		sv, ok := r.store[id.Name]
		if !ok {
			return nil, errors.Errorf("unbound symbol index: %s", id.Name)
		}
		return sv.term, nil
	}
	return nil, errors.New("unhandled index")
}

// evalLValue reads through the accesses of an lvalue. Reads through a
// symbolic index merge all the alternatives; every index pushes its
// bounds conditions into the path constraints.
func (r *run) evalLValue(lv *ir.LValue) (*symValue, error) {
	res, ok := r.store[lv.Base.Name]
	if !ok {
		return nil, errors.Errorf("unbound local: %s", lv.Base.Name)
	}
	for _, acc := range lv.Accesses {
		switch a := acc.(type) {
		case *ir.AccessIndex:
			if res.kind != arrayValue {
				return nil, errors.New("indexing non-array")
			}
			n := len(res.elems)
			idx, err := r.indexTerm(a.Index)
			if err != nil {
				return nil, err
			}
			if lit, ok := a.Index.(*ir.IntLit); ok {
				if lit.Value < 0 || lit.Value >= int64(n) {
					return nil, errors.Errorf("array index %d out of bounds [0,%d)", lit.Value, n)
				}
				res = res.elems[lit.Value]
			} else {
				res, err = r.mergeAggregate(res.elems, idx)
				if err != nil {
					return nil, err
				}
			}
			r.pushBounds(idx, n, nil)
		case *ir.AccessField:
			if res.kind != structValue {
				return nil, errors.New("field access on non-struct")
			}
			next, ok := res.fields.Load(a.Field)
			if !ok {
				return nil, errors.Errorf("field not found: %s", a.Field)
			}
			res = next
		}
	}
	return res, nil
}

// pushBounds pushes 0 <= idx < n. With a non-nil pathCond, the bounds
// are wrapped in an implication so that a conditional write does not
// over-constrain the other branches.
func (r *run) pushBounds(idx smt.Term, n int, pathCond smt.Term) {
	idxSort := r.solver.SortOf(idx)
	zero := r.solver.BVZero(idxSort)
	size := r.solver.BVValueInt64(idxSort, int64(n))
	lower := smt.Make2(r.solver, smt.BVSle, zero, idx)
	upper := smt.Make2(r.solver, smt.BVSlt, idx, size)
	if pathCond != nil {
		lower = smt.Make2(r.solver, smt.Implies, pathCond, lower)
		upper = smt.Make2(r.solver, smt.Implies, pathCond, upper)
	}
	r.pathConstraints = append(r.pathConstraints, lower, upper)
}

// mux builds the element-wise ITE of two values of the same shape.
func (r *run) mux(cond smt.Term, t, f *symValue) (*symValue, error) {
	if t.kind != f.kind {
		return nil, errors.New("merging values of different kinds")
	}
	switch t.kind {
	case scalarValue:
		return &symValue{
			kind:    scalarValue,
			term:    r.solver.Make(smt.ITE, []smt.Term{cond, t.term, f.term}, nil),
			defined: r.solver.Make(smt.ITE, []smt.Term{cond, t.defined, f.defined}, nil),
		}, nil
	case arrayValue:
		if len(t.elems) != len(f.elems) {
			return nil, errors.New("merging arrays of different sizes")
		}
		res := &symValue{kind: arrayValue}
		for i := range t.elems {
			m, err := r.mux(cond, t.elems[i], f.elems[i])
			if err != nil {
				return nil, err
			}
			res.elems = append(res.elems, m)
		}
		return res, nil
	case structValue:
		res := &symValue{kind: structValue, fields: ordered.NewMap[string, *symValue]()}
		for key, tv := range t.fields.Iter() {
			fv, ok := f.fields.Load(key)
			if !ok {
				return nil, errors.Errorf("merging structs with mismatching field: %s", key)
			}
			m, err := r.mux(cond, tv, fv)
			if err != nil {
				return nil, err
			}
			res.fields.Store(key, m)
		}
		return res, nil
	}
	return nil, errors.New("unhandled value kind in mux")
}

// update writes val at the end of the access chain under pathCond. A
// write through a symbolic index updates every element conditionally on
// the index matching it.
func (r *run) update(cur *symValue, accesses []ir.Access, val *symValue, pathCond smt.Term) (*symValue, error) {
	if len(accesses) == 0 {
		return r.mux(pathCond, val, cur)
	}
	switch a := accesses[0].(type) {
	case *ir.AccessIndex:
		if cur.kind != arrayValue {
			return nil, errors.New("indexing non-array in assignment")
		}
		n := len(cur.elems)
		if n == 0 {
			return nil, errors.New("indexing empty array")
		}
		idx, err := r.indexTerm(a.Index)
		if err != nil {
			return nil, err
		}
		r.pushBounds(idx, n, pathCond)

		res := &symValue{kind: arrayValue, elems: append([]*symValue{}, cur.elems...)}
		if lit, ok := a.Index.(*ir.IntLit); ok {
			// An out-of-bounds literal write leaves the array
			// unchanged; the bounds constraints above already make
			// the path infeasible.
			if lit.Value >= 0 && lit.Value < int64(n) {
				updated, err := r.update(cur.elems[lit.Value], accesses[1:], val, pathCond)
				if err != nil {
					return nil, err
				}
				res.elems[lit.Value] = updated
			}
			return res, nil
		}
		idxSort := r.solver.SortOf(idx)
		for k := 0; k < n; k++ {
			match := smt.Make2(r.solver, smt.Equal, idx, r.solver.BVValueInt64(idxSort, int64(k)))
			cond := smt.Make2(r.solver, smt.And, pathCond, match)
			updated, err := r.update(cur.elems[k], accesses[1:], val, cond)
			if err != nil {
				return nil, err
			}
			res.elems[k] = updated
		}
		return res, nil

	case *ir.AccessField:
		if cur.kind != structValue {
			return nil, errors.New("field access on non-struct in assignment")
		}
		old, ok := cur.fields.Load(a.Field)
		if !ok {
			return nil, errors.Errorf("field not found: %s", a.Field)
		}
		updated, err := r.update(old, accesses[1:], val, pathCond)
		if err != nil {
			return nil, err
		}
		res := &symValue{kind: structValue, fields: cur.fields.Clone()}
		res.fields.Store(a.Field, updated)
		return res, nil
	}
	return nil, errors.New("unhandled access")
}

// setLValue writes a value back through an lvalue. The initial path
// condition is true: reachability of the instruction is already encoded
// in the path constraints.
func (r *run) setLValue(lv *ir.LValue, val *symValue) error {
	root, ok := r.store[lv.Base.Name]
	if !ok {
		return errors.Errorf("unbound local: %s", lv.Base.Name)
	}
	updated, err := r.update(root, lv.Accesses, val, r.solver.True())
	if err != nil {
		return err
	}
	r.store[lv.Base.Name] = updated
	return nil
}
