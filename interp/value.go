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

package interp

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/base/ordered"
	"github.com/symir-lang/symir/build/ir"
)

// Kind of a runtime value.
type Kind int

// Value kinds.
const (
	// Undef marks a value that must not be read.
	Undef Kind = iota
	Int
	Float
	Array
	Struct
)

// Value is a concrete SymIR value. Integers are kept canonical: the
// signed interpretation of the low Bits bits.
type Value struct {
	Kind Kind
	// I is the canonical signed value of an integer.
	I int64
	// Bits is the width of an integer value.
	Bits uint32
	// F is the value of a float. Width32 narrows it to binary32.
	F       float64
	Width32 bool

	Elems  []Value
	Fields *ordered.Map[string, Value]
}

// IntValue returns a canonical integer value.
func IntValue(v int64, bits uint32) Value {
	return Value{Kind: Int, I: canonical(v, bits), Bits: bits}
}

// FloatValue returns a float value of the given width.
func FloatValue(v float64, width32 bool) Value {
	if width32 {
		v = float64(float32(v))
	}
	return Value{Kind: Float, F: v, Width32: width32}
}

// canonical sign-extends the low bits of v.
func canonical(v int64, bits uint32) int64 {
	if bits >= 64 {
		return v
	}
	shift := 64 - bits
	return v << shift >> shift
}

// String renders the value in source syntax.
func (v Value) String() string {
	switch v.Kind {
	case Undef:
		return "undef"
	case Int:
		return fmt.Sprintf("%d", v.I)
	case Float:
		return fmt.Sprintf("%g", v.F)
	case Array:
		var parts []string
		for _, e := range v.Elems {
			parts = append(parts, e.String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case Struct:
		var parts []string
		for _, fv := range v.Fields.Iter() {
			parts = append(parts, fv.String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "<invalid>"
}

// undefOf builds an all-undef value of a type.
func (it *Interpreter) undefOf(t ir.Type) (Value, error) {
	if at := ir.AsArray(t); at != nil {
		v := Value{Kind: Array}
		for i := uint64(0); i < at.Size; i++ {
			e, err := it.undefOf(at.Elem)
			if err != nil {
				return Value{}, err
			}
			v.Elems = append(v.Elems, e)
		}
		return v, nil
	}
	if st := ir.AsStruct(t); st != nil {
		sd, ok := it.structs[st.Name.Name]
		if !ok {
			return Value{}, errors.Errorf("unknown struct type: %s", st.Name.Name)
		}
		v := Value{Kind: Struct, Fields: ordered.NewMap[string, Value]()}
		for i := range sd.Fields {
			f := &sd.Fields[i]
			fv, err := it.undefOf(f.Type)
			if err != nil {
				return Value{}, err
			}
			v.Fields.Store(f.Name, fv)
		}
		return v, nil
	}
	return Value{Kind: Undef}, nil
}

// broadcastOf replicates a scalar over every leaf of a type.
func (it *Interpreter) broadcastOf(t ir.Type, scalar Value) (Value, error) {
	if at := ir.AsArray(t); at != nil {
		v := Value{Kind: Array}
		for i := uint64(0); i < at.Size; i++ {
			e, err := it.broadcastOf(at.Elem, scalar)
			if err != nil {
				return Value{}, err
			}
			v.Elems = append(v.Elems, e)
		}
		return v, nil
	}
	if st := ir.AsStruct(t); st != nil {
		sd, ok := it.structs[st.Name.Name]
		if !ok {
			return Value{}, errors.Errorf("unknown struct type: %s", st.Name.Name)
		}
		v := Value{Kind: Struct, Fields: ordered.NewMap[string, Value]()}
		for i := range sd.Fields {
			f := &sd.Fields[i]
			fv, err := it.broadcastOf(f.Type, scalar)
			if err != nil {
				return Value{}, err
			}
			v.Fields.Store(f.Name, fv)
		}
		return v, nil
	}
	return it.convertScalar(scalar, t)
}

// convertScalar fits a scalar value to a scalar declared type.
func (it *Interpreter) convertScalar(v Value, t ir.Type) (Value, error) {
	switch tt := t.(type) {
	case *ir.IntType:
		if v.Kind != Int {
			return Value{}, errors.Errorf("expected an integer value for %s", t)
		}
		return IntValue(v.I, tt.Width()), nil
	case *ir.FloatType:
		switch v.Kind {
		case Float:
			return FloatValue(v.F, tt.Kind == ir.F32), nil
		case Int:
			return FloatValue(float64(v.I), tt.Kind == ir.F32), nil
		}
		return Value{}, errors.Errorf("expected a float value for %s", t)
	}
	return Value{}, errors.Errorf("non-scalar target type %s", t)
}

// initOf evaluates a let initializer. Scalar initializers broadcast
// over aggregate targets.
func (it *Interpreter) initOf(iv ir.InitVal, t ir.Type, frame *frame) (Value, error) {
	switch init := iv.(type) {
	case *ir.UndefInit:
		return it.undefOf(t)

	case *ir.AggregateInit:
		if at := ir.AsArray(t); at != nil {
			v := Value{Kind: Array}
			for _, e := range init.Elems {
				ev, err := it.initOf(e, at.Elem, frame)
				if err != nil {
					return Value{}, err
				}
				v.Elems = append(v.Elems, ev)
			}
			return v, nil
		}
		if st := ir.AsStruct(t); st != nil {
			sd, ok := it.structs[st.Name.Name]
			if !ok {
				return Value{}, errors.Errorf("unknown struct type: %s", st.Name.Name)
			}
			v := Value{Kind: Struct, Fields: ordered.NewMap[string, Value]()}
			for i, e := range init.Elems {
				fv, err := it.initOf(e, sd.Fields[i].Type, frame)
				if err != nil {
					return Value{}, err
				}
				v.Fields.Store(sd.Fields[i].Name, fv)
			}
			return v, nil
		}
		return Value{}, errors.Errorf("aggregate initializer for non-aggregate type %s", t)

	case *ir.IntLit:
		return it.broadcastOf(t, Value{Kind: Int, I: init.Value, Bits: 64})

	case *ir.FloatLit:
		return it.broadcastOf(t, Value{Kind: Float, F: init.Value})

	case ir.SymID:
		src, ok := frame.locals[init.Name]
		if !ok {
			return Value{}, errors.Errorf("unbound symbol in initializer: %s", init.Name)
		}
		return it.broadcastOf(t, src)

	case ir.LocalID:
		src, ok := frame.locals[init.Name]
		if !ok {
			return Value{}, errors.Errorf("unbound local in initializer: %s", init.Name)
		}
		return it.broadcastOf(t, src)
	}
	return Value{}, errors.New("unhandled initializer")
}
