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

import (
	"fmt"

	"github.com/symir-lang/symir/build/source"
)

// IntKind selects the spelling of an integer type.
type IntKind int

// Integer type kinds.
const (
	I32 IntKind = iota
	I64
	// ICustom is an explicit-width iN type with 1 <= N <= 64.
	ICustom
)

// FloatKind selects an IEEE-754 binary format.
type FloatKind int

// Float type kinds.
const (
	F32 FloatKind = iota
	F64
)

type (
	// Type of a SymIR value.
	Type interface {
		Node
		typ()

		// String returns the type's source form.
		String() string
	}

	// IntType is a signed two's-complement bitvector type.
	IntType struct {
		Kind IntKind
		// Bits is the width of an ICustom type; ignored otherwise.
		Bits uint32
		Src  source.Span
	}

	// FloatType is an IEEE-754 binary32 or binary64 type.
	FloatType struct {
		Kind FloatKind
		Src  source.Span
	}

	// StructType refers to a declared struct by name.
	StructType struct {
		Name GlobalID
		Src  source.Span
	}

	// ArrayType is a fixed-length homogeneous array.
	ArrayType struct {
		Size uint64
		Elem Type
		Src  source.Span
	}
)

func (*IntType) node()    {}
func (*FloatType) node()  {}
func (*StructType) node() {}
func (*ArrayType) node()  {}

func (*IntType) typ()    {}
func (*FloatType) typ()  {}
func (*StructType) typ() {}
func (*ArrayType) typ()  {}

// Span returns the source region of the type.
func (t *IntType) Span() source.Span { return t.Src }

// Span returns the source region of the type.
func (t *FloatType) Span() source.Span { return t.Src }

// Span returns the source region of the type.
func (t *StructType) Span() source.Span { return t.Src }

// Span returns the source region of the type.
func (t *ArrayType) Span() source.Span { return t.Src }

// Width returns the bit width of the integer type.
func (t *IntType) Width() uint32 {
	switch t.Kind {
	case I32:
		return 32
	case I64:
		return 64
	}
	return t.Bits
}

// Width returns the bit width of the float type.
func (t *FloatType) Width() uint32 {
	if t.Kind == F32 {
		return 32
	}
	return 64
}

// Dims returns the exponent and significand widths of the format
// (significand includes the hidden bit).
func (t *FloatType) Dims() (exp, sig uint32) {
	if t.Kind == F32 {
		return 8, 24
	}
	return 11, 53
}

// String returns the type's source form.
func (t *IntType) String() string { return fmt.Sprintf("i%d", t.Width()) }

// String returns the type's source form.
func (t *FloatType) String() string {
	if t.Kind == F32 {
		return "f32"
	}
	return "f64"
}

// String returns the type's source form.
func (t *StructType) String() string { return t.Name.Name }

// String returns the type's source form.
func (t *ArrayType) String() string { return fmt.Sprintf("[%d] %s", t.Size, t.Elem) }

// BitWidth returns the width of an integer type and true, or 0 and
// false for any other type.
func BitWidth(t Type) (uint32, bool) {
	it, ok := t.(*IntType)
	if !ok {
		return 0, false
	}
	return it.Width(), true
}

// ScalarBits returns the width of a scalar type (integer or float) and
// true, or 0 and false for aggregates.
func ScalarBits(t Type) (uint32, bool) {
	switch tt := t.(type) {
	case *IntType:
		return tt.Width(), true
	case *FloatType:
		return tt.Width(), true
	}
	return 0, false
}

// IsInt returns true if the type is an integer bitvector type.
func IsInt(t Type) bool {
	_, ok := t.(*IntType)
	return ok
}

// IsFloat returns true if the type is a float type.
func IsFloat(t Type) bool {
	_, ok := t.(*FloatType)
	return ok
}

// IsScalar returns true for integer and float types.
func IsScalar(t Type) bool {
	return IsInt(t) || IsFloat(t)
}

// AsArray returns the type as an array type, or nil.
func AsArray(t Type) *ArrayType {
	at, _ := t.(*ArrayType)
	return at
}

// AsStruct returns the type as a struct type, or nil.
func AsStruct(t Type) *StructType {
	st, _ := t.(*StructType)
	return st
}

// TypesEqual reports structural equality: identical variants with
// identical payloads. Struct types are equal when they name the same
// declared struct.
func TypesEqual(a, b Type) bool {
	if a == nil || b == nil {
		return false
	}
	switch at := a.(type) {
	case *IntType:
		bt, ok := b.(*IntType)
		return ok && at.Width() == bt.Width()
	case *FloatType:
		bt, ok := b.(*FloatType)
		return ok && at.Kind == bt.Kind
	case *StructType:
		bt, ok := b.(*StructType)
		return ok && at.Name.Name == bt.Name.Name
	case *ArrayType:
		bt, ok := b.(*ArrayType)
		return ok && at.Size == bt.Size && TypesEqual(at.Elem, bt.Elem)
	}
	return false
}

// LiteralInRange reports whether a literal fits an iN target. A signed
// i<N> accepts values in [-2^(N-1), 2^N - 1] so that both signed values
// and unsigned bit patterns can be written.
func LiteralInRange(v int64, bits uint32) bool {
	if bits >= 64 {
		return true
	}
	lo := -(int64(1) << (bits - 1))
	hi := (int64(1) << bits) - 1
	return v >= lo && v <= hi
}
