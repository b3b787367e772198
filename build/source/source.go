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

// Package source tracks positions and spans in SymIR source text.
package source

import "fmt"

// Pos is a position in a source buffer.
type Pos struct {
	// Offset is the byte offset in the buffer.
	Offset int
	// Line is the 1-based line number.
	Line int
	// Col is the 1-based column number.
	Col int
}

// String returns line:col.
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Span is a half-open region between two positions.
type Span struct {
	Begin Pos
	End   Pos
}

// NewSpan returns a span between two positions.
func NewSpan(begin, end Pos) Span {
	return Span{Begin: begin, End: end}
}

// String returns the span's start position.
func (s Span) String() string {
	return s.Begin.String()
}
