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

package token

import (
	"fmt"

	"github.com/symir-lang/symir/build/source"
)

// SyntaxError is a lexing or parsing failure at a source location.
// Syntax errors are fatal to the current file.
type SyntaxError struct {
	Msg  string
	Span source.Span
}

// Error returns the message prefixed by its position.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Span, e.Msg)
}

// Errorf returns a new syntax error at a span.
func Errorf(sp source.Span, format string, a ...any) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(format, a...), Span: sp}
}
