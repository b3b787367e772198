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

// Package diag accumulates positioned diagnostics while checking and
// analysing SymIR programs, and formats them against the source text.
package diag

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/build/source"
)

// Level of a diagnostic.
type Level int

const (
	// Error means the program must not proceed to later passes.
	Error Level = iota
	// Warning does not block compilation unless promoted by the driver.
	Warning
	// Note attaches extra context to a previous diagnostic.
	Note
)

// String returns the level as it appears in rendered messages.
func (l Level) String() string {
	switch l {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Diagnostic is a message attached to a span of SymIR source.
type Diagnostic struct {
	Level   Level
	Message string
	Span    source.Span
}

// Bag collects diagnostics emitted by passes.
//
// A bag is shared by all the passes of a compilation: each pass appends
// and the pass manager checks HasErrors between passes.
type Bag struct {
	diags []Diagnostic
}

// Errorf appends an error at a span.
func (b *Bag) Errorf(sp source.Span, format string, a ...any) {
	b.diags = append(b.diags, Diagnostic{Level: Error, Message: fmt.Sprintf(format, a...), Span: sp})
}

// Warnf appends a warning at a span.
func (b *Bag) Warnf(sp source.Span, format string, a ...any) {
	b.diags = append(b.diags, Diagnostic{Level: Warning, Message: fmt.Sprintf(format, a...), Span: sp})
}

// Notef appends a note at a span.
func (b *Bag) Notef(sp source.Span, format string, a ...any) {
	b.diags = append(b.diags, Diagnostic{Level: Note, Message: fmt.Sprintf(format, a...), Span: sp})
}

// All returns the diagnostics in emission order.
func (b *Bag) All() []Diagnostic {
	return b.diags
}

// HasErrors returns true if at least one error has been appended.
func (b *Bag) HasErrors() bool {
	for _, d := range b.diags {
		if d.Level == Error {
			return true
		}
	}
	return false
}

// HasWarnings returns true if at least one warning has been appended.
func (b *Bag) HasWarnings() bool {
	for _, d := range b.diags {
		if d.Level == Warning {
			return true
		}
	}
	return false
}

// ToError folds the bag's errors into a single error, or nil if the bag
// has no error.
func (b *Bag) ToError() error {
	if !b.HasErrors() {
		return nil
	}
	var msgs []string
	for _, d := range b.diags {
		if d.Level != Error {
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", d.Span, d.Message))
	}
	return errors.New(strings.Join(msgs, "\n"))
}

// Render writes a diagnostic with the offending source line and a caret
// under the start of its span.
func Render(w *strings.Builder, src string, d Diagnostic) {
	if d.Span.Begin.Offset > len(src) {
		fmt.Fprintf(w, "%s: %s (invalid source location)\n", d.Level, d.Message)
		return
	}
	lineStart := d.Span.Begin.Offset
	for lineStart > 0 && src[lineStart-1] != '\n' {
		lineStart--
	}
	lineEnd := d.Span.Begin.Offset
	for lineEnd < len(src) && src[lineEnd] != '\n' {
		lineEnd++
	}
	line := src[lineStart:lineEnd]

	fmt.Fprintf(w, "%4d | %s\n", d.Span.Begin.Line, line)
	margin := caretMargin(line, d.Span.Begin.Offset-lineStart)
	fmt.Fprintf(w, "     | %s^\n", margin)
	fmt.Fprintf(w, "     | %s%s: %s\n", margin, d.Level, d.Message)
}

// RenderAll renders every diagnostic of at least the given level.
func RenderAll(src string, diags []Diagnostic, min Level) string {
	var sb strings.Builder
	for _, d := range diags {
		if d.Level > min {
			continue
		}
		Render(&sb, src, d)
	}
	return sb.String()
}

// caretMargin preserves tab stops so the caret lines up in terminals.
func caretMargin(line string, col int) string {
	var sb strings.Builder
	for i := 0; i < col && i < len(line); i++ {
		if line[i] == '\t' {
			sb.WriteByte('\t')
		} else {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}
