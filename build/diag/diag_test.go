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

package diag_test

import (
	"strings"
	"testing"

	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/source"
)

func spanAt(src string, offset int) source.Span {
	line, col := 1, 1
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	p := source.Pos{Offset: offset, Line: line, Col: col}
	return source.NewSpan(p, p)
}

func TestBagLevels(t *testing.T) {
	var b diag.Bag
	b.Warnf(source.Span{}, "w")
	if b.HasErrors() {
		t.Error("HasErrors true with only a warning")
	}
	if !b.HasWarnings() {
		t.Error("HasWarnings false")
	}
	b.Errorf(source.Span{}, "e1")
	b.Notef(source.Span{}, "n")
	if !b.HasErrors() {
		t.Error("HasErrors false")
	}
	if len(b.All()) != 3 {
		t.Errorf("All() = %d diagnostics, want 3", len(b.All()))
	}
	if err := b.ToError(); err == nil || !strings.Contains(err.Error(), "e1") {
		t.Errorf("ToError() = %v", err)
	}
}

func TestToErrorNilWithoutErrors(t *testing.T) {
	var b diag.Bag
	b.Warnf(source.Span{}, "only a warning")
	if err := b.ToError(); err != nil {
		t.Errorf("ToError() = %v, want nil", err)
	}
}

func TestRenderCaret(t *testing.T) {
	src := "fun @f(): i32 {\n  ret %nope;\n}\n"
	offset := strings.Index(src, "%nope")
	var b diag.Bag
	b.Errorf(spanAt(src, offset), "Undeclared local: %%nope")

	out := diag.RenderAll(src, b.All(), diag.Note)
	if !strings.Contains(out, "   2 |   ret %nope;") {
		t.Errorf("rendered output lacks the source line:\n%s", out)
	}
	caretLine := "     |       ^"
	if !strings.Contains(out, caretLine) {
		t.Errorf("caret misplaced:\n%s", out)
	}
	if !strings.Contains(out, "error: Undeclared local: %nope") {
		t.Errorf("message missing:\n%s", out)
	}
}

func TestRenderAllFiltersByLevel(t *testing.T) {
	src := "x\n"
	var b diag.Bag
	b.Errorf(spanAt(src, 0), "an error")
	b.Warnf(spanAt(src, 0), "a warning")

	errsOnly := diag.RenderAll(src, b.All(), diag.Error)
	if strings.Contains(errsOnly, "a warning") {
		t.Errorf("warning rendered at error level:\n%s", errsOnly)
	}
	both := diag.RenderAll(src, b.All(), diag.Warning)
	if !strings.Contains(both, "a warning") {
		t.Errorf("warning not rendered at warning level:\n%s", both)
	}
}
