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

package sirflag

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseBindings(t *testing.T) {
	got, err := ParseBindings([]string{"k=14", "%?a=-3", "%b=2", "f=1.5"})
	if err != nil {
		t.Fatalf("ParseBindings: %v", err)
	}
	want := []Binding{
		{Name: "%?k", Int: 14, Float: 14},
		{Name: "%?a", Int: -3, Float: -3},
		{Name: "%?b", Int: 2, Float: 2},
		{Name: "%?f", Float: 1.5, IsFloat: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBindingsErrors(t *testing.T) {
	if _, err := ParseBindings([]string{"novalue"}); err == nil {
		t.Error("missing '=': no error")
	}
	if _, err := ParseBindings([]string{"k=abc"}); err == nil {
		t.Error("non-numeric value: no error")
	}
}

func TestStringListSplitsCommas(t *testing.T) {
	var list []string
	sl := stringList{&list}
	if err := sl.Set("a, b ,c"); err != nil {
		t.Fatal(err)
	}
	if err := sl.Set("d"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, list); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}
