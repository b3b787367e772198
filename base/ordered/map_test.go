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

package ordered_test

import (
	"testing"

	"github.com/symir-lang/symir/base/ordered"
)

type entry struct {
	k string
	v int
}

func TestMapOrder(t *testing.T) {
	tests := []struct {
		entries []entry
		want    []entry
	}{
		{
			entries: []entry{{"x", 1}, {"y", 2}, {"z", 3}},
			want:    []entry{{"x", 1}, {"y", 2}, {"z", 3}},
		},
		{
			// Overwriting keeps the original position.
			entries: []entry{{"x", 1}, {"y", 2}, {"x", 3}},
			want:    []entry{{"x", 3}, {"y", 2}},
		},
	}
	for ti, test := range tests {
		m := ordered.NewMap[string, int]()
		for _, e := range test.entries {
			m.Store(e.k, e.v)
		}
		if m.Size() != len(test.want) {
			t.Errorf("test %d: got %d entries, want %d", ti, m.Size(), len(test.want))
			continue
		}
		m = m.Clone()
		i := 0
		for k, v := range m.Iter() {
			if k != test.want[i].k || v != test.want[i].v {
				t.Errorf("test %d entry %d: got %s->%d, want %s->%d", ti, i, k, v, test.want[i].k, test.want[i].v)
			}
			i++
		}
	}
}

func TestMapLoad(t *testing.T) {
	m := ordered.NewMap[string, int]()
	m.Store("a", 42)
	if v, ok := m.Load("a"); !ok || v != 42 {
		t.Errorf("Load(a) = %d,%v, want 42,true", v, ok)
	}
	if _, ok := m.Load("b"); ok {
		t.Error("Load(b) found a value but none was stored")
	}
	if !m.Has("a") || m.Has("b") {
		t.Error("Has returned the wrong membership")
	}
}
