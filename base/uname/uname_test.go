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

package uname_test

import (
	"testing"

	"github.com/symir-lang/symir/base/uname"
)

func TestUniqueNames(t *testing.T) {
	u := uname.New()
	tests := []struct {
		base string
		want string
	}{
		{base: "%?k", want: "%?k"},
		{base: "%?k", want: "%?k!1"},
		{base: "%?k", want: "%?k!2"},
		{base: "undef", want: "undef"},
		{base: "undef", want: "undef!1"},
		{base: "%x", want: "%x"},
	}
	for _, test := range tests {
		if got := u.Name(test.base); got != test.want {
			t.Errorf("Name(%q) = %q, want %q", test.base, got, test.want)
		}
	}
}
