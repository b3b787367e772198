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

// Package sirflag provides flag types for SymIR tools.
package sirflag

import (
	"flag"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type stringList struct {
	list *[]string
}

func (sl *stringList) String() string {
	return ""
}

func (sl *stringList) Set(values string) error {
	for _, value := range strings.Split(values, ",") {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		*sl.list = append(*sl.list, value)
	}
	return nil
}

// StringList returns a flag to pass a list of strings from the command
// line, either comma-separated or by repeating the flag.
func StringList(name, doc string) *[]string {
	var list []string
	sList := stringList{&list}
	flag.Var(&sList, name, doc)
	return sList.list
}

// Binding is one name=value symbol binding from the command line.
type Binding struct {
	Name    string
	Int     int64
	Float   float64
	IsFloat bool
}

// ParseBindings splits name=value pairs. Names are normalized to their
// sigiled form, so both k=3 and %?k=3 bind the symbol %?k.
func ParseBindings(raw []string) ([]Binding, error) {
	var bindings []Binding
	for _, s := range raw {
		name, value, ok := strings.Cut(s, "=")
		if !ok {
			return nil, errors.Errorf("invalid symbol binding %q, want name=value", s)
		}
		if !strings.HasPrefix(name, "%?") {
			name = "%?" + strings.TrimPrefix(name, "%")
		}
		b := Binding{Name: name}
		if iv, err := strconv.ParseInt(value, 10, 64); err == nil {
			b.Int = iv
			b.Float = float64(iv)
		} else {
			fv, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, errors.Errorf("invalid value in binding %q", s)
			}
			b.Float = fv
			b.IsFloat = true
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}
