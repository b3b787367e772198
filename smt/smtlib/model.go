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

package smtlib

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// sexp is a parsed s-expression: an atom or a list.
type sexp struct {
	atom string
	list []sexp
}

func (e sexp) isAtom() bool { return e.list == nil }

// parseModelValue extracts the bit pattern from a get-value response of
// the shape ((expr value)).
func parseModelValue(resp string, st *sort) (uint64, error) {
	e, _, err := parseSexp(strings.TrimSpace(resp))
	if err != nil {
		return 0, err
	}
	if e.isAtom() || len(e.list) == 0 {
		return 0, errors.Errorf("malformed get-value response: %q", resp)
	}
	pair := e.list[0]
	if pair.isAtom() || len(pair.list) != 2 {
		return 0, errors.Errorf("malformed get-value binding: %q", resp)
	}
	return valueBits(pair.list[1], st)
}

func valueBits(v sexp, st *sort) (uint64, error) {
	if v.isAtom() {
		return atomBits(v.atom)
	}
	if len(v.list) == 0 {
		return 0, errors.New("empty value expression")
	}
	head := v.list[0]

	// (_ bvN w), (_ +zero e s), (_ -zero e s), (_ +oo e s), (_ -oo e s),
	// (_ NaN e s)
	if head.isAtom() && head.atom == "_" && len(v.list) >= 2 {
		return underscoreBits(v.list[1].atom, st)
	}

	// (fp sign exp sig)
	if head.isAtom() && head.atom == "fp" && len(v.list) == 4 {
		var bits uint64
		for _, part := range v.list[1:] {
			b, width, err := atomBitsWidth(part.atom)
			if err != nil {
				return 0, err
			}
			bits = bits<<width | b
		}
		return bits, nil
	}

	return 0, errors.Errorf("unsupported model value form")
}

func underscoreBits(spec string, st *sort) (uint64, error) {
	if rest, ok := strings.CutPrefix(spec, "bv"); ok {
		return strconv.ParseUint(rest, 10, 64)
	}
	sigBits := st.sig - 1
	expMask := (uint64(1) << st.exp) - 1
	switch spec {
	case "+zero":
		return 0, nil
	case "-zero":
		return 1 << (st.exp + sigBits), nil
	case "+oo":
		return expMask << sigBits, nil
	case "-oo":
		return 1<<(st.exp+sigBits) | expMask<<sigBits, nil
	case "NaN":
		return expMask<<sigBits | 1, nil
	}
	return 0, errors.Errorf("unsupported indexed value: %s", spec)
}

func atomBits(a string) (uint64, error) {
	b, _, err := atomBitsWidth(a)
	return b, err
}

// atomBitsWidth decodes a #b or #x literal to its bits and bit width.
func atomBitsWidth(a string) (uint64, uint32, error) {
	if rest, ok := strings.CutPrefix(a, "#b"); ok {
		v, err := strconv.ParseUint(rest, 2, 64)
		return v, uint32(len(rest)), err
	}
	if rest, ok := strings.CutPrefix(a, "#x"); ok {
		v, err := strconv.ParseUint(rest, 16, 64)
		return v, uint32(len(rest) * 4), err
	}
	return 0, 0, errors.Errorf("not a bit-vector literal: %q", a)
}

// parseSexp parses one s-expression and returns the remaining input.
func parseSexp(s string) (sexp, string, error) {
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" {
		return sexp{}, "", errors.New("unexpected end of s-expression")
	}
	if s[0] == '(' {
		rest := s[1:]
		var list []sexp
		for {
			rest = strings.TrimLeft(rest, " \t\r\n")
			if rest == "" {
				return sexp{}, "", errors.New("unbalanced s-expression")
			}
			if rest[0] == ')' {
				if list == nil {
					list = []sexp{}
				}
				return sexp{list: list}, rest[1:], nil
			}
			child, r, err := parseSexp(rest)
			if err != nil {
				return sexp{}, "", err
			}
			list = append(list, child)
			rest = r
		}
	}
	if s[0] == '|' {
		end := strings.IndexByte(s[1:], '|')
		if end < 0 {
			return sexp{}, "", errors.New("unterminated quoted symbol")
		}
		return sexp{atom: s[:end+2]}, s[end+2:], nil
	}
	end := strings.IndexAny(s, " \t\r\n()")
	if end < 0 {
		end = len(s)
	}
	return sexp{atom: s[:end]}, s[end:], nil
}
