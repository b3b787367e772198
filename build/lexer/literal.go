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

package lexer

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseInt parses an integer literal lexeme: decimal by default, or
// 0x/0o/0b prefixed, with an optional leading '-'.
func ParseInt(s string) (int64, error) {
	neg := false
	digits := s
	if strings.HasPrefix(digits, "-") {
		neg = true
		digits = digits[1:]
	}
	base := 10
	switch {
	case strings.HasPrefix(digits, "0x"), strings.HasPrefix(digits, "0X"):
		base, digits = 16, digits[2:]
	case strings.HasPrefix(digits, "0o"), strings.HasPrefix(digits, "0O"):
		base, digits = 8, digits[2:]
	case strings.HasPrefix(digits, "0b"), strings.HasPrefix(digits, "0B"):
		base, digits = 2, digits[2:]
	}
	if neg {
		digits = "-" + digits
	}
	v, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		// Unsigned 64-bit patterns like 0xffffffffffffffff are
		// accepted and reinterpreted as signed.
		if u, uerr := strconv.ParseUint(digits, base, 64); uerr == nil {
			return int64(u), nil
		}
		return 0, errors.Errorf("invalid integer literal %q", s)
	}
	return v, nil
}

// ParseFloat parses a float literal lexeme.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("invalid float literal %q", s)
	}
	return v, nil
}
