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

package symexec

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// parseSignedDecimal reads a solver-provided decimal bit-vector value.
// Solvers that print the unsigned value of a 64-bit pattern overflow
// ParseInt; the fallback reinterprets the pattern as two's complement.
func parseSignedDecimal(dec string) (int64, error) {
	dec = strings.TrimSpace(dec)
	v, err := strconv.ParseInt(dec, 10, 64)
	if err == nil {
		return v, nil
	}
	u, uerr := strconv.ParseUint(dec, 10, 64)
	if uerr != nil {
		return 0, errors.Wrapf(err, "decoding bit-vector value %q", dec)
	}
	return int64(u), nil
}

// decodeFloatBits turns a raw IEEE-754 bit string (most significant bit
// first, 32 or 64 bits) into a float64. A 32-bit pattern is widened
// after decoding.
func decodeFloatBits(bin string) (float64, error) {
	bin = strings.TrimSpace(bin)
	bits, err := strconv.ParseUint(bin, 2, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "decoding float bit pattern %q", bin)
	}
	switch len(bin) {
	case 32:
		return float64(math.Float32frombits(uint32(bits))), nil
	case 64:
		return math.Float64frombits(bits), nil
	}
	return 0, errors.Errorf("unsupported float width: %d bits", len(bin))
}
