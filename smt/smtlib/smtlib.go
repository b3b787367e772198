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

// Package smtlib drives an SMT-LIB2 solver subprocess (z3, bitwuzla, or
// cvc5) over its standard streams.
//
// Terms are rendered to s-expressions as they are built; declarations
// and assertions are buffered and sent as one script when CheckSat is
// called, after which the process stays alive to answer get-value
// queries. The signed overflow predicates of the abstract interface,
// which SMT-LIB2 has no standard operators for, are encoded by widening
// (see print.go).
package smtlib

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/base/uname"
	"github.com/symir-lang/symir/smt"
	"go.uber.org/multierr"
)

// Config of a solver subprocess.
type Config struct {
	// Command is the solver invocation reading SMT-LIB2 from stdin.
	// Empty means the default: z3 -in -smt2.
	Command []string
	// Timeout bounds CheckSat; zero means no limit. On expiry the
	// process is killed and CheckSat returns Unknown.
	Timeout time.Duration
	// Seed makes randomized solver heuristics reproducible.
	Seed uint32
}

// DefaultCommand is used when Config.Command is empty.
var DefaultCommand = []string{"z3", "-in", "-smt2"}

type (
	sortKind int

	sort struct {
		kind sortKind
		// width of a bit-vector sort.
		width uint32
		// exp, sig of a floating point sort.
		exp, sig uint32
	}

	term struct {
		sexpr string
		sort  *sort
		// bits is set on model constants returned by Value.
		bits    uint64
		isModel bool
	}
)

const (
	boolSort sortKind = iota
	bvSort
	fpSort
)

func (*sort) sort() {}
func (*term) term() {}

// Solver implements smt.Solver over a subprocess.
type Solver struct {
	config Config

	decls   []string
	asserts []string
	names   *uname.Unique

	proc    *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	started bool
	checked bool
	killed  bool
}

var _ smt.Solver = (*Solver)(nil)

// New returns a solver that will spawn the configured command at the
// first CheckSat.
func New(config Config) *Solver {
	return &Solver{config: config, names: uname.New()}
}

// BVSort returns the bit-vector sort of the given width.
func (s *Solver) BVSort(width uint32) smt.Sort { return &sort{kind: bvSort, width: width} }

// FPSort returns the floating point sort with the given dimensions.
func (s *Solver) FPSort(exp, sig uint32) smt.Sort { return &sort{kind: fpSort, exp: exp, sig: sig} }

// BoolSort returns the Boolean sort.
func (s *Solver) BoolSort() smt.Sort { return &sort{kind: boolSort} }

// IsBV reports whether the sort is a bit-vector sort.
func (s *Solver) IsBV(so smt.Sort) bool { return so.(*sort).kind == bvSort }

// IsFP reports whether the sort is a floating point sort.
func (s *Solver) IsFP(so smt.Sort) bool { return so.(*sort).kind == fpSort }

// IsBool reports whether the sort is the Boolean sort.
func (s *Solver) IsBool(so smt.Sort) bool { return so.(*sort).kind == boolSort }

// BVWidth returns the width of a bit-vector sort.
func (s *Solver) BVWidth(so smt.Sort) uint32 { return so.(*sort).width }

// FPDims returns the dimensions of a floating point sort.
func (s *Solver) FPDims(so smt.Sort) (uint32, uint32) {
	st := so.(*sort)
	return st.exp, st.sig
}

// True returns the true constant.
func (s *Solver) True() smt.Term { return &term{sexpr: "true", sort: &sort{kind: boolSort}} }

// False returns the false constant.
func (s *Solver) False() smt.Term { return &term{sexpr: "false", sort: &sort{kind: boolSort}} }

// BVValue builds a bit-vector constant from a possibly negative decimal
// string.
func (s *Solver) BVValue(so smt.Sort, dec string) smt.Term {
	st := so.(*sort)
	dec = strings.TrimSpace(dec)
	if rest, neg := strings.CutPrefix(dec, "-"); neg {
		return &term{
			sexpr: fmt.Sprintf("(bvneg (_ bv%s %d))", rest, st.width),
			sort:  st,
		}
	}
	return &term{sexpr: fmt.Sprintf("(_ bv%s %d)", dec, st.width), sort: st}
}

// BVValueInt64 builds a bit-vector constant from the low bits of v.
func (s *Solver) BVValueInt64(so smt.Sort, v int64) smt.Term {
	st := so.(*sort)
	masked := uint64(v)
	if st.width < 64 {
		masked &= (uint64(1) << st.width) - 1
	}
	return &term{sexpr: fmt.Sprintf("(_ bv%d %d)", masked, st.width), sort: st}
}

// BVZero returns the zero of a bit-vector sort.
func (s *Solver) BVZero(so smt.Sort) smt.Term { return s.BVValueInt64(so, 0) }

// BVOne returns the one of a bit-vector sort.
func (s *Solver) BVOne(so smt.Sort) smt.Term { return s.BVValueInt64(so, 1) }

// BVMinSigned returns the smallest signed value of a bit-vector sort.
func (s *Solver) BVMinSigned(so smt.Sort) smt.Term {
	st := so.(*sort)
	return &term{
		sexpr: fmt.Sprintf("(_ bv%d %d)", uint64(1)<<(st.width-1), st.width),
		sort:  st,
	}
}

// BVMaxSigned returns the largest signed value of a bit-vector sort.
func (s *Solver) BVMaxSigned(so smt.Sort) smt.Term {
	st := so.(*sort)
	return &term{
		sexpr: fmt.Sprintf("(_ bv%d %d)", (uint64(1)<<(st.width-1))-1, st.width),
		sort:  st,
	}
}

// FPValue builds a floating point constant, rounding v to the target
// format.
func (s *Solver) FPValue(so smt.Sort, v float64, rm smt.RoundingMode) smt.Term {
	st := so.(*sort)
	if bits, width, ok := fpBits(st, v); ok {
		return &term{sexpr: fpLiteral(bits, st, width), sort: st}
	}
	return &term{
		sexpr: fmt.Sprintf("((_ to_fp %d %d) %s %s)", st.exp, st.sig, rmString(rm), realString(v)),
		sort:  st,
	}
}

// Const declares a fresh constant. Names are uniquified and quoted, so
// any source name (sigils included) is admissible and repeated names do
// not collide.
func (s *Solver) Const(so smt.Sort, name string) smt.Term {
	st := so.(*sort)
	sym := fmt.Sprintf("|%s|", s.names.Name(strings.ReplaceAll(name, "|", "!")))
	s.decls = append(s.decls, fmt.Sprintf("(declare-const %s %s)", sym, sortString(st)))
	return &term{sexpr: sym, sort: st}
}

// SortOf returns the sort of a term.
func (s *Solver) SortOf(t smt.Term) smt.Sort { return t.(*term).sort }

// Assert queues a formula for the next CheckSat.
func (s *Solver) Assert(t smt.Term) {
	s.asserts = append(s.asserts, fmt.Sprintf("(assert %s)", t.(*term).sexpr))
}

// CheckSat spawns the solver process, sends the buffered script, and
// reads the verdict. A timeout kills the process and returns Unknown.
func (s *Solver) CheckSat() (smt.Result, error) {
	if err := s.start(); err != nil {
		return smt.Unknown, err
	}
	var script strings.Builder
	for _, d := range s.decls {
		script.WriteString(d)
		script.WriteByte('\n')
	}
	for _, a := range s.asserts {
		script.WriteString(a)
		script.WriteByte('\n')
	}
	script.WriteString("(check-sat)\n")
	if _, err := io.WriteString(s.stdin, script.String()); err != nil {
		return smt.Unknown, errors.Wrap(err, "writing to solver")
	}
	line, err := s.readLine()
	if err != nil {
		if s.timedOut() {
			return smt.Unknown, nil
		}
		return smt.Unknown, errors.Wrap(err, "reading solver verdict")
	}
	s.checked = true
	switch strings.TrimSpace(line) {
	case "sat":
		return smt.Sat, nil
	case "unsat":
		return smt.Unsat, nil
	case "unknown", "timeout":
		return smt.Unknown, nil
	}
	return smt.Unknown, errors.Errorf("unexpected solver verdict: %q", line)
}

// Value queries the model for the value of a term. Only valid after
// CheckSat returned Sat.
func (s *Solver) Value(t smt.Term) (smt.Term, error) {
	if !s.checked {
		return nil, errors.New("Value before CheckSat")
	}
	tt := t.(*term)
	if _, err := fmt.Fprintf(s.stdin, "(get-value (%s))\n", tt.sexpr); err != nil {
		return nil, errors.Wrap(err, "writing to solver")
	}
	resp, err := s.readSexpr()
	if err != nil {
		return nil, errors.Wrap(err, "reading model value")
	}
	bits, err := parseModelValue(resp, tt.sort)
	if err != nil {
		return nil, err
	}
	return &term{sexpr: resp, sort: tt.sort, bits: bits, isModel: true}, nil
}

// BVValueString renders a model constant in the given base. Base 10
// yields the signed decimal value.
func (s *Solver) BVValueString(t smt.Term, base int) (string, error) {
	tt := t.(*term)
	if !tt.isModel {
		return "", errors.New("not a model constant")
	}
	width := tt.sort.width
	switch base {
	case 10:
		v := int64(tt.bits)
		if width < 64 {
			// Sign-extend the low bits.
			v = int64(tt.bits<<(64-width)) >> (64 - width)
		}
		return fmt.Sprintf("%d", v), nil
	case 16:
		return fmt.Sprintf("%0*x", (width+3)/4, tt.bits), nil
	case 2:
		return fmt.Sprintf("%0*b", width, tt.bits), nil
	}
	return "", errors.Errorf("unsupported base: %d", base)
}

// FPValueString renders a model constant as its raw IEEE-754 bit
// string, most significant bit first.
func (s *Solver) FPValueString(t smt.Term) (string, error) {
	tt := t.(*term)
	if !tt.isModel {
		return "", errors.New("not a model constant")
	}
	width := tt.sort.exp + tt.sort.sig
	return fmt.Sprintf("%0*b", width, tt.bits), nil
}

// Close terminates the subprocess if one is running.
func (s *Solver) Close() error {
	if !s.started {
		return nil
	}
	var errs error
	if err := s.stdin.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}
	done := make(chan error, 1)
	go func() { done <- s.proc.Wait() }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		errs = multierr.Append(errs, s.proc.Process.Kill())
		<-done
	}
	s.started = false
	return errs
}

func (s *Solver) start() error {
	if s.started {
		return nil
	}
	cmd := s.config.Command
	if len(cmd) == 0 {
		cmd = DefaultCommand
	}
	s.proc = exec.Command(cmd[0], cmd[1:]...)
	stdin, err := s.proc.StdinPipe()
	if err != nil {
		return errors.Wrap(err, "opening solver stdin")
	}
	stdout, err := s.proc.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "opening solver stdout")
	}
	if err := s.proc.Start(); err != nil {
		return errors.Wrapf(err, "starting solver %s", cmd[0])
	}
	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true

	var preamble strings.Builder
	preamble.WriteString("(set-option :print-success false)\n")
	if s.config.Seed != 0 {
		fmt.Fprintf(&preamble, "(set-option :random-seed %d)\n", s.config.Seed)
	}
	_, err = io.WriteString(s.stdin, preamble.String())
	return errors.Wrap(err, "writing solver preamble")
}

// readLine reads one response line, killing the process when the
// configured timeout expires.
func (s *Solver) readLine() (string, error) {
	type lineErr struct {
		line string
		err  error
	}
	ch := make(chan lineErr, 1)
	go func() {
		line, err := s.stdout.ReadString('\n')
		ch <- lineErr{line, err}
	}()
	if s.config.Timeout <= 0 {
		le := <-ch
		return le.line, le.err
	}
	select {
	case le := <-ch:
		return le.line, le.err
	case <-time.After(s.config.Timeout):
		s.killed = true
		_ = s.proc.Process.Kill()
		le := <-ch
		if le.err == nil {
			le.err = errors.New("solver timed out")
		}
		return le.line, le.err
	}
}

// timedOut reports whether the process is gone because readLine killed
// it.
func (s *Solver) timedOut() bool {
	return s.killed
}

// readSexpr reads one balanced s-expression from the solver.
func (s *Solver) readSexpr() (string, error) {
	var sb strings.Builder
	depth := 0
	inBar := false
	for {
		line, err := s.readLine()
		if line == "" && err != nil {
			return "", err
		}
		for i := 0; i < len(line); i++ {
			switch line[i] {
			case '|':
				inBar = !inBar
			case '(':
				if !inBar {
					depth++
				}
			case ')':
				if !inBar {
					depth--
				}
			}
		}
		sb.WriteString(line)
		if depth <= 0 && strings.ContainsRune(sb.String(), '(') {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
	}
}
