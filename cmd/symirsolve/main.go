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

// symirsolve finds concrete symbol values that make a block path of a
// SymIR function feasible, and optionally rewrites the program with the
// symbols concretized.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/parser"
	"github.com/symir-lang/symir/build/passes"
	"github.com/symir-lang/symir/fmt/sirfmt"
	"github.com/symir-lang/symir/smt"
	"github.com/symir-lang/symir/smt/smtlib"
	"github.com/symir-lang/symir/symexec"
	"github.com/symir-lang/symir/tools/sirflag"
)

var (
	funName    = flag.String("fun", "", "function to solve (default: the first declared)")
	pathFlags  = sirflag.StringList("path", "block labels of the path, in order")
	symFlags   = sirflag.StringList("sym", "fixed symbol bindings, name=value")
	timeoutMS  = flag.Int("timeout-ms", 0, "solver timeout in milliseconds (0: none)")
	solverCmd  = flag.String("solver", "", "solver command reading SMT-LIB2 on stdin (default: z3 -in -smt2)")
	emitModel  = flag.Bool("emit-model", true, "print the model on SAT")
	concretize = flag.String("o", "", "write the program with solved symbols as lets to a file ('-' for stdout)")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: symirsolve [flags] --path b0,b1,... file.sir")
		os.Exit(2)
	}
	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	prog, err := parser.Parse(string(src))
	if err != nil {
		return err
	}
	var diags diag.Bag
	if ok := passes.Default(&diags).Run(prog); !ok {
		fmt.Fprint(os.Stderr, diag.RenderAll(string(src), diags.All(), diag.Note))
		return errors.Errorf("%s: checks failed", path)
	}

	name := *funName
	if name == "" {
		if len(prog.Funs) == 0 {
			return errors.New("no functions declared")
		}
		name = prog.Funs[0].Name.Name
	}

	blockPath := normalizeLabels(*pathFlags)
	if len(blockPath) == 0 {
		return errors.New("empty path (use --path)")
	}
	fixed, err := fixedSyms()
	if err != nil {
		return err
	}

	config := symexec.Config{
		Timeout: time.Duration(*timeoutMS) * time.Millisecond,
		NewSolver: func(c symexec.Config) (smt.Solver, error) {
			var command []string
			if *solverCmd != "" {
				command = strings.Fields(*solverCmd)
			}
			return smtlib.New(smtlib.Config{
				Command: command,
				Timeout: c.Timeout,
				Seed:    c.Seed,
			}), nil
		},
	}
	res, err := symexec.New(prog, config).Solve(name, blockPath, fixed)
	if err != nil {
		return err
	}

	fmt.Println(res.Status)
	if res.Status != smt.Sat {
		return nil
	}
	if *emitModel {
		for sym, v := range res.Model.Iter() {
			if v.IsFloat {
				fmt.Printf("%s = %s\n", sym, sirfmt.FloatString(v.Float))
			} else {
				fmt.Printf("%s = %d\n", sym, v.Int)
			}
		}
	}
	if *concretize == "" {
		return nil
	}

	symValues := map[string]string{}
	for sym, v := range res.Model.Iter() {
		if v.IsFloat {
			symValues[sym] = sirfmt.FloatString(v.Float)
		} else {
			symValues[sym] = fmt.Sprintf("%d", v.Int)
		}
	}
	out := sirfmt.Config{SymValues: symValues}.Print(prog)
	if *concretize == "-" {
		_, err := fmt.Print(out)
		return err
	}
	return os.WriteFile(*concretize, []byte(out), 0o644)
}

// normalizeLabels accepts labels with or without the ^ sigil.
func normalizeLabels(raw []string) []string {
	var labels []string
	for _, l := range raw {
		if !strings.HasPrefix(l, "^") {
			l = "^" + l
		}
		labels = append(labels, l)
	}
	return labels
}

func fixedSyms() (map[string]int64, error) {
	bindings, err := sirflag.ParseBindings(*symFlags)
	if err != nil {
		return nil, err
	}
	fixed := map[string]int64{}
	for _, b := range bindings {
		if b.IsFloat {
			return nil, errors.Errorf("fixed symbol %s must be an integer", b.Name)
		}
		fixed[b.Name] = b.Int
	}
	return fixed, nil
}
