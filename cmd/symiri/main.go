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

// symiri interprets a SymIR function with all symbols bound from the
// command line.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/ir"
	"github.com/symir-lang/symir/build/parser"
	"github.com/symir-lang/symir/build/passes"
	"github.com/symir-lang/symir/interp"
	"github.com/symir-lang/symir/tools/sirflag"
)

var (
	funName  = flag.String("fun", "", "function to run (default: the first declared)")
	symFlags = sirflag.StringList("sym", "symbol bindings, name=value")
	argFlags = sirflag.StringList("arg", "scalar arguments, in parameter order")
	showPath = flag.Bool("dump-exec", false, "print the executed block path")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: symiri [flags] file.sir")
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

	fun := prog.FindFun(*funName)
	if *funName == "" && len(prog.Funs) > 0 {
		fun = &prog.Funs[0]
	}
	if fun == nil {
		return errors.Errorf("function not found: %s", *funName)
	}

	syms, err := symValues(fun)
	if err != nil {
		return err
	}
	args, err := argValues(fun)
	if err != nil {
		return err
	}

	out, err := interp.New(prog, interp.Config{}).Run(fun.Name.Name, args, syms)
	if err != nil {
		return err
	}
	if *showPath {
		fmt.Printf("path: %s\n", strings.Join(out.Path, " "))
	}
	if out.HasRet {
		fmt.Println(out.Ret)
	}
	return nil
}

func symValues(fun *ir.FunDecl) (map[string]interp.Value, error) {
	bindings, err := sirflag.ParseBindings(*symFlags)
	if err != nil {
		return nil, err
	}
	syms := map[string]interp.Value{}
	for _, b := range bindings {
		if b.IsFloat {
			syms[b.Name] = interp.FloatValue(b.Float, false)
		} else {
			syms[b.Name] = interp.IntValue(b.Int, 64)
		}
	}
	for i := range fun.Syms {
		if _, ok := syms[fun.Syms[i].Name.Name]; !ok {
			return nil, errors.Errorf("missing binding for symbol %s (use --sym %s=value)",
				fun.Syms[i].Name.Name, strings.TrimPrefix(fun.Syms[i].Name.Name, "%?"))
		}
	}
	return syms, nil
}

func argValues(fun *ir.FunDecl) ([]interp.Value, error) {
	if len(*argFlags) != len(fun.Params) {
		return nil, errors.Errorf("%s takes %d arguments, got %d (use --arg)",
			fun.Name.Name, len(fun.Params), len(*argFlags))
	}
	var args []interp.Value
	for i, raw := range *argFlags {
		if iv, err := strconv.ParseInt(raw, 10, 64); err == nil {
			args = append(args, interp.IntValue(iv, 64))
			continue
		}
		fv, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.Errorf("invalid argument %q for parameter %s", raw, fun.Params[i].Name.Name)
		}
		args = append(args, interp.FloatValue(fv, false))
	}
	return args, nil
}
