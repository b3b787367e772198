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

// symirc checks a SymIR source file and lowers it to C or WebAssembly
// text.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/symir-lang/symir/backend/cgen"
	"github.com/symir-lang/symir/backend/wasmgen"
	"github.com/symir-lang/symir/build/diag"
	"github.com/symir-lang/symir/build/parser"
	"github.com/symir-lang/symir/build/passes"
	"github.com/symir-lang/symir/fmt/astdump"
)

var (
	output  = flag.String("o", "", "output file (default stdout)")
	target  = flag.String("target", "c", "code generation target: c or wasm")
	dumpAST = flag.String("dump-ast", "", "write a structural dump of the tree to a file ('-' for stdout)")
	werror  = flag.Bool("Werror", false, "treat warnings as errors")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: symirc [flags] file.sir")
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

	if *dumpAST != "" {
		if err := writeOut(*dumpAST, astdump.Dump(prog)); err != nil {
			return err
		}
	}

	var diags diag.Bag
	ok := passes.Default(&diags).Run(prog)
	if rendered := diag.RenderAll(string(src), diags.All(), diag.Note); rendered != "" {
		fmt.Fprint(os.Stderr, rendered)
	}
	if !ok || (*werror && diags.HasWarnings()) {
		return fmt.Errorf("%s: compilation failed", path)
	}

	var out string
	switch *target {
	case "c":
		out, err = cgen.Emit(prog)
	case "wasm":
		out, err = wasmgen.Emit(prog)
	default:
		return fmt.Errorf("unknown target %q (want c or wasm)", *target)
	}
	if err != nil {
		return err
	}
	return writeOut(*output, out)
}

func writeOut(path, content string) error {
	if path == "" || path == "-" {
		_, err := fmt.Print(content)
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
