// Package main implements the compiler's CLI driver (spec.md §6): read one
// C source file, run the front end out of scope of this repository's core
// (parser/semantic analyzer only exist here as the ambient surface feeding
// the SSA builder), build SSA, optimize, and emit either textual IR or
// AArch64/Darwin assembly. Grounded on the teacher's cmd/kanso-cli/main.go
// (read-file -> parse -> report-or-continue -> exit-code shape), with the
// flag surface itself grounded on github.com/spf13/cobra, the CLI library
// the pack's ralph-cc reference manifest wires for an equivalent C-compiler
// driver.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ccompiler/internal/ast"
	"ccompiler/internal/codegen"
	"ccompiler/internal/errors"
	"ccompiler/internal/ir"
	"ccompiler/internal/parser"
	"ccompiler/internal/semantic"
)

type options struct {
	input     string
	output    string
	dumpAST   bool
	dumpIR    bool
	graphviz  bool
	emit      string
	verbosity int
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:   "cc",
		Short: "Compile a small C subset to AArch64/Darwin assembly",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	root.Flags().StringVarP(&opts.input, "input", "i", "", "path to a C source file (required)")
	root.Flags().StringVarP(&opts.output, "output", "o", "", "path to emit result (default stdout)")
	root.Flags().BoolVar(&opts.dumpAST, "dump-ast", false, "print the parsed AST for inspection")
	root.Flags().BoolVar(&opts.dumpIR, "dump-ir", false, "print IR before and after the optimizer")
	root.Flags().BoolVar(&opts.graphviz, "graphviz", false, "write one .dot file per function into ./graphviz")
	root.Flags().StringVar(&opts.emit, "emit", "asm", "output kind: ir or asm")
	root.Flags().CountVarP(&opts.verbosity, "verbose", "v", "increase verbosity (repeatable)")
	_ = root.MarkFlagRequired("input")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts *options) error {
	source, err := os.ReadFile(opts.input)
	if err != nil {
		color.Red("error: cannot read %s: %s", opts.input, err)
		os.Exit(1)
	}

	result := parser.ParseSource(opts.input, string(source))
	if !result.OK() {
		reportParseFailures(opts.input, string(source), result)
		os.Exit(1)
	}

	if opts.dumpAST {
		fmt.Printf("%+v\n", result.Unit)
	}

	analyzer := semantic.NewAnalyzer(opts.input)
	if ok := analyzer.Analyze(result.Unit); !ok {
		reportCompilerErrors(opts.input, string(source), analyzer.Errors())
		os.Exit(1)
	}

	builder := ir.NewBuilder(analyzer.Table(), opts.input)
	program := builder.BuildProgram(result.Unit)
	if len(builder.Errors()) > 0 {
		reportCompilerErrors(opts.input, string(source), builder.Errors())
		os.Exit(1)
	}

	if opts.dumpIR {
		fmt.Fprintln(os.Stderr, "-- IR before optimization --")
		fmt.Fprint(os.Stderr, ir.PrintProgram(program))
	}

	pipeline := ir.NewO1Pipeline()
	pipeline.Run(program)

	if opts.dumpIR {
		fmt.Fprintln(os.Stderr, "-- IR after optimization --")
		fmt.Fprint(os.Stderr, ir.PrintProgram(program))
	}

	if opts.graphviz {
		if err := writeGraphviz(program); err != nil {
			color.Red("error: %s", err)
			os.Exit(1)
		}
	}

	var out string
	switch opts.emit {
	case "ir":
		out = ir.PrintProgram(program)
	case "asm":
		out, err = assembleProgram(program)
		if err != nil {
			color.Red("error: %s", err)
			os.Exit(1)
		}
	default:
		return fmt.Errorf("unknown --emit kind %q (want ir or asm)", opts.emit)
	}

	if opts.output == "" {
		fmt.Print(out)
		return nil
	}
	return os.WriteFile(opts.output, []byte(out), 0o644)
}

func assembleProgram(program *ir.Program) (string, error) {
	globals := codegen.GlobalSymbolTableFromProgram(program)

	var order []string
	instrs := make(map[string][]codegen.Instruction)
	for _, item := range program.Items {
		switch item.Kind {
		case ir.ToplevelFunction:
			order = append(order, item.Function.Name)
			fnInstrs, err := codegen.NewEmitter(globals).EmitFunction(item.Function)
			if err != nil {
				return "", fmt.Errorf("codegen: function %s: %w", item.Function.Name, err)
			}
			instrs[item.Function.Name] = fnInstrs
		case ir.ToplevelDeclaration:
			order = append(order, item.Decl.Name)
		}
	}

	return codegen.SerializeProgram(globals, order, instrs), nil
}

func writeGraphviz(program *ir.Program) error {
	if err := os.MkdirAll("graphviz", 0o755); err != nil {
		return err
	}
	for _, item := range program.Items {
		if item.Kind != ir.ToplevelFunction {
			continue
		}
		dot := ir.GraphvizFunction(item.Function)
		path := filepath.Join("graphviz", item.Function.Name+".dot")
		if err := os.WriteFile(path, []byte(dot), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func reportParseFailures(filename, source string, result parser.ParseResult) {
	for _, se := range result.ScanErrors {
		fmt.Fprintln(os.Stderr, errors.NewErrorReporter(filename, source).FormatError(errors.CompilerError{
			Level: errors.Error, Code: errors.ErrorLexical, Message: se.Message, Length: se.Length,
			Position: toASTPosition(filename, se.Position),
		}))
	}
	for _, pe := range result.ParseErrors {
		fmt.Fprintln(os.Stderr, errors.NewErrorReporter(filename, source).FormatError(errors.CompilerError{
			Level: errors.Error, Code: errors.ErrorSyntax, Message: pe.Message, Length: 1,
			Position: toASTPosition(filename, pe.Position),
		}))
	}
}

func reportCompilerErrors(filename, source string, errs []errors.CompilerError) {
	reporter := errors.NewErrorReporter(filename, source)
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, reporter.FormatError(e))
	}
}

func toASTPosition(filename string, p parser.Position) ast.Position {
	return ast.Position{Filename: filename, Line: p.Line, Column: p.Column, Offset: p.Offset}
}
