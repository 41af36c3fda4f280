package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"yc/ast"
	"yc/errs"
	"yc/interp"
	"yc/lexer"
	"yc/parser"
	"yc/repl"
)

const defaultSource = "input.yc"

func main() {
	root := &cobra.Command{
		Use:           "yc",
		Short:         "An interpreter for the yc language",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(sourcePath(args))
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "run [file]",
			Short: "Execute a source file (the default command)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(sourcePath(args))
			},
		},
		&cobra.Command{
			Use:   "lex [file]",
			Short: "Print the token stream",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return lex(sourcePath(args))
			},
		},
		&cobra.Command{
			Use:   "parse [file]",
			Short: "Print the parsed program",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return parse(sourcePath(args))
			},
		},
		&cobra.Command{
			Use:   "repl",
			Short: "Start an interactive session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return repl.Run()
			},
		},
	)

	if err := root.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)

		var ycErr *errs.Error
		if errors.As(err, &ycErr) && !ycErr.Runtime() {
			os.Exit(65)
		}
		os.Exit(70)
	}
}

func sourcePath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultSource
}

func loadAndParse(path string) (*ast.Program, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	toks, err := lexer.New(string(contents)).Scan()
	if err != nil {
		return nil, err
	}
	return parser.New(toks).Parse()
}

func run(path string) error {
	prog, err := loadAndParse(path)
	if err != nil {
		return err
	}

	in := interp.New(os.Stdout)
	in.Loader = func(p string) (string, error) {
		contents, err := os.ReadFile(p)
		return string(contents), err
	}
	return in.Run(prog)
}

func lex(path string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	toks, err := lexer.New(string(contents)).Scan()
	if err != nil {
		return err
	}
	for _, tok := range toks {
		fmt.Printf("%s:%s %s\n", tok.Pos, tok.Kind, tok.Lexeme)
	}
	return nil
}

func parse(path string) error {
	prog, err := loadAndParse(path)
	if err != nil {
		return err
	}
	fmt.Print(prog)
	return nil
}
