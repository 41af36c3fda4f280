// Package repl provides the interactive session: declarations
// accumulate into the session's global frame, bare expressions
// evaluate and print their result.
package repl

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"yc/interp"
	"yc/lexer"
	"yc/parser"
	"yc/token"
)

// Run starts a session on the terminal and blocks until EOF or `exit`.
func Run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "yc> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	in := interp.New(os.Stdout)
	in.Loader = func(p string) (string, error) {
		contents, err := os.ReadFile(p)
		return string(contents), err
	}

	session := NewSession(in, os.Stdout)
	errColor := color.New(color.FgRed)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "exit" {
			return nil
		}

		if err := session.Eval(line); err != nil {
			errColor.Fprintln(os.Stderr, err)
		}
	}
}

// Session wraps an interpreter whose global frames stay open between
// inputs.
type Session struct {
	in  *interp.Interpreter
	out io.Writer
}

func NewSession(in *interp.Interpreter, out io.Writer) *Session {
	in.Globals().PushFrame()
	in.BindRuntime()
	in.Globals().PushFrame()
	return &Session{in: in, out: out}
}

// Eval handles one input: a top-level declaration is registered, any
// other statement runs in place, and a bare expression additionally
// prints its value.
func (s *Session) Eval(line string) error {
	toks, err := lexer.New(line).Scan()
	if err != nil {
		return err
	}
	if len(toks) == 1 { // just EOF
		return nil
	}

	switch toks[0].Kind {
	case token.FUNCTION, token.CLASS, token.UNION:
		prog, err := parser.New(toks).Parse()
		if err != nil {
			return err
		}
		return s.in.Declare(prog)
	}

	// Statements need their trailing semicolon; don't make the user
	// type it for a quick expression.
	eof := toks[len(toks)-1]
	if toks[len(toks)-2].Kind != token.SEMICOLON &&
		toks[len(toks)-2].Kind != token.RBRACE {
		toks = append(toks[:len(toks)-1],
			token.Token{Kind: token.SEMICOLON, Lexeme: ";", Pos: eof.Pos}, eof)
	}

	exprs, err := parser.New(toks).ParseStatements()
	if err != nil {
		return err
	}
	val, err := s.in.EvalStatements(exprs)
	if err != nil {
		return err
	}
	if val != nil && !val.IsVoid() {
		fmt.Fprintln(s.out, val)
	}
	return nil
}
