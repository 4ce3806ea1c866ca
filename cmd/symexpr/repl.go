package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/benbjohnson/symexpr"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

// HistoryFile is the name of the REPL history file in the home directory.
const HistoryFile = ".symexpr_history"

const (
	promptMain = "> "
	promptCont = ". "
)

// REPLCommand represents an interactive session parsing one expression at
// a time.
type REPLCommand struct {
	m     *Main
	cmd   *cobra.Command
	flags EnvFlags
}

// NewREPLCommand returns a new instance of REPLCommand.
func NewREPLCommand(m *Main) *REPLCommand {
	return &REPLCommand{m: m}
}

// Command returns the cobra command for "repl".
func (c *REPLCommand) Command() *cobra.Command {
	c.cmd = &cobra.Command{
		Use:   "repl",
		Short: "Parse expressions interactively",
		Long: `Repl reads expressions from the terminal and prints their simplified
form. Input continues on the next line until parentheses balance.

Commands:

	:doc              list atoms and operators
	:placeholders     list placeholders created so far
	:resolve EXPR     parse EXPR and resolve it against the state
	:state            print the loaded state
	:quit             exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context())
		},
	}
	c.flags.AddFlags(c.cmd.Flags())
	return c.cmd
}

// Run executes the "repl" subcommand.
func (c *REPLCommand) Run(ctx context.Context) error {
	env, err := c.m.newEnv(c.cmd.Flags(), &c.flags)
	if err != nil {
		return err
	}
	r := &REPL{Env: env, Stdout: c.m.Stdout, Stderr: c.m.Stderr}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	var histPath string
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, HistoryFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		src, ok := readInput(ln)
		if !ok {
			fmt.Fprintln(c.m.Stdout)
			return nil
		} else if strings.TrimSpace(src) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if quit := r.Eval(src); quit {
			return nil
		}
	}
}

// prompter reads a line of input. Implemented by *liner.State.
type prompter interface {
	Prompt(prompt string) (string, error)
}

// readInput reads lines from p until they form complete input. Returns false
// at end of input.
func readInput(p prompter) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}

		line, err := p.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		} else if errors.Is(err, liner.ErrPromptAborted) {
			b.Reset()
			continue
		} else if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if src := b.String(); !isIncompleteInput(src) {
			return src, true
		}
	}
}

// isIncompleteInput returns true if src ends inside a comment or before all
// parentheses are closed. Only tokens are read so expansions are not invoked.
func isIncompleteInput(src string) bool {
	if strings.HasPrefix(strings.TrimSpace(src), ":") {
		return false
	}

	ts := symexpr.NewTokenStream(strings.NewReader(src), "")
	depth := 0
	for {
		tok, err := ts.Peek(0)
		if err != nil {
			return symexpr.IsIncomplete(err)
		}
		switch tok.Type {
		case symexpr.TokenEOF:
			return depth > 0
		case symexpr.TokenLeftParen:
			depth++
		case symexpr.TokenRightParen:
			depth--
		}
		ts.Shift(1)
	}
}

// REPL evaluates REPL input against an environment.
type REPL struct {
	Env    *Env
	Stdout io.Writer
	Stderr io.Writer
}

// Eval evaluates a single command or expression source. Returns true if the
// session should end.
func (r *REPL) Eval(src string) (quit bool) {
	if cmd := strings.TrimSpace(src); strings.HasPrefix(cmd, ":") {
		return r.command(cmd)
	}

	exprs, err := r.Env.ParseAll(src, "")
	if err != nil {
		printError(r.Stderr, err, src)
		return false
	}
	for _, expr := range exprs {
		fmt.Fprintln(r.Stdout, expr)
	}
	return false
}

func (r *REPL) command(cmd string) (quit bool) {
	name, arg := cmd, ""
	if i := strings.IndexAny(cmd, " \t\n"); i != -1 {
		name, arg = cmd[:i], strings.TrimSpace(cmd[i+1:])
	}

	switch name {
	case ":quit", ":q":
		return true
	case ":doc":
		fmt.Fprint(r.Stdout, r.Env.Parser.DocString())
	case ":placeholders":
		for _, line := range r.Env.PlaceholderLines() {
			fmt.Fprintln(r.Stdout, line)
		}
	case ":state":
		if r.Env.State == nil {
			fmt.Fprintln(r.Stderr, "no state loaded")
			return false
		}
		fmt.Fprint(r.Stdout, r.Env.State.Dump())
	case ":resolve":
		exprs, err := r.Env.ParseAll(arg, "")
		if err != nil {
			printError(r.Stderr, err, arg)
			return false
		}
		for _, expr := range exprs {
			value, err := r.Env.Resolve(expr)
			if err != nil {
				fmt.Fprintln(r.Stderr, err)
				return false
			}
			fmt.Fprintln(r.Stdout, value)
		}
	default:
		fmt.Fprintf(r.Stderr, "unknown command: %s\n", name)
	}
	return false
}
