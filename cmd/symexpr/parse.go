package main

import (
	"context"
	"fmt"
	"io"

	"github.com/benbjohnson/symexpr"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

// ParseCommand represents a command for parsing and printing expressions.
type ParseCommand struct {
	m     *Main
	cmd   *cobra.Command
	flags EnvFlags

	dump         bool
	placeholders bool
}

// NewParseCommand returns a new instance of ParseCommand.
func NewParseCommand(m *Main) *ParseCommand {
	return &ParseCommand{m: m}
}

// Command returns the cobra command for "parse".
func (c *ParseCommand) Command() *cobra.Command {
	c.cmd = &cobra.Command{
		Use:   "parse [EXPR...]",
		Short: "Parse expressions and print their simplified form",
		Long: `Parse parses each argument as an expression, or every expression on
standard input when no arguments are given, and prints the result one per
line. With a machine state, placeholders are resolved before printing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), args)
		},
	}
	c.flags.AddFlags(c.cmd.Flags())
	c.cmd.Flags().BoolVar(&c.dump, "dump", false, "print the Go structure of each expression")
	c.cmd.Flags().BoolVar(&c.placeholders, "show-placeholders", false, "list the placeholders created while parsing")
	return c.cmd
}

// Run executes the "parse" subcommand.
func (c *ParseCommand) Run(ctx context.Context, args []string) error {
	env, err := c.m.newEnv(c.cmd.Flags(), &c.flags)
	if err != nil {
		return err
	}

	type input struct{ name, src string }
	var inputs []input
	if len(args) == 0 {
		buf, err := io.ReadAll(c.m.Stdin)
		if err != nil {
			return err
		}
		inputs = append(inputs, input{"stdin", string(buf)})
	}
	for i, arg := range args {
		inputs = append(inputs, input{fmt.Sprintf("arg%d", i+1), arg})
	}

	for _, in := range inputs {
		exprs, err := env.ParseAll(in.src, in.name)
		if err != nil {
			printError(c.m.Stderr, err, in.src)
			return fmt.Errorf("parse failed")
		}

		for _, expr := range exprs {
			if env.State != nil {
				if expr, err = env.Resolve(expr); err != nil {
					return err
				}
			}
			c.print(expr)
		}
	}

	if c.placeholders {
		for _, line := range env.PlaceholderLines() {
			fmt.Fprintln(c.m.Stdout, line)
		}
	}
	return nil
}

func (c *ParseCommand) print(expr symexpr.Expr) {
	if !c.dump {
		fmt.Fprintln(c.m.Stdout, expr)
		return
	}
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}
	cfg.Fdump(c.m.Stdout, expr)
}
