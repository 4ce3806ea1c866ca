package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/symexpr"
	"github.com/benbjohnson/symexpr/z3"
	"github.com/spf13/cobra"
)

// SolveCommand represents a command for checking the satisfiability of
// constraints and printing a model.
type SolveCommand struct {
	m     *Main
	cmd   *cobra.Command
	flags EnvFlags

	assume *symexpr.ExprSliceValue
	eval   *symexpr.ExprValue
}

// NewSolveCommand returns a new instance of SolveCommand.
func NewSolveCommand(m *Main) *SolveCommand {
	return &SolveCommand{
		m:      m,
		assume: symexpr.NewExprSliceValue(nil),
		eval:   symexpr.NewExprValue(nil),
	}
}

// Command returns the cobra command for "solve".
func (c *SolveCommand) Command() *cobra.Command {
	c.cmd = &cobra.Command{
		Use:   "solve CONSTRAINT...",
		Short: "Check that constraints can all be true and print a model",
		Long: `Solve parses each argument as a 1-bit constraint and asks the solver for
an assignment of the variables making every constraint true. If one exists,
"sat" is printed followed by each variable's value. Otherwise "unsat".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), args)
		},
	}
	c.flags.AddFlags(c.cmd.Flags())
	c.cmd.Flags().Var(c.assume, "assume", "additional constraint (repeatable)")
	c.cmd.Flags().Var(c.eval, "eval", "expression to evaluate in the model")
	return c.cmd
}

// Run executes the "solve" subcommand.
func (c *SolveCommand) Run(ctx context.Context, args []string) error {
	env, err := c.m.newEnv(c.cmd.Flags(), &c.flags)
	if err != nil {
		return err
	}

	solver := z3.NewSolver()
	defer solver.Close()
	env.Parser.Solver = solver

	var constraints []symexpr.Expr
	for i, arg := range args {
		exprs, err := env.ParseAll(arg, fmt.Sprintf("arg%d", i+1))
		if err != nil {
			printError(c.m.Stderr, err, arg)
			return errors.New("parse failed")
		}
		constraints = append(constraints, exprs...)
	}
	constraints = append(constraints, c.assume.Exprs...)
	if len(constraints) == 0 {
		return errors.New("at least one constraint required")
	}

	for i, expr := range constraints {
		if env.State != nil {
			if expr, err = env.Resolve(expr); err != nil {
				return err
			}
			constraints[i] = expr
		}
		if w := symexpr.ExprWidth(expr); w != symexpr.WidthBool {
			return fmt.Errorf("constraint %s is %d bits, expected 1", expr, w)
		}
	}

	exprs := constraints
	if c.eval.Expr != nil {
		exprs = append(exprs[:len(exprs):len(exprs)], c.eval.Expr)
	}
	vars := symexpr.FindVariables(exprs...)

	satisfiable, values, err := solver.Solve(constraints, vars)
	if err != nil {
		return err
	} else if !satisfiable {
		fmt.Fprintln(c.m.Stdout, "unsat")
		return nil
	}

	fmt.Fprintln(c.m.Stdout, "sat")
	for i, v := range vars {
		fmt.Fprintf(c.m.Stdout, "%s = %s\n", v, values[i])
	}

	if c.eval.Expr != nil {
		value, err := symexpr.NewExprEvaluator(vars, values).Evaluate(c.eval.Expr)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.m.Stdout, "%s => %s\n", c.eval.Expr, value)
	}
	return nil
}
