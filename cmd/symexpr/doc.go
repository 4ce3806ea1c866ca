package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// DocCommand prints the documentation of the installed expansions.
type DocCommand struct {
	m     *Main
	cmd   *cobra.Command
	flags EnvFlags
}

// NewDocCommand returns a new instance of DocCommand.
func NewDocCommand(m *Main) *DocCommand {
	return &DocCommand{m: m}
}

// Command returns the cobra command for "doc".
func (c *DocCommand) Command() *cobra.Command {
	c.cmd = &cobra.Command{
		Use:   "doc",
		Short: "Describe the atoms and operators the parser accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context())
		},
	}
	c.flags.AddFlags(c.cmd.Flags())
	return c.cmd
}

// Run executes the "doc" subcommand.
func (c *DocCommand) Run(ctx context.Context) error {
	env, err := c.m.newEnv(c.cmd.Flags(), &c.flags)
	if err != nil {
		return err
	}
	fmt.Fprint(c.m.Stdout, env.Parser.DocString())
	return nil
}
