package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	m := NewMain()
	if err := m.Run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(m.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program and its shared command-line state.
type Main struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Set by the root persistent flags.
	ConfigPath string
	Verbose    bool

	// Loaded before any subcommand runs.
	Config Config
}

// NewMain returns a new instance of Main attached to the standard streams.
func NewMain() *Main {
	return &Main{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes the command line given by args.
func (m *Main) Run(ctx context.Context, args []string) error {
	root := m.newRootCommand()
	root.SetArgs(args)
	root.SetIn(m.Stdin)
	root.SetOut(m.Stdout)
	root.SetErr(m.Stderr)
	return root.ExecuteContext(ctx)
}

func (m *Main) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "symexpr",
		Short: "Parse, resolve and solve symbolic bit-vector expressions",
		Long: `Symexpr reads expressions written in a parenthesized prefix notation,
such as "(add v1[32] 0x10[32])", and prints their simplified form.

Register names and memory reads may be parsed as placeholders and later
resolved against a machine state loaded from YAML.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, mustExist := m.ConfigPath, true
			if path == "" {
				path, mustExist = DefaultConfigPath, false
			}
			config, err := ReadConfigFile(path, mustExist)
			if err != nil {
				return err
			}
			m.Config = config
			return nil
		},
	}

	root.PersistentFlags().StringVar(&m.ConfigPath, "config", "", "config file (default ./"+DefaultConfigPath+")")
	root.PersistentFlags().BoolVarP(&m.Verbose, "verbose", "v", false, "log each expansion to stderr")

	root.AddCommand(
		NewParseCommand(m).Command(),
		NewSolveCommand(m).Command(),
		NewDocCommand(m).Command(),
		NewREPLCommand(m).Command(),
	)
	return root
}

// logger returns the expansion logger, or nil when not verbose.
func (m *Main) logger() *log.Logger {
	if !m.Verbose {
		return nil
	}
	return log.New(m.Stderr, "", 0)
}
