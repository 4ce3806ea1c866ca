package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/benbjohnson/symexpr"
	"github.com/benbjohnson/symexpr/state"
	"github.com/spf13/pflag"
)

// EnvFlags are the parser flags shared by parse, doc and repl. Each flag
// overrides the matching configuration setting when given.
type EnvFlags struct {
	Placeholders bool
	Memory       bool
	Registers    string
	State        string
}

// AddFlags registers the flags on fs.
func (f *EnvFlags) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&f.Placeholders, "placeholders", false, "parse unknown symbols as placeholders")
	fs.BoolVar(&f.Memory, "memory", false, "parse (memory[N] ADDR) reads of N bytes as placeholders")
	fs.StringVar(&f.Registers, "registers", "", "register dictionary `file` (YAML)")
	fs.StringVar(&f.State, "state", "", "machine state `file` (YAML) used to resolve placeholders")
}

// Env is a parser configured from the config file and flags, together with
// the expansions that need state to resolve.
type Env struct {
	Parser       *symexpr.Parser
	Registers    *symexpr.RegisterSubstituter
	Memory       *symexpr.MemorySubstituter
	Placeholders *symexpr.TermPlaceholders
	State        *state.State
}

// newEnv builds the environment. Flags changed on fs take precedence over
// the configuration.
func (m *Main) newEnv(fs *pflag.FlagSet, flags *EnvFlags) (*Env, error) {
	config := m.Config.Parser
	if fs.Changed("placeholders") {
		config.Placeholders = flags.Placeholders
	}
	if fs.Changed("memory") {
		config.Memory = flags.Memory
	}
	if fs.Changed("registers") {
		config.Registers = flags.Registers
	}
	statePath := m.Config.State.File
	if fs.Changed("state") {
		statePath = flags.State
	}

	env := &Env{Parser: symexpr.NewParser()}
	env.Parser.Logger = m.logger()

	var dict *state.Dictionary
	if config.Registers != "" {
		d, err := readDictionaryFile(config.Registers)
		if err != nil {
			return nil, err
		}
		dict = d
		env.Registers = env.Parser.DefineRegisterDictionary(dict)
	}
	if config.Memory {
		env.Memory = symexpr.NewMemorySubstituter(nil)
		env.Parser.AppendOperatorExpansion(env.Memory)
	}
	if config.Placeholders {
		env.Placeholders = symexpr.NewTermPlaceholders()
		env.Parser.AppendAtomExpansion(env.Placeholders)
	}

	if statePath != "" {
		s, err := readStateFile(statePath, dict)
		if err != nil {
			return nil, err
		}
		env.State = s
		if env.Registers != nil {
			env.Registers.Operators = s
		}
		if env.Memory != nil {
			env.Memory.Operators = s
		}
	}
	return env, nil
}

// Resolve replaces placeholders by their values in the loaded state.
func (env *Env) Resolve(expr symexpr.Expr) (symexpr.Expr, error) {
	if env.State == nil {
		return nil, errors.New("no state loaded")
	}
	return env.Parser.DelayedExpansion(expr)
}

// ParseAll parses every expression in src.
func (env *Env) ParseAll(src, name string) ([]symexpr.Expr, error) {
	return env.Parser.ParseAll(src, name)
}

// PlaceholderLines returns a line for every placeholder created so far.
func (env *Env) PlaceholderLines() []string {
	var lines []string
	if env.Registers != nil {
		env.Registers.Map().Each(func(key interface{}, expr symexpr.Expr) bool {
			lines = append(lines, fmt.Sprintf("%s = register %s", expr, key.(symexpr.RegisterDescriptor)))
			return true
		})
	}
	if env.Memory != nil {
		env.Memory.Map().Each(func(key interface{}, expr symexpr.Expr) bool {
			k := key.(symexpr.MemoryKey)
			lines = append(lines, fmt.Sprintf("%s = memory[%d] %s", expr, k.Width/8, k.Address))
			return true
		})
	}
	if env.Placeholders != nil {
		env.Placeholders.Map().Each(func(key interface{}, expr symexpr.Expr) bool {
			lines = append(lines, fmt.Sprintf("%s = %s", expr, symexpr.EscapeSymbol(key.(string))))
			return true
		})
	}
	return lines
}

func readDictionaryFile(path string) (*state.Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := state.LoadDictionary(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func readStateFile(path string, dict *state.Dictionary) (*state.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := state.Load(f, dict, symexpr.NewParser())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// printError writes err to w, with the offending source line for syntax
// errors in src.
func printError(w io.Writer, err error, src string) {
	var e *symexpr.SyntaxError
	if errors.As(err, &e) && src != "" {
		fmt.Fprintln(w, e.Diagnostic(src))
		return
	}
	fmt.Fprintln(w, err)
}
