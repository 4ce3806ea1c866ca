package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCommand(t *testing.T) {
	t.Run("Args", func(t *testing.T) {
		m, stdout, _ := NewTestMain("")
		if err := m.Run(context.Background(), []string{"parse", "(add 0x1[8] 0x2[8])", "(zext 16 0xff[8])"}); err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff("0x3[8]\n0xff[16]\n", stdout.String()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Stdin", func(t *testing.T) {
		m, stdout, _ := NewTestMain("(xor 0xf[4] 0x3[4]) <comment> (concat 0x1[4] 0x2[4])")
		if err := m.Run(context.Background(), []string{"parse"}); err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff("0xc[4]\n0x12[8]\n", stdout.String()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("SyntaxError", func(t *testing.T) {
		m, _, stderr := NewTestMain("")
		if err := m.Run(context.Background(), []string{"parse", "(add 0x1[8] 0x2[16])"}); err == nil || err.Error() != "parse failed" {
			t.Fatalf("unexpected error: %v", err)
		} else if s := stderr.String(); !strings.Contains(s, "arg1:1:") || !strings.Contains(s, "^") {
			t.Fatalf("unexpected stderr: %q", s)
		}
	})

	t.Run("Config", func(t *testing.T) {
		m, stdout, _ := NewTestMain("")
		if err := m.Run(context.Background(), []string{"parse", "--config", "testdata/symexpr.toml", "(add eax (memory[4] esp))"}); err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff("0xf0e21567[32]\n", stdout.String()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("FlagOverridesConfig", func(t *testing.T) {
		m, _, _ := NewTestMain("")
		err := m.Run(context.Background(), []string{"parse", "--config", "testdata/symexpr.toml", "--memory=false", "(memory[4] esp)"})
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("Placeholders", func(t *testing.T) {
		m, stdout, _ := NewTestMain("")
		if err := m.Run(context.Background(), []string{"parse", "--placeholders", "--show-placeholders", "(eq foo[8] foo)"}); err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("unexpected output: %q", stdout.String())
		} else if lines[0] != "0x1[1]" {
			t.Fatalf("unexpected expression: %s", lines[0])
		} else if !strings.HasSuffix(lines[1], "[8] = foo") {
			t.Fatalf("unexpected placeholder line: %s", lines[1])
		}
	})

	t.Run("MemoryPlaceholders", func(t *testing.T) {
		m, stdout, _ := NewTestMain("")
		if err := m.Run(context.Background(), []string{"parse", "--memory", "--show-placeholders", "(memory[4] 0x1000[32])"}); err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("unexpected output: %q", stdout.String())
		} else if !strings.HasSuffix(lines[0], "[32]") {
			t.Fatalf("unexpected expression: %s", lines[0])
		} else if want := lines[0] + " = memory[4] 0x1000[32]"; lines[1] != want {
			t.Fatalf("unexpected placeholder line: %s", lines[1])
		}
	})

	t.Run("Dump", func(t *testing.T) {
		m, stdout, _ := NewTestMain("")
		if err := m.Run(context.Background(), []string{"parse", "--dump", "0x2a[8]"}); err != nil {
			t.Fatal(err)
		} else if s := stdout.String(); !strings.Contains(s, "ConstantExpr") || !strings.Contains(s, "Value: (uint64) 42") {
			t.Fatalf("unexpected dump: %s", s)
		}
	})

	t.Run("ErrUnknownConfigKey", func(t *testing.T) {
		m, _, _ := NewTestMain("")
		if err := m.Run(context.Background(), []string{"parse", "--config", "testdata/unknown.toml", "0x1[1]"}); err == nil || !strings.Contains(err.Error(), "unknown keys: parser.placeholder") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("ErrConfigNotFound", func(t *testing.T) {
		m, _, _ := NewTestMain("")
		if err := m.Run(context.Background(), []string{"parse", "--config", "testdata/missing.toml", "0x1[1]"}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestDocCommand(t *testing.T) {
	m, stdout, _ := NewTestMain("")
	if err := m.Run(context.Background(), []string{"doc", "--placeholders"}); err != nil {
		t.Fatal(err)
	}
	s := stdout.String()
	if !strings.HasPrefix(s, "Atoms:\n") {
		t.Fatalf("unexpected output: %s", s)
	} else if !strings.Contains(s, "\nOperators:\n") {
		t.Fatalf("missing operators: %s", s)
	} else if !strings.Contains(s, "  If-then-else\n") {
		t.Fatalf("missing ite: %s", s)
	}
}

func TestSolveCommand(t *testing.T) {
	t.Run("Sat", func(t *testing.T) {
		m, stdout, _ := NewTestMain("")
		if err := m.Run(context.Background(), []string{"solve", "(ult x[8] 0x2[8])", "--assume", "(ne x[8] 0x0[8])", "--eval", "x[8]"}); err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff("sat\nx[8] = 0x1[8]\nx[8] => 0x1[8]\n", stdout.String()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Unsat", func(t *testing.T) {
		m, stdout, _ := NewTestMain("")
		if err := m.Run(context.Background(), []string{"solve", "(ult x[8] 0x2[8])", "(ugt x[8] 0x5[8])"}); err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff("unsat\n", stdout.String()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("ErrConstraintWidth", func(t *testing.T) {
		m, _, _ := NewTestMain("")
		if err := m.Run(context.Background(), []string{"solve", "x[8]"}); err == nil || !strings.Contains(err.Error(), "is 8 bits, expected 1") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("ErrNoConstraints", func(t *testing.T) {
		m, _, _ := NewTestMain("")
		if err := m.Run(context.Background(), []string{"solve"}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestREPL_Eval(t *testing.T) {
	m, _, _ := NewTestMain("")
	m.ConfigPath = "testdata/symexpr.toml"
	config, err := ReadConfigFile(m.ConfigPath, true)
	if err != nil {
		t.Fatal(err)
	}
	m.Config = config

	cmd := NewREPLCommand(m).Command()
	env, err := m.newEnv(cmd.Flags(), &EnvFlags{})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("Expr", func(t *testing.T) {
		r, stdout, stderr := newTestREPL(env)
		if quit := r.Eval("(sub 0x5[8] 0x7[8])"); quit {
			t.Fatal("unexpected quit")
		} else if diff := cmp.Diff("0xfe[8]\n", stdout.String()); diff != "" {
			t.Fatal(diff)
		} else if stderr.Len() != 0 {
			t.Fatalf("unexpected stderr: %s", stderr.String())
		}
	})

	t.Run("Resolve", func(t *testing.T) {
		r, stdout, _ := newTestREPL(env)
		r.Eval(":resolve (extract 8 16 eax)")
		if diff := cmp.Diff("0x56[8]\n", stdout.String()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("State", func(t *testing.T) {
		r, stdout, _ := newTestREPL(env)
		r.Eval(":state")
		if s := stdout.String(); !strings.Contains(s, "eax = 0x12345678[32]") {
			t.Fatalf("unexpected state: %s", s)
		}
	})

	t.Run("Placeholders", func(t *testing.T) {
		r, stdout, _ := newTestREPL(env)
		r.Eval("ebx")
		r.Eval(":placeholders")
		if s := stdout.String(); !strings.Contains(s, "= register ") {
			t.Fatalf("unexpected placeholders: %s", s)
		}
	})

	t.Run("SyntaxError", func(t *testing.T) {
		r, stdout, stderr := newTestREPL(env)
		r.Eval("(add 0x1[8] ))")
		if stdout.Len() != 0 {
			t.Fatalf("unexpected stdout: %s", stdout.String())
		} else if !strings.Contains(stderr.String(), "^") {
			t.Fatalf("expected diagnostic: %s", stderr.String())
		}
	})

	t.Run("UnknownCommand", func(t *testing.T) {
		r, _, stderr := newTestREPL(env)
		r.Eval(":bogus")
		if diff := cmp.Diff("unknown command: :bogus\n", stderr.String()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Quit", func(t *testing.T) {
		r, _, _ := newTestREPL(env)
		if !r.Eval(":quit") {
			t.Fatal("expected quit")
		}
	})
}

func TestReadInput(t *testing.T) {
	t.Run("Continuation", func(t *testing.T) {
		p := &testPrompter{lines: []string{"(add 0x1[8]", "<open <nested> comment", "> 0x2[8])", "0x3[8]"}}
		if src, ok := readInput(p); !ok {
			t.Fatal("unexpected end of input")
		} else if diff := cmp.Diff("(add 0x1[8]\n<open <nested> comment\n> 0x2[8])", src); diff != "" {
			t.Fatal(diff)
		} else if diff := cmp.Diff([]string{promptMain, promptCont, promptCont}, p.prompts); diff != "" {
			t.Fatal(diff)
		}

		if src, ok := readInput(p); !ok || src != "0x3[8]" {
			t.Fatalf("unexpected input: %q %v", src, ok)
		}
		if _, ok := readInput(p); ok {
			t.Fatal("expected end of input")
		}
	})

	t.Run("ExtraRightParen", func(t *testing.T) {
		p := &testPrompter{lines: []string{"0x1[8])"}}
		if src, ok := readInput(p); !ok || src != "0x1[8])" {
			t.Fatalf("unexpected input: %q %v", src, ok)
		}
	})

	t.Run("Command", func(t *testing.T) {
		p := &testPrompter{lines: []string{":resolve (add eax"}}
		if src, ok := readInput(p); !ok || src != ":resolve (add eax" {
			t.Fatalf("unexpected input: %q %v", src, ok)
		}
	})
}

func TestReadConfigFile(t *testing.T) {
	t.Run("RelativePaths", func(t *testing.T) {
		config, err := ReadConfigFile("testdata/symexpr.toml", true)
		if err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff(Config{
			Parser: ParserConfig{Memory: true, Registers: "testdata/registers.yaml"},
			State:  StateConfig{File: "testdata/state.yaml"},
		}, config); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if config, err := ReadConfigFile("testdata/missing.toml", false); err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff(Config{}, config); diff != "" {
			t.Fatal(diff)
		}
	})
}

// NewTestMain returns a Main reading stdin and writing to buffers.
func NewTestMain(stdin string) (*Main, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	m := NewMain()
	m.Stdin = strings.NewReader(stdin)
	m.Stdout, m.Stderr = &stdout, &stderr
	return m, &stdout, &stderr
}

func newTestREPL(env *Env) (*REPL, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &REPL{Env: env, Stdout: &stdout, Stderr: &stderr}, &stdout, &stderr
}

// testPrompter returns lines in order, then io.EOF.
type testPrompter struct {
	lines   []string
	prompts []string
}

func (p *testPrompter) Prompt(prompt string) (string, error) {
	if len(p.lines) == 0 {
		return "", io.EOF
	}
	p.prompts = append(p.prompts, prompt)
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}
