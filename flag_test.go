package symexpr_test

import (
	"flag"
	"io"
	"strings"
	"testing"

	"github.com/benbjohnson/symexpr"
	"github.com/spf13/pflag"
)

func TestExprValue(t *testing.T) {
	t.Run("PFlag", func(t *testing.T) {
		v := symexpr.NewExprValue(nil)
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.Var(v, "expr", "")
		if err := fs.Parse([]string{"--expr", "(add 1[8] 2[8])"}); err != nil {
			t.Fatal(err)
		} else if s := v.String(); s != "0x3[8]" {
			t.Fatalf("unexpected value: %s", s)
		} else if typ := fs.Lookup("expr").Value.Type(); typ != "expr" {
			t.Fatalf("unexpected type: %s", typ)
		}
	})

	t.Run("StdFlag", func(t *testing.T) {
		var v symexpr.ExprValue
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.Var(&v, "expr", "")
		if err := fs.Parse([]string{"-expr", "v1[8]"}); err != nil {
			t.Fatal(err)
		} else if s := v.String(); s != "v1[8]" {
			t.Fatalf("unexpected value: %s", s)
		}
	})

	t.Run("Parser", func(t *testing.T) {
		p := symexpr.NewParser()
		tp := symexpr.NewTermPlaceholders()
		p.AppendAtomExpansion(tp)

		v := symexpr.NewExprValue(p)
		if err := v.Set(`\(odd[8]`); err != nil {
			t.Fatal(err)
		} else if _, ok := tp.Map().Forward("(odd"); !ok {
			t.Fatal("expected placeholder")
		}
	})

	t.Run("Empty", func(t *testing.T) {
		var v *symexpr.ExprValue
		if s := v.String(); s != "" {
			t.Fatalf("unexpected value: %q", s)
		} else if s := symexpr.NewExprValue(nil).String(); s != "" {
			t.Fatalf("unexpected value: %q", s)
		}
	})

	t.Run("ErrTrailing", func(t *testing.T) {
		v := symexpr.NewExprValue(nil)
		if err := v.Set("v1 v2"); err == nil || err.Error() != `flag:1:3: unexpected symbol "v2" after expression` {
			t.Fatalf("unexpected error: %v", err)
		} else if v.Expr != nil {
			t.Fatalf("unexpected value: %s", v.Expr)
		}
	})

	t.Run("ErrSyntax", func(t *testing.T) {
		v := symexpr.NewExprValue(nil)
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.SetOutput(io.Discard)
		fs.Var(v, "expr", "")
		if err := fs.Parse([]string{"--expr", "(add"}); err == nil || !strings.Contains(err.Error(), `flag:1:0: missing ')' for operator "add"`) {
			t.Fatalf("unexpected error: %v", err)
		} else if v.Expr != nil {
			t.Fatalf("unexpected value: %s", v.Expr)
		}
	})
}

func TestExprSliceValue(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		v := symexpr.NewExprSliceValue(nil)
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.Var(v, "assume", "")
		if err := fs.Parse([]string{"--assume", "true", "--assume", "(ult v1[8] 4[8])"}); err != nil {
			t.Fatal(err)
		} else if len(v.Exprs) != 2 {
			t.Fatalf("unexpected count: %d", len(v.Exprs))
		} else if s := v.String(); s != "[0x1[1],(ult v1[8] 0x4[8])]" {
			t.Fatalf("unexpected value: %s", s)
		} else if typ := v.Type(); typ != "exprs" {
			t.Fatalf("unexpected type: %s", typ)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if s := symexpr.NewExprSliceValue(nil).String(); s != "[]" {
			t.Fatalf("unexpected value: %s", s)
		}
	})

	t.Run("MultipleInOneArgument", func(t *testing.T) {
		v := symexpr.NewExprSliceValue(nil)
		if err := v.Set("v1[8] <second> (add 1[8] 2[8])"); err != nil {
			t.Fatal(err)
		} else if s := v.String(); s != "[v1[8],0x3[8]]" {
			t.Fatalf("unexpected value: %s", s)
		}
	})

	t.Run("ErrEmptyArgument", func(t *testing.T) {
		v := symexpr.NewExprSliceValue(nil)
		if err := v.Set("  "); !symexpr.IsIncomplete(err) {
			t.Fatalf("unexpected error: %v", err)
		} else if len(v.Exprs) != 0 {
			t.Fatalf("unexpected count: %d", len(v.Exprs))
		}
	})

	t.Run("ErrSyntax", func(t *testing.T) {
		v := symexpr.NewExprSliceValue(nil)
		if err := v.Set("v1[8] (add"); err == nil || err.Error() != `flag:1:6: missing ')' for operator "add"` {
			t.Fatalf("unexpected error: %v", err)
		} else if len(v.Exprs) != 0 {
			t.Fatalf("unexpected count: %d", len(v.Exprs))
		}
	})
}
