package symexpr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/benbjohnson/symexpr"
)

func TestSyntaxError_Error(t *testing.T) {
	if s := (&symexpr.SyntaxError{Message: "bad", InputName: "x", Line: 2, Column: 3}).Error(); s != "x:2:3: bad" {
		t.Fatalf("unexpected string: %s", s)
	} else if s := (&symexpr.SyntaxError{Message: "bad", Line: 1}).Error(); s != "1:0: bad" {
		t.Fatalf("unexpected string: %s", s)
	}
}

func TestSyntaxError_Diagnostic(t *testing.T) {
	const src = "(add v1[8]\n\tv2 ]"

	t.Run("OK", func(t *testing.T) {
		_, err := symexpr.NewParser().Parse(src, "test")
		var e *symexpr.SyntaxError
		if !errors.As(err, &e) {
			t.Fatalf("unexpected error: %v", err)
		} else if s, want := e.Diagnostic(src), "test:2:4: unexpected ']'\n\tv2 ]\n\t   ^"; s != want {
			t.Fatalf("unexpected diagnostic:\n%s\nexpected:\n%s", s, want)
		}
	})

	t.Run("ColumnPastEnd", func(t *testing.T) {
		e := &symexpr.SyntaxError{Message: "bad", Line: 1, Column: 10}
		if s := e.Diagnostic("abc"); s != "1:10: bad\nabc\n   ^" {
			t.Fatalf("unexpected diagnostic: %q", s)
		}
	})

	t.Run("LineOutOfRange", func(t *testing.T) {
		e := &symexpr.SyntaxError{Message: "bad", Line: 5}
		if s := e.Diagnostic("abc"); s != "5:0: bad" {
			t.Fatalf("unexpected diagnostic: %q", s)
		}
	})
}

func TestIsIncomplete(t *testing.T) {
	_, incomplete := symexpr.NewParser().Parse("(add 1[8]", "")
	_, complete := symexpr.NewParser().Parse("(add 1[8]))", "")

	if !symexpr.IsIncomplete(incomplete) {
		t.Fatal("expected incomplete")
	} else if !symexpr.IsIncomplete(fmt.Errorf("wrapped: %w", incomplete)) {
		t.Fatal("expected incomplete through wrapping")
	} else if symexpr.IsIncomplete(complete) {
		t.Fatal("expected complete")
	} else if symexpr.IsIncomplete(errors.New("other")) {
		t.Fatal("expected complete")
	} else if symexpr.IsIncomplete(nil) {
		t.Fatal("expected complete")
	}
}

func TestSubstitutionError(t *testing.T) {
	errBoom := errors.New("boom")
	if s := (&symexpr.SubstitutionError{Message: "bad"}).Error(); s != "bad" {
		t.Fatalf("unexpected string: %s", s)
	} else if err := (&symexpr.SubstitutionError{Message: "bad", Err: errBoom}); err.Error() != "bad: boom" {
		t.Fatalf("unexpected string: %s", err)
	} else if !errors.Is(err, errBoom) {
		t.Fatal("expected wrapped error")
	}
}
