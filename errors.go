package symexpr

import (
	"errors"
	"fmt"
	"strings"
)

// SyntaxError represents an error in the textual input. Line is 1-origin and
// Column is 0-origin.
type SyntaxError struct {
	Message   string
	InputName string
	Line      int
	Column    int

	// Incomplete is set when the error was caused by the input ending
	// inside a comment or an unclosed parenthesis.
	Incomplete bool

	// Err is the underlying error, if the error was raised by an expansion.
	Err error
}

// Error returns the error as a string.
func (e *SyntaxError) Error() string {
	if e.InputName == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.InputName, e.Line, e.Column, e.Message)
}

// Unwrap returns the underlying error.
func (e *SyntaxError) Unwrap() error { return e.Err }

// Diagnostic returns the error followed by the offending line of src and a
// caret under the error column. src must be the complete input text.
func (e *SyntaxError) Diagnostic(src string) string {
	lines := strings.Split(src, "\n")
	if e.Line < 1 || e.Line > len(lines) {
		return e.Error()
	}
	line := strings.TrimRight(lines[e.Line-1], "\r")

	col := e.Column
	if col > len(line) {
		col = len(line)
	}
	pad := strings.Map(func(r rune) rune {
		if r == '\t' {
			return '\t'
		}
		return ' '
	}, line[:col])
	return fmt.Sprintf("%s\n%s\n%s^", e.Error(), line, pad)
}

// IsIncomplete returns true if err is a syntax error caused by premature end
// of input.
func IsIncomplete(err error) bool {
	var e *SyntaxError
	return errors.As(err, &e) && e.Incomplete
}

// SubstitutionError represents a failure of a delayed expansion.
type SubstitutionError struct {
	Message string
	Err     error
}

// Error returns the error as a string.
func (e *SubstitutionError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Err)
}

// Unwrap returns the underlying error.
func (e *SubstitutionError) Unwrap() error { return e.Err }
