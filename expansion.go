package symexpr

// Expansion represents an extension of the parser. Expansions are asked to
// handle input in two phases: immediately while the tree is being built and,
// optionally, afterward when Parser.DelayedExpansion is called.
type Expansion interface {
	// Title returns a short name used in documentation.
	Title() string

	// DocString returns a description of the syntax the expansion handles.
	DocString() string

	// DelayedExpansion returns a replacement for expr or expr itself.
	DelayedExpansion(expr Expr, p *Parser) (Expr, error)
}

// AtomExpansion handles constants and symbols outside parentheses.
//
// ImmediateExpansion returns nil with a nil error when the token is not
// recognized, letting the next expansion in the table try. A recognized but
// malformed token is reported as an error.
type AtomExpansion interface {
	Expansion
	ImmediateExpansion(tok Token) (Expr, error)
}

// OperatorExpansion handles a parenthesized operator application. The token
// is the operator name; operands are already parsed and expanded.
//
// ImmediateExpansion returns nil with a nil error when the operator is not
// recognized.
type OperatorExpansion interface {
	Expansion
	ImmediateExpansion(tok Token, operands []Expr) (Expr, error)
}

// BaseExpansion implements the documentation methods of Expansion and a
// DelayedExpansion that changes nothing. It is meant to be embedded.
type BaseExpansion struct {
	title string
	doc   string
}

// NewBaseExpansion returns a BaseExpansion with the given title and description.
func NewBaseExpansion(title, doc string) BaseExpansion {
	return BaseExpansion{title: title, doc: doc}
}

// Title returns the title of the expansion.
func (e *BaseExpansion) Title() string { return e.title }

// DocString returns the description of the expansion.
func (e *BaseExpansion) DocString() string { return e.doc }

// SetTitle sets the title of the expansion.
func (e *BaseExpansion) SetTitle(title string) { e.title = title }

// SetDocString sets the description of the expansion.
func (e *BaseExpansion) SetDocString(doc string) { e.doc = doc }

// DelayedExpansion returns expr unchanged.
func (e *BaseExpansion) DelayedExpansion(expr Expr, p *Parser) (Expr, error) {
	return expr, nil
}

// AtomFunc is the signature of an atom expansion's immediate phase.
type AtomFunc func(tok Token) (Expr, error)

// OperatorFunc is the signature of an operator expansion's immediate phase.
type OperatorFunc func(tok Token, operands []Expr) (Expr, error)

type atomFuncExpansion struct {
	BaseExpansion
	fn AtomFunc
}

// NewAtomExpansion returns an atom expansion backed by fn.
func NewAtomExpansion(title, doc string, fn AtomFunc) AtomExpansion {
	return &atomFuncExpansion{BaseExpansion: NewBaseExpansion(title, doc), fn: fn}
}

func (e *atomFuncExpansion) ImmediateExpansion(tok Token) (Expr, error) {
	return e.fn(tok)
}

type operatorFuncExpansion struct {
	BaseExpansion
	fn OperatorFunc
}

// NewOperatorExpansion returns an operator expansion backed by fn.
func NewOperatorExpansion(title, doc string, fn OperatorFunc) OperatorExpansion {
	return &operatorFuncExpansion{BaseExpansion: NewBaseExpansion(title, doc), fn: fn}
}

func (e *operatorFuncExpansion) ImmediateExpansion(tok Token, operands []Expr) (Expr, error) {
	return e.fn(tok, operands)
}
