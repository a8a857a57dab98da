// Package ast models the abstract syntax of ABNF grammars (RFC 5234).
//
// A grammar is a list of Rule values. Each Rule owns a tree of Node values;
// the tree is acyclic and every node owns its children exclusively. Trees are
// built once, by the parser or by hand, and are never mutated afterwards.
//
// Every node renders back to ABNF text through its String method. Rendering
// never inserts parentheses: precedence is expressed in the tree with Group.
package ast

// Definition distinguishes a basic rule definition from an incremental
// alternative. See https://tools.ietf.org/html/rfc5234#section-3.3
type Definition int

const (
	// Basic is a plain "name = elements" rule.
	Basic Definition = iota
	// Incremental is a "name =/ elements" rule, adding alternatives to an
	// existing rule of the same name.
	Incremental
)

func (d Definition) String() string {
	if d == Incremental {
		return "=/"
	}

	return "="
}

type Rule struct {
	Name       string
	Node       Node
	Definition Definition
}

// NewRule returns a Basic rule named name.
func NewRule(name string, node Node) Rule {
	return Rule{Name: name, Node: node, Definition: Basic}
}

// WithDefinition returns a copy of r with its definition replaced. r itself
// is left untouched.
func (r Rule) WithDefinition(definition Definition) Rule {
	r.Definition = definition
	return r
}

// Node is one syntactic construct within a rule's definition. The set of
// implementations is closed; see the types below.
type Node interface {
	String() string
	node()
}

// Alternation is an ordered choice between its elements.
type Alternation []Node

// Concatenation is an ordered sequence of its elements.
type Concatenation []Node

// Repetition quantifies Node. A nil Repeat means exactly one occurrence and
// renders no quantifier.
type Repetition struct {
	Repeat *Repeat
	Node   Node
}

// Rulename references another rule by name. Case is preserved.
type Rulename string

// Group is a parenthesized sub-expression.
type Group struct {
	Node Node
}

// Optional is a bracketed, zero-or-one sub-expression.
type Optional struct {
	Node Node
}

// CharVal is a quoted literal.
type CharVal string

// NumVal is a numeric terminal.
type NumVal struct {
	Range Range
}

// ProseVal is an informal description. It is never a rule reference even
// though it renders in angle brackets.
type ProseVal string

func (Alternation) node()   {}
func (Concatenation) node() {}
func (Repetition) node()    {}
func (Rulename) node()      {}
func (Group) node()         {}
func (Optional) node()      {}
func (CharVal) node()       {}
func (NumVal) node()        {}
func (ProseVal) node()      {}

// Repeat holds the bounds of a Repetition. A nil bound is unbounded on that
// side.
type Repeat struct {
	Min *int
	Max *int
}

// Bound is a helper for filling in Repeat bounds.
func Bound(n int) *int {
	return &n
}

// Exactly returns a Repeat with both bounds set to n.
func Exactly(n int) *Repeat {
	return &Repeat{Min: Bound(n), Max: Bound(n)}
}

// Repeated wraps node in a Repetition with the given bounds.
func Repeated(lo, hi *int, node Node) Repetition {
	return Repetition{Repeat: &Repeat{Min: lo, Max: hi}, Node: node}
}

// Range is the value of a NumVal: either OneOf or Span.
type Range interface {
	String() string
	numRange()
}

// OneOf is an explicit list of code points, as in %x0D.0A.
type OneOf []uint32

// Span is an inclusive interval of code points, as in %x30-39.
type Span struct {
	Lo, Hi uint32
}

func (OneOf) numRange() {}
func (Span) numRange()  {}
