package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/l-donovan/abnf/ast"
)

// ruleGrammar is the participle grammar for a single rule:
//
//	rule        = rulename defined-as alternation
//	alternation = concatenation *("/" concatenation)
//	concatenation = 1*repetition
//	repetition  = [repeat] element
//	repeat      = 1*DIGIT / (*DIGIT "*" *DIGIT)
//	element     = rulename / group / option / char-val / num-val / prose-val
//
//nolint:govet // participle grammar tags are not standard struct tags
type ruleGrammar struct {
	Pos     lexer.Position
	Name    string              `@Rulename`
	Defined string              `@DefinedAs`
	Node    *alternationGrammar `@@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type alternationGrammar struct {
	Concatenations []*concatenationGrammar `@@ ( "/" @@ )*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type concatenationGrammar struct {
	Repetitions []*repetitionGrammar `@@+`
}

//nolint:govet // participle grammar tags are not standard struct tags
type repetitionGrammar struct {
	Repeat  *repeatGrammar  `@@?`
	Element *elementGrammar `@@`
}

// repeatGrammar may match nothing at all; see repeat.
//
//nolint:govet // participle grammar tags are not standard struct tags
type repeatGrammar struct {
	Min  *int `@Int?`
	Star bool `( @"*"`
	Max  *int `  @Int? )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type elementGrammar struct {
	Rulename *string             `  @Rulename`
	Group    *alternationGrammar `| "(" @@ ")"`
	Option   *alternationGrammar `| "[" @@ "]"`
	CharVal  *string             `| @CharVal`
	NumVal   *string             `| @NumVal`
	ProseVal *string             `| @ProseVal`
}

func (g *ruleGrammar) rule() (ast.Rule, error) {
	node, err := g.Node.node()

	if err != nil {
		return ast.Rule{}, err
	}

	rule := ast.NewRule(g.Name, node)

	if g.Defined == "=/" {
		rule = rule.WithDefinition(ast.Incremental)
	}

	return rule, nil
}

// A single alternative or a single element is not wrapped in an Alternation
// or Concatenation.
func (g *alternationGrammar) node() (ast.Node, error) {
	if len(g.Concatenations) == 1 {
		return g.Concatenations[0].node()
	}

	alternation := make(ast.Alternation, len(g.Concatenations))

	for i, concatenation := range g.Concatenations {
		node, err := concatenation.node()

		if err != nil {
			return nil, err
		}

		alternation[i] = node
	}

	return alternation, nil
}

func (g *concatenationGrammar) node() (ast.Node, error) {
	if len(g.Repetitions) == 1 {
		return g.Repetitions[0].node()
	}

	concatenation := make(ast.Concatenation, len(g.Repetitions))

	for i, repetition := range g.Repetitions {
		node, err := repetition.node()

		if err != nil {
			return nil, err
		}

		concatenation[i] = node
	}

	return concatenation, nil
}

// An element without a quantifier is returned bare.
func (g *repetitionGrammar) node() (ast.Node, error) {
	element, err := g.Element.node()

	if err != nil {
		return nil, err
	}

	if repeat := g.Repeat.repeat(); repeat != nil {
		return ast.Repetition{Repeat: repeat, Node: element}, nil
	}

	return element, nil
}

// repeat returns nil when no quantifier was written. A lone count n means
// exactly n.
func (g *repeatGrammar) repeat() *ast.Repeat {
	switch {
	case g == nil:
		return nil
	case g.Star:
		return &ast.Repeat{Min: g.Min, Max: g.Max}
	case g.Min != nil:
		return ast.Exactly(*g.Min)
	}

	return nil
}

func (g *elementGrammar) node() (ast.Node, error) {
	switch {
	case g.Rulename != nil:
		return ast.Rulename(*g.Rulename), nil
	case g.Group != nil:
		inner, err := g.Group.node()

		if err != nil {
			return nil, err
		}

		return ast.Group{Node: inner}, nil
	case g.Option != nil:
		inner, err := g.Option.node()

		if err != nil {
			return nil, err
		}

		return ast.Optional{Node: inner}, nil
	case g.CharVal != nil:
		return ast.CharVal(strings.Trim(*g.CharVal, `"`)), nil
	case g.NumVal != nil:
		r, err := parseNumVal(*g.NumVal)

		if err != nil {
			return nil, err
		}

		return ast.NumVal{Range: r}, nil
	case g.ProseVal != nil:
		return ast.ProseVal(strings.TrimSuffix(strings.TrimPrefix(*g.ProseVal, "<"), ">")), nil
	}

	return nil, fmt.Errorf("empty element")
}

// parseNumVal reads %b, %d and %x terminals such as %x30-39 or %d13.10.
func parseNumVal(text string) (ast.Range, error) {
	var base int

	switch strings.ToLower(text[1:2]) {
	case "b":
		base = 2
	case "d":
		base = 10
	default:
		base = 16
	}

	body := text[2:]

	if lo, hi, ok := strings.Cut(body, "-"); ok {
		from, err := parseCodePoint(lo, base)

		if err != nil {
			return nil, err
		}

		to, err := parseCodePoint(hi, base)

		if err != nil {
			return nil, err
		}

		return ast.Span{Lo: from, Hi: to}, nil
	}

	parts := strings.Split(body, ".")
	oneOf := make(ast.OneOf, len(parts))

	for i, part := range parts {
		cp, err := parseCodePoint(part, base)

		if err != nil {
			return nil, err
		}

		oneOf[i] = cp
	}

	return oneOf, nil
}

func parseCodePoint(digits string, base int) (uint32, error) {
	cp, err := strconv.ParseUint(digits, base, 32)

	if err != nil {
		return 0, fmt.Errorf("invalid numeric value %q in base %d", digits, base)
	}

	return uint32(cp), nil
}
