// Package abnf parses ABNF grammars (RFC 5234) and reports on them.
//
// ParseGrammar accepts a complete grammar: either every rule parses or a
// *ParseError says where parsing stopped. The tree types live in package ast,
// dependency extraction in deps and DOT export in graph.
package abnf

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/l-donovan/abnf/ast"
	"github.com/l-donovan/abnf/graph"
	"github.com/l-donovan/abnf/parser"
)

var (
	// ErrNoRules means not a single rule could be parsed. It is the same
	// value as parser.ErrNoRules.
	ErrNoRules = parser.ErrNoRules
	// ErrTrailingData means some rules parsed but unparsed input followed.
	ErrTrailingData = errors.New("trailing data at the end")
)

// ParseError is returned by ParseGrammar. It unwraps to ErrNoRules or
// ErrTrailingData, and to the underlying parser error when there is one.
type ParseError struct {
	Contents string
	Loc      lexer.Position
	// LastRule is the name of the last rule that parsed, if any.
	LastRule string
	Kind     error
	Err      error
}

func (e *ParseError) Error() string {
	msg := e.Kind.Error()

	if e.LastRule != "" {
		msg = fmt.Sprintf("%s after rule %s", msg, e.LastRule)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return fmt.Sprintf("%s at %d:%d", msg, e.Loc.Line, e.Loc.Column)
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}

	return []error{e.Kind}
}

func digitCount(input int) int {
	if input == 0 {
		return 1
	}

	count := 0

	for input != 0 {
		input /= 10
		count++
	}

	return count
}

// PrintContext writes the source lines around the error location to w, with
// a marker under the column where the error was found.
func (e *ParseError) PrintContext(w io.Writer, contextLineCount int) {
	lines := strings.Split(e.Contents, "\n")
	line := max(e.Loc.Line-1, 0)
	col := max(e.Loc.Column-1, 0)

	if line >= len(lines) {
		return
	}

	startLineNum := max(0, line-contextLineCount)
	endLineNum := min(line+contextLineCount+1, len(lines))
	maxLineNumWidth := digitCount(endLineNum + 1)

	fmt.Fprintln(w, "Context:")

	for i := startLineNum; i < endLineNum; i++ {
		text := strings.TrimRight(lines[i], "\r")

		fmt.Fprintf(w, "%*d │ %s\n", maxLineNumWidth, i+1, text)

		if i == line {
			col = min(col, len(text))

			// Tabs are echoed so the marker lines up under wide characters.
			tabCount := strings.Count(text[:col], "\t")
			left := strings.Repeat("\t", tabCount) + strings.Repeat(" ", col-tabCount)

			fmt.Fprintf(w, "%*s │ %s╰─── [Starting here]\n", maxLineNumWidth, "", left)
		}
	}
}

type Grammar struct {
	Rules []ast.Rule
}

// ParseGrammar parses a whole grammar. Anything other than whitespace left
// after the last rule is an error.
func ParseGrammar(contents []byte) (*Grammar, error) {
	return ParseGrammarNamed("", contents)
}

// ParseGrammarNamed is ParseGrammar with a file name used in positions.
func ParseGrammarNamed(filename string, contents []byte) (*Grammar, error) {
	rules, remaining, err := parser.ParseNamed(filename, contents)

	if err != nil {
		parseErr := &ParseError{Contents: string(contents), Kind: ErrNoRules, Err: err}

		var syntaxErr *parser.SyntaxError

		if errors.As(err, &syntaxErr) {
			parseErr.Loc = syntaxErr.Pos
		}

		return nil, parseErr
	}

	if strings.TrimSpace(string(remaining)) != "" {
		offset := len(contents) - len(remaining)

		return nil, &ParseError{
			Contents: string(contents),
			Loc:      positionOf(filename, contents, offset),
			LastRule: rules[len(rules)-1].Name,
			Kind:     ErrTrailingData,
		}
	}

	return &Grammar{Rules: rules}, nil
}

func positionOf(filename string, contents []byte, offset int) lexer.Position {
	before := string(contents[:offset])
	line := strings.Count(before, "\n") + 1
	col := offset - strings.LastIndex(before, "\n")

	return lexer.Position{Filename: filename, Offset: offset, Line: line, Column: col}
}

// String renders every rule on its own line.
func (g *Grammar) String() string {
	var sb strings.Builder
	_ = ast.RenderRules(&sb, g.Rules, nil)
	return sb.String()
}

// Graph writes the rule dependency graph as DOT.
func (g *Grammar) Graph(w io.Writer) error {
	return graph.Write(w, g.Rules)
}
