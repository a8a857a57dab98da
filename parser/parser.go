// Package parser reads ABNF grammar text (RFC 5234) into ast rules.
//
// The source is cut into rules at every line that starts in column one with
// something other than whitespace or a comment; continuation lines, blank
// lines and comments stay with the rule above them. Each rule is then parsed
// on its own with a participle grammar. Parsing stops at the first rule that
// does not parse and everything from that rule on is handed back as the
// remainder.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/l-donovan/abnf/ast"
)

// ErrNoRules matches every error Parse returns: Parse only fails when not a
// single rule could be parsed.
var ErrNoRules = errors.New("could not parse any data")

var errBlank = errors.New("input holds only whitespace and comments")

var tokenDefinitions = []lexer.SimpleRule{
	{Name: "Comment", Pattern: `;[^\r\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "DefinedAs", Pattern: `=/?`},
	{Name: "CharVal", Pattern: `"[^"\r\n]*"`},
	{Name: "ProseVal", Pattern: `<[^>\r\n]*>`},
	{Name: "NumVal", Pattern: `%[bdxBDX][0-9A-Fa-f]+(?:(?:\.[0-9A-Fa-f]+)+|-[0-9A-Fa-f]+)?`},
	{Name: "Rulename", Pattern: `[A-Za-z][A-Za-z0-9-]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[*/()\[\]]`},
	{Name: "Invalid", Pattern: `.`},
}

var abnfLexer = lexer.MustSimple(tokenDefinitions)

var ruleParser = participle.MustBuild[ruleGrammar](
	participle.Lexer(abnfLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// chunk is the source text of a single rule.
type chunk struct {
	text   string
	offset int
	line   int
}

func startsRule(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', ';':
		return false
	}

	return true
}

func split(src string) []chunk {
	var chunks []chunk

	start, startLine, line := 0, 1, 1

	for i := 0; i < len(src); i++ {
		if src[i] != '\n' {
			continue
		}

		line++
		next := i + 1

		if next < len(src) && startsRule(src[next]) {
			chunks = append(chunks, chunk{src[start:next], start, startLine})
			start, startLine = next, line
		}
	}

	return append(chunks, chunk{src[start:], start, startLine})
}

// trivia reports whether text holds nothing but whitespace and comments.
func trivia(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimLeft(line, " \t\r")

		if line != "" && line[0] != ';' {
			return false
		}
	}

	return true
}

// Parse parses as many rules from src as it can. The remainder is the part
// of src starting at the first rule that failed to parse; it is empty when
// every rule parsed. An error is returned only if no rule parsed at all.
func Parse(src []byte) ([]ast.Rule, []byte, error) {
	return ParseNamed("", src)
}

// ParseNamed is Parse with a file name attached to error positions.
func ParseNamed(filename string, src []byte) ([]ast.Rule, []byte, error) {
	var rules []ast.Rule

	for _, c := range split(string(src)) {
		if trivia(c.text) {
			continue
		}

		rule, err := parseChunk(filename, c)

		if err != nil {
			if len(rules) == 0 {
				return nil, nil, err
			}

			return rules, src[c.offset:], nil
		}

		rules = append(rules, rule)
	}

	if len(rules) == 0 {
		return nil, nil, &SyntaxError{Pos: lexer.Position{Filename: filename, Line: 1, Column: 1}, Err: errBlank}
	}

	return rules, nil, nil
}

func parseChunk(filename string, c chunk) (ast.Rule, error) {
	parsed, err := ruleParser.ParseString(filename, c.text)

	if err != nil {
		return ast.Rule{}, newSyntaxError(filename, c, err)
	}

	rule, err := parsed.rule()

	if err != nil {
		return ast.Rule{}, &SyntaxError{Pos: c.position(filename, parsed.Pos), Rule: parsed.Name, Err: err}
	}

	return rule, nil
}

// position converts a position inside c into a position inside the whole
// source.
func (c chunk) position(filename string, pos lexer.Position) lexer.Position {
	return lexer.Position{
		Filename: filename,
		Offset:   c.offset + pos.Offset,
		Line:     c.line + pos.Line - 1,
		Column:   pos.Column,
	}
}

// grammarTerms turns grammar struct names in participle messages into the
// ABNF rule names they stand for.
var grammarTerms = strings.NewReplacer(
	"RuleGrammar", "rule",
	"ruleGrammar", "rule",
	"AlternationGrammar", "alternation",
	"alternationGrammar", "alternation",
	"ConcatenationGrammar", "concatenation",
	"concatenationGrammar", "concatenation",
	"RepetitionGrammar", "repetition",
	"repetitionGrammar", "repetition",
	"RepeatGrammar", "repeat",
	"repeatGrammar", "repeat",
	"ElementGrammar", "element",
	"elementGrammar", "element",
)

func newSyntaxError(filename string, c chunk, err error) *SyntaxError {
	var perr participle.Error

	if errors.As(err, &perr) {
		return &SyntaxError{Pos: c.position(filename, perr.Position()), Err: errors.New(grammarTerms.Replace(perr.Message()))}
	}

	return &SyntaxError{Pos: c.position(filename, lexer.Position{Line: 1, Column: 1}), Err: errors.New(grammarTerms.Replace(err.Error()))}
}

// SyntaxError describes where and why a rule could not be parsed.
type SyntaxError struct {
	Pos  lexer.Position
	Rule string
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("%s: rule %s: %v", e.Pos, e.Rule, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Pos, e.Err)
}

func (e *SyntaxError) Unwrap() []error { return []error{ErrNoRules, e.Err} }
