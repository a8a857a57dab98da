// Package graph exports the rule dependency graph of an ABNF grammar as a
// Graphviz DOT digraph.
package graph

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/l-donovan/abnf/ast"
	"github.com/l-donovan/abnf/deps"
)

const header = "digraph {\n" +
	"\tcompound=true;\n" +
	"\toverlap=scalexy;\n" +
	"\tsplines=true;\n" +
	"\tlayout=neato;\n" +
	"\n"

const footer = "}\n"

// Edge links a rule to every rule it depends on. Identifiers are sanitized.
type Edge struct {
	From string
	To   []string
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -> { %s }", e.From, strings.Join(e.To, ", "))
}

// Sanitize makes a rule name usable as a DOT identifier by replacing every
// '-' with '_'.
func Sanitize(id string) string {
	return strings.ReplaceAll(id, "-", "_")
}

// Edges returns one Edge per rule with at least one dependency, in the order
// of rules. Rules without dependencies are omitted.
func Edges(rules []ast.Rule) []Edge {
	var edges []Edge

	for _, rule := range rules {
		names := deps.OfRule(rule)

		if len(names) == 0 {
			continue
		}

		to := make([]string, len(names))

		for i, name := range names {
			to[i] = Sanitize(name)
		}

		edges = append(edges, Edge{From: Sanitize(rule.Name), To: to})
	}

	return edges
}

// Write emits the DOT document for rules to w.
func Write(w io.Writer, rules []ast.Rule) error {
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}

	for _, edge := range Edges(rules) {
		if _, err := fmt.Fprintf(w, "\t%s\n", edge); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, footer)
	return err
}

// Export returns the DOT document for rules.
func Export(rules []ast.Rule) string {
	var buf bytes.Buffer
	_ = Write(&buf, rules)
	return buf.String()
}
