package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RenderConfig controls how a list of rules is written out.
type RenderConfig struct {
	// CRLF terminates each rule with "\r\n" as RFC 5234 requires. The
	// default is "\n".
	CRLF bool
}

func (c *RenderConfig) lineEnding() string {
	if c != nil && c.CRLF {
		return "\r\n"
	}

	return "\n"
}

// Render returns the canonical ABNF text of node. An empty Alternation,
// Concatenation or OneOf renders as the empty string.
func Render(node Node) string {
	var sb strings.Builder
	writeNode(&sb, node)
	return sb.String()
}

// RenderRules writes each rule on its own line.
func RenderRules(w io.Writer, rules []Rule, config *RenderConfig) error {
	eol := config.lineEnding()

	for _, rule := range rules {
		if _, err := io.WriteString(w, rule.String()+eol); err != nil {
			return fmt.Errorf("failed to write rule %s: %w", rule.Name, err)
		}
	}

	return nil
}

func (r Rule) String() string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	sb.WriteByte(' ')
	sb.WriteString(r.Definition.String())
	sb.WriteByte(' ')
	writeNode(&sb, r.Node)
	return sb.String()
}

func (n Alternation) String() string   { return Render(n) }
func (n Concatenation) String() string { return Render(n) }
func (n Repetition) String() string    { return Render(n) }
func (n Rulename) String() string      { return string(n) }
func (n Group) String() string         { return Render(n) }
func (n Optional) String() string      { return Render(n) }
func (n CharVal) String() string       { return `"` + string(n) + `"` }
func (n NumVal) String() string        { return Render(n) }
func (n ProseVal) String() string      { return "<" + string(n) + ">" }

func (r OneOf) String() string {
	parts := make([]string, len(r))

	for i, cp := range r {
		parts[i] = hex(cp)
	}

	return strings.Join(parts, ".")
}

func (r Span) String() string {
	return hex(r.Lo) + "-" + hex(r.Hi)
}

// hex formats a code point as uppercase hexadecimal with at least two digits.
func hex(cp uint32) string {
	s := strings.ToUpper(strconv.FormatUint(uint64(cp), 16))

	if len(s) < 2 {
		return "0" + s
	}

	return s
}

// renderItem is either a node still to be rendered or literal text.
type renderItem struct {
	node    Node
	text    string
	literal bool
}

func pushJoined(stack []renderItem, nodes []Node, sep string) []renderItem {
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, renderItem{node: nodes[i]})

		if i > 0 {
			stack = append(stack, renderItem{text: sep, literal: true})
		}
	}

	return stack
}

// writeNode renders node with an explicit stack, so tree depth is not
// limited by the call stack.
func writeNode(sb *strings.Builder, node Node) {
	stack := []renderItem{{node: node}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.literal {
			sb.WriteString(item.text)
			continue
		}

		switch n := item.node.(type) {
		case Alternation:
			stack = pushJoined(stack, n, " / ")
		case Concatenation:
			stack = pushJoined(stack, n, " ")
		case Repetition:
			if n.Repeat != nil {
				if n.Repeat.Min != nil {
					sb.WriteString(strconv.Itoa(*n.Repeat.Min))
				}

				sb.WriteByte('*')

				if n.Repeat.Max != nil {
					sb.WriteString(strconv.Itoa(*n.Repeat.Max))
				}
			}

			stack = append(stack, renderItem{node: n.Node})
		case Group:
			sb.WriteByte('(')
			stack = append(stack, renderItem{text: ")", literal: true}, renderItem{node: n.Node})
		case Optional:
			sb.WriteByte('[')
			stack = append(stack, renderItem{text: "]", literal: true}, renderItem{node: n.Node})
		case NumVal:
			sb.WriteString("%x")

			if n.Range != nil {
				sb.WriteString(n.Range.String())
			}
		case nil:
			// Nothing to render for a missing child.
		default:
			sb.WriteString(n.String())
		}
	}
}
