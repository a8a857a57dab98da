// Package deps lists the rules an ABNF rule refers to.
package deps

import "github.com/l-donovan/abnf/ast"

// Of returns the distinct rule names referenced by node, in order of first
// occurrence. Terminals contribute nothing, and prose values are never read
// as references. Self references are reported like any other name.
//
// The result equals flattening the lists of all children of an alternation
// or concatenation and then dropping later duplicates across the whole
// combined list.
func Of(node ast.Node) []string {
	var names []string
	seen := map[string]bool{}

	ast.Inspect(node, func(n ast.Node) bool {
		name, ok := n.(ast.Rulename)

		if !ok {
			return true
		}

		if !seen[string(name)] {
			seen[string(name)] = true
			names = append(names, string(name))
		}

		return false
	})

	return names
}

// OfRule returns the dependencies of rule's definition.
func OfRule(rule ast.Rule) []string {
	return Of(rule.Node)
}
