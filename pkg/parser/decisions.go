package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// makeSet converts a slice to a lookup set.
func makeSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// getDecisionNodeTypes returns AST node types that represent decision points.
func getDecisionNodeTypes(lang Language) []string {
	common := []string{
		"if_statement",
		"if_expression",
		"while_statement",
		"while_expression",
		"for_statement",
		"for_expression",
		"case_statement",
		"catch_clause",
		"ternary_expression",
		"conditional_expression",
	}

	switch lang {
	case LangGo:
		return append(common, "select_statement", "type_switch_statement", "expression_switch_statement")
	case LangRust:
		return append(common, "match_expression", "loop_expression", "if_let_expression")
	case LangPython:
		return append(common, "elif_clause", "except_clause", "with_statement", "comprehension")
	case LangTypeScript, LangJavaScript, LangTSX:
		return append(common, "switch_statement", "do_statement")
	case LangJava, LangCSharp:
		return append(common, "switch_statement", "switch_expression", "do_statement", "enhanced_for_statement")
	case LangC, LangCPP:
		return append(common, "switch_statement", "do_statement")
	case LangRuby:
		return []string{"if", "elsif", "unless", "while", "until", "for", "case", "when", "rescue", "conditional"}
	case LangPHP:
		return append(common, "switch_statement", "elseif_clause")
	default:
		return common
	}
}

// CountDecisionPoints counts branching nodes under node, including the
// short-circuit operators && and ||.
func CountDecisionPoints(node *sitter.Node, lang Language) int {
	if node == nil {
		return 0
	}

	decisionTypes := makeSet(getDecisionNodeTypes(lang))
	count := 0

	walk(node, func(n *sitter.Node, nodeType string) bool {
		if decisionTypes[nodeType] {
			count++
		}
		if nodeType == "binary_expression" || nodeType == "logical_expression" || nodeType == "boolean_operator" {
			switch logicalOperator(n) {
			case "&&", "||", "and", "or":
				count++
			}
		}
		return true
	})

	return count
}

func logicalOperator(node *sitter.Node) string {
	if op := node.ChildByFieldName("operator"); op != nil {
		return op.Type()
	}
	for i := range int(node.ChildCount()) {
		switch t := node.Child(i).Type(); t {
		case "&&", "||", "and", "or":
			return t
		}
	}
	return ""
}
