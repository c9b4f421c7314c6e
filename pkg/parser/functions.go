package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Function is one function or method definition.
type Function struct {
	Name           string
	StartLine      int
	EndLine        int
	DecisionPoints int
}

// Functions parses content by its path's language and returns the
// definitions it contains in source order.
func Functions(ctx context.Context, filePath string, content []byte) ([]Function, error) {
	lang := DetectLanguage(filePath)
	if lang == LangUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, filePath)
	}

	p := New()
	defer p.Close()

	f, err := p.Parse(ctx, content, lang, filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.Functions(), nil
}

// Functions returns the definitions in f in source order. Anonymous
// functions are listed with an empty name.
func (f *File) Functions() []Function {
	kinds := makeSet(functionNodeTypes(f.Language))
	if len(kinds) == 0 {
		return nil
	}

	var fns []Function
	walk(f.Tree.RootNode(), func(node *sitter.Node, nodeType string) bool {
		if kinds[nodeType] {
			fns = append(fns, Function{
				Name:           functionName(node, f.Source, f.Language),
				StartLine:      int(node.StartPoint().Row) + 1,
				EndLine:        int(node.EndPoint().Row) + 1,
				DecisionPoints: CountDecisionPoints(functionBody(node), f.Language),
			})
		}
		return true
	})
	return fns
}

// MostComplex returns the named function with the most decision points.
// Ties go to the earlier function.
func MostComplex(fns []Function) (Function, bool) {
	best, found := Function{}, false
	for _, fn := range fns {
		if fn.Name == "" {
			continue
		}
		if !found || fn.DecisionPoints > best.DecisionPoints {
			best, found = fn, true
		}
	}
	return best, found
}

func functionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"function_declaration", "method_declaration"}
	case LangRust:
		return []string{"function_item"}
	case LangPython, LangC, LangCPP:
		return []string{"function_definition"}
	case LangTypeScript, LangJavaScript, LangTSX:
		return []string{"function_declaration", "function", "arrow_function", "method_definition"}
	case LangJava, LangCSharp:
		return []string{"method_declaration", "constructor_declaration"}
	case LangRuby:
		return []string{"method", "singleton_method"}
	case LangPHP:
		return []string{"function_definition", "method_declaration"}
	default:
		return nil
	}
}

func functionName(node *sitter.Node, source []byte, lang Language) string {
	if lang == LangC || lang == LangCPP {
		// function_definition -> function_declarator -> identifier
		if decl := node.ChildByFieldName("declarator"); decl != nil {
			return nodeText(decl.ChildByFieldName("declarator"), source)
		}
		return ""
	}
	return nodeText(node.ChildByFieldName("name"), source)
}

func functionBody(node *sitter.Node) *sitter.Node {
	for _, field := range []string{"body", "block", "body_statement"} {
		if body := node.ChildByFieldName(field); body != nil {
			return body
		}
	}
	return nil
}
