package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/repoclassify/internal/lang"
	"github.com/phobologic/repoclassify/internal/model"
)

// routeTableName is the conventional Django route table identifier.
const routeTableName = "urlpatterns"

var (
	errSyntax       = errors.New("syntax error")
	errLegacySyntax = errors.New("python 2 print/exec statement")
)

type pythonParser struct {
	parser *sitter.Parser
	query  *sitter.Query
}

// NewPythonParser returns a tree-sitter backed SyntaxParser for Python.
func NewPythonParser() (SyntaxParser, error) {
	l := lang.Languages["python"]
	if l == nil {
		return nil, fmt.Errorf("python language not registered")
	}
	q, err := l.GetDefinitionQuery()
	if err != nil {
		return nil, err
	}
	return &pythonParser{parser: l.NewParser(), query: q}, nil
}

type definition struct {
	name  string
	start uint32
}

// Parse collects every class and function definition at any depth in source
// order. Endpoints come from urlpatterns assignments; files without one are
// scanned for route registration calls instead.
func (p *pythonParser) Parse(ctx context.Context, source []byte) (model.StructuralFacts, error) {
	facts := model.NewFacts()
	if len(source) == 0 {
		return facts, nil
	}

	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return facts, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		bad := firstError(root)
		pt := bad.StartPoint()
		return facts, &ParseError{Line: int(pt.Row) + 1, Column: int(pt.Column) + 1, Err: errSyntax}
	}
	if stmt := legacyStatement(root, source); stmt != nil {
		pt := stmt.StartPoint()
		return facts, &ParseError{Line: int(pt.Row) + 1, Column: int(pt.Column) + 1, Err: errLegacySyntax}
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(p.query, root)

	var classes, functions []definition
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}

		var name string
		var kind string
		var def *sitter.Node
		for _, c := range match.Captures {
			switch cname := p.query.CaptureNameForId(c.Index); cname {
			case "name":
				name = lang.NodeText(c.Node, source)
			case "definition.class", "definition.function":
				kind = cname
				def = c.Node
			}
		}
		if name == "" || def == nil {
			continue
		}

		d := definition{name: name, start: def.StartByte()}
		if kind == "definition.class" {
			classes = append(classes, d)
		} else {
			functions = append(functions, d)
		}
	}

	facts.Classes = sortedNames(classes)
	facts.Functions = sortedNames(functions)

	if routes, found := routeTable(root, source); found {
		facts.Endpoints = routes
	} else {
		facts.Endpoints = RouteCalls(source)
	}
	return facts, nil
}

func sortedNames(defs []definition) []string {
	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].start < defs[j].start
	})
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.name
	}
	return names
}

// firstError descends to the first ERROR or MISSING node below n.
func firstError(n *sitter.Node) *sitter.Node {
	for {
		if n.Type() == "ERROR" || n.IsMissing() {
			return n
		}
		var next *sitter.Node
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child.Type() == "ERROR" || child.IsMissing() || child.HasError() {
				next = child
				break
			}
		}
		if next == nil {
			return n
		}
		n = next
	}
}

// legacyStatement finds a Python 2 print or exec statement. The grammar
// accepts them without an ERROR node; print(...) and exec(...) calls are
// not reported.
func legacyStatement(root *sitter.Node, source []byte) *sitter.Node {
	var found *sitter.Node
	walk(root, func(n *sitter.Node) {
		if found != nil {
			return
		}
		var keyword string
		switch n.Type() {
		case "print_statement":
			keyword = "print"
		case "exec_statement":
			keyword = "exec"
		default:
			return
		}
		rest := strings.TrimSpace(strings.TrimPrefix(lang.NodeText(n, source), keyword))
		if !strings.HasPrefix(rest, "(") {
			found = n
		}
	})
	return found
}

// routeTable returns the string literal arguments of the calls listed in
// urlpatterns assignments. found is false when the file never assigns
// urlpatterns.
func routeTable(root *sitter.Node, source []byte) (routes []string, found bool) {
	routes = []string{}
	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "assignment", "augmented_assignment":
		default:
			return
		}
		left := n.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" || lang.NodeText(left, source) != routeTableName {
			return
		}
		found = true
		if right := n.ChildByFieldName("right"); right != nil {
			routes = append(routes, sequenceRoutes(right, source)...)
		}
	})
	return routes, found
}

// sequenceRoutes handles list and tuple literals, including concatenations
// such as `[...] + static(...)`.
func sequenceRoutes(n *sitter.Node, source []byte) []string {
	var out []string
	switch n.Type() {
	case "list", "tuple":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			el := n.NamedChild(i)
			if el.Type() != "call" {
				continue
			}
			args := el.ChildByFieldName("arguments")
			if args == nil || args.Type() != "argument_list" {
				continue
			}
			for j := 0; j < int(args.NamedChildCount()); j++ {
				if s, ok := stringLiteral(args.NamedChild(j), source); ok {
					out = append(out, s)
				}
			}
		}
	case "binary_operator":
		if l := n.ChildByFieldName("left"); l != nil {
			out = append(out, sequenceRoutes(l, source)...)
		}
		if r := n.ChildByFieldName("right"); r != nil {
			out = append(out, sequenceRoutes(r, source)...)
		}
	case "parenthesized_expression":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			out = append(out, sequenceRoutes(n.NamedChild(i), source)...)
		}
	}
	return out
}

// stringLiteral returns the value of a plain single-line string node.
// Interpolated strings are computed and are rejected.
func stringLiteral(n *sitter.Node, source []byte) (string, bool) {
	if n == nil || n.Type() != "string" {
		return "", false
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == "interpolation" {
			return "", false
		}
	}
	text := strings.TrimLeft(lang.NodeText(n, source), "rRbBuUfF")
	if strings.ContainsAny(text, "\r\n") {
		return "", false
	}
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(text) >= 2*len(q) && strings.HasPrefix(text, q) && strings.HasSuffix(text, q) {
			return text[len(q) : len(text)-len(q)], true
		}
	}
	return "", false
}

func walk(n *sitter.Node, visit func(*sitter.Node)) {
	visit(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}
