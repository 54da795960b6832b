package extract

import (
	"regexp"

	"github.com/phobologic/repoclassify/internal/model"
)

// Line-start patterns only: indented methods and nested functions are not
// seen by the fallback, unlike the tree-sitter parser.
var (
	classLineRe    = regexp.MustCompile(`(?m)^class\s+([A-Za-z_]\w*)`)
	functionLineRe = regexp.MustCompile(`(?m)^(?:async\s+)?def\s+([A-Za-z_]\w*)`)
	routeCallRe    = regexp.MustCompile(`(?:\b(?:re_)?path|@[\w.]*\.route)\(\s*[rRuU]?['"]([^'"\n]+)['"]`)
)

// Fallback extracts declarations with line-oriented pattern matching. It
// never fails: unmatched input yields empty sequences.
func Fallback(content []byte) model.StructuralFacts {
	facts := model.NewFacts()
	facts.Classes = submatches(classLineRe, content)
	facts.Functions = submatches(functionLineRe, content)
	facts.Endpoints = RouteCalls(content)
	return facts
}

// RouteCalls returns the string literal paths of path(), re_path() calls and
// @<app>.route() decorators anywhere in content, in order of appearance.
func RouteCalls(content []byte) []string {
	return submatches(routeCallRe, content)
}

func submatches(re *regexp.Regexp, content []byte) []string {
	out := []string{}
	for _, m := range re.FindAllSubmatch(content, -1) {
		out = append(out, string(m[1]))
	}
	return out
}
