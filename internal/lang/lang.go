// Package lang provides a language registry mapping file extensions to
// tree-sitter languages and their embedded query files.
package lang

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

//go:embed queries/*.scm
var queryFS embed.FS

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name        string
	DisplayName string
	Extensions  []string
	lang        *sitter.Language
	queryOnce   sync.Once
	query       *sitter.Query
	queryErr    error
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// A parser must not be shared between goroutines.
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// GetDefinitionQuery returns the compiled definition query (safe to share across goroutines).
func (l *Language) GetDefinitionQuery() (*sitter.Query, error) {
	l.queryOnce.Do(func() {
		data, err := queryFS.ReadFile(fmt.Sprintf("queries/%s.scm", l.Name))
		if err != nil {
			l.queryErr = fmt.Errorf("reading query file: %w", err)
			return
		}
		q, err := sitter.NewQuery(data, l.lang)
		if err != nil {
			l.queryErr = fmt.Errorf("compiling query: %w", err)
			return
		}
		l.query = q
	})
	return l.query, l.queryErr
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// detectOnly names languages recognized by extension for reporting only.
// Their files are never analyzed.
var detectOnly = map[string]string{
	".java": "Java",
	".js":   "JavaScript",
	".ts":   "TypeScript",
	".go":   "Go",
	".rb":   "Ruby",
}

var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[strings.ToLower(ext)]
}

// ForPath returns the language registered for the file's extension, or nil.
func ForPath(p string) *Language {
	name := ForExtension(path.Ext(p))
	if name == "" {
		return nil
	}
	return Languages[name]
}

// Detect returns the sorted display names of the languages found among paths,
// including languages that are recognized but not analyzed.
func Detect(paths []string) []string {
	seen := make(map[string]struct{})
	for _, p := range paths {
		ext := strings.ToLower(path.Ext(p))
		if l := ForPath(p); l != nil {
			seen[l.DisplayName] = struct{}{}
		} else if name, ok := detectOnly[ext]; ok {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
