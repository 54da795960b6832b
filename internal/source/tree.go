package source

import (
	"path"
	"strings"

	"github.com/phobologic/repoclassify/internal/lang"
	"github.com/phobologic/repoclassify/internal/model"
)

// FormatTree renders nodes as an indented directory listing. root is the
// path prefix shared by all nodes ("" when paths are already relative).
func FormatTree(nodes []model.FileNode, root string) []string {
	root = strings.Trim(root, "/")
	lines := make([]string, 0, len(nodes))
	for _, n := range nodes {
		rel := n.Path
		if root != "" {
			rel = strings.TrimPrefix(strings.TrimPrefix(rel, root), "/")
		}
		depth := strings.Count(rel, "/")
		name := path.Base(rel)
		if n.Kind == model.Directory {
			name += "/"
		}
		lines = append(lines, strings.Repeat("│   ", depth)+"├── "+name)
	}
	return lines
}

// Detect returns the sorted display names of the languages among the file
// nodes, including languages that are recognized but not analyzed.
func Detect(nodes []model.FileNode) []string {
	var paths []string
	for _, n := range nodes {
		if n.Kind == model.File {
			paths = append(paths, n.Path)
		}
	}
	return lang.Detect(paths)
}
