// Package source obtains repository trees: by cloning into an ephemeral
// workspace, from the forge contents API, or from a local directory.
package source

import (
	"context"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/repoclassify/internal/model"
)

// Provider materializes a repository tree. Resources backing the nodes are
// valid only until fn returns.
type Provider interface {
	WithTree(ctx context.Context, ref model.RepositoryRef, fn func([]model.FileNode) error) error
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	"build":         {},
	"dist":          {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	"egg-info":      {},
}

// Filter narrows a listing with doublestar globs matched against
// slash-separated relative paths. Directories are tested with a trailing
// slash, so "**/migrations/**" prunes whole subtrees.
type Filter struct {
	Includes []string
	Excludes []string
}

func (f Filter) skipDir(rel string) bool {
	name := path.Base(rel)
	if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
		return true
	}
	return f.excluded(rel + "/")
}

func (f Filter) keepFile(rel string) bool {
	if strings.HasPrefix(path.Base(rel), ".") || f.excluded(rel) {
		return false
	}
	if len(f.Includes) == 0 {
		return true
	}
	for _, pattern := range f.Includes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func (f Filter) excluded(rel string) bool {
	for _, pattern := range f.Excludes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// List walks root in lexical order and returns its directories and files.
// VCS and tooling directories, hidden entries, symlinks and ignored files are
// left out. File content is read from disk on demand.
func List(root string, f Filter) ([]model.FileNode, error) {
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var nodes []model.FileNode

	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if f.skipDir(rel) || (gi != nil && gi.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			nodes = append(nodes, model.FileNode{Path: rel, Kind: model.Directory})
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 || !d.Type().IsRegular() {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		if !f.keepFile(rel) {
			return nil
		}

		nodes = append(nodes, model.FileNode{
			Path:    rel,
			Kind:    model.File,
			Content: diskContent(p),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func diskContent(p string) model.ContentSource {
	return func(context.Context) ([]byte, error) {
		return os.ReadFile(p)
	}
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// -z keeps non-ASCII paths unquoted.
	cmd := exec.CommandContext(ctx, "git", "ls-files", "-z", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, name := range strings.Split(string(out), "\x00") {
		if name != "" {
			files[name] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	p := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(p)
	if err != nil {
		return nil
	}
	return gi
}

// Dir lists a directory already on disk. Nothing is cloned or removed.
type Dir struct {
	Filter Filter
}

// WithTree lists ref.URL (a local path) and passes the nodes to fn.
func (d Dir) WithTree(ctx context.Context, ref model.RepositoryRef, fn func([]model.FileNode) error) error {
	root := ref.URL
	if ref.Path != "" {
		root = filepath.Join(root, filepath.FromSlash(ref.Path))
	}
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "list", Path: root, Err: errNotDir}
	}
	nodes, err := List(root, d.Filter)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(nodes)
}
