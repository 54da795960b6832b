package source

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/phobologic/repoclassify/internal/model"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-c", "user.name=test", "-c", "user.email=test@example.com", "-c", "commit.gpgsign=false"}, args...)...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func createGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "app/models.py", "class User:\n    pass\n")
	writeFile(t, dir, "app/urls.py", "path('/health')\n")
	gitRun(t, dir, "init", "--quiet")
	gitRun(t, dir, "add", ".")
	gitRun(t, dir, "commit", "--quiet", "-m", "init")
	return dir
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("workspace parent not empty: %d entries left", len(entries))
	}
}

func TestCloneProviderListsAndCleansUp(t *testing.T) {
	t.Parallel()
	requireGit(t)

	src := createGitRepo(t)
	parent := t.TempDir()
	p := &CloneProvider{Cloner: GitCloner{}, TempDir: parent}

	var paths []string
	var workspace string
	err := p.WithTree(context.Background(), model.RepositoryRef{URL: src, CloneURL: src}, func(nodes []model.FileNode) error {
		paths = nodePaths(nodes)
		entries, _ := os.ReadDir(parent)
		if len(entries) == 1 {
			workspace = filepath.Join(parent, entries[0].Name())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTree: %v", err)
	}

	want := []string{"app/", "app/models.py", "app/urls.py"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
	if !strings.HasPrefix(filepath.Base(workspace), "repoclassify-") {
		t.Errorf("workspace = %q", workspace)
	}
	assertEmptyDir(t, parent)
}

func TestCloneProviderCleansUpOnCallbackFailure(t *testing.T) {
	t.Parallel()
	requireGit(t)

	src := createGitRepo(t)
	parent := t.TempDir()
	p := &CloneProvider{Cloner: GitCloner{}, TempDir: parent}
	ref := model.RepositoryRef{URL: src, CloneURL: src}

	sentinel := errors.New("aggregation failed")
	err := p.WithTree(context.Background(), ref, func([]model.FileNode) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want sentinel", err)
	}
	assertEmptyDir(t, parent)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = p.WithTree(context.Background(), ref, func([]model.FileNode) error { panic("boom") })
	}()
	assertEmptyDir(t, parent)
}

func TestGitClonerFailure(t *testing.T) {
	t.Parallel()
	requireGit(t)

	parent := t.TempDir()
	p := &CloneProvider{Cloner: GitCloner{}, TempDir: parent}
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	err := p.WithTree(context.Background(), model.RepositoryRef{URL: missing}, func([]model.FileNode) error {
		t.Error("fn called after failed clone")
		return nil
	})
	var ce *CloneError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *CloneError", err)
	}
	if ce.ExitCode <= 0 {
		t.Errorf("ExitCode = %d, want non-zero exit status", ce.ExitCode)
	}
	assertEmptyDir(t, parent)
}

func TestGitClonerRedactsToken(t *testing.T) {
	t.Parallel()
	requireGit(t)

	ref := model.RepositoryRef{URL: "https://127.0.0.1:1/o/r", Token: "s3cr3t"}
	err := GitCloner{}.Clone(context.Background(), ref, t.TempDir())
	if err == nil {
		t.Fatal("expected clone failure")
	}
	if strings.Contains(err.Error(), "s3cr3t") {
		t.Errorf("token leaked in error: %v", err)
	}
}

func TestGoGitClonerFailure(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	p := &CloneProvider{Cloner: GoGitCloner{}, TempDir: parent}
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	err := p.WithTree(context.Background(), model.RepositoryRef{URL: missing}, func([]model.FileNode) error {
		return nil
	})
	var ce *CloneError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *CloneError", err)
	}
	if ce.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", ce.ExitCode)
	}
	assertEmptyDir(t, parent)
}

func TestGoGitClonerListsAndCleansUp(t *testing.T) {
	t.Parallel()
	requireGit(t)

	src := createGitRepo(t)
	parent := t.TempDir()
	p := &CloneProvider{Cloner: GoGitCloner{}, TempDir: parent}

	var paths []string
	var content []byte
	err := p.WithTree(context.Background(), model.RepositoryRef{URL: src}, func(nodes []model.FileNode) error {
		paths = nodePaths(nodes)
		for _, n := range nodes {
			if n.Path == "app/models.py" {
				var err error
				if content, err = n.Read(context.Background()); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTree: %v", err)
	}

	want := []string{"app/", "app/models.py", "app/urls.py"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
	if string(content) != "class User:\n    pass\n" {
		t.Errorf("models.py content = %q", content)
	}
	assertEmptyDir(t, parent)
}

func TestCloneErrorMessage(t *testing.T) {
	t.Parallel()

	err := &CloneError{URL: "https://x/o/r", ExitCode: 128, Stderr: "fatal: repository not found"}
	want := "cloning https://x/o/r failed (exit status 128): fatal: repository not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
