package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/phobologic/repoclassify/internal/model"
)

var errNotDir = errors.New("not a directory")

// CloneError reports a failed clone. ExitCode is -1 when the clone did not
// run as a subprocess or did not exit normally.
type CloneError struct {
	URL      string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CloneError) Error() string {
	msg := fmt.Sprintf("cloning %s failed", e.URL)
	if e.ExitCode >= 0 {
		msg += " (exit status " + strconv.Itoa(e.ExitCode) + ")"
	}
	switch {
	case e.Stderr != "":
		msg += ": " + e.Stderr
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CloneError) Unwrap() error { return e.Err }

// Cloner materializes a full working copy of ref into dir, which exists and
// is empty.
type Cloner interface {
	Clone(ctx context.Context, ref model.RepositoryRef, dir string) error
}

func cloneSource(ref model.RepositoryRef) string {
	if ref.CloneURL != "" {
		return ref.CloneURL
	}
	return ref.URL
}

func redact(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "***")
}

// GitCloner shells out to the git client.
type GitCloner struct {
	Binary string // defaults to "git"
	Depth  int    // 0 clones full history
}

// Clone runs `git clone`. The token, when present, is embedded in https URLs.
func (c GitCloner) Clone(ctx context.Context, ref model.RepositoryRef, dir string) error {
	bin := c.Binary
	if bin == "" {
		bin = "git"
	}

	src := cloneSource(ref)
	if ref.Token != "" && strings.HasPrefix(src, "https://") {
		src = "https://" + ref.Token + "@" + strings.TrimPrefix(src, "https://")
	}

	args := []string{"clone", "--quiet"}
	if c.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(c.Depth))
	}
	args = append(args, "--", src, dir)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &CloneError{
			URL:      redact(cloneSource(ref), ref.Token),
			ExitCode: code,
			Stderr:   redact(strings.TrimSpace(stderr.String()), ref.Token),
			Err:      err,
		}
	}
	return nil
}

// GoGitCloner clones in-process with go-git, without a git binary.
type GoGitCloner struct {
	Depth int
}

// Clone authenticates with the token as HTTP basic auth password.
func (c GoGitCloner) Clone(ctx context.Context, ref model.RepositoryRef, dir string) error {
	opts := &git.CloneOptions{
		URL:   cloneSource(ref),
		Depth: c.Depth,
	}
	if ref.Token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: ref.Token}
	}
	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return &CloneError{
			URL:      redact(cloneSource(ref), ref.Token),
			ExitCode: -1,
			Err:      err,
		}
	}
	return nil
}

// Workspace is an ephemeral directory holding one working copy.
type Workspace struct {
	Dir string
}

// NewWorkspace creates an empty workspace under parent ("" for the system
// temp directory).
func NewWorkspace(parent string) (*Workspace, error) {
	dir, err := os.MkdirTemp(parent, "repoclassify-")
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		return fmt.Errorf("removing workspace %s: %w", w.Dir, err)
	}
	return nil
}

// CloneProvider clones each repository into a fresh workspace and lists it.
type CloneProvider struct {
	Cloner  Cloner
	Filter  Filter
	TempDir string
	Logger  *slog.Logger
}

// WithTree clones ref, lists the working copy and calls fn. The workspace is
// removed when WithTree returns, whether fn succeeded, failed or panicked.
func (p *CloneProvider) WithTree(ctx context.Context, ref model.RepositoryRef, fn func([]model.FileNode) error) (err error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cloner := p.Cloner
	if cloner == nil {
		cloner = GitCloner{}
	}

	ws, err := NewWorkspace(p.TempDir)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			logger.Warn("workspace cleanup failed", slog.String("dir", ws.Dir), slog.String("error", cerr.Error()))
			if err == nil {
				err = cerr
			}
		}
	}()

	logger.Info("cloning repository", slog.String("url", redact(cloneSource(ref), ref.Token)), slog.String("workspace", ws.Dir))
	if err := cloner.Clone(ctx, ref, ws.Dir); err != nil {
		return err
	}

	// The whole working copy is analyzed; ref.Path addresses the forge API only.
	return Dir{Filter: p.Filter}.WithTree(ctx, model.RepositoryRef{URL: ws.Dir}, fn)
}
