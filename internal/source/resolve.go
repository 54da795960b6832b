package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/phobologic/repoclassify/internal/model"
)

// MalformedURLError reports a repository URL whose owner and name cannot be
// located.
type MalformedURLError struct {
	URL      string
	Segments int
}

func (e *MalformedURLError) Error() string {
	return fmt.Sprintf("malformed repository URL %q: need at least 5 path segments (scheme//host/owner/repo), got %d", e.URL, e.Segments)
}

// Resolve parses a forge URL such as https://github.com/owner/repo/tree/main/pkg.
// Segments 4 and 5 name the owner and repository; segment 6 (tree or blob)
// is skipped and anything after it becomes the sub-path.
func Resolve(rawURL, token string) (model.RepositoryRef, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 5 || parts[3] == "" || parts[4] == "" {
		return model.RepositoryRef{}, &MalformedURLError{URL: rawURL, Segments: len(parts)}
	}

	var sub string
	if len(parts) > 6 {
		sub = strings.Join(parts[6:], "/")
	}

	return model.RepositoryRef{
		URL:      trimmed,
		CloneURL: strings.Join(parts[:5], "/"),
		Owner:    parts[3],
		Name:     parts[4],
		Path:     sub,
		Token:    strings.TrimSpace(token),
	}, nil
}

// LocalRef describes a repository already present on disk at dir.
func LocalRef(dir string) (model.RepositoryRef, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return model.RepositoryRef{}, fmt.Errorf("resolving %s: %w", dir, err)
	}
	return model.RepositoryRef{
		URL:      abs,
		CloneURL: abs,
		Name:     filepath.Base(abs),
	}, nil
}
