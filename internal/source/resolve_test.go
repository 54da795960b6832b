package source

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url       string
		owner     string
		name      string
		path      string
		cloneURL  string
		canonical string
	}{
		{"https://github.com/django/django", "django", "django", "", "https://github.com/django/django", "https://github.com/django/django"},
		{"https://github.com/django/django/", "django", "django", "", "https://github.com/django/django", "https://github.com/django/django"},
		{"https://github.com/o/r/tree", "o", "r", "", "https://github.com/o/r", "https://github.com/o/r/tree"},
		{"https://github.com/o/r/tree/main", "o", "r", "main", "https://github.com/o/r", "https://github.com/o/r/tree/main"},
		{"https://github.com/o/r/tree/main/src/app", "o", "r", "main/src/app", "https://github.com/o/r", "https://github.com/o/r/tree/main/src/app"},
		{"  https://gitlab.example.com/team/proj  ", "team", "proj", "", "https://gitlab.example.com/team/proj", "https://gitlab.example.com/team/proj"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			ref, err := Resolve(tt.url, " tok ")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if ref.Owner != tt.owner || ref.Name != tt.name || ref.Path != tt.path {
				t.Errorf("got owner=%q name=%q path=%q, want %q %q %q", ref.Owner, ref.Name, ref.Path, tt.owner, tt.name, tt.path)
			}
			if ref.CloneURL != tt.cloneURL {
				t.Errorf("CloneURL = %q, want %q", ref.CloneURL, tt.cloneURL)
			}
			if ref.URL != tt.canonical {
				t.Errorf("URL = %q, want %q", ref.URL, tt.canonical)
			}
			if ref.Token != "tok" {
				t.Errorf("Token = %q, want tok", ref.Token)
			}
		})
	}
}

func TestResolveMalformed(t *testing.T) {
	t.Parallel()

	for _, u := range []string{"", "github.com/o/r", "https://github.com/o", "https://github.com//r", "not a url"} {
		u := u
		t.Run(u, func(t *testing.T) {
			t.Parallel()
			_, err := Resolve(u, "")
			var me *MalformedURLError
			if !errors.As(err, &me) {
				t.Fatalf("Resolve(%q) error = %v, want *MalformedURLError", u, err)
			}
		})
	}
}

func TestLocalRef(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ref, err := LocalRef(dir)
	if err != nil {
		t.Fatalf("LocalRef: %v", err)
	}
	if ref.Name != filepath.Base(dir) || ref.URL != dir {
		t.Errorf("LocalRef = %+v", ref)
	}
}
