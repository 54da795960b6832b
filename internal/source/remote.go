package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/phobologic/repoclassify/internal/model"
)

// DefaultAPIURL is the GitHub REST API root.
const DefaultAPIURL = "https://api.github.com"

// RemoteFetchError reports a non-200 response from the forge.
type RemoteFetchError struct {
	URL     string
	Status  int
	Message string
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("fetching %s: %d - %s", e.URL, e.Status, e.Message)
}

type contentEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

// Remote lists repositories through the forge contents API, one request per
// directory.
type Remote struct {
	BaseURL string
	Client  *http.Client
	Filter  Filter
	Logger  *slog.Logger
}

// NewRemote returns a Remote for the API rooted at baseURL ("" for GitHub).
func NewRemote(baseURL string, client *http.Client) *Remote {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (r *Remote) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return http.DefaultClient
}

func (r *Remote) baseURL() string {
	if r.BaseURL == "" {
		return DefaultAPIURL
	}
	return strings.TrimRight(r.BaseURL, "/")
}

func (r *Remote) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// WithTree lists ref and passes the nodes to fn. File content is downloaded
// when a node is read.
func (r *Remote) WithTree(ctx context.Context, ref model.RepositoryRef, fn func([]model.FileNode) error) error {
	nodes, err := r.ListTree(ctx, ref)
	if err != nil {
		return err
	}
	return fn(nodes)
}

// ListTree recursively lists ref.Path. Entries of each directory are sorted
// by type then name before recursing, so an unchanged tree always lists in
// the same order. Any failed request fails the whole listing.
func (r *Remote) ListTree(ctx context.Context, ref model.RepositoryRef) ([]model.FileNode, error) {
	if ref.Owner == "" || ref.Name == "" {
		return nil, &MalformedURLError{URL: ref.URL}
	}
	var nodes []model.FileNode
	if err := r.listInto(ctx, ref, ref.Path, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *Remote) listInto(ctx context.Context, ref model.RepositoryRef, dir string, out *[]model.FileNode) error {
	entries, err := r.list(ctx, ref, dir)
	if err != nil {
		return err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Type != entries[j].Type {
			return entries[i].Type < entries[j].Type
		}
		return entries[i].Name < entries[j].Name
	})

	for _, e := range entries {
		switch e.Type {
		case "dir":
			if r.Filter.skipDir(e.Path) {
				continue
			}
			*out = append(*out, model.FileNode{Path: e.Path, Kind: model.Directory})
			if err := r.listInto(ctx, ref, e.Path, out); err != nil {
				return err
			}
		case "file":
			if !r.Filter.keepFile(e.Path) {
				continue
			}
			*out = append(*out, model.FileNode{
				Path:    e.Path,
				Kind:    model.File,
				Content: r.rawContent(ref, e),
			})
		default:
			r.logger().Debug("skipping entry", slog.String("path", e.Path), slog.String("type", e.Type))
		}
	}
	return nil
}

func (r *Remote) contentsURL(ref model.RepositoryRef, dir string) string {
	var segs []string
	for _, s := range strings.Split(dir, "/") {
		if s != "" {
			segs = append(segs, url.PathEscape(s))
		}
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		r.baseURL(), url.PathEscape(ref.Owner), url.PathEscape(ref.Name), strings.Join(segs, "/"))
}

func (r *Remote) list(ctx context.Context, ref model.RepositoryRef, dir string) ([]contentEntry, error) {
	u := r.contentsURL(ref, dir)
	r.logger().Debug("listing", slog.String("url", u))

	body, err := r.get(ctx, u, ref.Token)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		// The path names a single file.
		var e contentEntry
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", u, err)
		}
		return []contentEntry{e}, nil
	}

	var entries []contentEntry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", u, err)
	}
	return entries, nil
}

func (r *Remote) rawContent(ref model.RepositoryRef, e contentEntry) model.ContentSource {
	return func(ctx context.Context) ([]byte, error) {
		if e.DownloadURL == "" {
			return nil, fmt.Errorf("%s: no download url", e.Path)
		}
		return r.get(ctx, e.DownloadURL, ref.Token)
	}
}

func (r *Remote) get(ctx context.Context, u, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteFetchError{URL: u, Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}
	return body, nil
}

func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return http.StatusText(status)
}
