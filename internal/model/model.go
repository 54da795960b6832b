// Package model defines core data structures for repoclassify.
package model

import "context"

// RepositoryRef identifies a repository to analyze.
type RepositoryRef struct {
	URL      string
	CloneURL string // scheme://host/owner/name, or a local path
	Owner    string
	Name     string
	Path     string // Sub-path inside the repository, "" for the root
	Token    string
}

// Identifier returns the key used to store results for the repository.
func (r RepositoryRef) Identifier() string {
	return r.URL
}

// NodeKind indicates whether a tree node is a file or a directory.
type NodeKind string

const (
	File      NodeKind = "file"
	Directory NodeKind = "dir"
)

// ContentSource produces the text of a file on demand.
type ContentSource func(ctx context.Context) ([]byte, error)

// Materialized wraps already loaded content as a ContentSource.
func Materialized(data []byte) ContentSource {
	return func(context.Context) ([]byte, error) {
		return data, nil
	}
}

// FileNode is a single entry of a repository tree.
type FileNode struct {
	Path    string // Slash-separated, relative to the tree root
	Kind    NodeKind
	Content ContentSource // nil for directories
}

// Read returns the node's content. Directories have no content.
func (n FileNode) Read(ctx context.Context) ([]byte, error) {
	if n.Content == nil {
		return nil, nil
	}
	return n.Content(ctx)
}

// StructuralFacts holds the declarations extracted from one file.
// The slices are never nil.
type StructuralFacts struct {
	Classes   []string
	Functions []string
	Endpoints []string
}

// NewFacts returns facts with empty, non-nil sequences.
func NewFacts() StructuralFacts {
	return StructuralFacts{
		Classes:   []string{},
		Functions: []string{},
		Endpoints: []string{},
	}
}

// Category is the bucket a file's declarations are filed under.
type Category string

const (
	Admin       Category = "Admin"
	APIViews    Category = "API Views"
	Views       Category = "Views"
	Models      Category = "Models"
	Serializers Category = "Serializers"
	Tests       Category = "Tests"
	Signals     Category = "Signals"
	Services    Category = "Services"
	Consumers   Category = "Consumers"
	Endpoints   Category = "Endpoints"
	Queries     Category = "Queries"
	Querysets   Category = "Querysets"
	Others      Category = "Others"
)

// Categories lists every category in report order.
var Categories = []Category{
	Admin, APIViews, Views, Models, Serializers, Tests, Signals,
	Services, Consumers, Endpoints, Queries, Querysets, Others,
}

// ItemKind tells which kind of declaration an item came from.
type ItemKind string

const (
	ClassItem    ItemKind = "class"
	FunctionItem ItemKind = "function"
	EndpointItem ItemKind = "endpoint"
)

// Item is one extracted name filed under a category.
type Item struct {
	Name string
	Kind ItemKind
	File string
}

// FileError records a file that was skipped or degraded during aggregation.
type FileError struct {
	Path    string
	Message string
}

// AnalysisResult maps categories to the names discovered in them, in
// discovery order.
type AnalysisResult struct {
	Repository string
	Items      map[Category][]Item
	Files      int
	Errors     []FileError
	Languages  []string
}

// NewAnalysisResult returns an empty result for the given repository.
func NewAnalysisResult(repository string) *AnalysisResult {
	items := make(map[Category][]Item, len(Categories))
	for _, c := range Categories {
		items[c] = []Item{}
	}
	return &AnalysisResult{
		Repository: repository,
		Items:      items,
	}
}

// Add appends an item to a category.
func (r *AnalysisResult) Add(c Category, item Item) {
	r.Items[c] = append(r.Items[c], item)
}

// Names returns the names filed under a category, in order.
func (r *AnalysisResult) Names(c Category) []string {
	items := r.Items[c]
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return names
}

// Total returns the number of items across all categories.
func (r *AnalysisResult) Total() int {
	n := 0
	for _, items := range r.Items {
		n += len(items)
	}
	return n
}

// StoredRecord is one persisted row. Exactly one of ClassName, FunctionName
// and Endpoint is set.
type StoredRecord struct {
	ID            int64
	RepositoryURL string
	ClassName     *string
	FunctionName  *string
	Endpoint      *string
}
