// Package aggregate runs the extract and classify steps over a repository
// tree and accumulates an AnalysisResult.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phobologic/repoclassify/internal/classify"
	"github.com/phobologic/repoclassify/internal/extract"
	"github.com/phobologic/repoclassify/internal/lang"
	"github.com/phobologic/repoclassify/internal/model"
)

// ParsePolicy decides what happens to a file the syntax parser rejects.
type ParsePolicy string

const (
	// PolicyFallback keeps the line-matching facts and records a marker.
	PolicyFallback ParsePolicy = "fallback"
	// PolicySkip omits the file from the result.
	PolicySkip ParsePolicy = "skip"
)

// ParsePolicyFromString validates a configured policy name. "" selects
// PolicyFallback.
func ParsePolicyFromString(s string) (ParsePolicy, error) {
	switch ParsePolicy(s) {
	case "", PolicyFallback:
		return PolicyFallback, nil
	case PolicySkip:
		return PolicySkip, nil
	}
	return "", fmt.Errorf("unknown parse policy %q (want fallback or skip)", s)
}

// ProgressFunc is called after each analyzable file is handled.
type ProgressFunc func(done, total int, path string)

// Aggregator builds an AnalysisResult from a list of file nodes.
type Aggregator struct {
	extractor   *extract.Extractor
	logger      *slog.Logger
	policy      ParsePolicy
	maxFileSize int
	progress    ProgressFunc
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithExtractor replaces the default extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(a *Aggregator) { a.extractor = e }
}

// WithLogger sets the logger for per-file warnings.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithParsePolicy sets how parse failures are handled.
func WithParsePolicy(p ParsePolicy) Option {
	return func(a *Aggregator) { a.policy = p }
}

// WithMaxFileSize skips files larger than n bytes. Zero disables the limit.
func WithMaxFileSize(n int) Option {
	return func(a *Aggregator) { a.maxFileSize = n }
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(a *Aggregator) { a.progress = fn }
}

// New creates an Aggregator. Without WithExtractor the default extractor is
// built.
func New(opts ...Option) (*Aggregator, error) {
	a := &Aggregator{policy: PolicyFallback}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.extractor == nil {
		e, err := extract.New()
		if err != nil {
			return nil, err
		}
		a.extractor = e
	}
	return a, nil
}

// Aggregate extracts and classifies every file node with a recognized
// extension, in node order. Per-file failures are logged, recorded in the
// result's Errors and the file is left out. Only context cancellation aborts
// the run.
func (a *Aggregator) Aggregate(ctx context.Context, repository string, nodes []model.FileNode) (*model.AnalysisResult, error) {
	res := model.NewAnalysisResult(repository)

	var paths []string
	var files []model.FileNode
	for _, n := range nodes {
		if n.Kind != model.File {
			continue
		}
		paths = append(paths, n.Path)
		if lang.ForPath(n.Path) != nil {
			files = append(files, n)
		}
	}
	res.Languages = lang.Detect(paths)

	for i, n := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := a.file(ctx, res, n); err != nil {
			return nil, err
		}
		if a.progress != nil {
			a.progress(i+1, len(files), n.Path)
		}
	}

	a.logger.Debug("aggregation finished",
		slog.String("repository", repository),
		slog.Int("files", res.Files),
		slog.Int("items", res.Total()),
		slog.Int("errors", len(res.Errors)))
	return res, nil
}

// file handles one node. It returns an error only when the run must stop.
func (a *Aggregator) file(ctx context.Context, res *model.AnalysisResult, n model.FileNode) error {
	content, err := n.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.record(res, n.Path, "read failed", err)
		return nil
	}
	if a.maxFileSize > 0 && len(content) > a.maxFileSize {
		a.record(res, n.Path, "skipped", fmt.Errorf("file exceeds %d bytes", a.maxFileSize))
		return nil
	}

	facts, err := a.extractor.Extract(ctx, content, n.Path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var pe *extract.ParseError
		if !errors.As(err, &pe) || a.policy == PolicySkip {
			a.record(res, n.Path, "parse failed", err)
			return nil
		}
		a.record(res, n.Path, "parse failed, using line matching", err)
	}

	res.Files++
	category := classify.Classify(n.Path)
	if classify.RouteCategory(category) {
		for _, e := range facts.Endpoints {
			res.Add(category, model.Item{Name: e, Kind: model.EndpointItem, File: n.Path})
		}
		return nil
	}
	for _, c := range facts.Classes {
		res.Add(category, model.Item{Name: c, Kind: model.ClassItem, File: n.Path})
	}
	for _, f := range facts.Functions {
		res.Add(category, model.Item{Name: f, Kind: model.FunctionItem, File: n.Path})
	}
	return nil
}

func (a *Aggregator) record(res *model.AnalysisResult, path, msg string, err error) {
	a.logger.Warn(msg, slog.String("path", path), slog.String("error", err.Error()))
	res.Errors = append(res.Errors, model.FileError{Path: path, Message: err.Error()})
}
