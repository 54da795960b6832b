// Package extract pulls class, function and route declarations out of
// source files.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/phobologic/repoclassify/internal/lang"
	"github.com/phobologic/repoclassify/internal/model"
)

// SyntaxParser extracts structural facts from a full syntax tree of one
// language. Implementations are not safe for concurrent use.
type SyntaxParser interface {
	Parse(ctx context.Context, source []byte) (model.StructuralFacts, error)
}

// ParseError reports a file whose content could not be parsed.
type ParseError struct {
	Path   string
	Line   int // 1-based, 0 when unknown
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	msg := "syntax error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("parsing %s:%d:%d: %s", e.Path, e.Line, e.Column, msg)
	case e.Path != "":
		return fmt.Sprintf("parsing %s: %s", e.Path, msg)
	case e.Line > 0:
		return fmt.Sprintf("parsing line %d:%d: %s", e.Line, e.Column, msg)
	}
	return "parsing: " + msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extractor dispatches files to the parser registered for their language and
// falls back to line matching otherwise.
type Extractor struct {
	parsers map[string]SyntaxParser
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithParser registers p for the named language, replacing any default.
// A nil parser removes the registration so the language uses line matching.
func WithParser(language string, p SyntaxParser) Option {
	return func(e *Extractor) {
		if p == nil {
			delete(e.parsers, language)
			return
		}
		e.parsers[language] = p
	}
}

// New creates an Extractor with the tree-sitter Python parser registered.
func New(opts ...Option) (*Extractor, error) {
	py, err := NewPythonParser()
	if err != nil {
		return nil, fmt.Errorf("python parser: %w", err)
	}
	e := &Extractor{parsers: map[string]SyntaxParser{"python": py}}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract returns the declarations found in content. filename selects the
// language by extension.
//
// When the parser rejects the content, Extract returns the line-matching
// facts together with a *ParseError so the caller can decide whether to keep
// them.
func (e *Extractor) Extract(ctx context.Context, content []byte, filename string) (model.StructuralFacts, error) {
	var p SyntaxParser
	if l := lang.ForPath(filename); l != nil {
		p = e.parsers[l.Name]
	}
	if p == nil {
		return Fallback(content), nil
	}

	facts, err := p.Parse(ctx, content)
	if err == nil {
		return facts, nil
	}
	if ctx.Err() != nil {
		return model.NewFacts(), ctx.Err()
	}

	pe := &ParseError{Path: filename, Err: err}
	var inner *ParseError
	if errors.As(err, &inner) {
		pe.Line, pe.Column, pe.Err = inner.Line, inner.Column, inner.Err
	}
	return Fallback(content), pe
}
