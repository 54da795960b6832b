// Package report renders an AnalysisResult as the plain-text category report
// and writes it to a local file or object storage.
package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/repoclassify/internal/artifact"
	"github.com/phobologic/repoclassify/internal/model"
)

const emptyMarker = "No items found."

// Write renders every category in enumeration order: a "<Category>:" header,
// one "- <name>" line per item or the empty marker, then a blank line.
func Write(w io.Writer, res *model.AnalysisResult) error {
	bw := bufio.NewWriter(w)
	for _, c := range model.Categories {
		fmt.Fprintf(bw, "%s:\n", c)
		names := res.Names(c)
		if len(names) == 0 {
			fmt.Fprintln(bw, emptyMarker)
		}
		for _, name := range names {
			fmt.Fprintf(bw, "- %s\n", name)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// String renders the report in memory.
func String(res *model.AnalysisResult) string {
	var sb strings.Builder
	_ = Write(&sb, res)
	return sb.String()
}

// Parse reads a report produced by Write back into category names. Every
// category header present maps to a non-nil slice.
func Parse(r io.Reader) (map[model.Category][]string, error) {
	known := make(map[string]model.Category, len(model.Categories))
	for _, c := range model.Categories {
		known[string(c)+":"] = c
	}

	out := make(map[model.Category][]string)
	var current model.Category
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		switch {
		case text == "" || text == emptyMarker:
		case strings.HasPrefix(text, "- "):
			if current == "" {
				return nil, fmt.Errorf("line %d: item before any category header", line)
			}
			out[current] = append(out[current], strings.TrimPrefix(text, "- "))
		default:
			c, ok := known[text]
			if !ok {
				return nil, fmt.Errorf("line %d: unexpected %q", line, text)
			}
			current = c
			if out[c] == nil {
				out[c] = []string{}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteTo stores data at dest: an s3://bucket/key URL through store, or a
// local file path. Parent directories of local files are created.
func WriteTo(ctx context.Context, dest string, data []byte, store *artifact.S3Store) error {
	if artifact.IsURL(dest) {
		if store == nil {
			return fmt.Errorf("writing %s: object storage is not configured", dest)
		}
		bucket, key, err := artifact.ParseURL(dest)
		if err != nil {
			return err
		}
		if bucket != "" && bucket != store.Bucket() {
			return fmt.Errorf("writing %s: bucket %q does not match configured bucket %q", dest, bucket, store.Bucket())
		}
		return store.Put(ctx, key, data, "text/plain; charset=utf-8")
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("writing %s: %w", dest, err)
		}
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return nil
}
