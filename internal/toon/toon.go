// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/repoclassify/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts an AnalysisResult into TOON format. Categories are emitted
// in enumeration order; empty categories contribute no rows.
func Encode(res *model.AnalysisResult) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("repo: %s", encodeValue(res.Repository)))
	parts = append(parts, fmt.Sprintf("files: %d", res.Files))
	parts = append(parts, fmt.Sprintf("languages: %s", encodeValue(strings.Join(res.Languages, " "))))

	var itemRows [][]string
	for _, c := range model.Categories {
		for _, it := range res.Items[c] {
			itemRows = append(itemRows, []string{string(c), string(it.Kind), it.Name, it.File})
		}
	}
	parts = append(parts, formatTabular("categories", []string{"category", "kind", "name", "file"}, itemRows))

	if len(res.Errors) > 0 {
		var errRows [][]string
		for _, e := range res.Errors {
			errRows = append(errRows, []string{e.Path, e.Message})
		}
		parts = append(parts, formatTabular("errors", []string{"path", "message"}, errRows))
	}

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
