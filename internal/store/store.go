// Package store persists analysis results to a relational database.
//
// The table is append-only: saving the same repository twice adds a second
// set of rows.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/phobologic/repoclassify/internal/model"
)

// StorageError reports a failed database operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

type dialect int

const (
	sqliteDialect dialect = iota
	postgresDialect
)

// Store writes and reads rows of the analysis_results table.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// IsPostgres reports whether dsn selects the Postgres driver.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open connects to dsn and creates the schema if missing. postgres:// and
// postgresql:// DSNs use pgx. Anything else names a SQLite database file,
// optionally prefixed with sqlite://.
func Open(ctx context.Context, dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("empty DSN")}
	}

	s := &Store{}
	var driver, source string
	if IsPostgres(dsn) {
		driver, source, s.dialect = "pgx", dsn, postgresDialect
	} else {
		path := strings.TrimPrefix(dsn, "sqlite://")
		if !strings.HasPrefix(path, "file:") && path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, &StorageError{Op: "open", Err: err}
			}
			path = "file:" + filepath.ToSlash(path) + "?_pragma=busy_timeout(8000)"
		}
		driver, source, s.dialect = "sqlite", path, sqliteDialect
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &StorageError{Op: "open", Err: err}
	}
	s.db = db

	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == postgresDialect {
		id = "BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_results (
            id ` + id + `,
            repository_url TEXT NOT NULL,
            class_name TEXT,
            function_name TEXT,
            endpoint TEXT
        )`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_results_repo ON analysis_results(repository_url)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &StorageError{Op: "create schema", Err: err}
		}
	}
	return nil
}

// bind rewrites ? placeholders for the active dialect.
func (s *Store) bind(query string) string {
	if s.dialect != postgresDialect {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Save appends one row per item of res under repository, in category order,
// within a single transaction. It returns the number of rows written.
func (s *Store) Save(ctx context.Context, repository string, res *model.AnalysisResult) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &StorageError{Op: "save", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.bind(
		`INSERT INTO analysis_results (repository_url, class_name, function_name, endpoint) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return 0, &StorageError{Op: "save", Err: err}
	}
	defer stmt.Close()

	n := 0
	for _, c := range model.Categories {
		for _, it := range res.Items[c] {
			var class, function, endpoint sql.NullString
			switch it.Kind {
			case model.ClassItem:
				class = sql.NullString{String: it.Name, Valid: true}
			case model.FunctionItem:
				function = sql.NullString{String: it.Name, Valid: true}
			case model.EndpointItem:
				endpoint = sql.NullString{String: it.Name, Valid: true}
			default:
				continue
			}
			if _, err := stmt.ExecContext(ctx, repository, class, function, endpoint); err != nil {
				return 0, &StorageError{Op: "save", Err: err}
			}
			n++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &StorageError{Op: "save", Err: err}
	}
	return n, nil
}

// Query returns every row stored for repository in insertion order.
func (s *Store) Query(ctx context.Context, repository string) ([]model.StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(
		`SELECT id, repository_url, class_name, function_name, endpoint FROM analysis_results WHERE repository_url = ? ORDER BY id`),
		repository)
	if err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}
	defer rows.Close()

	var out []model.StoredRecord
	for rows.Next() {
		var rec model.StoredRecord
		var class, function, endpoint sql.NullString
		if err := rows.Scan(&rec.ID, &rec.RepositoryURL, &class, &function, &endpoint); err != nil {
			return nil, &StorageError{Op: "query", Err: err}
		}
		rec.ClassName = nullable(class)
		rec.FunctionName = nullable(function)
		rec.Endpoint = nullable(endpoint)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}
	return out, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
