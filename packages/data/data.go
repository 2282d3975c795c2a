// Package data loads test data sets from a SQLite database so one test body
// can run once per row.
package data

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// DefaultQueryTimeout bounds a single query.
const DefaultQueryTimeout = 30 * time.Second

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Record is one row keyed by column name.
type Record map[string]any

// String returns the column formatted as text, or "" when absent or NULL.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Source is an open data set.
type Source struct {
	db           *sql.DB
	dataSource   string
	queryTimeout time.Duration
}

// Open connects to a data source such as sqlite://path/to/data.db.
func Open(ctx context.Context, connectionString string) (*Source, error) {
	driver, dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open data source: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to data source: %w", err)
	}

	return &Source{
		db:           db,
		dataSource:   dsn,
		queryTimeout: DefaultQueryTimeout,
	}, nil
}

func (s *Source) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Exec runs a statement, typically to seed fixtures.
func (s *Source) Exec(ctx context.Context, stmt string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("exec failed: %w", err)
	}
	return nil
}

// Query returns every row of query.
func (s *Source) Query(ctx context.Context, query string, args ...any) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	records := make([]Record, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rec := make(Record, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
			} else {
				rec[col] = values[i]
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

// Table returns every row of a table in rowid order.
func (s *Source) Table(ctx context.Context, name string) ([]Record, error) {
	if !identifier.MatchString(name) {
		return nil, fmt.Errorf("invalid table name %q", name)
	}
	return s.Query(ctx, "SELECT * FROM "+name+" ORDER BY rowid")
}

// FilePath returns the database file behind a connection string, without
// any query parameters.
func FilePath(connStr string) (string, error) {
	_, dsn, err := parseConnectionString(connStr)
	if err != nil {
		return "", err
	}
	path, _, _ := strings.Cut(dsn, "?")
	return path, nil
}

// parseConnectionString accepts sqlite://path, sqlite:path, or a bare
// path ending in .db, .sqlite or .sqlite3.
func parseConnectionString(connStr string) (driver string, dsn string, err error) {
	connStr = strings.TrimSpace(connStr)

	switch {
	case strings.HasPrefix(connStr, "sqlite://"):
		return "sqlite3", strings.TrimPrefix(connStr, "sqlite://"), nil
	case strings.HasPrefix(connStr, "sqlite:"):
		return "sqlite3", strings.TrimPrefix(connStr, "sqlite:"), nil
	case strings.HasSuffix(connStr, ".db"), strings.HasSuffix(connStr, ".sqlite"), strings.HasSuffix(connStr, ".sqlite3"):
		return "sqlite3", connStr, nil
	}

	if i := strings.Index(connStr, "://"); i > 0 {
		return "", "", fmt.Errorf("unsupported data source scheme: %s", connStr[:i])
	}
	return "", "", fmt.Errorf("invalid data source: %q", connStr)
}
