package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

var tableFor = map[Collection]string{
	CollectionImages:   "images",
	CollectionHotspots: "hotspots",
	CollectionParts:    "parts",
}

// SQLiteSource reads collections from a local SQLite export.
type SQLiteSource struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens the export at path and makes sure the expected tables exist.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &SQLiteSource{db: db, path: path, logger: logger}, nil
}

// Name implements Source.
func (s *SQLiteSource) Name() string { return "sqlite" }

// Path returns the export file path.
func (s *SQLiteSource) Path() string { return s.path }

// DB exposes the handle for tooling that writes exports.
func (s *SQLiteSource) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// Fetch implements Source. Every column of the collection's table becomes a
// Row key.
func (s *SQLiteSource) Fetch(ctx context.Context, c Collection) ([]Row, error) {
	table, ok := tableFor[c]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", c)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns %s: %w", table, err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}

	s.logger.Debug("collection read", "collection", c, "rows", len(out))
	return out, nil
}
