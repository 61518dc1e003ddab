// =============================================================================
// Bulk Importer - Record Store
// =============================================================================
//
// SQLite-backed document store satisfying the two operations the pipeline
// consumes: a batched "value is one of these" existence query scoped to
// collection + field, and a single-document create. Documents are stored as
// JSON so collections keep arbitrary, template-driven field sets without
// schema churn.
//
// The database runs in WAL mode with a single writer connection; all store
// reads are idempotent and safe to retry.
//
// =============================================================================

package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store provides durable storage for imported records.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path, applying
// pragmas and the schema. Idempotent; safe to call on an existing file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY under the sequential commit loop.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// =============================================================================
// READS
// =============================================================================

// ExistingValues returns the distinct subset of values that already exist
// in the given collection and field. The result order is not significant;
// callers union it into a set.
func (s *Store) ExistingValues(ctx context.Context, collection, field string, values []string) ([]string, error) {
	if len(values) == 0 {
		return []string{}, nil
	}

	jsonPath := "$." + field

	placeholders := strings.Repeat("?,", len(values))
	placeholders = placeholders[:len(placeholders)-1]

	query := fmt.Sprintf(`
		SELECT DISTINCT json_extract(data, ?)
		FROM records
		WHERE collection = ?
		  AND json_extract(data, ?) IN (%s)
	`, placeholders)

	args := make([]interface{}, 0, len(values)+3)
	args = append(args, jsonPath, collection, jsonPath)
	for _, v := range values {
		args = append(args, v)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing values: %w", err)
	}
	defer rows.Close()

	existing := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan existing value: %w", err)
		}
		existing = append(existing, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing values: %w", err)
	}

	return existing, nil
}

// Count returns the number of records in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, collection,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// =============================================================================
// WRITES
// =============================================================================

// Insert persists one document into a collection. The document is stored
// as JSON under a generated record ID.
func (s *Store) Insert(ctx context.Context, collection string, doc map[string]interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	importedBy, _ := doc["importedBy"].(string)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, collection, data, created_at, imported_by)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), collection, string(data), time.Now().UTC().Format(time.RFC3339), importedBy)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	return nil
}
