// Package datastore provides a minimal record-store contract and
// backends for the book collection: local SQLite, hosted Postgres and
// a PostgREST-style row API.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrConflict is returned by Insert when a record violates a uniqueness
// constraint (for books, the isbn column).
var ErrConflict = errors.New("record conflicts with an existing row")

// Filter matches records by exact field equality.
type Filter map[string]any

// Store defines the relational contract the pipeline depends on.
// Records travel as generic maps; the store assigns id and created_at.
type Store interface {
	// Connect establishes a connection to the backend
	Connect(ctx context.Context) error

	// Select returns records from table matching filter, optionally
	// ordered ("column" or "column desc")
	Select(ctx context.Context, table string, filter Filter, order string) ([]map[string]any, error)

	// Insert stores a new record and returns it as persisted,
	// including server-assigned fields
	Insert(ctx context.Context, table string, record map[string]any) (map[string]any, error)

	// Update applies patch to all records matching filter
	Update(ctx context.Context, table string, patch map[string]any, filter Filter) error

	// Delete removes all records matching filter
	Delete(ctx context.Context, table string, filter Filter) error

	// Close releases the connection
	Close() error
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier: %q", name)
	}
	return nil
}

// orderClause validates an order expression of the form "column" or
// "column asc|desc" and returns it in SQL form.
func orderClause(order string) (string, error) {
	if order == "" {
		return "", nil
	}
	parts := strings.Fields(order)
	if len(parts) > 2 {
		return "", fmt.Errorf("invalid order expression: %q", order)
	}
	if err := validIdent(parts[0]); err != nil {
		return "", err
	}
	dir := ""
	if len(parts) == 2 {
		switch strings.ToLower(parts[1]) {
		case "asc":
			dir = " ASC"
		case "desc":
			dir = " DESC"
		default:
			return "", fmt.Errorf("invalid order direction: %q", parts[1])
		}
	}
	return parts[0] + dir, nil
}

// sortedKeys returns map keys in a stable order so generated SQL and
// query strings are deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
