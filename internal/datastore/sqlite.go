package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface for local SQLite storage
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLiteStore instance
func NewSQLiteStore(dbPath string) *SQLiteStore {
	return &SQLiteStore{dbPath: dbPath}
}

// Connect opens a connection to the SQLite database
func (s *SQLiteStore) Connect(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db
	return nil
}

// CreateTable creates a table with the given schema if it doesn't exist
func (s *SQLiteStore) CreateTable(ctx context.Context, schema string) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Select returns records matching filter, optionally ordered
func (s *SQLiteStore) Select(ctx context.Context, table string, filter Filter, order string) ([]map[string]any, error) {
	if err := validIdent(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s", table)
	where, args, err := whereClause(filter, nil)
	if err != nil {
		return nil, err
	}
	query += where

	orderSQL, err := orderClause(order)
	if err != nil {
		return nil, err
	}
	if orderSQL != "" {
		query += " ORDER BY " + orderSQL
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	return scanRows(rows)
}

// Insert stores a record and returns it as persisted
func (s *SQLiteStore) Insert(ctx context.Context, table string, record map[string]any) (map[string]any, error) {
	if err := validIdent(table); err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return nil, fmt.Errorf("empty record")
	}

	columns := sortedKeys(record)
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		if err := validIdent(col); err != nil {
			return nil, err
		}
		placeholders[i] = "?"
		args[i] = record[col]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("insert into %s: %w", table, ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted row id: %w", err)
	}

	// Read the row back so server-assigned fields are included
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE rowid = ?", table), id)
	if err != nil {
		return nil, fmt.Errorf("failed to read back inserted record: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("inserted record not found")
	}
	return records[0], nil
}

// Update applies patch to all records matching filter
func (s *SQLiteStore) Update(ctx context.Context, table string, patch map[string]any, filter Filter) error {
	if err := validIdent(table); err != nil {
		return err
	}
	if len(patch) == 0 {
		return fmt.Errorf("empty patch")
	}

	columns := sortedKeys(patch)
	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns)+len(filter))
	for i, col := range columns {
		if err := validIdent(col); err != nil {
			return err
		}
		sets[i] = col + " = ?"
		args = append(args, patch[col])
	}

	query := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(sets, ", "))
	where, args, err := whereClause(filter, args)
	if err != nil {
		return err
	}
	query += where

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	return nil
}

// Delete removes all records matching filter
func (s *SQLiteStore) Delete(ctx context.Context, table string, filter Filter) error {
	if err := validIdent(table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s", table)
	where, args, err := whereClause(filter, nil)
	if err != nil {
		return err
	}
	query += where

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func whereClause(filter Filter, args []any) (string, []any, error) {
	if len(filter) == 0 {
		return "", args, nil
	}
	conds := make([]string, 0, len(filter))
	for _, col := range sortedKeys(filter) {
		if err := validIdent(col); err != nil {
			return "", nil, err
		}
		conds = append(conds, col+" = ?")
		args = append(args, filter[col])
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var records []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		record := make(map[string]any, len(columns))
		for i, col := range columns {
			record[col] = values[i]
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return records, nil
}
