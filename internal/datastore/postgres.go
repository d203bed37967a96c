package datastore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// PostgresStore implements the Store interface for a hosted Postgres
// database using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
	dsn  string
}

// NewPostgresStore creates a new PostgresStore instance
func NewPostgresStore(dsn string) *PostgresStore {
	return &PostgresStore{dsn: dsn}
}

// Connect establishes the connection pool
func (s *PostgresStore) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, s.dsn)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s.pool = pool
	return nil
}

// CreateTable creates a table with the given schema if it doesn't exist
func (s *PostgresStore) CreateTable(ctx context.Context, schema string) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Select returns records matching filter, optionally ordered
func (s *PostgresStore) Select(ctx context.Context, table string, filter Filter, order string) ([]map[string]any, error) {
	if err := validIdent(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s", table)
	where, args, err := pgWhereClause(filter, 1)
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

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var records []map[string]any
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		record := make(map[string]any, len(fields))
		for i, fd := range fields {
			record[fd.Name] = values[i]
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return records, nil
}

// Insert stores a record and returns it as persisted
func (s *PostgresStore) Insert(ctx context.Context, table string, record map[string]any) (map[string]any, error) {
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
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = record[col]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, mapPgError(table, err)
		}
		return nil, fmt.Errorf("insert returned no row")
	}
	values, err := rows.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted row: %w", err)
	}
	stored := make(map[string]any, len(fields))
	for i, fd := range fields {
		stored[fd.Name] = values[i]
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapPgError(table, err)
	}
	return stored, nil
}

// Update applies patch to all records matching filter
func (s *PostgresStore) Update(ctx context.Context, table string, patch map[string]any, filter Filter) error {
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
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
		args = append(args, patch[col])
	}

	query := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(sets, ", "))
	where, whereArgs, err := pgWhereClause(filter, len(args)+1)
	if err != nil {
		return err
	}
	query += where
	args = append(args, whereArgs...)

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	return nil
}

// Delete removes all records matching filter
func (s *PostgresStore) Delete(ctx context.Context, table string, filter Filter) error {
	if err := validIdent(table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s", table)
	where, args, err := pgWhereClause(filter, 1)
	if err != nil {
		return err
	}
	query += where

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func pgWhereClause(filter Filter, firstArg int) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	conds := make([]string, 0, len(filter))
	args := make([]any, 0, len(filter))
	for _, col := range sortedKeys(filter) {
		if err := validIdent(col); err != nil {
			return "", nil, err
		}
		conds = append(conds, fmt.Sprintf("%s = $%d", col, firstArg))
		args = append(args, filter[col])
		firstArg++
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func mapPgError(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("insert into %s: %w", table, ErrConflict)
	}
	return fmt.Errorf("failed to insert record: %w", err)
}
