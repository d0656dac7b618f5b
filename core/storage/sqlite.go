package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shelf-cms/shelf/core/schema"
)

// SQLiteStore implements Store with SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex

	// lists maps list keys to their derived definitions
	lists map[string]schema.Derived
}

// NewSQLiteStore creates a new SQLite storage.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Set pragmas for performance
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return &SQLiteStore{
		db:    db,
		lists: make(map[string]schema.Derived),
	}, nil
}

// NewSQLiteStoreFromDB creates a SQLite storage from an existing connection.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:    db,
		lists: make(map[string]schema.Derived),
	}
}

// EnsureTable creates the table for a derived list and registers it.
func (s *SQLiteStore) EnsureTable(ctx context.Context, d schema.Derived) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists[d.Source.Key] = d

	createSQL := BuildCreateTableSQL(d)
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", d.Table, err)
	}

	for _, indexSQL := range BuildIndexSQL(d) {
		if _, err := s.db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) derived(list string) (schema.Derived, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.lists[list]
	if !ok {
		return schema.Derived{}, fmt.Errorf("list %q not registered", list)
	}
	return d, nil
}

// columns returns the column names of a derived list, excluding
// to-many relationship fields which have no column.
func columns(d schema.Derived) ([]string, []schema.Field) {
	var names []string
	var fields []schema.Field
	for _, f := range d.Fields {
		if f.Many {
			continue
		}
		names = append(names, f.Name)
		fields = append(fields, f)
	}
	return names, fields
}

// Create inserts a new item.
func (s *SQLiteStore) Create(ctx context.Context, list string, data map[string]any) (string, error) {
	d, err := s.derived(list)
	if err != nil {
		return "", err
	}

	// Validate references before insert
	if err := s.validateReferences(ctx, d, data); err != nil {
		return "", err
	}

	// Generate ID if not provided
	id, ok := data["id"].(string)
	if !ok || id == "" {
		id = uuid.New().String()
		data["id"] = id
	}

	var cols []string
	var placeholders []string
	var values []any

	for _, f := range d.Fields {
		if f.Many || f.Name == "createdAt" || f.Name == "updatedAt" {
			continue
		}

		val, exists := data[f.Name]
		if !exists {
			continue
		}

		cols = append(cols, f.Name)
		placeholders = append(placeholders, "?")
		values = append(values, convertValue(val, f))
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		d.Table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
	)

	if _, err := s.db.ExecContext(ctx, insertSQL, values...); err != nil {
		return "", fmt.Errorf("insert: %w", err)
	}

	return id, nil
}

// Get retrieves an item by lookup field. Returns nil, nil when no
// item matches.
func (s *SQLiteStore) Get(ctx context.Context, list string, lookup string, value string) (map[string]any, error) {
	d, err := s.derived(list)
	if err != nil {
		return nil, err
	}

	cols, fields := columns(d)

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ?",
		strings.Join(cols, ", "),
		d.Table,
		lookup,
	)

	row := s.db.QueryRowContext(ctx, query, value)

	values := make([]any, len(cols))
	scanDest := make([]any, len(cols))
	for i := range values {
		scanDest[i] = &values[i]
	}

	if err := row.Scan(scanDest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	result := make(map[string]any)
	for i, col := range cols {
		result[col] = convertFromDB(values[i], fields[i])
	}

	return result, nil
}

// List retrieves multiple items and the total count.
func (s *SQLiteStore) List(ctx context.Context, list string, opts ListOptions) ([]map[string]any, int64, error) {
	d, err := s.derived(list)
	if err != nil {
		return nil, 0, err
	}

	cols, fields := columns(d)

	var whereClause string
	var args []any

	if len(opts.Filters) > 0 {
		var conditions []string
		for k, v := range opts.Filters {
			if _, ok := d.Field(k); !ok {
				return nil, 0, fmt.Errorf("unknown filter field %q", k)
			}
			conditions = append(conditions, k+" = ?")
			args = append(args, v)
		}
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", d.Table, whereClause)
	var count int64
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	querySQL := fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(cols, ", "), d.Table, whereClause)

	// Validate orderBy against actual field names to prevent SQL injection
	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = "createdAt"
	} else if _, ok := d.Field(orderBy); !ok {
		orderBy = "createdAt"
	}
	if opts.OrderDesc {
		querySQL += fmt.Sprintf(" ORDER BY %s DESC", orderBy)
	} else {
		querySQL += fmt.Sprintf(" ORDER BY %s ASC", orderBy)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	querySQL += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		scanDest := make([]any, len(cols))
		for i := range values {
			scanDest[i] = &values[i]
		}

		if err := rows.Scan(scanDest...); err != nil {
			return nil, 0, err
		}

		item := make(map[string]any)
		for i, col := range cols {
			item[col] = convertFromDB(values[i], fields[i])
		}
		results = append(results, item)
	}

	return results, count, rows.Err()
}

// Update modifies an existing item.
func (s *SQLiteStore) Update(ctx context.Context, list string, id string, data map[string]any) error {
	d, err := s.derived(list)
	if err != nil {
		return err
	}

	if err := s.validateReferences(ctx, d, data); err != nil {
		return err
	}

	var sets []string
	var values []any

	for k, v := range data {
		if k == "id" || k == "createdAt" {
			continue
		}

		f, ok := d.Field(k)
		if !ok || f.Many {
			continue // Skip unknown fields
		}

		sets = append(sets, k+" = ?")
		values = append(values, convertValue(v, f))
	}

	if len(sets) == 0 {
		return nil // Nothing to update
	}

	sets = append(sets, "updatedAt = CURRENT_TIMESTAMP")
	values = append(values, id)

	updateSQL := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = ?",
		d.Table,
		strings.Join(sets, ", "),
	)

	result, err := s.db.ExecContext(ctx, updateSQL, values...)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("item not found: %s", id)
	}

	return nil
}

// Delete removes an item.
func (s *SQLiteStore) Delete(ctx context.Context, list string, id string) error {
	d, err := s.derived(list)
	if err != nil {
		return err
	}

	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE id = ?", d.Table)

	result, err := s.db.ExecContext(ctx, deleteSQL, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("item not found: %s", id)
	}

	return nil
}

// Count returns the number of items in a list.
func (s *SQLiteStore) Count(ctx context.Context, list string) (int64, error) {
	d, err := s.derived(list)
	if err != nil {
		return 0, err
	}

	var count int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s", d.Table)
	if err := s.db.QueryRowContext(ctx, countSQL).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// convertValue converts a Go value to a database value.
func convertValue(val any, f schema.Field) any {
	if val == nil {
		return nil
	}

	switch f.Kind {
	case schema.KindCheckbox:
		switch v := val.(type) {
		case bool:
			if v {
				return 1
			}
			return 0
		case string:
			if v == "true" || v == "1" {
				return 1
			}
			return 0
		default:
			return 0
		}
	case schema.KindPassword:
		// Hashes are binary; keep them as BLOBs.
		if s, ok := val.(string); ok {
			return []byte(s)
		}
		return val
	default:
		return val
	}
}

// convertFromDB converts a database value to a Go value.
func convertFromDB(val any, f schema.Field) any {
	if val == nil {
		return nil
	}

	switch f.Kind {
	case schema.KindCheckbox:
		switch v := val.(type) {
		case int64:
			return v != 0
		case int:
			return v != 0
		default:
			return false
		}
	case schema.KindPassword:
		// Keep hashes as []byte, never as string.
		if b, ok := val.([]byte); ok {
			return b
		}
		if s, ok := val.(string); ok {
			return []byte(s)
		}
		return val
	default:
		if b, ok := val.([]byte); ok {
			return string(b)
		}
		return val
	}
}

// validateReferences checks that all referenced items exist.
func (s *SQLiteStore) validateReferences(ctx context.Context, d schema.Derived, data map[string]any) error {
	for _, f := range d.Fields {
		if f.Kind != schema.KindRelationship || f.Ref == "" || f.Many {
			continue
		}

		refValue, exists := data[f.Name]
		if !exists || refValue == nil {
			continue
		}

		refID, ok := refValue.(string)
		if !ok || refID == "" {
			continue
		}

		refList, _ := schema.ParseRef(f.Ref)
		s.mu.RLock()
		refDerived, ok := s.lists[refList]
		s.mu.RUnlock()
		if !ok {
			return fmt.Errorf("referenced list %q not registered for field %q", refList, f.Name)
		}

		var count int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", refDerived.Table)
		if err := s.db.QueryRowContext(ctx, query, refID).Scan(&count); err != nil {
			return fmt.Errorf("check reference for field %q: %w", f.Name, err)
		}

		if count == 0 {
			return fmt.Errorf("referenced %s with id %q does not exist (field: %s)", refList, refID, f.Name)
		}
	}

	return nil
}
