// Package storage provides a generic storage interface for declarative
// lists. Tables are created from derived list definitions and CRUD
// operations work on any registered list.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/shelf-cms/shelf/core/schema"
)

// Store provides generic CRUD operations for any list.
type Store interface {
	// EnsureTable creates the table for a derived list if needed and
	// registers the list for subsequent operations.
	EnsureTable(ctx context.Context, d schema.Derived) error

	// Create inserts a new item and returns its id.
	Create(ctx context.Context, list string, data map[string]any) (string, error)

	// Get retrieves an item by lookup field.
	Get(ctx context.Context, list string, lookup string, value string) (map[string]any, error)

	// List retrieves multiple items and the total count.
	List(ctx context.Context, list string, opts ListOptions) ([]map[string]any, int64, error)

	// Update modifies an existing item.
	Update(ctx context.Context, list string, id string, data map[string]any) error

	// Delete removes an item.
	Delete(ctx context.Context, list string, id string) error

	// Count returns the number of items in a list.
	Count(ctx context.Context, list string) (int64, error)

	// Close closes the storage connection.
	Close() error
}

// ListOptions configures list queries.
type ListOptions struct {
	// Limit is the maximum number of items to return.
	Limit int

	// Offset is the number of items to skip.
	Offset int

	// Filters are field-value pairs to filter by.
	Filters map[string]any

	// OrderBy is the field to sort by.
	OrderBy string

	// OrderDesc sorts in descending order.
	OrderDesc bool
}

// BuildCreateTableSQL generates CREATE TABLE SQL from a derived list.
// To-many relationship fields have no column; they live on the other
// side of the relationship.
func BuildCreateTableSQL(d schema.Derived) string {
	var columns []string
	var constraints []string

	for _, f := range d.Fields {
		if f.Many {
			continue
		}

		columns = append(columns, buildColumnDef(f))

		if f.Index == schema.Unique && f.Name != "id" {
			constraints = append(constraints, fmt.Sprintf("UNIQUE(%s)", f.Name))
		}

		if f.Kind == schema.KindRelationship && f.Ref != "" {
			refList, _ := schema.ParseRef(f.Ref)
			constraints = append(constraints, fmt.Sprintf(
				"FOREIGN KEY(%s) REFERENCES %s(id)",
				f.Name, schema.Pluralize(strings.ToLower(refList)),
			))
		}

		constraints = append(constraints, buildCheckConstraints(f)...)
	}

	sql := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s",
		d.Table,
		strings.Join(columns, ",\n  "),
	)

	if len(constraints) > 0 {
		sql += ",\n  " + strings.Join(constraints, ",\n  ")
	}

	sql += "\n)"

	return sql
}

// buildCheckConstraints generates CHECK constraints from validation
// rules. Regex rules stay application-level; SQLite has no native
// regex support.
func buildCheckConstraints(f schema.Field) []string {
	var checks []string

	if f.Kind == schema.KindSelect && len(f.Options) > 0 {
		values := make([]string, len(f.Options))
		for i, o := range f.Options {
			values[i] = fmt.Sprintf("'%s'", strings.ReplaceAll(o.Value, "'", "''"))
		}
		checks = append(checks, fmt.Sprintf(
			"CHECK(%s IS NULL OR %s IN (%s))",
			f.Name, f.Name, strings.Join(values, ", "),
		))
	}

	if l := f.Validation.Length; l != nil {
		if l.Min != nil {
			checks = append(checks, fmt.Sprintf("CHECK(%s IS NULL OR LENGTH(%s) >= %d)", f.Name, f.Name, *l.Min))
		}
		if l.Max != nil {
			checks = append(checks, fmt.Sprintf("CHECK(%s IS NULL OR LENGTH(%s) <= %d)", f.Name, f.Name, *l.Max))
		}
	}

	return checks
}

// buildColumnDef builds a column definition from a derived field.
func buildColumnDef(f schema.Field) string {
	parts := []string{f.Name, f.SQLType()}

	if f.Name == "id" {
		parts = append(parts, "PRIMARY KEY")
	}

	if f.Validation.IsRequired {
		parts = append(parts, "NOT NULL")
	}

	if f.Default != nil {
		if v := formatDefault(f); v != "" {
			parts = append(parts, "DEFAULT "+v)
		}
	}

	if f.Name == "createdAt" || f.Name == "updatedAt" {
		parts = append(parts, "DEFAULT CURRENT_TIMESTAMP")
	}

	return strings.Join(parts, " ")
}

// formatDefault formats a default value for SQL. The "now" timestamp
// default is resolved at write time, not in the table definition.
func formatDefault(f schema.Field) string {
	if f.Kind == schema.KindTimestamp {
		return ""
	}

	switch v := f.Default.(type) {
	case string:
		return fmt.Sprintf("'%s'", strings.ReplaceAll(v, "'", "''"))
	case int, int32, int64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%v", v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return ""
	}
}

// BuildIndexSQL generates CREATE INDEX statements for indexed fields.
// Unique fields are covered by table-level UNIQUE constraints.
func BuildIndexSQL(d schema.Derived) []string {
	var indexes []string

	for _, f := range d.Fields {
		if f.Many {
			continue
		}
		if f.Index == schema.Indexed || (f.Kind == schema.KindRelationship && f.Ref != "") {
			indexes = append(indexes, fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)",
				d.Table, f.Name, d.Table, f.Name,
			))
		}
	}

	return indexes
}
