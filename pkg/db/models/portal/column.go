package portal

import (
	"fmt"
	"strings"
)

// ColumnDef defines a single column for a table.
// Column order in a table definition is the order used by Row.Values and Row.Fields.
type ColumnDef struct {
	// Name is the column name.
	Name string

	// Type is the SQLite type affinity (INTEGER, TEXT, REAL).
	Type string

	// Nullable allows NULL; columns are NOT NULL otherwise.
	Nullable bool

	// Index requests a secondary index on this column.
	Index bool
}

// SQL returns the column definition for CREATE TABLE statements.
// Example: "proposal_id INTEGER NOT NULL"
func (c ColumnDef) SQL() string {
	if c.Nullable {
		return fmt.Sprintf("%s %s", c.Name, c.Type)
	}
	return fmt.Sprintf("%s %s NOT NULL", c.Name, c.Type)
}

// Validate checks if the column definition is valid.
func (c ColumnDef) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	switch c.Type {
	case "INTEGER", "TEXT", "REAL":
		return nil
	default:
		return fmt.Errorf("column %s: unsupported type %q", c.Name, c.Type)
	}
}

// ColumnsToSchemaSQL converts a list of ColumnDef to the body of a CREATE TABLE statement.
func ColumnsToSchemaSQL(columns []ColumnDef) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, col.SQL())
	}
	return strings.Join(parts, ",\n\t\t\t")
}

// ColumnsToNameList extracts just the column names from a list of ColumnDef.
// Useful for INSERT and SELECT statements.
func ColumnsToNameList(columns []ColumnDef) []string {
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		names = append(names, col.Name)
	}
	return names
}

// ValidateColumns validates all columns in a list.
// Returns the first validation error encountered.
func ValidateColumns(columns []ColumnDef) error {
	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		if err := col.Validate(); err != nil {
			return err
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("column %s: duplicate name", col.Name)
		}
		seen[col.Name] = struct{}{}
	}
	return nil
}
