package portal

import (
	"fmt"
	"strings"
)

// Row is implemented by every table model.
// Values returns the column values and Fields returns scan destinations, both in Columns order.
type Row interface {
	Values() []any
	Fields() []any
}

// Table describes one fixed table of the snapshot store.
type Table struct {
	Name    string
	Columns []ColumnDef
	// Key lists the primary key columns, in order.
	Key []string
}

// CreateSQL returns the CREATE TABLE and CREATE INDEX statements for the table.
// All statements are idempotent.
func (t Table) CreateSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n\t\t\t%s,\n\t\t\tPRIMARY KEY (%s)\n\t\t);\n",
		t.Name, ColumnsToSchemaSQL(t.Columns), strings.Join(t.Key, ", "))
	for _, col := range t.Columns {
		if !col.Index {
			continue
		}
		fmt.Fprintf(&b, "\t\tCREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s);\n", t.Name, col.Name, t.Name, col.Name)
	}
	return b.String()
}

// Validate checks the column list and that every key column exists.
func (t Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if err := ValidateColumns(t.Columns); err != nil {
		return fmt.Errorf("table %s: %w", t.Name, err)
	}
	if len(t.Key) == 0 {
		return fmt.Errorf("table %s: primary key cannot be empty", t.Name)
	}
	names := ColumnsToNameList(t.Columns)
	for _, k := range t.Key {
		found := false
		for _, n := range names {
			if n == k {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("table %s: key column %s is not defined", t.Name, k)
		}
	}
	return nil
}

// Tables lists every table of the snapshot store in dependency order.
var Tables = []Table{
	RoundsTable,
	PoolsTable,
	ProposalsTable,
	UsersTable,
	MilestonesTable,
	ReviewsTable,
	CommentsTable,
	CommentVotesTable,
}
