package portal

const PoolsTableName = "pools"

// PoolColumns defines the schema for the pools table.
// max_funding_amount is a decimal kept as text.
var PoolColumns = []ColumnDef{
	{Name: "id", Type: "INTEGER"},
	{Name: "name", Type: "TEXT"},
	{Name: "slug", Type: "TEXT"},
	{Name: "max_funding_amount", Type: "TEXT"},
	{Name: "description", Type: "TEXT"},
	{Name: "raw_json", Type: "TEXT"},
}

var PoolsTable = Table{Name: PoolsTableName, Columns: PoolColumns, Key: []string{"id"}}

// Pool is a funding pool that rounds draw from.
type Pool struct {
	ID               int64  `db:"id" json:"id"`
	Name             string `db:"name" json:"name"`
	Slug             string `db:"slug" json:"slug"`
	MaxFundingAmount string `db:"max_funding_amount" json:"max_funding_amount"`
	Description      string `db:"description" json:"description"`
	RawJSON          string `db:"raw_json" json:"raw_json"`
}

func (p *Pool) Values() []any {
	return []any{p.ID, p.Name, p.Slug, p.MaxFundingAmount, p.Description, p.RawJSON}
}

func (p *Pool) Fields() []any {
	return []any{&p.ID, &p.Name, &p.Slug, &p.MaxFundingAmount, &p.Description, &p.RawJSON}
}
