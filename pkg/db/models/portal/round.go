package portal

import "encoding/json"

const RoundsTableName = "rounds"

// RoundColumns defines the schema for the rounds table.
var RoundColumns = []ColumnDef{
	{Name: "id", Type: "INTEGER"},
	{Name: "name", Type: "TEXT"},
	{Name: "slug", Type: "TEXT"},
	{Name: "description", Type: "TEXT"},
	{Name: "pool_ids", Type: "TEXT"},
	{Name: "raw_json", Type: "TEXT"},
}

var RoundsTable = Table{Name: RoundsTableName, Columns: RoundColumns, Key: []string{"id"}}

// Round is a funding round. PoolIDs holds the ordered pool id list as a JSON array.
type Round struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Slug        string `db:"slug" json:"slug"`
	Description string `db:"description" json:"description"`
	PoolIDs     string `db:"pool_ids" json:"pool_ids"`
	RawJSON     string `db:"raw_json" json:"raw_json"`
}

func (r *Round) Values() []any {
	return []any{r.ID, r.Name, r.Slug, r.Description, r.PoolIDs, r.RawJSON}
}

func (r *Round) Fields() []any {
	return []any{&r.ID, &r.Name, &r.Slug, &r.Description, &r.PoolIDs, &r.RawJSON}
}

// PoolIDList decodes PoolIDs.
func (r *Round) PoolIDList() ([]int64, error) {
	return decodeIDList(r.PoolIDs)
}

func decodeIDList(s string) ([]int64, error) {
	if s == "" {
		return []int64{}, nil
	}
	ids := make([]int64, 0)
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
