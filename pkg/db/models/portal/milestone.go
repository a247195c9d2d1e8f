package portal

const MilestonesTableName = "milestones"

// MilestoneColumns defines the schema for the milestones table.
var MilestoneColumns = []ColumnDef{
	{Name: "id", Type: "INTEGER"},
	{Name: "proposal_id", Type: "INTEGER", Index: true},
	{Name: "title", Type: "TEXT"},
	{Name: "status", Type: "TEXT"},
	{Name: "description", Type: "TEXT"},
	{Name: "development_description", Type: "TEXT"},
	{Name: "budget", Type: "TEXT"},
	{Name: "created_at", Type: "TEXT", Nullable: true},
	{Name: "updated_at", Type: "TEXT", Nullable: true},
	{Name: "raw_json", Type: "TEXT"},
}

var MilestonesTable = Table{Name: MilestonesTableName, Columns: MilestoneColumns, Key: []string{"id"}}

// Milestone is one deliverable of a proposal.
type Milestone struct {
	ID                     int64   `db:"id" json:"id"`
	ProposalID             int64   `db:"proposal_id" json:"proposal_id"`
	Title                  string  `db:"title" json:"title"`
	Status                 string  `db:"status" json:"status"`
	Description            string  `db:"description" json:"description"`
	DevelopmentDescription string  `db:"development_description" json:"development_description"`
	Budget                 string  `db:"budget" json:"budget"`
	CreatedAt              *string `db:"created_at" json:"created_at"`
	UpdatedAt              *string `db:"updated_at" json:"updated_at"`
	RawJSON                string  `db:"raw_json" json:"raw_json"`
}

func (m *Milestone) Values() []any {
	return []any{
		m.ID, m.ProposalID, m.Title, m.Status, m.Description, m.DevelopmentDescription, m.Budget,
		m.CreatedAt, m.UpdatedAt, m.RawJSON,
	}
}

func (m *Milestone) Fields() []any {
	return []any{
		&m.ID, &m.ProposalID, &m.Title, &m.Status, &m.Description, &m.DevelopmentDescription, &m.Budget,
		&m.CreatedAt, &m.UpdatedAt, &m.RawJSON,
	}
}
