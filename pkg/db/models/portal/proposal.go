package portal

const ProposalsTableName = "proposals"

// ProposalColumns defines the schema for the proposals table.
var ProposalColumns = []ColumnDef{
	{Name: "id", Type: "INTEGER"},
	{Name: "round_id", Type: "INTEGER", Index: true},
	{Name: "pool_id", Type: "INTEGER", Index: true},
	{Name: "proposer_id", Type: "INTEGER"},
	{Name: "title", Type: "TEXT"},
	{Name: "content", Type: "TEXT"},
	{Name: "link", Type: "TEXT"},
	{Name: "feature_image", Type: "TEXT"},
	{Name: "requested_amount", Type: "TEXT"},
	{Name: "awarded_amount", Type: "TEXT"},
	{Name: "is_awarded", Type: "INTEGER"},
	{Name: "is_completed", Type: "INTEGER"},
	{Name: "created_at", Type: "TEXT"},
	{Name: "updated_at", Type: "TEXT", Nullable: true},
	{Name: "team_members", Type: "TEXT"},
	{Name: "raw_json", Type: "TEXT"},
}

var ProposalsTable = Table{Name: ProposalsTableName, Columns: ProposalColumns, Key: []string{"id"}}

// Proposal is a funding request submitted to a round.
//
// Booleans are stored as 0/1. TeamMembers is a JSON array of user ids.
// CreatedAt is kept verbatim from the source; consumers decide whether it parses.
type Proposal struct {
	ID              int64   `db:"id" json:"id"`
	RoundID         int64   `db:"round_id" json:"round_id"`
	PoolID          int64   `db:"pool_id" json:"pool_id"`
	ProposerID      int64   `db:"proposer_id" json:"proposer_id"`
	Title           string  `db:"title" json:"title"`
	Content         string  `db:"content" json:"content"`
	Link            string  `db:"link" json:"link"`
	FeatureImage    string  `db:"feature_image" json:"feature_image"`
	RequestedAmount string  `db:"requested_amount" json:"requested_amount"`
	AwardedAmount   string  `db:"awarded_amount" json:"awarded_amount"`
	IsAwarded       uint8   `db:"is_awarded" json:"is_awarded"`
	IsCompleted     uint8   `db:"is_completed" json:"is_completed"`
	CreatedAt       string  `db:"created_at" json:"created_at"`
	UpdatedAt       *string `db:"updated_at" json:"updated_at"`
	TeamMembers     string  `db:"team_members" json:"team_members"`
	RawJSON         string  `db:"raw_json" json:"raw_json"`
}

func (p *Proposal) Values() []any {
	return []any{
		p.ID, p.RoundID, p.PoolID, p.ProposerID, p.Title, p.Content, p.Link, p.FeatureImage,
		p.RequestedAmount, p.AwardedAmount, p.IsAwarded, p.IsCompleted, p.CreatedAt, p.UpdatedAt,
		p.TeamMembers, p.RawJSON,
	}
}

func (p *Proposal) Fields() []any {
	return []any{
		&p.ID, &p.RoundID, &p.PoolID, &p.ProposerID, &p.Title, &p.Content, &p.Link, &p.FeatureImage,
		&p.RequestedAmount, &p.AwardedAmount, &p.IsAwarded, &p.IsCompleted, &p.CreatedAt, &p.UpdatedAt,
		&p.TeamMembers, &p.RawJSON,
	}
}

// TeamMemberIDs decodes TeamMembers.
func (p *Proposal) TeamMemberIDs() ([]int64, error) {
	return decodeIDList(p.TeamMembers)
}

// Awarded reports is_awarded.
func (p *Proposal) Awarded() bool { return p.IsAwarded == 1 }

// Completed reports is_completed.
func (p *Proposal) Completed() bool { return p.IsCompleted == 1 }
