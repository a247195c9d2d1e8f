package portal

const CommentsTableName = "comments"

// CommentColumns defines the schema for the comments table.
var CommentColumns = []ColumnDef{
	{Name: "comment_id", Type: "INTEGER"},
	{Name: "parent_id", Type: "INTEGER", Nullable: true},
	{Name: "is_reply", Type: "INTEGER"},
	{Name: "user_id", Type: "INTEGER", Index: true},
	{Name: "proposal_id", Type: "INTEGER", Index: true},
	{Name: "content", Type: "TEXT"},
	{Name: "comment_votes", Type: "INTEGER"},
	{Name: "created_at", Type: "TEXT"},
	{Name: "updated_at", Type: "TEXT", Nullable: true},
	{Name: "raw_json", Type: "TEXT"},
}

var CommentsTable = Table{Name: CommentsTableName, Columns: CommentColumns, Key: []string{"comment_id"}}

// Comment is a discussion entry on a proposal. CommentVotes is the source's own vote tally.
type Comment struct {
	CommentID    int64   `db:"comment_id" json:"comment_id"`
	ParentID     *int64  `db:"parent_id" json:"parent_id"`
	IsReply      uint8   `db:"is_reply" json:"is_reply"`
	UserID       int64   `db:"user_id" json:"user_id"`
	ProposalID   int64   `db:"proposal_id" json:"proposal_id"`
	Content      string  `db:"content" json:"content"`
	CommentVotes int64   `db:"comment_votes" json:"comment_votes"`
	CreatedAt    string  `db:"created_at" json:"created_at"`
	UpdatedAt    *string `db:"updated_at" json:"updated_at"`
	RawJSON      string  `db:"raw_json" json:"raw_json"`
}

func (c *Comment) Values() []any {
	return []any{
		c.CommentID, c.ParentID, c.IsReply, c.UserID, c.ProposalID, c.Content, c.CommentVotes,
		c.CreatedAt, c.UpdatedAt, c.RawJSON,
	}
}

func (c *Comment) Fields() []any {
	return []any{
		&c.CommentID, &c.ParentID, &c.IsReply, &c.UserID, &c.ProposalID, &c.Content, &c.CommentVotes,
		&c.CreatedAt, &c.UpdatedAt, &c.RawJSON,
	}
}
