package portal

const CommentVotesTableName = "comment_votes"

// Vote types accepted in comment_votes.vote_type.
const (
	VoteUp   = "upvote"
	VoteDown = "downvote"
)

// CommentVoteColumns defines the schema for the comment_votes table.
var CommentVoteColumns = []ColumnDef{
	{Name: "voter_id", Type: "INTEGER", Index: true},
	{Name: "comment_id", Type: "INTEGER", Index: true},
	{Name: "vote_type", Type: "TEXT"},
	{Name: "created_at", Type: "TEXT", Nullable: true},
	{Name: "raw_json", Type: "TEXT"},
}

var CommentVotesTable = Table{
	Name:    CommentVotesTableName,
	Columns: CommentVoteColumns,
	Key:     []string{"voter_id", "comment_id"},
}

// CommentVote is one user's vote on one comment.
type CommentVote struct {
	VoterID   int64   `db:"voter_id" json:"voter_id"`
	CommentID int64   `db:"comment_id" json:"comment_id"`
	VoteType  string  `db:"vote_type" json:"vote_type"`
	CreatedAt *string `db:"created_at" json:"created_at"`
	RawJSON   string  `db:"raw_json" json:"raw_json"`
}

func (v *CommentVote) Values() []any {
	return []any{v.VoterID, v.CommentID, v.VoteType, v.CreatedAt, v.RawJSON}
}

func (v *CommentVote) Fields() []any {
	return []any{&v.VoterID, &v.CommentID, &v.VoteType, &v.CreatedAt, &v.RawJSON}
}
