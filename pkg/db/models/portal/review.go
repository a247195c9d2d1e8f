package portal

const ReviewsTableName = "reviews"

// ReviewColumns defines the schema for the reviews table.
// Ratings are numeric strings, NULL when the reviewer left the dimension empty.
var ReviewColumns = []ColumnDef{
	{Name: "review_id", Type: "INTEGER"},
	{Name: "proposal_id", Type: "INTEGER", Nullable: true, Index: true},
	{Name: "reviewer_id", Type: "INTEGER", Nullable: true, Index: true},
	{Name: "review_type", Type: "TEXT"},
	{Name: "overall_rating", Type: "TEXT", Nullable: true},
	{Name: "feasibility_rating", Type: "TEXT", Nullable: true},
	{Name: "viability_rating", Type: "TEXT", Nullable: true},
	{Name: "desirability_rating", Type: "TEXT", Nullable: true},
	{Name: "usefulness_rating", Type: "TEXT", Nullable: true},
	{Name: "created_at", Type: "TEXT", Nullable: true},
	{Name: "raw_json", Type: "TEXT"},
}

var ReviewsTable = Table{Name: ReviewsTableName, Columns: ReviewColumns, Key: []string{"review_id"}}

// Review is a rating left on a proposal.
type Review struct {
	ReviewID           int64   `db:"review_id" json:"review_id"`
	ProposalID         *int64  `db:"proposal_id" json:"proposal_id"`
	ReviewerID         *int64  `db:"reviewer_id" json:"reviewer_id"`
	ReviewType         string  `db:"review_type" json:"review_type"`
	OverallRating      *string `db:"overall_rating" json:"overall_rating"`
	FeasibilityRating  *string `db:"feasibility_rating" json:"feasibility_rating"`
	ViabilityRating    *string `db:"viability_rating" json:"viability_rating"`
	DesirabilityRating *string `db:"desirability_rating" json:"desirability_rating"`
	UsefulnessRating   *string `db:"usefulness_rating" json:"usefulness_rating"`
	CreatedAt          *string `db:"created_at" json:"created_at"`
	RawJSON            string  `db:"raw_json" json:"raw_json"`
}

func (r *Review) Values() []any {
	return []any{
		r.ReviewID, r.ProposalID, r.ReviewerID, r.ReviewType, r.OverallRating, r.FeasibilityRating,
		r.ViabilityRating, r.DesirabilityRating, r.UsefulnessRating, r.CreatedAt, r.RawJSON,
	}
}

func (r *Review) Fields() []any {
	return []any{
		&r.ReviewID, &r.ProposalID, &r.ReviewerID, &r.ReviewType, &r.OverallRating, &r.FeasibilityRating,
		&r.ViabilityRating, &r.DesirabilityRating, &r.UsefulnessRating, &r.CreatedAt, &r.RawJSON,
	}
}

// DimensionRatings returns the four dimension ratings in a fixed order.
func (r *Review) DimensionRatings() []*string {
	return []*string{r.FeasibilityRating, r.ViabilityRating, r.DesirabilityRating, r.UsefulnessRating}
}
