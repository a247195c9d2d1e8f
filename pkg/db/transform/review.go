package transform

import (
	"encoding/json"
	"strings"

	"github.com/canopy-network/reputationx/pkg/db/models/portal"
)

// RawReview is the portal shape of a review. The id may arrive as review_id or id.
type RawReview struct {
	ReviewID           flexInt     `json:"review_id"`
	ID                 flexInt     `json:"id"`
	ProposalID         flexInt     `json:"proposal_id"`
	ReviewerID         flexInt     `json:"reviewer_id"`
	ReviewType         flexString  `json:"review_type"`
	OverallRating      flexDecimal `json:"overall_rating"`
	FeasibilityRating  flexDecimal `json:"feasibility_rating"`
	ViabilityRating    flexDecimal `json:"viability_rating"`
	DesirabilityRating flexDecimal `json:"desirability_rating"`
	UsefulnessRating   flexDecimal `json:"usefulness_rating"`
	CreatedAt          flexString  `json:"created_at"`
}

// Review converts a raw review into its row. review_type is lower-cased.
func Review(raw json.RawMessage) (*portal.Review, error) {
	var r RawReview
	rawJSON, err := decodeObject(raw, &r)
	if err != nil {
		return nil, parseErr(portal.ReviewsTableName, err)
	}
	id := r.ReviewID
	if !id.Valid {
		id = r.ID
	}
	if !id.Valid {
		return nil, parseErr(portal.ReviewsTableName, missing("review_id"))
	}
	return &portal.Review{
		ReviewID:           id.Value,
		ProposalID:         r.ProposalID.ptr(),
		ReviewerID:         r.ReviewerID.ptr(),
		ReviewType:         strings.ToLower(strings.TrimSpace(strOr(r.ReviewType))),
		OverallRating:      r.OverallRating.ptr(),
		FeasibilityRating:  r.FeasibilityRating.ptr(),
		ViabilityRating:    r.ViabilityRating.ptr(),
		DesirabilityRating: r.DesirabilityRating.ptr(),
		UsefulnessRating:   r.UsefulnessRating.ptr(),
		CreatedAt:          r.CreatedAt.ptr(),
		RawJSON:            rawJSON,
	}, nil
}
