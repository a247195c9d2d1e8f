package transform

import (
	"encoding/json"

	"github.com/canopy-network/reputationx/pkg/db/models/portal"
	"github.com/canopy-network/reputationx/pkg/utils"
)

// RawProposal is the portal shape of a proposal.
// The proposer may arrive as proposer_id, user_id or a nested proposer/user object.
type RawProposal struct {
	ID              flexInt     `json:"id"`
	RoundID         flexInt     `json:"round_id"`
	PoolID          flexInt     `json:"pool_id"`
	ProposerID      flexInt     `json:"proposer_id"`
	UserID          flexInt     `json:"user_id"`
	Proposer        *rawRef     `json:"proposer"`
	Title           flexString  `json:"title"`
	Content         flexString  `json:"content"`
	Link            flexString  `json:"link"`
	FeatureImage    flexString  `json:"feature_image"`
	RequestedAmount flexDecimal `json:"requested_amount"`
	AwardedAmount   flexDecimal `json:"awarded_amount"`
	IsAwarded       flexBool    `json:"is_awarded"`
	IsCompleted     flexBool    `json:"is_completed"`
	CreatedAt       flexString  `json:"created_at"`
	UpdatedAt       flexString  `json:"updated_at"`
	TeamMembers     idList      `json:"team_members"`
}

type rawRef struct {
	ID flexInt `json:"id"`
}

// Proposal converts a raw proposal into its row. roundID is the round it was listed under and
// overrides any round_id in the payload; pass 0 to keep the payload's value.
func Proposal(raw json.RawMessage, roundID int64) (*portal.Proposal, error) {
	var p RawProposal
	rawJSON, err := decodeObject(raw, &p)
	if err != nil {
		return nil, parseErr(portal.ProposalsTableName, err)
	}
	if !p.ID.Valid {
		return nil, parseErr(portal.ProposalsTableName, missing("id"))
	}

	proposer := p.ProposerID
	if !proposer.Valid {
		proposer = p.UserID
	}
	if !proposer.Valid && p.Proposer != nil {
		proposer = p.Proposer.ID
	}
	if !proposer.Valid {
		return nil, parseErr(portal.ProposalsTableName, missing("proposer_id"))
	}

	round := p.RoundID.Value
	if roundID != 0 {
		round = roundID
	}

	return &portal.Proposal{
		ID:              p.ID.Value,
		RoundID:         round,
		PoolID:          p.PoolID.Value,
		ProposerID:      proposer.Value,
		Title:           strOr(p.Title),
		Content:         strOr(p.Content),
		Link:            strOr(p.Link),
		FeatureImage:    strOr(p.FeatureImage),
		RequestedAmount: p.RequestedAmount.String(),
		AwardedAmount:   p.AwardedAmount.String(),
		IsAwarded:       utils.BoolToUInt8(bool(p.IsAwarded)),
		IsCompleted:     utils.BoolToUInt8(bool(p.IsCompleted)),
		CreatedAt:       strOr(p.CreatedAt),
		UpdatedAt:       p.UpdatedAt.ptr(),
		TeamMembers:     p.TeamMembers.encode(),
		RawJSON:         rawJSON,
	}, nil
}
