package transform

import (
	"encoding/json"
	"fmt"

	"github.com/canopy-network/reputationx/pkg/db/models/portal"
)

// RawMilestoneGroup is one element of the milestones response: the milestones of one proposal.
type RawMilestoneGroup struct {
	ProposalID flexInt           `json:"proposal_id"`
	CreatedAt  flexString        `json:"created_at"`
	UpdatedAt  flexString        `json:"updated_at"`
	Milestones []json.RawMessage `json:"milestones"`
}

// RawMilestone is the portal shape of a single milestone.
type RawMilestone struct {
	ID                     flexInt     `json:"id"`
	ProposalID             flexInt     `json:"proposal_id"`
	Title                  flexString  `json:"title"`
	Status                 flexString  `json:"status"`
	Description            flexString  `json:"description"`
	DevelopmentDescription flexString  `json:"development_description"`
	Budget                 flexDecimal `json:"budget"`
	CreatedAt              flexString  `json:"created_at"`
	UpdatedAt              flexString  `json:"updated_at"`
}

// Milestones flattens one milestone group. Items without their own proposal_id or timestamps
// inherit the group's. raw_json keeps each item's own payload.
func Milestones(raw json.RawMessage) ([]*portal.Milestone, error) {
	var g RawMilestoneGroup
	if _, err := decodeObject(raw, &g); err != nil {
		return nil, parseErr(portal.MilestonesTableName, err)
	}

	out := make([]*portal.Milestone, 0, len(g.Milestones))
	for i, item := range g.Milestones {
		var m RawMilestone
		rawJSON, err := decodeObject(item, &m)
		if err != nil {
			return nil, parseErr(portal.MilestonesTableName, fmt.Errorf("milestone %d: %w", i, err))
		}
		if !m.ID.Valid {
			return nil, parseErr(portal.MilestonesTableName, fmt.Errorf("milestone %d: %w", i, missing("id")))
		}
		proposal := m.ProposalID
		if !proposal.Valid {
			proposal = g.ProposalID
		}
		if !proposal.Valid {
			return nil, parseErr(portal.MilestonesTableName, fmt.Errorf("milestone %d: %w", i, missing("proposal_id")))
		}
		created := m.CreatedAt
		if created.ptr() == nil {
			created = g.CreatedAt
		}
		updated := m.UpdatedAt
		if updated.ptr() == nil {
			updated = g.UpdatedAt
		}

		out = append(out, &portal.Milestone{
			ID:                     m.ID.Value,
			ProposalID:             proposal.Value,
			Title:                  strOr(m.Title),
			Status:                 strOr(m.Status),
			Description:            strOr(m.Description),
			DevelopmentDescription: strOr(m.DevelopmentDescription),
			Budget:                 m.Budget.String(),
			CreatedAt:              created.ptr(),
			UpdatedAt:              updated.ptr(),
			RawJSON:                rawJSON,
		})
	}
	return out, nil
}
