package transform

import (
	"encoding/json"

	"github.com/canopy-network/reputationx/pkg/db/models/portal"
)

// RawPool is the portal shape of a pool.
type RawPool struct {
	ID               flexInt     `json:"id"`
	Name             flexString  `json:"name"`
	Slug             flexString  `json:"slug"`
	MaxFundingAmount flexDecimal `json:"max_funding_amount"`
	Description      flexString  `json:"description"`
}

// Pool converts a raw pool into its row.
func Pool(raw json.RawMessage) (*portal.Pool, error) {
	var p RawPool
	rawJSON, err := decodeObject(raw, &p)
	if err != nil {
		return nil, parseErr(portal.PoolsTableName, err)
	}
	if !p.ID.Valid {
		return nil, parseErr(portal.PoolsTableName, missing("id"))
	}
	return &portal.Pool{
		ID:               p.ID.Value,
		Name:             strOr(p.Name),
		Slug:             strOr(p.Slug),
		MaxFundingAmount: p.MaxFundingAmount.String(),
		Description:      strOr(p.Description),
		RawJSON:          rawJSON,
	}, nil
}
