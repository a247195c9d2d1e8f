package transform

import (
	"encoding/json"

	"github.com/canopy-network/reputationx/pkg/db/models/portal"
)

// RawRound is the portal shape of a round.
type RawRound struct {
	ID          flexInt    `json:"id"`
	Name        flexString `json:"name"`
	Slug        flexString `json:"slug"`
	Description flexString `json:"description"`
	PoolIDs     *idList    `json:"pool_ids"`
	Pools       *idList    `json:"pools"`
}

// Round converts a raw round into its row. pool_ids falls back to the embedded pools list.
func Round(raw json.RawMessage) (*portal.Round, error) {
	var r RawRound
	rawJSON, err := decodeObject(raw, &r)
	if err != nil {
		return nil, parseErr(portal.RoundsTableName, err)
	}
	if !r.ID.Valid {
		return nil, parseErr(portal.RoundsTableName, missing("id"))
	}

	pools := idList{}
	switch {
	case r.PoolIDs != nil:
		pools = *r.PoolIDs
	case r.Pools != nil:
		pools = *r.Pools
	}

	return &portal.Round{
		ID:          r.ID.Value,
		Name:        strOr(r.Name),
		Slug:        strOr(r.Slug),
		Description: strOr(r.Description),
		PoolIDs:     pools.encode(),
		RawJSON:     rawJSON,
	}, nil
}
