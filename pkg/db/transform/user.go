package transform

import (
	"encoding/json"

	"github.com/canopy-network/reputationx/pkg/db/models/portal"
)

// RawUser is the portal shape of a user.
type RawUser struct {
	ID             flexInt    `json:"id"`
	CollectionID   flexString `json:"collection_id"`
	UserName       flexString `json:"user_name"`
	Username       flexString `json:"username"`
	Email          flexString `json:"email"`
	TotalProposals flexInt    `json:"total_proposals"`
}

// User converts a raw user into its row.
func User(raw json.RawMessage) (*portal.User, error) {
	var u RawUser
	rawJSON, err := decodeObject(raw, &u)
	if err != nil {
		return nil, parseErr(portal.UsersTableName, err)
	}
	if !u.ID.Valid {
		return nil, parseErr(portal.UsersTableName, missing("id"))
	}
	name := u.UserName
	if !name.Valid {
		name = u.Username
	}
	return &portal.User{
		ID:             u.ID.Value,
		CollectionID:   strOr(u.CollectionID),
		UserName:       strOr(name),
		Email:          strOr(u.Email),
		TotalProposals: u.TotalProposals.Value,
		RawJSON:        rawJSON,
	}, nil
}
