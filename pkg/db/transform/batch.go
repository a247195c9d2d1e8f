package transform

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/canopy-network/reputationx/pkg/db/models/portal"
	"github.com/canopy-network/reputationx/pkg/rpc"
)

// Batch normalizes one page of raw items of the given resource.
// A failing item aborts the batch with a *ParseError carrying its index.
// Proposals keep the round_id found in each payload; use Proposals to attach a round.
func Batch(resource rpc.Resource, raws []json.RawMessage) ([]portal.Row, error) {
	switch resource {
	case rpc.Rounds:
		return each(resource, raws, func(raw json.RawMessage) ([]portal.Row, error) { return one(Round(raw)) })
	case rpc.Pools:
		return each(resource, raws, func(raw json.RawMessage) ([]portal.Row, error) { return one(Pool(raw)) })
	case rpc.Proposals:
		return Proposals(raws, 0)
	case rpc.Users:
		return each(resource, raws, func(raw json.RawMessage) ([]portal.Row, error) { return one(User(raw)) })
	case rpc.Milestones:
		return each(resource, raws, func(raw json.RawMessage) ([]portal.Row, error) {
			ms, err := Milestones(raw)
			if err != nil {
				return nil, err
			}
			rows := make([]portal.Row, 0, len(ms))
			for _, m := range ms {
				rows = append(rows, m)
			}
			return rows, nil
		})
	case rpc.Reviews:
		return each(resource, raws, func(raw json.RawMessage) ([]portal.Row, error) { return one(Review(raw)) })
	case rpc.Comments:
		return each(resource, raws, func(raw json.RawMessage) ([]portal.Row, error) { return one(Comment(raw)) })
	case rpc.CommentVotes:
		return each(resource, raws, func(raw json.RawMessage) ([]portal.Row, error) { return one(CommentVote(raw)) })
	default:
		return nil, fmt.Errorf("no normalizer for resource %q", resource)
	}
}

// Proposals normalizes the proposals listed under one round.
func Proposals(raws []json.RawMessage, roundID int64) ([]portal.Row, error) {
	return each(rpc.Proposals, raws, func(raw json.RawMessage) ([]portal.Row, error) {
		return one(Proposal(raw, roundID))
	})
}

func one(row portal.Row, err error) ([]portal.Row, error) {
	if err != nil {
		return nil, err
	}
	return []portal.Row{row}, nil
}

func each(resource rpc.Resource, raws []json.RawMessage, fn func(json.RawMessage) ([]portal.Row, error)) ([]portal.Row, error) {
	rows := make([]portal.Row, 0, len(raws))
	for i, raw := range raws {
		out, err := fn(raw)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				return nil, &ParseError{Resource: pe.Resource, Index: i, Err: pe.Err}
			}
			return nil, &ParseError{Resource: resource.String(), Index: i, Err: err}
		}
		rows = append(rows, out...)
	}
	return rows, nil
}
