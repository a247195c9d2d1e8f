package transform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/canopy-network/reputationx/pkg/db/models/portal"
	"github.com/canopy-network/reputationx/pkg/utils"
)

// RawComment is the portal shape of a comment. The id may arrive as comment_id or id.
type RawComment struct {
	CommentID    flexInt    `json:"comment_id"`
	ID           flexInt    `json:"id"`
	ParentID     flexInt    `json:"parent_id"`
	IsReply      *flexBool  `json:"is_reply"`
	UserID       flexInt    `json:"user_id"`
	ProposalID   flexInt    `json:"proposal_id"`
	Content      flexString `json:"content"`
	CommentVotes flexInt    `json:"comment_votes"`
	CreatedAt    flexString `json:"created_at"`
	UpdatedAt    flexString `json:"updated_at"`
}

// Comment converts a raw comment into its row. is_reply defaults to whether a parent is set.
func Comment(raw json.RawMessage) (*portal.Comment, error) {
	var c RawComment
	rawJSON, err := decodeObject(raw, &c)
	if err != nil {
		return nil, parseErr(portal.CommentsTableName, err)
	}
	id := c.CommentID
	if !id.Valid {
		id = c.ID
	}
	switch {
	case !id.Valid:
		return nil, parseErr(portal.CommentsTableName, missing("comment_id"))
	case !c.UserID.Valid:
		return nil, parseErr(portal.CommentsTableName, missing("user_id"))
	case !c.ProposalID.Valid:
		return nil, parseErr(portal.CommentsTableName, missing("proposal_id"))
	}

	isReply := c.ParentID.Valid
	if c.IsReply != nil {
		isReply = bool(*c.IsReply)
	}

	return &portal.Comment{
		CommentID:    id.Value,
		ParentID:     c.ParentID.ptr(),
		IsReply:      utils.BoolToUInt8(isReply),
		UserID:       c.UserID.Value,
		ProposalID:   c.ProposalID.Value,
		Content:      strOr(c.Content),
		CommentVotes: c.CommentVotes.Value,
		CreatedAt:    strOr(c.CreatedAt),
		UpdatedAt:    c.UpdatedAt.ptr(),
		RawJSON:      rawJSON,
	}, nil
}

// RawCommentVote is the portal shape of a comment vote. The voter may arrive as voter_id or user_id.
type RawCommentVote struct {
	VoterID   flexInt    `json:"voter_id"`
	UserID    flexInt    `json:"user_id"`
	CommentID flexInt    `json:"comment_id"`
	VoteType  flexString `json:"vote_type"`
	CreatedAt flexString `json:"created_at"`
}

// CommentVote converts a raw vote into its row. vote_type must be upvote or downvote.
func CommentVote(raw json.RawMessage) (*portal.CommentVote, error) {
	var v RawCommentVote
	rawJSON, err := decodeObject(raw, &v)
	if err != nil {
		return nil, parseErr(portal.CommentVotesTableName, err)
	}
	voter := v.VoterID
	if !voter.Valid {
		voter = v.UserID
	}
	switch {
	case !voter.Valid:
		return nil, parseErr(portal.CommentVotesTableName, missing("voter_id"))
	case !v.CommentID.Valid:
		return nil, parseErr(portal.CommentVotesTableName, missing("comment_id"))
	}

	voteType := strings.ToLower(strings.TrimSpace(strOr(v.VoteType)))
	if voteType != portal.VoteUp && voteType != portal.VoteDown {
		return nil, parseErr(portal.CommentVotesTableName, fmt.Errorf("invalid vote_type %q", strOr(v.VoteType)))
	}

	return &portal.CommentVote{
		VoterID:   voter.Value,
		CommentID: v.CommentID.Value,
		VoteType:  voteType,
		CreatedAt: v.CreatedAt.ptr(),
		RawJSON:   rawJSON,
	}, nil
}
