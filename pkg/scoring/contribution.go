package scoring

import (
	"sort"

	"github.com/canopy-network/reputationx/pkg/db/models/portal"
)

// Skip reasons recorded for items that contribute nothing.
const (
	SkipInvalidTimestamp       = "invalid_timestamp"
	SkipOutsideWindow          = "outside_window"
	SkipNoCommunityReviews     = "no_community_reviews"
	SkipUnscoredClassification = "unscored_classification"
)

// ContributionInput is the slice of the portal store ContributionScore reads.
type ContributionInput struct {
	Comments     []*portal.Comment
	CommentVotes []*portal.CommentVote
	Proposals    []*portal.Proposal
	Users        []*portal.User
}

// CommentContribution explains the score of a single comment.
type CommentContribution struct {
	CommentID       int64
	UserID          int64
	AgeMonths       int
	TimeWeight      float64
	Upvotes         int
	Downvotes       int
	SelfInteraction bool
	OwnerUpvoted    bool
	Score           float64
	SkipReason      string
}

// UserScore is one output row.
type UserScore struct {
	UserID int64
	Score  float64
}

// ContributionResult holds per-user totals sorted by UserID and the per-comment breakdown.
type ContributionResult struct {
	Users    []UserScore
	Comments []CommentContribution
	Skipped  map[string]int
}

type voteTally struct {
	up, down int
	voters   map[int64]string
}

type proposalOwners struct {
	proposer int64
	related  map[int64]struct{}
}

// ContributionScore totals the weighted, time-decayed comment activity of every user.
//
// For each comment with u upvotes and d downvotes, base b, weights wu and wd, bonus m and
// penalty p:
//
//	bonus_then_penalty: s = (b + wu·u·(m if owner upvoted) - wd·d) · (1-p if self interaction)
//	penalty_then_bonus: s = (b + wu·u - wd·d) · (1-p if self interaction) + wu·u·(m-1 if owner upvoted)
//
// The comment adds s·tw to its author. A comment is a self interaction when its author is the
// proposal's proposer or one of its team members.
func ContributionScore(in ContributionInput, params ContributionParams) ContributionResult {
	tallies := tallyVotes(in.CommentVotes)
	owners := indexOwners(in.Proposals)

	totals := make(map[int64]float64, len(in.Users))
	for _, u := range in.Users {
		totals[u.ID] = 0
	}

	comments := make([]*portal.Comment, len(in.Comments))
	copy(comments, in.Comments)
	sort.Slice(comments, func(i, j int) bool { return comments[i].CommentID < comments[j].CommentID })

	res := ContributionResult{
		Comments: make([]CommentContribution, 0, len(comments)),
		Skipped:  make(map[string]int),
	}
	for _, c := range comments {
		if _, ok := totals[c.UserID]; !ok {
			totals[c.UserID] = 0
		}
		cc := scoreComment(c, tallies[c.CommentID], owners[c.ProposalID], params)
		if cc.SkipReason != "" {
			res.Skipped[cc.SkipReason]++
		} else {
			totals[c.UserID] += cc.Score
		}
		res.Comments = append(res.Comments, cc)
	}

	res.Users = sortedScores(totals)
	return res
}

func scoreComment(c *portal.Comment, tally *voteTally, owners *proposalOwners, params ContributionParams) CommentContribution {
	cc := CommentContribution{CommentID: c.CommentID, UserID: c.UserID}

	created, err := ParseTimestamp(c.CreatedAt)
	if err != nil {
		cc.SkipReason = SkipInvalidTimestamp
		return cc
	}
	cc.AgeMonths = MonthsBetween(created, params.ReferenceDate)
	tw, excluded := params.Decay.TimeWeight(cc.AgeMonths)
	if excluded {
		cc.SkipReason = SkipOutsideWindow
		return cc
	}
	cc.TimeWeight = tw

	if tally != nil {
		cc.Upvotes, cc.Downvotes = tally.up, tally.down
	}
	if owners != nil {
		cc.SelfInteraction = owners.isOwner(c.UserID)
		cc.OwnerUpvoted = tally != nil && tally.voters[owners.proposer] == portal.VoteUp
	}

	up := params.UpvoteWeight * float64(cc.Upvotes)
	down := params.DownvoteWeight * float64(cc.Downvotes)
	penalty := 1.0
	if cc.SelfInteraction {
		penalty = 1 - params.SelfInteractionFactor
	}

	var s float64
	switch params.Order {
	case PenaltyThenBonus:
		s = (params.BaseScore + up - down) * penalty
		if cc.OwnerUpvoted {
			s += up * (params.OwnerUpvoteBonus - 1)
		}
	default:
		if cc.OwnerUpvoted {
			up *= params.OwnerUpvoteBonus
		}
		s = (params.BaseScore + up - down) * penalty
	}
	cc.Score = s * tw
	return cc
}

func tallyVotes(votes []*portal.CommentVote) map[int64]*voteTally {
	out := make(map[int64]*voteTally)
	for _, v := range votes {
		t, ok := out[v.CommentID]
		if !ok {
			t = &voteTally{voters: make(map[int64]string)}
			out[v.CommentID] = t
		}
		switch v.VoteType {
		case portal.VoteUp:
			t.up++
		case portal.VoteDown:
			t.down++
		default:
			continue
		}
		t.voters[v.VoterID] = v.VoteType
	}
	return out
}

func indexOwners(proposals []*portal.Proposal) map[int64]*proposalOwners {
	out := make(map[int64]*proposalOwners, len(proposals))
	for _, p := range proposals {
		o := &proposalOwners{proposer: p.ProposerID, related: make(map[int64]struct{})}
		// A malformed team list leaves only the proposer as owner.
		if team, err := p.TeamMemberIDs(); err == nil {
			for _, id := range team {
				o.related[id] = struct{}{}
			}
		}
		out[p.ID] = o
	}
	return out
}

func (o *proposalOwners) isOwner(userID int64) bool {
	if userID == o.proposer {
		return true
	}
	_, ok := o.related[userID]
	return ok
}

// members lists the proposer followed by the team, without duplicates.
func (o *proposalOwners) members() []int64 {
	out := []int64{o.proposer}
	team := make([]int64, 0, len(o.related))
	for id := range o.related {
		if id != o.proposer {
			team = append(team, id)
		}
	}
	sort.Slice(team, func(i, j int) bool { return team[i] < team[j] })
	return append(out, team...)
}

func sortedScores(totals map[int64]float64) []UserScore {
	out := make([]UserScore, 0, len(totals))
	for id, s := range totals {
		out = append(out, UserScore{UserID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

