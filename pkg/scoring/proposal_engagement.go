package scoring

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/canopy-network/reputationx/pkg/db/models/portal"
)

// Proposal classifications.
const (
	ClassFundedConcluded = "funded_concluded"
	ClassUnfunded        = "unfunded"
	ClassOther           = "other"
)

// ProposalInput is the slice of the portal store ProposalEngagement reads.
type ProposalInput struct {
	Proposals []*portal.Proposal
	Reviews   []*portal.Review
	Users     []*portal.User
}

// ProposalContribution explains how one proposal was scored.
type ProposalContribution struct {
	ProposalID     int64
	Classification string
	AgeMonths      int
	TimeWeight     float64
	Reviews        int
	MeanRating     float64
	Norm           float64
	Reward         float64
	Penalty        float64
	Recipients     []int64
	SkipReason     string
}

// ProposalResult holds per-user scores sorted by UserID and the per-proposal breakdown.
type ProposalResult struct {
	Users     []UserScore
	Proposals []ProposalContribution
	Skipped   map[string]int
}

// Classify buckets a proposal by its funding outcome.
func Classify(p *portal.Proposal) string {
	switch {
	case p.Awarded() && p.Completed():
		return ClassFundedConcluded
	case !p.Awarded():
		return ClassUnfunded
	default:
		return ClassOther
	}
}

// ProposalEngagement rewards proposers whose delivered work was rated well by the community and
// penalizes those whose unfunded proposals were rated poorly.
//
//	norm    = clamp((mean rating - rating_min) / (rating_max - rating_min), 0, 1)
//	reward  = tw · norm          funded_concluded
//	penalty = tw · (1 - norm)    unfunded
//	score   = funded_weight · Σreward - unfunded_weight · Σpenalty
//
// Reward and penalty go to the proposer and every team member.
func ProposalEngagement(in ProposalInput, params ProposalEngagementParams) ProposalResult {
	ratings := communityRatings(in.Reviews, params.CommunityReviewType)

	rewards := make(map[int64]float64)
	penalties := make(map[int64]float64)
	recipients := make(map[int64]struct{}, len(in.Users))
	for _, u := range in.Users {
		recipients[u.ID] = struct{}{}
	}

	proposals := make([]*portal.Proposal, len(in.Proposals))
	copy(proposals, in.Proposals)
	sort.Slice(proposals, func(i, j int) bool { return proposals[i].ID < proposals[j].ID })

	res := ProposalResult{
		Proposals: make([]ProposalContribution, 0, len(proposals)),
		Skipped:   make(map[string]int),
	}
	for _, p := range proposals {
		pc := scoreProposal(p, ratings[p.ID], params)
		res.Proposals = append(res.Proposals, pc)
		if pc.SkipReason != "" {
			res.Skipped[pc.SkipReason]++
			continue
		}
		for _, id := range pc.Recipients {
			recipients[id] = struct{}{}
			rewards[id] += pc.Reward
			penalties[id] += pc.Penalty
		}
	}

	totals := make(map[int64]float64, len(recipients))
	for id := range recipients {
		totals[id] = params.FundedWeight*rewards[id] - params.UnfundedWeight*penalties[id]
	}
	res.Users = sortedScores(totals)
	return res
}

func scoreProposal(p *portal.Proposal, ratings []float64, params ProposalEngagementParams) ProposalContribution {
	pc := ProposalContribution{ProposalID: p.ID, Classification: Classify(p), Reviews: len(ratings)}

	created, err := ParseTimestamp(p.CreatedAt)
	if err != nil {
		pc.SkipReason = SkipInvalidTimestamp
		return pc
	}
	pc.AgeMonths = MonthsBetween(created, params.ReferenceDate)
	tw, excluded := params.Decay.TimeWeight(pc.AgeMonths)
	if excluded {
		pc.SkipReason = SkipOutsideWindow
		return pc
	}
	pc.TimeWeight = tw
	if len(ratings) == 0 {
		pc.SkipReason = SkipNoCommunityReviews
		return pc
	}
	if pc.Classification == ClassOther {
		pc.SkipReason = SkipUnscoredClassification
		return pc
	}

	pc.MeanRating = mean(ratings)
	pc.Norm = clamp01((pc.MeanRating - params.RatingMin) / (params.RatingMax - params.RatingMin))
	if pc.Classification == ClassFundedConcluded {
		pc.Reward = tw * pc.Norm
	} else {
		pc.Penalty = tw * (1 - pc.Norm)
	}
	pc.Recipients = indexOwners([]*portal.Proposal{p})[p.ID].members()
	return pc
}

// communityRatings collects one rating per usable community review, keyed by proposal.
func communityRatings(reviews []*portal.Review, reviewType string) map[int64][]float64 {
	out := make(map[int64][]float64)
	for _, r := range reviews {
		if r.ProposalID == nil || !strings.EqualFold(strings.TrimSpace(r.ReviewType), reviewType) {
			continue
		}
		if rating, ok := reviewRating(r); ok {
			out[*r.ProposalID] = append(out[*r.ProposalID], rating)
		}
	}
	return out
}

// reviewRating is the overall rating, or the mean of the dimension ratings when it is absent.
func reviewRating(r *portal.Review) (float64, bool) {
	if v, ok := parseRating(r.OverallRating); ok {
		return v, true
	}
	dims := make([]float64, 0, 4)
	for _, d := range r.DimensionRatings() {
		if v, ok := parseRating(d); ok {
			dims = append(dims, v)
		}
	}
	if len(dims) == 0 {
		return 0, false
	}
	return mean(dims), true
}

func parseRating(s *string) (float64, bool) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*s))
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

func mean(vs []float64) float64 {
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
