package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParamError reports a missing or invalid algorithm parameter. It is raised before any IO.
type ParamError struct {
	Algorithm string
	Param     string
	Reason    string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: parameter %q %s", e.Algorithm, e.Param, e.Reason)
}

// paramSet reads typed values from a raw parameter map, keeping the first error.
type paramSet struct {
	algorithm string
	raw       map[string]any
	err       error
}

func newParamSet(algorithm string, raw map[string]any) *paramSet {
	if raw == nil {
		raw = map[string]any{}
	}
	return &paramSet{algorithm: algorithm, raw: raw}
}

func (p *paramSet) fail(name, reason string) {
	if p.err == nil {
		p.err = &ParamError{Algorithm: p.algorithm, Param: name, Reason: reason}
	}
}

// number reads a required number. Numeric strings are accepted.
func (p *paramSet) number(name string) float64 {
	v, ok := p.raw[name]
	if !ok || v == nil {
		p.fail(name, "is required")
		return 0
	}
	f, err := toFloat(v)
	if err != nil {
		p.fail(name, err.Error())
		return 0
	}
	return f
}

// optionalNumber reads a number, falling back to def when absent.
func (p *paramSet) optionalNumber(name string, def float64) float64 {
	if v, ok := p.raw[name]; !ok || v == nil {
		return def
	}
	return p.number(name)
}

func (p *paramSet) str(name, def string) string {
	v, ok := p.raw[name]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		p.fail(name, "must be a string")
		return def
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// date reads an optional RFC3339 or YYYY-MM-DD date.
func (p *paramSet) date(name string, def time.Time) time.Time {
	v, ok := p.raw[name]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if strings.TrimSpace(t) == "" {
			return def
		}
		parsed, err := ParseTimestamp(t)
		if err != nil {
			p.fail(name, "must be an RFC3339 date")
			return def
		}
		return parsed
	default:
		p.fail(name, "must be a date string")
		return def
	}
}

func (p *paramSet) check(cond bool, name, reason string) {
	if !cond {
		p.fail(name, reason)
	}
}

func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return 0, fmt.Errorf("is not a number")
		}
		f = d.InexactFloat64()
	case decimal.Decimal:
		f = n.InexactFloat64()
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("is not a number")
		}
		f = d.InexactFloat64()
	default:
		return 0, fmt.Errorf("is not a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("is not a finite number")
	}
	return f, nil
}

// ScoreOrder selects how the self-interaction penalty and the owner bonus compose.
type ScoreOrder string

const (
	// BonusThenPenalty multiplies upvotes by the bonus, then scales the whole score by the penalty.
	BonusThenPenalty ScoreOrder = "bonus_then_penalty"
	// PenaltyThenBonus scales the base score by the penalty, then adds the bonus share of upvotes.
	PenaltyThenBonus ScoreOrder = "penalty_then_bonus"
)

// ContributionParams configures ContributionScore.
type ContributionParams struct {
	BaseScore             float64
	UpvoteWeight          float64
	DownvoteWeight        float64
	SelfInteractionFactor float64
	OwnerUpvoteBonus      float64
	Decay                 DecayParams
	ReferenceDate         time.Time
	Order                 ScoreOrder
}

// ParseContributionParams validates the raw contribution_score parameter set.
// now is used when reference_date is absent.
func ParseContributionParams(raw map[string]any, now time.Time) (ContributionParams, error) {
	p := newParamSet(AlgorithmContributionScore, raw)
	params := ContributionParams{
		BaseScore:             p.number("base_score"),
		UpvoteWeight:          p.number("upvote_weight"),
		DownvoteWeight:        p.number("downvote_weight"),
		SelfInteractionFactor: p.number("self_interaction_penalty_factor"),
		OwnerUpvoteBonus:      p.number("owner_upvote_bonus_multiplier"),
		Decay:                 parseDecay(p),
		ReferenceDate:         p.date("reference_date", now),
		Order:                 ScoreOrder(p.str("score_order", string(BonusThenPenalty))),
	}
	if p.err == nil {
		p.check(params.SelfInteractionFactor >= 0 && params.SelfInteractionFactor <= 1,
			"self_interaction_penalty_factor", "must be between 0 and 1")
		p.check(params.OwnerUpvoteBonus >= 0, "owner_upvote_bonus_multiplier", "must not be negative")
		p.check(params.Order == BonusThenPenalty || params.Order == PenaltyThenBonus,
			"score_order", "must be bonus_then_penalty or penalty_then_bonus")
		validateDecay(p, params.Decay)
	}
	return params, p.err
}

// ProposalEngagementParams configures ProposalEngagement.
type ProposalEngagementParams struct {
	FundedWeight        float64
	UnfundedWeight      float64
	Decay               DecayParams
	ReferenceDate       time.Time
	CommunityReviewType string
	RatingMin           float64
	RatingMax           float64
}

// ParseProposalEngagementParams validates the raw proposal_engagement parameter set.
func ParseProposalEngagementParams(raw map[string]any, now time.Time) (ProposalEngagementParams, error) {
	p := newParamSet(AlgorithmProposalEngagement, raw)
	params := ProposalEngagementParams{
		FundedWeight:        p.number("funded_weight"),
		UnfundedWeight:      p.number("unfunded_weight"),
		Decay:               parseDecay(p),
		ReferenceDate:       p.date("reference_date", now),
		CommunityReviewType: strings.ToLower(p.str("community_review_type", "community")),
		RatingMin:           p.optionalNumber("rating_min", 1),
		RatingMax:           p.optionalNumber("rating_max", 5),
	}
	if p.err == nil {
		p.check(params.RatingMax > params.RatingMin, "rating_max", "must be greater than rating_min")
		validateDecay(p, params.Decay)
	}
	return params, p.err
}

// Normalization selects the entropy divisor used by VotingEngagement.
type Normalization string

const (
	// NormalizeMaxEntropy divides by log2(11), the entropy of a uniform vote over every outcome.
	NormalizeMaxEntropy Normalization = "max_entropy"
	// NormalizeObserved divides by log2 of the number of distinct outcomes the voter used.
	NormalizeObserved Normalization = "observed"
)

// VotingParams configures VotingEngagement.
type VotingParams struct {
	Normalization Normalization
	// VotesKey overrides the object holding the vote export.
	VotesKey string
}

// ParseVotingParams validates the raw voting_engagement parameter set. Every field is optional.
func ParseVotingParams(raw map[string]any) (VotingParams, error) {
	p := newParamSet(AlgorithmVotingEngagement, raw)
	params := VotingParams{
		Normalization: Normalization(p.str("normalization", string(NormalizeMaxEntropy))),
		VotesKey:      p.str("votes_key", ""),
	}
	if p.err == nil {
		p.check(params.Normalization == NormalizeMaxEntropy || params.Normalization == NormalizeObserved,
			"normalization", "must be max_entropy or observed")
	}
	return params, p.err
}
