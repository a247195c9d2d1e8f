package scoring

import (
	"math"
	"sort"
	"strings"
)

// VoteOutcomes are the valid answers to a question: a skip or a rating from 1 to 10.
var VoteOutcomes = []string{"skip", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}

var validOutcome = func() map[string]struct{} {
	m := make(map[string]struct{}, len(VoteOutcomes))
	for _, o := range VoteOutcomes {
		m[o] = struct{}{}
	}
	return m
}()

// maxEntropy is log2 of the outcome count, the entropy of a perfectly uniform voter.
var maxEntropy = math.Log2(float64(len(VoteOutcomes)))

// VoteRow is one line of the vote export.
type VoteRow struct {
	CollectionID string
	QuestionID   string
	Answer       string
}

// VoterEngagement is the per-voter result.
type VoterEngagement struct {
	CollectionID     string
	Votes            int
	Entropy          float64 // bits
	VotingEngagement float64
}

// VotingResult is the output of VotingEngagement, sorted by CollectionID.
type VotingResult struct {
	Rows        []VoterEngagement
	InvalidRows int
}

// VotingEngagement scores how varied each voter's answers are.
//
//	p_o = count(o) / votes        for each outcome o
//	H   = -Σ p_o · log2(p_o)      with 0 · log2(0) = 0
//	Ve  = H / log2(11)
//
// With NormalizeObserved the divisor is log2 of the number of distinct outcomes the voter used,
// and a voter with a single outcome scores 0. Rows with a blank field or an answer outside
// VoteOutcomes are dropped and counted. A voter whose every row was dropped still appears with 0.
func VotingEngagement(rows []VoteRow, params VotingParams) VotingResult {
	counts := make(map[string]map[string]int)
	seen := make(map[string]struct{})
	invalid := 0

	for _, r := range rows {
		voter := strings.TrimSpace(r.CollectionID)
		question := strings.TrimSpace(r.QuestionID)
		answer := strings.ToLower(strings.TrimSpace(r.Answer))
		if voter != "" {
			seen[voter] = struct{}{}
		}
		if voter == "" || question == "" || answer == "" {
			invalid++
			continue
		}
		if _, ok := validOutcome[answer]; !ok {
			invalid++
			continue
		}
		byOutcome, ok := counts[voter]
		if !ok {
			byOutcome = make(map[string]int, len(VoteOutcomes))
			counts[voter] = byOutcome
		}
		byOutcome[answer]++
	}

	out := make([]VoterEngagement, 0, len(seen))
	for voter := range seen {
		res := VoterEngagement{CollectionID: voter}
		if byOutcome := counts[voter]; len(byOutcome) > 0 {
			res.Votes, res.Entropy = entropy(byOutcome)
			res.VotingEngagement = normalizeEntropy(res.Entropy, len(byOutcome), params.Normalization)
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CollectionID < out[j].CollectionID })

	return VotingResult{Rows: out, InvalidRows: invalid}
}

func entropy(byOutcome map[string]int) (int, float64) {
	total := 0
	for _, c := range byOutcome {
		total += c
	}
	h := 0.0
	// Iterate in a fixed order so the float sum is reproducible.
	for _, o := range VoteOutcomes {
		c := byOutcome[o]
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	return total, h
}

func normalizeEntropy(h float64, distinct int, mode Normalization) float64 {
	divisor := maxEntropy
	if mode == NormalizeObserved {
		if distinct <= 1 {
			return 0
		}
		divisor = math.Log2(float64(distinct))
	}
	return clamp01(h / divisor)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
