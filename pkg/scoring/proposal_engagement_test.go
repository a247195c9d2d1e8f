package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/reputationx/pkg/db/models/portal"
)

func ptr[T any](v T) *T { return &v }

func engagementParams() ProposalEngagementParams {
	return ProposalEngagementParams{
		FundedWeight:        2,
		UnfundedWeight:      1,
		Decay:               DecayParams{WindowMonths: 12, MonthlyDecayRate: 10, BucketSizeMonths: 3},
		ReferenceDate:       date("2024-07-01T00:00:00Z"),
		CommunityReviewType: "community",
		RatingMin:           1,
		RatingMax:           5,
	}
}

func engagementFixture() ProposalInput {
	return ProposalInput{
		Users: []*portal.User{{ID: 5}, {ID: 1}},
		Proposals: []*portal.Proposal{
			{ID: 6, ProposerID: 9, IsAwarded: 1, IsCompleted: 1, CreatedAt: "2022-01-01"},
			{ID: 1, ProposerID: 1, TeamMembers: "[2, 1]", IsAwarded: 1, IsCompleted: 1, CreatedAt: "2024-05-01T00:00:00Z"},
			{ID: 2, ProposerID: 3, IsAwarded: 0, CreatedAt: "2024-02-15T00:00:00Z"},
			{ID: 3, ProposerID: 7, IsAwarded: 1, IsCompleted: 1, CreatedAt: "2024-05-01"},
			{ID: 4, ProposerID: 8, IsAwarded: 1, IsCompleted: 0, CreatedAt: "2024-05-01"},
			{ID: 5, ProposerID: 9, IsAwarded: 0, CreatedAt: "garbage"},
		},
		Reviews: []*portal.Review{
			{ReviewID: 1, ProposalID: ptr(int64(1)), ReviewType: "community", OverallRating: ptr("5")},
			{ReviewID: 2, ProposalID: ptr(int64(1)), ReviewType: "Community", OverallRating: ptr("4.0")},
			{ReviewID: 3, ProposalID: ptr(int64(1)), ReviewType: "expert", OverallRating: ptr("1")},
			{ReviewID: 4, ProposalID: ptr(int64(2)), ReviewType: "community",
				FeasibilityRating: ptr("2"), ViabilityRating: ptr("3"), UsefulnessRating: ptr("n/a")},
			{ReviewID: 5, ProposalID: ptr(int64(4)), ReviewType: "community", OverallRating: ptr("3")},
			{ReviewID: 6, ProposalID: ptr(int64(5)), ReviewType: "community", OverallRating: ptr("3")},
			{ReviewID: 7, ProposalID: ptr(int64(6)), ReviewType: "community", OverallRating: ptr("3")},
			{ReviewID: 8, ReviewType: "community", OverallRating: ptr("3")},
		},
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassFundedConcluded, Classify(&portal.Proposal{IsAwarded: 1, IsCompleted: 1}))
	assert.Equal(t, ClassUnfunded, Classify(&portal.Proposal{}))
	assert.Equal(t, ClassUnfunded, Classify(&portal.Proposal{IsCompleted: 1}))
	assert.Equal(t, ClassOther, Classify(&portal.Proposal{IsAwarded: 1}))
}

func TestProposalEngagement_Scores(t *testing.T) {
	res := ProposalEngagement(engagementFixture(), engagementParams())

	got := scoresByUser(res.Users)
	// tw 1, norm (4.5-1)/4 = 0.875, weight 2
	assert.InDelta(t, 1.75, got[1], 1e-9)
	assert.InDelta(t, 1.75, got[2], 1e-9)
	// tw 0.9, norm (2.5-1)/4 = 0.375
	assert.InDelta(t, -0.9*0.625, got[3], 1e-9)
	assert.Zero(t, got[5])

	ids := make([]int64, 0, len(res.Users))
	for _, u := range res.Users {
		ids = append(ids, u.UserID)
	}
	assert.Equal(t, []int64{1, 2, 3, 5}, ids)
}

func TestProposalEngagement_SkipReasons(t *testing.T) {
	res := ProposalEngagement(engagementFixture(), engagementParams())
	require.Len(t, res.Proposals, 6)

	reasons := make(map[int64]string)
	for _, p := range res.Proposals {
		reasons[p.ProposalID] = p.SkipReason
	}
	assert.Equal(t, map[int64]string{
		1: "",
		2: "",
		3: SkipNoCommunityReviews,
		4: SkipUnscoredClassification,
		5: SkipInvalidTimestamp,
		6: SkipOutsideWindow,
	}, reasons)
	assert.Equal(t, 4, len(res.Skipped))

	funded := res.Proposals[0]
	assert.Equal(t, []int64{1, 2}, funded.Recipients)
	assert.Equal(t, 2, funded.Reviews)
	assert.InDelta(t, 4.5, funded.MeanRating, 1e-9)
}

func TestProposalEngagement_NoReviewsBeatsClassification(t *testing.T) {
	in := ProposalInput{Proposals: []*portal.Proposal{
		{ID: 1, ProposerID: 1, IsAwarded: 1, IsCompleted: 1, CreatedAt: "2024-06-01"},
		{ID: 2, ProposerID: 2, IsAwarded: 1, CreatedAt: "2024-06-01"},
	}}
	res := ProposalEngagement(in, engagementParams())

	assert.Equal(t, SkipNoCommunityReviews, res.Proposals[0].SkipReason)
	assert.Equal(t, SkipNoCommunityReviews, res.Proposals[1].SkipReason)
	assert.Empty(t, res.Users)
}

func TestProposalEngagement_NormIsClamped(t *testing.T) {
	in := ProposalInput{
		Proposals: []*portal.Proposal{{ID: 1, ProposerID: 1, IsAwarded: 1, IsCompleted: 1, CreatedAt: "2024-06-01"}},
		Reviews:   []*portal.Review{{ReviewID: 1, ProposalID: ptr(int64(1)), ReviewType: "community", OverallRating: ptr("9")}},
	}
	res := ProposalEngagement(in, engagementParams())
	assert.Equal(t, 1.0, res.Proposals[0].Norm)
	assert.InDelta(t, 2.0, res.Users[0].Score, 1e-9)
}
