package scoring

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadVotes_HeaderDriven(t *testing.T) {
	in := "\ufeffAnswer,extra,Collection_ID,question_id\n" +
		"skip,x,u1,q1\n" +
		" 10 ,y,u2,q2\n" +
		"3\n"
	rows, err := ReadVotes(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, VoteRow{CollectionID: "u1", QuestionID: "q1", Answer: "skip"}, rows[0])
	assert.Equal(t, "u2", rows[1].CollectionID)
	assert.Equal(t, VoteRow{Answer: "3"}, rows[2])
}

func TestReadVotes_Errors(t *testing.T) {
	_, err := ReadVotes(strings.NewReader(""))
	assert.ErrorContains(t, err, "empty input")

	_, err = ReadVotes(strings.NewReader("collection_id,answer\nu1,1\n"))
	assert.ErrorContains(t, err, `missing column "question_id"`)
}

func TestEncodeVoting(t *testing.T) {
	body, err := EncodeVoting([]VoterEngagement{
		{CollectionID: "a", VotingEngagement: 1},
		{CollectionID: "b", VotingEngagement: 0.25},
	})
	require.NoError(t, err)
	assert.Equal(t, "collection_id,voting_engagement\na,1\nb,0.25\n", string(body))
}

func TestEncodeUserScores(t *testing.T) {
	body, err := EncodeUserScores(ColumnContributionScore, []UserScore{
		{UserID: 1, Score: math.Copysign(0, -1)},
		{UserID: 12, Score: -3.5},
	})
	require.NoError(t, err)
	assert.Equal(t, "user_id,contribution_score\n1,0\n12,-3.5\n", string(body))

	body, err = EncodeUserScores(ColumnProposalEngagement, nil)
	require.NoError(t, err)
	assert.Equal(t, "user_id,proposal_engagement\n", string(body))
}
