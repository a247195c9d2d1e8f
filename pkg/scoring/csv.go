package scoring

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Output column names.
const (
	ColumnCollectionID       = "collection_id"
	ColumnQuestionID         = "question_id"
	ColumnAnswer             = "answer"
	ColumnUserID             = "user_id"
	ColumnVotingEngagement   = "voting_engagement"
	ColumnContributionScore  = "contribution_score"
	ColumnProposalEngagement = "proposal_engagement"
)

// ReadVotes parses a vote export. Columns are located by header name, case-insensitively, so
// extra or reordered columns are fine. Short rows yield blank fields and are left for
// VotingEngagement to count as invalid.
func ReadVotes(r io.Reader) ([]VoteRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read votes: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read votes header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	for _, col := range []string{ColumnCollectionID, ColumnQuestionID, ColumnAnswer} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("read votes: missing column %q", col)
		}
	}

	field := func(rec []string, col string) string {
		if i := idx[col]; i < len(rec) {
			return rec[i]
		}
		return ""
	}

	rows := make([]VoteRow, 0)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read votes: %w", err)
		}
		rows = append(rows, VoteRow{
			CollectionID: field(rec, ColumnCollectionID),
			QuestionID:   field(rec, ColumnQuestionID),
			Answer:       field(rec, ColumnAnswer),
		})
	}
	return rows, nil
}

// EncodeVoting renders voting_engagement.csv.
func EncodeVoting(rows []VoterEngagement) ([]byte, error) {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{r.CollectionID, formatScore(r.VotingEngagement)})
	}
	return encodeCSV([]string{ColumnCollectionID, ColumnVotingEngagement}, records)
}

// EncodeUserScores renders a user_id keyed result under the given score column.
func EncodeUserScores(column string, rows []UserScore) ([]byte, error) {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{strconv.FormatInt(r.UserID, 10), formatScore(r.Score)})
	}
	return encodeCSV([]string{ColumnUserID, column}, records)
}

func encodeCSV(header []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatScore(v float64) string {
	if v == 0 {
		// Drop the sign of negative zero.
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
