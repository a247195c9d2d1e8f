package objectstore

import "fmt"

// DatabaseName is the resource name of the snapshot store file.
const DatabaseName = "portal"

// RawPrefix is the folder holding every object of one snapshot.
func RawPrefix(snapshotID string) string {
	return fmt.Sprintf("snapshot/%s/", snapshotID)
}

// RawKey is the object holding a non-paginated resource, e.g. snapshot/7/rounds.json.
func RawKey(snapshotID, resource string) string {
	return fmt.Sprintf("snapshot/%s/%s.json", snapshotID, resource)
}

// PageKey is the object holding one page of a paginated resource, e.g. snapshot/7/users/page_2.json.
func PageKey(snapshotID, resource string, page int) string {
	return fmt.Sprintf("snapshot/%s/%s/page_%d.json", snapshotID, resource, page)
}

// RoundProposalsKey is the object holding the proposals listed under one round.
func RoundProposalsKey(snapshotID string, roundID int64) string {
	return fmt.Sprintf("snapshot/%s/proposals/round_%d.json", snapshotID, roundID)
}

// DatabaseKey is the finished snapshot store file.
func DatabaseKey(snapshotID string) string {
	return fmt.Sprintf("snapshot/%s/%s.db", snapshotID, DatabaseName)
}

// ManifestKey is the completion marker written after a successful sync.
func ManifestKey(snapshotID string) string {
	return fmt.Sprintf("snapshot/%s/manifest.json", snapshotID)
}

// ResultKey is a scoring output, e.g. snapshot/7/results/voting_engagement.csv.
func ResultKey(snapshotID, name string) string {
	return fmt.Sprintf("snapshot/%s/results/%s.csv", snapshotID, name)
}

// VotesKey is the default location of the voting export consumed by voting engagement.
func VotesKey(snapshotID string) string {
	return fmt.Sprintf("snapshot/%s/votes.csv", snapshotID)
}
