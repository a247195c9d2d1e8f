package types

import "github.com/canopy-network/reputationx/pkg/db/snapshot"

// SnapshotInput starts SnapshotWorkflow.
type SnapshotInput struct {
	SnapshotID string `json:"snapshotId"`
	// Algorithms overrides the algorithms requested by the snapshot record when non-empty.
	Algorithms []string `json:"algorithms,omitempty"`
}

// SnapshotOutput summarizes a finished snapshot run.
type SnapshotOutput struct {
	SnapshotID  string            `json:"snapshotId"`
	DatabaseKey string            `json:"databaseKey"`
	SyncSkipped bool              `json:"syncSkipped"`
	Outputs     map[string]string `json:"outputs"`
}

// SnapshotIDInput is the input of activities that only need the snapshot id.
type SnapshotIDInput struct {
	SnapshotID string `json:"snapshotId"`
}

// LoadSnapshotOutput lists the algorithms the snapshot record asks for.
type LoadSnapshotOutput struct {
	Algorithms []string `json:"algorithms"`
}

// SyncSnapshotOutput is returned by SyncSnapshot.
type SyncSnapshotOutput struct {
	DatabaseKey string         `json:"databaseKey"`
	ManifestKey string         `json:"manifestKey"`
	Skipped     bool           `json:"skipped"`
	Counts      map[string]int `json:"counts"`
	DurationMs  float64        `json:"durationMs"`
}

// ComputeOutput is returned by every Compute* activity.
type ComputeOutput struct {
	Algorithm   string         `json:"algorithm"`
	Key         string         `json:"key"`
	Rows        int            `json:"rows"`
	InvalidRows int            `json:"invalidRows,omitempty"`
	Skipped     map[string]int `json:"skipped,omitempty"`
	DurationMs  float64        `json:"durationMs"`
}

// UpdateStatusInput moves a snapshot record to a new status.
type UpdateStatusInput struct {
	SnapshotID string          `json:"snapshotId"`
	Status     snapshot.Status `json:"status"`
	Error      string          `json:"error,omitempty"`
}
