package ingest

import (
	"encoding/json"
	"time"
)

// Manifest is the completion marker of a sync. It is written last, only after the store file
// has been uploaded.
type Manifest struct {
	SnapshotID  string         `json:"snapshotId"`
	RunID       string         `json:"runId"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt time.Time      `json:"completedAt"`
	DBKey       string         `json:"dbKey"`
	RawPrefix   string         `json:"rawPrefix"`
	Counts      map[string]int `json:"counts"`
}

// Encode returns the indented JSON form stored in object storage.
func (m *Manifest) Encode() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// DecodeManifest parses a stored manifest.
func DecodeManifest(b []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
