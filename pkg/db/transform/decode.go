package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeObject unmarshals raw into dst and returns the compacted payload for raw_json.
func decodeObject(raw json.RawMessage, dst any) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", fmt.Errorf("expected JSON object, got %s", firstByte(trimmed))
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", err
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return "", err
	}
	return buf.String(), nil
}
