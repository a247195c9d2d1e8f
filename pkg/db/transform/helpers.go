package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var jsonNull = []byte("null")

// unquote strips JSON string quotes, leaving other literals untouched.
func unquote(b []byte) (string, bool, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", true, err
		}
		return strings.TrimSpace(s), true, nil
	}
	return string(b), false, nil
}

// flexInt accepts 12, 12.0, "12", null and "".
type flexInt struct {
	Value int64
	Valid bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	*f = flexInt{}
	if bytes.Equal(bytes.TrimSpace(b), jsonNull) {
		return nil
	}
	s, _, err := unquote(b)
	if err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt{Value: n, Valid: true}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid integer %s", string(b))
	}
	*f = flexInt{Value: int64(v), Valid: true}
	return nil
}

func (f flexInt) ptr() *int64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// flexString accepts strings, numbers and booleans; null leaves it invalid.
type flexString struct {
	Value string
	Valid bool
}

func (f *flexString) UnmarshalJSON(b []byte) error {
	*f = flexString{}
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, jsonNull) {
		return nil
	}
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return fmt.Errorf("expected scalar, got %s", firstByte(trimmed))
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString{Value: s, Valid: true}
		return nil
	}
	*f = flexString{Value: string(trimmed), Valid: true}
	return nil
}

// ptr returns nil for absent, null and blank values.
func (f flexString) ptr() *string {
	if !f.Valid || strings.TrimSpace(f.Value) == "" {
		return nil
	}
	v := f.Value
	return &v
}

// flexBool accepts true/false, 0/1 and their string forms; null is false.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), jsonNull) {
		*f = false
		return nil
	}
	s, _, err := unquote(b)
	if err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "true", "1", "t", "yes":
		*f = true
	case "false", "0", "f", "no", "":
		*f = false
	default:
		return fmt.Errorf("invalid boolean %s", string(b))
	}
	return nil
}

// flexDecimal accepts JSON numbers and numeric strings; null and "" are absent.
type flexDecimal struct {
	Value decimal.Decimal
	Valid bool
}

func (f *flexDecimal) UnmarshalJSON(b []byte) error {
	*f = flexDecimal{}
	if bytes.Equal(bytes.TrimSpace(b), jsonNull) {
		return nil
	}
	s, _, err := unquote(b)
	if err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid number %s", string(b))
	}
	*f = flexDecimal{Value: d, Valid: true}
	return nil
}

// String returns the canonical decimal text, "0" when absent.
func (f flexDecimal) String() string {
	if !f.Valid {
		return "0"
	}
	return f.Value.String()
}

func (f flexDecimal) ptr() *string {
	if !f.Valid {
		return nil
	}
	s := f.Value.String()
	return &s
}

// idList accepts an array of ids or of objects carrying "id" (or "user_id").
type idList []int64

func (l *idList) UnmarshalJSON(b []byte) error {
	*l = idList{}
	if bytes.Equal(bytes.TrimSpace(b), jsonNull) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("expected array of ids: %w", err)
	}
	ids := make(idList, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '{' {
			var obj struct {
				ID     flexInt `json:"id"`
				UserID flexInt `json:"user_id"`
			}
			if err := json.Unmarshal(item, &obj); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			switch {
			case obj.ID.Valid:
				ids = append(ids, obj.ID.Value)
			case obj.UserID.Valid:
				ids = append(ids, obj.UserID.Value)
			default:
				return fmt.Errorf("item %d: object without id", i)
			}
			continue
		}
		var id flexInt
		if err := json.Unmarshal(item, &id); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		if !id.Valid {
			return fmt.Errorf("item %d: null id", i)
		}
		ids = append(ids, id.Value)
	}
	*l = ids
	return nil
}

// encode returns the list as a JSON array; nil encodes as [].
func (l idList) encode() string {
	if l == nil {
		return "[]"
	}
	b, _ := json.Marshal([]int64(l))
	return string(b)
}

// strOr returns the string value or "" when absent.
func strOr(f flexString) string {
	if !f.Valid {
		return ""
	}
	return f.Value
}

func firstByte(b []byte) string {
	if len(b) == 0 {
		return "empty"
	}
	return string(b[:1])
}
