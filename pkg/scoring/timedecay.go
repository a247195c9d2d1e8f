package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DecayParams is the bucketed linear time decay shared by the comment and proposal pipelines.
//
//	bucket = floor(ageMonths / BucketSizeMonths)
//	tw     = max(0, 1 - bucket * MonthlyDecayRate/100)
//	tw     = 0 once ageMonths >= WindowMonths
type DecayParams struct {
	WindowMonths     float64
	MonthlyDecayRate float64 // percent
	BucketSizeMonths float64
}

func parseDecay(p *paramSet) DecayParams {
	return DecayParams{
		WindowMonths:     p.number("engagement_window_months"),
		MonthlyDecayRate: p.number("monthly_decay_rate"),
		BucketSizeMonths: p.number("decay_bucket_size_months"),
	}
}

func validateDecay(p *paramSet, d DecayParams) {
	p.check(d.WindowMonths > 0, "engagement_window_months", "must be positive")
	p.check(d.BucketSizeMonths > 0, "decay_bucket_size_months", "must be positive")
	p.check(d.MonthlyDecayRate >= 0 && d.MonthlyDecayRate <= 100, "monthly_decay_rate", "must be between 0 and 100")
}

// TimeWeight returns the decay weight for an item ageMonths old and whether it falls outside
// the engagement window.
func (d DecayParams) TimeWeight(ageMonths int) (float64, bool) {
	age := float64(ageMonths)
	if age >= d.WindowMonths {
		return 0, true
	}
	bucket := math.Floor(age / d.BucketSizeMonths)
	return math.Max(0, 1-bucket*d.MonthlyDecayRate/100), false
}

// MonthsBetween counts whole calendar months from t to ref. A t after ref yields 0.
func MonthsBetween(t, ref time.Time) int {
	t, ref = t.UTC(), ref.UTC()
	if !t.Before(ref) {
		return 0
	}
	months := (ref.Year()-t.Year())*12 + int(ref.Month()) - int(t.Month())
	// An incomplete last month does not count.
	if t.AddDate(0, months, 0).After(ref) {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

// ParseTimestamp accepts RFC3339 and the common date-time layouts the portal emits.
// Layouts without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
