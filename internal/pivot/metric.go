package pivot

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Derivation selects how a metric value is produced from record fields.
type Derivation string

const (
	// Raw passes the field value through.
	Raw Derivation = "raw"
	// RatioPercent is current / previous * 100.
	RatioPercent Derivation = "ratioPercent"
	// GrowthPercent is (current - previous) / previous * 100.
	GrowthPercent Derivation = "growthPercent"
	// DurationSeconds reads "hh:mm:ss" style values as seconds.
	DurationSeconds Derivation = "durationSeconds"
)

var validate = validator.New()

// MetricSpec describes one selectable metric of a dashboard page.
//
// Raw and DurationSeconds metrics read the first of Keys present on a record,
// so alternative upstream field names can be listed. Ratio and growth metrics
// take [previousKey, currentKey] with an optional third key holding the value
// already derived upstream.
type MetricSpec struct {
	Name string     `json:"name" yaml:"name" validate:"required,excludes=_"`
	Keys []string   `json:"keys" yaml:"keys" validate:"required,min=1,max=3,dive,required"`
	Kind Derivation `json:"kind,omitempty" yaml:"kind" validate:"omitempty,oneof=raw ratioPercent growthPercent durationSeconds"`
}

// Derivation returns the effective kind, defaulting to Raw.
func (m MetricSpec) Derivation() Derivation {
	if m.Kind == "" {
		return Raw
	}
	return m.Kind
}

// IsRatio reports whether totals of m must be recomputed from sums.
func (m MetricSpec) IsRatio() bool {
	k := m.Derivation()
	return k == RatioPercent || k == GrowthPercent
}

// Validate checks the spec shape.
func (m MetricSpec) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("metric %q: %w", m.Name, err)
	}
	if m.IsRatio() && len(m.Keys) < 2 {
		return fmt.Errorf("metric %q: %s needs previous and current keys", m.Name, m.Kind)
	}
	return nil
}

// RatioPercentOf returns current/previous*100, or zero when previous is zero.
func RatioPercentOf(current, previous float64) float64 {
	if almostZero(previous) {
		return 0
	}
	return current / previous * 100
}

// GrowthPercentOf returns (current-previous)/previous*100, or zero when
// previous is zero.
func GrowthPercentOf(current, previous float64) float64 {
	if almostZero(previous) {
		return 0
	}
	return (current - previous) / previous * 100
}

// FormatValue renders v for display according to the metric kind.
func FormatValue(m MetricSpec, v float64) string {
	switch m.Derivation() {
	case DurationSeconds:
		return FormatDuration(v)
	case RatioPercent, GrowthPercent:
		return strconv.FormatFloat(v, 'f', 2, 64) + "%"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

func almostZero(v float64) bool {
	return v > -0.0001 && v < 0.0001
}
