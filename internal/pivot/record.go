package pivot

import (
	"slices"

	"github.com/odyssey-erp/pivotboard/internal/category"
)

// RawRecord is one row returned by the data source for a period.
type RawRecord struct {
	Category string         `json:"category"`
	Fields   map[string]any `json:"fields"`
}

// Lookup returns the coerced value of key and whether the record carries it.
func (r RawRecord) Lookup(key string) (float64, bool) {
	v, ok := r.Fields[key]
	if !ok {
		return 0, false
	}
	return Coerce(v), true
}

// PeriodBlock groups the records fetched for one period.
type PeriodBlock struct {
	Period  string      `json:"period"`
	Records []RawRecord `json:"records"`
}

// Option customises how records are attributed to categories.
type Option func(*options)

type options struct {
	rollup *category.Resolver
}

// WithRollup attributes each record to the parent city of its branch label.
// Unmapped branches are attributed to category.Others.
func WithRollup(r *category.Resolver) Option {
	return func(o *options) {
		o.rollup = r
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (o options) categoryOf(label string) string {
	if o.rollup != nil {
		return o.rollup.ParentOf(label)
	}
	return label
}

// Observed lists the categories seen across periods, first-seen casing kept.
func Observed(periods []PeriodBlock, opts ...Option) []string {
	o := newOptions(opts)
	labels := make([]string, 0)
	for _, block := range periods {
		for _, rec := range block.Records {
			labels = append(labels, o.categoryOf(rec.Category))
		}
	}
	return category.Dedupe(labels)
}

// mergePeriods folds blocks that share a period into the first of them, so
// each period yields a single chart row and pivot column.
func mergePeriods(periods []PeriodBlock) []PeriodBlock {
	out := make([]PeriodBlock, 0, len(periods))
	pos := make(map[string]int, len(periods))
	for _, block := range periods {
		if i, ok := pos[block.Period]; ok {
			out[i].Records = append(out[i].Records, block.Records...)
			continue
		}
		pos[block.Period] = len(out)
		out = append(out, PeriodBlock{Period: block.Period, Records: slices.Clone(block.Records)})
	}
	return out
}

// tally accumulates the underlying sums of one metric cell.
type tally struct {
	value    float64
	previous float64
	current  float64
	derived  float64

	underlying bool
	hasDerived bool
}

func (t *tally) add(rec RawRecord, m MetricSpec) {
	switch m.Derivation() {
	case RatioPercent, GrowthPercent:
		if len(m.Keys) == 0 {
			return
		}
		prev, okPrev := rec.Lookup(m.Keys[0])
		var curr float64
		var okCurr bool
		if len(m.Keys) > 1 {
			curr, okCurr = rec.Lookup(m.Keys[1])
		}
		t.previous += prev
		t.current += curr
		if okPrev || okCurr {
			t.underlying = true
			return
		}
		if len(m.Keys) > 2 && !t.hasDerived {
			if v, ok := rec.Lookup(m.Keys[2]); ok {
				t.derived = v
				t.hasDerived = true
			}
		}
	default:
		for _, key := range m.Keys {
			if v, ok := rec.Lookup(key); ok {
				t.value += v
				return
			}
		}
	}
}

// merge folds another cell into t. Upstream derived values cannot be summed
// and are dropped.
func (t *tally) merge(o tally) {
	t.value += o.value
	t.previous += o.previous
	t.current += o.current
	t.underlying = t.underlying || o.underlying
}

func (t tally) result(m MetricSpec) float64 {
	switch m.Derivation() {
	case RatioPercent:
		if !t.underlying && t.hasDerived {
			return t.derived
		}
		return RatioPercentOf(t.current, t.previous)
	case GrowthPercent:
		if !t.underlying && t.hasDerived {
			return t.derived
		}
		return GrowthPercentOf(t.current, t.previous)
	default:
		return finite(t.value)
	}
}
