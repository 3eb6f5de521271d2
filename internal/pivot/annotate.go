package pivot

// Tone is the presentation hint attached to a pivot cell.
type Tone string

const (
	ToneNeutral        Tone = "neutral"
	TonePositive       Tone = "positive"
	ToneNegative       Tone = "negative"
	ToneBelowBenchmark Tone = "belowBenchmark"
)

// AnnotateRules configures Annotate.
type AnnotateRules struct {
	// Benchmark marks ratio cells that fall below the grand-total row value
	// of the same column.
	Benchmark bool
	// Tolerance is the band around zero, or around the benchmark, that stays
	// neutral.
	Tolerance float64
}

// Annotations maps a category label and column key to a tone.
type Annotations map[string]map[string]Tone

// Tone returns the tone of a cell, ToneNeutral when not annotated.
func (a Annotations) Tone(category, column string) Tone {
	if tone, ok := a[category][column]; ok {
		return tone
	}
	return ToneNeutral
}

// Annotate derives cell tones from an already built table. It only reads the
// table.
func Annotate(t Table, rules AnnotateRules) Annotations {
	out := make(Annotations, len(t.Rows)+1)
	periods := t.columnPeriods()
	annotateRow := func(row PivotRow, isTotal bool) {
		tones := make(map[string]Tone, len(periods)*len(t.Metrics))
		for _, period := range periods {
			for _, m := range t.Metrics {
				key := ColumnKey(period, m.Name)
				tones[key] = toneOf(m, row.Values[key], t.GrandTotal.Values[key], isTotal, rules)
			}
		}
		out[row.Category] = tones
	}
	for _, row := range t.Rows {
		annotateRow(row, false)
	}
	annotateRow(t.GrandTotal, true)
	return out
}

func toneOf(m MetricSpec, value, benchmark float64, isTotal bool, rules AnnotateRules) Tone {
	switch m.Derivation() {
	case GrowthPercent:
		return signTone(value, rules.Tolerance)
	case RatioPercent:
		if rules.Benchmark && !isTotal && value < benchmark-rules.Tolerance {
			return ToneBelowBenchmark
		}
	}
	return ToneNeutral
}

func signTone(v, tolerance float64) Tone {
	switch {
	case v > tolerance:
		return TonePositive
	case v < -tolerance:
		return ToneNegative
	default:
		return ToneNeutral
	}
}
