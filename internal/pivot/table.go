package pivot

import (
	"slices"

	"github.com/odyssey-erp/pivotboard/internal/category"
)

const (
	// TotalPeriod names the grand-total column of every metric.
	TotalPeriod = "ALL"
	// GrandTotalLabel names the row totalling every category.
	GrandTotalLabel = "Grand Total"
)

// ColumnKey joins a period and a metric into a pivot column key such as
// "Apr_growthService". Metric names carry no underscore (see
// MetricSpec.Validate), so the key splits on its last one.
func ColumnKey(period, metric string) string {
	return period + "_" + metric
}

// PivotCell is one dense cell of a pivot table.
type PivotCell struct {
	Category  string  `json:"category"`
	Period    string  `json:"period"`
	MetricKey string  `json:"metricKey"`
	Value     float64 `json:"value"`
}

// PivotRow holds the values of one category keyed by ColumnKey, including the
// TotalPeriod column.
type PivotRow struct {
	Category string             `json:"category"`
	Values   map[string]float64 `json:"values"`
}

// Value returns the value of the given column, zero when absent.
func (r PivotRow) Value(period, metric string) float64 {
	return r.Values[ColumnKey(period, metric)]
}

// Total returns the grand-total column of metric.
func (r PivotRow) Total(metric string) float64 {
	return r.Value(TotalPeriod, metric)
}

// Table is a category by period by metric pivot with grand totals.
type Table struct {
	Metrics     []MetricSpec `json:"metrics"`
	PeriodsUsed []string     `json:"periodsUsed"`
	Rows        []PivotRow   `json:"rows"`
	GrandTotal  PivotRow     `json:"grandTotal"`
}

// Row returns the row of label.
func (t Table) Row(label string) (PivotRow, bool) {
	key := category.Normalize(label)
	for _, row := range t.Rows {
		if category.Normalize(row.Category) == key {
			return row, true
		}
	}
	return PivotRow{}, false
}

// Metric returns the spec named name.
func (t Table) Metric(name string) (MetricSpec, bool) {
	for _, m := range t.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return MetricSpec{}, false
}

// Columns lists the column keys in display order: every used period with its
// metrics, then the grand-total column of each metric.
func (t Table) Columns() []string {
	cols := make([]string, 0, (len(t.PeriodsUsed)+1)*len(t.Metrics))
	for _, period := range t.columnPeriods() {
		for _, m := range t.Metrics {
			cols = append(cols, ColumnKey(period, m.Name))
		}
	}
	return cols
}

// Cells enumerates every cell of the category rows, grand-total column
// included.
func (t Table) Cells() []PivotCell {
	periods := t.columnPeriods()
	cells := make([]PivotCell, 0, len(t.Rows)*len(periods)*len(t.Metrics))
	for _, row := range t.Rows {
		for _, period := range periods {
			for _, m := range t.Metrics {
				cells = append(cells, PivotCell{
					Category:  row.Category,
					Period:    period,
					MetricKey: m.Name,
					Value:     row.Value(period, m.Name),
				})
			}
		}
	}
	return cells
}

func (t Table) columnPeriods() []string {
	return append(slices.Clone(t.PeriodsUsed), TotalPeriod)
}

// BuildPivotTable pivots the period blocks into one row per category.
//
// Blocks sharing a period are merged into one column at the position of the
// first. Periods without records are left out. The TotalPeriod column and the
// GrandTotal row sum raw and duration metrics; ratio and growth metrics are
// recomputed from the summed previous and current values, never averaged.
func BuildPivotTable(periods []PeriodBlock, metrics []MetricSpec, categories []string, opts ...Option) Table {
	table := Table{
		Metrics:     slices.Clone(metrics),
		PeriodsUsed: []string{},
		Rows:        []PivotRow{},
		GrandTotal:  PivotRow{Category: GrandTotalLabel, Values: map[string]float64{}},
	}
	if table.Metrics == nil {
		table.Metrics = []MetricSpec{}
	}
	if len(periods) == 0 || len(metrics) == 0 || len(categories) == 0 {
		return table
	}

	used := make([]PeriodBlock, 0, len(periods))
	for _, block := range mergePeriods(periods) {
		if len(block.Records) == 0 {
			continue
		}
		used = append(used, block)
		table.PeriodsUsed = append(table.PeriodsUsed, block.Period)
	}

	o := newOptions(opts)
	idx := category.Index(categories)
	grid := newGrid(len(categories), len(used), len(metrics))
	for p, block := range used {
		for _, rec := range block.Records {
			i, ok := idx[category.Normalize(o.categoryOf(rec.Category))]
			if !ok {
				continue
			}
			for m, spec := range metrics {
				grid[i][p][m].add(rec, spec)
			}
		}
	}

	periodTotals := newGrid(1, len(used), len(metrics))[0]
	grand := make([]tally, len(metrics))
	for i, label := range categories {
		row := PivotRow{Category: label, Values: make(map[string]float64, (len(used)+1)*len(metrics))}
		rowTotals := make([]tally, len(metrics))
		for p, block := range used {
			for m, spec := range metrics {
				cell := grid[i][p][m]
				row.Values[ColumnKey(block.Period, spec.Name)] = cell.result(spec)
				rowTotals[m].merge(cell)
				periodTotals[p][m].merge(cell)
				grand[m].merge(cell)
			}
		}
		for m, spec := range metrics {
			row.Values[ColumnKey(TotalPeriod, spec.Name)] = rowTotals[m].result(spec)
		}
		table.Rows = append(table.Rows, row)
	}

	for p, block := range used {
		for m, spec := range metrics {
			table.GrandTotal.Values[ColumnKey(block.Period, spec.Name)] = periodTotals[p][m].result(spec)
		}
	}
	for m, spec := range metrics {
		table.GrandTotal.Values[ColumnKey(TotalPeriod, spec.Name)] = grand[m].result(spec)
	}
	return table
}

func newGrid(categories, periods, metrics int) [][][]tally {
	grid := make([][][]tally, categories)
	for i := range grid {
		grid[i] = make([][]tally, periods)
		for p := range grid[i] {
			grid[i][p] = make([]tally, metrics)
		}
	}
	return grid
}
