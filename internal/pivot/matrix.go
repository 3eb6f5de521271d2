package pivot

import (
	"encoding/json"

	"github.com/odyssey-erp/pivotboard/internal/category"
)

// Cell is one category value inside a chart row.
type Cell struct {
	Category string
	Value    float64
}

// Row is the chart-ready value of every category for one period.
type Row struct {
	Period string
	Cells  []Cell
}

// Value returns the value stored for label, zero when absent.
func (r Row) Value(label string) float64 {
	key := category.Normalize(label)
	for _, c := range r.Cells {
		if category.Normalize(c.Category) == key {
			return c.Value
		}
	}
	return 0
}

// IsEmpty reports whether every category of the row is zero.
func (r Row) IsEmpty() bool {
	for _, c := range r.Cells {
		if c.Value != 0 {
			return false
		}
	}
	return true
}

// PeriodField is the JSON key of the period in a chart row. A category with
// the same label is written under PeriodCategoryField instead.
const (
	PeriodField         = "period"
	PeriodCategoryField = "period (category)"
)

// MarshalJSON renders {"period": ..., "<category>": value, ...} keeping the
// category order.
func (r Row) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	if err := w.field(PeriodField, r.Period); err != nil {
		return nil, err
	}
	for _, c := range r.Cells {
		key := c.Category
		if key == PeriodField {
			key = PeriodCategoryField
		}
		if err := w.field(key, c.Value); err != nil {
			return nil, err
		}
	}
	return w.close(), nil
}

// BuildMatrix folds the period blocks into one row per period, in the given
// order, holding a value for every category. Blocks sharing a period are
// merged into the row of the first. categories is expected in final
// render order; records for categories outside it are ignored.
func BuildMatrix(periods []PeriodBlock, spec MetricSpec, categories []string, opts ...Option) []Row {
	o := newOptions(opts)
	idx := category.Index(categories)
	rows := make([]Row, 0, len(periods))
	for _, block := range mergePeriods(periods) {
		tallies := make([]tally, len(categories))
		for _, rec := range block.Records {
			i, ok := idx[category.Normalize(o.categoryOf(rec.Category))]
			if !ok {
				continue
			}
			tallies[i].add(rec, spec)
		}
		cells := make([]Cell, len(categories))
		for i, label := range categories {
			cells[i] = Cell{Category: label, Value: tallies[i].result(spec)}
		}
		rows = append(rows, Row{Period: block.Period, Cells: cells})
	}
	return rows
}

// DropEmptyRows removes rows whose every category is zero. Pages use it to
// hide periods that have no uploaded data yet.
func DropEmptyRows(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if row.IsEmpty() {
			continue
		}
		out = append(out, row)
	}
	return out
}

// RowsJSON marshals rows as a JSON array.
func RowsJSON(rows []Row) ([]byte, error) {
	if rows == nil {
		rows = []Row{}
	}
	return json.Marshal(rows)
}
