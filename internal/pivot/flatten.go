package pivot

// Column is one keyed value of a flattened pivot row.
type Column struct {
	Key   string
	Value float64
}

// FlatRow is the table-ready shape {"category": ..., "<period>_<metric>": n}.
type FlatRow struct {
	Category string
	Columns  []Column
}

// MarshalJSON keeps the column order of the table.
func (r FlatRow) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	if err := w.field("category", r.Category); err != nil {
		return nil, err
	}
	for _, c := range r.Columns {
		if err := w.field(c.Key, c.Value); err != nil {
			return nil, err
		}
	}
	return w.close(), nil
}

// Flatten returns one FlatRow per category followed by the grand-total row.
func (t Table) Flatten() []FlatRow {
	cols := t.Columns()
	out := make([]FlatRow, 0, len(t.Rows)+1)
	for _, row := range t.Rows {
		out = append(out, flattenRow(row, cols))
	}
	if len(t.Rows) > 0 {
		out = append(out, flattenRow(t.GrandTotal, cols))
	}
	return out
}

func flattenRow(row PivotRow, cols []string) FlatRow {
	flat := FlatRow{Category: row.Category, Columns: make([]Column, len(cols))}
	for i, key := range cols {
		flat.Columns[i] = Column{Key: key, Value: row.Values[key]}
	}
	return flat
}
