// Package export renders dashboard views as CSV, XLSX and PDF documents.
package export

import (
	"encoding/csv"
	"io"

	"github.com/odyssey-erp/pivotboard/internal/pivot"
)

// WritePivotCSV serialises the pivot table, one row per category followed by
// the grand-total row. Cells are formatted per metric derivation.
func WritePivotCSV(w io.Writer, table pivot.Table) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	columns := pivotColumns(table)
	header := make([]string, 0, len(columns)+1)
	header = append(header, "Category")
	for _, col := range columns {
		header = append(header, col.key)
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range pivotRows(table) {
		record := make([]string, 0, len(columns)+1)
		record = append(record, row.Category)
		for _, col := range columns {
			record = append(record, pivot.FormatValue(col.metric, row.Values[col.key]))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteChartCSV emits the chart matrix, one row per period and one column per
// category.
func WriteChartCSV(w io.Writer, rows []pivot.Row, metric pivot.MetricSpec) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Period"}
	if len(rows) > 0 {
		for _, c := range rows[0].Cells {
			header = append(header, c.Category)
		}
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := make([]string, 0, len(row.Cells)+1)
		record = append(record, row.Period)
		for _, c := range row.Cells {
			record = append(record, pivot.FormatValue(metric, c.Value))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

type column struct {
	key    string
	period string
	metric pivot.MetricSpec
}

func pivotColumns(table pivot.Table) []column {
	periods := append(append([]string{}, table.PeriodsUsed...), pivot.TotalPeriod)
	cols := make([]column, 0, len(periods)*len(table.Metrics))
	for _, period := range periods {
		for _, m := range table.Metrics {
			cols = append(cols, column{key: pivot.ColumnKey(period, m.Name), period: period, metric: m})
		}
	}
	return cols
}

// pivotRows lists the category rows and, when there are any, the grand total.
func pivotRows(table pivot.Table) []pivot.PivotRow {
	if len(table.Rows) == 0 {
		return nil
	}
	return append(append(make([]pivot.PivotRow, 0, len(table.Rows)+1), table.Rows...), table.GrandTotal)
}
