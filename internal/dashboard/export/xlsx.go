package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/pivotboard/internal/dashboard"
	"github.com/odyssey-erp/pivotboard/internal/pivot"
)

const (
	pivotSheet = "Pivot"
	chartSheet = "Chart"
	headerRow  = 3
)

// WriteViewXLSX writes a workbook with the toned pivot table on the first
// sheet and the chart matrix of the selected metric on the second.
func WriteViewXLSX(w io.Writer, view dashboard.View) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", pivotSheet); err != nil {
		return err
	}
	st, err := newStyleBook(f)
	if err != nil {
		return err
	}
	if err := writePivotSheet(f, st, view); err != nil {
		return fmt.Errorf("export: pivot sheet: %w", err)
	}
	if err := writeChartSheet(f, st, view); err != nil {
		return fmt.Errorf("export: chart sheet: %w", err)
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writePivotSheet(f *excelize.File, st *styleBook, view dashboard.View) error {
	columns := pivotColumns(view.Table)
	lastCol, err := excelize.ColumnNumberToName(len(columns) + 1)
	if err != nil {
		return err
	}

	if err := f.SetCellValue(pivotSheet, "A1", view.Title); err != nil {
		return err
	}
	if err := f.SetCellStyle(pivotSheet, "A1", lastCol+"1", st.title); err != nil {
		return err
	}
	if err := f.SetRowHeight(pivotSheet, 1, 28); err != nil {
		return err
	}

	header := make([]any, 0, len(columns)+1)
	header = append(header, "Category")
	for _, col := range columns {
		header = append(header, columnTitle(col))
	}
	if err := f.SetSheetRow(pivotSheet, cellName(1, headerRow), &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(pivotSheet, cellName(1, headerRow), fmt.Sprintf("%s%d", lastCol, headerRow), st.header); err != nil {
		return err
	}

	rows := pivotRows(view.Table)
	for i, row := range rows {
		r := headerRow + 1 + i
		total := i == len(view.Table.Rows)
		if err := f.SetCellValue(pivotSheet, cellName(1, r), row.Category); err != nil {
			return err
		}
		labelStyle := st.label
		if total {
			labelStyle = st.totalLabel
		}
		if err := f.SetCellStyle(pivotSheet, cellName(1, r), cellName(1, r), labelStyle); err != nil {
			return err
		}
		for c, col := range columns {
			cell := cellName(c+2, r)
			value := row.Values[col.key]
			if err := f.SetCellValue(pivotSheet, cell, cellValue(col.metric, value)); err != nil {
				return err
			}
			style, err := st.value(col.metric.Derivation(), view.Annotations.Tone(row.Category, col.key), total)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(pivotSheet, cell, cell, style); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(pivotSheet, "A", "A", 24); err != nil {
		return err
	}
	if len(columns) > 0 {
		if err := f.SetColWidth(pivotSheet, "B", lastCol, 18); err != nil {
			return err
		}
	}
	return f.SetPanes(pivotSheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      headerRow,
		TopLeftCell: cellName(2, headerRow+1),
		ActivePane:  "bottomRight",
	})
}

func writeChartSheet(f *excelize.File, st *styleBook, view dashboard.View) error {
	if _, err := f.NewSheet(chartSheet); err != nil {
		return err
	}
	header := []any{"Period"}
	for _, label := range view.Categories {
		header = append(header, label)
	}
	if err := f.SetSheetRow(chartSheet, "A1", &header); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(chartSheet, "A1", lastCol+"1", st.header); err != nil {
		return err
	}
	derivation := view.Metric.Derivation()
	for i, row := range view.Chart {
		r := i + 2
		if err := f.SetCellValue(chartSheet, cellName(1, r), row.Period); err != nil {
			return err
		}
		for c, cell := range row.Cells {
			name := cellName(c+2, r)
			if err := f.SetCellValue(chartSheet, name, cellValue(view.Metric, cell.Value)); err != nil {
				return err
			}
			style, err := st.value(derivation, pivot.ToneNeutral, false)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(chartSheet, name, name, style); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(chartSheet, "A", lastCol, 16)
}

func columnTitle(col column) string {
	period := col.period
	if period == pivot.TotalPeriod {
		period = "Total"
	}
	return period + " " + col.metric.Name
}

// cellValue keeps numbers numeric except durations, which read as hh:mm:ss.
func cellValue(m pivot.MetricSpec, v float64) any {
	if m.Derivation() == pivot.DurationSeconds {
		return pivot.FormatDuration(v)
	}
	return v
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

type styleKey struct {
	derivation pivot.Derivation
	tone       pivot.Tone
	total      bool
}

// styleBook caches workbook styles; excelize allocates one id per NewStyle.
type styleBook struct {
	f          *excelize.File
	title      int
	header     int
	label      int
	totalLabel int
	values     map[styleKey]int
}

var (
	percentFormat = `0.00"%"`
	numberFormat  = `#,##0.##`
	border        = []excelize.Border{
		{Type: "left", Color: "#D5D8DC", Style: 1},
		{Type: "right", Color: "#D5D8DC", Style: 1},
		{Type: "top", Color: "#D5D8DC", Style: 1},
		{Type: "bottom", Color: "#D5D8DC", Style: 1},
	}
	toneColors = map[pivot.Tone][2]string{
		pivot.TonePositive:       {"#1E8449", "#D4EFDF"},
		pivot.ToneNegative:       {"#C0392B", "#FADBD8"},
		pivot.ToneBelowBenchmark: {"#9A7D0A", "#FCF3CF"},
	}
)

func newStyleBook(f *excelize.File) (*styleBook, error) {
	st := &styleBook{f: f, values: make(map[styleKey]int)}
	var err error
	if st.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "#1E3A8A"},
		Alignment: &excelize.Alignment{Vertical: "center"},
	}); err != nil {
		return nil, err
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1E3A8A"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    border,
	}); err != nil {
		return nil, err
	}
	if st.label, err = f.NewStyle(&excelize.Style{Border: border}); err != nil {
		return nil, err
	}
	if st.totalLabel, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#EBF5FB"}, Pattern: 1},
		Border: border,
	}); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *styleBook) value(d pivot.Derivation, tone pivot.Tone, total bool) (int, error) {
	key := styleKey{derivation: d, tone: tone, total: total}
	if id, ok := st.values[key]; ok {
		return id, nil
	}
	style := &excelize.Style{
		Font:      &excelize.Font{Bold: total},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	}
	switch d {
	case pivot.RatioPercent, pivot.GrowthPercent:
		style.CustomNumFmt = &percentFormat
	case pivot.DurationSeconds:
	default:
		style.CustomNumFmt = &numberFormat
	}
	if colors, ok := toneColors[tone]; ok {
		style.Font.Color = colors[0]
		style.Fill = excelize.Fill{Type: "pattern", Color: []string{colors[1]}, Pattern: 1}
	} else if total {
		style.Fill = excelize.Fill{Type: "pattern", Color: []string{"#EBF5FB"}, Pattern: 1}
	}
	id, err := st.f.NewStyle(style)
	if err != nil {
		return 0, err
	}
	st.values[key] = id
	return id, nil
}
