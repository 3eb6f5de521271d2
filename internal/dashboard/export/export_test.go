package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/pivotboard/internal/dashboard"
	"github.com/odyssey-erp/pivotboard/internal/pivot"
)

func sampleView() dashboard.View {
	growth := pivot.MetricSpec{Name: "growthService", Kind: pivot.GrowthPercent, Keys: []string{"prevService", "currService"}}
	revenue := pivot.MetricSpec{Name: "serviceRevenue", Keys: []string{"currService"}}
	aht := pivot.MetricSpec{Name: "aht", Kind: pivot.DurationSeconds, Keys: []string{"aht"}}
	blocks := []pivot.PeriodBlock{
		{Period: "Apr", Records: []pivot.RawRecord{
			{Category: "Bangalore", Fields: map[string]any{"prevService": 10, "currService": 12, "aht": "00:02:30"}},
			{Category: "Mysore", Fields: map[string]any{"prevService": 200, "currService": 180, "aht": "01:00"}},
		}},
		{Period: "May", Records: []pivot.RawRecord{}},
	}
	categories := []string{"Bangalore", "Mysore"}
	metrics := []pivot.MetricSpec{growth, revenue, aht}
	table := pivot.BuildPivotTable(blocks, metrics, categories)
	return dashboard.View{
		Module:      "service",
		Title:       "Service <Revenue>",
		Metric:      growth,
		Categories:  categories,
		Chart:       pivot.BuildMatrix(blocks, growth, categories),
		Table:       table,
		Annotations: pivot.Annotate(table, pivot.AnnotateRules{}),
	}
}

func TestWritePivotCSV(t *testing.T) {
	view := sampleView()
	buf := &bytes.Buffer{}
	require.NoError(t, WritePivotCSV(buf, view.Table))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, []string{
		"Category",
		"Apr_growthService", "Apr_serviceRevenue", "Apr_aht",
		"ALL_growthService", "ALL_serviceRevenue", "ALL_aht",
	}, records[0])
	require.Equal(t, []string{"Bangalore", "20.00%", "12", "00:02:30", "20.00%", "12", "00:02:30"}, records[1])
	require.Equal(t, pivot.GrandTotalLabel, records[3][0])
	require.Equal(t, "00:03:30", records[3][3])
}

func TestWritePivotCSVEmptyTable(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WritePivotCSV(buf, pivot.Table{}))
	require.Equal(t, "Category\n", buf.String())
}

func TestWriteChartCSV(t *testing.T) {
	view := sampleView()
	buf := &bytes.Buffer{}
	require.NoError(t, WriteChartCSV(buf, view.Chart, view.Metric))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Period", "Bangalore", "Mysore"},
		{"Apr", "20.00%", "-10.00%"},
		{"May", "0.00%", "0.00%"},
	}, records)
}

func TestWriteViewXLSX(t *testing.T) {
	view := sampleView()
	buf := &bytes.Buffer{}
	require.NoError(t, WriteViewXLSX(buf, view))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	require.Equal(t, []string{pivotSheet, chartSheet}, f.GetSheetList())

	title, err := f.GetCellValue(pivotSheet, "A1")
	require.NoError(t, err)
	require.Equal(t, "Service <Revenue>", title)

	header, err := f.GetCellValue(pivotSheet, "B3")
	require.NoError(t, err)
	require.Equal(t, "Apr growthService", header)
	totalHeader, err := f.GetCellValue(pivotSheet, "E3")
	require.NoError(t, err)
	require.Equal(t, "Total growthService", totalHeader)

	label, err := f.GetCellValue(pivotSheet, "A6")
	require.NoError(t, err)
	require.Equal(t, pivot.GrandTotalLabel, label)

	aht, err := f.GetCellValue(pivotSheet, "D4")
	require.NoError(t, err)
	require.Equal(t, "00:02:30", aht)

	positive, err := f.GetCellStyle(pivotSheet, "B4")
	require.NoError(t, err)
	negative, err := f.GetCellStyle(pivotSheet, "B5")
	require.NoError(t, err)
	require.NotEqual(t, positive, negative)

	period, err := f.GetCellValue(chartSheet, "A3")
	require.NoError(t, err)
	require.Equal(t, "May", period)
	city, err := f.GetCellValue(chartSheet, "C1")
	require.NoError(t, err)
	require.Equal(t, "Mysore", city)
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(sampleView())
	require.NoError(t, err)
	out := string(html)
	require.Contains(t, out, "<h1>Service &lt;Revenue&gt;</h1>")
	require.Contains(t, out, "<th>Period</th><th>Bangalore</th><th>Mysore</th>")
	require.Contains(t, out, `<td class="label">May</td><td>0.00%</td>`)
	require.Contains(t, out, `<td class="negative">-10.00%</td>`)
	require.Contains(t, out, `<td class="positive">20.00%</td>`)
	require.Contains(t, out, `<tr class="total">`)
	require.Contains(t, out, "<th>Total serviceRevenue</th>")
}

func TestPDFExporterRenderView(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/chromium/convert/html" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("unexpected parse error: %v", err)
		}
		if _, _, err := r.FormFile("files"); err != nil {
			t.Errorf("missing html file: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("PDF"))
	}))
	defer srv.Close()

	exporter := &PDFExporter{Endpoint: srv.URL + "/"}
	data, err := exporter.RenderView(context.Background(), sampleView())
	require.NoError(t, err)
	require.Equal(t, "PDF", string(data))
}

func TestPDFExporterErrors(t *testing.T) {
	var nilExporter *PDFExporter
	_, err := nilExporter.RenderView(context.Background(), sampleView())
	require.Error(t, err)

	_, err = (&PDFExporter{}).RenderView(context.Background(), sampleView())
	require.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "chromium crashed", http.StatusBadGateway)
	}))
	defer srv.Close()
	_, err = (&PDFExporter{Endpoint: srv.URL}).RenderView(context.Background(), sampleView())
	require.ErrorContains(t, err, "502")
}
