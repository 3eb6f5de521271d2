package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/odyssey-erp/pivotboard/internal/dashboard"
	"github.com/odyssey-erp/pivotboard/internal/pivot"
)

// PDFExporter wraps Gotenberg interactions for dashboard exports.
type PDFExporter struct {
	Endpoint string
	Client   *http.Client
}

// RenderView sends the rendered dashboard HTML to Gotenberg and returns the
// PDF bytes.
func (p *PDFExporter) RenderView(ctx context.Context, view dashboard.View) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("export: pdf exporter not initialised")
	}
	endpoint := strings.TrimRight(p.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("export: gotenberg endpoint required")
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	html, err := RenderHTML(view)
	if err != nil {
		return nil, err
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(html); err != nil {
		return nil, err
	}
	if err := writer.WriteField("landscape", "true"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("export: gotenberg response %d: %s", resp.StatusCode, string(data))
	}
	return io.ReadAll(resp.Body)
}

type htmlCell struct {
	Text string
	Tone string
}

type htmlRow struct {
	Category string
	Total    bool
	Cells    []htmlCell
}

type htmlPage struct {
	Title      string
	Metric     string
	Categories []string
	Chart      []htmlRow
	Headers    []string
	Rows       []htmlRow
}

var pageTemplate = template.Must(template.New("view").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
body{font-family:sans-serif;margin:24px;color:#1f2937}
h1{font-size:20px}h2{font-size:14px;color:#475569}
table{width:100%;border-collapse:collapse;margin-top:16px;font-size:11px}
th,td{border:1px solid #ddd;padding:4px 6px;text-align:right}
th{background:#1e3a8a;color:#fff}td.label{text-align:left}
tr.total td{font-weight:bold;background:#ebf5fb}
td.positive{color:#1e8449;background:#d4efdf}
td.negative{color:#c0392b;background:#fadbd8}
td.belowBenchmark{color:#9a7d0a;background:#fcf3cf}
</style></head><body>
<h1>{{.Title}}</h1>
{{if .Chart}}<section><h2>{{.Metric}}</h2><table><thead><tr><th>Period</th>{{range .Categories}}<th>{{.}}</th>{{end}}</tr></thead><tbody>
{{range .Chart}}<tr><td class="label">{{.Category}}</td>{{range .Cells}}<td>{{.Text}}</td>{{end}}</tr>
{{end}}</tbody></table></section>{{end}}
<table><thead><tr><th>Category</th>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead><tbody>
{{range .Rows}}<tr{{if .Total}} class="total"{{end}}><td class="label">{{.Category}}</td>{{range .Cells}}<td class="{{.Tone}}">{{.Text}}</td>{{end}}</tr>
{{end}}</tbody></table>
</body></html>`))

// RenderHTML renders the chart matrix and the toned pivot table of view as a
// standalone HTML page.
func RenderHTML(view dashboard.View) ([]byte, error) {
	page := htmlPage{Title: view.Title, Metric: view.Metric.Name, Categories: view.Categories}
	for _, row := range view.Chart {
		out := htmlRow{Category: row.Period}
		for _, c := range row.Cells {
			out.Cells = append(out.Cells, htmlCell{Text: pivot.FormatValue(view.Metric, c.Value)})
		}
		page.Chart = append(page.Chart, out)
	}

	columns := pivotColumns(view.Table)
	for _, col := range columns {
		page.Headers = append(page.Headers, columnTitle(col))
	}
	for i, row := range pivotRows(view.Table) {
		out := htmlRow{Category: row.Category, Total: i == len(view.Table.Rows)}
		for _, col := range columns {
			out.Cells = append(out.Cells, htmlCell{
				Text: pivot.FormatValue(col.metric, row.Values[col.key]),
				Tone: string(view.Annotations.Tone(row.Category, col.key)),
			})
		}
		page.Rows = append(page.Rows, out)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
