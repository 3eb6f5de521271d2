package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/pivotboard/internal/dashboard"
	"github.com/odyssey-erp/pivotboard/internal/dashboard/export"
	"github.com/odyssey-erp/pivotboard/internal/pages"
	"github.com/odyssey-erp/pivotboard/internal/pivot"
	"github.com/odyssey-erp/pivotboard/internal/prefs"
	"github.com/odyssey-erp/pivotboard/internal/source"
)

// Output formats accepted by PivotCommand.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatChartCSV = "chart-csv"
	FormatXLSX     = "xlsx"
	FormatPDF      = "pdf"
)

// PeriodInput is one period of the input file. Payload is the raw fetch
// response for that period: a bare array of records or a {"result": [...]}
// envelope.
type PeriodInput struct {
	Period  string          `json:"period"`
	Payload json.RawMessage `json:"payload"`
}

// PivotOptions configures the pivot command.
type PivotOptions struct {
	Input        io.Reader
	PagesFile    string
	Module       string
	Metric       string
	Categories   []string
	Format       string
	GotenbergURL string
	Stdout       io.Writer
	Stderr       io.Writer
	Logger       *slog.Logger
}

// PivotSummary is the JSON document printed by the json format.
type PivotSummary struct {
	Module      string          `json:"module"`
	Title       string          `json:"title"`
	Metric      string          `json:"metric"`
	Categories  []string        `json:"categories"`
	PeriodsUsed []string        `json:"periodsUsed"`
	Chart       []pivot.Row     `json:"chart"`
	Table       []pivot.FlatRow `json:"table"`
}

// PivotCommand pivots an input file of period payloads through a configured
// page and writes the result in the requested format. It returns the process
// exit code.
func PivotCommand(ctx context.Context, opts PivotOptions) int {
	if opts.Stdout == nil || opts.Stderr == nil || opts.Input == nil {
		return 2
	}
	if strings.TrimSpace(opts.Module) == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "pivot: -module is required")
		return 2
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatJSON
	}

	catalog, err := pages.LoadFile(opts.PagesFile)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "pivot: load pages: %v\n", err)
		return 1
	}
	page, err := catalog.Page(opts.Module)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "pivot: %v\n", err)
		return 1
	}
	periods, fetcher, err := readInput(opts.Input, page.CategoryField)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "pivot: %v\n", err)
		return 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	svc, err := dashboard.NewService(dashboard.Config{
		Catalog: catalog,
		Fetcher: fetcher,
		Prefs:   prefs.NewMemoryStore(),
		Logger:  logger,
	})
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "pivot: %v\n", err)
		return 1
	}
	view, err := svc.Load(ctx, dashboard.Request{
		Module:     page.Module,
		Periods:    periods,
		Categories: opts.Categories,
		Metric:     opts.Metric,
	})
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "pivot: %v\n", err)
		return 1
	}

	if err := writeView(ctx, opts, format, view); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "pivot: %v\n", err)
		return 1
	}
	return 0
}

func writeView(ctx context.Context, opts PivotOptions, format string, view dashboard.View) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(PivotSummary{
			Module:      view.Module,
			Title:       view.Title,
			Metric:      view.Metric.Name,
			Categories:  view.Categories,
			PeriodsUsed: view.Table.PeriodsUsed,
			Chart:       nonNil(view.Chart),
			Table:       view.Table.Flatten(),
		})
	case FormatCSV:
		return export.WritePivotCSV(opts.Stdout, view.Table)
	case FormatChartCSV:
		return export.WriteChartCSV(opts.Stdout, view.Chart, view.Metric)
	case FormatXLSX:
		return export.WriteViewXLSX(opts.Stdout, view)
	case FormatPDF:
		exporter := &export.PDFExporter{Endpoint: opts.GotenbergURL}
		data, err := exporter.RenderView(ctx, view)
		if err != nil {
			return err
		}
		_, err = opts.Stdout.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// readInput decodes the period list and serves it through an in-memory
// fetcher so the command runs the same pass as the worker.
func readInput(r io.Reader, categoryField string) ([]string, source.Fetcher, error) {
	var inputs []PeriodInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, nil, fmt.Errorf("decode input: %w", err)
	}
	periods := make([]string, 0, len(inputs))
	byPeriod := make(map[string][]pivot.RawRecord, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in.Period) == "" {
			return nil, nil, errors.New("input period without a name")
		}
		if _, dup := byPeriod[in.Period]; dup {
			return nil, nil, fmt.Errorf("duplicate period %q", in.Period)
		}
		records, err := source.DecodeRecords(in.Payload, categoryField)
		if err != nil {
			return nil, nil, fmt.Errorf("period %s: %w", in.Period, err)
		}
		periods = append(periods, in.Period)
		byPeriod[in.Period] = records
	}
	fetcher := source.FetcherFunc(func(_ context.Context, q source.Query) ([]pivot.RawRecord, error) {
		return byPeriod[q.Period], nil
	})
	return periods, fetcher, nil
}

func nonNil(rows []pivot.Row) []pivot.Row {
	if rows == nil {
		return []pivot.Row{}
	}
	return rows
}
