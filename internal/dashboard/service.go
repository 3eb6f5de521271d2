// Package dashboard runs one rendering pass of a dashboard page: fetch the
// requested periods, resolve the category universe and build the chart matrix
// and pivot table.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/pivotboard/internal/category"
	"github.com/odyssey-erp/pivotboard/internal/pages"
	"github.com/odyssey-erp/pivotboard/internal/pivot"
	"github.com/odyssey-erp/pivotboard/internal/prefs"
	"github.com/odyssey-erp/pivotboard/internal/source"
)

// Request selects a page, its periods and optional filters.
type Request struct {
	Module     string
	Periods    []string
	Categories []string
	// Metric overrides the remembered selection for the chart.
	Metric string
}

// View is everything a page renders for one request.
type View struct {
	Module      string
	Title       string
	Metric      pivot.MetricSpec
	Categories  []string
	Chart       []pivot.Row
	Table       pivot.Table
	Annotations pivot.Annotations
}

// Config collects the dependencies of a Service.
type Config struct {
	Catalog     *pages.Catalog
	Fetcher     source.Fetcher
	Prefs       prefs.Store
	Metrics     *Metrics
	Logger      *slog.Logger
	Concurrency int
}

// Service coordinates fetching and pivoting for configured pages.
type Service struct {
	catalog     *pages.Catalog
	fetcher     source.Fetcher
	prefs       prefs.Store
	metrics     *Metrics
	logger      *slog.Logger
	concurrency int
	group       singleflight.Group
}

// NewService wires a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("dashboard: catalog required")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("dashboard: fetcher required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog:     cfg.Catalog,
		fetcher:     cfg.Fetcher,
		prefs:       cfg.Prefs,
		metrics:     cfg.Metrics,
		logger:      logger.With(slog.String("component", "dashboard")),
		concurrency: cfg.Concurrency,
	}, nil
}

// Load runs one rendering pass for req.
func (s *Service) Load(ctx context.Context, req Request) (View, error) {
	page, err := s.catalog.Page(req.Module)
	if err != nil {
		return View{}, err
	}
	metric, err := s.selectMetric(ctx, page, req.Metric)
	if err != nil {
		return View{}, err
	}

	started := time.Now()
	var opts []pivot.Option
	if page.Rollup {
		opts = append(opts, pivot.WithRollup(s.catalog.Resolver()))
	}

	blocks, err := s.collect(ctx, page, req)
	if err != nil {
		s.metrics.observeBuild(page.Module, started, err)
		s.logger.Error("collect periods", slog.String("module", page.Module), slog.Any("error", err))
		return View{}, err
	}

	universe := req.Categories
	if len(universe) == 0 {
		universe = pivot.Observed(blocks, opts...)
	}
	categories := category.Order(universe, page.Preferred)

	chart := pivot.BuildMatrix(blocks, metric, categories, opts...)
	if page.HideEmptyPeriods {
		chart = pivot.DropEmptyRows(chart)
	}
	table := pivot.BuildPivotTable(blocks, page.Metrics, categories, opts...)

	s.metrics.observeBuild(page.Module, started, nil)
	s.logger.Debug("dashboard built",
		slog.String("module", page.Module),
		slog.String("metric", metric.Name),
		slog.Int("periods", len(blocks)),
		slog.Int("periods_used", len(table.PeriodsUsed)),
		slog.Int("categories", len(categories)),
		slog.Duration("duration", time.Since(started)),
	)

	return View{
		Module:      page.Module,
		Title:       page.Title,
		Metric:      metric,
		Categories:  categories,
		Chart:       chart,
		Table:       table,
		Annotations: pivot.Annotate(table, pivot.AnnotateRules{Benchmark: page.Benchmark}),
	}, nil
}

func (s *Service) selectMetric(ctx context.Context, page pages.Page, requested string) (pivot.MetricSpec, error) {
	if requested != "" {
		if m, ok := page.Metric(requested); ok {
			if err := prefs.RememberGrowth(ctx, s.prefs, page.Module, m.Name); err != nil {
				s.logger.Warn("remember metric", slog.String("module", page.Module), slog.Any("error", err))
			}
			return m, nil
		}
		return pivot.MetricSpec{}, fmt.Errorf("dashboard: module %s has no metric %q", page.Module, requested)
	}
	last, err := prefs.LastGrowth(ctx, s.prefs, page.Module, page.DefaultMetric)
	if err != nil {
		s.logger.Warn("load remembered metric", slog.String("module", page.Module), slog.Any("error", err))
	}
	return page.SelectMetric(last), nil
}

// collect shares identical in-flight fetches between concurrent callers.
func (s *Service) collect(ctx context.Context, page pages.Page, req Request) ([]pivot.PeriodBlock, error) {
	if len(req.Periods) == 0 {
		return []pivot.PeriodBlock{}, nil
	}
	filters := req.Categories
	if page.Rollup && len(filters) > 0 {
		filters = s.branchesOf(filters)
	}
	key := strings.Join([]string{page.Module, strings.Join(req.Periods, ","), source.FilterToken(filters)}, "|")

	ch := s.group.DoChan(key, func() (any, error) {
		return source.Collect(context.WithoutCancel(ctx), s.fetcher, source.CollectRequest{
			Module:     page.Module,
			Periods:    req.Periods,
			Categories: filters,
			Limit:      s.concurrency,
		})
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]pivot.PeriodBlock)), nil
	}
}

// branchesOf expands city filters into their mapped branches. Unmapped
// branches cannot be listed, so a filter naming Others fetches everything and
// leaves the narrowing to the category index.
func (s *Service) branchesOf(cities []string) []string {
	if slices.ContainsFunc(cities, category.IsOthers) {
		return nil
	}
	resolver := s.catalog.Resolver()
	out := make([]string, 0)
	for _, city := range cities {
		out = append(out, resolver.Branches(city)...)
	}
	return out
}
