package source

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/pivotboard/internal/category"
	"github.com/odyssey-erp/pivotboard/internal/pivot"
)

// DefaultConcurrency bounds parallel period fetches when no limit is given.
const DefaultConcurrency = 4

// Query selects the records of one dashboard module for one period.
type Query struct {
	Module     string
	Period     string
	Categories []string
}

// CacheKey renders the query as cache key parts.
func (q Query) CacheKey() []string {
	return []string{"pivotboard", "records", q.Module, q.Period, FilterToken(q.Categories)}
}

// FilterToken renders a category filter independent of order and casing;
// "-" stands for no filter.
func FilterToken(categories []string) string {
	filters := make([]string, 0, len(categories))
	for _, c := range categories {
		if key := category.Normalize(c); key != "" {
			filters = append(filters, key)
		}
	}
	if len(filters) == 0 {
		return "-"
	}
	slices.Sort(filters)
	return strings.Join(slices.Compact(filters), ",")
}

// Fetcher loads the raw records of one period.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) ([]pivot.RawRecord, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, q Query) ([]pivot.RawRecord, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, q Query) ([]pivot.RawRecord, error) {
	return f(ctx, q)
}

// CollectRequest describes the periods needed for one rendering pass.
type CollectRequest struct {
	Module     string
	Periods    []string
	Categories []string
	Limit      int
}

// Collect fetches every period concurrently and returns the blocks in the
// requested order. Any fetch error aborts the pass.
func Collect(ctx context.Context, f Fetcher, req CollectRequest) ([]pivot.PeriodBlock, error) {
	if f == nil {
		return nil, fmt.Errorf("source: fetcher not configured")
	}
	blocks := make([]pivot.PeriodBlock, len(req.Periods))
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, period := range req.Periods {
		g.Go(func() error {
			records, err := f.Fetch(ctx, Query{Module: req.Module, Period: period, Categories: req.Categories})
			if err != nil {
				return fmt.Errorf("source: fetch %s/%s: %w", req.Module, period, err)
			}
			if records == nil {
				records = []pivot.RawRecord{}
			}
			blocks[i] = pivot.PeriodBlock{Period: period, Records: records}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blocks, nil
}
