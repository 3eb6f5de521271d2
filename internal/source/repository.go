package source

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/pivotboard/internal/category"
	"github.com/odyssey-erp/pivotboard/internal/pivot"
)

// Querier is the subset of pgxpool.Pool used by PGFetcher.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGFetcher reads uploaded metric rows from Postgres.
type PGFetcher struct {
	db Querier
}

// NewPGFetcher constructs a fetcher over db.
func NewPGFetcher(db Querier) *PGFetcher {
	return &PGFetcher{db: db}
}

const selectUploads = `SELECT category, metrics
FROM metric_uploads
WHERE module = $1 AND period = $2
  AND (cardinality($3::text[]) = 0
       OR btrim(regexp_replace(lower(category), '\s+', ' ', 'g')) = ANY($3::text[]))
ORDER BY uploaded_at, id`

// Fetch implements Fetcher.
func (f *PGFetcher) Fetch(ctx context.Context, q Query) ([]pivot.RawRecord, error) {
	if f == nil || f.db == nil {
		return nil, fmt.Errorf("source: database not configured")
	}
	filters, keep := categoryFilters(q.Categories)
	rows, err := f.db.Query(ctx, selectUploads, q.Module, q.Period, filters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]pivot.RawRecord, 0)
	for rows.Next() {
		var label string
		var metrics []byte
		if err := rows.Scan(&label, &metrics); err != nil {
			return nil, err
		}
		if keep != nil {
			if _, ok := keep[category.Normalize(label)]; !ok {
				continue
			}
		}
		fields := map[string]any{}
		if len(bytes.TrimSpace(metrics)) > 0 {
			if err := unmarshalNumbers(metrics, &fields); err != nil {
				return nil, fmt.Errorf("source: metrics of %q: %w", label, err)
			}
		}
		records = append(records, pivot.RawRecord{Category: label, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// categoryFilters returns the SQL filter keys and the normalised keys rows
// must match. Postgres lower() does not fold like category.Normalize, so the
// query receives both forms and rows are rechecked after scanning.
func categoryFilters(categories []string) ([]string, map[string]struct{}) {
	filters := make([]string, 0, 2*len(categories))
	var keep map[string]struct{}
	for _, c := range categories {
		key := category.Normalize(c)
		if key == "" {
			continue
		}
		if keep == nil {
			keep = make(map[string]struct{}, len(categories))
		}
		keep[key] = struct{}{}
		lower := strings.ToLower(strings.Join(strings.Fields(c), " "))
		for _, f := range []string{key, lower} {
			if !slices.Contains(filters, f) {
				filters = append(filters, f)
			}
		}
	}
	return filters, keep
}
