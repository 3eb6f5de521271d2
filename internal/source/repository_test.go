package source

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	data [][2]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*[]byte) = row[1].([]byte)
	return nil
}

type fakeQuerier struct {
	rows *fakeRows
	sql  string
	args []any
	err  error
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql = sql
	q.args = args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func TestPGFetcherScansMetrics(t *testing.T) {
	db := &fakeQuerier{rows: &fakeRows{data: [][2]any{
		{"Pune", []byte(`{"visits": 3, "aht": "00:01:00"}`)},
		{"Mysore", []byte(``)},
	}}}
	records, err := NewPGFetcher(db).Fetch(context.Background(), Query{Module: "service", Period: "2025-04"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Pune", records[0].Category)
	v, _ := records[0].Lookup("aht")
	require.Equal(t, 60.0, v)
	require.Empty(t, records[1].Fields)
	require.Equal(t, []any{"service", "2025-04", []string{}}, db.args)
}

func TestPGFetcherFiltersLikeNormalize(t *testing.T) {
	db := &fakeQuerier{rows: &fakeRows{data: [][2]any{
		{"Electronic   City", []byte(`{"visits": 3}`)},
		{"STRASSE", []byte(`{"visits": 4}`)},
		{"Whitefield", []byte(`{"visits": 5}`)},
	}}}
	records, err := NewPGFetcher(db).Fetch(context.Background(), Query{
		Module:     "service",
		Period:     "2025-04",
		Categories: []string{" Electronic  City", "Straße", " "},
	})
	require.NoError(t, err)
	require.Equal(t, []any{"service", "2025-04", []string{"electronic city", "strasse", "straße"}}, db.args)
	require.Contains(t, db.sql, `regexp_replace(lower(category), '\s+', ' ', 'g')`)

	require.Len(t, records, 2)
	require.Equal(t, "Electronic   City", records[0].Category)
	require.Equal(t, "STRASSE", records[1].Category)
}

func TestPGFetcherErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewPGFetcher(&fakeQuerier{err: boom}).Fetch(context.Background(), Query{})
	require.ErrorIs(t, err, boom)

	_, err = NewPGFetcher(&fakeQuerier{rows: &fakeRows{err: boom}}).Fetch(context.Background(), Query{})
	require.ErrorIs(t, err, boom)

	_, err = NewPGFetcher(&fakeQuerier{rows: &fakeRows{data: [][2]any{{"x", []byte(`{bad`)}}}}).Fetch(context.Background(), Query{})
	require.Error(t, err)

	_, err = NewPGFetcher(nil).Fetch(context.Background(), Query{})
	require.Error(t, err)
}
