package pages

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pivotboard/internal/category"
	"github.com/odyssey-erp/pivotboard/internal/pivot"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.Equal(t, []string{"service", "sales", "branch-service", "calls"}, c.Modules())

	service, err := c.Page("service")
	require.NoError(t, err)
	require.Equal(t, "city", service.CategoryField)
	growth := service.SelectMetric("")
	require.Equal(t, "growthService", growth.Name)
	require.Equal(t, pivot.GrowthPercent, growth.Kind)
	require.Equal(t, []string{"prevService", "currService", "growthService"}, growth.Keys)

	rollup, err := c.Page("branch-service")
	require.NoError(t, err)
	require.True(t, rollup.Rollup)
	require.Equal(t, "Pune", c.Resolver().ParentOf("kothrud"))
	require.Equal(t, category.Others, c.Resolver().ParentOf("Velachery"))
}

func TestPageLookupMissing(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	_, err = c.Page("nope")
	require.True(t, errors.Is(err, ErrPageNotFound))
}

func TestSelectMetricFallbacks(t *testing.T) {
	p := Page{
		Module:        "m",
		DefaultMetric: "b",
		Metrics:       []pivot.MetricSpec{{Name: "a", Keys: []string{"a"}}, {Name: "b", Keys: []string{"b"}}},
	}
	require.Equal(t, "a", p.SelectMetric("a").Name)
	require.Equal(t, "b", p.SelectMetric("zzz").Name)
	p.DefaultMetric = ""
	require.Equal(t, "a", p.SelectMetric("zzz").Name)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := map[string]string{
		"no pages": `pages: []`,
		"missing field": `
pages:
  - module: m
    metrics: [{name: a, keys: [a]}]`,
		"ratio with one key": `
pages:
  - module: m
    categoryField: city
    metrics: [{name: a, kind: ratioPercent, keys: [a]}]`,
		"unknown kind": `
pages:
  - module: m
    categoryField: city
    metrics: [{name: a, kind: median, keys: [a]}]`,
		"duplicate module": `
pages:
  - {module: m, categoryField: city, metrics: [{name: a, keys: [a]}]}
  - {module: m, categoryField: city, metrics: [{name: a, keys: [a]}]}`,
		"duplicate metric": `
pages:
  - {module: m, categoryField: city, metrics: [{name: a, keys: [a]}, {name: a, keys: [b]}]}`,
		"bad default": `
pages:
  - {module: m, categoryField: city, defaultMetric: x, metrics: [{name: a, keys: [a]}]}`,
		"bad yaml": `pages: [`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestCatalogWithoutBranchesUsesDefaultTable(t *testing.T) {
	c, err := Parse([]byte(`
pages:
  - {module: m, categoryField: city, metrics: [{name: a, keys: [a]}]}`))
	require.NoError(t, err)
	require.Equal(t, "Chennai", c.Resolver().ParentOf("Velachery"))
}

func TestLoadFileEmptyPathUsesEmbedded(t *testing.T) {
	c, err := LoadFile("")
	require.NoError(t, err)
	require.NotEmpty(t, c.Pages)

	_, err = LoadFile("/does/not/exist.yaml")
	require.Error(t, err)
}
