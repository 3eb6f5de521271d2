package category

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, "bangalore", Normalize("  Bangalore "))
	require.Equal(t, "anna nagar", Normalize("Anna\t  NAGAR"))
	require.Equal(t, "", Normalize("   "))
	require.True(t, Equal("T  Nagar", "t nagar"))
}

func TestDedupeKeepsFirstSeenCasing(t *testing.T) {
	got := Dedupe([]string{"MYSORE", "Bangalore", "mysore", " ", "bangalore ", "Pune"})
	require.Equal(t, []string{"MYSORE", "Bangalore", "Pune"}, got)
}

func TestOrderPreferredThenAlphabetical(t *testing.T) {
	got := Order([]string{"Mysore", "Bangalore", "Pune"}, []string{"Bangalore", "Mysore", "Mangalore"})
	require.Equal(t, []string{"Bangalore", "Mysore", "Pune"}, got)
}

func TestOrderRemainderCaseInsensitive(t *testing.T) {
	got := Order([]string{"pune", "Chennai", "hyderabad", "Agra"}, nil)
	require.Equal(t, []string{"Agra", "Chennai", "hyderabad", "pune"}, got)
}

func TestOrderIsPure(t *testing.T) {
	labels := []string{"Pune", "Chennai", "Bangalore"}
	preferred := []string{"bangalore"}
	first := Order(labels, preferred)
	second := Order(labels, preferred)
	require.Equal(t, first, second)
	require.Equal(t, []string{"Pune", "Chennai", "Bangalore"}, labels)
}

func TestOrderSkipsDuplicatePreferred(t *testing.T) {
	got := Order([]string{"Pune", "Bangalore"}, []string{"Bangalore", "BANGALORE"})
	require.Equal(t, []string{"Bangalore", "Pune"}, got)
}

func TestOrderEmpty(t *testing.T) {
	require.Empty(t, Order(nil, []string{"Bangalore"}))
}

func TestResolverParentOf(t *testing.T) {
	r := NewResolver(map[string]string{
		"Koramangala": "Bangalore",
		"kothrud":     "Pune",
		"":            "Nowhere",
	})
	require.Equal(t, "Bangalore", r.ParentOf(" KORAMANGALA"))
	require.Equal(t, "Pune", r.ParentOf("Kothrud"))
	require.Equal(t, Others, r.ParentOf("Brand New Branch"))
	require.True(t, IsOthers(r.ParentOf("unknown")))
	require.Equal(t, []string{"Bangalore", "Pune"}, r.Cities())
	require.Equal(t, []string{"Koramangala"}, r.Branches("bangalore"))

	var nilResolver *Resolver
	require.Equal(t, Others, nilResolver.ParentOf("Koramangala"))
}

func TestDefaultResolver(t *testing.T) {
	r := DefaultResolver()
	require.Equal(t, "Mysore", r.ParentOf("vijayanagar"))
	require.Contains(t, r.Cities(), "Hyderabad")
}

func TestIndex(t *testing.T) {
	idx := Index([]string{"Bangalore", "Mysore", "bangalore"})
	require.Equal(t, map[string]int{"bangalore": 0, "mysore": 1}, idx)
}

func TestResolverCitiesCasingIsStable(t *testing.T) {
	table := map[string]string{
		"Kothrud": "Pune",
		"Baner":   "pune",
		"Aundh":   "PUNE",
		"Kadri":   "Mangalore",
	}
	for range 20 {
		r := NewResolver(table)
		require.Equal(t, []string{"Mangalore", "PUNE"}, r.Cities())
		require.Equal(t, []string{"Aundh", "Baner", "Kothrud"}, r.Branches("pune"))
	}
}
