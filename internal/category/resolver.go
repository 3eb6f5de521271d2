// Package category normalises, deduplicates and orders the city and branch
// labels that key every dashboard series.
package category

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Others is the sentinel parent returned for branches missing from the
// branch to city table.
const Others = "Others"

// Normalize trims the label, collapses internal whitespace runs and case-folds
// the result so it can be used as an identity key.
func Normalize(label string) string {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return ""
	}
	// Caser values carry state and must not be shared across goroutines.
	return cases.Fold().String(strings.Join(fields, " "))
}

// Equal reports whether two labels identify the same category.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// IsOthers reports whether label is the unmapped-branch sentinel.
func IsOthers(label string) bool {
	return Normalize(label) == Normalize(Others)
}

// Dedupe keeps the first-seen casing of every category and drops later
// variants that normalise to the same key. Blank labels are discarded.
// The surviving display casing depends on input order.
func Dedupe(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		key := Normalize(label)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(label))
	}
	return out
}

// Order returns the preferred entries present in labels, in preferred order,
// followed by the remaining labels sorted case-insensitively. Ties on the
// normalised key fall back to the raw string.
func Order(labels, preferred []string) []string {
	unique := Dedupe(labels)
	present := make(map[string]string, len(unique))
	for _, label := range unique {
		present[Normalize(label)] = label
	}

	out := make([]string, 0, len(unique))
	taken := make(map[string]struct{}, len(preferred))
	for _, pref := range preferred {
		key := Normalize(pref)
		if _, ok := present[key]; !ok {
			continue
		}
		if _, dup := taken[key]; dup {
			continue
		}
		taken[key] = struct{}{}
		out = append(out, strings.TrimSpace(pref))
	}

	rest := make([]string, 0, len(unique)-len(out))
	for _, label := range unique {
		if _, ok := taken[Normalize(label)]; ok {
			continue
		}
		rest = append(rest, label)
	}
	slices.SortStableFunc(rest, compareLabels)
	return append(out, rest...)
}

func compareLabels(a, b string) int {
	if c := cmp.Compare(Normalize(a), Normalize(b)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

// Index maps normalised keys to their position in an ordered category list.
func Index(categories []string) map[string]int {
	idx := make(map[string]int, len(categories))
	for i, label := range categories {
		key := Normalize(label)
		if _, ok := idx[key]; ok {
			continue
		}
		idx[key] = i
	}
	return idx
}
