package category

import (
	"slices"
	"strings"
)

// Resolver maps branch labels to their parent city. It is immutable once
// constructed and safe for concurrent use.
type Resolver struct {
	parents  map[string]string
	branches map[string][]string
	cities   []string
}

// NewResolver builds a resolver from a branch to city table. Keys are matched
// case-insensitively; blank entries are ignored.
func NewResolver(table map[string]string) *Resolver {
	r := &Resolver{
		parents:  make(map[string]string, len(table)),
		branches: make(map[string][]string),
	}
	names := make([]string, 0, len(table))
	for branch := range table {
		names = append(names, branch)
	}
	slices.SortFunc(names, compareLabels)
	for _, branch := range names {
		city := strings.TrimSpace(table[branch])
		key := Normalize(branch)
		if key == "" || city == "" {
			continue
		}
		if _, dup := r.parents[key]; dup {
			continue
		}
		r.parents[key] = city
		cityKey := Normalize(city)
		if _, seen := r.branches[cityKey]; !seen {
			r.cities = append(r.cities, city)
		}
		r.branches[cityKey] = append(r.branches[cityKey], strings.TrimSpace(branch))
	}
	return r
}

// DefaultResolver returns a resolver over the built-in branch table.
func DefaultResolver() *Resolver {
	return NewResolver(defaultBranches)
}

// ParentOf returns the city owning branch, or Others when the branch is not
// mapped yet.
func (r *Resolver) ParentOf(branch string) string {
	if r == nil {
		return Others
	}
	if city, ok := r.parents[Normalize(branch)]; ok {
		return city
	}
	return Others
}

// Cities lists the distinct parent cities in case-insensitive order. A city
// spelled with different casing keeps the spelling of its first branch in
// sorted order.
func (r *Resolver) Cities() []string {
	if r == nil {
		return nil
	}
	return Order(r.cities, nil)
}

// Branches lists the branches mapped to city.
func (r *Resolver) Branches(city string) []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.branches[Normalize(city)])
}

var defaultBranches = map[string]string{
	"Koramangala":     "Bangalore",
	"Indiranagar":     "Bangalore",
	"Jayanagar":       "Bangalore",
	"Whitefield":      "Bangalore",
	"Electronic City": "Bangalore",
	"Hebbal":          "Bangalore",
	"Vijayanagar":     "Mysore",
	"Kuvempunagar":    "Mysore",
	"Hampankatta":     "Mangalore",
	"Kadri":           "Mangalore",
	"Kothrud":         "Pune",
	"Hinjewadi":       "Pune",
	"Viman Nagar":     "Pune",
	"Anna Nagar":      "Chennai",
	"T Nagar":         "Chennai",
	"Velachery":       "Chennai",
	"Gachibowli":      "Hyderabad",
	"Kukatpally":      "Hyderabad",
	"Banjara Hills":   "Hyderabad",
}
