// Package pages holds the configuration table of dashboard pages: per page
// metric key maps, category field, preferred order and rollup level.
package pages

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/pivotboard/internal/category"
	"github.com/odyssey-erp/pivotboard/internal/pivot"
)

// ErrPageNotFound is returned for modules missing from the catalog.
var ErrPageNotFound = errors.New("pages: page not found")

//go:embed catalog.yaml
var defaultCatalog []byte

var validate = validator.New()

// Page configures one dashboard page.
type Page struct {
	Module           string             `yaml:"module" validate:"required"`
	Title            string             `yaml:"title"`
	CategoryField    string             `yaml:"categoryField" validate:"required"`
	Rollup           bool               `yaml:"rollup"`
	Preferred        []string           `yaml:"preferred"`
	DefaultMetric    string             `yaml:"defaultMetric"`
	HideEmptyPeriods bool               `yaml:"hideEmptyPeriods"`
	Benchmark        bool               `yaml:"benchmark"`
	Metrics          []pivot.MetricSpec `yaml:"metrics" validate:"required,min=1,dive"`
}

// Metric returns the metric named name.
func (p Page) Metric(name string) (pivot.MetricSpec, bool) {
	for _, m := range p.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return pivot.MetricSpec{}, false
}

// SelectMetric returns the named metric, falling back to the default metric
// and then to the first one.
func (p Page) SelectMetric(name string) pivot.MetricSpec {
	if m, ok := p.Metric(name); ok {
		return m
	}
	if m, ok := p.Metric(p.DefaultMetric); ok {
		return m
	}
	return p.Metrics[0]
}

// Catalog is the full page table.
type Catalog struct {
	Branches map[string]string `yaml:"branches"`
	Pages    []Page            `yaml:"pages" validate:"required,min=1,dive"`

	resolver *category.Resolver
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from path, or the embedded one when path is empty.
func LoadFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pages: open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("pages: read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("pages: decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if len(c.Branches) > 0 {
		c.resolver = category.NewResolver(c.Branches)
	} else {
		c.resolver = category.DefaultResolver()
	}
	return &c, nil
}

// Validate checks the catalog for structural errors.
func (c *Catalog) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("pages: invalid catalog: %w", err)
	}
	modules := make(map[string]struct{}, len(c.Pages))
	for _, p := range c.Pages {
		if _, dup := modules[p.Module]; dup {
			return fmt.Errorf("pages: duplicate module %q", p.Module)
		}
		modules[p.Module] = struct{}{}
		names := make(map[string]struct{}, len(p.Metrics))
		for _, m := range p.Metrics {
			if err := m.Validate(); err != nil {
				return fmt.Errorf("pages: module %q: %w", p.Module, err)
			}
			if _, dup := names[m.Name]; dup {
				return fmt.Errorf("pages: module %q: duplicate metric %q", p.Module, m.Name)
			}
			names[m.Name] = struct{}{}
		}
		if p.DefaultMetric != "" {
			if _, ok := names[p.DefaultMetric]; !ok {
				return fmt.Errorf("pages: module %q: unknown default metric %q", p.Module, p.DefaultMetric)
			}
		}
	}
	return nil
}

// Page looks up a page by module name.
func (c *Catalog) Page(module string) (Page, error) {
	for _, p := range c.Pages {
		if p.Module == module {
			return p, nil
		}
	}
	return Page{}, fmt.Errorf("%w: %s", ErrPageNotFound, module)
}

// Modules lists configured module names in catalog order.
func (c *Catalog) Modules() []string {
	out := make([]string, 0, len(c.Pages))
	for _, p := range c.Pages {
		out = append(out, p.Module)
	}
	return out
}

// Resolver returns the branch to city resolver of the catalog.
func (c *Catalog) Resolver() *category.Resolver {
	if c.resolver == nil {
		return category.DefaultResolver()
	}
	return c.resolver
}
