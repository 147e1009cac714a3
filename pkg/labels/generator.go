// Package labels builds human-readable alert names from their filters.
package labels

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
)

const (
	separator = " · "
	maxShown  = 2
)

// Generator produces alert labels from filters using a category catalog.
type Generator struct {
	catalog *Catalog
}

// NewGenerator creates a generator. A nil catalog selects DefaultCatalog.
func NewGenerator(catalog *Catalog) *Generator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Generator{catalog: catalog}
}

// Generate returns a short label such as "Cleaning, Repair +1 · Sofia · 50–200".
// It is deterministic and performs no I/O.
func (g *Generator) Generate(f model.Filters) string {
	var parts []string

	if len(f.Categories) > 0 {
		names := make([]string, 0, len(f.Categories))
		for _, slug := range f.Categories {
			names = append(names, g.catalog.CategoryLabel(slug))
		}
		parts = append(parts, summarize(names))
	}
	if len(f.Locations) > 0 {
		parts = append(parts, summarize(f.Locations))
	}
	if budget := describeBudget(f.Budget); budget != "" {
		parts = append(parts, budget)
	}

	if len(parts) == 0 {
		return g.catalog.Fallback
	}
	return strings.Join(parts, separator)
}

// summarize joins the first maxShown values and appends "+N" for the rest.
func summarize(values []string) string {
	if len(values) <= maxShown {
		return strings.Join(values, ", ")
	}
	return fmt.Sprintf("%s +%d", strings.Join(values[:maxShown], ", "), len(values)-maxShown)
}

func describeBudget(b model.BudgetRange) string {
	switch {
	case b.Min > 0 && b.Max != nil:
		return formatAmount(b.Min) + "–" + formatAmount(*b.Max)
	case b.Min > 0:
		return "from " + formatAmount(b.Min)
	case b.Max != nil:
		return "up to " + formatAmount(*b.Max)
	}
	return ""
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
