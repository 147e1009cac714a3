package alerting

import (
	"strings"

	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
)

// ValidateListing checks that a published listing carries what matching needs.
func ValidateListing(l model.Listing) error {
	switch {
	case strings.TrimSpace(l.ID) == "":
		return invalid("listingId", "Listing id is required.")
	case strings.TrimSpace(l.Title) == "":
		return invalid("title", "Listing title is required.")
	case strings.TrimSpace(l.Category) == "":
		return invalid("category", "Listing category is required.")
	case l.Budget < 0:
		return invalid("budget", "Listing budget cannot be negative.")
	}
	return nil
}

func validateFilters(f model.Filters) error {
	if f.Budget.Min < 0 {
		return invalid("minBudget", "Minimum budget cannot be negative.")
	}
	if f.Budget.Max != nil && *f.Budget.Max < f.Budget.Min {
		return invalid("maxBudget", "Maximum budget must not be lower than the minimum budget.")
	}
	if f.Empty() {
		return invalid("filters", "Choose at least one category, location, keyword or budget limit.")
	}
	return nil
}

func validateFrequency(f model.Frequency) error {
	if !f.Valid() {
		return invalid("frequency", "Frequency must be immediate, daily or weekly.")
	}
	return nil
}

// normalize trims values, drops blanks and removes duplicates while keeping order.
func normalize(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func normalizeFilters(f model.Filters) model.Filters {
	f.Categories = normalize(f.Categories)
	f.Locations = normalize(f.Locations)
	f.Keywords = normalize(f.Keywords)
	return f
}
