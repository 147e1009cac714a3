// Package matcher decides whether a listing satisfies an alert's filters.
package matcher

import (
	"slices"
	"strings"

	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
)

// Matches reports whether listing satisfies every filter dimension of alert.
// Location uses exact membership, not substring matching.
func Matches(listing model.Listing, alert model.Alert) bool {
	return matchCategory(listing, alert.Filters) &&
		matchLocation(listing, alert.Filters) &&
		alert.Budget.Contains(listing.Budget) &&
		matchKeywords(listing, alert.Filters)
}

// Filter returns the alerts that match listing, preserving their order.
func Filter(listing model.Listing, alerts []model.Alert) []model.Alert {
	var matched []model.Alert
	for _, a := range alerts {
		if Matches(listing, a) {
			matched = append(matched, a)
		}
	}
	return matched
}

func matchCategory(listing model.Listing, f model.Filters) bool {
	return len(f.Categories) == 0 || slices.Contains(f.Categories, listing.Category)
}

func matchLocation(listing model.Listing, f model.Filters) bool {
	return len(f.Locations) == 0 || slices.Contains(f.Locations, listing.Location)
}

func matchKeywords(listing model.Listing, f model.Filters) bool {
	if len(f.Keywords) == 0 {
		return true
	}
	title := strings.ToLower(listing.Title)
	for _, kw := range f.Keywords {
		if strings.Contains(title, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
