package gotlex

import (
	"strings"

	"golang.org/x/text/cases"
)

// keySeparator joins the parts of a composite key.
const keySeparator = "|"

// NormalizeKey trims surrounding whitespace and case-folds a lookup term,
// so that " Courir " and "courir" address the same cache entry.
func NormalizeKey(term string) string {
	// A Caser is stateful; never share one between goroutines.
	return cases.Fold().String(strings.TrimSpace(term))
}

// CompositeKey normalizes each part and joins them into a single key.
// Empty parts are kept so that ("être", "", "p") and ("être", "p") differ.
func CompositeKey(parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = NormalizeKey(p)
	}
	return strings.Join(normalized, keySeparator)
}
