package engine

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/triagelab/feedlens/internal/models"
)

type predicate func(models.FeedbackItem) bool

// Apply returns the items that satisfy every facet of spec, preserving input
// order. Facets are AND-combined; values inside a set facet are OR-combined;
// an empty facet filters nothing. Neither items nor spec are modified.
func Apply(items []models.FeedbackItem, spec models.FilterSpec) []models.FeedbackItem {
	preds := itemPredicates(spec)
	out := make([]models.FeedbackItem, 0, len(items))
	for _, item := range items {
		if matchesAll(item, preds) {
			out = append(out, item)
		}
	}
	return out
}

func matchesAll(item models.FeedbackItem, preds []predicate) bool {
	for _, p := range preds {
		if !p(item) {
			return false
		}
	}
	return true
}

// itemPredicates builds one predicate per constrained facet. Small enum sets
// come first so substring search only runs on survivors.
func itemPredicates(spec models.FilterSpec) []predicate {
	var preds []predicate

	if len(spec.Importance) > 0 {
		set := toSet(spec.Importance)
		preds = append(preds, func(it models.FeedbackItem) bool { _, ok := set[it.Importance]; return ok })
	}
	if len(spec.Types) > 0 {
		set := toSet(spec.Types)
		preds = append(preds, func(it models.FeedbackItem) bool { _, ok := set[it.Type]; return ok })
	}
	if len(spec.Customers) > 0 {
		set := toSet(spec.Customers)
		preds = append(preds, func(it models.FeedbackItem) bool { _, ok := set[it.Customer]; return ok })
	}

	if spec.Date != nil {
		day := *spec.Date
		preds = append(preds, func(it models.FeedbackItem) bool {
			return !it.Date.IsZero() && it.Date.Compare(day) == 0
		})
	}
	if spec.DateRange != nil {
		span := *spec.DateRange
		preds = append(preds, func(it models.FeedbackItem) bool { return span.Contains(it.Date) })
	}

	fold := cases.Fold()
	if p := substring(fold, spec.Name, func(it models.FeedbackItem) string { return it.Name }); p != nil {
		preds = append(preds, p)
	}
	if p := substring(fold, spec.Description, func(it models.FeedbackItem) string { return it.Description }); p != nil {
		preds = append(preds, p)
	}
	if p := substring(fold, spec.Text, func(it models.FeedbackItem) string { return it.Name + " " + it.Description }); p != nil {
		preds = append(preds, p)
	}
	return preds
}

// substring returns a case-insensitive containment predicate, or nil for an
// empty query. Folding handles scripts where lowercasing is not enough.
func substring(fold cases.Caser, query string, field func(models.FeedbackItem) string) predicate {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	needle := fold.String(query)
	return func(it models.FeedbackItem) bool {
		return strings.Contains(fold.String(field(it)), needle)
	}
}

func toSet[T comparable](values []T) map[T]struct{} {
	set := make(map[T]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
