package engine

import (
	"slices"
	"strings"

	"github.com/triagelab/feedlens/internal/models"
)

// Merge applies cmd to the current filter state and returns the new state.
// Clear resets every facet regardless of current. SetText replaces only the
// free-text facet. Merge replaces each facet present in the incoming spec and
// keeps every other facet of current.
func Merge(current models.FilterSpec, cmd models.Command) models.FilterSpec {
	switch cmd.Kind {
	case models.CommandClear:
		return models.FilterSpec{}
	case models.CommandSetText:
		next := Clone(current)
		next.Text = strings.TrimSpace(cmd.Text)
		return next
	default:
		return overlay(current, cmd.Spec)
	}
}

func overlay(current, incoming models.FilterSpec) models.FilterSpec {
	next := Clone(current)
	if v := strings.TrimSpace(incoming.Text); v != "" {
		next.Text = v
	}
	if v := strings.TrimSpace(incoming.Name); v != "" {
		next.Name = v
	}
	if v := strings.TrimSpace(incoming.Description); v != "" {
		next.Description = v
	}
	if len(incoming.Importance) > 0 {
		next.Importance = slices.Clone(incoming.Importance)
	}
	if len(incoming.Types) > 0 {
		next.Types = slices.Clone(incoming.Types)
	}
	if len(incoming.Customers) > 0 {
		next.Customers = slices.Clone(incoming.Customers)
	}
	if incoming.Date != nil {
		d := *incoming.Date
		next.Date = &d
	}
	if incoming.DateRange != nil {
		r := *incoming.DateRange
		next.DateRange = &r
	}
	if len(incoming.Tags) > 0 {
		next.Tags = slices.Clone(incoming.Tags)
	}
	if incoming.ImportanceScore != nil {
		r := *incoming.ImportanceScore
		next.ImportanceScore = &r
	}
	if incoming.CustomerImpact != nil {
		r := *incoming.CustomerImpact
		next.CustomerImpact = &r
	}
	return next
}

// Clone deep-copies spec so the result never aliases the caller's slices.
func Clone(spec models.FilterSpec) models.FilterSpec {
	out := spec
	out.Importance = slices.Clone(spec.Importance)
	out.Types = slices.Clone(spec.Types)
	out.Customers = slices.Clone(spec.Customers)
	out.Tags = slices.Clone(spec.Tags)
	if spec.Date != nil {
		d := *spec.Date
		out.Date = &d
	}
	if spec.DateRange != nil {
		r := *spec.DateRange
		out.DateRange = &r
	}
	if spec.ImportanceScore != nil {
		r := *spec.ImportanceScore
		out.ImportanceScore = &r
	}
	if spec.CustomerImpact != nil {
		r := *spec.CustomerImpact
		out.CustomerImpact = &r
	}
	return out
}
