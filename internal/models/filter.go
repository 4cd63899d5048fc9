package models

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/triagelab/feedlens/internal/utils"
)

// FilterSpec describes the active facet constraints. Every field is optional:
// an empty string, nil pointer or empty slice leaves that facet unconstrained.
// Set facets match when the item's value is any member of the set.
type FilterSpec struct {
	// Text is matched against name and description together.
	Text        string
	Name        string
	Description string

	Importance []Importance
	Types      []FeedbackType
	Customers  []Customer

	// Date matches a single day exactly.
	Date *Date
	// DateRange matches a closed span of days. It is only applied when set
	// explicitly and never replaces exact-day matching.
	DateRange *DateRange

	// Tags, ImportanceScore and CustomerImpact constrain clusters rather than items.
	Tags            []string
	ImportanceScore *Interval[float64]
	CustomerImpact  *Interval[int]
}

// Interval is a closed range. Both bounds are inclusive.
type Interval[T cmp.Ordered] struct {
	Min T
	Max T
}

// Contains reports whether v lies within [Min, Max].
func (i Interval[T]) Contains(v T) bool {
	return v >= i.Min && v <= i.Max
}

// DateRange is a closed span of days. A zero bound leaves that side open.
type DateRange struct {
	From Date
	To   Date
}

// Contains reports whether d falls inside the range. Absent dates never match.
func (r DateRange) Contains(d Date) bool {
	if d.IsZero() {
		return false
	}
	if !r.From.IsZero() && d.Compare(r.From) < 0 {
		return false
	}
	if !r.To.IsZero() && d.Compare(r.To) > 0 {
		return false
	}
	return true
}

// IsZero reports whether no facet is constrained.
func (s FilterSpec) IsZero() bool {
	return !s.HasItemFacets() && !s.HasClusterFacets()
}

// HasItemFacets reports whether any facet evaluated directly on items is set.
func (s FilterSpec) HasItemFacets() bool {
	return strings.TrimSpace(s.Text) != "" ||
		strings.TrimSpace(s.Name) != "" ||
		strings.TrimSpace(s.Description) != "" ||
		len(s.Importance) > 0 ||
		len(s.Types) > 0 ||
		len(s.Customers) > 0 ||
		s.Date != nil ||
		s.DateRange != nil
}

// HasClusterFacets reports whether any cluster-level facet is set.
func (s FilterSpec) HasClusterFacets() bool {
	return len(s.Tags) > 0 || s.ImportanceScore != nil || s.CustomerImpact != nil
}

// Validate rejects values outside the rosters and inverted intervals.
func (s FilterSpec) Validate() error {
	for _, v := range s.Importance {
		if !v.Valid() {
			return &ValidationError{Field: "importance", Value: string(v), Reason: "not in roster"}
		}
	}
	for _, v := range s.Types {
		if !v.Valid() {
			return &ValidationError{Field: "type", Value: string(v), Reason: "not in roster"}
		}
	}
	for _, v := range s.Customers {
		if !v.Valid() {
			return &ValidationError{Field: "customer", Value: string(v), Reason: "not in roster"}
		}
	}
	for _, tag := range s.Tags {
		if strings.TrimSpace(tag) == "" {
			return &ValidationError{Field: "tags", Value: tag, Reason: "empty tag"}
		}
	}
	if r := s.ImportanceScore; r != nil && r.Min > r.Max {
		return &ValidationError{Field: "importance_score", Value: fmt.Sprintf("[%g, %g]", r.Min, r.Max), Reason: "min exceeds max"}
	}
	if r := s.CustomerImpact; r != nil && r.Min > r.Max {
		return &ValidationError{Field: "customer_impact", Value: fmt.Sprintf("[%d, %d]", r.Min, r.Max), Reason: "min exceeds max"}
	}
	if r := s.DateRange; r != nil && !r.From.IsZero() && !r.To.IsZero() && r.From.Compare(r.To) > 0 {
		return &ValidationError{Field: "date_range", Value: r.From.String() + ".." + r.To.String(), Reason: "from is after to"}
	}
	return nil
}

// ValidationError reports a FilterSpec value that cannot be applied.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Kind classifies the error for transport mapping.
func (e *ValidationError) Kind() utils.Kind { return utils.KindValidation }

// CommandKind discriminates filter commands.
type CommandKind int

const (
	// CommandMerge replaces every facet present in Spec and keeps the rest.
	CommandMerge CommandKind = iota
	// CommandSetText replaces only the free-text facet.
	CommandSetText
	// CommandClear resets every facet.
	CommandClear
)

func (k CommandKind) String() string {
	switch k {
	case CommandMerge:
		return "merge"
	case CommandSetText:
		return "set_text"
	case CommandClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Command is an operator intent applied to the active FilterSpec.
type Command struct {
	Kind CommandKind
	Text string
	Spec FilterSpec
}

// ClearCommand resets the filter state.
func ClearCommand() Command { return Command{Kind: CommandClear} }

// SetTextCommand replaces the free-text search.
func SetTextCommand(text string) Command { return Command{Kind: CommandSetText, Text: text} }

// MergeCommand overlays the present facets of spec.
func MergeCommand(spec FilterSpec) Command { return Command{Kind: CommandMerge, Spec: spec} }

const (
	// QueryMarker prefixes palette input that should go to the NLU translator.
	QueryMarker = "?"
	// ClearKeyword is the palette input that resets all filters.
	ClearKeyword = "clear"
)

// ParsePaletteInput classifies raw command-palette text. Input starting with
// QueryMarker is returned as a natural-language query with isQuery set; the
// bare keyword "clear" yields ClearCommand; anything else is a text search.
func ParsePaletteInput(input string) (cmd Command, query string, isQuery bool) {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, QueryMarker) {
		return Command{}, strings.TrimSpace(strings.TrimPrefix(trimmed, QueryMarker)), true
	}
	if strings.EqualFold(trimmed, ClearKeyword) {
		return ClearCommand(), "", false
	}
	return SetTextCommand(trimmed), "", false
}
