package models

import (
	"fmt"
	"math"
	"strings"
)

// FilterPayload is the JSON shape of a FilterSpec shared by the HTTP and gRPC
// surfaces and the NLU collaborator.
type FilterPayload struct {
	Text            string            `json:"text,omitempty"`
	Name            string            `json:"name,omitempty"`
	Description     string            `json:"description,omitempty"`
	Importance      []string          `json:"importance,omitempty"`
	Type            []string          `json:"type,omitempty"`
	Customer        []string          `json:"customer,omitempty"`
	Date            *string           `json:"date,omitempty"`
	DateRange       *DateRangePayload `json:"date_range,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	ImportanceScore []float64         `json:"importance_score,omitempty"`
	CustomerImpact  []float64         `json:"customer_impact,omitempty"`
	Clear           bool              `json:"clear,omitempty"`
}

// DateRangePayload is the wire form of DateRange.
type DateRangePayload struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Normalized returns a copy whose two-element ranges are ordered low to high.
func (p FilterPayload) Normalized() FilterPayload {
	if len(p.ImportanceScore) == 2 && p.ImportanceScore[0] > p.ImportanceScore[1] {
		p.ImportanceScore = []float64{p.ImportanceScore[1], p.ImportanceScore[0]}
	}
	if len(p.CustomerImpact) == 2 && p.CustomerImpact[0] > p.CustomerImpact[1] {
		p.CustomerImpact = []float64{p.CustomerImpact[1], p.CustomerImpact[0]}
	}
	return p
}

// ParsePayload converts the wire shape into a validated FilterSpec. The Clear
// flag is not part of a FilterSpec and is left for the caller to inspect.
func ParsePayload(p FilterPayload) (FilterSpec, error) {
	spec := FilterSpec{
		Text:        strings.TrimSpace(p.Text),
		Name:        strings.TrimSpace(p.Name),
		Description: strings.TrimSpace(p.Description),
	}

	for _, raw := range p.Importance {
		v, err := ParseImportance(raw)
		if err != nil {
			return FilterSpec{}, err
		}
		spec.Importance = appendUnique(spec.Importance, v)
	}
	for _, raw := range p.Type {
		v, err := ParseFeedbackType(raw)
		if err != nil {
			return FilterSpec{}, err
		}
		spec.Types = appendUnique(spec.Types, v)
	}
	for _, raw := range p.Customer {
		v, err := ParseCustomer(raw)
		if err != nil {
			return FilterSpec{}, err
		}
		spec.Customers = appendUnique(spec.Customers, v)
	}

	if p.Date != nil && strings.TrimSpace(*p.Date) != "" {
		d, err := ParseDate(*p.Date)
		if err != nil {
			return FilterSpec{}, &ValidationError{Field: "date", Value: *p.Date, Reason: err.Error()}
		}
		spec.Date = &d
	}
	if p.DateRange != nil && (p.DateRange.From != "" || p.DateRange.To != "") {
		var r DateRange
		if err := r.From.UnmarshalText([]byte(p.DateRange.From)); err != nil {
			return FilterSpec{}, &ValidationError{Field: "date_range.from", Value: p.DateRange.From, Reason: err.Error()}
		}
		if err := r.To.UnmarshalText([]byte(p.DateRange.To)); err != nil {
			return FilterSpec{}, &ValidationError{Field: "date_range.to", Value: p.DateRange.To, Reason: err.Error()}
		}
		spec.DateRange = &r
	}

	for _, tag := range p.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			spec.Tags = appendUnique(spec.Tags, tag)
		}
	}

	if p.ImportanceScore != nil {
		if len(p.ImportanceScore) != 2 {
			return FilterSpec{}, &ValidationError{Field: "importance_score", Value: fmt.Sprint(p.ImportanceScore), Reason: "expected [min, max]"}
		}
		spec.ImportanceScore = &Interval[float64]{Min: p.ImportanceScore[0], Max: p.ImportanceScore[1]}
	}
	if p.CustomerImpact != nil {
		if len(p.CustomerImpact) != 2 {
			return FilterSpec{}, &ValidationError{Field: "customer_impact", Value: fmt.Sprint(p.CustomerImpact), Reason: "expected [min, max]"}
		}
		lo, hi := p.CustomerImpact[0], p.CustomerImpact[1]
		if lo != math.Trunc(lo) || hi != math.Trunc(hi) {
			return FilterSpec{}, &ValidationError{Field: "customer_impact", Value: fmt.Sprint(p.CustomerImpact), Reason: "bounds must be integers"}
		}
		if lo < 0 || hi < 0 || lo > math.MaxInt32 || hi > math.MaxInt32 {
			return FilterSpec{}, &ValidationError{Field: "customer_impact", Value: fmt.Sprint(p.CustomerImpact), Reason: "bounds out of range"}
		}
		spec.CustomerImpact = &Interval[int]{Min: int(lo), Max: int(hi)}
	}

	if err := spec.Validate(); err != nil {
		return FilterSpec{}, err
	}
	return spec, nil
}

// ToPayload renders a FilterSpec in its wire shape.
func ToPayload(spec FilterSpec) FilterPayload {
	p := FilterPayload{
		Text:        spec.Text,
		Name:        spec.Name,
		Description: spec.Description,
		Tags:        append([]string(nil), spec.Tags...),
	}
	for _, v := range spec.Importance {
		p.Importance = append(p.Importance, string(v))
	}
	for _, v := range spec.Types {
		p.Type = append(p.Type, string(v))
	}
	for _, v := range spec.Customers {
		p.Customer = append(p.Customer, string(v))
	}
	if spec.Date != nil {
		s := spec.Date.String()
		p.Date = &s
	}
	if spec.DateRange != nil {
		p.DateRange = &DateRangePayload{From: spec.DateRange.From.String(), To: spec.DateRange.To.String()}
	}
	if r := spec.ImportanceScore; r != nil {
		p.ImportanceScore = []float64{r.Min, r.Max}
	}
	if r := spec.CustomerImpact; r != nil {
		p.CustomerImpact = []float64{float64(r.Min), float64(r.Max)}
	}
	return p
}

func appendUnique[T comparable](values []T, v T) []T {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
