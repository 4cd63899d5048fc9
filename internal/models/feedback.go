package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/triagelab/feedlens/internal/utils"
)

// FeedbackItem is a single customer-feedback record. Items are built once at
// load time and treated as immutable values afterwards.
type FeedbackItem struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Importance  Importance   `json:"importance"`
	Type        FeedbackType `json:"type"`
	Customer    Customer     `json:"customer"`
	Date        Date         `json:"date"`
}

// Importance is the ordinal priority of a feedback item.
type Importance string

const (
	ImportanceLow    Importance = "Low"
	ImportanceMedium Importance = "Medium"
	ImportanceHigh   Importance = "High"
)

// FeedbackType enumerates where a feedback item came from.
type FeedbackType string

const (
	TypeSales    FeedbackType = "Sales"
	TypeCustomer FeedbackType = "Customer"
	TypeResearch FeedbackType = "Research"
)

// Customer is one of the fixed customer accounts.
type Customer string

const (
	CustomerLoom   Customer = "Loom"
	CustomerRamp   Customer = "Ramp"
	CustomerBrex   Customer = "Brex"
	CustomerVanta  Customer = "Vanta"
	CustomerNotion Customer = "Notion"
	CustomerLinear Customer = "Linear"
	CustomerOpenAI Customer = "OpenAI"
)

var (
	importanceRoster = []Importance{ImportanceHigh, ImportanceMedium, ImportanceLow}
	typeRoster       = []FeedbackType{TypeSales, TypeCustomer, TypeResearch}
	customerRoster   = []Customer{CustomerLoom, CustomerRamp, CustomerBrex, CustomerVanta, CustomerNotion, CustomerLinear, CustomerOpenAI}
)

// Importances returns the importance roster, highest first.
func Importances() []Importance { return append([]Importance(nil), importanceRoster...) }

// FeedbackTypes returns the feedback type roster.
func FeedbackTypes() []FeedbackType { return append([]FeedbackType(nil), typeRoster...) }

// Customers returns the customer roster.
func Customers() []Customer { return append([]Customer(nil), customerRoster...) }

// Rank orders importance levels: Low=1, Medium=2, High=3, unknown=0.
func (i Importance) Rank() int {
	switch i {
	case ImportanceLow:
		return 1
	case ImportanceMedium:
		return 2
	case ImportanceHigh:
		return 3
	default:
		return 0
	}
}

// Valid reports whether the value belongs to the roster.
func (i Importance) Valid() bool { return i.Rank() > 0 }

// Valid reports whether the value belongs to the roster.
func (t FeedbackType) Valid() bool { return inRoster(typeRoster, t) }

// Valid reports whether the value belongs to the roster.
func (c Customer) Valid() bool { return inRoster(customerRoster, c) }

// ParseImportance resolves a roster value case-insensitively.
func ParseImportance(value string) (Importance, error) {
	return parseRoster("importance", importanceRoster, value)
}

// ParseFeedbackType resolves a roster value case-insensitively.
func ParseFeedbackType(value string) (FeedbackType, error) {
	return parseRoster("type", typeRoster, value)
}

// ParseCustomer resolves a roster value case-insensitively.
func ParseCustomer(value string) (Customer, error) {
	return parseRoster("customer", customerRoster, value)
}

func parseRoster[T ~string](field string, roster []T, value string) (T, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range roster {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	var zero T
	return zero, &ValidationError{Field: field, Value: value, Reason: "not in roster"}
}

func inRoster[T comparable](roster []T, value T) bool {
	for _, candidate := range roster {
		if candidate == value {
			return true
		}
	}
	return false
}

// Date is a calendar day without time-of-day or zone. The zero value means absent.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates a timestamp to its calendar day in the timestamp's own location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate accepts YYYY-MM-DD or an ISO timestamp.
func ParseDate(value string) (Date, error) {
	t, err := utils.ParseDay(value)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// IsZero reports whether the date is absent.
func (d Date) IsZero() bool { return d == Date{} }

// Compare returns -1, 0 or +1 ordering d relative to other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText renders the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses YYYY-MM-DD or an ISO timestamp; empty text yields the zero date.
func (d *Date) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
