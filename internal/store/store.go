package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/triagelab/feedlens/internal/models"
	"github.com/triagelab/feedlens/internal/utils"
)

// FeedbackStore is the read-only feedback corpus. It is built once at
// startup and safe for concurrent use because nothing mutates it.
type FeedbackStore struct {
	items []models.FeedbackItem
}

// New validates items and returns a store preserving their order.
func New(items []models.FeedbackItem) (*FeedbackStore, error) {
	if len(items) == 0 {
		return nil, &LoadError{Source: "corpus", Record: -1, Err: fmt.Errorf("corpus is empty")}
	}
	s := &FeedbackStore{items: make([]models.FeedbackItem, len(items))}
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if err := checkItem(item); err != nil {
			return nil, &LoadError{Source: "corpus", Record: i, Err: err}
		}
		if _, dup := seen[item.ID]; dup {
			return nil, &LoadError{Source: "corpus", Record: i, Err: fmt.Errorf("duplicate id %q", item.ID)}
		}
		seen[item.ID] = struct{}{}
		s.items[i] = item
	}
	return s, nil
}

// All returns the corpus in load order. The returned slice is a copy.
func (s *FeedbackStore) All() []models.FeedbackItem {
	return append([]models.FeedbackItem(nil), s.items...)
}

// Len returns the corpus size.
func (s *FeedbackStore) Len() int { return len(s.items) }

// Source kinds accepted by Open.
const (
	SourceJSON   = "json"
	SourceSQLite = "sqlite"
)

// Open loads the corpus from the configured source kind.
func Open(ctx context.Context, kind, location string) (*FeedbackStore, error) {
	switch strings.ToLower(kind) {
	case "", SourceJSON:
		return LoadJSON(location)
	case SourceSQLite:
		return LoadSQLite(ctx, location)
	default:
		return nil, &LoadError{Source: location, Record: -1, Err: fmt.Errorf("unknown corpus source %q", kind)}
	}
}

// LoadError reports a malformed or unreadable corpus. It is fatal at startup.
type LoadError struct {
	Source string
	// Record is the zero-based record index, or -1 when the failure is not
	// tied to a single record.
	Record int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Record < 0 {
		return fmt.Sprintf("load %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("load %s: record %d: %v", e.Source, e.Record, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Kind classifies the error for transport mapping.
func (e *LoadError) Kind() utils.Kind { return utils.KindLoad }

// rawRecord carries a record's fields before roster validation. A nil
// pointer marks a field missing from the source.
type rawRecord struct {
	ID          *string
	Name        *string
	Description *string
	Importance  *string
	Type        *string
	Customer    *string
	Date        *string
}

func (r rawRecord) toItem() (models.FeedbackItem, error) {
	required := []struct {
		name  string
		value *string
	}{
		{"id", r.ID}, {"name", r.Name}, {"description", r.Description},
		{"importance", r.Importance}, {"type", r.Type}, {"customer", r.Customer},
	}
	for _, field := range required {
		if field.value == nil {
			return models.FeedbackItem{}, fmt.Errorf("missing required field %q", field.name)
		}
	}
	if strings.TrimSpace(*r.ID) == "" {
		return models.FeedbackItem{}, fmt.Errorf("empty id")
	}

	importance, err := models.ParseImportance(*r.Importance)
	if err != nil {
		return models.FeedbackItem{}, err
	}
	feedbackType, err := models.ParseFeedbackType(*r.Type)
	if err != nil {
		return models.FeedbackItem{}, err
	}
	customer, err := models.ParseCustomer(*r.Customer)
	if err != nil {
		return models.FeedbackItem{}, err
	}

	item := models.FeedbackItem{
		ID:          strings.TrimSpace(*r.ID),
		Name:        *r.Name,
		Description: *r.Description,
		Importance:  importance,
		Type:        feedbackType,
		Customer:    customer,
	}
	// An unparseable date leaves the item undated rather than failing the load.
	if r.Date != nil {
		if d, err := models.ParseDate(*r.Date); err == nil {
			item.Date = d
		}
	}
	return item, nil
}

func checkItem(item models.FeedbackItem) error {
	switch {
	case strings.TrimSpace(item.ID) == "":
		return fmt.Errorf("empty id")
	case !item.Importance.Valid():
		return fmt.Errorf("importance %q not in roster", item.Importance)
	case !item.Type.Valid():
		return fmt.Errorf("type %q not in roster", item.Type)
	case !item.Customer.Valid():
		return fmt.Errorf("customer %q not in roster", item.Customer)
	}
	return nil
}
