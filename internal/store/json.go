package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/triagelab/feedlens/internal/models"
)

// jsonRecord mirrors one entry of the corpus file. Ids may be numbers or strings.
type jsonRecord struct {
	ID          json.RawMessage `json:"id"`
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Importance  *string         `json:"importance"`
	Type        *string         `json:"type"`
	Customer    *string         `json:"customer"`
	Date        *string         `json:"date"`
}

// LoadJSON reads a corpus file holding a JSON array of feedback records.
func LoadJSON(path string) (*FeedbackStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Record: -1, Err: err}
	}
	items, err := decodeJSON(data)
	if err == nil {
		var s *FeedbackStore
		if s, err = New(items); err == nil {
			return s, nil
		}
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		loadErr.Source = path
		return nil, loadErr
	}
	return nil, &LoadError{Source: path, Record: -1, Err: err}
}

func decodeJSON(data []byte) ([]models.FeedbackItem, error) {
	var records []jsonRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	items := make([]models.FeedbackItem, 0, len(records))
	for i, rec := range records {
		id, err := decodeID(rec.ID)
		if err != nil {
			return nil, &LoadError{Record: i, Err: err}
		}
		item, err := rawRecord{
			ID:          id,
			Name:        rec.Name,
			Description: rec.Description,
			Importance:  rec.Importance,
			Type:        rec.Type,
			Customer:    rec.Customer,
			Date:        rec.Date,
		}.toItem()
		if err != nil {
			return nil, &LoadError{Record: i, Err: err}
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeID(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode id: %w", err)
		}
		return &s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decode id: %w", err)
	}
	s := n.String()
	return &s, nil
}
