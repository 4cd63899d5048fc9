package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/triagelab/feedlens/internal/models"
)

const selectFeedback = `
	SELECT id, name, description, importance, type, customer, date
	FROM feedback
	ORDER BY rowid`

// LoadSQLite reads the corpus from the feedback table of a SQLite database.
// The database is opened read-only and closed before returning.
func LoadSQLite(ctx context.Context, dsn string) (*FeedbackStore, error) {
	db, err := sql.Open("sqlite", readOnlyDSN(dsn))
	if err != nil {
		return nil, &LoadError{Source: dsn, Record: -1, Err: fmt.Errorf("open database: %w", err)}
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, selectFeedback)
	if err != nil {
		return nil, &LoadError{Source: dsn, Record: -1, Err: fmt.Errorf("query feedback: %w", err)}
	}
	defer rows.Close()

	var items []models.FeedbackItem
	for i := 0; rows.Next(); i++ {
		var id, name, description, importance, feedbackType, customer, date sql.NullString
		if err := rows.Scan(&id, &name, &description, &importance, &feedbackType, &customer, &date); err != nil {
			return nil, &LoadError{Source: dsn, Record: i, Err: fmt.Errorf("scan row: %w", err)}
		}
		item, err := rawRecord{
			ID:          nullable(id),
			Name:        nullable(name),
			Description: nullable(description),
			Importance:  nullable(importance),
			Type:        nullable(feedbackType),
			Customer:    nullable(customer),
			Date:        nullable(date),
		}.toItem()
		if err != nil {
			return nil, &LoadError{Source: dsn, Record: i, Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &LoadError{Source: dsn, Record: -1, Err: fmt.Errorf("iterate feedback: %w", err)}
	}

	s, err := New(items)
	if err != nil {
		if loadErr, ok := err.(*LoadError); ok {
			loadErr.Source = dsn
		}
		return nil, err
	}
	return s, nil
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

// readOnlyDSN turns a path or file: URI into a URI with mode=ro, so a missing
// database is an error rather than a new empty file.
func readOnlyDSN(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if strings.Contains(dsn, "mode=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&mode=ro"
	}
	return dsn + "?mode=ro"
}
