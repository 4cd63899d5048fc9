package translator

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/triagelab/feedlens/internal/models"
)

// Extractor turns a natural-language query into a raw filter payload. tags
// is the vocabulary the collaborator may choose tag values from.
type Extractor interface {
	Extract(ctx context.Context, query string, tags []string) (models.FilterPayload, error)
}

// Translator validates extractor output into filter commands.
type Translator struct {
	extractor Extractor
	logger    *slog.Logger
}

// New returns a Translator backed by extractor.
func New(extractor Extractor, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{extractor: extractor, logger: logger}
}

// Translate converts query into a Command. A leading query marker is
// stripped. Collaborator ranges are normalised to [min, max] before
// validation. A payload asking to clear yields the Clear command.
func (t *Translator) Translate(ctx context.Context, query string, tags []string) (models.Command, error) {
	query = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(query), models.QueryMarker))
	if query == "" {
		return models.Command{}, &TranslationError{Reason: ReasonEmpty}
	}
	if t.extractor == nil {
		return models.Command{}, &TranslationError{Reason: ReasonUnreachable}
	}

	payload, err := t.extractor.Extract(ctx, query, tags)
	if err != nil {
		reason := classify(err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		t.logger.Warn("translation failed", slog.String("reason", string(reason)), slog.Any("error", err))
		return models.Command{}, &TranslationError{Reason: reason, Err: err}
	}

	if payload.Clear {
		return models.ClearCommand(), nil
	}
	spec, err := models.ParsePayload(payload.Normalized())
	if err != nil {
		t.logger.Warn("translation payload rejected", slog.Any("error", err))
		return models.Command{}, &TranslationError{Reason: ReasonMalformed, Err: err}
	}
	return models.MergeCommand(spec), nil
}
