package translator

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/triagelab/feedlens/internal/repo"
	"github.com/triagelab/feedlens/internal/utils"
)

// Reason classifies why a translation produced no command.
type Reason string

const (
	ReasonEmpty       Reason = "empty"
	ReasonUnreachable Reason = "unreachable"
	ReasonStatus      Reason = "status"
	ReasonMalformed   Reason = "malformed"
	ReasonTimeout     Reason = "timeout"
	ReasonSuperseded  Reason = "superseded"
)

// TranslationError is returned for any translation that must leave the
// active filter untouched.
type TranslationError struct {
	Reason    Reason
	RequestID string
	Err       error
}

func (e *TranslationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("translation %s", e.Reason)
	}
	return fmt.Sprintf("translation %s: %v", e.Reason, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// Kind classifies the error for transport mapping.
func (e *TranslationError) Kind() utils.Kind { return utils.KindTranslation }

// ReasonOf returns the reason carried by err, or "" when err is not a
// TranslationError.
func ReasonOf(err error) Reason {
	var te *TranslationError
	if errors.As(err, &te) {
		return te.Reason
	}
	return ""
}

func classify(err error) Reason {
	var (
		statusErr *repo.StatusError
		netErr    net.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReasonTimeout
	case errors.As(err, &statusErr):
		return ReasonStatus
	case errors.Is(err, repo.ErrMalformedResponse):
		return ReasonMalformed
	default:
		return ReasonUnreachable
	}
}
