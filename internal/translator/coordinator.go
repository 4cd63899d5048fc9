package translator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/triagelab/feedlens/internal/engine"
	"github.com/triagelab/feedlens/internal/models"
)

// DefaultSession is used when a caller does not identify its session.
const DefaultSession = "default"

// Result is a translation that was applied to a session.
type Result struct {
	RequestID string
	Command   models.Command
	Spec      models.FilterSpec
}

type session struct {
	generation uint64
	cancel     context.CancelFunc
	active     models.FilterSpec
}

// Coordinator enforces last-request-wins per operator session. Submitting a
// translation cancels the session's in-flight request, and a result that
// completes after being superseded is discarded without touching the
// session's active filter.
type Coordinator struct {
	translator *Translator
	logger     *slog.Logger
	newID      func() string

	mu       sync.Mutex
	sessions map[string]*session
}

// NewCoordinator wraps translator.
func NewCoordinator(translator *Translator, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		translator: translator,
		logger:     logger,
		newID:      uuid.NewString,
		sessions:   make(map[string]*session),
	}
}

// Submit translates query and merges the command into current. On success
// the merged spec becomes the session's active filter.
func (c *Coordinator) Submit(ctx context.Context, sessionID, query string, current models.FilterSpec, tags []string) (Result, error) {
	if sessionID == "" {
		sessionID = DefaultSession
	}
	requestID := c.newID()

	c.mu.Lock()
	s := c.sessionLocked(sessionID)
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	generation := s.generation
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	log := c.logger.With(slog.String("session", sessionID), slog.String("request_id", requestID))
	log.Debug("translation submitted", slog.Uint64("generation", generation))

	cmd, err := c.translator.Translate(reqCtx, query, tags)

	c.mu.Lock()
	defer c.mu.Unlock()
	if s.generation != generation {
		log.Info("translation superseded", slog.Uint64("generation", generation), slog.Uint64("latest", s.generation))
		return Result{RequestID: requestID}, &TranslationError{Reason: ReasonSuperseded, RequestID: requestID, Err: err}
	}
	s.cancel = nil
	if err != nil {
		var te *TranslationError
		if errors.As(err, &te) {
			te.RequestID = requestID
		}
		return Result{RequestID: requestID}, err
	}

	s.active = engine.Merge(current, cmd)
	log.Info("translation applied", slog.String("command", cmd.Kind.String()))
	return Result{RequestID: requestID, Command: cmd, Spec: engine.Clone(s.active)}, nil
}

// Apply merges a command that needs no translation into the session's
// active filter. It does not cancel in-flight translations.
func (c *Coordinator) Apply(sessionID string, cmd models.Command) models.FilterSpec {
	if sessionID == "" {
		sessionID = DefaultSession
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessionLocked(sessionID)
	s.active = engine.Merge(s.active, cmd)
	return engine.Clone(s.active)
}

// Set records spec as the session's active filter, as when the operator edits
// facets directly. In-flight translations are not cancelled.
func (c *Coordinator) Set(sessionID string, spec models.FilterSpec) models.FilterSpec {
	if sessionID == "" {
		sessionID = DefaultSession
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessionLocked(sessionID)
	s.active = engine.Clone(spec)
	return engine.Clone(s.active)
}

// Active returns the session's current filter.
func (c *Coordinator) Active(sessionID string) models.FilterSpec {
	if sessionID == "" {
		sessionID = DefaultSession
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[sessionID]; ok {
		return engine.Clone(s.active)
	}
	return models.FilterSpec{}
}

func (c *Coordinator) sessionLocked(id string) *session {
	s, ok := c.sessions[id]
	if !ok {
		s = &session{}
		c.sessions[id] = s
	}
	return s
}
