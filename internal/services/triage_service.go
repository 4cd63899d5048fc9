package services

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/triagelab/feedlens/internal/engine"
	"github.com/triagelab/feedlens/internal/metrics"
	"github.com/triagelab/feedlens/internal/models"
	"github.com/triagelab/feedlens/internal/store"
	"github.com/triagelab/feedlens/internal/translator"
	"github.com/triagelab/feedlens/internal/utils"
)

// ClusterSource supplies tagged cluster assignments for the full corpus.
type ClusterSource interface {
	TaggedClusters(ctx context.Context, corpus []models.FeedbackItem) (models.TaggedClusters, error)
}

// TriageService answers filter, grouping, vocabulary and translation requests
// over an immutable feedback corpus.
type TriageService struct {
	logger           *slog.Logger
	corpus           *store.FeedbackStore
	clusters         ClusterSource
	aggregator       *engine.Aggregator
	coordinator      *translator.Coordinator
	translateTimeout time.Duration
	latencies        *utils.LatencyTracker
	handled          atomic.Int64
}

// NewTriageService wires the service. clusters and coordinator may be nil, in
// which case aggregation and translation report their collaborator as
// unavailable.
func NewTriageService(logger *slog.Logger, corpus *store.FeedbackStore, clusters ClusterSource, aggregator *engine.Aggregator, coordinator *translator.Coordinator, translateTimeout time.Duration) *TriageService {
	if logger == nil {
		logger = slog.Default()
	}
	if aggregator == nil {
		aggregator = engine.NewAggregator(nil)
	}
	metrics.SetCorpusSize(corpus.Len())
	return &TriageService{
		logger:           logger,
		corpus:           corpus,
		clusters:         clusters,
		aggregator:       aggregator,
		coordinator:      coordinator,
		translateTimeout: translateTimeout,
		latencies:        utils.NewLatencyTracker(1024),
	}
}

// ApplyFilter returns the corpus items matching spec in load order. Cluster
// facets keep only items belonging to at least one selected cluster; when
// the clustering collaborator is down they are skipped and the result says so.
func (s *TriageService) ApplyFilter(ctx context.Context, spec models.FilterSpec) (models.QueryResult, error) {
	start := time.Now()
	if err := spec.Validate(); err != nil {
		metrics.ObserveOperation(metrics.OpFilter, time.Since(start), metrics.OutcomeError)
		return models.QueryResult{}, utils.NewAppError("ApplyFilter", utils.KindValidation, "invalid filter", err)
	}

	all := s.corpus.All()
	items := engine.Apply(all, spec)
	result := models.QueryResult{Items: items, ClustersAvailable: true}

	if spec.HasClusterFacets() {
		assignments, err := s.taggedClusters(ctx, all)
		if err != nil {
			s.logger.Warn("cluster facets skipped", slog.Any("error", err))
			result.ClustersAvailable = false
			s.observe(metrics.OpFilter, start, metrics.OutcomeDegraded)
			return result, nil
		}
		selected := engine.Select(s.aggregator.Aggregate(items, assignments), spec)
		members := engine.MemberIDs(selected)
		kept := items[:0]
		for _, item := range items {
			if _, ok := members[item.ID]; ok {
				kept = append(kept, item)
			}
		}
		result.Items = kept
	}

	s.observe(metrics.OpFilter, start, metrics.OutcomeSuccess)
	return result, nil
}

// Aggregate groups the items matching spec's item facets into clusters,
// reports metric bounds over those clusters, then applies the cluster facets.
func (s *TriageService) Aggregate(ctx context.Context, spec models.FilterSpec) (models.GroupsResult, error) {
	start := time.Now()
	if err := spec.Validate(); err != nil {
		metrics.ObserveOperation(metrics.OpAggregate, time.Since(start), metrics.OutcomeError)
		return models.GroupsResult{}, utils.NewAppError("Aggregate", utils.KindValidation, "invalid filter", err)
	}

	all := s.corpus.All()
	assignments, err := s.taggedClusters(ctx, all)
	if err != nil {
		metrics.ObserveOperation(metrics.OpAggregate, time.Since(start), metrics.OutcomeError)
		s.logger.Error("aggregation unavailable", slog.Any("error", err))
		return models.GroupsResult{}, err
	}

	items := engine.Apply(all, spec)
	clusters := s.aggregator.Aggregate(items, assignments)
	importance, impact := engine.ClusterBounds(clusters)
	selected := engine.Select(clusters, spec)

	s.observe(metrics.OpAggregate, start, metrics.OutcomeSuccess)
	s.logger.Debug("aggregated clusters",
		slog.Int("items", len(items)),
		slog.Int("clusters", len(clusters)),
		slog.Int("selected", len(selected)),
	)
	return models.GroupsResult{
		Clusters:        selected,
		MatchedItems:    len(items),
		ImportanceRange: importance,
		ImpactRange:     impact,
	}, nil
}

// Vocabulary returns every tag and the metric bounds of the unfiltered
// corpus, recomputed with the configured importance scale.
func (s *TriageService) Vocabulary(ctx context.Context) (models.Vocabulary, error) {
	start := time.Now()
	all := s.corpus.All()
	assignments, err := s.taggedClusters(ctx, all)
	if err != nil {
		metrics.ObserveOperation(metrics.OpTags, time.Since(start), metrics.OutcomeError)
		return models.Vocabulary{}, err
	}
	importance, impact := engine.ClusterBounds(s.aggregator.Aggregate(all, assignments))
	s.observe(metrics.OpTags, start, metrics.OutcomeSuccess)
	return models.Vocabulary{
		Tags:            engine.TagVocabulary(assignments),
		ImportanceRange: importance,
		ImpactRange:     impact,
	}, nil
}

// TranslateAndMerge translates query for session and merges it into current.
// Failures, including superseded requests, leave the session filter as is.
func (s *TriageService) TranslateAndMerge(ctx context.Context, session, query string, current models.FilterSpec) (models.TranslationResult, error) {
	start := time.Now()
	if s.coordinator == nil {
		metrics.ObserveOperation(metrics.OpTranslate, time.Since(start), metrics.OutcomeError)
		metrics.ObserveTranslationFailure(string(translator.ReasonUnreachable))
		return models.TranslationResult{}, &translator.TranslationError{Reason: translator.ReasonUnreachable}
	}

	var tags []string
	if assignments, err := s.taggedClusters(ctx, s.corpus.All()); err == nil {
		tags = engine.TagVocabulary(assignments)
	} else {
		s.logger.Warn("translating without tag vocabulary", slog.Any("error", err))
	}

	if s.translateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.translateTimeout)
		defer cancel()
	}

	res, err := s.coordinator.Submit(ctx, session, query, current, tags)
	if err != nil {
		metrics.ObserveOperation(metrics.OpTranslate, time.Since(start), metrics.OutcomeError)
		metrics.ObserveTranslationFailure(string(translator.ReasonOf(err)))
		return models.TranslationResult{RequestID: res.RequestID}, err
	}
	s.observe(metrics.OpTranslate, start, metrics.OutcomeSuccess)
	return models.TranslationResult{RequestID: res.RequestID, Command: res.Command.Kind, Spec: res.Spec}, nil
}

// RecordFilter makes spec the session's active filter so later translations
// merge into what the operator is actually looking at.
func (s *TriageService) RecordFilter(session string, spec models.FilterSpec) {
	if s.coordinator == nil {
		return
	}
	s.coordinator.Set(session, spec)
}

// ApplyCommand applies a palette command that needs no translation to the
// session's active filter and returns the result.
func (s *TriageService) ApplyCommand(session string, cmd models.Command) models.FilterSpec {
	if s.coordinator == nil {
		return engine.Merge(models.FilterSpec{}, cmd)
	}
	return s.coordinator.Apply(session, cmd)
}

// ActiveFilter returns the filter most recently applied to session.
func (s *TriageService) ActiveFilter(session string) models.FilterSpec {
	if s.coordinator == nil {
		return models.FilterSpec{}
	}
	return s.coordinator.Active(session)
}

// LatencyP95 returns the p95 latency over recent operations.
func (s *TriageService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *TriageService) taggedClusters(ctx context.Context, corpus []models.FeedbackItem) (models.TaggedClusters, error) {
	if s.clusters == nil {
		return nil, utils.NewAppError("TaggedClusters", utils.KindAggregationUnavailable, "no clustering collaborator configured", nil)
	}
	assignments, err := s.clusters.TaggedClusters(ctx, corpus)
	if err != nil {
		return nil, utils.NewAppError("TaggedClusters", utils.KindAggregationUnavailable, "clustering collaborator unavailable", err)
	}
	return assignments, nil
}

func (s *TriageService) observe(op string, start time.Time, outcome string) {
	duration := time.Since(start)
	metrics.ObserveOperation(op, duration, outcome)
	s.latencies.Observe(duration)
	if n := s.handled.Add(1); n%100 == 0 {
		s.logger.Info("operation latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", s.latencies.Count()))
	}
}
