package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/octobees/gluten-finder/api/internal/entity"
	"github.com/octobees/gluten-finder/api/internal/logger"
	"github.com/octobees/gluten-finder/api/internal/metrics"
	"github.com/octobees/gluten-finder/api/internal/places"
)

// Classifier sends a prompt to the generative text service.
type Classifier interface {
	Classify(ctx context.Context, prompt string) entity.ClassificationResult
}

// ResultCache stores classified discoveries between requests.
type ResultCache interface {
	Get(ctx context.Context, query entity.SearchQuery) (entity.Discovery, bool, error)
	Set(ctx context.Context, query entity.SearchQuery, discovery entity.Discovery) error
}

type stage string

const (
	stageSearching      stage = "searching"
	stageSearchEmpty    stage = "search_empty"
	stageSearchNonEmpty stage = "search_non_empty"
	stageClassifying    stage = "classifying"
	stageDone           stage = "done"
)

// DiscoveryService runs the search, prompt and classification steps for one query.
type DiscoveryService struct {
	searcher     places.Searcher
	classifier   Classifier
	cache        ResultCache
	maxRetries   int
	retryBackoff time.Duration
	log          *zap.Logger
}

// DiscoveryOption customises a DiscoveryService.
type DiscoveryOption func(*DiscoveryService)

// WithCache enables result caching.
func WithCache(cache ResultCache) DiscoveryOption {
	return func(s *DiscoveryService) {
		s.cache = cache
	}
}

// WithClassifyRetries sets how often a transient classification failure is retried and the first backoff interval.
func WithClassifyRetries(maxRetries int, initialBackoff time.Duration) DiscoveryOption {
	return func(s *DiscoveryService) {
		if maxRetries < 0 {
			maxRetries = 0
		}
		s.maxRetries = maxRetries
		s.retryBackoff = initialBackoff
	}
}

// WithLogger overrides the no-op logger.
func WithLogger(log *zap.Logger) DiscoveryOption {
	return func(s *DiscoveryService) {
		s.log = logger.OrNop(log)
	}
}

// NewDiscoveryService wires the pipeline. By default one transient classification failure is retried.
func NewDiscoveryService(searcher places.Searcher, classifier Classifier, opts ...DiscoveryOption) *DiscoveryService {
	s := &DiscoveryService{
		searcher:     searcher,
		classifier:   classifier,
		maxRetries:   1,
		retryBackoff: 500 * time.Millisecond,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover finds establishments for the query and returns display text plus the raw results.
// The only error it returns is a ValidationError; remote failures degrade to fallback text.
func (s *DiscoveryService) Discover(ctx context.Context, query entity.SearchQuery) (entity.Discovery, error) {
	query, err := NormalizeQuery(query)
	if err != nil {
		return entity.Discovery{}, err
	}

	start := time.Now()
	log := s.log.With(
		zap.String("city", query.City),
		zap.String("type", query.Type.Slug()),
		zap.String("country", query.Country),
	)

	if cached, ok := s.lookupCache(ctx, query, log); ok {
		cached.Query = query
		return cached, nil
	}

	log.Debug("discovery stage", zap.String("stage", string(stageSearching)))
	found := s.searcher.Search(ctx, query)
	if found.Err != nil {
		log.Warn("search stopped early", zap.Error(found.Err), zap.Int("pages", found.Pages))
	}

	var discovery entity.Discovery
	if len(found.Establishments) == 0 {
		log.Debug("discovery stage", zap.String("stage", string(stageSearchEmpty)))
		discovery = s.classifyEmpty(ctx, query, log)
	} else {
		log.Debug("discovery stage", zap.String("stage", string(stageSearchNonEmpty)), zap.Int("establishments", len(found.Establishments)))
		discovery = s.classifyListing(ctx, query, found.Establishments, log)
	}
	discovery.Query = query

	log.Info("discovery finished",
		zap.String("stage", string(stageDone)),
		zap.String("outcome", string(discovery.Outcome)),
		zap.Int("establishments", len(discovery.Establishments)),
		zap.Duration("latency", time.Since(start)),
	)
	metrics.DiscoveryDuration.WithLabelValues(string(discovery.Outcome)).Observe(time.Since(start).Seconds())

	if discovery.Outcome == entity.OutcomeClassified {
		s.storeCache(ctx, query, discovery, log)
	}
	return discovery, nil
}

func (s *DiscoveryService) classifyEmpty(ctx context.Context, query entity.SearchQuery, log *zap.Logger) entity.Discovery {
	prompt := BuildClassificationPrompt(nil, query.City, query.Type)
	result := s.classify(ctx, prompt, log)

	text := NoResultsSentence(query.Type, query.City)
	if usable(result) {
		text = strings.TrimSpace(result.Text)
	} else {
		log.Warn("no-results classification failed, using local sentence",
			zap.String("kind", result.Kind.String()),
			zap.String("reason", result.Reason),
		)
	}

	return entity.Discovery{
		DisplayText:    text,
		Establishments: []entity.Establishment{},
		Outcome:        entity.OutcomeNoResults,
	}
}

func (s *DiscoveryService) classifyListing(ctx context.Context, query entity.SearchQuery, found []entity.Establishment, log *zap.Logger) entity.Discovery {
	prompt := BuildClassificationPrompt(found, query.City, query.Type)
	result := s.classify(ctx, prompt, log)

	if usable(result) {
		return entity.Discovery{
			DisplayText:    strings.TrimSpace(result.Text),
			Establishments: found,
			Outcome:        entity.OutcomeClassified,
		}
	}

	log.Warn("classification failed, using fallback sentence",
		zap.String("kind", result.Kind.String()),
		zap.String("reason", result.Reason),
	)
	return entity.Discovery{
		DisplayText:    FallbackSentence(query.Type, query.City, len(found)),
		Establishments: found,
		Outcome:        entity.OutcomeFallback,
	}
}

// classify calls the classifier, retrying transient failures only.
func (s *DiscoveryService) classify(ctx context.Context, prompt string, log *zap.Logger) entity.ClassificationResult {
	var (
		result   entity.ClassificationResult
		attempts int
	)

	policy := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), uint64(s.maxRetries)), ctx)
	_ = backoff.Retry(func() error {
		attempts++
		log.Debug("discovery stage", zap.String("stage", string(stageClassifying)), zap.Int("attempt", attempts))

		result = s.classifier.Classify(ctx, prompt)
		metrics.ClassificationResults.WithLabelValues(result.Kind.String()).Inc()
		if result.Kind == entity.ClassificationTransientFailure {
			return errors.New(result.Reason)
		}
		return nil
	}, policy)

	if attempts > 1 {
		log.Info("classification retried", zap.Int("attempts", attempts), zap.String("kind", result.Kind.String()))
	}
	return result
}

func (s *DiscoveryService) newBackOff() backoff.BackOff {
	if s.retryBackoff <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryBackoff
	b.MaxElapsedTime = 0
	return b
}

func (s *DiscoveryService) lookupCache(ctx context.Context, query entity.SearchQuery, log *zap.Logger) (entity.Discovery, bool) {
	if s.cache == nil {
		return entity.Discovery{}, false
	}
	cached, ok, err := s.cache.Get(ctx, query)
	switch {
	case err != nil:
		metrics.DiscoveryCacheLookups.WithLabelValues("error").Inc()
		log.Warn("discovery cache lookup failed", zap.Error(err))
		return entity.Discovery{}, false
	case !ok:
		metrics.DiscoveryCacheLookups.WithLabelValues("miss").Inc()
		return entity.Discovery{}, false
	default:
		metrics.DiscoveryCacheLookups.WithLabelValues("hit").Inc()
		log.Debug("discovery served from cache")
		return cached, true
	}
}

func (s *DiscoveryService) storeCache(ctx context.Context, query entity.SearchQuery, discovery entity.Discovery, log *zap.Logger) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, query, discovery); err != nil {
		log.Warn("discovery cache store failed", zap.Error(err))
	}
}

func usable(result entity.ClassificationResult) bool {
	return result.OK() && strings.TrimSpace(result.Text) != ""
}
