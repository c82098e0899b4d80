package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/gluten-finder/api/internal/entity"
	"github.com/octobees/gluten-finder/api/internal/places"
)

type searcherStub struct {
	result places.Result
	calls  int
	last   entity.SearchQuery
}

func (s *searcherStub) Search(ctx context.Context, query entity.SearchQuery) places.Result {
	s.calls++
	s.last = query
	return s.result
}

type classifierStub struct {
	results []entity.ClassificationResult
	prompts []string
}

func (s *classifierStub) Classify(ctx context.Context, prompt string) entity.ClassificationResult {
	s.prompts = append(s.prompts, prompt)
	idx := len(s.prompts) - 1
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	return s.results[idx]
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[entity.SearchQuery]entity.Discovery
	getErr  error
}

func (c *memoryCache) Get(ctx context.Context, query entity.SearchQuery) (entity.Discovery, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return entity.Discovery{}, false, c.getErr
	}
	d, ok := c.entries[query]
	return d, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, query entity.SearchQuery, d entity.Discovery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[entity.SearchQuery]entity.Discovery{}
	}
	c.entries[query] = d
	return nil
}

func foundEstablishments() []entity.Establishment {
	return []entity.Establishment{
		{PlaceID: "p1", Name: "Celia", CategoryTags: []string{"restaurant"}, Status: entity.StatusOperational},
		{PlaceID: "p2", Name: "Fafa's", CategoryTags: []string{"restaurant"}, Status: entity.StatusOperational},
	}
}

func newTestService(searcher places.Searcher, classifier Classifier, opts ...DiscoveryOption) *DiscoveryService {
	opts = append([]DiscoveryOption{WithClassifyRetries(1, 0)}, opts...)
	return NewDiscoveryService(searcher, classifier, opts...)
}

func TestDiscover_ScenarioA_ZeroResults(t *testing.T) {
	searcher := &searcherStub{}
	classifier := &classifierStub{results: []entity.ClassificationResult{
		entity.Classified("No Restaurant found matching your criteria in Helsinki.\n"),
	}}
	svc := newTestService(searcher, classifier)

	d, err := svc.Discover(context.Background(), entity.SearchQuery{City: "Helsinki", Type: entity.TypeRestaurant})
	require.NoError(t, err)
	assert.Equal(t, "No Restaurant found matching your criteria in Helsinki.", d.DisplayText)
	assert.Equal(t, entity.OutcomeNoResults, d.Outcome)
	assert.NotNil(t, d.Establishments)
	assert.Empty(t, d.Establishments)
	require.Len(t, classifier.prompts, 1)
	assert.Contains(t, classifier.prompts[0], "Reply with exactly this sentence")
}

func TestDiscover_ZeroResultsClassificationFails(t *testing.T) {
	searcher := &searcherStub{result: places.Result{Err: places.ErrProviderUnavailable}}
	classifier := &classifierStub{results: []entity.ClassificationResult{entity.BlockedByPolicy("SAFETY")}}
	svc := newTestService(searcher, classifier)

	d, err := svc.Discover(context.Background(), entity.SearchQuery{City: "helsinki", Type: entity.TypeRestaurant})
	require.NoError(t, err)
	assert.Equal(t, "No Restaurant found matching your criteria in Helsinki.", d.DisplayText)
	assert.Equal(t, entity.OutcomeNoResults, d.Outcome)
}

func TestDiscover_ClassifiedListing(t *testing.T) {
	found := foundEstablishments()
	searcher := &searcherStub{result: places.Result{Establishments: found, Pages: 1}}
	classifier := &classifierStub{results: []entity.ClassificationResult{
		entity.Classified("1. Celia [offers gluten-free options]\n2. Fafa's [status unclear, verify with restaurant]"),
	}}
	svc := newTestService(searcher, classifier)

	d, err := svc.Discover(context.Background(), entity.SearchQuery{City: " Helsinki ", Type: entity.TypeRestaurant, Country: "finland"})
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeClassified, d.Outcome)
	assert.Contains(t, d.DisplayText, "1. Celia")
	assert.Equal(t, found, d.Establishments)
	assert.Equal(t, "finland", searcher.last.Country)
	assert.Equal(t, entity.SearchQuery{City: "Helsinki", Type: entity.TypeRestaurant, Country: "finland"}, d.Query)
	assert.Contains(t, classifier.prompts[0], "- Name: Celia")
}

func TestDiscover_ReturnsUncappedResults(t *testing.T) {
	found := sampleEstablishments(30)
	searcher := &searcherStub{result: places.Result{Establishments: found, Pages: 2}}
	classifier := &classifierStub{results: []entity.ClassificationResult{entity.Classified("1. Place 01 [offers gluten-free options]")}}
	svc := newTestService(searcher, classifier)

	d, err := svc.Discover(context.Background(), entity.SearchQuery{City: "Espoo", Type: entity.TypeRestaurant})
	require.NoError(t, err)
	assert.Len(t, d.Establishments, 30)
	assert.NotContains(t, classifier.prompts[0], "Place 21")
}

func TestDiscover_FallbackForEveryFailureKind(t *testing.T) {
	failures := []entity.ClassificationResult{
		entity.BlockedByPolicy("SAFETY"),
		entity.TransientFailure("context deadline exceeded"),
		entity.MalformedResponse("no candidates"),
		entity.Classified("   "),
	}

	for _, failure := range failures {
		t.Run(failure.Kind.String(), func(t *testing.T) {
			found := foundEstablishments()
			searcher := &searcherStub{result: places.Result{Establishments: found}}
			classifier := &classifierStub{results: []entity.ClassificationResult{failure}}
			svc := newTestService(searcher, classifier)

			d, err := svc.Discover(context.Background(), entity.SearchQuery{City: "Tampere", Type: entity.TypeCafe})
			require.NoError(t, err)
			assert.NotEmpty(t, d.DisplayText)
			assert.Equal(t, FallbackSentence(entity.TypeCafe, "Tampere", 2), d.DisplayText)
			assert.Equal(t, entity.OutcomeFallback, d.Outcome)
			assert.Equal(t, found, d.Establishments)
		})
	}
}

func TestDiscover_ScenarioC_TimeoutKeepsResults(t *testing.T) {
	found := foundEstablishments()
	searcher := &searcherStub{result: places.Result{Establishments: found}}
	classifier := &classifierStub{results: []entity.ClassificationResult{entity.TransientFailure("context deadline exceeded")}}
	svc := newTestService(searcher, classifier)

	d, err := svc.Discover(context.Background(), entity.SearchQuery{City: "Helsinki", Type: entity.TypeRestaurant})
	require.NoError(t, err)
	assert.Equal(t, FallbackSentence(entity.TypeRestaurant, "Helsinki", 2), d.DisplayText)
	assert.Equal(t, found, d.Establishments)
	assert.Len(t, classifier.prompts, 2, "transient failure is retried once")
}

func TestDiscover_RetriesTransientThenSucceeds(t *testing.T) {
	searcher := &searcherStub{result: places.Result{Establishments: foundEstablishments()}}
	classifier := &classifierStub{results: []entity.ClassificationResult{
		entity.TransientFailure("503"),
		entity.Classified("1. Celia [offers gluten-free options]"),
	}}
	svc := NewDiscoveryService(searcher, classifier, WithClassifyRetries(2, time.Millisecond))

	d, err := svc.Discover(context.Background(), entity.SearchQuery{City: "Helsinki", Type: entity.TypeRestaurant})
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeClassified, d.Outcome)
	assert.Len(t, classifier.prompts, 2)
}

func TestDiscover_DoesNotRetryPermanentFailures(t *testing.T) {
	searcher := &searcherStub{result: places.Result{Establishments: foundEstablishments()}}
	classifier := &classifierStub{results: []entity.ClassificationResult{entity.BlockedByPolicy("SAFETY")}}
	svc := NewDiscoveryService(searcher, classifier, WithClassifyRetries(3, 0))

	_, err := svc.Discover(context.Background(), entity.SearchQuery{City: "Helsinki"})
	require.NoError(t, err)
	assert.Len(t, classifier.prompts, 1)
}

func TestDiscover_ScenarioD_EmptyCity(t *testing.T) {
	searcher := &searcherStub{}
	classifier := &classifierStub{results: []entity.ClassificationResult{entity.Classified("unused")}}
	svc := newTestService(searcher, classifier)

	_, err := svc.Discover(context.Background(), entity.SearchQuery{City: "", Type: entity.TypeRestaurant})
	var vErr ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, 0, searcher.calls)
	assert.Empty(t, classifier.prompts)
}

func TestDiscover_Cache(t *testing.T) {
	cache := &memoryCache{}
	searcher := &searcherStub{result: places.Result{Establishments: foundEstablishments()}}
	classifier := &classifierStub{results: []entity.ClassificationResult{entity.Classified("1. Celia [offers gluten-free options]")}}
	svc := newTestService(searcher, classifier, WithCache(cache))
	query := entity.SearchQuery{City: "Helsinki", Type: entity.TypeRestaurant}

	first, err := svc.Discover(context.Background(), query)
	require.NoError(t, err)
	second, err := svc.Discover(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, query, second.Query)
	assert.Equal(t, 1, searcher.calls)
	assert.Len(t, classifier.prompts, 1)
}

func TestDiscover_FallbackIsNotCached(t *testing.T) {
	cache := &memoryCache{}
	searcher := &searcherStub{result: places.Result{Establishments: foundEstablishments()}}
	classifier := &classifierStub{results: []entity.ClassificationResult{entity.MalformedResponse("")}}
	svc := newTestService(searcher, classifier, WithCache(cache))

	_, err := svc.Discover(context.Background(), entity.SearchQuery{City: "Helsinki"})
	require.NoError(t, err)
	assert.Empty(t, cache.entries)
}

func TestDiscover_CacheErrorsAreIgnored(t *testing.T) {
	cache := &memoryCache{getErr: errors.New("redis down")}
	searcher := &searcherStub{result: places.Result{Establishments: foundEstablishments()}}
	classifier := &classifierStub{results: []entity.ClassificationResult{entity.Classified("1. Celia [offers gluten-free options]")}}
	svc := newTestService(searcher, classifier, WithCache(cache))

	d, err := svc.Discover(context.Background(), entity.SearchQuery{City: "Helsinki"})
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeClassified, d.Outcome)
	assert.Equal(t, 1, searcher.calls)
}
