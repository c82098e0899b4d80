package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/octobees/gluten-finder/api/internal/entity"
	"github.com/octobees/gluten-finder/api/internal/logger"
	"github.com/octobees/gluten-finder/api/internal/metrics"
)

// DefaultBaseURL is the Google Places Text Search JSON endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/place/textsearch/json"

var (
	// ErrProviderUnavailable wraps transport failures and non-2xx responses.
	ErrProviderUnavailable = errors.New("places provider unavailable")
	// ErrProviderRejected wraps statuses other than OK and ZERO_RESULTS.
	ErrProviderRejected = errors.New("places provider rejected the request")
	// ErrMalformedResponse wraps payloads that cannot be decoded.
	ErrMalformedResponse = errors.New("places provider returned a malformed response")
)

// Config controls a Client. Zero values fall back to defaults.
type Config struct {
	APIKey    string
	BaseURL   string
	MaxPages  int
	PageDelay time.Duration
	Timeout   time.Duration
}

// Result is the outcome of one Search. Err records why pagination stopped early; the
// establishments collected before that point are still valid.
type Result struct {
	Establishments []entity.Establishment
	Pages          int
	Err            error
}

// Searcher runs paginated establishment searches.
type Searcher interface {
	Search(ctx context.Context, query entity.SearchQuery) Result
}

// Client queries the places provider page by page.
type Client struct {
	httpClient *http.Client
	cfg        Config
	log        *zap.Logger
}

// NewClient wires a places client. A nil httpClient uses a plain client bounded by cfg.Timeout.
func NewClient(httpClient *http.Client, cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PageDelay < 0 {
		cfg.PageDelay = 0
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		log:        logger.OrNop(log).Named("places"),
	}
}

// Search fetches up to MaxPages pages for the query and returns the de-duplicated establishments.
// Failures stop pagination but never discard what was already collected.
func (c *Client) Search(ctx context.Context, query entity.SearchQuery) Result {
	log := c.log.With(zap.String("query", query.Text()))

	var (
		collected []entity.Establishment
		result    Result
		token     string
	)

	for page := 1; page <= c.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			result.Err = fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
			log.Warn("search aborted", zap.Int("page", page), zap.Error(err))
			break
		}

		resp, err := c.fetchPage(ctx, query, token)
		if err != nil {
			result.Err = err
			log.Warn("places page failed", zap.Int("page", page), zap.Error(err))
			break
		}
		result.Pages++

		if resp.Status == statusZeroResults {
			log.Info("places search returned no results", zap.Int("page", page))
			break
		}

		kept := 0
		for _, raw := range resp.Results {
			est, ok := Normalize(raw)
			if !ok {
				metrics.PlacesEstablishmentsDropped.WithLabelValues("normalization").Inc()
				continue
			}
			collected = append(collected, est)
			kept++
		}
		log.Debug("places page fetched",
			zap.Int("page", page),
			zap.Int("results", len(resp.Results)),
			zap.Int("kept", kept),
			zap.Bool("has_next", resp.NextPageToken != ""),
		)

		if resp.NextPageToken == "" || page == c.cfg.MaxPages {
			break
		}
		token = resp.NextPageToken

		if err := c.waitForToken(ctx); err != nil {
			result.Err = fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
			log.Warn("page wait aborted", zap.Int("page", page+1), zap.Error(err))
			break
		}
	}

	deduped, duplicates := dedupeByPlaceID(collected)
	if duplicates > 0 {
		metrics.PlacesEstablishmentsDropped.WithLabelValues("duplicate").Add(float64(duplicates))
	}
	result.Establishments = deduped

	log.Info("places search finished",
		zap.Int("pages", result.Pages),
		zap.Int("establishments", len(deduped)),
		zap.Int("duplicates", duplicates),
	)
	return result
}

// waitForToken sleeps PageDelay after a page response; the provider rejects a
// continuation token that is used too soon after it was issued.
func (c *Client) waitForToken(ctx context.Context) error {
	if c.cfg.PageDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.cfg.PageDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) fetchPage(ctx context.Context, query entity.SearchQuery, token string) (*textSearchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(query, token), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrProviderUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.PlacesPagesFetched.WithLabelValues("transport_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, redactURLError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.PlacesPagesFetched.WithLabelValues("http_error").Inc()
		return nil, fmt.Errorf("%w: http status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var payload textSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.PlacesPagesFetched.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	switch payload.Status {
	case statusOK, statusZeroResults:
		metrics.PlacesPagesFetched.WithLabelValues(payload.Status).Inc()
		return &payload, nil
	case "":
		metrics.PlacesPagesFetched.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("%w: missing status", ErrMalformedResponse)
	default:
		metrics.PlacesPagesFetched.WithLabelValues(payload.Status).Inc()
		if payload.ErrorMessage != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrProviderRejected, payload.Status, payload.ErrorMessage)
		}
		return nil, fmt.Errorf("%w: %s", ErrProviderRejected, payload.Status)
	}
}

// pageURL builds the request URL. Continuation pages carry only the token and key.
func (c *Client) pageURL(query entity.SearchQuery, token string) string {
	params := url.Values{}
	if token != "" {
		params.Set("pagetoken", token)
	} else {
		params.Set("query", query.Text())
		if filter := typeFilter(query.Type); filter != "" {
			params.Set("type", filter)
		}
	}
	params.Set("key", c.cfg.APIKey)

	sep := "?"
	if strings.Contains(c.cfg.BaseURL, "?") {
		sep = "&"
	}
	return c.cfg.BaseURL + sep + params.Encode()
}

// typeFilter narrows bakery searches at the provider. Restaurants and cafes rely on the
// query text so bakery-cafes and similar hybrids still come back for classification.
func typeFilter(t entity.EstablishmentType) string {
	if t == entity.TypeBakery {
		return "bakery"
	}
	return ""
}

// redactURLError drops the request URL, which carries the API key, from transport errors.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

var _ Searcher = (*Client)(nil)
