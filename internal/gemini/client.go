package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/octobees/gluten-finder/api/internal/entity"
	"github.com/octobees/gluten-finder/api/internal/logger"
)

// DefaultModel is the Gemini model used for classification.
const DefaultModel = "gemini-2.0-flash"

// Config holds the generation settings. Zero values fall back to defaults; Temperature and
// TopP are pointers so an explicit 0 is kept.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     *float32
	TopP            *float32
	MaxOutputTokens int32
	Timeout         time.Duration
}

const (
	defaultTemperature float32 = 0.1
	defaultTopP        float32 = 0.95
)

// Client classifies establishment listings with the Gemini API. It never retries.
type Client struct {
	models *genai.Models
	cfg    Config
	log    *zap.Logger
}

// NewClient builds a Gemini client. httpClient may be nil; request deadlines come from cfg.Timeout.
func NewClient(ctx context.Context, httpClient *http.Client, cfg Config, log *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key must not be empty")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == nil || *cfg.Temperature < 0 {
		cfg.Temperature = genai.Ptr(defaultTemperature)
	}
	if cfg.TopP == nil || *cfg.TopP < 0 {
		cfg.TopP = genai.Ptr(defaultTopP)
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	gc, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		models: gc.Models,
		cfg:    cfg,
		log:    logger.OrNop(log).Named("gemini"),
	}, nil
}

// Classify sends the prompt and maps the response onto a ClassificationResult.
func (c *Client) Classify(ctx context.Context, prompt string) entity.ClassificationResult {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.cfg.Model, genai.Text(prompt), c.generationConfig())
	if err != nil {
		result := classifyError(ctx, err)
		c.log.Warn("gemini request failed",
			zap.String("kind", result.Kind.String()),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return result
	}

	result := interpretResponse(resp)
	c.log.Debug("gemini responded",
		zap.String("kind", result.Kind.String()),
		zap.Duration("latency", time.Since(start)),
	)
	return result
}

func (c *Client) generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(*c.cfg.Temperature),
		TopP:            genai.Ptr(*c.cfg.TopP),
		MaxOutputTokens: c.cfg.MaxOutputTokens,
	}
}

// interpretResponse extracts text, a policy block, or reports the shape as malformed.
func interpretResponse(resp *genai.GenerateContentResponse) entity.ClassificationResult {
	if resp == nil {
		return entity.MalformedResponse("empty response")
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		reason := string(fb.BlockReason)
		if fb.BlockReasonMessage != "" {
			reason += ": " + fb.BlockReasonMessage
		}
		return entity.BlockedByPolicy(reason)
	}

	if len(resp.Candidates) == 0 {
		return entity.MalformedResponse("no candidates")
	}

	if text := strings.TrimSpace(resp.Text()); text != "" {
		return entity.Classified(text)
	}

	switch reason := resp.Candidates[0].FinishReason; reason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist, genai.FinishReasonSPII:
		return entity.BlockedByPolicy(string(reason))
	default:
		return entity.MalformedResponse("candidate has no text")
	}
}

// classifyError separates transport trouble from undecodable payloads.
func classifyError(ctx context.Context, err error) entity.ClassificationResult {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return entity.TransientFailure("timeout: " + err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return entity.TransientFailure("cancelled: " + err.Error())
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErrorResult(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrorResult(*apiErrPtr)
	}

	if isDecodeError(err) {
		return entity.MalformedResponse(err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return entity.TransientFailure("network: " + err.Error())
	}
	return entity.TransientFailure(err.Error())
}

// apiErrorResult treats throttling and server errors as transient. Other client errors are
// permanent for this prompt and must not be retried.
func apiErrorResult(apiErr genai.APIError) entity.ClassificationResult {
	reason := fmt.Sprintf("api error %d: %s", apiErr.Code, apiErr.Message)
	switch {
	case apiErr.Code <= 0, apiErr.Code == http.StatusTooManyRequests, apiErr.Code >= http.StatusInternalServerError:
		return entity.TransientFailure(reason)
	case isPolicyMessage(apiErr.Message):
		return entity.BlockedByPolicy(reason)
	default:
		return entity.MalformedResponse(reason)
	}
}

func isPolicyMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "safety") || strings.Contains(msg, "blocked") || strings.Contains(msg, "prohibited")
}

// isDecodeError reports JSON decoding failures. The SDK does not always wrap them, so the
// message is checked as well.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{"unmarshal", "invalid character", "unexpected end of JSON"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
