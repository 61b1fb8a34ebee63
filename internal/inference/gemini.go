package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"google.golang.org/genai"

	"github.com/example/instructsheet/internal/sheet"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel    = "gemini-2.0-flash"

	instrumentationName = "github.com/example/instructsheet/internal/inference"
)

// GeminiClient implements Analyzer against the Gemini generateContent API.
type GeminiClient struct {
	apiKey       string
	model        string
	baseURL      string
	apiVersion   string
	httpClient   *http.Client
	retries      int
	backoff      time.Duration
	maxImageEdge int
	log          zerolog.Logger

	requests metric.Int64Counter
	failures metric.Int64Counter

	once   sync.Once
	sdk    *genai.Client
	sdkErr error
}

var _ Analyzer = (*GeminiClient)(nil)

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithModel selects the model name.
func WithModel(model string) GeminiOption {
	return func(c *GeminiClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithEndpoint overrides the API base URL. A trailing version segment
// such as /v1beta selects the API version.
func WithEndpoint(endpoint string) GeminiOption {
	return func(c *GeminiClient) {
		if endpoint != "" {
			c.baseURL, c.apiVersion = splitEndpoint(endpoint)
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per request timeout.
func WithTimeout(d time.Duration) GeminiOption {
	return func(c *GeminiClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetries sets how many times a failed request is repeated.
func WithRetries(n int) GeminiOption {
	return func(c *GeminiClient) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the delay before the first retry; it doubles after each.
func WithBackoff(d time.Duration) GeminiOption {
	return func(c *GeminiClient) { c.backoff = d }
}

// WithMaxImageEdge downscales uploads whose longer side exceeds n pixels.
// Zero disables downscaling.
func WithMaxImageEdge(n int) GeminiOption {
	return func(c *GeminiClient) { c.maxImageEdge = n }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) GeminiOption {
	return func(c *GeminiClient) { c.log = log }
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(apiKey string, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		apiKey: apiKey,
		model:  DefaultModel,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		retries: 1,
		backoff: time.Second,
		log:     zerolog.Nop(),
	}
	c.baseURL, c.apiVersion = splitEndpoint(DefaultEndpoint)
	for _, opt := range opts {
		opt(c)
	}
	m := otel.Meter(instrumentationName)
	var err error
	if c.requests, err = m.Int64Counter("inference.requests",
		metric.WithDescription("Requests sent to the model")); err != nil {
		c.requests = noop.Int64Counter{}
	}
	if c.failures, err = m.Int64Counter("inference.failures",
		metric.WithDescription("Requests that failed")); err != nil {
		c.failures = noop.Int64Counter{}
	}
	return c
}

// Analyze sends img and the numbered instructions to the model and decodes
// the annotation list it answers with.
func (c *GeminiClient) Analyze(ctx context.Context, img Image, instructions []string) ([]sheet.Annotation, error) {
	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	prepared, err := prepareImage(img, c.maxImageEdge)
	if err != nil {
		return nil, err
	}
	text, err := c.CompleteWithRetry(ctx, prepared, BuildPrompt(instructions))
	if err != nil {
		return nil, err
	}
	return DecodeAnnotations(text)
}

// Complete performs one generateContent call and returns the concatenated
// text of the first candidate.
func (c *GeminiClient) Complete(ctx context.Context, img Image, prompt string) (string, error) {
	client, err := c.client(ctx)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	log := c.log.With().Str("request", id).Str("model", c.model).Logger()
	start := time.Now()

	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(img.Data, img.MIME),
		genai.NewPartFromText(prompt),
	}, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		HTTPOptions:      &genai.HTTPOptions{Headers: http.Header{"X-Request-Id": []string{id}}},
		ResponseMIMEType: "application/json",
	}

	c.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("model", c.model)))
	log.Debug().Int("bytes", len(img.Data)).Msg("sending request")

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		c.failures.Add(ctx, 1)
		var ae genai.APIError
		if errors.As(err, &ae) {
			apiErr := &APIError{StatusCode: ae.Code, Status: ae.Status, Message: strings.TrimSpace(ae.Message)}
			log.Warn().Int("status", ae.Code).Str("reason", ae.Status).Msg("request rejected")
			return "", apiErr
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}

	first := resp.Candidates[0]
	var sb strings.Builder
	for _, part := range first.Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	ev := log.Debug().Dur("took", time.Since(start)).Str("finish", string(first.FinishReason))
	if u := resp.UsageMetadata; u != nil {
		ev = ev.Int32("inputTokens", u.PromptTokenCount).Int32("outputTokens", u.CandidatesTokenCount)
	}
	ev.Msg("response received")
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty candidate (%s)", ErrMalformedResponse, first.FinishReason)
	}
	return sb.String(), nil
}

// client creates the SDK client on first use.
func (c *GeminiClient) client(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		c.sdk, c.sdkErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     c.apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: c.httpClient,
			HTTPOptions: genai.HTTPOptions{
				BaseURL:    c.baseURL,
				APIVersion: c.apiVersion,
			},
		})
		if c.sdkErr != nil {
			c.sdkErr = fmt.Errorf("gemini client: %w", c.sdkErr)
		}
	})
	return c.sdk, c.sdkErr
}

// splitEndpoint separates a trailing API version segment such as "v1beta"
// from an endpoint URL.
func splitEndpoint(endpoint string) (base, version string) {
	endpoint = strings.TrimRight(endpoint, "/")
	i := strings.LastIndex(endpoint, "/")
	if i < 0 {
		return endpoint + "/", ""
	}
	last := endpoint[i+1:]
	if len(last) > 1 && last[0] == 'v' && last[1] >= '0' && last[1] <= '9' {
		return endpoint[:i+1], last
	}
	return endpoint + "/", ""
}

// CompleteWithRetry repeats Complete with exponential backoff on transport
// failures, rate limiting and server errors.
func (c *GeminiClient) CompleteWithRetry(ctx context.Context, img Image, prompt string) (string, error) {
	var lastErr error
	for i := 0; i <= c.retries; i++ {
		text, err := c.Complete(ctx, img, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return "", err
		}
		if errors.Is(err, ErrMalformedResponse) || i == c.retries {
			break
		}

		// Exponential backoff
		backoff := c.backoff * time.Duration(1<<uint(i))
		c.log.Debug().Err(err).Dur("backoff", backoff).Msg("retrying request")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if c.retries == 0 {
		return "", lastErr
	}
	return "", fmt.Errorf("failed after %d retries: %w", c.retries, lastErr)
}
