// Package provider implements external language model access.
package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/inquira/kgraph/domain/extraction"
	"github.com/inquira/kgraph/internal/config"
)

// ErrNoChoices indicates the API returned a response with no completions.
var ErrNoChoices = errors.New("no choices in completion response")

// Extraction output must be deterministic. go-openai omits a zero
// Temperature from the request body, which would leave the provider on its
// own default, so the smallest non-zero float stands in for zero.
const deterministicTemperature = math.SmallestNonzeroFloat32

// OpenAICompleter implements extraction.Completer against an OpenAI-compatible
// chat completion API, with exponential backoff retry and an optional shared
// rate limiter. The limiter is deployment-wide: every extraction call in the
// process waits on the same token bucket, so concurrent batch jobs cannot
// overload the provider in aggregate.
type OpenAICompleter struct {
	client        *openai.Client
	model         string
	maxTokens     int
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	limiter       *rate.Limiter
}

// NewOpenAICompleter creates a completer from endpoint configuration.
// A nil limiter disables rate limiting.
func NewOpenAICompleter(endpoint config.Endpoint, limiter *rate.Limiter) *OpenAICompleter {
	cfg := openai.DefaultConfig(endpoint.APIKey())
	if endpoint.BaseURL() != "" {
		cfg.BaseURL = endpoint.BaseURL()
	}
	if endpoint.Timeout() > 0 {
		cfg.HTTPClient = &http.Client{Timeout: endpoint.Timeout()}
	}

	return &OpenAICompleter{
		client:        openai.NewClientWithConfig(cfg),
		model:         endpoint.Model(),
		maxTokens:     endpoint.MaxTokens(),
		maxRetries:    endpoint.MaxRetries(),
		initialDelay:  endpoint.InitialDelay(),
		backoffFactor: endpoint.BackoffFactor(),
		limiter:       limiter,
	}
}

// Complete sends a chat completion request and returns the first choice.
func (p *OpenAICompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: deterministicTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	if p.maxTokens > 0 {
		req.MaxTokens = p.maxTokens
	}

	var resp openai.ChatCompletionResponse
	err := p.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// withRetry executes the function with exponential backoff retry.
func (p *OpenAICompleter) withRetry(ctx context.Context, fn func() error) error {
	delay := p.initialDelay
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * p.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable determines if an error should be retried.
func isRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}

var _ extraction.Completer = (*OpenAICompleter)(nil)
