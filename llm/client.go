// Package llm is the thin, provider-agnostic text-generation boundary
// the Response Generator (spec §4.K) calls through: a Prompt goes in, a
// Completion (or an error) comes back. The default implementation
// wraps anthropics/anthropic-sdk-go; the external LLM itself is treated
// as a black-box RPC per §1's Non-goals.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Prompt is a single-turn text-generation request with the sampling
// parameters the Response Generator needs to control (§4.K "External
// dependency").
type Prompt struct {
	Text        string
	Temperature float64
	TopP        float64
	TopK        int64
	MaxTokens   int64
}

// Completion is the generated text.
type Completion struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Client generates text from a Prompt. Implementations should return a
// plain error for non-retryable failures; Retryable errors are
// distinguished via the IsRetryable helper.
type Client interface {
	Generate(ctx context.Context, p Prompt) (Completion, error)
}

const defaultModel = anthropic.ModelClaude3_5HaikuLatest

// AnthropicClient is the default Client, backed by the Anthropic
// Messages API (grounded on
// _examples/steveyegge-beads/internal/compact/haiku.go's client
// construction and retryability classification).
type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// AnthropicOption configures an AnthropicClient.
type AnthropicOption func(*AnthropicClient)

// WithModel overrides the default model.
func WithModel(model anthropic.Model) AnthropicOption {
	return func(c *AnthropicClient) { c.model = model }
}

// NewAnthropicClient creates an AnthropicClient. apiKey may be empty if
// ANTHROPIC_API_KEY is set in the environment; the SDK picks it up.
func NewAnthropicClient(apiKey string, opts ...AnthropicOption) *AnthropicClient {
	var clientOpts []option.RequestOption
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}

	c := &AnthropicClient{
		client: anthropic.NewClient(clientOpts...),
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate issues one Messages.New call with p's sampling parameters.
func (c *AnthropicClient) Generate(ctx context.Context, p Prompt) (Completion, error) {
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.Text)),
		},
	}
	if p.Temperature > 0 {
		params.Temperature = anthropic.Float(p.Temperature)
	}
	if p.TopP > 0 {
		params.TopP = anthropic.Float(p.TopP)
	}
	if p.TopK > 0 {
		params.TopK = anthropic.Int(p.TopK)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Completion{}, err
	}

	if len(message.Content) == 0 {
		return Completion{}, errors.New("llm: response had no content blocks")
	}
	block := message.Content[0]
	if block.Type != "text" {
		return Completion{}, fmt.Errorf("llm: unexpected response format: not a text block (type=%s)", block.Type)
	}

	return Completion{
		Text:         block.Text,
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}, nil
}

// IsRetryable classifies an error from Generate as transient (timeout,
// rate limit, server error) or not, for the caller's backoff policy.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
