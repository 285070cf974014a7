// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/pdiddy/causal-kg/pkg/types"
)

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIGenerator builds a generator from cfg. The API key is required;
// an empty BaseURL uses the OpenAI default. httpClient may be nil.
func NewOpenAIGenerator(cfg types.GenerationConfig, httpClient *http.Client) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generation API key is not set (openai-api-key secret or OPENAI_API_KEY)")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	} else if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	model := cfg.Model
	if model == "" {
		model = types.DefaultModel
	}
	// go-openai omits a zero temperature from the request, which leaves the
	// server default in force.
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = types.DefaultMaxTokens
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Model returns the model identifier requests are sent with.
func (g *OpenAIGenerator) Model() string { return g.model }

// Generate sends msgs as one chat completion request and returns the text
// of the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, msgs []Message) (string, error) {
	messages := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &GenerationError{Retryable: true, Err: ErrEmptyCompletion}
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError turns a go-openai error into a GenerationError.
func classifyOpenAIError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &GenerationError{
			StatusCode: apiErr.HTTPStatusCode,
			Retryable:  RetryableStatus(apiErr.HTTPStatusCode),
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &GenerationError{
			StatusCode: reqErr.HTTPStatusCode,
			Retryable:  RetryableStatus(reqErr.HTTPStatusCode),
			Err:        err,
		}
	}

	return &GenerationError{Retryable: true, Err: err}
}
