// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Generator produces one text completion for an ordered message history.
// Implementations must not modify msgs.
type Generator interface {
	Generate(ctx context.Context, msgs []Message) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, msgs []Message) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, msgs []Message) (string, error) {
	return f(ctx, msgs)
}

// ErrEmptyCompletion is returned when the service answers without any
// completion choice.
var ErrEmptyCompletion = errors.New("generation service returned no choices")

// GenerationError describes a failed call to the generation service.
type GenerationError struct {
	// StatusCode is the HTTP status, or zero when the request never got one.
	StatusCode int

	// Retryable reports whether repeating the call may succeed.
	Retryable bool

	Err error
}

func (e *GenerationError) Error() string {
	kind := "fatal"
	if e.Retryable {
		kind = "retryable"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("generation failed (%s, HTTP %d): %v", kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generation failed (%s): %v", kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// RetryableStatus reports whether an HTTP status from the generation
// service signals a transient condition: timeouts, conflicts, rate limits,
// and server errors.
func RetryableStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout,
		code == http.StatusConflict,
		code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}

// IsRetryable classifies err. Cancellation is fatal and GenerationErrors
// carry their own classification. Anything else (timeouts, empty
// completions, transport failures) is retryable; a cancelled or expired
// caller context still stops the retry loop.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return true
}

// Exchange appends prompt as a user turn, asks gen for a completion over
// the whole history, and appends the reply as an assistant turn. On error
// the user turn stays in the history; callers isolate exchanges with
// Conversation.Isolate.
func Exchange(ctx context.Context, gen Generator, conv *Conversation, prompt string) (string, error) {
	conv.Append(RoleUser, prompt)
	reply, err := gen.Generate(ctx, conv.Messages())
	if err != nil {
		return "", err
	}
	conv.Append(RoleAssistant, reply)
	return reply, nil
}

// RetryBaseDelay is the first backoff interval. Tests override it to avoid
// real sleeps.
var RetryBaseDelay = time.Second

// RetryingGenerator retries retryable failures of Next with exponential
// backoff. Fatal failures are returned after the first attempt.
type RetryingGenerator struct {
	Next Generator

	// MaxRetries is the number of retries after the first attempt.
	// Zero or negative uses DefaultMaxRetries.
	MaxRetries int

	// Notify, when set, is called before each backoff wait.
	Notify func(err error, wait time.Duration)
}

// DefaultMaxRetries is used when RetryingGenerator.MaxRetries is not set.
const DefaultMaxRetries = 3

// WithRetry wraps gen in a RetryingGenerator.
func WithRetry(gen Generator, maxRetries int) *RetryingGenerator {
	return &RetryingGenerator{Next: gen, MaxRetries: maxRetries}
}

// Generate calls Next, retrying retryable failures.
func (r *RetryingGenerator) Generate(ctx context.Context, msgs []Message) (string, error) {
	maxRetries := r.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryBaseDelay
	b.Multiplier = 2
	b.MaxInterval = 32 * RetryBaseDelay

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(maxRetries + 1)),
		backoff.WithMaxElapsedTime(0),
	}
	if r.Notify != nil {
		opts = append(opts, backoff.WithNotify(r.Notify))
	}

	out, err := backoff.Retry(ctx, func() (string, error) {
		text, err := r.Next.Generate(ctx, msgs)
		if err != nil && !IsRetryable(err) {
			return "", backoff.Permanent(err)
		}
		return text, err
	}, opts...)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return "", err
	}
	return out, nil
}

// ModelNamer is implemented by generators that know their model identifier.
type ModelNamer interface {
	Model() string
}

// Model returns the model identifier of Next, or "" when Next does not
// report one.
func (r *RetryingGenerator) Model() string {
	return ModelName(r.Next)
}

// ModelName returns gen's model identifier, or "" when unknown.
func ModelName(gen Generator) string {
	if m, ok := gen.(ModelNamer); ok {
		return m.Model()
	}
	return ""
}
