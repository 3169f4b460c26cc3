// Package llm provides the public SDK types for chat-completion backends.
// Every backend service (Together AI, Hugging Face inference) implements
// these interfaces. Implementations live in internal/llm/{service}/ adapters.
//
// The package deliberately knows nothing about coding tasks or prompts: a
// backend is an opaque function from (model, ordered messages, sampling
// parameters) to text or to a stream of text deltas.
package llm

import (
	"context"
	"errors"
)

// Provider is the core interface implemented by all backend adapters.
type Provider interface {
	// Chat creates a completion from a conversation history and returns the
	// text of the first candidate.
	Chat(ctx context.Context, messages []Message, opts ...CallOption) (*Response, error)

	// ChatStream creates a completion from a conversation history and returns
	// the incremental text deltas as they arrive. The caller must Close the stream.
	ChatStream(ctx context.Context, messages []Message, opts ...CallOption) (Stream, error)
}

// Stream is a lazy, finite, non-restartable sequence of text deltas.
type Stream interface {
	// Recv returns the next delta. An empty string is a valid (empty) chunk.
	// io.EOF marks the end of the stream. An error wrapping ErrMalformedChunk
	// concerns that single chunk only; the stream remains readable.
	Recv() (string, error)

	// Close releases the underlying connection.
	Close() error
}

// ErrMalformedChunk reports a streaming chunk that lacks the expected fields.
var ErrMalformedChunk = errors.New("llm: malformed stream chunk")

// HealthReporter is optionally implemented by providers that can report
// connection health and model availability. Detected via type assertion.
type HealthReporter interface {
	// Heartbeat checks whether the backend service is reachable.
	Heartbeat(ctx context.Context) error

	// ListModels returns the names of models available from this provider.
	ListModels(ctx context.Context) ([]string, error)
}

// CallOption configures a single Chat or ChatStream call.
type CallOption func(*CallConfig)

// CallConfig holds the resolved configuration for a single backend call.
// Users interact through CallOption functions, not this struct directly.
type CallConfig struct {
	Model  string
	Params Params
}

// WithModel sets the model to use for this call, overriding the provider default.
func WithModel(model string) CallOption {
	return func(c *CallConfig) { c.Model = model }
}

// WithParams sets the sampling parameters forwarded to the backend.
func WithParams(p Params) CallOption {
	return func(c *CallConfig) { c.Params = p }
}

// WithTemperature sets the sampling temperature, keeping any other parameters.
func WithTemperature(temp float64) CallOption {
	return func(c *CallConfig) { c.Params.Temperature = temp }
}

// ApplyOptions creates a CallConfig from a list of options, starting from
// deterministic sampling.
func ApplyOptions(opts ...CallOption) CallConfig {
	var cfg CallConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
