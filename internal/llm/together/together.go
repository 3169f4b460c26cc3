// Package together implements llm.Provider for the free service tier, Together
// AI, through its OpenAI-compatible API.
package together

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/HerbHall/narracode/pkg/llm"
)

// Compile-time interface guards.
var (
	_ llm.Provider       = (*Provider)(nil)
	_ llm.HealthReporter = (*Provider)(nil)
)

// Provider implements llm.Provider for Together AI.
type Provider struct {
	client *openai.Client
	cfg    Config
	logger *zap.Logger
}

// New creates a Together AI provider.
func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("together: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &paramsTransport{next: http.DefaultTransport},
	}

	return &Provider{
		client: openai.NewClientWithConfig(oc),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Chat creates a completion from a conversation history.
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Response, error) {
	req, params, err := p.request(messages, opts)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(withParams(ctx, params), req)
	if err != nil {
		return nil, mapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, llm.NewProviderError(llm.ErrCodeServerError, "response has no choices", nil)
	}
	choice := resp.Choices[0]

	return &llm.Response{
		Content: choice.Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Done: choice.FinishReason != openai.FinishReasonLength,
	}, nil
}

// ChatStream creates a streaming completion from a conversation history.
func (p *Provider) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (llm.Stream, error) {
	req, params, err := p.request(messages, opts)
	if err != nil {
		return nil, err
	}
	req.Stream = true

	stream, err := p.client.CreateChatCompletionStream(withParams(ctx, params), req)
	if err != nil {
		return nil, mapError(err)
	}
	return &chatStream{stream: stream}, nil
}

// Heartbeat checks whether the Together API is reachable with the configured key.
func (p *Provider) Heartbeat(ctx context.Context) error {
	_, err := p.client.ListModels(ctx)
	return mapError(err)
}

// ListModels returns the model IDs the account can use.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	list, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	names := make([]string, len(list.Models))
	for i := range list.Models {
		names[i] = list.Models[i].ID
	}
	return names, nil
}

func (p *Provider) request(messages []llm.Message, opts []llm.CallOption) (openai.ChatCompletionRequest, llm.Params, error) {
	if len(messages) == 0 {
		return openai.ChatCompletionRequest{}, llm.Params{},
			llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil)
	}

	cfg := llm.ApplyOptions(opts...)
	model := cfg.Model
	if model == "" && len(p.cfg.Models) > 0 {
		model = p.cfg.Models[0]
	}
	if model == "" {
		return openai.ChatCompletionRequest{}, llm.Params{},
			llm.NewProviderError(llm.ErrCodeInvalidRequest, "no model selected", nil)
	}

	apiMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		apiMessages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	p.logger.Debug("together chat request",
		zap.String("model", model),
		zap.Int("messages", len(messages)),
	)
	return openai.ChatCompletionRequest{Model: model, Messages: apiMessages}, cfg.Params, nil
}

// chatStream adapts a go-openai completion stream to llm.Stream.
type chatStream struct {
	stream *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, error) {
	chunk, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		return "", io.EOF
	}
	if err != nil {
		if isMalformed(err) {
			return "", fmt.Errorf("together: %w: %w", llm.ErrMalformedChunk, err)
		}
		return "", mapError(err)
	}
	if len(chunk.Choices) == 0 {
		return "", fmt.Errorf("together: %w: chunk %q has no choices", llm.ErrMalformedChunk, chunk.ID)
	}
	return chunk.Choices[0].Delta.Content, nil
}

func (s *chatStream) Close() error {
	s.stream.Close()
	return nil
}
