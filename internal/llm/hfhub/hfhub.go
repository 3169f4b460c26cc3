// Package hfhub implements llm.Provider for the private service tier: models
// served through the Hugging Face Hub inference router, which speaks the
// OpenAI chat completions protocol.
package hfhub

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/HerbHall/narracode/pkg/llm"
)

// Compile-time interface guards.
var (
	_ llm.Provider       = (*Provider)(nil)
	_ llm.HealthReporter = (*Provider)(nil)
)

// Provider implements llm.Provider for the Hugging Face inference router.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cfg        Config
	logger     *zap.Logger
}

// New creates a Hugging Face Hub provider.
func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("hfhub: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Provider{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Chat creates a completion from a conversation history.
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Response, error) {
	body, err := p.requestBody(messages, opts, false)
	if err != nil {
		return nil, err
	}

	respBody, err := p.doPost(ctx, "/chat/completions", body)
	if err != nil {
		return nil, mapError(err)
	}
	defer respBody.Close()

	var resp chatResponse
	if err := json.NewDecoder(respBody).Decode(&resp); err != nil {
		return nil, llm.NewProviderError(llm.ErrCodeServerError, "decode chat response", err)
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
		Done: choice.FinishReason != "length",
	}, nil
}

// ChatStream creates a streaming completion from a conversation history.
// The response is read as server-sent events until the [DONE] sentinel.
func (p *Provider) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (llm.Stream, error) {
	body, err := p.requestBody(messages, opts, true)
	if err != nil {
		return nil, err
	}

	respBody, err := p.doPost(ctx, "/chat/completions", body)
	if err != nil {
		return nil, mapError(err)
	}

	scanner := bufio.NewScanner(respBody)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &sseStream{body: respBody, scanner: scanner}, nil
}

// Heartbeat checks whether the inference router is reachable with the configured key.
func (p *Provider) Heartbeat(ctx context.Context) error {
	resp, err := p.get(ctx, "/models")
	if err != nil {
		return mapError(err)
	}
	resp.Body.Close()
	return nil
}

// ListModels returns the model IDs the router serves.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	resp, err := p.get(ctx, "/models")
	if err != nil {
		return nil, mapError(err)
	}
	defer resp.Body.Close()

	var result listResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}

	names := make([]string, len(result.Data))
	for i := range result.Data {
		names[i] = result.Data[i].ID
	}
	return names, nil
}

// requestBody builds the chat completion payload. Sampling parameters are
// merged into the top level of the body as given.
func (p *Provider) requestBody(messages []llm.Message, opts []llm.CallOption, stream bool) ([]byte, error) {
	if len(messages) == 0 {
		return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil)
	}

	cfg := llm.ApplyOptions(opts...)
	model := cfg.Model
	if model == "" && len(p.cfg.Models) > 0 {
		model = p.cfg.Models[0]
	}
	if model == "" {
		return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, "no model selected", nil)
	}

	apiMessages := make([]chatMessage, len(messages))
	for i, m := range messages {
		apiMessages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	req := cfg.Params.Map()
	maps.Copy(req, map[string]any{
		"model":    model,
		"messages": apiMessages,
		"stream":   stream,
	})

	body, err := json.Marshal(req)
	if err != nil {
		return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, "marshal chat request", err)
	}

	p.logger.Debug("hfhub chat request",
		zap.String("model", model),
		zap.Int("messages", len(messages)),
		zap.Bool("stream", stream),
	)
	return body, nil
}

// doPost sends an authenticated POST request and returns the response body.
func (p *Provider) doPost(ctx context.Context, path string, body []byte) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseStatusError(resp)
	}

	return resp.Body, nil
}

// get sends an authenticated GET request. Non-2xx responses become a statusError.
func (p *Provider) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseStatusError(resp)
	}
	return resp, nil
}

// parseStatusError reads an error response body. The router answers either
// with an OpenAI-style {"error": {...}} object or with {"error": "..."}.
func parseStatusError(resp *http.Response) *statusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var errResp struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &errResp); err != nil || len(errResp.Error) == 0 {
		return &statusError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var detail struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if err := json.Unmarshal(errResp.Error, &detail); err != nil {
		var plain string
		if json.Unmarshal(errResp.Error, &plain) == nil {
			detail.Message = plain
		}
	}

	if detail.Message == "" {
		detail.Message = resp.Status
	}
	return &statusError{
		StatusCode: resp.StatusCode,
		Type:       detail.Type,
		Message:    detail.Message,
	}
}

// sseStream reads chat completion chunks from a server-sent event body.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *sseStream) Recv() (string, error) {
	for !s.done {
		if !s.scanner.Scan() {
			s.done = true
			if err := s.scanner.Err(); err != nil {
				return "", mapError(err)
			}
			break
		}

		line := strings.TrimSpace(s.scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// Blank separators, comments and other event fields.
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			s.done = true
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("hfhub: %w: %w", llm.ErrMalformedChunk, err)
		}
		if chunk.Error != nil {
			return "", mapError(&statusError{StatusCode: 500, Message: chunk.Error.Message})
		}
		if len(chunk.Choices) == 0 {
			return "", fmt.Errorf("hfhub: %w: chunk has no choices", llm.ErrMalformedChunk)
		}
		return chunk.Choices[0].Delta.Content, nil
	}
	return "", io.EOF
}

func (s *sseStream) Close() error {
	return s.body.Close()
}

// --- OpenAI-compatible REST API types (internal) ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type listResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}
