package llmtest

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/HerbHall/narracode/pkg/llm"
)

// Compile-time interface guard.
var _ llm.Provider = (*Stub)(nil)

// Chunk is one scripted streaming delta. A Malformed chunk is delivered as
// an error wrapping llm.ErrMalformedChunk instead of text.
type Chunk struct {
	Text      string
	Malformed bool
}

// Call records one invocation of the Stub.
type Call struct {
	Messages []llm.Message
	Config   llm.CallConfig
	Stream   bool
}

// Stub is a scripted llm.Provider. Chat answers with Reply (or the
// concatenated non-malformed Chunks when Reply is empty); ChatStream
// replays Chunks (or Reply as a single chunk). A non-nil Err fails every call.
type Stub struct {
	Reply  string
	Chunks []Chunk
	Err    error

	mu    sync.Mutex
	calls []Call
}

// Chat implements llm.Provider.
func (s *Stub) Chat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Response, error) {
	cfg, err := s.record(ctx, messages, opts, false)
	if err != nil {
		return nil, err
	}
	return &llm.Response{Content: s.text(), Model: cfg.Model, Done: true}, nil
}

// ChatStream implements llm.Provider.
func (s *Stub) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (llm.Stream, error) {
	if _, err := s.record(ctx, messages, opts, true); err != nil {
		return nil, err
	}
	chunks := s.Chunks
	if len(chunks) == 0 {
		chunks = []Chunk{{Text: s.Reply}}
	}
	return &stubStream{chunks: slices.Clone(chunks)}, nil
}

// Calls returns a snapshot of the recorded invocations.
func (s *Stub) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func (s *Stub) record(ctx context.Context, messages []llm.Message, opts []llm.CallOption, stream bool) (llm.CallConfig, error) {
	cfg := llm.ApplyOptions(opts...)
	if err := ctx.Err(); err != nil {
		return cfg, llm.NewProviderError(llm.ErrCodeTimeout, "request timed out or cancelled", err)
	}
	if len(messages) == 0 {
		return cfg, llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil)
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Messages: slices.Clone(messages), Config: cfg, Stream: stream})
	s.mu.Unlock()

	if s.Err != nil {
		return cfg, s.Err
	}
	return cfg, nil
}

func (s *Stub) text() string {
	if s.Reply != "" || len(s.Chunks) == 0 {
		return s.Reply
	}
	var sb strings.Builder
	for _, c := range s.Chunks {
		if !c.Malformed {
			sb.WriteString(c.Text)
		}
	}
	return sb.String()
}

type stubStream struct {
	chunks []Chunk
	pos    int
}

func (s *stubStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	if c.Malformed {
		return "", llm.ErrMalformedChunk
	}
	return c.Text, nil
}

func (s *stubStream) Close() error { return nil }
