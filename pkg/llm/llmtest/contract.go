// Package llmtest provides shared contract tests that verify any
// llm.Provider implementation behaves correctly, plus a scripted Stub
// provider for tests of code that sits above the backend.
//
// Adapter tests run the contract against an httptest server emulating the
// service; the suite never needs a live backend.
package llmtest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/HerbHall/narracode/pkg/llm"
)

// TestProviderContract runs a suite of behavioral contract tests against
// any llm.Provider implementation. Call this from each adapter's _test.go:
//
//	func TestContract(t *testing.T) {
//	    llmtest.TestProviderContract(t, func() llm.Provider { return newTestProvider(t, srv.URL) })
//	}
//
// The provider must answer every chat with non-empty text.
func TestProviderContract(t *testing.T, factory func() llm.Provider) {
	t.Helper()

	t.Run("Chat_returns_non_empty_response", func(t *testing.T) {
		p := factory()
		messages := []llm.Message{
			{Role: llm.RoleSystem, Content: "You code memory segments."},
			{Role: llm.RoleUser, Content: "I went to the store."},
		}
		resp, err := p.Chat(context.Background(), messages, llm.WithTemperature(0))
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if resp == nil {
			t.Fatal("Chat() returned nil response")
		}
		if resp.Content == "" {
			t.Error("Chat() returned empty content")
		}
	})

	t.Run("Chat_empty_messages_returns_error", func(t *testing.T) {
		p := factory()
		_, err := p.Chat(context.Background(), nil)
		if err == nil {
			t.Error("Chat() with nil messages should return error")
		}
	})

	t.Run("Chat_cancelled_context", func(t *testing.T) {
		p := factory()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: "Hi"}})
		if err == nil {
			t.Error("Chat() with cancelled context should return error")
		}
	})

	t.Run("ChatStream_yields_text_until_EOF", func(t *testing.T) {
		p := factory()
		stream, err := p.ChatStream(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "Hi"}})
		if err != nil {
			t.Fatalf("ChatStream() error = %v", err)
		}
		defer stream.Close()

		var sb strings.Builder
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if llm.IsMalformedChunk(err) {
				continue
			}
			if err != nil {
				t.Fatalf("Recv() error = %v", err)
			}
			sb.WriteString(chunk)
		}
		if sb.Len() == 0 {
			t.Error("stream produced no text")
		}
	})

	t.Run("HealthReporter_if_implemented", func(t *testing.T) {
		p := factory()
		hr, ok := p.(llm.HealthReporter)
		if !ok {
			t.Skip("Provider does not implement HealthReporter")
		}
		if err := hr.Heartbeat(context.Background()); err != nil {
			t.Errorf("Heartbeat() error = %v", err)
		}
		models, err := hr.ListModels(context.Background())
		if err != nil {
			t.Fatalf("ListModels() error = %v", err)
		}
		if len(models) == 0 {
			t.Error("ListModels() returned empty list")
		}
	})
}
