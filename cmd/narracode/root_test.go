package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/HerbHall/narracode/internal/config"
	"github.com/HerbHall/narracode/internal/session"
	"github.com/HerbHall/narracode/pkg/llm"
	"github.com/HerbHall/narracode/pkg/llm/llmtest"
)

// testEnv points the CLI at a temporary database and stubbed backends.
type testEnv struct {
	configPath string
	stubs      map[session.Service]*llmtest.Stub
	// providers, when set for a service, take precedence over stubs.
	providers map[session.Service]llm.Provider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "narracode.yaml")
	cfg := fmt.Sprintf(`logging:
  level: error
database:
  path: %s
services:
  together:
    models: [free-a, free-b]
  huggingface:
    models: [private-a]
defaults:
  temperature: 0.2
`, filepath.Join(dir, "data", "narracode.db"))
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		configPath: cfgPath,
		stubs: map[session.Service]*llmtest.Stub{
			session.ServiceFree:    {Reply: "I went _ext_neu_"},
			session.ServicePrivate: {Reply: "Coherence: _high_"},
		},
		providers: map[session.Service]llm.Provider{},
	}

	orig := newBackend
	newBackend = func(svc session.Service, _ *config.Config, _ *zap.Logger) (llm.Provider, error) {
		if p, ok := env.providers[svc]; ok {
			return p, nil
		}
		stub, ok := env.stubs[svc]
		if !ok {
			return nil, session.ErrUnknownService
		}
		return stub, nil
	}
	t.Cleanup(func() { newBackend = orig })
	return env
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath, "--user", "alice"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCode_PrintsOutputAndLogs(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "code", "I went to the store.")
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if strings.TrimSpace(out) != "I went _ext_neu_" {
		t.Errorf("output = %q", out)
	}

	calls := env.stubs[session.ServiceFree].Calls()
	if len(calls) != 1 {
		t.Fatalf("backend calls = %d, want 1", len(calls))
	}
	c := calls[0]
	if c.Config.Model != "free-a" {
		t.Errorf("model = %q, want the service's first model", c.Config.Model)
	}
	if c.Config.Params.Temperature != 0.2 {
		t.Errorf("temperature = %v, want the configured default", c.Config.Params.Temperature)
	}
	if len(c.Messages) != 2 || c.Messages[1].Content != "I went to the store." {
		t.Errorf("messages = %+v", c.Messages)
	}

	logs, err := env.run(t, "", "logs", "tail", "-n", "5")
	if err != nil {
		t.Fatalf("logs tail: %v", err)
	}
	for _, want := range []string{"alice", "TogetherAI", "free-a", "direct_coding", "I went _ext_neu_"} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs tail output lacks %q:\n%s", want, logs)
		}
	}
}

func TestCode_FlagsSelectServiceAndParams(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "Mum told me to leave.\n",
		"--service", "HuggingFaceHub", "--task", "Sentence-Coherence", "--temperature", "0",
		"--param", "top_p=0.9", "--param", "stop=END", "code", "-")
	if err != nil {
		t.Fatalf("code: %v", err)
	}

	calls := env.stubs[session.ServicePrivate].Calls()
	if len(calls) != 1 {
		t.Fatalf("private backend calls = %d, want 1", len(calls))
	}
	p := calls[0].Config.Params
	if p.Temperature != 0 {
		t.Errorf("temperature = %v, want explicit 0", p.Temperature)
	}
	if p.Extra["top_p"] != 0.9 || p.Extra["stop"] != "END" {
		t.Errorf("extra params = %v", p.Extra)
	}
	if calls[0].Config.Model != "private-a" {
		t.Errorf("model = %q", calls[0].Config.Model)
	}
	if len(env.stubs[session.ServiceFree].Calls()) != 0 {
		t.Error("free backend should not be called")
	}
}

func TestCode_UnknownTask(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "", "--task", "Nope", "code", "x"); err == nil {
		t.Fatal("unknown task should fail")
	}
}

func TestCode_BackendError(t *testing.T) {
	env := newTestEnv(t)
	env.stubs[session.ServiceFree].Err = llm.NewProviderError(llm.ErrCodeRateLimit, "slow down", nil)

	_, err := env.run(t, "", "code", "x")
	if !llm.IsRateLimitError(err) {
		t.Fatalf("error = %v, want rate limit error", err)
	}
}

func TestCode_Stream(t *testing.T) {
	env := newTestEnv(t)
	env.stubs[session.ServiceFree].Reply = ""
	env.stubs[session.ServiceFree].Chunks = []llmtest.Chunk{{Text: "Hel"}, {Malformed: true}, {Text: "lo"}}

	out, err := env.run(t, "", "code", "--stream", "x")
	if err != nil {
		t.Fatalf("code --stream: %v", err)
	}
	if out != "Hello\n" {
		t.Errorf("output = %q", out)
	}
}

func TestBatch_PrintsInInputOrder(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "first\n\n  second  \nthird\n", "batch", "-")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("output lines = %q, want 3", lines)
	}
	if got := len(env.stubs[session.ServiceFree].Calls()); got != 3 {
		t.Errorf("backend calls = %d, want 3", got)
	}

	logs, err := env.run(t, "", "logs", "tail", "-n", "10")
	if err != nil {
		t.Fatalf("logs tail: %v", err)
	}
	// header plus one row per text
	if rows := strings.Split(strings.TrimSpace(logs), "\n"); len(rows) != 4 {
		t.Errorf("log rows = %d, want 4:\n%s", len(rows), logs)
	}
}

func TestBatch_EmptyInput(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "\n \n", "batch", "-"); err == nil {
		t.Fatal("empty batch should fail")
	}
}

func TestChat_RunsTurnsAndResets(t *testing.T) {
	env := newTestEnv(t)
	env.stubs[session.ServiceFree].Reply = "Sure."

	out, err := env.run(t, "why ext?\nand int?\n/reset\nagain\n/exit\nignored\n", "chat")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if strings.Count(out, "Sure.") != 3 {
		t.Errorf("output = %q, want three replies", out)
	}

	calls := env.stubs[session.ServiceFree].Calls()
	if len(calls) != 3 {
		t.Fatalf("backend calls = %d, want 3", len(calls))
	}
	// system, user, assistant, user
	if n := len(calls[1].Messages); n != 4 {
		t.Errorf("second turn sent %d messages, want 4", n)
	}
	// reset starts from the system prompt again
	if n := len(calls[2].Messages); n != 2 {
		t.Errorf("turn after reset sent %d messages, want 2", n)
	}
	for i, c := range calls {
		if !c.Stream {
			t.Errorf("call %d was not streamed", i)
		}
	}
}

// flakyProvider fails its first failures calls and records every request.
type flakyProvider struct {
	llmtest.Stub
	failures int

	mu       sync.Mutex
	requests [][]llm.Message
}

func (f *flakyProvider) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (llm.Stream, error) {
	f.mu.Lock()
	f.requests = append(f.requests, slices.Clone(messages))
	fail := len(f.requests) <= f.failures
	f.mu.Unlock()
	if fail {
		return nil, llm.NewProviderError(llm.ErrCodeServerError, "upstream unavailable", nil)
	}
	return f.Stub.ChatStream(ctx, messages, opts...)
}

func TestChat_FailedTurnContinues(t *testing.T) {
	env := newTestEnv(t)
	flaky := &flakyProvider{Stub: llmtest.Stub{Reply: "Sure."}, failures: 1}
	env.providers[session.ServiceFree] = flaky

	out, err := env.run(t, "hello\nhello\n", "chat")
	if err != nil {
		t.Fatalf("chat should survive a failed turn: %v", err)
	}
	if strings.Count(out, "Sure.") != 1 {
		t.Errorf("output = %q, want one reply", out)
	}

	if len(flaky.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(flaky.requests))
	}
	// The retry is sent as if the failed turn never happened.
	retry := flaky.requests[1]
	if len(retry) != 2 || retry[0].Role != llm.RoleSystem || retry[1].Role != llm.RoleUser {
		t.Errorf("retry sent %+v, want system and one user message", retry)
	}

	logs, err := env.run(t, "", "logs", "tail")
	if err != nil {
		t.Fatalf("logs tail: %v", err)
	}
	if rows := strings.Split(strings.TrimSpace(logs), "\n"); len(rows) != 2 {
		t.Errorf("log rows = %d, want header and the successful turn:\n%s", len(rows), logs)
	}
}

func TestTasks_ListAndShow(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "tasks", "list")
	if err != nil {
		t.Fatalf("tasks list: %v", err)
	}
	for _, want := range []string{"Segment-Locus-Valence", "Sentence-Coherence", "*"} {
		if !strings.Contains(out, want) {
			t.Errorf("tasks list lacks %q:\n%s", want, out)
		}
	}

	out, err = env.run(t, "", "tasks", "show", "Sentence-Coherence")
	if err != nil {
		t.Fatalf("tasks show: %v", err)
	}
	if !strings.Contains(out, "name: Sentence-Coherence") || !strings.Contains(out, "task_definition:") {
		t.Errorf("tasks show output:\n%s", out)
	}

	if _, err := env.run(t, "", "tasks", "show", "Nope"); err == nil {
		t.Error("showing an unknown task should fail")
	}
}

func TestLogsTail_NegativeCount(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "", "logs", "tail", "-n", "-1"); err == nil {
		t.Fatal("negative count should fail")
	}
}

func TestMetricsFile(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "metrics.prom")

	if _, err := env.run(t, "", "--metrics-file", path, "code", "x"); err != nil {
		t.Fatalf("code: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(b), `narracode_generations_total{kind="direct_coding",outcome="success",service="TogetherAI"} 1`) {
		t.Errorf("metrics file:\n%s", b)
	}
}

// healthStub is a backend that reports the models it serves.
type healthStub struct {
	llmtest.Stub
	models       []string
	heartbeatErr error
}

func (h *healthStub) Heartbeat(context.Context) error { return h.heartbeatErr }

func (h *healthStub) ListModels(context.Context) ([]string, error) { return h.models, nil }

// statusOf returns the status printed after model on its report line.
func statusOf(out, model string) string {
	for line := range strings.Lines(out) {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), model+" "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func TestServicesCheck(t *testing.T) {
	t.Run("reports unlisted models and unreachable services", func(t *testing.T) {
		env := newTestEnv(t)
		env.providers[session.ServiceFree] = &healthStub{models: []string{"free-a", "other"}}
		env.providers[session.ServicePrivate] = &healthStub{
			heartbeatErr: llm.NewProviderError(llm.ErrCodeAuthentication, "bad token", nil),
		}

		out, err := env.run(t, "", "services", "check")
		if err == nil {
			t.Error("check should fail when a service is unreachable")
		}
		if got := statusOf(out, "free-a"); got != "ok" {
			t.Errorf("free-a status = %q, want ok\n%s", got, out)
		}
		if got := statusOf(out, "free-b"); got != "not listed by service" {
			t.Errorf("free-b status = %q\n%s", got, out)
		}
		if !strings.Contains(out, "unreachable") || strings.Contains(out, "private-a") {
			t.Errorf("private service should be reported unreachable without a model list:\n%s", out)
		}
	})

	t.Run("all services healthy", func(t *testing.T) {
		env := newTestEnv(t)
		env.providers[session.ServiceFree] = &healthStub{models: []string{"free-a", "free-b"}}
		env.providers[session.ServicePrivate] = &healthStub{models: []string{"private-a"}}

		out, err := env.run(t, "", "services", "check")
		if err != nil {
			t.Fatalf("services check: %v", err)
		}
		for _, m := range []string{"free-a", "free-b", "private-a"} {
			if got := statusOf(out, m); got != "ok" {
				t.Errorf("%s status = %q, want ok\n%s", m, got, out)
			}
		}
	})

	t.Run("backend without health reporting", func(t *testing.T) {
		env := newTestEnv(t)
		out, err := env.run(t, "", "services", "check")
		if err != nil {
			t.Fatalf("services check: %v", err)
		}
		if strings.Count(out, "health reporting not supported") != 2 {
			t.Errorf("output:\n%s", out)
		}
	})
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestParseParam(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"0.5", 0.5},
		{"128", float64(128)},
		{"true", true},
		{"END", "END"},
		{`"quoted"`, `"quoted"`},
		{"[1,2]", "[1,2]"},
	}
	for _, tc := range tests {
		if got := parseParam(tc.raw); got != tc.want {
			t.Errorf("parseParam(%q) = %#v, want %#v", tc.raw, got, tc.want)
		}
	}
}
