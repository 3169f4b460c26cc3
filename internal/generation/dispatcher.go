// Package generation dispatches composed conversations to the backend a
// session resolves to and turns every successful exchange into a
// generation log record.
//
// Backend failures are returned unchanged and never retried. A failed call
// leaves the caller's history untouched and produces no log record.
package generation

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/narracode/internal/audit"
	"github.com/HerbHall/narracode/internal/prompt"
	"github.com/HerbHall/narracode/internal/session"
	"github.com/HerbHall/narracode/internal/tasks"
	"github.com/HerbHall/narracode/pkg/llm"
)

// Result is the outcome of a one-shot coding call.
type Result struct {
	// Output is the backend's text, unchanged.
	Output string
	// Messages is the message list that was sent, ending with the user
	// message. It never aliases the caller's history.
	Messages []llm.Message
	// Log is the record of the exchange. Persisting it is up to the caller.
	Log audit.Record
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the clock used to timestamp log records.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithMetrics sets the collectors the dispatcher reports to.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithBatchLimits bounds CodeMany: at most concurrency calls in flight,
// started at no more than rps per second with the given burst. A
// non-positive rps disables pacing.
func WithBatchLimits(concurrency int, rps float64, burst int) Option {
	return func(d *Dispatcher) {
		d.batch = batchLimits{concurrency: concurrency, rps: rps, burst: burst}
	}
}

// Dispatcher sends conversations to session backends. It holds no
// per-session state and is safe for concurrent use.
type Dispatcher struct {
	registry *tasks.Registry
	composer *prompt.Composer
	sink     *audit.Sink
	logger   *zap.Logger
	now      func() time.Time
	metrics  *Metrics
	batch    batchLimits
}

// New creates a Dispatcher. sink may be nil when no caller persists chat
// turns; a nil composer composes without private examples.
func New(registry *tasks.Registry, composer *prompt.Composer, sink *audit.Sink, logger *zap.Logger, opts ...Option) *Dispatcher {
	if composer == nil {
		composer = prompt.NewComposer(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		registry: registry,
		composer: composer,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
		batch:    defaultBatchLimits,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SystemPrompt composes the instruction for the session's current coding
// task in the given kind.
func (d *Dispatcher) SystemPrompt(sess *session.Session, kind prompt.Kind) (string, error) {
	return d.systemPrompt(sess.Resolve().CodingTask, kind)
}

func (d *Dispatcher) systemPrompt(task tasks.Name, kind prompt.Kind) (string, error) {
	def, err := d.registry.Get(task)
	if err != nil {
		return "", err
	}
	return d.composer.SystemPrompt(def, kind), nil
}

// CodeText codes one piece of text. A nil history seeds a fresh
// direct-coding system prompt; otherwise history is copied and the text is
// appended to the copy.
func (d *Dispatcher) CodeText(ctx context.Context, sess *session.Session, text string, history []llm.Message, params llm.Params) (*Result, error) {
	return d.code(ctx, sess, text, history, params, nil, false)
}

// CodeStream is CodeText over the backend's streaming call. onChunk, if
// non-nil, observes each accepted chunk as it arrives.
func (d *Dispatcher) CodeStream(ctx context.Context, sess *session.Session, text string, history []llm.Message, params llm.Params, onChunk ChunkFunc) (*Result, error) {
	return d.code(ctx, sess, text, history, params, onChunk, true)
}

func (d *Dispatcher) code(ctx context.Context, sess *session.Session, text string, history []llm.Message, params llm.Params, onChunk ChunkFunc, stream bool) (*Result, error) {
	backend, cfg, err := sess.Backend()
	if err != nil {
		return nil, err
	}
	return d.codeWith(ctx, sess, backend, cfg, text, history, params, onChunk, stream)
}

// codeWith performs one coding call against a resolved backend. The prompt
// and the log record are both built from cfg.
func (d *Dispatcher) codeWith(ctx context.Context, sess *session.Session, backend llm.Provider, cfg session.Config, text string, history []llm.Message, params llm.Params, onChunk ChunkFunc, stream bool) (*Result, error) {
	var messages []llm.Message
	if history == nil {
		system, err := d.systemPrompt(cfg.CodingTask, prompt.KindDirectCoding)
		if err != nil {
			return nil, err
		}
		messages = []llm.Message{{Role: llm.RoleSystem, Content: system}}
	} else {
		messages = slices.Clone(history)
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: text})

	output, err := d.generate(ctx, sess, backend, cfg, messages, params, prompt.KindDirectCoding, onChunk, stream)
	if err != nil {
		return nil, err
	}

	rec, err := d.record(sess, cfg, prompt.KindDirectCoding, messages, params, output)
	if err != nil {
		return nil, err
	}
	return &Result{Output: output, Messages: messages, Log: rec}, nil
}

// ChatOption configures one chat turn.
type ChatOption func(*chatOptions)

type chatOptions struct {
	stream  bool
	onChunk ChunkFunc
}

// WithStream makes the turn use the backend's streaming call, passing each
// chunk to onChunk as it arrives.
func WithStream(onChunk ChunkFunc) ChatOption {
	return func(o *chatOptions) {
		o.stream = true
		o.onChunk = onChunk
	}
}

// NewChat starts a conversation seeded with the chat instruction for the
// session's current coding task.
func (d *Dispatcher) NewChat(sess *session.Session) (*session.Conversation, error) {
	system, err := d.SystemPrompt(sess, prompt.KindChat)
	if err != nil {
		return nil, err
	}
	return session.NewConversation(system), nil
}

// GenerateForChat sends conv to the session backend and appends the
// assistant reply to conv. The exchange is then written to the sink; a
// write failure is logged and does not fail the turn. On error conv is left
// unchanged and nothing is logged.
//
// Turns of one conversation must not run concurrently.
func (d *Dispatcher) GenerateForChat(ctx context.Context, sess *session.Session, conv *session.Conversation, params llm.Params, opts ...ChatOption) (string, error) {
	var o chatOptions
	for _, opt := range opts {
		opt(&o)
	}

	backend, cfg, err := sess.Backend()
	if err != nil {
		return "", err
	}
	messages := conv.Messages()
	output, err := d.generate(ctx, sess, backend, cfg, messages, params, prompt.KindChat, o.onChunk, o.stream)
	if err != nil {
		return "", err
	}

	rec, err := d.record(sess, cfg, prompt.KindChat, messages, params, output)
	if err != nil {
		return "", err
	}
	conv.Append(llm.RoleAssistant, output)

	if d.sink != nil {
		if err := d.sink.AppendLogs(ctx, &rec, nil); err != nil {
			sess.Logger().Warn("failed to write chat generation log",
				zap.String("coding_task", rec.CodingTask),
				zap.Error(err),
			)
		}
	}
	return output, nil
}

// generate performs one backend call for cfg. Errors from the backend are
// returned as is.
func (d *Dispatcher) generate(ctx context.Context, sess *session.Session, backend llm.Provider, cfg session.Config, messages []llm.Message, params llm.Params, kind prompt.Kind, onChunk ChunkFunc, stream bool) (string, error) {
	logger := sess.Logger().With(
		zap.String("service", string(cfg.Service)),
		zap.String("model", cfg.BaseModel),
		zap.String("coding_task", string(cfg.CodingTask)),
		zap.String("kind", string(kind)),
	)
	opts := []llm.CallOption{llm.WithModel(cfg.BaseModel), llm.WithParams(params)}

	start := time.Now()
	var (
		output  string
		skipped int
		err     error
	)
	if stream {
		output, skipped, err = d.stream(ctx, backend, messages, opts, onChunk)
	} else {
		var resp *llm.Response
		resp, err = backend.Chat(ctx, messages, opts...)
		if err == nil {
			output = resp.Content
		}
	}
	elapsed := time.Since(start)

	d.metrics.observe(string(cfg.Service), string(kind), elapsed, err)
	d.metrics.skipped(string(cfg.Service), skipped)

	if err != nil {
		logger.Warn("generation failed", zap.Duration("duration", elapsed), zap.Error(err))
		return "", err
	}
	logger.Debug("generation completed",
		zap.Duration("duration", elapsed),
		zap.Int("messages", len(messages)),
		zap.Int("output_len", len(output)),
		zap.Int("skipped_chunks", skipped),
	)
	return output, nil
}

func (d *Dispatcher) stream(ctx context.Context, backend llm.Provider, messages []llm.Message, opts []llm.CallOption, onChunk ChunkFunc) (string, int, error) {
	s, err := backend.ChatStream(ctx, messages, opts...)
	if err != nil {
		return "", 0, err
	}
	defer s.Close()
	return collect(s, onChunk)
}

func (d *Dispatcher) record(sess *session.Session, cfg session.Config, kind prompt.Kind, messages []llm.Message, params llm.Params, output string) (audit.Record, error) {
	rec, err := audit.NewRecord(d.now(), sess.User, string(cfg.Service), cfg.BaseModel,
		string(cfg.CodingTask), string(kind), messages, params, output)
	if err != nil {
		return audit.Record{}, fmt.Errorf("build generation log record: %w", err)
	}
	return rec, nil
}
