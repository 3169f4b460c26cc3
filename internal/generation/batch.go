package generation

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/HerbHall/narracode/internal/prompt"
	"github.com/HerbHall/narracode/internal/session"
	"github.com/HerbHall/narracode/pkg/llm"
)

type batchLimits struct {
	concurrency int
	rps         float64
	burst       int
}

var defaultBatchLimits = batchLimits{concurrency: 4, rps: 2, burst: 4}

// CodeMany codes every text independently with one shared direct-coding
// system prompt. The session configuration is read once, so every call and
// log record of the batch uses the same service, model and task. Results are returned in input order. The first failure
// cancels the calls not yet started and is returned; no partial results are
// returned with it. Logs are not persisted; pass them to the sink as one
// batch.
func (d *Dispatcher) CodeMany(ctx context.Context, sess *session.Session, texts []string, params llm.Params) ([]*Result, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	backend, cfg, err := sess.Backend()
	if err != nil {
		return nil, err
	}
	system, err := d.systemPrompt(cfg.CodingTask, prompt.KindDirectCoding)
	if err != nil {
		return nil, err
	}
	prefix := []llm.Message{{Role: llm.RoleSystem, Content: system}}

	limiter := d.batch.limiter()
	results := make([]*Result, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	if d.batch.concurrency > 0 {
		g.SetLimit(d.batch.concurrency)
	}
	for i, text := range texts {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}
			res, err := d.codeWith(gctx, sess, backend, cfg, text, prefix, params, nil, false)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.logger.Info("batch coding completed",
		zap.String("session", sess.ID),
		zap.String("coding_task", string(cfg.CodingTask)),
		zap.Int("texts", len(texts)),
	)
	return results, nil
}

func (b batchLimits) limiter() *rate.Limiter {
	if b.rps <= 0 {
		return nil
	}
	burst := b.burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(b.rps), burst)
}
