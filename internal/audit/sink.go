package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Sink appends generation records to a Sheet.
//
// Appending is a read-modify-write of the whole table with no concurrency
// control: two writers racing can lose one of the appends (last writer wins).
type Sink struct {
	sheet   Sheet
	logger  *zap.Logger
	readTTL time.Duration
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithReadTTL lets Tail serve a cached view younger than ttl. Appends always
// read through to the store.
func WithReadTTL(ttl time.Duration) SinkOption {
	return func(s *Sink) { s.readTTL = ttl }
}

// NewSink creates a Sink over sheet.
func NewSink(sheet Sheet, logger *zap.Logger, opts ...SinkOption) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sink{sheet: sheet, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendLogs appends single (if non-nil) as one row, then multiple as a batch.
func (s *Sink) AppendLogs(ctx context.Context, single *Record, multiple []Record) error {
	if single == nil && len(multiple) == 0 {
		return nil
	}

	t, err := s.sheet.Read(ctx, 0)
	if err != nil {
		return err
	}
	if len(t.Columns) == 0 {
		t = NewTable()
	}
	before := t.Len()

	if single != nil {
		t.Rows = append(t.Rows, single.Row())
	}
	for _, r := range multiple {
		t.Rows = append(t.Rows, r.Row())
	}

	if err := s.sheet.Update(ctx, t); err != nil {
		return err
	}

	s.logger.Debug("generation log appended",
		zap.Int("rows_before", before),
		zap.Int("rows_added", t.Len()-before),
	)
	return nil
}

// Tail returns up to n of the most recent rows, oldest first.
func (s *Sink) Tail(ctx context.Context, n int) ([][]string, error) {
	if n < 0 {
		return nil, fmt.Errorf("tail length must not be negative, got %d", n)
	}
	t, err := s.sheet.Read(ctx, s.readTTL)
	if err != nil {
		return nil, err
	}
	if n > t.Len() {
		n = t.Len()
	}
	return t.Rows[t.Len()-n:], nil
}
