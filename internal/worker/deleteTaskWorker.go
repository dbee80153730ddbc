// Package worker runs background jobs that batch up work submitted by the
// request handlers.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultFlushInterval = 10 * time.Second
	defaultBatchSize     = 25
	deleteTimeout        = 3 * time.Second
)

// Deleter removes a single record by id.
type Deleter interface {
	Delete(ctx context.Context, id int64) (bool, error)
}

// DeleteTaskWorker collects record ids and deletes them in batches, either
// once more than batchSize ids are queued or on every tick of interval.
type DeleteTaskWorker struct {
	in        chan int64
	done      chan struct{}
	logger    *zap.Logger
	repo      Deleter
	interval  time.Duration
	batchSize int
}

// Option tunes a DeleteTaskWorker.
type Option func(*DeleteTaskWorker)

// WithFlushInterval overrides how often queued ids are flushed.
func WithFlushInterval(d time.Duration) Option {
	return func(w *DeleteTaskWorker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithBatchSize overrides the queue length that triggers an early flush.
func WithBatchSize(n int) Option {
	return func(w *DeleteTaskWorker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func NewDeleteTaskWorker(logger *zap.Logger, repo Deleter, opts ...Option) *DeleteTaskWorker {
	w := &DeleteTaskWorker{
		done:      make(chan struct{}),
		logger:    logger,
		repo:      repo,
		interval:  defaultFlushInterval,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.in = make(chan int64, w.batchSize)

	return w
}

func (w *DeleteTaskWorker) GetInChannel() chan<- int64 {
	return w.in
}

// Done is closed once FlushRecords has returned.
func (w *DeleteTaskWorker) Done() <-chan struct{} {
	return w.done
}

// FlushRecords runs until ctx is cancelled. Ids still queued at that point
// are deleted before it returns.
func (w *DeleteTaskWorker) FlushRecords(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var ids []int64

	flush := func() {
		if len(ids) == 0 {
			return
		}
		w.logger.Info("flushing delete tasks", zap.Int("count", len(ids)))

		deleted := 0
		for _, id := range ids {
			dctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
			ok, err := w.repo.Delete(dctx, id)
			cancel()

			switch {
			case err != nil:
				w.logger.Error("cannot delete record", zap.Int64("id", id), zap.Error(err))
			case !ok:
				w.logger.Debug("record already gone", zap.Int64("id", id))
			default:
				deleted++
			}
		}
		w.logger.Info("delete tasks flushed", zap.Int("deleted", deleted))

		ids = ids[:0]
	}

	for {
		select {
		case id := <-w.in:
			ids = append(ids, id)
			if len(ids) > w.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case id := <-w.in:
					ids = append(ids, id)
				default:
					flush()
					return
				}
			}
		}
	}
}
