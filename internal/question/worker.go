package question

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PrefetchRequest asks the worker to warm the cache for a topic.
type PrefetchRequest struct {
	Topic Topic `json:"topic"`
	Count int   `json:"count"`
}

type prefetcher interface {
	Prefetch(ctx context.Context, topic Topic, target int) error
}

// FetcherWorker drains prefetch requests so a session can start from a ready pack.
type FetcherWorker struct {
	supply    prefetcher
	queue     <-chan PrefetchRequest
	logger    zerolog.Logger
	timeout   time.Duration
	shutdownC chan struct{}
}

func NewFetcherWorker(supply prefetcher, queue <-chan PrefetchRequest, logger zerolog.Logger, timeout time.Duration) *FetcherWorker {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &FetcherWorker{
		supply:    supply,
		queue:     queue,
		logger:    logger.With().Str("component", "prefetch").Logger(),
		timeout:   timeout,
		shutdownC: make(chan struct{}),
	}
}

func (w *FetcherWorker) Run() {
	for {
		select {
		case <-w.shutdownC:
			w.logger.Info().Msg("question prefetcher stopping")
			return
		case req, ok := <-w.queue:
			if !ok {
				return
			}
			w.handle(req)
		}
	}
}

func (w *FetcherWorker) handle(req PrefetchRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	// Failures are not retried here; the session will simply supply live.
	if err := w.supply.Prefetch(ctx, req.Topic, req.Count); err != nil {
		w.logger.Warn().Err(err).Str("topic", req.Topic.ID).Msg("prefetch failed")
		return
	}
	w.logger.Debug().Str("topic", req.Topic.ID).Int("count", req.Count).Msg("pack prefetched")
}

func (w *FetcherWorker) Stop() {
	close(w.shutdownC)
}
