package question

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

type retryFetcher interface {
	FetchWithRetry(ctx context.Context, req BatchRequest, maxRetries int) ([]Question, error)
	DefaultRetries() int
}

type poolState interface {
	Empty() bool
}

// PackStore keeps prefetched live packs until a session takes them.
type PackStore interface {
	Take(ctx context.Context, topicID string, count int) (*Pack, error)
	Put(ctx context.Context, pack Pack) error
}

// SupplyOptions tunes batch fan-out.
type SupplyOptions struct {
	DefaultCount  int
	MaxCount      int
	BatchSize     int
	MaxBatches    int
	Stagger       time.Duration
	MaxRetries    int // 0 means pool size + 1
	WarnOnPartial bool
}

// Orchestrator assembles a question pack from concurrent batches and never fails:
// when nothing live comes back the fallback provider fills in.
type Orchestrator struct {
	fetcher  retryFetcher
	pool     poolState
	fallback *FallbackProvider
	cache    PackStore
	opts     SupplyOptions
	logger   zerolog.Logger
}

// NewOrchestrator wires the supply pipeline. cache may be nil.
func NewOrchestrator(fetcher retryFetcher, pool poolState, fallback *FallbackProvider, cache PackStore, opts SupplyOptions, logger zerolog.Logger) *Orchestrator {
	if opts.DefaultCount <= 0 {
		opts.DefaultCount = 10
	}
	if opts.MaxCount <= 0 {
		opts.MaxCount = 30
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 4
	}
	if opts.MaxBatches <= 0 {
		opts.MaxBatches = 5
	}
	return &Orchestrator{
		fetcher:  fetcher,
		pool:     pool,
		fallback: fallback,
		cache:    cache,
		opts:     opts,
		logger:   logger.With().Str("component", "supply").Logger(),
	}
}

// Supply returns a pack for topic. A prefetched pack is used when one is waiting.
func (o *Orchestrator) Supply(ctx context.Context, topic Topic, target int) Pack {
	start := time.Now()
	defer func() { supplyDuration.Observe(time.Since(start).Seconds()) }()

	target = o.clamp(target)

	if o.cache != nil {
		cached, err := o.cache.Take(ctx, topic.ID, target)
		if err != nil {
			o.logger.Debug().Err(err).Str("topic", topic.ID).Msg("pack cache unavailable")
		} else if cached != nil && len(cached.Questions) > 0 {
			cached.Source = SourceCache
			suppliedPacks.WithLabelValues(SourceCache).Inc()
			o.logger.Info().Str("topic", topic.ID).Int("questions", len(cached.Questions)).Msg("served prefetched pack")
			return *cached
		}
	}

	pack, err := o.SupplyLive(ctx, topic, target)
	if err != nil {
		o.logger.Warn().Err(err).Str("topic", topic.ID).Msg("live supply failed, engaging fallback")
		return o.Fallback(topic, target)
	}

	suppliedPacks.WithLabelValues(SourceLive).Inc()
	o.logger.Info().
		Str("topic", topic.ID).
		Int("requested", target).
		Int("delivered", len(pack.Questions)).
		Msg("supplied live pack")
	return pack
}

// SupplyLive runs the batch fan-out only. It fails with ErrNoCredentials or ErrAllBatchesFailed
// and leaves the fallback decision to the caller.
func (o *Orchestrator) SupplyLive(ctx context.Context, topic Topic, target int) (Pack, error) {
	target = o.clamp(target)
	if o.pool.Empty() {
		return Pack{}, ErrNoCredentials
	}

	sizes := partition(target, o.opts.BatchSize, o.opts.MaxBatches)
	retries := o.opts.MaxRetries
	if retries <= 0 {
		retries = o.fetcher.DefaultRetries()
	}

	seed := uuid.NewString()[:8]
	results := make([][]Question, len(sizes))
	errs := make([]error, len(sizes))

	// Every goroutine returns nil so Wait only ever means "all settled".
	var g errgroup.Group
	for i, size := range sizes {
		g.Go(func() error {
			if err := sleepContext(ctx, time.Duration(i)*o.opts.Stagger); err != nil {
				errs[i] = err
				return nil
			}
			req := BatchRequest{Topic: topic, Count: size, BatchID: fmt.Sprintf("%s-b%d", seed, i)}
			results[i], errs[i] = o.fetcher.FetchWithRetry(ctx, req, retries)
			return nil
		})
	}
	_ = g.Wait()

	merged := make([]Question, 0, target)
	var failures error
	for i := range sizes {
		if errs[i] != nil {
			failures = multierr.Append(failures, errs[i])
			continue
		}
		merged = append(merged, results[i]...)
	}

	if len(merged) == 0 {
		if failures == nil {
			return Pack{}, ErrAllBatchesFailed
		}
		return Pack{}, fmt.Errorf("%w: %w", ErrAllBatchesFailed, failures)
	}

	pack := Pack{
		Topic:     topic,
		Questions: merged,
		Source:    SourceLive,
		Requested: target,
	}
	if len(merged) < target {
		pack.Degraded = true
		degradedPacks.Inc()
		o.logger.Warn().
			Str("topic", topic.ID).
			Int("requested", target).
			Int("delivered", len(merged)).
			Int("failed_batches", len(multierr.Errors(failures))).
			Msg("degraded question yield")
		if o.opts.WarnOnPartial {
			pack.Warning = fmt.Sprintf("only %d of %d questions could be generated", len(merged), target)
		}
	}
	return pack, nil
}

// Fallback returns the offline pack for topic.
func (o *Orchestrator) Fallback(topic Topic, target int) Pack {
	suppliedPacks.WithLabelValues(SourceFallback).Inc()
	return Pack{
		Topic:     topic,
		Questions: o.fallback.Provide(topic),
		Source:    SourceFallback,
		Requested: target,
		Warning:   "live generation unavailable, offline question bank in use",
	}
}

// Prefetch generates a live pack and stores it for the next session on the same topic.
func (o *Orchestrator) Prefetch(ctx context.Context, topic Topic, target int) error {
	if o.cache == nil {
		return errors.New("prefetch requires a pack cache")
	}
	target = o.clamp(target)
	pack, err := o.SupplyLive(ctx, topic, target)
	if err != nil {
		return err
	}
	return o.cache.Put(ctx, pack)
}

// clamp applies the default for a missing target and bounds the rest to MaxCount.
func (o *Orchestrator) clamp(target int) int {
	if target <= 0 {
		target = o.opts.DefaultCount
	}
	if target > o.opts.MaxCount {
		target = o.opts.MaxCount
	}
	return target
}

// partition splits target into near-equal batches no larger than size where the batch cap allows.
// Earlier batches take the remainder.
func partition(target, size, maxBatches int) []int {
	if target <= 0 {
		return nil
	}
	n := (target + size - 1) / size
	if n > maxBatches {
		n = maxBatches
	}
	base, rem := target/n, target%n
	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
