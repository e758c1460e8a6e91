package question

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

type batchFetcher interface {
	FetchBatch(ctx context.Context, credential string, req BatchRequest) ([]Question, error)
}

type credentialSource interface {
	Next() (string, error)
	Size() int
}

// RetryOptions controls backoff between attempts of a single batch.
type RetryOptions struct {
	Backoff        time.Duration
	Jitter         time.Duration
	RequestTimeout time.Duration
}

// RetryingFetcher retries a batch with a fresh credential on every attempt so that one bad
// key cannot block a batch while a good key remains in the pool.
type RetryingFetcher struct {
	fetcher batchFetcher
	pool    credentialSource
	opts    RetryOptions
	logger  zerolog.Logger
}

// NewRetryingFetcher wraps a single-attempt fetcher.
func NewRetryingFetcher(fetcher batchFetcher, pool credentialSource, opts RetryOptions, logger zerolog.Logger) *RetryingFetcher {
	if opts.Backoff <= 0 {
		opts.Backoff = 400 * time.Millisecond
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 8 * time.Second
	}
	return &RetryingFetcher{
		fetcher: fetcher,
		pool:    pool,
		opts:    opts,
		logger:  logger.With().Str("component", "batch_retry").Logger(),
	}
}

// DefaultRetries gives every credential a chance even when the bad ones are adjacent in rotation.
func (r *RetryingFetcher) DefaultRetries() int {
	return r.pool.Size() + 1
}

// FetchWithRetry makes up to maxRetries+1 attempts and fails with ErrBatchExhausted after that.
func (r *RetryingFetcher) FetchWithRetry(ctx context.Context, req BatchRequest, maxRetries int) ([]Question, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	backoff := retry.NewConstant(r.opts.Backoff)
	if r.opts.Jitter > 0 {
		backoff = retry.WithJitter(r.opts.Jitter, backoff)
	}
	backoff = retry.WithMaxRetries(uint64(maxRetries), backoff)

	var (
		attempts int
		result   []Question
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		credential, err := r.pool.Next()
		if err != nil {
			return err
		}

		questions, err := r.attempt(ctx, credential, req)
		if err != nil {
			batchAttempts.WithLabelValues(outcomeLabel(err)).Inc()
			r.logger.Warn().
				Err(err).
				Str("batch_id", req.BatchID).
				Int("attempt", attempts).
				Msg("batch attempt failed")
			return retry.RetryableError(err)
		}

		batchAttempts.WithLabelValues("ok").Inc()
		result = questions
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoCredentials) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: batch %s after %d attempts: %w", ErrBatchExhausted, req.BatchID, attempts, err)
	}
	return result, nil
}

// attempt bounds one request by the overall timeout; exceeding it counts as a network failure.
func (r *RetryingFetcher) attempt(ctx context.Context, credential string, req BatchRequest) ([]Question, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
	defer cancel()

	questions, err := r.fetcher.FetchBatch(attemptCtx, credential, req)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, err
	}
	return questions, nil
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrBatchParse):
		return "parse_error"
	case errors.Is(err, ErrCredentialRejected):
		return "credential_rejected"
	default:
		return "network_error"
	}
}
