package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/cds-vanguard/internal/config"
	"github.com/gokatarajesh/cds-vanguard/internal/question"
	"github.com/gokatarajesh/cds-vanguard/internal/question/ai"
)

// Supply bundles the question pipeline so the API and the CLI build it the same way.
type Supply struct {
	Pool         *question.CredentialPool
	Generator    question.TextGenerator
	Orchestrator *question.Orchestrator
	Enricher     *question.Enricher
	Cache        *question.Cache
}

// NewGenerator picks the generative transport named by the config.
func NewGenerator(cfg config.Generator, logger zerolog.Logger) (question.TextGenerator, error) {
	aiCfg := ai.Config{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.RequestTimeout,
	}
	switch cfg.Provider {
	case "gemini", "":
		return ai.NewGemini(aiCfg, logger), nil
	case "openai":
		return ai.NewOpenAI(aiCfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q (want gemini or openai)", cfg.Provider)
	}
}

// NewSupply wires credential pool, fetchers, fallback and orchestrator.
// redisClient may be nil, in which case packs and briefs are not cached.
func NewSupply(cfg *config.App, redisClient *redis.Client, logger zerolog.Logger) (*Supply, error) {
	generator, err := NewGenerator(cfg.Generator, logger)
	if err != nil {
		return nil, err
	}

	pool := question.NewCredentialPool(cfg.Generator.APIKeys)
	if pool.Empty() {
		logger.Warn().Msg("no generator credentials configured; every pack will come from the offline bank")
	}

	fetcher := question.NewFetcher(generator, cfg.Generator.Temperature)
	retrying := question.NewRetryingFetcher(fetcher, pool, question.RetryOptions{
		Backoff:        cfg.Supply.Backoff,
		Jitter:         cfg.Supply.BackoffJitter,
		RequestTimeout: cfg.Generator.RequestTimeout,
	}, logger)
	fallback := question.NewFallbackProvider(cfg.Supply.FallbackCount)

	s := &Supply{Pool: pool, Generator: generator}

	var packs question.PackStore
	if redisClient != nil {
		s.Cache = question.NewCache(redisClient, cfg.Supply.PackCacheTTL)
		packs = s.Cache
	}

	s.Orchestrator = question.NewOrchestrator(retrying, pool, fallback, packs, question.SupplyOptions{
		DefaultCount:  cfg.Supply.DefaultQuestionCount,
		MaxCount:      cfg.Supply.MaxQuestionCount,
		BatchSize:     cfg.Supply.BatchSize,
		MaxBatches:    cfg.Supply.MaxBatches,
		Stagger:       cfg.Supply.Stagger,
		MaxRetries:    cfg.Supply.MaxRetries,
		WarnOnPartial: cfg.Supply.WarnOnPartial,
	}, logger)

	if s.Cache != nil {
		s.Enricher = question.NewEnricher(generator, pool, s.Cache, cfg.Generator.RequestTimeout, logger)
	} else {
		s.Enricher = question.NewEnricher(generator, pool, nil, cfg.Generator.RequestTimeout, logger)
	}
	return s, nil
}
