package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/cds-vanguard/internal/auth"
	"github.com/gokatarajesh/cds-vanguard/internal/auth/jwt"
	"github.com/gokatarajesh/cds-vanguard/internal/config"
	"github.com/gokatarajesh/cds-vanguard/internal/db/queries"
	"github.com/gokatarajesh/cds-vanguard/internal/db/repository"
	"github.com/gokatarajesh/cds-vanguard/internal/exam"
	"github.com/gokatarajesh/cds-vanguard/internal/logging"
	"github.com/gokatarajesh/cds-vanguard/internal/question"
	"github.com/gokatarajesh/cds-vanguard/internal/quota"
	"github.com/gokatarajesh/cds-vanguard/internal/server"
	"github.com/gokatarajesh/cds-vanguard/internal/standings"
	ws "github.com/gokatarajesh/cds-vanguard/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	exams    *exam.Service
	prefetch *question.FetcherWorker
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	supply, err := NewSupply(cfg, redisClient, logger)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}
	logger.Info().
		Str("provider", cfg.Generator.Provider).
		Int("credentials", supply.Pool.Size()).
		Msg("question supply initialized")

	attempts := repository.NewAttemptRepository(queries.New(pool))
	quotaStore := quota.NewStore(redisClient, cfg.Quota.Daily)
	results := exam.NewStateManager(redisClient, cfg.Exam.ResultTTL, logger)
	hub := ws.NewHub(logger)
	boards := standings.NewService(redisClient, logger, standings.ServiceOptions{
		TopN:     cfg.Standings.TopN,
		DailyTTL: cfg.Standings.DailyTTL,
	})

	exams := exam.NewService(exam.Deps{
		Supply:    supply.Orchestrator,
		Enricher:  supply.Enricher,
		Quota:     quotaStore,
		Results:   results,
		Attempts:  attempts,
		Standings: boards,
		Notifier:  exam.NewHubNotifier(hub, logger),
	}, exam.ServiceOptions{
		Session: exam.SessionOptions{
			TickInterval:        cfg.Exam.TickInterval,
			ResetTimerOnRevisit: cfg.Exam.ResetTimerOnRevisit,
			Budgets: exam.Budgets{
				Standard:      cfg.Exam.StandardSeconds,
				Comprehension: cfg.Exam.ComprehensionSeconds,
				Quantitative:  cfg.Exam.QuantitativeSeconds,
			},
		},
		DefaultCount: cfg.Supply.DefaultQuestionCount,
		MaxCount:     cfg.Supply.MaxQuestionCount,
		IdleTimeout:  cfg.Exam.IdleTimeout,
	}, logger)

	prefetchC := make(chan question.PrefetchRequest, cfg.Supply.PrefetchQueueSize)
	prefetch := question.NewFetcherWorker(supply.Orchestrator, prefetchC, logger, cfg.Supply.PrefetchTimeout)

	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		TTL:    cfg.Security.TokenTTL,
		Issuer: cfg.Name,
	})
	authHandlers := auth.NewHTTPHandlers(tokens, int(tokens.TTL().Seconds()), logger)
	examHandlers := exam.NewHTTPHandlers(exams, quotaStore, attempts, prefetchC, logger)
	examWS := exam.NewWSHandler(exams, hub, &server.WSUpgrader, logger)
	standingsHandler := standings.NewHTTPHandler(boards, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, server.Routes{
		Auth: func(mux *http.ServeMux) {
			mux.HandleFunc("POST /v1/auth/guest", authHandlers.CreateGuest)
		},
		API: func(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
			examHandlers.Register(mux, wrap)
			mux.Handle("GET /ws/sessions/{id}", wrap(http.HandlerFunc(examWS.HandleWebSocket)))
			mux.Handle("GET /v1/standings/{topic}", wrap(http.HandlerFunc(standingsHandler.HandleGet)))
		},
		Authenticate: auth.Middleware(tokens, logger),
		RequireAuth:  auth.RequireAuth,
	})

	return &Application{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		redis:    redisClient,
		http:     apiServer,
		exams:    exams,
		prefetch: prefetch,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.prefetch.Run()

	reapCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go func() {
		_ = a.exams.RunIdleReaper(reapCtx, a.cfg.Exam.ReapInterval)
	}()

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.prefetch.Stop()
	stopReaper()
	a.exams.Shutdown()

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}
