package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/cds-vanguard/internal/config"
	"github.com/gokatarajesh/cds-vanguard/internal/logging"
)

// WSUpgrader handles WebSocket upgrades.
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the configured frontend origin once one exists.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Routes are mounted by the feature packages. Any field may be nil.
type Routes struct {
	// Auth routes are public so tokens can be issued to anonymous callers.
	Auth func(mux *http.ServeMux)
	// API receives a wrapper that authenticates and requires claims.
	API func(mux *http.ServeMux, wrap func(http.Handler) http.Handler)
	// Authenticate injects claims when a token is present.
	Authenticate func(http.Handler) http.Handler
	// RequireAuth rejects requests without claims.
	RequireAuth func(http.Handler) http.Handler
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

// NewHTTPServer wires base routes (health, metrics, ping) and the feature routes.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redisClient *redis.Client, routes Routes) *http.Server {
	var deps []Pinger
	if pool != nil {
		deps = append(deps, pool)
	}
	if redisClient != nil {
		deps = append(deps, redisPinger{client: redisClient})
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewMux(logger, deps, routes),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewMux builds the router. Every request carries a logger in its context.
func NewMux(logger zerolog.Logger, deps []Pinger, routes Routes) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pingDependencies(ctx, deps); err != nil {
			log := logging.FromContext(ctx)
			log.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if routes.Auth != nil {
		routes.Auth(mux)
	}

	if routes.API != nil {
		authenticate := routes.Authenticate
		if authenticate == nil {
			authenticate = passthrough
		}
		requireAuth := routes.RequireAuth
		if requireAuth == nil {
			requireAuth = passthrough
		}
		routes.API(mux, func(h http.Handler) http.Handler {
			return authenticate(requireAuth(h))
		})
	}

	return withLogger(logger, mux)
}

func withLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
		next.ServeHTTP(w, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))
	})
}

func passthrough(h http.Handler) http.Handler { return h }

func pingDependencies(ctx context.Context, deps []Pinger) error {
	for _, dep := range deps {
		if err := dep.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
