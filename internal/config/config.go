package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"cds-vanguard"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres  Postgres
	Redis     Redis
	Security  Security
	Generator Generator
	Supply    Supply
	Exam      Exam
	Quota     Quota
	Standings Standings
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Redis holds cache + quota configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing guest tokens.
type Security struct {
	JWTSecret string        `env:"JWT_SECRET,notEmpty"`
	TokenTTL  time.Duration `env:"JWT_TOKEN_TTL" envDefault:"12h"`
}

// Generator configures the generative question service.
// APIKeys is kept raw; the credential pool splits and trims it so an empty value is a legal state.
type Generator struct {
	Provider       string        `env:"GENERATOR_PROVIDER" envDefault:"gemini"`
	APIKeys        string        `env:"GENERATOR_API_KEYS" envDefault:""`
	BaseURL        string        `env:"GENERATOR_BASE_URL" envDefault:""`
	Model          string        `env:"GENERATOR_MODEL" envDefault:""`
	RequestTimeout time.Duration `env:"GENERATOR_REQUEST_TIMEOUT" envDefault:"8s"`
	Temperature    float32       `env:"GENERATOR_TEMPERATURE" envDefault:"0.5"`
}

// Supply tunes the batched question pipeline.
type Supply struct {
	DefaultQuestionCount int           `env:"DEFAULT_QUESTION_COUNT" envDefault:"10"`
	MaxQuestionCount     int           `env:"MAX_QUESTION_COUNT" envDefault:"30"`
	BatchSize            int           `env:"SUPPLY_BATCH_SIZE" envDefault:"4"`
	MaxBatches           int           `env:"SUPPLY_MAX_BATCHES" envDefault:"5"`
	Stagger              time.Duration `env:"SUPPLY_STAGGER" envDefault:"250ms"`
	MaxRetries           int           `env:"SUPPLY_MAX_RETRIES" envDefault:"0"`
	Backoff              time.Duration `env:"SUPPLY_BACKOFF" envDefault:"400ms"`
	BackoffJitter        time.Duration `env:"SUPPLY_BACKOFF_JITTER" envDefault:"200ms"`
	WarnOnPartial        bool          `env:"SUPPLY_WARN_PARTIAL" envDefault:"true"`
	FallbackCount        int           `env:"SUPPLY_FALLBACK_COUNT" envDefault:"10"`
	PackCacheTTL         time.Duration `env:"SUPPLY_PACK_CACHE_TTL" envDefault:"30m"`
	PrefetchQueueSize    int           `env:"SUPPLY_PREFETCH_QUEUE" envDefault:"16"`
	PrefetchTimeout      time.Duration `env:"SUPPLY_PREFETCH_TIMEOUT" envDefault:"20s"`
}

// Exam groups session timing defaults.
type Exam struct {
	TickInterval         time.Duration `env:"EXAM_TICK_INTERVAL" envDefault:"1s"`
	ResetTimerOnRevisit  bool          `env:"EXAM_RESET_TIMER_ON_REVISIT" envDefault:"false"`
	StandardSeconds      int           `env:"EXAM_STANDARD_SECONDS" envDefault:"45"`
	ComprehensionSeconds int           `env:"EXAM_COMPREHENSION_SECONDS" envDefault:"90"`
	QuantitativeSeconds  int           `env:"EXAM_QUANTITATIVE_SECONDS" envDefault:"120"`
	ResultTTL            time.Duration `env:"EXAM_RESULT_TTL" envDefault:"24h"`
	IdleTimeout          time.Duration `env:"EXAM_IDLE_TIMEOUT" envDefault:"2h"`
	ReapInterval         time.Duration `env:"EXAM_REAP_INTERVAL" envDefault:"1m"`
}

// Quota governs the daily usage allowance.
type Quota struct {
	Daily int `env:"QUOTA_DAILY" envDefault:"500"`
}

// Standings sizes the per-topic boards.
type Standings struct {
	TopN     int           `env:"STANDINGS_TOP_N" envDefault:"50"`
	DailyTTL time.Duration `env:"STANDINGS_DAILY_TTL" envDefault:"48h"`
}

// LoadSupply parses only the groups the question pipeline needs, for tools that run
// without Postgres, Redis or token signing.
func LoadSupply() (*App, error) {
	var base struct {
		Name string `env:"APP_NAME" envDefault:"cds-vanguard"`
		Env  string `env:"APP_ENV" envDefault:"development"`
	}
	if err := env.Parse(&base); err != nil {
		return nil, fmt.Errorf("parse app config: %w", err)
	}
	cfg := &App{Name: base.Name, Env: base.Env}
	for _, group := range []any{&cfg.Generator, &cfg.Supply, &cfg.Exam} {
		if err := env.Parse(group); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	return cfg, nil
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
