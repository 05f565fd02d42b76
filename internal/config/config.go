package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string  `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string  `env:"POSTGRES_DSN,required"`
	BotToken    string  `env:"BOT_TOKEN,required"`
	AdminIDs    []int64 `env:"ADMIN_IDS" envSeparator:","`

	LLMAPIKey      string        `env:"LLM_API_KEY,required"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMCallTimeout time.Duration `env:"LLM_CALL_TIMEOUT" envDefault:"60s"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"1"`

	// Batching budgets. TokenBudget leaves room for the instruction prompt;
	// MaxMessageTokens is the hard cap above which a single message is
	// skipped instead of sent alone.
	TokenBudget        int `env:"TOKEN_BUDGET" envDefault:"3000"`
	MessageCountBudget int `env:"MESSAGE_COUNT_BUDGET" envDefault:"50"`
	MaxMessageTokens   int `env:"MAX_MESSAGE_TOKENS" envDefault:"8000"`

	CustomerKeywords []string `env:"CUSTOMER_KEYWORDS" envSeparator:"," envDefault:"looking for,need help with,does anyone know,recommendation,suggest,problem with,issue with,frustrated with,solution for"`

	MaxRetries  int           `env:"MAX_RETRIES" envDefault:"3"`
	BackoffBase time.Duration `env:"BACKOFF_BASE" envDefault:"500ms"`

	// Scoring policy. The frequency bonus rewards repeated signal on top of
	// the peak intent score; combined score stays bounded in [0,1].
	HighTierScoreThreshold     float64 `env:"HIGH_TIER_SCORE" envDefault:"0.8"`
	HighTierMessageThreshold   int     `env:"HIGH_TIER_MESSAGES" envDefault:"5"`
	MediumTierScoreThreshold   float64 `env:"MEDIUM_TIER_SCORE" envDefault:"0.6"`
	MediumTierMessageThreshold int     `env:"MEDIUM_TIER_MESSAGES" envDefault:"3"`
	FrequencyBonus             float64 `env:"FREQUENCY_BONUS" envDefault:"0.05"`
	FrequencyBonusCap          float64 `env:"FREQUENCY_BONUS_CAP" envDefault:"0.15"`

	AnalyzeDefaultWindow time.Duration `env:"ANALYZE_DEFAULT_WINDOW" envDefault:"720h"`
	AnalyzeDefaultLimit  int           `env:"ANALYZE_DEFAULT_LIMIT" envDefault:"1000"`

	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"15m"`
	WorkerMinBacklog   int           `env:"WORKER_MIN_BACKLOG" envDefault:"20"`

	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
