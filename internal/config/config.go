package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string   `yaml:"env" env:"APP_ENV" env-default:"local"`
	Postgres Postgres `yaml:"postgres"`
	Server   Server   `yaml:"server"`
	GitHub   GitHub   `yaml:"github"`
	LLM      LLM      `yaml:"llm"`
	Analysis Analysis `yaml:"analysis"`
	Jobs     Jobs     `yaml:"jobs"`
}

type Postgres struct {
	Username        string        `yaml:"username" env:"POSTGRES_USER" env-required:"true"`
	Password        string        `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	Host            string        `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port            string        `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	Database        string        `yaml:"database" env:"POSTGRES_DB" env-required:"true"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"50"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"10"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"5m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env-default:"1m"`
}

type Server struct {
	Host    string        `yaml:"host" env-default:"localhost"`
	Port    string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

// Retry is a fixed-delay retry policy.
type Retry struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
}

type GitHub struct {
	APIURL    string        `yaml:"api_url" env:"GITHUB_API_URL" env-default:"https://api.github.com"`
	Host      string        `yaml:"host" env-default:"github.com"`
	Token     string        `yaml:"token" env:"GITHUB_TOKEN"`
	State     string        `yaml:"state" env-default:"all"`
	PageDelay time.Duration `yaml:"page_delay" env-default:"1s"`
	Timeout   time.Duration `yaml:"timeout" env-default:"120s"`
	Retry     Retry         `yaml:"retry"`
}

type LLM struct {
	URL     string        `yaml:"url" env:"LLM_URL" env-default:"http://vllm:8000/v1/chat/completions"`
	Model   string        `yaml:"model" env:"LLM_MODEL" env-default:"Qwen/Qwen2.5-Coder-1.5B-Instruct-AWQ"`
	APIKey  string        `yaml:"api_key" env:"LLM_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env-default:"120s"`
	Retry   Retry         `yaml:"retry"`
}

type Analysis struct {
	MaxCodeChars   int      `yaml:"max_code_chars" env-default:"32000"`
	PromptsDir     string   `yaml:"prompts_dir" env:"PROMPTS_DIR"`
	CIPaths        []string `yaml:"ci_paths" env-default:".github/workflows/,.gitlab-ci.yml,.circleci/,.travis.yml,Jenkinsfile,azure-pipelines.yml"`
	AggregateRetry Retry    `yaml:"aggregate_retry"`
}

type Jobs struct {
	Store   string `yaml:"store" env:"JOBS_STORE" env-default:"memory"`
	Workers int    `yaml:"workers" env-default:"4"`
}

const (
	JobStoreMemory   = "memory"
	JobStorePostgres = "postgres"
)

func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		return nil, errors.New("CONFIG_PATH is not set")
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file does not exist: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	cfg.applyRetryDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}

	return cfg
}

// applyRetryDefaults fills the per-component retry settings: hosting calls retry
// 3 times every 5s, analysis calls 3 times every 2s, aggregation 3 times every 5s.
func (c *Config) applyRetryDefaults() {
	c.GitHub.Retry = c.GitHub.Retry.withDefaults(3, 5*time.Second)
	c.LLM.Retry = c.LLM.Retry.withDefaults(3, 2*time.Second)
	c.Analysis.AggregateRetry = c.Analysis.AggregateRetry.withDefaults(3, 5*time.Second)
}

func (r Retry) withDefaults(attempts int, delay time.Duration) Retry {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = attempts
	}

	if r.Delay <= 0 {
		r.Delay = delay
	}

	return r
}

func (c *Config) validate() error {
	switch c.Jobs.Store {
	case JobStoreMemory, JobStorePostgres:
	default:
		return fmt.Errorf("unknown jobs.store %q", c.Jobs.Store)
	}

	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs.workers must be positive, got %d", c.Jobs.Workers)
	}

	if c.Analysis.MaxCodeChars <= 0 {
		return fmt.Errorf("analysis.max_code_chars must be positive, got %d", c.Analysis.MaxCodeChars)
	}

	return nil
}

// PostgresURL builds the connection URL shared by the server and the migrator.
func (p Postgres) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		p.Username, p.Password, p.Host, p.Port, p.Database,
	)
}
