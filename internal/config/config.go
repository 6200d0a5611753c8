package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig      `envPrefix:"APP_"`
	Postgres PostgresConfig `envPrefix:"POSTGRES_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Logger   LoggerConfig   `envPrefix:"LOG_"`
	Auth     AuthConfig     `envPrefix:"AUTH_"`
	Cache    CacheConfig    `envPrefix:"CACHE_"`
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"NAME" envDefault:"helpdesk"`
	Env                   string `env:"ENV" envDefault:"development"`
	Host                  string `env:"HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"PORT" envDefault:"8080"`
	Version               string `env:"VERSION" envDefault:"dev"`
	RequestTimeoutSeconds int    `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN            string `env:"DSN"`
	MaxConns       int32  `env:"MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"MIN_CONNS" envDefault:"2"`
	RunMigrations  bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	ConnMaxIdleSec int32  `env:"CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"CONN_MAX_LIFE_SECONDS" envDefault:"300"`
}

// RedisConfig holds Redis connection values. An empty address disables caching.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LEVEL" envDefault:"info"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string `env:"JWT_SECRET" envDefault:"dev-secret"`
	AccessTokenTTLMinutes int    `env:"ACCESS_TOKEN_TTL_MINUTES" envDefault:"60"`
	BcryptCost            int    `env:"BCRYPT_COST" envDefault:"12"`
}

// CacheConfig tunes the dashboard statistics cache.
type CacheConfig struct {
	StatsTTLSeconds int `env:"STATS_TTL_SECONDS" envDefault:"30"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			return nil, fmt.Errorf("config: %w", aggErr.Errors[0])
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the bearer token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// StatsTTL returns how long dashboard statistics stay cached.
func (c CacheConfig) StatsTTL() time.Duration {
	return time.Duration(c.StatsTTLSeconds) * time.Second
}
