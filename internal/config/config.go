package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`

	PredictURL      string        `mapstructure:"predict_url"`
	PredictTimeout  time.Duration `mapstructure:"predict_timeout"`
	PredictAttempts int           `mapstructure:"predict_attempts"`

	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	CacheCapacity      int           `mapstructure:"cache_capacity"`
	CacheSweepInterval time.Duration `mapstructure:"cache_sweep_interval"`

	RedisAddress string `mapstructure:"redis_address"`
	DisableRedis bool   `mapstructure:"disable_redis"`

	DatabaseURL string `mapstructure:"database_url"`

	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	UnreachablePolicy string `mapstructure:"unreachable_policy"`
	FetchConcurrency  int    `mapstructure:"fetch_concurrency"`
}

var keys = []string{
	"listen_addr",
	"predict_url", "predict_timeout", "predict_attempts",
	"cache_ttl", "cache_capacity", "cache_sweep_interval",
	"redis_address", "disable_redis",
	"database_url",
	"jwt_secret", "token_ttl",
	"unreachable_policy", "fetch_concurrency",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("predict_url", "https://aegis-api-sszj.onrender.com/predict")
	v.SetDefault("predict_timeout", 10*time.Second)
	v.SetDefault("predict_attempts", 1)
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("cache_capacity", 10000)
	v.SetDefault("cache_sweep_interval", time.Minute)
	v.SetDefault("redis_address", "localhost:6379")
	v.SetDefault("disable_redis", true)
	v.SetDefault("database_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 7*24*time.Hour)
	v.SetDefault("unreachable_policy", "error")
	v.SetDefault("fetch_concurrency", 8)
}

// Load reads .env (if present) into the environment, then an optional
// aegis.yaml from dir, with environment variables taking precedence.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("aegis")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Both upper and lower case variable names are accepted.
	for _, k := range keys {
		if err := v.BindEnv(k, strings.ToUpper(k), k); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.PredictURL == "" {
		return &Error{Field: "predict_url", Message: "must be set"}
	}
	if c.PredictAttempts < 1 {
		return &Error{Field: "predict_attempts", Message: "must be at least 1"}
	}
	if c.CacheTTL <= 0 {
		return &Error{Field: "cache_ttl", Message: "must be positive"}
	}
	if c.CacheCapacity < 0 {
		return &Error{Field: "cache_capacity", Message: "must not be negative"}
	}
	if c.FetchConcurrency < 1 {
		return &Error{Field: "fetch_concurrency", Message: "must be at least 1"}
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return &Error{Field: "jwt_secret", Message: "must be at least 32 characters"}
	}
	return nil
}

type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}
