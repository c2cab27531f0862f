package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env string `validate:"required,oneof=development stage production"`

	API API `validate:"required"`

	Metrics Metrics `validate:"required"`

	// StateDir держит durable-состояние клиента (токен, избранное).
	// Пустое значение означает каталог по умолчанию пользователя.
	StateDir string
}

type API struct {
	Origin  string        `validate:"required,url"`
	Timeout time.Duration `validate:"gt=0"`
}

type Metrics struct {
	Host string `validate:"required,hostname|ip"`
	Port string `validate:"required"`
}

func New() Config {
	return Config{
		Env: env("ENV", "development"),

		API: API{
			Origin:  strings.TrimRight(env("API_ORIGIN", "http://localhost:5001/api"), "/"),
			Timeout: envDuration("API_TIMEOUT", 10*time.Second),
		},

		Metrics: Metrics{
			Host: env("METRICS_HOST", "localhost"),
			Port: env("METRICS_PORT", "9090"),
		},

		StateDir: env("STATE_DIR", ""),
	}
}

func (c Config) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

func env(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if len(fallback) == 0 {
		return ""
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}
