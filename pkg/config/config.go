// Package config provides configuration management for the favaopt CLI.
// It loads configuration from environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	LedgerFile   string `env:"LEDGER_FILE" validate:"required"`
	DBPath       string `env:"FAVAOPT_DB_PATH"`
	Format       string `env:"FAVAOPT_FORMAT" validate:"oneof=yaml json"`
	HistoryLimit int    `env:"FAVAOPT_HISTORY_LIMIT" validate:"gte=1,lte=1000"`
	Debug        bool   `env:"DEBUG"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their environment variable name.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("env"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	limit, err := parseIntEnv("FAVAOPT_HISTORY_LIMIT", 20)
	if err != nil {
		return nil, err
	}

	return &Config{
		LedgerFile:   os.Getenv("LEDGER_FILE"),
		DBPath:       os.Getenv("FAVAOPT_DB_PATH"),
		Format:       getEnvOrDefault("FAVAOPT_FORMAT", "yaml"),
		HistoryLimit: limit,
		Debug:        os.Getenv("DEBUG") == "true",
	}, nil
}

// Validate validates the configuration. The ledger file is only required
// when requireLedger is set.
func (c *Config) Validate(requireLedger bool) error {
	var err error
	if requireLedger {
		err = validate.Struct(c)
	} else {
		err = validate.StructExcept(c, "LedgerFile")
	}
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate configuration: %w", err)
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s=%v (%s)", fe.Field(), fe.Value(), describe(fe)))
	}

	var msgs []string
	if len(missing) > 0 {
		msgs = append(msgs, fmt.Sprintf("missing required configuration: %v", missing))
	}
	if len(invalid) > 0 {
		msgs = append(msgs, fmt.Sprintf("invalid configuration: %s", strings.Join(invalid, ", ")))
	}
	return fmt.Errorf("%s\nPlease check your .env file or environment variables", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	}
	return fe.Tag()
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an int from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}
