// Package config loads the runtime settings of the chat server from the
// environment, applies defaults to unset or non-positive values and
// validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

const (
	defaultPort            = ":8080"
	defaultOrigin          = "http://localhost:8080"
	defaultMaxMessageSize  = 4096
	defaultBurst           = 5
	defaultRefillSeconds   = 1
	defaultSendBuffer      = 256
	defaultShutdownSeconds = 10
	defaultBadgerPath      = "data/badger"
	defaultLogLevel        = "INFO"
)

// Config holds the server configuration. Durations are whole seconds in the
// environment.
type Config struct {
	Port                   string `env:"SERVER_PORT"`
	AllowedOrigins         string `env:"ALLOWED_ORIGINS"`
	MaxMessageSize         int64  `env:"MAX_MESSAGE_SIZE"`
	RateLimitBurst         int    `env:"RATE_LIMIT_BURST"`
	RateLimitRefillSeconds int    `env:"RATE_LIMIT_REFILL_INTERVAL"`
	SendBufferSize         int    `env:"SEND_BUFFER_SIZE"`
	ShutdownTimeoutSeconds int    `env:"SHUTDOWN_TIMEOUT"`

	JWTSecret string `env:"JWT_SECRET" validate:"required,min=16"`

	StoreDriver           string `env:"STORE_DRIVER" validate:"oneof=memory badger postgres"`
	DatabaseDSN           string `env:"DATABASE_DSN" validate:"required_if=StoreDriver postgres"`
	BadgerPath            string `env:"BADGER_PATH"`
	ResetReceiptsOnRejoin bool   `env:"RECEIPTS_RESET_ON_REJOIN"`

	LogLevel string `env:"LOG_LEVEL" validate:"oneof=DEBUG INFO WARN ERROR"`
}

var validate = newValidator()

// newValidator reports fields by their environment variable name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("env"), ",")
		return name
	})
	return v
}

// Default returns a Config populated with the default value of every setting.
// JWTSecret has no default.
func Default() Config {
	return Config{
		Port:                   defaultPort,
		AllowedOrigins:         defaultOrigin,
		MaxMessageSize:         defaultMaxMessageSize,
		RateLimitBurst:         defaultBurst,
		RateLimitRefillSeconds: defaultRefillSeconds,
		SendBufferSize:         defaultSendBuffer,
		ShutdownTimeoutSeconds: defaultShutdownSeconds,
		StoreDriver:            DriverMemory,
		BadgerPath:             defaultBadgerPath,
		LogLevel:               defaultLogLevel,
	}
}

// Load reads the given .env files (".env" when none is given; missing files
// are skipped), overlays the process environment on the defaults and
// validates the result.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	cfg = cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Sanitize replaces empty or non-positive values with their defaults and
// normalizes enumerations.
func (c Config) Sanitize() Config {
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = defaultBurst
	}
	if c.RateLimitRefillSeconds <= 0 {
		c.RateLimitRefillSeconds = defaultRefillSeconds
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = defaultSendBuffer
	}
	if c.ShutdownTimeoutSeconds <= 0 {
		c.ShutdownTimeoutSeconds = defaultShutdownSeconds
	}
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	if c.StoreDriver == "" {
		c.StoreDriver = DriverMemory
	}
	if c.BadgerPath == "" {
		c.BadgerPath = defaultBadgerPath
	}
	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	return c
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config error: %w", err)
	}
	fe := verrs[0]
	return fmt.Errorf("config error: %s fails %q", fe.Field(), fe.Tag())
}

// Origins splits AllowedOrigins on commas. Blank entries are dropped.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c Config) RefillInterval() time.Duration {
	return time.Duration(c.RateLimitRefillSeconds) * time.Second
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}
