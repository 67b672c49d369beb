package server

import (
	"time"

	"github.com/Tyrowin/roomchat/internal/config"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Options are the transport settings of a Hub.
type Options struct {
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig
	SendBufferSize int
}

// OptionsFrom maps the loaded configuration onto hub options.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		AllowedOrigins: cfg.Origins(),
		MaxMessageSize: cfg.MaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          cfg.RateLimitBurst,
			RefillInterval: cfg.RefillInterval(),
		},
		SendBufferSize: cfg.SendBufferSize,
	}
}

func (o Options) sanitize() Options {
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 4096
	}
	if o.RateLimit.Burst <= 0 {
		o.RateLimit.Burst = 5
	}
	if o.RateLimit.RefillInterval <= 0 {
		o.RateLimit.RefillInterval = time.Second
	}
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = 256
	}
	o.AllowedOrigins = append([]string(nil), o.AllowedOrigins...)
	return o
}
