package config

import (
	"time"

	"github.com/spf13/pflag"
)

// ServeConfig holds configuration for the serve command.
type ServeConfig struct {
	Chain          ChainConfig
	Listen         string
	PublicURL      string
	AllowedOrigins []string
	MaxImageBytes  int64
	PGDSN          string
	UseMemory      bool
	Pools          []string
	PollInterval   time.Duration
	WindowBlocks   uint64
	BatchSize      uint64
	MaxRetries     uint
	RetryBackoff   time.Duration
	TradesOut      string
	LogLevel       string
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"listen":          ":8080",
		"public-url":      "http://localhost:8080",
		"max-image-bytes": int64(2 << 20),
		"poll-interval":   5 * time.Second,
		"window-blocks":   uint64(5000),
		"batch-size":      uint64(1000),
		"max-retries":     3,
		"retry-backoff":   500 * time.Millisecond,
	})
	if err != nil {
		return ServeConfig{}, err
	}

	return ServeConfig{
		Chain:          loadChain(v),
		Listen:         v.GetString("listen"),
		PublicURL:      v.GetString("public-url"),
		AllowedOrigins: getStringSlice(v, "allowed-origins"),
		MaxImageBytes:  v.GetInt64("max-image-bytes"),
		PGDSN:          v.GetString("pg-dsn"),
		UseMemory:      v.GetBool("use-memory"),
		Pools:          getStringSlice(v, "pool"),
		PollInterval:   v.GetDuration("poll-interval"),
		WindowBlocks:   v.GetUint64("window-blocks"),
		BatchSize:      v.GetUint64("batch-size"),
		MaxRetries:     v.GetUint("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		TradesOut:      v.GetString("trades-out"),
		LogLevel:       v.GetString("log-level"),
	}, nil
}
