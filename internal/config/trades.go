package config

import (
	"time"

	"github.com/spf13/pflag"
)

// TradesConfig holds configuration for the trades command.
type TradesConfig struct {
	Chain        ChainConfig
	Pool         string
	WindowBlocks uint64
	BatchSize    uint64
	Limit        int
	Out          string
	Watch        bool
	PollInterval time.Duration
	MaxRetries   uint
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadTrades merges config file, environment variables, and flags into TradesConfig.
func LoadTrades(cfgFile string, flags *pflag.FlagSet) (TradesConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"window-blocks": uint64(5000),
		"batch-size":    uint64(1000),
		"limit":         50,
		"poll-interval": 5 * time.Second,
		"max-retries":   3,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return TradesConfig{}, err
	}

	return TradesConfig{
		Chain:        loadChain(v),
		Pool:         v.GetString("pool"),
		WindowBlocks: v.GetUint64("window-blocks"),
		BatchSize:    v.GetUint64("batch-size"),
		Limit:        v.GetInt("limit"),
		Out:          v.GetString("out"),
		Watch:        v.GetBool("watch"),
		PollInterval: v.GetDuration("poll-interval"),
		MaxRetries:   v.GetUint("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}

// DecodeConfig holds configuration for offline decoding of raw log files.
type DecodeConfig struct {
	In       string
	Out      string
	Errors   string
	LogLevel string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":    "./data/trades.jsonl",
		"errors": "./data/decode_errors.jsonl",
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	return DecodeConfig{
		In:       v.GetString("in"),
		Out:      v.GetString("out"),
		Errors:   v.GetString("errors"),
		LogLevel: v.GetString("log-level"),
	}, nil
}
