package config

import "github.com/spf13/pflag"

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	Chain       ChainConfig
	Pool        string
	Amount      string
	SlippageBps uint64
	Calldata    bool
	LogLevel    string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"slippage-bps": uint64(100),
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	return QuoteConfig{
		Chain:       loadChain(v),
		Pool:        v.GetString("pool"),
		Amount:      v.GetString("amount"),
		SlippageBps: v.GetUint64("slippage-bps"),
		Calldata:    v.GetBool("calldata"),
		LogLevel:    v.GetString("log-level"),
	}, nil
}
