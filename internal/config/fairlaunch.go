package config

import "github.com/spf13/pflag"

// FairLaunchConfig holds configuration shared by the fairlaunch subcommands.
// Amounts are human decimal strings in the raise currency or token units.
type FairLaunchConfig struct {
	Chain            ChainConfig
	Pool             string
	Account          string
	Amount           string
	Token            string
	Currency         string
	TokensForSale    string
	SoftCap          string
	HardCap          string
	MaxContribution  string
	StartTime        string
	EndTime          string
	LiquidityPercent uint64
	LockDuration     uint64
	WhitelistFile    string
	CreationFee      string
	LogLevel         string
}

// LoadFairLaunch merges config file, environment variables, and flags into FairLaunchConfig.
func LoadFairLaunch(cfgFile string, flags *pflag.FlagSet) (FairLaunchConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"currency":          "ZIL",
		"liquidity-percent": uint64(60),
		"creation-fee":      "0",
	})
	if err != nil {
		return FairLaunchConfig{}, err
	}

	return FairLaunchConfig{
		Chain:            loadChain(v),
		Pool:             v.GetString("pool"),
		Account:          v.GetString("account"),
		Amount:           v.GetString("amount"),
		Token:            v.GetString("token"),
		Currency:         v.GetString("currency"),
		TokensForSale:    v.GetString("tokens-for-sale"),
		SoftCap:          v.GetString("soft-cap"),
		HardCap:          v.GetString("hard-cap"),
		MaxContribution:  v.GetString("max-contribution"),
		StartTime:        v.GetString("start"),
		EndTime:          v.GetString("end"),
		LiquidityPercent: v.GetUint64("liquidity-percent"),
		LockDuration:     v.GetUint64("lock-duration"),
		WhitelistFile:    v.GetString("whitelist"),
		CreationFee:      v.GetString("creation-fee"),
		LogLevel:         v.GetString("log-level"),
	}, nil
}
