package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. LAUNCHPAD_RPC.
const EnvPrefix = "LAUNCHPAD"

// ChainConfig selects the network and contract deployment a command talks to.
type ChainConfig struct {
	NetworkFile string
	ChainID     uint64
	RPCURL      string
	Factory     string
	Airdropper  string
	USDC        string
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error; variables already set win.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// newViper merges defaults, environment, the config file and bound flags.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("network-file", "./data/network.json")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("launchpad")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadChain(v *viper.Viper) ChainConfig {
	return ChainConfig{
		NetworkFile: v.GetString("network-file"),
		ChainID:     v.GetUint64("chain-id"),
		RPCURL:      v.GetString("rpc"),
		Factory:     v.GetString("factory"),
		Airdropper:  v.GetString("airdropper"),
		USDC:        v.GetString("usdc"),
	}
}

// LoadChain loads only the network selection settings.
func LoadChain(cfgFile string, flags *pflag.FlagSet) (ChainConfig, string, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return ChainConfig{}, "", err
	}
	return loadChain(v), v.GetString("log-level"), nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
