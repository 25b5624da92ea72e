package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"launchpad/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "launchpad",
		Short:        "Token launchpad economics engine for Zilliqa EVM",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return config.LoadDotEnv(envFile)
		},
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before config (ignored if missing)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newQuoteCmd())
	root.AddCommand(newTradesCmd())
	root.AddCommand(newFairLaunchCmd())
	root.AddCommand(newNetworkCmd())
	root.AddCommand(newTxCmd())
	root.AddCommand(newAirdropCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// addChainFlags registers the network selection flags every chain-facing command shares.
func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64("chain-id", 0, "chain id (0 uses the persisted selection)")
	cmd.Flags().String("rpc", "", "RPC URL override")
	cmd.Flags().String("network-file", "./data/network.json", "persisted network selection")
	cmd.Flags().String("factory", "", "token factory address override")
	cmd.Flags().String("airdropper", "", "airdropper address override")
	cmd.Flags().String("usdc", "", "USDC token address override")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func configFile(cmd *cobra.Command) string {
	cfgFile, _ := cmd.Flags().GetString("config")
	return cfgFile
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

const rpcTimeout = 30 * time.Second
