package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpad/internal/chain"
	"launchpad/internal/config"
	"launchpad/internal/network"
)

func newNetworkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Show or change the selected network",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the selected network",
		RunE:  runNetworkShow,
	}
	addChainFlags(showCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List known networks",
		RunE:  runNetworkList,
	}
	addChainFlags(listCmd)

	selectCmd := &cobra.Command{
		Use:   "select <chain-id>",
		Short: "Select and persist a network",
		Args:  cobra.ExactArgs(1),
		RunE:  runNetworkSelect,
	}
	addChainFlags(selectCmd)

	cmd.AddCommand(showCmd, listCmd, selectCmd)
	return cmd
}

// openNetwork restores the persisted selection, applies --chain-id and the
// address overrides, and returns the network to use.
func openNetwork(cfg config.ChainConfig, logger *zap.Logger) (*network.Context, network.Network, error) {
	netCtx, err := network.NewContext(cfg.NetworkFile, network.Known(), network.MainnetChainID, logger)
	if err != nil {
		return nil, network.Network{}, err
	}
	if err := netCtx.Init(); err != nil {
		return nil, network.Network{}, err
	}
	if cfg.ChainID != 0 {
		if _, err := netCtx.Select(cfg.ChainID); err != nil {
			return nil, network.Network{}, err
		}
	}

	net := netCtx.Current()
	if cfg.RPCURL != "" {
		net.RPCURL = cfg.RPCURL
	}
	overrides := []struct {
		name  string
		value string
		dst   *common.Address
	}{
		{"factory", cfg.Factory, &net.Contracts.Factory},
		{"airdropper", cfg.Airdropper, &net.Contracts.Airdropper},
		{"usdc", cfg.USDC, &net.Contracts.USDC},
	}
	for _, o := range overrides {
		if o.value == "" {
			continue
		}
		if !common.IsHexAddress(o.value) {
			return nil, network.Network{}, fmt.Errorf("invalid %s address: %s", o.name, o.value)
		}
		*o.dst = common.HexToAddress(o.value)
	}
	return netCtx, net, nil
}

// dialNetwork connects to the selected network and checks the node serves
// the expected chain.
func dialNetwork(ctx context.Context, net network.Network, logger *zap.Logger) (*chain.Client, error) {
	client, err := chain.NewClient(ctx, net.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if chainID != net.ChainID {
		client.Close()
		return nil, fmt.Errorf("rpc %s serves chain %d, expected %d", net.RPCURL, chainID, net.ChainID)
	}
	logger.Debug("rpc connected", zap.String("network", net.Name), zap.Uint64("chain_id", chainID))
	return client, nil
}

func loadNetworkCmd(cmd *cobra.Command) (config.ChainConfig, *zap.Logger, error) {
	cfg, level, err := config.LoadChain(configFile(cmd), cmd.Flags())
	if err != nil {
		return config.ChainConfig{}, nil, err
	}
	logger, err := newLogger(level)
	if err != nil {
		return config.ChainConfig{}, nil, err
	}
	return cfg, logger, nil
}

func runNetworkShow(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadNetworkCmd(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	_, net, err := openNetwork(cfg, logger)
	if err != nil {
		return err
	}
	return printJSON(net)
}

func runNetworkList(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadNetworkCmd(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	netCtx, current, err := openNetwork(cfg, logger)
	if err != nil {
		return err
	}
	for _, n := range netCtx.Networks() {
		marker := " "
		if n.ChainID == current.ChainID {
			marker = "*"
		}
		fmt.Printf("%s %-6d %-16s %s\n", marker, n.ChainID, n.Name, n.RPCURL)
	}
	return nil
}

func runNetworkSelect(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadNetworkCmd(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	chainID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chain id %q: %w", args[0], err)
	}

	netCtx, _, err := openNetwork(cfg, logger)
	if err != nil {
		return err
	}
	net, err := netCtx.Select(chainID)
	if err != nil {
		return err
	}
	if err := netCtx.Persist(); err != nil {
		return err
	}
	logger.Info("network selected", zap.Uint64("chain_id", net.ChainID), zap.String("name", net.Name), zap.String("file", cfg.NetworkFile))
	return nil
}

func printJSON(v interface{}) error {
	return writeJSON(os.Stdout, v)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
