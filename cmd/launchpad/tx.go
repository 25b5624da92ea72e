package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpad/internal/chain"
	"launchpad/internal/contracts"
)

func newTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Follow submitted transactions",
	}
	waitCmd := &cobra.Command{
		Use:   "wait <hash>",
		Short: "Wait for a transaction to be mined and report its status",
		Args:  cobra.ExactArgs(1),
		RunE:  runTxWait,
	}
	addChainFlags(waitCmd)
	waitCmd.Flags().Duration("timeout", 2*time.Minute, "give up after this long")
	cmd.AddCommand(waitCmd)
	return cmd
}

func runTxWait(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadNetworkCmd(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	raw := strings.TrimSpace(args[0])
	if len(raw) != 66 || !strings.HasPrefix(raw, "0x") {
		return fmt.Errorf("invalid transaction hash %q", raw)
	}
	txHash := common.HexToHash(raw)
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, stop := signalContext()
	defer stop()

	_, net, err := openNetwork(cfg, logger)
	if err != nil {
		return err
	}
	client, err := dialNetwork(ctx, net, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	receipt, err := contracts.Confirm(ctx, client, txHash, chain.WaitOptions{
		Timeout: timeout,
		Logger:  logger,
	})
	if err != nil {
		err = contracts.Normalize(err)
		if contracts.ShouldNotify(err) {
			logger.Error("transaction failed", zap.String("tx", txHash.Hex()), zap.Stringer("kind", contracts.Classify(err)), zap.Error(err))
		}
		return err
	}

	fmt.Printf("tx:        %s\n", receipt.TxHash.Hex())
	fmt.Printf("block:     %s\n", receipt.BlockNumber)
	fmt.Printf("gas used:  %d\n", receipt.GasUsed)
	fmt.Printf("status:    success\n")
	if net.ExplorerURL != "" {
		fmt.Printf("explorer:  %s/tx/%s\n", strings.TrimRight(net.ExplorerURL, "/"), receipt.TxHash.Hex())
	}
	return nil
}
