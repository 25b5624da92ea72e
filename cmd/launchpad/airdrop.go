package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"launchpad/internal/amount"
	"launchpad/internal/contracts"
)

func newAirdropCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "airdrop",
		Short: "Print the approve and airdrop transactions for a recipient list",
		RunE:  runAirdrop,
	}
	addChainFlags(cmd)
	cmd.Flags().String("token", "", "token to distribute")
	cmd.Flags().String("recipients", "", "CSV file of address,amount rows")
	cmd.Flags().Uint8("decimals", tokenDecimals, "token decimals for the amount column")
	return cmd
}

func runAirdrop(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadNetworkCmd(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tokenFlag, _ := cmd.Flags().GetString("token")
	if !common.IsHexAddress(tokenFlag) {
		return fmt.Errorf("invalid token address %q", tokenFlag)
	}
	token := common.HexToAddress(tokenFlag)
	path, _ := cmd.Flags().GetString("recipients")
	if path == "" {
		return fmt.Errorf("recipients file is required")
	}
	decimals, _ := cmd.Flags().GetUint8("decimals")

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	recipients, amounts, err := readRecipients(f, decimals)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	_, net, err := openNetwork(cfg, logger)
	if err != nil {
		return err
	}
	if net.Contracts.Airdropper == (common.Address{}) {
		return fmt.Errorf("airdropper address is not configured for %s", net.Name)
	}

	total := contracts.AirdropTotal(amounts)
	approve, err := contracts.Approve(token, net.Contracts.Airdropper, total)
	if err != nil {
		return err
	}
	drop, err := contracts.Airdrop(net.Contracts.Airdropper, token, recipients, amounts)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d recipients, total %s\n", len(recipients), amount.Format(total, decimals))
	return printJSON([]contracts.WriteCall{approve, drop})
}

// readRecipients parses address,amount rows. A header row is skipped.
func readRecipients(r io.Reader, decimals uint8) ([]common.Address, []*big.Int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var (
		recipients []common.Address
		amounts    []*big.Int
	)
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		addr := strings.TrimSpace(record[0])
		if row == 1 && strings.EqualFold(addr, "address") {
			continue
		}
		if !common.IsHexAddress(addr) {
			return nil, nil, fmt.Errorf("row %d: invalid address %q", row, addr)
		}
		value, err := amount.Parse(strings.TrimSpace(record[1]), decimals)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", row, err)
		}
		recipients = append(recipients, common.HexToAddress(addr))
		amounts = append(amounts, value)
	}
	return recipients, amounts, nil
}
