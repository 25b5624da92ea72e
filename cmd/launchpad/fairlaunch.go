package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpad/internal/amount"
	"launchpad/internal/config"
	"launchpad/internal/contracts"
	"launchpad/internal/currency"
	"launchpad/internal/fairlaunch"
	"launchpad/internal/model"
)

// Launchpad tokens are minted with 18 decimals. Used for flag input and
// when a token's own metadata cannot be read.
const tokenDecimals = 18

func newFairLaunchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fairlaunch",
		Short: "Plan, inspect and join fair-launch sales",
	}

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Validate a fair-launch config and print the create transaction",
		RunE:  runFairLaunchPlan,
	}
	addChainFlags(planCmd)
	addSaleFlags(planCmd)
	planCmd.Flags().String("token", "", "token to sell")
	planCmd.Flags().String("tokens-for-sale", "", "tokens offered in the sale")
	planCmd.Flags().String("soft-cap", "", "minimum raise")
	planCmd.Flags().String("start", "", "sale start (unix seconds or RFC3339)")
	planCmd.Flags().String("end", "", "sale end (unix seconds or RFC3339)")
	planCmd.Flags().Uint64("liquidity-percent", 60, "share of raised funds paired as liquidity")
	planCmd.Flags().Uint64("lock-duration", 0, "liquidity lock in seconds")
	planCmd.Flags().String("creation-fee", "0", "factory creation fee in ZIL")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show chain status and an account's projected allocation",
		RunE:  runFairLaunchStatus,
	}
	addChainFlags(statusCmd)
	statusCmd.Flags().String("pool", "", "fair-launch pool address")
	statusCmd.Flags().String("account", "", "contributor address")

	contributeCmd := &cobra.Command{
		Use:   "contribute",
		Short: "Check a contribution and print the transactions to send",
		RunE:  runFairLaunchContribute,
	}
	addChainFlags(contributeCmd)
	contributeCmd.Flags().String("pool", "", "fair-launch pool address")
	contributeCmd.Flags().String("account", "", "contributor address")
	contributeCmd.Flags().String("amount", "", "contribution in the pool's raise currency")
	contributeCmd.Flags().String("whitelist", "", "file with one whitelisted address per line")

	whitelistCmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Print the whitelist Merkle root and proofs",
		RunE:  runFairLaunchWhitelist,
	}
	whitelistCmd.Flags().String("whitelist", "", "file with one address per line")
	whitelistCmd.Flags().String("account", "", "only print the proof for this address")
	whitelistCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(planCmd, statusCmd, contributeCmd, whitelistCmd)
	for _, method := range []string{"claim", "refund", "finalize"} {
		cmd.AddCommand(newSettleCmd(method))
	}
	return cmd
}

func addSaleFlags(cmd *cobra.Command) {
	cmd.Flags().String("currency", "ZIL", "raise currency (ZIL or USDC)")
	cmd.Flags().String("hard-cap", "", "maximum raise (0 or empty for none)")
	cmd.Flags().String("max-contribution", "", "per-wallet cap (0 or empty for none)")
	cmd.Flags().String("whitelist", "", "file with one whitelisted address per line")
}

func newSettleCmd(method string) *cobra.Command {
	c := &cobra.Command{
		Use:   method,
		Short: fmt.Sprintf("Print the %s transaction for a fair-launch pool", method),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFairLaunch(configFile(cmd), cmd.Flags())
			if err != nil {
				return err
			}
			pool, err := poolAddress(cfg.Pool)
			if err != nil {
				return err
			}
			var call contracts.WriteCall
			switch method {
			case "claim":
				call, err = contracts.Claim(pool)
			case "refund":
				call, err = contracts.Refund(pool)
			default:
				call, err = contracts.Finalize(pool)
			}
			if err != nil {
				return err
			}
			return printJSON(call)
		},
	}
	c.Flags().String("pool", "", "fair-launch pool address")
	c.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return c
}

// saleConfig parses the amount and schedule flags into a fairlaunch.Config.
// Missing amounts are left nil.
func saleConfig(cfg config.FairLaunchConfig) (fairlaunch.Config, error) {
	code, err := currency.ParseCode(cfg.Currency)
	if err != nil {
		return fairlaunch.Config{}, err
	}
	out := fairlaunch.Config{
		Currency:         code,
		LiquidityPercent: cfg.LiquidityPercent,
		LockDuration:     cfg.LockDuration,
	}
	if cfg.Token != "" {
		if !common.IsHexAddress(cfg.Token) {
			return out, fmt.Errorf("invalid token address %q", cfg.Token)
		}
		out.Token = common.HexToAddress(cfg.Token)
	}

	fields := []struct {
		name  string
		input string
		dst   **big.Int
		token bool
	}{
		{"tokens-for-sale", cfg.TokensForSale, &out.TokensForSale, true},
		{"soft-cap", cfg.SoftCap, &out.SoftCap, false},
		{"hard-cap", cfg.HardCap, &out.HardCap, false},
		{"max-contribution", cfg.MaxContribution, &out.MaxContribution, false},
	}
	for _, f := range fields {
		if f.input == "" {
			continue
		}
		var v *big.Int
		if f.token {
			v, err = amount.Parse(f.input, tokenDecimals)
		} else {
			v, err = amount.ParseForCurrency(f.input, code)
		}
		if err != nil {
			return out, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}

	if out.StartTime, err = config.ParseTimestamp(cfg.StartTime); err != nil {
		return out, fmt.Errorf("start: %w", err)
	}
	if out.EndTime, err = config.ParseTimestamp(cfg.EndTime); err != nil {
		return out, fmt.Errorf("end: %w", err)
	}
	return out, nil
}

func loadWhitelist(path string) (*fairlaunch.Whitelist, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	addresses, err := fairlaunch.ReadAddresses(f)
	if err != nil {
		return nil, fmt.Errorf("read whitelist %s: %w", path, err)
	}
	return fairlaunch.NewWhitelist(addresses)
}

func formatRaise(value *big.Int, code currency.Code) string {
	if value == nil || value.Sign() == 0 {
		return "none"
	}
	s, err := amount.FormatForCurrency(value, code)
	if err != nil {
		return value.String()
	}
	return s
}

func runFairLaunchPlan(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFairLaunch(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sale, err := saleConfig(cfg)
	if err != nil {
		return err
	}
	whitelist, err := loadWhitelist(cfg.WhitelistFile)
	if err != nil {
		return err
	}
	if whitelist != nil {
		sale.WhitelistEnabled = true
		sale.WhitelistRoot = whitelist.Root()
	}

	if errs := fairlaunch.Validate(sale); len(errs) > 0 {
		for _, fe := range errs {
			fmt.Printf("invalid %-18s %s\n", fe.Field+":", fe.Message)
		}
		return errs.Err()
	}

	fee, err := amount.ParseForCurrency(cfg.CreationFee, currency.ZIL)
	if err != nil {
		return fmt.Errorf("creation-fee: %w", err)
	}

	_, net, err := openNetwork(cfg.Chain, logger)
	if err != nil {
		return err
	}
	if net.Contracts.Factory == (common.Address{}) {
		return fmt.Errorf("factory address is not configured for %s", net.Name)
	}

	fmt.Printf("network:           %s (%d)\n", net.Name, net.ChainID)
	fmt.Printf("tokens for sale:   %s\n", amount.Format(sale.TokensForSale, tokenDecimals))
	fmt.Printf("tokens for lp:     %s (%d%%)\n", amount.Format(fairlaunch.TokensForLiquidity(sale.TokensForSale, sale.LiquidityPercent), tokenDecimals), sale.LiquidityPercent)
	fmt.Printf("approve total:     %s\n", amount.Format(fairlaunch.TotalTokensRequired(sale.TokensForSale, sale.LiquidityPercent), tokenDecimals))
	fmt.Printf("soft cap:          %s\n", formatRaise(sale.SoftCap, sale.Currency))
	fmt.Printf("hard cap:          %s\n", formatRaise(sale.HardCap, sale.Currency))
	fmt.Printf("max contribution:  %s\n", formatRaise(sale.MaxContribution, sale.Currency))
	fmt.Printf("window:            %s .. %s\n", formatUnix(sale.StartTime), formatUnix(sale.EndTime))
	if whitelist != nil {
		fmt.Printf("whitelist:         %d addresses, root %s\n", whitelist.Size(), sale.WhitelistRoot.Hex())
	}

	call, err := contracts.CreateFairLaunch(net.Contracts.Factory, sale, fee)
	if err != nil {
		return err
	}
	return printJSON(call)
}

// saleView is what status shows for a pool, read from the pool itself.
type saleView struct {
	Config      fairlaunch.Config
	Token       model.TokenMeta
	Optimistic  fairlaunch.Status
	WindowOpen  bool
	Chain       contracts.FairLaunchStatus
	Contributed *big.Int
	Share       fairlaunch.Allocation
}

func loadSaleView(ctx context.Context, caller contracts.Caller, pool common.Address, account *common.Address, now time.Time, logger *zap.Logger) (saleView, error) {
	var view saleView
	sale, err := contracts.ReadFairLaunchConfig(ctx, caller, pool)
	if err != nil {
		return view, fmt.Errorf("read sale config: %w", err)
	}
	view.Config = sale
	if view.Token, err = contracts.ReadTokenMeta(ctx, caller, sale.Token, logger); err != nil {
		logger.Warn("token metadata unavailable", zap.String("token", sale.Token.Hex()), zap.Error(err))
		view.Token = model.TokenMeta{Address: sale.Token.Hex(), Decimals: tokenDecimals}
	}
	view.Optimistic = fairlaunch.OptimisticStatus(sale, now)
	view.WindowOpen = fairlaunch.WindowOpen(sale, now)

	if view.Chain, err = contracts.ReadFairLaunchStatus(ctx, caller, pool); err != nil {
		return view, err
	}
	if account == nil {
		return view, nil
	}
	if view.Contributed, err = contracts.ReadContribution(ctx, caller, pool, *account); err != nil {
		return view, err
	}
	view.Share = fairlaunch.Share(sale, view.Chain.Status, view.Contributed, view.Chain.TotalRaised)
	return view, nil
}

func printSaleView(w io.Writer, view saleView) {
	sale := view.Config
	fmt.Fprintf(w, "currency:      %s\n", sale.Currency)
	fmt.Fprintf(w, "window:        %s .. %s (open: %t)\n", formatUnix(sale.StartTime), formatUnix(sale.EndTime), view.WindowOpen)
	fmt.Fprintf(w, "expected:      %s\n", view.Optimistic)
	fmt.Fprintf(w, "status:        %s\n", view.Chain.Status)
	fmt.Fprintf(w, "total raised:  %s\n", formatRaise(view.Chain.TotalRaised, sale.Currency))
	fmt.Fprintf(w, "hard cap:      %s\n", formatRaise(sale.HardCap, sale.Currency))
	if view.Contributed == nil {
		return
	}
	fmt.Fprintf(w, "contributed:   %s\n", formatRaise(view.Contributed, sale.Currency))
	if fairlaunch.RefundsAll(view.Chain.Status) {
		fmt.Fprintf(w, "refund:        %s\n", formatRaise(view.Share.Refund, sale.Currency))
		return
	}
	fmt.Fprintf(w, "tokens:        %s %s\n", amount.Format(view.Share.Tokens, view.Token.Decimals), view.Token.Symbol)
	if view.Share.Refund.Sign() > 0 {
		fmt.Fprintf(w, "over-cap refund: %s\n", formatRaise(view.Share.Refund, sale.Currency))
	}
}

func formatUnix(sec uint64) string {
	if sec > fairlaunch.MaxTimestamp {
		return fmt.Sprintf("%d", sec)
	}
	return time.Unix(int64(sec), 0).UTC().Format(time.RFC3339)
}

func runFairLaunchStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFairLaunch(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := poolAddress(cfg.Pool)
	if err != nil {
		return err
	}
	var account *common.Address
	if cfg.Account != "" {
		if !common.IsHexAddress(cfg.Account) {
			return fmt.Errorf("invalid account address %q", cfg.Account)
		}
		addr := common.HexToAddress(cfg.Account)
		account = &addr
	}

	ctx, stop := signalContext()
	defer stop()

	_, net, err := openNetwork(cfg.Chain, logger)
	if err != nil {
		return err
	}
	client, err := dialNetwork(ctx, net, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	readCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	view, err := loadSaleView(readCtx, client, pool, account, time.Now(), logger)
	if err != nil {
		return err
	}
	printSaleView(os.Stdout, view)
	return nil
}

var errInsufficientBalance = errors.New("insufficient balance")

type contribution struct {
	Pool      common.Address
	Account   common.Address
	Amount    string
	Whitelist *fairlaunch.Whitelist
	USDC      common.Address
}

// prepareContribution checks a contribution against the pool's on-chain
// config and status and returns the writes to send, in order.
func prepareContribution(ctx context.Context, caller contracts.Caller, c contribution, now time.Time, logger *zap.Logger) ([]contracts.WriteCall, error) {
	sale, err := contracts.ReadFairLaunchConfig(ctx, caller, c.Pool)
	if err != nil {
		return nil, fmt.Errorf("read sale config: %w", err)
	}
	value, err := amount.ParseForCurrency(c.Amount, sale.Currency)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	if !fairlaunch.WindowOpen(sale, now) {
		logger.Warn("local clock is outside the sale window",
			zap.Stringer("expected", fairlaunch.OptimisticStatus(sale, now)),
		)
	}

	status, err := contracts.ReadFairLaunchStatus(ctx, caller, c.Pool)
	if err != nil {
		return nil, err
	}
	contributed, err := contracts.ReadContribution(ctx, caller, c.Pool, c.Account)
	if err != nil {
		return nil, err
	}
	if err := fairlaunch.CheckContribution(sale, status.Status, contributed, value); err != nil {
		return nil, err
	}

	var proof []common.Hash
	if sale.WhitelistEnabled {
		if c.Whitelist == nil {
			return nil, fmt.Errorf("pool %s is whitelisted, a whitelist file is required", c.Pool.Hex())
		}
		if root := c.Whitelist.Root(); root != sale.WhitelistRoot {
			return nil, fmt.Errorf("whitelist root %s does not match pool root %s", root.Hex(), sale.WhitelistRoot.Hex())
		}
		if proof, err = c.Whitelist.Proof(c.Account); err != nil {
			return nil, err
		}
		if !fairlaunch.VerifyProof(sale.WhitelistRoot, c.Account, proof) {
			return nil, fmt.Errorf("proof for %s does not verify against pool root", c.Account.Hex())
		}
	}

	var calls []contracts.WriteCall
	if sale.Currency == currency.USDC {
		if c.USDC == (common.Address{}) {
			return nil, fmt.Errorf("usdc address is not configured")
		}
		balance, err := contracts.ReadBalance(ctx, caller, c.USDC, c.Account)
		if err != nil {
			return nil, err
		}
		if balance.Cmp(value) < 0 {
			return nil, fmt.Errorf("%w: have %s, need %s", errInsufficientBalance,
				formatRaise(balance, sale.Currency), formatRaise(value, sale.Currency))
		}
		allowance, err := contracts.ReadAllowance(ctx, caller, c.USDC, c.Account, c.Pool)
		if err != nil {
			return nil, err
		}
		if allowance.Cmp(value) < 0 {
			logger.Info("allowance below contribution, approval needed",
				zap.String("allowance", allowance.String()),
				zap.String("value", value.String()),
			)
			approve, err := contracts.Approve(c.USDC, c.Pool, value)
			if err != nil {
				return nil, err
			}
			calls = append(calls, approve)
		}
	}

	call, err := contracts.Contribute(c.Pool, sale.Currency, value, proof)
	if err != nil {
		return nil, err
	}
	return append(calls, call), nil
}

func runFairLaunchContribute(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFairLaunch(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := poolAddress(cfg.Pool)
	if err != nil {
		return err
	}
	if !common.IsHexAddress(cfg.Account) {
		return fmt.Errorf("invalid account address %q", cfg.Account)
	}
	whitelist, err := loadWhitelist(cfg.WhitelistFile)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	_, net, err := openNetwork(cfg.Chain, logger)
	if err != nil {
		return err
	}
	client, err := dialNetwork(ctx, net, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	readCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	calls, err := prepareContribution(readCtx, client, contribution{
		Pool:      pool,
		Account:   common.HexToAddress(cfg.Account),
		Amount:    cfg.Amount,
		Whitelist: whitelist,
		USDC:      net.Contracts.USDC,
	}, time.Now(), logger)
	if err != nil {
		return err
	}
	return printJSON(calls)
}

func runFairLaunchWhitelist(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFairLaunch(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.WhitelistFile == "" {
		return fmt.Errorf("whitelist file is required")
	}
	whitelist, err := loadWhitelist(cfg.WhitelistFile)
	if err != nil {
		return err
	}

	type entry struct {
		Address string        `json:"address"`
		Proof   []common.Hash `json:"proof"`
	}
	out := struct {
		Root    common.Hash `json:"root"`
		Size    int         `json:"size"`
		Entries []entry     `json:"entries"`
	}{Root: whitelist.Root(), Size: whitelist.Size()}

	var targets []common.Address
	if cfg.Account != "" {
		if !common.IsHexAddress(cfg.Account) {
			return fmt.Errorf("invalid account address %q", cfg.Account)
		}
		targets = []common.Address{common.HexToAddress(cfg.Account)}
	} else {
		f, err := os.Open(cfg.WhitelistFile)
		if err != nil {
			return err
		}
		targets, err = fairlaunch.ReadAddresses(f)
		f.Close()
		if err != nil {
			return err
		}
	}
	for _, addr := range targets {
		proof, err := whitelist.Proof(addr)
		if err != nil {
			return err
		}
		out.Entries = append(out.Entries, entry{Address: addr.Hex(), Proof: proof})
	}
	return printJSON(out)
}
