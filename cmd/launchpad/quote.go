package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpad/internal/amount"
	"launchpad/internal/config"
	"launchpad/internal/contracts"
	"launchpad/internal/currency"
	"launchpad/internal/curve"
	"launchpad/internal/model"
)

const placeholder = "-"

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a bonding-curve trade against live pool state",
	}

	buyCmd := &cobra.Command{
		Use:   "buy",
		Short: "Quote spending ZIL on the curve",
		RunE:  func(cmd *cobra.Command, _ []string) error { return runQuote(cmd, true) },
	}
	sellCmd := &cobra.Command{
		Use:   "sell",
		Short: "Quote selling tokens into the curve",
		RunE:  func(cmd *cobra.Command, _ []string) error { return runQuote(cmd, false) },
	}
	for _, c := range []*cobra.Command{buyCmd, sellCmd} {
		addChainFlags(c)
		c.Flags().String("pool", "", "bonding-curve pool address")
		c.Flags().String("amount", "", "input amount (ZIL for buy, tokens for sell)")
		c.Flags().Uint64("slippage-bps", 100, "slippage tolerance in basis points")
		c.Flags().Bool("calldata", false, "print the unsigned transaction for the quote")
		cmd.AddCommand(c)
	}
	return cmd
}

type quoteRequest struct {
	Pool        common.Address
	Amount      string
	SlippageBps uint64
	Buy         bool
	Calldata    bool
}

func runQuote(cmd *cobra.Command, isBuy bool) error {
	cfg, err := config.LoadQuote(configFile(cmd), cmd.Flags())
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
	if cfg.SlippageBps > curve.BasisPoints {
		return fmt.Errorf("slippage-bps must be <= %d", curve.BasisPoints)
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

	return writeQuote(readCtx, os.Stdout, client, contracts.NewTokenMetaCache(), quoteRequest{
		Pool:        pool,
		Amount:      cfg.Amount,
		SlippageBps: cfg.SlippageBps,
		Buy:         isBuy,
		Calldata:    cfg.Calldata,
	}, logger)
}

func loadPoolState(ctx context.Context, caller contracts.Caller, pool common.Address, logger *zap.Logger) (*curve.PoolState, bool) {
	state, err := contracts.ReadPoolState(ctx, caller, pool)
	if err != nil {
		logger.Warn("pool state unavailable", zap.String("pool", pool.Hex()), zap.Error(err))
		return nil, false
	}
	return state, true
}

// loadPoolToken resolves the token a bonding pool trades, through cache.
func loadPoolToken(ctx context.Context, caller contracts.Caller, cache *contracts.TokenMetaCache, pool common.Address, logger *zap.Logger) (model.TokenMeta, bool) {
	token, err := contracts.ReadPoolToken(ctx, caller, pool)
	if err != nil {
		logger.Warn("pool token unavailable", zap.String("pool", pool.Hex()), zap.Error(err))
		return model.TokenMeta{}, false
	}
	meta, err := cache.Load(ctx, caller, token, logger)
	if err != nil {
		logger.Warn("token metadata unavailable", zap.String("token", token.Hex()), zap.Error(err))
		return model.TokenMeta{}, false
	}
	return meta, true
}

// writeQuote prints a quote for req. Anything the chain cannot answer
// renders as a placeholder rather than an error.
func writeQuote(ctx context.Context, w io.Writer, caller contracts.Caller, cache *contracts.TokenMetaCache, req quoteRequest, logger *zap.Logger) error {
	label := "zil out"
	if req.Buy {
		label = "tokens out"
	}

	var zilIn *big.Int
	if req.Buy {
		var err error
		if zilIn, err = amount.ParseForCurrency(req.Amount, currency.ZIL); err != nil {
			return err
		}
	}

	state, ok := loadPoolState(ctx, caller, req.Pool, logger)
	if !ok {
		printQuotePlaceholder(w, label)
		return nil
	}
	token, ok := loadPoolToken(ctx, caller, cache, req.Pool, logger)
	if !ok {
		printQuotePlaceholder(w, label)
		return nil
	}

	var call contracts.WriteCall
	var err error
	if req.Buy {
		call, err = quoteBuy(w, state, token, req, zilIn)
	} else {
		var tokensIn *big.Int
		if tokensIn, err = amount.Parse(req.Amount, token.Decimals); err != nil {
			return err
		}
		call, err = quoteSell(w, state, token, req, tokensIn)
	}
	if errors.Is(err, curve.ErrQuoteUnavailable) || errors.Is(err, curve.ErrPoolGraduated) {
		logger.Warn("quote unavailable", zap.Error(err))
		printQuotePlaceholder(w, label)
		return nil
	}
	if err != nil {
		return err
	}
	if req.Calldata {
		return writeJSON(w, call)
	}
	return nil
}

func quoteBuy(w io.Writer, state *curve.PoolState, token model.TokenMeta, req quoteRequest, zilIn *big.Int) (contracts.WriteCall, error) {
	zil, _ := currency.Lookup(currency.ZIL)

	quote, err := curve.QuoteBuy(state, zilIn)
	if err != nil {
		return contracts.WriteCall{}, err
	}
	minOut := curve.MinOutput(quote.TokensOut, req.SlippageBps)

	fmt.Fprintf(w, "spend:        %s %s\n", amount.Format(zilIn, zil.Decimals), zil.Symbol)
	fmt.Fprintf(w, "tokens out:   %s %s\n", amount.Format(quote.TokensOut, token.Decimals), token.Symbol)
	fmt.Fprintf(w, "min out:      %s %s (%d bps)\n", amount.Format(minOut, token.Decimals), token.Symbol, req.SlippageBps)
	fmt.Fprintf(w, "fee:          %s %s\n", amount.Format(quote.Fee, zil.Decimals), zil.Symbol)
	printPoolSummary(w, state)

	return contracts.Buy(req.Pool, zilIn, minOut)
}

func quoteSell(w io.Writer, state *curve.PoolState, token model.TokenMeta, req quoteRequest, tokensIn *big.Int) (contracts.WriteCall, error) {
	zil, _ := currency.Lookup(currency.ZIL)

	quote, err := curve.QuoteSell(state, tokensIn)
	if err != nil {
		return contracts.WriteCall{}, err
	}
	minOut := curve.MinOutput(quote.ZilOut, req.SlippageBps)

	fmt.Fprintf(w, "sell:         %s %s\n", amount.Format(tokensIn, token.Decimals), token.Symbol)
	fmt.Fprintf(w, "zil out:      %s %s\n", amount.Format(quote.ZilOut, zil.Decimals), zil.Symbol)
	fmt.Fprintf(w, "min out:      %s %s (%d bps)\n", amount.Format(minOut, zil.Decimals), zil.Symbol, req.SlippageBps)
	fmt.Fprintf(w, "fee:          %s %s\n", amount.Format(quote.Fee, zil.Decimals), zil.Symbol)
	printPoolSummary(w, state)

	return contracts.Sell(req.Pool, tokensIn, minOut)
}

func printPoolSummary(w io.Writer, state *curve.PoolState) {
	fmt.Fprintf(w, "progress:     %s%%\n", curve.ProgressPercent(state.ProgressBps).StringFixed(2))
	if spot, err := curve.SpotPrice(state); err == nil {
		fmt.Fprintf(w, "spot price:   %s ZIL\n", curve.PriceDecimal(spot).String())
	}
	fmt.Fprintf(w, "state:        %s\n", state.State)
}

func printQuotePlaceholder(w io.Writer, label string) {
	fmt.Fprintf(w, "%-13s %s\n", label+":", placeholder)
}
