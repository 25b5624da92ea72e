package main

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"launchpad/internal/amount"
	"launchpad/internal/contracts"
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func tradingPool(t *testing.T, decimals uint8) *fakeCaller {
	t.Helper()
	poolABI, err := contracts.BondingPoolABI()
	require.NoError(t, err)
	erc20, err := contracts.ERC20ABI()
	require.NoError(t, err)

	caller := newFakeCaller()
	caller.set(t, poolABI, "virtualTokenReserve", wei("1073000000000000000000000000"))
	caller.set(t, poolABI, "virtualZilReserve", wei("30000000000000000000"))
	caller.set(t, poolABI, "k", wei("32190000000000000000000000000000000000000000000"))
	caller.set(t, poolABI, "realZilReserve", big.NewInt(0))
	caller.set(t, poolABI, "tokensSold", big.NewInt(0))
	caller.set(t, poolABI, "graduationMarketCap", wei("69000000000000000000000"))
	caller.set(t, poolABI, "tradingFeePercent", big.NewInt(100))
	caller.set(t, poolABI, "getProgress", big.NewInt(1234))
	caller.set(t, poolABI, "state", uint8(0))
	caller.set(t, poolABI, "token", testToken)
	caller.set(t, erc20, "decimals", decimals)
	caller.set(t, erc20, "symbol", "MEME")
	caller.set(t, erc20, "name", "Meme")
	return caller
}

func TestWriteQuoteMissingPoolShowsPlaceholder(t *testing.T) {
	for _, buy := range []bool{true, false} {
		var out bytes.Buffer
		err := writeQuote(context.Background(), &out, newFakeCaller(), contracts.NewTokenMetaCache(), quoteRequest{
			Pool:        testPool,
			Amount:      "1",
			SlippageBps: 100,
			Buy:         buy,
		}, zap.NewNop())
		require.NoError(t, err)
		if buy {
			assert.Equal(t, "tokens out:   -\n", out.String())
		} else {
			assert.Equal(t, "zil out:      -\n", out.String())
		}
	}
}

func TestWriteQuoteMissingTokenShowsPlaceholder(t *testing.T) {
	poolABI, err := contracts.BondingPoolABI()
	require.NoError(t, err)
	caller := tradingPool(t, 18)
	delete(caller.responses, string(poolABI.Methods["token"].ID))

	var out bytes.Buffer
	err = writeQuote(context.Background(), &out, caller, contracts.NewTokenMetaCache(), quoteRequest{
		Pool: testPool, Amount: "1", SlippageBps: 100,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "zil out:      -\n", out.String())
}

func TestWriteQuoteBuyUsesTokenDecimals(t *testing.T) {
	caller := tradingPool(t, 9)
	cache := contracts.NewTokenMetaCache()

	var out bytes.Buffer
	err := writeQuote(context.Background(), &out, caller, cache, quoteRequest{
		Pool: testPool, Amount: "1", SlippageBps: 100, Buy: true,
	}, zap.NewNop())
	require.NoError(t, err)

	tokensOut := wei("34277831558567279767666990")
	assert.Contains(t, out.String(), "tokens out:   "+amount.Format(tokensOut, 9)+" MEME")
	assert.NotContains(t, out.String(), amount.Format(tokensOut, 18))

	meta, ok := cache.Get(testToken)
	require.True(t, ok)
	assert.Equal(t, uint8(9), meta.Decimals)
}

func TestWriteQuoteSellCalldata(t *testing.T) {
	caller := tradingPool(t, 18)

	var out bytes.Buffer
	err := writeQuote(context.Background(), &out, caller, contracts.NewTokenMetaCache(), quoteRequest{
		Pool: testPool, Amount: "1000", SlippageBps: 50, Calldata: true,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "sell:         1000 MEME")
	assert.Contains(t, out.String(), "(50 bps)")
	assert.Contains(t, out.String(), `"method": "sell"`)
}
