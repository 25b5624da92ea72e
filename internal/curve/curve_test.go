package curve

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/amount"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), wad)
}

func fixturePool(feeBps uint64) *PoolState {
	vToken := ether(1_073_000_000)
	vZil := ether(30)
	return &PoolState{
		VirtualTokenReserve: vToken,
		VirtualZilReserve:   vZil,
		K:                   new(big.Int).Mul(vToken, vZil),
		RealZilReserve:      big.NewInt(0),
		TokensSold:          big.NewInt(0),
		TradingFeeBps:       feeBps,
		GraduationMarketCap: ether(100_000),
		State:               StateTrading,
	}
}

func TestQuoteBuyFixture(t *testing.T) {
	quote, err := QuoteBuy(fixturePool(100), ether(1))
	require.NoError(t, err)

	assert.Equal(t, "10000000000000000", quote.Fee.String())
	// 1073000000e18 - floor(1073000000e18*30e18 / 30.99e18)
	assert.Equal(t, "34277831558567279767666990", quote.TokensOut.String())
}

func TestQuoteSellFixture(t *testing.T) {
	quote, err := QuoteSell(fixturePool(100), ether(1_000_000_000))
	require.NoError(t, err)

	assert.Equal(t, "144717800289435600", quote.Fee.String())
	assert.Equal(t, "14327062228654124458", quote.ZilOut.String())
}

func TestQuoteRoundTripNeverGainsWithoutFee(t *testing.T) {
	pool := fixturePool(0)
	inputs := []*big.Int{big.NewInt(1), big.NewInt(999_999), ether(1), ether(7), ether(250)}
	for _, zilIn := range inputs {
		buy, err := QuoteBuy(pool, zilIn)
		require.NoError(t, err)

		after := ApplyBuy(pool, zilIn, buy)
		sell, err := QuoteSell(after, buy.TokensOut)
		require.NoError(t, err)
		assert.True(t, sell.ZilOut.Cmp(zilIn) <= 0, "zilIn %s returned %s", zilIn, sell.ZilOut)
	}

	buy, err := QuoteBuy(pool, ether(1))
	require.NoError(t, err)
	assert.Equal(t, "34612903225806451612903226", buy.TokensOut.String())
	sell, err := QuoteSell(ApplyBuy(pool, ether(1), buy), buy.TokensOut)
	require.NoError(t, err)
	assert.Equal(t, ether(1).String(), sell.ZilOut.String())
}

func TestQuoteBuyMonotonic(t *testing.T) {
	pool := fixturePool(100)
	prev := big.NewInt(-1)
	for i := int64(1); i <= 50; i++ {
		quote, err := QuoteBuy(pool, ether(i))
		require.NoError(t, err)
		assert.True(t, quote.TokensOut.Cmp(prev) > 0, "step %d not increasing", i)
		prev = quote.TokensOut
	}
}

func TestQuoteZeroInput(t *testing.T) {
	pool := fixturePool(100)
	buy, err := QuoteBuy(pool, big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, 0, buy.TokensOut.Sign())
	assert.Equal(t, 0, buy.Fee.Sign())

	sell, err := QuoteSell(pool, big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, 0, sell.ZilOut.Sign())
}

func TestQuoteErrors(t *testing.T) {
	_, err := QuoteBuy(nil, ether(1))
	assert.ErrorIs(t, err, ErrQuoteUnavailable)

	_, err = QuoteBuy(&PoolState{VirtualTokenReserve: ether(1)}, ether(1))
	assert.ErrorIs(t, err, ErrQuoteUnavailable)

	_, err = QuoteBuy(fixturePool(100), big.NewInt(-5))
	assert.ErrorIs(t, err, amount.ErrInvalidAmount)

	graduated := fixturePool(100)
	graduated.State = StateGraduated
	_, err = QuoteSell(graduated, ether(1))
	assert.ErrorIs(t, err, ErrPoolGraduated)
}

func TestMinOutput(t *testing.T) {
	assert.Equal(t, "990", MinOutput(big.NewInt(1000), DefaultSlippageBps).String())
	assert.Equal(t, "0", MinOutput(big.NewInt(1000), 20_000).String())
	assert.Equal(t, "998", MinOutput(big.NewInt(1009), 100).String())
	assert.Equal(t, "0", MinOutput(nil, 100).String())
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, "45.67", ProgressPercent(4567).String())
	assert.Equal(t, "100", ProgressPercent(10_000).String())
	assert.Equal(t, "0", ProgressPercent(0).String())
}

func TestSpotPrice(t *testing.T) {
	price, err := SpotPrice(fixturePool(0))
	require.NoError(t, err)
	// 30e18 * 1e18 / 1073000000e18
	assert.Equal(t, "27958993476", price.String())
	assert.Equal(t, "0.000000027958993476", PriceDecimal(price).String())

	_, err = SpotPrice(&PoolState{})
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestApplySellRestoresReserves(t *testing.T) {
	pool := fixturePool(0)
	buy, err := QuoteBuy(pool, ether(3))
	require.NoError(t, err)
	after := ApplyBuy(pool, ether(3), buy)
	assert.Equal(t, buy.TokensOut.String(), after.TokensSold.String())
	assert.Equal(t, ether(33).String(), after.VirtualZilReserve.String())

	sell, err := QuoteSell(after, buy.TokensOut)
	require.NoError(t, err)
	back := ApplySell(after, buy.TokensOut, sell)
	assert.Equal(t, pool.VirtualTokenReserve.String(), back.VirtualTokenReserve.String())
	assert.Equal(t, 0, back.TokensSold.Sign())
	// original snapshot is untouched
	assert.Equal(t, ether(30).String(), pool.VirtualZilReserve.String())
}
