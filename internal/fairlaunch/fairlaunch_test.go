package fairlaunch

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/currency"
)

func validConfig() Config {
	return Config{
		Token:            common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Currency:         currency.ZIL,
		TokensForSale:    big.NewInt(1_000_000),
		SoftCap:          big.NewInt(100),
		HardCap:          big.NewInt(500),
		MaxContribution:  big.NewInt(50),
		StartTime:        1_700_000_000,
		EndTime:          1_700_086_400,
		LiquidityPercent: 60,
		LockDuration:     30 * 24 * 3600,
	}
}

func TestTokensForLiquidity(t *testing.T) {
	assert.Equal(t, "600000", TokensForLiquidity(big.NewInt(1_000_000), 60).String())
	assert.Equal(t, "50", TokensForLiquidity(big.NewInt(99), 51).String())
	assert.Equal(t, "0", TokensForLiquidity(nil, 80).String())
}

func TestTotalTokensRequiredInvariant(t *testing.T) {
	sales := []*big.Int{big.NewInt(0), big.NewInt(1), big.NewInt(99), big.NewInt(1_000_000_007)}
	for _, s := range sales {
		for p := uint64(LiquidityMin); p <= LiquidityMax; p++ {
			want := new(big.Int).Add(s, TokensForLiquidity(s, p))
			assert.Equal(t, want.String(), TotalTokensRequired(s, p).String(), "s=%s p=%d", s, p)
		}
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	errs := Validate(validConfig())
	assert.Empty(t, errs)
	assert.NoError(t, errs.Err())
}

func TestValidateHardCapZeroAlwaysPasses(t *testing.T) {
	for _, soft := range []int64{1, 500, 1_000_000_000} {
		cfg := validConfig()
		cfg.SoftCap = big.NewInt(soft)
		cfg.HardCap = big.NewInt(0)
		cfg.MaxContribution = big.NewInt(0)
		assert.False(t, Validate(cfg).Has("hard_cap"), "soft=%d", soft)
	}
}

func TestValidateFieldErrors(t *testing.T) {
	cfg := validConfig()
	cfg.HardCap = big.NewInt(50)
	cfg.MaxContribution = big.NewInt(10)
	cfg.EndTime = cfg.StartTime
	cfg.LiquidityPercent = 50
	cfg.WhitelistEnabled = true

	errs := Validate(cfg)
	require.Error(t, errs.Err())
	assert.True(t, errs.Has("hard_cap"))
	assert.True(t, errs.Has("end_time"))
	assert.True(t, errs.Has("liquidity_percent"))
	assert.True(t, errs.Has("whitelist_root"))
	assert.False(t, errs.Has("soft_cap"))
	assert.Contains(t, errs.Error(), "liquidity_percent")

	cfg = validConfig()
	cfg.LiquidityPercent = 101
	cfg.Currency = currency.Code("DAI")
	cfg.Token = common.Address{}
	cfg.MaxContribution = big.NewInt(501)
	errs = Validate(cfg)
	assert.True(t, errs.Has("liquidity_percent"))
	assert.True(t, errs.Has("currency"))
	assert.True(t, errs.Has("token"))
	assert.True(t, errs.Has("max_contribution"))
}

func TestWindowOpen(t *testing.T) {
	cfg := validConfig()
	assert.False(t, WindowOpen(cfg, time.Unix(int64(cfg.StartTime)-1, 0)))
	assert.True(t, WindowOpen(cfg, time.Unix(int64(cfg.StartTime), 0)))
	assert.True(t, WindowOpen(cfg, time.Unix(int64(cfg.EndTime), 0)))
	assert.False(t, WindowOpen(cfg, time.Unix(int64(cfg.EndTime), int64(time.Millisecond))))

	assert.Equal(t, StatusUpcoming, OptimisticStatus(cfg, time.Unix(int64(cfg.StartTime)-10, 0)))
	assert.Equal(t, StatusLive, OptimisticStatus(cfg, time.Unix(int64(cfg.StartTime)+10, 0)))
	assert.Equal(t, StatusReady, OptimisticStatus(cfg, time.Unix(int64(cfg.EndTime)+10, 0)))
}

func TestWindowFarFuture(t *testing.T) {
	cfg := validConfig()
	cfg.EndTime = math.MaxUint64
	now := time.Unix(int64(cfg.StartTime)+10, 0)
	assert.True(t, WindowOpen(cfg, now))
	assert.Equal(t, StatusLive, OptimisticStatus(cfg, now))

	cfg.StartTime = math.MaxUint64 - 1
	assert.False(t, WindowOpen(cfg, now))
	assert.Equal(t, StatusUpcoming, OptimisticStatus(cfg, now))
}

func TestValidateRejectsUnrepresentableTimes(t *testing.T) {
	cfg := validConfig()
	cfg.EndTime = MaxTimestamp + 1
	errs := Validate(cfg)
	assert.True(t, errs.Has("end_time"))
	assert.False(t, errs.Has("start_time"))

	cfg.StartTime = math.MaxUint64
	cfg.EndTime = math.MaxUint64
	errs = Validate(cfg)
	assert.True(t, errs.Has("start_time"))
	assert.True(t, errs.Has("end_time"))

	cfg = validConfig()
	cfg.EndTime = MaxTimestamp
	assert.Empty(t, Validate(cfg))
}

func TestCheckContribution(t *testing.T) {
	cfg := validConfig()

	assert.NoError(t, CheckContribution(cfg, StatusLive, big.NewInt(10), big.NewInt(40)))
	assert.ErrorIs(t, CheckContribution(cfg, StatusLive, big.NewInt(10), big.NewInt(41)), ErrContributionLimit)
	assert.ErrorIs(t, CheckContribution(cfg, StatusUpcoming, nil, big.NewInt(1)), ErrNotLive)
	assert.ErrorIs(t, CheckContribution(cfg, StatusFinalized, nil, big.NewInt(1)), ErrNotLive)
	assert.Error(t, CheckContribution(cfg, StatusLive, nil, big.NewInt(0)))

	cfg.MaxContribution = nil
	assert.NoError(t, CheckContribution(cfg, StatusLive, big.NewInt(1_000), big.NewInt(1_000)))
}

func TestShare(t *testing.T) {
	cfg := validConfig()

	alloc := Share(cfg, StatusFinalized, big.NewInt(25), big.NewInt(250))
	assert.Equal(t, "100000", alloc.Tokens.String())
	assert.Equal(t, "0", alloc.Refund.String())

	// 1000 raised against a 500 hard cap: half of each contribution is refunded
	alloc = Share(cfg, StatusFinalized, big.NewInt(40), big.NewInt(1_000))
	assert.Equal(t, "40000", alloc.Tokens.String())
	assert.Equal(t, "20", alloc.Refund.String())

	alloc = Share(cfg, StatusFailed, big.NewInt(40), big.NewInt(50))
	assert.Equal(t, "0", alloc.Tokens.String())
	assert.Equal(t, "40", alloc.Refund.String())

	alloc = Share(cfg, StatusFinalized, big.NewInt(0), big.NewInt(50))
	assert.Equal(t, "0", alloc.Tokens.String())
	assert.Equal(t, "0", alloc.Refund.String())
}

func TestStatusFromChain(t *testing.T) {
	for i, name := range statusNames {
		s, err := StatusFromChain(uint8(i))
		require.NoError(t, err)
		assert.Equal(t, Status(i), s)
		assert.Equal(t, name, s.String())
	}
	_, err := StatusFromChain(6)
	assert.Error(t, err)
}
