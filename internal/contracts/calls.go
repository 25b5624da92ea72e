package contracts

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"launchpad/internal/currency"
	"launchpad/internal/curve"
	"launchpad/internal/fairlaunch"
	"launchpad/internal/model"
)

// Caller is the eth_call surface the typed reads need.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

func call(ctx context.Context, caller Caller, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain caller is nil")
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func callBig(ctx context.Context, caller Caller, to common.Address, parsed abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	values, err := call(ctx, caller, to, parsed, method, args...)
	if err != nil {
		return nil, err
	}
	n, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return n, nil
}

// ReadPoolState loads a bonding-curve snapshot. Any failure wraps
// curve.ErrQuoteUnavailable so quote callers can degrade to a placeholder.
func ReadPoolState(ctx context.Context, caller Caller, pool common.Address) (*curve.PoolState, error) {
	state, err := readPoolState(ctx, caller, pool)
	if err != nil {
		return nil, fmt.Errorf("%w: pool %s: %v", curve.ErrQuoteUnavailable, pool.Hex(), err)
	}
	return state, nil
}

func readPoolState(ctx context.Context, caller Caller, pool common.Address) (*curve.PoolState, error) {
	poolABI, err := BondingPoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}

	state := &curve.PoolState{}
	bigFields := []struct {
		method string
		dst    **big.Int
	}{
		{"virtualTokenReserve", &state.VirtualTokenReserve},
		{"virtualZilReserve", &state.VirtualZilReserve},
		{"k", &state.K},
		{"realZilReserve", &state.RealZilReserve},
		{"tokensSold", &state.TokensSold},
		{"graduationMarketCap", &state.GraduationMarketCap},
	}
	for _, f := range bigFields {
		n, err := callBig(ctx, caller, pool, poolABI, f.method)
		if err != nil {
			return nil, err
		}
		*f.dst = n
	}

	values, err := call(ctx, caller, pool, poolABI, "tradingFeePercent")
	if err != nil {
		return nil, err
	}
	if state.TradingFeeBps, err = asUint64(values[0]); err != nil {
		return nil, fmt.Errorf("tradingFeePercent: %w", err)
	}

	values, err = call(ctx, caller, pool, poolABI, "getProgress")
	if err != nil {
		return nil, err
	}
	if state.ProgressBps, err = asUint64(values[0]); err != nil {
		return nil, fmt.Errorf("getProgress: %w", err)
	}

	values, err = call(ctx, caller, pool, poolABI, "state")
	if err != nil {
		return nil, err
	}
	raw, err := asUint8(values[0])
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	state.State = curve.State(raw)

	return state, nil
}

// ReadPoolToken returns the ERC20 the pool sells.
func ReadPoolToken(ctx context.Context, caller Caller, pool common.Address) (common.Address, error) {
	poolABI, err := BondingPoolABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := call(ctx, caller, pool, poolABI, "token")
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// FairLaunchStatus is the chain-reported state of a fair-launch pool.
type FairLaunchStatus struct {
	Status      fairlaunch.Status
	TotalRaised *big.Int
}

// ReadFairLaunchStatus reads the authoritative status and the amount raised.
func ReadFairLaunchStatus(ctx context.Context, caller Caller, pool common.Address) (FairLaunchStatus, error) {
	flABI, err := FairLaunchABI()
	if err != nil {
		return FairLaunchStatus{}, fmt.Errorf("parse fair launch abi: %w", err)
	}
	values, err := call(ctx, caller, pool, flABI, "status")
	if err != nil {
		return FairLaunchStatus{}, err
	}
	raw, err := asUint8(values[0])
	if err != nil {
		return FairLaunchStatus{}, fmt.Errorf("status: %w", err)
	}
	status, err := fairlaunch.StatusFromChain(raw)
	if err != nil {
		return FairLaunchStatus{}, err
	}
	raised, err := callBig(ctx, caller, pool, flABI, "totalRaised")
	if err != nil {
		return FairLaunchStatus{}, err
	}
	return FairLaunchStatus{Status: status, TotalRaised: raised}, nil
}

// ReadFairLaunchConfig reads the creator config a fair-launch pool was
// deployed with. Writes must be checked against this, not user input.
func ReadFairLaunchConfig(ctx context.Context, caller Caller, pool common.Address) (fairlaunch.Config, error) {
	flABI, err := FairLaunchABI()
	if err != nil {
		return fairlaunch.Config{}, fmt.Errorf("parse fair launch abi: %w", err)
	}

	var cfg fairlaunch.Config
	values, err := call(ctx, caller, pool, flABI, "token")
	if err != nil {
		return cfg, err
	}
	if cfg.Token, err = asAddress(values[0]); err != nil {
		return cfg, fmt.Errorf("token: %w", err)
	}

	values, err = call(ctx, caller, pool, flABI, "currency")
	if err != nil {
		return cfg, err
	}
	raw, err := asUint8(values[0])
	if err != nil {
		return cfg, fmt.Errorf("currency: %w", err)
	}
	if cfg.Currency, err = currency.FromOnChain(raw); err != nil {
		return cfg, err
	}

	bigFields := []struct {
		method string
		dst    **big.Int
	}{
		{"tokensForSale", &cfg.TokensForSale},
		{"softCap", &cfg.SoftCap},
		{"hardCap", &cfg.HardCap},
		{"maxContribution", &cfg.MaxContribution},
	}
	for _, f := range bigFields {
		if *f.dst, err = callBig(ctx, caller, pool, flABI, f.method); err != nil {
			return cfg, err
		}
	}

	uintFields := []struct {
		method string
		dst    *uint64
	}{
		{"startTime", &cfg.StartTime},
		{"endTime", &cfg.EndTime},
		{"liquidityPercent", &cfg.LiquidityPercent},
		{"lockDuration", &cfg.LockDuration},
	}
	for _, f := range uintFields {
		values, err := call(ctx, caller, pool, flABI, f.method)
		if err != nil {
			return cfg, err
		}
		if *f.dst, err = asUint64(values[0]); err != nil {
			return cfg, fmt.Errorf("%s: %w", f.method, err)
		}
	}

	values, err = call(ctx, caller, pool, flABI, "whitelistEnabled")
	if err != nil {
		return cfg, err
	}
	if cfg.WhitelistEnabled, err = asBool(values[0]); err != nil {
		return cfg, fmt.Errorf("whitelistEnabled: %w", err)
	}
	values, err = call(ctx, caller, pool, flABI, "whitelistRoot")
	if err != nil {
		return cfg, err
	}
	if cfg.WhitelistRoot, err = asHash(values[0]); err != nil {
		return cfg, fmt.Errorf("whitelistRoot: %w", err)
	}
	return cfg, nil
}

// ReadContribution returns how much account has put into a fair launch.
func ReadContribution(ctx context.Context, caller Caller, pool, account common.Address) (*big.Int, error) {
	flABI, err := FairLaunchABI()
	if err != nil {
		return nil, fmt.Errorf("parse fair launch abi: %w", err)
	}
	return callBig(ctx, caller, pool, flABI, "contributions", account)
}

// ReadAllowance returns the ERC20 allowance owner granted spender.
func ReadAllowance(ctx context.Context, caller Caller, token, owner, spender common.Address) (*big.Int, error) {
	erc20, err := erc20ABIString.get()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return callBig(ctx, caller, token, erc20, "allowance", owner, spender)
}

// ReadBalance returns the ERC20 balance of account.
func ReadBalance(ctx context.Context, caller Caller, token, account common.Address) (*big.Int, error) {
	erc20, err := erc20ABIString.get()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return callBig(ctx, caller, token, erc20, "balanceOf", account)
}

// ReadTokenMeta loads ERC20 metadata. decimals is required; symbol and name
// fall back to the bytes32 variants and are left empty if both fail.
func ReadTokenMeta(ctx context.Context, caller Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := erc20ABIString.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := call(ctx, caller, token, stringABI, "decimals")
	if err != nil {
		return meta, err
	}
	if meta.Decimals, err = asUint8(values[0]); err != nil {
		return meta, fmt.Errorf("decimals: %w", err)
	}

	readText := func(method string) string {
		if values, err := call(ctx, caller, token, stringABI, method); err == nil {
			if s, ok := values[0].(string); ok {
				return s
			}
		}
		values, err := call(ctx, caller, token, bytes32ABI, method)
		if err != nil {
			logger.Debug("erc20 text call failed", zap.String("token", token.Hex()), zap.String("method", method), zap.Error(err))
			return ""
		}
		s, _ := bytes32ToString(values[0])
		return s
	}
	meta.Symbol = readText("symbol")
	meta.Name = readText("name")

	return meta, nil
}

// TokenMetaCache caches token metadata by address. Metadata is immutable
// on chain, so entries never expire.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// Load returns cached metadata or reads and caches it.
func (c *TokenMetaCache) Load(ctx context.Context, caller Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	if meta, ok := c.Get(token); ok {
		return meta, nil
	}
	meta, err := ReadTokenMeta(ctx, caller, token, logger)
	if err != nil {
		return meta, err
	}
	c.Set(token, meta)
	return meta, nil
}
