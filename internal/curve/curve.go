package curve

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"launchpad/internal/amount"
)

const (
	// BasisPoints is the denominator for fee and slippage values.
	BasisPoints = 10_000

	// DefaultSlippageBps accepts 99% of the quoted output.
	DefaultSlippageBps = 100
)

var (
	// ErrQuoteUnavailable means pool state is not loaded or is incomplete.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrPoolGraduated means the pool migrated to the DEX and no longer trades on the curve.
	ErrPoolGraduated = errors.New("pool graduated")
)

var (
	bpsDenominator = big.NewInt(BasisPoints)
	wad            = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// State is the on-chain lifecycle of a bonding-curve pool.
type State uint8

const (
	StateTrading State = iota
	StateGraduated
)

func (s State) String() string {
	switch s {
	case StateTrading:
		return "trading"
	case StateGraduated:
		return "graduated"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// PoolState is a snapshot of a bonding-curve pool read from chain.
type PoolState struct {
	VirtualTokenReserve *big.Int
	VirtualZilReserve   *big.Int
	K                   *big.Int
	RealZilReserve      *big.Int
	TokensSold          *big.Int
	TradingFeeBps       uint64
	GraduationMarketCap *big.Int
	State               State
	ProgressBps         uint64
}

// BuyQuote is the expected result of spending ZIL on the curve.
type BuyQuote struct {
	TokensOut *big.Int
	Fee       *big.Int
}

// SellQuote is the expected result of selling tokens into the curve.
type SellQuote struct {
	ZilOut *big.Int
	Fee    *big.Int
}

// Graduated reports whether the pool has left the curve.
func (p *PoolState) Graduated() bool {
	return p != nil && p.State == StateGraduated
}

func (p *PoolState) check() error {
	if p == nil {
		return fmt.Errorf("%w: no pool state", ErrQuoteUnavailable)
	}
	if p.VirtualTokenReserve == nil || p.VirtualZilReserve == nil || p.K == nil {
		return fmt.Errorf("%w: reserves not loaded", ErrQuoteUnavailable)
	}
	if p.K.Sign() <= 0 {
		return fmt.Errorf("%w: invariant is zero", ErrQuoteUnavailable)
	}
	if p.TradingFeeBps > BasisPoints {
		return fmt.Errorf("%w: fee %d bps out of range", ErrQuoteUnavailable, p.TradingFeeBps)
	}
	if p.Graduated() {
		return ErrPoolGraduated
	}
	return nil
}

func checkInput(value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return fmt.Errorf("%w: quote input must be non-negative", amount.ErrInvalidAmount)
	}
	return nil
}

// QuoteBuy mirrors the contract's buy pricing: the fee comes off the ZIL
// input, the rest moves along the x*y=k curve with floor division.
func QuoteBuy(state *PoolState, zilIn *big.Int) (BuyQuote, error) {
	if err := state.check(); err != nil {
		return BuyQuote{}, err
	}
	if err := checkInput(zilIn); err != nil {
		return BuyQuote{}, err
	}

	fee := feeOf(zilIn, state.TradingFeeBps)
	netZilIn := new(big.Int).Sub(zilIn, fee)
	newZil := new(big.Int).Add(state.VirtualZilReserve, netZilIn)
	if newZil.Sign() <= 0 {
		return BuyQuote{}, fmt.Errorf("%w: empty zil reserve", ErrQuoteUnavailable)
	}
	newToken := new(big.Int).Quo(state.K, newZil)

	tokensOut := new(big.Int).Sub(state.VirtualTokenReserve, newToken)
	if tokensOut.Sign() < 0 {
		tokensOut.SetInt64(0)
	}
	return BuyQuote{TokensOut: tokensOut, Fee: fee}, nil
}

// QuoteSell mirrors the contract's sell pricing: tokens move along the
// curve first and the fee comes off the gross ZIL output.
func QuoteSell(state *PoolState, tokensIn *big.Int) (SellQuote, error) {
	if err := state.check(); err != nil {
		return SellQuote{}, err
	}
	if err := checkInput(tokensIn); err != nil {
		return SellQuote{}, err
	}

	newToken := new(big.Int).Add(state.VirtualTokenReserve, tokensIn)
	if newToken.Sign() <= 0 {
		return SellQuote{}, fmt.Errorf("%w: empty token reserve", ErrQuoteUnavailable)
	}
	newZil := new(big.Int).Quo(state.K, newToken)

	gross := new(big.Int).Sub(state.VirtualZilReserve, newZil)
	if gross.Sign() < 0 {
		gross.SetInt64(0)
	}
	fee := feeOf(gross, state.TradingFeeBps)
	return SellQuote{ZilOut: gross.Sub(gross, fee), Fee: fee}, nil
}

// ApplyBuy returns the state the pool would hold after the quoted buy.
func ApplyBuy(state *PoolState, zilIn *big.Int, quote BuyQuote) *PoolState {
	next := state.clone()
	net := new(big.Int).Sub(zilIn, quote.Fee)
	next.VirtualZilReserve.Add(next.VirtualZilReserve, net)
	next.VirtualTokenReserve.Sub(next.VirtualTokenReserve, quote.TokensOut)
	next.RealZilReserve.Add(next.RealZilReserve, net)
	next.TokensSold.Add(next.TokensSold, quote.TokensOut)
	return next
}

// ApplySell returns the state the pool would hold after the quoted sell.
func ApplySell(state *PoolState, tokensIn *big.Int, quote SellQuote) *PoolState {
	next := state.clone()
	gross := new(big.Int).Add(quote.ZilOut, quote.Fee)
	next.VirtualTokenReserve.Add(next.VirtualTokenReserve, tokensIn)
	next.VirtualZilReserve.Sub(next.VirtualZilReserve, gross)
	next.RealZilReserve.Sub(next.RealZilReserve, gross)
	next.TokensSold.Sub(next.TokensSold, tokensIn)
	return next
}

// MinOutput is the lower bound passed to the write call for a slippage
// tolerance in basis points.
func MinOutput(quoted *big.Int, slippageBps uint64) *big.Int {
	if quoted == nil {
		return big.NewInt(0)
	}
	if slippageBps > BasisPoints {
		slippageBps = BasisPoints
	}
	out := new(big.Int).Mul(quoted, new(big.Int).SetUint64(BasisPoints-slippageBps))
	return out.Quo(out, bpsDenominator)
}

// ProgressPercent converts chain-reported graduation progress to a percentage.
func ProgressPercent(progressBps uint64) decimal.Decimal {
	return decimal.New(int64(progressBps), -2)
}

// SpotPrice is the marginal price in ZIL wei per whole token (1e18 units).
func SpotPrice(state *PoolState) (*big.Int, error) {
	if state == nil || state.VirtualTokenReserve == nil || state.VirtualZilReserve == nil || state.VirtualTokenReserve.Sign() == 0 {
		return nil, fmt.Errorf("%w: reserves not loaded", ErrQuoteUnavailable)
	}
	price := new(big.Int).Mul(state.VirtualZilReserve, wad)
	return price.Quo(price, state.VirtualTokenReserve), nil
}

// PriceDecimal renders a wei-per-token price as a ZIL decimal.
func PriceDecimal(priceWei *big.Int) decimal.Decimal {
	if priceWei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(priceWei, -18)
}

func feeOf(value *big.Int, feeBps uint64) *big.Int {
	fee := new(big.Int).Mul(value, new(big.Int).SetUint64(feeBps))
	return fee.Quo(fee, bpsDenominator)
}

func (p *PoolState) clone() *PoolState {
	next := *p
	next.VirtualTokenReserve = copyInt(p.VirtualTokenReserve)
	next.VirtualZilReserve = copyInt(p.VirtualZilReserve)
	next.K = copyInt(p.K)
	next.RealZilReserve = copyInt(p.RealZilReserve)
	next.TokensSold = copyInt(p.TokensSold)
	next.GraduationMarketCap = copyInt(p.GraduationMarketCap)
	return &next
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
