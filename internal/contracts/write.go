package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"launchpad/internal/currency"
	"launchpad/internal/fairlaunch"
)

// WriteCall is an unsigned transaction request handed to the wallet layer.
type WriteCall struct {
	To     common.Address `json:"to"`
	Method string         `json:"method"`
	Data   hexutil.Bytes  `json:"data"`
	Value  *hexutil.Big   `json:"value,omitempty"`
}

// ValueOrZero returns the native value attached to the call.
func (w WriteCall) ValueOrZero() *big.Int {
	if w.Value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(w.Value.ToInt())
}

func build(to common.Address, parsed func() (abi.ABI, error), method string, value *big.Int, args ...interface{}) (WriteCall, error) {
	a, err := parsed()
	if err != nil {
		return WriteCall{}, err
	}
	data, err := a.Pack(method, args...)
	if err != nil {
		return WriteCall{}, fmt.Errorf("pack %s: %w", method, err)
	}
	wc := WriteCall{To: to, Method: method, Data: data}
	if value != nil && value.Sign() > 0 {
		wc.Value = (*hexutil.Big)(new(big.Int).Set(value))
	}
	return wc, nil
}

func requirePositive(name string, v *big.Int) error {
	if v == nil || v.Sign() <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// Buy spends zilIn on the curve, reverting below minTokensOut.
func Buy(pool common.Address, zilIn, minTokensOut *big.Int) (WriteCall, error) {
	if err := requirePositive("zil in", zilIn); err != nil {
		return WriteCall{}, err
	}
	return build(pool, BondingPoolABI, "buy", zilIn, orZero(minTokensOut))
}

// Sell returns tokensIn to the curve, reverting below minZilOut.
func Sell(pool common.Address, tokensIn, minZilOut *big.Int) (WriteCall, error) {
	if err := requirePositive("tokens in", tokensIn); err != nil {
		return WriteCall{}, err
	}
	return build(pool, BondingPoolABI, "sell", nil, tokensIn, orZero(minZilOut))
}

// Approve grants spender an ERC20 allowance.
func Approve(token, spender common.Address, value *big.Int) (WriteCall, error) {
	return build(token, erc20ABIString.get, "approve", nil, spender, orZero(value))
}

// Contribute joins a fair launch. ZIL raises attach value; USDC raises
// move tokens through a prior approval instead.
func Contribute(pool common.Address, code currency.Code, value *big.Int, proof []common.Hash) (WriteCall, error) {
	if err := requirePositive("contribution", value); err != nil {
		return WriteCall{}, err
	}
	leaves := make([][32]byte, len(proof))
	for i, h := range proof {
		leaves[i] = h
	}
	var native *big.Int
	if code == currency.ZIL {
		native = value
	}
	return build(pool, FairLaunchABI, "contribute", native, value, leaves)
}

// Claim withdraws tokens from a finalized fair launch.
func Claim(pool common.Address) (WriteCall, error) {
	return build(pool, FairLaunchABI, "claim", nil)
}

// Refund withdraws a contribution from a failed or cancelled fair launch,
// or the over-cap portion of a finalized one.
func Refund(pool common.Address) (WriteCall, error) {
	return build(pool, FairLaunchABI, "refund", nil)
}

// Finalize settles a fair launch once its window has closed.
func Finalize(pool common.Address) (WriteCall, error) {
	return build(pool, FairLaunchABI, "finalize", nil)
}

// CreateToken deploys a token and its bonding-curve pool.
func CreateToken(factory common.Address, name, symbol string, creationFee *big.Int) (WriteCall, error) {
	if name == "" || symbol == "" {
		return WriteCall{}, fmt.Errorf("name and symbol are required")
	}
	return build(factory, FactoryABI, "createToken", creationFee, name, symbol)
}

// CreateFairLaunch deploys a fair-launch pool. The config is validated first
// so an invalid launch never reaches the wallet.
func CreateFairLaunch(factory common.Address, cfg fairlaunch.Config, creationFee *big.Int) (WriteCall, error) {
	if err := fairlaunch.Validate(cfg).Err(); err != nil {
		return WriteCall{}, err
	}
	onChain, err := cfg.Currency.OnChain()
	if err != nil {
		return WriteCall{}, err
	}
	return build(factory, FactoryABI, "createFairLaunch", creationFee,
		cfg.Token,
		onChain,
		orZero(cfg.TokensForSale),
		orZero(cfg.SoftCap),
		orZero(cfg.HardCap),
		orZero(cfg.MaxContribution),
		new(big.Int).SetUint64(cfg.StartTime),
		new(big.Int).SetUint64(cfg.EndTime),
		new(big.Int).SetUint64(cfg.LiquidityPercent),
		new(big.Int).SetUint64(cfg.LockDuration),
		cfg.WhitelistEnabled,
		[32]byte(cfg.WhitelistRoot),
	)
}

// Airdrop distributes token to recipients. The airdropper must already hold
// an allowance for the sum of amounts.
func Airdrop(airdropper, token common.Address, recipients []common.Address, amounts []*big.Int) (WriteCall, error) {
	if len(recipients) == 0 {
		return WriteCall{}, fmt.Errorf("no recipients")
	}
	if len(recipients) != len(amounts) {
		return WriteCall{}, fmt.Errorf("recipients (%d) and amounts (%d) differ in length", len(recipients), len(amounts))
	}
	for i, a := range amounts {
		if err := requirePositive(fmt.Sprintf("amount[%d]", i), a); err != nil {
			return WriteCall{}, err
		}
	}
	return build(airdropper, AirdropperABI, "airdrop", nil, token, recipients, amounts)
}

// AirdropTotal is the allowance an airdrop needs.
func AirdropTotal(amounts []*big.Int) *big.Int {
	total := new(big.Int)
	for _, a := range amounts {
		if a != nil {
			total.Add(total, a)
		}
	}
	return total
}
