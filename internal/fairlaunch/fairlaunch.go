package fairlaunch

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"launchpad/internal/currency"
)

const (
	LiquidityMin = 51
	LiquidityMax = 100
)

var (
	// ErrNotLive is returned when the chain does not report the sale as live.
	ErrNotLive = errors.New("sale is not live")

	// ErrContributionLimit is returned when a contribution exceeds the per-wallet cap.
	ErrContributionLimit = errors.New("contribution exceeds max contribution")
)

// Config is the creator-supplied configuration of a fair-launch pool.
type Config struct {
	Token            common.Address `json:"token"`
	Currency         currency.Code  `json:"currency"`
	TokensForSale    *big.Int       `json:"tokens_for_sale"`
	SoftCap          *big.Int       `json:"soft_cap"`
	HardCap          *big.Int       `json:"hard_cap"`
	MaxContribution  *big.Int       `json:"max_contribution"`
	StartTime        uint64         `json:"start_time"`
	EndTime          uint64         `json:"end_time"`
	LiquidityPercent uint64         `json:"liquidity_percent"`
	LockDuration     uint64         `json:"lock_duration"`
	WhitelistEnabled bool           `json:"whitelist_enabled"`
	WhitelistRoot    common.Hash    `json:"whitelist_root"`
}

// Status mirrors the fair-launch contract's status enum.
type Status uint8

const (
	StatusUpcoming Status = iota
	StatusLive
	StatusReady
	StatusFinalized
	StatusCancelled
	StatusFailed
)

var statusNames = []string{"upcoming", "live", "ready", "finalized", "cancelled", "failed"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// StatusFromChain validates a raw enum value read from the contract.
func StatusFromChain(value uint8) (Status, error) {
	if int(value) >= len(statusNames) {
		return 0, fmt.Errorf("unknown fair launch status %d", value)
	}
	return Status(value), nil
}

// TokensForLiquidity is the token amount paired with raised funds on the DEX.
func TokensForLiquidity(tokensForSale *big.Int, liquidityPercent uint64) *big.Int {
	if tokensForSale == nil {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(tokensForSale, new(big.Int).SetUint64(liquidityPercent))
	return out.Quo(out, big.NewInt(100))
}

// TotalTokensRequired is what the creator must approve to the sale contract.
func TotalTokensRequired(tokensForSale *big.Int, liquidityPercent uint64) *big.Int {
	total := TokensForLiquidity(tokensForSale, liquidityPercent)
	if tokensForSale != nil {
		total.Add(total, tokensForSale)
	}
	return total
}

// MaxTimestamp is the largest sale time, in seconds, that still fits in
// int64 milliseconds.
const MaxTimestamp = math.MaxInt64 / 1000

func millis(sec uint64) int64 {
	if sec > MaxTimestamp {
		return math.MaxInt64
	}
	return int64(sec) * 1000
}

// WindowOpen compares the sale window against the local clock in
// milliseconds. It only gates the UI optimistically.
func WindowOpen(cfg Config, now time.Time) bool {
	nowMs := now.UnixMilli()
	return millis(cfg.StartTime) <= nowMs && nowMs <= millis(cfg.EndTime)
}

// OptimisticStatus derives a display status from timestamps alone, for use
// until the chain-reported status has been read.
func OptimisticStatus(cfg Config, now time.Time) Status {
	nowMs := now.UnixMilli()
	switch {
	case nowMs < millis(cfg.StartTime):
		return StatusUpcoming
	case nowMs <= millis(cfg.EndTime):
		return StatusLive
	default:
		return StatusReady
	}
}

// CheckContribution reconciles a pending contribution against the
// chain-reported status and the per-wallet cap before a write is built.
func CheckContribution(cfg Config, chainStatus Status, contributed, value *big.Int) error {
	if chainStatus != StatusLive {
		return fmt.Errorf("%w: chain reports %s", ErrNotLive, chainStatus)
	}
	if value == nil || value.Sign() <= 0 {
		return fmt.Errorf("contribution must be positive")
	}
	if cfg.MaxContribution == nil || cfg.MaxContribution.Sign() == 0 {
		return nil
	}
	total := new(big.Int).Set(value)
	if contributed != nil {
		total.Add(total, contributed)
	}
	if total.Cmp(cfg.MaxContribution) > 0 {
		return fmt.Errorf("%w: %s > %s", ErrContributionLimit, total, cfg.MaxContribution)
	}
	return nil
}

// Allocation is a contributor's pro-rata outcome.
type Allocation struct {
	Tokens *big.Int
	Refund *big.Int
}

// RefundsAll reports whether the pool returns every contribution in full.
func RefundsAll(status Status) bool {
	return status == StatusCancelled || status == StatusFailed
}

// Share computes the contributor's tokens and refund from total raised.
// Raises above the hard cap are accepted pro-rata and the excess refunded.
func Share(cfg Config, status Status, contribution, totalRaised *big.Int) Allocation {
	if contribution == nil || contribution.Sign() <= 0 {
		return Allocation{Tokens: big.NewInt(0), Refund: big.NewInt(0)}
	}
	if RefundsAll(status) || totalRaised == nil || totalRaised.Sign() <= 0 {
		return Allocation{Tokens: big.NewInt(0), Refund: new(big.Int).Set(contribution)}
	}

	tokens := big.NewInt(0)
	if cfg.TokensForSale != nil {
		tokens.Mul(contribution, cfg.TokensForSale)
		tokens.Quo(tokens, totalRaised)
	}

	refund := big.NewInt(0)
	if cfg.HardCap != nil && cfg.HardCap.Sign() > 0 && totalRaised.Cmp(cfg.HardCap) > 0 {
		accepted := new(big.Int).Mul(contribution, cfg.HardCap)
		accepted.Quo(accepted, totalRaised)
		refund.Sub(contribution, accepted)
	}
	return Allocation{Tokens: tokens, Refund: refund}
}
