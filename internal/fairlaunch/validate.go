package fairlaunch

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"launchpad/internal/currency"
)

// FieldError is a single failed field rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every failed rule for a config.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Error())
	}
	return "invalid fair launch config: " + strings.Join(parts, "; ")
}

// Err returns nil when there are no field errors.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Has reports whether field failed any rule.
func (v ValidationErrors) Has(field string) bool {
	for _, fe := range v {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Validate checks the cross-field rules that must hold before a launch is created.
func Validate(cfg Config) ValidationErrors {
	var errs ValidationErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Token == (common.Address{}) {
		add("token", "token address is required")
	}
	if _, err := currency.Lookup(cfg.Currency); err != nil {
		add("currency", "%v", err)
	}
	if cfg.TokensForSale == nil || cfg.TokensForSale.Sign() <= 0 {
		add("tokens_for_sale", "must be greater than zero")
	}
	if cfg.SoftCap == nil || cfg.SoftCap.Sign() <= 0 {
		add("soft_cap", "must be greater than zero")
	}

	// hard cap of zero means unlimited
	if cfg.HardCap != nil && cfg.HardCap.Sign() < 0 {
		add("hard_cap", "must not be negative")
	} else if cfg.HardCap != nil && cfg.HardCap.Sign() > 0 && cfg.SoftCap != nil && cfg.HardCap.Cmp(cfg.SoftCap) < 0 {
		add("hard_cap", "must be zero or at least the soft cap")
	}

	if cfg.MaxContribution != nil {
		if cfg.MaxContribution.Sign() < 0 {
			add("max_contribution", "must not be negative")
		} else if cfg.HardCap != nil && cfg.HardCap.Sign() > 0 && cfg.MaxContribution.Cmp(cfg.HardCap) > 0 {
			add("max_contribution", "must not exceed the hard cap")
		}
	}

	if cfg.StartTime > MaxTimestamp {
		add("start_time", "must not exceed %d", MaxTimestamp)
	}
	if cfg.EndTime > MaxTimestamp {
		add("end_time", "must not exceed %d", MaxTimestamp)
	} else if cfg.EndTime <= cfg.StartTime {
		add("end_time", "must be after start time")
	}
	if cfg.LiquidityPercent < LiquidityMin || cfg.LiquidityPercent > LiquidityMax {
		add("liquidity_percent", "must be between %d and %d", LiquidityMin, LiquidityMax)
	}
	if cfg.WhitelistEnabled && cfg.WhitelistRoot == (common.Hash{}) {
		add("whitelist_root", "a non-zero merkle root is required when the whitelist is enabled")
	}

	return errs
}
