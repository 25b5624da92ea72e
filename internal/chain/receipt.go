package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// ErrReceiptTimeout means the tx was not mined within WaitOptions.Timeout.
var ErrReceiptTimeout = errors.New("receipt not found before timeout")

// WaitOptions tunes receipt polling.
type WaitOptions struct {
	Timeout         time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Logger          *zap.Logger
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Minute
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = time.Second
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// WaitReceipt polls until the receipt exists. ethereum.NotFound and
// transport errors are retried with exponential backoff; only the timeout
// or ctx ends the wait.
func WaitReceipt(ctx context.Context, reader ReceiptReader, txHash common.Hash, opts WaitOptions) (*types.Receipt, error) {
	opts = opts.withDefaults()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = opts.InitialInterval
	policy.MaxInterval = opts.MaxInterval

	notify := func(err error, next time.Duration) {
		if !errors.Is(err, ethereum.NotFound) {
			opts.Logger.Warn("receipt poll failed", zap.String("tx", txHash.Hex()), zap.Error(err), zap.Duration("backoff", next))
		}
	}

	receipt, err := backoff.Retry(ctx, func() (*types.Receipt, error) {
		return reader.TransactionReceipt(ctx, txHash)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(opts.Timeout),
		backoff.WithNotify(notify),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrReceiptTimeout, txHash.Hex(), err)
	}
	return receipt, nil
}
