package contracts

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"launchpad/internal/chain"
)

// Confirm waits for txHash to be mined and checks its status. A reverted
// tx or a confirmation timeout is ErrTransactionFailed.
func Confirm(ctx context.Context, reader chain.ReceiptReader, txHash common.Hash, opts chain.WaitOptions) (*types.Receipt, error) {
	receipt, err := chain.WaitReceipt(ctx, reader, txHash, opts)
	if err != nil {
		if errors.Is(err, chain.ErrReceiptTimeout) {
			return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
		}
		return nil, err
	}
	if err := CheckReceipt(receipt); err != nil {
		return receipt, err
	}
	return receipt, nil
}
