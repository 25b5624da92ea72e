package contracts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrUserRejected means the wallet declined to sign. It is a silent no-op.
	ErrUserRejected = errors.New("user rejected request")

	// ErrTransactionFailed means a submitted transaction reverted or never confirmed.
	ErrTransactionFailed = errors.New("transaction failed")
)

// EIP-1193 userRejectedRequest.
const userRejectedCode = 4001

var rejectionPhrases = []string{"user rejected", "user denied", "denied transaction", "rejected by user"}

// Kind buckets a write-path error for notification policy.
type Kind int

const (
	KindNone Kind = iota
	KindUserRejected
	KindTransactionFailed
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUserRejected:
		return "user_rejected"
	case KindTransactionFailed:
		return "transaction_failed"
	default:
		return "other"
	}
}

// Classify maps a wallet or RPC error onto the write-path taxonomy.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrUserRejected) {
		return KindUserRejected
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return KindUserRejected
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range rejectionPhrases {
		if strings.Contains(msg, phrase) {
			return KindUserRejected
		}
	}
	if errors.Is(err, ErrTransactionFailed) {
		return KindTransactionFailed
	}
	return KindOther
}

// Normalize rewrites err so callers can use errors.Is with the package
// sentinels. Transaction errors keep the underlying message.
func Normalize(err error) error {
	switch Classify(err) {
	case KindNone:
		return nil
	case KindUserRejected:
		if errors.Is(err, ErrUserRejected) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUserRejected, err)
	case KindTransactionFailed:
		return err
	default:
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
}

// ShouldNotify reports whether a write error is surfaced to the user.
// Rejections are swallowed.
func ShouldNotify(err error) bool {
	k := Classify(err)
	return k != KindNone && k != KindUserRejected
}

// CheckReceipt turns a mined receipt with status 0 into ErrTransactionFailed.
func CheckReceipt(receipt *types.Receipt) error {
	if receipt == nil {
		return fmt.Errorf("%w: missing receipt", ErrTransactionFailed)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: tx %s reverted in block %s", ErrTransactionFailed, receipt.TxHash.Hex(), receipt.BlockNumber)
	}
	return nil
}
