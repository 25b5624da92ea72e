package model

// DecodeFailure records a log that matched a trade signature but could not
// be decoded. It is logged and counted, never surfaced to the user.
type DecodeFailure struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	Reason      string `json:"reason"`
}

// NewDecodeFailure builds a failure record for log.
func NewDecodeFailure(log LogRecord, err error) DecodeFailure {
	return DecodeFailure{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		Topic0:      log.Topic0(),
		Reason:      err.Error(),
	}
}
