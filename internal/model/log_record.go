package model

import "strings"

// LogRecord is the normalized representation of a chain log as fetched
// from eth_getLogs, with hex-encoded topics and data.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed"`
	Timestamp   uint64   `json:"timestamp"`
}

// Topic0 returns the lower-cased event signature hash, or "" for anonymous logs.
func (lr LogRecord) Topic0() string {
	if len(lr.Topics) == 0 {
		return ""
	}
	return strings.ToLower(lr.Topics[0])
}

// ID is the dedupe key shared with the trade decoded from this log.
func (lr LogRecord) ID() string {
	return TradeID(lr.BlockNumber, lr.TxHash, lr.LogIndex)
}
